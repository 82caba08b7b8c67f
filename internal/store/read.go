package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/deliver/internal/ir"
)

// eventColumns is the column list every event query selects, in scanEvent order.
const eventColumns = `id, session_id, category, item_type, test_type, item_key, state, notifications, target_event_id, created_at, digest`

// ReadDelivery returns a delivery by id.
func (s *Store) ReadDelivery(ctx context.Context, id string) (ir.Delivery, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, kind, assessment_ref, title, settings
		FROM deliveries WHERE id = ?
	`, id)
	d, err := scanDelivery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Delivery{}, fmt.Errorf("delivery %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.Delivery{}, fmt.Errorf("read delivery: %w", err)
	}
	return d, nil
}

// ListDeliveries returns all deliveries ordered by id.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ListDeliveries(ctx context.Context) ([]ir.Delivery, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, kind, assessment_ref, title, settings
		FROM deliveries ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	deliveries := []ir.Delivery{}
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return deliveries, nil
}

// ReadSession returns a candidate session by id.
func (s *Store) ReadSession(ctx context.Context, id ir.SessionID) (ir.CandidateSession, error) {
	var (
		sess       ir.CandidateSession
		rawID      int64
		kind       string
		createdAt  int64
		closed     int
		terminated int
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT id, token, delivery_id, kind, created_at, closed, terminated, exit_url
		FROM candidate_sessions WHERE id = ?
	`, int64(id)).Scan(&rawID, &sess.Token, &sess.DeliveryID, &kind, &createdAt, &closed, &terminated, &sess.ExitURL)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.CandidateSession{}, fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.CandidateSession{}, fmt.Errorf("read session: %w", err)
	}
	sess.ID = ir.SessionID(rawID)
	sess.Kind = ir.DeliveryKind(kind)
	sess.CreatedAt = fromMillis(createdAt)
	sess.Closed = closed != 0
	sess.Terminated = terminated != 0
	return sess, nil
}

// ReadEvent returns an event by id.
func (s *Store) ReadEvent(ctx context.Context, id ir.EventID) (ir.CandidateEvent, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM candidate_events WHERE id = ?`, int64(id))
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.CandidateEvent{}, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.CandidateEvent{}, fmt.Errorf("read event: %w", err)
	}
	return ev, nil
}

// MostRecentEvent returns the last event of a session in the given
// category. An empty category matches every event.
// Returns ErrNotFound if the session has no such event.
func (s *Store) MostRecentEvent(ctx context.Context, sessionID ir.SessionID, category ir.EventCategory) (ir.CandidateEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM candidate_events WHERE session_id = ?`
	args := []any{int64(sessionID)}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	ev, err := scanEvent(s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return ir.CandidateEvent{}, fmt.Errorf("most recent event of session %d: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return ir.CandidateEvent{}, fmt.Errorf("read most recent event: %w", err)
	}
	return ev, nil
}

// MostRecentItemEventOfType returns the last item event of a session whose
// type is one of types. When itemKey is non-empty only events for that
// test item are considered.
func (s *Store) MostRecentItemEventOfType(ctx context.Context, sessionID ir.SessionID, itemKey ir.NodeKey, types ...ir.ItemEventType) (ir.CandidateEvent, error) {
	if len(types) == 0 {
		return ir.CandidateEvent{}, fmt.Errorf("most recent item event: no types given")
	}
	placeholders := make([]string, len(types))
	args := []any{int64(sessionID)}
	for i, t := range types {
		placeholders[i] = "?"
		args = append(args, string(t))
	}
	query := `SELECT ` + eventColumns + ` FROM candidate_events
		WHERE session_id = ? AND item_type IN (` + strings.Join(placeholders, ", ") + `)`
	if itemKey != "" {
		query += ` AND item_key = ?`
		args = append(args, string(itemKey))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	ev, err := scanEvent(s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return ir.CandidateEvent{}, fmt.Errorf("most recent %v event of session %d: %w", types, sessionID, ErrNotFound)
	}
	if err != nil {
		return ir.CandidateEvent{}, fmt.Errorf("read most recent item event: %w", err)
	}
	return ev, nil
}

// EventsForSession returns a session's events in total order
// (created_at ASC, id ASC). An empty category returns every event.
// Returns an empty slice (not nil) if there are none.
func (s *Store) EventsForSession(ctx context.Context, sessionID ir.SessionID, category ir.EventCategory) ([]ir.CandidateEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM candidate_events WHERE session_id = ?`
	args := []any{int64(sessionID)}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.CandidateEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ReadResponses returns the responses bound by an attempt event, ordered
// by identifier.
func (s *Store) ReadResponses(ctx context.Context, eventID ir.EventID) ([]ir.CandidateResponse, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, event_id, identifier, data_type, strings, file_id, file_path, content_type, legality
		FROM candidate_responses
		WHERE event_id = ?
		ORDER BY identifier COLLATE BINARY ASC
	`, int64(eventID))
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	responses := []ir.CandidateResponse{}
	for rows.Next() {
		var (
			r                             ir.CandidateResponse
			evID                          int64
			dataType, strs, legality      string
			fileID, filePath, contentType string
		)
		if err := rows.Scan(&r.ID, &evID, &r.Identifier, &dataType, &strs, &fileID, &filePath, &contentType, &legality); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		r.EventID = ir.EventID(evID)
		r.DataType = ir.ResponseDataType(dataType)
		r.Legality = ir.ResponseLegality(legality)
		if r.Strings, err = unmarshalStrings(strs); err != nil {
			return nil, err
		}
		if fileID != "" || filePath != "" {
			r.File = &ir.FileSubmission{ID: fileID, Path: filePath, ContentType: contentType}
		}
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}
	return responses, nil
}

// ReadResults returns every assessment result recorded for a session,
// in computation order.
func (s *Store) ReadResults(ctx context.Context, sessionID ir.SessionID) ([]ir.AssessmentResult, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT session_id, event_id, computed_at, result
		FROM assessment_results
		WHERE session_id = ?
		ORDER BY computed_at ASC, id ASC
	`, int64(sessionID))
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []ir.AssessmentResult{}
	for rows.Next() {
		var (
			sessID, evID, computedAt int64
			data                     string
		)
		if err := rows.Scan(&sessID, &evID, &computedAt, &data); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var body result
		if err := json.Unmarshal([]byte(data), &body); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, ir.AssessmentResult{
			SessionID:   ir.SessionID(sessID),
			EventID:     ir.EventID(evID),
			ComputedAt:  fromMillis(computedAt),
			ItemResults: body.ItemResults,
			Outcomes:    body.Outcomes,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row scanner) (ir.Delivery, error) {
	var (
		d              ir.Delivery
		kind, settings string
	)
	if err := row.Scan(&d.ID, &kind, &d.AssessmentRef, &d.Title, &settings); err != nil {
		return ir.Delivery{}, err
	}
	d.Kind = ir.DeliveryKind(kind)

	var ds deliverySettings
	if err := json.Unmarshal([]byte(settings), &ds); err != nil {
		return ir.Delivery{}, fmt.Errorf("unmarshal delivery settings: %w", err)
	}
	d.Item, d.Test = ds.Item, ds.Test
	return d, nil
}

func scanEvent(row scanner) (ir.CandidateEvent, error) {
	var (
		ev                                    ir.CandidateEvent
		id, sessionID, createdAt              int64
		category, itemType, testType, itemKey string
		state, notes                          string
		target                                sql.NullInt64
	)
	err := row.Scan(&id, &sessionID, &category, &itemType, &testType, &itemKey, &state, &notes, &target, &createdAt, &ev.Digest)
	if err != nil {
		return ir.CandidateEvent{}, err
	}

	ev.ID = ir.EventID(id)
	ev.SessionID = ir.SessionID(sessionID)
	ev.Category = ir.EventCategory(category)
	ev.ItemType = ir.ItemEventType(itemType)
	ev.TestType = ir.TestEventType(testType)
	ev.ItemKey = ir.NodeKey(itemKey)
	ev.State = []byte(state)
	ev.CreatedAt = fromMillis(createdAt)
	if target.Valid {
		t := ir.EventID(target.Int64)
		ev.TargetEventID = &t
	}
	if ev.Notifications, err = unmarshalNotifications(notes); err != nil {
		return ir.CandidateEvent{}, err
	}
	return ev, nil
}
