package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/deliver/internal/ir"
)

// PutDelivery inserts or replaces a delivery.
func (s *Store) PutDelivery(ctx context.Context, d ir.Delivery) error {
	if !d.Kind.Valid() {
		return fmt.Errorf("put delivery: invalid kind %q", d.Kind)
	}
	settings, err := marshalJSON(deliverySettings{Item: d.Item, Test: d.Test})
	if err != nil {
		return fmt.Errorf("put delivery: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO deliveries (id, kind, assessment_ref, title, settings)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			assessment_ref = excluded.assessment_ref,
			title = excluded.title,
			settings = excluded.settings
	`, d.ID, string(d.Kind), d.AssessmentRef, d.Title, settings)
	if err != nil {
		return fmt.Errorf("put delivery: %w", err)
	}
	return nil
}

// CreateSession inserts a new candidate session and returns it with its
// assigned id.
func (s *Store) CreateSession(ctx context.Context, sess ir.CandidateSession) (ir.CandidateSession, error) {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO candidate_sessions (token, delivery_id, kind, created_at, closed, terminated, exit_url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		sess.Token,
		sess.DeliveryID,
		string(sess.Kind),
		toMillis(sess.CreatedAt),
		boolToInt(sess.Closed),
		boolToInt(sess.Terminated),
		sess.ExitURL,
	)
	if err != nil {
		return ir.CandidateSession{}, fmt.Errorf("create session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return ir.CandidateSession{}, fmt.Errorf("create session: last insert id: %w", err)
	}
	sess.ID = ir.SessionID(id)
	sess.CreatedAt = fromMillis(toMillis(sess.CreatedAt))
	return sess, nil
}

// UpdateSession writes the mutable flags of a session: closed, terminated
// and exit URL. Returns ErrNotFound if the session does not exist.
func (s *Store) UpdateSession(ctx context.Context, sess ir.CandidateSession) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE candidate_sessions
		SET closed = ?, terminated = ?, exit_url = ?
		WHERE id = ?
	`, boolToInt(sess.Closed), boolToInt(sess.Terminated), sess.ExitURL, int64(sess.ID))
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update session %d: %w", sess.ID, ErrNotFound)
	}
	return nil
}

// AppendEvent appends an event to a session's log and returns the stored
// event. This is the only way events are written.
//
// The stored created_at is clamped so it never precedes the session's
// previous event, and the digest is chained from that event's digest.
func (s *Store) AppendEvent(ctx context.Context, sessionID ir.SessionID, ne ir.NewEvent) (ir.CandidateEvent, error) {
	var out ir.CandidateEvent
	if !ne.Category.Valid() {
		return out, fmt.Errorf("append event: invalid category %q", ne.Category)
	}
	if len(ne.State) == 0 {
		return out, fmt.Errorf("append event: empty state snapshot")
	}

	err := s.Atomically(ctx, func(tx *Store) error {
		prevDigest := ir.GenesisDigest
		createdAt := toMillis(ne.CreatedAt)

		var prevAt int64
		err := tx.q.QueryRowContext(ctx, `
			SELECT digest, created_at FROM candidate_events
			WHERE session_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		`, int64(sessionID)).Scan(&prevDigest, &prevAt)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("read previous event: %w", err)
		default:
			createdAt = max(createdAt, prevAt)
		}

		out = ir.CandidateEvent{
			SessionID:     sessionID,
			Category:      ne.Category,
			ItemType:      ne.ItemType,
			TestType:      ne.TestType,
			ItemKey:       ne.ItemKey,
			State:         ne.State,
			Notifications: ne.Notifications,
			TargetEventID: ne.TargetEventID,
			CreatedAt:     fromMillis(createdAt),
		}
		if out.Notifications == nil {
			out.Notifications = []ir.Notification{}
		}
		digest, err := ir.EventDigest(prevDigest, out)
		if err != nil {
			return err
		}
		out.Digest = digest

		notes, err := marshalNotifications(out.Notifications)
		if err != nil {
			return err
		}
		var target sql.NullInt64
		if ne.TargetEventID != nil {
			target = sql.NullInt64{Int64: int64(*ne.TargetEventID), Valid: true}
		}

		res, err := tx.q.ExecContext(ctx, `
			INSERT INTO candidate_events
			(session_id, category, item_type, test_type, item_key, state, notifications, target_event_id, created_at, digest)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			int64(sessionID),
			string(out.Category),
			string(out.ItemType),
			string(out.TestType),
			string(out.ItemKey),
			string(out.State),
			notes,
			target,
			createdAt,
			out.Digest,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		out.ID = ir.EventID(id)
		return nil
	})
	if err != nil {
		return ir.CandidateEvent{}, fmt.Errorf("append event: %w", err)
	}
	return out, nil
}

// WriteResponses stores the responses of an attempt event.
// Uses ON CONFLICT DO NOTHING so rewriting the same event's responses is a
// no-op.
func (s *Store) WriteResponses(ctx context.Context, eventID ir.EventID, responses []ir.CandidateResponse) error {
	return s.Atomically(ctx, func(tx *Store) error {
		for _, r := range responses {
			strs, err := marshalStrings(r.Strings)
			if err != nil {
				return fmt.Errorf("write responses: %w", err)
			}
			var fileID, filePath, contentType string
			if r.File != nil {
				fileID, filePath, contentType = r.File.ID, r.File.Path, r.File.ContentType
			}
			_, err = tx.q.ExecContext(ctx, `
				INSERT INTO candidate_responses
				(event_id, identifier, data_type, strings, file_id, file_path, content_type, legality)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(event_id, identifier) DO NOTHING
			`, int64(eventID), r.Identifier, string(r.DataType), strs, fileID, filePath, contentType, string(r.Legality))
			if err != nil {
				return fmt.Errorf("write responses: %w", err)
			}
		}
		return nil
	})
}

// WriteResult stores an assessment result. A second result for the same
// event is silently ignored.
func (s *Store) WriteResult(ctx context.Context, r ir.AssessmentResult) (inserted bool, err error) {
	data, err := marshalJSON(result{ItemResults: r.ItemResults, Outcomes: r.Outcomes})
	if err != nil {
		return false, fmt.Errorf("write result: %w", err)
	}

	res, err := s.q.ExecContext(ctx, `
		INSERT INTO assessment_results (session_id, event_id, computed_at, result)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(event_id) DO NOTHING
	`, int64(r.SessionID), int64(r.EventID), toMillis(r.ComputedAt), data)
	if err != nil {
		return false, fmt.Errorf("write result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write result: %w", err)
	}
	return n > 0, nil
}
