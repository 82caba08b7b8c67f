package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/deliver/internal/ir"
	"github.com/roach88/deliver/internal/runtime"
	"github.com/roach88/deliver/internal/store"
)

// itemOp is one operation on an item session, inside a transaction.
type itemOp struct {
	s        *Service
	tx       *store.Store
	sess     ir.CandidateSession
	delivery ir.Delivery
	settings ir.ItemDeliverySettings
	state    *ir.ItemSessionState
	ctrl     runtime.ItemController
	notes    *runtime.Recorder
	now      time.Time

	// wasOpen and reopened decide whether closing in this operation
	// completes an open epoch and so produces a result.
	wasOpen  bool
	reopened bool

	event   ir.CandidateEvent
	results []ir.AssessmentResult
}

func itemSettings(d ir.Delivery) ir.ItemDeliverySettings {
	if d.Item == nil {
		return ir.ItemDeliverySettings{}
	}
	return *d.Item
}

// controller binds a runtime controller to the op's state.
func (o *itemOp) controller(seed uint64) error {
	ctrl, err := o.s.rt.ItemController(o.delivery.AssessmentRef, o.state, runtime.ControllerOptions{
		MaxAttempts: o.settings.MaxAttempts,
		Seed:        seed,
	}, o.notes)
	if err != nil {
		return runtimeErr(o.sess.ID, o.delivery.AssessmentRef, err)
	}
	o.ctrl = ctrl
	return nil
}

func (o *itemOp) forbid(p Privilege) error {
	return forbidden(o.sess.ID, p)
}

// initialize starts a fresh init epoch with new template values.
func (o *itemOp) initialize() {
	o.reopened = true
	o.ctrl.Initialize(o.now)
	o.ctrl.PerformTemplateProcessing()
	o.ctrl.MarkPresented(o.now)
	o.ctrl.MarkPendingSubmission()
}

// record appends the op's event, computes a result if the item closed
// after being open, and syncs the session flags.
func (o *itemOp) record(ctx context.Context, typ ir.ItemEventType, target *ir.EventID) error {
	data, err := ir.EncodeState(o.state)
	if err != nil {
		return internal(o.sess.ID, "encode state", err)
	}
	ev, err := o.tx.AppendEvent(ctx, o.sess.ID, ir.NewEvent{
		Category:      ir.CategoryItem,
		ItemType:      typ,
		State:         data,
		Notifications: o.notes.Notes(),
		TargetEventID: target,
		CreatedAt:     o.now,
	})
	if err != nil {
		return internal(o.sess.ID, "append event", err)
	}
	o.event = ev

	if o.state.Closed && (o.wasOpen || o.reopened) {
		if err := o.writeResult(ctx); err != nil {
			return err
		}
	}

	if o.sess.Closed != o.state.Closed || typ == ir.ItemEventTerminate {
		o.sess.Closed = o.state.Closed
		if err := o.tx.UpdateSession(ctx, o.sess); err != nil {
			return internal(o.sess.ID, "update session", err)
		}
	}
	return nil
}

func (o *itemOp) writeResult(ctx context.Context) error {
	obj, err := o.ctrl.ComputeAssessmentResult()
	if err != nil {
		return internal(o.sess.ID, "compute result", err)
	}
	r := ir.AssessmentResult{
		SessionID:   o.sess.ID,
		EventID:     o.event.ID,
		ComputedAt:  o.event.CreatedAt,
		ItemResults: map[string]ir.IRObject{o.delivery.AssessmentRef: obj},
		Outcomes:    o.state.Outcomes.Clone(),
	}
	if _, err := o.tx.WriteResult(ctx, r); err != nil {
		return internal(o.sess.ID, "write result", err)
	}
	o.results = append(o.results, r)
	return nil
}

// loadItem opens an operation on the latest state of a live item session.
func (s *Service) loadItem(ctx context.Context, tx *store.Store, id ir.SessionID, token string) (*itemOp, error) {
	sess, d, err := s.access(ctx, tx, id, token, ir.DeliveryItem)
	if err != nil {
		return nil, err
	}
	if sess.Terminated {
		return nil, forbidden(id, PrivAccessTerminatedSession)
	}
	latest, err := tx.MostRecentEvent(ctx, id, ir.CategoryItem)
	if err != nil {
		return nil, internal(id, "item session has no events", err)
	}
	state, err := ir.DecodeItemState(latest.State)
	if err != nil {
		return nil, internal(id, "decode item state", err)
	}
	o := &itemOp{
		s:        s,
		tx:       tx,
		sess:     sess,
		delivery: d,
		settings: itemSettings(d),
		state:    state,
		notes:    &runtime.Recorder{},
		now:      s.clock.Now(),
		wasOpen:  !state.Closed,
	}
	if err := o.controller(0); err != nil {
		return nil, err
	}
	return o, nil
}

// runItem runs fn on a loaded item operation in one transaction and
// audits the appended event once it commits.
func (s *Service) runItem(ctx context.Context, op string, id ir.SessionID, token string, fn func(context.Context, *itemOp) error) (t Transition, err error) {
	ctx, end := s.begin(ctx, op, id)
	defer end(&err)

	var o *itemOp
	err = s.store.Atomically(ctx, func(tx *store.Store) error {
		var err error
		if o, err = s.loadItem(ctx, tx, id, token); err != nil {
			return err
		}
		return fn(ctx, o)
	})
	if err != nil {
		return Transition{}, err
	}
	s.committed(ctx, o.event, o.results)
	return Transition{Session: o.sess, Event: o.event}, nil
}

func (s *Service) committed(ctx context.Context, ev ir.CandidateEvent, results []ir.AssessmentResult) {
	s.audit.Event(ctx, ev)
	for _, r := range results {
		s.audit.Result(ctx, r)
	}
}

// LaunchItemSession creates an item session on a delivery, initializes it
// and records INIT. An item without interactions is closed straight away.
// An unsafe exitURL is dropped.
func (s *Service) LaunchItemSession(ctx context.Context, deliveryID, exitURL string) (t Transition, err error) {
	ctx, end := s.begin(ctx, "launch_item", 0)
	defer end(&err)

	var o *itemOp
	err = s.store.Atomically(ctx, func(tx *store.Store) error {
		d, err := launchDelivery(ctx, tx, deliveryID, ir.DeliveryItem)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		sess, err := tx.CreateSession(ctx, ir.CandidateSession{
			Token:      s.tokens.Generate(),
			DeliveryID: d.ID,
			Kind:       ir.DeliveryItem,
			CreatedAt:  now,
			ExitURL:    s.exitURL(ctx, exitURL),
		})
		if err != nil {
			return internal(0, "create session", err)
		}
		o = &itemOp{
			s:        s,
			tx:       tx,
			sess:     sess,
			delivery: d,
			settings: itemSettings(d),
			state:    &ir.ItemSessionState{},
			notes:    &runtime.Recorder{},
			now:      now,
		}
		if err := o.controller(s.seeds.NextSeed()); err != nil {
			return err
		}
		o.initialize()
		return o.record(ctx, ir.ItemEventInit, nil)
	})
	if err != nil {
		return Transition{}, err
	}
	s.committed(ctx, o.event, o.results)
	return Transition{Session: o.sess, Event: o.event}, nil
}

// LookupItemSession returns an item session after checking its token.
func (s *Service) LookupItemSession(ctx context.Context, id ir.SessionID, token string) (ir.CandidateSession, error) {
	sess, _, err := s.access(ctx, s.store, id, token, ir.DeliveryItem)
	return sess, err
}

// Attempt submits responses. Forbidden once the item is closed. The event
// type records whether every response bound and validated.
func (s *Service) Attempt(ctx context.Context, id ir.SessionID, token string, responses map[string]ir.ResponseData) (Transition, error) {
	return s.runItem(ctx, "attempt", id, token, func(ctx context.Context, o *itemOp) error {
		if o.state.Closed {
			return o.forbid(PrivMakeAttempt)
		}
		if err := checkResponses(responses); err != nil {
			return err
		}
		a := handleResponses(o.ctrl, responses, o.now)
		if err := o.record(ctx, a.Type, nil); err != nil {
			return err
		}
		if err := o.tx.WriteResponses(ctx, o.event.ID, a.Responses); err != nil {
			return internal(o.sess.ID, "write responses", err)
		}
		return nil
	})
}

// Close ends interaction with the item at the candidate's request.
func (s *Service) Close(ctx context.Context, id ir.SessionID, token string) (Transition, error) {
	return s.runItem(ctx, "close", id, token, func(ctx context.Context, o *itemOp) error {
		if o.state.Closed {
			return o.forbid(PrivCloseSessionWhenClosed)
		}
		if !o.settings.AllowClose {
			return o.forbid(PrivCloseSessionWhenInteracting)
		}
		o.ctrl.MarkClosed(o.now)
		return o.record(ctx, ir.ItemEventClose, nil)
	})
}

// Reinit discards the state and initializes the item again with fresh
// template values.
func (s *Service) Reinit(ctx context.Context, id ir.SessionID, token string) (Transition, error) {
	return s.runItem(ctx, "reinit", id, token, func(ctx context.Context, o *itemOp) error {
		if o.state.Closed && !o.settings.AllowReinitWhenClosed {
			return o.forbid(PrivReinitSessionWhenClosed)
		}
		if !o.state.Closed && !o.settings.AllowReinitWhenInteracting {
			return o.forbid(PrivReinitSessionWhenInteracting)
		}
		if err := o.controller(o.s.seeds.NextSeed()); err != nil {
			return err
		}
		o.initialize()
		return o.record(ctx, ir.ItemEventReinit, nil)
	})
}

// Reset returns the item to the state recorded by the most recent INIT or
// REINIT event, keeping its template values.
func (s *Service) Reset(ctx context.Context, id ir.SessionID, token string) (Transition, error) {
	return s.runItem(ctx, "reset", id, token, func(ctx context.Context, o *itemOp) error {
		if o.state.Closed && !o.settings.AllowResetWhenClosed {
			return o.forbid(PrivResetSessionWhenClosed)
		}
		if !o.state.Closed && !o.settings.AllowResetWhenInteracting {
			return o.forbid(PrivResetSessionWhenInteracting)
		}
		initEv, err := o.tx.MostRecentItemEventOfType(ctx, o.sess.ID, "", ir.ItemEventInit, ir.ItemEventReinit)
		if err != nil {
			return internal(o.sess.ID, "find init event", err)
		}
		initState, err := ir.DecodeItemState(initEv.State)
		if err != nil {
			return internal(o.sess.ID, "decode init state", err)
		}
		*o.state = *initState
		o.reopened = true
		o.ctrl.ResetItemSession(o.now)
		o.ctrl.MarkPresented(o.now)
		o.ctrl.MarkPendingSubmission()
		return o.record(ctx, ir.ItemEventReset, nil)
	})
}

// Solution shows the model solution, closing the item if it is open.
func (s *Service) Solution(ctx context.Context, id ir.SessionID, token string) (Transition, error) {
	return s.runItem(ctx, "solution", id, token, func(ctx context.Context, o *itemOp) error {
		if o.state.Closed && !o.settings.AllowSolutionWhenClosed {
			return o.forbid(PrivSolutionWhenClosed)
		}
		if !o.state.Closed {
			if !o.settings.AllowSolutionWhenInteracting {
				return o.forbid(PrivSolutionWhenInteracting)
			}
			o.ctrl.MarkClosed(o.now)
		}
		return o.record(ctx, ir.ItemEventSolution, nil)
	})
}

// Playback records a PLAYBACK event pointing at a historical event of the
// same session. Only closed items may be played back, and only events that
// show an interaction state.
func (s *Service) Playback(ctx context.Context, id ir.SessionID, token string, target ir.EventID) (Transition, error) {
	return s.runItem(ctx, "playback", id, token, func(ctx context.Context, o *itemOp) error {
		if !o.state.Closed {
			return o.forbid(PrivPlaybackWhenInteracting)
		}
		if !o.settings.AllowPlayback {
			return o.forbid(PrivPlayback)
		}
		ev, err := o.tx.ReadEvent(ctx, target)
		if errors.Is(err, store.ErrNotFound) {
			return notFound(o.sess.ID, "event %d", target)
		}
		if err != nil {
			return internal(o.sess.ID, "read event", err)
		}
		if ev.SessionID != o.sess.ID {
			return o.forbid(PrivPlaybackOtherSession)
		}
		if ev.Category != ir.CategoryItem || !ev.ItemType.PlaybackCapable() {
			return o.forbid(PrivPlaybackEvent)
		}
		return o.record(ctx, ir.ItemEventPlayback, &target)
	})
}

// Terminate ends the session for good. An open item is closed first and
// its result computed.
func (s *Service) Terminate(ctx context.Context, id ir.SessionID, token string) (Transition, error) {
	return s.runItem(ctx, "terminate", id, token, func(ctx context.Context, o *itemOp) error {
		if !o.state.Closed {
			o.ctrl.MarkClosed(o.now)
		}
		o.sess.Terminated = true
		return o.record(ctx, ir.ItemEventTerminate, nil)
	})
}

// ItemResult computes the assessment result of the current state without
// recording anything.
func (s *Service) ItemResult(ctx context.Context, id ir.SessionID, token string) (r ir.AssessmentResult, err error) {
	ctx, end := s.begin(ctx, "item_result", id)
	defer end(&err)

	o, err := s.loadItem(ctx, s.store, id, token)
	if err != nil {
		return ir.AssessmentResult{}, err
	}
	if !o.settings.AllowResult {
		return ir.AssessmentResult{}, o.forbid(PrivViewAssessmentResult)
	}
	latest, err := s.store.MostRecentEvent(ctx, id, ir.CategoryItem)
	if err != nil {
		return ir.AssessmentResult{}, internal(id, "read latest event", err)
	}
	obj, err := o.ctrl.ComputeAssessmentResult()
	if err != nil {
		return ir.AssessmentResult{}, internal(id, "compute result", err)
	}
	return ir.AssessmentResult{
		SessionID:   id,
		EventID:     latest.ID,
		ComputedAt:  latest.CreatedAt,
		ItemResults: map[string]ir.IRObject{o.delivery.AssessmentRef: obj},
		Outcomes:    o.state.Outcomes.Clone(),
	}, nil
}

// PlaybackEvents lists the events of an item session a candidate may play
// back, in order.
func (s *Service) PlaybackEvents(ctx context.Context, id ir.SessionID, token string) ([]ir.CandidateEvent, error) {
	if _, _, err := s.access(ctx, s.store, id, token, ir.DeliveryItem); err != nil {
		return nil, err
	}
	events, err := s.store.EventsForSession(ctx, id, ir.CategoryItem)
	if err != nil {
		return nil, internal(id, "read events", err)
	}
	out := []ir.CandidateEvent{}
	for _, ev := range events {
		if ev.ItemType.PlaybackCapable() {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Events lists every event of a session of either kind, in order.
func (s *Service) Events(ctx context.Context, id ir.SessionID, token string) ([]ir.CandidateEvent, error) {
	if _, _, err := s.access(ctx, s.store, id, token, ""); err != nil {
		return nil, err
	}
	events, err := s.store.EventsForSession(ctx, id, "")
	if err != nil {
		return nil, internal(id, "read events", err)
	}
	return events, nil
}

// Source returns the authored source of the assessment behind a session
// of either kind.
func (s *Service) Source(ctx context.Context, id ir.SessionID, token string) (string, error) {
	_, d, err := s.access(ctx, s.store, id, token, "")
	if err != nil {
		return "", err
	}
	allowed := false
	switch d.Kind {
	case ir.DeliveryItem:
		allowed = itemSettings(d).AllowSource
	case ir.DeliveryTest:
		allowed = testSettings(d).AllowSource
	}
	if !allowed {
		return "", forbidden(id, PrivViewAssessmentSource)
	}
	src, err := s.rt.Source(d.AssessmentRef)
	if err != nil {
		return "", runtimeErr(id, d.AssessmentRef, err)
	}
	return src, nil
}
