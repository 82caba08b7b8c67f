package delivery

import (
	"context"
	"slices"
	"time"

	"github.com/roach88/deliver/internal/ir"
	"github.com/roach88/deliver/internal/runtime"
	"github.com/roach88/deliver/internal/store"
)

// testOp is one operation on a test session, inside a transaction.
type testOp struct {
	s        *Service
	tx       *store.Store
	sess     ir.CandidateSession
	delivery ir.Delivery
	settings ir.TestDeliverySettings
	state    *ir.TestSessionState
	notes    *runtime.Recorder
	now      time.Time

	// finished is set when the test ends in this operation.
	finished bool

	event   ir.CandidateEvent
	results []ir.AssessmentResult
}

func testSettings(d ir.Delivery) ir.TestDeliverySettings {
	if d.Test == nil {
		return ir.TestDeliverySettings{}
	}
	return *d.Test
}

func (o *testOp) forbid(p Privilege) error {
	return forbidden(o.sess.ID, p)
}

// controller binds a runtime controller to the state of a test item,
// creating the state on first use.
func (o *testOp) controller(key ir.NodeKey, seed uint64) (runtime.ItemController, error) {
	node, ok := o.state.Plan.Node(key)
	if !ok || node.Kind != ir.NodeItemRef {
		return nil, notFound(o.sess.ID, "item %q", key)
	}
	is := o.state.ItemStates[key]
	if is == nil {
		is = &ir.ItemSessionState{}
		o.state.ItemStates[key] = is
	}
	ctrl, err := o.s.rt.ItemController(node.ItemRef, is, runtime.ControllerOptions{Seed: seed}, o.notes)
	if err != nil {
		return nil, runtimeErr(o.sess.ID, node.ItemRef, err)
	}
	return ctrl, nil
}

// currentPart returns the key and state of the current test part of an
// entered, unfinished test.
func (o *testOp) currentPart() (*ir.TestPlanNode, *ir.TestPartSessionState, error) {
	if !o.state.Entered {
		return nil, nil, o.forbid(PrivTestNotEntered)
	}
	if o.state.Ended {
		return nil, nil, o.forbid(PrivTestEnded)
	}
	node, ok := o.state.Plan.Node(o.state.CurrentTestPartKey)
	part := o.state.CurrentPart()
	if !ok || part == nil {
		return nil, nil, logicFault(o.sess.ID, "entered test has no current part")
	}
	return node, part, nil
}

// enterPart makes key the current part and initializes all its items.
// A linear part presents its first item.
func (o *testOp) enterPart(key ir.NodeKey) error {
	o.state.PartStates[key] = &ir.TestPartSessionState{Entered: true}
	o.state.CurrentTestPartKey = key
	o.state.CurrentItemKey = ""

	items := o.state.Plan.ItemsOf(key)
	for _, item := range items {
		ctrl, err := o.controller(item, o.s.seeds.NextSeed())
		if err != nil {
			return err
		}
		ctrl.Initialize(o.now)
		ctrl.PerformTemplateProcessing()
	}

	node, _ := o.state.Plan.Node(key)
	if node.Navigation == ir.NavigationLinear {
		if len(items) == 0 {
			return o.endPart()
		}
		return o.present(items[0])
	}
	return nil
}

// present makes key the current item.
func (o *testOp) present(key ir.NodeKey) error {
	ctrl, err := o.controller(key, 0)
	if err != nil {
		return err
	}
	ctrl.MarkPresented(o.now)
	ctrl.MarkPendingSubmission()
	o.state.CurrentItemKey = key
	return nil
}

// endPart closes every item of the current part and computes outcomes.
func (o *testOp) endPart() error {
	key := o.state.CurrentTestPartKey
	for _, item := range o.state.Plan.ItemsOf(key) {
		if err := o.closeItem(item); err != nil {
			return err
		}
	}
	o.state.PartStates[key].Ended = true
	o.state.CurrentItemKey = ""
	o.state.Outcomes = o.s.rt.ComputeTestOutcomes(o.state)
	return nil
}

func (o *testOp) closeItem(key ir.NodeKey) error {
	is := o.state.ItemStates[key]
	if is == nil || is.Closed {
		return nil
	}
	ctrl, err := o.controller(key, 0)
	if err != nil {
		return err
	}
	ctrl.MarkClosed(o.now)
	return nil
}

// endTest ends the test: every open item is closed, outcomes are
// computed and a result is written when the event is recorded.
func (o *testOp) endTest() error {
	if part := o.state.CurrentPart(); part != nil && !part.Ended {
		if err := o.endPart(); err != nil {
			return err
		}
	}
	keys := make([]ir.NodeKey, 0, len(o.state.ItemStates))
	for k := range o.state.ItemStates {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := o.closeItem(k); err != nil {
			return err
		}
	}
	o.state.Ended = true
	o.state.CurrentTestPartKey = ""
	o.state.CurrentItemKey = ""
	o.state.Outcomes = o.s.rt.ComputeTestOutcomes(o.state)
	o.finished = true
	return nil
}

func (o *testOp) record(ctx context.Context, typ ir.TestEventType, itemType ir.ItemEventType, key ir.NodeKey) error {
	if !o.state.Ended || o.finished {
		elapsed := o.now.Sub(o.sess.CreatedAt).Milliseconds()
		o.state.DurationMillis = max(o.state.DurationMillis, elapsed)
	}
	data, err := ir.EncodeState(o.state)
	if err != nil {
		return internal(o.sess.ID, "encode state", err)
	}
	ev, err := o.tx.AppendEvent(ctx, o.sess.ID, ir.NewEvent{
		Category:      ir.CategoryTest,
		TestType:      typ,
		ItemType:      itemType,
		ItemKey:       key,
		State:         data,
		Notifications: o.notes.Notes(),
		CreatedAt:     o.now,
	})
	if err != nil {
		return internal(o.sess.ID, "append event", err)
	}
	o.event = ev

	if o.finished {
		if err := o.writeResult(ctx); err != nil {
			return err
		}
	}
	if o.finished || typ == ir.TestEventExitTest {
		o.sess.Closed = true
		if err := o.tx.UpdateSession(ctx, o.sess); err != nil {
			return internal(o.sess.ID, "update session", err)
		}
	}
	return nil
}

func (o *testOp) itemResults() (map[string]ir.IRObject, error) {
	out := make(map[string]ir.IRObject, len(o.state.ItemStates))
	for key, is := range o.state.ItemStates {
		if !is.Initialized {
			continue
		}
		ctrl, err := o.controller(key, 0)
		if err != nil {
			return nil, err
		}
		obj, err := ctrl.ComputeAssessmentResult()
		if err != nil {
			return nil, internal(o.sess.ID, "compute result", err)
		}
		out[string(key)] = obj
	}
	return out, nil
}

func (o *testOp) writeResult(ctx context.Context) error {
	items, err := o.itemResults()
	if err != nil {
		return err
	}
	r := ir.AssessmentResult{
		SessionID:   o.sess.ID,
		EventID:     o.event.ID,
		ComputedAt:  o.event.CreatedAt,
		ItemResults: items,
		Outcomes:    o.state.Outcomes.Clone(),
	}
	if _, err := o.tx.WriteResult(ctx, r); err != nil {
		return internal(o.sess.ID, "write result", err)
	}
	o.results = append(o.results, r)
	return nil
}

func (s *Service) loadTest(ctx context.Context, tx *store.Store, id ir.SessionID, token string) (*testOp, error) {
	sess, d, err := s.access(ctx, tx, id, token, ir.DeliveryTest)
	if err != nil {
		return nil, err
	}
	if sess.Terminated {
		return nil, forbidden(id, PrivAccessTerminatedSession)
	}
	latest, err := tx.MostRecentEvent(ctx, id, ir.CategoryTest)
	if err != nil {
		return nil, internal(id, "test session has no events", err)
	}
	state, err := ir.DecodeTestState(latest.State)
	if err != nil {
		return nil, internal(id, "decode test state", err)
	}
	if state.ItemStates == nil {
		state.ItemStates = map[ir.NodeKey]*ir.ItemSessionState{}
	}
	if state.PartStates == nil {
		state.PartStates = map[ir.NodeKey]*ir.TestPartSessionState{}
	}
	return &testOp{
		s:        s,
		tx:       tx,
		sess:     sess,
		delivery: d,
		settings: testSettings(d),
		state:    state,
		notes:    &runtime.Recorder{},
		now:      s.clock.Now(),
	}, nil
}

func (s *Service) runTest(ctx context.Context, op string, id ir.SessionID, token string, fn func(context.Context, *testOp) error) (t Transition, err error) {
	ctx, end := s.begin(ctx, op, id)
	defer end(&err)

	var o *testOp
	err = s.store.Atomically(ctx, func(tx *store.Store) error {
		var err error
		if o, err = s.loadTest(ctx, tx, id, token); err != nil {
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

// LaunchTestSession creates a test session, plans the test and records
// INIT. The test is not entered yet, so the entry screen is shown.
func (s *Service) LaunchTestSession(ctx context.Context, deliveryID, exitURL string) (t Transition, err error) {
	ctx, end := s.begin(ctx, "launch_test", 0)
	defer end(&err)

	var o *testOp
	err = s.store.Atomically(ctx, func(tx *store.Store) error {
		d, err := launchDelivery(ctx, tx, deliveryID, ir.DeliveryTest)
		if err != nil {
			return err
		}
		plan, err := s.rt.PlanTest(d.AssessmentRef)
		if err != nil {
			return runtimeErr(0, d.AssessmentRef, err)
		}
		now := s.clock.Now()
		sess, err := tx.CreateSession(ctx, ir.CandidateSession{
			Token:      s.tokens.Generate(),
			DeliveryID: d.ID,
			Kind:       ir.DeliveryTest,
			CreatedAt:  now,
			ExitURL:    s.exitURL(ctx, exitURL),
		})
		if err != nil {
			return internal(0, "create session", err)
		}
		o = &testOp{
			s:        s,
			tx:       tx,
			sess:     sess,
			delivery: d,
			settings: testSettings(d),
			state: &ir.TestSessionState{
				Plan:       plan,
				ItemStates: map[ir.NodeKey]*ir.ItemSessionState{},
				PartStates: map[ir.NodeKey]*ir.TestPartSessionState{},
				Outcomes:   ir.IRObject{},
			},
			notes: &runtime.Recorder{},
			now:   now,
		}
		return o.record(ctx, ir.TestEventInit, "", "")
	})
	if err != nil {
		return Transition{}, err
	}
	s.committed(ctx, o.event, o.results)
	return Transition{Session: o.sess, Event: o.event}, nil
}

// LookupTestSession returns a test session after checking its token.
func (s *Service) LookupTestSession(ctx context.Context, id ir.SessionID, token string) (ir.CandidateSession, error) {
	sess, _, err := s.access(ctx, s.store, id, token, ir.DeliveryTest)
	return sess, err
}

// EnterTest enters the first test part. A test without parts ends at once.
func (s *Service) EnterTest(ctx context.Context, id ir.SessionID, token string) (Transition, error) {
	return s.runTest(ctx, "enter_test", id, token, func(ctx context.Context, o *testOp) error {
		if o.state.Entered {
			return o.forbid(PrivEnterTestWhenEntered)
		}
		o.state.Entered = true
		parts := o.state.Plan.TestParts()
		if len(parts) == 0 {
			if err := o.endTest(); err != nil {
				return err
			}
		} else if err := o.enterPart(parts[0]); err != nil {
			return err
		}
		return o.record(ctx, ir.TestEventEnterTest, "", "")
	})
}

// SelectNavigationMenu leaves the current item of a nonlinear part and
// shows the part's item menu.
func (s *Service) SelectNavigationMenu(ctx context.Context, id ir.SessionID, token string) (Transition, error) {
	return s.runTest(ctx, "select_menu", id, token, func(ctx context.Context, o *testOp) error {
		node, part, err := o.currentPart()
		if err != nil {
			return err
		}
		if node.Navigation == ir.NavigationLinear {
			return o.forbid(PrivNavigationMenuLinear)
		}
		if part.Ended {
			return o.forbid(PrivTestPartEnded)
		}
		o.state.CurrentItemKey = ""
		return o.record(ctx, ir.TestEventSelectMenu, "", "")
	})
}

// SelectItem jumps to an item of the current nonlinear part.
func (s *Service) SelectItem(ctx context.Context, id ir.SessionID, token string, key ir.NodeKey) (Transition, error) {
	return s.runTest(ctx, "select_item", id, token, func(ctx context.Context, o *testOp) error {
		node, part, err := o.currentPart()
		if err != nil {
			return err
		}
		if node.Navigation == ir.NavigationLinear {
			return o.forbid(PrivSelectItemLinear)
		}
		if part.Ended {
			return o.forbid(PrivTestPartEnded)
		}
		if err := o.requireItemOfPart(key); err != nil {
			return err
		}
		if err := o.present(key); err != nil {
			return err
		}
		return o.record(ctx, ir.TestEventSelectItem, "", key)
	})
}

// requireItemOfPart checks key names an item of the current part.
func (o *testOp) requireItemOfPart(key ir.NodeKey) error {
	node, ok := o.state.Plan.Node(key)
	if !ok || node.Kind != ir.NodeItemRef {
		return notFound(o.sess.ID, "item %q", key)
	}
	if part, _ := o.state.Plan.PartOf(key); part != o.state.CurrentTestPartKey {
		return o.forbid(PrivSelectItemOtherPart)
	}
	return nil
}

// FinishItem closes the current item of a linear part and moves to the
// next one, ending the part after the last item.
func (s *Service) FinishItem(ctx context.Context, id ir.SessionID, token string) (Transition, error) {
	return s.runTest(ctx, "finish_item", id, token, func(ctx context.Context, o *testOp) error {
		node, part, err := o.currentPart()
		if err != nil {
			return err
		}
		if node.Navigation != ir.NavigationLinear {
			return o.forbid(PrivFinishItemNonlinear)
		}
		if part.Ended {
			return o.forbid(PrivTestPartEnded)
		}
		current := o.state.CurrentItemKey
		if current == "" {
			return o.forbid(PrivFinishItemNoCurrentItem)
		}
		if !o.s.rt.MayAdvanceItemLinear(o.state) {
			return o.forbid(PrivAdvanceItemLinear)
		}
		if err := o.closeItem(current); err != nil {
			return err
		}

		items := o.state.Plan.ItemsOf(node.Key)
		next := slices.Index(items, current) + 1
		if next > 0 && next < len(items) {
			err = o.present(items[next])
		} else {
			err = o.endPart()
		}
		if err != nil {
			return err
		}
		return o.record(ctx, ir.TestEventFinishItem, "", current)
	})
}

// HandleTestResponses submits responses for the current item.
func (s *Service) HandleTestResponses(ctx context.Context, id ir.SessionID, token string, responses map[string]ir.ResponseData) (Transition, error) {
	return s.runTest(ctx, "attempt", id, token, func(ctx context.Context, o *testOp) error {
		_, part, err := o.currentPart()
		if err != nil {
			return err
		}
		if part.Ended {
			return o.forbid(PrivTestPartEnded)
		}
		current := o.state.CurrentItemKey
		if current == "" {
			return o.forbid(PrivAttemptNoCurrentItem)
		}
		if is := o.state.ItemStates[current]; is == nil || is.Closed {
			return o.forbid(PrivMakeAttempt)
		}
		if err := checkResponses(responses); err != nil {
			return err
		}
		ctrl, err := o.controller(current, 0)
		if err != nil {
			return err
		}
		a := handleResponses(ctrl, responses, o.now)
		if err := o.record(ctx, ir.TestEventItemEvent, a.Type, current); err != nil {
			return err
		}
		if err := o.tx.WriteResponses(ctx, o.event.ID, a.Responses); err != nil {
			return internal(o.sess.ID, "write responses", err)
		}
		return nil
	})
}

// EndTestPart ends the current nonlinear part if the runtime says it may
// end, and shows the part feedback.
func (s *Service) EndTestPart(ctx context.Context, id ir.SessionID, token string) (Transition, error) {
	return s.runTest(ctx, "end_test_part", id, token, func(ctx context.Context, o *testOp) error {
		node, part, err := o.currentPart()
		if err != nil {
			return err
		}
		if node.Navigation == ir.NavigationLinear {
			return o.forbid(PrivEndTestPartLinear)
		}
		if part.Ended {
			return o.forbid(PrivTestPartEnded)
		}
		if !o.s.rt.MayEndTestPart(o.state, node.Key) {
			return o.forbid(PrivEndTestPart)
		}
		if err := o.endPart(); err != nil {
			return err
		}
		return o.record(ctx, ir.TestEventEndTestPart, "", "")
	})
}

// ReviewTestPart returns to the feedback of an ended part. Requires the
// part's AllowReview control.
func (s *Service) ReviewTestPart(ctx context.Context, id ir.SessionID, token string) (Transition, error) {
	return s.runTest(ctx, "review_test_part", id, token, func(ctx context.Context, o *testOp) error {
		node, err := o.endedPart()
		if err != nil {
			return err
		}
		if !node.Control.AllowReview {
			return o.forbid(PrivReviewTestPart)
		}
		return o.record(ctx, ir.TestEventReviewTestPart, "", "")
	})
}

// ReviewItem shows an item of an ended part for review. Requires the
// item's AllowReview control.
func (s *Service) ReviewItem(ctx context.Context, id ir.SessionID, token string, key ir.NodeKey) (Transition, error) {
	return s.runTest(ctx, "review_item", id, token, func(ctx context.Context, o *testOp) error {
		node, err := o.endedPartItem(key)
		if err != nil {
			return err
		}
		if !node.Control.AllowReview {
			return o.forbid(PrivReviewItem)
		}
		return o.record(ctx, ir.TestEventReviewItem, "", key)
	})
}

// RequestSolution shows the model solution of an item of an ended part.
// Requires the item's ShowSolution control.
func (s *Service) RequestSolution(ctx context.Context, id ir.SessionID, token string, key ir.NodeKey) (Transition, error) {
	return s.runTest(ctx, "solution_item", id, token, func(ctx context.Context, o *testOp) error {
		node, err := o.endedPartItem(key)
		if err != nil {
			return err
		}
		if !node.Control.ShowSolution {
			return o.forbid(PrivSolutionItem)
		}
		return o.record(ctx, ir.TestEventSolutionItem, "", key)
	})
}

func (o *testOp) endedPart() (*ir.TestPlanNode, error) {
	node, part, err := o.currentPart()
	if err != nil {
		return nil, err
	}
	if !part.Ended {
		return nil, o.forbid(PrivTestPartNotEnded)
	}
	return node, nil
}

func (o *testOp) endedPartItem(key ir.NodeKey) (*ir.TestPlanNode, error) {
	if _, err := o.endedPart(); err != nil {
		return nil, err
	}
	if err := o.requireItemOfPart(key); err != nil {
		return nil, err
	}
	node, _ := o.state.Plan.Node(key)
	return node, nil
}

// AdvanceTestPart moves from an ended part to the next one. After the
// last part the test ends, and the session is terminated if the delivery
// says so.
func (s *Service) AdvanceTestPart(ctx context.Context, id ir.SessionID, token string) (Transition, error) {
	return s.runTest(ctx, "advance_test_part", id, token, func(ctx context.Context, o *testOp) error {
		node, err := o.endedPart()
		if err != nil {
			return err
		}
		parts := o.state.Plan.TestParts()
		next := slices.Index(parts, node.Key) + 1
		if next > 0 && next < len(parts) {
			err = o.enterPart(parts[next])
		} else {
			err = o.endTest()
			if o.settings.TerminateOnTestEnd {
				o.sess.Terminated = true
			}
		}
		if err != nil {
			return err
		}
		return o.record(ctx, ir.TestEventAdvanceTestPart, "", "")
	})
}

// ExitTest terminates the session. A test that has not ended is ended
// first, so its result is computed exactly once.
func (s *Service) ExitTest(ctx context.Context, id ir.SessionID, token string) (Transition, error) {
	return s.runTest(ctx, "exit_test", id, token, func(ctx context.Context, o *testOp) error {
		if !o.state.Ended {
			if err := o.endTest(); err != nil {
				return err
			}
		}
		o.sess.Terminated = true
		return o.record(ctx, ir.TestEventExitTest, "", "")
	})
}

// TestResult returns the outcomes and item results of the current state
// without recording anything.
func (s *Service) TestResult(ctx context.Context, id ir.SessionID, token string) (r ir.AssessmentResult, err error) {
	ctx, end := s.begin(ctx, "test_result", id)
	defer end(&err)

	o, err := s.loadTest(ctx, s.store, id, token)
	if err != nil {
		return ir.AssessmentResult{}, err
	}
	if !o.settings.AllowResult {
		return ir.AssessmentResult{}, o.forbid(PrivViewAssessmentResult)
	}
	latest, err := s.store.MostRecentEvent(ctx, id, ir.CategoryTest)
	if err != nil {
		return ir.AssessmentResult{}, internal(id, "read latest event", err)
	}
	items, err := o.itemResults()
	if err != nil {
		return ir.AssessmentResult{}, err
	}
	outcomes := o.state.Outcomes
	if !o.state.Ended {
		outcomes = s.rt.ComputeTestOutcomes(o.state)
	}
	return ir.AssessmentResult{
		SessionID:   id,
		EventID:     latest.ID,
		ComputedAt:  latest.CreatedAt,
		ItemResults: items,
		Outcomes:    outcomes.Clone(),
	}, nil
}
