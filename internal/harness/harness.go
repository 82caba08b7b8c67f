package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/roach88/deliver/internal/compiler"
	"github.com/roach88/deliver/internal/delivery"
	"github.com/roach88/deliver/internal/ir"
	"github.com/roach88/deliver/internal/render"
	"github.com/roach88/deliver/internal/runtime"
	"github.com/roach88/deliver/internal/store"
	"github.com/roach88/deliver/internal/testutil"
)

// scenarioToken is the capability token of every scenario session.
const scenarioToken = "scenario"

type session struct {
	id   ir.SessionID
	kind ir.DeliveryKind
}

// Harness runs one scenario against a real engine over an in-memory store.
type Harness struct {
	store      *store.Store
	svc        *delivery.Service
	deliveries map[string]*ir.Delivery
	sessions   map[string]session
	stepEvents map[int]ir.EventID // 1-based step -> appended event
	logger     *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a step clock,
// reproducible seeds and a fixed session token, so two runs of the same
// scenario produce the same trace. A returned error means the scenario
// could not run at all; failed expectations are reported in the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	bundle, errs := compiler.LoadDir(scenario.Content, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("load content: %w", errs[0])
	}
	if verrs := compiler.ValidateBundle(bundle); len(verrs) > 0 {
		return nil, fmt.Errorf("validate content: %w", verrs[0])
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:      st,
		deliveries: make(map[string]*ir.Delivery, len(bundle.Deliveries)),
		sessions:   map[string]session{},
		stepEvents: map[int]ir.EventID{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, d := range bundle.Deliveries {
		if err := st.PutDelivery(ctx, *d); err != nil {
			return nil, fmt.Errorf("put delivery %q: %w", d.ID, err)
		}
		h.deliveries[d.ID] = d
	}

	var seeds delivery.SeedSource = &testutil.SequentialSeeds{}
	if scenario.Seed != 0 {
		seeds = delivery.NewSeededSource(scenario.Seed)
	}
	rt := runtime.NewReference(runtime.NewLibrary(bundle.Items, bundle.Tests))
	h.svc = delivery.New(st, rt,
		delivery.WithLogger(h.logger),
		delivery.WithClock(testutil.NewStepClock(time.Time{}, time.Second)),
		delivery.WithSeeds(seeds),
		delivery.WithTokens(testutil.FixedToken(scenarioToken)),
		delivery.WithTempDir(os.TempDir()),
	)

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i+1, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}

	for _, msg := range EvaluateAssertions(ctx, h, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs one step, appends its trace event and checks its expect
// clause. Only failures that are not engine errors abort the run.
func (h *Harness) execute(ctx context.Context, n int, step Step, result *Result) error {
	alias := sessionAlias(step.Session)
	ev := TraceEvent{Step: n, Op: step.Op, Session: alias}

	var out bytes.Buffer
	tr, err := h.dispatch(ctx, step, alias, &out)
	switch {
	case err != nil && delivery.KindOf(err) == "":
		return err
	case err != nil:
		ev.Error = string(delivery.KindOf(err))
		ev.Privilege = string(delivery.PrivilegeOf(err))
	case step.Op == OpRender:
		if h.sessions[alias].kind == ir.DeliveryTest {
			branch, err := h.branch(ctx, alias)
			if err != nil {
				return err
			}
			ev.Branch = string(branch)
		}
	default:
		ev.eventID = tr.Event.ID
		ev.Item = string(tr.Event.ItemKey)
		if tr.Event.Category == ir.CategoryItem {
			ev.Event = string(tr.Event.ItemType)
		} else {
			ev.Event = string(tr.Event.TestType)
			ev.ItemEvent = string(tr.Event.ItemType)
		}
		h.stepEvents[n] = tr.Event.ID
	}
	result.Trace = append(result.Trace, ev)

	h.logger.Info("step completed", "step", n, "op", step.Op, "session", alias, "event", ev.Event, "error", ev.Error)

	if step.Expect != nil {
		for _, msg := range h.check(ctx, ev, step.Expect, out.String()) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", n, step.Op, msg))
		}
	}
	return nil
}

func (h *Harness) dispatch(ctx context.Context, step Step, alias string, out io.Writer) (delivery.Transition, error) {
	if step.Op == OpLaunch {
		return h.launch(ctx, step, alias)
	}

	id := h.sessions[alias].id
	svc := h.svc
	key := ir.NodeKey(step.Item)
	switch step.Op {
	case OpAttempt:
		return svc.Attempt(ctx, id, scenarioToken, responses(step.Responses))
	case OpClose:
		return svc.Close(ctx, id, scenarioToken)
	case OpReinit:
		return svc.Reinit(ctx, id, scenarioToken)
	case OpReset:
		return svc.Reset(ctx, id, scenarioToken)
	case OpSolution:
		return svc.Solution(ctx, id, scenarioToken)
	case OpPlayback:
		target, ok := h.stepEvents[step.Target]
		if !ok {
			return delivery.Transition{}, fmt.Errorf("step %d appended no event to play back", step.Target)
		}
		return svc.Playback(ctx, id, scenarioToken, target)
	case OpTerminate:
		return svc.Terminate(ctx, id, scenarioToken)
	case OpEnter:
		return svc.EnterTest(ctx, id, scenarioToken)
	case OpSelectMenu:
		return svc.SelectNavigationMenu(ctx, id, scenarioToken)
	case OpSelectItem:
		return svc.SelectItem(ctx, id, scenarioToken, key)
	case OpFinishItem:
		return svc.FinishItem(ctx, id, scenarioToken)
	case OpRespond:
		return svc.HandleTestResponses(ctx, id, scenarioToken, responses(step.Responses))
	case OpEndPart:
		return svc.EndTestPart(ctx, id, scenarioToken)
	case OpReviewPart:
		return svc.ReviewTestPart(ctx, id, scenarioToken)
	case OpReviewItem:
		return svc.ReviewItem(ctx, id, scenarioToken, key)
	case OpSolutionItem:
		return svc.RequestSolution(ctx, id, scenarioToken, key)
	case OpAdvancePart:
		return svc.AdvanceTestPart(ctx, id, scenarioToken)
	case OpExitTest:
		return svc.ExitTest(ctx, id, scenarioToken)
	case OpRender:
		fn := svc.RenderItem
		if h.sessions[alias].kind == ir.DeliveryTest {
			fn = svc.RenderTest
		}
		return delivery.Transition{}, fn(ctx, id, scenarioToken, renderOptions, out)
	default:
		return delivery.Transition{}, fmt.Errorf("unknown op %q", step.Op)
	}
}

// renderOptions renders compact XML so expectations can match markup
// without caring about indentation.
var renderOptions = render.Options{Method: render.MethodXML, Compact: true}

func (h *Harness) launch(ctx context.Context, step Step, alias string) (delivery.Transition, error) {
	d, ok := h.deliveries[step.Delivery]
	if !ok {
		return delivery.Transition{}, fmt.Errorf("unknown delivery %q", step.Delivery)
	}
	launch := h.svc.LaunchItemSession
	if d.Kind == ir.DeliveryTest {
		launch = h.svc.LaunchTestSession
	}
	tr, err := launch(ctx, d.ID, "")
	if err != nil {
		return tr, err
	}
	h.sessions[alias] = session{id: tr.Session.ID, kind: d.Kind}
	return tr, nil
}

// branch selects the screen the latest event of a test session shows.
func (h *Harness) branch(ctx context.Context, alias string) (delivery.TestBranch, error) {
	ev, err := h.latest(ctx, alias)
	if err != nil {
		return "", err
	}
	state, err := ir.DecodeTestState(ev.State)
	if err != nil {
		return "", err
	}
	return delivery.SelectTestBranch(ev, state)
}

// latest returns the most recent event of a session.
func (h *Harness) latest(ctx context.Context, alias string) (ir.CandidateEvent, error) {
	events, err := h.svc.Events(ctx, h.sessions[alias].id, scenarioToken)
	if err != nil {
		return ir.CandidateEvent{}, err
	}
	if len(events) == 0 {
		return ir.CandidateEvent{}, fmt.Errorf("session %q has no events", alias)
	}
	return events[len(events)-1], nil
}

func (h *Harness) lookup(ctx context.Context, alias string) (ir.CandidateSession, error) {
	s := h.sessions[alias]
	if s.kind == ir.DeliveryTest {
		return h.svc.LookupTestSession(ctx, s.id, scenarioToken)
	}
	return h.svc.LookupItemSession(ctx, s.id, scenarioToken)
}

// check compares a step outcome with its expect clause.
func (h *Harness) check(ctx context.Context, ev TraceEvent, want *Expect, output string) []string {
	var msgs []string
	mismatch := func(field, want, got string) {
		if want != "" && want != got {
			msgs = append(msgs, fmt.Sprintf("expected %s %q, got %q", field, want, got))
		}
	}
	mismatch("event", want.Event, ev.Event)
	mismatch("error", want.Error, ev.Error)
	mismatch("privilege", want.Privilege, ev.Privilege)
	mismatch("branch", want.Branch, ev.Branch)
	if want.Event == "" && want.Error == "" && ev.Error != "" {
		msgs = append(msgs, fmt.Sprintf("unexpected error %s %s", ev.Error, ev.Privilege))
	}
	if want.Contains != "" && !strings.Contains(output, want.Contains) {
		msgs = append(msgs, fmt.Sprintf("expected output to contain %q", want.Contains))
	}

	if want.Closed == nil && want.Terminated == nil {
		return msgs
	}
	sess, err := h.lookup(ctx, ev.Session)
	if err != nil {
		return append(msgs, fmt.Sprintf("lookup session: %v", err))
	}
	if want.Closed != nil && *want.Closed != sess.Closed {
		msgs = append(msgs, fmt.Sprintf("expected closed=%t, got %t", *want.Closed, sess.Closed))
	}
	if want.Terminated != nil && *want.Terminated != sess.Terminated {
		msgs = append(msgs, fmt.Sprintf("expected terminated=%t, got %t", *want.Terminated, sess.Terminated))
	}
	return msgs
}

func responses(in map[string][]string) map[string]ir.ResponseData {
	out := make(map[string]ir.ResponseData, len(in))
	for id, values := range in {
		out[id] = ir.StringResponse(values...)
	}
	return out
}
