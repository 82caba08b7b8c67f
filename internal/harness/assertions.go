package harness

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/deliver/internal/ir"
	"github.com/roach88/deliver/internal/runtime"
)

// finalStateKeys are the values a final_state assertion may check.
var finalStateKeys = []string{"closed", "terminated", "ended", "num_attempts", "score", "results"}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			outcome := ev.Event
			if ev.Error != "" {
				outcome = ev.Error + " " + ev.Privilege
			}
			fmt.Fprintf(&buf, "  [%d] %s %s: %s\n", ev.Step, ev.Session, ev.Op, outcome)
		}
	}
	return buf.String()
}

// sessionEvents returns the appended event types of the trace, restricted
// to one session unless session is empty.
func sessionEvents(trace []TraceEvent, session string) []string {
	var out []string
	for _, ev := range trace {
		if ev.Event == "" || (session != "" && ev.Session != session) {
			continue
		}
		out = append(out, ev.Event)
	}
	return out
}

// assertEventOrder checks that the event types appear in the given order.
// Other events may come in between.
func assertEventOrder(trace []TraceEvent, a Assertion) error {
	events := sessionEvents(trace, a.Session)
	pos := 0
	for _, want := range a.Events {
		i := slices.Index(events[pos:], want)
		if i < 0 {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual:   fmt.Sprintf("%s missing after position %d in %v", want, pos, events),
				Trace:    trace,
			}
		}
		pos += i + 1
	}
	return nil
}

// assertEventCount checks the event type appears exactly Count times.
func assertEventCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range sessionEvents(trace, a.Session) {
		if ev == a.Event {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState compares the final values of a session with the
// expected subset.
func (h *Harness) assertFinalState(ctx context.Context, a Assertion) error {
	actual, err := h.finalState(ctx, sessionAlias(a.Session))
	if err != nil {
		return fmt.Errorf("final_state: %w", err)
	}
	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, key := range keys {
		got, ok := actual[key]
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q", key),
				Actual:   "not available for this kind of session",
			}
		}
		if !reflect.DeepEqual(a.Expect[key], got) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s = %v", key, a.Expect[key]),
				Actual:   fmt.Sprintf("%s = %v", key, got),
			}
		}
	}
	return nil
}

// finalState reads the session flags, result count and latest state.
// Integers are plain ints to compare equal to YAML-decoded values.
func (h *Harness) finalState(ctx context.Context, alias string) (map[string]any, error) {
	sess, err := h.lookup(ctx, alias)
	if err != nil {
		return nil, err
	}
	results, err := h.store.ReadResults(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	state := map[string]any{
		"closed":     sess.Closed,
		"terminated": sess.Terminated,
		"results":    len(results),
	}

	ev, err := h.latest(ctx, alias)
	if err != nil {
		return nil, err
	}
	if h.sessions[alias].kind == ir.DeliveryTest {
		ts, err := ir.DecodeTestState(ev.State)
		if err != nil {
			return nil, err
		}
		state["ended"] = ts.Ended
		state["score"] = int(ir.IntOf(ts.Outcomes[runtime.OutcomeScore]))
		return state, nil
	}
	is, err := ir.DecodeItemState(ev.State)
	if err != nil {
		return nil, err
	}
	state["num_attempts"] = is.NumAttempts
	state["score"] = int(ir.IntOf(is.Outcomes[runtime.OutcomeScore]))
	return state, nil
}

// assertChainIntact verifies the session's digest chain.
func (h *Harness) assertChainIntact(ctx context.Context, a Assertion) error {
	alias := sessionAlias(a.Session)
	report, err := h.store.VerifyChain(ctx, h.sessions[alias].id)
	if err != nil {
		return fmt.Errorf("chain_intact: %w", err)
	}
	if !report.Intact() {
		return &AssertionError{
			Type:     AssertChainIntact,
			Expected: fmt.Sprintf("intact chain for session %q", alias),
			Actual:   fmt.Sprintf("broken at event %d, %d out of order", report.BrokenAt, report.OutOfOrder),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions after the steps ran.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(ctx context.Context, h *Harness, result *Result, assertions []Assertion) []string {
	var errors []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertEventOrder:
			err = assertEventOrder(result.Trace, a)
		case AssertEventCount:
			err = assertEventCount(result.Trace, a)
		case AssertFinalState:
			err = h.assertFinalState(ctx, a)
		case AssertChainIntact:
			err = h.assertChainIntact(ctx, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
