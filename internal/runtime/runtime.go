package runtime

import (
	"errors"
	"time"

	"github.com/roach88/deliver/internal/ir"
)

// ErrUnknownAssessment is returned when an item or test reference does not
// resolve in the library.
var ErrUnknownAssessment = errors.New("unknown assessment")

// ControllerOptions parameterizes one controller.
type ControllerOptions struct {
	// MaxAttempts closes the item once this many attempts were processed.
	// 0 means unlimited.
	MaxAttempts int

	// Seed drives template processing. Equal seeds draw equal values.
	Seed uint64
}

// ItemController drives one item session state through the runtime's
// lifecycle. Methods taking now advance the state's duration.
type ItemController interface {
	// Initialize discards the state and starts a new init epoch at now.
	Initialize(now time.Time)
	PerformTemplateProcessing()
	// MarkPresented closes the item straight away if it has no interactions.
	MarkPresented(now time.Time)
	MarkPendingSubmission()

	// BindResponses converts raw responses to declared values, recording
	// unbound identifiers on the state. Returns the unbound identifiers.
	// Every submission advances the duration, bound or not.
	BindResponses(now time.Time, responses map[string]ir.ResponseData) []string
	// ValidateResponses checks interaction constraints on bound responses,
	// recording invalid identifiers on the state. Returns them.
	ValidateResponses() []string
	MarkPendingResponseProcessing()
	// PerformResponseProcessing counts the attempt and computes outcomes.
	// It may close the item.
	PerformResponseProcessing(now time.Time)

	MarkClosed(now time.Time)
	// ResetItemSession clears responses, outcomes and attempts while
	// keeping template values.
	ResetItemSession(now time.Time)

	ComputeAssessmentResult() (ir.IRObject, error)
	State() *ir.ItemSessionState
}

// Runtime is the content-aware collaborator of the delivery engine.
type Runtime interface {
	ItemController(ref string, state *ir.ItemSessionState, opts ControllerOptions, notes *Recorder) (ItemController, error)

	PlanTest(ref string) (ir.TestPlan, error)
	// MayEndTestPart reports whether every item of the part that may not
	// be skipped has been responded to validly.
	MayEndTestPart(state *ir.TestSessionState, part ir.NodeKey) bool
	// MayAdvanceItemLinear reports whether the current item of a linear
	// part may be left.
	MayAdvanceItemLinear(state *ir.TestSessionState) bool
	ComputeTestOutcomes(state *ir.TestSessionState) ir.IRObject

	// Document returns the XML markup rendered for an item or test.
	Document(ref string) ([]byte, error)
	// Source returns the authored source of an item or test.
	Source(ref string) (string, error)
}
