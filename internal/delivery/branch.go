package delivery

import (
	"github.com/roach88/deliver/internal/ir"
	"github.com/roach88/deliver/internal/render"
)

// itemMode returns the rendering mode of an item event.
func itemMode(id ir.SessionID, typ ir.ItemEventType) (render.Mode, error) {
	switch typ {
	case ir.ItemEventInit, ir.ItemEventReinit, ir.ItemEventReset,
		ir.ItemEventAttemptValid, ir.ItemEventAttemptInvalid, ir.ItemEventAttemptBad,
		ir.ItemEventClose:
		return render.ModeCurrent, nil
	case ir.ItemEventSolution:
		return render.ModeSolution, nil
	case ir.ItemEventPlayback:
		return render.ModePlayback, nil
	case ir.ItemEventTerminate:
		return render.ModeTerminated, nil
	default:
		return "", logicFault(id, "unexpected item event type %q", typ)
	}
}

// TestBranch is the screen a test event renders as.
type TestBranch string

const (
	BranchEntry        TestBranch = "ENTRY"
	BranchItem         TestBranch = "ITEM"
	BranchItemReview   TestBranch = "ITEM_REVIEW"
	BranchItemSolution TestBranch = "ITEM_SOLUTION"
	BranchNavigation   TestBranch = "NAVIGATION"
	BranchPartFeedback TestBranch = "PART_FEEDBACK"
	BranchTestFeedback TestBranch = "TEST_FEEDBACK"
	BranchTerminated   TestBranch = "TERMINATED"
)

// Stylesheet returns the name of the stylesheet rendering b.
func (b TestBranch) Stylesheet() string {
	switch b {
	case BranchItem, BranchItemReview, BranchItemSolution:
		return "test-item"
	case BranchNavigation:
		return "test-testpart-navigation"
	case BranchPartFeedback:
		return "test-testpart-feedback"
	case BranchTestFeedback:
		return "test-feedback"
	case BranchTerminated:
		return "terminated"
	default:
		return "test-entry"
	}
}

// SelectTestBranch picks the screen for a test event from the event and
// the state it recorded. A review or solution request wins, then test
// end, then the current item, then an ended part, then an open part;
// without a current part the entry screen is shown.
func SelectTestBranch(ev ir.CandidateEvent, state *ir.TestSessionState) (TestBranch, error) {
	switch ev.TestType {
	case ir.TestEventReviewItem:
		return BranchItemReview, nil
	case ir.TestEventSolutionItem:
		return BranchItemSolution, nil
	case ir.TestEventExitTest:
		return BranchTerminated, nil
	case ir.TestEventInit, ir.TestEventEnterTest, ir.TestEventSelectMenu,
		ir.TestEventSelectItem, ir.TestEventFinishItem, ir.TestEventItemEvent,
		ir.TestEventEndTestPart, ir.TestEventReviewTestPart, ir.TestEventAdvanceTestPart:
	default:
		return "", logicFault(ev.SessionID, "unexpected test event type %q", ev.TestType)
	}

	part := state.CurrentPart()
	switch {
	case state.Ended:
		return BranchTestFeedback, nil
	case state.CurrentItemKey != "":
		return BranchItem, nil
	case part != nil && part.Ended:
		return BranchPartFeedback, nil
	case part != nil:
		return BranchNavigation, nil
	default:
		return BranchEntry, nil
	}
}
