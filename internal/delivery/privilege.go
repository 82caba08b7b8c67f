package delivery

// Privilege names what a forbidden operation would have required.
type Privilege string

const (
	PrivAccessCandidateSession       Privilege = "ACCESS_CANDIDATE_SESSION"
	PrivAccessCandidateSessionAsItem Privilege = "ACCESS_CANDIDATE_SESSION_AS_ITEM"
	PrivAccessCandidateSessionAsTest Privilege = "ACCESS_CANDIDATE_SESSION_AS_TEST"
	PrivAccessTerminatedSession      Privilege = "ACCESS_TERMINATED_SESSION"

	PrivMakeAttempt                  Privilege = "MAKE_ATTEMPT"
	PrivCloseSessionWhenClosed       Privilege = "CLOSE_SESSION_WHEN_CLOSED"
	PrivCloseSessionWhenInteracting  Privilege = "CLOSE_SESSION_WHEN_INTERACTING"
	PrivReinitSessionWhenClosed      Privilege = "REINIT_SESSION_WHEN_CLOSED"
	PrivReinitSessionWhenInteracting Privilege = "REINIT_SESSION_WHEN_INTERACTING"
	PrivResetSessionWhenClosed       Privilege = "RESET_SESSION_WHEN_CLOSED"
	PrivResetSessionWhenInteracting  Privilege = "RESET_SESSION_WHEN_INTERACTING"
	PrivSolutionWhenClosed           Privilege = "SOLUTION_WHEN_CLOSED"
	PrivSolutionWhenInteracting      Privilege = "SOLUTION_WHEN_INTERACTING"
	PrivPlayback                     Privilege = "PLAYBACK"
	PrivPlaybackWhenInteracting      Privilege = "PLAYBACK_WHEN_INTERACTING"
	PrivPlaybackOtherSession         Privilege = "PLAYBACK_OTHER_SESSION"
	PrivPlaybackEvent                Privilege = "PLAYBACK_EVENT"

	PrivEnterTestWhenEntered     Privilege = "ENTER_TEST_WHEN_ENTERED"
	PrivTestNotEntered           Privilege = "TEST_NOT_ENTERED"
	PrivTestEnded                Privilege = "TEST_ENDED"
	PrivNavigationMenuLinear     Privilege = "NAVIGATION_MENU_LINEAR"
	PrivSelectItemLinear         Privilege = "SELECT_ITEM_LINEAR"
	PrivSelectItemOtherPart      Privilege = "SELECT_ITEM_OTHER_PART"
	PrivFinishItemNonlinear      Privilege = "FINISH_ITEM_NONLINEAR"
	PrivFinishItemNoCurrentItem  Privilege = "FINISH_ITEM_NO_CURRENT_ITEM"
	PrivAdvanceItemLinear        Privilege = "ADVANCE_ITEM_LINEAR"
	PrivAttemptNoCurrentItem     Privilege = "ATTEMPT_NO_CURRENT_ITEM"
	PrivEndTestPart              Privilege = "END_TEST_PART"
	PrivEndTestPartLinear        Privilege = "END_TEST_PART_LINEAR"
	PrivTestPartEnded            Privilege = "TEST_PART_ENDED"
	PrivTestPartNotEnded         Privilege = "TEST_PART_NOT_ENDED"
	PrivReviewTestPart           Privilege = "REVIEW_TEST_PART"
	PrivReviewItem               Privilege = "REVIEW_ITEM"
	PrivSolutionItem             Privilege = "SOLUTION_ITEM"

	PrivViewAssessmentResult Privilege = "VIEW_ASSESSMENT_RESULT"
	PrivViewAssessmentSource Privilege = "VIEW_ASSESSMENT_SOURCE"
)
