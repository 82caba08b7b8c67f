package ir

// DeliveryKind says whether a delivery presents a standalone item or a test.
type DeliveryKind string

const (
	DeliveryItem DeliveryKind = "ITEM"
	DeliveryTest DeliveryKind = "TEST"
)

// Valid reports whether k is a known delivery kind.
func (k DeliveryKind) Valid() bool {
	return k == DeliveryItem || k == DeliveryTest
}

// Delivery pairs an assessment with the settings it is delivered under.
// The engine never mutates a delivery.
type Delivery struct {
	ID            string                `json:"id"`
	Kind          DeliveryKind          `json:"kind"`
	AssessmentRef string                `json:"assessment_ref"` // item or test identifier
	Title         string                `json:"title"`
	Item          *ItemDeliverySettings `json:"item,omitempty"` // set when Kind == ITEM
	Test          *TestDeliverySettings `json:"test,omitempty"` // set when Kind == TEST
}

// ItemDeliverySettings controls which item transitions a candidate may make
// in which state.
type ItemDeliverySettings struct {
	AllowClose                   bool   `json:"allow_close"`
	AllowReinitWhenInteracting   bool   `json:"allow_reinit_when_interacting"`
	AllowReinitWhenClosed        bool   `json:"allow_reinit_when_closed"`
	AllowResetWhenInteracting    bool   `json:"allow_reset_when_interacting"`
	AllowResetWhenClosed         bool   `json:"allow_reset_when_closed"`
	AllowSolutionWhenInteracting bool   `json:"allow_solution_when_interacting"`
	AllowSolutionWhenClosed      bool   `json:"allow_solution_when_closed"`
	AllowPlayback                bool   `json:"allow_playback"`
	AllowResult                  bool   `json:"allow_result"`
	AllowSource                  bool   `json:"allow_source"`
	AuthorMode                   bool   `json:"author_mode"`
	MaxAttempts                  int    `json:"max_attempts"` // 0 means unlimited
	Prompt                       string `json:"prompt,omitempty"`
}

// TestDeliverySettings controls test-level access and exit semantics.
type TestDeliverySettings struct {
	AllowResult bool `json:"allow_result"`
	AllowSource bool `json:"allow_source"`
	AuthorMode  bool `json:"author_mode"`

	// TerminateOnTestEnd terminates the session when the last test part is
	// advanced past, instead of leaving the final feedback open.
	TerminateOnTestEnd bool `json:"terminate_on_test_end"`
}
