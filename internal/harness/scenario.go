package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted candidate run against one content package.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Content is the CUE package holding items, tests and deliveries.
	// Relative paths resolve against the scenario file.
	Content string `yaml:"content"`

	// Seed fixes template values. Zero hands out seeds 1, 2, 3, ...
	Seed uint64 `yaml:"seed,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one candidate request.
type Step struct {
	// Op names the operation; see the Op constants.
	Op string `yaml:"op"`

	// Session is the alias of the session the step acts on. Launch steps
	// create it. Defaults to "main".
	Session string `yaml:"session,omitempty"`

	// Delivery is the delivery a launch step starts a session on.
	Delivery string `yaml:"delivery,omitempty"`

	// Item is the test item key for select_item, review_item and
	// solution_item.
	Item string `yaml:"item,omitempty"`

	// Responses are the string responses of attempt and respond steps.
	Responses map[string][]string `yaml:"responses,omitempty"`

	// Target is the 1-based number of the step whose event a playback
	// step replays.
	Target int `yaml:"target,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is checked against the outcome of a step. Unset fields are not
// checked.
type Expect struct {
	Event      string `yaml:"event,omitempty"`     // type of the appended event
	Error      string `yaml:"error,omitempty"`     // error kind, e.g. FORBIDDEN
	Privilege  string `yaml:"privilege,omitempty"` // denied privilege
	Closed     *bool  `yaml:"closed,omitempty"`
	Terminated *bool  `yaml:"terminated,omitempty"`
	Branch     string `yaml:"branch,omitempty"`   // render: test branch shown
	Contains   string `yaml:"contains,omitempty"` // render: substring of the output
}

// Operations a step may name.
const (
	OpLaunch       = "launch"
	OpAttempt      = "attempt"
	OpClose        = "close"
	OpReinit       = "reinit"
	OpReset        = "reset"
	OpSolution     = "solution"
	OpPlayback     = "playback"
	OpTerminate    = "terminate"
	OpEnter        = "enter"
	OpSelectMenu   = "select_menu"
	OpSelectItem   = "select_item"
	OpFinishItem   = "finish_item"
	OpRespond      = "respond"
	OpEndPart      = "end_test_part"
	OpReviewPart   = "review_test_part"
	OpReviewItem   = "review_item"
	OpSolutionItem = "solution_item"
	OpAdvancePart  = "advance_test_part"
	OpExitTest     = "exit_test"
	OpRender       = "render"
)

var knownOps = []string{
	OpLaunch, OpAttempt, OpClose, OpReinit, OpReset, OpSolution, OpPlayback, OpTerminate,
	OpEnter, OpSelectMenu, OpSelectItem, OpFinishItem, OpRespond, OpEndPart, OpReviewPart,
	OpReviewItem, OpSolutionItem, OpAdvancePart, OpExitTest, OpRender,
}

// Assertion validates the trace or the final state of a session.
type Assertion struct {
	// Type is one of event_order, event_count, final_state, chain_intact.
	Type string `yaml:"type"`

	// Session restricts the assertion to one session alias. Required for
	// final_state and chain_intact.
	Session string `yaml:"session,omitempty"`

	// Events is the expected order of event types (event_order).
	Events []string `yaml:"events,omitempty"`

	// Event and Count: the event type appears exactly Count times
	// (event_count).
	Event string `yaml:"event,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// Expect holds expected final values (final_state). Keys: closed,
	// terminated, ended, num_attempts, score, results.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertEventOrder  = "event_order"
	AssertEventCount  = "event_count"
	AssertFinalState  = "final_state"
	AssertChainIntact = "chain_intact"
)

// LoadScenario reads and parses a scenario YAML file. The content path
// resolves against the file's directory. Unknown fields are rejected so
// typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Content != "" && !filepath.IsAbs(scenario.Content) {
		scenario.Content = filepath.Join(filepath.Dir(path), scenario.Content)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Content == "" {
		return fmt.Errorf("content is required")
	}
	if _, err := os.Stat(s.Content); os.IsNotExist(err) {
		return fmt.Errorf("content directory not found: %s", s.Content)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	launched := map[string]bool{}
	for i, step := range s.Steps {
		if !slices.Contains(knownOps, step.Op) {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		alias := sessionAlias(step.Session)
		switch step.Op {
		case OpLaunch:
			if step.Delivery == "" {
				return fmt.Errorf("steps[%d]: delivery is required for launch", i)
			}
			if launched[alias] {
				return fmt.Errorf("steps[%d]: session %q launched twice", i, alias)
			}
			launched[alias] = true
			continue
		case OpSelectItem, OpReviewItem, OpSolutionItem:
			if step.Item == "" {
				return fmt.Errorf("steps[%d]: item is required for %s", i, step.Op)
			}
		case OpPlayback:
			if step.Target < 1 || step.Target > i {
				return fmt.Errorf("steps[%d]: target must name an earlier step", i)
			}
		}
		if !launched[alias] {
			return fmt.Errorf("steps[%d]: session %q is not launched", i, alias)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], launched); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, launched map[string]bool) error {
	if a.Session != "" && !launched[a.Session] {
		return fmt.Errorf("assertions[%d]: session %q is not launched", index, a.Session)
	}
	switch a.Type {
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
		for key := range a.Expect {
			if !slices.Contains(finalStateKeys, key) {
				return fmt.Errorf("assertions[%d]: unknown final_state key %q", index, key)
			}
		}
	case AssertChainIntact:
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func sessionAlias(s string) string {
	if s == "" {
		return "main"
	}
	return s
}
