package ir

import (
	"encoding/json"
	"fmt"
	"time"
)

// ItemSessionState is the working state of one item session. The item
// runtime mutates it during a single operation; the result is snapshotted
// into the event that operation appends.
type ItemSessionState struct {
	Initialized               bool      `json:"initialized"`
	Presented                 bool      `json:"presented"`
	Closed                    bool      `json:"closed"`
	PendingSubmission         bool      `json:"pending_submission"`
	PendingResponseProcessing bool      `json:"pending_response_processing"`
	NumAttempts               int       `json:"num_attempts"`
	EnteredAt                 time.Time `json:"entered_at"`      // start of the current init epoch
	DurationMillis            int64     `json:"duration_millis"` // never decreases within an epoch

	TemplateValues IRObject `json:"template_values"`
	Responses      IRObject `json:"responses"`
	Outcomes       IRObject `json:"outcomes"`

	// RawResponses keeps the submitted strings per identifier so a
	// playback or review can show exactly what the candidate typed.
	RawResponses map[string][]string `json:"raw_responses,omitempty"`

	UnboundResponseIdentifiers []string `json:"unbound_response_identifiers"`
	InvalidResponseIdentifiers []string `json:"invalid_response_identifiers"`
	Comment                    string   `json:"comment,omitempty"`
}

// Interacting reports whether the candidate may still submit responses.
func (s *ItemSessionState) Interacting() bool {
	return !s.Closed
}

// RespondedValidly reports whether the latest attempt bound and validated
// every response.
func (s *ItemSessionState) RespondedValidly() bool {
	return s.NumAttempts > 0 && len(s.UnboundResponseIdentifiers) == 0 && len(s.InvalidResponseIdentifiers) == 0
}

// Clone returns a deep copy of s.
func (s *ItemSessionState) Clone() *ItemSessionState {
	if s == nil {
		return nil
	}
	out := *s
	out.TemplateValues = s.TemplateValues.Clone()
	out.Responses = s.Responses.Clone()
	out.Outcomes = s.Outcomes.Clone()
	if s.RawResponses != nil {
		out.RawResponses = make(map[string][]string, len(s.RawResponses))
		for k, v := range s.RawResponses {
			out.RawResponses[k] = append([]string(nil), v...)
		}
	}
	out.UnboundResponseIdentifiers = append([]string(nil), s.UnboundResponseIdentifiers...)
	out.InvalidResponseIdentifiers = append([]string(nil), s.InvalidResponseIdentifiers...)
	return &out
}

// NodeKey names a node of a test plan. Keys are the identifiers of test
// parts, sections and item refs, unique within a test.
type NodeKey string

// NodeIndex is a position in TestPlan.Nodes.
type NodeIndex int

// NoNode marks an absent parent.
const NoNode NodeIndex = -1

// NodeKind classifies test plan nodes.
type NodeKind string

const (
	NodeTest     NodeKind = "TEST"
	NodeTestPart NodeKind = "TEST_PART"
	NodeSection  NodeKind = "SECTION"
	NodeItemRef  NodeKind = "ITEM_REF"
)

// NavigationMode is the navigation mode of a test part.
type NavigationMode string

const (
	NavigationLinear    NavigationMode = "LINEAR"
	NavigationNonlinear NavigationMode = "NONLINEAR"
)

// ItemSessionControl holds the effective per-item controls of a test.
type ItemSessionControl struct {
	AllowReview   bool `json:"allow_review"`
	ShowFeedback  bool `json:"show_feedback"`
	ShowSolution  bool `json:"show_solution"`
	AllowComment  bool `json:"allow_comment"`
	AllowSkipping bool `json:"allow_skipping"`
}

// TestPlanNode is one node of a planned test. Parent and Children are
// indices into the owning TestPlan.
type TestPlanNode struct {
	Key        NodeKey            `json:"key"`
	Kind       NodeKind           `json:"kind"`
	Title      string             `json:"title,omitempty"`
	Parent     NodeIndex          `json:"parent"`
	Children   []NodeIndex        `json:"children,omitempty"`
	ItemRef    string             `json:"item_ref,omitempty"`   // item identifier for ITEM_REF nodes
	Navigation NavigationMode     `json:"navigation,omitempty"` // TEST_PART nodes
	Control    ItemSessionControl `json:"control"`
}

// TestPlan is the ordered tree of a test, stored as an arena. Node 0 is the
// TEST root.
type TestPlan struct {
	Nodes []TestPlanNode `json:"nodes"`
}

// Index returns the index of the node with the given key.
func (p *TestPlan) Index(key NodeKey) (NodeIndex, bool) {
	for i := range p.Nodes {
		if p.Nodes[i].Key == key {
			return NodeIndex(i), true
		}
	}
	return NoNode, false
}

// Node returns the node with the given key.
func (p *TestPlan) Node(key NodeKey) (*TestPlanNode, bool) {
	idx, ok := p.Index(key)
	if !ok {
		return nil, false
	}
	return &p.Nodes[idx], true
}

// TestParts returns the keys of the test parts in order.
func (p *TestPlan) TestParts() []NodeKey {
	if len(p.Nodes) == 0 {
		return nil
	}
	var keys []NodeKey
	for _, child := range p.Nodes[0].Children {
		if p.Nodes[child].Kind == NodeTestPart {
			keys = append(keys, p.Nodes[child].Key)
		}
	}
	return keys
}

// ItemsOf returns the item ref keys below the node with the given key,
// in document order.
func (p *TestPlan) ItemsOf(key NodeKey) []NodeKey {
	idx, ok := p.Index(key)
	if !ok {
		return nil
	}
	var keys []NodeKey
	var walk func(NodeIndex)
	walk = func(i NodeIndex) {
		n := p.Nodes[i]
		if n.Kind == NodeItemRef {
			keys = append(keys, n.Key)
			return
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(idx)
	return keys
}

// PartOf returns the key of the test part containing the node with the
// given key.
func (p *TestPlan) PartOf(key NodeKey) (NodeKey, bool) {
	idx, ok := p.Index(key)
	if !ok {
		return "", false
	}
	for idx != NoNode {
		if p.Nodes[idx].Kind == NodeTestPart {
			return p.Nodes[idx].Key, true
		}
		idx = p.Nodes[idx].Parent
	}
	return "", false
}

// TestPartSessionState tracks one test part.
type TestPartSessionState struct {
	Entered bool `json:"entered"`
	Ended   bool `json:"ended"`
}

// TestSessionState is the working state of a test session.
//
// Exactly one of the following holds for a test that has not ended:
// CurrentItemKey is set; the current part has ended with no item; the
// current part has not ended and has no item; there is no current part.
type TestSessionState struct {
	Plan               TestPlan                          `json:"plan"`
	ItemStates         map[NodeKey]*ItemSessionState     `json:"item_states"`
	PartStates         map[NodeKey]*TestPartSessionState `json:"part_states"`
	CurrentTestPartKey NodeKey                           `json:"current_test_part_key,omitempty"`
	CurrentItemKey     NodeKey                           `json:"current_item_key,omitempty"`
	Entered            bool                              `json:"entered"`
	Ended              bool                              `json:"ended"`
	DurationMillis     int64                             `json:"duration_millis"`
	Outcomes           IRObject                          `json:"outcomes"`
}

// CurrentPart returns the state of the current test part, or nil.
func (s *TestSessionState) CurrentPart() *TestPartSessionState {
	if s.CurrentTestPartKey == "" {
		return nil
	}
	return s.PartStates[s.CurrentTestPartKey]
}

// EncodeState serializes an item or test session state into an event
// snapshot. encoding/json writes struct fields in declaration order and map
// keys sorted, so equal states encode to equal bytes.
func EncodeState(state any) ([]byte, error) {
	switch state.(type) {
	case *ItemSessionState, *TestSessionState:
	default:
		return nil, fmt.Errorf("encode state: unsupported type %T", state)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// DecodeItemState parses an item event snapshot.
func DecodeItemState(data []byte) (*ItemSessionState, error) {
	var s ItemSessionState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode item state: %w", err)
	}
	return &s, nil
}

// DecodeTestState parses a test event snapshot.
func DecodeTestState(data []byte) (*TestSessionState, error) {
	var s TestSessionState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode test state: %w", err)
	}
	if s.ItemStates == nil {
		s.ItemStates = map[NodeKey]*ItemSessionState{}
	}
	if s.PartStates == nil {
		s.PartStates = map[NodeKey]*TestPartSessionState{}
	}
	return &s, nil
}
