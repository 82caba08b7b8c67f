package runtime

import (
	"encoding/xml"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/deliver/internal/ir"
)

// Library holds compiled items and tests by identifier.
type Library struct {
	Items map[string]*ir.ItemDefinition
	Tests map[string]*ir.TestDefinition
}

// NewLibrary indexes items and tests by identifier.
func NewLibrary(items []*ir.ItemDefinition, tests []*ir.TestDefinition) *Library {
	lib := &Library{
		Items: make(map[string]*ir.ItemDefinition, len(items)),
		Tests: make(map[string]*ir.TestDefinition, len(tests)),
	}
	for _, it := range items {
		lib.Items[it.Identifier] = it
	}
	for _, t := range tests {
		lib.Tests[t.Identifier] = t
	}
	return lib
}

// Reference is the reference Runtime over a Library.
type Reference struct {
	lib *Library
}

var _ Runtime = (*Reference)(nil)

// NewReference returns a runtime serving lib.
func NewReference(lib *Library) *Reference {
	return &Reference{lib: lib}
}

func (r *Reference) item(ref string) (*ir.ItemDefinition, error) {
	it, ok := r.lib.Items[ref]
	if !ok {
		return nil, fmt.Errorf("item %q: %w", ref, ErrUnknownAssessment)
	}
	return it, nil
}

func (r *Reference) test(ref string) (*ir.TestDefinition, error) {
	t, ok := r.lib.Tests[ref]
	if !ok {
		return nil, fmt.Errorf("test %q: %w", ref, ErrUnknownAssessment)
	}
	return t, nil
}

// ItemController returns a controller for the item ref over state.
func (r *Reference) ItemController(ref string, state *ir.ItemSessionState, opts ControllerOptions, notes *Recorder) (ItemController, error) {
	def, err := r.item(ref)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("item %q: nil session state", ref)
	}
	if notes == nil {
		notes = &Recorder{}
	}
	return &controller{def: def, state: state, opts: opts, notes: notes}, nil
}

// PlanTest lays a test out as a plan arena. Item refs without their own
// controls inherit those of their test part.
func (r *Reference) PlanTest(ref string) (ir.TestPlan, error) {
	def, err := r.test(ref)
	if err != nil {
		return ir.TestPlan{}, err
	}

	plan := ir.TestPlan{}
	add := func(n ir.TestPlanNode) ir.NodeIndex {
		idx := ir.NodeIndex(len(plan.Nodes))
		plan.Nodes = append(plan.Nodes, n)
		if n.Parent != ir.NoNode {
			plan.Nodes[n.Parent].Children = append(plan.Nodes[n.Parent].Children, idx)
		}
		return idx
	}

	root := add(ir.TestPlanNode{Key: ir.NodeKey(def.Identifier), Kind: ir.NodeTest, Title: def.Title, Parent: ir.NoNode})
	for _, part := range def.Parts {
		p := add(ir.TestPlanNode{
			Key:        ir.NodeKey(part.Identifier),
			Kind:       ir.NodeTestPart,
			Parent:     root,
			Navigation: part.Navigation,
			Control:    part.Control,
		})
		for _, sec := range part.Sections {
			s := add(ir.TestPlanNode{Key: ir.NodeKey(sec.Identifier), Kind: ir.NodeSection, Title: sec.Title, Parent: p, Control: part.Control})
			for _, ref := range sec.ItemRefs {
				if _, err := r.item(ref.Item); err != nil {
					return ir.TestPlan{}, fmt.Errorf("test %q: item ref %q: %w", def.Identifier, ref.Identifier, err)
				}
				control := part.Control
				if ref.Control != nil {
					control = *ref.Control
				}
				title := r.lib.Items[ref.Item].Title
				add(ir.TestPlanNode{Key: ir.NodeKey(ref.Identifier), Kind: ir.NodeItemRef, Title: title, Parent: s, ItemRef: ref.Item, Control: control})
			}
		}
	}
	return plan, nil
}

// MayEndTestPart reports whether the part may end.
func (r *Reference) MayEndTestPart(state *ir.TestSessionState, part ir.NodeKey) bool {
	for _, key := range state.Plan.ItemsOf(part) {
		if !r.mayLeave(state, key) {
			return false
		}
	}
	return true
}

// MayAdvanceItemLinear reports whether the current item may be left.
func (r *Reference) MayAdvanceItemLinear(state *ir.TestSessionState) bool {
	if state.CurrentItemKey == "" {
		return false
	}
	return r.mayLeave(state, state.CurrentItemKey)
}

func (r *Reference) mayLeave(state *ir.TestSessionState, key ir.NodeKey) bool {
	node, ok := state.Plan.Node(key)
	if !ok {
		return false
	}
	if node.Control.AllowSkipping {
		return true
	}
	is := state.ItemStates[key]
	return is != nil && is.RespondedValidly()
}

// ComputeTestOutcomes sums item SCORE outcomes and counts responded items.
func (r *Reference) ComputeTestOutcomes(state *ir.TestSessionState) ir.IRObject {
	var score, responded int64
	keys := make([]ir.NodeKey, 0, len(state.ItemStates))
	for k := range state.ItemStates {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		is := state.ItemStates[k]
		if is.NumAttempts > 0 {
			responded++
		}
		score += ir.IntOf(is.Outcomes[OutcomeScore])
	}
	return ir.IRObject{
		OutcomeScore:          ir.IRInt(score),
		OutcomeItemsResponded: ir.IRInt(responded),
	}
}

// Document returns an item's body, or an outline of a test.
func (r *Reference) Document(ref string) ([]byte, error) {
	if it, ok := r.lib.Items[ref]; ok {
		return []byte(it.Body), nil
	}
	def, err := r.test(ref)
	if err != nil {
		return nil, err
	}
	return testOutline(def)
}

// Source returns the authored source of an item or test.
func (r *Reference) Source(ref string) (string, error) {
	if it, ok := r.lib.Items[ref]; ok {
		return it.Source, nil
	}
	def, err := r.test(ref)
	if err != nil {
		return "", err
	}
	return def.Source, nil
}

func testOutline(def *ir.TestDefinition) ([]byte, error) {
	var b strings.Builder
	enc := xml.NewEncoder(&b)
	start := func(name string, attrs ...string) error {
		el := xml.StartElement{Name: xml.Name{Local: name}}
		for i := 0; i+1 < len(attrs); i += 2 {
			el.Attr = append(el.Attr, xml.Attr{Name: xml.Name{Local: attrs[i]}, Value: attrs[i+1]})
		}
		return enc.EncodeToken(el)
	}
	end := func(name string) error {
		return enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
	}

	steps := []func() error{func() error { return start("test", "identifier", def.Identifier, "title", def.Title) }}
	for _, part := range def.Parts {
		steps = append(steps, func() error { return start("testPart", "identifier", part.Identifier, "navigation", string(part.Navigation)) })
		for _, sec := range part.Sections {
			steps = append(steps, func() error { return start("section", "identifier", sec.Identifier, "title", sec.Title) })
			for _, ref := range sec.ItemRefs {
				steps = append(steps,
					func() error { return start("itemRef", "identifier", ref.Identifier, "item", ref.Item) },
					func() error { return end("itemRef") },
				)
			}
			steps = append(steps, func() error { return end("section") })
		}
		steps = append(steps, func() error { return end("testPart") })
	}
	steps = append(steps, func() error { return end("test") })

	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("test %q outline: %w", def.Identifier, err)
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("test %q outline: %w", def.Identifier, err)
	}
	return []byte(b.String()), nil
}
