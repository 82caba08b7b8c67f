package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deliver/internal/ir"
)

func TestPlanTest_Arena(t *testing.T) {
	plan, err := NewReference(sampleLibrary()).PlanTest("quiz")
	require.NoError(t, err)

	assert.Equal(t, ir.NodeTest, plan.Nodes[0].Kind)
	assert.Equal(t, []ir.NodeKey{"P1", "P2"}, plan.TestParts())
	assert.Equal(t, []ir.NodeKey{"Q1", "Q2"}, plan.ItemsOf("P1"))

	q1, ok := plan.Node("Q1")
	require.True(t, ok)
	assert.Equal(t, "choice", q1.ItemRef)
	assert.True(t, q1.Control.AllowReview, "inherits part control")

	q2, _ := plan.Node("Q2")
	assert.True(t, q2.Control.AllowSkipping)
	assert.False(t, q2.Control.AllowReview, "own control replaces part control")

	part, ok := plan.PartOf("Q3")
	require.True(t, ok)
	assert.Equal(t, ir.NodeKey("P2"), part)
}

func TestPlanTest_Unknown(t *testing.T) {
	rt := NewReference(sampleLibrary())
	_, err := rt.PlanTest("nope")
	assert.ErrorIs(t, err, ErrUnknownAssessment)

	broken := sampleTest()
	broken.Identifier = "broken"
	broken.Parts[0].Sections[0].ItemRefs[0].Item = "missing"
	rt = NewReference(NewLibrary(nil, []*ir.TestDefinition{broken}))
	_, err = rt.PlanTest("broken")
	assert.ErrorIs(t, err, ErrUnknownAssessment)
}

func testState(t *testing.T) *ir.TestSessionState {
	t.Helper()
	plan, err := NewReference(sampleLibrary()).PlanTest("quiz")
	require.NoError(t, err)
	return &ir.TestSessionState{
		Plan: plan,
		ItemStates: map[ir.NodeKey]*ir.ItemSessionState{
			"Q1": {Initialized: true},
			"Q2": {Initialized: true},
			"Q3": {Initialized: true},
		},
		PartStates: map[ir.NodeKey]*ir.TestPartSessionState{},
	}
}

func TestMayEndTestPart(t *testing.T) {
	rt := NewReference(sampleLibrary())
	state := testState(t)

	assert.False(t, rt.MayEndTestPart(state, "P1"), "Q1 may not be skipped")

	state.ItemStates["Q1"].NumAttempts = 1
	assert.True(t, rt.MayEndTestPart(state, "P1"), "Q2 allows skipping")

	state.ItemStates["Q1"].InvalidResponseIdentifiers = []string{"RESPONSE"}
	assert.False(t, rt.MayEndTestPart(state, "P1"))
}

func TestMayAdvanceItemLinear(t *testing.T) {
	rt := NewReference(sampleLibrary())
	state := testState(t)

	assert.False(t, rt.MayAdvanceItemLinear(state), "no current item")

	state.CurrentItemKey = "Q3"
	assert.False(t, rt.MayAdvanceItemLinear(state))
	state.ItemStates["Q3"].NumAttempts = 1
	assert.True(t, rt.MayAdvanceItemLinear(state))
}

func TestComputeTestOutcomes(t *testing.T) {
	rt := NewReference(sampleLibrary())
	state := testState(t)
	state.ItemStates["Q1"].NumAttempts = 1
	state.ItemStates["Q1"].Outcomes = ir.IRObject{OutcomeScore: ir.IRInt(1)}
	state.ItemStates["Q3"].NumAttempts = 2
	state.ItemStates["Q3"].Outcomes = ir.IRObject{OutcomeScore: ir.IRInt(3)}

	got := rt.ComputeTestOutcomes(state)
	assert.Equal(t, ir.IRInt(4), got[OutcomeScore])
	assert.Equal(t, ir.IRInt(2), got[OutcomeItemsResponded])
}

func TestDocument(t *testing.T) {
	rt := NewReference(sampleLibrary())

	body, err := rt.Document("choice")
	require.NoError(t, err)
	assert.Equal(t, `<itemBody><p>Pick one</p></itemBody>`, string(body))

	outline, err := rt.Document("quiz")
	require.NoError(t, err)
	assert.Contains(t, string(outline), `<test identifier="quiz" title="Quiz &amp; more">`)
	assert.Contains(t, string(outline), `<itemRef identifier="Q3" item="multi"></itemRef>`)

	_, err = rt.Document("nope")
	assert.ErrorIs(t, err, ErrUnknownAssessment)
}

func TestSource(t *testing.T) {
	rt := NewReference(sampleLibrary())

	src, err := rt.Source("choice")
	require.NoError(t, err)
	assert.Equal(t, "choice source", src)

	src, err = rt.Source("quiz")
	require.NoError(t, err)
	assert.Equal(t, "quiz source", src)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	assert.NotNil(t, r.Notes())

	r.Add(ir.NotificationInfo, "A", "hello %d", 1)
	r.Add(ir.NotificationError, "B", "bad")
	assert.Equal(t, "hello 1", r.Notes()[0].Message)
	assert.Len(t, r.AtLeast(ir.NotificationWarning), 1)
}
