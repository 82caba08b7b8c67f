package delivery

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/deliver/internal/ir"
	"github.com/roach88/deliver/internal/runtime"
	"github.com/roach88/deliver/internal/store"
	"github.com/roach88/deliver/internal/testutil"
)

const testToken = "tok-1"

func choiceItem() *ir.ItemDefinition {
	return &ir.ItemDefinition{
		Identifier: "choice",
		Title:      "Pick one",
		Body:       `<itemBody><p>Pick one</p></itemBody>`,
		Responses: []ir.ResponseDeclaration{
			{Identifier: "RESPONSE", BaseType: ir.BaseIdentifier, Cardinality: ir.CardinalitySingle, Correct: []string{"B"}},
		},
		Outcomes: []ir.OutcomeDeclaration{{Identifier: runtime.OutcomeScore}},
		Interactions: []ir.Interaction{
			{Kind: ir.InteractionChoice, ResponseIdentifier: "RESPONSE", Choices: []string{"A", "B", "C"}, MinChoices: 1, MaxChoices: 1, Required: true},
		},
		Source: "<assessmentItem identifier=\"choice\"/>",
	}
}

func sumItem() *ir.ItemDefinition {
	return &ir.ItemDefinition{
		Identifier: "sum",
		Title:      "Add",
		Body:       `<itemBody><p>Type <math><apply><plus/><ci>x</ci><cn>1</cn></apply></math></p></itemBody>`,
		Responses: []ir.ResponseDeclaration{
			{Identifier: "ANSWER", BaseType: ir.BaseInteger, Cardinality: ir.CardinalitySingle, Correct: []string{"$X"}},
		},
		Outcomes:  []ir.OutcomeDeclaration{{Identifier: runtime.OutcomeScore}},
		Templates: []ir.TemplateDeclaration{{Identifier: "X", Min: 1, Max: 1000000}},
		Interactions: []ir.Interaction{
			{Kind: ir.InteractionText, ResponseIdentifier: "ANSWER", Required: true},
		},
	}
}

func infoItem() *ir.ItemDefinition {
	return &ir.ItemDefinition{Identifier: "info", Title: "Read me", Body: `<itemBody><p>Info</p></itemBody>`}
}

func essayItem() *ir.ItemDefinition {
	return &ir.ItemDefinition{
		Identifier: "essay",
		Title:      "Essay",
		Body:       `<itemBody><p>Upload</p></itemBody>`,
		Responses: []ir.ResponseDeclaration{
			{Identifier: "FILE", BaseType: ir.BaseString, Cardinality: ir.CardinalitySingle},
		},
		Interactions: []ir.Interaction{{Kind: ir.InteractionUpload, ResponseIdentifier: "FILE", Required: true}},
	}
}

// quizTest has a nonlinear part P1 (Q1 choice, Q2 info) followed by a
// linear part P2 (Q3 choice, Q4 sum).
func quizTest() *ir.TestDefinition {
	return &ir.TestDefinition{
		Identifier: "quiz",
		Title:      "Quiz",
		Source:     "<assessmentTest identifier=\"quiz\"/>",
		Parts: []ir.TestPartDef{
			{
				Identifier: "P1",
				Navigation: ir.NavigationNonlinear,
				Control:    ir.ItemSessionControl{AllowReview: true, ShowSolution: true, AllowSkipping: true},
				Sections: []ir.SectionDef{{
					Identifier: "S1",
					ItemRefs: []ir.ItemRefDef{
						{Identifier: "Q1", Item: "choice"},
						{Identifier: "Q2", Item: "info"},
					},
				}},
			},
			{
				Identifier: "P2",
				Navigation: ir.NavigationLinear,
				Sections: []ir.SectionDef{{
					Identifier: "S2",
					ItemRefs: []ir.ItemRefDef{
						{Identifier: "Q3", Item: "choice"},
						{Identifier: "Q4", Item: "sum", Control: &ir.ItemSessionControl{AllowSkipping: true}},
					},
				}},
			},
		},
	}
}

// strictTest is one nonlinear part whose item may not be skipped.
func strictTest() *ir.TestDefinition {
	return &ir.TestDefinition{
		Identifier: "strict",
		Title:      "Strict",
		Parts: []ir.TestPartDef{{
			Identifier: "P",
			Navigation: ir.NavigationNonlinear,
			Sections: []ir.SectionDef{{
				Identifier: "S",
				ItemRefs:   []ir.ItemRefDef{{Identifier: "A", Item: "choice"}, {Identifier: "B", Item: "choice"}},
			}},
		}},
	}
}

func emptyTest() *ir.TestDefinition {
	return &ir.TestDefinition{Identifier: "empty", Title: "Empty"}
}

func testLibrary() *runtime.Library {
	return runtime.NewLibrary(
		[]*ir.ItemDefinition{choiceItem(), sumItem(), infoItem(), essayItem()},
		[]*ir.TestDefinition{quizTest(), strictTest(), emptyTest()},
	)
}

// allowAll is an item delivery that permits every optional action.
var allowAll = ir.ItemDeliverySettings{
	AllowClose:                   true,
	AllowReinitWhenInteracting:   true,
	AllowReinitWhenClosed:        true,
	AllowResetWhenInteracting:    true,
	AllowResetWhenClosed:         true,
	AllowSolutionWhenInteracting: true,
	AllowSolutionWhenClosed:      true,
	AllowPlayback:                true,
	AllowResult:                  true,
	AllowSource:                  true,
}

type fixture struct {
	svc   *Service
	store *store.Store
	clock *testutil.StepClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "deliver.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return newFixtureWith(t, st, runtime.NewReference(testLibrary()), opts...)
}

func newFixtureWith(t *testing.T, st *store.Store, rt runtime.Runtime, opts ...Option) *fixture {
	t.Helper()
	clock := testutil.NewStepClock(time.Time{}, time.Second)
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(clock),
		WithSeeds(&testutil.SequentialSeeds{}),
		WithTokens(testutil.FixedToken(testToken)),
		WithTempDir(t.TempDir()),
	}
	return &fixture{
		svc:   New(st, rt, append(base, opts...)...),
		store: st,
		clock: clock,
	}
}

func (f *fixture) putItem(t *testing.T, id, ref string, settings ir.ItemDeliverySettings) {
	t.Helper()
	require.NoError(t, f.store.PutDelivery(context.Background(), ir.Delivery{
		ID: id, Kind: ir.DeliveryItem, AssessmentRef: ref, Title: "Delivery " + id, Item: &settings,
	}))
}

func (f *fixture) putTest(t *testing.T, id, ref string, settings ir.TestDeliverySettings) {
	t.Helper()
	require.NoError(t, f.store.PutDelivery(context.Background(), ir.Delivery{
		ID: id, Kind: ir.DeliveryTest, AssessmentRef: ref, Title: "Delivery " + id, Test: &settings,
	}))
}

// launchItem puts a delivery of ref and launches a session on it.
func (f *fixture) launchItem(t *testing.T, ref string, settings ir.ItemDeliverySettings) ir.SessionID {
	t.Helper()
	f.putItem(t, "d-"+ref, ref, settings)
	tr, err := f.svc.LaunchItemSession(context.Background(), "d-"+ref, "/done")
	require.NoError(t, err)
	return tr.Session.ID
}

func (f *fixture) launchTest(t *testing.T, ref string, settings ir.TestDeliverySettings) ir.SessionID {
	t.Helper()
	f.putTest(t, "t-"+ref, ref, settings)
	tr, err := f.svc.LaunchTestSession(context.Background(), "t-"+ref, "/done")
	require.NoError(t, err)
	return tr.Session.ID
}

func (f *fixture) itemState(t *testing.T, id ir.SessionID) *ir.ItemSessionState {
	t.Helper()
	ev, err := f.store.MostRecentEvent(context.Background(), id, ir.CategoryItem)
	require.NoError(t, err)
	state, err := ir.DecodeItemState(ev.State)
	require.NoError(t, err)
	return state
}

func (f *fixture) testState(t *testing.T, id ir.SessionID) *ir.TestSessionState {
	t.Helper()
	ev, err := f.store.MostRecentEvent(context.Background(), id, ir.CategoryTest)
	require.NoError(t, err)
	state, err := ir.DecodeTestState(ev.State)
	require.NoError(t, err)
	return state
}

func (f *fixture) results(t *testing.T, id ir.SessionID) []ir.AssessmentResult {
	t.Helper()
	results, err := f.store.ReadResults(context.Background(), id)
	require.NoError(t, err)
	return results
}

func answer(values ...string) map[string]ir.ResponseData {
	return map[string]ir.ResponseData{"RESPONSE": ir.StringResponse(values...)}
}

// requireForbidden asserts err is a forbidden error for privilege p.
func requireForbidden(t *testing.T, err error, p Privilege) {
	t.Helper()
	require.Error(t, err)
	require.True(t, IsForbidden(err), "want forbidden, got %v", err)
	require.Equal(t, p, PrivilegeOf(err))
}
