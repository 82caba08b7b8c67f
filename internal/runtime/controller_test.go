package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deliver/internal/ir"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newController(t *testing.T, ref string, opts ControllerOptions) (ItemController, *Recorder) {
	t.Helper()
	notes := &Recorder{}
	c, err := NewReference(sampleLibrary()).ItemController(ref, &ir.ItemSessionState{}, opts, notes)
	require.NoError(t, err)
	c.Initialize(t0)
	c.PerformTemplateProcessing()
	c.MarkPresented(t0)
	c.MarkPendingSubmission()
	return c, notes
}

// attempt runs the binding pipeline the way the engine does.
func attempt(c ItemController, at time.Time, responses map[string]ir.ResponseData) (unbound, invalid []string) {
	unbound = c.BindResponses(at, responses)
	if len(unbound) > 0 {
		return unbound, nil
	}
	invalid = c.ValidateResponses()
	if len(invalid) > 0 {
		return nil, invalid
	}
	c.MarkPendingResponseProcessing()
	c.PerformResponseProcessing(at)
	return nil, nil
}

func TestItemController_UnknownRef(t *testing.T) {
	_, err := NewReference(sampleLibrary()).ItemController("nope", &ir.ItemSessionState{}, ControllerOptions{}, nil)
	assert.ErrorIs(t, err, ErrUnknownAssessment)
}

func TestController_InitializePresents(t *testing.T) {
	c, _ := newController(t, "choice", ControllerOptions{})
	s := c.State()

	assert.True(t, s.Initialized)
	assert.True(t, s.Presented)
	assert.False(t, s.Closed)
	assert.True(t, s.PendingSubmission)
	assert.Equal(t, t0, s.EnteredAt)
	assert.Equal(t, ir.IRInt(0), s.Outcomes[OutcomeScore])
}

func TestController_NoInteractionsClosesOnPresent(t *testing.T) {
	c, notes := newController(t, "info", ControllerOptions{})
	assert.True(t, c.State().Closed)
	assert.False(t, c.State().PendingSubmission)
	assert.NotEmpty(t, notes.Notes())
}

func TestController_CorrectAttemptScores(t *testing.T) {
	c, _ := newController(t, "choice", ControllerOptions{})

	unbound, invalid := attempt(c, t0.Add(3*time.Second), map[string]ir.ResponseData{"RESPONSE": ir.StringResponse("B")})
	assert.Empty(t, unbound)
	assert.Empty(t, invalid)

	s := c.State()
	assert.Equal(t, 1, s.NumAttempts)
	assert.Equal(t, ir.IRInt(1), s.Outcomes[OutcomeScore])
	assert.Equal(t, int64(3000), s.DurationMillis)
	assert.True(t, s.RespondedValidly())
	assert.True(t, s.PendingSubmission)
	assert.Equal(t, []string{"B"}, s.RawResponses["RESPONSE"])
}

func TestController_UnboundResponses(t *testing.T) {
	c, notes := newController(t, "choice", ControllerOptions{})

	unbound, _ := attempt(c, t0, map[string]ir.ResponseData{
		"RESPONSE": ir.StringResponse("A", "B"),
		"GHOST":    ir.StringResponse("x"),
	})
	assert.Equal(t, []string{"GHOST", "RESPONSE"}, unbound)
	assert.Equal(t, unbound, c.State().UnboundResponseIdentifiers)
	assert.Equal(t, 0, c.State().NumAttempts)
	assert.Len(t, notes.AtLeast(ir.NotificationWarning), 2)
}

func TestController_InvalidResponses(t *testing.T) {
	c, _ := newController(t, "choice", ControllerOptions{})

	unbound, invalid := attempt(c, t0, map[string]ir.ResponseData{"RESPONSE": ir.StringResponse("Z")})
	assert.Empty(t, unbound)
	assert.Equal(t, []string{"RESPONSE"}, invalid)
	assert.False(t, c.State().RespondedValidly())
}

func TestController_RequiredResponse(t *testing.T) {
	c, _ := newController(t, "choice", ControllerOptions{})
	_, invalid := attempt(c, t0, map[string]ir.ResponseData{})
	assert.Equal(t, []string{"RESPONSE"}, invalid)
}

func TestController_MappingScore(t *testing.T) {
	c, _ := newController(t, "multi", ControllerOptions{})
	_, invalid := attempt(c, t0, map[string]ir.ResponseData{"RESPONSE": ir.StringResponse("A", "C", "D")})
	require.Empty(t, invalid)
	assert.Equal(t, ir.IRInt(2), c.State().Outcomes[OutcomeScore])
}

func TestController_MaxAttemptsCloses(t *testing.T) {
	c, _ := newController(t, "choice", ControllerOptions{MaxAttempts: 2})

	attempt(c, t0.Add(time.Second), map[string]ir.ResponseData{"RESPONSE": ir.StringResponse("A")})
	assert.False(t, c.State().Closed)
	attempt(c, t0.Add(2*time.Second), map[string]ir.ResponseData{"RESPONSE": ir.StringResponse("C")})
	assert.True(t, c.State().Closed)
	assert.Equal(t, int64(2000), c.State().DurationMillis)

	// Closed items do not accumulate duration.
	c.MarkClosed(t0.Add(time.Hour))
	assert.Equal(t, int64(2000), c.State().DurationMillis)
}

func TestController_RejectedAttemptsAdvanceDuration(t *testing.T) {
	c, _ := newController(t, "choice", ControllerOptions{})

	unbound, _ := attempt(c, t0.Add(3*time.Second), map[string]ir.ResponseData{"NOPE": ir.StringResponse("A")})
	require.Equal(t, []string{"NOPE"}, unbound)
	assert.Equal(t, int64(3000), c.State().DurationMillis)
	assert.Zero(t, c.State().NumAttempts)

	// A later submission at an earlier instant never shrinks it.
	attempt(c, t0.Add(time.Second), map[string]ir.ResponseData{"NOPE": ir.StringResponse("A")})
	assert.Equal(t, int64(3000), c.State().DurationMillis)
}

func TestController_TemplateSeeded(t *testing.T) {
	a, _ := newController(t, "sum", ControllerOptions{Seed: 7})
	b, _ := newController(t, "sum", ControllerOptions{Seed: 7})
	assert.Equal(t, a.State().TemplateValues, b.State().TemplateValues)

	x := ir.IntOf(a.State().TemplateValues["X"])
	assert.GreaterOrEqual(t, x, int64(1))
	assert.LessOrEqual(t, x, int64(100))
}

func TestController_TemplateRefInCorrect(t *testing.T) {
	c, _ := newController(t, "sum", ControllerOptions{Seed: 3})
	x := ir.StringsOf(c.State().TemplateValues["X"])[0]

	_, invalid := attempt(c, t0, map[string]ir.ResponseData{"ANSWER": ir.StringResponse(x)})
	require.Empty(t, invalid)
	assert.Equal(t, ir.IRInt(1), c.State().Outcomes[OutcomeScore])
}

func TestController_PatternMask(t *testing.T) {
	c, _ := newController(t, "sum", ControllerOptions{})
	unbound, _ := attempt(c, t0, map[string]ir.ResponseData{"ANSWER": ir.StringResponse("twelve")})
	assert.Equal(t, []string{"ANSWER"}, unbound, "non-integer text cannot bind")
}

func TestController_FileResponses(t *testing.T) {
	c, _ := newController(t, "essay", ControllerOptions{})
	file := ir.ResponseData{Type: ir.ResponseFile, File: &ir.FileSubmission{ID: "f1", Path: "/tmp/f1", ContentType: "text/plain"}}

	unbound, invalid := attempt(c, t0, map[string]ir.ResponseData{"FILE": file})
	assert.Empty(t, unbound)
	assert.Empty(t, invalid)
	assert.Equal(t, ir.IRString("f1"), c.State().Responses["FILE"])

	other, _ := newController(t, "choice", ControllerOptions{})
	unbound, _ = attempt(other, t0, map[string]ir.ResponseData{"RESPONSE": file})
	assert.Equal(t, []string{"RESPONSE"}, unbound)
}

func TestController_ResetKeepsTemplateValues(t *testing.T) {
	c, _ := newController(t, "sum", ControllerOptions{Seed: 11})
	templates := c.State().TemplateValues.Clone()
	x := ir.StringsOf(templates["X"])[0]
	attempt(c, t0.Add(time.Second), map[string]ir.ResponseData{"ANSWER": ir.StringResponse(x)})

	c.ResetItemSession(t0.Add(2 * time.Second))
	s := c.State()
	assert.Equal(t, templates, s.TemplateValues)
	assert.Empty(t, s.Responses)
	assert.Equal(t, 0, s.NumAttempts)
	assert.Equal(t, ir.IRInt(0), s.Outcomes[OutcomeScore])
	assert.Equal(t, int64(2000), s.DurationMillis)
}

func TestController_AssessmentResult(t *testing.T) {
	c, _ := newController(t, "choice", ControllerOptions{})
	attempt(c, t0, map[string]ir.ResponseData{"RESPONSE": ir.StringResponse("B")})
	c.MarkClosed(t0.Add(time.Second))

	res, err := c.ComputeAssessmentResult()
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("choice"), res["identifier"])
	assert.Equal(t, ir.IRBool(true), res["closed"])
	assert.Equal(t, ir.IRInt(1), res["outcomes"].(ir.IRObject)[OutcomeScore])
}
