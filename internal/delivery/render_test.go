package delivery

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/deliver/internal/ir"
	"github.com/roach88/deliver/internal/render"
)

var testURLs = render.URLs{
	Attempt:         "/attempt",
	Close:           "/close",
	Reinit:          "/reinit",
	Reset:           "/reset",
	Solution:        "/solution",
	Playback:        "/playback",
	Terminate:       "/terminate",
	Result:          "/result",
	Source:          "/source",
	EnterTest:       "/enter",
	SelectMenu:      "/menu",
	SelectItem:      "/select/",
	FinishItem:      "/finish",
	EndTestPart:     "/end-part",
	ReviewTestPart:  "/review-part",
	ReviewItem:      "/review/",
	SolutionItem:    "/solution/",
	AdvanceTestPart: "/advance",
	ExitTest:        "/exit",
}

func renderItem(t *testing.T, f *fixture, id ir.SessionID, opts render.Options) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, f.svc.RenderItem(context.Background(), id, testToken, opts, &buf))
	return buf.String()
}

func renderTest(t *testing.T, f *fixture, id ir.SessionID) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, f.svc.RenderTest(context.Background(), id, testToken, render.Options{URLs: testURLs}, &buf))
	return buf.String()
}

func TestRenderItem_Current(t *testing.T) {
	f := newFixture(t)
	settings := allowAll
	settings.Prompt = "Choose **one**"
	id := f.launchItem(t, "choice", settings)

	out := renderItem(t, f, id, render.Options{URLs: testURLs})
	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "<h1>Delivery d-choice</h1>")
	assert.Contains(t, out, "<strong>one</strong>")
	assert.Contains(t, out, `<button type="submit">Submit</button>`)
	assert.Contains(t, out, `href="/close"`)
	assert.NotContains(t, out, `href="/playback"`, "playback needs a closed item")
	assert.NotContains(t, out, `class="author"`)
}

func TestRenderItem_MathMLConverted(t *testing.T) {
	f := newFixture(t)
	id := f.launchItem(t, "sum", allowAll)

	out := renderItem(t, f, id, render.Options{URLs: testURLs, Method: render.MethodXHTML})
	assert.Contains(t, out, "<mo>+</mo>")
	assert.Contains(t, out, "<mi>x</mi>")
	assert.NotContains(t, out, "<apply>")
}

func TestRenderItem_ClosedOffersPlayback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.launchItem(t, "choice", allowAll)
	_, err := f.svc.Attempt(ctx, id, testToken, answer("B"))
	require.NoError(t, err)
	_, err = f.svc.Close(ctx, id, testToken)
	require.NoError(t, err)

	out := renderItem(t, f, id, render.Options{URLs: testURLs})
	assert.NotContains(t, out, "Submit")
	assert.Contains(t, out, `href="/playback"`)
	assert.Contains(t, out, `<dt class="outcome">SCORE</dt>`)
	assert.Contains(t, out, `<dd>1</dd>`)
}

func TestRenderItem_Playback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.launchItem(t, "choice", allowAll)
	attempt, err := f.svc.Attempt(ctx, id, testToken, answer("A"))
	require.NoError(t, err)
	_, err = f.svc.Close(ctx, id, testToken)
	require.NoError(t, err)
	_, err = f.svc.Playback(ctx, id, testToken, attempt.Event.ID)
	require.NoError(t, err)

	out := renderItem(t, f, id, render.Options{URLs: testURLs})
	assert.Contains(t, out, `<body class="item playback">`)
	assert.Contains(t, out, "Playback of event")
	assert.Contains(t, out, `<dt class="response">RESPONSE</dt>`)
	assert.Contains(t, out, "<dd>A</dd>")
}

func TestRenderItem_Terminated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.launchItem(t, "choice", allowAll)
	_, err := f.svc.Terminate(ctx, id, testToken)
	require.NoError(t, err)

	out := renderItem(t, f, id, render.Options{URLs: testURLs, Exploded: true})
	assert.Contains(t, out, `<body class="terminated">`)
	assert.Contains(t, out, `href="/done"`)
	assert.NotContains(t, out, `class="author"`)
}

func TestRenderItem_Exploded(t *testing.T) {
	f := newFixture(t)
	id := f.launchItem(t, "choice", allowAll)

	out := renderItem(t, f, id, render.Options{URLs: testURLs, Exploded: true})
	assert.Contains(t, out, `<div class="author">`)
	assert.Contains(t, out, `<pre class="state">`)
	assert.Contains(t, out, `"initialized":true`)
}

func TestRenderItem_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.launchItem(t, "sum", allowAll)
	_, err := f.svc.Attempt(ctx, id, testToken, map[string]ir.ResponseData{"ANSWER": ir.StringResponse("12")})
	require.NoError(t, err)

	opts := render.Options{URLs: testURLs, Encoding: "iso-8859-1"}
	want := renderItem(t, f, id, opts)

	outputs := make([]string, 8)
	var g errgroup.Group
	for i := range outputs {
		g.Go(func() error {
			var buf bytes.Buffer
			if err := f.svc.RenderItem(ctx, id, testToken, opts, &buf); err != nil {
				return err
			}
			outputs[i] = buf.String()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	for _, out := range outputs {
		assert.Equal(t, want, out)
	}
}

func TestRenderEvent_Historical(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.launchItem(t, "choice", allowAll)
	other := f.launchItem(t, "sum", allowAll)
	_, err := f.svc.Attempt(ctx, id, testToken, answer("B"))
	require.NoError(t, err)

	events, err := f.svc.Events(ctx, id, testToken)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.RenderEvent(ctx, id, testToken, events[0].ID, render.Options{URLs: testURLs}, &buf))
	assert.NotContains(t, buf.String(), "Submit", "historical pages offer no actions")

	otherEvents, err := f.svc.Events(ctx, other, testToken)
	require.NoError(t, err)
	err = f.svc.RenderEvent(ctx, id, testToken, otherEvents[0].ID, render.Options{}, io.Discard)
	requireForbidden(t, err, PrivAccessCandidateSession)

	err = f.svc.RenderEvent(ctx, id, testToken, 9999, render.Options{}, io.Discard)
	assert.True(t, IsNotFound(err))
}

func TestRenderItem_WrongKind(t *testing.T) {
	f := newFixture(t)
	id := f.launchTest(t, "quiz", ir.TestDeliverySettings{})
	err := f.svc.RenderItem(context.Background(), id, testToken, render.Options{}, io.Discard)
	requireForbidden(t, err, PrivAccessCandidateSessionAsItem)
}

func TestRenderTest_Branches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.launchTest(t, "quiz", ir.TestDeliverySettings{AllowResult: true})

	out := renderTest(t, f, id)
	assert.Contains(t, out, `<body class="test entry">`)
	assert.Contains(t, out, `href="/enter"`)

	_, err := f.svc.EnterTest(ctx, id, testToken)
	require.NoError(t, err)
	out = renderTest(t, f, id)
	assert.Contains(t, out, `<body class="test navigation">`)
	assert.Contains(t, out, `href="/select/Q1"`)
	assert.Contains(t, out, `href="/end-part"`)

	_, err = f.svc.SelectItem(ctx, id, testToken, "Q1")
	require.NoError(t, err)
	out = renderTest(t, f, id)
	assert.Contains(t, out, `<body class="test item current">`)
	assert.Contains(t, out, "<h1>Pick one</h1>")
	assert.Contains(t, out, `href="/menu"`)
	assert.NotContains(t, out, `href="/finish"`)

	_, err = f.svc.EndTestPart(ctx, id, testToken)
	require.NoError(t, err)
	out = renderTest(t, f, id)
	assert.Contains(t, out, `<body class="test feedback part">`)
	assert.Contains(t, out, `href="/review/Q1"`)
	assert.Contains(t, out, `href="/solution/Q1"`)
	assert.Contains(t, out, `href="/advance"`)

	_, err = f.svc.ReviewItem(ctx, id, testToken, "Q1")
	require.NoError(t, err)
	out = renderTest(t, f, id)
	assert.Contains(t, out, `<body class="test item review">`)
	assert.Contains(t, out, `href="/review-part"`)

	_, err = f.svc.ExitTest(ctx, id, testToken)
	require.NoError(t, err)
	out = renderTest(t, f, id)
	assert.Contains(t, out, `<body class="terminated">`)
}

func TestRenderTest_EndPartNeedsEveryItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.launchTest(t, "strict", ir.TestDeliverySettings{})
	_, err := f.svc.EnterTest(ctx, id, testToken)
	require.NoError(t, err)
	_, err = f.svc.SelectItem(ctx, id, testToken, "A")
	require.NoError(t, err)
	_, err = f.svc.HandleTestResponses(ctx, id, testToken, answer("B"))
	require.NoError(t, err)

	out := renderTest(t, f, id)
	assert.Contains(t, out, `href="/menu"`)
	assert.NotContains(t, out, `href="/end-part"`, "B has not been answered")
}

func TestRenderBuffered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.launchItem(t, "choice", allowAll)
	want := renderItem(t, f, id, render.Options{URLs: testURLs})

	var (
		gotType string
		gotLen  int64
		gotBody []byte
		path    string
	)
	err := f.svc.RenderBuffered(ctx, id, testToken, 0, render.Options{URLs: testURLs}, func(contentType string, length int64, r io.Reader) error {
		gotType, gotLen = contentType, length
		if file, ok := r.(*os.File); ok {
			path = file.Name()
		}
		var err error
		gotBody, err = io.ReadAll(r)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", gotType)
	assert.Equal(t, int64(len(want)), gotLen)
	assert.Equal(t, want, string(gotBody))

	require.NotEmpty(t, path)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "buffer file %s was not removed", path)
}

func TestRenderBuffered_FailureNeverReachesCallback(t *testing.T) {
	ctx := context.Background()
	broken := fstest.MapFS{
		"item-standalone.tmpl": {Data: []byte(`<html>{{.Nope}}</html>`)},
	}
	tempDir := t.TempDir()
	f := newFixture(t, WithRenderer(render.NewManager(broken, nil)), WithTempDir(tempDir))
	id := f.launchItem(t, "choice", allowAll)

	called := false
	err := f.svc.RenderBuffered(ctx, id, testToken, 0, render.Options{}, func(string, int64, io.Reader) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, IsRenderingFailure(err), "got %v", err)
	assert.True(t, render.IsError(err))
	assert.False(t, called)

	leftovers, err := filepath.Glob(filepath.Join(tempDir, "render-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestRenderItem_BadEncoding(t *testing.T) {
	f := newFixture(t)
	id := f.launchItem(t, "choice", allowAll)
	err := f.svc.RenderItem(context.Background(), id, testToken, render.Options{Encoding: "no-such-charset"}, io.Discard)
	assert.True(t, IsRenderingFailure(err), "got %v", err)
}
