package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/roach88/deliver/internal/ir"
	"github.com/roach88/deliver/internal/render"
	"github.com/roach88/deliver/internal/store"
)

// RenderItem renders the latest event of an item session.
func (s *Service) RenderItem(ctx context.Context, id ir.SessionID, token string, opts render.Options, sink io.Writer) (err error) {
	ctx, end := s.begin(ctx, "render_item", id)
	defer end(&err)
	return s.renderLatest(ctx, id, token, ir.DeliveryItem, opts, sink)
}

// RenderTest renders the latest event of a test session.
func (s *Service) RenderTest(ctx context.Context, id ir.SessionID, token string, opts render.Options, sink io.Writer) (err error) {
	ctx, end := s.begin(ctx, "render_test", id)
	defer end(&err)
	return s.renderLatest(ctx, id, token, ir.DeliveryTest, opts, sink)
}

// RenderEvent renders a historical event of a session. No action is
// offered on a page that is not the session's latest event.
func (s *Service) RenderEvent(ctx context.Context, id ir.SessionID, token string, eventID ir.EventID, opts render.Options, sink io.Writer) (err error) {
	ctx, end := s.begin(ctx, "render_event", id)
	defer end(&err)
	return s.renderHistorical(ctx, id, token, eventID, opts, sink)
}

// RenderBuffered renders into a temporary file and hands the complete
// output to fn, so a failed render never reaches the caller's sink.
// eventID 0 renders the latest event. The file is removed on return.
func (s *Service) RenderBuffered(ctx context.Context, id ir.SessionID, token string, eventID ir.EventID, opts render.Options, fn func(contentType string, length int64, r io.Reader) error) (err error) {
	ctx, end := s.begin(ctx, "render_buffered", id)
	defer end(&err)

	contentType, err := opts.ContentType()
	if err != nil {
		return &Error{Kind: KindRenderingFailure, SessionID: id, Err: err}
	}
	f, err := os.CreateTemp(s.tempDir, "render-*")
	if err != nil {
		return internal(id, "create render buffer", err)
	}
	defer func() {
		f.Close()
		os.Remove(f.Name())
	}()

	if eventID == 0 {
		err = s.renderLatest(ctx, id, token, "", opts, f)
	} else {
		err = s.renderHistorical(ctx, id, token, eventID, opts, f)
	}
	if err != nil {
		return err
	}

	length, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return internal(id, "measure render buffer", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return internal(id, "rewind render buffer", err)
	}
	return fn(contentType, length, f)
}

func (s *Service) renderLatest(ctx context.Context, id ir.SessionID, token string, kind ir.DeliveryKind, opts render.Options, sink io.Writer) error {
	sess, d, err := s.access(ctx, s.store, id, token, kind)
	if err != nil {
		return err
	}
	ev, err := s.store.MostRecentEvent(ctx, id, "")
	if err != nil {
		return internal(id, "session has no events", err)
	}
	return s.renderPage(ctx, page{sess: sess, delivery: d, event: ev, live: true}, opts, sink)
}

func (s *Service) renderHistorical(ctx context.Context, id ir.SessionID, token string, eventID ir.EventID, opts render.Options, sink io.Writer) error {
	sess, d, err := s.access(ctx, s.store, id, token, "")
	if err != nil {
		return err
	}
	ev, err := s.store.ReadEvent(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return notFound(id, "event %d", eventID)
	}
	if err != nil {
		return internal(id, "read event", err)
	}
	if ev.SessionID != id {
		return forbidden(id, PrivAccessCandidateSession)
	}
	latest, err := s.store.MostRecentEvent(ctx, id, "")
	if err != nil {
		return internal(id, "read latest event", err)
	}
	return s.renderPage(ctx, page{sess: sess, delivery: d, event: ev, live: latest.ID == ev.ID}, opts, sink)
}

// page is the event being rendered. live is set when it is the latest
// event of the session, so actions may be offered.
type page struct {
	sess     ir.CandidateSession
	delivery ir.Delivery
	event    ir.CandidateEvent
	live     bool
}

func (p page) request() render.Request {
	title := p.delivery.Title
	if title == "" {
		title = p.delivery.AssessmentRef
	}
	return render.Request{
		Mode:          render.ModeCurrent,
		Title:         title,
		SessionID:     int64(p.sess.ID),
		EventID:       int64(p.event.ID),
		ItemKey:       string(p.event.ItemKey),
		ExitURL:       p.sess.ExitURL,
		Notifications: p.event.Notifications,
		StateJSON:     string(p.event.State),
		Flags:         map[string]bool{},
	}
}

func (s *Service) renderPage(ctx context.Context, p page, opts render.Options, sink io.Writer) error {
	var (
		req render.Request
		err error
	)
	switch p.event.Category {
	case ir.CategoryItem:
		req, err = s.itemRequest(ctx, p)
	case ir.CategoryTest:
		req, err = s.testRequest(p)
	default:
		err = logicFault(p.sess.ID, "unexpected event category %q", p.event.Category)
	}
	if err != nil {
		return err
	}
	if opts.Exploded && req.Mode != render.ModeTerminated {
		req.Mode = render.ModeExploded
	}
	if err := s.renderer.Render(ctx, req, opts, sink); err != nil {
		return &Error{
			Kind:      KindRenderingFailure,
			SessionID: p.sess.ID,
			Message:   fmt.Sprintf("stylesheet %q event %d", req.Stylesheet, p.event.ID),
			Err:       err,
		}
	}
	return nil
}

func (s *Service) itemRequest(ctx context.Context, p page) (render.Request, error) {
	id := p.sess.ID
	settings := itemSettings(p.delivery)
	mode, err := itemMode(id, p.event.ItemType)
	if err != nil {
		return render.Request{}, err
	}
	state, err := ir.DecodeItemState(p.event.State)
	if err != nil {
		return render.Request{}, internal(id, "decode item state", err)
	}

	req := p.request()
	req.Mode = mode
	req.EventType = string(p.event.ItemType)
	req.Flags = itemFlags(settings, state, mode, p.live)
	if mode == render.ModeTerminated {
		req.Stylesheet = "terminated"
		return req, nil
	}
	req.Stylesheet = "item-standalone"

	shown := state
	if mode == render.ModePlayback {
		if p.event.TargetEventID == nil {
			return render.Request{}, logicFault(id, "playback event %d has no target", p.event.ID)
		}
		target, err := s.store.ReadEvent(ctx, *p.event.TargetEventID)
		if err != nil {
			return render.Request{}, internal(id, "read playback target", err)
		}
		if shown, err = ir.DecodeItemState(target.State); err != nil {
			return render.Request{}, internal(id, "decode playback target", err)
		}
		req.StateJSON = string(target.State)
	}
	req.Variables = variables(shown)

	if req.Source, err = s.rt.Document(p.delivery.AssessmentRef); err != nil {
		return render.Request{}, runtimeErr(id, p.delivery.AssessmentRef, err)
	}
	if settings.Prompt != "" {
		if req.Prompt, err = render.Markdown(settings.Prompt); err != nil {
			return render.Request{}, &Error{Kind: KindRenderingFailure, SessionID: id, Message: "prompt", Err: err}
		}
	}
	return req, nil
}

// itemFlags derives the action permissions of a standalone item page
// from the same settings the operations check.
func itemFlags(settings ir.ItemDeliverySettings, state *ir.ItemSessionState, mode render.Mode, live bool) map[string]bool {
	f := map[string]bool{
		"closed":     state.Closed,
		"authorMode": settings.AuthorMode,
	}
	if !live || mode == render.ModeTerminated {
		return f
	}
	f["attemptAllowed"] = !state.Closed
	f["closeAllowed"] = !state.Closed && settings.AllowClose
	if state.Closed {
		f["reinitAllowed"] = settings.AllowReinitWhenClosed
		f["resetAllowed"] = settings.AllowResetWhenClosed
		f["solutionAllowed"] = settings.AllowSolutionWhenClosed
	} else {
		f["reinitAllowed"] = settings.AllowReinitWhenInteracting
		f["resetAllowed"] = settings.AllowResetWhenInteracting
		f["solutionAllowed"] = settings.AllowSolutionWhenInteracting
	}
	f["playbackAllowed"] = state.Closed && settings.AllowPlayback
	f["resultAllowed"] = settings.AllowResult
	f["sourceAllowed"] = settings.AllowSource
	f["terminateAllowed"] = true
	return f
}

func (s *Service) testRequest(p page) (render.Request, error) {
	id := p.sess.ID
	settings := testSettings(p.delivery)
	state, err := ir.DecodeTestState(p.event.State)
	if err != nil {
		return render.Request{}, internal(id, "decode test state", err)
	}
	branch, err := SelectTestBranch(p.event, state)
	if err != nil {
		return render.Request{}, err
	}
	if p.live && p.sess.Terminated {
		branch = BranchTerminated
	}

	req := p.request()
	req.Stylesheet = branch.Stylesheet()
	req.EventType = string(p.event.TestType)
	req.Flags["authorMode"] = settings.AuthorMode

	switch branch {
	case BranchTerminated:
		req.Mode = render.ModeTerminated
	case BranchEntry:
		if req.Source, err = s.rt.Document(p.delivery.AssessmentRef); err != nil {
			return render.Request{}, runtimeErr(id, p.delivery.AssessmentRef, err)
		}
	case BranchItem:
		err = s.testItem(&req, p, state, state.CurrentItemKey)
	case BranchItemReview:
		req.Mode = render.ModeReview
		err = s.testItem(&req, p, state, p.event.ItemKey)
	case BranchItemSolution:
		req.Mode = render.ModeSolution
		err = s.testItem(&req, p, state, p.event.ItemKey)
	case BranchNavigation:
		part := state.CurrentTestPartKey
		req.Items = itemEntries(state, part, false)
		req.Flags["endTestPartAllowed"] = p.live && s.rt.MayEndTestPart(state, part)
		req.Flags["exitAllowed"] = p.live
	case BranchPartFeedback:
		req.Items = itemEntries(state, state.CurrentTestPartKey, p.live)
		req.Variables = outcomeVariables(state.Outcomes)
		req.Flags["advanceTestPartAllowed"] = p.live
		req.Flags["exitAllowed"] = p.live
	case BranchTestFeedback:
		req.Variables = outcomeVariables(state.Outcomes)
		req.Flags["resultAllowed"] = p.live && settings.AllowResult
		req.Flags["exitAllowed"] = p.live
	default:
		err = logicFault(id, "unexpected test branch %q", branch)
	}
	if err != nil {
		return render.Request{}, err
	}
	return req, nil
}

// testItem fills req with one item of a test, in req.Mode.
func (s *Service) testItem(req *render.Request, p page, state *ir.TestSessionState, key ir.NodeKey) error {
	id := p.sess.ID
	node, ok := state.Plan.Node(key)
	if !ok || node.Kind != ir.NodeItemRef {
		return logicFault(id, "event %d names unknown item %q", p.event.ID, key)
	}
	is := state.ItemStates[key]
	if is == nil {
		return logicFault(id, "item %q has no state", key)
	}
	doc, err := s.rt.Document(node.ItemRef)
	if err != nil {
		return runtimeErr(id, node.ItemRef, err)
	}
	req.Source = doc
	req.ItemKey = string(key)
	if node.Title != "" {
		req.Title = node.Title
	}
	req.Variables = variables(is)

	partKey, _ := state.Plan.PartOf(key)
	part, ok := state.Plan.Node(partKey)
	if !ok {
		return logicFault(id, "item %q is outside every test part", key)
	}
	linear := part.Navigation == ir.NavigationLinear

	f := req.Flags
	f["closed"] = is.Closed
	switch req.Mode {
	case render.ModeSolution:
		f["showFeedback"] = true
	case render.ModeReview:
		f["showFeedback"] = node.Control.ShowFeedback
	default:
		f["showFeedback"] = node.Control.ShowFeedback && is.NumAttempts > 0
	}
	if !p.live {
		return nil
	}
	f["exitAllowed"] = true
	if req.Mode != render.ModeCurrent {
		f["reviewPartAllowed"] = true
		return nil
	}
	f["attemptAllowed"] = !is.Closed
	f["finishItemAllowed"] = linear && s.rt.MayAdvanceItemLinear(state)
	f["menuAllowed"] = !linear
	f["endTestPartAllowed"] = !linear && s.rt.MayEndTestPart(state, partKey)
	return nil
}

// itemEntries lists the items of a part. Review and solution links are
// offered only when feedback is set and the part has ended.
func itemEntries(state *ir.TestSessionState, partKey ir.NodeKey, feedback bool) []render.ItemEntry {
	ended := false
	if ps := state.PartStates[partKey]; ps != nil {
		ended = ps.Ended
	}
	var out []render.ItemEntry
	for _, key := range state.Plan.ItemsOf(partKey) {
		node, _ := state.Plan.Node(key)
		e := render.ItemEntry{
			Key:        string(key),
			Title:      node.Title,
			Current:    key == state.CurrentItemKey,
			Reviewable: feedback && ended && node.Control.AllowReview,
			Solvable:   feedback && ended && node.Control.ShowSolution,
		}
		if e.Title == "" {
			e.Title = string(key)
		}
		if is := state.ItemStates[key]; is != nil {
			e.Presented = is.Presented
			e.Responded = is.NumAttempts > 0
			e.Closed = is.Closed
		}
		out = append(out, e)
	}
	return out
}

func variables(state *ir.ItemSessionState) []render.Variable {
	var out []render.Variable
	out = appendVariables(out, "template", state.TemplateValues)
	out = appendVariables(out, "response", state.Responses)
	return appendVariables(out, "outcome", state.Outcomes)
}

func outcomeVariables(outcomes ir.IRObject) []render.Variable {
	return appendVariables(nil, "outcome", outcomes)
}

func appendVariables(out []render.Variable, kind string, obj ir.IRObject) []render.Variable {
	for _, name := range obj.SortedKeys() {
		out = append(out, render.Variable{Kind: kind, Name: name, Value: formatValue(obj[name])})
	}
	return out
}

// formatValue renders a value the way a candidate reads it. Containers
// other than arrays fall back to canonical JSON.
func formatValue(v ir.IRValue) string {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return ""
	case ir.IRString:
		return string(val)
	case ir.IRInt:
		return strconv.FormatInt(int64(val), 10)
	case ir.IRBool:
		return strconv.FormatBool(bool(val))
	case ir.IRArray:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return strings.Join(parts, ", ")
	default:
		data, err := ir.MarshalIRValue(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
