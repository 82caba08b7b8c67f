package runtime

import (
	"math/rand/v2"
	"slices"
	"time"

	"github.com/roach88/deliver/internal/ir"
)

// Outcome identifiers the reference runtime computes.
const (
	OutcomeScore          = "SCORE"
	OutcomeItemsResponded = "ITEMS_RESPONDED"
)

// controller is the reference ItemController.
type controller struct {
	def   *ir.ItemDefinition
	state *ir.ItemSessionState
	opts  ControllerOptions
	notes *Recorder
}

func (c *controller) State() *ir.ItemSessionState { return c.state }

func (c *controller) Initialize(now time.Time) {
	*c.state = ir.ItemSessionState{
		Initialized:                true,
		EnteredAt:                  now,
		TemplateValues:             ir.IRObject{},
		Responses:                  ir.IRObject{},
		Outcomes:                   c.defaultOutcomes(),
		UnboundResponseIdentifiers: []string{},
		InvalidResponseIdentifiers: []string{},
	}
}

func (c *controller) defaultOutcomes() ir.IRObject {
	out := ir.IRObject{}
	for _, o := range c.def.Outcomes {
		out[o.Identifier] = ir.IRInt(o.Default)
	}
	return out
}

// PerformTemplateProcessing draws every template variable uniformly from
// its range using the controller seed.
func (c *controller) PerformTemplateProcessing() {
	rng := rand.New(rand.NewPCG(c.opts.Seed, uint64(len(c.def.Templates))))
	values := ir.IRObject{}
	for _, t := range c.def.Templates {
		lo, hi := t.Min, t.Max
		if hi < lo {
			c.notes.Add(ir.NotificationWarning, t.Identifier, "template range [%d, %d] is empty; using %d", lo, hi, lo)
			hi = lo
		}
		values[t.Identifier] = ir.IRInt(lo + rng.Int64N(hi-lo+1))
	}
	c.state.TemplateValues = values
}

func (c *controller) MarkPresented(now time.Time) {
	c.touch(now)
	c.state.Presented = true
	if len(c.def.Interactions) == 0 && !c.state.Closed {
		c.notes.Add(ir.NotificationInfo, c.def.Identifier, "item has no interactions; closing")
		c.MarkClosed(now)
	}
}

func (c *controller) MarkPendingSubmission() {
	c.state.PendingSubmission = !c.state.Closed
}

func (c *controller) MarkPendingResponseProcessing() {
	c.state.PendingSubmission = false
	c.state.PendingResponseProcessing = true
}

func (c *controller) PerformResponseProcessing(now time.Time) {
	c.touch(now)
	c.state.NumAttempts++
	c.state.PendingResponseProcessing = false
	c.state.Outcomes = c.score()

	if c.opts.MaxAttempts > 0 && c.state.NumAttempts >= c.opts.MaxAttempts {
		c.notes.Add(ir.NotificationInfo, c.def.Identifier, "maximum of %d attempts reached; closing", c.opts.MaxAttempts)
		c.MarkClosed(now)
		return
	}
	c.state.PendingSubmission = true
}

func (c *controller) MarkClosed(now time.Time) {
	c.touch(now)
	c.state.Closed = true
	c.state.PendingSubmission = false
	c.state.PendingResponseProcessing = false
}

func (c *controller) ResetItemSession(now time.Time) {
	c.touch(now)
	s := c.state
	s.Closed = false
	s.Presented = false
	s.PendingSubmission = false
	s.PendingResponseProcessing = false
	s.NumAttempts = 0
	s.Responses = ir.IRObject{}
	s.RawResponses = nil
	s.Outcomes = c.defaultOutcomes()
	s.UnboundResponseIdentifiers = []string{}
	s.InvalidResponseIdentifiers = []string{}
	s.Comment = ""
}

// ComputeAssessmentResult summarizes the item session.
func (c *controller) ComputeAssessmentResult() (ir.IRObject, error) {
	s := c.state
	return ir.IRObject{
		"identifier":      ir.IRString(c.def.Identifier),
		"num_attempts":    ir.IRInt(s.NumAttempts),
		"duration_millis": ir.IRInt(s.DurationMillis),
		"closed":          ir.IRBool(s.Closed),
		"responses":       s.Responses.Clone(),
		"outcomes":        s.Outcomes.Clone(),
		"template_values": s.TemplateValues.Clone(),
	}, nil
}

// touch advances the duration of an open item. Duration never decreases.
func (c *controller) touch(now time.Time) {
	if c.state.Closed {
		return
	}
	elapsed := now.Sub(c.state.EnteredAt).Milliseconds()
	c.state.DurationMillis = max(c.state.DurationMillis, elapsed)
}

func (c *controller) declaration(id string) (ir.ResponseDeclaration, bool) {
	i := slices.IndexFunc(c.def.Responses, func(d ir.ResponseDeclaration) bool { return d.Identifier == id })
	if i < 0 {
		return ir.ResponseDeclaration{}, false
	}
	return c.def.Responses[i], true
}

func (c *controller) interaction(responseID string) (ir.Interaction, bool) {
	i := slices.IndexFunc(c.def.Interactions, func(in ir.Interaction) bool { return in.ResponseIdentifier == responseID })
	if i < 0 {
		return ir.Interaction{}, false
	}
	return c.def.Interactions[i], true
}
