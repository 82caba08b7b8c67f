package harness

import "github.com/roach88/deliver/internal/ir"

// TraceEvent records the outcome of one step.
type TraceEvent struct {
	Step    int    `json:"step"` // 1-based
	Op      string `json:"op"`
	Session string `json:"session"`

	// Event is the type of the appended event: the item event type for
	// item sessions, the test event type for test sessions.
	Event string `json:"event,omitempty"`

	// ItemEvent is the item event type carried by a test ITEM_EVENT.
	ItemEvent string `json:"item_event,omitempty"`

	// Item is the test item key the event concerns.
	Item string `json:"item,omitempty"`

	// Branch is the test screen a render step showed.
	Branch string `json:"branch,omitempty"`

	Error     string `json:"error,omitempty"`
	Privilege string `json:"privilege,omitempty"`

	eventID ir.EventID
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace has one entry per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// canonical returns the trace event as an IR object for canonical JSON.
// Empty fields are omitted.
func (e TraceEvent) canonical() ir.IRObject {
	obj := ir.IRObject{
		"step":    ir.IRInt(e.Step),
		"op":      ir.IRString(e.Op),
		"session": ir.IRString(e.Session),
	}
	for k, v := range map[string]string{
		"event":      e.Event,
		"item_event": e.ItemEvent,
		"item":       e.Item,
		"branch":     e.Branch,
		"error":      e.Error,
		"privilege":  e.Privilege,
	} {
		if v != "" {
			obj[k] = ir.IRString(v)
		}
	}
	return obj
}
