package render

import "github.com/roach88/deliver/internal/ir"

// Mode is the rendering mode of a request.
type Mode string

const (
	ModeCurrent    Mode = "current"
	ModeReview     Mode = "review"
	ModeSolution   Mode = "solution"
	ModePlayback   Mode = "playback"
	ModeTerminated Mode = "terminated"
	ModeExploded   Mode = "exploded" // author view with the raw state snapshot
)

// Request is everything a stylesheet is parameterized with.
type Request struct {
	Stylesheet string
	Mode       Mode
	Title      string

	// Source is the XML document being presented: an item body or a test
	// outline. Empty means no document.
	Source []byte

	// Prompt is an XHTML fragment shown above the item body.
	Prompt string

	SessionID int64
	EventID   int64
	EventType string
	ItemKey   string
	ExitURL   string

	// Flags are the action permissions in effect, keyed by name
	// (attemptAllowed, closeAllowed, ...).
	Flags map[string]bool

	Variables     []Variable
	Items         []ItemEntry
	Notifications []ir.Notification

	// StateJSON is the serialized state snapshot of the rendered event.
	StateJSON string
}

// Variable is one template, response or outcome value shown to the
// candidate.
type Variable struct {
	Kind  string
	Name  string
	Value string
}

// ItemEntry is one item of a test part, as listed in navigation menus and
// feedback.
type ItemEntry struct {
	Key        string
	Title      string
	Presented  bool
	Responded  bool
	Closed     bool
	Current    bool
	Reviewable bool
	Solvable   bool
}

// placeholder is substituted when a request carries no source document.
var placeholder = []byte("<empty/>")

// view is the value stylesheets execute against.
type view struct {
	Request
	URLs URLs
}
