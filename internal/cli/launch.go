package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/deliver/internal/delivery"
	"github.com/roach88/deliver/internal/ir"
)

// LaunchOptions holds flags for the launch command.
type LaunchOptions struct {
	*RootOptions
	ExitURL string
}

// TransitionOutput is the result of a state-changing command.
type TransitionOutput struct {
	Session    int64  `json:"session"`
	Token      string `json:"token,omitempty"` // launch only
	Kind       string `json:"kind"`
	Event      int64  `json:"event"`
	EventType  string `json:"event_type"`
	ItemEvent  string `json:"item_event,omitempty"`
	Item       string `json:"item,omitempty"`
	Closed     bool   `json:"closed"`
	Terminated bool   `json:"terminated"`
}

func newTransitionOutput(t delivery.Transition) TransitionOutput {
	out := TransitionOutput{
		Session:    int64(t.Session.ID),
		Kind:       string(t.Session.Kind),
		Event:      int64(t.Event.ID),
		Item:       string(t.Event.ItemKey),
		Closed:     t.Session.Closed,
		Terminated: t.Session.Terminated,
	}
	if t.Event.Category == ir.CategoryTest {
		out.EventType = string(t.Event.TestType)
		out.ItemEvent = string(t.Event.ItemType)
	} else {
		out.EventType = string(t.Event.ItemType)
	}
	return out
}

func (t TransitionOutput) String() string {
	s := fmt.Sprintf("session %d: event %d %s", t.Session, t.Event, t.EventType)
	if t.ItemEvent != "" {
		s += " (" + t.ItemEvent + ")"
	}
	if t.Item != "" {
		s += " item=" + t.Item
	}
	if t.Closed {
		s += " closed"
	}
	if t.Terminated {
		s += " terminated"
	}
	if t.Token != "" {
		s += "\ntoken: " + t.Token
	}
	return s
}

// NewLaunchCommand creates the launch command.
func NewLaunchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LaunchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "launch <delivery>",
		Short: "Start a candidate session on a delivery",
		Long: `Start a candidate session on an item or test delivery.

Prints the new session id and the token every later command must present.

Example:
  deliver launch practice --specs ./content
  deliver launch quiz --exit-url https://lms.example.com/done --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd, func(ctx context.Context, e *engine, f *OutputFormatter) error {
				return runLaunch(ctx, e, f, args[0], opts.ExitURL)
			})
		},
	}

	cmd.Flags().StringVar(&opts.ExitURL, "exit-url", "", "URL the candidate is sent to when leaving the session")

	return cmd
}

func runLaunch(ctx context.Context, e *engine, f *OutputFormatter, deliveryID, exitURL string) error {
	kind := ir.DeliveryItem
	for _, d := range e.bundle.Deliveries {
		if d.ID == deliveryID {
			kind = d.Kind
		}
	}

	launch := e.svc.LaunchItemSession
	if kind == ir.DeliveryTest {
		launch = e.svc.LaunchTestSession
	}
	t, err := launch(ctx, deliveryID, exitURL)
	if err != nil {
		return err
	}
	out := newTransitionOutput(t)
	out.Token = t.Session.Token
	return f.Success(out)
}

// parseSessionID parses a session id argument.
func parseSessionID(arg string) (ir.SessionID, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid session id %q", arg))
	}
	return ir.SessionID(id), nil
}
