package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/deliver/internal/ir"
	"github.com/roach88/deliver/internal/store"
)

// EventOutput is one entry of a session's event log.
type EventOutput struct {
	ID            int64             `json:"id"`
	Category      string            `json:"category"`
	Type          string            `json:"type"`
	ItemEvent     string            `json:"item_event,omitempty"`
	Item          string            `json:"item,omitempty"`
	Target        int64             `json:"target,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Notifications []ir.Notification `json:"notifications,omitempty"`
	Digest        string            `json:"digest"`
}

// EventsOutput is a session's event log.
type EventsOutput struct {
	Session int64         `json:"session"`
	Events  []EventOutput `json:"events"`
}

func (o EventsOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "session %d: %d event(s)", o.Session, len(o.Events))
	for _, ev := range o.Events {
		fmt.Fprintf(&b, "\n  [%d] %s %s", ev.ID, ev.CreatedAt.UTC().Format(time.RFC3339), ev.Type)
		if ev.ItemEvent != "" {
			fmt.Fprintf(&b, " (%s)", ev.ItemEvent)
		}
		if ev.Item != "" {
			fmt.Fprintf(&b, " item=%s", ev.Item)
		}
		if ev.Target != 0 {
			fmt.Fprintf(&b, " target=%d", ev.Target)
		}
		for _, n := range ev.Notifications {
			fmt.Fprintf(&b, "\n      %s: %s", n.Level, n.Message)
		}
	}
	return b.String()
}

func newEventOutput(ev ir.CandidateEvent) EventOutput {
	out := EventOutput{
		ID:            int64(ev.ID),
		Category:      string(ev.Category),
		Item:          string(ev.ItemKey),
		CreatedAt:     ev.CreatedAt,
		Notifications: ev.Notifications,
		Digest:        ev.Digest,
	}
	if ev.Category == ir.CategoryTest {
		out.Type = string(ev.TestType)
		out.ItemEvent = string(ev.ItemType)
	} else {
		out.Type = string(ev.ItemType)
	}
	if ev.TargetEventID != nil {
		out.Target = int64(*ev.TargetEventID)
	}
	return out
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events <session>",
		Short: "List the event log of a session",
		Long: `List the event log of a session in append order.

Example:
  deliver events 1 --token $TOKEN
  deliver events 1 --token $TOKEN --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return opts.withEngine(cmd, func(ctx context.Context, e *engine, f *OutputFormatter) error {
				events, err := e.svc.Events(ctx, id, opts.Token)
				if err != nil {
					return err
				}
				out := EventsOutput{Session: int64(id), Events: make([]EventOutput, 0, len(events))}
				for _, ev := range events {
					out.Events = append(out.Events, newEventOutput(ev))
				}
				return f.Success(out)
			})
		},
	}
	opts.addSessionFlags(cmd)
	return cmd
}

// VerifyOutput reports the integrity of a session's event log.
type VerifyOutput struct {
	Session    int64  `json:"session"`
	Events     int    `json:"events"`
	Head       string `json:"head"`
	Intact     bool   `json:"intact"`
	BrokenAt   int64  `json:"broken_at,omitempty"`
	OutOfOrder int    `json:"out_of_order,omitempty"`
}

func (v VerifyOutput) String() string {
	if v.Intact {
		return fmt.Sprintf("✓ session %d: %d event(s), chain intact (head %s)", v.Session, v.Events, v.Head)
	}
	s := fmt.Sprintf("✗ session %d: chain broken", v.Session)
	if v.BrokenAt != 0 {
		s += fmt.Sprintf(" at event %d", v.BrokenAt)
	}
	if v.OutOfOrder > 0 {
		s += fmt.Sprintf(", %d event(s) out of order", v.OutOfOrder)
	}
	return s
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <session>...",
		Short: "Verify the digest chain of session event logs",
		Long: `Recompute the digest chain of each session's event log and report the
first event whose stored digest does not match.

This is an operator command: it reads the database directly and needs no
session token or content directory.

Exit codes:
  0 - Every chain is intact
  1 - At least one chain is broken
  2 - Command error (database not found, unknown session)`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, rootOpts, args)
		},
	}
	return cmd
}

func runVerify(cmd *cobra.Command, opts *RootOptions, args []string) error {
	f := opts.formatter(cmd)
	ids := make([]ir.SessionID, 0, len(args))
	for _, arg := range args {
		id, err := parseSessionID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	st, err := opts.openStore()
	if err != nil {
		_ = f.Error(CodeCommand, err.Error(), nil)
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	reports := make([]VerifyOutput, 0, len(ids))
	for _, id := range ids {
		if _, err := st.ReadSession(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				_ = f.Error(CodeNotFound, fmt.Sprintf("session %d not found", id), nil)
				return NewExitError(ExitCommandError, fmt.Sprintf("session %d not found", id))
			}
			return WrapExitError(ExitFailure, "read session", err)
		}
		report, err := st.VerifyChain(ctx, id)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("verify session %d", id), err)
		}
		reports = append(reports, VerifyOutput{
			Session:    int64(id),
			Events:     report.Events,
			Head:       report.Head,
			Intact:     report.Intact(),
			BrokenAt:   int64(report.BrokenAt),
			OutOfOrder: report.OutOfOrder,
		})
	}

	if f.Format == "json" {
		if err := f.Success(reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			fmt.Fprintln(f.Writer, r)
		}
	}
	if i := slices.IndexFunc(reports, func(r VerifyOutput) bool { return !r.Intact }); i >= 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("event log of session %d is broken", reports[i].Session))
	}
	return nil
}

// sortedKeys returns the keys of obj in order.
func sortedKeys(obj ir.IRObject) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// irText renders a value as canonical JSON.
func irText(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
