package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/deliver/internal/delivery"
	"github.com/roach88/deliver/internal/ir"
)

// SessionOptions holds the flags of commands acting on one session.
type SessionOptions struct {
	*RootOptions
	Token         string
	Responses     string // inline JSON payload
	ResponsesFile string // payload file, "-" for stdin
}

func (o *SessionOptions) addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Token, "token", "", "session token printed by launch (required)")
	_ = cmd.MarkFlagRequired("token")
}

func (o *SessionOptions) addResponseFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Responses, "responses", "", `JSON responses, e.g. '{"RESPONSE":["B"]}'`)
	cmd.Flags().StringVar(&o.ResponsesFile, "responses-file", "", `file holding JSON responses ("-" for stdin)`)
	cmd.MarkFlagsMutuallyExclusive("responses", "responses-file")
	cmd.MarkFlagsOneRequired("responses", "responses-file")
}

// payload reads and parses the submitted responses.
func (o *SessionOptions) payload(cmd *cobra.Command) (map[string]ir.ResponseData, error) {
	data := []byte(o.Responses)
	if o.ResponsesFile != "" {
		var err error
		if o.ResponsesFile == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(o.ResponsesFile)
		}
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read responses", err)
		}
	}
	return delivery.ParseResponsePayload(data)
}

// sessionOp is a transition taking the session id and token.
type sessionOp func(ctx context.Context, id ir.SessionID, token string) (delivery.Transition, error)

// transitionCommand builds a subcommand running one transition.
func (o *SessionOptions) transitionCommand(use, short string, op func(*engine) sessionOp) *cobra.Command {
	opts := &SessionOptions{RootOptions: o.RootOptions}
	cmd := &cobra.Command{
		Use:   use + " <session>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return opts.withEngine(cmd, func(ctx context.Context, e *engine, f *OutputFormatter) error {
				t, err := op(e)(ctx, id, opts.Token)
				if err != nil {
					return err
				}
				return f.Success(newTransitionOutput(t))
			})
		},
	}
	opts.addSessionFlags(cmd)
	return cmd
}

// NewItemCommand creates the item command group.
func NewItemCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "item",
		Short: "Act on a standalone item session",
		Long: `Act on a standalone item session.

Each subcommand is one candidate request. It is refused (exit code 2,
E_FORBIDDEN) when the delivery settings or the session state do not
allow it.

Example:
  deliver item attempt 1 --token $TOKEN --responses '{"RESPONSE":["B"]}'
  deliver item playback 1 --token $TOKEN --target 3
  deliver item result 1 --token $TOKEN --format json`,
	}

	cmd.AddCommand(
		newItemAttemptCommand(opts),
		opts.transitionCommand("close", "Close the item", func(e *engine) sessionOp { return e.svc.Close }),
		opts.transitionCommand("reinit", "Initialize the item again with fresh template values", func(e *engine) sessionOp { return e.svc.Reinit }),
		opts.transitionCommand("reset", "Return to the state after the last initialization", func(e *engine) sessionOp { return e.svc.Reset }),
		opts.transitionCommand("solution", "Show the model solution", func(e *engine) sessionOp { return e.svc.Solution }),
		newItemPlaybackCommand(opts),
		opts.transitionCommand("terminate", "End the session for good", func(e *engine) sessionOp { return e.svc.Terminate }),
		newResultCommand(opts, ir.DeliveryItem),
		newSourceCommand(opts),
	)
	return cmd
}

func newItemAttemptCommand(parent *SessionOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: parent.RootOptions}
	cmd := &cobra.Command{
		Use:   "attempt <session>",
		Short: "Submit responses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return opts.withEngine(cmd, func(ctx context.Context, e *engine, f *OutputFormatter) error {
				responses, err := opts.payload(cmd)
				if err != nil {
					return err
				}
				t, err := e.svc.Attempt(ctx, id, opts.Token, responses)
				if err != nil {
					return err
				}
				return f.Success(newTransitionOutput(t))
			})
		},
	}
	opts.addSessionFlags(cmd)
	opts.addResponseFlags(cmd)
	return cmd
}

func newItemPlaybackCommand(parent *SessionOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: parent.RootOptions}
	var target int64
	cmd := &cobra.Command{
		Use:   "playback <session>",
		Short: "Replay an earlier interaction of a closed item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return opts.withEngine(cmd, func(ctx context.Context, e *engine, f *OutputFormatter) error {
				t, err := e.svc.Playback(ctx, id, opts.Token, ir.EventID(target))
				if err != nil {
					return err
				}
				return f.Success(newTransitionOutput(t))
			})
		},
	}
	opts.addSessionFlags(cmd)
	cmd.Flags().Int64Var(&target, "target", 0, "id of the event to play back (required)")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

// ResultOutput is an assessment result.
type ResultOutput struct {
	Session     int64                  `json:"session"`
	Event       int64                  `json:"event"`
	Outcomes    ir.IRObject            `json:"outcomes"`
	ItemResults map[string]ir.IRObject `json:"item_results"`
}

func (r ResultOutput) String() string {
	s := fmt.Sprintf("session %d at event %d", r.Session, r.Event)
	for _, k := range sortedKeys(r.Outcomes) {
		s += fmt.Sprintf("\n  %s = %s", k, irText(r.Outcomes[k]))
	}
	return s
}

func newResultCommand(parent *SessionOptions, kind ir.DeliveryKind) *cobra.Command {
	opts := &SessionOptions{RootOptions: parent.RootOptions}
	cmd := &cobra.Command{
		Use:   "result <session>",
		Short: "Show the assessment result of the current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return opts.withEngine(cmd, func(ctx context.Context, e *engine, f *OutputFormatter) error {
				result := e.svc.ItemResult
				if kind == ir.DeliveryTest {
					result = e.svc.TestResult
				}
				r, err := result(ctx, id, opts.Token)
				if err != nil {
					return err
				}
				return f.Success(ResultOutput{
					Session:     int64(r.SessionID),
					Event:       int64(r.EventID),
					Outcomes:    r.Outcomes,
					ItemResults: r.ItemResults,
				})
			})
		},
	}
	opts.addSessionFlags(cmd)
	return cmd
}

func newSourceCommand(parent *SessionOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: parent.RootOptions}
	cmd := &cobra.Command{
		Use:   "source <session>",
		Short: "Print the authored source of the assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return opts.withEngine(cmd, func(ctx context.Context, e *engine, f *OutputFormatter) error {
				src, err := e.svc.Source(ctx, id, opts.Token)
				if err != nil {
					return err
				}
				return f.Success(src)
			})
		},
	}
	opts.addSessionFlags(cmd)
	return cmd
}
