package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/deliver/internal/delivery"
	"github.com/roach88/deliver/internal/ir"
)

// NewTestCommand creates the test command group.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Navigate a test session",
		Long: `Navigate a test session.

Linear parts are walked with finish-item; nonlinear parts with the item
menu and select-item. Ended parts may be reviewed before advancing.

Example:
  deliver test enter 2 --token $TOKEN
  deliver test select-item 2 Q1 --token $TOKEN
  deliver test respond 2 --token $TOKEN --responses '{"RESPONSE":["B"]}'
  deliver test end-part 2 --token $TOKEN`,
	}

	cmd.AddCommand(
		opts.transitionCommand("enter", "Enter the first test part", func(e *engine) sessionOp { return e.svc.EnterTest }),
		opts.transitionCommand("menu", "Show the item menu of a nonlinear part", func(e *engine) sessionOp { return e.svc.SelectNavigationMenu }),
		newItemKeyCommand(opts, "select-item", "Jump to an item of the current nonlinear part", func(e *engine) itemKeyOp { return e.svc.SelectItem }),
		opts.transitionCommand("finish-item", "Close the current item of a linear part and move on", func(e *engine) sessionOp { return e.svc.FinishItem }),
		newRespondCommand(opts),
		opts.transitionCommand("end-part", "End the current nonlinear part", func(e *engine) sessionOp { return e.svc.EndTestPart }),
		opts.transitionCommand("review-part", "Return to the feedback of the ended part", func(e *engine) sessionOp { return e.svc.ReviewTestPart }),
		newItemKeyCommand(opts, "review-item", "Review an item of the ended part", func(e *engine) itemKeyOp { return e.svc.ReviewItem }),
		newItemKeyCommand(opts, "solution-item", "Show the solution of an item of the ended part", func(e *engine) itemKeyOp { return e.svc.RequestSolution }),
		opts.transitionCommand("advance-part", "Move on from the ended part", func(e *engine) sessionOp { return e.svc.AdvanceTestPart }),
		opts.transitionCommand("exit", "Leave the test, ending it if needed", func(e *engine) sessionOp { return e.svc.ExitTest }),
		newResultCommand(opts, ir.DeliveryTest),
		newSourceCommand(opts),
	)
	return cmd
}

// itemKeyOp is a test transition naming an item.
type itemKeyOp func(ctx context.Context, id ir.SessionID, token string, key ir.NodeKey) (delivery.Transition, error)

func newItemKeyCommand(parent *SessionOptions, use, short string, op func(*engine) itemKeyOp) *cobra.Command {
	opts := &SessionOptions{RootOptions: parent.RootOptions}
	cmd := &cobra.Command{
		Use:   use + " <session> <item>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return opts.withEngine(cmd, func(ctx context.Context, e *engine, f *OutputFormatter) error {
				t, err := op(e)(ctx, id, opts.Token, ir.NodeKey(args[1]))
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

func newRespondCommand(parent *SessionOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: parent.RootOptions}
	cmd := &cobra.Command{
		Use:   "respond <session>",
		Short: "Submit responses for the current item",
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
				t, err := e.svc.HandleTestResponses(ctx, id, opts.Token, responses)
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
