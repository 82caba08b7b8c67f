package cli

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/deliver/internal/ir"
	"github.com/roach88/deliver/internal/render"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	SessionOptions
	Event    int64
	Method   string
	Encoding string
	Compact  bool
	Exploded bool
	BaseURL  string
}

// RenderOutput is the JSON form of a rendered page.
type RenderOutput struct {
	ContentType string `json:"content_type"`
	Length      int64  `json:"length"`
	Body        string `json:"body"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{SessionOptions: SessionOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "render <session>",
		Short: "Render the page of a session event",
		Long: `Render the page of a session's latest event, or of an earlier one.

Earlier events render without any actions. The page is written to stdout
only once it rendered completely.

Example:
  deliver render 1 --token $TOKEN
  deliver render 1 --token $TOKEN --event 3 --method xhtml
  deliver render 2 --token $TOKEN --base-url /sessions/2 --encoding iso-8859-1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return opts.withEngine(cmd, func(ctx context.Context, e *engine, f *OutputFormatter) error {
				return runRender(ctx, e, f, opts, id)
			})
		},
	}

	opts.addSessionFlags(cmd)
	cmd.Flags().Int64Var(&opts.Event, "event", 0, "event to render (default: latest)")
	cmd.Flags().StringVar(&opts.Method, "method", string(render.MethodHTML5), "serialization method (html5|xhtml|xml)")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", "", "output encoding (overrides DELIVER_ENCODING)")
	cmd.Flags().BoolVar(&opts.Compact, "compact", false, "no indentation")
	cmd.Flags().BoolVar(&opts.Exploded, "exploded", false, "author view with the raw state snapshot")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "prefix of the action URLs embedded in the page")

	return cmd
}

func runRender(ctx context.Context, e *engine, f *OutputFormatter, opts *RenderOptions, id ir.SessionID) error {
	encoding := opts.Encoding
	if encoding == "" {
		encoding = opts.Config.Encoding
	}
	ropts := render.Options{
		Method:   render.Method(opts.Method),
		Encoding: encoding,
		Compact:  opts.Compact,
		Exploded: opts.Exploded,
		URLs:     actionURLs(opts.BaseURL),
	}
	return e.svc.RenderBuffered(ctx, id, opts.Token, ir.EventID(opts.Event), ropts, func(contentType string, length int64, r io.Reader) error {
		f.VerboseLog("rendered %d bytes of %s", length, contentType)
		if f.Format == "json" {
			body, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			return f.Success(RenderOutput{ContentType: contentType, Length: length, Body: string(body)})
		}
		_, err := io.Copy(f.Writer, r)
		return err
	})
}

// actionURLs derives the callback URLs of every action from a base.
// Parameterized actions end in "/" so the item key or event id can be
// appended.
func actionURLs(base string) render.URLs {
	if base == "" {
		return render.URLs{}
	}
	base = strings.TrimSuffix(base, "/")
	u := func(action string) string { return base + "/" + action }
	return render.URLs{
		Attempt:   u("attempt"),
		Close:     u("close"),
		Reinit:    u("reinit"),
		Reset:     u("reset"),
		Solution:  u("solution"),
		Playback:  u("playback/"),
		Terminate: u("terminate"),
		Result:    u("result"),
		Source:    u("source"),
		Exit:      u("exit"),

		EnterTest:       u("enter"),
		SelectMenu:      u("menu"),
		SelectItem:      u("select/"),
		FinishItem:      u("finish-item"),
		EndTestPart:     u("end-part"),
		ReviewTestPart:  u("review-part"),
		ReviewItem:      u("review/"),
		SolutionItem:    u("solution/"),
		AdvanceTestPart: u("advance-part"),
		ExitTest:        u("exit-test"),
	}
}
