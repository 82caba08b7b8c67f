package render

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"iter"
	"text/template"
)

// Stylesheet executes tmpl against data and yields the tokens of its
// output. The template runs in its own goroutine writing into a pipe; when
// the consumer stops early the pipe is closed and the execution fails fast.
func Stylesheet(ctx context.Context, tmpl *template.Template, data any) iter.Seq2[xml.Token, error] {
	return func(yield func(xml.Token, error) bool) {
		pr, pw := io.Pipe()
		go func() {
			err := tmpl.Execute(pw, data)
			if err != nil {
				err = &Error{Stage: StageStylesheet, Err: err}
			}
			pw.CloseWithError(err)
		}()
		defer pr.Close()

		for tok, err := range Tokens(pr) {
			if err == nil {
				err = ctx.Err()
			}
			if !yield(tok, err) || err != nil {
				return
			}
		}
	}
}

// Tokens lazily tokenizes XML read from r. Namespace prefixes are kept as
// written. Tokens are copied, so they stay valid after the next one is read.
func Tokens(r io.Reader) iter.Seq2[xml.Token, error] {
	return func(yield func(xml.Token, error) bool) {
		dec := xml.NewDecoder(r)
		dec.Strict = true
		dec.Entity = xml.HTMLEntity
		for {
			tok, err := dec.RawToken()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				var re *Error
				if !errors.As(err, &re) {
					err = &Error{Stage: StageParse, Err: err}
				}
				yield(nil, err)
				return
			}
			if !yield(xml.CopyToken(tok), nil) {
				return
			}
		}
	}
}
