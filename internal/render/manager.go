package render

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"text/template"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

//go:embed stylesheets/*.tmpl
var embedded embed.FS

// DefaultStylesheets returns the embedded stylesheets.
func DefaultStylesheets() fs.FS {
	sub, err := fs.Sub(embedded, "stylesheets")
	if err != nil {
		panic(err)
	}
	return sub
}

// Manager compiles stylesheets on first use and renders requests.
//
// Thread-safety: safe for concurrent use. Compiled templates are shared;
// concurrent first uses of a name compile it once.
type Manager struct {
	fsys   fs.FS
	log    *slog.Logger
	tracer trace.Tracer
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTracerProvider sets the provider render spans are started from.
// The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) ManagerOption {
	return func(m *Manager) { m.tracer = tp.Tracer(tracerName) }
}

const tracerName = "github.com/roach88/deliver/internal/render"

// NewManager returns a manager reading stylesheets from fsys, or from the
// embedded defaults if fsys is nil.
func NewManager(fsys fs.FS, log *slog.Logger, opts ...ManagerOption) *Manager {
	if fsys == nil {
		fsys = DefaultStylesheets()
	}
	if log == nil {
		log = slog.Default()
	}
	m := &Manager{
		fsys:  fsys,
		log:   log,
		cache: make(map[string]*template.Template),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer(tracerName)
	}
	return m
}

var funcs = template.FuncMap{
	// raw inserts markup without escaping.
	"raw": func(v any) string {
		switch s := v.(type) {
		case []byte:
			return string(s)
		case string:
			return s
		default:
			return fmt.Sprint(v)
		}
	},
	"xml": func(v any) string {
		return attrEscaper.Replace(fmt.Sprint(v))
	},
	"lower": func(v any) string {
		return strings.ToLower(fmt.Sprint(v))
	},
}

// Stylesheet returns the compiled stylesheet with the given name.
func (m *Manager) Stylesheet(name string) (*template.Template, error) {
	m.mu.RLock()
	tmpl, ok := m.cache[name]
	m.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	v, err, _ := m.group.Do(name, func() (any, error) {
		tmpl, err := m.compile(name)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.cache[name] = tmpl
		m.mu.Unlock()
		m.log.Debug("stylesheet compiled", "stylesheet", name)
		return tmpl, nil
	})
	if err != nil {
		return nil, &Error{Stylesheet: name, Stage: StageCompile, Err: err}
	}
	return v.(*template.Template), nil
}

func (m *Manager) compile(name string) (*template.Template, error) {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.HasPrefix(name, "_") {
		return nil, fmt.Errorf("invalid stylesheet name %q", name)
	}
	file := name + ".tmpl"
	tmpl, err := template.New(file).Funcs(funcs).ParseFS(m.fsys, file)
	if err != nil {
		return nil, err
	}
	partials, err := fs.Glob(m.fsys, "_*.tmpl")
	if err != nil {
		return nil, err
	}
	if len(partials) > 0 {
		if tmpl, err = tmpl.ParseFS(m.fsys, partials...); err != nil {
			return nil, err
		}
	}
	return tmpl, nil
}

// Render runs req through the pipeline and writes the result to sink.
// For HTML5 and XHTML the doctype preamble is written first, through the
// same encoder as the rest of the output.
func (m *Manager) Render(ctx context.Context, req Request, opts Options, sink io.Writer) (err error) {
	ctx, span := m.tracer.Start(ctx, "render")
	span.SetAttributes(
		attribute.String("stylesheet", req.Stylesheet),
		attribute.String("mode", string(req.Mode)),
		attribute.String("method", string(opts.method())),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			m.log.ErrorContext(ctx, "render failed",
				"stylesheet", req.Stylesheet,
				"session", req.SessionID,
				"event", req.EventID,
				"error", err,
			)
		}
		span.End()
	}()

	enc, charset, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return &Error{Stylesheet: req.Stylesheet, Stage: StageEncode, Err: err}
	}
	switch opts.method() {
	case MethodHTML5, MethodXHTML, MethodXML:
	default:
		return &Error{Stylesheet: req.Stylesheet, Stage: StageSerialize, Err: fmt.Errorf("unknown serialization method %q", opts.Method)}
	}
	tmpl, err := m.Stylesheet(req.Stylesheet)
	if err != nil {
		return err
	}
	if len(req.Source) == 0 {
		req.Source = placeholder
	}

	out := transform.NewWriter(sink, encoding.HTMLEscapeUnsupported(enc.NewEncoder()))
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = &Error{Stylesheet: req.Stylesheet, Stage: StageEncode, Err: cerr}
		}
	}()

	if opts.method() != MethodXML {
		if _, err := io.WriteString(out, "<!DOCTYPE html>\n"); err != nil {
			return &Error{Stylesheet: req.Stylesheet, Stage: StageEncode, Err: err}
		}
	}

	tokens := Stylesheet(ctx, tmpl, view{Request: req, URLs: opts.URLs})
	tokens = MathML(tokens)
	if err := Serialize(out, tokens, opts, charset); err != nil {
		return wrap(req.Stylesheet, StageSerialize, err)
	}
	return nil
}

// IsError reports whether err is a rendering failure.
func IsError(err error) bool {
	var re *Error
	return errors.As(err, &re)
}
