package render

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Method is the serialization method of the output.
type Method string

const (
	MethodHTML5 Method = "html5"
	MethodXHTML Method = "xhtml"
	MethodXML   Method = "xml"
)

// Options controls serialization of one render.
type Options struct {
	Method   Method // default HTML5
	Encoding string // any WHATWG encoding label, default UTF-8
	Compact  bool   // no indentation
	URLs     URLs

	// Exploded asks for the author view, which adds the raw state
	// snapshot to every non-terminated page.
	Exploded bool
}

// URLs are the callback URLs embedded in the output for each next action.
// URLs that take an argument (item key, event id) are prefixes the
// stylesheet appends the argument to.
type URLs struct {
	Attempt   string `json:"attempt,omitempty"`
	Close     string `json:"close,omitempty"`
	Reinit    string `json:"reinit,omitempty"`
	Reset     string `json:"reset,omitempty"`
	Solution  string `json:"solution,omitempty"`
	Playback  string `json:"playback,omitempty"`
	Terminate string `json:"terminate,omitempty"`
	Result    string `json:"result,omitempty"`
	Source    string `json:"source,omitempty"`
	Exit      string `json:"exit,omitempty"`

	EnterTest       string `json:"enter_test,omitempty"`
	SelectMenu      string `json:"select_menu,omitempty"`
	SelectItem      string `json:"select_item,omitempty"`
	FinishItem      string `json:"finish_item,omitempty"`
	EndTestPart     string `json:"end_test_part,omitempty"`
	ReviewTestPart  string `json:"review_test_part,omitempty"`
	ReviewItem      string `json:"review_item,omitempty"`
	SolutionItem    string `json:"solution_item,omitempty"`
	AdvanceTestPart string `json:"advance_test_part,omitempty"`
	ExitTest        string `json:"exit_test,omitempty"`
}

func (o Options) method() Method {
	if o.Method == "" {
		return MethodHTML5
	}
	return o.Method
}

// ContentType returns the MIME type and charset of output rendered with o.
func (o Options) ContentType() (string, error) {
	_, charset, err := lookupEncoding(o.Encoding)
	if err != nil {
		return "", err
	}
	var mime string
	switch o.method() {
	case MethodHTML5:
		mime = "text/html"
	case MethodXHTML:
		mime = "application/xhtml+xml"
	case MethodXML:
		mime = "application/xml"
	default:
		return "", fmt.Errorf("unknown serialization method %q", o.Method)
	}
	return mime + "; charset=" + charset, nil
}

// lookupEncoding resolves an encoding label and its canonical name.
func lookupEncoding(label string) (encoding.Encoding, string, error) {
	if label == "" {
		label = "utf-8"
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, "", fmt.Errorf("encoding %q: %w", label, err)
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		return nil, "", fmt.Errorf("encoding %q: %w", label, err)
	}
	return enc, name, nil
}
