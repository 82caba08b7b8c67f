package render

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"iter"
	"strings"
)

// voidElements are written without an end tag by the HTML5 method.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// rawTextElements hold unescaped text in HTML5.
var rawTextElements = map[string]bool{"script": true, "style": true}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

type frame struct {
	name        string
	hasElements bool
	hasText     bool
}

type serializer struct {
	w       *bufio.Writer
	method  Method
	indent  bool
	stack   []frame
	pending bool // start tag written without its closing '>'
}

// Serialize writes tokens to w using the method and indentation of opts.
// The XML method starts with a declaration naming charset. Whitespace-only
// text is dropped; end tags must match their start tags.
func Serialize(w io.Writer, tokens iter.Seq2[xml.Token, error], opts Options, charset string) error {
	s := &serializer{
		w:      bufio.NewWriter(w),
		method: opts.method(),
		indent: !opts.Compact,
	}
	if s.method == MethodXML {
		fmt.Fprintf(s.w, `<?xml version="1.0" encoding="%s"?>`, charset)
		s.w.WriteByte('\n')
	}

	for tok, err := range tokens {
		if err != nil {
			return err
		}
		if err := s.token(tok); err != nil {
			return &Error{Stage: StageSerialize, Err: err}
		}
	}
	if len(s.stack) > 0 {
		return &Error{Stage: StageSerialize, Err: fmt.Errorf("unclosed element <%s>", s.stack[len(s.stack)-1].name)}
	}
	if s.indent {
		s.w.WriteByte('\n')
	}
	if err := s.w.Flush(); err != nil {
		return &Error{Stage: StageEncode, Err: err}
	}
	return nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func (s *serializer) closePending() {
	if s.pending {
		s.w.WriteByte('>')
		s.pending = false
	}
}

func (s *serializer) newline(depth int) {
	if !s.indent {
		return
	}
	s.w.WriteByte('\n')
	for range depth {
		s.w.WriteString("  ")
	}
}

func (s *serializer) token(tok xml.Token) error {
	switch t := tok.(type) {
	case xml.StartElement:
		s.closePending()
		if n := len(s.stack); n > 0 {
			parent := &s.stack[n-1]
			parent.hasElements = true
			if !parent.hasText {
				s.newline(n)
			}
		}
		name := qualified(t.Name)
		s.w.WriteString("<" + name)
		for _, a := range t.Attr {
			s.w.WriteString(" " + qualified(a.Name) + `="` + attrEscaper.Replace(a.Value) + `"`)
		}
		s.stack = append(s.stack, frame{name: name})
		s.pending = true

	case xml.EndElement:
		n := len(s.stack)
		name := qualified(t.Name)
		if n == 0 || s.stack[n-1].name != name {
			return fmt.Errorf("unexpected </%s>", name)
		}
		top := s.stack[n-1]
		s.stack = s.stack[:n-1]
		if s.pending {
			s.pending = false
			switch {
			case s.method != MethodHTML5:
				s.w.WriteString("/>")
			case voidElements[t.Name.Local]:
				s.w.WriteByte('>')
			default:
				s.w.WriteString("></" + name + ">")
			}
			return nil
		}
		if top.hasElements && !top.hasText {
			s.newline(n - 1)
		}
		s.w.WriteString("</" + name + ">")

	case xml.CharData:
		if len(strings.TrimSpace(string(t))) == 0 {
			return nil
		}
		s.closePending()
		n := len(s.stack)
		if n > 0 {
			s.stack[n-1].hasText = true
		}
		if s.method == MethodHTML5 && n > 0 && rawTextElements[s.stack[n-1].name] {
			s.w.Write(t)
			return nil
		}
		s.w.WriteString(textEscaper.Replace(string(t)))

	case xml.Comment:
		s.closePending()
		s.w.WriteString("<!--" + string(t) + "-->")

	case xml.ProcInst, xml.Directive:
		// Declarations and doctypes come from the serializer itself.
	}
	return nil
}
