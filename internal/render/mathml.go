package render

import (
	"encoding/xml"
	"fmt"
	"iter"
	"strings"
)

// infix maps content MathML operators to the presentation operator written
// between their arguments.
var infix = map[string]string{
	"plus":  "+",
	"minus": "-",
	"times": "×",
	"eq":    "=",
	"neq":   "≠",
	"lt":    "<",
	"gt":    ">",
	"leq":   "≤",
	"geq":   "≥",
	"and":   "∧",
	"or":    "∨",
}

// MathML rewrites content MathML inside math elements into presentation
// MathML. Each apply subtree is buffered, converted and re-emitted; all
// other tokens stream through unchanged.
func MathML(in iter.Seq2[xml.Token, error]) iter.Seq2[xml.Token, error] {
	return func(yield func(xml.Token, error) bool) {
		var (
			mathDepth  int
			applyDepth int
			buf        []xml.Token
		)
		for tok, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}

			switch t := tok.(type) {
			case xml.StartElement:
				if t.Name.Local == "math" {
					mathDepth++
				}
				if mathDepth > 0 && (applyDepth > 0 || t.Name.Local == "apply") {
					applyDepth++
					buf = append(buf, tok)
					continue
				}
				if mathDepth > 0 {
					tok = renameToken(t)
				}
			case xml.EndElement:
				if applyDepth > 0 {
					applyDepth--
					buf = append(buf, tok)
					if applyDepth > 0 {
						continue
					}
					out, err := convertApply(buf)
					buf = nil
					if err != nil {
						yield(nil, &Error{Stage: StageMath, Err: err})
						return
					}
					for _, o := range out {
						if !yield(o, nil) {
							return
						}
					}
					continue
				}
				if t.Name.Local == "math" {
					mathDepth--
				}
				if mathDepth > 0 {
					tok = renameEnd(t)
				}
			default:
				if applyDepth > 0 {
					buf = append(buf, tok)
					continue
				}
			}
			if !yield(tok, nil) {
				return
			}
		}
		if applyDepth > 0 {
			yield(nil, &Error{Stage: StageMath, Err: fmt.Errorf("unterminated apply")})
		}
	}
}

func renameToken(t xml.StartElement) xml.Token {
	switch t.Name.Local {
	case "ci":
		t.Name.Local = "mi"
	case "cn":
		t.Name.Local = "mn"
	}
	return t
}

func renameEnd(t xml.EndElement) xml.Token {
	switch t.Name.Local {
	case "ci":
		t.Name.Local = "mi"
	case "cn":
		t.Name.Local = "mn"
	}
	return t
}

// mnode is a buffered MathML subtree. Element nodes have start set; other
// nodes carry a single token.
type mnode struct {
	start *xml.StartElement
	kids  []*mnode
	tok   xml.Token
}

func buildTree(tokens []xml.Token) (*mnode, error) {
	root := &mnode{}
	stack := []*mnode{root}
	for _, tok := range tokens {
		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			n := &mnode{start: &t}
			top.kids = append(top.kids, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 1 || top.start.Name.Local != t.Name.Local {
				return nil, fmt.Errorf("mismatched </%s>", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		default:
			top.kids = append(top.kids, &mnode{tok: tok})
		}
	}
	if len(stack) != 1 || len(root.kids) != 1 {
		return nil, fmt.Errorf("malformed apply")
	}
	return root.kids[0], nil
}

func convertApply(tokens []xml.Token) ([]xml.Token, error) {
	tree, err := buildTree(tokens)
	if err != nil {
		return nil, err
	}
	var out []xml.Token
	present(tree, false, &out)
	return out, nil
}

// elements returns the element children of n.
func (n *mnode) elements() []*mnode {
	var els []*mnode
	for _, k := range n.kids {
		if k.start != nil {
			els = append(els, k)
		}
	}
	return els
}

func (n *mnode) text() string {
	var sb strings.Builder
	for _, k := range n.kids {
		if cd, ok := k.tok.(xml.CharData); ok {
			sb.Write(cd)
		}
	}
	return strings.TrimSpace(sb.String())
}

// present appends the presentation form of n. nested wraps infix
// expressions in parentheses.
func present(n *mnode, nested bool, out *[]xml.Token) {
	if n.start == nil {
		*out = append(*out, n.tok)
		return
	}
	prefix := n.start.Name.Space
	switch n.start.Name.Local {
	case "ci":
		leaf(prefix, "mi", n.text(), out)
		return
	case "cn":
		leaf(prefix, "mn", n.text(), out)
		return
	case "apply":
	default:
		*out = append(*out, *n.start)
		for _, k := range n.kids {
			present(k, false, out)
		}
		*out = append(*out, n.start.End())
		return
	}

	els := n.elements()
	if len(els) == 0 {
		return
	}
	op, args := els[0], els[1:]
	opName := ""
	if len(op.kids) == 0 {
		opName = op.start.Name.Local
	}

	switch {
	case opName == "divide" && len(args) == 2:
		wrapped(prefix, "mfrac", args, out)
	case opName == "power" && len(args) == 2:
		wrapped(prefix, "msup", args, out)
	case opName == "root" && len(args) == 1:
		wrapped(prefix, "msqrt", args, out)
	case opName == "minus" && len(args) == 1:
		open(prefix, "mrow", out)
		leaf(prefix, "mo", "-", out)
		present(args[0], true, out)
		closeEl(prefix, "mrow", out)
	case infix[opName] != "":
		open(prefix, "mrow", out)
		if nested {
			leaf(prefix, "mo", "(", out)
		}
		for i, a := range args {
			if i > 0 {
				leaf(prefix, "mo", infix[opName], out)
			}
			present(a, true, out)
		}
		if nested {
			leaf(prefix, "mo", ")", out)
		}
		closeEl(prefix, "mrow", out)
	default:
		// Function application: f(a, b).
		open(prefix, "mrow", out)
		if opName != "" {
			leaf(prefix, "mi", opName, out)
		} else {
			present(op, true, out)
		}
		leaf(prefix, "mo", "(", out)
		for i, a := range args {
			if i > 0 {
				leaf(prefix, "mo", ",", out)
			}
			present(a, false, out)
		}
		leaf(prefix, "mo", ")", out)
		closeEl(prefix, "mrow", out)
	}
}

func wrapped(prefix, name string, args []*mnode, out *[]xml.Token) {
	open(prefix, name, out)
	for _, a := range args {
		present(a, false, out)
	}
	closeEl(prefix, name, out)
}

func open(prefix, local string, out *[]xml.Token) {
	*out = append(*out, xml.StartElement{Name: xml.Name{Space: prefix, Local: local}})
}

func closeEl(prefix, local string, out *[]xml.Token) {
	*out = append(*out, xml.EndElement{Name: xml.Name{Space: prefix, Local: local}})
}

func leaf(prefix, local, text string, out *[]xml.Token) {
	open(prefix, local, out)
	*out = append(*out, xml.CharData(text))
	closeEl(prefix, local, out)
}
