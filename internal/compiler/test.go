package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/deliver/internal/ir"
)

// CompileTest parses a CUE value into a TestDefinition.
func CompileTest(v cue.Value) (*ir.TestDefinition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &ir.TestDefinition{Identifier: label(v), Source: sourceOf(v)}
	var err error
	if def.Title, err = optionalString(v, "title"); err != nil {
		return nil, err
	}

	partsVal := v.LookupPath(cue.ParsePath("parts"))
	if !partsVal.Exists() {
		return nil, &CompileError{Field: "parts", Message: "at least one test part is required", Pos: v.Pos()}
	}
	iter, err := partsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		part, err := parsePart(iter.Value())
		if err != nil {
			return nil, err
		}
		def.Parts = append(def.Parts, part)
	}
	if len(def.Parts) == 0 {
		return nil, &CompileError{Field: "parts", Message: "at least one test part is required", Pos: partsVal.Pos()}
	}
	return def, nil
}

func parsePart(v cue.Value) (ir.TestPartDef, error) {
	var part ir.TestPartDef
	var err error
	if part.Identifier, err = requiredString(v, "identifier"); err != nil {
		return part, err
	}

	nav, err := optionalString(v, "navigation")
	if err != nil {
		return part, err
	}
	switch strings.ToUpper(nav) {
	case "", string(ir.NavigationLinear):
		part.Navigation = ir.NavigationLinear
	case string(ir.NavigationNonlinear):
		part.Navigation = ir.NavigationNonlinear
	default:
		return part, &CompileError{
			Field:   "navigation",
			Message: fmt.Sprintf("navigation must be linear or nonlinear, got %q", nav),
			Pos:     v.Pos(),
		}
	}

	if _, err := decodeOptional(v, "control", &part.Control); err != nil {
		return part, err
	}

	secVal := v.LookupPath(cue.ParsePath("sections"))
	if !secVal.Exists() {
		return part, &CompileError{Field: "sections", Message: "a test part needs at least one section", Pos: v.Pos()}
	}
	iter, err := secVal.List()
	if err != nil {
		return part, formatCUEError(err)
	}
	for iter.Next() {
		sec, err := parseSection(iter.Value())
		if err != nil {
			return part, err
		}
		part.Sections = append(part.Sections, sec)
	}
	return part, nil
}

func parseSection(v cue.Value) (ir.SectionDef, error) {
	var sec ir.SectionDef
	var err error
	if sec.Identifier, err = requiredString(v, "identifier"); err != nil {
		return sec, err
	}
	if sec.Title, err = optionalString(v, "title"); err != nil {
		return sec, err
	}

	itemsVal := v.LookupPath(cue.ParsePath("items"))
	if !itemsVal.Exists() {
		return sec, nil
	}
	iter, err := itemsVal.List()
	if err != nil {
		return sec, formatCUEError(err)
	}
	for iter.Next() {
		rv := iter.Value()
		var ref ir.ItemRefDef
		if ref.Identifier, err = requiredString(rv, "identifier"); err != nil {
			return sec, err
		}
		if ref.Item, err = requiredString(rv, "item"); err != nil {
			return sec, err
		}
		var control ir.ItemSessionControl
		ok, err := decodeOptional(rv, "control", &control)
		if err != nil {
			return sec, err
		}
		if ok {
			ref.Control = &control
		}
		sec.ItemRefs = append(sec.ItemRefs, ref)
	}
	return sec, nil
}
