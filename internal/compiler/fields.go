package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/format"
)

// label returns the last selector of v's path, the identifier of a struct
// declared as `item: <id>: {...}`.
func label(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return sels[len(sels)-1].String()
}

// requiredString reads a string field that must be present.
func requiredString(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// optionalString reads a string field, returning "" when absent.
func optionalString(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// optionalInt reads an integer field. Floats are rejected.
func optionalInt(v cue.Value, field string) (int64, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return 0, nil
	}
	return intValue(f, field)
}

// intValue reads f as an integer. Floats are rejected.
func intValue(f cue.Value, field string) (int64, error) {
	if k := f.IncompleteKind(); k != cue.IntKind {
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be an int, got %v (floats are forbidden)", k),
			Pos:     f.Pos(),
		}
	}
	n, err := f.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return nil, nil
	}
	iter, err := f.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// decodeOptional decodes field into dst using its json tags when present.
func decodeOptional(v cue.Value, field string, dst any) (bool, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return false, nil
	}
	if err := f.Decode(dst); err != nil {
		return false, formatCUEError(err)
	}
	return true, nil
}

// sourceOf formats v back to CUE text.
func sourceOf(v cue.Value) string {
	src, err := format.Node(v.Syntax(cue.Docs(true)))
	if err != nil {
		return ""
	}
	return string(src)
}
