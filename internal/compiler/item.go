package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/deliver/internal/ir"
)

// CompileItem parses a CUE value into an ItemDefinition.
//
// The CUE value should be the item struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`item: choice: { ... }`)
//	def, err := CompileItem(v.LookupPath(cue.ParsePath("item.choice")))
func CompileItem(v cue.Value) (*ir.ItemDefinition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &ir.ItemDefinition{Identifier: label(v), Source: sourceOf(v)}

	var err error
	if def.Title, err = optionalString(v, "title"); err != nil {
		return nil, err
	}
	if def.Body, err = requiredString(v, "body"); err != nil {
		return nil, err
	}
	if def.Responses, err = parseResponses(v); err != nil {
		return nil, err
	}
	if def.Outcomes, err = parseOutcomes(v); err != nil {
		return nil, err
	}
	if def.Templates, err = parseTemplates(v); err != nil {
		return nil, err
	}
	if def.Interactions, err = parseInteractions(v); err != nil {
		return nil, err
	}
	return def, nil
}

// parseResponses reads `responses: IDENT: {base_type, cardinality, correct?, mapping?}`.
func parseResponses(v cue.Value) ([]ir.ResponseDeclaration, error) {
	var out []ir.ResponseDeclaration
	respVal := v.LookupPath(cue.ParsePath("responses"))
	if !respVal.Exists() {
		return out, nil
	}

	iter, err := respVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		rv := iter.Value()
		decl := ir.ResponseDeclaration{Identifier: iter.Label()}

		bt, err := requiredString(rv, "base_type")
		if err != nil {
			return nil, err
		}
		decl.BaseType = ir.BaseType(bt)

		card, err := optionalString(rv, "cardinality")
		if err != nil {
			return nil, err
		}
		if card == "" {
			card = string(ir.CardinalitySingle)
		}
		decl.Cardinality = ir.Cardinality(card)

		if decl.Correct, err = stringList(rv, "correct"); err != nil {
			return nil, err
		}

		mapVal := rv.LookupPath(cue.ParsePath("mapping"))
		if mapVal.Exists() {
			decl.Mapping = map[string]int64{}
			mi, err := mapVal.Fields()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for mi.Next() {
				n, err := intValue(mi.Value(), "mapping."+mi.Label())
				if err != nil {
					return nil, err
				}
				decl.Mapping[mi.Label()] = n
			}
		}
		out = append(out, decl)
	}
	return out, nil
}

// parseOutcomes reads `outcomes: IDENT: {default?: int}`.
func parseOutcomes(v cue.Value) ([]ir.OutcomeDeclaration, error) {
	var out []ir.OutcomeDeclaration
	outVal := v.LookupPath(cue.ParsePath("outcomes"))
	if !outVal.Exists() {
		return out, nil
	}
	iter, err := outVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		n, err := optionalInt(iter.Value(), "default")
		if err != nil {
			return nil, err
		}
		out = append(out, ir.OutcomeDeclaration{Identifier: iter.Label(), Default: n})
	}
	return out, nil
}

// parseTemplates reads `templates: IDENT: {min: int, max: int}`.
func parseTemplates(v cue.Value) ([]ir.TemplateDeclaration, error) {
	var out []ir.TemplateDeclaration
	tv := v.LookupPath(cue.ParsePath("templates"))
	if !tv.Exists() {
		return out, nil
	}
	iter, err := tv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		decl := ir.TemplateDeclaration{Identifier: iter.Label()}
		if decl.Min, err = optionalInt(iter.Value(), "min"); err != nil {
			return nil, err
		}
		if decl.Max, err = optionalInt(iter.Value(), "max"); err != nil {
			return nil, err
		}
		out = append(out, decl)
	}
	return out, nil
}

// parseInteractions reads the interactions list.
func parseInteractions(v cue.Value) ([]ir.Interaction, error) {
	var out []ir.Interaction
	iv := v.LookupPath(cue.ParsePath("interactions"))
	if !iv.Exists() {
		return out, nil
	}
	iter, err := iv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		ev := iter.Value()
		var in ir.Interaction

		kind, err := requiredString(ev, "kind")
		if err != nil {
			return nil, err
		}
		in.Kind = ir.InteractionKind(strings.ToLower(kind))

		if in.ResponseIdentifier, err = requiredString(ev, "response"); err != nil {
			return nil, err
		}
		if in.Choices, err = stringList(ev, "choices"); err != nil {
			return nil, err
		}
		minC, err := optionalInt(ev, "min_choices")
		if err != nil {
			return nil, err
		}
		maxC, err := optionalInt(ev, "max_choices")
		if err != nil {
			return nil, err
		}
		in.MinChoices, in.MaxChoices = int(minC), int(maxC)
		if in.Required, err = optionalBool(ev, "required"); err != nil {
			return nil, err
		}
		if in.PatternMask, err = optionalString(ev, "pattern_mask"); err != nil {
			return nil, err
		}

		switch in.Kind {
		case ir.InteractionChoice, ir.InteractionText, ir.InteractionUpload:
		default:
			return nil, &CompileError{
				Field:   "interactions.kind",
				Message: fmt.Sprintf("unsupported interaction kind %q", kind),
				Pos:     ev.Pos(),
			}
		}
		out = append(out, in)
	}
	return out, nil
}
