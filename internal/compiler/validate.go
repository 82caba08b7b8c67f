package compiler

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/roach88/deliver/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// Item errors (E101-E109)
	ErrItemBodyEmpty          = "E101" // body is required
	ErrDuplicateIdentifier    = "E102" // duplicate response/outcome/template/node identifier
	ErrUndeclaredResponse     = "E103" // interaction references an undeclared response
	ErrInvalidBaseType        = "E104" // unknown base type or cardinality
	ErrInvalidTemplateRange   = "E105" // template min > max
	ErrInvalidChoiceBounds    = "E106" // min_choices/max_choices out of range
	ErrInvalidPatternMask     = "E107" // pattern mask does not compile
	ErrCorrectNotAChoice      = "E108" // correct value is not a choice
	ErrSingleCardinalityValue = "E109" // several correct values for a single response

	// Test errors (E110-E119)
	ErrUnknownItem   = "E110" // item ref names an unknown item
	ErrEmptyTestPart = "E111" // test part without item refs

	// Delivery errors (E120-E129)
	ErrUnknownAssessment = "E120" // delivery names an unknown item/test
	ErrNegativeAttempts  = "E121" // max_attempts < 0
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled item, test or delivery on its own.
// Returns all errors found (does not fail-fast). Cross references between
// them are checked by ValidateBundle.
func Validate(v any) []ValidationError {
	switch def := v.(type) {
	case *ir.ItemDefinition:
		return validateItem(def)
	case *ir.TestDefinition:
		return validateTest(def)
	case *ir.Delivery:
		return validateDelivery(def)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateItem(def *ir.ItemDefinition) []ValidationError {
	var errs []ValidationError
	field := func(f string) string { return "item." + def.Identifier + "." + f }

	if def.Body == "" {
		errs = append(errs, ValidationError{Field: field("body"), Message: "body is required", Code: ErrItemBodyEmpty})
	}

	seen := map[string]bool{}
	declared := map[string]ir.ResponseDeclaration{}
	for _, r := range def.Responses {
		if seen[r.Identifier] {
			errs = append(errs, ValidationError{Field: field("responses"), Message: fmt.Sprintf("duplicate identifier %q", r.Identifier), Code: ErrDuplicateIdentifier})
		}
		seen[r.Identifier] = true
		declared[r.Identifier] = r

		switch r.BaseType {
		case ir.BaseIdentifier, ir.BaseString, ir.BaseInteger, ir.BaseBoolean:
		default:
			errs = append(errs, ValidationError{Field: field("responses." + r.Identifier), Message: fmt.Sprintf("unknown base type %q", r.BaseType), Code: ErrInvalidBaseType})
		}
		switch r.Cardinality {
		case ir.CardinalitySingle, ir.CardinalityMultiple, ir.CardinalityOrdered:
		default:
			errs = append(errs, ValidationError{Field: field("responses." + r.Identifier), Message: fmt.Sprintf("unknown cardinality %q", r.Cardinality), Code: ErrInvalidBaseType})
		}
		if r.Cardinality == ir.CardinalitySingle && len(r.Correct) > 1 {
			errs = append(errs, ValidationError{Field: field("responses." + r.Identifier + ".correct"), Message: "single cardinality allows one correct value", Code: ErrSingleCardinalityValue})
		}
	}
	for _, o := range def.Outcomes {
		if seen[o.Identifier] {
			errs = append(errs, ValidationError{Field: field("outcomes"), Message: fmt.Sprintf("duplicate identifier %q", o.Identifier), Code: ErrDuplicateIdentifier})
		}
		seen[o.Identifier] = true
	}
	for _, t := range def.Templates {
		if seen[t.Identifier] {
			errs = append(errs, ValidationError{Field: field("templates"), Message: fmt.Sprintf("duplicate identifier %q", t.Identifier), Code: ErrDuplicateIdentifier})
		}
		seen[t.Identifier] = true
		if t.Min > t.Max {
			errs = append(errs, ValidationError{Field: field("templates." + t.Identifier), Message: fmt.Sprintf("min %d exceeds max %d", t.Min, t.Max), Code: ErrInvalidTemplateRange})
		}
	}

	for i, in := range def.Interactions {
		f := field(fmt.Sprintf("interactions[%d]", i))
		decl, ok := declared[in.ResponseIdentifier]
		if !ok {
			errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("response %q is not declared", in.ResponseIdentifier), Code: ErrUndeclaredResponse})
			continue
		}
		switch in.Kind {
		case ir.InteractionChoice:
			if in.MinChoices < 0 || in.MaxChoices < 0 || (in.MaxChoices > 0 && in.MinChoices > in.MaxChoices) || in.MinChoices > len(in.Choices) {
				errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("choice bounds [%d, %d] invalid for %d choices", in.MinChoices, in.MaxChoices, len(in.Choices)), Code: ErrInvalidChoiceBounds})
			}
			for _, c := range decl.Correct {
				if !slices.Contains(in.Choices, c) {
					errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("correct value %q is not a choice", c), Code: ErrCorrectNotAChoice})
				}
			}
		case ir.InteractionText:
			if in.PatternMask != "" {
				if _, err := regexp.Compile(in.PatternMask); err != nil {
					errs = append(errs, ValidationError{Field: f, Message: err.Error(), Code: ErrInvalidPatternMask})
				}
			}
		}
	}
	return errs
}

func validateTest(def *ir.TestDefinition) []ValidationError {
	var errs []ValidationError
	seen := map[string]bool{def.Identifier: true}
	check := func(id, where string) {
		if seen[id] {
			errs = append(errs, ValidationError{Field: "test." + def.Identifier + "." + where, Message: fmt.Sprintf("duplicate identifier %q", id), Code: ErrDuplicateIdentifier})
		}
		seen[id] = true
	}

	for _, part := range def.Parts {
		check(part.Identifier, "parts")
		items := 0
		for _, sec := range part.Sections {
			check(sec.Identifier, "sections")
			for _, ref := range sec.ItemRefs {
				check(ref.Identifier, "items")
				items++
			}
		}
		if items == 0 {
			errs = append(errs, ValidationError{Field: "test." + def.Identifier + "." + part.Identifier, Message: "test part has no items", Code: ErrEmptyTestPart})
		}
	}
	return errs
}

func validateDelivery(d *ir.Delivery) []ValidationError {
	var errs []ValidationError
	if d.Item != nil && d.Item.MaxAttempts < 0 {
		errs = append(errs, ValidationError{Field: "delivery." + d.ID + ".settings.max_attempts", Message: "must not be negative", Code: ErrNegativeAttempts})
	}
	return errs
}

// ValidateBundle validates every definition of b and the references
// between them.
func ValidateBundle(b *Bundle) []ValidationError {
	var errs []ValidationError
	items := map[string]bool{}
	tests := map[string]bool{}
	for _, it := range b.Items {
		items[it.Identifier] = true
		errs = append(errs, Validate(it)...)
	}
	for _, t := range b.Tests {
		tests[t.Identifier] = true
		errs = append(errs, Validate(t)...)
		for _, part := range t.Parts {
			for _, sec := range part.Sections {
				for _, ref := range sec.ItemRefs {
					if !items[ref.Item] {
						errs = append(errs, ValidationError{Field: "test." + t.Identifier + "." + ref.Identifier, Message: fmt.Sprintf("unknown item %q", ref.Item), Code: ErrUnknownItem})
					}
				}
			}
		}
	}
	for _, d := range b.Deliveries {
		errs = append(errs, Validate(d)...)
		known := items[d.AssessmentRef]
		if d.Kind == ir.DeliveryTest {
			known = tests[d.AssessmentRef]
		}
		if !known {
			errs = append(errs, ValidationError{Field: "delivery." + d.ID + ".assessment", Message: fmt.Sprintf("unknown %s %q", d.Kind, d.AssessmentRef), Code: ErrUnknownAssessment})
		}
	}
	return errs
}
