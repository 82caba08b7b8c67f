package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/deliver/internal/ir"
)

// CompileDelivery parses a CUE value into a Delivery:
//
//	delivery: practice: {
//		kind:       "item"
//		assessment: "choice"
//		settings: { allow_close: true, max_attempts: 3 }
//	}
func CompileDelivery(v cue.Value) (*ir.Delivery, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	d := &ir.Delivery{ID: label(v)}

	kind, err := requiredString(v, "kind")
	if err != nil {
		return nil, err
	}
	d.Kind = ir.DeliveryKind(strings.ToUpper(kind))
	if !d.Kind.Valid() {
		return nil, &CompileError{
			Field:   "kind",
			Message: fmt.Sprintf("kind must be item or test, got %q", kind),
			Pos:     v.Pos(),
		}
	}

	if d.AssessmentRef, err = requiredString(v, "assessment"); err != nil {
		return nil, err
	}
	if d.Title, err = optionalString(v, "title"); err != nil {
		return nil, err
	}

	switch d.Kind {
	case ir.DeliveryItem:
		d.Item = &ir.ItemDeliverySettings{}
		if _, err := decodeOptional(v, "settings", d.Item); err != nil {
			return nil, err
		}
	case ir.DeliveryTest:
		d.Test = &ir.TestDeliverySettings{}
		if _, err := decodeOptional(v, "settings", d.Test); err != nil {
			return nil, err
		}
	}
	return d, nil
}
