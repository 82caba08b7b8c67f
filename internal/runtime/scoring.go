package runtime

import (
	"slices"
	"strings"

	"github.com/roach88/deliver/internal/ir"
)

// score computes outcomes from the bound responses. Each declaration
// contributes its mapped sum, or 1 if it matches the correct response.
func (c *controller) score() ir.IRObject {
	outcomes := c.defaultOutcomes()
	var total int64
	for _, decl := range c.def.Responses {
		given := ir.StringsOf(c.state.Responses[decl.Identifier])
		switch {
		case len(decl.Mapping) > 0:
			seen := map[string]bool{}
			for _, v := range given {
				if seen[v] {
					continue
				}
				seen[v] = true
				total += decl.Mapping[v]
			}
		case len(decl.Correct) > 0:
			if c.matches(decl, given) {
				total++
			}
		}
	}
	if _, ok := outcomes[OutcomeScore]; ok || len(c.def.Outcomes) == 0 {
		outcomes[OutcomeScore] = ir.IRInt(total)
	}
	return outcomes
}

func (c *controller) matches(decl ir.ResponseDeclaration, given []string) bool {
	want := make([]string, len(decl.Correct))
	for i, v := range decl.Correct {
		want[i] = c.resolveTemplateRef(v)
	}
	if len(want) != len(given) {
		return false
	}
	if decl.Cardinality == ir.CardinalityMultiple {
		want = slices.Sorted(slices.Values(want))
		given = slices.Sorted(slices.Values(given))
	}
	return slices.Equal(want, given)
}

// resolveTemplateRef replaces "$NAME" with the value of template variable
// NAME, so correct responses can depend on randomized content.
func (c *controller) resolveTemplateRef(v string) string {
	name, ok := strings.CutPrefix(v, "$")
	if !ok {
		return v
	}
	tv, ok := c.state.TemplateValues[name]
	if !ok {
		return v
	}
	if s := ir.StringsOf(tv); len(s) == 1 {
		return s[0]
	}
	return v
}
