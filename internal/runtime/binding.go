package runtime

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/deliver/internal/ir"
)

// BindResponses binds each submitted response to its declaration.
// Undeclared identifiers, wrong data types, too many values for a single
// cardinality and unparseable values are unbound.
func (c *controller) BindResponses(now time.Time, responses map[string]ir.ResponseData) []string {
	c.touch(now)
	s := c.state
	if s.Responses == nil {
		s.Responses = ir.IRObject{}
	}
	s.RawResponses = map[string][]string{}
	unbound := []string{}

	ids := make([]string, 0, len(responses))
	for id := range responses {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		data := responses[id]
		if data.Type == ir.ResponseString {
			s.RawResponses[id] = append([]string(nil), data.Strings...)
		}
		value, ok := c.bind(id, data)
		if !ok {
			unbound = append(unbound, id)
			delete(s.Responses, id)
			continue
		}
		if value == nil {
			delete(s.Responses, id)
			continue
		}
		s.Responses[id] = value
	}

	s.UnboundResponseIdentifiers = unbound
	s.InvalidResponseIdentifiers = []string{}
	return unbound
}

// bind returns the bound value, nil for an empty single response, and
// false if the response cannot be bound.
func (c *controller) bind(id string, data ir.ResponseData) (ir.IRValue, bool) {
	decl, ok := c.declaration(id)
	if !ok {
		c.notes.Add(ir.NotificationWarning, id, "no response declaration for %q", id)
		return nil, false
	}

	if data.Type == ir.ResponseFile {
		in, ok := c.interaction(id)
		if !ok || in.Kind != ir.InteractionUpload || data.File == nil {
			c.notes.Add(ir.NotificationError, id, "file submitted for non-upload response")
			return nil, false
		}
		return ir.IRString(data.File.ID), true
	}
	if data.Type != ir.ResponseString {
		return nil, false
	}

	values := make(ir.IRArray, 0, len(data.Strings))
	for _, raw := range data.Strings {
		v, ok := parseBaseValue(decl.BaseType, raw)
		if !ok {
			c.notes.Add(ir.NotificationError, id, "cannot bind %q as %s", raw, decl.BaseType)
			return nil, false
		}
		values = append(values, v)
	}

	if decl.Cardinality == ir.CardinalitySingle {
		switch len(values) {
		case 0:
			return nil, true
		case 1:
			return values[0], true
		default:
			c.notes.Add(ir.NotificationError, id, "%d values submitted for single cardinality", len(values))
			return nil, false
		}
	}
	return values, true
}

func parseBaseValue(bt ir.BaseType, raw string) (ir.IRValue, bool) {
	switch bt {
	case ir.BaseString:
		return ir.IRString(raw), true
	case ir.BaseIdentifier:
		if raw == "" || strings.ContainsFunc(raw, isSpace) {
			return nil, false
		}
		return ir.IRString(raw), true
	case ir.BaseInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, false
		}
		return ir.IRInt(n), true
	case ir.BaseBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, false
		}
		return ir.IRBool(b), true
	default:
		return nil, false
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// ValidateResponses checks each interaction against its bound response.
func (c *controller) ValidateResponses() []string {
	invalid := []string{}
	for _, in := range c.def.Interactions {
		if !c.valid(in, c.state.Responses[in.ResponseIdentifier]) {
			invalid = append(invalid, in.ResponseIdentifier)
		}
	}
	slices.Sort(invalid)
	invalid = slices.Compact(invalid)
	c.state.InvalidResponseIdentifiers = invalid
	return invalid
}

func (c *controller) valid(in ir.Interaction, v ir.IRValue) bool {
	values := ir.StringsOf(v)
	if in.Required && len(values) == 0 {
		c.notes.Add(ir.NotificationInfo, in.ResponseIdentifier, "a response is required")
		return false
	}

	switch in.Kind {
	case ir.InteractionChoice:
		if len(values) < in.MinChoices || (in.MaxChoices > 0 && len(values) > in.MaxChoices) {
			c.notes.Add(ir.NotificationInfo, in.ResponseIdentifier, "select between %d and %d choices", in.MinChoices, in.MaxChoices)
			return false
		}
		for _, v := range values {
			if !slices.Contains(in.Choices, v) {
				c.notes.Add(ir.NotificationWarning, in.ResponseIdentifier, "%q is not a choice", v)
				return false
			}
		}
	case ir.InteractionText:
		if in.PatternMask == "" {
			return true
		}
		re, err := regexp.Compile("^(?:" + in.PatternMask + ")$")
		if err != nil {
			c.notes.Add(ir.NotificationError, in.ResponseIdentifier, "bad pattern mask: %v", err)
			return false
		}
		for _, v := range values {
			if !re.MatchString(v) {
				c.notes.Add(ir.NotificationInfo, in.ResponseIdentifier, "response does not match the expected format")
				return false
			}
		}
	case ir.InteractionUpload:
	}
	return true
}
