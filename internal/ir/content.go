package ir

// ItemDefinition is a compiled assessment item.
type ItemDefinition struct {
	Identifier   string                `json:"identifier"`
	Title        string                `json:"title"`
	Body         string                `json:"body"` // XML markup; may embed content MathML
	Responses    []ResponseDeclaration `json:"responses"`
	Outcomes     []OutcomeDeclaration  `json:"outcomes"`
	Templates    []TemplateDeclaration `json:"templates,omitempty"`
	Interactions []Interaction         `json:"interactions,omitempty"`
	Source       string                `json:"-"` // authored source, served when a delivery allows it
}

// BaseType is the declared base type of a response variable.
type BaseType string

const (
	BaseIdentifier BaseType = "identifier"
	BaseString     BaseType = "string"
	BaseInteger    BaseType = "integer"
	BaseBoolean    BaseType = "boolean"
)

// Cardinality is the declared cardinality of a response variable.
type Cardinality string

const (
	CardinalitySingle   Cardinality = "single"
	CardinalityMultiple Cardinality = "multiple"
	CardinalityOrdered  Cardinality = "ordered"
)

// ResponseDeclaration declares a response variable and how it is scored.
// With a Mapping the score is the sum of mapped values of the response;
// otherwise a response equal to Correct scores 1.
type ResponseDeclaration struct {
	Identifier  string           `json:"identifier"`
	BaseType    BaseType         `json:"base_type"`
	Cardinality Cardinality      `json:"cardinality"`
	Correct     []string         `json:"correct,omitempty"`
	Mapping     map[string]int64 `json:"mapping,omitempty"`
}

// OutcomeDeclaration declares an outcome variable and its default.
type OutcomeDeclaration struct {
	Identifier string `json:"identifier"`
	Default    int64  `json:"default"`
}

// TemplateDeclaration declares an integer template variable drawn
// uniformly from [Min, Max] during template processing.
type TemplateDeclaration struct {
	Identifier string `json:"identifier"`
	Min        int64  `json:"min"`
	Max        int64  `json:"max"`
}

// InteractionKind names the interactions the reference runtime supports.
type InteractionKind string

const (
	InteractionChoice InteractionKind = "choice"
	InteractionText   InteractionKind = "text"
	InteractionUpload InteractionKind = "upload"
)

// Interaction constrains the response bound to ResponseIdentifier.
type Interaction struct {
	Kind               InteractionKind `json:"kind"`
	ResponseIdentifier string          `json:"response_identifier"`
	Choices            []string        `json:"choices,omitempty"`
	MinChoices         int             `json:"min_choices"`
	MaxChoices         int             `json:"max_choices"` // 0 means unbounded
	Required           bool            `json:"required"`
	PatternMask        string          `json:"pattern_mask,omitempty"` // text interactions
}

// TestDefinition is a compiled assessment test.
type TestDefinition struct {
	Identifier string        `json:"identifier"`
	Title      string        `json:"title"`
	Parts      []TestPartDef `json:"parts"`
	Source     string        `json:"-"`
}

// TestPartDef declares a test part.
type TestPartDef struct {
	Identifier string             `json:"identifier"`
	Navigation NavigationMode     `json:"navigation"`
	Control    ItemSessionControl `json:"control"`
	Sections   []SectionDef       `json:"sections"`
}

// SectionDef declares a section of item refs.
type SectionDef struct {
	Identifier string       `json:"identifier"`
	Title      string       `json:"title"`
	ItemRefs   []ItemRefDef `json:"item_refs"`
}

// ItemRefDef places an item in a section. A nil Control inherits the part's.
type ItemRefDef struct {
	Identifier string              `json:"identifier"`
	Item       string              `json:"item"`
	Control    *ItemSessionControl `json:"control,omitempty"`
}
