package runtime

import (
	"github.com/roach88/deliver/internal/ir"
)

func choiceItem() *ir.ItemDefinition {
	return &ir.ItemDefinition{
		Identifier: "choice",
		Title:      "Pick one",
		Body:       `<itemBody><p>Pick one</p></itemBody>`,
		Responses: []ir.ResponseDeclaration{
			{Identifier: "RESPONSE", BaseType: ir.BaseIdentifier, Cardinality: ir.CardinalitySingle, Correct: []string{"B"}},
		},
		Outcomes: []ir.OutcomeDeclaration{{Identifier: OutcomeScore}},
		Interactions: []ir.Interaction{
			{Kind: ir.InteractionChoice, ResponseIdentifier: "RESPONSE", Choices: []string{"A", "B", "C"}, MinChoices: 1, MaxChoices: 1, Required: true},
		},
		Source: "choice source",
	}
}

func multiItem() *ir.ItemDefinition {
	return &ir.ItemDefinition{
		Identifier: "multi",
		Responses: []ir.ResponseDeclaration{
			{Identifier: "RESPONSE", BaseType: ir.BaseIdentifier, Cardinality: ir.CardinalityMultiple, Mapping: map[string]int64{"A": 2, "C": 1, "D": -1}},
		},
		Outcomes: []ir.OutcomeDeclaration{{Identifier: OutcomeScore}},
		Interactions: []ir.Interaction{
			{Kind: ir.InteractionChoice, ResponseIdentifier: "RESPONSE", Choices: []string{"A", "B", "C", "D"}, MinChoices: 1, MaxChoices: 3},
		},
	}
}

func templateItem() *ir.ItemDefinition {
	return &ir.ItemDefinition{
		Identifier: "sum",
		Responses: []ir.ResponseDeclaration{
			{Identifier: "ANSWER", BaseType: ir.BaseInteger, Cardinality: ir.CardinalitySingle, Correct: []string{"$X"}},
		},
		Outcomes:  []ir.OutcomeDeclaration{{Identifier: OutcomeScore}},
		Templates: []ir.TemplateDeclaration{{Identifier: "X", Min: 1, Max: 100}},
		Interactions: []ir.Interaction{
			{Kind: ir.InteractionText, ResponseIdentifier: "ANSWER", Required: true, PatternMask: `[0-9]+`},
		},
	}
}

func uploadItem() *ir.ItemDefinition {
	return &ir.ItemDefinition{
		Identifier: "essay",
		Responses: []ir.ResponseDeclaration{
			{Identifier: "FILE", BaseType: ir.BaseString, Cardinality: ir.CardinalitySingle},
		},
		Interactions: []ir.Interaction{{Kind: ir.InteractionUpload, ResponseIdentifier: "FILE", Required: true}},
	}
}

func infoItem() *ir.ItemDefinition {
	return &ir.ItemDefinition{Identifier: "info", Title: "Read me", Body: `<itemBody><p>Info</p></itemBody>`}
}

func sampleTest() *ir.TestDefinition {
	skip := ir.ItemSessionControl{AllowSkipping: true}
	return &ir.TestDefinition{
		Identifier: "quiz",
		Title:      "Quiz & more",
		Source:     "quiz source",
		Parts: []ir.TestPartDef{
			{
				Identifier: "P1",
				Navigation: ir.NavigationNonlinear,
				Control:    ir.ItemSessionControl{AllowReview: true},
				Sections: []ir.SectionDef{{
					Identifier: "S1",
					Title:      "First",
					ItemRefs: []ir.ItemRefDef{
						{Identifier: "Q1", Item: "choice"},
						{Identifier: "Q2", Item: "info", Control: &skip},
					},
				}},
			},
			{
				Identifier: "P2",
				Navigation: ir.NavigationLinear,
				Sections: []ir.SectionDef{{
					Identifier: "S2",
					ItemRefs:   []ir.ItemRefDef{{Identifier: "Q3", Item: "multi"}},
				}},
			},
		},
	}
}

func sampleLibrary() *Library {
	return NewLibrary(
		[]*ir.ItemDefinition{choiceItem(), multiItem(), templateItem(), uploadItem(), infoItem()},
		[]*ir.TestDefinition{sampleTest()},
	)
}
