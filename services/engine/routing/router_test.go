// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-research/mentor/services/engine/datatypes"
)

func classified(t datatypes.InteractionType) datatypes.Classification {
	return datatypes.Classification{
		InteractionType:    t,
		UnderstandingLevel: datatypes.UnderstandingMedium,
		ConfidenceLevel:    datatypes.ConfidenceMedium,
		EngagementLevel:    datatypes.EngagementMedium,
		Status:             datatypes.StatusOK,
	}
}

func TestDecide_PriorityRules(t *testing.T) {
	tests := []struct {
		name      string
		in        Input
		wantRoute datatypes.Route
		wantRule  string
	}{
		{
			name: "first message wins over everything",
			in: Input{
				Classification: func() datatypes.Classification {
					c := classified(datatypes.TypeDirectAnswerRequest)
					c.IsFirstMessage = true
					c.CognitiveOffloadingDetected = true
					return c
				}(),
				UserInput: "Just tell me what to design.",
			},
			wantRoute: datatypes.RouteProgressiveOpening,
			wantRule:  "first_message_opening",
		},
		{
			name: "offloading intervention",
			in: Input{
				Classification: func() datatypes.Classification {
					c := classified(datatypes.TypeDirectAnswerRequest)
					c.CognitiveOffloadingDetected = true
					return c
				}(),
				UserInput: "Just tell me what to design for my community center.",
			},
			wantRoute: datatypes.RouteCognitiveIntervention,
			wantRule:  "offloading_intervention",
		},
		{
			name: "pure knowledge request",
			in: Input{
				Classification: classified(datatypes.TypeKnowledgeRequest),
				UserInput:      "What are the key principles of sustainable architecture?",
			},
			wantRoute: datatypes.RouteKnowledgeOnly,
			wantRule:  "pure_knowledge",
		},
		{
			name: "knowledge request about own design is not pure",
			in: Input{
				Classification: classified(datatypes.TypeKnowledgeRequest),
				UserInput:      "What are good materials for my design?",
			},
			wantRoute: datatypes.RouteBalancedGuidance,
			wantRule:  "default",
		},
		{
			name: "example request flagged",
			in: Input{
				Classification: classified(datatypes.TypeExampleRequest),
				UserInput:      "Show me examples of adaptive reuse community centers.",
			},
			wantRoute: datatypes.RouteKnowledgeOnly,
			wantRule:  "example_knowledge",
		},
		{
			name: "implementation request",
			in: Input{
				Classification: classified(datatypes.TypeImplementationReq),
				UserInput:      "How do I build a green roof?",
			},
			wantRoute: datatypes.RouteKnowledgeWithChallenge,
			wantRule:  "implementation_challenge",
		},
		{
			name: "feedback request",
			in: Input{
				Classification: classified(datatypes.TypeFeedbackRequest),
				UserInput:      "What do you think of my plan?",
			},
			wantRoute: datatypes.RouteMultiAgentComprehensive,
			wantRule:  "feedback_comprehensive",
		},
		{
			name: "design problem",
			in: Input{
				Classification: classified(datatypes.TypeDesignProblem),
				UserInput:      "I'm designing a community center and the entry feels weak.",
			},
			wantRoute: datatypes.RouteSocraticExploration,
			wantRule:  "design_socratic",
		},
		{
			name: "creative exploration",
			in: Input{
				Classification: classified(datatypes.TypeCreativeExploration),
				UserInput:      "What if the roof became the public space?",
			},
			wantRoute: datatypes.RouteSocraticExploration,
			wantRule:  "design_socratic",
		},
		{
			name: "technical question",
			in: Input{
				Classification: classified(datatypes.TypeTechnicalQuestion),
				UserInput:      "What is the minimum corridor width?",
			},
			wantRoute: datatypes.RouteKnowledgeWithChallenge,
			wantRule:  "technical_challenge",
		},
		{
			name: "general statement defaults",
			in: Input{
				Classification: classified(datatypes.TypeGeneralStatement),
				UserInput:      "I spent the weekend on the model.",
			},
			wantRoute: datatypes.RouteBalancedGuidance,
			wantRule:  "default",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(context.Background(), tt.in)
			assert.Equal(t, tt.wantRoute, got.Route)
			assert.Equal(t, tt.wantRule, got.RuleApplied)
		})
	}
}

func TestDecide_Deterministic(t *testing.T) {
	in := Input{
		Classification: classified(datatypes.TypeKnowledgeRequest),
		UserInput:      "What are the key principles of sustainable architecture?",
	}
	first := Decide(context.Background(), in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Decide(context.Background(), in))
	}
}

func TestDecide_ExposesEvaluatedConditions(t *testing.T) {
	in := Input{
		Classification: classified(datatypes.TypeKnowledgeRequest),
		UserInput:      "What is a parti?",
	}
	got := Decide(context.Background(), in)
	require.NotEmpty(t, got.EvaluatedConditions)

	// the winning rule's conditions all satisfied
	for _, c := range got.EvaluatedConditions {
		if c.Rule == got.RuleApplied {
			assert.True(t, c.Satisfied)
		}
	}
	// earlier rules were checked and reported
	assert.Equal(t, "first_message_opening", got.EvaluatedConditions[0].Rule)
	assert.False(t, got.EvaluatedConditions[0].Satisfied)
}

func TestDeriveIntent(t *testing.T) {
	tests := []struct {
		itype datatypes.InteractionType
		input string
		want  string
	}{
		{datatypes.TypeExampleRequest, "show me examples", "precedent_seeking"},
		{datatypes.TypeKnowledgeRequest, "what is a parti", "information_seeking"},
		{datatypes.TypeFeedbackRequest, "review my plan", "evaluation_seeking"},
		{datatypes.TypeConfusionExpression, "i am lost", "clarification_seeking"},
		{datatypes.TypeDesignProblem, "my entry sequence", "design_development"},
		{datatypes.TypeGeneralStatement, "hello", "general_conversation"},
	}
	for _, tt := range tests {
		in := Input{Classification: classified(tt.itype), UserInput: tt.input}
		assert.Equal(t, tt.want, deriveIntent(in), tt.input)
	}
}
