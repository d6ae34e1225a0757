// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-research/mentor/services/engine/datatypes"
	"github.com/atelier-research/mentor/services/engine/llm"
)

// stubLLM returns a canned reply or error.
type stubLLM struct {
	reply string
	err   error
}

func (s *stubLLM) Generate(context.Context, string, llm.GenerationParams) (string, error) {
	return s.reply, s.err
}

func (s *stubLLM) Chat(context.Context, []llm.Message, llm.GenerationParams) (string, error) {
	return s.reply, s.err
}

func TestClassify_ManualPatterns(t *testing.T) {
	c := New(nil, 0, nil)

	tests := []struct {
		name  string
		input string
		want  datatypes.InteractionType
	}{
		{"direct answer", "Just tell me what to design for my community center.", datatypes.TypeDirectAnswerRequest},
		{"design it for me", "Can you design it for me?", datatypes.TypeDirectAnswerRequest},
		{"show me exactly", "Show me exactly how the plan should look.", datatypes.TypeDirectAnswerRequest},
		{"show me examples", "Show me examples of adaptive reuse community centers.", datatypes.TypeExampleRequest},
		{"precedents", "Are there precedents for timber atriums?", datatypes.TypeExampleRequest},
		{"what is", "What are the key principles of sustainable architecture?", datatypes.TypeKnowledgeRequest},
		{"tell me about", "Tell me about passive cooling strategies.", datatypes.TypeKnowledgeRequest},
		{"tell me exactly", "Tell me exactly what rooms to include.", datatypes.TypeDirectAnswerRequest},
		{"requirement", "What are the requirements for fire egress?", datatypes.TypeTechnicalQuestion},
		{"dimension", "What is the minimum width of an accessible corridor?", datatypes.TypeTechnicalQuestion},
		{"implementation", "How do I construct a cantilever over the entry?", datatypes.TypeImplementationReq},
		{"feedback", "What do you think of my massing so far?", datatypes.TypeFeedbackRequest},
		{"confusion", "I'm confused about how circulation should work.", datatypes.TypeConfusionExpression},
		{"improvement", "How can I improve the daylighting in my section?", datatypes.TypeImprovementSeeking},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(context.Background(), tt.input, nil, 1)
			assert.Equal(t, tt.want, got.InteractionType)
			assert.Equal(t, datatypes.StatusOK, got.Status)
		})
	}
}

func TestClassify_FirstMessage(t *testing.T) {
	c := New(nil, 0, nil)
	got := c.Classify(context.Background(), "What is massing?", nil, 0)
	assert.True(t, got.IsFirstMessage)

	got = c.Classify(context.Background(), "What is massing?", nil, 3)
	assert.False(t, got.IsFirstMessage)
}

func TestClassify_OffloadingRules(t *testing.T) {
	c := New(nil, 0, nil)

	t.Run("direct answer request sets flag", func(t *testing.T) {
		got := c.Classify(context.Background(), "Just tell me the answer.", nil, 2)
		assert.True(t, got.CognitiveOffloadingDetected)
	})

	t.Run("knowledge request alone does not", func(t *testing.T) {
		got := c.Classify(context.Background(), "What are the key principles of sustainable architecture?", nil, 2)
		assert.False(t, got.CognitiveOffloadingDetected)
	})

	t.Run("example request alone does not", func(t *testing.T) {
		got := c.Classify(context.Background(), "Show me examples of courtyard housing.", nil, 2)
		assert.False(t, got.CognitiveOffloadingDetected)
	})

	t.Run("explicit delegation phrase", func(t *testing.T) {
		got := c.Classify(context.Background(), "Please solve it for me, I hate this assignment.", nil, 2)
		assert.True(t, got.CognitiveOffloadingDetected)
	})

	t.Run("overconfident and disengaged", func(t *testing.T) {
		got := c.Classify(context.Background(), "Obviously fine.", nil, 2)
		assert.Equal(t, datatypes.ConfidenceOverconfident, got.ConfidenceLevel)
		assert.Equal(t, datatypes.EngagementLow, got.EngagementLevel)
		assert.True(t, got.CognitiveOffloadingDetected)
	})
}

func TestClassify_LLMFallback(t *testing.T) {
	t.Run("llm classifies unmatched input", func(t *testing.T) {
		c := New(&stubLLM{reply: `{"interaction_type":"creative_exploration"}`}, 0, nil)
		got := c.Classify(context.Background(), "Courtyards feel right but something is missing here.", nil, 2)
		assert.Equal(t, datatypes.TypeCreativeExploration, got.InteractionType)
		assert.Equal(t, datatypes.StatusOK, got.Status)
	})

	t.Run("llm failure degrades, never raises", func(t *testing.T) {
		c := New(&stubLLM{err: errors.New("connection refused")}, 0, nil)
		got := c.Classify(context.Background(), "Courtyards feel right but something is missing here.", nil, 2)
		require.True(t, got.InteractionType.Valid())
		assert.Equal(t, datatypes.StatusDegraded, got.Status)
		assert.Equal(t, "llm_failed", got.StatusReason)
	})

	t.Run("invalid llm type degrades", func(t *testing.T) {
		c := New(&stubLLM{reply: `{"interaction_type":"not_a_type"}`}, 0, nil)
		got := c.Classify(context.Background(), "Courtyards feel right but something is missing here.", nil, 2)
		require.True(t, got.InteractionType.Valid())
		assert.Equal(t, datatypes.StatusDegraded, got.Status)
	})

	t.Run("nil client degrades", func(t *testing.T) {
		c := New(nil, 0, nil)
		got := c.Classify(context.Background(), "Courtyards feel right but something is missing here.", nil, 2)
		require.True(t, got.InteractionType.Valid())
		assert.Equal(t, datatypes.StatusDegraded, got.Status)
		assert.Equal(t, "llm_unavailable", got.StatusReason)
	})
}

func TestDeriveEngagement_RepetitionLowers(t *testing.T) {
	input := "the plan should have a central courtyard with circulation around it"
	recent := []string{input}
	level := deriveEngagement(input, input, recent)
	assert.Equal(t, datatypes.EngagementLow, level)

	fresh := deriveEngagement(input, input, nil)
	assert.NotEqual(t, datatypes.EngagementLow, fresh)
}

func TestDeriveUnderstanding(t *testing.T) {
	tests := []struct {
		input string
		want  datatypes.UnderstandingLevel
	}{
		{"the massing and circulation respond to the site section and daylight", datatypes.UnderstandingHigh},
		{"my plan has a courtyard", datatypes.UnderstandingMedium},
		{"i like buildings", datatypes.UnderstandingLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, deriveUnderstanding(tt.input), tt.input)
	}
}

func TestParseLLMClassification(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want datatypes.InteractionType
		ok   bool
	}{
		{"bare json", `{"interaction_type":"design_problem"}`, datatypes.TypeDesignProblem, true},
		{"with preamble", "Here you go:\n{\"interaction_type\":\"knowledge_request\"}", datatypes.TypeKnowledgeRequest, true},
		{"invalid type", `{"interaction_type":"bogus"}`, "", false},
		{"no json", "design_problem", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseLLMClassification(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
