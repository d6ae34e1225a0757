// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-research/mentor/services/engine/datatypes"
	"github.com/atelier-research/mentor/services/engine/knowledge"
)

// fakeSearcher returns canned chunks or a degraded result.
type fakeSearcher struct {
	chunks   []knowledge.Chunk
	degraded bool
}

func (f fakeSearcher) Search(context.Context, string) knowledge.Result {
	if f.degraded {
		return knowledge.Result{Degraded: true, Reason: "store_unavailable"}
	}
	return knowledge.Result{Chunks: f.chunks}
}

func baseInput(route datatypes.Route, it datatypes.InteractionType) Input {
	return Input{
		CorrelationID: "corr-1",
		SessionID:     "s1",
		Condition:     datatypes.ConditionMentor,
		UserInput:     "Tell me about passive cooling for my community center",
		Classification: datatypes.Classification{
			InteractionType:    it,
			UnderstandingLevel: datatypes.UnderstandingMedium,
			ConfidenceLevel:    datatypes.ConfidenceMedium,
			EngagementLevel:    datatypes.EngagementMedium,
			Status:             datatypes.StatusOK,
		},
		Routing: datatypes.RoutingDecision{Route: route},
		Phase:   datatypes.PhaseIdeation,
	}
}

func testRunner(searcher knowledge.Searcher) *Runner {
	domain := NewDomainExpertAgent(searcher, nil, nil)
	return NewRunner(domain, 2*time.Second, nil, nil)
}

func TestDetectBuildingType(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"community center", "my community center needs a hall", "community_center"},
		{"adaptive reuse", "we convert an existing building, a renovation", "adaptive_reuse"},
		{"housing", "a housing block with apartments", "housing"},
		{"nothing", "the weather is nice", "general"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectBuildingType(tt.input, nil))
		})
	}
}

func TestContextAgentFlagsRepetition(t *testing.T) {
	a := NewContextAgent()
	in := baseInput(datatypes.RouteBalancedGuidance, datatypes.TypeGeneralStatement)
	in.UserInput = "the courtyard needs more daylight in winter"
	in.RecentInputs = []string{
		"the courtyard needs more daylight in winter",
		"the courtyard needs more daylight in winter",
	}
	resp := a.Run(context.Background(), in)
	assert.Contains(t, resp.CognitiveFlags, "repetitive_topic")
}

func TestDomainExpertDegradesWithEmptySources(t *testing.T) {
	a := NewDomainExpertAgent(fakeSearcher{degraded: true}, nil, nil)
	in := baseInput(datatypes.RouteKnowledgeOnly, datatypes.TypeKnowledgeRequest)
	resp := a.Run(context.Background(), in)

	assert.Equal(t, datatypes.StatusDegraded, resp.Status)
	require.NotNil(t, resp.SourcesUsed)
	assert.Empty(t, resp.SourcesUsed)
	assert.NotEmpty(t, resp.ResponseText)
}

func TestDomainExpertSurfacesSources(t *testing.T) {
	chunks := []knowledge.Chunk{
		{Source: "neufert", Topic: "passive cooling", Content: "Cross ventilation needs openings on opposite facades"},
		{Source: "ching", Topic: "thermal mass", Content: "Heavy materials damp temperature swings"},
	}
	a := NewDomainExpertAgent(fakeSearcher{chunks: chunks}, nil, nil)
	resp := a.Run(context.Background(), baseInput(datatypes.RouteKnowledgeOnly, datatypes.TypeKnowledgeRequest))

	assert.Equal(t, datatypes.StatusOK, resp.Status)
	assert.Equal(t, []string{"neufert", "ching"}, resp.SourcesUsed)
	assert.Contains(t, resp.ResponseText, "Cross ventilation")
}

func TestSocraticTutorFirstMessageOpening(t *testing.T) {
	a := NewSocraticTutorAgent()
	in := baseInput(datatypes.RouteProgressiveOpening, datatypes.TypeGeneralStatement)
	in.Classification.IsFirstMessage = true
	resp := a.Run(context.Background(), in)
	assert.Equal(t, datatypes.ResponseOpening, resp.ResponseType)
	assert.Contains(t, resp.ResponseText, "?")
}

func TestSocraticTutorPhaseTemplates(t *testing.T) {
	a := NewSocraticTutorAgent()
	for _, ph := range []datatypes.Phase{
		datatypes.PhaseIdeation, datatypes.PhaseVisualization, datatypes.PhaseMaterialization,
	} {
		in := baseInput(datatypes.RouteSocraticExploration, datatypes.TypeDesignProblem)
		in.Phase = ph
		in.BuildingType = "community_center"
		resp := a.Run(context.Background(), in)
		assert.Contains(t, resp.ResponseText, "community center", "phase %s", ph)
		assert.Contains(t, resp.ResponseText, "?")
	}
}

func TestSocraticTutorPrefersCurriculumQuestion(t *testing.T) {
	a := NewSocraticTutorAgent()
	in := baseInput(datatypes.RouteSocraticExploration, datatypes.TypeDesignProblem)
	in.SuggestedQuestion = "Which adjacencies in your program matter most?"
	resp := a.Run(context.Background(), in)
	assert.Equal(t, in.SuggestedQuestion, resp.ResponseText)
}

func TestFollowUpOnlyWithoutQuestion(t *testing.T) {
	a := NewSocraticTutorAgent()
	in := baseInput(datatypes.RouteBalancedGuidance, datatypes.TypeGeneralStatement)
	assert.Empty(t, a.FollowUp("Does the plan work?", in))
	assert.NotEmpty(t, a.FollowUp("The plan is organized around a courtyard.", in))
}

func TestCognitiveAgentSubtypes(t *testing.T) {
	a := NewCognitiveEnhancementAgent()

	direct := baseInput(datatypes.RouteCognitiveIntervention, datatypes.TypeDirectAnswerRequest)
	resp := a.Run(context.Background(), direct)
	assert.Equal(t, subtypeSolutionSeeking, resp.Metadata["offloading_subtype"])
	assert.Equal(t, "redirect_to_reasoning", resp.PedagogicalIntent)

	closed := baseInput(datatypes.RouteCognitiveIntervention, datatypes.TypeGeneralStatement)
	closed.Classification.ConfidenceLevel = datatypes.ConfidenceOverconfident
	closed.Classification.EngagementLevel = datatypes.EngagementLow
	resp = a.Run(context.Background(), closed)
	assert.Equal(t, subtypePrematureClosure, resp.Metadata["offloading_subtype"])
}

func TestSynthesizerCognitiveInterventionHasNoDomainContent(t *testing.T) {
	r := testRunner(fakeSearcher{chunks: []knowledge.Chunk{
		{Source: "neufert", Topic: "spans", Content: "UNIQUE_DOMAIN_MARKER"},
	}})
	in := baseInput(datatypes.RouteCognitiveIntervention, datatypes.TypeDirectAnswerRequest)
	in.Classification.CognitiveOffloadingDetected = true

	_, final := r.Run(context.Background(), in)
	assert.NotContains(t, final.ResponseText, "UNIQUE_DOMAIN_MARKER")
	assert.Empty(t, final.SourcesUsed)
	assert.NotEmpty(t, final.ResponseText)
}

func TestSynthesizerKnowledgeOnlyClosing(t *testing.T) {
	r := testRunner(fakeSearcher{chunks: []knowledge.Chunk{
		{Source: "neufert", Topic: "cooling", Content: "Cross ventilation needs opposite openings"},
	}})
	in := baseInput(datatypes.RouteKnowledgeOnly, datatypes.TypeKnowledgeRequest)

	_, final := r.Run(context.Background(), in)
	assert.Contains(t, final.ResponseText, "Cross ventilation")
	assert.Contains(t, final.ResponseText, knowledgeClosing)
	assert.Equal(t, []string{"neufert"}, final.SourcesUsed)

	// exactly the single closing question, no socratic tail
	assert.Equal(t, 1, questionCount(final.ResponseText))
}

func TestSynthesizerSocraticExplorationIsQuestionOnly(t *testing.T) {
	r := testRunner(fakeSearcher{chunks: []knowledge.Chunk{
		{Source: "neufert", Topic: "spans", Content: "UNIQUE_DOMAIN_MARKER"},
	}})
	in := baseInput(datatypes.RouteSocraticExploration, datatypes.TypeDesignProblem)

	_, final := r.Run(context.Background(), in)
	assert.NotContains(t, final.ResponseText, "UNIQUE_DOMAIN_MARKER")
	assert.Greater(t, questionCount(final.ResponseText), 0)
}

func TestSynthesizerComprehensiveStacksAllThree(t *testing.T) {
	r := testRunner(fakeSearcher{chunks: []knowledge.Chunk{
		{Source: "neufert", Topic: "cooling", Content: "Cross ventilation needs opposite openings"},
	}})
	in := baseInput(datatypes.RouteMultiAgentComprehensive, datatypes.TypeFeedbackRequest)

	_, final := r.Run(context.Background(), in)
	assert.Contains(t, final.ResponseText, "Looking at your community center project")
	assert.Contains(t, final.ResponseText, "Cross ventilation")
	assert.Greater(t, questionCount(final.ResponseText), 0)
}

func TestRunnerProgressiveOpening(t *testing.T) {
	r := testRunner(fakeSearcher{degraded: true})
	in := baseInput(datatypes.RouteProgressiveOpening, datatypes.TypeGeneralStatement)
	in.Classification.IsFirstMessage = true

	_, final := r.Run(context.Background(), in)
	assert.Equal(t, datatypes.ResponseOpening, final.ResponseType)
	assert.Contains(t, strings.ToLower(final.ResponseText), "project")
}

func TestRunnerUnionsCognitiveFlags(t *testing.T) {
	r := testRunner(fakeSearcher{degraded: true})
	in := baseInput(datatypes.RouteCognitiveIntervention, datatypes.TypeDirectAnswerRequest)
	in.Classification.CognitiveOffloadingDetected = true

	_, final := r.Run(context.Background(), in)
	assert.Contains(t, final.CognitiveFlags, "cognitive_intervention")
	assert.Contains(t, final.CognitiveFlags, "offloading_detected")
}

func TestRunnerTimeoutFallback(t *testing.T) {
	slow := slowSearcher{delay: 200 * time.Millisecond}
	domain := NewDomainExpertAgent(slow, nil, nil)
	r := NewRunner(domain, 20*time.Millisecond, nil, nil)

	in := baseInput(datatypes.RouteKnowledgeOnly, datatypes.TypeKnowledgeRequest)
	all, _ := r.Run(context.Background(), in)

	var domainResp *datatypes.AgentResponse
	for i := range all {
		if all[i].AgentName == datatypes.AgentDomain {
			domainResp = &all[i]
		}
	}
	require.NotNil(t, domainResp)
	assert.Equal(t, datatypes.ResponseTimeoutFallback, domainResp.ResponseType)
	assert.Equal(t, datatypes.StatusDegraded, domainResp.Status)
	assert.Equal(t, "timeout", domainResp.StatusReason)
	assert.Contains(t, domainResp.CognitiveFlags, "agent_timeout")
}

type slowSearcher struct{ delay time.Duration }

func (s slowSearcher) Search(ctx context.Context, _ string) knowledge.Result {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
	}
	return knowledge.Result{Degraded: true, Reason: "slow"}
}
