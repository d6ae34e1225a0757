// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"

	"github.com/atelier-research/mentor/services/engine/datatypes"
)

// offloading subtypes recognized by the enhancement agent.
const (
	subtypeSolutionSeeking    = "solution_seeking"
	subtypePrematureClosure   = "premature_closure"
	subtypeExternalDependence = "external_dependence"
)

// CognitiveEnhancementAgent intervenes on offloading: it reframes the
// delegation attempt as a challenge that keeps the learner engaged.
type CognitiveEnhancementAgent struct{}

// NewCognitiveEnhancementAgent builds the enhancement agent.
func NewCognitiveEnhancementAgent() *CognitiveEnhancementAgent {
	return &CognitiveEnhancementAgent{}
}

func (a *CognitiveEnhancementAgent) Name() datatypes.AgentName { return datatypes.AgentCognitive }

// Run produces the challenge for the turn and tags its pedagogical
// intent.
func (a *CognitiveEnhancementAgent) Run(_ context.Context, in Input) datatypes.AgentResponse {
	resp := datatypes.AgentResponse{
		CorrelationID: in.CorrelationID,
		AgentName:     a.Name(),
		ResponseType:  datatypes.ResponseCognitive,
		Status:        datatypes.StatusOK,
	}

	subtype := a.detectSubtype(in)
	resp.Metadata = map[string]string{"offloading_subtype": subtype}
	resp.CognitiveFlags = []string{"cognitive_intervention"}
	resp.Metrics.CognitiveChallenge = 1

	switch subtype {
	case subtypeSolutionSeeking:
		resp.PedagogicalIntent = "redirect_to_reasoning"
		resp.ResponseText = "I could hand you an answer, but it would be mine, not yours. " +
			"You already have the pieces: walk me through the options you see, and we will test them together."
	case subtypePrematureClosure:
		resp.PedagogicalIntent = "challenge_certainty"
		resp.ResponseText = "You sound settled on this. Before locking it in, argue the other side: " +
			"what would someone who disagrees point at first?"
	default:
		resp.PedagogicalIntent = "restore_ownership"
		resp.ResponseText = "This decision will shape everything downstream, so it should carry your reasoning. " +
			"Start with what you know about the site and the people using it."
	}
	return resp
}

func (a *CognitiveEnhancementAgent) detectSubtype(in Input) string {
	if in.Classification.InteractionType == datatypes.TypeDirectAnswerRequest {
		return subtypeSolutionSeeking
	}
	if in.Classification.ConfidenceLevel == datatypes.ConfidenceOverconfident &&
		in.Classification.EngagementLevel == datatypes.EngagementLow {
		return subtypePrematureClosure
	}
	return subtypeExternalDependence
}
