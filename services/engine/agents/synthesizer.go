// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"sort"
	"strings"

	"github.com/atelier-research/mentor/services/engine/datatypes"
)

const knowledgeClosing = "What would you like to explore next?"

// Synthesizer merges agent responses in the fixed order defined per
// route, unions cognitive flags, and surfaces domain sources verbatim.
type Synthesizer struct {
	tutor *SocraticTutorAgent
}

// NewSynthesizer builds the synthesizer.
func NewSynthesizer(tutor *SocraticTutorAgent) *Synthesizer {
	return &Synthesizer{tutor: tutor}
}

// Merge produces the final reply for the turn.
//
// Description:
//
//	Ordering per route: cognitive_intervention carries cognitive then
//	socratic text and never domain content; knowledge_only carries the
//	domain body plus a closing invitation when no question is present;
//	knowledge_with_challenge appends the cognitive tail to the domain
//	body; socratic_exploration is the socratic question alone;
//	multi_agent_comprehensive stacks analysis framing, domain body, and
//	socratic tail; balanced_guidance trims the domain body and adds one
//	socratic question.
func (s *Synthesizer) Merge(route datatypes.Route, in Input, responses map[datatypes.AgentName]datatypes.AgentResponse) datatypes.AgentResponse {
	out := datatypes.AgentResponse{
		CorrelationID: in.CorrelationID,
		AgentName:     datatypes.AgentSynthesizer,
		ResponseType:  datatypes.ResponseSynthesis,
		Status:        datatypes.StatusOK,
	}

	domain := responses[datatypes.AgentDomain]
	socratic := responses[datatypes.AgentSocratic]
	cognitive := responses[datatypes.AgentCognitive]
	analysis := responses[datatypes.AgentAnalysis]

	var parts []string
	switch route {
	case datatypes.RouteProgressiveOpening:
		out.ResponseType = datatypes.ResponseOpening
		parts = []string{socratic.ResponseText}

	case datatypes.RouteCognitiveIntervention:
		parts = []string{cognitive.ResponseText, socratic.ResponseText}
		out.PedagogicalIntent = cognitive.PedagogicalIntent

	case datatypes.RouteKnowledgeOnly:
		body := domain.ResponseText
		parts = []string{body}
		if questionCount(body) == 0 {
			parts = append(parts, knowledgeClosing)
		}
		out.SourcesUsed = domain.SourcesUsed

	case datatypes.RouteKnowledgeWithChallenge:
		parts = []string{domain.ResponseText, cognitive.ResponseText}
		out.SourcesUsed = domain.SourcesUsed
		out.PedagogicalIntent = cognitive.PedagogicalIntent

	case datatypes.RouteSocraticExploration:
		parts = []string{socratic.ResponseText}

	case datatypes.RouteMultiAgentComprehensive:
		parts = []string{analysis.ResponseText, domain.ResponseText, socratic.ResponseText}
		out.SourcesUsed = domain.SourcesUsed

	default: // balanced_guidance
		parts = []string{trimToSentences(domain.ResponseText, 2)}
		if q := s.tutor.FollowUp(parts[0], in); q != "" {
			parts = append(parts, q)
		}
		out.SourcesUsed = domain.SourcesUsed
	}

	out.ResponseText = joinParts(parts)
	out.CognitiveFlags = unionFlags(responses)

	// a fully degraded pipeline degrades the synthesis
	if out.ResponseText == "" {
		out.Status = datatypes.StatusDegraded
		out.StatusReason = "no_agent_output"
	}
	return out
}

func joinParts(parts []string) string {
	var kept []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

// unionFlags merges cognitive flags from all responses, deduplicated
// and sorted for determinism.
func unionFlags(responses map[datatypes.AgentName]datatypes.AgentResponse) []string {
	set := map[string]bool{}
	for _, r := range responses {
		for _, f := range r.CognitiveFlags {
			set[f] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// trimToSentences keeps the first n sentences of text.
func trimToSentences(text string, n int) string {
	count := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
			if count == n {
				return strings.TrimSpace(text[:i+1])
			}
		}
	}
	return strings.TrimSpace(text)
}
