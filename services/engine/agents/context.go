// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/atelier-research/mentor/services/engine/datatypes"
)

// ContextAgent analyzes conversation patterns: repeated topics, topic
// jumping, and engagement trend over the recent inputs.
type ContextAgent struct{}

// NewContextAgent builds the context agent.
func NewContextAgent() *ContextAgent { return &ContextAgent{} }

func (a *ContextAgent) Name() datatypes.AgentName { return datatypes.AgentContext }

// Run inspects the recent inputs and annotates the turn with
// conversation-pattern flags and metadata. It produces no user-facing
// text.
func (a *ContextAgent) Run(_ context.Context, in Input) datatypes.AgentResponse {
	resp := datatypes.AgentResponse{
		CorrelationID: in.CorrelationID,
		AgentName:     a.Name(),
		ResponseType:  datatypes.ResponseContext,
		Status:        datatypes.StatusOK,
		Metadata:      map[string]string{},
	}

	overlap := a.topicOverlap(in.UserInput, in.RecentInputs)
	switch {
	case overlap > 0.6 && len(in.RecentInputs) > 0:
		resp.CognitiveFlags = append(resp.CognitiveFlags, "repetitive_topic")
	case overlap < 0.1 && len(in.RecentInputs) >= 2:
		resp.CognitiveFlags = append(resp.CognitiveFlags, "topic_jump")
	}

	if in.Classification.EngagementLevel == datatypes.EngagementLow && len(in.RecentInputs) >= 3 {
		resp.CognitiveFlags = append(resp.CognitiveFlags, "engagement_declining")
	}
	if in.Classification.CognitiveOffloadingDetected {
		resp.CognitiveFlags = append(resp.CognitiveFlags, "offloading_detected")
	}

	resp.Metadata["topic_overlap"] = fmt.Sprintf("%.2f", overlap)
	resp.Metadata["suggested_route"] = in.Routing.Route.String()
	resp.Metrics.EngagementPotential = 1 - overlap
	return resp
}

// topicOverlap is the mean word overlap between the input and the
// recent inputs.
func (a *ContextAgent) topicOverlap(input string, recent []string) float64 {
	if len(recent) == 0 {
		return 0
	}
	cur := wordSet(input)
	if len(cur) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range recent {
		prev := wordSet(r)
		common := 0
		for w := range cur {
			if prev[w] {
				common++
			}
		}
		total += float64(common) / float64(len(cur))
	}
	return total / float64(len(recent))
}

func wordSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,?!:;\"'")
		if len(w) > 3 {
			set[w] = true
		}
	}
	return set
}
