// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package agents implements the mentoring pipeline: five cooperating
// agents plus the synthesizer that merges their responses per route.
//
// Agents never return errors. Failures surface as degraded
// AgentResponse values so the synthesizer and assessor always see a
// complete turn.
package agents

import (
	"context"

	"github.com/atelier-research/mentor/services/engine/datatypes"
	"github.com/atelier-research/mentor/services/engine/phase"
)

// Input is the shared per-turn payload handed to every agent.
type Input struct {
	CorrelationID string
	SessionID     string
	Condition     datatypes.Condition

	UserInput      string
	RecentInputs   []string
	Classification datatypes.Classification
	Routing        datatypes.RoutingDecision

	Phase                  datatypes.Phase
	PhaseCompletionPercent float64
	Milestones             []phase.MilestoneSnapshot

	// SuggestedQuestion is the curriculum question selected by the phase
	// tracker for this turn, empty when the bank is exhausted.
	SuggestedQuestion string

	// BuildingType is filled by the analysis stage before the response
	// stage runs.
	BuildingType string
}

// Agent is one member of the pipeline.
type Agent interface {
	// Name identifies the agent in responses and metrics.
	Name() datatypes.AgentName

	// Run produces the agent's contribution for the turn.
	Run(ctx context.Context, in Input) datatypes.AgentResponse
}

// questionCount counts question marks, the follow-up heuristic shared
// by the tutor and the synthesizer.
func questionCount(text string) int {
	n := 0
	for _, r := range text {
		if r == '?' {
			n++
		}
	}
	return n
}
