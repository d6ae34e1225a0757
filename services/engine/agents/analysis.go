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

// buildingTypeKeywords map detectable project types to their markers.
// Declaration order is the tie-break.
var buildingTypeOrder = []string{
	"community_center", "adaptive_reuse", "housing", "mixed_use",
	"school", "library", "museum", "pavilion",
}

var buildingTypeKeywords = map[string][]string{
	"community_center": {"community center", "community hall", "civic center", "neighborhood center"},
	"adaptive_reuse":   {"adaptive reuse", "existing building", "renovation", "convert the", "warehouse conversion"},
	"housing":          {"housing", "apartment", "residential", "dwelling", "homes"},
	"mixed_use":        {"mixed use", "mixed-use", "retail below", "shops and apartments"},
	"school":           {"school", "classroom", "kindergarten", "campus"},
	"library":          {"library", "reading room", "archive"},
	"museum":           {"museum", "gallery", "exhibition"},
	"pavilion":         {"pavilion", "kiosk", "folly"},
}

// AnalysisAgent derives project-level signals: building type, apparent
// skill level, and curriculum position.
type AnalysisAgent struct{}

// NewAnalysisAgent builds the analysis agent.
func NewAnalysisAgent() *AnalysisAgent { return &AnalysisAgent{} }

func (a *AnalysisAgent) Name() datatypes.AgentName { return datatypes.AgentAnalysis }

// Run reports building type, skill level, and phase standing. The
// response text is the framing line the synthesizer may use for
// comprehensive replies.
func (a *AnalysisAgent) Run(_ context.Context, in Input) datatypes.AgentResponse {
	resp := datatypes.AgentResponse{
		CorrelationID: in.CorrelationID,
		AgentName:     a.Name(),
		ResponseType:  datatypes.ResponseAnalysis,
		Status:        datatypes.StatusOK,
		Metadata:      map[string]string{},
	}

	bt := DetectBuildingType(in.UserInput, in.RecentInputs)
	resp.Metadata["building_type"] = bt
	resp.Metadata["skill_level"] = skillLevel(in.Classification)
	resp.Metadata["phase"] = in.Phase.String()
	resp.Metadata["phase_completion"] = fmt.Sprintf("%.1f", in.PhaseCompletionPercent)

	if ms := currentMilestone(in); ms != "" {
		resp.Metadata["current_milestone"] = ms
	}

	if in.Classification.UnderstandingLevel == datatypes.UnderstandingLow {
		resp.CognitiveFlags = append(resp.CognitiveFlags, "needs_scaffolding")
	}
	if in.Classification.ConfidenceLevel == datatypes.ConfidenceOverconfident {
		resp.CognitiveFlags = append(resp.CognitiveFlags, "overconfidence")
	}

	resp.ResponseText = framingLine(in, bt)
	return resp
}

// DetectBuildingType scans the current and recent inputs for project
// type markers. Returns "general" when nothing matches.
func DetectBuildingType(input string, recent []string) string {
	corpus := strings.ToLower(input + " " + strings.Join(recent, " "))
	for _, bt := range buildingTypeOrder {
		for _, kw := range buildingTypeKeywords[bt] {
			if strings.Contains(corpus, kw) {
				return bt
			}
		}
	}
	return "general"
}

func skillLevel(c datatypes.Classification) string {
	switch {
	case c.UnderstandingLevel == datatypes.UnderstandingHigh && c.ConfidenceLevel == datatypes.ConfidenceConfident:
		return "advanced"
	case c.UnderstandingLevel == datatypes.UnderstandingLow:
		return "beginner"
	default:
		return "intermediate"
	}
}

func currentMilestone(in Input) string {
	for _, ms := range in.Milestones {
		if !ms.Complete {
			return ms.Name
		}
	}
	return ""
}

func framingLine(in Input, buildingType string) string {
	phaseName := strings.ToLower(in.Phase.String())
	if buildingType == "general" {
		return fmt.Sprintf("Looking at your project at the %s stage:", phaseName)
	}
	return fmt.Sprintf("Looking at your %s project at the %s stage:",
		strings.ReplaceAll(buildingType, "_", " "), phaseName)
}
