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

// phaseTemplates are the fallback questions per phase when the
// curriculum bank offers nothing, keyed by understanding level.
var phaseTemplates = map[datatypes.Phase]map[datatypes.UnderstandingLevel]string{
	datatypes.PhaseIdeation: {
		datatypes.UnderstandingLow:    "What is the one experience you want people to have in your %s?",
		datatypes.UnderstandingMedium: "What drives your concept for the %s, and what would break it?",
		datatypes.UnderstandingHigh:   "How does your concept for the %s resolve the tension between the site and the program?",
	},
	datatypes.PhaseVisualization: {
		datatypes.UnderstandingLow:    "How do people move through your %s from the entry?",
		datatypes.UnderstandingMedium: "What does your section reveal about the %s that the plan hides?",
		datatypes.UnderstandingHigh:   "Where does the organizing geometry of your %s intentionally break, and why there?",
	},
	datatypes.PhaseMaterialization: {
		datatypes.UnderstandingLow:    "What holds your %s up, and what is it made of?",
		datatypes.UnderstandingMedium: "Where do your two main materials meet in the %s, and what does that junction say?",
		datatypes.UnderstandingHigh:   "Could the structure of your %s also do the environmental work?",
	},
}

// openingTemplate greets the first message of a session.
const openingTemplate = "Welcome. Before we look at any answers, tell me about your project: " +
	"what are you designing, and what is the one experience you most want it to create?"

// SocraticTutorAgent produces questions scaffolded to the learner's
// level. It never provides solutions on the socratic_exploration route.
type SocraticTutorAgent struct{}

// NewSocraticTutorAgent builds the tutor.
func NewSocraticTutorAgent() *SocraticTutorAgent { return &SocraticTutorAgent{} }

func (a *SocraticTutorAgent) Name() datatypes.AgentName { return datatypes.AgentSocratic }

// Run selects the question for the turn.
//
// Description:
//
//	The curriculum question from the phase tracker takes precedence;
//	otherwise a phase and building-type template scaffolded to the
//	understanding level is used. On the first message the opening
//	prompt is produced instead.
func (a *SocraticTutorAgent) Run(_ context.Context, in Input) datatypes.AgentResponse {
	resp := datatypes.AgentResponse{
		CorrelationID: in.CorrelationID,
		AgentName:     a.Name(),
		Status:        datatypes.StatusOK,
		ResponseType:  datatypes.ResponseSocratic,
	}

	if in.Classification.IsFirstMessage {
		resp.ResponseType = datatypes.ResponseOpening
		resp.ResponseText = openingTemplate
		resp.Metrics.QuestionRatio = 1
		return resp
	}

	question := in.SuggestedQuestion
	if question == "" {
		question = a.templateQuestion(in)
	}
	resp.ResponseText = question
	resp.Metrics.QuestionRatio = 1
	resp.Metrics.ReflectionEncouraged = 1
	if in.Classification.UnderstandingLevel == datatypes.UnderstandingLow {
		resp.Metrics.ScaffoldingLevel = 1
	} else {
		resp.Metrics.ScaffoldingLevel = 0.5
	}
	return resp
}

func (a *SocraticTutorAgent) templateQuestion(in Input) string {
	subject := "project"
	if in.BuildingType != "" && in.BuildingType != "general" {
		subject = strings.ReplaceAll(in.BuildingType, "_", " ")
	}

	levels, ok := phaseTemplates[in.Phase]
	if !ok {
		return fmt.Sprintf("Looking back, what decision shaped your %s the most?", subject)
	}
	tpl, ok := levels[in.Classification.UnderstandingLevel]
	if !ok {
		tpl = levels[datatypes.UnderstandingMedium]
	}
	return fmt.Sprintf(tpl, subject)
}

// FollowUp returns a single follow-up question for a base reply that
// contains no question, or empty when one is already present.
func (a *SocraticTutorAgent) FollowUp(base string, in Input) string {
	if questionCount(base) > 0 {
		return ""
	}
	return a.templateQuestion(in)
}
