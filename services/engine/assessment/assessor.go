// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package assessment computes the six per-turn cognitive dimensions
// and applies the experimental condition modifiers.
package assessment

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atelier-research/mentor/services/engine/config"
	"github.com/atelier-research/mentor/services/engine/datatypes"
)

// rollingWindow is how many trailing moves feed MA and LP.
const rollingWindow = 10

// scaffoldingCues are graduated prompts counted for SE.
var scaffoldingCues = []string{
	"consider", "think about", "what if", "try exploring", "start by",
	"notice", "compare", "step back", "break it down", "one option",
}

// reflectivePrompts feed DTE alongside open-ended questions.
var reflectivePrompts = []string{
	"reflect", "why do you", "what led you", "how does that", "what would happen",
	"in your own words", "revisit",
}

// Input carries everything one turn assessment needs.
type Input struct {
	Condition      datatypes.Condition
	Classification datatypes.Classification
	UserInput      string
	AssistantReply string

	// KnowledgeSources are the retrieved source names, empty when no
	// retrieval happened.
	KnowledgeSources []string

	// LinkDensity is the current linkograph density, the KI fallback.
	LinkDensity float64

	// Moves is the full move sequence so far, newest last.
	Moves []datatypes.DesignMove
}

// Assessor scores turns. Stateless; one instance serves all sessions.
type Assessor struct {
	modifiers config.ConditionModifiers
	logger    *slog.Logger
}

// New builds an Assessor with the configured condition modifiers.
func New(modifiers config.ConditionModifiers, logger *slog.Logger) *Assessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assessor{modifiers: modifiers, logger: logger}
}

// Assess computes the six scores for one turn.
//
// Description:
//
//	Scores are computed per their definitions, then the condition
//	modifiers apply multiplicatively: GENERIC_AI scales COP and DTE,
//	CONTROL zeroes COP, DTE, and SE, and MA is capped per condition.
//	These reflect system design, not response quality.
//
// Outputs:
//
//	datatypes.CognitiveScores - All dimensions in [0,1].
func (a *Assessor) Assess(ctx context.Context, in Input) datatypes.CognitiveScores {
	_, span := otel.Tracer("mentor.assessment").Start(ctx, "assessor.assess")
	defer span.End()

	scores := datatypes.CognitiveScores{
		COP: a.scoreCOP(in),
		DTE: a.scoreDTE(in),
		SE:  a.scoreSE(in),
		KI:  a.scoreKI(in),
		LP:  a.scoreLP(in),
		MA:  a.scoreMA(in),
	}
	scores = a.applyModifiers(in.Condition, scores)

	span.SetAttributes(
		attribute.String("condition", in.Condition.String()),
		attribute.Float64("composite", scores.Composite()),
	)
	return scores
}

// scoreCOP rates how well the reply resists doing the thinking for the
// learner. Redirecting questions raise it; a questionless reply scores
// zero regardless of the request type.
func (a *Assessor) scoreCOP(in Input) float64 {
	questions := strings.Count(in.AssistantReply, "?")
	direct := in.Classification.InteractionType == datatypes.TypeDirectAnswerRequest

	if direct {
		switch {
		case questions == 0:
			return 0
		case questions >= 1 && len(strings.Fields(in.AssistantReply)) < 120:
			return 1
		default:
			// long mixed reply: answered and redirected
			return 0.5
		}
	}

	switch {
	case questions >= 2:
		return 0.9
	case questions == 1:
		return 0.7
	default:
		return 0
	}
}

// scoreDTE rewards open-ended questions, reflective prompts, and
// multi-clause reasoning; a short single-fact answer scores low.
func (a *Assessor) scoreDTE(in Input) float64 {
	lower := strings.ToLower(in.AssistantReply)
	words := strings.Fields(lower)

	score := 0.2
	for _, starter := range []string{"what ", "how ", "why "} {
		if strings.Contains(lower, starter) && strings.Contains(lower, "?") {
			score += 0.2
			break
		}
	}
	for _, p := range reflectivePrompts {
		if strings.Contains(lower, p) {
			score += 0.15
			break
		}
	}
	clauses := strings.Count(lower, ",") + strings.Count(lower, " because ") + strings.Count(lower, " which ")
	if clauses >= 2 {
		score += 0.2
	}
	if len(words) >= 40 {
		score += 0.1
	}

	// single-fact answer penalty
	if len(words) < 15 && !strings.Contains(lower, "?") {
		score -= 0.2
	}
	return clamp01(score)
}

// scoreSE counts graduated scaffolding cues, with a bonus when the cue
// level matches a struggling learner. Only the mentoring condition
// scaffolds; others score zero by definition.
func (a *Assessor) scoreSE(in Input) float64 {
	if in.Condition != datatypes.ConditionMentor {
		return 0
	}
	lower := strings.ToLower(in.AssistantReply)
	cues := 0
	for _, c := range scaffoldingCues {
		if strings.Contains(lower, c) {
			cues++
		}
	}
	if cues == 0 {
		return 0.1
	}
	score := 0.4 + 0.2*float64(cues)
	if in.Classification.UnderstandingLevel == datatypes.UnderstandingLow && cues >= 2 {
		score += 0.1
	}
	return clamp01(score)
}

// scoreKI is 1 when retrieved knowledge is referenced in the reply,
// otherwise fractional on linkograph density.
func (a *Assessor) scoreKI(in Input) float64 {
	if len(in.KnowledgeSources) > 0 {
		lower := strings.ToLower(in.AssistantReply)
		for _, src := range in.KnowledgeSources {
			if src != "" && strings.Contains(lower, strings.ToLower(src)) {
				return 1
			}
		}
		// retrieved but not surfaced verbatim
		return 0.6
	}
	return clamp01(in.LinkDensity / 2.0)
}

// scoreLP compares move complexity and type diversity in the trailing
// window against the window before it. Neutral 0.5 until both windows
// exist.
func (a *Assessor) scoreLP(in Input) float64 {
	if len(in.Moves) < 2*rollingWindow {
		return 0.5
	}
	recent := in.Moves[len(in.Moves)-rollingWindow:]
	earlier := in.Moves[len(in.Moves)-2*rollingWindow : len(in.Moves)-rollingWindow]

	delta := avgComplexity(recent) - avgComplexity(earlier)
	diversityDelta := typeDiversity(recent) - typeDiversity(earlier)
	return clamp01(0.5 + delta + 0.5*diversityDelta)
}

// scoreMA is the reflection-move fraction of the rolling window, capped
// per condition.
func (a *Assessor) scoreMA(in Input) float64 {
	window := in.Moves
	if len(window) > 2*rollingWindow {
		window = window[len(window)-2*rollingWindow:]
	}
	if len(window) == 0 {
		return 0
	}
	reflections := 0
	for _, m := range window {
		if m.MoveType == datatypes.MoveReflection {
			reflections++
		}
	}
	ma := float64(reflections) / float64(len(window))

	if limit, ok := a.modifiers.MACap[string(in.Condition)]; ok && ma > limit {
		ma = limit
	}
	return clamp01(ma)
}

func (a *Assessor) applyModifiers(condition datatypes.Condition, s datatypes.CognitiveScores) datatypes.CognitiveScores {
	switch condition {
	case datatypes.ConditionGenericAI:
		s.COP *= a.modifiers.GenericAIScale
		s.DTE *= a.modifiers.GenericAIScale
	case datatypes.ConditionControl:
		s.COP = 0
		s.DTE = 0
		s.SE = 0
	}
	return s
}

func avgComplexity(moves []datatypes.DesignMove) float64 {
	if len(moves) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range moves {
		sum += m.ComplexityScore
	}
	return sum / float64(len(moves))
}

// typeDiversity is the fraction of the five move types present.
func typeDiversity(moves []datatypes.DesignMove) float64 {
	seen := map[datatypes.MoveType]bool{}
	for _, m := range moves {
		seen[m.MoveType] = true
	}
	return float64(len(seen)) / 5.0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
