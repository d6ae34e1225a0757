// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routing maps a classification to a response route through a
// priority-ordered rule set.
//
// Routing is deterministic: identical inputs produce identical decisions
// regardless of wall-clock time. The decision exposes every evaluated
// condition so callers can inspect the reasoning.
package routing

import (
	"context"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atelier-research/mentor/services/engine/datatypes"
)

var tracer = otel.Tracer("mentor.routing")

// Input carries everything the decision tree may consult.
type Input struct {
	Classification datatypes.Classification
	UserInput      string
	Phase          datatypes.Phase
	TurnIndex      int
}

// rule is one priority-ordered entry of the decision tree. conditions
// returns every condition it checked with outcomes; the rule matches iff
// all conditions are satisfied.
type rule struct {
	name       string
	priority   int
	route      datatypes.Route
	confidence float64
	example    bool
	conditions func(in Input) []datatypes.EvaluatedCondition
}

// designProblemWords disqualify a knowledge request from the pure
// knowledge_only route.
var designProblemWords = []string{
	"my design", "my project", "my building", "my site", "my concept",
	"my plan", "i am designing", "i'm designing", "should i", "help me decide",
}

func containsDesignProblemWords(input string) bool {
	lower := strings.ToLower(input)
	for _, w := range designProblemWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func cond(ruleName, condition string, satisfied bool) datatypes.EvaluatedCondition {
	return datatypes.EvaluatedCondition{Rule: ruleName, Condition: condition, Satisfied: satisfied}
}

// rules is the complete decision tree in priority order.
var rules = []rule{
	{
		name:       "first_message_opening",
		priority:   1,
		route:      datatypes.RouteProgressiveOpening,
		confidence: 1.0,
		conditions: func(in Input) []datatypes.EvaluatedCondition {
			return []datatypes.EvaluatedCondition{
				cond("first_message_opening", "is_first_message", in.Classification.IsFirstMessage),
			}
		},
	},
	{
		name:       "offloading_intervention",
		priority:   2,
		route:      datatypes.RouteCognitiveIntervention,
		confidence: 0.95,
		conditions: func(in Input) []datatypes.EvaluatedCondition {
			return []datatypes.EvaluatedCondition{
				cond("offloading_intervention", "cognitive_offloading_detected", in.Classification.CognitiveOffloadingDetected),
			}
		},
	},
	{
		name:       "pure_knowledge",
		priority:   3,
		route:      datatypes.RouteKnowledgeOnly,
		confidence: 0.9,
		conditions: func(in Input) []datatypes.EvaluatedCondition {
			return []datatypes.EvaluatedCondition{
				cond("pure_knowledge", "interaction_type == knowledge_request", in.Classification.InteractionType == datatypes.TypeKnowledgeRequest),
				cond("pure_knowledge", "no design problem words", !containsDesignProblemWords(in.UserInput)),
			}
		},
	},
	{
		name:       "example_knowledge",
		priority:   4,
		route:      datatypes.RouteKnowledgeOnly,
		confidence: 0.9,
		example:    true,
		conditions: func(in Input) []datatypes.EvaluatedCondition {
			return []datatypes.EvaluatedCondition{
				cond("example_knowledge", "interaction_type == example_request", in.Classification.InteractionType == datatypes.TypeExampleRequest),
			}
		},
	},
	{
		name:       "implementation_challenge",
		priority:   5,
		route:      datatypes.RouteKnowledgeWithChallenge,
		confidence: 0.85,
		conditions: func(in Input) []datatypes.EvaluatedCondition {
			return []datatypes.EvaluatedCondition{
				cond("implementation_challenge", "interaction_type == implementation_request", in.Classification.InteractionType == datatypes.TypeImplementationReq),
			}
		},
	},
	{
		name:       "feedback_comprehensive",
		priority:   6,
		route:      datatypes.RouteMultiAgentComprehensive,
		confidence: 0.85,
		conditions: func(in Input) []datatypes.EvaluatedCondition {
			return []datatypes.EvaluatedCondition{
				cond("feedback_comprehensive", "interaction_type == feedback_request", in.Classification.InteractionType == datatypes.TypeFeedbackRequest),
			}
		},
	},
	{
		name:       "design_socratic",
		priority:   7,
		route:      datatypes.RouteSocraticExploration,
		confidence: 0.85,
		conditions: func(in Input) []datatypes.EvaluatedCondition {
			t := in.Classification.InteractionType
			match := t == datatypes.TypeDesignProblem || t == datatypes.TypeCreativeExploration
			return []datatypes.EvaluatedCondition{
				cond("design_socratic", "interaction_type in {design_problem, creative_exploration}", match),
			}
		},
	},
	{
		name:       "technical_challenge",
		priority:   8,
		route:      datatypes.RouteKnowledgeWithChallenge,
		confidence: 0.8,
		conditions: func(in Input) []datatypes.EvaluatedCondition {
			return []datatypes.EvaluatedCondition{
				cond("technical_challenge", "interaction_type == technical_question", in.Classification.InteractionType == datatypes.TypeTechnicalQuestion),
			}
		},
	},
}

// Decide runs the decision tree over one classified turn.
//
// Description:
//
//	Evaluates rules in priority order; the first fully satisfied rule
//	wins. Among equal-priority matches the rule with the most satisfied
//	conditions wins, then deterministic rule-name ordering. When no rule
//	matches, the decision defaults to balanced_guidance with
//	rule_applied = "default".
//
// Thread Safety: Safe for concurrent use; Decide is a pure function of
// its input.
func Decide(ctx context.Context, in Input) datatypes.RoutingDecision {
	_, span := tracer.Start(ctx, "routing.Decide")
	defer span.End()

	var evaluated []datatypes.EvaluatedCondition

	type match struct {
		r         rule
		satisfied int
	}
	var matches []match

	for _, r := range rules {
		conds := r.conditions(in)
		evaluated = append(evaluated, conds...)
		all := true
		satisfied := 0
		for _, c := range conds {
			if c.Satisfied {
				satisfied++
			} else {
				all = false
			}
		}
		if all {
			matches = append(matches, match{r: r, satisfied: satisfied})
		}
	}

	decision := datatypes.RoutingDecision{
		Route:                       datatypes.RouteBalancedGuidance,
		RuleApplied:                 "default",
		Confidence:                  0.6,
		UserIntent:                  deriveIntent(in),
		CognitiveOffloadingDetected: in.Classification.CognitiveOffloadingDetected,
		Reason:                      "no rule matched",
		EvaluatedConditions:         evaluated,
	}

	if len(matches) > 0 {
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].r.priority != matches[j].r.priority {
				return matches[i].r.priority < matches[j].r.priority
			}
			if matches[i].satisfied != matches[j].satisfied {
				return matches[i].satisfied > matches[j].satisfied
			}
			return matches[i].r.name < matches[j].r.name
		})
		winner := matches[0].r
		decision.Route = winner.route
		decision.RuleApplied = winner.name
		decision.Confidence = winner.confidence
		decision.ExampleFlag = winner.example
		decision.Reason = "rule " + winner.name + " matched"
	}

	span.SetAttributes(
		attribute.String("route", decision.Route.String()),
		attribute.String("rule", decision.RuleApplied),
	)
	return decision
}

// deriveIntent buckets the utterance into a coarse keyword intent.
func deriveIntent(in Input) string {
	lower := strings.ToLower(in.UserInput)
	switch {
	case in.Classification.CognitiveOffloadingDetected:
		return "solution_delegation"
	case in.Classification.InteractionType == datatypes.TypeExampleRequest:
		return "precedent_seeking"
	case in.Classification.InteractionType == datatypes.TypeKnowledgeRequest ||
		in.Classification.InteractionType == datatypes.TypeTechnicalQuestion:
		return "information_seeking"
	case in.Classification.InteractionType == datatypes.TypeFeedbackRequest ||
		in.Classification.InteractionType == datatypes.TypeImprovementSeeking:
		return "evaluation_seeking"
	case in.Classification.InteractionType == datatypes.TypeConfusionExpression:
		return "clarification_seeking"
	case strings.Contains(lower, "design") || strings.Contains(lower, "concept") ||
		in.Classification.InteractionType == datatypes.TypeDesignProblem ||
		in.Classification.InteractionType == datatypes.TypeCreativeExploration:
		return "design_development"
	default:
		return "general_conversation"
	}
}
