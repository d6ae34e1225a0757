// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package classifier tags learner utterances with interaction type,
// understanding, confidence, and engagement levels.
//
// Classification is layered: high-confidence manual patterns first, then
// LLM classification constrained to the closed enum. The classifier never
// returns an error to its caller; LLM failure degrades to manual-only
// classification with a reason code.
package classifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/atelier-research/mentor/services/engine/datatypes"
	"github.com/atelier-research/mentor/services/engine/llm"
)

var tracer = otel.Tracer("mentor.classifier")

// classificationPrompt constrains the model to the closed interaction
// type set. The response must be bare JSON.
const classificationPrompt = `You classify a student utterance from an architectural design mentoring session.

Choose exactly one interaction_type from this list:
knowledge_request, example_request, direct_answer_request, implementation_request, feedback_request, confusion_expression, improvement_seeking, technical_question, design_problem, creative_exploration, general_statement

Utterance:
%q

Respond with ONLY valid JSON (no markdown, no preamble):
{"interaction_type":"...","understanding":"low|medium|high","confidence":"uncertain|medium|confident|overconfident"}`

// Classifier implements the layered utterance classifier.
//
// Thread Safety: Safe for concurrent use.
type Classifier struct {
	client   llm.Client
	timeout  time.Duration
	logger   *slog.Logger
	inflight singleflight.Group
}

// New creates a Classifier. client may be nil; classification then runs
// manual-only and LLM fallback requests are reported as degraded.
func New(client llm.Client, timeout time.Duration, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Classifier{client: client, timeout: timeout, logger: logger}
}

// Classify tags one utterance.
//
// Description:
//
//	Runs manual patterns, then LLM classification for utterances no
//	pattern covers. Derives understanding, confidence, and engagement
//	from lexical cues, and applies the cognitive offloading rule.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	userInput - The learner's utterance.
//	recentInputs - Prior user inputs, oldest first, for repetition checks.
//	turnIndex - Zero-based turn number; 0 sets is_first_message.
//
// Outputs:
//
//	datatypes.Classification - Never empty; Status reports degradation.
func (c *Classifier) Classify(ctx context.Context, userInput string, recentInputs []string, turnIndex int) datatypes.Classification {
	ctx, span := tracer.Start(ctx, "Classifier.Classify")
	defer span.End()
	span.SetAttributes(attribute.Int("turn_index", turnIndex))

	lower := strings.ToLower(userInput)

	result := datatypes.Classification{
		IsFirstMessage:     turnIndex == 0,
		UnderstandingLevel: deriveUnderstanding(lower),
		ConfidenceLevel:    deriveConfidence(lower, userInput),
		EngagementLevel:    deriveEngagement(lower, userInput, recentInputs),
		Status:             datatypes.StatusOK,
	}

	if itype, rule, ok := matchManual(userInput); ok {
		result.InteractionType = itype
		span.SetAttributes(
			attribute.String("interaction_type", itype.String()),
			attribute.String("matched_rule", rule),
		)
	} else {
		itype, status, reason := c.classifyWithLLM(ctx, userInput)
		result.InteractionType = itype
		result.Status = status
		result.StatusReason = reason
		span.SetAttributes(
			attribute.String("interaction_type", itype.String()),
			attribute.String("status", status.String()),
		)
	}

	result.CognitiveOffloadingDetected = detectOffloading(result, userInput)
	span.SetAttributes(attribute.Bool("cognitive_offloading", result.CognitiveOffloadingDetected))
	return result
}

// classifyWithLLM asks the model for an interaction type, coalescing
// identical in-flight utterances through singleflight.
func (c *Classifier) classifyWithLLM(ctx context.Context, userInput string) (datatypes.InteractionType, datatypes.ResultStatus, string) {
	if c.client == nil {
		return fallbackType(userInput), datatypes.StatusDegraded, "llm_unavailable"
	}

	v, err, _ := c.inflight.Do(userInput, func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		prompt := formatPrompt(userInput)
		return c.client.Generate(callCtx, prompt, llm.GenerationParams{
			Temperature: llm.Float32Ptr(0.0),
			MaxTokens:   llm.IntPtr(128),
		})
	})
	if err != nil {
		c.logger.Warn("llm classification failed, using manual fallback", "error", err)
		return fallbackType(userInput), datatypes.StatusDegraded, "llm_failed"
	}

	raw, _ := v.(string)
	itype, ok := parseLLMClassification(raw)
	if !ok {
		c.logger.Warn("llm classification unparseable, using manual fallback")
		return fallbackType(userInput), datatypes.StatusDegraded, "llm_parse_failed"
	}
	return itype, datatypes.StatusOK, ""
}

func formatPrompt(userInput string) string {
	// %q in the template; quote here to keep the constant printable
	return strings.Replace(classificationPrompt, "%q", jsonQuote(userInput), 1)
}

func jsonQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// parseLLMClassification extracts and validates the model's JSON reply.
func parseLLMClassification(raw string) (datatypes.InteractionType, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	var parsed struct {
		InteractionType string `json:"interaction_type"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return "", false
	}
	itype := datatypes.InteractionType(parsed.InteractionType)
	if !itype.Valid() {
		return "", false
	}
	return itype, true
}

// fallbackType is the manual-only estimate for utterances no
// high-confidence pattern covers.
func fallbackType(userInput string) datatypes.InteractionType {
	lower := strings.ToLower(userInput)
	switch {
	case strings.Contains(lower, "what if") || strings.Contains(lower, "imagine") ||
		strings.Contains(lower, "could i try") || strings.Contains(lower, "experiment"):
		return datatypes.TypeCreativeExploration
	case countTerms(lower, architecturalTerms) >= 2 &&
		(strings.Contains(lower, "my design") || strings.Contains(lower, "my project") ||
			strings.Contains(lower, "i want") || strings.Contains(lower, "i am designing") ||
			strings.Contains(lower, "i'm designing")):
		return datatypes.TypeDesignProblem
	case strings.HasSuffix(strings.TrimSpace(userInput), "?"):
		return datatypes.TypeKnowledgeRequest
	default:
		return datatypes.TypeGeneralStatement
	}
}

// deriveUnderstanding grades topical grasp from vocabulary density and
// hedging.
func deriveUnderstanding(lower string) datatypes.UnderstandingLevel {
	terms := countTerms(lower, architecturalTerms)
	hedges := countTerms(lower, hedgingWords)
	switch {
	case terms >= 3 && hedges == 0:
		return datatypes.UnderstandingHigh
	case terms >= 1:
		return datatypes.UnderstandingMedium
	default:
		return datatypes.UnderstandingLow
	}
}

// deriveConfidence grades expressed certainty.
func deriveConfidence(lower, original string) datatypes.ConfidenceLevel {
	hedges := countTerms(lower, hedgingWords)
	assertive := countTerms(lower, assertiveWords)
	terms := countTerms(lower, architecturalTerms)
	switch {
	case assertive > 0 && terms == 0:
		// certainty without substance
		return datatypes.ConfidenceOverconfident
	case assertive > 0:
		return datatypes.ConfidenceConfident
	case hedges >= 2:
		return datatypes.ConfidenceUncertain
	case hedges == 1 && strings.Count(original, "?") > 1:
		return datatypes.ConfidenceUncertain
	default:
		return datatypes.ConfidenceMedium
	}
}

// deriveEngagement grades investment from length, questions, vocabulary,
// and repetition against recent inputs.
func deriveEngagement(lower, original string, recentInputs []string) datatypes.EngagementLevel {
	score := 0
	words := len(strings.Fields(original))
	switch {
	case words >= 30:
		score += 2
	case words >= 12:
		score++
	}
	if strings.Contains(original, "?") {
		score++
	}
	if countTerms(lower, architecturalTerms) >= 2 {
		score++
	}
	if isRepetitive(lower, recentInputs) {
		score -= 2
	}

	switch {
	case score >= 3:
		return datatypes.EngagementHigh
	case score >= 1:
		return datatypes.EngagementMedium
	default:
		return datatypes.EngagementLow
	}
}

// isRepetitive reports heavy word overlap with any of the last inputs.
func isRepetitive(lower string, recentInputs []string) bool {
	words := strings.Fields(lower)
	if len(words) < 3 {
		return false
	}
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[w] = true
	}
	for _, prev := range recentInputs {
		prevWords := strings.Fields(strings.ToLower(prev))
		if len(prevWords) == 0 {
			continue
		}
		overlap := 0
		for _, w := range prevWords {
			if wordSet[w] {
				overlap++
			}
		}
		if float64(overlap)/float64(len(prevWords)) > 0.8 {
			return true
		}
	}
	return false
}

// detectOffloading applies the offloading rule: direct answer requests,
// overconfidence with low engagement, or an explicit delegation phrase.
// Knowledge and example requests alone never set the flag.
func detectOffloading(c datatypes.Classification, userInput string) bool {
	if c.InteractionType == datatypes.TypeDirectAnswerRequest {
		return true
	}
	if c.ConfidenceLevel == datatypes.ConfidenceOverconfident && c.EngagementLevel == datatypes.EngagementLow {
		return true
	}
	return hasOffloadingPhrase(userInput)
}
