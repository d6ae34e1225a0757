// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package phase

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atelier-research/mentor/services/engine/datatypes"
	"github.com/atelier-research/mentor/services/engine/llm"
)

// archVocabulary scores technical understanding in graded responses.
var archVocabulary = []string{
	"circulation", "massing", "facade", "section", "elevation", "plan",
	"program", "site", "context", "threshold", "daylight", "courtyard",
	"structure", "cantilever", "envelope", "cladding", "load",
	"passive", "orientation", "adjacency", "spatial", "tectonic",
	"material", "concrete", "timber", "steel", "glazing", "atrium",
	"scale", "proportion", "axis", "hierarchy", "typology", "precedent",
	"egress", "ventilation", "insulation", "span",
}

// reasoningMarkers raise the depth score: they indicate the response
// argues rather than lists.
var reasoningMarkers = []string{
	"because", "so that", "which means", "therefore", "as a result",
	"in order to", "the reason", "this allows", "trade-off", "tradeoff",
}

// creativeMarkers raise the innovation score above its baseline.
var creativeMarkers = []string{
	"what if", "instead of", "unconventional", "imagine", "reinterpret",
	"invert", "hybrid", "unexpected", "flip", "borrow from",
}

// Grader scores milestone answers against the rubric. The heuristic
// path is deterministic; when an LLM client is present it may refine
// the heuristic score, falling back silently on any failure.
type Grader struct {
	client  llm.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewGrader builds a Grader. client may be nil for heuristic-only
// grading.
func NewGrader(client llm.Client, timeout time.Duration, logger *slog.Logger) *Grader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Grader{client: client, timeout: timeout, logger: logger}
}

// Grade scores a response to a question.
//
// Description:
//
//	Heuristic dimensions: completeness from keyword coverage, depth from
//	length and reasoning markers, relevance from lexical overlap with the
//	question, technical understanding from architectural vocabulary, and
//	innovation from a 2.5 baseline adjusted by creative markers. When an
//	LLM client is configured its rubric overrides the heuristic one if it
//	parses and validates; otherwise the heuristic result stands.
//
// Outputs:
//
//	datatypes.Rubric - All dimensions in [0,5].
func (g *Grader) Grade(ctx context.Context, q *SocraticQuestion, response string) datatypes.Rubric {
	tracer := otel.Tracer("mentor.phase")
	ctx, span := tracer.Start(ctx, "grader.grade")
	defer span.End()
	span.SetAttributes(
		attribute.String("question.id", q.ID),
		attribute.Int("response.len", len(response)),
	)

	rubric := gradeHeuristic(q, response)

	if g.client != nil {
		if refined, ok := g.gradeWithLLM(ctx, q, response); ok {
			span.SetAttributes(attribute.Bool("grader.llm_refined", true))
			return refined
		}
	}
	return rubric
}

func gradeHeuristic(q *SocraticQuestion, response string) datatypes.Rubric {
	lower := strings.ToLower(response)
	words := strings.Fields(lower)

	var r datatypes.Rubric

	covered := 0
	for _, kw := range q.Keywords {
		if strings.Contains(lower, kw) {
			covered++
		}
	}
	if len(q.Keywords) > 0 {
		r.Completeness = clamp5(5 * float64(covered) / float64(len(q.Keywords)))
	} else {
		// no keyword rubric for this question, score on substance
		switch {
		case len(words) >= 30:
			r.Completeness = 4
		case len(words) >= 15:
			r.Completeness = 3
		default:
			r.Completeness = 2
		}
	}

	switch {
	case len(words) >= 60:
		r.Depth = 4
	case len(words) >= 30:
		r.Depth = 3
	case len(words) >= 15:
		r.Depth = 2
	case len(words) >= 8:
		r.Depth = 1.5
	default:
		r.Depth = 1
	}
	for _, m := range reasoningMarkers {
		if strings.Contains(lower, m) {
			r.Depth = clamp5(r.Depth + 0.5)
		}
	}

	r.Relevance = relevance(q, lower)

	tech := 0
	for _, t := range archVocabulary {
		if strings.Contains(lower, t) {
			tech++
		}
	}
	switch {
	case tech >= 5:
		r.TechnicalUnderstanding = 5
	case tech >= 3:
		r.TechnicalUnderstanding = 4
	case tech >= 2:
		r.TechnicalUnderstanding = 3
	case tech >= 1:
		r.TechnicalUnderstanding = 2
	default:
		r.TechnicalUnderstanding = 1
	}

	r.Innovation = 2.5
	for _, m := range creativeMarkers {
		if strings.Contains(lower, m) {
			r.Innovation = clamp5(r.Innovation + 0.75)
		}
	}

	return r
}

// relevance measures lexical overlap between the response and the
// question text plus keywords, ignoring short stop-ish words.
func relevance(q *SocraticQuestion, lowerResponse string) float64 {
	qWords := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(q.Text)) {
		w = strings.Trim(w, ".,?!:;\"'")
		if len(w) > 3 {
			qWords[w] = true
		}
	}
	for _, kw := range q.Keywords {
		qWords[kw] = true
	}
	if len(qWords) == 0 {
		return 2.5
	}
	hit := 0
	for w := range qWords {
		if strings.Contains(lowerResponse, w) {
			hit++
		}
	}
	frac := float64(hit) / float64(len(qWords))
	return clamp5(1 + 4*frac)
}

const gradingPrompt = `You are grading a design student's answer to a mentoring question.
Question: %q
Answer: %q
Respond ONLY with JSON:
{"completeness": 0-5, "depth": 0-5, "relevance": 0-5, "innovation": 0-5, "technical_understanding": 0-5}`

func (g *Grader) gradeWithLLM(ctx context.Context, q *SocraticQuestion, response string) (datatypes.Rubric, bool) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := strings.Replace(gradingPrompt, "%q", jsonQuote(q.Text), 1)
	prompt = strings.Replace(prompt, "%q", jsonQuote(response), 1)

	out, err := g.client.Generate(ctx, prompt, llm.GenerationParams{
		Temperature: llm.Float32Ptr(0.0),
		MaxTokens:   llm.IntPtr(96),
	})
	if err != nil {
		g.logger.Debug("llm grading failed, keeping heuristic", "error", err)
		return datatypes.Rubric{}, false
	}

	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end <= start {
		return datatypes.Rubric{}, false
	}
	var r datatypes.Rubric
	if err := json.Unmarshal([]byte(out[start:end+1]), &r); err != nil {
		return datatypes.Rubric{}, false
	}
	if err := r.Validate(); err != nil {
		return datatypes.Rubric{}, false
	}
	return r, true
}

func jsonQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func clamp5(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}
