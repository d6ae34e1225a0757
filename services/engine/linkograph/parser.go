// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package linkograph extracts typed design moves from turn text and
// maintains the session linkograph: temporal and semantic links plus
// derived design-cognition metrics.
package linkograph

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/atelier-research/mentor/services/engine/datatypes"
)

// actionVerbs mark a sentence as containing design content.
var actionVerbs = []string{
	"design", "create", "make", "place", "arrange", "organize", "connect",
	"separate", "orient", "shape", "carve", "extend", "raise", "lower",
	"wrap", "open", "close", "divide", "combine", "transform", "adapt",
	"propose", "sketch", "draw", "model", "consider", "analyze", "compare",
	"evaluate", "choose", "select", "reflect", "question", "explore",
}

// focusKeywords score the six design focus categories. The highest
// scoring category wins; function is the default.
var focusKeywords = map[datatypes.DesignFocus][]string{
	datatypes.FocusFunction: {
		"program", "use", "function", "activity", "circulation", "access",
		"entry", "room", "space for", "flexible", "adjacency",
	},
	datatypes.FocusForm: {
		"form", "shape", "massing", "volume", "geometry", "proportion",
		"scale", "curve", "grid", "axis", "silhouette",
	},
	datatypes.FocusStructure: {
		"structure", "column", "beam", "frame", "span", "cantilever",
		"load", "truss", "wall", "foundation", "slab",
	},
	datatypes.FocusMaterial: {
		"material", "concrete", "timber", "wood", "steel", "brick",
		"glass", "stone", "texture", "cladding", "finish",
	},
	datatypes.FocusEnvironment: {
		"light", "daylight", "sun", "shade", "wind", "ventilation",
		"energy", "climate", "sustainable", "thermal", "green", "site",
		"courtyard", "garden",
	},
	datatypes.FocusCulture: {
		"community", "culture", "history", "identity", "memory", "ritual",
		"tradition", "public", "social", "context", "neighborhood",
	},
}

// moveTypeKeywords are the per-type keyword bags.
var moveTypeKeywords = map[datatypes.MoveType][]string{
	datatypes.MoveAnalysis: {
		"analyze", "examine", "study", "understand", "because", "observe",
		"compare", "measure", "investigate", "look at", "consider",
	},
	datatypes.MoveSynthesis: {
		"create", "make", "combine", "design", "propose", "generate",
		"develop", "build", "compose", "integrate", "add",
	},
	datatypes.MoveEvaluation: {
		"evaluate", "assess", "judge", "better", "worse", "good", "bad",
		"works", "fails", "prefer", "stronger", "weaker", "should",
	},
	datatypes.MoveTransformation: {
		"change", "transform", "modify", "adjust", "revise", "shift",
		"rotate", "move", "replace", "reshape", "instead",
	},
	datatypes.MoveReflection: {
		"wonder", "reflect", "realize", "learned", "rethink", "maybe",
		"perhaps", "why", "what if", "question", "i think", "not sure",
	},
}

// creationVerbs drive the synthesis-over-transformation tie-break.
var creationVerbs = []string{"create", "make", "build", "generate", "compose"}

// uncertaintyMarkers are counted per move.
var uncertaintyMarkers = []string{
	"maybe", "perhaps", "might", "not sure", "i think", "i guess",
	"possibly", "unclear", "uncertain",
}

// Parser converts turn text into design moves.
type Parser struct {
	splitter textsplitter.RecursiveCharacter
}

// NewParser builds a Parser. Long sentences are chunked to the move
// content cap before classification.
func NewParser() *Parser {
	sp := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(datatypes.MoveContentMaxLen),
		textsplitter.WithChunkOverlap(0),
	)
	return &Parser{splitter: sp}
}

// Parse extracts design moves from one side of a turn.
//
// Description:
//
//	Splits text into sentences, keeps sentences with design content
//	(an action verb or a focus keyword), and emits one typed move per
//	kept sentence. Sequence numbers are assigned later by the Builder.
//
// Inputs:
//
//	sessionID - Owning session.
//	text - User or assistant text.
//	source - Attribution for the emitted moves.
//	phase - The session's phase at extraction time.
//	aiInfluence - [0,1]; self_generation_strength is its complement.
func (p *Parser) Parse(sessionID, text string, source datatypes.MoveSource, phase datatypes.Phase, aiInfluence float64) []datatypes.DesignMove {
	var moves []datatypes.DesignMove
	for _, sentence := range splitSentences(text) {
		if !hasDesignContent(sentence) {
			continue
		}
		for _, chunk := range p.chunk(sentence) {
			lower := strings.ToLower(chunk)
			complexity := complexityScore(chunk)
			moves = append(moves, datatypes.DesignMove{
				ID:                     uuid.NewString(),
				SessionID:              sessionID,
				Timestamp:              datatypes.NowUnixMilli(),
				Content:                chunk,
				MoveType:               classifyMoveType(chunk),
				Phase:                  phase,
				Modality:               datatypes.ModalityText,
				DesignFocus:            classifyFocus(lower),
				Source:                 source,
				CognitiveLoad:          loadFromComplexity(complexity),
				SelfGenerationStrength: 1 - aiInfluence,
				AIInfluenceStrength:    aiInfluence,
				ComplexityScore:        complexity,
				UncertaintyMarkers:     countMarkers(lower),
			})
		}
	}
	return moves
}

// chunk enforces the content length cap, splitting oversized sentences.
func (p *Parser) chunk(sentence string) []string {
	if len(sentence) <= datatypes.MoveContentMaxLen {
		return []string{sentence}
	}
	chunks, err := p.splitter.SplitText(sentence)
	if err != nil || len(chunks) == 0 {
		// hard truncation fallback
		return []string{truncateRunes(sentence, datatypes.MoveContentMaxLen)}
	}
	return chunks
}

// truncateRunes cuts s to at most limit bytes without splitting a rune.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// splitSentences breaks text on terminal punctuation, keeping the
// terminator attached so "?"-only detection survives.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(b.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func hasDesignContent(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, v := range actionVerbs {
		if strings.Contains(lower, v) {
			return true
		}
	}
	for _, kws := range focusKeywords {
		for _, kw := range kws {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// classifyMoveType scores the keyword bags. Synthesis wins ties over
// transformation and analysis when a creation verb is present; a bare
// question is a reflection.
func classifyMoveType(sentence string) datatypes.MoveType {
	lower := strings.ToLower(sentence)

	trimmed := strings.TrimSpace(lower)
	if strings.HasSuffix(trimmed, "?") && countMoveKeywords(trimmed) == 0 {
		return datatypes.MoveReflection
	}

	scores := map[datatypes.MoveType]int{}
	for mt, kws := range moveTypeKeywords {
		for _, kw := range kws {
			if strings.Contains(lower, kw) {
				scores[mt]++
			}
		}
	}

	hasCreation := false
	for _, v := range creationVerbs {
		if strings.Contains(lower, v) {
			hasCreation = true
			break
		}
	}

	best := datatypes.MoveAnalysis
	bestScore := -1
	// fixed evaluation order keeps ties deterministic
	order := []datatypes.MoveType{
		datatypes.MoveSynthesis,
		datatypes.MoveTransformation,
		datatypes.MoveAnalysis,
		datatypes.MoveEvaluation,
		datatypes.MoveReflection,
	}
	for _, mt := range order {
		s := scores[mt]
		if s > bestScore {
			best = mt
			bestScore = s
		}
	}
	if bestScore == 0 {
		return datatypes.MoveAnalysis
	}

	// creation verbs break synthesis/transformation/analysis ties toward
	// synthesis
	if hasCreation && (best == datatypes.MoveTransformation || best == datatypes.MoveAnalysis) &&
		scores[datatypes.MoveSynthesis] == bestScore {
		best = datatypes.MoveSynthesis
	}
	return best
}

func countMoveKeywords(lower string) int {
	n := 0
	for _, kws := range moveTypeKeywords {
		for _, kw := range kws {
			if strings.Contains(lower, kw) {
				n++
			}
		}
	}
	return n
}

func classifyFocus(lower string) datatypes.DesignFocus {
	best := datatypes.FocusFunction
	bestScore := 0
	for _, f := range datatypes.AllDesignFoci() {
		score := 0
		for _, kw := range focusKeywords[f] {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best = f
			bestScore = score
		}
	}
	return best
}

// complexityScore maps sentence length, vocabulary spread, and clause
// structure to [0,1].
func complexityScore(sentence string) float64 {
	words := strings.Fields(sentence)
	if len(words) == 0 {
		return 0
	}

	unique := map[string]bool{}
	for _, w := range words {
		unique[strings.ToLower(strings.Trim(w, ".,?!:;"))] = true
	}
	diversity := float64(len(unique)) / float64(len(words))

	lengthFactor := float64(len(words)) / 40.0
	if lengthFactor > 1 {
		lengthFactor = 1
	}

	clauses := 1 + strings.Count(sentence, ",") + strings.Count(strings.ToLower(sentence), " which ") +
		strings.Count(strings.ToLower(sentence), " because ")
	clauseFactor := float64(clauses) / 5.0
	if clauseFactor > 1 {
		clauseFactor = 1
	}

	score := 0.45*lengthFactor + 0.25*diversity + 0.3*clauseFactor
	if score > 1 {
		score = 1
	}
	return score
}

func loadFromComplexity(c float64) datatypes.CognitiveLoad {
	switch {
	case c > 0.7:
		return datatypes.LoadHigh
	case c > 0.4:
		return datatypes.LoadMedium
	default:
		return datatypes.LoadLow
	}
}

func countMarkers(lower string) int {
	n := 0
	for _, m := range uncertaintyMarkers {
		if strings.Contains(lower, m) {
			n++
		}
	}
	return n
}
