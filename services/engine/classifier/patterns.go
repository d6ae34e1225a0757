// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package classifier

import (
	"regexp"
	"strings"

	"github.com/atelier-research/mentor/services/engine/datatypes"
)

// manualPattern maps an unambiguous lexical pattern to an interaction type.
// Patterns are evaluated in order; the first match wins, so disambiguating
// patterns must precede the broader ones they overlap with.
type manualPattern struct {
	name  string
	regex *regexp.Regexp
	itype datatypes.InteractionType
}

var manualPatterns = []manualPattern{
	// direct answer requests, including the disambiguated "exactly" forms
	{"design_it_for_me", regexp.MustCompile(`(?i)\bdesign (it|this|one|something) for me\b`), datatypes.TypeDirectAnswerRequest},
	{"do_it_for_me", regexp.MustCompile(`(?i)\bdo (it|this|that) for me\b`), datatypes.TypeDirectAnswerRequest},
	{"just_tell_me", regexp.MustCompile(`(?i)\bjust (tell|give) me\b`), datatypes.TypeDirectAnswerRequest},
	{"show_me_exactly", regexp.MustCompile(`(?i)\bshow me exactly\b`), datatypes.TypeDirectAnswerRequest},
	{"tell_me_exactly", regexp.MustCompile(`(?i)\btell me exactly\b`), datatypes.TypeDirectAnswerRequest},
	{"give_me_the_answer", regexp.MustCompile(`(?i)\bgive me the (answer|solution|design)\b`), datatypes.TypeDirectAnswerRequest},
	{"what_should_i_design", regexp.MustCompile(`(?i)\bwhat should i (design|build|make)\b`), datatypes.TypeDirectAnswerRequest},

	// example requests
	{"show_me_examples", regexp.MustCompile(`(?i)\bshow me (some )?examples?\b`), datatypes.TypeExampleRequest},
	{"examples_of", regexp.MustCompile(`(?i)\bexamples? of\b`), datatypes.TypeExampleRequest},
	{"precedents", regexp.MustCompile(`(?i)\b(precedents?|case stud(y|ies))\b`), datatypes.TypeExampleRequest},

	// technical questions before the broader knowledge patterns
	{"what_is_the_requirement", regexp.MustCompile(`(?i)\bwhat (is|are) the (requirements?|regulations?|codes?|standards?)\b`), datatypes.TypeTechnicalQuestion},
	{"dimension_question", regexp.MustCompile(`(?i)\b(minimum|maximum|typical) (width|height|span|size|dimension|clearance|slope)\b`), datatypes.TypeTechnicalQuestion},
	{"load_structure_question", regexp.MustCompile(`(?i)\b(load[- ]bearing|structural (load|capacity)|fire (rating|egress)|ada complian\w+)\b`), datatypes.TypeTechnicalQuestion},

	// knowledge requests
	{"what_is", regexp.MustCompile(`(?i)^\s*what (is|are)\b`), datatypes.TypeKnowledgeRequest},
	{"tell_me_about", regexp.MustCompile(`(?i)\btell me about\b`), datatypes.TypeKnowledgeRequest},
	{"explain", regexp.MustCompile(`(?i)^\s*(explain|describe)\b`), datatypes.TypeKnowledgeRequest},
	{"key_principles", regexp.MustCompile(`(?i)\b(key )?principles of\b`), datatypes.TypeKnowledgeRequest},

	// implementation requests
	{"how_do_i", regexp.MustCompile(`(?i)\bhow (do|should|can|would) i (implement|build|construct|detail|draw|model)\b`), datatypes.TypeImplementationReq},
	{"how_to_build", regexp.MustCompile(`(?i)\bhow to (implement|build|construct|detail)\b`), datatypes.TypeImplementationReq},

	// feedback requests
	{"what_do_you_think", regexp.MustCompile(`(?i)\bwhat do you think\b`), datatypes.TypeFeedbackRequest},
	{"feedback_on", regexp.MustCompile(`(?i)\b(feedback|critique|review) (on|of|my)\b`), datatypes.TypeFeedbackRequest},
	{"is_this_good", regexp.MustCompile(`(?i)\bis (this|my \w+) (good|okay|ok|working|right)\b`), datatypes.TypeFeedbackRequest},

	// confusion
	{"dont_understand", regexp.MustCompile(`(?i)\b(don'?t|do not) understand\b`), datatypes.TypeConfusionExpression},
	{"confused", regexp.MustCompile(`(?i)\b(i'?m |i am )?(confused|lost|stuck)\b`), datatypes.TypeConfusionExpression},
	{"not_sure_what", regexp.MustCompile(`(?i)\bnot sure (what|how|where) (to|i)\b`), datatypes.TypeConfusionExpression},

	// improvement seeking
	{"how_can_i_improve", regexp.MustCompile(`(?i)\bhow (can|could|do) i (improve|strengthen|refine)\b`), datatypes.TypeImprovementSeeking},
	{"make_it_better", regexp.MustCompile(`(?i)\bmake (it|this|my \w+) (better|stronger)\b`), datatypes.TypeImprovementSeeking},
}

// offloadingPhrases are explicit solution-delegation markers beyond the
// direct_answer_request type itself.
var offloadingPhrases = []string{
	"do it for me",
	"design it for me",
	"do this for me",
	"solve it for me",
	"do my project",
	"complete it for me",
}

// matchManual returns the first matching manual pattern, if any.
func matchManual(input string) (datatypes.InteractionType, string, bool) {
	for _, p := range manualPatterns {
		if p.regex.MatchString(input) {
			return p.itype, p.name, true
		}
	}
	return "", "", false
}

// hasOffloadingPhrase reports an explicit "do it for me" style phrase.
func hasOffloadingPhrase(input string) bool {
	lower := strings.ToLower(input)
	for _, phrase := range offloadingPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// architecturalTerms is the vocabulary used for understanding and
// engagement scoring. Deliberately broad; matching is substring-based
// over lowercased input.
var architecturalTerms = []string{
	"circulation", "massing", "facade", "section", "elevation", "plan",
	"program", "site", "context", "threshold", "daylight", "courtyard",
	"structure", "cantilever", "envelope", "cladding", "sustainability",
	"passive", "orientation", "adjacency", "spatial", "tectonic",
	"material", "concrete", "timber", "steel", "glazing", "atrium",
	"scale", "proportion", "axis", "datum", "hierarchy", "typology",
	"precedent", "parti", "zoning", "egress", "ventilation",
}

// hedgingWords lower the confidence estimate.
var hedgingWords = []string{
	"maybe", "perhaps", "i think", "i guess", "not sure", "possibly",
	"might", "kind of", "sort of", "i suppose",
}

// assertiveWords raise the confidence estimate.
var assertiveWords = []string{
	"definitely", "obviously", "clearly", "certainly", "of course",
	"i know", "absolutely", "without a doubt",
}

// countTerms counts occurrences of vocabulary terms in lowercased input.
func countTerms(lower string, terms []string) int {
	count := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			count++
		}
	}
	return count
}
