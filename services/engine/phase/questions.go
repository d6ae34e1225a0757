// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package phase

import "github.com/atelier-research/mentor/services/engine/datatypes"

// SocraticQuestion is one entry of the curriculum question bank.
type SocraticQuestion struct {
	ID         string
	Milestone  string
	Difficulty datatypes.QuestionDifficulty
	Text       string
	Keywords   []string
	FollowUps  []string
}

// questionBank holds every curriculum question, keyed by milestone. The
// per-milestone order is the tie-break when several unseen questions
// share a difficulty.
var questionBank = map[string][]SocraticQuestion{
	// --- IDEATION ---
	"concept_development": {
		{
			ID: "cd_b1", Milestone: "concept_development", Difficulty: datatypes.DifficultyBasic,
			Text:     "What is the one experience you most want people to have in your building?",
			Keywords: []string{"experience", "feel", "concept", "idea", "people", "space"},
			FollowUps: []string{
				"What would a visitor notice first?",
			},
		},
		{
			ID: "cd_b2", Milestone: "concept_development", Difficulty: datatypes.DifficultyBasic,
			Text:     "Describe your design concept in a single sentence. What drives it?",
			Keywords: []string{"concept", "idea", "drive", "central", "parti"},
		},
		{
			ID: "cd_a1", Milestone: "concept_development", Difficulty: datatypes.DifficultyAnalytical,
			Text:     "How does your concept respond to the specific needs of the community it serves?",
			Keywords: []string{"community", "needs", "respond", "users", "program", "culture"},
		},
		{
			ID: "cd_s1", Milestone: "concept_development", Difficulty: datatypes.DifficultySynthetic,
			Text:     "How could you combine your concept with the site's constraints to produce something neither would suggest alone?",
			Keywords: []string{"combine", "site", "constraint", "concept", "integrate"},
		},
		{
			ID: "cd_e1", Milestone: "concept_development", Difficulty: datatypes.DifficultyEvaluative,
			Text:     "If you had to defend your concept against a cheaper conventional alternative, what is its strongest argument and its weakest point?",
			Keywords: []string{"defend", "argument", "weakness", "strength", "evaluate", "alternative"},
		},
	},
	"site_context": {
		{
			ID: "sc_b1", Milestone: "site_context", Difficulty: datatypes.DifficultyBasic,
			Text:     "What are the three most important things you know about your site?",
			Keywords: []string{"site", "context", "orientation", "access", "neighbors", "climate"},
		},
		{
			ID: "sc_a1", Milestone: "site_context", Difficulty: datatypes.DifficultyAnalytical,
			Text:     "How do sun path and prevailing winds shape where the building should sit on the site?",
			Keywords: []string{"sun", "wind", "orientation", "shade", "daylight", "site"},
		},
		{
			ID: "sc_s1", Milestone: "site_context", Difficulty: datatypes.DifficultySynthetic,
			Text:     "How might the site's edges and the building's entries work together as one continuous public sequence?",
			Keywords: []string{"edge", "entry", "sequence", "public", "threshold", "street"},
		},
		{
			ID: "sc_e1", Milestone: "site_context", Difficulty: datatypes.DifficultyEvaluative,
			Text:     "Which site constraint did you choose to ignore, and why was that the right trade-off?",
			Keywords: []string{"constraint", "trade-off", "ignore", "justify", "priority"},
		},
	},
	"program_definition": {
		{
			ID: "pd_b1", Milestone: "program_definition", Difficulty: datatypes.DifficultyBasic,
			Text:     "List the main spaces your building needs. Which one is the heart of the project?",
			Keywords: []string{"spaces", "program", "rooms", "heart", "main", "function"},
		},
		{
			ID: "pd_a1", Milestone: "program_definition", Difficulty: datatypes.DifficultyAnalytical,
			Text:     "Which adjacencies in your program matter most, and what happens if you get them wrong?",
			Keywords: []string{"adjacency", "relationship", "program", "circulation", "connect"},
		},
		{
			ID: "pd_s1", Milestone: "program_definition", Difficulty: datatypes.DifficultySynthetic,
			Text:     "Could two of your programmed spaces share one volume at different times of day? What would that unlock?",
			Keywords: []string{"share", "flexible", "time", "overlap", "multi-use", "volume"},
		},
		{
			ID: "pd_e1", Milestone: "program_definition", Difficulty: datatypes.DifficultyEvaluative,
			Text:     "Assess your program against the brief: where does it exceed the brief, and where does it fall short?",
			Keywords: []string{"assess", "brief", "exceed", "fall short", "evaluate", "program"},
		},
	},

	// --- VISUALIZATION ---
	"spatial_organization": {
		{
			ID: "so_b1", Milestone: "spatial_organization", Difficulty: datatypes.DifficultyBasic,
			Text:     "How do people move through your building from entry to the main space?",
			Keywords: []string{"move", "circulation", "entry", "path", "sequence"},
		},
		{
			ID: "so_a1", Milestone: "spatial_organization", Difficulty: datatypes.DifficultyAnalytical,
			Text:     "What organizing geometry underlies your plan, and where does it intentionally break?",
			Keywords: []string{"geometry", "grid", "axis", "order", "break", "plan"},
		},
		{
			ID: "so_s1", Milestone: "spatial_organization", Difficulty: datatypes.DifficultySynthetic,
			Text:     "How could circulation itself become a social space rather than just a corridor?",
			Keywords: []string{"circulation", "social", "corridor", "gather", "widen", "stair"},
		},
		{
			ID: "so_e1", Milestone: "spatial_organization", Difficulty: datatypes.DifficultyEvaluative,
			Text:     "Walk a skeptical visitor through your plan: where would they get lost, and is that acceptable?",
			Keywords: []string{"wayfinding", "lost", "legible", "evaluate", "visitor"},
		},
	},
	"massing_form": {
		{
			ID: "mf_b1", Milestone: "massing_form", Difficulty: datatypes.DifficultyBasic,
			Text:     "Describe the overall shape of your building. Why this form and not a simple box?",
			Keywords: []string{"shape", "form", "massing", "volume", "box"},
		},
		{
			ID: "mf_a1", Milestone: "massing_form", Difficulty: datatypes.DifficultyAnalytical,
			Text:     "How does your massing respond to the scale of its neighbors and the street?",
			Keywords: []string{"massing", "scale", "neighbors", "street", "height", "setback"},
		},
		{
			ID: "mf_s1", Milestone: "massing_form", Difficulty: datatypes.DifficultySynthetic,
			Text:     "What happens if you carve the mass where light is needed and thicken it where structure gathers?",
			Keywords: []string{"carve", "light", "thicken", "structure", "mass", "section"},
		},
		{
			ID: "mf_e1", Milestone: "massing_form", Difficulty: datatypes.DifficultyEvaluative,
			Text:     "Does your form express the concept or fight it? Point to one place where they align and one where they diverge.",
			Keywords: []string{"form", "concept", "express", "align", "diverge", "evaluate"},
		},
	},
	"representation": {
		{
			ID: "rp_b1", Milestone: "representation", Difficulty: datatypes.DifficultyBasic,
			Text:     "Which drawing best explains your project right now: plan, section, or axon? What does it show?",
			Keywords: []string{"drawing", "plan", "section", "axon", "show", "sketch"},
		},
		{
			ID: "rp_a1", Milestone: "representation", Difficulty: datatypes.DifficultyAnalytical,
			Text:     "What does your section reveal about the project that the plan hides?",
			Keywords: []string{"section", "reveal", "plan", "height", "light", "level"},
		},
		{
			ID: "rp_s1", Milestone: "representation", Difficulty: datatypes.DifficultySynthetic,
			Text:     "Combine a section and a site line in one drawing: what new relationship appears?",
			Keywords: []string{"combine", "section", "site", "drawing", "relationship"},
		},
		{
			ID: "rp_e1", Milestone: "representation", Difficulty: datatypes.DifficultyEvaluative,
			Text:     "If a reviewer saw only one of your drawings, which would you choose and what would you accept losing?",
			Keywords: []string{"reviewer", "choose", "losing", "communicate", "evaluate"},
		},
	},

	// --- MATERIALIZATION ---
	"structure_systems": {
		{
			ID: "ss_b1", Milestone: "structure_systems", Difficulty: datatypes.DifficultyBasic,
			Text:     "What holds your building up? Name the primary structural system.",
			Keywords: []string{"structure", "column", "beam", "wall", "frame", "system"},
		},
		{
			ID: "ss_a1", Milestone: "structure_systems", Difficulty: datatypes.DifficultyAnalytical,
			Text:     "Where does your structural grid conflict with your spatial intentions, and how do you resolve it?",
			Keywords: []string{"grid", "conflict", "span", "resolve", "column", "space"},
		},
		{
			ID: "ss_s1", Milestone: "structure_systems", Difficulty: datatypes.DifficultySynthetic,
			Text:     "Could the structure also do the environmental work, shading, ventilation, or thermal mass?",
			Keywords: []string{"structure", "shading", "ventilation", "thermal", "integrate"},
		},
		{
			ID: "ss_e1", Milestone: "structure_systems", Difficulty: datatypes.DifficultyEvaluative,
			Text:     "Is your structural system honest to the architecture, or decorative? Defend your position.",
			Keywords: []string{"honest", "decorative", "express", "defend", "evaluate", "tectonic"},
		},
	},
	"materials_detail": {
		{
			ID: "md_b1", Milestone: "materials_detail", Difficulty: datatypes.DifficultyBasic,
			Text:     "Name your two primary materials. What does each one do for the experience of the building?",
			Keywords: []string{"material", "concrete", "timber", "steel", "brick", "experience"},
		},
		{
			ID: "md_a1", Milestone: "materials_detail", Difficulty: datatypes.DifficultyAnalytical,
			Text:     "Where do your two materials meet, and what does that junction say about the design?",
			Keywords: []string{"junction", "meet", "detail", "joint", "material"},
		},
		{
			ID: "md_s1", Milestone: "materials_detail", Difficulty: datatypes.DifficultySynthetic,
			Text:     "How could one material change its role from outside to inside, from skin to furniture?",
			Keywords: []string{"material", "role", "inside", "outside", "skin", "continuity"},
		},
		{
			ID: "md_e1", Milestone: "materials_detail", Difficulty: datatypes.DifficultyEvaluative,
			Text:     "Audit your palette for cost and carbon: which material would you sacrifice first, and what would the design lose?",
			Keywords: []string{"cost", "carbon", "sacrifice", "palette", "evaluate", "lose"},
		},
	},
	"sustainability_integration": {
		{
			ID: "si_b1", Milestone: "sustainability_integration", Difficulty: datatypes.DifficultyBasic,
			Text:     "What is the single biggest environmental strategy in your design?",
			Keywords: []string{"environmental", "passive", "solar", "shading", "strategy", "sustainable"},
		},
		{
			ID: "si_a1", Milestone: "sustainability_integration", Difficulty: datatypes.DifficultyAnalytical,
			Text:     "How does your orientation and envelope reduce the building's energy demand?",
			Keywords: []string{"orientation", "envelope", "energy", "insulation", "glazing", "reduce"},
		},
		{
			ID: "si_s1", Milestone: "sustainability_integration", Difficulty: datatypes.DifficultySynthetic,
			Text:     "Can a sustainability measure double as the project's strongest spatial moment, a shaded court, a thick wall, a water path?",
			Keywords: []string{"double", "court", "shade", "water", "spatial", "integrate"},
		},
		{
			ID: "si_e1", Milestone: "sustainability_integration", Difficulty: datatypes.DifficultyEvaluative,
			Text:     "Which of your green strategies is genuinely effective and which is gesture? How do you know?",
			Keywords: []string{"effective", "gesture", "measure", "evidence", "evaluate"},
		},
	},
}

// selectQuestion picks the first unseen question matching the difficulty
// ladder for the milestone's rolling average.
//
// Ladder: average >= 4 prefers evaluative then synthetic; 3 <= average
// < 4 prefers analytical; below 3 prefers basic. If the preferred tiers
// are exhausted any unseen question is used.
func selectQuestion(milestone string, rollingAvg float64, seen map[string]bool) *SocraticQuestion {
	bank := questionBank[milestone]
	if len(bank) == 0 {
		return nil
	}

	var preferred []datatypes.QuestionDifficulty
	switch {
	case rollingAvg >= 4:
		preferred = []datatypes.QuestionDifficulty{datatypes.DifficultyEvaluative, datatypes.DifficultySynthetic}
	case rollingAvg >= 3:
		preferred = []datatypes.QuestionDifficulty{datatypes.DifficultyAnalytical}
	default:
		preferred = []datatypes.QuestionDifficulty{datatypes.DifficultyBasic}
	}

	for _, diff := range preferred {
		for i := range bank {
			if bank[i].Difficulty == diff && !seen[bank[i].ID] {
				return &bank[i]
			}
		}
	}
	for i := range bank {
		if !seen[bank[i].ID] {
			return &bank[i]
		}
	}
	return nil
}
