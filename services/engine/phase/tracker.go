// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package phase owns the three-phase curriculum: milestones, the
// Socratic question bank, rubric grading, and one-way phase
// transitions.
//
// One Tracker exists per session. All exported methods are safe for
// concurrent use.
package phase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atelier-research/mentor/services/engine/datatypes"
)

var (
	// ErrSessionComplete indicates the session already reached COMPLETE.
	ErrSessionComplete = errors.New("phase: session already complete")
)

// phaseWeights distribute session progress across the curriculum.
var phaseWeights = map[datatypes.Phase]float64{
	datatypes.PhaseIdeation:        0.25,
	datatypes.PhaseVisualization:   0.35,
	datatypes.PhaseMaterialization: 0.30,
	datatypes.PhaseComplete:        0.10,
}

// milestoneDef declares one milestone and its intra-phase weight.
// Weights within a phase sum to 1.0.
type milestoneDef struct {
	name   string
	weight float64
}

var phaseMilestones = map[datatypes.Phase][]milestoneDef{
	datatypes.PhaseIdeation: {
		{"concept_development", 0.4},
		{"site_context", 0.3},
		{"program_definition", 0.3},
	},
	datatypes.PhaseVisualization: {
		{"spatial_organization", 0.35},
		{"massing_form", 0.35},
		{"representation", 0.3},
	},
	datatypes.PhaseMaterialization: {
		{"structure_systems", 0.4},
		{"materials_detail", 0.3},
		{"sustainability_integration", 0.3},
	},
}

// indicatorKeywords drive checklist deltas: an indicator is satisfied
// once any of its keywords appears in the combined turn text.
var indicatorKeywords = map[string]map[string][]string{
	"concept_development": {
		"concept_articulated":  {"my concept", "the concept is", "big idea", "parti", "central idea"},
		"experience_described": {"experience", "feel like", "atmosphere", "people will"},
	},
	"site_context": {
		"site_analyzed":        {"sun path", "orientation", "site analysis", "prevailing wind", "topography"},
		"context_considered":   {"neighborhood", "surrounding", "street", "neighbors", "urban context"},
	},
	"program_definition": {
		"spaces_listed":        {"spaces", "rooms", "program includes", "square meters", "sqm", "area"},
		"adjacencies_mapped":   {"adjacency", "adjacent", "next to", "connected to", "relationship between"},
	},
	"spatial_organization": {
		"circulation_resolved": {"circulation", "movement", "path through", "sequence", "corridor"},
		"zoning_defined":       {"public", "private", "zones", "zoning", "served", "servant"},
	},
	"massing_form": {
		"massing_studied":      {"massing", "volume", "mass", "form study"},
		"scale_addressed":      {"scale", "height", "proportion", "setback"},
	},
	"representation": {
		"drawings_described":   {"plan", "section", "elevation", "axon", "sketch", "drawing"},
		"views_considered":     {"perspective", "render", "view from", "vignette"},
	},
	"structure_systems": {
		"structure_chosen":     {"column", "beam", "frame", "load-bearing", "structural system", "truss"},
		"grid_resolved":        {"grid", "span", "spacing", "bay"},
	},
	"materials_detail": {
		"palette_defined":      {"concrete", "timber", "steel", "brick", "material palette", "cladding"},
		"junctions_considered": {"junction", "detail", "joint", "connection"},
	},
	"sustainability_integration": {
		"passive_strategy":     {"passive", "shading", "cross ventilation", "thermal mass", "daylighting"},
		"performance_argued":   {"energy", "carbon", "insulation", "performance", "u-value"},
	},
}

// milestoneState is the mutable per-milestone record.
type milestoneState struct {
	def       milestoneDef
	answered  int
	scores    []float64
	satisfied map[string]bool
}

func (m *milestoneState) average() float64 {
	if len(m.scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range m.scores {
		sum += s
	}
	return sum / float64(len(m.scores))
}

// completionPercent is 100 * (avg/5) * min(answered/3, 1).
func (m *milestoneState) completionPercent() float64 {
	answerFactor := float64(m.answered) / 3.0
	if answerFactor > 1 {
		answerFactor = 1
	}
	return 100 * (m.average() / 5.0) * answerFactor
}

func (m *milestoneState) complete(passThreshold float64) bool {
	return m.answered >= 2 && m.average() >= passThreshold
}

// UpdateResult is what one turn changed in the curriculum model.
type UpdateResult struct {
	// Graded is non-nil when a pending question was graded this turn.
	Graded *GradeRecord

	// ChecklistDeltas are newly satisfied indicators.
	ChecklistDeltas []datatypes.ChecklistDelta

	// Transition is non-nil when the turn completed the phase.
	Transition *datatypes.PhaseTransition

	// CompletionPercent is the current phase's progress after the turn.
	CompletionPercent float64
}

// GradeRecord ties a rubric to the question it graded.
type GradeRecord struct {
	QuestionID string
	Milestone  string
	Rubric     datatypes.Rubric
}

// Tracker is the per-session curriculum state machine.
type Tracker struct {
	mu sync.Mutex

	current       datatypes.Phase
	states        map[datatypes.Phase]map[string]*milestoneState
	seenQuestions map[string]bool
	pending       *SocraticQuestion
	transitions   []datatypes.PhaseTransition
	passThreshold float64
	grader        *Grader
	logger        *slog.Logger
}

// NewTracker builds a Tracker starting in IDEATION.
//
// Inputs:
//
//	passThreshold - Minimum rolling average for milestone completion.
//	grader - Rubric grader; must be non-nil.
//	logger - Destination for progression events.
func NewTracker(passThreshold float64, grader *Grader, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	states := make(map[datatypes.Phase]map[string]*milestoneState, len(phaseMilestones))
	for ph, defs := range phaseMilestones {
		states[ph] = make(map[string]*milestoneState, len(defs))
		for _, d := range defs {
			states[ph][d.name] = &milestoneState{def: d, satisfied: map[string]bool{}}
		}
	}
	return &Tracker{
		current:       datatypes.PhaseIdeation,
		states:        states,
		seenQuestions: map[string]bool{},
		passThreshold: passThreshold,
		grader:        grader,
		logger:        logger,
	}
}

// Clone returns an independent deep copy of the tracker's mutable
// state. The grader and logger are shared.
func (t *Tracker) Clone() *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()

	states := make(map[datatypes.Phase]map[string]*milestoneState, len(t.states))
	for ph, byName := range t.states {
		states[ph] = make(map[string]*milestoneState, len(byName))
		for name, ms := range byName {
			cp := &milestoneState{
				def:       ms.def,
				answered:  ms.answered,
				scores:    append([]float64(nil), ms.scores...),
				satisfied: make(map[string]bool, len(ms.satisfied)),
			}
			for ind, ok := range ms.satisfied {
				cp.satisfied[ind] = ok
			}
			states[ph][name] = cp
		}
	}
	seen := make(map[string]bool, len(t.seenQuestions))
	for id, ok := range t.seenQuestions {
		seen[id] = ok
	}
	return &Tracker{
		current:       t.current,
		states:        states,
		seenQuestions: seen,
		pending:       t.pending,
		transitions:   append([]datatypes.PhaseTransition(nil), t.transitions...),
		passThreshold: t.passThreshold,
		grader:        t.grader,
		logger:        t.logger,
	}
}

// Current returns the active phase.
func (t *Tracker) Current() datatypes.Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Transitions returns a copy of the recorded phase transitions.
func (t *Tracker) Transitions() []datatypes.PhaseTransition {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]datatypes.PhaseTransition, len(t.transitions))
	copy(out, t.transitions)
	return out
}

// PhaseProgress returns the active phase's overall completion percent,
// the weighted sum of its milestones' completion.
func (t *Tracker) PhaseProgress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phaseProgressLocked(t.current)
}

func (t *Tracker) phaseProgressLocked(ph datatypes.Phase) float64 {
	if ph == datatypes.PhaseComplete {
		return 100
	}
	total := 0.0
	for _, ms := range t.states[ph] {
		total += ms.completionPercent() * ms.def.weight
	}
	return total
}

// SessionProgress returns overall curriculum progress in [0,100]:
// finished phases contribute their full weight, the active phase its
// fractional progress.
func (t *Tracker) SessionProgress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0.0
	for ph, w := range phaseWeights {
		switch {
		case ph == t.current:
			total += w * t.phaseProgressLocked(ph) / 100
		case ph.Before(t.current):
			total += w
		}
	}
	if t.current == datatypes.PhaseComplete {
		total = 1
	}
	return total * 100
}

// NextQuestion selects the next Socratic question for the active phase.
//
// Description:
//
//	Targets the least-complete unfinished milestone, then walks the
//	difficulty ladder on that milestone's rolling average. A question id
//	is never reissued within a session. The selected question becomes
//	the pending question graded by the next Update.
//
// Outputs:
//
//	*SocraticQuestion - nil when the phase has no unfinished milestone
//	or the bank is exhausted.
func (t *Tracker) NextQuestion() *SocraticQuestion {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == datatypes.PhaseComplete {
		return nil
	}

	type candidate struct {
		name    string
		percent float64
	}
	var candidates []candidate
	for name, ms := range t.states[t.current] {
		if !ms.complete(t.passThreshold) {
			candidates = append(candidates, candidate{name, ms.completionPercent()})
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].percent != candidates[j].percent {
			return candidates[i].percent < candidates[j].percent
		}
		return candidates[i].name < candidates[j].name
	})

	for _, c := range candidates {
		ms := t.states[t.current][c.name]
		if q := selectQuestion(c.name, ms.average(), t.seenQuestions); q != nil {
			t.seenQuestions[q.ID] = true
			t.pending = q
			return q
		}
	}
	return nil
}

// Update records one turn against the curriculum.
//
// Description:
//
//	Grades the user input against the pending question (if any),
//	computes newly satisfied checklist indicators from the combined
//	user and assistant text, and auto-transitions when every milestone
//	of the active phase is complete.
//
// Thread Safety: safe for concurrent use; one turn is processed at a
// time per tracker.
func (t *Tracker) Update(ctx context.Context, userInput, assistantReply string, turnIndex int) UpdateResult {
	tracer := otel.Tracer("mentor.phase")
	ctx, span := tracer.Start(ctx, "tracker.update")
	defer span.End()

	// Grade outside the lock; the grader may call an LLM.
	t.mu.Lock()
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()

	var graded *GradeRecord
	if pending != nil {
		rubric := t.grader.Grade(ctx, pending, userInput)
		graded = &GradeRecord{QuestionID: pending.ID, Milestone: pending.Milestone, Rubric: rubric}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if graded != nil {
		if ms, ok := t.states[t.current][graded.Milestone]; ok {
			ms.answered++
			ms.scores = append(ms.scores, graded.Rubric.Overall())
		}
	}

	deltas := t.applyChecklistLocked(userInput + " " + assistantReply)

	var transition *datatypes.PhaseTransition
	if t.current != datatypes.PhaseComplete && t.allMilestonesCompleteLocked() {
		transition = t.transitionLocked("milestones_complete", turnIndex)
	}

	progress := t.phaseProgressLocked(t.current)
	span.SetAttributes(
		attribute.String("phase", t.current.String()),
		attribute.Float64("phase.progress", progress),
		attribute.Bool("phase.transitioned", transition != nil),
	)

	return UpdateResult{
		Graded:            graded,
		ChecklistDeltas:   deltas,
		Transition:        transition,
		CompletionPercent: progress,
	}
}

// Advance forces a transition to the next phase.
//
// Outputs:
//
//	*datatypes.PhaseTransition - The recorded transition.
//	error - ErrSessionComplete when already in COMPLETE.
func (t *Tracker) Advance(reason string, turnIndex int) (*datatypes.PhaseTransition, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == datatypes.PhaseComplete {
		return nil, ErrSessionComplete
	}
	if reason == "" {
		reason = "manual_advance"
	}
	return t.transitionLocked(reason, turnIndex), nil
}

func (t *Tracker) allMilestonesCompleteLocked() bool {
	for _, ms := range t.states[t.current] {
		if !ms.complete(t.passThreshold) {
			return false
		}
	}
	return true
}

func (t *Tracker) transitionLocked(reason string, turnIndex int) *datatypes.PhaseTransition {
	from := t.current
	to := from.Next()
	t.current = to
	t.pending = nil
	tr := datatypes.PhaseTransition{
		From:      from,
		To:        to,
		Reason:    reason,
		TurnIndex: turnIndex,
		Timestamp: datatypes.NowUnixMilli(),
	}
	t.transitions = append(t.transitions, tr)
	t.logger.Info("phase transition",
		"from", from.String(), "to", to.String(), "reason", reason, "turn", turnIndex)
	return &tr
}

// applyChecklistLocked marks newly satisfied indicators for the active
// phase and returns the deltas.
func (t *Tracker) applyChecklistLocked(text string) []datatypes.ChecklistDelta {
	if t.current == datatypes.PhaseComplete {
		return nil
	}
	lower := strings.ToLower(text)

	var deltas []datatypes.ChecklistDelta
	defs := phaseMilestones[t.current]
	for _, d := range defs {
		ms := t.states[t.current][d.name]
		var newly []string
		for indicator, keywords := range indicatorKeywords[d.name] {
			if ms.satisfied[indicator] {
				continue
			}
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					ms.satisfied[indicator] = true
					newly = append(newly, indicator)
					break
				}
			}
		}
		if len(newly) > 0 {
			sort.Strings(newly)
			deltas = append(deltas, datatypes.ChecklistDelta{
				Phase:      t.current,
				Milestone:  d.name,
				Indicators: newly,
			})
		}
	}
	return deltas
}

// MilestoneSnapshot is a read-only view used by exports and agents.
type MilestoneSnapshot struct {
	Name              string
	Answered          int
	Average           float64
	CompletionPercent float64
	Complete          bool
	Satisfied         []string
}

// Snapshot returns the active phase's milestone states in declaration
// order.
func (t *Tracker) Snapshot() []MilestoneSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	defs := phaseMilestones[t.current]
	out := make([]MilestoneSnapshot, 0, len(defs))
	for _, d := range defs {
		ms := t.states[t.current][d.name]
		var sat []string
		for ind := range ms.satisfied {
			sat = append(sat, ind)
		}
		sort.Strings(sat)
		out = append(out, MilestoneSnapshot{
			Name:              d.name,
			Answered:          ms.answered,
			Average:           ms.average(),
			CompletionPercent: ms.completionPercent(),
			Complete:          ms.complete(t.passThreshold),
			Satisfied:         sat,
		})
	}
	return out
}
