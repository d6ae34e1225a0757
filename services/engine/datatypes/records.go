// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"errors"
	"fmt"
	"time"
)

// MoveContentMaxLen caps the content stored on a single design move.
const MoveContentMaxLen = 500

// Classification is the tagged tuple produced for each learner utterance.
type Classification struct {
	// InteractionType is the primary tag for the utterance.
	InteractionType InteractionType `json:"interaction_type"`

	// UnderstandingLevel grades topical grasp from lexical cues.
	UnderstandingLevel UnderstandingLevel `json:"understanding_level"`

	// ConfidenceLevel grades expressed certainty.
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`

	// EngagementLevel grades investment (length, questions, vocabulary).
	EngagementLevel EngagementLevel `json:"engagement_level"`

	// IsFirstMessage is true iff this is turn 0 of the session.
	IsFirstMessage bool `json:"is_first_message"`

	// CognitiveOffloadingDetected flags solution-delegation behavior.
	CognitiveOffloadingDetected bool `json:"cognitive_offloading_detected"`

	// Status records whether LLM classification succeeded or the manual
	// pattern fallback was used.
	Status ResultStatus `json:"status"`

	// StatusReason carries the reason code for degraded classification.
	StatusReason string `json:"status_reason,omitempty"`
}

// RoutingDecision is the decision tree output for one turn.
type RoutingDecision struct {
	// Route is the chosen response composition strategy.
	Route Route `json:"route"`

	// UserIntent is the derived keyword bucket for the utterance.
	UserIntent string `json:"user_intent"`

	// RuleApplied names the rule that fired, or "default" when none matched.
	RuleApplied string `json:"rule_applied"`

	// Confidence is the tree's confidence in the decision, in [0,1].
	Confidence float64 `json:"confidence"`

	// CognitiveOffloadingDetected is copied from the classification so the
	// decision is self-describing in exports.
	CognitiveOffloadingDetected bool `json:"cognitive_offloading_detected"`

	// Reason is a human-readable explanation of the decision.
	Reason string `json:"reason"`

	// EvaluatedConditions lists every condition the tree checked, in order,
	// with its outcome. Callers may inspect routing reasoning through this.
	EvaluatedConditions []EvaluatedCondition `json:"evaluated_conditions,omitempty"`

	// ExampleFlag marks knowledge_only decisions that came from an example
	// request and should render precedents.
	ExampleFlag bool `json:"example_flag,omitempty"`
}

// EvaluatedCondition records one condition check inside the decision tree.
type EvaluatedCondition struct {
	Rule      string `json:"rule"`
	Condition string `json:"condition"`
	Satisfied bool   `json:"satisfied"`
}

// EnhancementMetrics are the six per-response pedagogy signals.
type EnhancementMetrics struct {
	CognitiveChallenge   float64 `json:"cognitive_challenge"`
	ScaffoldingLevel     float64 `json:"scaffolding_level"`
	KnowledgeDensity     float64 `json:"knowledge_density"`
	QuestionRatio        float64 `json:"question_ratio"`
	EngagementPotential  float64 `json:"engagement_potential"`
	ReflectionEncouraged float64 `json:"reflection_encouraged"`
}

// AgentResponse is the uniform output record of every pipeline agent.
//
// Responses produced within the same turn share a correlation ID.
type AgentResponse struct {
	// CorrelationID links responses from the same turn.
	CorrelationID string `json:"correlation_id"`

	// AgentName identifies the producing agent.
	AgentName AgentName `json:"agent_name"`

	// ResponseType describes the shape of the response.
	ResponseType ResponseType `json:"response_type"`

	// ResponseText is the agent's contribution to the reply.
	ResponseText string `json:"response_text"`

	// Status is ok, degraded, or failed.
	Status ResultStatus `json:"status"`

	// StatusReason carries the reason code for non-ok statuses.
	StatusReason string `json:"status_reason,omitempty"`

	// CognitiveFlags are pedagogy markers raised by the agent.
	CognitiveFlags []string `json:"cognitive_flags,omitempty"`

	// Metrics are the six enhancement metrics for this response.
	Metrics EnhancementMetrics `json:"enhancement_metrics"`

	// SourcesUsed lists knowledge sources cited by the response.
	SourcesUsed []string `json:"sources_used,omitempty"`

	// PedagogicalIntent tags cognitive-enhancement responses.
	PedagogicalIntent string `json:"pedagogical_intent,omitempty"`

	// Metadata is an opaque mapping surfaced into the turn record.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// HasCognitiveFlag reports whether the response carries the given flag.
func (r *AgentResponse) HasCognitiveFlag(flag string) bool {
	for _, f := range r.CognitiveFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// Rubric is the five-dimension score for a single graded response.
//
// Each dimension is in [0,5]; Overall is the derived mean.
type Rubric struct {
	Completeness           float64 `json:"completeness"`
	Depth                  float64 `json:"depth"`
	Relevance              float64 `json:"relevance"`
	Innovation             float64 `json:"innovation"`
	TechnicalUnderstanding float64 `json:"technical_understanding"`
}

// Overall returns the mean of the five dimensions.
func (r Rubric) Overall() float64 {
	return (r.Completeness + r.Depth + r.Relevance + r.Innovation + r.TechnicalUnderstanding) / 5.0
}

// Validate checks all dimensions are inside [0,5].
func (r Rubric) Validate() error {
	for name, v := range map[string]float64{
		"completeness":            r.Completeness,
		"depth":                   r.Depth,
		"relevance":               r.Relevance,
		"innovation":              r.Innovation,
		"technical_understanding": r.TechnicalUnderstanding,
	} {
		if v < 0 || v > 5 {
			return fmt.Errorf("rubric dimension %s out of range: %f", name, v)
		}
	}
	return nil
}

// CognitiveScores holds the six per-turn cognitive dimensions, each in [0,1].
type CognitiveScores struct {
	// COP is cognitive offloading prevention.
	COP float64 `json:"cop"`

	// DTE is deep thinking engagement.
	DTE float64 `json:"dte"`

	// SE is scaffolding effectiveness.
	SE float64 `json:"se"`

	// KI is knowledge integration.
	KI float64 `json:"ki"`

	// LP is learning progression.
	LP float64 `json:"lp"`

	// MA is metacognitive awareness.
	MA float64 `json:"ma"`
}

// Composite returns the mean of the six dimensions.
func (s CognitiveScores) Composite() float64 {
	return (s.COP + s.DTE + s.SE + s.KI + s.LP + s.MA) / 6.0
}

// Validate checks all dimensions are inside [0,1].
func (s CognitiveScores) Validate() error {
	for name, v := range map[string]float64{
		"cop": s.COP, "dte": s.DTE, "se": s.SE,
		"ki": s.KI, "lp": s.LP, "ma": s.MA,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("cognitive score %s out of range: %f", name, v)
		}
	}
	return nil
}

// DesignMove is a discrete, typed unit of design thinking.
type DesignMove struct {
	// ID is the move's unique identifier.
	ID string `json:"id"`

	// SessionID is the owning session.
	SessionID string `json:"session_id"`

	// Sequence is the dense, monotonic 1-indexed move number.
	Sequence int `json:"sequence"`

	// Timestamp is when the move was extracted (Unix milliseconds UTC).
	Timestamp int64 `json:"timestamp"`

	// Content is the move text, capped at MoveContentMaxLen characters.
	Content string `json:"content"`

	MoveType    MoveType    `json:"move_type"`
	Phase       Phase       `json:"phase"`
	Modality    Modality    `json:"modality"`
	DesignFocus DesignFocus `json:"design_focus"`
	Source      MoveSource  `json:"source"`

	CognitiveLoad CognitiveLoad `json:"cognitive_load"`

	// SelfGenerationStrength is 1 - AIInfluenceStrength.
	SelfGenerationStrength float64 `json:"self_generation_strength"`
	AIInfluenceStrength    float64 `json:"ai_influence_strength"`
	ComplexityScore        float64 `json:"complexity_score"`
	UncertaintyMarkers     int     `json:"uncertainty_markers"`
}

// Validate checks invariants on a single move record.
func (m *DesignMove) Validate() error {
	if m.Sequence < 1 {
		return fmt.Errorf("move sequence must be >= 1, got %d", m.Sequence)
	}
	if len(m.Content) > MoveContentMaxLen {
		return fmt.Errorf("move content exceeds %d chars", MoveContentMaxLen)
	}
	if !m.MoveType.Valid() {
		return fmt.Errorf("invalid move type %q", m.MoveType)
	}
	if m.AIInfluenceStrength < 0 || m.AIInfluenceStrength > 1 {
		return errors.New("ai_influence_strength out of [0,1]")
	}
	if m.ComplexityScore < 0 || m.ComplexityScore > 1 {
		return errors.New("complexity_score out of [0,1]")
	}
	return nil
}

// Link is a directed edge between two moves in the linkograph.
//
// Invariants: source sequence < target sequence; no self links; no
// duplicate (source, target) pairs.
type Link struct {
	SourceMoveID string   `json:"source_move_id"`
	TargetMoveID string   `json:"target_move_id"`
	Strength     float64  `json:"strength"`
	Kind         LinkKind `json:"kind"`
}

// ChecklistDelta lists newly satisfied milestone indicators for one turn.
type ChecklistDelta struct {
	Phase      Phase    `json:"phase"`
	Milestone  string   `json:"milestone"`
	Indicators []string `json:"indicators"`
}

// PhaseTransition records a one-way phase advance.
type PhaseTransition struct {
	From      Phase  `json:"from"`
	To        Phase  `json:"to"`
	Reason    string `json:"reason"`
	TurnIndex int    `json:"turn_index"`
	Timestamp int64  `json:"timestamp"`
}

// TaskEvent records a task lifecycle change within a session.
type TaskEvent struct {
	Task TaskType `json:"task"`
	// State is the lifecycle state entered by this event.
	State TaskState `json:"state"`
	// UserTurnIndex keys activation to the user message that triggered it.
	UserTurnIndex int    `json:"user_turn_index"`
	Reason        string `json:"reason"`
	Timestamp     int64  `json:"timestamp"`
}

// Turn is one complete learner exchange, appended atomically to a session.
type Turn struct {
	// Index is the 0-based monotonically increasing turn number.
	Index int `json:"index"`

	// UserInput is the learner's utterance.
	UserInput string `json:"user_input"`

	// AssistantReply is the synthesized reply text.
	AssistantReply string `json:"assistant_reply"`

	// Timestamp is when the turn completed (Unix milliseconds UTC).
	Timestamp int64 `json:"timestamp"`

	// ResponseTimeMs is wall time spent producing the reply.
	ResponseTimeMs int64 `json:"response_time_ms"`

	// ImageRef is an opaque reference to an uploaded image, if any.
	ImageRef string `json:"image_ref,omitempty"`

	Classification Classification  `json:"classification"`
	Routing        RoutingDecision `json:"routing_decision"`

	// AgentResponses are the per-agent outputs merged into the reply.
	AgentResponses []AgentResponse `json:"agent_responses"`

	// Moves are the design moves emitted by this turn (user + assistant).
	Moves []DesignMove `json:"moves"`

	// Links are the linkograph edges added by this turn.
	Links []Link `json:"links"`

	// Scores are the per-turn cognitive scores.
	Scores CognitiveScores `json:"cognitive_scores"`

	// Phase is the session phase after this turn's phase update.
	Phase Phase `json:"phase"`

	// PhaseCompletionPercent is the phase progress after this turn.
	PhaseCompletionPercent float64 `json:"phase_completion_percent"`

	// ChecklistDeltas are milestone indicators newly satisfied this turn.
	ChecklistDeltas []ChecklistDelta `json:"checklist_deltas,omitempty"`

	// NextTargets are the active phase's incomplete milestones after this
	// turn, in declaration order.
	NextTargets []string `json:"next_targets,omitempty"`

	// Transition is set when this turn advanced the phase.
	Transition *PhaseTransition `json:"phase_transition,omitempty"`

	// ActivatedTask is set when this turn activated a task.
	ActivatedTask *TaskEvent `json:"activated_task,omitempty"`

	// Metadata is merged agent metadata, written only by the synthesizer.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SessionHeader is the immutable identity of a session plus its lifecycle
// timestamps.
type SessionHeader struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participant_id"`
	Condition     Condition `json:"condition"`
	StartedAt     int64     `json:"started_at"`
	EndedAt       int64     `json:"ended_at,omitempty"`
}

// SessionSummary aggregates a finished session for export.
type SessionSummary struct {
	Header          SessionHeader     `json:"header"`
	TurnCount       int               `json:"turn_count"`
	MoveCount       int               `json:"move_count"`
	LinkCount       int               `json:"link_count"`
	LinkDensity     float64           `json:"link_density"`
	FinalPhase      Phase             `json:"final_phase"`
	Transitions     []PhaseTransition `json:"phase_transitions"`
	TaskEvents      []TaskEvent       `json:"task_events"`
	TasksActivated  int               `json:"tasks_activated"`
	TasksCompleted  int               `json:"tasks_completed"`
	AverageScores   CognitiveScores   `json:"average_scores"`
	CompositeScore  float64           `json:"composite_score"`
	DurationSeconds int64             `json:"duration_seconds"`

	// PhaseDurations maps each visited phase to the seconds spent in it,
	// derived from transition timestamps and the session bounds.
	PhaseDurations map[Phase]int64 `json:"phase_durations_seconds"`
}

// NowUnixMilli returns the current time as Unix milliseconds UTC.
//
// All engine timestamps use this representation, matching the persisted
// artifact formats.
func NowUnixMilli() int64 {
	return time.Now().UTC().UnixMilli()
}
