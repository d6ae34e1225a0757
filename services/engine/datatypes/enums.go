// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the shared record types and closed enumerations
// for the session engine.
//
// Every enumerated dimension of the study (condition, interaction type,
// route, phase, move taxonomy) is a named string type with a closed value
// set and a Valid() method. Handlers and stores reject values outside the
// closed sets so that downstream benchmarking never sees free-form strings.
//
// Thread Safety:
//
//	All types in this package are plain data. Records are owned by exactly
//	one session goroutine at a time; enums are immutable.
package datatypes

// Condition is the experimental group assigned to a session.
//
// The condition is immutable after the first turn has been appended.
type Condition string

const (
	// ConditionMentor is the scaffolded multi-agent mentor group.
	ConditionMentor Condition = "MENTOR"

	// ConditionGenericAI is the generic direct-answer assistant group.
	ConditionGenericAI Condition = "GENERIC_AI"

	// ConditionControl is the no-AI baseline group.
	ConditionControl Condition = "CONTROL"
)

// String returns the condition as a string.
func (c Condition) String() string { return string(c) }

// Valid reports whether the condition is one of the three study groups.
func (c Condition) Valid() bool {
	switch c {
	case ConditionMentor, ConditionGenericAI, ConditionControl:
		return true
	default:
		return false
	}
}

// InteractionType classifies what a learner utterance is asking for.
type InteractionType string

const (
	TypeKnowledgeRequest    InteractionType = "knowledge_request"
	TypeExampleRequest      InteractionType = "example_request"
	TypeDirectAnswerRequest InteractionType = "direct_answer_request"
	TypeImplementationReq   InteractionType = "implementation_request"
	TypeFeedbackRequest     InteractionType = "feedback_request"
	TypeConfusionExpression InteractionType = "confusion_expression"
	TypeImprovementSeeking  InteractionType = "improvement_seeking"
	TypeTechnicalQuestion   InteractionType = "technical_question"
	TypeDesignProblem       InteractionType = "design_problem"
	TypeCreativeExploration InteractionType = "creative_exploration"
	TypeGeneralStatement    InteractionType = "general_statement"
)

// AllInteractionTypes returns the closed interaction type set.
//
// The slice is used to constrain LLM classification output: anything the
// model returns outside this set falls back to general_statement.
func AllInteractionTypes() []InteractionType {
	return []InteractionType{
		TypeKnowledgeRequest,
		TypeExampleRequest,
		TypeDirectAnswerRequest,
		TypeImplementationReq,
		TypeFeedbackRequest,
		TypeConfusionExpression,
		TypeImprovementSeeking,
		TypeTechnicalQuestion,
		TypeDesignProblem,
		TypeCreativeExploration,
		TypeGeneralStatement,
	}
}

// Valid reports whether t is a member of the closed set.
func (t InteractionType) Valid() bool {
	for _, v := range AllInteractionTypes() {
		if t == v {
			return true
		}
	}
	return false
}

func (t InteractionType) String() string { return string(t) }

// UnderstandingLevel grades how well the learner appears to grasp the topic.
type UnderstandingLevel string

const (
	UnderstandingLow    UnderstandingLevel = "low"
	UnderstandingMedium UnderstandingLevel = "medium"
	UnderstandingHigh   UnderstandingLevel = "high"
)

func (u UnderstandingLevel) String() string { return string(u) }

// Valid reports whether u is low, medium, or high.
func (u UnderstandingLevel) Valid() bool {
	return u == UnderstandingLow || u == UnderstandingMedium || u == UnderstandingHigh
}

// ConfidenceLevel grades how certain the learner sounds.
type ConfidenceLevel string

const (
	ConfidenceUncertain     ConfidenceLevel = "uncertain"
	ConfidenceMedium        ConfidenceLevel = "medium"
	ConfidenceConfident     ConfidenceLevel = "confident"
	ConfidenceOverconfident ConfidenceLevel = "overconfident"
)

func (c ConfidenceLevel) String() string { return string(c) }

// Valid reports whether c is a member of the closed set.
func (c ConfidenceLevel) Valid() bool {
	switch c {
	case ConfidenceUncertain, ConfidenceMedium, ConfidenceConfident, ConfidenceOverconfident:
		return true
	default:
		return false
	}
}

// EngagementLevel grades how invested the utterance is.
type EngagementLevel string

const (
	EngagementLow    EngagementLevel = "low"
	EngagementMedium EngagementLevel = "medium"
	EngagementHigh   EngagementLevel = "high"
)

func (e EngagementLevel) String() string { return string(e) }

// Valid reports whether e is low, medium, or high.
func (e EngagementLevel) Valid() bool {
	return e == EngagementLow || e == EngagementMedium || e == EngagementHigh
}

// Route is a response composition strategy chosen by the decision tree.
//
// A route fully determines which agents run and how the synthesizer merges
// their outputs.
type Route string

const (
	// RouteProgressiveOpening welcomes the first message of a session.
	RouteProgressiveOpening Route = "progressive_opening"

	// RouteCognitiveIntervention challenges detected cognitive offloading.
	RouteCognitiveIntervention Route = "cognitive_intervention"

	// RouteKnowledgeOnly answers pure knowledge or example requests.
	RouteKnowledgeOnly Route = "knowledge_only"

	// RouteKnowledgeWithChallenge pairs knowledge with a cognitive tail.
	RouteKnowledgeWithChallenge Route = "knowledge_with_challenge"

	// RouteSocraticExploration guides design thinking with questions only.
	RouteSocraticExploration Route = "socratic_exploration"

	// RouteMultiAgentComprehensive merges analysis, domain, and Socratic output.
	RouteMultiAgentComprehensive Route = "multi_agent_comprehensive"

	// RouteBalancedGuidance is the default blend of knowledge and question.
	RouteBalancedGuidance Route = "balanced_guidance"
)

// AllRoutes returns the closed route set.
func AllRoutes() []Route {
	return []Route{
		RouteProgressiveOpening,
		RouteCognitiveIntervention,
		RouteKnowledgeOnly,
		RouteKnowledgeWithChallenge,
		RouteSocraticExploration,
		RouteMultiAgentComprehensive,
		RouteBalancedGuidance,
	}
}

func (r Route) String() string { return string(r) }

// Valid reports whether r is a member of the closed set.
func (r Route) Valid() bool {
	for _, v := range AllRoutes() {
		if r == v {
			return true
		}
	}
	return false
}

// AgentName identifies a pipeline agent.
type AgentName string

const (
	AgentContext     AgentName = "context"
	AgentAnalysis    AgentName = "analysis"
	AgentDomain      AgentName = "domain_expert"
	AgentSocratic    AgentName = "socratic_tutor"
	AgentCognitive   AgentName = "cognitive_enhancement"
	AgentSynthesizer AgentName = "synthesizer"
)

func (a AgentName) String() string { return string(a) }

// ResponseType describes the shape of an agent response.
type ResponseType string

const (
	ResponseKnowledge       ResponseType = "knowledge"
	ResponseSocratic        ResponseType = "socratic_question"
	ResponseCognitive       ResponseType = "cognitive_challenge"
	ResponseAnalysis        ResponseType = "analysis"
	ResponseContext         ResponseType = "context"
	ResponseSynthesis       ResponseType = "synthesis"
	ResponseOpening         ResponseType = "opening"
	ResponseControlPrompt   ResponseType = "control_prompt"
	ResponseDegraded        ResponseType = "degraded"
	ResponseTimeoutFallback ResponseType = "timeout_fallback"
)

func (r ResponseType) String() string { return string(r) }

// ResultStatus is the explicit outcome variant for fallible steps.
//
// Degraded results are first-class: they travel through the synthesizer
// and into the assessor instead of being raised and swallowed.
type ResultStatus string

const (
	StatusOK       ResultStatus = "ok"
	StatusDegraded ResultStatus = "degraded"
	StatusFailed   ResultStatus = "failed"
)

func (s ResultStatus) String() string { return string(s) }

// Phase is a curricular stage of the design session.
type Phase string

const (
	PhaseIdeation        Phase = "IDEATION"
	PhaseVisualization   Phase = "VISUALIZATION"
	PhaseMaterialization Phase = "MATERIALIZATION"
	PhaseComplete        Phase = "COMPLETE"
)

// phaseOrder maps phases to their curriculum position for monotonicity checks.
var phaseOrder = map[Phase]int{
	PhaseIdeation:        0,
	PhaseVisualization:   1,
	PhaseMaterialization: 2,
	PhaseComplete:        3,
}

func (p Phase) String() string { return string(p) }

// Valid reports whether p is a member of the closed set.
func (p Phase) Valid() bool {
	_, ok := phaseOrder[p]
	return ok
}

// Next returns the phase that follows p in the curriculum.
//
// COMPLETE is terminal and returns itself.
func (p Phase) Next() Phase {
	switch p {
	case PhaseIdeation:
		return PhaseVisualization
	case PhaseVisualization:
		return PhaseMaterialization
	case PhaseMaterialization:
		return PhaseComplete
	default:
		return PhaseComplete
	}
}

// Before reports whether p comes strictly earlier than other.
//
// Used to enforce one-way phase transitions.
func (p Phase) Before(other Phase) bool {
	return phaseOrder[p] < phaseOrder[other]
}

// AllPhases returns the phases in curriculum order.
func AllPhases() []Phase {
	return []Phase{PhaseIdeation, PhaseVisualization, PhaseMaterialization, PhaseComplete}
}

// QuestionDifficulty is the Socratic question difficulty ladder.
type QuestionDifficulty string

const (
	DifficultyBasic      QuestionDifficulty = "basic"
	DifficultyAnalytical QuestionDifficulty = "analytical"
	DifficultySynthetic  QuestionDifficulty = "synthetic"
	DifficultyEvaluative QuestionDifficulty = "evaluative"
)

func (d QuestionDifficulty) String() string { return string(d) }

// MoveType is the design-thinking category of a move.
type MoveType string

const (
	MoveAnalysis       MoveType = "analysis"
	MoveSynthesis      MoveType = "synthesis"
	MoveEvaluation     MoveType = "evaluation"
	MoveTransformation MoveType = "transformation"
	MoveReflection     MoveType = "reflection"
)

func (m MoveType) String() string { return string(m) }

// Valid reports whether m is a member of the closed set.
func (m MoveType) Valid() bool {
	switch m {
	case MoveAnalysis, MoveSynthesis, MoveEvaluation, MoveTransformation, MoveReflection:
		return true
	default:
		return false
	}
}

// Modality is the medium a move was expressed in.
type Modality string

const (
	ModalityText    Modality = "text"
	ModalitySketch  Modality = "sketch"
	ModalityVerbal  Modality = "verbal"
	ModalityGesture Modality = "gesture"
)

func (m Modality) String() string { return string(m) }

// DesignFocus is the design dimension a move addresses.
type DesignFocus string

const (
	FocusFunction    DesignFocus = "function"
	FocusForm        DesignFocus = "form"
	FocusStructure   DesignFocus = "structure"
	FocusMaterial    DesignFocus = "material"
	FocusEnvironment DesignFocus = "environment"
	FocusCulture     DesignFocus = "culture"
)

// AllDesignFoci returns the six focus categories.
func AllDesignFoci() []DesignFocus {
	return []DesignFocus{
		FocusFunction, FocusForm, FocusStructure,
		FocusMaterial, FocusEnvironment, FocusCulture,
	}
}

func (f DesignFocus) String() string { return string(f) }

// MoveSource attributes who or what generated a move.
type MoveSource string

const (
	SourceUserGenerated      MoveSource = "user_generated"
	SourceAIProvided         MoveSource = "ai_provided"
	SourceAIPrompted         MoveSource = "ai_prompted"
	SourceSelfGenerated      MoveSource = "self_generated"
	SourceResourceReferenced MoveSource = "resource_referenced"
	SourcePlatformPrompted   MoveSource = "platform_prompted"
)

func (s MoveSource) String() string { return string(s) }

// CognitiveLoad buckets the complexity of a move.
type CognitiveLoad string

const (
	LoadLow    CognitiveLoad = "low"
	LoadMedium CognitiveLoad = "medium"
	LoadHigh   CognitiveLoad = "high"
)

func (l CognitiveLoad) String() string { return string(l) }

// LinkKind distinguishes temporal adjacency from semantic similarity links.
type LinkKind string

const (
	LinkTemporal LinkKind = "temporal"
	LinkSemantic LinkKind = "semantic"
)

func (k LinkKind) String() string { return string(k) }

// TaskType enumerates the eight pedagogical task types.
type TaskType string

const (
	TaskArchitecturalConcept   TaskType = "architectural_concept"
	TaskSpatialProgram         TaskType = "spatial_program"
	TaskVisualAnalysis2D       TaskType = "visual_analysis_2d"
	TaskVisualAnalysis3D       TaskType = "visual_analysis_3d"
	TaskTechnicalSystems       TaskType = "technical_systems"
	TaskMaterialSelection      TaskType = "material_selection"
	TaskSustainabilityAnalysis TaskType = "sustainability_analysis"
	TaskFinalPresentation      TaskType = "final_presentation"
)

// AllTaskTypes returns the task types in declaration (priority) order.
func AllTaskTypes() []TaskType {
	return []TaskType{
		TaskArchitecturalConcept,
		TaskSpatialProgram,
		TaskVisualAnalysis2D,
		TaskVisualAnalysis3D,
		TaskTechnicalSystems,
		TaskMaterialSelection,
		TaskSustainabilityAnalysis,
		TaskFinalPresentation,
	}
}

func (t TaskType) String() string { return string(t) }

// Valid reports whether t is a member of the closed set.
func (t TaskType) Valid() bool {
	for _, v := range AllTaskTypes() {
		if t == v {
			return true
		}
	}
	return false
}

// TaskState is the lifecycle state of a task within a session.
type TaskState string

const (
	TaskInactive  TaskState = "inactive"
	TaskTriggered TaskState = "triggered"
	TaskActive    TaskState = "active"
	TaskCompleted TaskState = "completed"
)

func (s TaskState) String() string { return string(s) }
