// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package session runs the per-turn pipeline and owns all per-session
// state: curriculum tracker, task manager, linkograph builder, and the
// persisted turn log.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/atelier-research/mentor/services/engine/agents"
	"github.com/atelier-research/mentor/services/engine/assessment"
	"github.com/atelier-research/mentor/services/engine/classifier"
	"github.com/atelier-research/mentor/services/engine/config"
	"github.com/atelier-research/mentor/services/engine/datatypes"
	"github.com/atelier-research/mentor/services/engine/knowledge"
	"github.com/atelier-research/mentor/services/engine/linkograph"
	"github.com/atelier-research/mentor/services/engine/llm"
	"github.com/atelier-research/mentor/services/engine/phase"
	"github.com/atelier-research/mentor/services/engine/routing"
	"github.com/atelier-research/mentor/services/engine/tasks"
	"github.com/atelier-research/mentor/services/engine/telemetry"
)

var (
	// ErrInvalidCondition indicates an unknown experimental condition.
	ErrInvalidCondition = errors.New("session: invalid condition")

	// ErrSessionEnded indicates a turn submitted after EndSession.
	ErrSessionEnded = errors.New("session: session has ended")
)

// errorFraming is the assistant-visible wrapper for internal failures.
// Internal detail is logged, never surfaced.
const errorFraming = "I ran into an issue — can you rephrase or narrow the question?"

// controlPrompts are the minimal self-direction prompts rotated for
// CONTROL sessions. They nudge without assisting.
var controlPrompts = []string{
	"Noted. Continue working through your design and describe your next step when you are ready.",
	"Keep going. When you have made a decision, write down what you chose and move on.",
	"Take a moment to sketch or note your current thinking, then continue with the brief.",
}

// recentInputWindow is how many prior utterances feed classification.
const recentInputWindow = 5

// sessionState is the live in-memory state of one session.
//
// Thread Safety: mu serializes the turn pipeline per session, so turns
// within one session are strictly ordered while sessions proceed
// concurrently.
type sessionState struct {
	mu sync.Mutex

	header  datatypes.SessionHeader
	tracker *phase.Tracker
	tasks   *tasks.Manager
	builder *linkograph.Builder

	recentInputs []string
	turnCount    int
	ended        bool
}

// Orchestrator coordinates the full turn pipeline across sessions.
type Orchestrator struct {
	cfg   config.Config
	store Store

	classifier *classifier.Classifier
	runner     *agents.Runner
	assessor   *assessment.Assessor
	parser     *linkograph.Parser
	grader     *phase.Grader
	validator  *StateValidator
	monitor    *StateMonitor

	client   llm.Client
	embedder llm.Embedder
	metrics  *telemetry.Metrics

	mu       sync.RWMutex
	sessions map[string]*sessionState

	logger *slog.Logger
}

// NewOrchestrator wires the pipeline from its external collaborators.
//
// Inputs:
//
//	client - Chat LLM; may be nil, every consumer degrades gracefully.
//	embedder - Embedding backend for semantic links; may be nil.
//	searcher - Knowledge base; nil disables retrieval.
func NewOrchestrator(cfg config.Config, store Store, client llm.Client, embedder llm.Embedder, searcher knowledge.Searcher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	monitor := NewStateMonitor(logger)
	domain := agents.NewDomainExpertAgent(searcher, client, logger)
	metrics, err := telemetry.NewMetrics(otel.Meter("mentor.engine"))
	if err != nil {
		logger.Warn("engine metrics unavailable", "error", err)
	}
	return &Orchestrator{
		cfg:        cfg,
		store:      store,
		classifier: classifier.New(client, cfg.Timeouts.LLM.Std(), logger),
		runner:     agents.NewRunner(domain, cfg.Timeouts.LLM.Std(), metrics, logger),
		assessor:   assessment.New(cfg.Modifiers, logger),
		parser:     linkograph.NewParser(),
		grader:     phase.NewGrader(client, cfg.Timeouts.LLM.Std(), logger),
		validator:  NewStateValidator(monitor),
		monitor:    monitor,
		client:     client,
		embedder:   embedder,
		metrics:    metrics,
		sessions:   make(map[string]*sessionState),
		logger:     logger,
	}
}

// Monitor exposes the state monitor for diagnostics.
func (o *Orchestrator) Monitor() *StateMonitor { return o.monitor }

// StartSession creates a session under the given condition.
//
// The condition is fixed for the session's lifetime; nothing after this
// point can change it.
func (o *Orchestrator) StartSession(ctx context.Context, participantID string, condition datatypes.Condition) (datatypes.SessionHeader, error) {
	if !condition.Valid() {
		return datatypes.SessionHeader{}, fmt.Errorf("%w: %q", ErrInvalidCondition, condition)
	}

	header := datatypes.SessionHeader{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		Condition:     condition,
		StartedAt:     datatypes.NowUnixMilli(),
	}
	if err := o.store.CreateSession(ctx, header); err != nil {
		return datatypes.SessionHeader{}, fmt.Errorf("create session: %w", err)
	}

	state := &sessionState{
		header:  header,
		tracker: phase.NewTracker(o.cfg.Thresholds.MilestonePass, o.grader, o.logger),
		tasks:   tasks.NewManager(o.cfg.Tasks, condition, o.logger),
		builder: linkograph.NewBuilder(header.ID, condition, o.embedder, o.cfg.Thresholds, o.logger),
	}
	o.mu.Lock()
	o.sessions[header.ID] = state
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.ActiveSessions.Add(ctx, 1)
	}
	o.logger.Info("session started",
		"session", header.ID, "participant", participantID, "condition", condition.String())
	return header, nil
}

func (o *Orchestrator) state(sessionID string) (*sessionState, error) {
	o.mu.RLock()
	state, ok := o.sessions[sessionID]
	o.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return state, nil
}

// SubmitTurn runs the pipeline for one learner utterance and returns
// the committed turn record.
//
// Description:
//
//	The pipeline is classify, route, run agents, synthesize, update
//	phase, evaluate tasks, extract moves, assess, persist. Persistence
//	is last and atomic: on store failure the turn is not committed,
//	in-memory curriculum, task, and linkograph state is restored to its
//	pre-turn copy, and the caller sees the error. CONTROL sessions
//	bypass routing and the
//	agent pipeline entirely and receive a minimal self-direction
//	prompt; GENERIC_AI sessions receive a direct LLM answer.
func (o *Orchestrator) SubmitTurn(ctx context.Context, sessionID, userInput string) (datatypes.Turn, error) {
	return o.SubmitTurnWithImage(ctx, sessionID, userInput, "")
}

// SubmitTurnWithImage is SubmitTurn with an opaque uploaded-image
// reference attached to the turn record.
func (o *Orchestrator) SubmitTurnWithImage(ctx context.Context, sessionID, userInput, imageRef string) (datatypes.Turn, error) {
	ctx, span := otel.Tracer("mentor.session").Start(ctx, "orchestrator.submit_turn")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	state, err := o.state(sessionID)
	if err != nil {
		return datatypes.Turn{}, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.ended {
		return datatypes.Turn{}, ErrSessionEnded
	}

	started := time.Now()
	turn := datatypes.Turn{
		Index:     state.turnCount,
		UserInput: userInput,
		ImageRef:  imageRef,
	}
	if err := o.validator.Validate(sessionID, "entry", &turn); err != nil {
		return datatypes.Turn{}, err
	}

	// The pipeline mutates tracker, task, and builder state before the
	// turn persists; these copies restore it when the append fails.
	trackerBefore := state.tracker.Clone()
	tasksBefore := state.tasks.Clone()
	builderBefore := state.builder.Clone()

	turn.Classification = o.classifier.Classify(ctx, userInput, state.recentInputs, turn.Index)

	switch state.header.Condition {
	case datatypes.ConditionControl:
		o.runControlTurn(&turn)
	case datatypes.ConditionGenericAI:
		o.runGenericTurn(ctx, state, &turn)
	default:
		o.runMentorTurn(ctx, state, &turn)
	}

	o.updateCurriculum(ctx, state, &turn)
	o.extractMoves(ctx, state, &turn)
	o.assess(ctx, state, &turn)

	turn.Phase = state.tracker.Current()
	turn.PhaseCompletionPercent = state.tracker.PhaseProgress()
	turn.ResponseTimeMs = time.Since(started).Milliseconds()
	turn.Timestamp = datatypes.NowUnixMilli()

	_ = o.validator.Validate(sessionID, "persist", &turn)
	if err := o.store.AppendTurn(ctx, sessionID, turn); err != nil {
		state.tracker = trackerBefore
		state.tasks = tasksBefore
		state.builder = builderBefore
		if o.metrics != nil {
			o.metrics.ErrorsTotal.Add(ctx, 1,
				metric.WithAttributes(attribute.String("component", "store")))
		}
		return datatypes.Turn{}, fmt.Errorf("persist turn %d: %w", turn.Index, err)
	}
	o.recordTurnMetrics(ctx, state, turn)

	state.turnCount++
	state.recentInputs = append(state.recentInputs, userInput)
	if len(state.recentInputs) > recentInputWindow {
		state.recentInputs = state.recentInputs[len(state.recentInputs)-recentInputWindow:]
	}
	return turn, nil
}

// runControlTurn produces the no-assistance baseline reply. No routing,
// no agents: the turn record carries an empty agent response set.
func (o *Orchestrator) runControlTurn(turn *datatypes.Turn) {
	turn.AssistantReply = controlPrompts[turn.Index%len(controlPrompts)]
	turn.Routing = datatypes.RoutingDecision{
		RuleApplied: "control_bypass",
		Reason:      "control condition receives no assistance",
	}
}

// runGenericTurn answers directly from the LLM, without scaffolding.
func (o *Orchestrator) runGenericTurn(ctx context.Context, state *sessionState, turn *datatypes.Turn) {
	turn.Routing = routing.Decide(ctx, routing.Input{
		Classification: turn.Classification,
		UserInput:      turn.UserInput,
		Phase:          state.tracker.Current(),
		TurnIndex:      turn.Index,
	})
	_ = o.validator.Validate(state.header.ID, "post_route", turn)

	resp := datatypes.AgentResponse{
		CorrelationID: uuid.NewString(),
		AgentName:     datatypes.AgentSynthesizer,
		ResponseType:  datatypes.ResponseSynthesis,
		Status:        datatypes.StatusOK,
	}

	if o.client == nil {
		resp.Status = datatypes.StatusDegraded
		resp.StatusReason = "llm_unavailable"
		resp.ResponseText = errorFraming
	} else {
		out, err := o.client.Generate(ctx,
			"Answer the architecture student's question directly and completely.\nStudent: "+turn.UserInput,
			llm.GenerationParams{Temperature: llm.Float32Ptr(0.5), MaxTokens: llm.IntPtr(512)})
		if err != nil {
			o.logger.Warn("generic answer failed", "session", state.header.ID, "error", err)
			resp.Status = datatypes.StatusDegraded
			resp.StatusReason = "llm_error"
			resp.ResponseText = errorFraming
		} else {
			resp.ResponseText = out
		}
	}

	turn.AssistantReply = resp.ResponseText
	turn.AgentResponses = []datatypes.AgentResponse{resp}
}

// runMentorTurn runs the full multi-agent pipeline.
func (o *Orchestrator) runMentorTurn(ctx context.Context, state *sessionState, turn *datatypes.Turn) {
	turn.Routing = routing.Decide(ctx, routing.Input{
		Classification: turn.Classification,
		UserInput:      turn.UserInput,
		Phase:          state.tracker.Current(),
		TurnIndex:      turn.Index,
	})
	_ = o.validator.Validate(state.header.ID, "post_route", turn)

	in := agents.Input{
		CorrelationID:          uuid.NewString(),
		SessionID:              state.header.ID,
		Condition:              state.header.Condition,
		UserInput:              turn.UserInput,
		RecentInputs:           state.recentInputs,
		Classification:         turn.Classification,
		Routing:                turn.Routing,
		Phase:                  state.tracker.Current(),
		PhaseCompletionPercent: state.tracker.PhaseProgress(),
		Milestones:             state.tracker.Snapshot(),
	}
	if q := state.tracker.NextQuestion(); q != nil {
		in.SuggestedQuestion = q.Text
	}

	ordered, final := o.runner.Run(ctx, in)
	turn.AgentResponses = ordered
	turn.AssistantReply = final.ResponseText
	turn.Metadata = final.Metadata
	if turn.AssistantReply == "" {
		turn.AssistantReply = errorFraming
	}
}

// updateCurriculum applies the turn to the phase tracker and evaluates
// task triggers against the updated progress.
func (o *Orchestrator) updateCurriculum(ctx context.Context, state *sessionState, turn *datatypes.Turn) {
	res := state.tracker.Update(ctx, turn.UserInput, turn.AssistantReply, turn.Index)
	turn.ChecklistDeltas = res.ChecklistDeltas
	turn.Transition = res.Transition
	if res.Transition != nil {
		state.tasks.OnPhaseTransition(res.Transition.From, turn.Index)
	}

	hasImage := turn.ImageRef != ""
	if event, _ := state.tasks.Evaluate(state.tracker.Current(), state.tracker.PhaseProgress(), turn.Index, hasImage); event != nil {
		turn.ActivatedTask = event
	}

	for _, ms := range state.tracker.Snapshot() {
		if !ms.Complete {
			turn.NextTargets = append(turn.NextTargets, ms.Name)
		}
	}
}

// extractMoves parses both sides of the turn into design moves and
// appends them to the linkograph. CONTROL sessions contribute user
// moves only.
func (o *Orchestrator) extractMoves(ctx context.Context, state *sessionState, turn *datatypes.Turn) {
	ph := state.tracker.Current()

	userMoves := o.parser.Parse(state.header.ID, turn.UserInput, datatypes.SourceUserGenerated, ph, 0)
	for _, m := range userMoves {
		stored, links := state.builder.Append(ctx, m)
		turn.Moves = append(turn.Moves, stored)
		turn.Links = append(turn.Links, links...)
	}

	if state.header.Condition == datatypes.ConditionControl {
		return
	}

	source := datatypes.SourceAIPrompted
	if state.header.Condition == datatypes.ConditionGenericAI {
		source = datatypes.SourceAIProvided
	}
	for _, m := range o.parser.Parse(state.header.ID, turn.AssistantReply, source, ph, 1) {
		stored, links := state.builder.Append(ctx, m)
		turn.Moves = append(turn.Moves, stored)
		turn.Links = append(turn.Links, links...)
	}
}

// assess scores the turn against the full move history.
func (o *Orchestrator) assess(ctx context.Context, state *sessionState, turn *datatypes.Turn) {
	var sources []string
	for _, r := range turn.AgentResponses {
		sources = append(sources, r.SourcesUsed...)
	}
	turn.Scores = o.assessor.Assess(ctx, assessment.Input{
		Condition:        state.header.Condition,
		Classification:   turn.Classification,
		UserInput:        turn.UserInput,
		AssistantReply:   turn.AssistantReply,
		KnowledgeSources: sources,
		LinkDensity:      state.builder.Metrics().LinkDensity,
		Moves:            state.builder.Moves(),
	})
}

// recordTurnMetrics updates the engine instruments after a committed
// turn.
func (o *Orchestrator) recordTurnMetrics(ctx context.Context, state *sessionState, turn datatypes.Turn) {
	if o.metrics == nil {
		return
	}
	condition := attribute.String("condition", state.header.Condition.String())

	o.metrics.TurnsTotal.Add(ctx, 1, metric.WithAttributes(
		condition, attribute.String("route", turn.Routing.Route.String())))
	o.metrics.TurnDuration.Record(ctx, float64(turn.ResponseTimeMs)/1000.0,
		metric.WithAttributes(condition))
	o.metrics.ClassificationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("interaction_type", turn.Classification.InteractionType.String()),
		attribute.String("status", string(turn.Classification.Status))))
	if turn.Routing.Route != "" {
		o.metrics.RouteDecisionsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("route", turn.Routing.Route.String()),
			attribute.String("rule", turn.Routing.RuleApplied)))
	}
	for _, r := range turn.AgentResponses {
		o.metrics.AgentInvocationsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("agent", r.AgentName.String()),
			attribute.String("status", string(r.Status))))
		if r.Status != datatypes.StatusOK {
			o.metrics.DegradedResultsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("component", r.AgentName.String()),
				attribute.String("reason", r.StatusReason)))
		}
	}
	for _, m := range turn.Moves {
		o.metrics.MovesExtractedTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("source", string(m.Source))))
	}
	for _, l := range turn.Links {
		o.metrics.LinksCreatedTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("kind", string(l.Kind))))
	}
	if turn.Transition != nil {
		o.metrics.PhaseTransitionsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("to", turn.Transition.To.String())))
	}
	if turn.ActivatedTask != nil {
		o.metrics.TaskActivationsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("task", string(turn.ActivatedTask.Task))))
	}
}

// AdvancePhase manually advances the session to the next phase. An
// empty reason is recorded as manual_advance.
//
// Tasks still active in the outgoing phase complete automatically with
// a phase_transition reason.
func (o *Orchestrator) AdvancePhase(ctx context.Context, sessionID, reason string) (*datatypes.PhaseTransition, error) {
	state, err := o.state(sessionID)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.ended {
		return nil, ErrSessionEnded
	}

	if reason == "" {
		reason = "manual_advance"
	}
	transition, err := state.tracker.Advance(reason, state.turnCount)
	if err != nil {
		return nil, err
	}
	state.tasks.OnPhaseTransition(transition.From, state.turnCount)
	o.logger.Info("phase advanced",
		"session", sessionID, "from", transition.From.String(), "to", transition.To.String())
	return transition, nil
}

// CompleteTask marks an active task completed on learner submission.
// An empty reason is recorded as completed.
//
// Outputs:
//
//	datatypes.TaskEvent - The completion event.
//	error - tasks.ErrTaskNotActive when the task is not currently
//	active.
func (o *Orchestrator) CompleteTask(ctx context.Context, sessionID string, task datatypes.TaskType, reason string) (datatypes.TaskEvent, error) {
	state, err := o.state(sessionID)
	if err != nil {
		return datatypes.TaskEvent{}, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.ended {
		return datatypes.TaskEvent{}, ErrSessionEnded
	}

	event, err := state.tasks.Complete(task, state.turnCount, reason)
	if err != nil {
		return datatypes.TaskEvent{}, err
	}
	o.logger.Info("task completed by learner",
		"session", sessionID, "task", task.String(), "turn", state.turnCount)
	return event, nil
}

// EndSession closes the session and returns its summary. Further turns
// are rejected with ErrSessionEnded; artifacts remain readable.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) (datatypes.SessionSummary, error) {
	state, err := o.state(sessionID)
	if err != nil {
		return datatypes.SessionSummary{}, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.ended {
		return datatypes.SessionSummary{}, ErrSessionEnded
	}

	state.header.EndedAt = datatypes.NowUnixMilli()
	if err := o.store.UpdateSession(ctx, state.header); err != nil {
		state.header.EndedAt = 0
		return datatypes.SessionSummary{}, fmt.Errorf("end session: %w", err)
	}
	state.ended = true
	if o.metrics != nil {
		o.metrics.ActiveSessions.Add(ctx, -1)
	}

	summary, err := o.summaryLocked(ctx, state)
	if err != nil {
		return datatypes.SessionSummary{}, err
	}
	o.logger.Info("session ended",
		"session", sessionID, "turns", summary.TurnCount, "composite", summary.CompositeScore)
	return summary, nil
}

func (o *Orchestrator) summaryLocked(ctx context.Context, state *sessionState) (datatypes.SessionSummary, error) {
	turns, err := o.store.Turns(ctx, state.header.ID)
	if err != nil {
		return datatypes.SessionSummary{}, fmt.Errorf("load turns: %w", err)
	}

	var avg datatypes.CognitiveScores
	for _, t := range turns {
		avg.COP += t.Scores.COP
		avg.DTE += t.Scores.DTE
		avg.SE += t.Scores.SE
		avg.KI += t.Scores.KI
		avg.LP += t.Scores.LP
		avg.MA += t.Scores.MA
	}
	if n := float64(len(turns)); n > 0 {
		avg.COP /= n
		avg.DTE /= n
		avg.SE /= n
		avg.KI /= n
		avg.LP /= n
		avg.MA /= n
	}

	duration := int64(0)
	if state.header.EndedAt > 0 {
		duration = (state.header.EndedAt - state.header.StartedAt) / 1000
	}

	events := state.tasks.Events()
	activated, completed := 0, 0
	for _, ev := range events {
		switch ev.State {
		case datatypes.TaskTriggered:
			activated++
		case datatypes.TaskCompleted:
			completed++
		}
	}

	graphMetrics := state.builder.Metrics()
	return datatypes.SessionSummary{
		Header:          state.header,
		TurnCount:       len(turns),
		MoveCount:       graphMetrics.MoveCount,
		LinkCount:       graphMetrics.LinkCount,
		LinkDensity:     graphMetrics.LinkDensity,
		FinalPhase:      state.tracker.Current(),
		Transitions:     state.tracker.Transitions(),
		TaskEvents:      events,
		TasksActivated:  activated,
		TasksCompleted:  completed,
		AverageScores:   avg,
		CompositeScore:  avg.Composite(),
		DurationSeconds: duration,
		PhaseDurations:  phaseDurations(state.header, state.tracker.Transitions()),
	}, nil
}

// phaseDurations splits the session wall-clock span across the visited
// phases using transition timestamps.
func phaseDurations(header datatypes.SessionHeader, transitions []datatypes.PhaseTransition) map[datatypes.Phase]int64 {
	end := header.EndedAt
	if end == 0 {
		end = datatypes.NowUnixMilli()
	}
	out := make(map[datatypes.Phase]int64)
	cursor := header.StartedAt
	phase := datatypes.PhaseIdeation
	for _, tr := range transitions {
		out[phase] += (tr.Timestamp - cursor) / 1000
		cursor = tr.Timestamp
		phase = tr.To
	}
	out[phase] += (end - cursor) / 1000
	return out
}

// Artifacts bundles everything the exporters read for one session.
type Artifacts struct {
	Header      datatypes.SessionHeader
	Turns       []datatypes.Turn
	Moves       []datatypes.DesignMove
	Links       []datatypes.Link
	Metrics     linkograph.Metrics
	Transitions []datatypes.PhaseTransition
	TaskEvents  []datatypes.TaskEvent
	Milestones  []phase.MilestoneSnapshot
	Summary     datatypes.SessionSummary
}

// Artifacts collects the session's complete exportable state.
func (o *Orchestrator) Artifacts(ctx context.Context, sessionID string) (Artifacts, error) {
	state, err := o.state(sessionID)
	if err != nil {
		return Artifacts{}, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	turns, err := o.store.Turns(ctx, sessionID)
	if err != nil {
		return Artifacts{}, fmt.Errorf("load turns: %w", err)
	}
	summary, err := o.summaryLocked(ctx, state)
	if err != nil {
		return Artifacts{}, err
	}
	return Artifacts{
		Header:      state.header,
		Turns:       turns,
		Moves:       state.builder.Moves(),
		Links:       state.builder.Links(),
		Metrics:     state.builder.Metrics(),
		Transitions: state.tracker.Transitions(),
		TaskEvents:  state.tasks.Events(),
		Milestones:  state.tracker.Snapshot(),
		Summary:     summary,
	}, nil
}

// SetTaskDefinitions hot-swaps the task catalog for new evaluations in
// every live session. Already-active tasks are unaffected.
func (o *Orchestrator) SetTaskDefinitions(defs []config.TaskDefinition) {
	o.mu.Lock()
	o.cfg.Tasks = defs
	states := make([]*sessionState, 0, len(o.sessions))
	for _, s := range o.sessions {
		states = append(states, s)
	}
	o.mu.Unlock()

	for _, s := range states {
		s.tasks.SetDefinitions(defs)
	}
	o.logger.Info("task definitions reloaded", "count", len(defs))
}
