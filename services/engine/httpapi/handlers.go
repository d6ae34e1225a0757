// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package httpapi exposes the session engine over HTTP.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/atelier-research/mentor/services/engine/datatypes"
	"github.com/atelier-research/mentor/services/engine/export"
	"github.com/atelier-research/mentor/services/engine/phase"
	"github.com/atelier-research/mentor/services/engine/session"
	"github.com/atelier-research/mentor/services/engine/tasks"
)

var tracer = otel.Tracer("mentor.httpapi")

// Handlers carries the engine dependencies of the HTTP surface.
type Handlers struct {
	orch     *session.Orchestrator
	exporter *export.Exporter
	logger   *slog.Logger
}

// NewHandlers builds the handler set. exporter may be nil; end_session
// then skips artifact export.
func NewHandlers(orch *session.Orchestrator, exporter *export.Exporter, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{orch: orch, exporter: exporter, logger: logger}
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StartSessionRequest is the start_session payload.
type StartSessionRequest struct {
	ParticipantID string              `json:"participant_id" binding:"required"`
	Condition     datatypes.Condition `json:"condition" binding:"required"`
}

// StartSession creates a session and returns its identity.
func (h *Handlers) StartSession(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "StartSession")
	defer span.End()

	var req StartSessionRequest
	if err := c.BindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	header, err := h.orch.StartSession(ctx, req.ParticipantID, req.Condition)
	if err != nil {
		h.writeError(c, span, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_id":     header.ID,
		"participant_id": header.ParticipantID,
		"condition":      header.Condition,
		"started_at":     header.StartedAt,
	})
}

// SubmitTurnRequest is the submit_turn payload.
type SubmitTurnRequest struct {
	UserInput string `json:"user_input" binding:"required"`
	ImageRef  string `json:"image_ref"`
}

// turnMetadata is the reply metadata block of submit_turn.
type turnMetadata struct {
	Route                  string                     `json:"route"`
	AgentsUsed             []string                   `json:"agents_used"`
	Classification         datatypes.Classification   `json:"classification"`
	Phase                  datatypes.Phase            `json:"phase"`
	PhaseCompletionPercent float64                    `json:"phase_completion_percent"`
	ChecklistDelta         []datatypes.ChecklistDelta `json:"checklist_delta,omitempty"`
	ActiveTask             *datatypes.TaskEvent       `json:"active_task,omitempty"`
	CognitiveScores        datatypes.CognitiveScores  `json:"cognitive_scores"`
	SourcesUsed            []string                   `json:"sources_used"`
	ResponseTimeMs         int64                      `json:"response_time_ms"`
	TurnIndex              int                        `json:"turn_index"`
}

// SubmitTurn runs the turn pipeline for one utterance.
func (h *Handlers) SubmitTurn(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "SubmitTurn")
	defer span.End()

	var req SubmitTurnRequest
	if err := c.BindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	turn, err := h.orch.SubmitTurnWithImage(ctx, c.Param("sessionId"), req.UserInput, req.ImageRef)
	if err != nil {
		h.writeError(c, span, err)
		return
	}

	agents := make([]string, 0, len(turn.AgentResponses))
	sources := []string{}
	for _, r := range turn.AgentResponses {
		agents = append(agents, r.AgentName.String())
		sources = append(sources, r.SourcesUsed...)
	}

	// the linkography artifact stays current turn by turn; session end
	// rewrites the full set
	if h.exporter != nil {
		if artifacts, aerr := h.orch.Artifacts(ctx, c.Param("sessionId")); aerr == nil {
			if eerr := h.exporter.ExportLinkography(artifacts); eerr != nil {
				h.logger.Warn("linkography export failed", "error", eerr)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"reply": turn.AssistantReply,
		"metadata": turnMetadata{
			Route:                  turn.Routing.Route.String(),
			AgentsUsed:             agents,
			Classification:         turn.Classification,
			Phase:                  turn.Phase,
			PhaseCompletionPercent: turn.PhaseCompletionPercent,
			ChecklistDelta:         turn.ChecklistDeltas,
			ActiveTask:             turn.ActivatedTask,
			CognitiveScores:        turn.Scores,
			SourcesUsed:            sources,
			ResponseTimeMs:         turn.ResponseTimeMs,
			TurnIndex:              turn.Index,
		},
	})
}

// AdvancePhaseRequest optionally names why the phase was advanced.
type AdvancePhaseRequest struct {
	Reason string `json:"reason"`
}

// AdvancePhase manually advances the session's phase.
func (h *Handlers) AdvancePhase(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "AdvancePhase")
	defer span.End()

	var req AdvancePhaseRequest
	_ = c.ShouldBindJSON(&req)

	transition, err := h.orch.AdvancePhase(ctx, c.Param("sessionId"), req.Reason)
	if err != nil {
		h.writeError(c, span, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transition": transition})
}

// CompleteTaskRequest is the complete_task payload.
type CompleteTaskRequest struct {
	Task   datatypes.TaskType `json:"task" binding:"required"`
	Reason string             `json:"reason"`
}

// CompleteTask marks an active task completed for the session.
func (h *Handlers) CompleteTask(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "CompleteTask")
	defer span.End()

	var req CompleteTaskRequest
	if err := c.BindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !req.Task.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown task type"})
		return
	}

	event, err := h.orch.CompleteTask(ctx, c.Param("sessionId"), req.Task, req.Reason)
	if err != nil {
		h.writeError(c, span, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

// EndSession closes the session, exports its artifacts, and returns
// the summary.
func (h *Handlers) EndSession(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "EndSession")
	defer span.End()

	sessionID := c.Param("sessionId")
	summary, err := h.orch.EndSession(ctx, sessionID)
	if err != nil {
		h.writeError(c, span, err)
		return
	}

	if h.exporter != nil {
		artifacts, err := h.orch.Artifacts(ctx, sessionID)
		if err == nil {
			err = h.exporter.ExportAll(artifacts)
		}
		if err != nil {
			// the session is already closed; report but do not fail the call
			span.RecordError(err)
			h.logger.Error("artifact export failed", "session", sessionID, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetLinkograph returns the session's current moves, links, and
// metrics.
func (h *Handlers) GetLinkograph(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "GetLinkograph")
	defer span.End()

	artifacts, err := h.orch.Artifacts(ctx, c.Param("sessionId"))
	if err != nil {
		h.writeError(c, span, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": artifacts.Header.ID,
		"moves":      artifacts.Moves,
		"links":      artifacts.Links,
		"metrics":    artifacts.Metrics,
	})
}

// writeError maps engine errors onto HTTP statuses without leaking
// internals.
func (h *Handlers) writeError(c *gin.Context, span trace.Span, err error) {
	span.RecordError(err)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, session.ErrSessionEnded):
		c.JSON(http.StatusConflict, gin.H{"error": "session has ended"})
	case errors.Is(err, phase.ErrSessionComplete):
		c.JSON(http.StatusConflict, gin.H{"error": "session is already complete"})
	case errors.Is(err, tasks.ErrTaskNotActive):
		c.JSON(http.StatusConflict, gin.H{"error": "task is not active"})
	case errors.Is(err, session.ErrInvalidCondition):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid condition"})
	case errors.Is(err, session.ErrMissingUserInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_input is required"})
	default:
		h.logger.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
