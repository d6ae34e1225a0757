// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/atelier-research/mentor/services/engine/telemetry"
)

// SetupRoutes registers the engine's HTTP surface.
//
// Endpoints:
//
//	GET  /health - Liveness probe.
//	GET  /metrics - Prometheus metrics.
//	POST /v1/sessions - Start a session.
//	POST /v1/sessions/:sessionId/turns - Submit a learner turn.
//	POST /v1/sessions/:sessionId/advance - Manually advance the phase.
//	POST /v1/sessions/:sessionId/tasks/complete - Complete an active task.
//	POST /v1/sessions/:sessionId/end - End the session, export artifacts.
//	GET  /v1/sessions/:sessionId/linkograph - Current linkograph state.
func SetupRoutes(router *gin.Engine, h *Handlers) {
	router.Use(otelgin.Middleware("mentor-engine"))

	router.GET("/health", HealthCheck)
	router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))

	v1 := router.Group("/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", h.StartSession)
			sessions.POST("/:sessionId/turns", h.SubmitTurn)
			sessions.POST("/:sessionId/advance", h.AdvancePhase)
			sessions.POST("/:sessionId/tasks/complete", h.CompleteTask)
			sessions.POST("/:sessionId/end", h.EndSession)
			sessions.GET("/:sessionId/linkograph", h.GetLinkograph)
		}
	}
}
