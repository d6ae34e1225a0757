// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics contains pre-defined instruments for the session engine.
//
// All metrics use the "engine_" prefix for consistent naming.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- Turn Metrics ---

	// TurnsTotal counts processed turns by condition and route.
	TurnsTotal metric.Int64Counter

	// TurnDuration records end-to-end turn duration in seconds.
	TurnDuration metric.Float64Histogram

	// ActiveSessions tracks sessions currently open.
	ActiveSessions metric.Int64UpDownCounter

	// --- Classification and Routing Metrics ---

	// ClassificationsTotal counts classifications by interaction type
	// and status.
	ClassificationsTotal metric.Int64Counter

	// RouteDecisionsTotal counts routing decisions by route and rule.
	RouteDecisionsTotal metric.Int64Counter

	// --- Agent Metrics ---

	// AgentInvocationsTotal counts agent runs by agent name and status.
	AgentInvocationsTotal metric.Int64Counter

	// AgentDuration records per-agent execution duration in seconds.
	AgentDuration metric.Float64Histogram

	// --- Curriculum Metrics ---

	// PhaseTransitionsTotal counts phase transitions by target phase.
	PhaseTransitionsTotal metric.Int64Counter

	// TaskActivationsTotal counts task activations by task type.
	TaskActivationsTotal metric.Int64Counter

	// --- Linkograph Metrics ---

	// MovesExtractedTotal counts extracted design moves by source.
	MovesExtractedTotal metric.Int64Counter

	// LinksCreatedTotal counts linkograph edges by kind.
	LinksCreatedTotal metric.Int64Counter

	// --- Degradation Metrics ---

	// DegradedResultsTotal counts degraded results by component and reason.
	DegradedResultsTotal metric.Int64Counter

	// ErrorsTotal counts errors by component.
	ErrorsTotal metric.Int64Counter
}

// NewMetrics registers all engine instruments with the provided meter.
//
// Outputs:
//
//	*Metrics - The metrics instance with all instruments initialized.
//	error - Non-nil if instrument registration fails.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.TurnsTotal, err = meter.Int64Counter(
		"engine_turns_total",
		metric.WithDescription("Total processed turns"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create turns_total: %w", err)
	}

	m.TurnDuration, err = meter.Float64Histogram(
		"engine_turn_duration_seconds",
		metric.WithDescription("End-to-end turn duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, fmt.Errorf("create turn_duration: %w", err)
	}

	m.ActiveSessions, err = meter.Int64UpDownCounter(
		"engine_active_sessions",
		metric.WithDescription("Sessions currently open"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create active_sessions: %w", err)
	}

	m.ClassificationsTotal, err = meter.Int64Counter(
		"engine_classifications_total",
		metric.WithDescription("Total utterance classifications"),
		metric.WithUnit("{classification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create classifications_total: %w", err)
	}

	m.RouteDecisionsTotal, err = meter.Int64Counter(
		"engine_route_decisions_total",
		metric.WithDescription("Total routing decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create route_decisions_total: %w", err)
	}

	m.AgentInvocationsTotal, err = meter.Int64Counter(
		"engine_agent_invocations_total",
		metric.WithDescription("Total agent invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create agent_invocations_total: %w", err)
	}

	m.AgentDuration, err = meter.Float64Histogram(
		"engine_agent_duration_seconds",
		metric.WithDescription("Per-agent execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("create agent_duration: %w", err)
	}

	m.PhaseTransitionsTotal, err = meter.Int64Counter(
		"engine_phase_transitions_total",
		metric.WithDescription("Total phase transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create phase_transitions_total: %w", err)
	}

	m.TaskActivationsTotal, err = meter.Int64Counter(
		"engine_task_activations_total",
		metric.WithDescription("Total task activations"),
		metric.WithUnit("{activation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create task_activations_total: %w", err)
	}

	m.MovesExtractedTotal, err = meter.Int64Counter(
		"engine_moves_extracted_total",
		metric.WithDescription("Total extracted design moves"),
		metric.WithUnit("{move}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create moves_extracted_total: %w", err)
	}

	m.LinksCreatedTotal, err = meter.Int64Counter(
		"engine_links_created_total",
		metric.WithDescription("Total linkograph edges"),
		metric.WithUnit("{link}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create links_created_total: %w", err)
	}

	m.DegradedResultsTotal, err = meter.Int64Counter(
		"engine_degraded_results_total",
		metric.WithDescription("Total degraded results"),
		metric.WithUnit("{result}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create degraded_results_total: %w", err)
	}

	m.ErrorsTotal, err = meter.Int64Counter(
		"engine_errors_total",
		metric.WithDescription("Total errors by component"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create errors_total: %w", err)
	}

	return m, nil
}
