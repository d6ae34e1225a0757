// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/atelier-research/mentor/services/engine/datatypes"
)

var (
	// ErrMissingUserInput is the one fatal validation failure: without an
	// utterance there is no turn.
	ErrMissingUserInput = errors.New("session: missing user_input")
)

// Anomaly is one recorded state validation finding.
type Anomaly struct {
	SessionID string
	TurnIndex int
	Step      string
	Field     string
	Fatal     bool
}

// StateMonitor collects validation anomalies without interrupting the
// pipeline.
//
// Thread Safety: safe for concurrent use.
type StateMonitor struct {
	mu        sync.Mutex
	anomalies []Anomaly
	logger    *slog.Logger
}

// NewStateMonitor builds a monitor.
func NewStateMonitor(logger *slog.Logger) *StateMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateMonitor{logger: logger}
}

// Record logs and stores one anomaly.
func (m *StateMonitor) Record(a Anomaly) {
	m.mu.Lock()
	m.anomalies = append(m.anomalies, a)
	m.mu.Unlock()
	m.logger.Warn("state anomaly",
		"session", a.SessionID, "turn", a.TurnIndex,
		"step", a.Step, "field", a.Field, "fatal", a.Fatal)
}

// Anomalies returns a copy of everything recorded so far.
func (m *StateMonitor) Anomalies() []Anomaly {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Anomaly, len(m.anomalies))
	copy(out, m.anomalies)
	return out
}

// StateValidator asserts the turn record carries its required fields at
// step boundaries. Only a missing user input is fatal; everything else
// is recorded and the pipeline continues.
type StateValidator struct {
	monitor *StateMonitor
}

// NewStateValidator builds a validator reporting into monitor.
func NewStateValidator(monitor *StateMonitor) *StateValidator {
	return &StateValidator{monitor: monitor}
}

// Validate checks the turn at a named step boundary.
//
// Outputs:
//
//	error - ErrMissingUserInput when the utterance is absent; nil
//	otherwise, anomalies notwithstanding.
func (v *StateValidator) Validate(sessionID, step string, turn *datatypes.Turn) error {
	if turn.UserInput == "" {
		v.monitor.Record(Anomaly{
			SessionID: sessionID, TurnIndex: turn.Index,
			Step: step, Field: "user_input", Fatal: true,
		})
		return ErrMissingUserInput
	}
	if step != "entry" && turn.Classification.InteractionType == "" {
		v.monitor.Record(Anomaly{SessionID: sessionID, TurnIndex: turn.Index, Step: step, Field: "classification"})
	}
	// routing only exists on pipeline paths, so it is checked at the
	// post_route boundary rather than globally
	if step == "post_route" && turn.Routing.Route == "" {
		v.monitor.Record(Anomaly{SessionID: sessionID, TurnIndex: turn.Index, Step: step, Field: "routing_decision"})
	}
	if step == "persist" && len(turn.AgentResponses) == 0 && turn.AssistantReply == "" {
		v.monitor.Record(Anomaly{SessionID: sessionID, TurnIndex: turn.Index, Step: step, Field: "agent_responses"})
	}
	return nil
}
