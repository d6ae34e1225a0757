// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tasks manages dynamic curriculum task activation.
//
// One Manager exists per session. Definitions are evaluated in
// declaration order; at most one task activates per user turn.
package tasks

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/atelier-research/mentor/services/engine/config"
	"github.com/atelier-research/mentor/services/engine/datatypes"
)

var (
	// ErrTaskNotActive indicates a completion request for a task that is
	// not currently active.
	ErrTaskNotActive = errors.New("tasks: task not active")
)

// ActiveTask is a triggered task awaiting completion.
type ActiveTask struct {
	Definition  config.TaskDefinition
	TriggeredAt int
}

// Manager holds per-session task state.
type Manager struct {
	mu sync.Mutex

	defs      []config.TaskDefinition
	condition datatypes.Condition
	active    map[datatypes.TaskType]*ActiveTask
	history   map[datatypes.TaskType]int
	events    []datatypes.TaskEvent
	logger    *slog.Logger
}

// NewManager builds a Manager for one session.
//
// Inputs:
//
//	defs - Task definitions in priority order.
//	condition - The session's experimental condition, checked against
//	each definition's test groups.
func NewManager(defs []config.TaskDefinition, condition datatypes.Condition, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		defs:      defs,
		condition: condition,
		active:    map[datatypes.TaskType]*ActiveTask{},
		history:   map[datatypes.TaskType]int{},
		logger:    logger,
	}
}

// SetDefinitions swaps the definition list, for hot reload. In-flight
// active tasks are unaffected.
func (m *Manager) SetDefinitions(defs []config.TaskDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defs = defs
}

// Clone returns an independent copy of the manager's mutable state.
// Definitions and the logger are shared.
func (m *Manager) Clone() *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := make(map[datatypes.TaskType]*ActiveTask, len(m.active))
	for k, v := range m.active {
		cp := *v
		active[k] = &cp
	}
	history := make(map[datatypes.TaskType]int, len(m.history))
	for k, v := range m.history {
		history[k] = v
	}
	return &Manager{
		defs:      m.defs,
		condition: m.condition,
		active:    active,
		history:   history,
		events:    append([]datatypes.TaskEvent(nil), m.events...),
		logger:    m.logger,
	}
}

// Evaluate activates at most one eligible task for the turn.
//
// Description:
//
//	A definition is eligible when its phase matches, the phase
//	completion percent falls inside its trigger window, every
//	prerequisite task has been completed, it is not already active,
//	and (for trigger-once tasks) it has never activated before.
//	Image-required definitions additionally need the turn to carry an
//	uploaded image. Definitions restricted to test groups require the
//	session's condition to be listed. The first eligible definition in
//	declaration order wins.
//
// Outputs:
//
//	*datatypes.TaskEvent - The activation event, nil when nothing
//	triggered.
//	*ActiveTask - The activated task payload, nil when nothing
//	triggered.
func (m *Manager) Evaluate(phase datatypes.Phase, completionPercent float64, userTurnIndex int, hasImage bool) (*datatypes.TaskEvent, *ActiveTask) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, def := range m.defs {
		if !m.eligibleLocked(def, phase, completionPercent, hasImage) {
			continue
		}
		at := &ActiveTask{Definition: def, TriggeredAt: userTurnIndex}
		m.active[def.Type] = at
		ev := datatypes.TaskEvent{
			Task:          def.Type,
			State:         datatypes.TaskTriggered,
			UserTurnIndex: userTurnIndex,
			Reason:        "trigger_window",
			Timestamp:     datatypes.NowUnixMilli(),
		}
		m.events = append(m.events, ev)
		m.logger.Info("task triggered",
			"task", def.Type.String(), "phase", phase.String(),
			"completion", completionPercent, "turn", userTurnIndex)
		return &ev, at
	}
	return nil, nil
}

func (m *Manager) eligibleLocked(def config.TaskDefinition, phase datatypes.Phase, completion float64, hasImage bool) bool {
	if def.Phase != phase {
		return false
	}
	if completion < def.WindowMin || completion > def.WindowMax {
		return false
	}
	if def.ImageRequired && !hasImage {
		return false
	}
	if _, isActive := m.active[def.Type]; isActive {
		return false
	}
	if _, done := m.history[def.Type]; done && def.TriggerOnce {
		return false
	}
	for _, prereq := range def.Prerequisites {
		if _, done := m.history[prereq]; !done {
			return false
		}
	}
	if len(def.TestGroups) > 0 {
		found := false
		for _, g := range def.TestGroups {
			if g == m.condition {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Complete marks an active task completed.
//
// Outputs:
//
//	datatypes.TaskEvent - The completion event.
//	error - ErrTaskNotActive when the task is not active.
func (m *Manager) Complete(task datatypes.TaskType, userTurnIndex int, reason string) (datatypes.TaskEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[task]; !ok {
		return datatypes.TaskEvent{}, ErrTaskNotActive
	}
	if reason == "" {
		reason = "completed"
	}
	return m.completeLocked(task, userTurnIndex, reason), nil
}

func (m *Manager) completeLocked(task datatypes.TaskType, userTurnIndex int, reason string) datatypes.TaskEvent {
	delete(m.active, task)
	m.history[task] = userTurnIndex
	ev := datatypes.TaskEvent{
		Task:          task,
		State:         datatypes.TaskCompleted,
		UserTurnIndex: userTurnIndex,
		Reason:        reason,
		Timestamp:     datatypes.NowUnixMilli(),
	}
	m.events = append(m.events, ev)
	m.logger.Info("task completed", "task", task.String(), "reason", reason, "turn", userTurnIndex)
	return ev
}

// OnPhaseTransition auto-completes active tasks belonging to the phase
// being left.
//
// Outputs:
//
//	[]datatypes.TaskEvent - Completion events with reason
//	"phase_transition", in definition order.
func (m *Manager) OnPhaseTransition(from datatypes.Phase, userTurnIndex int) []datatypes.TaskEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []datatypes.TaskEvent
	for _, def := range m.defs {
		at, ok := m.active[def.Type]
		if !ok || at.Definition.Phase != from {
			continue
		}
		events = append(events, m.completeLocked(def.Type, userTurnIndex, "phase_transition"))
	}
	return events
}

// Active returns the active tasks in definition order.
func (m *Manager) Active() []ActiveTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ActiveTask
	for _, def := range m.defs {
		if at, ok := m.active[def.Type]; ok {
			out = append(out, *at)
		}
	}
	return out
}

// Completed reports whether a task type has ever completed.
func (m *Manager) Completed(task datatypes.TaskType) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.history[task]
	return ok
}

// Events returns a copy of all recorded task events in order.
func (m *Manager) Events() []datatypes.TaskEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]datatypes.TaskEvent, len(m.events))
	copy(out, m.events)
	return out
}
