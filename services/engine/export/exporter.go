// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package export writes the per-session artifact files consumed by the
// downstream benchmarking pipeline. Column order in the CSV files is
// fixed; changing it breaks existing analysis notebooks.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/atelier-research/mentor/services/engine/datatypes"
	"github.com/atelier-research/mentor/services/engine/session"
)

// interactionColumns is the fixed per-turn CSV schema.
var interactionColumns = []string{
	"turn_index", "timestamp", "user_input", "assistant_reply",
	"input_length", "response_length",
	"input_type", "understanding_level", "confidence_level", "engagement_level",
	"is_first_message", "cognitive_offloading_detected", "classification_status",
	"routing_path", "rule_applied", "routing_confidence", "user_intent",
	"agents_used", "response_type", "primary_agent", "cognitive_flags", "sources_used",
	"response_time_ms",
	"cop", "dte", "se", "ki", "lp", "ma", "composite",
	"current_phase", "phase_score", "phase_transition_from", "phase_transition_to",
	"active_task", "checklist_delta_json", "next_targets_json", "metadata_json",
	"move_count", "link_count", "image_ref",
}

// moveColumns is the fixed per-move CSV schema.
var moveColumns = []string{
	"id", "session_id", "sequence", "timestamp", "content",
	"move_type", "phase", "modality", "design_focus", "source",
	"cognitive_load", "self_generation_strength", "ai_influence_strength",
	"complexity_score", "uncertainty_markers",
}

// metricColumns is the fixed per-turn cognitive snapshot schema.
var metricColumns = []string{
	"turn_index", "timestamp", "cop", "dte", "se", "ki", "lp", "ma",
	"composite", "phase", "phase_completion_percent",
}

// Exporter writes session artifacts into a flat directory.
//
// Thread Safety: safe for concurrent use across sessions; files are
// per-session so there is no cross-session contention.
type Exporter struct {
	dir    string
	logger *slog.Logger
}

// New builds an Exporter rooted at dir, creating it if needed.
func New(dir string, logger *slog.Logger) (*Exporter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create export directory %s: %w", dir, err)
	}
	return &Exporter{dir: dir, logger: logger}, nil
}

// Dir returns the export root.
func (e *Exporter) Dir() string { return e.dir }

// ExportAll writes every artifact for the session.
//
// Outputs:
//
//	error - The first write failure; earlier files may already exist.
func (e *Exporter) ExportAll(a session.Artifacts) error {
	id := a.Header.ID
	steps := []struct {
		name string
		fn   func(session.Artifacts) error
	}{
		{"session", e.ExportSession},
		{"interactions", e.ExportInteractions},
		{"moves", e.ExportMoves},
		{"linkography", e.ExportLinkography},
		{"metrics", e.ExportMetrics},
		{"summary", e.ExportSummary},
	}
	for _, s := range steps {
		if err := s.fn(a); err != nil {
			return fmt.Errorf("export %s for session %s: %w", s.name, id, err)
		}
	}
	e.logger.Info("session artifacts exported", "session", id, "dir", e.dir)
	return nil
}

// sessionFile is the session_<id>.json payload.
type sessionFile struct {
	Header      datatypes.SessionHeader     `json:"header"`
	Transitions []datatypes.PhaseTransition `json:"phase_transitions"`
	TaskEvents  []datatypes.TaskEvent       `json:"task_events"`
	Assessments []turnAssessment            `json:"assessments"`
}

type turnAssessment struct {
	TurnIndex int                       `json:"turn_index"`
	Scores    datatypes.CognitiveScores `json:"cognitive_scores"`
	Composite float64                   `json:"composite"`
}

// ExportSession writes session_<id>.json.
func (e *Exporter) ExportSession(a session.Artifacts) error {
	payload := sessionFile{
		Header:      a.Header,
		Transitions: a.Transitions,
		TaskEvents:  a.TaskEvents,
	}
	for _, t := range a.Turns {
		payload.Assessments = append(payload.Assessments, turnAssessment{
			TurnIndex: t.Index,
			Scores:    t.Scores,
			Composite: t.Scores.Composite(),
		})
	}
	return e.writeJSON(fmt.Sprintf("session_%s.json", a.Header.ID), payload)
}

// ExportInteractions writes interactions_<id>.csv with the fixed column
// order.
func (e *Exporter) ExportInteractions(a session.Artifacts) error {
	rows := make([][]string, 0, len(a.Turns))
	for _, t := range a.Turns {
		rows = append(rows, interactionRow(t))
	}
	return e.writeCSV(fmt.Sprintf("interactions_%s.csv", a.Header.ID), interactionColumns, rows)
}

func interactionRow(t datatypes.Turn) []string {
	var agents []string
	var flags []string
	var sources []string
	for _, r := range t.AgentResponses {
		agents = append(agents, r.AgentName.String())
		flags = append(flags, r.CognitiveFlags...)
		sources = append(sources, r.SourcesUsed...)
	}

	transitionFrom, transitionTo := "", ""
	if t.Transition != nil {
		transitionFrom = t.Transition.From.String()
		transitionTo = t.Transition.To.String()
	}
	activeTask := ""
	if t.ActivatedTask != nil {
		activeTask = string(t.ActivatedTask.Task)
	}

	return []string{
		strconv.Itoa(t.Index),
		strconv.FormatInt(t.Timestamp, 10),
		t.UserInput,
		t.AssistantReply,
		strconv.Itoa(len(t.UserInput)),
		strconv.Itoa(len(t.AssistantReply)),
		string(t.Classification.InteractionType),
		string(t.Classification.UnderstandingLevel),
		string(t.Classification.ConfidenceLevel),
		string(t.Classification.EngagementLevel),
		strconv.FormatBool(t.Classification.IsFirstMessage),
		strconv.FormatBool(t.Classification.CognitiveOffloadingDetected),
		string(t.Classification.Status),
		t.Routing.Route.String(),
		t.Routing.RuleApplied,
		formatFloat(t.Routing.Confidence),
		t.Routing.UserIntent,
		strings.Join(agents, "|"),
		responseType(t),
		primaryAgent(t),
		strings.Join(flags, "|"),
		jsonString(sources),
		strconv.FormatInt(t.ResponseTimeMs, 10),
		formatFloat(t.Scores.COP),
		formatFloat(t.Scores.DTE),
		formatFloat(t.Scores.SE),
		formatFloat(t.Scores.KI),
		formatFloat(t.Scores.LP),
		formatFloat(t.Scores.MA),
		formatFloat(t.Scores.Composite()),
		t.Phase.String(),
		formatFloat(t.PhaseCompletionPercent),
		transitionFrom,
		transitionTo,
		activeTask,
		jsonString(t.ChecklistDeltas),
		jsonString(t.NextTargets),
		jsonString(t.Metadata),
		strconv.Itoa(len(t.Moves)),
		strconv.Itoa(len(t.Links)),
		t.ImageRef,
	}
}

// responseType is the synthesized reply's type. Sessions without an
// agent pipeline are control prompts.
func responseType(t datatypes.Turn) string {
	if len(t.AgentResponses) == 0 {
		return string(datatypes.ResponseControlPrompt)
	}
	return string(t.AgentResponses[len(t.AgentResponses)-1].ResponseType)
}

// primaryAgent is the first response-stage agent that contributed.
func primaryAgent(t datatypes.Turn) string {
	for _, r := range t.AgentResponses {
		switch r.AgentName {
		case datatypes.AgentDomain, datatypes.AgentSocratic, datatypes.AgentCognitive:
			return r.AgentName.String()
		}
	}
	if len(t.AgentResponses) > 0 {
		return t.AgentResponses[len(t.AgentResponses)-1].AgentName.String()
	}
	return ""
}

// ExportMoves writes moves_<id>.csv.
func (e *Exporter) ExportMoves(a session.Artifacts) error {
	rows := make([][]string, 0, len(a.Moves))
	for _, m := range a.Moves {
		rows = append(rows, []string{
			m.ID,
			m.SessionID,
			strconv.Itoa(m.Sequence),
			strconv.FormatInt(m.Timestamp, 10),
			m.Content,
			string(m.MoveType),
			m.Phase.String(),
			string(m.Modality),
			string(m.DesignFocus),
			string(m.Source),
			string(m.CognitiveLoad),
			formatFloat(m.SelfGenerationStrength),
			formatFloat(m.AIInfluenceStrength),
			formatFloat(m.ComplexityScore),
			strconv.Itoa(m.UncertaintyMarkers),
		})
	}
	return e.writeCSV(fmt.Sprintf("moves_%s.csv", a.Header.ID), moveColumns, rows)
}

// linkographyFile is the linkography_<id>.json payload.
type linkographyFile struct {
	SessionID string                 `json:"session_id"`
	Moves     []datatypes.DesignMove `json:"moves"`
	Links     []datatypes.Link       `json:"links"`
	Metrics   any                    `json:"metrics"`
}

// ExportLinkography writes linkography_<id>.json. Callers may invoke
// this after every turn; the file is rewritten whole each time.
func (e *Exporter) ExportLinkography(a session.Artifacts) error {
	return e.writeJSON(fmt.Sprintf("linkography_%s.json", a.Header.ID), linkographyFile{
		SessionID: a.Header.ID,
		Moves:     a.Moves,
		Links:     a.Links,
		Metrics:   a.Metrics,
	})
}

// ExportMetrics writes metrics_<id>.csv, the per-turn cognitive
// snapshot.
func (e *Exporter) ExportMetrics(a session.Artifacts) error {
	rows := make([][]string, 0, len(a.Turns))
	for _, t := range a.Turns {
		rows = append(rows, []string{
			strconv.Itoa(t.Index),
			strconv.FormatInt(t.Timestamp, 10),
			formatFloat(t.Scores.COP),
			formatFloat(t.Scores.DTE),
			formatFloat(t.Scores.SE),
			formatFloat(t.Scores.KI),
			formatFloat(t.Scores.LP),
			formatFloat(t.Scores.MA),
			formatFloat(t.Scores.Composite()),
			t.Phase.String(),
			formatFloat(t.PhaseCompletionPercent),
		})
	}
	return e.writeCSV(fmt.Sprintf("metrics_%s.csv", a.Header.ID), metricColumns, rows)
}

// ExportSummary writes session_summary_<id>.json.
func (e *Exporter) ExportSummary(a session.Artifacts) error {
	return e.writeJSON(fmt.Sprintf("session_summary_%s.json", a.Header.ID), a.Summary)
}

func (e *Exporter) writeJSON(name string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (e *Exporter) writeCSV(name string, header []string, rows [][]string) error {
	path := filepath.Join(e.dir, name)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)

	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s header: %w", name, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write %s row: %w", name, err)
		}
	}
	w.Flush()
	return w.Error()
}

// jsonString renders v as compact JSON for embedding inside a CSV cell.
func jsonString(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
