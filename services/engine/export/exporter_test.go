// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-research/mentor/services/engine/datatypes"
	"github.com/atelier-research/mentor/services/engine/linkograph"
	"github.com/atelier-research/mentor/services/engine/phase"
	"github.com/atelier-research/mentor/services/engine/session"
)

func testArtifacts() session.Artifacts {
	header := datatypes.SessionHeader{
		ID:            "abc123",
		ParticipantID: "p9",
		Condition:     datatypes.ConditionMentor,
		StartedAt:     1000,
		EndedAt:       61000,
	}
	turn := datatypes.Turn{
		Index:          0,
		UserInput:      "I am designing a library.",
		AssistantReply: "What draws people into your library first?",
		Timestamp:      2000,
		ResponseTimeMs: 120,
		Classification: datatypes.Classification{
			InteractionType:    datatypes.TypeCreativeExploration,
			IsFirstMessage:     true,
			Status:             datatypes.StatusOK,
		},
		Routing: datatypes.RoutingDecision{
			Route:       datatypes.RouteProgressiveOpening,
			RuleApplied: "P1",
			Confidence:  0.95,
		},
		AgentResponses: []datatypes.AgentResponse{
			{AgentName: datatypes.AgentSocratic, ResponseType: datatypes.ResponseOpening, CognitiveFlags: []string{"opening"}},
			{AgentName: datatypes.AgentSynthesizer, ResponseType: datatypes.ResponseSynthesis},
		},
		Moves: []datatypes.DesignMove{{
			ID: "m1", SessionID: "abc123", Sequence: 1, Timestamp: 2000,
			Content: "I am designing a library.", MoveType: datatypes.MoveSynthesis,
			Phase: datatypes.PhaseIdeation, Modality: datatypes.ModalityText,
			DesignFocus: datatypes.FocusFunction, Source: datatypes.SourceUserGenerated,
			CognitiveLoad: datatypes.LoadLow, SelfGenerationStrength: 1,
		}},
		Scores:      datatypes.CognitiveScores{COP: 0.7, DTE: 0.6, SE: 0.5, KI: 0.4, LP: 0.5, MA: 0.2},
		Phase:       datatypes.PhaseIdeation,
		NextTargets: []string{"concept_development"},
	}
	return session.Artifacts{
		Header:     header,
		Turns:      []datatypes.Turn{turn},
		Moves:      turn.Moves,
		Metrics:    linkograph.Metrics{MoveCount: 1},
		Milestones: []phase.MilestoneSnapshot{{Name: "concept_development", Complete: false}},
		Summary: datatypes.SessionSummary{
			Header: header, TurnCount: 1, MoveCount: 1,
			FinalPhase: datatypes.PhaseIdeation, DurationSeconds: 60,
		},
	}
}

func newTestExporter(t *testing.T) *Exporter {
	t.Helper()
	e, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	return e
}

func TestExportAllWritesEveryArtifact(t *testing.T) {
	e := newTestExporter(t)
	require.NoError(t, e.ExportAll(testArtifacts()))

	for _, name := range []string{
		"session_abc123.json",
		"interactions_abc123.csv",
		"moves_abc123.csv",
		"linkography_abc123.json",
		"metrics_abc123.csv",
		"session_summary_abc123.json",
	} {
		_, err := os.Stat(filepath.Join(e.Dir(), name))
		assert.NoError(t, err, name)
	}
}

func TestInteractionsColumnOrderIsFixed(t *testing.T) {
	e := newTestExporter(t)
	require.NoError(t, e.ExportInteractions(testArtifacts()))

	f, err := os.Open(filepath.Join(e.Dir(), "interactions_abc123.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, interactionColumns, records[0])
	assert.GreaterOrEqual(t, len(records[0]), 40)

	row := records[1]
	assert.Equal(t, "0", row[0])
	assert.Equal(t, "I am designing a library.", row[2])
	assert.Equal(t, "progressive_opening", row[13])
	assert.Equal(t, "socratic_tutor|synthesizer", row[17])
	assert.Equal(t, "synthesis", row[18])
	assert.Equal(t, "socratic_tutor", row[19])
	assert.Equal(t, `["concept_development"]`, row[36])
}

func TestInteractionsControlTurnResponseType(t *testing.T) {
	a := testArtifacts()
	a.Turns[0].AgentResponses = nil
	row := interactionRow(a.Turns[0])
	assert.Equal(t, "control_prompt", row[18])
	assert.Equal(t, "", row[19])
}

func TestInteractionsNextTargetsFollowEachTurn(t *testing.T) {
	a := testArtifacts()
	second := a.Turns[0]
	second.Index = 1
	second.NextTargets = []string{"site_context", "program_definition"}
	a.Turns = append(a.Turns, second)

	e := newTestExporter(t)
	require.NoError(t, e.ExportInteractions(a))

	f, err := os.Open(filepath.Join(e.Dir(), "interactions_abc123.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, `["concept_development"]`, records[1][36])
	assert.Equal(t, `["site_context","program_definition"]`, records[2][36])
}

func TestMovesCSV(t *testing.T) {
	e := newTestExporter(t)
	require.NoError(t, e.ExportMoves(testArtifacts()))

	f, err := os.Open(filepath.Join(e.Dir(), "moves_abc123.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, moveColumns, records[0])
	assert.Equal(t, "m1", records[1][0])
	assert.Equal(t, "synthesis", records[1][5])
	assert.Equal(t, "1.0000", records[1][11])
}

func TestLinkographyJSONRoundTrip(t *testing.T) {
	e := newTestExporter(t)
	require.NoError(t, e.ExportLinkography(testArtifacts()))

	data, err := os.ReadFile(filepath.Join(e.Dir(), "linkography_abc123.json"))
	require.NoError(t, err)

	var payload struct {
		SessionID string                 `json:"session_id"`
		Moves     []datatypes.DesignMove `json:"moves"`
		Metrics   linkograph.Metrics     `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "abc123", payload.SessionID)
	require.Len(t, payload.Moves, 1)
	assert.Equal(t, 1, payload.Metrics.MoveCount)
}

func TestSummaryJSON(t *testing.T) {
	e := newTestExporter(t)
	require.NoError(t, e.ExportSummary(testArtifacts()))

	data, err := os.ReadFile(filepath.Join(e.Dir(), "session_summary_abc123.json"))
	require.NoError(t, err)

	var summary datatypes.SessionSummary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 1, summary.TurnCount)
	assert.Equal(t, int64(60), summary.DurationSeconds)
}
