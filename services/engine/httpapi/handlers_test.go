// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-research/mentor/services/engine/config"
	"github.com/atelier-research/mentor/services/engine/datatypes"
	"github.com/atelier-research/mentor/services/engine/export"
	"github.com/atelier-research/mentor/services/engine/session"
)

func newTestRouter(t *testing.T) (*gin.Engine, *export.Exporter) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := session.OpenBadger("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	exporter, err := export.New(t.TempDir(), nil)
	require.NoError(t, err)

	orch := session.NewOrchestrator(config.Default(), store, nil, nil, nil, nil)
	router := gin.New()
	SetupRoutes(router, NewHandlers(orch, exporter, nil))
	return router, exporter
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func startSession(t *testing.T, router *gin.Engine, condition string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/v1/sessions", gin.H{
		"participant_id": "p1",
		"condition":      condition,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestStartSessionValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/sessions", gin.H{"participant_id": "p1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/v1/sessions", gin.H{
		"participant_id": "p1", "condition": "HUMAN",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitTurnReturnsReplyAndMetadata(t *testing.T) {
	router, _ := newTestRouter(t)
	id := startSession(t, router, "MENTOR")

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/turns", id), gin.H{
		"user_input": "I am designing a community library with a courtyard.",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Reply    string       `json:"reply"`
		Metadata turnMetadata `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Reply)
	assert.NotEmpty(t, resp.Metadata.Route)
	assert.NotEmpty(t, resp.Metadata.AgentsUsed)
	assert.True(t, resp.Metadata.Classification.IsFirstMessage)
	assert.Equal(t, 0, resp.Metadata.TurnIndex)
}

func TestSubmitTurnKeepsLinkographyArtifactCurrent(t *testing.T) {
	router, exporter := newTestRouter(t)
	id := startSession(t, router, "MENTOR")

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/turns", id), gin.H{
		"user_input": "I am designing a community library with a courtyard.",
	})
	require.Equal(t, http.StatusOK, w.Code)

	_, err := os.Stat(filepath.Join(exporter.Dir(), fmt.Sprintf("linkography_%s.json", id)))
	assert.NoError(t, err)
}

func TestSubmitTurnUnknownSession(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/v1/sessions/nope/turns", gin.H{
		"user_input": "hello",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdvancePhase(t *testing.T) {
	router, _ := newTestRouter(t)
	id := startSession(t, router, "MENTOR")

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/advance", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "VISUALIZATION")
}

func TestCompleteTaskEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, err := session.OpenBadger("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	orch := session.NewOrchestrator(config.Default(), store, nil, nil, nil, nil)
	// an always-open window makes the trigger deterministic
	orch.SetTaskDefinitions([]config.TaskDefinition{{
		Type:      datatypes.TaskArchitecturalConcept,
		Phase:     datatypes.PhaseIdeation,
		WindowMin: 0,
		WindowMax: 100,
		Title:     "Develop Your Core Concept",
	}})
	router := gin.New()
	SetupRoutes(router, NewHandlers(orch, nil, nil))

	id := startSession(t, router, "MENTOR")

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/turns", id), gin.H{
		"user_input": "I am designing a community library with a courtyard.",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), string(datatypes.TaskArchitecturalConcept))

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/tasks/complete", id), gin.H{
		"task":   string(datatypes.TaskArchitecturalConcept),
		"reason": "submitted",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"completed"`)

	// a second completion finds nothing active
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/tasks/complete", id), gin.H{
		"task": string(datatypes.TaskArchitecturalConcept),
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// unknown task types never reach the orchestrator
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/tasks/complete", id), gin.H{
		"task": "write_a_novel",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEndSessionExportsArtifacts(t *testing.T) {
	router, exporter := newTestRouter(t)
	id := startSession(t, router, "MENTOR")

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/turns", id), gin.H{
		"user_input": "I am designing a museum entry sequence.",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/end", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "summary")

	_, err := os.Stat(filepath.Join(exporter.Dir(), fmt.Sprintf("interactions_%s.csv", id)))
	assert.NoError(t, err)

	// further turns are rejected
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/turns", id), gin.H{
		"user_input": "one more",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetLinkograph(t *testing.T) {
	router, _ := newTestRouter(t)
	id := startSession(t, router, "MENTOR")

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/turns", id), gin.H{
		"user_input": "I will design a timber pavilion in the garden.",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/sessions/%s/linkograph", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Moves []json.RawMessage `json:"moves"`
		Metrics struct {
			MoveCount int `json:"move_count"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Moves)
	assert.Equal(t, len(resp.Moves), resp.Metrics.MoveCount)
}
