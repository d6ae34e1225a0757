// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package knowledge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

func TestConnectionState_String(t *testing.T) {
	tests := []struct {
		state ConnectionState
		want  string
	}{
		{StateConnected, "connected"},
		{StateDegraded, "degraded"},
		{StateCircuitOpen, "circuit_open"},
		{StateHalfOpen, "half_open"},
		{ConnectionState(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestBaseDegradationHandler_Transitions(t *testing.T) {
	h := NewBaseDegradationHandler("test", nil)
	assert.Equal(t, ModeNormal, h.GetMode())

	h.OnDegraded("store down")
	assert.Equal(t, ModeDegraded, h.GetMode())

	h.OnRecovered()
	assert.Equal(t, ModeNormal, h.GetMode())
}

func TestDisabled_Search(t *testing.T) {
	res := Disabled{}.Search(context.Background(), "courtyards")
	assert.True(t, res.Degraded)
	assert.Equal(t, "knowledge_disabled", res.Reason)
	assert.Empty(t, res.Chunks)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, isRetryable(nil))
	assert.False(t, isRetryable(context.Canceled))
	assert.True(t, isRetryable(context.DeadlineExceeded))
	assert.False(t, isRetryable(errors.New("application error")))
}

func TestCalculateBackoff_Bounded(t *testing.T) {
	cfg := DefaultClientConfig()
	cfg.Host = "localhost:8080"
	c := &ResilientClient{config: cfg}

	for attempt := 1; attempt <= 10; attempt++ {
		b := c.calculateBackoff(attempt)
		assert.Greater(t, b, time.Duration(0))
		// jitter can push at most 25% beyond the cap
		assert.LessOrEqual(t, b, cfg.MaxRetryBackoff+cfg.MaxRetryBackoff/2)
	}
}

func TestParseChunks(t *testing.T) {
	data := map[string]models.JSONObject{
		"Get": map[string]any{
			"ArchitectureKnowledge": []any{
				map[string]any{
					"source":  "ching_form_space_order",
					"topic":   "circulation",
					"content": "Circulation paths thread spaces together.",
					"_additional": map[string]any{
						"certainty": 0.91,
					},
				},
				map[string]any{
					// missing content is dropped
					"source": "empty",
				},
			},
		},
	}
	chunks := parseChunks(data, "ArchitectureKnowledge")
	require.Len(t, chunks, 1)
	assert.Equal(t, "ching_form_space_order", chunks[0].Source)
	assert.Equal(t, 0.91, chunks[0].Certainty)
}
