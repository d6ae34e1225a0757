// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"fmt"

	"github.com/atelier-research/mentor/services/engine/config"
)

// NewFromConfig builds the chat client and embedder selected by the
// configuration. The chat client is always rate-limited.
//
// The embedder is always Ollama-backed; OpenAI deployments still run a
// local embedding model for linkograph similarity.
func NewFromConfig(cfg config.LLMConfig, timeouts config.Timeouts) (Client, Embedder, error) {
	ollama, err := NewOllamaClient(cfg.Endpoint, cfg.Model, cfg.EmbedModel, timeouts.LLM.Std())
	if err != nil && cfg.Backend == "ollama" {
		return nil, nil, err
	}

	var client Client
	switch cfg.Backend {
	case "ollama":
		client = ollama
	case "openai":
		client, err = NewOpenAIClient(cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrNoBackend, cfg.Backend)
	}

	var embedder Embedder
	if ollama != nil {
		embedder = ollama
	}
	return NewRateLimited(client, cfg.RequestsPerSecond), embedder, nil
}
