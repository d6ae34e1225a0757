// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm defines the language model client interface and its Ollama
// and OpenAI implementations.
//
// The engine never talks to a model directly; every call goes through
// Client or Embedder so backends stay swappable and rate-limited.
package llm

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

var (
	// ErrNoBackend indicates an unrecognized backend name.
	ErrNoBackend = errors.New("llm: unknown backend")

	// ErrEmptyResponse indicates the model returned no usable content.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams carries optional sampling parameters. Nil fields fall
// back to backend defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Client is the standard interface for any LLM backend.
type Client interface {
	// Generate runs single-prompt completion.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Chat runs multi-message completion.
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)
}

// Embedder produces embedding vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RateLimited wraps a Client with a client-side token bucket so bursts
// of agent fan-out cannot overload a local model server.
type RateLimited struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimited wraps client at the given requests per second.
func NewRateLimited(client Client, rps float64) *RateLimited {
	if rps <= 0 {
		rps = 1
	}
	return &RateLimited{
		inner:   client,
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

func (r *RateLimited) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.Generate(ctx, prompt, params)
}

func (r *RateLimited) Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.Chat(ctx, messages, params)
}

// Float32Ptr returns a pointer to v. Convenience for GenerationParams.
func Float32Ptr(v float32) *float32 { return &v }

// IntPtr returns a pointer to v. Convenience for GenerationParams.
func IntPtr(v int) *int { return &v }
