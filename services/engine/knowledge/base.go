// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atelier-research/mentor/services/engine/llm"
)

// Chunk is one retrieved knowledge passage.
type Chunk struct {
	// Source identifies the document the passage came from.
	Source string `json:"source"`

	// Topic is the indexed topic tag.
	Topic string `json:"topic"`

	// Content is the passage text.
	Content string `json:"content"`

	// Certainty is weaviate's similarity certainty, in [0,1].
	Certainty float64 `json:"certainty"`
}

// Result is a retrieval outcome. Degraded results carry no chunks and a
// reason; the pipeline continues without sources.
type Result struct {
	Chunks   []Chunk
	Degraded bool
	Reason   string
}

// Searcher is the retrieval interface agents depend on.
type Searcher interface {
	Search(ctx context.Context, query string) Result
}

// Disabled is a Searcher for deployments without a vector store. Every
// search degrades with reason "knowledge_disabled".
type Disabled struct{}

func (Disabled) Search(context.Context, string) Result {
	return Result{Degraded: true, Reason: "knowledge_disabled"}
}

// Base is the weaviate-backed knowledge base.
//
// Thread Safety: Safe for concurrent use.
type Base struct {
	client    *ResilientClient
	embedder  llm.Embedder
	className string
	topK      int
	timeout   time.Duration
	logger    *slog.Logger
	handler   *BaseDegradationHandler
}

// NewBase constructs the knowledge base over a resilient client.
//
// Inputs:
//
//	client - The resilient weaviate client.
//	embedder - Produces query vectors for nearVector search.
//	className - The weaviate class holding knowledge chunks.
//	topK - Chunks per search.
//	timeout - Per-search deadline.
func NewBase(client *ResilientClient, embedder llm.Embedder, className string, topK int, timeout time.Duration, logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	handler := NewBaseDegradationHandler("knowledge_base", logger)
	client.RegisterHandler(handler)
	return &Base{
		client:    client,
		embedder:  embedder,
		className: className,
		topK:      topK,
		timeout:   timeout,
		logger:    logger,
		handler:   handler,
	}
}

// EnsureSchema creates the knowledge class if it does not exist.
//
// The class stores pre-vectorized chunks; vectorizer is none because the
// engine supplies vectors through its own embedder.
func (b *Base) EnsureSchema(ctx context.Context) error {
	exists, err := b.client.Client().Schema().
		ClassExistenceChecker().
		WithClassName(b.className).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("checking class existence: %w", err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:       b.className,
		Description: "Architecture domain knowledge passages",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "source", DataType: []string{"text"}},
			{Name: "topic", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
		},
	}
	if err := b.client.Client().Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("creating class %s: %w", b.className, err)
	}
	b.logger.Info("created knowledge class", slog.String("class", b.className))
	return nil
}

// Search implements Searcher with nearVector retrieval.
//
// Description:
//
//	Embeds the query, then runs a GraphQL nearVector search through the
//	resilient client. Any failure, including embedding failure, yields a
//	degraded Result instead of an error.
func (b *Base) Search(ctx context.Context, query string) Result {
	ctx, span := otel.Tracer("mentor.knowledge").Start(ctx, "Base.Search")
	defer span.End()
	span.SetAttributes(attribute.String("knowledge.class", b.className))

	if b.handler.GetMode() == ModeDegraded {
		span.SetAttributes(attribute.Bool("knowledge.degraded", true))
		return Result{Degraded: true, Reason: "store_unavailable"}
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	vector, err := b.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		b.logger.Warn("query embedding failed, degrading search", "error", err)
		return Result{Degraded: true, Reason: "embedding_failed"}
	}

	var chunks []Chunk
	err = b.client.Execute(ctx, func() error {
		nearVector := b.client.Client().GraphQL().NearVectorArgBuilder().
			WithVector(vector)

		fields := []graphql.Field{
			{Name: "source"},
			{Name: "topic"},
			{Name: "content"},
			{Name: "_additional { certainty }"},
		}

		result, err := b.client.Client().GraphQL().Get().
			WithClassName(b.className).
			WithFields(fields...).
			WithNearVector(nearVector).
			WithLimit(b.topK).
			Do(ctx)
		if err != nil {
			return err
		}
		if len(result.Errors) > 0 {
			return fmt.Errorf("graphql error: %s", result.Errors[0].Message)
		}
		chunks = parseChunks(result.Data, b.className)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		b.logger.Warn("knowledge search failed, degrading", "error", err)
		return Result{Degraded: true, Reason: "search_failed"}
	}

	span.SetAttributes(attribute.Int("knowledge.chunks", len(chunks)))
	return Result{Chunks: chunks}
}

// parseChunks extracts chunks from the GraphQL response shape.
func parseChunks(data map[string]models.JSONObject, className string) []Chunk {
	get, ok := data["Get"].(map[string]any)
	if !ok {
		return nil
	}
	items, ok := get[className].([]any)
	if !ok {
		return nil
	}

	chunks := make([]Chunk, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		chunk := Chunk{
			Source:  stringField(obj, "source"),
			Topic:   stringField(obj, "topic"),
			Content: stringField(obj, "content"),
		}
		if add, ok := obj["_additional"].(map[string]any); ok {
			if c, ok := add["certainty"].(float64); ok {
				chunk.Certainty = c
			}
		}
		if chunk.Content != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

func stringField(obj map[string]any, key string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return ""
}
