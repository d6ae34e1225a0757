// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atelier-research/mentor/services/engine/datatypes"
	"github.com/atelier-research/mentor/services/engine/knowledge"
	"github.com/atelier-research/mentor/services/engine/llm"
)

// DomainExpertAgent answers with architectural knowledge. Retrieval
// failures degrade to an LLM-only answer with empty sources.
type DomainExpertAgent struct {
	searcher knowledge.Searcher
	client   llm.Client
	logger   *slog.Logger
}

// NewDomainExpertAgent builds the domain expert.
//
// Inputs:
//
//	searcher - Knowledge base; use knowledge.Disabled{} when retrieval
//	is off.
//	client - May be nil; the agent then answers from retrieved chunks
//	alone.
func NewDomainExpertAgent(searcher knowledge.Searcher, client llm.Client, logger *slog.Logger) *DomainExpertAgent {
	if logger == nil {
		logger = slog.Default()
	}
	if searcher == nil {
		searcher = knowledge.Disabled{}
	}
	return &DomainExpertAgent{searcher: searcher, client: client, logger: logger}
}

func (a *DomainExpertAgent) Name() datatypes.AgentName { return datatypes.AgentDomain }

// Run retrieves knowledge for the turn and composes the domain body.
//
// Description:
//
//	Builds a context-aware query from the utterance, building type, and
//	phase, searches the knowledge base, and asks the LLM to answer
//	grounded in the retrieved chunks. Retrieval failure degrades to an
//	LLM-only answer with sources_used empty; LLM failure degrades to a
//	chunk summary.
func (a *DomainExpertAgent) Run(ctx context.Context, in Input) datatypes.AgentResponse {
	ctx, span := otel.Tracer("mentor.agents").Start(ctx, "domain_expert.run")
	defer span.End()

	resp := datatypes.AgentResponse{
		CorrelationID: in.CorrelationID,
		AgentName:     a.Name(),
		ResponseType:  datatypes.ResponseKnowledge,
		Status:        datatypes.StatusOK,
	}

	query := a.buildQuery(in)
	span.SetAttributes(attribute.String("query", query))

	result := a.searcher.Search(ctx, query)

	if result.Degraded {
		resp.Status = datatypes.StatusDegraded
		resp.StatusReason = result.Reason
		resp.SourcesUsed = []string{}
	} else {
		for _, c := range result.Chunks {
			resp.SourcesUsed = append(resp.SourcesUsed, c.Source)
		}
		resp.Metrics.KnowledgeDensity = float64(len(result.Chunks)) / 5.0
	}

	resp.ResponseText = a.compose(ctx, in, result)
	if resp.ResponseText == "" {
		if resp.Status == datatypes.StatusOK {
			resp.Status = datatypes.StatusDegraded
			resp.StatusReason = "empty_response"
		}
		resp.ResponseText = "Let's work from first principles here."
	}
	return resp
}

func (a *DomainExpertAgent) buildQuery(in Input) string {
	parts := []string{in.UserInput}
	if in.BuildingType != "" && in.BuildingType != "general" {
		parts = append(parts, strings.ReplaceAll(in.BuildingType, "_", " "))
	}
	parts = append(parts, strings.ToLower(in.Phase.String()))
	return strings.Join(parts, " ")
}

func (a *DomainExpertAgent) compose(ctx context.Context, in Input, result knowledge.Result) string {
	if a.client == nil {
		return summarizeChunks(result)
	}

	var b strings.Builder
	b.WriteString("You are an architecture domain expert supporting a design student.\n")
	if len(result.Chunks) > 0 {
		b.WriteString("Ground your answer in these references and mention the topics you draw on:\n")
		for _, c := range result.Chunks {
			fmt.Fprintf(&b, "- [%s] %s\n", c.Topic, c.Content)
		}
	}
	b.WriteString("Explain the relevant principles concisely. Do not design for the student.\n")
	fmt.Fprintf(&b, "Student: %s\n", in.UserInput)

	out, err := a.client.Generate(ctx, b.String(), llm.GenerationParams{
		Temperature: llm.Float32Ptr(0.3),
		MaxTokens:   llm.IntPtr(512),
	})
	if err != nil {
		a.logger.Warn("domain expert llm failed", "error", err)
		return summarizeChunks(result)
	}
	return strings.TrimSpace(out)
}

// summarizeChunks renders retrieved chunks directly when no LLM is
// available.
func summarizeChunks(result knowledge.Result) string {
	if len(result.Chunks) == 0 {
		return ""
	}
	var b strings.Builder
	for i, c := range result.Chunks {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s (%s).", strings.TrimSuffix(c.Content, "."), c.Topic)
	}
	return b.String()
}
