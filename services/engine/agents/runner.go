// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/atelier-research/mentor/services/engine/datatypes"
	"github.com/atelier-research/mentor/services/engine/telemetry"
)

// Runner executes the agent pipeline for a route in two stages: the
// analysis stage (context, analysis) runs first so the response stage
// (domain, socratic, cognitive) sees the detected building type.
type Runner struct {
	contextAgent  *ContextAgent
	analysisAgent *AnalysisAgent
	domainAgent   *DomainExpertAgent
	socraticAgent *SocraticTutorAgent
	cognitive     *CognitiveEnhancementAgent
	synthesizer   *Synthesizer

	timeout time.Duration
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// NewRunner wires the pipeline.
//
// Inputs:
//
//	domain - The domain expert, carrying the knowledge searcher and LLM.
//	timeout - Per-stage deadline; an agent missing it degrades to a
//	timeout fallback response.
//	metrics - Engine instrument set; may be nil.
func NewRunner(domain *DomainExpertAgent, timeout time.Duration, metrics *telemetry.Metrics, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	tutor := NewSocraticTutorAgent()
	return &Runner{
		contextAgent:  NewContextAgent(),
		analysisAgent: NewAnalysisAgent(),
		domainAgent:   domain,
		socraticAgent: tutor,
		cognitive:     NewCognitiveEnhancementAgent(),
		synthesizer:   NewSynthesizer(tutor),
		timeout:       timeout,
		metrics:       metrics,
		logger:        logger,
	}
}

// responseAgentsForRoute selects the response-stage agents.
func (r *Runner) responseAgentsForRoute(route datatypes.Route) []Agent {
	switch route {
	case datatypes.RouteProgressiveOpening:
		return []Agent{r.socraticAgent}
	case datatypes.RouteCognitiveIntervention:
		return []Agent{r.cognitive, r.socraticAgent}
	case datatypes.RouteKnowledgeOnly:
		return []Agent{r.domainAgent}
	case datatypes.RouteKnowledgeWithChallenge:
		return []Agent{r.domainAgent, r.cognitive}
	case datatypes.RouteSocraticExploration:
		return []Agent{r.socraticAgent}
	case datatypes.RouteMultiAgentComprehensive:
		return []Agent{r.domainAgent, r.socraticAgent}
	default:
		return []Agent{r.domainAgent, r.socraticAgent}
	}
}

// Run executes the pipeline and synthesizes the final reply.
//
// Description:
//
//	Stage one runs the context and analysis agents concurrently and
//	folds the detected building type into the input. Stage two runs the
//	route's response agents concurrently. Both stages share the
//	configured timeout; an agent that overruns is replaced by a
//	degraded timeout_fallback response. The synthesizer merge result is
//	returned last in the response slice.
//
// Outputs:
//
//	[]datatypes.AgentResponse - Every agent response plus the synthesis,
//	in a deterministic order.
//	datatypes.AgentResponse - The synthesized reply.
func (r *Runner) Run(ctx context.Context, in Input) ([]datatypes.AgentResponse, datatypes.AgentResponse) {
	ctx, span := otel.Tracer("mentor.agents").Start(ctx, "runner.run")
	defer span.End()
	span.SetAttributes(attribute.String("route", in.Routing.Route.String()))

	responses := map[datatypes.AgentName]datatypes.AgentResponse{}

	stageOne := r.runStage(ctx, in, []Agent{r.contextAgent, r.analysisAgent})
	for name, resp := range stageOne {
		responses[name] = resp
	}

	if analysis, ok := responses[datatypes.AgentAnalysis]; ok {
		if bt, ok := analysis.Metadata["building_type"]; ok {
			in.BuildingType = bt
		}
	}

	stageTwo := r.runStage(ctx, in, r.responseAgentsForRoute(in.Routing.Route))
	for name, resp := range stageTwo {
		responses[name] = resp
	}

	final := r.synthesizer.Merge(in.Routing.Route, in, responses)

	ordered := make([]datatypes.AgentResponse, 0, len(responses)+1)
	for _, name := range []datatypes.AgentName{
		datatypes.AgentContext, datatypes.AgentAnalysis, datatypes.AgentDomain,
		datatypes.AgentSocratic, datatypes.AgentCognitive,
	} {
		if resp, ok := responses[name]; ok {
			ordered = append(ordered, resp)
		}
	}
	ordered = append(ordered, final)
	return ordered, final
}

// runStage executes one agent group concurrently under the stage
// timeout.
func (r *Runner) runStage(ctx context.Context, in Input, group []Agent) map[datatypes.AgentName]datatypes.AgentResponse {
	stageCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var mu sync.Mutex
	out := map[datatypes.AgentName]datatypes.AgentResponse{}

	g, gctx := errgroup.WithContext(stageCtx)
	for _, agent := range group {
		g.Go(func() error {
			started := time.Now()
			done := make(chan datatypes.AgentResponse, 1)
			go func() { done <- agent.Run(gctx, in) }()

			var resp datatypes.AgentResponse
			select {
			case resp = <-done:
			case <-gctx.Done():
				resp = datatypes.AgentResponse{
					CorrelationID:  in.CorrelationID,
					AgentName:      agent.Name(),
					ResponseType:   datatypes.ResponseTimeoutFallback,
					Status:         datatypes.StatusDegraded,
					StatusReason:   "timeout",
					CognitiveFlags: []string{"agent_timeout"},
				}
				r.logger.Warn("agent timed out", "agent", agent.Name().String())
			}
			if r.metrics != nil {
				r.metrics.AgentDuration.Record(gctx, time.Since(started).Seconds(),
					metric.WithAttributes(attribute.String("agent", agent.Name().String())))
			}
			mu.Lock()
			out[agent.Name()] = resp
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
