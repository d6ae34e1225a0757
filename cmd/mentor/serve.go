// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/atelier-research/mentor/pkg/logging"
	"github.com/atelier-research/mentor/services/engine/config"
	"github.com/atelier-research/mentor/services/engine/export"
	"github.com/atelier-research/mentor/services/engine/httpapi"
	"github.com/atelier-research/mentor/services/engine/knowledge"
	"github.com/atelier-research/mentor/services/engine/llm"
	"github.com/atelier-research/mentor/services/engine/session"
	"github.com/atelier-research/mentor/services/engine/telemetry"
)

func newServeCmd() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the engine HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable gin debug mode")
	return cmd
}

func runServe(parent context.Context, configPath string, debug bool) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	logger, err := logging.New(logging.Config{
		Level:   logging.Level(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "engine",
		JSON:    cfg.Logging.JSON,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()
	slogger := logger.Slog()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryCfg := telemetry.DefaultConfig()
	telemetryCfg.TraceExporter = cfg.Telemetry.TraceExporter
	telemetryCfg.MetricExporter = cfg.Telemetry.MetricExporter
	telemetryCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	shutdownTelemetry, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(shutdownCtx)
	}()

	client, embedder, err := llm.NewFromConfig(cfg.LLM, cfg.Timeouts)
	if err != nil {
		slogger.Warn("llm backend unavailable, running degraded", "error", err)
	}

	var searcher knowledge.Searcher = knowledge.Disabled{}
	if cfg.Knowledge.Enabled {
		clientCfg := knowledge.DefaultClientConfig()
		clientCfg.Host = cfg.Knowledge.Host
		clientCfg.Scheme = cfg.Knowledge.Scheme
		clientCfg.Logger = slogger
		resilient, err := knowledge.NewResilientClient(clientCfg)
		if err != nil {
			slogger.Warn("knowledge base unavailable, retrieval disabled", "error", err)
		} else {
			defer resilient.Close()
			base := knowledge.NewBase(resilient, embedder, cfg.Knowledge.ClassName,
				cfg.Knowledge.TopK, cfg.Timeouts.Search.Std(), slogger)
			if err := base.EnsureSchema(ctx); err != nil {
				slogger.Warn("knowledge schema check failed", "error", err)
			}
			searcher = base
		}
	}

	store, err := session.OpenBadger(cfg.Storage.DataDir, slogger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	exporter, err := export.New(cfg.Storage.ExportDir, slogger)
	if err != nil {
		return fmt.Errorf("init exporter: %w", err)
	}

	orch := session.NewOrchestrator(cfg, store, client, embedder, searcher, slogger)

	if cfg.TaskDefinitionsPath != "" {
		go func() {
			err := config.WatchTaskDefinitions(ctx, cfg.TaskDefinitionsPath, slogger, orch.SetTaskDefinitions)
			if err != nil {
				slogger.Warn("task definition watcher stopped", "error", err)
			}
		}()
	}

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	httpapi.SetupRoutes(router, httpapi.NewHandlers(orch, exporter, slogger))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slogger.Info("engine listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	slogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
