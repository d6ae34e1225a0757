// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package knowledge provides the weaviate-backed architecture knowledge
// base with a resilient client: circuit breaker, retry with backoff, and
// graceful degradation when the vector store is unavailable.
//
// Retrieval failure is never fatal. Callers receive empty results with a
// degraded marker and the pipeline continues without sources.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrUnavailable is returned when weaviate is not reachable.
	ErrUnavailable = errors.New("knowledge: weaviate is not available")

	// ErrCircuitOpen is returned while the circuit breaker blocks requests.
	ErrCircuitOpen = errors.New("knowledge: circuit breaker open")

	// ErrClientClosed is returned after Close.
	ErrClientClosed = errors.New("knowledge: client is closed")
)

// ConnectionState is the resilient client's view of the store.
type ConnectionState int32

const (
	// StateConnected indicates normal operation.
	StateConnected ConnectionState = iota
	// StateDegraded indicates weaviate is unavailable but the client runs.
	StateDegraded
	// StateCircuitOpen indicates requests are blocked.
	StateCircuitOpen
	// StateHalfOpen indicates a single test request is permitted.
	StateHalfOpen
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	case StateCircuitOpen:
		return "circuit_open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ClientConfig configures the resilient client.
type ClientConfig struct {
	// Host is the weaviate host, e.g. "localhost:8080".
	Host string

	// Scheme is "http" or "https".
	Scheme string

	// RetryAttempts is the number of retries for failed requests.
	RetryAttempts int

	// RetryBackoff is the initial backoff between retries.
	RetryBackoff time.Duration

	// MaxRetryBackoff caps the exponential backoff.
	MaxRetryBackoff time.Duration

	// RetryJitter adds randomness to backoff, 0 to 1.
	RetryJitter float64

	// CircuitThreshold is how many failures in the window open the circuit.
	CircuitThreshold int

	// CircuitWindow is the sliding window for counting failures.
	CircuitWindow time.Duration

	// CircuitCooldown is how long the circuit stays open before half-open.
	CircuitCooldown time.Duration

	// HealthCheckInterval is the probe interval while connected.
	HealthCheckInterval time.Duration

	// DegradedCheckInterval is the probe interval while degraded.
	DegradedCheckInterval time.Duration

	// HealthCheckTimeout bounds a single probe.
	HealthCheckTimeout time.Duration

	// Logger for client operations. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultClientConfig returns production defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Scheme:                "http",
		RetryAttempts:         3,
		RetryBackoff:          100 * time.Millisecond,
		MaxRetryBackoff:       5 * time.Second,
		RetryJitter:           0.25,
		CircuitThreshold:      5,
		CircuitWindow:         30 * time.Second,
		CircuitCooldown:       30 * time.Second,
		HealthCheckInterval:   10 * time.Second,
		DegradedCheckInterval: 5 * time.Second,
		HealthCheckTimeout:    5 * time.Second,
		Logger:                slog.Default(),
	}
}

func (c *ClientConfig) applyDefaults() {
	d := DefaultClientConfig()
	if c.Scheme == "" {
		c.Scheme = d.Scheme
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = d.RetryAttempts
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	if c.MaxRetryBackoff == 0 {
		c.MaxRetryBackoff = d.MaxRetryBackoff
	}
	if c.RetryJitter == 0 {
		c.RetryJitter = d.RetryJitter
	}
	if c.CircuitThreshold == 0 {
		c.CircuitThreshold = d.CircuitThreshold
	}
	if c.CircuitWindow == 0 {
		c.CircuitWindow = d.CircuitWindow
	}
	if c.CircuitCooldown == 0 {
		c.CircuitCooldown = d.CircuitCooldown
	}
	if c.HealthCheckInterval == 0 {
		c.HealthCheckInterval = d.HealthCheckInterval
	}
	if c.DegradedCheckInterval == 0 {
		c.DegradedCheckInterval = d.DegradedCheckInterval
	}
	if c.HealthCheckTimeout == 0 {
		c.HealthCheckTimeout = d.HealthCheckTimeout
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
}

// ResilientClient wraps the weaviate client with resilience features.
//
// Thread Safety: Safe for concurrent use.
type ResilientClient struct {
	client *weaviate.Client
	config ClientConfig
	logger *slog.Logger

	state           atomic.Int32
	circuitOpenTime atomic.Int64
	closed          atomic.Bool

	// sliding window of failure timestamps
	failures   []time.Time
	failureIdx int
	failureMu  sync.Mutex

	halfOpenTest atomic.Bool

	healthCtx    context.Context
	healthCancel context.CancelFunc
	healthWg     sync.WaitGroup

	handlers   []DegradationHandler
	handlersMu sync.RWMutex
}

// NewResilientClient creates a resilient weaviate client. The client
// always starts, degraded if the store is unreachable; availability is
// re-probed in the background.
func NewResilientClient(cfg ClientConfig) (*ResilientClient, error) {
	cfg.applyDefaults()
	if cfg.Host == "" {
		return nil, errors.New("knowledge: host must not be empty")
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   cfg.Host,
		Scheme: cfg.Scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	healthCtx, healthCancel := context.WithCancel(context.Background())
	rc := &ResilientClient{
		client:       client,
		config:       cfg,
		logger:       cfg.Logger.With(slog.String("component", "knowledge_client")),
		failures:     make([]time.Time, cfg.CircuitThreshold),
		healthCtx:    healthCtx,
		healthCancel: healthCancel,
	}
	rc.state.Store(int32(StateDegraded))

	if err := rc.checkHealth(context.Background()); err != nil {
		rc.logger.Warn("weaviate unavailable at startup, starting degraded",
			slog.String("host", cfg.Host),
			slog.String("error", err.Error()))
	} else {
		rc.transitionState(StateConnected)
	}

	rc.healthWg.Add(1)
	go rc.runHealthChecker()
	return rc, nil
}

// Client returns the underlying weaviate client for direct operations.
func (c *ResilientClient) Client() *weaviate.Client { return c.client }

// IsAvailable reports whether requests can be attempted.
func (c *ResilientClient) IsAvailable() bool {
	s := ConnectionState(c.state.Load())
	return s == StateConnected || s == StateHalfOpen
}

// GetState returns the current connection state.
func (c *ResilientClient) GetState() ConnectionState {
	return ConnectionState(c.state.Load())
}

// RegisterHandler registers a degradation handler. If the client is
// already degraded the handler is notified immediately.
func (c *ResilientClient) RegisterHandler(handler DegradationHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers = append(c.handlers, handler)
	s := c.GetState()
	if s == StateDegraded || s == StateCircuitOpen {
		handler.OnDegraded("initial state: weaviate unavailable")
	}
}

// Execute runs fn with retry and circuit breaker protection.
func (c *ResilientClient) Execute(ctx context.Context, fn func() error) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	ctx, span := otel.Tracer("mentor.knowledge").Start(ctx, "knowledge.Execute",
		trace.WithAttributes(attribute.String("state", c.GetState().String())))
	defer span.End()

	switch c.GetState() {
	case StateCircuitOpen:
		if c.shouldTryHalfOpen() {
			c.transitionState(StateHalfOpen)
		} else {
			span.SetStatus(codes.Error, "circuit open")
			return ErrCircuitOpen
		}
	case StateHalfOpen:
		if !c.halfOpenTest.CompareAndSwap(false, true) {
			span.SetStatus(codes.Error, "circuit open (half-open busy)")
			return ErrCircuitOpen
		}
		defer c.halfOpenTest.Store(false)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			span.AddEvent("retry", trace.WithAttributes(
				attribute.Int("attempt", attempt),
				attribute.Int64("backoff_ms", backoff.Milliseconds()),
			))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			c.recordSuccess()
			span.SetStatus(codes.Ok, "success")
			return nil
		}
		if !isRetryable(lastErr) {
			break
		}
	}

	c.recordFailure()
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "all retries failed")
	return fmt.Errorf("knowledge store error: %w", lastErr)
}

// Close stops the health checker.
func (c *ResilientClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.logger.Info("closing knowledge client")
	c.healthCancel()
	c.healthWg.Wait()
	return nil
}

func (c *ResilientClient) transitionState(newState ConnectionState) {
	oldState := ConnectionState(c.state.Swap(int32(newState)))
	if oldState == newState {
		return
	}
	c.logger.Info("knowledge store state transition",
		slog.String("from", oldState.String()),
		slog.String("to", newState.String()))

	c.handlersMu.RLock()
	handlers := c.handlers
	c.handlersMu.RUnlock()

	wasDegraded := oldState == StateDegraded || oldState == StateCircuitOpen
	isDegraded := newState == StateDegraded || newState == StateCircuitOpen
	if !wasDegraded && isDegraded {
		for _, h := range handlers {
			h.OnDegraded(fmt.Sprintf("state changed to %s", newState))
		}
	} else if wasDegraded && !isDegraded {
		for _, h := range handlers {
			h.OnRecovered()
		}
	}
}

func (c *ResilientClient) checkHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.HealthCheckTimeout)
	defer cancel()

	isReady, err := c.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if !isReady {
		return ErrUnavailable
	}
	return nil
}

func (c *ResilientClient) runHealthChecker() {
	defer c.healthWg.Done()
	for {
		interval := c.config.HealthCheckInterval
		s := c.GetState()
		if s == StateDegraded || s == StateCircuitOpen {
			interval = c.config.DegradedCheckInterval
		}
		select {
		case <-c.healthCtx.Done():
			return
		case <-time.After(interval):
			c.performHealthCheck()
		}
	}
}

func (c *ResilientClient) performHealthCheck() {
	err := c.checkHealth(c.healthCtx)
	current := c.GetState()
	if err == nil {
		switch current {
		case StateDegraded, StateHalfOpen:
			c.transitionState(StateConnected)
			c.resetFailures()
		case StateCircuitOpen:
			// let the half-open test confirm before reconnecting
			if c.shouldTryHalfOpen() {
				c.transitionState(StateHalfOpen)
			}
		}
	} else if current == StateConnected {
		c.transitionState(StateDegraded)
	}
}

func (c *ResilientClient) recordSuccess() {
	if c.GetState() == StateHalfOpen {
		c.transitionState(StateConnected)
		c.resetFailures()
	}
}

func (c *ResilientClient) recordFailure() {
	c.failureMu.Lock()
	defer c.failureMu.Unlock()

	now := time.Now()
	c.failures[c.failureIdx] = now
	c.failureIdx = (c.failureIdx + 1) % len(c.failures)

	windowStart := now.Add(-c.config.CircuitWindow)
	count := 0
	for _, t := range c.failures {
		if !t.IsZero() && t.After(windowStart) {
			count++
		}
	}

	if count >= c.config.CircuitThreshold {
		if c.GetState() != StateCircuitOpen {
			c.circuitOpenTime.Store(now.Unix())
			c.transitionState(StateCircuitOpen)
			c.logger.Warn("circuit breaker opened",
				slog.Int("failures", count),
				slog.Duration("window", c.config.CircuitWindow))
		}
	} else if c.GetState() == StateConnected {
		c.transitionState(StateDegraded)
	}
}

func (c *ResilientClient) resetFailures() {
	c.failureMu.Lock()
	defer c.failureMu.Unlock()
	for i := range c.failures {
		c.failures[i] = time.Time{}
	}
	c.failureIdx = 0
}

func (c *ResilientClient) shouldTryHalfOpen() bool {
	openTime := time.Unix(c.circuitOpenTime.Load(), 0)
	return time.Since(openTime) >= c.config.CircuitCooldown
}

func (c *ResilientClient) calculateBackoff(attempt int) time.Duration {
	backoff := c.config.RetryBackoff * time.Duration(1<<attempt)
	if backoff > c.config.MaxRetryBackoff {
		backoff = c.config.MaxRetryBackoff
	}
	jitterRange := float64(backoff) * c.config.RetryJitter
	jitter := (rand.Float64()*2 - 1) * jitterRange
	backoff = time.Duration(float64(backoff) + jitter)
	if backoff < 0 {
		backoff = c.config.RetryBackoff
	}
	return backoff
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
