// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config holds the engine configuration: one struct loaded from
// YAML, overridden by environment variables, validated at startup.
//
// Unknown YAML keys are ignored; type mismatches fail fast at load time.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/atelier-research/mentor/services/engine/datatypes"
)

var (
	// ErrInvalidConfig indicates the loaded configuration failed validation.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Thresholds are the tunable constants of the analysis pipeline.
type Thresholds struct {
	// MilestonePass is the minimum average rubric score for milestone
	// completion.
	MilestonePass float64 `yaml:"milestone_pass" validate:"gte=0,lte=5"`

	// SemanticLink is the cosine similarity threshold for semantic links.
	SemanticLink float64 `yaml:"semantic_link" validate:"gte=0,lte=1"`

	// LinkCap is the maximum semantic links created per new move.
	LinkCap int `yaml:"link_cap" validate:"gte=1"`

	// SemanticWindow is how many prior moves are candidates for semantic
	// linking.
	SemanticWindow int `yaml:"semantic_window" validate:"gte=1"`

	// CritDegree is the minimum total link degree for a critical move.
	CritDegree int `yaml:"crit_degree" validate:"gte=1"`
}

// Duration wraps time.Duration so YAML accepts "30s"-style strings.
type Duration time.Duration

// UnmarshalYAML parses either a Go duration string or integer seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs int64
	if err := node.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(time.Duration(secs) * time.Second)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Timeouts bound the engine's external calls.
type Timeouts struct {
	LLM    Duration `yaml:"llm" validate:"gt=0"`
	Embed  Duration `yaml:"embed" validate:"gt=0"`
	Search Duration `yaml:"search" validate:"gt=0"`
}

// LLMConfig selects and parameterizes the LLM backend.
type LLMConfig struct {
	// Backend is "ollama" or "openai".
	Backend string `yaml:"backend" validate:"oneof=ollama openai"`

	// Endpoint is the Ollama base URL (ignored for openai).
	Endpoint string `yaml:"endpoint"`

	// Model is the chat model name.
	Model string `yaml:"model" validate:"required"`

	// EmbedModel is the embedding model name.
	EmbedModel string `yaml:"embed_model" validate:"required"`

	// APIKey is read from MENTOR_OPENAI_API_KEY when empty.
	APIKey string `yaml:"api_key"`

	// RequestsPerSecond is the client-side rate limit.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`
}

// KnowledgeConfig parameterizes the weaviate-backed knowledge base.
type KnowledgeConfig struct {
	// Enabled turns knowledge retrieval on.
	Enabled bool `yaml:"enabled"`

	// Host is the weaviate host, e.g. "localhost:8080".
	Host string `yaml:"host"`

	// Scheme is "http" or "https".
	Scheme string `yaml:"scheme" validate:"oneof=http https"`

	// ClassName is the weaviate class holding knowledge chunks.
	ClassName string `yaml:"class_name"`

	// TopK is how many chunks a search returns.
	TopK int `yaml:"top_k" validate:"gte=1,lte=50"`
}

// StorageConfig parameterizes persistence.
type StorageConfig struct {
	// DataDir is the badger database directory. Empty means in-memory.
	DataDir string `yaml:"data_dir"`

	// ExportDir receives per-session artifact files.
	ExportDir string `yaml:"export_dir" validate:"required"`
}

// ServerConfig parameterizes the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// ConditionModifiers scale cognitive scores per experimental condition.
type ConditionModifiers struct {
	// GenericAIScale multiplies COP and DTE under GENERIC_AI.
	GenericAIScale float64 `yaml:"generic_ai_scale" validate:"gte=0,lte=1"`

	// MACap caps metacognitive awareness per condition.
	MACap map[string]float64 `yaml:"ma_cap"`
}

// TaskDefinition declares one dynamic task's trigger rules.
type TaskDefinition struct {
	Type datatypes.TaskType `yaml:"type" validate:"required"`

	// Phase is the phase during which the task can trigger.
	Phase datatypes.Phase `yaml:"phase" validate:"required"`

	// WindowMin and WindowMax bound the phase completion percent window.
	WindowMin float64 `yaml:"window_min" validate:"gte=0,lte=100"`
	WindowMax float64 `yaml:"window_max" validate:"gte=0,lte=100"`

	// Prerequisites are task types that must be completed first.
	Prerequisites []datatypes.TaskType `yaml:"prerequisites"`

	// TestGroups restricts the task to the listed conditions. Empty means
	// all conditions.
	TestGroups []datatypes.Condition `yaml:"test_groups"`

	// TriggerOnce limits the task to a single activation per session.
	TriggerOnce bool `yaml:"trigger_once"`

	// ImageRequired gates the trigger on the turn carrying an uploaded
	// image reference.
	ImageRequired bool `yaml:"image_required"`

	// Title and Guidance are the renderable task payload.
	Title    string `yaml:"title"`
	Guidance string `yaml:"guidance"`
}

// Config is the complete engine configuration.
type Config struct {
	Logging struct {
		Level string `yaml:"level" validate:"oneof=debug info warn error"`
		Dir   string `yaml:"dir"`
		JSON  bool   `yaml:"json"`
	} `yaml:"logging"`

	Telemetry struct {
		TraceExporter  string `yaml:"trace_exporter" validate:"oneof=otlp stdout none"`
		MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`
		OTLPEndpoint   string `yaml:"otlp_endpoint"`
	} `yaml:"telemetry"`

	Server     ServerConfig       `yaml:"server"`
	Storage    StorageConfig      `yaml:"storage"`
	LLM        LLMConfig          `yaml:"llm"`
	Knowledge  KnowledgeConfig    `yaml:"knowledge"`
	Thresholds Thresholds         `yaml:"thresholds"`
	Timeouts   Timeouts           `yaml:"timeouts"`
	Modifiers  ConditionModifiers `yaml:"condition_modifiers"`

	// TaskDefinitionsPath optionally points at a standalone YAML file of
	// task definitions that can be hot-reloaded.
	TaskDefinitionsPath string `yaml:"task_definitions_path"`

	// Tasks are the inline task definitions, in priority order.
	Tasks []TaskDefinition `yaml:"tasks"`
}

// Default returns the engine defaults. Loaded files override these
// field by field.
func Default() Config {
	var cfg Config
	cfg.Logging.Level = "info"
	cfg.Telemetry.TraceExporter = "none"
	cfg.Telemetry.MetricExporter = "prometheus"
	cfg.Telemetry.OTLPEndpoint = "localhost:4317"
	cfg.Server.Addr = ":8085"
	cfg.Storage.ExportDir = "./exports"
	cfg.LLM = LLMConfig{
		Backend:           "ollama",
		Endpoint:          "http://localhost:11434",
		Model:             "llama3.1:8b",
		EmbedModel:        "nomic-embed-text",
		RequestsPerSecond: 4,
	}
	cfg.Knowledge = KnowledgeConfig{
		Scheme:    "http",
		Host:      "localhost:8080",
		ClassName: "ArchitectureKnowledge",
		TopK:      5,
	}
	cfg.Thresholds = Thresholds{
		MilestonePass:  3.5,
		SemanticLink:   0.35,
		LinkCap:        8,
		SemanticWindow: 20,
		CritDegree:     5,
	}
	cfg.Timeouts = Timeouts{
		LLM:    Duration(30 * time.Second),
		Embed:  Duration(10 * time.Second),
		Search: Duration(10 * time.Second),
	}
	cfg.Modifiers = ConditionModifiers{
		GenericAIScale: 0.4,
		MACap: map[string]float64{
			string(datatypes.ConditionMentor):    1.0,
			string(datatypes.ConditionGenericAI): 0.4,
			string(datatypes.ConditionControl):   0.6,
		},
	}
	cfg.Tasks = DefaultTaskDefinitions()
	return cfg
}

// Load reads YAML from path over the defaults, applies env overrides,
// and validates.
//
// Outputs:
//
//	Config - The merged configuration.
//	error - Non-nil on read, parse, or validation failure.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the structural validity of the configuration.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for i, t := range c.Tasks {
		if !t.Type.Valid() {
			return fmt.Errorf("%w: tasks[%d]: unknown task type %q", ErrInvalidConfig, i, t.Type)
		}
		if !t.Phase.Valid() {
			return fmt.Errorf("%w: tasks[%d]: unknown phase %q", ErrInvalidConfig, i, t.Phase)
		}
		if t.WindowMin > t.WindowMax {
			return fmt.Errorf("%w: tasks[%d]: window_min > window_max", ErrInvalidConfig, i)
		}
	}
	return nil
}

// applyEnvOverrides lets deployment environments override the keys that
// vary between hosts without editing the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MENTOR_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("MENTOR_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("MENTOR_EXPORT_DIR"); v != "" {
		cfg.Storage.ExportDir = v
	}
	if v := os.Getenv("MENTOR_LLM_BACKEND"); v != "" {
		cfg.LLM.Backend = v
	}
	if v := os.Getenv("MENTOR_LLM_ENDPOINT"); v != "" {
		cfg.LLM.Endpoint = v
	}
	if v := os.Getenv("MENTOR_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("MENTOR_OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("MENTOR_WEAVIATE_HOST"); v != "" {
		cfg.Knowledge.Host = v
		cfg.Knowledge.Enabled = true
	}
	if v := os.Getenv("MENTOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
