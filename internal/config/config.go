// Package config provides centralized configuration for ponte. Values are
// read from an optional YAML file, then overridden by environment
// variables, with sensible defaults for everything.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all pipeline configuration values.
type Config struct {
	// DBPath is the path to the SQLite stage-store database file.
	DBPath string `yaml:"dbPath"`

	// IntakeDir is the default directory scanned by the intake command.
	IntakeDir string `yaml:"intakeDir"`

	Engine   EngineConfig   `yaml:"engine"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// EngineConfig selects and tunes the external text engine.
type EngineConfig struct {
	// Kind selects the engine transport: "cli", "api" or "stub".
	Kind string `yaml:"kind"`

	// Binary is the engine CLI binary for the "cli" kind.
	Binary string `yaml:"binary"`

	// Model is the model identifier for the "api" kind.
	Model string `yaml:"model"`

	// APIKey authenticates the "api" kind. Environment only, never YAML.
	APIKey string `yaml:"-"`

	// Timeout is the hard per-call wall-clock budget.
	Timeout time.Duration `yaml:"timeout"`

	// TargetLang is the translation target language.
	TargetLang string `yaml:"targetLang"`
}

// PipelineConfig tunes the orchestrator.
type PipelineConfig struct {
	// MaxAttempts is the per-stage retry bound.
	MaxAttempts int `yaml:"maxAttempts"`

	// SummaryMaxWords is the word budget for generated summaries.
	SummaryMaxWords int `yaml:"summaryMaxWords"`

	// SummaryTolerance is the fraction by which a summary may exceed the
	// word budget before validation rejects it.
	SummaryTolerance float64 `yaml:"summaryTolerance"`

	// MaxTextLength bounds intake body length in runes.
	MaxTextLength int `yaml:"maxTextLength"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:    "ponte.db",
		IntakeDir: "articles",
		Engine: EngineConfig{
			Kind:       "cli",
			Binary:     "claude",
			Model:      "claude-sonnet-4-20250514",
			Timeout:    60 * time.Second,
			TargetLang: "Brazilian Portuguese",
		},
		Pipeline: PipelineConfig{
			MaxAttempts:      3,
			SummaryMaxWords:  100,
			SummaryTolerance: 0.2,
			MaxTextLength:    15000,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (ignored when path is empty or missing), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Missing config file is fine; defaults plus env apply.
		case err != nil:
			return cfg, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	cfg.DBPath = envOr("PONTE_DB_PATH", cfg.DBPath)
	cfg.IntakeDir = envOr("PONTE_INTAKE_DIR", cfg.IntakeDir)
	cfg.Engine.Kind = envOr("PONTE_ENGINE", cfg.Engine.Kind)
	cfg.Engine.Binary = envOr("PONTE_ENGINE_BINARY", cfg.Engine.Binary)
	cfg.Engine.Model = envOr("PONTE_ENGINE_MODEL", cfg.Engine.Model)
	cfg.Engine.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.Engine.Timeout = envDuration("PONTE_ENGINE_TIMEOUT", cfg.Engine.Timeout)
	cfg.Engine.TargetLang = envOr("PONTE_TARGET_LANG", cfg.Engine.TargetLang)
	cfg.Pipeline.MaxAttempts = envInt("PONTE_MAX_ATTEMPTS", cfg.Pipeline.MaxAttempts)
	cfg.Pipeline.SummaryMaxWords = envInt("PONTE_SUMMARY_MAX_WORDS", cfg.Pipeline.SummaryMaxWords)
	cfg.Pipeline.MaxTextLength = envInt("PONTE_MAX_TEXT_LENGTH", cfg.Pipeline.MaxTextLength)

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
