package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PONTE_DB_PATH", "PONTE_INTAKE_DIR", "PONTE_ENGINE", "PONTE_ENGINE_BINARY",
		"PONTE_ENGINE_MODEL", "PONTE_ENGINE_TIMEOUT", "PONTE_TARGET_LANG",
		"PONTE_MAX_ATTEMPTS", "PONTE_SUMMARY_MAX_WORDS", "PONTE_MAX_TEXT_LENGTH",
		"ANTHROPIC_API_KEY",
	}
	for _, k := range keys {
		saved := os.Getenv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if saved != "" {
				os.Setenv(k, saved)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "ponte.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Engine.Kind != "cli" || cfg.Engine.Binary != "claude" {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if cfg.Engine.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v", cfg.Engine.Timeout)
	}
	if cfg.Pipeline.MaxAttempts != 3 || cfg.Pipeline.SummaryMaxWords != 100 {
		t.Errorf("Pipeline = %+v", cfg.Pipeline)
	}
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "no-such.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "ponte.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "ponte.yaml")
	content := `
dbPath: /data/pipeline.db
engine:
  kind: api
  model: claude-sonnet-4-20250514
  timeout: 90s
  targetLang: European Portuguese
pipeline:
  maxAttempts: 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/data/pipeline.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Engine.Kind != "api" || cfg.Engine.Timeout != 90*time.Second {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if cfg.Engine.TargetLang != "European Portuguese" {
		t.Errorf("TargetLang = %q", cfg.Engine.TargetLang)
	}
	if cfg.Pipeline.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d", cfg.Pipeline.MaxAttempts)
	}
	// Values the file omits keep their defaults.
	if cfg.Pipeline.SummaryMaxWords != 100 {
		t.Errorf("SummaryMaxWords = %d", cfg.Pipeline.SummaryMaxWords)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "ponte.yaml")
	if err := os.WriteFile(path, []byte("dbPath: from-file.db\n"), 0644); err != nil {
		t.Fatal(err)
	}
	os.Setenv("PONTE_DB_PATH", "from-env.db")
	os.Setenv("PONTE_MAX_ATTEMPTS", "7")
	os.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Cleanup(func() {
		os.Unsetenv("PONTE_DB_PATH")
		os.Unsetenv("PONTE_MAX_ATTEMPTS")
		os.Unsetenv("ANTHROPIC_API_KEY")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "from-env.db" {
		t.Errorf("DBPath = %q, env should win", cfg.DBPath)
	}
	if cfg.Pipeline.MaxAttempts != 7 {
		t.Errorf("MaxAttempts = %d", cfg.Pipeline.MaxAttempts)
	}
	if cfg.Engine.APIKey != "sk-test" {
		t.Errorf("APIKey = %q", cfg.Engine.APIKey)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "ponte.yaml")
	if err := os.WriteFile(path, []byte("dbPath: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvHelpers(t *testing.T) {
	clearEnv(t)

	os.Setenv("PONTE_ENGINE_TIMEOUT", "not-a-duration")
	t.Cleanup(func() { os.Unsetenv("PONTE_ENGINE_TIMEOUT") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Timeout != 60*time.Second {
		t.Errorf("unparseable duration should keep default, got %v", cfg.Engine.Timeout)
	}
}
