package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"unknown provider", func(c *Config) { c.AI.Provider = "mystery" }, true},
		{"openai without key", func(c *Config) { c.AI.Provider = "openai" }, true},
		{"openai with key", func(c *Config) { c.AI.Provider = "openai"; c.AI.APIKey = "sk-test" }, false},
		{"threshold above one", func(c *Config) { c.Analysis.ParseSuccessThreshold = 1.5 }, true},
		{"negative timing window", func(c *Config) { c.Analysis.TimingWindow = -time.Second }, true},
		{"zero issue cap", func(c *Config) { c.Analysis.MainIssueCap = 0 }, true},
		{"zero retention", func(c *Config) { c.Session.Retention = 0 }, true},
		{"bad output format", func(c *Config) { c.Output.DefaultFormat = "xml" }, true},
		{"bad color mode", func(c *Config) { c.Output.ColorMode = "sometimes" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
ai:
  provider: openai
  api_key: sk-test
  model: gpt-4o
analysis:
  timing_window: 10s
  similarity_threshold: 0.7
knowledge:
  docs_dir: /srv/docs
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader().LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.AI.Provider != "openai" || cfg.AI.Model != "gpt-4o" {
		t.Errorf("AI config not loaded: %+v", cfg.AI)
	}
	if cfg.Analysis.TimingWindow != 10*time.Second {
		t.Errorf("TimingWindow = %v, want 10s", cfg.Analysis.TimingWindow)
	}
	if cfg.Analysis.SimilarityThreshold != 0.7 {
		t.Errorf("SimilarityThreshold = %f, want 0.7", cfg.Analysis.SimilarityThreshold)
	}
	// Unset fields keep defaults.
	if cfg.Analysis.MainIssueCap != 5 {
		t.Errorf("MainIssueCap = %d, want default 5", cfg.Analysis.MainIssueCap)
	}
	if cfg.Knowledge.DocsDir != "/srv/docs" {
		t.Errorf("DocsDir = %q", cfg.Knowledge.DocsDir)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("DIAGD_AI_PROVIDER", "none")
	t.Setenv("DIAGD_ANALYSIS_TIMING_WINDOW", "3s")
	t.Setenv("DIAGD_OUTPUT_VERBOSE", "true")

	cfg, err := NewLoader().LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Analysis.TimingWindow != 3*time.Second {
		t.Errorf("Env override lost: TimingWindow = %v", cfg.Analysis.TimingWindow)
	}
	if !cfg.Output.Verbose {
		t.Error("Env override lost: Verbose")
	}
}

func TestLoadConfigRejectsBadPath(t *testing.T) {
	if _, err := NewLoader().LoadConfig("../escape.yaml"); err == nil {
		t.Error("Expected error for path traversal")
	}
	if _, err := NewLoader().LoadConfig("config.txt"); err == nil {
		t.Error("Expected error for non-YAML extension")
	}
}
