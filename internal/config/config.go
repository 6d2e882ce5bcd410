package config

import (
	"fmt"
	"time"
)

// Config holds the complete application configuration
type Config struct {
	Version   string          `yaml:"version" json:"version"`
	AI        AIConfig        `yaml:"ai" json:"ai"`
	Knowledge KnowledgeConfig `yaml:"knowledge" json:"knowledge"`
	Analysis  AnalysisConfig  `yaml:"analysis" json:"analysis"`
	Session   SessionConfig   `yaml:"session" json:"session"`
	Output    OutputConfig    `yaml:"output" json:"output"`
}

// AIConfig configures the optional completion provider
type AIConfig struct {
	Provider string        `yaml:"provider" json:"provider"` // openai|none
	Model    string        `yaml:"model" json:"model"`       // model name/identifier
	Endpoint string        `yaml:"endpoint" json:"endpoint"` // API endpoint URL
	APIKey   string        `yaml:"api_key" json:"api_key"`   // API key (support env var reference)
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`   // single-attempt timeout
}

// KnowledgeConfig configures the documentation store
type KnowledgeConfig struct {
	DocsDir string `yaml:"docs_dir" json:"docs_dir"` // markdown knowledge base directory
	Watch   bool   `yaml:"watch" json:"watch"`       // rescan documents on change
}

// AnalysisConfig configures pipeline behavior
type AnalysisConfig struct {
	ParseSuccessThreshold float64       `yaml:"parse_success_threshold" json:"parse_success_threshold"`
	TimingWindow          time.Duration `yaml:"timing_window" json:"timing_window"`
	SimilarityThreshold   float64       `yaml:"similarity_threshold" json:"similarity_threshold"`
	MainIssueCap          int           `yaml:"main_issue_cap" json:"main_issue_cap"`
	PromptMaxChars        int           `yaml:"prompt_max_chars" json:"prompt_max_chars"`
	PerQueryResults       int           `yaml:"per_query_results" json:"per_query_results"`
	Workers               int           `yaml:"workers" json:"workers"` // concurrent artifact limit
}

// SessionConfig configures session retention
type SessionConfig struct {
	Retention     time.Duration `yaml:"retention" json:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// OutputConfig configures output formatting and display
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" json:"default_format"` // json|text|markdown
	ColorMode     string `yaml:"color_mode" json:"color_mode"`         // auto|always|never
	Verbose       bool   `yaml:"verbose" json:"verbose"`               // default verbosity
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		AI: AIConfig{
			Provider: "none",
			Model:    "gpt-4o-mini",
			Endpoint: "https://api.openai.com",
			APIKey:   "",
			Timeout:  45 * time.Second,
		},
		Knowledge: KnowledgeConfig{
			DocsDir: "",
			Watch:   false,
		},
		Analysis: AnalysisConfig{
			ParseSuccessThreshold: 0.95,
			TimingWindow:          5 * time.Second,
			SimilarityThreshold:   0.55,
			MainIssueCap:          5,
			PromptMaxChars:        6000,
			PerQueryResults:       3,
			Workers:               4,
		},
		Session: SessionConfig{
			Retention:     24 * time.Hour,
			SweepInterval: time.Hour,
		},
		Output: OutputConfig{
			DefaultFormat: "text",
			ColorMode:     "auto",
			Verbose:       false,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateAIConfig(); err != nil {
		return err
	}
	if err := c.validateAnalysisConfig(); err != nil {
		return err
	}
	if err := c.validateSessionConfig(); err != nil {
		return err
	}
	return c.validateOutputConfig()
}

func (c *Config) validateAIConfig() error {
	if c.AI.Provider != "" && c.AI.Provider != "none" && c.AI.Provider != "openai" {
		return fmt.Errorf("invalid AI provider: %s (must be one of: none, openai)", c.AI.Provider)
	}
	if c.AI.Provider == "openai" && c.AI.APIKey == "" {
		return fmt.Errorf("AI provider %q requires an api_key", c.AI.Provider)
	}
	if c.AI.Timeout < 0 {
		return fmt.Errorf("AI timeout cannot be negative")
	}
	return nil
}

func (c *Config) validateAnalysisConfig() error {
	if c.Analysis.ParseSuccessThreshold < 0 || c.Analysis.ParseSuccessThreshold > 1 {
		return fmt.Errorf("parse_success_threshold must be in [0, 1], got %f", c.Analysis.ParseSuccessThreshold)
	}
	if c.Analysis.SimilarityThreshold < 0 || c.Analysis.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [0, 1], got %f", c.Analysis.SimilarityThreshold)
	}
	if c.Analysis.TimingWindow < 0 {
		return fmt.Errorf("timing_window cannot be negative")
	}
	if c.Analysis.MainIssueCap <= 0 {
		return fmt.Errorf("main_issue_cap must be positive, got %d", c.Analysis.MainIssueCap)
	}
	if c.Analysis.PromptMaxChars <= 0 {
		return fmt.Errorf("prompt_max_chars must be positive, got %d", c.Analysis.PromptMaxChars)
	}
	if c.Analysis.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Analysis.Workers)
	}
	return nil
}

func (c *Config) validateSessionConfig() error {
	if c.Session.Retention <= 0 {
		return fmt.Errorf("session retention must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session sweep_interval must be positive")
	}
	return nil
}

func (c *Config) validateOutputConfig() error {
	switch c.Output.DefaultFormat {
	case "", "text", "terminal", "json", "markdown", "md":
	default:
		return fmt.Errorf("invalid output format: %s", c.Output.DefaultFormat)
	}
	switch c.Output.ColorMode {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("invalid color mode: %s (must be one of: auto, always, never)", c.Output.ColorMode)
	}
	return nil
}
