package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.diagd.yaml",               // Project-specific config (highest priority)
	"~/.config/diagd/config.yaml", // User config
	"/etc/diagd/config.yaml",      // System config (lowest priority)
}

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables
// 3. ./.diagd.yaml
// 4. ~/.config/diagd/config.yaml
// 5. /etc/diagd/config.yaml
// 6. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// Load standard paths lowest priority first so later files win.
		paths := make([]string, len(l.configPaths))
		copy(paths, l.configPaths)
		for i := len(paths)/2 - 1; i >= 0; i-- {
			opp := len(paths) - 1 - i
			paths[i], paths[opp] = paths[opp], paths[i]
		}

		for _, path := range paths {
			expandedPath := expandPath(path)
			if fileExists(expandedPath) {
				if err := l.loadFromFile(config, expandedPath); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", expandedPath, err)
				}
			}
		}
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file and merges it with existing config
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() before reaching here
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var fileConfig Config
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	mergeConfigs(config, &fileConfig)
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// AI Config
		"DIAGD_AI_PROVIDER": func(v string) error { config.AI.Provider = v; return nil },
		"DIAGD_AI_MODEL":    func(v string) error { config.AI.Model = v; return nil },
		"DIAGD_AI_ENDPOINT": func(v string) error { config.AI.Endpoint = v; return nil },
		"DIAGD_AI_API_KEY":  func(v string) error { config.AI.APIKey = v; return nil },
		"DIAGD_AI_TIMEOUT":  func(v string) error { return parseDuration(v, &config.AI.Timeout) },

		// Knowledge Config
		"DIAGD_KNOWLEDGE_DOCS_DIR": func(v string) error { config.Knowledge.DocsDir = v; return nil },
		"DIAGD_KNOWLEDGE_WATCH":    func(v string) error { return parseBool(v, &config.Knowledge.Watch) },

		// Analysis Config
		"DIAGD_ANALYSIS_PARSE_SUCCESS_THRESHOLD": func(v string) error { return parseFloat(v, &config.Analysis.ParseSuccessThreshold) },
		"DIAGD_ANALYSIS_TIMING_WINDOW":           func(v string) error { return parseDuration(v, &config.Analysis.TimingWindow) },
		"DIAGD_ANALYSIS_SIMILARITY_THRESHOLD":    func(v string) error { return parseFloat(v, &config.Analysis.SimilarityThreshold) },
		"DIAGD_ANALYSIS_MAIN_ISSUE_CAP":          func(v string) error { return parseInt(v, &config.Analysis.MainIssueCap) },
		"DIAGD_ANALYSIS_PROMPT_MAX_CHARS":        func(v string) error { return parseInt(v, &config.Analysis.PromptMaxChars) },
		"DIAGD_ANALYSIS_WORKERS":                 func(v string) error { return parseInt(v, &config.Analysis.Workers) },

		// Session Config
		"DIAGD_SESSION_RETENTION":      func(v string) error { return parseDuration(v, &config.Session.Retention) },
		"DIAGD_SESSION_SWEEP_INTERVAL": func(v string) error { return parseDuration(v, &config.Session.SweepInterval) },

		// Output Config
		"DIAGD_OUTPUT_DEFAULT_FORMAT": func(v string) error { config.Output.DefaultFormat = v; return nil },
		"DIAGD_OUTPUT_COLOR_MODE":     func(v string) error { config.Output.ColorMode = v; return nil },
		"DIAGD_OUTPUT_VERBOSE":        func(v string) error { return parseBool(v, &config.Output.Verbose) },
	}

	for envVar, setter := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	return nil
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := expandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if strings.HasPrefix(absPath, "/proc/") || strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// mergeConfigs merges source config into destination config.
// Only non-zero values from source overwrite destination.
func mergeConfigs(dst, src *Config) {
	if src.Version != "" {
		dst.Version = src.Version
	}

	mergeAIConfig(&dst.AI, &src.AI)
	mergeKnowledgeConfig(&dst.Knowledge, &src.Knowledge)
	mergeAnalysisConfig(&dst.Analysis, &src.Analysis)
	mergeSessionConfig(&dst.Session, &src.Session)
	mergeOutputConfig(&dst.Output, &src.Output)
}

func mergeAIConfig(dst, src *AIConfig) {
	if src.Provider != "" {
		dst.Provider = src.Provider
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.APIKey != "" {
		dst.APIKey = src.APIKey
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
}

func mergeKnowledgeConfig(dst, src *KnowledgeConfig) {
	if src.DocsDir != "" {
		dst.DocsDir = src.DocsDir
	}
	if src.Watch {
		dst.Watch = src.Watch
	}
}

func mergeAnalysisConfig(dst, src *AnalysisConfig) {
	if src.ParseSuccessThreshold != 0 {
		dst.ParseSuccessThreshold = src.ParseSuccessThreshold
	}
	if src.TimingWindow != 0 {
		dst.TimingWindow = src.TimingWindow
	}
	if src.SimilarityThreshold != 0 {
		dst.SimilarityThreshold = src.SimilarityThreshold
	}
	if src.MainIssueCap != 0 {
		dst.MainIssueCap = src.MainIssueCap
	}
	if src.PromptMaxChars != 0 {
		dst.PromptMaxChars = src.PromptMaxChars
	}
	if src.PerQueryResults != 0 {
		dst.PerQueryResults = src.PerQueryResults
	}
	if src.Workers != 0 {
		dst.Workers = src.Workers
	}
}

func mergeSessionConfig(dst, src *SessionConfig) {
	if src.Retention != 0 {
		dst.Retention = src.Retention
	}
	if src.SweepInterval != 0 {
		dst.SweepInterval = src.SweepInterval
	}
}

func mergeOutputConfig(dst, src *OutputConfig) {
	if src.DefaultFormat != "" {
		dst.DefaultFormat = src.DefaultFormat
	}
	if src.ColorMode != "" {
		dst.ColorMode = src.ColorMode
	}
	if src.Verbose {
		dst.Verbose = src.Verbose
	}
}

// Type conversion helpers

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseFloat(s string, dst *float64) error {
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	val, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
