package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/yildizm/diagd/internal/ai"
	"github.com/yildizm/diagd/internal/config"
	"github.com/yildizm/diagd/internal/knowledge"
	"github.com/yildizm/diagd/internal/logger"
	"github.com/yildizm/diagd/internal/pipeline"
	"github.com/yildizm/diagd/internal/report"
)

var (
	analyzeDocsPath   string
	analyzeTimeout    time.Duration
	analyzeOutputFile string
	analyzeHint       string
)

func newAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Analyze diagnostic artifacts",
		Long: `Analyze one or more diagnostic artifacts and print a health report.

Artifact kinds are detected from filenames; use --hint to override the
detection for every given file.

Examples:
  diagd analyze ds_agent.log
  diagd analyze ds_agent.log install.log --docs ./kb
  diagd analyze snapshot.txt --hint busy-process-snapshot -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().StringVar(&analyzeDocsPath, "docs", "", "markdown knowledge base directory")
	cmd.Flags().DurationVar(&analyzeTimeout, "timeout", 2*time.Minute, "analysis timeout")
	cmd.Flags().StringVar(&analyzeOutputFile, "output-file", "", "save output to file instead of stdout")
	cmd.Flags().StringVar(&analyzeHint, "hint", "", "artifact kind hint applied to all files")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := GetGlobalConfig()

	docsPath := analyzeDocsPath
	if docsPath == "" {
		docsPath = cfg.Knowledge.DocsDir
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	inputs, err := readInputs(args)
	if err != nil {
		return err
	}

	p, err := buildPipeline(cfg, docsPath)
	if err != nil {
		return err
	}

	r, err := p.Analyze(ctx, inputs)
	if err != nil {
		return err
	}

	return writeReport(cfg, r)
}

func readInputs(paths []string) ([]pipeline.Input, error) {
	inputs := make([]pipeline.Input, 0, len(paths))
	for i, path := range paths {
		// #nosec G304 - path is a user-supplied command line argument
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		inputs = append(inputs, pipeline.Input{
			ID:       fmt.Sprintf("artifact-%d", i+1),
			Filename: filepath.Base(path),
			Hint:     analyzeHint,
			Data:     data,
		})
	}
	return inputs, nil
}

func buildPipeline(cfg *config.Config, docsPath string) (*pipeline.Pipeline, error) {
	log := logger.New("diagd", cfg.Output.Verbose)

	var store knowledge.Store
	if docsPath != "" {
		memStore := knowledge.NewMemoryStore()
		loaded, err := knowledge.ScanDirectory(memStore, docsPath)
		if err != nil {
			return nil, fmt.Errorf("scanning knowledge base %s: %w", docsPath, err)
		}
		log.Debug("indexed %d knowledge documents from %s", loaded, docsPath)
		store = memStore
	}

	var provider ai.Provider
	if cfg.AI.Provider == "openai" {
		p, err := ai.NewOpenAIProvider(&ai.OpenAIConfig{
			APIKey:             cfg.AI.APIKey,
			BaseURL:            cfg.AI.Endpoint,
			DefaultModel:       cfg.AI.Model,
			DefaultTemperature: 0.2,
			MaxTokens:          8192,
			Timeout:            cfg.AI.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("configuring AI provider: %w", err)
		}
		provider = p
	}

	return pipeline.New(pipeline.Options{
		Knowledge: store,
		Provider:  provider,
		Logger:    log,
		Analysis:  cfg.Analysis,
		AITimeout: cfg.AI.Timeout,
	})
}

func writeReport(cfg *config.Config, r *report.Report) error {
	formatter, err := report.New(cfg.Output.DefaultFormat, colorEnabled(cfg))
	if err != nil {
		return err
	}

	out, err := formatter.Format(r)
	if err != nil {
		return fmt.Errorf("formatting report: %w", err)
	}

	var w io.Writer = os.Stdout
	if analyzeOutputFile != "" {
		f, err := os.Create(analyzeOutputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	_, err = w.Write(out)
	return err
}
