package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yildizm/diagd/internal/knowledge"
	"github.com/yildizm/diagd/internal/logger"
)

var docsWatch bool

func newDocsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs <directory>",
		Short: "Index and inspect a knowledge base directory",
		Long: `Index a markdown knowledge base and report what was loaded. With
--watch, keep the index in sync with the directory until interrupted,
reporting documents as they change.`,
		Args: cobra.ExactArgs(1),
		RunE: runDocs,
	}

	cmd.Flags().BoolVar(&docsWatch, "watch", false, "keep watching the directory for changes")

	return cmd
}

func runDocs(cmd *cobra.Command, args []string) error {
	cfg := GetGlobalConfig()
	log := logger.New("docs", cfg.Output.Verbose)

	store := knowledge.NewMemoryStore()
	loaded, err := knowledge.ScanDirectory(store, args[0])
	if err != nil {
		return fmt.Errorf("scanning %s: %w", args[0], err)
	}
	fmt.Printf("Indexed %d documents from %s\n", loaded, args[0])

	if !docsWatch {
		return nil
	}

	watcher, err := knowledge.NewWatcher(store, args[0], log)
	if err != nil {
		return fmt.Errorf("watching %s: %w", args[0], err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Watching for changes, press Ctrl+C to stop.")
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
