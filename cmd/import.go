package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sharptier/cms/internal/service"
	"github.com/sharptier/cms/internal/store"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import templates, pages, posts and redirects from a seed file",
	Long: `Import loads documents from a YAML seed file and saves them through the
same services as the content API, so field hooks and validation run.

Documents are matched by template title or page/post slug and updated when
they already exist. Reusable content blocks may name their template by
title, and redirects may name their target document by slug.

Examples:
  # Import the bundled seed
  ./sharptier import --file seed.yaml`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&importFile, "file", "f", "seed.yaml", "Seed file to import")
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(importFile)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	seed, err := service.LoadSeed(f)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Connecting to database...")
	db, err := store.NewDB(cfg.Server.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	// Create dependencies
	redirects := service.NewRedirectService(store.NewRedirectStore(db), store.NewDocumentStore(db), cfg.GetCacheTTL(), logger)
	content := service.NewContentService(store.NewTemplateStore(db), store.NewPageStore(db), store.NewPostStore(db),
		redirects.Invalidate, logger)
	importer := service.NewImporter(content, redirects, logger)

	logger.Info("Starting import", zap.String("file", importFile))
	stats, err := importer.Import(ctx, seed)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("Import cancelled")
		}
		return fmt.Errorf("import failed: %w", err)
	}
	importer.LogSummary(stats)

	if stats.Failed > 0 {
		return fmt.Errorf("%d documents failed to import", stats.Failed)
	}
	return nil
}
