package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sharptier/cms/internal/config"
	"github.com/sharptier/cms/internal/handlers"
	"github.com/sharptier/cms/internal/process"
	"github.com/sharptier/cms/internal/service"
	"github.com/sharptier/cms/internal/store"
)

var (
	port         int
	autoMemLimit bool
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the site and content API server",
	Long: `Start the web server for the public site, the content API and the
admin form endpoints.

The port comes from --port, then APP_PORT, then PORT, and defaults to 3001.
When max_memory_restart is set the process exits with status 75 once it
uses more memory than allowed, so the supervisor can restart it.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "Port to run the server on")
	serveCmd.Flags().BoolVar(&autoMemLimit, "auto-memlimit", false, "Set the Go memory limit from available system memory")
}

func runServe(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}
	app := cfg.App()

	if app.Cwd != "" {
		if err := os.Chdir(app.Cwd); err != nil {
			return fmt.Errorf("failed to change to cwd %s: %w", app.Cwd, err)
		}
	}
	if app.Watch {
		logger.Warn("watch is not supported; restart the process to pick up changes")
	}
	if autoMemLimit {
		applyMemoryLimit()
	}

	db, err := store.NewDB(cfg.Server.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	// Initialize stores
	templateStore := store.NewTemplateStore(db)
	pageStore := store.NewPageStore(db)
	postStore := store.NewPostStore(db)
	redirectStore := store.NewRedirectStore(db)
	documentStore := store.NewDocumentStore(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	templates, err := templateStore.Count(ctx)
	if err != nil {
		return fmt.Errorf("%w (has `sharptier migrate up` been run?)", err)
	}
	logger.Info("Templates available", zap.Int("count", templates))

	redirects := service.NewRedirectService(redirectStore, documentStore, cfg.GetCacheTTL(), logger)
	content := service.NewContentService(templateStore, pageStore, postStore, redirects.Invalidate, logger)
	client := service.NewContentClient(cfg.BaseURL()+"/api", cfg.Server.APIKey, cfg.GetClientTimeout())

	if n := cfg.PreforkChildren(); n > 0 && !fiber.IsChild() {
		runtime.GOMAXPROCS(n)
	}

	server := fiber.New(fiber.Config{
		AppName:               app.Name,
		Prefork:               cfg.Prefork(),
		DisableStartupMessage: true,
	})

	server.Use(recover.New())
	server.Use(fiberlogger.New(fiberlogger.Config{
		Output: zap.NewStdLog(logger.Named("http")).Writer(),
	}))

	handlers.Register(server, handlers.Dependencies{
		Content:   content,
		Redirects: redirects,
		Fetcher:   client,
		Stamper:   service.NewStamper(service.RealClock()),
		APIKey:    cfg.Server.APIKey,
		EditorTTL: cfg.GetEditorSessionTTL(),
		Logger:    logger,
	})

	limit, err := cfg.MemoryRestartBytes()
	if err != nil {
		return err
	}
	watchdog := process.NewWatchdog(limit, process.DefaultInterval, nil, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", zap.String("addr", cfg.Addr()), zap.Bool("prefork", cfg.Prefork()))
		return server.Listen(cfg.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		return server.ShutdownWithTimeout(shutdownTimeout)
	})
	g.Go(func() error {
		return watchdog.Run(gctx)
	})

	err = g.Wait()
	if errors.Is(err, process.ErrMemoryLimit) {
		_ = logger.Sync()
		db.Close()
		os.Exit(process.ExitRestart)
	}
	if err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// applyMemoryLimit sets the runtime soft memory limit the same way the
// memlimit command computes it
func applyMemoryLimit() {
	total, free, err := service.SystemMemoryMB()
	if err != nil {
		logger.Warn("Cannot read system memory, leaving memory limit unset", zap.Error(err))
		return
	}
	mb := service.MemoryLimitMB(total, free)
	debug.SetMemoryLimit(mb << 20)
	logger.Info("Memory limit set", zap.Int64("mb", mb))
}
