package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sharptier/cms/internal/config"
)

var (
	configPath  string
	databaseURL string
	verbose     bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sharptier",
	Short: "Sharptier CMS site and content API",
	Long: `Sharptier serves the public site and the content API backed by PostgreSQL.

Templates hold reusable content blocks. Pages either render a template's
live content or keep their own copy of it, switched per block.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if databaseURL != "" {
			cfg.Server.DatabaseURL = databaseURL
		}

		logger, err = newLogger(cfg, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ecosystem.yaml", "Path to the ecosystem config file")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string (or set DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// newLogger builds a production logger. Everything goes to stderr and
// out_file; warnings and errors are also written to error_file.
func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	app := cfg.App()

	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if layout := cfg.LogTimeLayout(); layout != "" {
		zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(layout)
	}
	if app.OutFile != "" {
		zc.OutputPaths = append(zc.OutputPaths, logPath(app.OutFile, app.MergeLogs))
	}

	var opts []zap.Option
	if app.ErrorFile != "" {
		sink, _, err := zap.Open(logPath(app.ErrorFile, app.MergeLogs))
		if err != nil {
			return nil, fmt.Errorf("failed to open error_file: %w", err)
		}
		errCore := zapcore.NewCore(zapcore.NewJSONEncoder(zc.EncoderConfig), sink, zapcore.WarnLevel)
		opts = append(opts, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, errCore)
		}))
	}

	l, err := zc.Build(opts...)
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("app", app.Name)), nil
}

// logPath gives each prefork child its own file unless logs are merged
func logPath(path string, merge bool) string {
	if merge || !fiber.IsChild() {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + strconv.Itoa(os.Getpid()) + ext
}
