package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"assetgraph/internal/config"
	"assetgraph/internal/repository/sqlite"
	"assetgraph/internal/service"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// app holds what every subcommand shares
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "assetgraph",
		Short: "Inventory persistence core",
		Long: `assetgraph stores an inventory of business objects whose classes,
containment rules and unique attributes are defined at runtime.

Run "assetgraph serve" to expose the inventory over HTTP, or use the schema
commands to move data models in and out of a store.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: search $"+config.EnvConfigPath+", ./"+config.ConfigFileName+", user config dir)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(a),
		newSchemaCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration and builds the logger
func (a *app) setup() error {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if a.configPath != "" {
		cfg, path, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	if path != "" {
		logger.Debug("config loaded", zap.String("path", path))
	}
	return nil
}

func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	if cfg.Format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	return zc.Build()
}

// openInventory opens the configured store. Callers close the store.
func (a *app) openInventory() (*service.Inventory, *sqlite.Store, error) {
	db, err := sqlite.New(a.cfg.Database.Path, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	inv := service.New(db, service.Options{
		Core:      a.cfg.Classes.Core(),
		MaxRoutes: a.cfg.Routes.MaxRoutes,
		MaxHops:   a.cfg.Routes.MaxHops,
	}, a.logger)
	return inv, db, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "assetgraph %s\n", version)
		},
	}
}
