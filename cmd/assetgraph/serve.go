package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"assetgraph/internal/domain"
	"assetgraph/internal/handler"
	"assetgraph/internal/hub"
	"assetgraph/internal/loader"
	"assetgraph/internal/service"
	"assetgraph/internal/watcher"
)

type serveOptions struct {
	addr      string
	db        string
	dataModel string
	watch     bool
}

func newServeCmd(a *app) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inventory API over HTTP",
		Long: `Opens the store, applies the configured data model, loads the unique value
index and serves the JSON API until interrupted. With --watch, edits to the
data model file are imported while the server runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.applyServeOptions(cmd, opts)
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&opts.db, "db", "", "SQLite database path")
	cmd.Flags().StringVar(&opts.dataModel, "datamodel", "", "data model file applied at startup")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "re-import the data model file when it changes")
	return cmd
}

// applyServeOptions lets explicit flags override the config file
func (a *app) applyServeOptions(cmd *cobra.Command, opts *serveOptions) {
	flags := cmd.Flags()
	if flags.Changed("addr") {
		a.cfg.Server.Addr = opts.addr
	}
	if flags.Changed("db") {
		a.cfg.Database.Path = opts.db
	}
	if flags.Changed("datamodel") {
		a.cfg.DataModel.Path = opts.dataModel
	}
	if flags.Changed("watch") {
		a.cfg.DataModel.Watch = opts.watch
	}
}

func (a *app) serve(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	inv, db, err := a.openInventory()
	if err != nil {
		return err
	}
	defer db.Close()

	var model *domain.DataModel
	if a.cfg.DataModel.Path != "" {
		if model, err = loader.LoadFile(a.cfg.DataModel.Path); err != nil {
			return err
		}
	}
	result, err := inv.Startup(ctx, model)
	if err != nil {
		return err
	}
	a.logger.Info("inventory ready",
		zap.String("database", a.cfg.Database.Path),
		zap.Int("classes_created", result.ClassesCreated),
		zap.Int("rules_added", result.RulesAdded))

	events := hub.New(a.logger)
	mux := http.NewServeMux()
	handler.NewInventoryHandler(inv, a.logger).Register(mux)
	mux.Handle("GET /events", events)

	// No write timeout: /events streams stay open
	server := &http.Server{
		Addr: a.cfg.Server.Addr,
		Handler: handler.Chain(mux,
			handler.Recover(a.logger),
			handler.CORS,
			handler.Logger(a.logger.Named("http")),
		),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return events.Run(gctx, inv.Events())
	})
	g.Go(func() error {
		a.logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if a.cfg.DataModel.Watch {
		w := watcher.New(reloadDataModel(inv, a.logger), a.logger, a.cfg.DataModel.Path).
			WithDebounce(a.cfg.DataModel.Debounce.Duration())
		g.Go(func() error {
			if err := w.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}

// reloadDataModel imports a data model file again after it changed
func reloadDataModel(inv *service.Inventory, logger *zap.Logger) watcher.ChangeFunc {
	return func(ctx context.Context, path string) error {
		model, err := loader.LoadFile(path)
		if err != nil {
			return err
		}
		result, err := inv.ImportDataModel(ctx, model)
		if err != nil {
			return err
		}
		logger.Info("data model reloaded",
			zap.String("path", path),
			zap.Int("classes_created", result.ClassesCreated),
			zap.Int("attributes_created", result.AttributesCreated),
			zap.Int("rules_added", result.RulesAdded),
			zap.Int("items_created", result.ItemsCreated))
		return nil
	}
}
