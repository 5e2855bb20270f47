package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"assetgraph/internal/containment"
	"assetgraph/internal/domain"
	"assetgraph/internal/loader"
	"assetgraph/internal/metadata"
	"assetgraph/internal/objects"
	"assetgraph/internal/repository"
	"assetgraph/internal/unique"
)

// Options configures an Inventory
type Options struct {
	Core      domain.CoreClasses
	MaxRoutes int
	MaxHops   int
	Names     objects.NameGenerator
	Events    *EventBus
}

// Inventory runs every logical operation in its own transaction over the
// schema, containment, unique index and business object components
type Inventory struct {
	db      repository.Store
	cache   *metadata.Cache
	schema  *metadata.Manager
	rules   *containment.Engine
	index   *unique.Index
	objects *objects.Store
	loader  *loader.Loader
	events  *EventBus
	logger  *zap.Logger
}

// New wires the components around a graph store
func New(db repository.Store, opts Options, logger *zap.Logger) *Inventory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Core == (domain.CoreClasses{}) {
		opts.Core = domain.DefaultCoreClasses()
	}
	if opts.Events == nil {
		opts.Events = NewEventBus()
	}

	cache := metadata.NewCache(logger)
	index := unique.New(cache, logger)
	schema := metadata.NewManager(cache, opts.Core, index, logger)
	rules := containment.New(cache, opts.Core, logger)
	objs := objects.New(cache, rules, index, opts.Core, objects.Options{
		MaxRoutes: opts.MaxRoutes,
		MaxHops:   opts.MaxHops,
		Names:     opts.Names,
	}, logger)

	return &Inventory{
		db:      db,
		cache:   cache,
		schema:  schema,
		rules:   rules,
		index:   index,
		objects: objs,
		loader:  loader.New(schema, rules, objs, logger),
		events:  opts.Events,
		logger:  logger.Named("inventory"),
	}
}

// Events returns the bus operations publish to
func (s *Inventory) Events() *EventBus {
	return s.events
}

// Startup prepares a store for serving: it materializes the dummy root,
// applies model when given, and loads the unique value index
func (s *Inventory) Startup(ctx context.Context, model *domain.DataModel) (*loader.Result, error) {
	result := &loader.Result{}
	err := s.update(ctx, "startup", func(tx repository.Tx) error {
		if err := metadata.EnsureDummyRoot(ctx, tx); err != nil {
			return err
		}
		if model == nil {
			return nil
		}
		var err error
		result, err = s.loader.Import(ctx, tx, model)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.view(ctx, func(tx repository.Tx) error {
		return s.index.Load(ctx, tx)
	}); err != nil {
		return nil, fmt.Errorf("failed to load unique index: %w", err)
	}
	return result, nil
}

// ImportDataModel adds what model declares and the store lacks
func (s *Inventory) ImportDataModel(ctx context.Context, model *domain.DataModel) (*loader.Result, error) {
	return updateValue(ctx, s, "import data model", func(tx repository.Tx) (*loader.Result, error) {
		result, err := s.loader.Import(ctx, tx, model)
		if err != nil {
			return nil, err
		}
		if result.Changed() {
			s.publish(tx, EventDataModelImported, result)
		}
		return result, nil
	})
}

// ExportDataModel describes the live schema
func (s *Inventory) ExportDataModel(ctx context.Context) (*domain.DataModel, error) {
	return viewValue(ctx, s, func(tx repository.Tx) (*domain.DataModel, error) {
		return s.loader.Export(ctx, tx)
	})
}

// update runs fn in a transaction and commits it, rolling back when fn
// fails
func (s *Inventory) update(ctx context.Context, op string, fn func(tx repository.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", zap.String("op", op), zap.Error(rbErr))
		}
		s.logger.Debug("operation rolled back", zap.String("op", op), zap.Error(err))
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", op, err)
	}
	return nil
}

// view runs fn in a transaction that is always rolled back
func (s *Inventory) view(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	return fn(tx)
}

func updateValue[T any](ctx context.Context, s *Inventory, op string, fn func(tx repository.Tx) (T, error)) (T, error) {
	var out T
	err := s.update(ctx, op, func(tx repository.Tx) error {
		var err error
		out, err = fn(tx)
		return err
	})
	return out, err
}

func viewValue[T any](ctx context.Context, s *Inventory, fn func(tx repository.Tx) (T, error)) (T, error) {
	var out T
	err := s.view(ctx, func(tx repository.Tx) error {
		var err error
		out, err = fn(tx)
		return err
	})
	return out, err
}

// publish queues an event for delivery once tx commits
func (s *Inventory) publish(tx repository.Tx, eventType EventType, payload interface{}) {
	tx.OnCommit(func() {
		s.events.Publish(Event{Type: eventType, Payload: payload})
	})
}
