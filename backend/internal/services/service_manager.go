package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"daydei-social/backend/internal/graph"
	"daydei-social/backend/internal/memstore"
	"daydei-social/backend/internal/metrics"
	"daydei-social/backend/internal/notify"
	"daydei-social/backend/internal/relation"
	"daydei-social/backend/internal/seed"
	"daydei-social/backend/internal/sqlstore"
	"daydei-social/backend/internal/state"
	"daydei-social/backend/pkg/config"
)

// Store is a relation store that can also be seeded with users.
type Store interface {
	relation.Store
	UpsertUser(ctx context.Context, u state.User) error
}

// ServiceManager opens the store and notification backends selected by the
// configuration and shuts them down in reverse order.
type ServiceManager struct {
	logger *zap.Logger
	cfg    *config.Config

	mu         sync.Mutex
	store      Store
	dispatcher *notify.Dispatcher
}

// NewServiceManager creates a new service manager
func NewServiceManager(logger *zap.Logger, cfg *config.Config) *ServiceManager {
	return &ServiceManager{
		logger: logger,
		cfg:    cfg,
	}
}

// StartStore opens the configured store, applying schema setup first. When
// SeedFile is set its users are upserted before the store is returned.
func (sm *ServiceManager) StartStore(ctx context.Context) (Store, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.store != nil {
		return nil, fmt.Errorf("store already started")
	}

	var (
		store Store
		err   error
	)
	switch sm.cfg.StoreBackend {
	case config.StoreMemory:
		store = memstore.New()
	case config.StoreNeo4j:
		store, err = sm.openGraph(ctx)
	case config.StorePostgres:
		store, err = sm.openSQL(ctx, sqlstore.DialectPostgres, sm.cfg.PostgresDSN)
	case config.StoreSQLite:
		store, err = sm.openSQL(ctx, sqlstore.DialectSQLite, sm.cfg.SQLitePath)
	default:
		err = fmt.Errorf("unknown store backend %q", sm.cfg.StoreBackend)
	}
	if err != nil {
		return nil, err
	}
	if sm.cfg.SeedFile != "" {
		n, err := seed.LoadFile(ctx, store, sm.cfg.SeedFile)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		sm.logger.Info("Store seeded", zap.String("file", sm.cfg.SeedFile), zap.Int("users", n))
	}

	sm.store = store
	sm.logger.Info("Store started", zap.String("backend", sm.cfg.StoreBackend))
	return store, nil
}

func (sm *ServiceManager) openGraph(ctx context.Context) (Store, error) {
	driver, err := graph.Connect(ctx, sm.cfg.Neo4jURI, sm.cfg.Neo4jUser, sm.cfg.Neo4jPassword)
	if err != nil {
		return nil, err
	}
	repo := graph.NewRepository(driver)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to ensure graph schema: %w", err)
	}
	return repo, nil
}

func (sm *ServiceManager) openSQL(ctx context.Context, dialect, dsn string) (Store, error) {
	db, err := sqlstore.Open(dialect, dsn)
	if err != nil {
		return nil, err
	}
	store := sqlstore.New(db)
	if err := sqlstore.RunMigrations(ctx, db, dialect); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// StartNotifier opens the configured publisher behind a dispatcher.
func (sm *ServiceManager) StartNotifier(ctx context.Context, m *metrics.Metrics) (*notify.Dispatcher, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.dispatcher != nil {
		return nil, fmt.Errorf("notifier already started")
	}

	var (
		pub notify.Publisher
		err error
	)
	switch sm.cfg.NotifyBackend {
	case config.NotifyLog:
		pub = notify.NewLogPublisher()
	case config.NotifyNATS:
		pub, err = notify.NewNATSPublisher(ctx, sm.cfg.NATSURL, sm.cfg.NATSStream)
	case config.NotifyRedis:
		pub, err = notify.NewRedisPublisher(ctx, sm.cfg.RedisAddr, sm.cfg.RedisPassword, sm.cfg.RedisStream)
	default:
		err = fmt.Errorf("unknown notify backend %q", sm.cfg.NotifyBackend)
	}
	if err != nil {
		return nil, err
	}

	sm.dispatcher = notify.NewDispatcher(pub, notify.Config{
		QueueSize: sm.cfg.NotifyQueueSize,
		Workers:   sm.cfg.NotifyWorkers,
		Timeout:   sm.cfg.NotifyTimeout,
	}, m)
	return sm.dispatcher, nil
}

// StopAll drains the notifier and then closes the store. Both are attempted
// even when the first fails.
func (sm *ServiceManager) StopAll(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var firstErr error
	if sm.dispatcher != nil {
		if err := sm.dispatcher.Close(ctx); err != nil {
			sm.logger.Warn("Notifier did not stop cleanly", zap.Error(err))
			firstErr = err
		}
		sm.dispatcher = nil
	}
	if sm.store != nil {
		if err := sm.store.Close(); err != nil {
			sm.logger.Warn("Store did not close cleanly", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
		sm.store = nil
	}
	if firstErr == nil {
		sm.logger.Info("All services stopped")
	}
	return firstErr
}
