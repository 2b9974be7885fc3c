package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/postgres"
)

// storageHandle связывает выбранное хранилище с его outbox-очередью
// и служебными операциями.
type storageHandle struct {
	store  domain.Store
	source domain.OutboxSource
	ping   func(ctx context.Context) error
	close  func() error
}

// initStorage открывает хранилище согласно конфигурации.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*storageHandle, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		store := memory.NewStore()
		logger.Info("in-memory storage initialized")
		return &storageHandle{
			store:  store,
			source: store,
			ping:   func(context.Context) error { return nil },
			close:  func() error { return nil },
		}, nil

	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		if cfg.MigrateOnStart {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("migrations applied")
		}
		logger.Info("postgres storage initialized")
		return &storageHandle{
			store:  store,
			source: postgres.NewOutboxQueue(store),
			ping:   store.Ping,
			close:  store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
