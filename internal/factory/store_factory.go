package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/email-guardian/internal/adapters/store"
	"github.com/mikey/email-guardian/internal/config"
	"go.uber.org/zap"
)

// StoreFactory creates the scan record and credential store
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{cfg: cfg, logger: logger}
}

// CreateStore opens the store named by store.type
func (f *StoreFactory) CreateStore(ctx context.Context) (store.Store, error) {
	storeCfg := f.cfg.GetStore()

	var (
		s   store.Store
		err error
	)
	switch storeCfg.Type {
	case "memory":
		f.logger.Warn("Using in-memory store, scan history is lost on restart")
		return store.NewMemoryStore(f.logger), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(storeCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		s, err = store.NewSQLiteStore(ctx, storeCfg.SQLitePath, f.logger)
	case "mysql":
		s, err = store.NewMySQLStore(ctx, storeCfg.MySQLDSN, storeCfg.ConnectRetries, f.logger)
	case "postgres":
		s, err = store.NewPostgresStore(ctx, storeCfg.PostgresURL, storeCfg.ConnectRetries, f.logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
