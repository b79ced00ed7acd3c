package backend

import (
	"context"
	"fmt"

	"kyat/internal/config"
	"kyat/internal/log"
	"kyat/internal/store/memory"
	"kyat/internal/store/mongo"
	"kyat/internal/store/sqlite"
)

// Factory builds stores from application configuration.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	return &Factory{logger: logger}
}

// CreateBackend constructs the store named by cfg.DataBackend.
func (f *Factory) CreateBackend(ctx context.Context, cfg *config.Config) (*Result, error) {
	backendType := Type(cfg.DataBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}

	f.logger.InfoContext(ctx, "creating store backend", log.FieldBackend, backendType.String())

	switch backendType {
	case MemoryBackend:
		st := memory.New()
		return &Result{Store: st, Cleanup: st.Close}, nil

	case SQLiteBackend:
		st, err := sqlite.New(cfg.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		return &Result{Store: st, Refresher: st, Cleanup: st.Close}, nil

	case MongoBackend:
		st, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase, f.logger)
		if err != nil {
			return nil, fmt.Errorf("initialize mongo store: %w", err)
		}
		st.StartWatch(ctx)
		return &Result{Store: st, Cleanup: st.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", backendType)
	}
}
