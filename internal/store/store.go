// Package store persists the single application state blob of users, analysis
// history and pricing plans.
package store

import (
	"context"
	"fmt"

	"resumeforensics/internal/config"
	"resumeforensics/internal/errors"
	"resumeforensics/internal/types"
)

// StateKey is the fixed key the state blob is stored under in every backend.
const StateKey = "resume_analyzer_state"

// Repository loads and saves the whole state blob. Implementations must be safe
// for concurrent use; Save replaces the stored blob wholesale.
type Repository interface {
	Load(ctx context.Context) (types.State, error)
	Save(ctx context.Context, state types.State) error
	Close() error
}

// Open builds the repository selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, logger *errors.Logger) (Repository, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "file", "":
		fs := NewFileStore(cfg.Path, logger)
		if cfg.WatchFile {
			if err := fs.Watch(cfg.DebounceDelay); err != nil {
				return nil, err
			}
		}
		return fs, nil
	case "postgres":
		db, err := Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to connect to postgres", err)
		}
		if cfg.AutoMigrate {
			if err := RunMigrations(ctx, db); err != nil {
				_ = db.Close()
				return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to run migrations", err)
			}
		}
		return NewPostgresStore(db), nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown storage driver: %s", cfg.Driver), nil)
	}
}

// withDefaults seeds the default pricing plans when none are stored.
func withDefaults(s types.State) types.State {
	if len(s.Plans) == 0 {
		s.Plans = types.DefaultPlans()
	}
	if s.Users == nil {
		s.Users = []types.User{}
	}
	if s.History == nil {
		s.History = []types.HistoryEntry{}
	}
	return s
}

func storageError(message string, cause error) *errors.AppError {
	return errors.NewIOError(errors.ErrCodeStorageFailed, message, cause)
}
