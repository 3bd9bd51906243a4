// Package backend selects and builds the repository implementation named by
// the configuration.
package backend

import (
	"fmt"
	"log/slog"

	"prestiti/internal/config"
	"prestiti/internal/core"
	"prestiti/internal/storage"
	"prestiti/internal/storage/memory"
)

// Type represents the kind of repository backend
type Type string

const (
	MemoryBackend   Type = "memory"
	SQLiteBackend   Type = "sqlite"
	PostgresBackend Type = "postgres"
)

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the repository instance and optional cleanup function
type Result struct {
	Repo    core.Repository
	Cleanup CleanupFunc
}

// New creates the repository named by cfg.DataBackend.
func New(cfg *config.Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	t := Type(cfg.DataBackend)
	switch t {
	case MemoryBackend:
		logger.Info("Initialized memory backend")
		return &Result{Repo: memory.New()}, nil

	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Repo: repo, Cleanup: repo.Close}, nil

	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("initialize Postgres repository: %w", err)
		}
		logger.Info("Initialized Postgres backend")
		return &Result{Repo: repo, Cleanup: repo.Close}, nil

	default:
		return nil, fmt.Errorf("invalid backend type: %s", t)
	}
}
