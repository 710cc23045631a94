package store

import (
	"context"
	"sort"
	"strings"

	"github.com/franz/mldb/internal/config"
	"github.com/franz/mldb/internal/util"
)

type opener func(cfg *config.Config) (ExperimentStore, error)

// backends maps configuration tags to constructors.
var backends = map[string]opener{
	config.BackendSQLite: func(cfg *config.Config) (ExperimentStore, error) {
		return NewSQLiteStore(cfg.SQLite.Path, cfg.SQLite.Root)
	},
	config.BackendPostgreSQL: func(cfg *config.Config) (ExperimentStore, error) {
		return NewPostgresStore(cfg.PostgreSQL)
	},
	config.BackendMySQL: func(cfg *config.Config) (ExperimentStore, error) {
		return NewMySQLStore(cfg.MySQL)
	},
	config.BackendDummy: func(cfg *config.Config) (ExperimentStore, error) {
		return NewDummyStore(cfg.SQLite.Root)
	},
}

// Backends lists the registered backend tags.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs the backend named by cfg without connecting to it.
func New(cfg *config.Config) (ExperimentStore, error) {
	kind := strings.ToLower(cfg.Backend)
	if kind == "postgres" {
		kind = config.BackendPostgreSQL
	}
	open, ok := backends[kind]
	if !ok {
		return nil, &UnknownBackendError{Kind: cfg.Backend, Known: Backends()}
	}
	if err := cfg.ValidateBackend(); err != nil {
		return nil, err
	}
	return open(cfg)
}

// Open constructs the configured backend, connects and ensures the schema.
// It makes a single attempt; retrying is up to the caller.
func Open(ctx context.Context, cfg *config.Config) (ExperimentStore, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Connect(ctx); err != nil {
		if cerr := s.Close(); cerr != nil {
			util.DebugLog("Close after failed connect: %v", cerr)
		}
		return nil, err
	}
	util.DebugLog("Opened %s", s)
	return s, nil
}

// With opens a store, runs fn and closes the store exactly once, also when
// fn panics. A close error is returned only if fn succeeded.
func With(ctx context.Context, cfg *config.Config, fn func(ExperimentStore) error) (err error) {
	s, err := Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}
