package main

import (
	"context"

	"github.com/franz/mldb/internal/config"
	"github.com/franz/mldb/internal/store"
	"github.com/franz/mldb/internal/util"
)

// openStore connects to the configured backend. Transient connection
// failures against network backends are retried with backoff.
func openStore(ctx context.Context, cfg *config.Config) (store.ExperimentStore, error) {
	retry := util.ConnectRetryConfig(cfg.Connect.Retries, cfg.Connect.InitialWait)
	if cfg.Backend == config.BackendSQLite || cfg.Backend == config.BackendDummy {
		retry.MaxAttempts = 1
	}

	s, err := util.RetryWithBackoff(ctx, retry, func() (store.ExperimentStore, error) {
		return store.Open(ctx, cfg)
	}, "connect to "+cfg.Backend)
	if err != nil {
		return nil, err
	}
	util.DebugLog("Connected to %s", s)
	return s, nil
}

// withStore loads the configuration, opens a session, runs fn and closes
// the session again.
func withStore(ctx context.Context, fn func(store.ExperimentStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			util.WarnLog("Failed to close %s: %v", s, cerr)
		}
	}()

	return fn(s)
}
