package store

import (
	"context"
	"fmt"

	"github.com/franz/mldb/internal/sanitise"
)

// SetConfigFile records where an experiment's configuration lives. The path
// is stored relative to the store root and may be set only once.
func (s *sqlStore) SetConfigFile(ctx context.Context, id, path string) error {
	rel, err := sanitise.Path(path, s.root)
	if err != nil {
		return err
	}
	if err := s.conn.RunAndCommit(ctx, Stmt("INSERT INTO config (expid, config) VALUES (?, ?)", id, rel)); err != nil {
		return fmt.Errorf("failed to set config file of %s: %w", experiment(id), err)
	}
	return nil
}

// GetConfigFile returns the absolute config path under this store's root.
func (s *sqlStore) GetConfigFile(ctx context.Context, id string) (string, error) {
	var paths []string
	if err := s.conn.RunAndFetch(ctx, &paths, "SELECT config FROM config WHERE expid = ?", id); err != nil {
		return "", fmt.Errorf("failed to get config file of %s: %w", experiment(id), err)
	}
	switch len(paths) {
	case 0:
		return "", &NoDataError{Table: "config", Identity: experiment(id)}
	case 1:
		return sanitise.Unpath(paths[0], s.root), nil
	default:
		return "", &IntegrityError{Table: "config", Identity: experiment(id), Expected: 1, Got: len(paths)}
	}
}
