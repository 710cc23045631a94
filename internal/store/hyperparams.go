package store

import (
	"context"
	"database/sql"
	"fmt"
)

// AddHyperparam records a hyperparameter. Hyperparameters are write-once:
// a second value for the same name is a CollisionError.
func (s *sqlStore) AddHyperparam(ctx context.Context, id, name, value string) error {
	err := s.conn.RunAndCommit(ctx, Stmt(
		"INSERT INTO hyperparams (expid, name, value) VALUES (?, ?, ?)", id, name, value))
	if err != nil {
		return fmt.Errorf("failed to add hyperparameter %q for %s: %w", name, experiment(id), err)
	}
	return nil
}

// GetHyperparams returns every hyperparameter of an experiment, empty when
// none were recorded.
func (s *sqlStore) GetHyperparams(ctx context.Context, id string) (map[string]string, error) {
	var rows []struct {
		Name  string         `db:"name"`
		Value sql.NullString `db:"value"`
	}
	if err := s.conn.RunAndFetch(ctx, &rows, "SELECT name, value FROM hyperparams WHERE expid = ?", id); err != nil {
		return nil, fmt.Errorf("failed to get hyperparameters of %s: %w", experiment(id), err)
	}

	params := make(map[string]string, len(rows))
	for _, r := range rows {
		params[r.Name] = r.Value.String
	}
	return params, nil
}
