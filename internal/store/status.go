package store

import (
	"context"
	"fmt"
)

// SetStatus records the status of an experiment, replacing any previous
// one. Concurrent writers resolve to whichever commits last.
func (s *sqlStore) SetStatus(ctx context.Context, id, status string) error {
	if err := s.conn.RunAndCommit(ctx, Stmt(s.conn.dialect.upsertStatus, id, status)); err != nil {
		return fmt.Errorf("failed to set status of %s: %w", experiment(id), err)
	}
	return nil
}

// GetStatus returns the recorded status or a NoDataError.
func (s *sqlStore) GetStatus(ctx context.Context, id string) (string, error) {
	var statuses []string
	if err := s.conn.RunAndFetch(ctx, &statuses, "SELECT status FROM status WHERE expid = ?", id); err != nil {
		return "", fmt.Errorf("failed to get status of %s: %w", experiment(id), err)
	}
	if len(statuses) == 0 {
		return "", &NoDataError{Table: "status", Identity: experiment(id)}
	}
	return statuses[0], nil
}
