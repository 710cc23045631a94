package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/franz/mldb/internal/sanitise"
)

// AddStateFile records a checkpoint path for an epoch. When the same
// checkpoint is already recorded the result is AlreadyExists; with
// errorOnCollision set that is also reported as a CollisionError, otherwise
// it is a silent no-op so crashed runs can safely retry.
func (s *sqlStore) AddStateFile(ctx context.Context, id string, epoch int, path string, errorOnCollision bool) (InsertResult, error) {
	rel, err := sanitise.Path(path, s.root)
	if err != nil {
		return Inserted, err
	}

	err = s.conn.RunAndCommit(ctx, Stmt("INSERT INTO state (expid, epoch, path) VALUES (?, ?, ?)", id, epoch, rel))
	if err == nil {
		return Inserted, nil
	}

	var collision *CollisionError
	if errors.As(err, &collision) {
		if !errorOnCollision {
			return AlreadyExists, nil
		}
		return AlreadyExists, fmt.Errorf("state file for %s at epoch %d: %w", experiment(id), epoch, err)
	}
	return Inserted, fmt.Errorf("failed to add state file for %s at epoch %d: %w", experiment(id), epoch, err)
}

// GetStateFile returns the absolute checkpoint path recorded for an epoch.
// Zero matches is a NoDataError; several matches is an IntegrityError.
func (s *sqlStore) GetStateFile(ctx context.Context, id string, epoch int) (string, error) {
	var paths []string
	err := s.conn.RunAndFetch(ctx, &paths, "SELECT path FROM state WHERE expid = ? AND epoch = ?", id, epoch)
	if err != nil {
		return "", fmt.Errorf("failed to get state file of %s at epoch %d: %w", experiment(id), epoch, err)
	}

	identity := fmt.Sprintf("%s at epoch %d", experiment(id), epoch)
	switch len(paths) {
	case 0:
		return "", &NoDataError{Table: "state", Identity: identity}
	case 1:
		return sanitise.Unpath(paths[0], s.root), nil
	default:
		return "", &IntegrityError{Table: "state", Identity: identity, Expected: 1, Got: len(paths)}
	}
}

// GetStateFiles lists every checkpoint of an experiment by epoch.
func (s *sqlStore) GetStateFiles(ctx context.Context, id string) ([]StateFile, error) {
	var rows []struct {
		Epoch int    `db:"epoch"`
		Path  string `db:"path"`
	}
	err := s.conn.RunAndFetch(ctx, &rows, "SELECT epoch, path FROM state WHERE expid = ? ORDER BY epoch, path", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get state files of %s: %w", experiment(id), err)
	}

	files := make([]StateFile, len(rows))
	for i, r := range rows {
		files[i] = StateFile{Epoch: r.Epoch, Path: sanitise.Unpath(r.Path, s.root)}
	}
	return files, nil
}
