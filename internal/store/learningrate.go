package store

import (
	"context"
	"fmt"
)

// AddLearningRate records the learning rate used for an epoch.
func (s *sqlStore) AddLearningRate(ctx context.Context, id string, epoch int, value float64) error {
	err := s.conn.RunAndCommit(ctx, Stmt(
		"INSERT INTO learningrate (expid, epoch, value) VALUES (?, ?, ?)", id, epoch, value))
	if err != nil {
		return fmt.Errorf("failed to add learning rate at epoch %d for %s: %w", epoch, experiment(id), err)
	}
	return nil
}

// GetLearningRates returns the learning rate schedule in epoch order. It is
// empty, not an error, when nothing was recorded.
func (s *sqlStore) GetLearningRates(ctx context.Context, id string) (*LRSeries, error) {
	var rows []seriesRow
	err := s.conn.RunAndFetch(ctx, &rows,
		"SELECT expid, epoch, value FROM learningrate WHERE expid = ? ORDER BY epoch", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get learning rates of %s: %w", experiment(id), err)
	}

	lrs := &LRSeries{Epochs: make([]int, 0, len(rows)), LRs: make([]Float, 0, len(rows))}
	for _, r := range rows {
		lrs.Epochs = append(lrs.Epochs, r.Epoch)
		lrs.LRs = append(lrs.LRs, r.value())
	}
	return lrs, nil
}
