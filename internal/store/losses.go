package store

import (
	"context"
	"fmt"
)

// AddLoss records one loss sample. A second sample for the same epoch and
// kind is a CollisionError.
func (s *sqlStore) AddLoss(ctx context.Context, id, kind string, epoch int, value float64) error {
	err := s.conn.RunAndCommit(ctx, Stmt(
		"INSERT INTO loss (expid, epoch, kind, value) VALUES (?, ?, ?, ?)",
		id, epoch, kind, value))
	if err != nil {
		return fmt.Errorf("failed to add %s loss at epoch %d for %s: %w", kind, epoch, experiment(id), err)
	}
	return nil
}

// GetLosses groups every loss sample of an experiment by kind, each in
// ascending epoch order.
func (s *sqlStore) GetLosses(ctx context.Context, id string) (map[string]*LossSeries, error) {
	var rows []seriesRow
	err := s.conn.RunAndFetch(ctx, &rows,
		"SELECT expid, kind, epoch, value FROM loss WHERE expid = ? ORDER BY kind, epoch", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get losses of %s: %w", experiment(id), err)
	}
	if len(rows) == 0 {
		return nil, &NoDataError{Table: "loss", Identity: experiment(id)}
	}

	losses := make(map[string]*LossSeries)
	for _, r := range rows {
		series, ok := losses[r.Kind]
		if !ok {
			series = &LossSeries{}
			losses[r.Kind] = series
		}
		series.Epoch = append(series.Epoch, r.Epoch)
		series.Loss = append(series.Loss, r.value())
	}
	return losses, nil
}
