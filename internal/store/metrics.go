package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AddMetric records one metric sample. A second sample for the same epoch
// and kind is a CollisionError.
func (s *sqlStore) AddMetric(ctx context.Context, id, kind string, epoch int, value float64) error {
	err := s.conn.RunAndCommit(ctx, Stmt(
		"INSERT INTO metrics (expid, epoch, kind, value) VALUES (?, ?, ?, ?)",
		id, epoch, kind, value))
	if err != nil {
		return fmt.Errorf("failed to add %s metric at epoch %d for %s: %w", kind, epoch, experiment(id), err)
	}
	return nil
}

// GetMetrics groups every metric sample of an experiment by kind.
func (s *sqlStore) GetMetrics(ctx context.Context, id string) (map[string]*MetricSeries, error) {
	var rows []seriesRow
	err := s.conn.RunAndFetch(ctx, &rows,
		"SELECT expid, kind, epoch, value FROM metrics WHERE expid = ? ORDER BY kind, epoch", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics of %s: %w", experiment(id), err)
	}
	if len(rows) == 0 {
		return nil, &NoDataError{Table: "metrics", Identity: experiment(id)}
	}

	metrics := make(map[string]*MetricSeries)
	for _, r := range rows {
		series, ok := metrics[r.Kind]
		if !ok {
			series = &MetricSeries{}
			metrics[r.Kind] = series
		}
		series.Epoch = append(series.Epoch, r.Epoch)
		series.Value = append(series.Value, r.value())
	}
	return metrics, nil
}

// GetLatestMetrics returns every metric recorded at the experiment's
// highest metric epoch. Kinds not logged at that epoch are absent even if
// they were logged earlier. An experiment without metrics gets an empty
// result, not an error.
func (s *sqlStore) GetLatestMetrics(ctx context.Context, id string) (*LatestMetrics, error) {
	var rows []seriesRow
	err := s.conn.RunAndFetch(ctx, &rows, `SELECT expid, kind, epoch, value FROM metrics
		WHERE expid = ? AND epoch = (SELECT MAX(epoch) FROM metrics WHERE expid = ?)`, id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest metrics of %s: %w", experiment(id), err)
	}
	if len(rows) == 0 {
		return &LatestMetrics{ExpID: id, Data: map[string]Float{}}, nil
	}

	latest := &LatestMetrics{ExpID: id, Epoch: rows[0].Epoch, Data: make(map[string]Float, len(rows))}
	for _, r := range rows {
		latest.Data[r.Kind] = r.value()
	}
	return latest, nil
}

// GetLatestMetricsOfMany is GetLatestMetrics for several experiments in one
// query. Experiments without metrics are absent from the result.
func (s *sqlStore) GetLatestMetricsOfMany(ctx context.Context, ids []string) (map[string]*LatestMetrics, error) {
	result := make(map[string]*LatestMetrics)
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT m.expid, m.kind, m.epoch, m.value FROM metrics m
		JOIN (SELECT expid, MAX(epoch) AS epoch FROM metrics WHERE expid IN (?) GROUP BY expid) latest
		ON m.expid = latest.expid AND m.epoch = latest.epoch
		ORDER BY m.expid, m.kind`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build latest metrics query: %w", err)
	}

	var rows []seriesRow
	if err := s.conn.RunAndFetch(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get latest metrics of %d experiments: %w", len(ids), err)
	}

	for _, r := range rows {
		latest, ok := result[r.ExpID]
		if !ok {
			latest = &LatestMetrics{ExpID: r.ExpID, Epoch: r.Epoch, Data: make(map[string]Float)}
			result[r.ExpID] = latest
		}
		latest.Data[r.Kind] = r.value()
	}
	return result, nil
}
