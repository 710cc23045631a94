package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/franz/mldb/internal/groups"
)

// ListExperiments returns status rows ordered by experiment id.
func (s *sqlStore) ListExperiments(ctx context.Context, filter ListFilter) ([]ExperimentStatus, error) {
	query := "SELECT DISTINCT s.expid, s.status FROM status s"
	var (
		conds []string
		args  []any
	)

	if filter.Group != "" {
		query += " JOIN expgroups g ON g.expid = s.expid"
		conds = append(conds, "g.groupname = ?")
		args = append(args, groups.Normalize(filter.Group))
	}
	if len(filter.Statuses) > 0 {
		conds = append(conds, "s.status IN (?)")
		args = append(args, filter.Statuses)
	}
	if filter.Search != "" {
		conds = append(conds, "s.expid LIKE ?")
		args = append(args, filter.Search)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY s.expid"

	if len(filter.Statuses) > 0 {
		var err error
		query, args, err = sqlx.In(query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to expand status filter: %w", err)
		}
	}

	var rows []ExperimentStatus
	if err := s.conn.RunAndFetch(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	if filter.Limit > 0 && len(rows) > filter.Limit {
		rows = rows[len(rows)-filter.Limit:]
	}
	return rows, nil
}

// Query runs caller-supplied SQL as is. It is meant for trusted operators
// and tooling; arguments are still passed as parameters.
func (s *sqlStore) Query(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	cols, rows, err := s.conn.Rows(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if rows == nil {
		rows = [][]any{}
	}
	return &QueryResult{Columns: cols, Rows: rows}, nil
}
