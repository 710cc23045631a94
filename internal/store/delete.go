package store

import (
	"context"
	"fmt"
)

// DeleteExperiment removes an experiment's rows from every table, in schema
// order, and commits once. The deletes are not atomic across tables: if one
// fails, the tables already cleared stay cleared and the returned
// PartialError lists them.
func (s *sqlStore) DeleteExperiment(ctx context.Context, id string) error {
	names := Tables()
	stmts := make([]Statement, len(names))
	for i, table := range names {
		stmts[i] = Stmt(fmt.Sprintf("DELETE FROM %s WHERE expid = ?", table), id)
	}

	committed, failed, err := s.conn.RunSequence(ctx, stmts)
	if err != nil {
		failedAt := "commit"
		if failed < len(names) {
			failedAt = names[failed]
		}
		return &PartialError{
			Op:        fmt.Sprintf("delete %s", experiment(id)),
			Completed: names[:committed],
			Failed:    failedAt,
			Err:       err,
		}
	}
	return nil
}
