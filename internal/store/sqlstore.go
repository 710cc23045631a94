package store

import (
	"context"
	"fmt"
)

// sqlStore implements ExperimentStore on top of a Connector. The concrete
// backends embed it and add their own connection details.
type sqlStore struct {
	conn *Connector
	root string

	// setup runs right after connecting, before the schema is ensured.
	setup []string
}

func newSQLStore(d *Dialect, dsn, target, root string) (*sqlStore, error) {
	abs, err := absRoot(root)
	if err != nil {
		return nil, err
	}
	conn := NewConnector(d, dsn)
	conn.target = target
	return &sqlStore{conn: conn, root: abs}, nil
}

func (s *sqlStore) Root() string {
	return s.root
}

// Connector exposes the underlying session, mainly for diagnostics.
func (s *sqlStore) Connector() *Connector {
	return s.conn
}

// Connect opens the session, applies backend setup statements and makes
// sure the schema exists.
func (s *sqlStore) Connect(ctx context.Context) error {
	if err := s.conn.Connect(ctx); err != nil {
		return err
	}
	for _, stmt := range s.setup {
		if err := s.conn.Run(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute %s: %w", stmt, err)
		}
	}
	return s.EnsureSchema(ctx)
}

func (s *sqlStore) Close() error {
	return s.conn.Close()
}

func (s *sqlStore) EnsureSchema(ctx context.Context) error {
	return EnsureSchema(ctx, s.conn)
}

func experiment(id string) string {
	return fmt.Sprintf("experiment %q", id)
}
