package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/franz/mldb/internal/util"
)

var errConnectorClosed = errors.New("connector is closed")

// Statement is one SQL statement written with ? placeholders.
type Statement struct {
	Query string
	Args  []any
}

// Stmt builds a Statement.
func Stmt(query string, args ...any) Statement {
	return Statement{Query: query, Args: args}
}

// Connector owns the single live session to a backend. It dispatches
// statements with the dialect's placeholder style and classifies driver
// errors into the store's error types.
//
// A Connector is not safe for concurrent use. Callers that need
// concurrency open one store per goroutine.
type Connector struct {
	dialect *Dialect
	dsn     string
	target  string

	db     *sqlx.DB
	closed bool
}

// NewConnector creates an unconnected Connector.
func NewConnector(d *Dialect, dsn string) *Connector {
	return &Connector{dialect: d, dsn: dsn, target: d.Name}
}

// Dialect returns the connector's dialect.
func (c *Connector) Dialect() *Dialect {
	return c.dialect
}

// Connect opens the session and verifies it with a ping. Calling Connect on
// a connected Connector is a no-op.
func (c *Connector) Connect(ctx context.Context) error {
	if c.closed {
		return &ConnectionError{Backend: c.dialect.Name, Target: c.target, Err: errConnectorClosed}
	}
	if c.db != nil {
		return nil
	}

	db, err := sqlx.Open(c.dialect.DriverName, c.dsn)
	if err != nil {
		return &ConnectionError{Backend: c.dialect.Name, Target: c.target, Err: err}
	}

	// One live session per store
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			util.DebugLog("Close after failed ping of %s: %v", c.target, cerr)
		}
		return &ConnectionError{Backend: c.dialect.Name, Target: c.target, Err: err}
	}

	c.db = db
	util.DebugLog("Connected to %s", c.target)
	return nil
}

// Close releases the session. It is safe to call more than once and before
// Connect.
func (c *Connector) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.db == nil {
		return nil
	}
	db := c.db
	c.db = nil
	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", c.target, err)
	}
	return nil
}

func (c *Connector) live() (*sqlx.DB, error) {
	if c.db == nil {
		err := errors.New("not connected")
		if c.closed {
			err = errConnectorClosed
		}
		return nil, &ConnectionError{Backend: c.dialect.Name, Target: c.target, Err: err}
	}
	return c.db, nil
}

// Run executes a single statement in autocommit mode.
func (c *Connector) Run(ctx context.Context, query string, args ...any) error {
	db, err := c.live()
	if err != nil {
		return err
	}
	trace(c.dialect, query)
	if _, err := db.ExecContext(ctx, c.dialect.Rebind(query), args...); err != nil {
		return c.classify(tableOf(query), err)
	}
	return nil
}

// RunAndCommit executes the statements in one transaction. If any of them
// fails the transaction is rolled back and the classified error returned.
func (c *Connector) RunAndCommit(ctx context.Context, stmts ...Statement) error {
	db, err := c.live()
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", c.classify("", err))
	}

	for _, st := range stmts {
		trace(c.dialect, st.Query)
		if _, err := tx.ExecContext(ctx, c.dialect.Rebind(st.Query), st.Args...); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				util.DebugLog("Rollback after failed statement: %v", rbErr)
			}
			return c.classify(tableOf(st.Query), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", c.classify("", err))
	}
	return nil
}

// RunSequence executes the statements in order inside one transaction and
// commits once at the end. Unlike RunAndCommit it does not roll back on
// failure: the statements that succeeded before the failing one are
// committed. It returns how many leading statements are known to be
// committed and the index of the statement that failed, which is
// len(stmts) when the final commit is what failed.
func (c *Connector) RunSequence(ctx context.Context, stmts []Statement) (committed, failed int, err error) {
	db, err := c.live()
	if err != nil {
		return 0, 0, err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", c.classify("", err))
	}

	for i, st := range stmts {
		trace(c.dialect, st.Query)
		if _, err := tx.ExecContext(ctx, c.dialect.Rebind(st.Query), st.Args...); err != nil {
			failure := c.classify(tableOf(st.Query), err)
			if i == 0 {
				tx.Rollback()
				return 0, 0, failure
			}
			// Some backends abort the whole transaction on error, in which
			// case the commit fails and nothing was applied.
			if cErr := tx.Commit(); cErr != nil {
				util.DebugLog("Commit of partial sequence failed: %v", cErr)
				return 0, i, failure
			}
			return i, i, failure
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, len(stmts), fmt.Errorf("failed to commit transaction: %w", c.classify("", err))
	}
	return len(stmts), len(stmts), nil
}

// RunAndFetch scans every row of the query into dest, which must be a
// pointer to a slice.
func (c *Connector) RunAndFetch(ctx context.Context, dest any, query string, args ...any) error {
	db, err := c.live()
	if err != nil {
		return err
	}
	trace(c.dialect, query)
	if err := db.SelectContext(ctx, dest, c.dialect.Rebind(query), args...); err != nil {
		return c.classify(tableOf(query), err)
	}
	return nil
}

// Get scans a single row into dest. It returns sql.ErrNoRows unchanged when
// the query matches nothing.
func (c *Connector) Get(ctx context.Context, dest any, query string, args ...any) error {
	db, err := c.live()
	if err != nil {
		return err
	}
	trace(c.dialect, query)
	return c.classify(tableOf(query), db.GetContext(ctx, dest, c.dialect.Rebind(query), args...))
}

// Rows runs an arbitrary query and returns the column names and every row.
// Byte slices are converted to strings.
func (c *Connector) Rows(ctx context.Context, query string, args ...any) ([]string, [][]any, error) {
	db, err := c.live()
	if err != nil {
		return nil, nil, err
	}
	trace(c.dialect, query)
	rows, err := db.QueryxContext(ctx, c.dialect.Rebind(query), args...)
	if err != nil {
		return nil, nil, c.classify(tableOf(query), err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]any
	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return nil, nil, err
		}
		for i, v := range row {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, c.classify(tableOf(query), err)
	}
	return cols, out, nil
}

func (c *Connector) classify(table string, err error) error {
	switch {
	case err == nil:
		return nil
	case c.dialect.isUniqueViolation(err):
		return &CollisionError{Table: table, Err: err}
	case c.dialect.isAuthFailure(err), errors.Is(err, driver.ErrBadConn):
		return &ConnectionError{Backend: c.dialect.Name, Target: c.target, Err: err}
	}
	return err
}

// tableOf extracts the table a statement writes to or reads from, for
// error messages.
func tableOf(query string) string {
	fields := strings.Fields(strings.ToLower(query))
	for i := 0; i+1 < len(fields); i++ {
		switch fields[i] {
		case "into", "from", "update", "table":
			j := i + 1
			for j+1 < len(fields) && (fields[j] == "if" || fields[j] == "not" || fields[j] == "exists") {
				j++
			}
			return strings.Trim(fields[j], "`\"(;")
		}
	}
	return "query"
}

func trace(d *Dialect, query string) {
	util.DebugLog("%s: %s", d.Name, strings.Join(strings.Fields(query), " "))
}
