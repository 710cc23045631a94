package store

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MySQL server error numbers used for classification.
const (
	mysqlErrDupEntry     = 1062
	mysqlErrTableExists  = 1050
	mysqlErrDupKeyName   = 1061
	mysqlErrAccessDenied = 1045
)

// Dialect captures everything that differs between SQL backends: the
// database/sql driver, the placeholder style, column types and the way
// constraint violations are reported.
type Dialect struct {
	Name       string
	DriverName string
	BindType   int

	KeyType     string
	PathType    string
	PayloadType string
	IntType     string
	RealType    string

	// InlineKeys places UNIQUE constraints and indexes inside CREATE TABLE
	// because the backend has no CREATE INDEX IF NOT EXISTS.
	InlineKeys bool

	upsertStatus      string
	isUniqueViolation func(error) bool
	isAlreadyExists   func(error) bool
	isAuthFailure     func(error) bool
}

// Rebind converts a query written with ? placeholders to the dialect's
// bind style.
func (d *Dialect) Rebind(query string) string {
	return sqlx.Rebind(d.BindType, query)
}

// SQLiteDialect is the embedded single-file backend.
var SQLiteDialect = &Dialect{
	Name:        "sqlite",
	DriverName:  "sqlite",
	BindType:    sqlx.QUESTION,
	KeyType:     "TEXT",
	PathType:    "TEXT",
	PayloadType: "TEXT",
	IntType:     "INTEGER",
	RealType:    "REAL",
	upsertStatus: `INSERT INTO status (expid, status) VALUES (?, ?)
		ON CONFLICT (expid) DO UPDATE SET status = excluded.status`,
	isUniqueViolation: sqliteUniqueViolation,
	isAlreadyExists:   func(error) bool { return false },
	isAuthFailure:     func(error) bool { return false },
}

// PostgresDialect talks to PostgreSQL through pgx's database/sql driver.
var PostgresDialect = &Dialect{
	Name:        "postgresql",
	DriverName:  "pgx",
	BindType:    sqlx.DOLLAR,
	KeyType:     "TEXT",
	PathType:    "TEXT",
	PayloadType: "TEXT",
	IntType:     "INTEGER",
	RealType:    "DOUBLE PRECISION",
	upsertStatus: `INSERT INTO status (expid, status) VALUES (?, ?)
		ON CONFLICT (expid) DO UPDATE SET status = excluded.status`,
	isUniqueViolation: postgresUniqueViolation,
	isAlreadyExists:   postgresAlreadyExists,
	isAuthFailure:     postgresAuthFailure,
}

// MySQLDialect talks to MySQL or MariaDB.
var MySQLDialect = &Dialect{
	Name:        "mysql",
	DriverName:  "mysql",
	BindType:    sqlx.QUESTION,
	KeyType:     "VARCHAR(255)",
	PathType:    "VARCHAR(512)",
	PayloadType: "LONGTEXT",
	IntType:     "INT",
	RealType:    "DOUBLE",
	InlineKeys:  true,
	upsertStatus: `INSERT INTO status (expid, status) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE status = VALUES(status)`,
	isUniqueViolation: mysqlUniqueViolation,
	isAlreadyExists:   mysqlAlreadyExists,
	isAuthFailure:     mysqlAuthFailure,
}

func sqliteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// primary code only, when extended codes are not reported
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}

func postgresUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// postgresAlreadyExists matches the errors two sessions can hit when they
// race through CREATE ... IF NOT EXISTS: the loser may see a unique
// violation on pg_type or a duplicate table/object error.
func postgresAlreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation, pgerrcode.DuplicateTable, pgerrcode.DuplicateObject:
		return true
	}
	return false
}

func postgresAuthFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.InvalidPassword ||
		pgErr.Code == pgerrcode.InvalidAuthorizationSpecification
}

func mysqlUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDupEntry
}

func mysqlAlreadyExists(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == mysqlErrTableExists || me.Number == mysqlErrDupKeyName
}

func mysqlAuthFailure(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrAccessDenied
}
