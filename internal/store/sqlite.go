package store

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	"github.com/franz/mldb/internal/util"
)

// SQLiteStore keeps experiments in a single database file. Several
// processes may share the file; writers wait on the busy timeout.
type SQLiteStore struct {
	*sqlStore
	path    string
	network bool
}

// NewSQLiteStore prepares a store for the database file at path. Stored
// paths are made relative to root.
func NewSQLiteStore(path, root string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is empty")
	}

	// WAL needs shared memory, which network filesystems do not provide
	network := util.IsNetworkPath(path)
	journal := "WAL"
	if network {
		journal = "DELETE"
		util.InfoLog("Database %s is on a network filesystem, using rollback journal", path)
	}

	dsn, err := sqliteDSN(path, journal)
	if err != nil {
		return nil, err
	}
	base, err := newSQLStore(SQLiteDialect, dsn, "sqlite:///"+path, root)
	if err != nil {
		return nil, err
	}
	base.setup = sqlitePragmas(network)

	return &SQLiteStore{sqlStore: base, path: path, network: network}, nil
}

func sqlitePragmas(network bool) []string {
	if !network {
		// NORMAL is safe with WAL: fsync only at checkpoints
		return []string{"PRAGMA synchronous = NORMAL"}
	}
	return []string{
		// Keep temp tables and more pages in memory to cut round-trips
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -64000",
		// Only takes effect for a new database
		"PRAGMA page_size = 8192",
	}
}

// sqliteDSN builds a file: URI for path. The path is escaped so that ?, #
// and % in a file name are not read as URI syntax.
func sqliteDSN(path, journal string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	query := url.Values{
		"_pragma": {"busy_timeout(5000)", fmt.Sprintf("journal_mode(%s)", journal)},
		"_txlock": {"immediate"},
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: query.Encode()}
	return u.String(), nil
}

func (s *SQLiteStore) String() string {
	return "sqlite:///" + filepath.ToSlash(s.path)
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// OnNetworkFilesystem reports whether the database file was detected on a
// network mount.
func (s *SQLiteStore) OnNetworkFilesystem() bool {
	return s.network
}

// CheckIntegrity runs PRAGMA integrity_check on the database.
func (s *SQLiteStore) CheckIntegrity(ctx context.Context) error {
	var result string
	if err := s.conn.Get(ctx, &result, "PRAGMA integrity_check"); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// SQLiteVersion returns the version of the embedded SQLite library.
func SQLiteVersion() string {
	db, err := sqlx.Open(SQLiteDialect.DriverName, ":memory:")
	if err != nil {
		return ""
	}
	defer db.Close()

	var version string
	if err := db.Get(&version, "SELECT sqlite_version()"); err != nil {
		return ""
	}
	return version
}
