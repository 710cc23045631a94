package store

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	_ "github.com/jackc/pgx/v4/stdlib" // registers the "pgx" driver

	"github.com/franz/mldb/internal/config"
)

// PostgresStore keeps experiments in a PostgreSQL database shared by
// training machines and viewers.
type PostgresStore struct {
	*sqlStore
	cfg config.NetworkConfig
}

// NewPostgresStore prepares a store for the configured server.
func NewPostgresStore(cfg config.NetworkConfig) (*PostgresStore, error) {
	s := &PostgresStore{cfg: cfg}
	base, err := newSQLStore(PostgresDialect, postgresDSN(cfg), s.String(), cfg.Root)
	if err != nil {
		return nil, err
	}
	s.sqlStore = base
	return s, nil
}

func postgresDSN(cfg config.NetworkConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
		if cfg.Password == "" {
			u.User = url.User(cfg.User)
		}
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

func (s *PostgresStore) String() string {
	return fmt.Sprintf("postgresql://%s@%s:%d/%s", s.cfg.User, s.cfg.Host, s.cfg.Port, s.cfg.Database)
}
