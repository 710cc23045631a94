package store

import (
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/franz/mldb/internal/config"
)

// MySQLStore keeps experiments in a MySQL or MariaDB database.
type MySQLStore struct {
	*sqlStore
	cfg config.NetworkConfig
}

// NewMySQLStore prepares a store for the configured server.
func NewMySQLStore(cfg config.NetworkConfig) (*MySQLStore, error) {
	s := &MySQLStore{cfg: cfg}
	base, err := newSQLStore(MySQLDialect, mysqlDSN(cfg), s.String(), cfg.Root)
	if err != nil {
		return nil, err
	}
	s.sqlStore = base
	return s, nil
}

func mysqlDSN(cfg config.NetworkConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

func (s *MySQLStore) String() string {
	return fmt.Sprintf("mysql://%s@%s:%d/%s", s.cfg.User, s.cfg.Host, s.cfg.Port, s.cfg.Database)
}
