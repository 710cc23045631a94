package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/franz/mldb/internal/util"
	"github.com/spf13/viper"
)

func load(t *testing.T, format, content string) *Config {
	t.Helper()

	v := viper.New()
	if content != "" {
		v.SetConfigType(format)
		if err := v.ReadConfig(strings.NewReader(content)); err != nil {
			t.Fatalf("failed to read config: %v", err)
		}
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := load(t, "yaml", "")

	if cfg.Backend != BackendSQLite {
		t.Errorf("expected default backend sqlite, got %q", cfg.Backend)
	}
	if cfg.SQLite.Path != "mldb.db" {
		t.Errorf("expected default path mldb.db, got %q", cfg.SQLite.Path)
	}
	if cfg.SQLite.Root != "." {
		t.Errorf("expected root to default to the database directory, got %q", cfg.SQLite.Root)
	}
	if cfg.PostgreSQL.Port != 5432 || cfg.MySQL.Port != 3306 {
		t.Errorf("unexpected default ports: %d, %d", cfg.PostgreSQL.Port, cfg.MySQL.Port)
	}
	if cfg.Connect.InitialWait != 500*time.Millisecond {
		t.Errorf("expected 500ms initial wait, got %v", cfg.Connect.InitialWait)
	}
	if cfg.Server.Sessions != 4 {
		t.Errorf("expected 4 server sessions, got %d", cfg.Server.Sessions)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("MLDB_BACKEND", "mysql")
	t.Setenv("MLDB_MYSQL_HOST", "db.internal")
	t.Setenv("MLDB_MYSQL_DATABASE", "experiments")
	t.Setenv("MLDB_MYSQL_ROOT", "/data")

	v := viper.New()
	v.SetEnvPrefix("MLDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Backend != BackendMySQL {
		t.Errorf("expected backend mysql, got %q", cfg.Backend)
	}
	if cfg.MySQL.Host != "db.internal" || cfg.MySQL.Database != "experiments" || cfg.MySQL.Root != "/data" {
		t.Errorf("environment not applied: %+v", cfg.MySQL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	cfg := load(t, "yaml", `
backend: postgres
postgresql:
  host: db.internal
  database: experiments
  user: trainer
  password: hunter2
  root: /mnt/shared/experiments
server:
  port: 9000
`)

	if cfg.Backend != BackendPostgreSQL {
		t.Errorf("expected postgres alias to resolve to %q, got %q", BackendPostgreSQL, cfg.Backend)
	}
	if cfg.PostgreSQL.Host != "db.internal" || cfg.PostgreSQL.Port != 5432 {
		t.Errorf("unexpected postgres config: %+v", cfg.PostgreSQL)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected server port 9000, got %d", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoadLegacyJSON(t *testing.T) {
	cfg := load(t, "json", `{
		"root_dir": "/data/runs",
		"host": "tyke.example.com",
		"password": "secret",
		"user": "mldb",
		"database": "mldb",
		"port": 6543
	}`)

	if cfg.Backend != BackendPostgreSQL {
		t.Fatalf("legacy file should select postgresql, got %q", cfg.Backend)
	}
	expected := NetworkConfig{
		Host:     "tyke.example.com",
		Port:     6543,
		Database: "mldb",
		User:     "mldb",
		Password: "secret",
		Root:     "/data/runs",
		SSLMode:  "prefer",
	}
	if cfg.PostgreSQL != expected {
		t.Errorf("legacy postgres config = %+v, expected %+v", cfg.PostgreSQL, expected)
	}
}

func TestLoadNestedRootDir(t *testing.T) {
	cfg := load(t, "json", `{
		"backend": "postgresql",
		"postgresql": {"host": "h", "database": "d", "root_dir": "/srv/ml"}
	}`)

	if cfg.PostgreSQL.Root != "/srv/ml" {
		t.Errorf("expected root_dir to populate root, got %q", cfg.PostgreSQL.Root)
	}
}

func TestSQLiteRootFollowsPath(t *testing.T) {
	cfg := load(t, "yaml", "sqlite:\n  path: /var/lib/mldb/state.db\n")

	if cfg.SQLite.Root != filepath.Dir("/var/lib/mldb/state.db") {
		t.Errorf("expected root next to the database, got %q", cfg.SQLite.Root)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.SQLite.Path = "" },
			wantErr: true,
		},
		{
			name: "postgres without host",
			mutate: func(c *Config) {
				c.Backend = BackendPostgreSQL
				c.PostgreSQL = NetworkConfig{Database: "d", Port: 5432, Root: "/r"}
			},
			wantErr: true,
		},
		{
			name: "mysql with bad port",
			mutate: func(c *Config) {
				c.Backend = BackendMySQL
				c.MySQL = NetworkConfig{Host: "h", Database: "d", Port: 70000, Root: "/r"}
			},
			wantErr: true,
		},
		{
			name: "mysql complete",
			mutate: func(c *Config) {
				c.Backend = BackendMySQL
				c.MySQL = NetworkConfig{Host: "h", Database: "d", Port: 3306, Root: "/r"}
			},
			wantErr: false,
		},
		{
			name:    "zero sessions",
			mutate:  func(c *Config) { c.Server.Sessions = 0 },
			wantErr: true,
		},
		{
			name:    "unknown backend is left to the factory",
			mutate:  func(c *Config) { c.Backend = "oracle" },
			wantErr: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := load(t, "yaml", "")
			tc.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, util.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Config{PostgreSQL: NetworkConfig{Password: "secret"}}

	red := cfg.Redacted()
	if red.PostgreSQL.Password == "secret" {
		t.Error("password should be masked")
	}
	if cfg.PostgreSQL.Password != "secret" {
		t.Error("Redacted must not modify the original")
	}
}
