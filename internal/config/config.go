// Package config holds the process configuration. It is built once at
// startup from viper (file, MLDB_* environment, bound flags) and passed
// explicitly to whatever needs it.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/franz/mldb/internal/util"
	"github.com/spf13/viper"
)

// Backend tags understood by the store factory
const (
	BackendSQLite     = "sqlite"
	BackendPostgreSQL = "postgresql"
	BackendMySQL      = "mysql"
	BackendDummy      = "dummy"
)

// Config is the full process configuration
type Config struct {
	Backend    string        `mapstructure:"backend" yaml:"backend"`
	SQLite     SQLiteConfig  `mapstructure:"sqlite" yaml:"sqlite"`
	PostgreSQL NetworkConfig `mapstructure:"postgresql" yaml:"postgresql"`
	MySQL      NetworkConfig `mapstructure:"mysql" yaml:"mysql"`
	Connect    ConnectConfig `mapstructure:"connect" yaml:"connect"`
	Log        LogConfig     `mapstructure:"log" yaml:"log"`
	Server     ServerConfig  `mapstructure:"server" yaml:"server"`
}

// SQLiteConfig configures the file-based backend
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
	Root string `mapstructure:"root" yaml:"root"` // defaults to the database file's directory
}

// NetworkConfig configures a networked SQL backend
type NetworkConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Database string `mapstructure:"database" yaml:"database"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Root     string `mapstructure:"root" yaml:"root"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode,omitempty"`
}

// ConnectConfig controls how the CLI retries opening network sessions
type ConnectConfig struct {
	Retries     int           `mapstructure:"retries" yaml:"retries"`
	InitialWait time.Duration `mapstructure:"initial_wait" yaml:"initial_wait"`
}

// LogConfig configures the optional rotating log file
type LogConfig struct {
	File       string `mapstructure:"file" yaml:"file,omitempty"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// ServerConfig configures the dashboard API
type ServerConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Sessions int    `mapstructure:"sessions" yaml:"sessions"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendSQLite)
	v.SetDefault("sqlite.path", "mldb.db")
	v.SetDefault("postgresql.port", 5432)
	v.SetDefault("postgresql.sslmode", "prefer")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("connect.retries", 3)
	v.SetDefault("connect.initial_wait", "500ms")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.sessions", 4)

	// Keys without a real default still need registering so that
	// MLDB_* environment variables reach Unmarshal
	for _, backend := range []string{BackendPostgreSQL, BackendMySQL} {
		for _, key := range []string{"host", "database", "user", "password", "root"} {
			v.SetDefault(backend+"."+key, "")
		}
	}
	v.SetDefault("sqlite.root", "")
	v.SetDefault("log.file", "")
}

// Load builds a Config from v. The legacy ~/.mldb_config.json layout, a flat
// object with host/user/database/root_dir and no backend key, is read as a
// PostgreSQL configuration.
func Load(v *viper.Viper) (*Config, error) {
	legacy := !v.InConfig("backend") && v.InConfig("host")

	SetDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidConfig, err)
	}

	if legacy {
		cfg.Backend = BackendPostgreSQL
		cfg.PostgreSQL.Host = v.GetString("host")
		cfg.PostgreSQL.Database = v.GetString("database")
		cfg.PostgreSQL.User = v.GetString("user")
		cfg.PostgreSQL.Password = v.GetString("password")
		cfg.PostgreSQL.Root = v.GetString("root_dir")
		if v.InConfig("port") {
			cfg.PostgreSQL.Port = v.GetInt("port")
		}
	}

	// Older files spell the storage root "root_dir"
	if cfg.PostgreSQL.Root == "" {
		cfg.PostgreSQL.Root = v.GetString("postgresql.root_dir")
	}
	if cfg.MySQL.Root == "" {
		cfg.MySQL.Root = v.GetString("mysql.root_dir")
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if cfg.Backend == "postgres" {
		cfg.Backend = BackendPostgreSQL
	}

	if cfg.SQLite.Root == "" && cfg.SQLite.Path != "" {
		cfg.SQLite.Root = filepath.Dir(cfg.SQLite.Path)
	}

	return cfg, nil
}

// Validate checks the whole configuration. Unknown backend tags are left
// for the store factory to reject.
func (c *Config) Validate() error {
	if err := c.ValidateBackend(); err != nil {
		return err
	}
	if c.Server.Sessions < 1 {
		return fmt.Errorf("%w: server.sessions must be at least 1", util.ErrInvalidConfig)
	}
	return nil
}

// ValidateBackend checks only the fields the selected backend needs.
func (c *Config) ValidateBackend() error {
	switch c.Backend {
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("%w: sqlite.path is required", util.ErrInvalidConfig)
		}
	case BackendPostgreSQL, "postgres":
		return c.PostgreSQL.validate(BackendPostgreSQL)
	case BackendMySQL:
		return c.MySQL.validate(BackendMySQL)
	}
	return nil
}

func (n NetworkConfig) validate(prefix string) error {
	switch {
	case n.Host == "":
		return fmt.Errorf("%w: %s.host is required", util.ErrInvalidConfig, prefix)
	case n.Database == "":
		return fmt.Errorf("%w: %s.database is required", util.ErrInvalidConfig, prefix)
	case n.Port <= 0 || n.Port > 65535:
		return fmt.Errorf("%w: %s.port %d is out of range", util.ErrInvalidConfig, prefix, n.Port)
	case n.Root == "":
		return fmt.Errorf("%w: %s.root is required", util.ErrInvalidConfig, prefix)
	}
	return nil
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	if c.PostgreSQL.Password != "" {
		c.PostgreSQL.Password = "********"
	}
	if c.MySQL.Password != "" {
		c.MySQL.Password = "********"
	}
	return c
}
