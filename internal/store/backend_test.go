package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/franz/mldb/internal/config"
	"github.com/franz/mldb/internal/util"
)

func sqliteConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Backend: config.BackendSQLite,
		SQLite:  config.SQLiteConfig{Path: filepath.Join(dir, "mldb.db"), Root: dir},
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, sqliteConfig(t))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("expected *SQLiteStore, got %T", s)
	}
	if !strings.HasPrefix(s.String(), "sqlite:///") {
		t.Errorf("unexpected description %s", s)
	}

	d, err := Open(ctx, &config.Config{Backend: config.BackendDummy})
	if err != nil {
		t.Fatalf("failed to open dummy: %v", err)
	}
	if d.String() != "DummyDB" {
		t.Errorf("expected DummyDB, got %s", d)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Backend: "oracle"})
	if !errors.Is(err, util.ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
	var unknown *UnknownBackendError
	if !errors.As(err, &unknown) || unknown.Kind != "oracle" {
		t.Errorf("expected UnknownBackendError naming oracle, got %#v", err)
	}
	if len(unknown.Known) != len(Backends()) {
		t.Errorf("expected known backends listed, got %v", unknown.Known)
	}
}

func TestOpenInvalidConfig(t *testing.T) {
	cfg := &config.Config{
		Backend:    "postgres",
		PostgreSQL: config.NetworkConfig{Database: "mldb", Port: 5432, Root: "/data"},
	}
	if _, err := Open(context.Background(), cfg); !errors.Is(err, util.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for missing host, got %v", err)
	}
}

func TestOpenUnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// nothing listens on port 1
	network := config.NetworkConfig{Host: "127.0.0.1", Port: 1, Database: "mldb", User: "mldb", Root: t.TempDir(), SSLMode: "disable"}
	for _, backend := range []string{config.BackendPostgreSQL, config.BackendMySQL} {
		t.Run(backend, func(t *testing.T) {
			cfg := &config.Config{Backend: backend, PostgreSQL: network, MySQL: network}
			_, err := Open(ctx, cfg)
			if !errors.Is(err, util.ErrConnection) {
				t.Fatalf("expected ErrConnection, got %v", err)
			}
			var connErr *ConnectionError
			if !errors.As(err, &connErr) || connErr.Backend != backend {
				t.Errorf("expected ConnectionError for %s, got %#v", backend, err)
			}
		})
	}
}

func TestWithClosesStore(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)

	var held ExperimentStore
	err := With(ctx, cfg, func(s ExperimentStore) error {
		held = s
		return s.SetStatus(ctx, "run", StatusTraining)
	})
	if err != nil {
		t.Fatalf("With failed: %v", err)
	}
	if _, err := held.GetStatus(ctx, "run"); !errors.Is(err, util.ErrConnection) {
		t.Errorf("expected store closed after With, got %v", err)
	}

	sentinel := errors.New("boom")
	if err := With(ctx, cfg, func(ExperimentStore) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("expected fn error returned, got %v", err)
	}
}

func TestWithClosesOnPanic(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)

	var held ExperimentStore
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = With(ctx, cfg, func(s ExperimentStore) error {
			held = s
			panic("training crashed")
		})
	}()

	if held == nil {
		t.Fatal("fn was not called")
	}
	if _, err := held.GetStatus(ctx, "run"); !errors.Is(err, util.ErrConnection) {
		t.Errorf("expected store closed after panic, got %v", err)
	}
}

func TestDummyStore(t *testing.T) {
	ctx := context.Background()
	d, err := NewDummyStore("")
	if err != nil {
		t.Fatal(err)
	}

	if err := d.SetStatus(ctx, "run", StatusTraining); err != nil {
		t.Errorf("SetStatus: %v", err)
	}
	if err := d.AddLoss(ctx, "run", "train", 0, 1); err != nil {
		t.Errorf("AddLoss: %v", err)
	}
	if res, err := d.AddStateFile(ctx, "run", 0, "/tmp/x.pt", true); err != nil || res != Inserted {
		t.Errorf("AddStateFile: %v, %v", res, err)
	}

	if _, err := d.GetStatus(ctx, "run"); !errors.Is(err, util.ErrNoData) {
		t.Errorf("expected ErrNoData from GetStatus, got %v", err)
	}
	if latest, err := d.GetLatestMetrics(ctx, "run"); err != nil || latest == nil || !latest.Empty() {
		t.Errorf("expected no latest metrics, got %v, %v", latest, err)
	}
	if groups, err := d.GetGroupsOfExp(ctx, "run"); err != nil || len(groups) != 0 {
		t.Errorf("expected no groups, got %v, %v", groups, err)
	}

	err = d.AddQualitativeResult(ctx, "run", 0, "p", struct{}{}, nil, nil)
	if !errors.Is(err, util.ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType from dummy, got %v", err)
	}
}

func TestBackends(t *testing.T) {
	want := []string{"dummy", "mysql", "postgresql", "sqlite"}
	got := Backends()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}
