package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectNetworkFilesystem(t *testing.T) {
	tmpDir := t.TempDir()

	info, err := DetectNetworkFilesystem(tmpDir)
	if err != nil {
		t.Fatalf("DetectNetworkFilesystem failed: %v", err)
	}

	// Can't assert locality: tests might run on network storage
	if info.IsNetwork {
		t.Logf("Temp directory is on network storage (%s)", info.Protocol)
	}
}

func TestDetectNetworkFilesystem_MissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "not", "yet", "created.db")

	missing, err := DetectNetworkFilesystem(dbPath)
	if err != nil {
		t.Fatalf("DetectNetworkFilesystem failed for a path to be created: %v", err)
	}

	parent, err := DetectNetworkFilesystem(tmpDir)
	if err != nil {
		t.Fatalf("DetectNetworkFilesystem failed: %v", err)
	}

	if missing.IsNetwork != parent.IsNetwork {
		t.Errorf("missing path judged differently from its parent: %v vs %v", missing.IsNetwork, parent.IsNetwork)
	}
}

func TestNearestExisting(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "mldb.db")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"existing file", file, file},
		{"missing file", filepath.Join(tmpDir, "other.db"), tmpDir},
		{"missing tree", filepath.Join(tmpDir, "a", "b", "c.db"), tmpDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nearestExisting(tt.path)
			if err != nil {
				t.Fatalf("nearestExisting failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("nearestExisting(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsNetworkPath(t *testing.T) {
	// only checks that detection does not panic on odd input
	_ = IsNetworkPath("")
	_ = IsNetworkPath(t.TempDir())
}
