package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// NetworkInfo describes the filesystem a path lives on.
type NetworkInfo struct {
	IsNetwork bool   // network-mounted (NFS, SMB/CIFS, sshfs, ...)
	Protocol  string // filesystem type, empty when local
	MountPath string // mount point, when known
}

// DetectNetworkFilesystem reports whether path lives on a network mount.
// The path does not have to exist: a database file that is about to be
// created is judged by the nearest directory above it that does.
func DetectNetworkFilesystem(path string) (*NetworkInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	existing, err := nearestExisting(absPath)
	if err != nil {
		return nil, err
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(existing, &stat); err != nil {
		return nil, fmt.Errorf("failed to stat filesystem of %s: %w", existing, err)
	}

	return detectPlatformNetwork(existing, &stat)
}

// IsNetworkPath is DetectNetworkFilesystem reduced to a bool; detection
// failures count as local.
func IsNetworkPath(path string) bool {
	info, err := DetectNetworkFilesystem(path)
	if err != nil {
		DebugLog("Network filesystem detection failed for %s: %v", path, err)
		return false
	}
	return info.IsNetwork
}

func nearestExisting(path string) (string, error) {
	for {
		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
		parent := filepath.Dir(path)
		if parent == path {
			return "", fmt.Errorf("no existing parent for %s: %w", path, err)
		}
		path = parent
	}
}
