//go:build darwin

package util

import (
	"strings"
	"syscall"
)

var darwinNetworkFS = []string{"nfs", "smbfs", "afpfs", "cifs", "webdav", "osxfuse", "macfuse"}

// On macOS statfs carries the filesystem type name and mount point.
func detectPlatformNetwork(path string, stat *syscall.Statfs_t) (*NetworkInfo, error) {
	info := &NetworkInfo{MountPath: cString(stat.Mntonname[:])}

	fsType := strings.ToLower(cString(stat.Fstypename[:]))
	for _, name := range darwinNetworkFS {
		if strings.Contains(fsType, name) {
			info.IsNetwork = true
			info.Protocol = fsType
			break
		}
	}
	return info, nil
}

func cString(arr []int8) string {
	b := make([]byte, 0, len(arr))
	for _, c := range arr {
		if c == 0 {
			break
		}
		b = append(b, byte(c))
	}
	return string(b)
}
