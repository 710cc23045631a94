//go:build linux

package util

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Linux VFS magic numbers of network filesystems.
var networkMagic = map[uint32]string{
	0x6969:     "nfs",
	0xff534d42: "cifs",
	0xfe534d42: "smb2",
	0x517b:     "smb",
	0x01021994: "smbfs",
	0x564c:     "ncp",
}

var networkFSNames = []string{"nfs", "cifs", "smb", "ncpfs", "fuse.sshfs", "fuse.rclone", "9p"}

func detectPlatformNetwork(path string, stat *syscall.Statfs_t) (*NetworkInfo, error) {
	info := &NetworkInfo{}

	if proto, ok := networkMagic[uint32(stat.Type)]; ok {
		info.IsNetwork = true
		info.Protocol = proto
	}

	mounts, err := parseProcMounts()
	if err != nil {
		// magic number only
		return info, nil
	}

	mountPoint := longestMount(path, mounts)
	if mountPoint == "" {
		return info, nil
	}
	info.MountPath = mountPoint

	fsType := strings.ToLower(mounts[mountPoint])
	for _, name := range networkFSNames {
		if strings.Contains(fsType, name) {
			info.IsNetwork = true
			info.Protocol = fsType
			break
		}
	}
	return info, nil
}

// longestMount finds the mount point containing path.
func longestMount(path string, mounts map[string]string) string {
	best := ""
	for mountPoint := range mounts {
		if !within(path, mountPoint) {
			continue
		}
		if len(mountPoint) > len(best) {
			best = mountPoint
		}
	}
	return best
}

func within(path, dir string) bool {
	if dir == "/" {
		return strings.HasPrefix(path, "/")
	}
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

// parseProcMounts maps mount points to filesystem types.
func parseProcMounts() (map[string]string, error) {
	file, err := os.Open("/proc/mounts")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	mounts := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		// device mountpoint fstype options dump pass
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mounts[fields[1]] = fields[2]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mounts, nil
}
