package util

import "syscall"

// IsSameFilesystem reports whether a and b live on the same device. Paths
// that do not exist yet are judged by their nearest existing parent, so a
// database file that will be created on first use can still be compared
// with its storage root.
func IsSameFilesystem(a, b string) (bool, error) {
	devA, err := deviceOf(a)
	if err != nil {
		return false, err
	}
	devB, err := deviceOf(b)
	if err != nil {
		return false, err
	}
	return devA == devB, nil
}

func deviceOf(path string) (uint64, error) {
	existing, err := nearestExisting(path)
	if err != nil {
		return 0, err
	}
	var st syscall.Stat_t
	if err := syscall.Stat(existing, &st); err != nil {
		return 0, err
	}
	return uint64(st.Dev), nil
}
