//go:build linux || darwin

package sandbox

import "golang.org/x/sys/unix"

func limitAddressSpace(bytes uint64) error {
	var current unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_AS, &current); err != nil {
		return err
	}
	limit := unix.Rlimit{Cur: bytes, Max: current.Max}
	if bytes > current.Max {
		limit.Cur = current.Max
	}
	return unix.Setrlimit(unix.RLIMIT_AS, &limit)
}
