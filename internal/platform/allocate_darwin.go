//go:build darwin

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

func allocate(f *os.File, size int64) error {
	fst := unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL,
		Posmode: unix.F_PEOFPOSMODE,
		Length:  size,
	}
	return unix.FcntlFstore(f.Fd(), unix.F_PREALLOCATE, &fst)
}
