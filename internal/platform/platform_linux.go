//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

func allocate(f *os.File, size int64) error {
	return unix.Fallocate(int(f.Fd()), 0, 0, size)
}

// madvPopulateWrite is MADV_POPULATE_WRITE (Linux 5.14+).
const madvPopulateWrite = 23

// PrefaultWrite populates the pages of a writable mapping. Older kernels
// reject the advice with EINVAL, which is ignored.
func PrefaultWrite(region []byte) {
	if len(region) > 0 {
		_ = unix.Madvise(region, madvPopulateWrite)
	}
}

// AdviseSequential tells the kernel f will be read front to back.
func AdviseSequential(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
