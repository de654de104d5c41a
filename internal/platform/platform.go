// Package platform wraps the OS hints used around table files and key
// files: block reservation before a file is mapped for writing, write
// prefaulting of a fresh mapping, and sequential read-ahead advice.
//
// Every hint degrades to a plain truncate or a no-op where the OS has no
// equivalent.
package platform

import "os"

// Reserve sets the size of f to size and, where supported, allocates its
// blocks up front. A mapping of a reserved file cannot fault with SIGBUS
// because the disk filled up after mapping.
func Reserve(f *os.File, size int64) error {
	// Allocation is best-effort: NFS and some other filesystems lack it, and
	// Truncate alone still yields a file of the right size there.
	_ = allocate(f, size)
	return f.Truncate(size)
}
