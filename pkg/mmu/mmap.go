package mmu

import "golang.org/x/sys/unix"

// Thin aliases over golang.org/x/sys/unix so the rest of the package reads
// in terms of POSIX protection names without importing unix everywhere.
const (
	protRead  = unix.PROT_READ
	protWrite = unix.PROT_WRITE
	protExec  = unix.PROT_EXEC
)

func pageSize() uint64 {
	return uint64(unix.Getpagesize())
}

// mmapAt maps memory at the fixed host address addr. unix.Mmap only ever
// returns a Go-managed slice at an address the kernel picks, which is no
// good here: the MMU needs every guest segment to land at a precise,
// pre-computed host address (guest address plus the fixed offset), so this
// goes straight to the raw mmap(2) syscall the way unix.Mmap itself is
// implemented internally.
func mmapAt(addr, length uint64, prot int, flags int, fd int, offset int64) error {
	ret, _, errno := unix.Syscall6(unix.SYS_MMAP,
		uintptr(addr), uintptr(length), uintptr(prot), uintptr(flags),
		uintptr(fd), uintptr(offset))
	if errno != 0 {
		return errno
	}
	if ret != uintptr(addr) {
		// Without MAP_FIXED (as in Alloc) the kernel treats addr only as
		// a hint and may pick a different address; treat that as a
		// mapping failure rather than silently using the wrong region.
		unix.Syscall(unix.SYS_MUNMAP, ret, uintptr(length), 0)
		return unix.EINVAL
	}
	return nil
}

func munmapAt(addr, length uint64) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, uintptr(addr), uintptr(length), 0)
	if errno != 0 {
		return errno
	}
	return nil
}
