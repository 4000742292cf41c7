package mmu

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/bassosimone/rv64emu/pkg/address"
)

func TestAllocInvariant(t *testing.T) {
	var m MMU
	// Establish a base the way loadSegment would, without actually
	// mapping an ELF: pretend one page of program image is already
	// resident so Alloc has a host_alloc watermark to grow from. The
	// guest watermark has to correspond to the real host address via
	// the fixed offset, or Read/Write will dereference the wrong page.
	// Alloc maps at hostAlloc without MAP_FIXED, so the page above the
	// pretend image must be free: reserve two pages and release the upper.
	pgsz := pageSize()
	addr, err := reserveAnon(2 * pgsz)
	if err != nil {
		t.Skipf("anonymous mmap unavailable in this sandbox: %v", err)
	}
	if err := munmapAt(addr+pgsz, pgsz); err != nil {
		t.Fatalf("munmap: %v", err)
	}
	m.hostAlloc = addr + pgsz
	m.base = address.ToGuest(m.hostAlloc)
	m.guestAlloc = m.base

	base, err := m.Alloc(4096)
	if err != nil {
		t.Fatalf("Alloc(4096): %v", err)
	}
	if base != m.base {
		t.Fatalf("first Alloc watermark = %#x, want %#x", base, m.base)
	}

	buf := []byte{1, 2, 3, 4}
	m.Write(base, buf)
	got := m.Read(base, len(buf))
	for i := range buf {
		if got[i] != buf[i] {
			t.Fatalf("Read after Write mismatch at %d: got %v want %v", i, got, buf)
		}
	}
}

// reserveAnon mmaps a throwaway anonymous region so tests that need a real
// host address to build on don't have to load an actual ELF file.
func reserveAnon(size uint64) (uint64, error) {
	ret, _, errno := unix.Syscall6(unix.SYS_MMAP, 0, uintptr(size),
		uintptr(protRead|protWrite), uintptr(unix.MAP_ANON|unix.MAP_PRIVATE), ^uintptr(0), 0)
	if errno != 0 {
		return 0, errno
	}
	return uint64(ret), nil
}
