// Package mmu implements the guest memory manager: ELF64 loading, a bump
// allocator for the guest heap and stack, and the raw memory access
// primitives the interpreter uses for loads and stores.
//
// Every guest address is mapped into the host's address space at a fixed
// offset (see pkg/address); this package never walks page tables, it just
// mmaps the right host pages and lets the host MMU do the rest.
package mmu

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/bassosimone/rv64emu/pkg/address"
	"github.com/bassosimone/rv64emu/pkg/emuerr"
)

// MMU owns the guest address space of a single running program.
type MMU struct {
	// Entry is the ELF entry point, in guest address space.
	Entry uint64

	// base is the guest address where the heap/stack bump allocator
	// starts handing out memory: the first guest address past every
	// PT_LOAD segment.
	base uint64

	// guestAlloc is the current bump-allocator watermark, in guest
	// address space; it only ever moves forward from base, though it can
	// retreat back toward base when callers free memory (negative size
	// passed to Alloc).
	guestAlloc uint64

	// hostAlloc is the host address backing guestAlloc: the high-water
	// mark of host pages that are currently mmapped for the bump
	// allocator region.
	hostAlloc uint64
}

// LoadELF opens path, validates it is a RISCV64 ELF executable, and maps
// every PT_LOAD segment into the guest address space. It mirrors
// mmu_load_elf/mmu_load_segment from the reference loader.
func (m *MMU) LoadELF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("mmu: open %s: %w", path, err)
	}
	defer f.Close()

	ehdr, err := readEhdr(f)
	if err != nil {
		return emuerr.Fatalf(emuerr.ErrInvalidElf, "%s: file too small", path)
	}
	if !ehdr.validMagic() {
		return emuerr.Fatalf(emuerr.ErrInvalidElf, "%s: bad elf magic", path)
	}
	if ehdr.Machine != emRiscv || ehdr.class() != elfClass64 {
		return emuerr.Fatalf(emuerr.ErrInvalidElf, "%s: only riscv64 elf supported", path)
	}

	m.Entry = ehdr.Entry

	for i := 0; i < int(ehdr.Phnum); i++ {
		phdr, err := readPhdr(f, ehdr, i)
		if err != nil {
			return emuerr.Fatalf(emuerr.ErrInvalidElf, "%s: file too small", path)
		}
		if phdr.Type != ptLoad {
			continue
		}
		if err := m.loadSegment(phdr, int(f.Fd())); err != nil {
			return err
		}
	}
	return nil
}

// loadSegment maps one PT_LOAD segment: the file-backed portion via a
// MAP_FIXED mapping of the ELF file itself, and any remaining .bss portion
// (memsz beyond filesz) via an anonymous zero-filled mapping.
//
// p_vaddr is not guaranteed to be page-aligned, so the mapping is widened
// to the containing page and filesz/memsz are grown by the same slack so
// the mapped region still fully covers [p_vaddr, p_vaddr+p_filesz).
func (m *MMU) loadSegment(phdr elf64Phdr, fd int) error {
	pgsz := pageSize()
	hostVaddr := address.ToHost(phdr.Vaddr)
	alignedVaddr := address.RoundDown(hostVaddr, pgsz)
	slack := hostVaddr - alignedVaddr
	filesz := phdr.Filesz + slack
	memsz := phdr.Memsz + slack

	prot := flagsToProt(phdr.Flags)
	fileOffset := int64(address.RoundDown(phdr.Offset, pgsz))
	if err := mmapAt(alignedVaddr, filesz, prot, unix.MAP_PRIVATE|unix.MAP_FIXED, fd, fileOffset); err != nil {
		return emuerr.Fatalf(emuerr.ErrMmapFailure, "mmap segment at %#x: %v", alignedVaddr, err)
	}

	remainingBSS := address.RoundUp(memsz, pgsz) - address.RoundUp(filesz, pgsz)
	if remainingBSS > 0 {
		bssAddr := alignedVaddr + address.RoundUp(filesz, pgsz)
		if err := mmapAt(bssAddr, remainingBSS, prot, unix.MAP_ANON|unix.MAP_PRIVATE|unix.MAP_FIXED, -1, 0); err != nil {
			return emuerr.Fatalf(emuerr.ErrMmapFailure, "mmap bss at %#x: %v", bssAddr, err)
		}
	}

	top := alignedVaddr + address.RoundUp(memsz, pgsz)
	if top > m.hostAlloc {
		m.hostAlloc = top
	}
	m.base = address.ToGuest(m.hostAlloc)
	m.guestAlloc = m.base
	return nil
}

// Break returns the current guest-visible program break: the bump
// allocator's watermark, in guest address space.
func (m *MMU) Break() uint64 {
	return m.guestAlloc
}

// Alloc grows (size > 0) or shrinks (size < 0) the bump-allocated region by
// size bytes and returns the guest address that was the watermark before
// the adjustment. This mirrors mmu_alloc, including the correction of the
// upstream implementation's documented bug: shrinking unmaps the pages that
// actually became unused (the high end of the region), not the pages that
// are still in use.
func (m *MMU) Alloc(size int64) (uint64, error) {
	pgsz := pageSize()
	base := m.guestAlloc
	m.guestAlloc = uint64(int64(m.guestAlloc) + size)

	switch {
	case size > 0 && m.guestAlloc > address.ToGuest(m.hostAlloc):
		allocSize := address.RoundUp(uint64(size), pgsz)
		if err := mmapAt(m.hostAlloc, allocSize, protRead|protWrite,
			unix.MAP_ANON|unix.MAP_PRIVATE, -1, 0); err != nil {
			return 0, emuerr.Fatalf(emuerr.ErrMmapFailure, "mmap failed in mmu alloc: %v", err)
		}
		m.hostAlloc += allocSize

	case size < 0 && address.RoundUp(m.guestAlloc, pgsz) < address.ToGuest(m.hostAlloc):
		munmapSize := address.ToGuest(m.hostAlloc) - address.RoundUp(m.guestAlloc, pgsz)
		if err := munmapAt(m.hostAlloc-munmapSize, munmapSize); err != nil {
			return 0, emuerr.Fatalf(emuerr.ErrMmapFailure, "munmap failed in mmu alloc: %v", err)
		}
		m.hostAlloc -= munmapSize
	}

	return base, nil
}

// Write copies data into guest memory starting at addr.
func (m *MMU) Write(addr uint64, data []byte) {
	dst := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(address.ToHost(addr)))), len(data))
	copy(dst, data)
}

// Read returns a copy of n bytes of guest memory starting at addr.
func (m *MMU) Read(addr uint64, n int) []byte {
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(address.ToHost(addr)))), n)
	out := make([]byte, n)
	copy(out, src)
	return out
}

// ReadUint32 reads a little-endian uint32 from guest memory, used by the
// decoder to fetch raw instruction words.
func (m *MMU) ReadUint32(addr uint64) uint32 {
	return binary.LittleEndian.Uint32(m.Read(addr, 4))
}

const stackSize = 32 * 1024 * 1024 // 32MiB, matching the reference loader

// SetupStack allocates the guest stack and lays out argc, argv, envp and
// auxv on it in the order a Linux kernel uses for a freshly exec'd static
// binary, and returns the initial stack pointer. argc is len(argv), but no
// pointer is written for argv[0]: the pointer array starts at argv[1]. envp
// and auxv are written as empty
// (single null terminator) since this emulator does not forward a host
// environment or auxiliary vector to the guest.
func (m *MMU) SetupStack(argv []string) (uint64, error) {
	top, err := m.Alloc(stackSize)
	if err != nil {
		return 0, err
	}
	sp := top + stackSize

	sp -= 8 // auxv terminator
	m.Write(sp, make([]byte, 8))
	sp -= 8 // envp terminator
	m.Write(sp, make([]byte, 8))
	sp -= 8 // argv terminator
	m.Write(sp, make([]byte, 8))

	for i := len(argv) - 1; i >= 1; i-- {
		s := argv[i]
		addr, err := m.Alloc(int64(len(s) + 1))
		if err != nil {
			return 0, err
		}
		buf := make([]byte, len(s)+1)
		copy(buf, s)
		m.Write(addr, buf)

		sp -= 8
		var ptrBuf [8]byte
		binary.LittleEndian.PutUint64(ptrBuf[:], addr)
		m.Write(sp, ptrBuf[:])
	}

	sp -= 8
	var argcBuf [8]byte
	binary.LittleEndian.PutUint64(argcBuf[:], uint64(len(argv)))
	m.Write(sp, argcBuf[:])

	return sp, nil
}
