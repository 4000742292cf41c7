package mmu

import (
	"encoding/binary"
	"io"
)

// ELF64 constants, decoded directly from the raw on-disk header layout
// rather than through debug/elf, so the loader below can reproduce the
// reference loader's field-level alignment arithmetic exactly.
const (
	elfMagic0 = 0x7f
	elfMagic1 = 'E'
	elfMagic2 = 'L'
	elfMagic3 = 'F'

	elfClass64 = 2
	emRiscv    = 243

	ptLoad = 1

	pfX = 1
	pfW = 2
	pfR = 4

	ehdrSize = 64
	phdrSize = 56
)

// elf64Ehdr mirrors Elf64_Ehdr.
type elf64Ehdr struct {
	Ident     [16]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	Phoff     uint64
	Shoff     uint64
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

// elf64Phdr mirrors Elf64_Phdr.
type elf64Phdr struct {
	Type   uint32
	Flags  uint32
	Offset uint64
	Vaddr  uint64
	Paddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64
}

func readEhdr(r io.ReaderAt) (elf64Ehdr, error) {
	var buf [ehdrSize]byte
	if _, err := r.ReadAt(buf[:], 0); err != nil {
		return elf64Ehdr{}, err
	}
	var h elf64Ehdr
	copy(h.Ident[:], buf[0:16])
	h.Type = binary.LittleEndian.Uint16(buf[16:18])
	h.Machine = binary.LittleEndian.Uint16(buf[18:20])
	h.Version = binary.LittleEndian.Uint32(buf[20:24])
	h.Entry = binary.LittleEndian.Uint64(buf[24:32])
	h.Phoff = binary.LittleEndian.Uint64(buf[32:40])
	h.Shoff = binary.LittleEndian.Uint64(buf[40:48])
	h.Flags = binary.LittleEndian.Uint32(buf[48:52])
	h.Ehsize = binary.LittleEndian.Uint16(buf[52:54])
	h.Phentsize = binary.LittleEndian.Uint16(buf[54:56])
	h.Phnum = binary.LittleEndian.Uint16(buf[56:58])
	h.Shentsize = binary.LittleEndian.Uint16(buf[58:60])
	h.Shnum = binary.LittleEndian.Uint16(buf[60:62])
	h.Shstrndx = binary.LittleEndian.Uint16(buf[62:64])
	return h, nil
}

func (h elf64Ehdr) validMagic() bool {
	return h.Ident[0] == elfMagic0 && h.Ident[1] == elfMagic1 &&
		h.Ident[2] == elfMagic2 && h.Ident[3] == elfMagic3
}

// eiClass is byte offset 4 of e_ident.
func (h elf64Ehdr) class() byte { return h.Ident[4] }

func readPhdr(r io.ReaderAt, ehdr elf64Ehdr, i int) (elf64Phdr, error) {
	off := int64(ehdr.Phoff) + int64(ehdr.Phentsize)*int64(i)
	var buf [phdrSize]byte
	if _, err := r.ReadAt(buf[:], off); err != nil {
		return elf64Phdr{}, err
	}
	var p elf64Phdr
	p.Type = binary.LittleEndian.Uint32(buf[0:4])
	p.Flags = binary.LittleEndian.Uint32(buf[4:8])
	p.Offset = binary.LittleEndian.Uint64(buf[8:16])
	p.Vaddr = binary.LittleEndian.Uint64(buf[16:24])
	p.Paddr = binary.LittleEndian.Uint64(buf[24:32])
	p.Filesz = binary.LittleEndian.Uint64(buf[32:40])
	p.Memsz = binary.LittleEndian.Uint64(buf[40:48])
	p.Align = binary.LittleEndian.Uint64(buf[48:56])
	return p, nil
}

func flagsToProt(flags uint32) int {
	prot := 0
	if flags&pfR != 0 {
		prot |= protRead
	}
	if flags&pfW != 0 {
		prot |= protWrite
	}
	if flags&pfX != 0 {
		prot |= protExec
	}
	return prot
}
