// Package syscall defines the contract between the interpreter's ecall exit
// and a host-side syscall dispatcher, and supplies one concrete dispatcher
// (LinuxDispatcher) implementing enough of the Linux RV64 ABI to run a
// static guest binary end to end.
package syscall

import (
	"fmt"
	"io"
	"os"

	"github.com/bassosimone/rv64emu/pkg/address"
	"github.com/bassosimone/rv64emu/pkg/machine"
	"github.com/bassosimone/rv64emu/pkg/mmu"
)

// Dispatcher services one ecall: a7 holds the syscall number, a0-a6 hold
// arguments, and the returned value is written into a0 by the caller.
// exitCode, when non-nil, tells the driver loop to stop running the
// guest and terminate the host process with the given code.
type Dispatcher interface {
	Dispatch(m *mmu.MMU, st *machine.State) (result uint64, exitCode *int, err error)
}

// Linux RV64 syscall numbers this dispatcher understands; anything else
// returns -ENOSYS rather than aborting the emulator.
const (
	sysRead      = 63
	sysWrite     = 64
	sysWritev    = 66
	sysExit      = 93
	sysExitGroup = 94
	sysBrk       = 214
)

// enosys is a variable rather than a constant so that uint64(enosys)
// wraps to the two's-complement bit pattern instead of failing to compile.
var enosys int64 = -38

// LinuxDispatcher implements Dispatcher against the host's real stdin,
// stdout and stderr, and wires brk straight into the guest MMU's bump
// allocator.
type LinuxDispatcher struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewLinuxDispatcher returns a dispatcher wired to the host's standard
// streams.
func NewLinuxDispatcher() *LinuxDispatcher {
	return &LinuxDispatcher{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (d *LinuxDispatcher) Dispatch(m *mmu.MMU, st *machine.State) (uint64, *int, error) {
	num := st.GPRegs[address.A7]
	a0 := st.GPRegs[address.A0]
	a1 := st.GPRegs[address.A1]
	a2 := st.GPRegs[address.A2]

	switch num {
	case sysExit, sysExitGroup:
		code := int(int32(a0))
		return 0, &code, nil

	case sysWrite:
		return d.write(m, a0, a1, a2)

	case sysRead:
		return d.read(m, a0, a1, a2)

	case sysWritev:
		return d.writev(m, a0, a1, a2)

	case sysBrk:
		return d.brk(m, a0)

	default:
		return uint64(enosys), nil, nil
	}
}

func (d *LinuxDispatcher) write(m *mmu.MMU, fd, addr, count uint64) (uint64, *int, error) {
	w := d.streamFor(fd)
	if w == nil {
		return uint64(enosys), nil, nil
	}
	buf := m.Read(addr, int(count))
	n, err := w.Write(buf)
	if err != nil {
		return ^uint64(0), nil, nil
	}
	return uint64(n), nil, nil
}

func (d *LinuxDispatcher) read(m *mmu.MMU, fd, addr, count uint64) (uint64, *int, error) {
	if fd != 0 || d.Stdin == nil {
		return uint64(enosys), nil, nil
	}
	buf := make([]byte, count)
	n, err := d.Stdin.Read(buf)
	if n > 0 {
		m.Write(addr, buf[:n])
	}
	if err != nil && err != io.EOF {
		return ^uint64(0), nil, nil
	}
	return uint64(n), nil, nil
}

// writev handles the common case of a guest flushing stdio through an
// iovec array: each entry is {base uint64, len uint64}, sixteen bytes.
func (d *LinuxDispatcher) writev(m *mmu.MMU, fd, iovAddr, iovcnt uint64) (uint64, *int, error) {
	w := d.streamFor(fd)
	if w == nil {
		return uint64(enosys), nil, nil
	}
	var total uint64
	for i := uint64(0); i < iovcnt; i++ {
		entry := m.Read(iovAddr+i*16, 16)
		base := le64(entry[0:8])
		length := le64(entry[8:16])
		if length == 0 {
			continue
		}
		buf := m.Read(base, int(length))
		n, err := w.Write(buf)
		total += uint64(n)
		if err != nil {
			break
		}
	}
	return total, nil, nil
}

// brk implements Linux's brk(2): addr is the requested absolute break, and
// addr == 0 queries the current break without changing it. The return value
// is always the resulting break (the new one on success, the unchanged one
// on failure), matching the kernel's "brk never returns an error code"
// contract.
func (d *LinuxDispatcher) brk(m *mmu.MMU, addr uint64) (uint64, *int, error) {
	current := m.Break()
	if addr == 0 || addr == current {
		return current, nil, nil
	}
	if _, err := m.Alloc(int64(addr) - int64(current)); err != nil {
		return current, nil, fmt.Errorf("syscall: brk: %w", err)
	}
	return addr, nil, nil
}

func (d *LinuxDispatcher) streamFor(fd uint64) io.Writer {
	switch fd {
	case 1:
		return d.Stdout
	case 2:
		return d.Stderr
	default:
		return nil
	}
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
