package syscall

import (
	"bytes"
	"testing"

	"github.com/bassosimone/rv64emu/pkg/address"
	"github.com/bassosimone/rv64emu/pkg/machine"
	"github.com/bassosimone/rv64emu/pkg/mmu"
)

func TestDispatchExitReturnsCode(t *testing.T) {
	d := &LinuxDispatcher{}
	st := &machine.State{}
	st.GPRegs[address.A7] = sysExit
	st.GPRegs[address.A0] = 42
	_, code, err := d.Dispatch(nil, st)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if code == nil || *code != 42 {
		t.Fatalf("exit code = %v, want 42", code)
	}
}

func TestDispatchUnknownSyscallReturnsEnosys(t *testing.T) {
	d := &LinuxDispatcher{}
	st := &machine.State{}
	st.GPRegs[address.A7] = 0xdead
	result, code, err := d.Dispatch(nil, st)
	if err != nil || code != nil {
		t.Fatalf("unexpected code/err: %v %v", code, err)
	}
	if int64(result) != enosys {
		t.Fatalf("result = %d, want %d", int64(result), enosys)
	}
}

func TestDispatchBrkQueryReturnsCurrentBreak(t *testing.T) {
	d := &LinuxDispatcher{}
	var m mmu.MMU
	st := &machine.State{}
	st.GPRegs[address.A7] = sysBrk
	st.GPRegs[address.A0] = 0 // addr == 0 queries without changing the break
	result, code, err := d.Dispatch(&m, st)
	if err != nil || code != nil {
		t.Fatalf("unexpected code/err: %v %v", code, err)
	}
	if result != m.Break() {
		t.Fatalf("brk(0) = %#x, want current break %#x", result, m.Break())
	}
}

func TestStreamForStdoutStderr(t *testing.T) {
	var out, errBuf bytes.Buffer
	d := &LinuxDispatcher{Stdout: &out, Stderr: &errBuf}
	if d.streamFor(1) != &out {
		t.Fatal("fd 1 should route to Stdout")
	}
	if d.streamFor(2) != &errBuf {
		t.Fatal("fd 2 should route to Stderr")
	}
	if d.streamFor(3) != nil {
		t.Fatal("fd 3 should not route anywhere")
	}
}
