package interp

import (
	"math"
	"testing"

	"github.com/bassosimone/rv64emu/pkg/decoder"
	"github.com/bassosimone/rv64emu/pkg/machine"
)

func TestGPZeroInvariant(t *testing.T) {
	st := &machine.State{}
	inst := &decoder.Inst{Type: decoder.InstAddi, Rd: 0, Rs1: 0, Imm: 5}
	funcs[inst.Type](st, nil, inst)
	st.ClearZero()
	if st.GPRegs[0] != 0 {
		t.Fatalf("x0 = %d, want 0", st.GPRegs[0])
	}
}

func TestDivOverflow(t *testing.T) {
	st := &machine.State{}
	st.GPRegs[1] = 1 << 63    // MinInt64
	st.GPRegs[2] = ^uint64(0) // -1
	inst := &decoder.Inst{Rd: 3, Rs1: 1, Rs2: 2}
	execDiv(st, nil, inst)
	if int64(st.GPRegs[3]) != math_MinInt64 {
		t.Fatalf("div overflow = %d, want MinInt64", int64(st.GPRegs[3]))
	}
}

func TestDivByZero(t *testing.T) {
	st := &machine.State{}
	st.GPRegs[1] = 42
	st.GPRegs[2] = 0
	inst := &decoder.Inst{Rd: 3, Rs1: 1, Rs2: 2}
	execDiv(st, nil, inst)
	if int64(st.GPRegs[3]) != -1 {
		t.Fatalf("div by zero = %d, want -1", int64(st.GPRegs[3]))
	}
}

func TestDivuByZero(t *testing.T) {
	st := &machine.State{}
	st.GPRegs[1] = 42
	st.GPRegs[2] = 0
	inst := &decoder.Inst{Rd: 3, Rs1: 1, Rs2: 2}
	execDivu(st, nil, inst)
	if st.GPRegs[3] != ^uint64(0) {
		t.Fatalf("divu by zero = %#x, want all-ones", st.GPRegs[3])
	}
}

func TestRemByZeroReturnsDividend(t *testing.T) {
	st := &machine.State{}
	st.GPRegs[1] = 99
	st.GPRegs[2] = 0
	inst := &decoder.Inst{Rd: 3, Rs1: 1, Rs2: 2}
	execRem(st, nil, inst)
	if int64(st.GPRegs[3]) != 99 {
		t.Fatalf("rem by zero = %d, want 99", int64(st.GPRegs[3]))
	}
}

func TestRemOverflowReturnsZero(t *testing.T) {
	st := &machine.State{}
	st.GPRegs[1] = 1 << 63    // MinInt64
	st.GPRegs[2] = ^uint64(0) // -1
	inst := &decoder.Inst{Rd: 3, Rs1: 1, Rs2: 2}
	execRem(st, nil, inst)
	if st.GPRegs[3] != 0 {
		t.Fatalf("rem overflow = %d, want 0", st.GPRegs[3])
	}
}

func TestSraiArithmeticShift(t *testing.T) {
	st := &machine.State{}
	st.GPRegs[1] = ^uint64(7) // -8
	inst := &decoder.Inst{Rd: 2, Rs1: 1, Imm: 1}
	execAlu(func(a, b int64) int64 { return a >> uint(b&0x3f) })(st, nil, inst)
	if int64(st.GPRegs[2]) != -4 {
		t.Fatalf("srai = %d, want -4", int64(st.GPRegs[2]))
	}
}

func TestAuipcLaw(t *testing.T) {
	st := &machine.State{PC: 0x1000}
	inst := &decoder.Inst{Rd: 1, Imm: 0x2000}
	execAuipc(st, nil, inst)
	if st.GPRegs[1] != 0x3000 {
		t.Fatalf("auipc = %#x, want 0x3000", st.GPRegs[1])
	}
}

func TestBeqNotTakenNoExitReason(t *testing.T) {
	st := &machine.State{PC: 0x1000}
	inst := &decoder.Inst{Rs1: 1, Rs2: 2, Imm: 16}
	st.GPRegs[1], st.GPRegs[2] = 1, 2
	execBranch(func(a, b uint64) bool { return a == b })(st, nil, inst)
	if inst.ContinueExec {
		t.Fatal("not-taken branch must not set ContinueExec")
	}
	if st.ExitReason != machine.ExitNone {
		t.Fatal("not-taken branch must not set ExitReason")
	}
}

func TestBeqTakenSetsExit(t *testing.T) {
	st := &machine.State{PC: 0x1000}
	inst := &decoder.Inst{Rs1: 1, Rs2: 2, Imm: 16}
	st.GPRegs[1], st.GPRegs[2] = 5, 5
	execBranch(func(a, b uint64) bool { return a == b })(st, nil, inst)
	if !inst.ContinueExec || st.ExitReason != machine.ExitDirectBranch {
		t.Fatal("taken branch must set ContinueExec and ExitDirectBranch")
	}
	if st.PC != 0x1010 {
		t.Fatalf("PC = %#x, want 0x1010", st.PC)
	}
}

func TestJalSetsReturnAddress(t *testing.T) {
	st := &machine.State{PC: 0x2000}
	inst := &decoder.Inst{Rd: 1, Imm: 0x100, Rvc: false}
	execJal(st, nil, inst)
	if st.GPRegs[1] != 0x2004 {
		t.Fatalf("ra = %#x, want 0x2004", st.GPRegs[1])
	}
	if st.ReenterPC != 0x2100 || st.ExitReason != machine.ExitDirectBranch {
		t.Fatal("jal must set ReenterPC and ExitDirectBranch")
	}
}

func TestFaddSNaNBoxed(t *testing.T) {
	st := &machine.State{}
	setFs(st, 1, 1.5)
	setFs(st, 2, 2.5)
	inst := &decoder.Inst{Rd: 3, Rs1: 1, Rs2: 2}
	fBinS(func(a, b float32) float32 { return a + b })(st, nil, inst)
	if fs(st, 3) != 4.0 {
		t.Fatalf("fadd.s = %v, want 4.0", fs(st, 3))
	}
	if st.FPRegs[3].Bits>>32 != 0xffffffff {
		t.Fatal("single precision result must be NaN-boxed")
	}
}

func TestFclassPosInf(t *testing.T) {
	st := &machine.State{}
	setFs(st, 1, float32(math.Inf(1)))
	inst := &decoder.Inst{Rd: 2, Rs1: 1}
	execFclassS(st, nil, inst)
	if st.GPRegs[2] != fclassPosInf {
		t.Fatalf("fclass.s(+inf) = %#x, want %#x", st.GPRegs[2], fclassPosInf)
	}
}

func TestFcvtWSSaturatesOnNaN(t *testing.T) {
	st := &machine.State{}
	setFs(st, 1, float32(math.NaN()))
	inst := &decoder.Inst{Rd: 2, Rs1: 1}
	execFcvtWS(st, nil, inst)
	if int32(st.GPRegs[2]) != math.MaxInt32 {
		t.Fatalf("fcvt.w.s(NaN) = %d, want MaxInt32", int32(st.GPRegs[2]))
	}
}

func TestFcvtWSSaturatesOnOverflow(t *testing.T) {
	st := &machine.State{}
	setFs(st, 1, 1e20)
	inst := &decoder.Inst{Rd: 2, Rs1: 1}
	execFcvtWS(st, nil, inst)
	if int32(st.GPRegs[2]) != math.MaxInt32 {
		t.Fatalf("fcvt.w.s(1e20) = %d, want MaxInt32", int32(st.GPRegs[2]))
	}
}

func TestFmvXWNoSignExtensionLoss(t *testing.T) {
	st := &machine.State{}
	st.FPRegs[1].StoreSingle(0x80000000) // -0.0f bit pattern
	inst := &decoder.Inst{Rd: 2, Rs1: 1}
	execFmvXW(st, nil, inst)
	if st.GPRegs[2] != 0xffffffff80000000 {
		t.Fatalf("fmv.x.w = %#x, want sign-extended -0.0f bits", st.GPRegs[2])
	}
}
