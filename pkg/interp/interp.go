// Package interp implements the RV64IMFD interpreter: one exec routine per
// decoder.Type, a dispatch table indexed by Type, and the block loop that
// keeps executing instructions until one of them ends the block (a taken
// branch, jal/jalr, or an ecall).
package interp

import (
	"github.com/bassosimone/rv64emu/pkg/decoder"
	"github.com/bassosimone/rv64emu/pkg/machine"
	"github.com/bassosimone/rv64emu/pkg/mmu"
)

type execFunc func(*machine.State, *mmu.MMU, *decoder.Inst)

// funcs is indexed by decoder.Type and mirrors the reference interpreter's
// funcs[] dispatch table one-for-one.
var funcs [decoder.NumTypes]execFunc

func init() {
	funcs[decoder.InstLb] = execLoad(1, true)
	funcs[decoder.InstLh] = execLoad(2, true)
	funcs[decoder.InstLw] = execLoad(4, true)
	funcs[decoder.InstLd] = execLoad(8, true)
	funcs[decoder.InstLbu] = execLoad(1, false)
	funcs[decoder.InstLhu] = execLoad(2, false)
	funcs[decoder.InstLwu] = execLoad(4, false)
	funcs[decoder.InstFence] = execEmpty
	funcs[decoder.InstFenceI] = execEmpty

	funcs[decoder.InstAddi] = execAlu(func(a, b int64) int64 { return a + b })
	funcs[decoder.InstSlli] = execAlu(func(a, b int64) int64 { return a << uint(b&0x3f) })
	funcs[decoder.InstSlti] = execAluBool(func(a, b int64) bool { return a < b })
	funcs[decoder.InstSltiu] = execAluBoolU(func(a, b uint64) bool { return a < b })
	funcs[decoder.InstXori] = execAlu(func(a, b int64) int64 { return a ^ b })
	funcs[decoder.InstSrli] = execAluU(func(a, b uint64) uint64 { return a >> (b & 0x3f) })
	funcs[decoder.InstSrai] = execAlu(func(a, b int64) int64 { return a >> uint(b&0x3f) })
	funcs[decoder.InstOri] = execAlu(func(a, b int64) int64 { return a | b })
	funcs[decoder.InstAndi] = execAlu(func(a, b int64) int64 { return a & b })
	funcs[decoder.InstAuipc] = execAuipc
	funcs[decoder.InstAddiw] = execAluW(func(a, b int32) int32 { return a + b })
	funcs[decoder.InstSlliw] = execAluW(func(a, b int32) int32 { return a << uint(b&0x1f) })
	funcs[decoder.InstSrliw] = execAluWU(func(a, b uint32) uint32 { return a >> (b & 0x1f) })
	funcs[decoder.InstSraiw] = execAluW(func(a, b int32) int32 { return a >> uint(b&0x1f) })

	funcs[decoder.InstSb] = execStore(1)
	funcs[decoder.InstSh] = execStore(2)
	funcs[decoder.InstSw] = execStore(4)
	funcs[decoder.InstSd] = execStore(8)

	funcs[decoder.InstAdd] = execRR(func(a, b int64) int64 { return a + b })
	funcs[decoder.InstSll] = execRR(func(a, b int64) int64 { return a << uint(b&0x3f) })
	funcs[decoder.InstSlt] = execRRBool(func(a, b int64) bool { return a < b })
	funcs[decoder.InstSltu] = execRRBoolU(func(a, b uint64) bool { return a < b })
	funcs[decoder.InstXor] = execRR(func(a, b int64) int64 { return a ^ b })
	funcs[decoder.InstSrl] = execRRU(func(a, b uint64) uint64 { return a >> (b & 0x3f) })
	funcs[decoder.InstOr] = execRR(func(a, b int64) int64 { return a | b })
	funcs[decoder.InstAnd] = execRR(func(a, b int64) int64 { return a & b })
	funcs[decoder.InstMul] = execRRU(func(a, b uint64) uint64 { return a * b })
	funcs[decoder.InstMulh] = execMulh
	funcs[decoder.InstMulhsu] = execMulhsu
	funcs[decoder.InstMulhu] = execMulhu
	funcs[decoder.InstDiv] = execDiv
	funcs[decoder.InstDivu] = execDivu
	funcs[decoder.InstRem] = execRem
	funcs[decoder.InstRemu] = execRemu
	funcs[decoder.InstSub] = execRR(func(a, b int64) int64 { return a - b })
	funcs[decoder.InstSra] = execRR(func(a, b int64) int64 { return a >> uint(b&0x3f) })
	funcs[decoder.InstLui] = execLui

	funcs[decoder.InstAddw] = execRRW(func(a, b int32) int32 { return a + b })
	funcs[decoder.InstSllw] = execRRW(func(a, b int32) int32 { return a << uint(b&0x1f) })
	funcs[decoder.InstSrlw] = execRRWU(func(a, b uint32) uint32 { return a >> (b & 0x1f) })
	funcs[decoder.InstMulw] = execRRW(func(a, b int32) int32 { return a * b })
	funcs[decoder.InstDivw] = execDivw
	funcs[decoder.InstDivuw] = execDivuw
	funcs[decoder.InstRemw] = execRemw
	funcs[decoder.InstRemuw] = execRemuw
	funcs[decoder.InstSubw] = execRRW(func(a, b int32) int32 { return a - b })
	funcs[decoder.InstSraw] = execRRW(func(a, b int32) int32 { return a >> uint(b&0x1f) })

	funcs[decoder.InstBeq] = execBranch(func(a, b uint64) bool { return a == b })
	funcs[decoder.InstBne] = execBranch(func(a, b uint64) bool { return a != b })
	funcs[decoder.InstBlt] = execBranchS(func(a, b int64) bool { return a < b })
	funcs[decoder.InstBge] = execBranchS(func(a, b int64) bool { return a >= b })
	funcs[decoder.InstBltu] = execBranch(func(a, b uint64) bool { return a < b })
	funcs[decoder.InstBgeu] = execBranch(func(a, b uint64) bool { return a >= b })

	funcs[decoder.InstJalr] = execJalr
	funcs[decoder.InstJal] = execJal
	funcs[decoder.InstEcall] = execEcall

	funcs[decoder.InstCsrrw] = execCsr
	funcs[decoder.InstCsrrs] = execCsr
	funcs[decoder.InstCsrrc] = execCsr
	funcs[decoder.InstCsrrwi] = execCsr
	funcs[decoder.InstCsrrsi] = execCsr
	funcs[decoder.InstCsrrci] = execCsr

	registerFloatFuncs()
}

func execEmpty(*machine.State, *mmu.MMU, *decoder.Inst) {}

// Trace, when non-nil, is called with the PC and decoded instruction of
// every retired instruction before it executes — the block-loop equivalent
// of the teacher's "log.Printf(vm: %#032b %s, ci, vm.Disassemble(ci))"
// tracing idiom. cmd/rv64emu wires this up under -v; left nil it costs
// nothing.
var Trace func(pc uint64, inst decoder.Inst)

// Block executes instructions starting at st.PC until one of them ends the
// block: a taken branch, jal, jalr, or ecall. Each such instruction sets
// both st.ExitReason and inst.ContinueExec, matching spec.md §4.4's note
// that jal/jalr's block-ending nature is "implicit" in the exit reason —
// this interpreter makes it explicit on the instruction record instead of
// relying on a stale static flag the way the original C interpreter does.
func Block(m *mmu.MMU, st *machine.State) (err error) {
	// A small number of exec routines (unsupported CSR) can only fail
	// deep inside a dense dispatch table with no error return; they
	// panic with an *emuerr-wrapped error instead, caught here so Block
	// keeps the same "return an error" contract as everything else.
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()

	for {
		st.ExitReason = machine.ExitNone
		word := m.ReadUint32(st.PC)
		inst, size, err := decoder.DecodeRaw(word, st.PC)
		if err != nil {
			return err
		}
		if Trace != nil {
			Trace(st.PC, inst)
		}
		funcs[inst.Type](st, m, &inst)
		st.ClearZero()
		if inst.ContinueExec {
			return nil
		}
		st.PC += uint64(size)
	}
}

func rs1Val(st *machine.State, inst *decoder.Inst) uint64 { return st.GPRegs[inst.Rs1] }
func rs2Val(st *machine.State, inst *decoder.Inst) uint64 { return st.GPRegs[inst.Rs2] }
func setRd(st *machine.State, inst *decoder.Inst, v uint64) {
	st.GPRegs[inst.Rd] = v
}
