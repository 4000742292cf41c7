// Package decoder turns raw 16- or 32-bit instruction words fetched from
// guest memory into an Inst the interpreter can dispatch on.
package decoder

import (
	"github.com/bassosimone/rv64emu/pkg/emuerr"
)

// Type identifies a decoded instruction's semantics. The ordering here
// matches the dispatch table consumed by pkg/interp, so adding a new Type
// means adding a new exec routine at the same index.
type Type int

const (
	InstLb Type = iota
	InstLh
	InstLw
	InstLd
	InstLbu
	InstLhu
	InstLwu
	InstFence
	InstFenceI
	InstAddi
	InstSlli
	InstSlti
	InstSltiu
	InstXori
	InstSrli
	InstSrai
	InstOri
	InstAndi
	InstAuipc
	InstAddiw
	InstSlliw
	InstSrliw
	InstSraiw
	InstSb
	InstSh
	InstSw
	InstSd
	InstAdd
	InstSll
	InstSlt
	InstSltu
	InstXor
	InstSrl
	InstOr
	InstAnd
	InstMul
	InstMulh
	InstMulhsu
	InstMulhu
	InstDiv
	InstDivu
	InstRem
	InstRemu
	InstSub
	InstSra
	InstLui
	InstAddw
	InstSllw
	InstSrlw
	InstMulw
	InstDivw
	InstDivuw
	InstRemw
	InstRemuw
	InstSubw
	InstSraw
	InstBeq
	InstBne
	InstBlt
	InstBge
	InstBltu
	InstBgeu
	InstJalr
	InstJal
	InstEcall
	InstCsrrw
	InstCsrrs
	InstCsrrc
	InstCsrrwi
	InstCsrrsi
	InstCsrrci
	InstFlw
	InstFsw
	InstFmaddS
	InstFmsubS
	InstFnmsubS
	InstFnmaddS
	InstFaddS
	InstFsubS
	InstFmulS
	InstFdivS
	InstFsqrtS
	InstFsgnjS
	InstFsgnjnS
	InstFsgnjxS
	InstFminS
	InstFmaxS
	InstFcvtWS
	InstFcvtWuS
	InstFmvXW
	InstFeqS
	InstFltS
	InstFleS
	InstFclassS
	InstFcvtSW
	InstFcvtSWu
	InstFmvWX
	InstFcvtLS
	InstFcvtLuS
	InstFcvtSL
	InstFcvtSLu
	InstFld
	InstFsd
	InstFmaddD
	InstFmsubD
	InstFnmsubD
	InstFnmaddD
	InstFaddD
	InstFsubD
	InstFmulD
	InstFdivD
	InstFsqrtD
	InstFsgnjD
	InstFsgnjnD
	InstFsgnjxD
	InstFminD
	InstFmaxD
	InstFcvtSD
	InstFcvtDS
	InstFeqD
	InstFltD
	InstFleD
	InstFclassD
	InstFcvtWD
	InstFcvtWuD
	InstFcvtDW
	InstFcvtDWu
	InstFcvtLD
	InstFcvtLuD
	InstFmvXD
	InstFcvtDL
	InstFcvtDLu
	InstFmvDX

	numTypes
)

// NumTypes is the number of distinct instruction types; pkg/interp sizes
// its dispatch table from it.
const NumTypes = int(numTypes)

// CSR numbers of the floating-point status registers, the only CSRs the
// interpreter accepts in the csr field of System instructions (accepted,
// but without observable effect at execute time).
const (
	CsrFflags = 0x001
	CsrFrm    = 0x002
	CsrFcsr   = 0x003
)

// Inst is a fully decoded instruction, ready for pkg/interp to execute.
type Inst struct {
	Type Type
	Rd   int
	Rs1  int
	Rs2  int
	Rs3  int
	Imm  int64
	Csr  uint16
	Rm   uint8

	// Rvc records whether this instruction was expanded from a 16-bit
	// compressed encoding, which affects how much to advance PC by (2
	// rather than 4) and what return address jal/jalr compute.
	Rvc bool

	// ContinueExec is set by an exec routine that ends the block (a taken
	// branch, jal, jalr or ecall), telling the block loop to stop
	// decoding further instructions from the old PC.
	ContinueExec bool
}

// opcode field extraction, grounded on the standard RV32I/RV64I encoding.
func opcode(insn uint32) uint32 { return insn & 0x7f }
func rd(insn uint32) int        { return int((insn >> 7) & 0x1f) }
func funct3(insn uint32) uint32 { return (insn >> 12) & 0x7 }
func rs1(insn uint32) int       { return int((insn >> 15) & 0x1f) }
func rs2(insn uint32) int       { return int((insn >> 20) & 0x1f) }
func rs3(insn uint32) int       { return int((insn >> 27) & 0x1f) }
func funct7(insn uint32) uint32 { return (insn >> 25) & 0x7f }
func funct2(insn uint32) uint32 { return (insn >> 25) & 0x3 }
func rm(insn uint32) uint8      { return uint8((insn >> 12) & 0x7) }

func signExtend(v uint64, bits uint) int64 {
	shift := 64 - bits
	return int64(v<<shift) >> shift
}

func immI(insn uint32) int64 { return signExtend(uint64(insn>>20), 12) }

func immS(insn uint32) int64 {
	imm := (insn >> 7) & 0x1f
	imm |= ((insn >> 25) & 0x7f) << 5
	return signExtend(uint64(imm), 12)
}

func immB(insn uint32) int64 {
	imm := ((insn >> 8) & 0xf) << 1
	imm |= ((insn >> 25) & 0x3f) << 5
	imm |= ((insn >> 7) & 0x1) << 11
	imm |= ((insn >> 31) & 0x1) << 12
	return signExtend(uint64(imm), 13)
}

func immU(insn uint32) int64 { return signExtend(uint64(insn&0xfffff000), 32) }

func immJ(insn uint32) int64 {
	imm := ((insn >> 21) & 0x3ff) << 1
	imm |= ((insn >> 20) & 0x1) << 11
	imm |= ((insn >> 12) & 0xff) << 12
	imm |= ((insn >> 31) & 0x1) << 20
	return signExtend(uint64(imm), 21)
}

const (
	opLoad    = 0b0000011
	opLoadFP  = 0b0000111
	opMiscMem = 0b0001111
	opOpImm   = 0b0010011
	opAuipc   = 0b0010111
	opOpImm32 = 0b0011011
	opStore   = 0b0100011
	opStoreFP = 0b0100111
	opOp      = 0b0110011
	opLui     = 0b0110111
	opOp32    = 0b0111011
	opMadd    = 0b1000011
	opMsub    = 0b1000111
	opNmsub   = 0b1001011
	opNmadd   = 0b1001111
	opOpFP    = 0b1010011
	opBranch  = 0b1100011
	opJalr    = 0b1100111
	opJal     = 0b1101111
	opSystem  = 0b1110011
)

// Decode decodes one 32-bit instruction word. raw must already have had any
// compressed (16-bit) encoding expanded by ExpandCompressed.
func Decode(raw uint32, pc uint64) (Inst, error) {
	op := opcode(raw)
	switch op {
	case opLoad:
		return decodeLoad(raw)
	case opLoadFP:
		return decodeLoadFP(raw)
	case opMiscMem:
		return Inst{Type: fenceType(raw)}, nil
	case opOpImm:
		return decodeOpImm(raw)
	case opAuipc:
		return Inst{Type: InstAuipc, Rd: rd(raw), Imm: immU(raw)}, nil
	case opOpImm32:
		return decodeOpImm32(raw)
	case opStore:
		return decodeStore(raw)
	case opStoreFP:
		return decodeStoreFP(raw)
	case opOp:
		return decodeOp(raw)
	case opLui:
		return Inst{Type: InstLui, Rd: rd(raw), Imm: immU(raw)}, nil
	case opOp32:
		return decodeOp32(raw)
	case opMadd, opMsub, opNmsub, opNmadd:
		return decodeFusedMultiplyAdd(raw, op)
	case opOpFP:
		return decodeOpFP(raw)
	case opBranch:
		return decodeBranch(raw)
	case opJalr:
		return Inst{Type: InstJalr, Rd: rd(raw), Rs1: rs1(raw), Imm: immI(raw)}, nil
	case opJal:
		return Inst{Type: InstJal, Rd: rd(raw), Imm: immJ(raw)}, nil
	case opSystem:
		return decodeSystem(raw)
	}
	return Inst{}, illegal(raw, pc)
}

func illegal(raw uint32, pc uint64) error {
	return emuerr.Fatalf(emuerr.ErrIllegalInstruction, "raw=%#x pc=%#x", raw, pc)
}

func fenceType(raw uint32) Type {
	if funct3(raw) == 0x1 {
		return InstFenceI
	}
	return InstFence
}

func decodeLoad(raw uint32) (Inst, error) {
	base := Inst{Rd: rd(raw), Rs1: rs1(raw), Imm: immI(raw)}
	switch funct3(raw) {
	case 0x0:
		base.Type = InstLb
	case 0x1:
		base.Type = InstLh
	case 0x2:
		base.Type = InstLw
	case 0x3:
		base.Type = InstLd
	case 0x4:
		base.Type = InstLbu
	case 0x5:
		base.Type = InstLhu
	case 0x6:
		base.Type = InstLwu
	default:
		return Inst{}, illegal(raw, 0)
	}
	return base, nil
}

func decodeStore(raw uint32) (Inst, error) {
	base := Inst{Rs1: rs1(raw), Rs2: rs2(raw), Imm: immS(raw)}
	switch funct3(raw) {
	case 0x0:
		base.Type = InstSb
	case 0x1:
		base.Type = InstSh
	case 0x2:
		base.Type = InstSw
	case 0x3:
		base.Type = InstSd
	default:
		return Inst{}, illegal(raw, 0)
	}
	return base, nil
}

func decodeOpImm(raw uint32) (Inst, error) {
	base := Inst{Rd: rd(raw), Rs1: rs1(raw), Imm: immI(raw)}
	switch funct3(raw) {
	case 0x0:
		base.Type = InstAddi
	case 0x1:
		base.Type = InstSlli
		base.Imm = int64(raw>>20) & 0x3f
	case 0x2:
		base.Type = InstSlti
	case 0x3:
		base.Type = InstSltiu
	case 0x4:
		base.Type = InstXori
	case 0x5:
		if funct7(raw)>>1 == 0x10 {
			base.Type = InstSrai
		} else {
			base.Type = InstSrli
		}
		base.Imm = int64(raw>>20) & 0x3f
	case 0x6:
		base.Type = InstOri
	case 0x7:
		base.Type = InstAndi
	default:
		return Inst{}, illegal(raw, 0)
	}
	return base, nil
}

func decodeOpImm32(raw uint32) (Inst, error) {
	base := Inst{Rd: rd(raw), Rs1: rs1(raw), Imm: immI(raw)}
	switch funct3(raw) {
	case 0x0:
		base.Type = InstAddiw
	case 0x1:
		base.Type = InstSlliw
		base.Imm = int64(raw>>20) & 0x1f
	case 0x5:
		if funct7(raw) == 0x20 {
			base.Type = InstSraiw
		} else {
			base.Type = InstSrliw
		}
		base.Imm = int64(raw>>20) & 0x1f
	default:
		return Inst{}, illegal(raw, 0)
	}
	return base, nil
}

func decodeOp(raw uint32) (Inst, error) {
	base := Inst{Rd: rd(raw), Rs1: rs1(raw), Rs2: rs2(raw)}
	f3, f7 := funct3(raw), funct7(raw)
	switch {
	case f7 == 0x00 && f3 == 0x0:
		base.Type = InstAdd
	case f7 == 0x20 && f3 == 0x0:
		base.Type = InstSub
	case f7 == 0x00 && f3 == 0x1:
		base.Type = InstSll
	case f7 == 0x00 && f3 == 0x2:
		base.Type = InstSlt
	case f7 == 0x00 && f3 == 0x3:
		base.Type = InstSltu
	case f7 == 0x00 && f3 == 0x4:
		base.Type = InstXor
	case f7 == 0x00 && f3 == 0x5:
		base.Type = InstSrl
	case f7 == 0x20 && f3 == 0x5:
		base.Type = InstSra
	case f7 == 0x00 && f3 == 0x6:
		base.Type = InstOr
	case f7 == 0x00 && f3 == 0x7:
		base.Type = InstAnd
	case f7 == 0x01 && f3 == 0x0:
		base.Type = InstMul
	case f7 == 0x01 && f3 == 0x1:
		base.Type = InstMulh
	case f7 == 0x01 && f3 == 0x2:
		base.Type = InstMulhsu
	case f7 == 0x01 && f3 == 0x3:
		base.Type = InstMulhu
	case f7 == 0x01 && f3 == 0x4:
		base.Type = InstDiv
	case f7 == 0x01 && f3 == 0x5:
		base.Type = InstDivu
	case f7 == 0x01 && f3 == 0x6:
		base.Type = InstRem
	case f7 == 0x01 && f3 == 0x7:
		base.Type = InstRemu
	default:
		return Inst{}, illegal(raw, 0)
	}
	return base, nil
}

func decodeOp32(raw uint32) (Inst, error) {
	base := Inst{Rd: rd(raw), Rs1: rs1(raw), Rs2: rs2(raw)}
	f3, f7 := funct3(raw), funct7(raw)
	switch {
	case f7 == 0x00 && f3 == 0x0:
		base.Type = InstAddw
	case f7 == 0x20 && f3 == 0x0:
		base.Type = InstSubw
	case f7 == 0x00 && f3 == 0x1:
		base.Type = InstSllw
	case f7 == 0x00 && f3 == 0x5:
		base.Type = InstSrlw
	case f7 == 0x20 && f3 == 0x5:
		base.Type = InstSraw
	case f7 == 0x01 && f3 == 0x0:
		base.Type = InstMulw
	case f7 == 0x01 && f3 == 0x4:
		base.Type = InstDivw
	case f7 == 0x01 && f3 == 0x5:
		base.Type = InstDivuw
	case f7 == 0x01 && f3 == 0x6:
		base.Type = InstRemw
	case f7 == 0x01 && f3 == 0x7:
		base.Type = InstRemuw
	default:
		return Inst{}, illegal(raw, 0)
	}
	return base, nil
}

func decodeBranch(raw uint32) (Inst, error) {
	base := Inst{Rs1: rs1(raw), Rs2: rs2(raw), Imm: immB(raw)}
	switch funct3(raw) {
	case 0x0:
		base.Type = InstBeq
	case 0x1:
		base.Type = InstBne
	case 0x4:
		base.Type = InstBlt
	case 0x5:
		base.Type = InstBge
	case 0x6:
		base.Type = InstBltu
	case 0x7:
		base.Type = InstBgeu
	default:
		return Inst{}, illegal(raw, 0)
	}
	return base, nil
}

func decodeSystem(raw uint32) (Inst, error) {
	f3 := funct3(raw)
	if f3 == 0 {
		// ecall/ebreak/mret/sret share funct3==0; this emulator only
		// ever expects ecall in user-mode guest code.
		return Inst{Type: InstEcall}, nil
	}
	base := Inst{Rd: rd(raw), Rs1: rs1(raw), Csr: uint16(raw >> 20)}
	switch f3 {
	case 0x1:
		base.Type = InstCsrrw
	case 0x2:
		base.Type = InstCsrrs
	case 0x3:
		base.Type = InstCsrrc
	case 0x5:
		base.Type = InstCsrrwi
		base.Imm = int64(rs1(raw))
	case 0x6:
		base.Type = InstCsrrsi
		base.Imm = int64(rs1(raw))
	case 0x7:
		base.Type = InstCsrrci
		base.Imm = int64(rs1(raw))
	default:
		return Inst{}, illegal(raw, 0)
	}
	return base, nil
}

func decodeLoadFP(raw uint32) (Inst, error) {
	base := Inst{Rd: rd(raw), Rs1: rs1(raw), Imm: immI(raw)}
	switch funct3(raw) {
	case 0x2:
		base.Type = InstFlw
	case 0x3:
		base.Type = InstFld
	default:
		return Inst{}, illegal(raw, 0)
	}
	return base, nil
}

func decodeStoreFP(raw uint32) (Inst, error) {
	base := Inst{Rs1: rs1(raw), Rs2: rs2(raw), Imm: immS(raw)}
	switch funct3(raw) {
	case 0x2:
		base.Type = InstFsw
	case 0x3:
		base.Type = InstFsd
	default:
		return Inst{}, illegal(raw, 0)
	}
	return base, nil
}

func decodeFusedMultiplyAdd(raw uint32, op uint32) (Inst, error) {
	base := Inst{Rd: rd(raw), Rs1: rs1(raw), Rs2: rs2(raw), Rs3: rs3(raw), Rm: rm(raw)}
	double := funct2(raw) == 0x1
	switch op {
	case opMadd:
		if double {
			base.Type = InstFmaddD
		} else {
			base.Type = InstFmaddS
		}
	case opMsub:
		if double {
			base.Type = InstFmsubD
		} else {
			base.Type = InstFmsubS
		}
	case opNmsub:
		if double {
			base.Type = InstFnmsubD
		} else {
			base.Type = InstFnmsubS
		}
	case opNmadd:
		if double {
			base.Type = InstFnmaddD
		} else {
			base.Type = InstFnmaddS
		}
	}
	return base, nil
}

func decodeOpFP(raw uint32) (Inst, error) {
	base := Inst{Rd: rd(raw), Rs1: rs1(raw), Rs2: rs2(raw), Rm: rm(raw)}
	f7 := funct7(raw)
	switch f7 {
	case 0x00:
		base.Type = InstFaddS
	case 0x01:
		base.Type = InstFaddD
	case 0x04:
		base.Type = InstFsubS
	case 0x05:
		base.Type = InstFsubD
	case 0x08:
		base.Type = InstFmulS
	case 0x09:
		base.Type = InstFmulD
	case 0x0c:
		base.Type = InstFdivS
	case 0x0d:
		base.Type = InstFdivD
	case 0x2c:
		base.Type = InstFsqrtS
	case 0x2d:
		base.Type = InstFsqrtD
	case 0x10:
		base.Type = sgnjType(funct3(raw), false)
	case 0x11:
		base.Type = sgnjType(funct3(raw), true)
	case 0x14:
		base.Type = minmaxType(funct3(raw), false)
	case 0x15:
		base.Type = minmaxType(funct3(raw), true)
	case 0x20:
		base.Type = InstFcvtSD
	case 0x21:
		base.Type = InstFcvtDS
	case 0x60:
		base.Type = cvtWType(rs2(raw), false)
	case 0x61:
		base.Type = cvtWType(rs2(raw), true)
	case 0x68:
		base.Type = cvtFromWType(rs2(raw), false)
	case 0x69:
		base.Type = cvtFromWType(rs2(raw), true)
	case 0x70:
		base.Type = moveOrClassType(funct3(raw), rs2(raw), false)
	case 0x71:
		base.Type = moveOrClassType(funct3(raw), rs2(raw), true)
	case 0x50:
		base.Type = compareType(funct3(raw), false)
	case 0x51:
		base.Type = compareType(funct3(raw), true)
	case 0x78:
		base.Type = InstFmvWX
	case 0x79:
		base.Type = InstFmvDX
	default:
		return Inst{}, illegal(raw, 0)
	}
	return base, nil
}

func sgnjType(f3 uint32, double bool) Type {
	switch {
	case f3 == 0 && !double:
		return InstFsgnjS
	case f3 == 1 && !double:
		return InstFsgnjnS
	case f3 == 2 && !double:
		return InstFsgnjxS
	case f3 == 0 && double:
		return InstFsgnjD
	case f3 == 1 && double:
		return InstFsgnjnD
	default:
		return InstFsgnjxD
	}
}

func minmaxType(f3 uint32, double bool) Type {
	if !double {
		if f3 == 0 {
			return InstFminS
		}
		return InstFmaxS
	}
	if f3 == 0 {
		return InstFminD
	}
	return InstFmaxD
}

func cvtWType(rs2code int, double bool) Type {
	unsigned := rs2code == 1 || rs2code == 3
	isLong := rs2code == 2 || rs2code == 3
	switch {
	case !double && !isLong && !unsigned:
		return InstFcvtWS
	case !double && !isLong && unsigned:
		return InstFcvtWuS
	case !double && isLong && !unsigned:
		return InstFcvtLS
	case !double && isLong && unsigned:
		return InstFcvtLuS
	case double && !isLong && !unsigned:
		return InstFcvtWD
	case double && !isLong && unsigned:
		return InstFcvtWuD
	case double && isLong && !unsigned:
		return InstFcvtLD
	default:
		return InstFcvtLuD
	}
}

func cvtFromWType(rs2code int, double bool) Type {
	unsigned := rs2code == 1 || rs2code == 3
	isLong := rs2code == 2 || rs2code == 3
	switch {
	case !double && !isLong && !unsigned:
		return InstFcvtSW
	case !double && !isLong && unsigned:
		return InstFcvtSWu
	case !double && isLong && !unsigned:
		return InstFcvtSL
	case !double && isLong && unsigned:
		return InstFcvtSLu
	case double && !isLong && !unsigned:
		return InstFcvtDW
	case double && !isLong && unsigned:
		return InstFcvtDWu
	case double && isLong && !unsigned:
		return InstFcvtDL
	default:
		return InstFcvtDLu
	}
}

func moveOrClassType(f3 uint32, rs2code int, double bool) Type {
	_ = rs2code
	if !double {
		if f3 == 0 {
			return InstFmvXW
		}
		return InstFclassS
	}
	if f3 == 0 {
		return InstFmvXD
	}
	return InstFclassD
}

func compareType(f3 uint32, double bool) Type {
	if !double {
		switch f3 {
		case 0x2:
			return InstFeqS
		case 0x0:
			return InstFleS
		default:
			return InstFltS
		}
	}
	switch f3 {
	case 0x2:
		return InstFeqD
	case 0x0:
		return InstFleD
	default:
		return InstFltD
	}
}
