package interp

import (
	"math"

	"github.com/bassosimone/rv64emu/pkg/decoder"
	"github.com/bassosimone/rv64emu/pkg/machine"
	"github.com/bassosimone/rv64emu/pkg/mmu"
)

func fs(st *machine.State, i int) float32 { return math.Float32frombits(st.FPRegs[i].AsSingleBits()) }
func fd(st *machine.State, i int) float64 { return math.Float64frombits(st.FPRegs[i].AsDoubleBits()) }

func setFs(st *machine.State, i int, v float32) {
	st.FPRegs[i].StoreSingle(math.Float32bits(v))
}
func setFd(st *machine.State, i int, v float64) {
	st.FPRegs[i].StoreDouble(math.Float64bits(v))
}

func registerFloatFuncs() {
	funcs[decoder.InstFlw] = execFlw
	funcs[decoder.InstFld] = execFld
	funcs[decoder.InstFsw] = execFsw
	funcs[decoder.InstFsd] = execFsd

	funcs[decoder.InstFmaddS] = fmaS(func(a, b, c float32) float32 { return a*b + c })
	funcs[decoder.InstFmsubS] = fmaS(func(a, b, c float32) float32 { return a*b - c })
	funcs[decoder.InstFnmsubS] = fmaS(func(a, b, c float32) float32 { return -(a * b) + c })
	funcs[decoder.InstFnmaddS] = fmaS(func(a, b, c float32) float32 { return -(a * b) - c })
	funcs[decoder.InstFmaddD] = fmaD(func(a, b, c float64) float64 { return a*b + c })
	funcs[decoder.InstFmsubD] = fmaD(func(a, b, c float64) float64 { return a*b - c })
	funcs[decoder.InstFnmsubD] = fmaD(func(a, b, c float64) float64 { return -(a * b) + c })
	funcs[decoder.InstFnmaddD] = fmaD(func(a, b, c float64) float64 { return -(a * b) - c })

	funcs[decoder.InstFaddS] = fBinS(func(a, b float32) float32 { return a + b })
	funcs[decoder.InstFsubS] = fBinS(func(a, b float32) float32 { return a - b })
	funcs[decoder.InstFmulS] = fBinS(func(a, b float32) float32 { return a * b })
	funcs[decoder.InstFdivS] = fBinS(func(a, b float32) float32 { return a / b })
	funcs[decoder.InstFsqrtS] = execFsqrtS
	funcs[decoder.InstFminS] = fBinS(func(a, b float32) float32 { return fminS(a, b) })
	funcs[decoder.InstFmaxS] = fBinS(func(a, b float32) float32 { return fmaxS(a, b) })

	funcs[decoder.InstFaddD] = fBinD(func(a, b float64) float64 { return a + b })
	funcs[decoder.InstFsubD] = fBinD(func(a, b float64) float64 { return a - b })
	funcs[decoder.InstFmulD] = fBinD(func(a, b float64) float64 { return a * b })
	funcs[decoder.InstFdivD] = fBinD(func(a, b float64) float64 { return a / b })
	funcs[decoder.InstFsqrtD] = execFsqrtD
	funcs[decoder.InstFminD] = fBinD(func(a, b float64) float64 { return fminD(a, b) })
	funcs[decoder.InstFmaxD] = fBinD(func(a, b float64) float64 { return fmaxD(a, b) })

	funcs[decoder.InstFsgnjS] = fsgnjS(false, false)
	funcs[decoder.InstFsgnjnS] = fsgnjS(true, false)
	funcs[decoder.InstFsgnjxS] = fsgnjS(false, true)
	funcs[decoder.InstFsgnjD] = fsgnjD(false, false)
	funcs[decoder.InstFsgnjnD] = fsgnjD(true, false)
	funcs[decoder.InstFsgnjxD] = fsgnjD(false, true)

	funcs[decoder.InstFeqS] = fCmpS(func(a, b float32) bool { return a == b })
	funcs[decoder.InstFltS] = fCmpS(func(a, b float32) bool { return a < b })
	funcs[decoder.InstFleS] = fCmpS(func(a, b float32) bool { return a <= b })
	funcs[decoder.InstFeqD] = fCmpD(func(a, b float64) bool { return a == b })
	funcs[decoder.InstFltD] = fCmpD(func(a, b float64) bool { return a < b })
	funcs[decoder.InstFleD] = fCmpD(func(a, b float64) bool { return a <= b })

	funcs[decoder.InstFclassS] = execFclassS
	funcs[decoder.InstFclassD] = execFclassD

	funcs[decoder.InstFcvtWS] = execFcvtWS
	funcs[decoder.InstFcvtWuS] = execFcvtWuS
	funcs[decoder.InstFcvtWD] = execFcvtWD
	funcs[decoder.InstFcvtWuD] = execFcvtWuD
	funcs[decoder.InstFcvtLS] = execFcvtLS
	funcs[decoder.InstFcvtLuS] = execFcvtLuS
	funcs[decoder.InstFcvtLD] = execFcvtLD
	funcs[decoder.InstFcvtLuD] = execFcvtLuD

	funcs[decoder.InstFcvtSW] = execFcvtSW
	funcs[decoder.InstFcvtSWu] = execFcvtSWu
	funcs[decoder.InstFcvtDW] = execFcvtDW
	funcs[decoder.InstFcvtDWu] = execFcvtDWu
	funcs[decoder.InstFcvtSL] = execFcvtSL
	funcs[decoder.InstFcvtSLu] = execFcvtSLu
	funcs[decoder.InstFcvtDL] = execFcvtDL
	funcs[decoder.InstFcvtDLu] = execFcvtDLu

	funcs[decoder.InstFcvtSD] = execFcvtSD
	funcs[decoder.InstFcvtDS] = execFcvtDS

	funcs[decoder.InstFmvXW] = execFmvXW
	funcs[decoder.InstFmvWX] = execFmvWX
	funcs[decoder.InstFmvXD] = execFmvXD
	funcs[decoder.InstFmvDX] = execFmvDX
}

func execFlw(st *machine.State, m *mmu.MMU, inst *decoder.Inst) {
	addr := uint64(int64(rs1Val(st, inst)) + inst.Imm)
	bits := le32(m.Read(addr, 4))
	st.FPRegs[inst.Rd].StoreSingle(bits)
}

func execFld(st *machine.State, m *mmu.MMU, inst *decoder.Inst) {
	addr := uint64(int64(rs1Val(st, inst)) + inst.Imm)
	bits := le64(m.Read(addr, 8))
	st.FPRegs[inst.Rd].StoreDouble(bits)
}

func execFsw(st *machine.State, m *mmu.MMU, inst *decoder.Inst) {
	addr := uint64(int64(rs1Val(st, inst)) + inst.Imm)
	m.Write(addr, le32Bytes(st.FPRegs[inst.Rs2].AsSingleBits()))
}

func execFsd(st *machine.State, m *mmu.MMU, inst *decoder.Inst) {
	addr := uint64(int64(rs1Val(st, inst)) + inst.Imm)
	m.Write(addr, le64Bytes(st.FPRegs[inst.Rs2].AsDoubleBits()))
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
func le32Bytes(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
func le64Bytes(v uint64) []byte {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	return buf
}

func fmaS(f func(a, b, c float32) float32) execFunc {
	return func(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
		setFs(st, inst.Rd, f(fs(st, inst.Rs1), fs(st, inst.Rs2), fs(st, inst.Rs3)))
	}
}
func fmaD(f func(a, b, c float64) float64) execFunc {
	return func(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
		setFd(st, inst.Rd, f(fd(st, inst.Rs1), fd(st, inst.Rs2), fd(st, inst.Rs3)))
	}
}
func fBinS(f func(a, b float32) float32) execFunc {
	return func(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
		setFs(st, inst.Rd, f(fs(st, inst.Rs1), fs(st, inst.Rs2)))
	}
}
func fBinD(f func(a, b float64) float64) execFunc {
	return func(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
		setFd(st, inst.Rd, f(fd(st, inst.Rs1), fd(st, inst.Rs2)))
	}
}

func execFsqrtS(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setFs(st, inst.Rd, float32(math.Sqrt(float64(fs(st, inst.Rs1)))))
}
func execFsqrtD(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setFd(st, inst.Rd, math.Sqrt(fd(st, inst.Rs1)))
}

func fminS(a, b float32) float32 {
	if math.IsNaN(float64(a)) {
		return b
	}
	if math.IsNaN(float64(b)) {
		return a
	}
	if a < b {
		return a
	}
	return b
}
func fmaxS(a, b float32) float32 {
	if math.IsNaN(float64(a)) {
		return b
	}
	if math.IsNaN(float64(b)) {
		return a
	}
	if a > b {
		return a
	}
	return b
}
func fminD(a, b float64) float64 {
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	if a < b {
		return a
	}
	return b
}
func fmaxD(a, b float64) float64 {
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	if a > b {
		return a
	}
	return b
}

// fsgnjS/fsgnjD build the three sign-injection variants: plain copies rs2's
// sign, n negates it first, x XORs rs1's and rs2's signs.
func fsgnjS(negate, xor bool) execFunc {
	return func(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
		a := st.FPRegs[inst.Rs1].AsSingleBits()
		b := st.FPRegs[inst.Rs2].AsSingleBits()
		sign := b & 0x80000000
		if negate {
			sign ^= 0x80000000
		}
		if xor {
			sign = (a ^ b) & 0x80000000
		}
		st.FPRegs[inst.Rd].StoreSingle((a &^ 0x80000000) | sign)
	}
}
func fsgnjD(negate, xor bool) execFunc {
	return func(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
		a := st.FPRegs[inst.Rs1].AsDoubleBits()
		b := st.FPRegs[inst.Rs2].AsDoubleBits()
		const signBit = uint64(1) << 63
		sign := b & signBit
		if negate {
			sign ^= signBit
		}
		if xor {
			sign = (a ^ b) & signBit
		}
		st.FPRegs[inst.Rd].StoreDouble((a &^ signBit) | sign)
	}
}

func fCmpS(f func(a, b float32) bool) execFunc {
	return func(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
		setRd(st, inst, boolToU64(f(fs(st, inst.Rs1), fs(st, inst.Rs2))))
	}
}
func fCmpD(f func(a, b float64) bool) execFunc {
	return func(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
		setRd(st, inst, boolToU64(f(fd(st, inst.Rs1), fd(st, inst.Rs2))))
	}
}

// fclass bit positions per the RISC-V F extension.
const (
	fclassNegInf = 1 << iota
	fclassNegNormal
	fclassNegSubnormal
	fclassNegZero
	fclassPosZero
	fclassPosSubnormal
	fclassPosNormal
	fclassPosInf
	fclassSNaN
	fclassQNaN
)

func execFclassS(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setRd(st, inst, uint64(classifyS(fs(st, inst.Rs1))))
}
func execFclassD(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setRd(st, inst, uint64(classifyD(fd(st, inst.Rs1))))
}

func classifyS(v float32) uint32 {
	bits := math.Float32bits(v)
	sign := bits>>31 != 0
	exp := (bits >> 23) & 0xff
	mant := bits & 0x7fffff
	return classify(sign, exp == 0xff, exp == 0, mant == 0, mant&(1<<22) == 0)
}
func classifyD(v float64) uint32 {
	bits := math.Float64bits(v)
	sign := bits>>63 != 0
	exp := (bits >> 52) & 0x7ff
	mant := bits & 0xfffffffffffff
	return classify(sign, exp == 0x7ff, exp == 0, mant == 0, mant&(1<<51) == 0)
}

func classify(sign, expAllOnes, expZero, mantZero, isSignaling bool) uint32 {
	switch {
	case expAllOnes && mantZero:
		if sign {
			return fclassNegInf
		}
		return fclassPosInf
	case expAllOnes:
		if isSignaling {
			return fclassSNaN
		}
		return fclassQNaN
	case expZero && mantZero:
		if sign {
			return fclassNegZero
		}
		return fclassPosZero
	case expZero:
		if sign {
			return fclassNegSubnormal
		}
		return fclassPosSubnormal
	default:
		if sign {
			return fclassNegNormal
		}
		return fclassPosNormal
	}
}

// Saturation bounds per the RISC-V F/D fcvt contract: an out-of-range or
// NaN float converts to the min/max of the target integer type instead of
// trapping or wrapping.
func saturateToInt32(v float64) int32 {
	if math.IsNaN(v) {
		return math.MaxInt32
	}
	r := math.RoundToEven(v)
	if r >= math.MaxInt32 {
		return math.MaxInt32
	}
	if r <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(r)
}
func saturateToUint32(v float64) uint32 {
	if math.IsNaN(v) || v <= 0 {
		if math.IsNaN(v) {
			return math.MaxUint32
		}
		if v <= 0 {
			return 0
		}
	}
	r := math.RoundToEven(v)
	if r >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(r)
}
func saturateToInt64(v float64) int64 {
	if math.IsNaN(v) {
		return math.MaxInt64
	}
	r := math.RoundToEven(v)
	if r >= math.MaxInt64 {
		return math.MaxInt64
	}
	if r <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(r)
}
func saturateToUint64(v float64) uint64 {
	if math.IsNaN(v) {
		return math.MaxUint64
	}
	if v <= 0 {
		return 0
	}
	r := math.RoundToEven(v)
	if r >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(r)
}

func execFcvtWS(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setRd(st, inst, uint64(int64(saturateToInt32(float64(fs(st, inst.Rs1))))))
}
func execFcvtWuS(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setRd(st, inst, uint64(int64(int32(saturateToUint32(float64(fs(st, inst.Rs1)))))))
}
func execFcvtWD(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setRd(st, inst, uint64(int64(saturateToInt32(fd(st, inst.Rs1)))))
}
func execFcvtWuD(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setRd(st, inst, uint64(int64(int32(saturateToUint32(fd(st, inst.Rs1))))))
}
func execFcvtLS(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setRd(st, inst, uint64(saturateToInt64(float64(fs(st, inst.Rs1)))))
}
func execFcvtLuS(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setRd(st, inst, saturateToUint64(float64(fs(st, inst.Rs1))))
}
func execFcvtLD(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setRd(st, inst, uint64(saturateToInt64(fd(st, inst.Rs1))))
}
func execFcvtLuD(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setRd(st, inst, saturateToUint64(fd(st, inst.Rs1)))
}

func execFcvtSW(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setFs(st, inst.Rd, float32(int32(rs1Val(st, inst))))
}
func execFcvtSWu(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setFs(st, inst.Rd, float32(uint32(rs1Val(st, inst))))
}
func execFcvtDW(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setFd(st, inst.Rd, float64(int32(rs1Val(st, inst))))
}
func execFcvtDWu(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setFd(st, inst.Rd, float64(uint32(rs1Val(st, inst))))
}
func execFcvtSL(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setFs(st, inst.Rd, float32(int64(rs1Val(st, inst))))
}
func execFcvtSLu(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setFs(st, inst.Rd, float32(rs1Val(st, inst)))
}
func execFcvtDL(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setFd(st, inst.Rd, float64(int64(rs1Val(st, inst))))
}
func execFcvtDLu(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setFd(st, inst.Rd, float64(rs1Val(st, inst)))
}

func execFcvtSD(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setFs(st, inst.Rd, float32(fd(st, inst.Rs1)))
}
func execFcvtDS(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setFd(st, inst.Rd, float64(fs(st, inst.Rs1)))
}

func execFmvXW(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setRd(st, inst, uint64(int64(int32(st.FPRegs[inst.Rs1].AsSingleBits()))))
}
func execFmvWX(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	st.FPRegs[inst.Rd].StoreSingle(uint32(rs1Val(st, inst)))
}
func execFmvXD(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	setRd(st, inst, st.FPRegs[inst.Rs1].AsDoubleBits())
}
func execFmvDX(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	st.FPRegs[inst.Rd].StoreDouble(rs1Val(st, inst))
}
