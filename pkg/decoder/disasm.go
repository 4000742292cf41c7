package decoder

import (
	"fmt"

	"github.com/bassosimone/rv64emu/pkg/address"
)

var typeNames = map[Type]string{
	InstLb: "lb", InstLh: "lh", InstLw: "lw", InstLd: "ld",
	InstLbu: "lbu", InstLhu: "lhu", InstLwu: "lwu",
	InstFence: "fence", InstFenceI: "fence.i",
	InstAddi: "addi", InstSlli: "slli", InstSlti: "slti", InstSltiu: "sltiu",
	InstXori: "xori", InstSrli: "srli", InstSrai: "srai", InstOri: "ori", InstAndi: "andi",
	InstAuipc: "auipc",
	InstAddiw: "addiw", InstSlliw: "slliw", InstSrliw: "srliw", InstSraiw: "sraiw",
	InstSb: "sb", InstSh: "sh", InstSw: "sw", InstSd: "sd",
	InstAdd: "add", InstSll: "sll", InstSlt: "slt", InstSltu: "sltu",
	InstXor: "xor", InstSrl: "srl", InstOr: "or", InstAnd: "and",
	InstMul: "mul", InstMulh: "mulh", InstMulhsu: "mulhsu", InstMulhu: "mulhu",
	InstDiv: "div", InstDivu: "divu", InstRem: "rem", InstRemu: "remu",
	InstSub: "sub", InstSra: "sra", InstLui: "lui",
	InstAddw: "addw", InstSllw: "sllw", InstSrlw: "srlw",
	InstMulw: "mulw", InstDivw: "divw", InstDivuw: "divuw", InstRemw: "remw", InstRemuw: "remuw",
	InstSubw: "subw", InstSraw: "sraw",
	InstBeq: "beq", InstBne: "bne", InstBlt: "blt", InstBge: "bge", InstBltu: "bltu", InstBgeu: "bgeu",
	InstJalr: "jalr", InstJal: "jal", InstEcall: "ecall",
	InstCsrrw: "csrrw", InstCsrrs: "csrrs", InstCsrrc: "csrrc",
	InstCsrrwi: "csrrwi", InstCsrrsi: "csrrsi", InstCsrrci: "csrrci",
	InstFlw: "flw", InstFsw: "fsw", InstFld: "fld", InstFsd: "fsd",
}

// Disassemble renders inst as a single line of RISC-V assembly text, best
// effort: it uses ABI register names and falls back to the bare mnemonic
// name for instruction types this function doesn't special-case.
func Disassemble(inst Inst) string {
	name, ok := typeNames[inst.Type]
	if !ok {
		name = fmt.Sprintf("type(%d)", inst.Type)
	}
	switch inst.Type {
	case InstAdd, InstSub, InstSll, InstSlt, InstSltu, InstXor, InstSrl, InstOr, InstAnd,
		InstMul, InstMulh, InstMulhsu, InstMulhu, InstDiv, InstDivu, InstRem, InstRemu,
		InstAddw, InstSllw, InstSrlw, InstMulw, InstDivw, InstDivuw, InstRemw, InstRemuw, InstSubw, InstSraw:
		return fmt.Sprintf("%s %s, %s, %s", name, reg(inst.Rd), reg(inst.Rs1), reg(inst.Rs2))
	case InstAddi, InstSlti, InstSltiu, InstXori, InstOri, InstAndi, InstSlli, InstSrli, InstSrai,
		InstAddiw, InstSlliw, InstSrliw, InstSraiw, InstJalr:
		return fmt.Sprintf("%s %s, %s, %d", name, reg(inst.Rd), reg(inst.Rs1), inst.Imm)
	case InstLb, InstLh, InstLw, InstLd, InstLbu, InstLhu, InstLwu, InstFlw, InstFld:
		return fmt.Sprintf("%s %s, %d(%s)", name, reg(inst.Rd), inst.Imm, reg(inst.Rs1))
	case InstSb, InstSh, InstSw, InstSd, InstFsw, InstFsd:
		return fmt.Sprintf("%s %s, %d(%s)", name, reg(inst.Rs2), inst.Imm, reg(inst.Rs1))
	case InstBeq, InstBne, InstBlt, InstBge, InstBltu, InstBgeu:
		return fmt.Sprintf("%s %s, %s, %d", name, reg(inst.Rs1), reg(inst.Rs2), inst.Imm)
	case InstLui, InstAuipc:
		return fmt.Sprintf("%s %s, %#x", name, reg(inst.Rd), inst.Imm)
	case InstJal:
		return fmt.Sprintf("%s %s, %d", name, reg(inst.Rd), inst.Imm)
	case InstEcall:
		return "ecall"
	default:
		return name
	}
}

func reg(idx int) string {
	if n := address.RegisterName(idx); n != "" {
		return n
	}
	return fmt.Sprintf("x%d", idx)
}
