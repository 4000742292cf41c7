package decoder

import "github.com/bassosimone/rv64emu/pkg/emuerr"

// IsCompressed reports whether the low 16 bits of a fetched instruction
// word indicate a 16-bit (C extension) encoding rather than a full 32-bit
// one: the bottom two bits of a compressed instruction are never both set.
func IsCompressed(low16 uint16) bool {
	return low16&0x3 != 0x3
}

// rvcReg maps a compressed instruction's 3-bit register field (x8-x15) to
// the full 5-bit register number.
func rvcReg(field uint16) int { return int(field) + 8 }

// ExpandCompressed decodes a 16-bit RVC instruction and re-encodes it as
// the equivalent 32-bit instruction word, so the rest of the decoder never
// needs to know compressed encodings exist. Returns ok=false if the 16-bit
// word is not a compressed instruction this emulator recognizes.
func ExpandCompressed(c uint16) (raw uint32, ok bool) {
	op := c & 0x3
	funct3 := (c >> 13) & 0x7

	switch op {
	case 0x0: // C0
		switch funct3 {
		case 0x0: // C.ADDI4SPN
			nzuimm := uint32((c>>5)&0x1)<<3 | uint32((c>>6)&0x1)<<2 |
				uint32((c>>7)&0xf)<<6 | uint32((c>>11)&0x3)<<4
			if nzuimm == 0 {
				return 0, false
			}
			rd := rvcReg((c >> 2) & 0x7)
			return encodeI(nzuimm, 2, uint32(rd), 0x0, 0x13), true // addi rd, sp, nzuimm
		case 0x2: // C.LW
			rd := rvcReg((c >> 2) & 0x7)
			rs1 := rvcReg((c >> 7) & 0x7)
			imm := ((c>>6)&0x1)<<2 | ((c>>10)&0x7)<<3 | ((c>>5)&0x1)<<6
			return encodeI(uint32(imm), uint32(rs1), uint32(rd), 0x2, opLoad), true
		case 0x3: // C.LD
			rd := rvcReg((c >> 2) & 0x7)
			rs1 := rvcReg((c >> 7) & 0x7)
			imm := ((c>>10)&0x7)<<3 | ((c>>5)&0x3)<<6
			return encodeI(uint32(imm), uint32(rs1), uint32(rd), 0x3, opLoad), true
		case 0x6: // C.SW
			rs2 := rvcReg((c >> 2) & 0x7)
			rs1 := rvcReg((c >> 7) & 0x7)
			imm := ((c>>6)&0x1)<<2 | ((c>>10)&0x7)<<3 | ((c>>5)&0x1)<<6
			return encodeS(uint32(imm), uint32(rs1), uint32(rs2), 0x2, opStore), true
		case 0x7: // C.SD
			rs2 := rvcReg((c >> 2) & 0x7)
			rs1 := rvcReg((c >> 7) & 0x7)
			imm := ((c>>10)&0x7)<<3 | ((c>>5)&0x3)<<6
			return encodeS(uint32(imm), uint32(rs1), uint32(rs2), 0x3, opStore), true
		}

	case 0x1: // C1
		switch funct3 {
		case 0x0: // C.ADDI / C.NOP
			rd := uint32((c >> 7) & 0x1f)
			imm := signExtendC(uint32((c>>12)&0x1)<<5|uint32((c>>2)&0x1f), 6)
			return encodeI(uint32(imm), rd, rd, 0x0, 0x13), true
		case 0x1: // C.ADDIW
			rd := uint32((c >> 7) & 0x1f)
			imm := signExtendC(uint32((c>>12)&0x1)<<5|uint32((c>>2)&0x1f), 6)
			return encodeI(uint32(imm), rd, rd, 0x0, opOpImm32), true
		case 0x2: // C.LI
			rd := uint32((c >> 7) & 0x1f)
			imm := signExtendC(uint32((c>>12)&0x1)<<5|uint32((c>>2)&0x1f), 6)
			return encodeI(uint32(imm), 0, rd, 0x0, 0x13), true
		case 0x3:
			rd := uint32((c >> 7) & 0x1f)
			if rd == 2 { // C.ADDI16SP
				imm := uint32((c>>12)&0x1)<<9 | uint32((c>>3)&0x3)<<7 |
					uint32((c>>5)&0x1)<<6 | uint32((c>>2)&0x1)<<5 | uint32((c>>6)&0x1)<<4
				return encodeI(uint32(signExtendC(imm, 10)), 2, 2, 0x0, 0x13), true
			}
			// C.LUI
			imm := uint32((c>>12)&0x1)<<17 | uint32((c>>2)&0x1f)<<12
			return encodeU(uint32(signExtendC(imm, 18)), rd, opLui), true
		case 0x4:
			funct2 := (c >> 10) & 0x3
			rd := rvcReg((c >> 7) & 0x7)
			switch funct2 {
			case 0x0: // C.SRLI
				shamt := uint32((c>>12)&0x1)<<5 | uint32((c>>2)&0x1f)
				return encodeShift(shamt, uint32(rd), uint32(rd), 0x5, 0x00), true
			case 0x1: // C.SRAI
				shamt := uint32((c>>12)&0x1)<<5 | uint32((c>>2)&0x1f)
				return encodeShift(shamt, uint32(rd), uint32(rd), 0x5, 0x20), true
			case 0x2: // C.ANDI
				imm := uint32(signExtendC(uint32((c>>12)&0x1)<<5|uint32((c>>2)&0x1f), 6))
				return encodeI(imm, uint32(rd), uint32(rd), 0x7, 0x13), true
			case 0x3:
				rs2 := rvcReg((c >> 2) & 0x7)
				funct6bit2 := (c >> 5) & 0x3
				isWord := (c>>12)&0x1 == 1
				var f3, f7, op32 uint32
				if isWord {
					op32 = uint32(opOp32)
					switch funct6bit2 {
					case 0x0:
						f3, f7 = 0x0, 0x20 // C.SUBW
					case 0x1:
						f3, f7 = 0x0, 0x00 // C.ADDW
					default:
						return 0, false // reserved
					}
				} else {
					op32 = uint32(opOp)
					switch funct6bit2 {
					case 0x0:
						f3, f7 = 0x0, 0x20 // C.SUB
					case 0x1:
						f3, f7 = 0x4, 0x00 // C.XOR
					case 0x2:
						f3, f7 = 0x6, 0x00 // C.OR
					case 0x3:
						f3, f7 = 0x7, 0x00 // C.AND
					}
				}
				return encodeR(uint32(rd), uint32(rd), uint32(rs2), f3, f7, op32), true
			}
		case 0x5: // C.J
			imm := cjImm(c)
			return encodeJ(uint32(imm), 0), true
		case 0x6: // C.BEQZ
			rs1 := rvcReg((c >> 7) & 0x7)
			imm := cbImm(c)
			return encodeB(uint32(imm), uint32(rs1), 0, 0x0), true
		case 0x7: // C.BNEZ
			rs1 := rvcReg((c >> 7) & 0x7)
			imm := cbImm(c)
			return encodeB(uint32(imm), uint32(rs1), 0, 0x1), true
		}

	case 0x2: // C2
		switch funct3 {
		case 0x0: // C.SLLI
			rd := uint32((c >> 7) & 0x1f)
			shamt := uint32((c>>12)&0x1)<<5 | uint32((c>>2)&0x1f)
			return encodeShift(shamt, rd, rd, 0x1, 0x00), true
		case 0x2: // C.LWSP
			rd := uint32((c >> 7) & 0x1f)
			imm := uint32((c>>4)&0x7)<<2 | uint32((c>>12)&0x1)<<5 | uint32((c>>2)&0x3)<<6
			return encodeI(imm, 2, rd, 0x2, opLoad), true
		case 0x3: // C.LDSP
			rd := uint32((c >> 7) & 0x1f)
			imm := uint32((c>>5)&0x3)<<3 | uint32((c>>12)&0x1)<<5 | uint32((c>>2)&0x7)<<6
			return encodeI(imm, 2, rd, 0x3, opLoad), true
		case 0x4:
			bit12 := (c >> 12) & 0x1
			rd := uint32((c >> 7) & 0x1f)
			rs2 := uint32((c >> 2) & 0x1f)
			switch {
			case bit12 == 0 && rs2 == 0: // C.JR
				return encodeI(0, rd, 0, 0x0, opJalr), true
			case bit12 == 0: // C.MV
				return encodeR(rd, 0, rs2, 0x0, 0x00, opOp), true
			case bit12 == 1 && rd == 0 && rs2 == 0: // C.EBREAK
				return 0x00100073, true
			case bit12 == 1 && rs2 == 0: // C.JALR
				return encodeI(0, rd, 1, 0x0, opJalr), true
			default: // C.ADD
				return encodeR(rd, rd, rs2, 0x0, 0x00, opOp), true
			}
		case 0x6: // C.SWSP
			rs2 := uint32((c >> 2) & 0x1f)
			imm := uint32((c>>9)&0xf)<<2 | uint32((c>>7)&0x3)<<6
			return encodeS(imm, 2, rs2, 0x2, opStore), true
		case 0x7: // C.SDSP
			rs2 := uint32((c >> 2) & 0x1f)
			imm := uint32((c>>10)&0x7)<<3 | uint32((c>>7)&0x7)<<6
			return encodeS(imm, 2, rs2, 0x3, opStore), true
		}
	}
	return 0, false
}

func signExtendC(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

func cjImm(c uint16) int32 {
	imm := uint32((c>>3)&0x7)<<1 | uint32((c>>11)&0x1)<<4 | uint32((c>>2)&0x1)<<5 |
		uint32((c>>7)&0x1)<<6 | uint32((c>>6)&0x1)<<7 | uint32((c>>9)&0x3)<<8 |
		uint32((c>>8)&0x1)<<10 | uint32((c>>12)&0x1)<<11
	return signExtendC(imm, 12)
}

func cbImm(c uint16) int32 {
	imm := uint32((c>>3)&0x3)<<1 | uint32((c>>10)&0x3)<<3 | uint32((c>>2)&0x1)<<5 |
		uint32((c>>5)&0x3)<<6 | uint32((c>>12)&0x1)<<8
	return signExtendC(imm, 9)
}

func encodeI(imm, rs1, rd, funct3, op uint32) uint32 {
	return (imm&0xfff)<<20 | (rs1&0x1f)<<15 | (funct3&0x7)<<12 | (rd&0x1f)<<7 | (op & 0x7f)
}

func encodeShift(shamt, rs1, rd, funct3, funct7 uint32) uint32 {
	return (funct7&0x7f)<<25 | (shamt&0x3f)<<20 | (rs1&0x1f)<<15 | (funct3&0x7)<<12 | (rd&0x1f)<<7 | opOpImm
}

func encodeS(imm, rs1, rs2, funct3, op uint32) uint32 {
	return (imm&0xfe0)<<20 | (rs2&0x1f)<<20 | (rs1&0x1f)<<15 | (funct3&0x7)<<12 | (imm&0x1f)<<7 | (op & 0x7f)
}

func encodeB(imm, rs1, rs2, funct3 uint32) uint32 {
	b12 := (imm >> 12) & 0x1
	b10_5 := (imm >> 5) & 0x3f
	b4_1 := (imm >> 1) & 0xf
	b11 := (imm >> 11) & 0x1
	return b12<<31 | b10_5<<25 | (rs2&0x1f)<<20 | (rs1&0x1f)<<15 | (funct3&0x7)<<12 | b4_1<<8 | b11<<7 | opBranch
}

func encodeU(imm, rd, op uint32) uint32 {
	return (imm & 0xfffff000) | (rd&0x1f)<<7 | (op & 0x7f)
}

func encodeJ(imm, rd uint32) uint32 {
	b20 := (imm >> 20) & 0x1
	b10_1 := (imm >> 1) & 0x3ff
	b11 := (imm >> 11) & 0x1
	b19_12 := (imm >> 12) & 0xff
	return b20<<31 | b10_1<<21 | b11<<20 | b19_12<<12 | (rd&0x1f)<<7 | opJal
}

func encodeR(rd, rs1, rs2, funct3, funct7, op uint32) uint32 {
	return (funct7&0x7f)<<25 | (rs2&0x1f)<<20 | (rs1&0x1f)<<15 | (funct3&0x7)<<12 | (rd&0x1f)<<7 | (op & 0x7f)
}

// DecodeRaw decodes whichever of a 16-bit or 32-bit instruction is present
// in word32 (the word fetched from pc), returning the decoded Inst and the size in bytes (2 or
// 4) that PC should advance by if this instruction doesn't branch.
func DecodeRaw(word32 uint32, pc uint64) (Inst, int, error) {
	low16 := uint16(word32)
	if IsCompressed(low16) {
		expanded, ok := ExpandCompressed(low16)
		if !ok {
			return Inst{}, 0, emuerr.Fatalf(emuerr.ErrIllegalInstruction, "bad compressed inst=%#x pc=%#x", low16, pc)
		}
		inst, err := Decode(expanded, pc)
		if err != nil {
			return Inst{}, 0, err
		}
		inst.Rvc = true
		return inst, 2, nil
	}
	inst, err := Decode(word32, pc)
	if err != nil {
		return Inst{}, 0, err
	}
	return inst, 4, nil
}
