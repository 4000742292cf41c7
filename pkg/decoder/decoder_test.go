package decoder

import "testing"

func TestDecodeAddi(t *testing.T) {
	// addi a0, a0, 42  => imm=42, rs1=10, funct3=0, rd=10, opcode=0x13
	raw := uint32(42)<<20 | uint32(10)<<15 | uint32(10)<<7 | opOpImm
	inst, err := Decode(raw, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.Type != InstAddi || inst.Rd != 10 || inst.Rs1 != 10 || inst.Imm != 42 {
		t.Fatalf("got %+v", inst)
	}
}

func TestDecodeNegativeImmediate(t *testing.T) {
	// addi a0, a0, -1 : imm bits = 0xfff
	raw := uint32(0xfff)<<20 | uint32(10)<<15 | uint32(10)<<7 | opOpImm
	inst, err := Decode(raw, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.Imm != -1 {
		t.Fatalf("Imm = %d, want -1", inst.Imm)
	}
}

func TestDecodeLui(t *testing.T) {
	raw := uint32(0x12345) << 12 // rd=0, imm=0x12345000
	raw |= 0 << 7
	raw |= opLui
	inst, err := Decode(raw, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.Type != InstLui || inst.Imm != 0x12345000 {
		t.Fatalf("got %+v", inst)
	}
}

func TestDecodeBranchImmSign(t *testing.T) {
	// beq x0, x0, -4 (loop to self): imm = -4 -> binary 1...100
	var raw uint32
	imm := uint32(int64(-4) & 0x1fff)
	raw |= ((imm >> 12) & 0x1) << 31
	raw |= ((imm >> 5) & 0x3f) << 25
	raw |= 0 << 20 // rs2
	raw |= 0 << 15 // rs1
	raw |= 0x0 << 12
	raw |= ((imm >> 1) & 0xf) << 8
	raw |= ((imm >> 11) & 0x1) << 7
	raw |= opBranch
	inst, err := Decode(raw, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.Type != InstBeq || inst.Imm != -4 {
		t.Fatalf("got %+v", inst)
	}
}

func TestIllegalInstruction(t *testing.T) {
	_, err := Decode(0x0, 0x1000)
	if err == nil {
		t.Fatal("expected error decoding all-zero word")
	}
}

func TestExpandCAddi(t *testing.T) {
	// c.addi x1, 1 : op=01 funct3=000 rd=1 imm=1
	c := uint16(0x1<<7 | 0x1<<2 | 0x1)
	raw, ok := ExpandCompressed(c)
	if !ok {
		t.Fatal("expected ok")
	}
	inst, err := Decode(raw, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.Type != InstAddi || inst.Rd != 1 || inst.Rs1 != 1 || inst.Imm != 1 {
		t.Fatalf("got %+v", inst)
	}
}

func TestExpandCAddw(t *testing.T) {
	// c.addw x9, x10 : funct3=100 bit12=1(word) funct2=11 rd'=001(x9)
	// funct6bit2=01(ADDW) rs2'=010(x10) op=01
	c := uint16(0x4<<13 | 0x1<<12 | 0x3<<10 | 0x1<<7 | 0x1<<5 | 0x2<<2 | 0x1)
	raw, ok := ExpandCompressed(c)
	if !ok {
		t.Fatal("expected ok")
	}
	inst, err := Decode(raw, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.Type != InstAddw || inst.Rd != 9 || inst.Rs1 != 9 || inst.Rs2 != 10 {
		t.Fatalf("got %+v", inst)
	}
}

func TestIsCompressed(t *testing.T) {
	if !IsCompressed(0x0001) {
		t.Fatal("0x0001 should be compressed")
	}
	if IsCompressed(0xffff) {
		t.Fatal("0xffff (low bits 11) should not be compressed")
	}
}
