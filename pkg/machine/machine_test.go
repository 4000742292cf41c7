package machine

import "testing"

func TestFPRegNaNBoxing(t *testing.T) {
	var r FPReg
	r.StoreSingle(0x3f800000) // 1.0f
	if r.AsSingleBits() != 0x3f800000 {
		t.Fatalf("single bits = %x", r.AsSingleBits())
	}
	if r.Bits>>32 != 0xffffffff {
		t.Fatalf("expected NaN-boxed upper half, got %x", r.Bits>>32)
	}
}

func TestFPRegStoreDouble(t *testing.T) {
	var r FPReg
	r.StoreDouble(0x3ff0000000000000) // 1.0
	if r.AsDoubleBits() != 0x3ff0000000000000 {
		t.Fatalf("double bits = %x", r.AsDoubleBits())
	}
}

func TestClearZero(t *testing.T) {
	var s State
	s.GPRegs[0] = 0xdeadbeef
	s.ClearZero()
	if s.GPRegs[0] != 0 {
		t.Fatalf("GPRegs[0] = %x, want 0", s.GPRegs[0])
	}
}
