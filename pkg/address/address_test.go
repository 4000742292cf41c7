package address

import "testing"

func TestToHostToGuestRoundTrip(t *testing.T) {
	guest := uint64(0x10000)
	host := ToHost(guest)
	if host != guest+Offset {
		t.Fatalf("ToHost(%x) = %x, want %x", guest, host, guest+Offset)
	}
	if got := ToGuest(host); got != guest {
		t.Fatalf("ToGuest(ToHost(%x)) = %x, want %x", guest, got, guest)
	}
}

func TestRoundDownRoundUp(t *testing.T) {
	const pageSize = 0x1000
	cases := []struct{ in, down, up uint64 }{
		{0x0, 0x0, 0x0},
		{0x1, 0x0, 0x1000},
		{0x1000, 0x1000, 0x1000},
		{0x1001, 0x1000, 0x2000},
		{0x8048034, 0x8048000, 0x8049000},
	}
	for _, c := range cases {
		if got := RoundDown(c.in, pageSize); got != c.down {
			t.Errorf("RoundDown(%x) = %x, want %x", c.in, got, c.down)
		}
		if got := RoundUp(c.in, pageSize); got != c.up {
			t.Errorf("RoundUp(%x) = %x, want %x", c.in, got, c.up)
		}
	}
}

func TestRegisterName(t *testing.T) {
	cases := map[int]string{
		Zero: "zero",
		Ra:   "ra",
		Sp:   "sp",
		A0:   "a0",
		A7:   "a7",
		T6:   "t6",
	}
	for idx, want := range cases {
		if got := RegisterName(idx); got != want {
			t.Errorf("RegisterName(%d) = %q, want %q", idx, got, want)
		}
	}
	if got := RegisterName(32); got != "" {
		t.Errorf("RegisterName(32) = %q, want empty", got)
	}
	if got := RegisterName(-1); got != "" {
		t.Errorf("RegisterName(-1) = %q, want empty", got)
	}
}
