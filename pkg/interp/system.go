package interp

import (
	"github.com/bassosimone/rv64emu/pkg/decoder"
	"github.com/bassosimone/rv64emu/pkg/emuerr"
	"github.com/bassosimone/rv64emu/pkg/machine"
	"github.com/bassosimone/rv64emu/pkg/mmu"
)

// execCsr handles all six csrr* variants. Only the three floating-point
// status CSRs are recognised, and none of them has an observable effect:
// rd is always written 0, matching the reference interpreter's func_csrrw
// family exactly (it checks the CSR is legal, then hard-codes rd = 0
// instead of returning the CSR's actual value).
func execCsr(st *machine.State, _ *mmu.MMU, inst *decoder.Inst) {
	switch inst.Csr {
	case decoder.CsrFflags, decoder.CsrFrm, decoder.CsrFcsr:
	default:
		panic(emuerr.Fatalf(emuerr.ErrUnsupportedCsr, "csr=%#x", inst.Csr))
	}
	setRd(st, inst, 0)
}
