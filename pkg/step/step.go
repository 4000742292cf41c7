// Package step implements the driver loop that sits between pkg/interp and
// a syscall dispatcher: it keeps calling interp.Block, follows direct and
// indirect branch exits by feeding ReenterPC back in as PC, and returns to
// the caller only when a block ends on ecall.
package step

import (
	"github.com/bassosimone/rv64emu/pkg/interp"
	"github.com/bassosimone/rv64emu/pkg/machine"
	"github.com/bassosimone/rv64emu/pkg/mmu"
)

// Step runs blocks until the guest issues an ecall, then returns with
// st.PC left at the ecall instruction's reentry address (the instruction
// right after it) so a second call to Step resumes normal execution once
// the caller has serviced the syscall.
func Step(m *mmu.MMU, st *machine.State) error {
	for {
		if err := interp.Block(m, st); err != nil {
			return err
		}
		st.PC = st.ReenterPC
		if st.ExitReason == machine.ExitEcall {
			return nil
		}
	}
}
