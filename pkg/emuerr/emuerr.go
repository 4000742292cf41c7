// Package emuerr collects the error values and fatal-error formatting shared
// by every layer of the emulator.
package emuerr

import (
	"errors"
	"fmt"
	"runtime"
)

var (
	// ErrInvalidElf indicates the input file is not a loadable RISC-V64 ELF
	// executable (bad magic, wrong class, wrong machine, truncated header).
	ErrInvalidElf = errors.New("emuerr: invalid elf")

	// ErrMmapFailure indicates a host mmap/munmap/mprotect call failed while
	// the MMU was mapping or unmapping guest memory.
	ErrMmapFailure = errors.New("emuerr: mmap failure")

	// ErrIllegalInstruction indicates the decoder read a 16- or 32-bit word
	// it could not decode into any known RV64IMFDC instruction.
	ErrIllegalInstruction = errors.New("emuerr: illegal instruction")

	// ErrUnsupportedCsr indicates a csrr* instruction referenced a CSR other
	// than fflags, frm or fcsr.
	ErrUnsupportedCsr = errors.New("emuerr: unsupported csr")

	// ErrGuestFault indicates a guest memory access fell outside any mapped
	// region.
	ErrGuestFault = errors.New("emuerr: guest fault")
)

// Fatalf formats a message in the style of the original emulator's fatal()
// macro ("fatal: <file>:<line> <message>") and returns it as an error
// wrapping the given sentinel. Callers that want process-fatal behavior can
// pass the result to log.Fatal; callers that want to recover pass it up the
// call stack like any other error.
func Fatalf(sentinel error, format string, args ...any) error {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file, line = "???", 0
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("fatal: %s:%d %s: %w", file, line, msg, sentinel)
}
