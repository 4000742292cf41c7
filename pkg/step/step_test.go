package step

import (
	"testing"

	"github.com/bassosimone/rv64emu/pkg/machine"
)

func TestExitReasonEnumDistinct(t *testing.T) {
	reasons := []machine.ExitReason{
		machine.ExitNone,
		machine.ExitDirectBranch,
		machine.ExitIndirectBranch,
		machine.ExitEcall,
	}
	seen := map[machine.ExitReason]bool{}
	for _, r := range reasons {
		if seen[r] {
			t.Fatalf("duplicate ExitReason value %v", r)
		}
		seen[r] = true
	}
}
