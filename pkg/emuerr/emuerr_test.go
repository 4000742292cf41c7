package emuerr

import (
	"errors"
	"strings"
	"testing"
)

func TestFatalfWrapsSentinel(t *testing.T) {
	err := Fatalf(ErrInvalidElf, "bad header at %#x", 0x1000)
	if !errors.Is(err, ErrInvalidElf) {
		t.Fatal("Fatalf result must wrap the given sentinel")
	}
	if !strings.Contains(err.Error(), "bad header at 0x1000") {
		t.Fatalf("message missing formatted text: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "fatal: ") {
		t.Fatalf("message must start with 'fatal: ', got %q", err.Error())
	}
}
