package vmlog

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewNopDoesNotPanic(t *testing.T) {
	l := NewNop()
	l.Opcode(0x100, "nop", 0)
	l.Fault(uuid.New(), 0x100, 0x10, nil)
	l.Call(0x100, 0x200, 2, false)
	l.Session(uuid.New(), 0x100)
}

func TestHexFormatsWithoutLeadingZeros(t *testing.T) {
	if got := Hex(0); got != "0x0" {
		t.Errorf("Hex(0) = %q, want 0x0", got)
	}
	if got := Hex(0x1A); got != "0x1a" {
		t.Errorf("Hex(0x1A) = %q, want 0x1a", got)
	}
}
