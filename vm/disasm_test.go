package vm

import (
	"strings"
	"testing"
)

func TestDisassembleCopyConstToPush(t *testing.T) {
	rom := buildRom(funcHeader([]byte{opCopy, 0x81, 42, opNop}))
	mem, err := FromRom(rom)
	if err != nil {
		t.Fatal(err)
	}
	pc := mem.RAMStart() + 3 // past the function header (0xC0 00 00)
	text, next := Disassemble(mem, pc)
	if !strings.Contains(text, "copy") || !strings.Contains(text, "#42") || !strings.Contains(text, "push") {
		t.Errorf("got %q, want mention of copy/#42/push", text)
	}
	if next != pc+3 {
		t.Errorf("next = 0x%X, want 0x%X", next, pc+3)
	}
}

func TestDisassembleUnknownOpcode(t *testing.T) {
	rom := buildRom(funcHeader([]byte{0x7F}))
	mem, err := FromRom(rom)
	if err != nil {
		t.Fatal(err)
	}
	pc := mem.RAMStart() + 3
	text, _ := Disassemble(mem, pc)
	if !strings.Contains(text, "unknown opcode") {
		t.Errorf("got %q, want mention of unknown opcode", text)
	}
}

func TestDisassembleNoOperandOpcode(t *testing.T) {
	rom := buildRom(funcHeader([]byte{0x81, 0x20})) // quit, 2-byte opcode encoding of 0x120
	mem, err := FromRom(rom)
	if err != nil {
		t.Fatal(err)
	}
	pc := mem.RAMStart() + 3
	text, next := Disassemble(mem, pc)
	if !strings.Contains(text, "quit") {
		t.Errorf("got %q, want mention of quit", text)
	}
	if next != pc+2 {
		t.Errorf("next = 0x%X, want 0x%X", next, pc+2)
	}
}
