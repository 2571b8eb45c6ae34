package vm

import "testing"

func TestGestaltVersionSelectors(t *testing.T) {
	if got := Gestalt(0x0, 0); got != gestaltVersion {
		t.Errorf("Gestalt(version) = 0x%X, want 0x%X", got, gestaltVersion)
	}
	if got := Gestalt(0x1, 0); got != gestaltInterpreterVersion {
		t.Errorf("Gestalt(interpreter version) = 0x%X, want 0x%X", got, gestaltInterpreterVersion)
	}
}

func TestGestaltIOSystemReportsNullAndFilterOnly(t *testing.T) {
	if got := Gestalt(0x4, IOSystemNull); got != 1 {
		t.Errorf("Gestalt(IOSystem, Null) = %d, want 1", got)
	}
	if got := Gestalt(0x4, IOSystemFilter); got != 1 {
		t.Errorf("Gestalt(IOSystem, Filter) = %d, want 1", got)
	}
	if got := Gestalt(0x4, IOSystemGlk); got != 0 {
		t.Errorf("Gestalt(IOSystem, Glk) = %d, want 0", got)
	}
}

func TestGestaltFloatAndHeapReporting(t *testing.T) {
	if got := Gestalt(0xB, 0); got != 1 {
		t.Errorf("Gestalt(Float) = %d, want 1", got)
	}
	if got := Gestalt(0x7, 0); got != 0 {
		t.Errorf("Gestalt(MAlloc) = %d, want 0", got)
	}
	if got := Gestalt(0x9, 0); got != 0 {
		t.Errorf("Gestalt(Acceleration) = %d, want 0", got)
	}
}

func TestGestaltUnknownSelectorReportsZero(t *testing.T) {
	if got := Gestalt(0xFF, 0); got != 0 {
		t.Errorf("Gestalt(unknown) = %d, want 0", got)
	}
}

func TestOpcodeTableCoversEveryNamedOpcode(t *testing.T) {
	names := map[uint32]string{
		opAdd: "add", opQuit: "quit", opCall: "call", opCatch: "catch",
		opLinearsearch: "linearsearch", opJfgt: "jfgt",
	}
	for num, name := range names {
		def, ok := opcodeTable[num]
		if !ok {
			t.Fatalf("opcode 0x%X missing from table", num)
		}
		if def.Name != name {
			t.Errorf("opcode 0x%X name = %q, want %q", num, def.Name, name)
		}
	}
}
