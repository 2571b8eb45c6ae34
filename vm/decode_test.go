package vm

import "testing"

func TestFetchOpcodeNumberWidths(t *testing.T) {
	rom := buildRom(funcHeader([]byte{opNop}))
	mem, err := FromRom(rom)
	if err != nil {
		t.Fatal(err)
	}
	base := mem.RAMStart()

	// One-byte form: top bit clear.
	mem.WriteU8(base, 0x10)
	pc := base
	if got := FetchOpcodeNumber(mem, &pc); got != 0x10 {
		t.Errorf("1-byte opcode = 0x%X, want 0x10", got)
	}
	if pc != base+1 {
		t.Errorf("pc advanced to 0x%X, want 0x%X", pc, base+1)
	}

	// Two-byte form: top two bits 10, value is raw - 0x8000.
	mem.WriteU16(base, 0x8130)
	pc = base
	if got := FetchOpcodeNumber(mem, &pc); got != 0x130 {
		t.Errorf("2-byte opcode = 0x%X, want 0x130", got)
	}
	if pc != base+2 {
		t.Errorf("pc advanced to 0x%X, want 0x%X", pc, base+2)
	}

	// Four-byte form: top two bits 11, value is raw - 0xC0000000.
	mem.WriteU32(base, 0xC0000150)
	pc = base
	if got := FetchOpcodeNumber(mem, &pc); got != 0x150 {
		t.Errorf("4-byte opcode = 0x%X, want 0x150", got)
	}
	if pc != base+4 {
		t.Errorf("pc advanced to 0x%X, want 0x%X", pc, base+4)
	}
}

func TestFetchOperandModesPacking(t *testing.T) {
	rom := buildRom(funcHeader([]byte{opNop}))
	mem, err := FromRom(rom)
	if err != nil {
		t.Fatal(err)
	}
	base := mem.RAMStart()
	mem.WriteU8(base, 0x51)   // operand0 = mode 1 (const1), operand1 = mode 5 (addr1)
	mem.WriteU8(base+1, 0x08) // operand2 = mode 8 (stack)

	pc := base
	modes := FetchOperandModes(mem, &pc, 3)
	want := []byte{0x1, 0x5, 0x8}
	for i, w := range want {
		if modes[i] != w {
			t.Errorf("modes[%d] = 0x%X, want 0x%X", i, modes[i], w)
		}
	}
	if pc != base+2 {
		t.Errorf("pc advanced to 0x%X, want 0x%X", pc, base+2)
	}
}

func TestMaterializeLoadConstForms(t *testing.T) {
	rom := buildRom(funcHeader([]byte{opNop}))
	mem, err := FromRom(rom)
	if err != nil {
		t.Fatal(err)
	}
	base := mem.RAMStart()
	mem.WriteI8(base, -7)
	pc := base
	l, err := MaterializeLoad(mem, &pc, modeConst1, false)
	if err != nil {
		t.Fatal(err)
	}
	if l.Kind != LoadConst || l.Const != -7 {
		t.Errorf("got %+v, want Const=-7", l)
	}
	if pc != base+1 {
		t.Errorf("pc = 0x%X, want 0x%X", pc, base+1)
	}
}

func TestMaterializeLoadRejectsNarrowFloatConstant(t *testing.T) {
	rom := buildRom(funcHeader([]byte{opNop}))
	mem, err := FromRom(rom)
	if err != nil {
		t.Fatal(err)
	}
	pc := mem.RAMStart()
	if _, err := MaterializeLoad(mem, &pc, modeConst1, true); err != ErrBadAddressingMode {
		t.Fatalf("expected ErrBadAddressingMode for narrow float const, got %v", err)
	}
}

func TestMaterializeSaveTaxonomy(t *testing.T) {
	rom := buildRom(funcHeader([]byte{opNop}))
	mem, err := FromRom(rom)
	if err != nil {
		t.Fatal(err)
	}
	pc := mem.RAMStart()
	s, err := MaterializeSave(mem, &pc, modeStack)
	if err != nil {
		t.Fatal(err)
	}
	if s.Kind != SavePush {
		t.Errorf("got Kind=%v, want SavePush", s.Kind)
	}
}

func TestReadLocalsDescriptorTerminates(t *testing.T) {
	rom := buildRom(funcHeader([]byte{opNop}))
	mem, err := FromRom(rom)
	if err != nil {
		t.Fatal(err)
	}
	base := mem.RAMStart()
	mem.WriteU8(base, 4)
	mem.WriteU8(base+1, 3)
	mem.WriteU8(base+2, 1)
	mem.WriteU8(base+3, 2)
	mem.WriteU8(base+4, 0)
	mem.WriteU8(base+5, 0)

	pc := base
	desc := ReadLocalsDescriptor(mem, &pc)
	if len(desc) != 2 {
		t.Fatalf("got %d groups, want 2", len(desc))
	}
	if desc[0] != (LocalsGroup{Width: 4, Count: 3}) {
		t.Errorf("desc[0] = %+v", desc[0])
	}
	if desc[1] != (LocalsGroup{Width: 1, Count: 2}) {
		t.Errorf("desc[1] = %+v", desc[1])
	}
	if pc != base+6 {
		t.Errorf("pc = 0x%X, want 0x%X", pc, base+6)
	}
}
