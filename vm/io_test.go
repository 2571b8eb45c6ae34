package vm

import "testing"

func TestNullManagerDiscardsAndGestalts(t *testing.T) {
	n := NewNullManager()
	if got := n.Dispatch(DispatchStreamChar, []uint32{'a'}, nil); got != 0 {
		t.Errorf("NullManager.Dispatch = %d, want 0", got)
	}
	if got := n.GestaltSubsystem(IOSystemNull); got != 1 {
		t.Errorf("GestaltSubsystem(Null) = %d, want 1", got)
	}
	if got := n.GestaltSubsystem(IOSystemGlk); got != 0 {
		t.Errorf("GestaltSubsystem(Glk) = %d, want 0", got)
	}
}

func TestFilterManagerStreamCharAndNum(t *testing.T) {
	var out []rune
	f := NewFilterManager(func(r rune) { out = append(out, r) })
	f.Dispatch(DispatchStreamChar, []uint32{'Q'}, nil)
	f.Dispatch(DispatchStreamNum, []uint32{uint32(int32(-123))}, nil)
	if got := string(out); got != "Q-123" {
		t.Fatalf("got %q, want %q", got, "Q-123")
	}
}

func TestFilterManagerStreamStrPlainC(t *testing.T) {
	rom := buildRom(funcHeader([]byte{opNop}))
	mem, err := FromRom(rom)
	if err != nil {
		t.Fatal(err)
	}
	addr := mem.RAMStart()
	mem.WriteU8(addr, 0xE0)
	for i, c := range []byte("hi") {
		mem.WriteU8(addr+1+uint32(i), c)
	}
	mem.WriteU8(addr+3, 0)

	var out []rune
	f := NewFilterManager(func(r rune) { out = append(out, r) })
	f.Dispatch(DispatchStreamStr, []uint32{addr}, mem)
	if got := string(out); got != "hi" {
		t.Fatalf("got %q, want %q", got, "hi")
	}
}

func TestFilterManagerStreamStrUnicode(t *testing.T) {
	rom := buildRom(funcHeader([]byte{opNop}))
	mem, err := FromRom(rom)
	if err != nil {
		t.Fatal(err)
	}
	addr := mem.RAMStart()
	mem.WriteU8(addr, 0xE2)
	mem.WriteU32(addr+4, 'x')
	mem.WriteU32(addr+8, 0)

	var out []rune
	f := NewFilterManager(func(r rune) { out = append(out, r) })
	f.Dispatch(DispatchStreamStr, []uint32{addr}, mem)
	if got := string(out); got != "x" {
		t.Fatalf("got %q, want %q", got, "x")
	}
}

func TestFilterManagerHuffmanStringPanicsUnimplemented(t *testing.T) {
	rom := buildRom(funcHeader([]byte{opNop}))
	mem, err := FromRom(rom)
	if err != nil {
		t.Fatal(err)
	}
	addr := mem.RAMStart()
	mem.WriteU8(addr, 0xE1)

	defer func() {
		if r := recover(); r != ErrUnimplemented {
			t.Fatalf("expected ErrUnimplemented panic, got %v", r)
		}
	}()
	f := NewFilterManager(nil)
	f.Dispatch(DispatchStreamStr, []uint32{addr}, mem)
}

func TestSetGetSubsystemRoundTrip(t *testing.T) {
	f := NewFilterManager(nil)
	f.SetSubsystem(IOSystemGlk, 0xCAFE)
	mode, rock := f.GetSubsystem()
	if mode != IOSystemGlk || rock != 0xCAFE {
		t.Fatalf("got (%d, 0x%X), want (IOSystemGlk, 0xCAFE)", mode, rock)
	}
}
