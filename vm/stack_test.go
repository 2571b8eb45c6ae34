package vm

import "testing"

func TestPushPopRoundTrip(t *testing.T) {
	s := NewStack(0x1000)
	s.PushCallStub(destNull, 0, 0)
	s.PushCallFrame(nil, nil, FrameC0)

	s.PushU32(0x11223344)
	s.PushU8(0xAB)
	s.PushU16(0xBEEF)

	if got := s.PopU16(); got != 0xBEEF {
		t.Errorf("PopU16 = 0x%X, want 0xBEEF", got)
	}
	if got := s.PopU8(); got != 0xAB {
		t.Errorf("PopU8 = 0x%X, want 0xAB", got)
	}
	if got := s.PopU32(); got != 0x11223344 {
		t.Errorf("PopU32 = 0x%X, want 0x11223344", got)
	}
}

func TestPopUnderflowPanics(t *testing.T) {
	s := NewStack(0x1000)
	defer func() {
		if r := recover(); r != ErrStackUnderflow {
			t.Fatalf("expected ErrStackUnderflow, got %v", r)
		}
	}()
	s.PopU32()
}

func TestCallStubRoundTrip(t *testing.T) {
	s := NewStack(0x1000)
	s.PushCallStub(destAddr, 0x4000, 0x8080)
	dt, da, ret := s.PopCallStub()
	if dt != destAddr || da != 0x4000 || ret != 0x8080 {
		t.Fatalf("got (%d, 0x%X, 0x%X), want (destAddr, 0x4000, 0x8080)", dt, da, ret)
	}
}

func TestPushCallFrameC0LocalsAndArgs(t *testing.T) {
	s := NewStack(0x1000)
	s.PushCallStub(destNull, 0, 0)
	locals := LocalsDescriptor{{Width: 4, Count: 2}}
	s.PushCallFrame(locals, []uint32{1, 2}, FrameC0)

	if got := s.ReadLocalU32(0); got != 0 {
		t.Errorf("C0 locals are not populated from args; got local0=%d", got)
	}
	// Args land on the operand stack above the locals, in Pop order.
	if got := s.StkCount(); got != 2 {
		t.Fatalf("StkCount = %d, want 2", got)
	}
	if got := s.PopU32(); got != 1 {
		t.Errorf("top of operand stack = %d, want 1 (first arg popped first)", got)
	}
}

func TestPushCallFrameC1DistributesArgsIntoLocals(t *testing.T) {
	s := NewStack(0x1000)
	s.PushCallStub(destNull, 0, 0)
	locals := LocalsDescriptor{{Width: 4, Count: 2}}
	s.PushCallFrame(locals, []uint32{7, 9}, FrameC1)

	if got := s.ReadLocalU32(0); got != 7 {
		t.Errorf("local0 = %d, want 7", got)
	}
	if got := s.ReadLocalU32(4); got != 9 {
		t.Errorf("local1 = %d, want 9", got)
	}
	if got := s.StkCount(); got != 0 {
		t.Errorf("StkCount = %d, want 0 (C1 leaves nothing on the operand stack)", got)
	}
}

func TestStkSwapAndCopyAndRoll(t *testing.T) {
	s := NewStack(0x1000)
	s.PushCallStub(destNull, 0, 0)
	s.PushCallFrame(nil, nil, FrameC0)

	s.PushU32(1)
	s.PushU32(2)
	s.StkSwap()
	if got := s.PopU32(); got != 1 {
		t.Fatalf("after swap top = %d, want 1", got)
	}
	if got := s.PopU32(); got != 2 {
		t.Fatalf("after swap+pop = %d, want 2", got)
	}

	s.PushU32(10)
	s.PushU32(20)
	s.PushU32(30)
	s.StkCopy(2)
	if got := s.PopU32(); got != 30 {
		t.Fatalf("StkCopy top copy = %d, want 30", got)
	}
	if got := s.PopU32(); got != 20 {
		t.Fatalf("StkCopy second copy = %d, want 20", got)
	}

	s.StkRoll(3, 1)
	if got := s.PopU32(); got != 20 {
		t.Fatalf("after StkRoll(3,1) top = %d, want 20", got)
	}
}

func TestTruncateRestoresFramePtr(t *testing.T) {
	s := NewStack(0x1000)
	s.PushCallStub(destNull, 0, 0)
	s.PushCallFrame(nil, nil, FrameC0)
	savedLen, savedFp := s.Len(), s.FramePtr()

	s.PushCallStub(destAddr, 0x10, 0x20)
	s.PushCallFrame(nil, nil, FrameC0)
	s.PushU32(0xFF)

	s.Truncate(savedLen, savedFp)
	if s.Len() != savedLen || s.FramePtr() != savedFp {
		t.Fatalf("Truncate did not restore (len, framePtr) = (%d, %d)", s.Len(), s.FramePtr())
	}
}

func TestSnapshotWalksFrames(t *testing.T) {
	s := NewStack(0x1000)
	s.PushCallStub(destNull, 0, 0)
	s.PushCallFrame(nil, nil, FrameC0)
	s.PushCallStub(destAddr, 0x10, 0x20)
	s.PushCallFrame(LocalsDescriptor{{Width: 4, Count: 1}}, nil, FrameC0)

	frames := s.Snapshot()
	if len(frames) != 2 {
		t.Fatalf("Snapshot returned %d frames, want 2", len(frames))
	}
	if frames[0].Base != s.FramePtr() {
		t.Errorf("innermost frame Base = 0x%X, want current frame ptr 0x%X", frames[0].Base, s.FramePtr())
	}
}
