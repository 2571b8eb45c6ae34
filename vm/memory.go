package vm

import (
	"encoding/binary"
	"math"
)

// Header field offsets, fixed by the Glulx ROM format (§6).
const (
	hdrMagic      = 0x00
	hdrVersion    = 0x04
	hdrRAMStart   = 0x08
	hdrExtStart   = 0x0C
	hdrEndMem     = 0x10
	hdrStackSize  = 0x14
	hdrStartFunc  = 0x18
	hdrDecodeTbl  = 0x1C
	hdrChecksum   = 0x20
	headerLength  = 0x24
	glulxMagic    = 0x476C756C
	minVersion    = 0x00020000
	maxVersion    = 0x000301FF
	minRAMStart   = 0x100
	memoryAlign   = 0x100
)

// Memory is the VM's byte-addressable address space: ROM, initialized
// RAM, and zero-initialized RAM laid out as one contiguous buffer.
// Reads/writes are width-polymorphic and always big-endian, matching
// the wire format of the ROM image itself.
type Memory struct {
	buf       []byte
	ramStart  uint32
	extStart  uint32
	endMem    uint32
	stackSize uint32
	startFunc uint32
	decodeTbl uint32
	checksum  uint32

	heapActive bool
}

// RAMStart, ExtStart, EndMem, StackSize, StartFunc, DecodingTable and
// Checksum expose the header fields read at load time. They never
// change after construction (SetMemSize only moves the buffer's end).
func (m *Memory) RAMStart() uint32      { return m.ramStart }
func (m *Memory) ExtStart() uint32      { return m.extStart }
func (m *Memory) EndMem() uint32        { return m.endMem }
func (m *Memory) StackSize() uint32     { return m.stackSize }
func (m *Memory) StartFunc() uint32     { return m.startFunc }
func (m *Memory) DecodingTable() uint32 { return m.decodeTbl }
func (m *Memory) Checksum() uint32      { return m.checksum }

// Size returns the current length of the backing buffer, which is the
// value GETMEMSIZE reports and which SETMEMSIZE adjusts.
func (m *Memory) Size() uint32 { return uint32(len(m.buf)) }

// SetHeapActive toggles whether SETMEMSIZE is permitted to resize the
// buffer. Glulx reserves memory growth for when no heap is allocated;
// the core does not implement the heap itself (§1 Non-goals), but
// still honors the "heap-inactive" gate so an embedder's heap layer
// can forbid resizing out from under it once MALLOC is wired in.
func (m *Memory) SetHeapActive(active bool) { m.heapActive = active }

// FromRom validates a ROM image per §4.1/§6 and constructs a Memory.
// Any header violation is reported as a *LoadError and no VM is ever
// partially constructed.
func FromRom(rom []byte) (*Memory, error) {
	if len(rom) < headerLength {
		return nil, newLoadError("image too short for header: %d bytes", len(rom))
	}

	magic := binary.BigEndian.Uint32(rom[hdrMagic:])
	if magic != glulxMagic {
		return nil, newLoadError("bad magic: got 0x%08X, want 0x%08X", magic, glulxMagic)
	}

	version := binary.BigEndian.Uint32(rom[hdrVersion:])
	if version < minVersion || version > maxVersion {
		return nil, newLoadError("unsupported version: 0x%08X", version)
	}

	ramStart := binary.BigEndian.Uint32(rom[hdrRAMStart:])
	extStart := binary.BigEndian.Uint32(rom[hdrExtStart:])
	endMem := binary.BigEndian.Uint32(rom[hdrEndMem:])
	stackSize := binary.BigEndian.Uint32(rom[hdrStackSize:])
	startFunc := binary.BigEndian.Uint32(rom[hdrStartFunc:])
	decodeTbl := binary.BigEndian.Uint32(rom[hdrDecodeTbl:])
	checksum := binary.BigEndian.Uint32(rom[hdrChecksum:])

	if ramStart < minRAMStart {
		return nil, newLoadError("RAMSTART 0x%08X below minimum 0x%X", ramStart, minRAMStart)
	}
	if extStart < ramStart {
		return nil, newLoadError("EXTSTART 0x%08X below RAMSTART 0x%08X", extStart, ramStart)
	}
	if endMem < extStart {
		return nil, newLoadError("ENDMEM 0x%08X below EXTSTART 0x%08X", endMem, extStart)
	}
	if !aligned256(ramStart) || !aligned256(extStart) || !aligned256(endMem) {
		return nil, newLoadError("RAMSTART/EXTSTART/ENDMEM must be 256-aligned: got 0x%X/0x%X/0x%X", ramStart, extStart, endMem)
	}
	if !aligned256(stackSize) {
		return nil, newLoadError("stack size must be 256-aligned: got 0x%X", stackSize)
	}
	if uint32(len(rom)) != extStart {
		return nil, newLoadError("image length %d does not match EXTSTART 0x%08X", len(rom), extStart)
	}

	if sum := checksumWordSum(rom); sum != checksum {
		return nil, newLoadError("checksum mismatch: computed 0x%08X, stored 0x%08X", sum, checksum)
	}

	buf := make([]byte, endMem)
	copy(buf, rom)

	return &Memory{
		buf:       buf,
		ramStart:  ramStart,
		extStart:  extStart,
		endMem:    endMem,
		stackSize: stackSize,
		startFunc: startFunc,
		decodeTbl: decodeTbl,
		checksum:  checksum,
	}, nil
}

// MustFromRom is FromRom for test code: it panics on LoadError instead
// of returning it, so table-driven tests can build a Memory inline
// without an err check cluttering every case.
func MustFromRom(rom []byte) *Memory {
	m, err := FromRom(rom)
	if err != nil {
		panic(err)
	}
	return m
}

// checksumWordSum sums every 32-bit big-endian word of the image with
// the checksum slot itself treated as zero, wrapping on overflow.
func checksumWordSum(rom []byte) uint32 {
	var sum uint32
	full := len(rom) - len(rom)%4
	for off := 0; off < full; off += 4 {
		if off == hdrChecksum {
			continue
		}
		sum += binary.BigEndian.Uint32(rom[off:])
	}
	return sum
}

func aligned256(v uint32) bool { return v%memoryAlign == 0 }

// VerifyChecksum recomputes the checksum over the image's original
// extent (RAMSTART..EXTSTART is initialized data; beyond EXTSTART is
// runtime-only and excluded, matching how the checksum was computed
// at load time) and reports whether it still matches the header's
// stored value. cmd/glulx info calls it; the VERIFY opcode does not
// (it returns ErrUnimplemented).
func (m *Memory) VerifyChecksum() bool {
	extent := m.extStart
	if extent > uint32(len(m.buf)) {
		extent = uint32(len(m.buf))
	}
	sum := checksumWordSum(m.buf[:extent])
	return sum == m.checksum
}

// SetMemSize implements SETMEMSIZE: resize the buffer to v bytes,
// zero-filling growth, truncating shrinkage, rejecting anything that
// is not 256-aligned, below ENDMEM, or requested while the heap is
// active. Returns 0 on success, 1 on failure, matching the Glulx ABI.
func (m *Memory) SetMemSize(v uint32) uint32 {
	if m.heapActive || v%memoryAlign != 0 || v < m.endMem {
		return 1
	}
	if int(v) == len(m.buf) {
		return 0
	}
	if int(v) < len(m.buf) {
		m.buf = m.buf[:v]
		return 0
	}
	grown := make([]byte, v)
	copy(grown, m.buf)
	m.buf = grown
	return 0
}

func (m *Memory) bounds(addr uint32, width int) {
	if int64(addr)+int64(width) > int64(len(m.buf)) {
		panic(ErrSegmentationFault)
	}
}

// ReadU8/WriteU8/... form the fixed set of width-polymorphic accessors
// (§9 notes both a generic and a named-method form are acceptable;
// Go's lack of by-value numeric constraints over return types makes
// the named form the cleaner fit here, so each width gets its own
// pair of methods rather than a single generic accessor).

func (m *Memory) ReadU8(addr uint32) uint8 {
	m.bounds(addr, 1)
	return m.buf[addr]
}

func (m *Memory) WriteU8(addr uint32, v uint8) {
	m.bounds(addr, 1)
	m.buf[addr] = v
}

func (m *Memory) ReadI8(addr uint32) int8 { return int8(m.ReadU8(addr)) }
func (m *Memory) WriteI8(addr uint32, v int8) { m.WriteU8(addr, uint8(v)) }

func (m *Memory) ReadU16(addr uint32) uint16 {
	m.bounds(addr, 2)
	return binary.BigEndian.Uint16(m.buf[addr:])
}

func (m *Memory) WriteU16(addr uint32, v uint16) {
	m.bounds(addr, 2)
	binary.BigEndian.PutUint16(m.buf[addr:], v)
}

func (m *Memory) ReadI16(addr uint32) int16 { return int16(m.ReadU16(addr)) }
func (m *Memory) WriteI16(addr uint32, v int16) { m.WriteU16(addr, uint16(v)) }

func (m *Memory) ReadU32(addr uint32) uint32 {
	m.bounds(addr, 4)
	return binary.BigEndian.Uint32(m.buf[addr:])
}

func (m *Memory) WriteU32(addr uint32, v uint32) {
	m.bounds(addr, 4)
	binary.BigEndian.PutUint32(m.buf[addr:], v)
}

func (m *Memory) ReadI32(addr uint32) int32 { return int32(m.ReadU32(addr)) }
func (m *Memory) WriteI32(addr uint32, v int32) { m.WriteU32(addr, uint32(v)) }

func (m *Memory) ReadF32(addr uint32) float32 {
	return math.Float32frombits(m.ReadU32(addr))
}

func (m *Memory) WriteF32(addr uint32, v float32) {
	m.WriteU32(addr, math.Float32bits(v))
}

// RamReadU8/RamWriteU8/... offset into RAM from RAMSTART, per §4.1.
func (m *Memory) RamReadU8(off uint32) uint8          { return m.ReadU8(m.ramStart + off) }
func (m *Memory) RamWriteU8(off uint32, v uint8)      { m.WriteU8(m.ramStart+off, v) }
func (m *Memory) RamReadU16(off uint32) uint16        { return m.ReadU16(m.ramStart + off) }
func (m *Memory) RamWriteU16(off uint32, v uint16)    { m.WriteU16(m.ramStart+off, v) }
func (m *Memory) RamReadU32(off uint32) uint32        { return m.ReadU32(m.ramStart + off) }
func (m *Memory) RamWriteU32(off uint32, v uint32)    { m.WriteU32(m.ramStart+off, v) }

// ZeroRange fills [addr, addr+size) with zero, per MZERO semantics.
func (m *Memory) ZeroRange(size, addr uint32) {
	m.bounds(addr, int(size))
	for i := uint32(0); i < size; i++ {
		m.buf[addr+i] = 0
	}
}

// CopyRange copies [src, src+size) to [dst, dst+size). Overlapping
// ranges behave as though copied through an intermediate buffer (as
// required by MCOPY), so an overlapping forward copy must not let
// already-written bytes feed later reads.
func (m *Memory) CopyRange(size, src, dst uint32) {
	m.bounds(src, int(size))
	m.bounds(dst, int(size))
	if size == 0 {
		return
	}
	tmp := make([]byte, size)
	copy(tmp, m.buf[src:src+size])
	copy(m.buf[dst:dst+size], tmp)
}

// Dump renders n bytes starting at addr as a space-separated hex
// string. Neither the debugger nor cmd/glulx calls it.
func (m *Memory) Dump(addr, n uint32) string {
	m.bounds(addr, int(n))
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, n*3)
	for i := uint32(0); i < n; i++ {
		b := m.buf[addr+i]
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, hexDigits[b>>4], hexDigits[b&0xF])
	}
	return string(out)
}
