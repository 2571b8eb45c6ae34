package vm

import "encoding/binary"

// buildRom assembles a minimal valid Glulx image: a 0x24-byte header
// followed by caller-supplied RAM-region bytes, with RAMSTART pinned
// to the minimum legal value and EXTSTART/ENDMEM/checksum computed to
// match. code is placed at RAMSTART and becomes STARTFUNC.
func buildRom(code []byte) []byte {
	const ramStart = 0x100
	bodyLen := len(code)
	for bodyLen%4 != 0 {
		bodyLen++
	}
	extStart := ramStart + uint32(bodyLen)
	for extStart%0x100 != 0 {
		extStart += 4
	}
	endMem := extStart + 0x1000
	for endMem%0x100 != 0 {
		endMem++
	}
	stackSize := uint32(0x800)

	rom := make([]byte, extStart)
	binary.BigEndian.PutUint32(rom[hdrMagic:], glulxMagic)
	binary.BigEndian.PutUint32(rom[hdrVersion:], 0x00030100)
	binary.BigEndian.PutUint32(rom[hdrRAMStart:], ramStart)
	binary.BigEndian.PutUint32(rom[hdrExtStart:], extStart)
	binary.BigEndian.PutUint32(rom[hdrEndMem:], endMem)
	binary.BigEndian.PutUint32(rom[hdrStackSize:], stackSize)
	binary.BigEndian.PutUint32(rom[hdrStartFunc:], ramStart)
	binary.BigEndian.PutUint32(rom[hdrDecodeTbl:], 0)
	binary.BigEndian.PutUint32(rom[hdrChecksum:], 0)
	copy(rom[ramStart:], code)

	sum := checksumWordSum(rom)
	binary.BigEndian.PutUint32(rom[hdrChecksum:], sum)
	return rom
}

// encodeOpcode writes a single-byte opcode number followed by mode
// nibbles (low nibble first within each byte) and raw operand payload
// bytes, exactly as the decoder expects them.
func encodeOpcode(opcode byte, modes []byte, payload ...byte) []byte {
	out := []byte{opcode}
	for i := 0; i < len(modes); i += 2 {
		b := modes[i]
		if i+1 < len(modes) {
			b |= modes[i+1] << 4
		}
		out = append(out, b)
	}
	out = append(out, payload...)
	return out
}

// funcHeader prepends a C0 function type byte and a terminated locals
// descriptor (no locals) to body.
func funcHeader(body []byte) []byte {
	out := []byte{0xC0, 0x00, 0x00}
	return append(out, body...)
}
