package vm

// Addressing-mode nibble values shared by Load and Save (§4.3). Modes
// 0x4 and 0xC are reserved and always invalid.
const (
	modeConstZero  = 0x0
	modeConst1     = 0x1
	modeConst2     = 0x2
	modeConst4     = 0x3
	modeReserved1  = 0x4
	modeAddr1      = 0x5
	modeAddr2      = 0x6
	modeAddr4      = 0x7
	modeStack      = 0x8
	modeFrame1     = 0x9
	modeFrame2     = 0xA
	modeFrame4     = 0xB
	modeReserved2  = 0xC
	modeRam1       = 0xD
	modeRam2       = 0xE
	modeRam4       = 0xF
)

// FetchOpcodeNumber reads the variable-length opcode number at *pc
// and advances *pc past it (§4.3).
func FetchOpcodeNumber(mem *Memory, pc *uint32) uint32 {
	top := mem.ReadU8(*pc)
	switch {
	case top < 0x80:
		*pc++
		return uint32(top)
	case top < 0xC0:
		v := uint32(mem.ReadU16(*pc))
		*pc += 2
		return v - 0x8000
	default:
		v := mem.ReadU32(*pc)
		*pc += 4
		return v - 0xC0000000
	}
}

// FetchOperandModes reads the mode nibbles for n operands in
// declaration order: one byte per operand pair, low nibble first,
// high nibble second; if n is odd the final byte's high nibble is
// unused (§4.3). All mode bytes precede all operand payload bytes.
func FetchOperandModes(mem *Memory, pc *uint32, n int) []byte {
	modes := make([]byte, n)
	for i := 0; i < n; i += 2 {
		b := mem.ReadU8(*pc)
		*pc++
		modes[i] = b & 0x0F
		if i+1 < n {
			modes[i+1] = (b >> 4) & 0x0F
		}
	}
	return modes
}

// MaterializeLoad reads mode's immediate payload (if any) from *pc,
// advancing past it, and returns the resolved Load reference.
// isFloat marks an operand that will be reinterpreted as a float32:
// per §4.3, float operands admit only the 4-byte constant form, never
// the 1- or 2-byte immediates (those would leave the low/high bits of
// an IEEE-754 pattern undefined).
func MaterializeLoad(mem *Memory, pc *uint32, mode byte, isFloat bool) (Load, error) {
	switch mode {
	case modeConstZero:
		return Load{Kind: LoadConst, Const: 0}, nil
	case modeConst1:
		if isFloat {
			return Load{}, ErrBadAddressingMode
		}
		v := int32(int8(mem.ReadU8(*pc)))
		*pc++
		return Load{Kind: LoadConst, Const: v}, nil
	case modeConst2:
		if isFloat {
			return Load{}, ErrBadAddressingMode
		}
		v := int32(int16(mem.ReadU16(*pc)))
		*pc += 2
		return Load{Kind: LoadConst, Const: v}, nil
	case modeConst4:
		v := int32(mem.ReadU32(*pc))
		*pc += 4
		return Load{Kind: LoadConst, Const: v}, nil
	case modeAddr1:
		a := uint32(mem.ReadU8(*pc))
		*pc++
		return Load{Kind: LoadAddr, Addr: a}, nil
	case modeAddr2:
		a := uint32(mem.ReadU16(*pc))
		*pc += 2
		return Load{Kind: LoadAddr, Addr: a}, nil
	case modeAddr4:
		a := mem.ReadU32(*pc)
		*pc += 4
		return Load{Kind: LoadAddr, Addr: a}, nil
	case modeStack:
		return Load{Kind: LoadPop}, nil
	case modeFrame1:
		a := uint32(mem.ReadU8(*pc))
		*pc++
		return Load{Kind: LoadFrame, Addr: a}, nil
	case modeFrame2:
		a := uint32(mem.ReadU16(*pc))
		*pc += 2
		return Load{Kind: LoadFrame, Addr: a}, nil
	case modeFrame4:
		a := mem.ReadU32(*pc)
		*pc += 4
		return Load{Kind: LoadFrame, Addr: a}, nil
	case modeRam1:
		a := uint32(mem.ReadU8(*pc))
		*pc++
		return Load{Kind: LoadRam, Addr: a}, nil
	case modeRam2:
		a := uint32(mem.ReadU16(*pc))
		*pc += 2
		return Load{Kind: LoadRam, Addr: a}, nil
	case modeRam4:
		a := mem.ReadU32(*pc)
		*pc += 4
		return Load{Kind: LoadRam, Addr: a}, nil
	default:
		return Load{}, ErrBadAddressingMode
	}
}

// MaterializeSave mirrors MaterializeLoad for the save taxonomy: Null
// and Push replace the constant forms, which are never valid save
// destinations.
func MaterializeSave(mem *Memory, pc *uint32, mode byte) (Save, error) {
	switch mode {
	case modeConstZero:
		return Save{Kind: SaveNull}, nil
	case modeAddr1:
		a := uint32(mem.ReadU8(*pc))
		*pc++
		return Save{Kind: SaveAddr, Addr: a}, nil
	case modeAddr2:
		a := uint32(mem.ReadU16(*pc))
		*pc += 2
		return Save{Kind: SaveAddr, Addr: a}, nil
	case modeAddr4:
		a := mem.ReadU32(*pc)
		*pc += 4
		return Save{Kind: SaveAddr, Addr: a}, nil
	case modeStack:
		return Save{Kind: SavePush}, nil
	case modeFrame1:
		a := uint32(mem.ReadU8(*pc))
		*pc++
		return Save{Kind: SaveFrame, Addr: a}, nil
	case modeFrame2:
		a := uint32(mem.ReadU16(*pc))
		*pc += 2
		return Save{Kind: SaveFrame, Addr: a}, nil
	case modeFrame4:
		a := mem.ReadU32(*pc)
		*pc += 4
		return Save{Kind: SaveFrame, Addr: a}, nil
	case modeRam1:
		a := uint32(mem.ReadU8(*pc))
		*pc++
		return Save{Kind: SaveRam, Addr: a}, nil
	case modeRam2:
		a := uint32(mem.ReadU16(*pc))
		*pc += 2
		return Save{Kind: SaveRam, Addr: a}, nil
	case modeRam4:
		a := mem.ReadU32(*pc)
		*pc += 4
		return Save{Kind: SaveRam, Addr: a}, nil
	default:
		return Save{}, ErrBadAddressingMode
	}
}

// ReadLocalsDescriptor reads a (width, count)* sequence terminated by
// (0, 0) starting at *pc, advancing past the terminator (§3, §6).
func ReadLocalsDescriptor(mem *Memory, pc *uint32) LocalsDescriptor {
	var desc LocalsDescriptor
	for {
		width := mem.ReadU8(*pc)
		count := mem.ReadU8(*pc + 1)
		*pc += 2
		if width == 0 && count == 0 {
			return desc
		}
		desc = append(desc, LocalsGroup{Width: width, Count: count})
	}
}
