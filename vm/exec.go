package vm

import (
	"math"
	"math/rand"
	"time"
)

// decodedOperand is one materialized operand slot: either a Load or a
// Save, decided by the opcode table entry at the same position.
type decodedOperand struct {
	isSave bool
	load   Load
	save   Save
}

// decodeOperands reads the mode-nibble bytes for def's whole operand
// list, then materializes each in declaration order, advancing vm.pc
// past every immediate byte (§4.3: all mode bytes precede all operand
// payloads).
func (vm *VM) decodeOperands(def opcodeDef) ([]decodedOperand, error) {
	if len(def.Operands) == 0 {
		return nil, nil
	}
	modes := FetchOperandModes(vm.mem, &vm.pc, len(def.Operands))
	out := make([]decodedOperand, len(def.Operands))
	for i, slot := range def.Operands {
		if slot.kind == slotSave {
			s, err := MaterializeSave(vm.mem, &vm.pc, modes[i])
			if err != nil {
				return nil, err
			}
			out[i] = decodedOperand{isSave: true, save: s}
		} else {
			l, err := MaterializeLoad(vm.mem, &vm.pc, modes[i], slot.float)
			if err != nil {
				return nil, err
			}
			out[i] = decodedOperand{load: l}
		}
	}
	return out, nil
}

func (vm *VM) resolveLoad(l Load) uint32 {
	switch l.Kind {
	case LoadConst:
		return uint32(l.Const)
	case LoadAddr:
		return vm.mem.ReadU32(l.Addr)
	case LoadPop:
		return vm.stack.PopU32()
	case LoadFrame:
		return vm.stack.ReadLocalU32(l.Addr)
	case LoadRam:
		return vm.mem.RamReadU32(l.Addr)
	default:
		panic(ErrBadAddressingMode)
	}
}

func (vm *VM) resolveLoadF(l Load) float32 { return math.Float32frombits(vm.resolveLoad(l)) }

func (vm *VM) resolveSave(s Save, v uint32) {
	switch s.Kind {
	case SaveNull:
	case SaveAddr:
		vm.mem.WriteU32(s.Addr, v)
	case SavePush:
		vm.stack.PushU32(v)
	case SaveFrame:
		vm.stack.WriteLocalU32(s.Addr, v)
	case SaveRam:
		vm.mem.RamWriteU32(s.Addr, v)
	default:
		panic(ErrBadAddressingMode)
	}
}

func (vm *VM) resolveSaveF(s Save, v float32) { vm.resolveSave(s, math.Float32bits(v)) }

// stubFor converts a resolved Save operand into the (destType, destAddr)
// pair recorded in a call stub (§6): the destination is not written
// immediately, it is deferred until RETURN recovers the stub.
func stubFor(s Save) (destType, destAddr uint32) {
	switch s.Kind {
	case SaveNull:
		return destNull, 0
	case SaveAddr:
		return destAddr, s.Addr
	case SavePush:
		return destPush, 0
	case SaveFrame:
		return destFrame, s.Addr
	default:
		panic(ErrBadAddressingMode)
	}
}

// writeStubResult writes v to the destination recovered from a popped
// call stub, used by RETURN. THROW writes through the Save recorded
// in its catchFrame instead.
func (vm *VM) writeStubResult(destType, destAddr, v uint32) error {
	switch destType {
	case destNull:
	case destAddr:
		vm.mem.WriteU32(destAddr, v)
	case destFrame:
		vm.stack.WriteLocalU32(destAddr, v)
	case destPush:
		vm.stack.PushU32(v)
	default:
		return ErrBadCallStub
	}
	return nil
}

// dispatch executes one already-fetched opcode. opcodePC is the
// address the opcode number was read from (used for error reporting);
// vm.pc has already advanced past the opcode number itself.
func (vm *VM) dispatch(opcodePC, opcode uint32, def opcodeDef) error {
	ops, err := vm.decodeOperands(def)
	if err != nil {
		return &DecodeError{PC: opcodePC, Reason: err}
	}
	ld := func(i int) uint32 { return vm.resolveLoad(ops[i].load) }
	ldf := func(i int) float32 { return vm.resolveLoadF(ops[i].load) }
	sv := func(i int, v uint32) { vm.resolveSave(ops[i].save, v) }
	svf := func(i int, v float32) { vm.resolveSaveF(ops[i].save, v) }

	switch opcode {
	case opNop:

	case opAdd:
		sv(2, ld(0)+ld(1))
	case opSub:
		sv(2, ld(0)-ld(1))
	case opMul:
		sv(2, ld(0)*ld(1))
	case opDiv:
		a, b := int32(ld(0)), int32(ld(1))
		if b == 0 {
			return &RuntimeError{PC: opcodePC, Opcode: opcode, Reason: ErrDivisionByZero}
		}
		sv(2, uint32(a/b))
	case opMod:
		a, b := int32(ld(0)), int32(ld(1))
		if b == 0 {
			return &RuntimeError{PC: opcodePC, Opcode: opcode, Reason: ErrDivisionByZero}
		}
		sv(2, uint32(a%b))
	case opNeg:
		sv(1, uint32(-int32(ld(0))))
	case opBitAnd:
		sv(2, ld(0)&ld(1))
	case opBitOr:
		sv(2, ld(0)|ld(1))
	case opBitXor:
		sv(2, ld(0)^ld(1))
	case opBitNot:
		sv(1, ^ld(0))
	case opShiftL:
		n := ld(1)
		if n >= 32 {
			sv(2, 0)
		} else {
			sv(2, ld(0)<<n)
		}
	case opUShiftR:
		n := ld(1)
		if n >= 32 {
			sv(2, 0)
		} else {
			sv(2, ld(0)>>n)
		}
	case opSShiftR:
		n := ld(1)
		v := int32(ld(0))
		if n >= 32 {
			if v < 0 {
				sv(2, 0xFFFFFFFF)
			} else {
				sv(2, 0)
			}
		} else {
			sv(2, uint32(v>>n))
		}

	case opJump:
		return vm.doJump(int32(ld(0)))
	case opJz:
		v, off := ld(0), int32(ld(1))
		if v == 0 {
			return vm.doJump(off)
		}
	case opJnz:
		v, off := ld(0), int32(ld(1))
		if v != 0 {
			return vm.doJump(off)
		}
	case opJeq:
		a, b, off := int32(ld(0)), int32(ld(1)), int32(ld(2))
		if a == b {
			return vm.doJump(off)
		}
	case opJne:
		a, b, off := int32(ld(0)), int32(ld(1)), int32(ld(2))
		if a != b {
			return vm.doJump(off)
		}
	case opJlt:
		a, b, off := int32(ld(0)), int32(ld(1)), int32(ld(2))
		if a < b {
			return vm.doJump(off)
		}
	case opJge:
		a, b, off := int32(ld(0)), int32(ld(1)), int32(ld(2))
		if a >= b {
			return vm.doJump(off)
		}
	case opJgt:
		a, b, off := int32(ld(0)), int32(ld(1)), int32(ld(2))
		if a > b {
			return vm.doJump(off)
		}
	case opJle:
		a, b, off := int32(ld(0)), int32(ld(1)), int32(ld(2))
		if a <= b {
			return vm.doJump(off)
		}
	case opJltu:
		a, b, off := ld(0), ld(1), int32(ld(2))
		if a < b {
			return vm.doJump(off)
		}
	case opJgeu:
		a, b, off := ld(0), ld(1), int32(ld(2))
		if a >= b {
			return vm.doJump(off)
		}
	case opJgtu:
		a, b, off := ld(0), ld(1), int32(ld(2))
		if a > b {
			return vm.doJump(off)
		}
	case opJleu:
		a, b, off := ld(0), ld(1), int32(ld(2))
		if a <= b {
			return vm.doJump(off)
		}

	case opCall:
		addr, n := ld(0), ld(1)
		args := vm.stack.PopArgs(n)
		dt, da := stubFor(ops[2].save)
		vm.stack.PushCallStub(dt, da, vm.pc)
		vm.log.Call(opcodePC, addr, len(args), false)
		vm.pc = addr
		return vm.callFunc(args)
	case opCallf:
		addr := ld(0)
		dt, da := stubFor(ops[1].save)
		vm.stack.PushCallStub(dt, da, vm.pc)
		vm.log.Call(opcodePC, addr, 0, false)
		vm.pc = addr
		return vm.callFunc(nil)
	case opCallfi:
		addr, a0 := ld(0), ld(1)
		dt, da := stubFor(ops[2].save)
		vm.stack.PushCallStub(dt, da, vm.pc)
		vm.log.Call(opcodePC, addr, 1, false)
		vm.pc = addr
		return vm.callFunc([]uint32{a0})
	case opCallfii:
		addr, a0, a1 := ld(0), ld(1), ld(2)
		dt, da := stubFor(ops[3].save)
		vm.stack.PushCallStub(dt, da, vm.pc)
		vm.log.Call(opcodePC, addr, 2, false)
		vm.pc = addr
		return vm.callFunc([]uint32{a0, a1})
	case opCallfiii:
		addr, a0, a1, a2 := ld(0), ld(1), ld(2), ld(3)
		dt, da := stubFor(ops[4].save)
		vm.stack.PushCallStub(dt, da, vm.pc)
		vm.log.Call(opcodePC, addr, 3, false)
		vm.pc = addr
		return vm.callFunc([]uint32{a0, a1, a2})
	case opTailcall:
		addr, n := ld(0), ld(1)
		args := vm.stack.PopArgs(n)
		vm.stack.PopCallFrame()
		vm.log.Call(opcodePC, addr, len(args), true)
		vm.pc = addr
		return vm.callFunc(args)
	case opReturn:
		return vm.doReturn(ld(0))

	case opCatch:
		off := int32(ld(1))
		pc, ret := vm.biasedTarget(vm.pc, off)
		if ret >= 0 {
			return vm.doReturn(uint32(ret))
		}
		vm.catchStack = append(vm.catchStack, catchFrame{
			framePtr: vm.stack.FramePtr(),
			stackLen: vm.stack.Len(),
			pc:       pc,
			save:     ops[0].save,
		})
		sv(0, uint32(len(vm.catchStack)-1))
	case opThrow:
		val := ld(0)
		token := ld(1)
		if token >= uint32(len(vm.catchStack)) {
			return &RuntimeError{PC: opcodePC, Opcode: opcode, Reason: ErrBadCallStub}
		}
		frame := vm.catchStack[token]
		vm.catchStack = vm.catchStack[:token]
		vm.stack.Truncate(frame.stackLen, frame.framePtr)
		vm.pc = frame.pc
		vm.resolveSave(frame.save, val)

	case opCopy:
		sv(1, ld(0))
	case opCopys:
		sv(1, ld(0)&0xFFFF)
	case opCopyb:
		sv(1, ld(0)&0xFF)
	case opSexs:
		sv(1, uint32(int32(int16(ld(0)))))
	case opSexb:
		sv(1, uint32(int32(int8(ld(0)))))

	case opAload:
		sv(2, vm.mem.ReadU32(ld(0)+ld(1)*4))
	case opAloads:
		sv(2, uint32(vm.mem.ReadU16(ld(0)+ld(1)*2)))
	case opAloadb:
		sv(2, uint32(vm.mem.ReadU8(ld(0)+ld(1))))
	case opAloadbit:
		base, idx := int64(ld(0)), int32(ld(1))
		addr, bit := bitAddr(base, idx)
		b := vm.mem.ReadU8(addr)
		sv(2, uint32((b>>bit)&1))
	case opAstore:
		vm.mem.WriteU32(ld(0)+ld(1)*4, ld(2))
	case opAstores:
		vm.mem.WriteU16(ld(0)+ld(1)*2, uint16(ld(2)))
	case opAstoreb:
		vm.mem.WriteU8(ld(0)+ld(1), uint8(ld(2)))
	case opAstorebit:
		base, idx := int64(ld(0)), int32(ld(1))
		addr, bit := bitAddr(base, idx)
		b := vm.mem.ReadU8(addr)
		if ld(2) != 0 {
			b |= 1 << bit
		} else {
			b &^= 1 << bit
		}
		vm.mem.WriteU8(addr, b)

	case opStkcount:
		sv(0, vm.stack.StkCount())
	case opStkpeek:
		sv(1, vm.stack.StkPeek(ld(0)))
	case opStkswap:
		vm.stack.StkSwap()
	case opStkroll:
		vm.stack.StkRoll(ld(0), int32(ld(1)))
	case opStkcopy:
		vm.stack.StkCopy(ld(0))

	case opStreamchar:
		vm.io.Dispatch(DispatchStreamChar, []uint32{ld(0)}, vm.mem)
	case opStreamnum:
		vm.io.Dispatch(DispatchStreamNum, []uint32{ld(0)}, vm.mem)
	case opStreamstr:
		vm.io.Dispatch(DispatchStreamStr, []uint32{ld(0)}, vm.mem)
	case opStreamunichar:
		vm.io.Dispatch(DispatchStreamUni, []uint32{ld(0)}, vm.mem)

	case opGestalt:
		sv(2, Gestalt(ld(0), ld(1)))
	case opDebugtrap:
		ld(0)
	case opGetmemsize:
		sv(0, vm.mem.Size())
	case opSetmemsize:
		sv(1, vm.mem.SetMemSize(ld(0)))
	case opJumpabs:
		vm.pc = ld(0)
	case opRandom:
		sv(1, vm.random(int32(ld(0))))
	case opSetrandom:
		vm.setRandom(int32(ld(0)))
	case opQuit:
		return ErrProgramFinished
	case opVerify, opRestart, opSave, opRestore, opSaveundo, opRestoreundo:
		return &RuntimeError{PC: opcodePC, Opcode: opcode, Reason: ErrUnimplemented}
	case opProtect:
		vm.protectStart, vm.protectLen = ld(0), ld(1)
	case opGlk:
		sel, n := ld(0), ld(1)
		args := vm.stack.PopArgs(n)
		sv(2, vm.io.Dispatch(sel, args, vm.mem))
	case opGetstringtbl:
		sv(0, vm.stringTbl)
	case opSetstringtbl:
		vm.stringTbl = ld(0)
	case opGetiosys:
		mode, rock := vm.io.GetSubsystem()
		sv(0, mode)
		sv(1, rock)
	case opSetiosys:
		vm.io.SetSubsystem(ld(0), ld(1))

	case opMalloc, opMfree, opAccelfunc, opAccelparam:
		return &RuntimeError{PC: opcodePC, Opcode: opcode, Reason: ErrUnimplemented}
	case opMzero:
		vm.mem.ZeroRange(ld(0), ld(1))
	case opMcopy:
		vm.mem.CopyRange(ld(0), ld(1), ld(2))

	case opNumtof:
		svf(1, float32(int32(ld(0))))
	case opFtonumz:
		sv(1, uint32(saturateToInt32(truncToInt(ldf(0)))))
	case opFtonumn:
		sv(1, uint32(saturateToInt32(float32(math.RoundToEven(float64(ldf(0)))))))
	case opCeil:
		svf(1, float32(math.Ceil(float64(ldf(0)))))
	case opFloor:
		svf(1, float32(math.Floor(float64(ldf(0)))))
	case opFadd:
		svf(2, ldf(0)+ldf(1))
	case opFsub:
		svf(2, ldf(0)-ldf(1))
	case opFmul:
		svf(2, ldf(0)*ldf(1))
	case opFdiv:
		svf(2, ldf(0)/ldf(1))
	case opFmod:
		l1, l2 := ldf(0), ldf(1)
		q := truncToInt(l1 / l2)
		svf(2, l1-q*l2)
		svf(3, q)
	case opSqrt:
		svf(1, float32(math.Sqrt(float64(ldf(0)))))
	case opExp:
		svf(1, float32(math.Exp(float64(ldf(0)))))
	case opLog:
		svf(1, float32(math.Log(float64(ldf(0)))))
	case opPow:
		svf(2, float32(math.Pow(float64(ldf(0)), float64(ldf(1)))))
	case opSin:
		svf(1, float32(math.Sin(float64(ldf(0)))))
	case opCos:
		svf(1, float32(math.Cos(float64(ldf(0)))))
	case opTan:
		svf(1, float32(math.Tan(float64(ldf(0)))))
	case opAsin:
		svf(1, float32(math.Asin(float64(ldf(0)))))
	case opAcos:
		svf(1, float32(math.Acos(float64(ldf(0)))))
	case opAtan:
		svf(1, float32(math.Atan(float64(ldf(0)))))
	case opAtan2:
		svf(2, float32(math.Atan2(float64(ldf(0)), float64(ldf(1)))))

	case opJfeq:
		x, y, eps := ldf(0), ldf(1), ldf(2)
		if floatAbs(x-y) <= floatAbs(eps) {
			return vm.doJump(int32(ld(3)))
		}
	case opJfne:
		x, y, eps := ldf(0), ldf(1), ldf(2)
		if !(floatAbs(x-y) <= floatAbs(eps)) {
			return vm.doJump(int32(ld(3)))
		}
	case opJflt:
		if x, y := ldf(0), ldf(1); x < y {
			return vm.doJump(int32(ld(2)))
		}
	case opJfle:
		if x, y := ldf(0), ldf(1); x <= y {
			return vm.doJump(int32(ld(2)))
		}
	case opJfgt:
		// Strictly ordered, NaN-safe: false whenever either operand is
		// NaN. Written as x > y, not x < y — the Rust reference's
		// op_jfgt compares with the wrong operator; that bug is not
		// reproduced here.
		if x, y := ldf(0), ldf(1); x > y {
			return vm.doJump(int32(ld(2)))
		}
	case opJfge:
		if x, y := ldf(0), ldf(1); x >= y {
			return vm.doJump(int32(ld(2)))
		}
	case opJisnan:
		if x := ldf(0); x != x {
			return vm.doJump(int32(ld(1)))
		}
	case opJisinf:
		if x := ldf(0); math.IsInf(float64(x), 0) {
			return vm.doJump(int32(ld(1)))
		}

	case opLinearsearch, opBinarysearch, opLinkedsearch:
		return vm.doSearch(opcode, ops, ld, sv)

	default:
		return &DecodeError{PC: opcodePC, Reason: ErrUnknownInstruction}
	}
	return nil
}

func floatAbs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func truncToInt(v float32) float32 {
	if v < 0 {
		return float32(math.Ceil(float64(v)))
	}
	return float32(math.Floor(float64(v)))
}

// saturateToInt32 converts v to an int32 the way Rust's `as i32` cast
// does: NaN becomes 0, and values outside int32's range clamp to
// MaxInt32/MinInt32 instead of Go's implementation-specific overflow
// behavior for out-of-range float-to-int conversions.
func saturateToInt32(v float32) int32 {
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	default:
		return int32(v)
	}
}

func bitAddr(base int64, index int32) (addr uint32, bit uint8) {
	byteOff := base + int64(index)/8
	b := index % 8
	if b < 0 {
		b += 8
		byteOff--
	}
	return uint32(byteOff), uint8(b)
}

// doJump performs JUMP's offset biasing, including the reserved
// offsets 0 and 1 which return 0/1 from the current function instead
// of actually jumping (§4.4).
func (vm *VM) doJump(offset int32) error {
	if offset == 0 {
		return vm.doReturn(0)
	}
	if offset == 1 {
		return vm.doReturn(1)
	}
	vm.pc = uint32(int32(vm.pc) + offset - 2)
	return nil
}

// biasedTarget computes JUMP's target address without performing the
// jump, reporting via ret >= 0 when offset names a reserved
// return-0/return-1 target instead of a real address.
func (vm *VM) biasedTarget(pc uint32, offset int32) (target uint32, ret int32) {
	if offset == 0 {
		return 0, 0
	}
	if offset == 1 {
		return 0, 1
	}
	return uint32(int32(pc) + offset - 2), -1
}

// callFunc reads the callee's type byte and locals descriptor at
// vm.pc (already pointed at the target address by the caller),
// builds the matching frame, and leaves vm.pc at the function's first
// instruction (§4.4).
func (vm *VM) callFunc(args []uint32) error {
	typeByte := vm.mem.ReadU8(vm.pc)
	vm.pc++
	var kind FrameKind
	switch typeByte {
	case 0xC0:
		kind = FrameC0
	case 0xC1:
		kind = FrameC1
	default:
		return &DecodeError{PC: vm.pc - 1, Reason: ErrBadFunctionType}
	}
	locals := ReadLocalsDescriptor(vm.mem, &vm.pc)
	vm.stack.PushCallFrame(locals, args, kind)
	return nil
}

// doReturn pops the current frame and call stub, restores PC, and
// writes v to the recovered destination (§4.4).
func (vm *VM) doReturn(v uint32) error {
	vm.stack.PopCallFrame()
	destType, destAddr, returnPC := vm.stack.PopCallStub()
	vm.pc = returnPC
	return vm.writeStubResult(destType, destAddr, v)
}

// random implements RANDOM's three-way range selection (§1 MODULE
// EXPANSIONS: RANDOM/SETRANDOM).
func (vm *VM) random(n int32) uint32 {
	switch {
	case n == 0:
		return vm.rng.Uint32()
	case n > 0:
		return uint32(vm.rng.Int31n(n))
	default:
		return uint32(-vm.rng.Int31n(-n))
	}
}

func (vm *VM) setRandom(seed int32) {
	if seed == 0 {
		vm.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		return
	}
	vm.rng = rand.New(rand.NewSource(int64(seed)))
}

// search option bits shared by LINEARSEARCH/BINARYSEARCH/LINKEDSEARCH.
const (
	searchKeyIndirect = 1
	searchZeroTerm    = 2
	searchReturnIndex = 4
)

func (vm *VM) readKeyBytes(addr, keysize uint32) uint32 {
	switch keysize {
	case 1:
		return uint32(vm.mem.ReadU8(addr))
	case 2:
		return uint32(vm.mem.ReadU16(addr))
	case 4:
		return vm.mem.ReadU32(addr)
	default:
		panic(ErrBadAddressingMode)
	}
}

func maskKey(v, keysize uint32) uint32 {
	switch keysize {
	case 1:
		return v & 0xFF
	case 2:
		return v & 0xFFFF
	case 4:
		return v
	default:
		panic(ErrBadAddressingMode)
	}
}

// doSearch implements LINEARSEARCH, BINARYSEARCH and LINKEDSEARCH: a
// family of opcodes the Glulx spec defines to let story files avoid
// hand-rolled search loops over packed structure arrays (§1 MODULE
// EXPANSIONS). BINARYSEARCH assumes its array is sorted ascending by
// key, per the Glulx spec's contract for that opcode.
func (vm *VM) doSearch(opcode uint32, ops []decodedOperand, ld func(int) uint32, sv func(int, uint32)) error {
	switch opcode {
	case opLinearsearch, opBinarysearch:
		key := ld(0)
		keysize := ld(1)
		start := ld(2)
		structsize := ld(3)
		numstructs := int32(ld(4))
		keyoffset := ld(5)
		options := ld(6)

		indirect := options&searchKeyIndirect != 0
		zeroTerm := options&searchZeroTerm != 0
		retIndex := options&searchReturnIndex != 0

		var keyVal uint32
		if indirect {
			keyVal = vm.readKeyBytes(key, keysize)
		} else {
			keyVal = maskKey(key, keysize)
		}

		found := int32(-1)
		if opcode == opLinearsearch {
			for i := int32(0); numstructs < 0 || i < numstructs; i++ {
				kaddr := start + uint32(i)*structsize + keyoffset
				if zeroTerm && vm.readKeyBytes(kaddr, keysize) == 0 {
					break
				}
				if vm.readKeyBytes(kaddr, keysize) == keyVal {
					found = i
					break
				}
			}
		} else {
			lo, hi := int32(0), numstructs-1
			for lo <= hi {
				mid := lo + (hi-lo)/2
				kaddr := start + uint32(mid)*structsize + keyoffset
				cand := vm.readKeyBytes(kaddr, keysize)
				switch {
				case cand == keyVal:
					found = mid
					lo = hi + 1
				case cand < keyVal:
					lo = mid + 1
				default:
					hi = mid - 1
				}
			}
		}

		if found < 0 {
			if retIndex {
				sv(7, 0xFFFFFFFF)
			} else {
				sv(7, 0)
			}
			return nil
		}
		if retIndex {
			sv(7, uint32(found))
		} else {
			sv(7, start+uint32(found)*structsize)
		}
		return nil

	case opLinkedsearch:
		key := ld(0)
		keysize := ld(1)
		start := ld(2)
		keyoffset := ld(3)
		nextoffset := ld(4)
		options := ld(5)

		indirect := options&searchKeyIndirect != 0
		zeroTerm := options&searchZeroTerm != 0

		var keyVal uint32
		if indirect {
			keyVal = vm.readKeyBytes(key, keysize)
		} else {
			keyVal = maskKey(key, keysize)
		}

		for addr := start; addr != 0; addr = vm.mem.ReadU32(addr + nextoffset) {
			kaddr := addr + keyoffset
			if zeroTerm && vm.readKeyBytes(kaddr, keysize) == 0 {
				break
			}
			if vm.readKeyBytes(kaddr, keysize) == keyVal {
				sv(6, addr)
				return nil
			}
		}
		sv(6, 0)
		return nil
	}
	return nil
}
