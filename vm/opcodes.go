package vm

/*
	Glulx is a 32-bit big-endian stack/memory machine. Every
	instruction is:

		opcode-number (1, 2 or 4 bytes, self-describing by its
		                leading bits — see FetchOpcodeNumber)
		operand-mode nibbles (one byte per operand pair)
		operand payloads (sized by each operand's mode)

	An operand is either a Load (where a value comes from: a
	constant, a memory address, the top of the operand stack, a
	locals-frame offset, or a RAM offset) or a Save (where a result
	goes: the same taxonomy, plus Null to discard and Push to send it
	back to the operand stack).

	This file is the opcode table: for each opcode number, its
	mnemonic (used by the disassembler and the debugger) and the
	ordered list of operand slots the decoder must materialize before
	the executor's switch in exec.go can run the opcode's semantics.
	Arithmetic/logical/jump opcodes operate on i32/u32; the float
	opcodes (0x190 upward, plus the float jumps at 0x1C0 upward)
	reinterpret their float-valued Load operands as float32; those
	slots are marked float so the decoder rejects narrow
	float-constant encodings per §4.3. NUMTOF's integer source and
	the float jumps' branch offsets are plain integer slots.
*/

type operandKind int

const (
	slotLoad operandKind = iota
	slotSave
)

type operandSlot struct {
	kind  operandKind
	float bool
}

func ld() operandSlot      { return operandSlot{kind: slotLoad} }
func ldf() operandSlot     { return operandSlot{kind: slotLoad, float: true} }
func sv() operandSlot      { return operandSlot{kind: slotSave} }

type opcodeDef struct {
	Number   uint32
	Name     string
	Operands []operandSlot
}

// Opcode numbers, named for the disassembler and for readability at
// dispatch sites in exec.go.
const (
	opNop = 0x00

	opAdd     = 0x10
	opSub     = 0x11
	opMul     = 0x12
	opDiv     = 0x13
	opMod     = 0x14
	opNeg     = 0x15
	opBitAnd  = 0x18
	opBitOr   = 0x19
	opBitXor  = 0x1A
	opBitNot  = 0x1B
	opShiftL  = 0x1C
	opSShiftR = 0x1D
	opUShiftR = 0x1E

	opJump = 0x20
	opJz   = 0x22
	opJnz  = 0x23
	opJeq  = 0x24
	opJne  = 0x25
	opJlt  = 0x26
	opJge  = 0x27
	opJgt  = 0x28
	opJle  = 0x29
	opJltu = 0x2A
	opJgeu = 0x2B
	opJgtu = 0x2C
	opJleu = 0x2D

	opCall     = 0x30
	opReturn   = 0x31
	opCatch    = 0x32
	opThrow    = 0x33
	opTailcall = 0x34

	opCopy  = 0x40
	opCopys = 0x41
	opCopyb = 0x42
	opSexs  = 0x44
	opSexb  = 0x45

	opAload     = 0x48
	opAloads    = 0x49
	opAloadb    = 0x4A
	opAloadbit  = 0x4B
	opAstore    = 0x4C
	opAstores   = 0x4D
	opAstoreb   = 0x4E
	opAstorebit = 0x4F

	opStkcount = 0x50
	opStkpeek  = 0x51
	opStkswap  = 0x52
	opStkroll  = 0x53
	opStkcopy  = 0x54

	opStreamchar    = 0x70
	opStreamnum     = 0x71
	opStreamstr     = 0x72
	opStreamunichar = 0x73

	opGestalt      = 0x100
	opDebugtrap    = 0x101
	opGetmemsize   = 0x102
	opSetmemsize   = 0x103
	opJumpabs      = 0x104
	opRandom       = 0x110
	opSetrandom    = 0x111
	opQuit         = 0x120
	opVerify       = 0x121
	opRestart      = 0x122
	opSave         = 0x123
	opRestore      = 0x124
	opSaveundo     = 0x125
	opRestoreundo  = 0x126
	opProtect      = 0x127
	opGlk          = 0x130
	opGetstringtbl = 0x140
	opSetstringtbl = 0x141
	opGetiosys     = 0x148
	opSetiosys     = 0x149

	opLinearsearch = 0x150
	opBinarysearch = 0x151
	opLinkedsearch = 0x152

	opCallf    = 0x160
	opCallfi   = 0x161
	opCallfii  = 0x162
	opCallfiii = 0x163

	opMzero      = 0x170
	opMcopy      = 0x171
	opMalloc     = 0x178
	opMfree      = 0x179
	opAccelfunc  = 0x180
	opAccelparam = 0x181

	opNumtof  = 0x190
	opFtonumz = 0x191
	opFtonumn = 0x192
	opCeil    = 0x198
	opFloor   = 0x199
	opFadd    = 0x1A0
	opFsub    = 0x1A1
	opFmul    = 0x1A2
	opFdiv    = 0x1A3
	opFmod    = 0x1A4
	opSqrt    = 0x1A8
	opExp     = 0x1A9
	opLog     = 0x1AA
	opPow     = 0x1AB
	opSin     = 0x1B0
	opCos     = 0x1B1
	opTan     = 0x1B2
	opAsin    = 0x1B3
	opAcos    = 0x1B4
	opAtan    = 0x1B5
	opAtan2   = 0x1B6

	opJfeq   = 0x1C0
	opJfne   = 0x1C1
	opJflt   = 0x1C2
	opJfle   = 0x1C3
	opJfgt   = 0x1C4
	opJfge   = 0x1C5
	opJisnan = 0x1C8
	opJisinf = 0x1C9
)

// opcodeTable maps every recognized opcode number to its mnemonic and
// operand slot list. An opcode number absent from this table is
// ErrUnknownInstruction.
var opcodeTable = map[uint32]opcodeDef{
	opNop: {opNop, "nop", nil},

	opAdd:     {opAdd, "add", []operandSlot{ld(), ld(), sv()}},
	opSub:     {opSub, "sub", []operandSlot{ld(), ld(), sv()}},
	opMul:     {opMul, "mul", []operandSlot{ld(), ld(), sv()}},
	opDiv:     {opDiv, "div", []operandSlot{ld(), ld(), sv()}},
	opMod:     {opMod, "mod", []operandSlot{ld(), ld(), sv()}},
	opNeg:     {opNeg, "neg", []operandSlot{ld(), sv()}},
	opBitAnd:  {opBitAnd, "bitand", []operandSlot{ld(), ld(), sv()}},
	opBitOr:   {opBitOr, "bitor", []operandSlot{ld(), ld(), sv()}},
	opBitXor:  {opBitXor, "bitxor", []operandSlot{ld(), ld(), sv()}},
	opBitNot:  {opBitNot, "bitnot", []operandSlot{ld(), sv()}},
	opShiftL:  {opShiftL, "shiftl", []operandSlot{ld(), ld(), sv()}},
	opSShiftR: {opSShiftR, "sshiftr", []operandSlot{ld(), ld(), sv()}},
	opUShiftR: {opUShiftR, "ushiftr", []operandSlot{ld(), ld(), sv()}},

	opJump: {opJump, "jump", []operandSlot{ld()}},
	opJz:   {opJz, "jz", []operandSlot{ld(), ld()}},
	opJnz:  {opJnz, "jnz", []operandSlot{ld(), ld()}},
	opJeq:  {opJeq, "jeq", []operandSlot{ld(), ld(), ld()}},
	opJne:  {opJne, "jne", []operandSlot{ld(), ld(), ld()}},
	opJlt:  {opJlt, "jlt", []operandSlot{ld(), ld(), ld()}},
	opJge:  {opJge, "jge", []operandSlot{ld(), ld(), ld()}},
	opJgt:  {opJgt, "jgt", []operandSlot{ld(), ld(), ld()}},
	opJle:  {opJle, "jle", []operandSlot{ld(), ld(), ld()}},
	opJltu: {opJltu, "jltu", []operandSlot{ld(), ld(), ld()}},
	opJgeu: {opJgeu, "jgeu", []operandSlot{ld(), ld(), ld()}},
	opJgtu: {opJgtu, "jgtu", []operandSlot{ld(), ld(), ld()}},
	opJleu: {opJleu, "jleu", []operandSlot{ld(), ld(), ld()}},

	opCall:     {opCall, "call", []operandSlot{ld(), ld(), sv()}},
	opReturn:   {opReturn, "return", []operandSlot{ld()}},
	opCatch:    {opCatch, "catch", []operandSlot{sv(), ld()}},
	opThrow:    {opThrow, "throw", []operandSlot{ld(), ld()}},
	opTailcall: {opTailcall, "tailcall", []operandSlot{ld(), ld()}},

	opCopy:  {opCopy, "copy", []operandSlot{ld(), sv()}},
	opCopys: {opCopys, "copys", []operandSlot{ld(), sv()}},
	opCopyb: {opCopyb, "copyb", []operandSlot{ld(), sv()}},
	opSexs:  {opSexs, "sexs", []operandSlot{ld(), sv()}},
	opSexb:  {opSexb, "sexb", []operandSlot{ld(), sv()}},

	opAload:     {opAload, "aload", []operandSlot{ld(), ld(), sv()}},
	opAloads:    {opAloads, "aloads", []operandSlot{ld(), ld(), sv()}},
	opAloadb:    {opAloadb, "aloadb", []operandSlot{ld(), ld(), sv()}},
	opAloadbit:  {opAloadbit, "aloadbit", []operandSlot{ld(), ld(), sv()}},
	opAstore:    {opAstore, "astore", []operandSlot{ld(), ld(), ld()}},
	opAstores:   {opAstores, "astores", []operandSlot{ld(), ld(), ld()}},
	opAstoreb:   {opAstoreb, "astoreb", []operandSlot{ld(), ld(), ld()}},
	opAstorebit: {opAstorebit, "astorebit", []operandSlot{ld(), ld(), ld()}},

	opStkcount: {opStkcount, "stkcount", []operandSlot{sv()}},
	opStkpeek:  {opStkpeek, "stkpeek", []operandSlot{ld(), sv()}},
	opStkswap:  {opStkswap, "stkswap", nil},
	opStkroll:  {opStkroll, "stkroll", []operandSlot{ld(), ld()}},
	opStkcopy:  {opStkcopy, "stkcopy", []operandSlot{ld()}},

	opStreamchar:    {opStreamchar, "streamchar", []operandSlot{ld()}},
	opStreamnum:     {opStreamnum, "streamnum", []operandSlot{ld()}},
	opStreamstr:     {opStreamstr, "streamstr", []operandSlot{ld()}},
	opStreamunichar: {opStreamunichar, "streamunichar", []operandSlot{ld()}},

	opGestalt:      {opGestalt, "gestalt", []operandSlot{ld(), ld(), sv()}},
	opDebugtrap:    {opDebugtrap, "debugtrap", []operandSlot{ld()}},
	opGetmemsize:   {opGetmemsize, "getmemsize", []operandSlot{sv()}},
	opSetmemsize:   {opSetmemsize, "setmemsize", []operandSlot{ld(), sv()}},
	opJumpabs:      {opJumpabs, "jumpabs", []operandSlot{ld()}},
	opRandom:       {opRandom, "random", []operandSlot{ld(), sv()}},
	opSetrandom:    {opSetrandom, "setrandom", []operandSlot{ld()}},
	opQuit:         {opQuit, "quit", nil},
	opVerify:       {opVerify, "verify", []operandSlot{sv()}},
	opRestart:      {opRestart, "restart", nil},
	opSave:         {opSave, "save", []operandSlot{ld(), sv()}},
	opRestore:      {opRestore, "restore", []operandSlot{ld(), sv()}},
	opSaveundo:     {opSaveundo, "saveundo", []operandSlot{sv()}},
	opRestoreundo:  {opRestoreundo, "restoreundo", []operandSlot{sv()}},
	opProtect:      {opProtect, "protect", []operandSlot{ld(), ld()}},
	opGlk:          {opGlk, "glk", []operandSlot{ld(), ld(), sv()}},
	opGetstringtbl: {opGetstringtbl, "getstringtbl", []operandSlot{sv()}},
	opSetstringtbl: {opSetstringtbl, "setstringtbl", []operandSlot{ld()}},
	opGetiosys:     {opGetiosys, "getiosys", []operandSlot{sv(), sv()}},
	opSetiosys:     {opSetiosys, "setiosys", []operandSlot{ld(), ld()}},

	opLinearsearch: {opLinearsearch, "linearsearch", []operandSlot{ld(), ld(), ld(), ld(), ld(), ld(), ld(), sv()}},
	opBinarysearch: {opBinarysearch, "binarysearch", []operandSlot{ld(), ld(), ld(), ld(), ld(), ld(), ld(), sv()}},
	opLinkedsearch: {opLinkedsearch, "linkedsearch", []operandSlot{ld(), ld(), ld(), ld(), ld(), ld(), sv()}},

	opCallf:    {opCallf, "callf", []operandSlot{ld(), sv()}},
	opCallfi:   {opCallfi, "callfi", []operandSlot{ld(), ld(), sv()}},
	opCallfii:  {opCallfii, "callfii", []operandSlot{ld(), ld(), ld(), sv()}},
	opCallfiii: {opCallfiii, "callfiii", []operandSlot{ld(), ld(), ld(), ld(), sv()}},

	opMzero:      {opMzero, "mzero", []operandSlot{ld(), ld()}},
	opMcopy:      {opMcopy, "mcopy", []operandSlot{ld(), ld(), ld()}},
	opMalloc:     {opMalloc, "malloc", []operandSlot{ld(), sv()}},
	opMfree:      {opMfree, "mfree", []operandSlot{ld()}},
	opAccelfunc:  {opAccelfunc, "accelfunc", []operandSlot{ld(), ld()}},
	opAccelparam: {opAccelparam, "accelparam", []operandSlot{ld(), ld()}},

	opNumtof:  {opNumtof, "numtof", []operandSlot{ld(), sv()}},
	opFtonumz: {opFtonumz, "ftonumz", []operandSlot{ldf(), sv()}},
	opFtonumn: {opFtonumn, "ftonumn", []operandSlot{ldf(), sv()}},
	opCeil:    {opCeil, "ceil", []operandSlot{ldf(), sv()}},
	opFloor:   {opFloor, "floor", []operandSlot{ldf(), sv()}},
	opFadd:    {opFadd, "fadd", []operandSlot{ldf(), ldf(), sv()}},
	opFsub:    {opFsub, "fsub", []operandSlot{ldf(), ldf(), sv()}},
	opFmul:    {opFmul, "fmul", []operandSlot{ldf(), ldf(), sv()}},
	opFdiv:    {opFdiv, "fdiv", []operandSlot{ldf(), ldf(), sv()}},
	opFmod:    {opFmod, "fmod", []operandSlot{ldf(), ldf(), sv(), sv()}},
	opSqrt:    {opSqrt, "sqrt", []operandSlot{ldf(), sv()}},
	opExp:     {opExp, "exp", []operandSlot{ldf(), sv()}},
	opLog:     {opLog, "log", []operandSlot{ldf(), sv()}},
	opPow:     {opPow, "pow", []operandSlot{ldf(), ldf(), sv()}},
	opSin:     {opSin, "sin", []operandSlot{ldf(), sv()}},
	opCos:     {opCos, "cos", []operandSlot{ldf(), sv()}},
	opTan:     {opTan, "tan", []operandSlot{ldf(), sv()}},
	opAsin:    {opAsin, "asin", []operandSlot{ldf(), sv()}},
	opAcos:    {opAcos, "acos", []operandSlot{ldf(), sv()}},
	opAtan:    {opAtan, "atan", []operandSlot{ldf(), sv()}},
	opAtan2:   {opAtan2, "atan2", []operandSlot{ldf(), ldf(), sv()}},

	opJfeq:   {opJfeq, "jfeq", []operandSlot{ldf(), ldf(), ldf(), ld()}},
	opJfne:   {opJfne, "jfne", []operandSlot{ldf(), ldf(), ldf(), ld()}},
	opJflt:   {opJflt, "jflt", []operandSlot{ldf(), ldf(), ld()}},
	opJfle:   {opJfle, "jfle", []operandSlot{ldf(), ldf(), ld()}},
	opJfgt:   {opJfgt, "jfgt", []operandSlot{ldf(), ldf(), ld()}},
	opJfge:   {opJfge, "jfge", []operandSlot{ldf(), ldf(), ld()}},
	opJisnan: {opJisnan, "jisnan", []operandSlot{ldf(), ld()}},
	opJisinf: {opJisinf, "jisinf", []operandSlot{ldf(), ld()}},
}

// gestaltVersion, gestaltInterpreterVersion are the values reported by
// GESTALT selectors 0 and 1 (§4.4).
const (
	gestaltVersion            = 0x00030100
	gestaltInterpreterVersion = 0x00000001
)

// Gestalt answers a GESTALT query. The core implements the subset of
// selectors it can honestly answer given its scope (§1, §4.4): memory
// resize and MZERO/MCOPY are real, float is real; heap, acceleration,
// Unicode, and the save/restore family are not, and report 0.
func Gestalt(selector, arg uint32) uint32 {
	switch selector {
	case 0x0:
		return gestaltVersion
	case 0x1:
		return gestaltInterpreterVersion
	case 0x2: // SetMemSize
		return 1
	case 0x3: // UndoAvailable
		return 0
	case 0x4: // IOSystem
		switch arg {
		case 0x0, 0x1:
			return 1
		default:
			return 0
		}
	case 0x5: // Unicode
		return 0
	case 0x6: // MemCopy
		return 1
	case 0x7: // MAlloc
		return 0
	case 0x8: // MAllocHeap
		return 0
	case 0x9: // Acceleration
		return 0
	case 0xA: // AccelFunc
		return 0
	case 0xB: // Float
		return 1
	default:
		return 0
	}
}
