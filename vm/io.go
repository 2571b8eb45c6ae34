package vm

// I/O subsystem mode numbers reported by GESTALT selector 4 and
// accepted by SETIOSYS (§4.5).
const (
	IOSystemNull   = 0x0
	IOSystemFilter = 0x1
	IOSystemGlk    = 0x2
	IOSystemFyre   = 0x3
)

// Dispatch selectors reserved by the core for STREAMCHAR/STREAMNUM/
// STREAMSTR/STREAMUNICHAR. Real GLK calls (opcode 0x130) use selectors
// in the normal GLK range (< DispatchReserveBase); these four are
// pushed through the same Dispatch entry point rather than handled
// locally, so a single host boundary sees all guest-visible output
// (§4.5's "no I/O is performed by the core itself").
const (
	DispatchReserveBase  = 0xF0000000
	DispatchStreamChar   = DispatchReserveBase + 0
	DispatchStreamNum    = DispatchReserveBase + 1
	DispatchStreamStr    = DispatchReserveBase + 2
	DispatchStreamUni    = DispatchReserveBase + 3
)

// IOManager is the host contract described in §4.5: the core never
// performs I/O itself, only delegates to whichever manager is
// installed. mem is passed to Dispatch so a manager can read string
// data (STREAMSTR) directly out of the VM's address space.
type IOManager interface {
	SetSubsystem(mode, rock uint32)
	GetSubsystem() (mode, rock uint32)
	GestaltSubsystem(mode uint32) uint32
	Dispatch(selector uint32, args []uint32, mem *Memory) uint32
	Quit()
}

// NullManager discards everything; gestalt reports every mode as
// unsupported except Null itself. This is the core's default manager,
// grounded on original_source's io.rs Null subsystem, so the VM is
// runnable standalone (e.g. in tests) without a host-supplied Glk
// binding.
type NullManager struct {
	mode, rock uint32
}

func NewNullManager() *NullManager { return &NullManager{} }

func (n *NullManager) SetSubsystem(mode, rock uint32) { n.mode, n.rock = mode, rock }
func (n *NullManager) GetSubsystem() (uint32, uint32)  { return n.mode, n.rock }
func (n *NullManager) GestaltSubsystem(mode uint32) uint32 {
	if mode == IOSystemNull {
		return 1
	}
	return 0
}
func (n *NullManager) Dispatch(uint32, []uint32, *Memory) uint32 { return 0 }
func (n *NullManager) Quit()                                     {}

// FilterManager models the Glk "Filter" subsystem rock (original_source's
// io.rs Filter/DefaultManager): rather than rendering output, every
// STREAMCHAR/STREAMNUM/STREAMSTR/STREAMUNICHAR call is recorded and
// handed to a host callback so tests and the debugger can observe
// exactly what the story file attempted to print without a real Glk
// terminal attached.
type FilterManager struct {
	mode, rock uint32
	onChar     func(rune)
}

// NewFilterManager constructs a FilterManager whose output is handed,
// rune by rune, to onChar. A nil onChar silently discards output. The
// reported subsystem mode starts at IOSystemNull (0) until
// SetSubsystem changes it; Dispatch forwards output whatever the mode.
func NewFilterManager(onChar func(rune)) *FilterManager {
	return &FilterManager{onChar: onChar}
}

func (f *FilterManager) SetSubsystem(mode, rock uint32) { f.mode, f.rock = mode, rock }
func (f *FilterManager) GetSubsystem() (uint32, uint32)  { return f.mode, f.rock }
func (f *FilterManager) GestaltSubsystem(mode uint32) uint32 {
	switch mode {
	case IOSystemNull, IOSystemFilter, IOSystemGlk, IOSystemFyre:
		return 1
	default:
		return 0
	}
}

func (f *FilterManager) emit(r rune) {
	if f.onChar != nil {
		f.onChar(r)
	}
}

func (f *FilterManager) Dispatch(selector uint32, args []uint32, mem *Memory) uint32 {
	switch selector {
	case DispatchStreamChar:
		f.emit(rune(args[0] & 0xFF))
	case DispatchStreamUni:
		f.emit(rune(args[0]))
	case DispatchStreamNum:
		for _, r := range itoa32(int32(args[0])) {
			f.emit(r)
		}
	case DispatchStreamStr:
		f.streamString(args[0], mem)
	default:
		return 0
	}
	return 1
}

func (f *FilterManager) Quit() {}

// streamString walks a Glulx encoded string at addr. Type byte 0xE0
// (plain 8-bit C string) and 0xE2 (plain 32-bit Unicode string, each
// character a 4-byte code point) are supported directly; type 0xE1
// (Huffman-compressed via the image's string decoding table) requires
// walking a bit-addressed decode tree that belongs to the string
// content format, not VM execution, and is left unimplemented — the
// same boundary the core draws around save/restore.
func (f *FilterManager) streamString(addr uint32, mem *Memory) {
	tag := mem.ReadU8(addr)
	switch tag {
	case 0xE0:
		for p := addr + 1; ; p++ {
			b := mem.ReadU8(p)
			if b == 0 {
				return
			}
			f.emit(rune(b))
		}
	case 0xE2:
		for p := addr + 4; ; p += 4 {
			c := mem.ReadU32(p)
			if c == 0 {
				return
			}
			f.emit(rune(c))
		}
	default:
		panic(ErrUnimplemented)
	}
}

func itoa32(v int32) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	u := uint32(v)
	if neg {
		u = uint32(-v)
	}
	var buf [11]byte
	i := len(buf)
	for u > 0 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
