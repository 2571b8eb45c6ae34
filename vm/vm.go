package vm

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glulx-go/glulx/vm/vmlog"
)

// State is the VM's position in its Loaded → Running → Halted state
// machine (§4.4).
type State int

const (
	StateLoaded State = iota
	StateRunning
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// catchFrame is a pending CATCH point: the stack position to unwind
// to and the save destination a matching THROW writes its value to.
type catchFrame struct {
	framePtr uint32
	stackLen uint32
	pc       uint32
	save     Save
}

// VM owns the address space, execution stack, program counter and
// I/O manager for one running story file. There is exactly one
// executor thread per VM (§5): Memory, Stack and PC are never shared.
type VM struct {
	mem   *Memory
	stack *Stack
	pc    uint32
	io    IOManager

	state State
	err   error

	// runID distinguishes this VM's log lines from any other instance
	// running concurrently in the same embedding process (e.g. a
	// multi-session server or the debugger), since Memory/Stack/PC
	// themselves carry no identity of their own (§5).
	runID uuid.UUID

	log *vmlog.Logger
	rng *rand.Rand

	catchStack []catchFrame

	protectStart uint32
	protectLen   uint32
	stringTbl    uint32
}

// New constructs a VM from an already-validated Memory image. The
// returned VM is in the Loaded state; call Init to begin execution.
// rng seeds the RANDOM opcode (§1: seeding policy is the embedder's
// concern, not the core's); a nil rng gets a time-seeded default so
// the VM remains usable without an embedder that cares.
func New(mem *Memory, log *vmlog.Logger, rng *rand.Rand) *VM {
	if log == nil {
		log = vmlog.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &VM{
		mem:   mem,
		stack: NewStack(mem.StackSize()),
		io:    NewNullManager(),
		runID: uuid.New(),
		log:   log,
		rng:   rng,
		state: StateLoaded,
	}
}

// RunID identifies this VM instance in log output, stable for its
// whole lifetime.
func (vm *VM) RunID() uuid.UUID { return vm.runID }

// Load is a convenience constructor combining FromRom and New.
func Load(rom []byte, log *vmlog.Logger, rng *rand.Rand) (*VM, error) {
	mem, err := FromRom(rom)
	if err != nil {
		return nil, err
	}
	return New(mem, log, rng), nil
}

func (vm *VM) Memory() *Memory  { return vm.mem }
func (vm *VM) Stack() *Stack    { return vm.stack }
func (vm *VM) PC() uint32       { return vm.pc }
func (vm *VM) IO() IOManager    { return vm.io }
func (vm *VM) State() State     { return vm.state }

// SetIO swaps the installed I/O manager, e.g. to a FilterManager or
// an embedder's own Glk binding.
func (vm *VM) SetIO(m IOManager) { vm.io = m }

// Err reports the fatal error that halted the VM, if any.
func (vm *VM) Err() error { return vm.err }

// IsRunning reports whether Step will still do useful work.
func (vm *VM) IsRunning() bool { return vm.state == StateRunning }

// Protected reports the RAM range last recorded by PROTECT, or
// (0, 0) if none has been set.
func (vm *VM) Protected() (addr, length uint32) { return vm.protectStart, vm.protectLen }

// Init performs the VM's startup transition: an initial call to
// START_FUNC with no arguments and a Null save destination, then
// enters Running (§4.4). The call stub beneath this very first frame
// (destType Null, returnPC 0, saved_frame_ptr 0) gives Stack.Snapshot's
// walk a floor. A RETURN out of the root function pops it like any
// other stub: the value is discarded and PC becomes 0, so the next
// Step halts with a DecodeError on the header bytes at address 0.
func (vm *VM) Init() error {
	if vm.state != StateLoaded {
		return ErrIllegalInstruction
	}
	vm.log.Session(vm.runID, vm.mem.StartFunc())
	vm.stack.PushCallStub(destNull, 0, 0)
	vm.pc = vm.mem.StartFunc()
	if err := vm.callFunc(nil); err != nil {
		vm.fail(err)
		return err
	}
	vm.state = StateRunning
	return nil
}

// Run drives Step until the VM halts or a fatal error occurs.
func (vm *VM) Run() error {
	for vm.IsRunning() {
		vm.Step()
	}
	return vm.err
}

// Step performs one fetch-decode-execute cycle. A no-op once the VM
// has halted, matching the state machine in §4.4. Faults raised
// during execution (via panic, for addressing/stack-bounds violations
// mirrored from the teacher's recover-based dispatch loop) are caught
// here and converted into a RuntimeError that halts the VM rather than
// propagating to the embedder as a Go panic.
func (vm *VM) Step() {
	if vm.state != StateRunning {
		return
	}
	if err := vm.stepOnce(); err != nil {
		vm.fail(err)
	}
}

func (vm *VM) fail(err error) {
	vm.state = StateHalted
	vm.err = err
	vm.io.Quit()
}

func (vm *VM) stepOnce() (err error) {
	opcodePC := vm.pc
	var opcode uint32
	defer func() {
		if r := recover(); r != nil {
			reason, ok := r.(error)
			if !ok {
				panic(r)
			}
			vm.log.Fault(vm.runID, opcodePC, opcode, reason)
			err = &RuntimeError{PC: opcodePC, Opcode: opcode, Reason: reason}
		}
	}()

	opcode = FetchOpcodeNumber(vm.mem, &vm.pc)
	def, ok := opcodeTable[opcode]
	if !ok {
		return &DecodeError{PC: opcodePC, Reason: ErrUnknownInstruction}
	}
	if vm.log.Core().Enabled(zap.DebugLevel) {
		vm.log.Opcode(opcodePC, def.Name, opcode)
	}
	return vm.dispatch(opcodePC, opcode, def)
}
