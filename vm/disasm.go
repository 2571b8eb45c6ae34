package vm

import "fmt"

// Disassemble renders the single instruction at pc as text and
// returns the address immediately following it, without mutating any
// VM state — grounded on the teacher's formatInstructionStr/
// printCurrentState debug helpers, generalized from a register-VM's
// fixed-width encoding to Glulx's variable-length one.
func Disassemble(mem *Memory, pc uint32) (text string, next uint32) {
	opcodePC := pc
	opcode := FetchOpcodeNumber(mem, &pc)
	def, ok := opcodeTable[opcode]
	if !ok {
		return fmt.Sprintf("0x%08X: <unknown opcode 0x%X>", opcodePC, opcode), pc
	}

	if len(def.Operands) == 0 {
		return fmt.Sprintf("0x%08X: %s", opcodePC, def.Name), pc
	}

	modes := FetchOperandModes(mem, &pc, len(def.Operands))
	parts := make([]string, len(def.Operands))
	for i, slot := range def.Operands {
		if slot.kind == slotSave {
			s, err := MaterializeSave(mem, &pc, modes[i])
			if err != nil {
				parts[i] = "<bad>"
				continue
			}
			parts[i] = formatSave(s)
		} else {
			l, err := MaterializeLoad(mem, &pc, modes[i], slot.float)
			if err != nil {
				parts[i] = "<bad>"
				continue
			}
			parts[i] = formatLoad(l)
		}
	}

	out := fmt.Sprintf("0x%08X: %s", opcodePC, def.Name)
	for _, p := range parts {
		out += " " + p
	}
	return out, pc
}

func formatLoad(l Load) string {
	switch l.Kind {
	case LoadConst:
		return fmt.Sprintf("#%d", l.Const)
	case LoadAddr:
		return fmt.Sprintf("[0x%X]", l.Addr)
	case LoadPop:
		return "pop"
	case LoadFrame:
		return fmt.Sprintf("local+0x%X", l.Addr)
	case LoadRam:
		return fmt.Sprintf("ram+0x%X", l.Addr)
	default:
		return "?"
	}
}

func formatSave(s Save) string {
	switch s.Kind {
	case SaveNull:
		return "_"
	case SaveAddr:
		return fmt.Sprintf("->[0x%X]", s.Addr)
	case SavePush:
		return "->push"
	case SaveFrame:
		return fmt.Sprintf("->local+0x%X", s.Addr)
	case SaveRam:
		return fmt.Sprintf("->ram+0x%X", s.Addr)
	default:
		return "?"
	}
}
