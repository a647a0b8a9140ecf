package cpu

import "fmt"

// The methods in this file give *CPU named register get/set and
// disassembly, so the external shell never parses command text
// against this package directly (SPEC_FULL.md "Supplemental
// Features"). spec.md §6 lists the exact register name set this
// surface must recognise.

// GetRegister returns the named register's value, zero-extended to
// uint32, matching spec.md §6's "get <reg> ... returns the value as
// the exit code (zero-extended)". ok is false for an unrecognised
// name.
func (c *CPU) GetRegister(name string) (value uint32, ok bool) {
	switch name {
	case "D0", "D1", "D2", "D3", "D4", "D5", "D6", "D7":
		return c.Regs.D[name[1]-'0'], true
	case "A0", "A1", "A2", "A3", "A4", "A5", "A6":
		return c.Regs.A[name[1]-'0'], true
	case "A7", "SP":
		return c.Regs.A7(), true
	case "USP":
		return c.Regs.USP, true
	case "SSP":
		return c.Regs.SSP, true
	case "PC":
		return c.Regs.PC, true
	case "SR":
		return uint32(c.Regs.SR), true
	case "CCR":
		return uint32(c.Regs.SR & SRCCRMask), true
	case "X":
		return flagBit(c.Regs.SR, SRExtend), true
	case "N":
		return flagBit(c.Regs.SR, SRNegative), true
	case "Z":
		return flagBit(c.Regs.SR, SRZero), true
	case "V":
		return flagBit(c.Regs.SR, SROverflow), true
	case "C":
		return flagBit(c.Regs.SR, SRCarry), true
	case "instr":
		return uint32(c.instructions), true
	}
	return 0, false
}

func flagBit(sr uint16, mask uint16) uint32 {
	if sr&mask != 0 {
		return 1
	}
	return 0
}

// SetRegister writes value into the named register, matching spec.md
// §6's "set <reg> <value>" contract. ok is false for an unrecognised
// name.
func (c *CPU) SetRegister(name string, value uint32) (ok bool) {
	switch name {
	case "D0", "D1", "D2", "D3", "D4", "D5", "D6", "D7":
		c.Regs.D[name[1]-'0'] = value
		return true
	case "A0", "A1", "A2", "A3", "A4", "A5", "A6":
		c.Regs.A[name[1]-'0'] = value
		return true
	case "A7", "SP":
		c.Regs.SetA7(value)
		return true
	case "USP":
		c.Regs.USP = value
		return true
	case "SSP":
		c.Regs.SSP = value
		return true
	case "PC":
		c.Regs.PC = value
		return true
	case "SR":
		c.Regs.SR = uint16(value)
		c.Bus.SetSupervisor(c.Regs.Supervisor())
		return true
	case "CCR":
		c.Regs.SR = (c.Regs.SR &^ SRCCRMask) | (uint16(value) & SRCCRMask)
		return true
	case "X":
		setFlagBit(&c.Regs.SR, SRExtend, value != 0)
		return true
	case "N":
		setFlagBit(&c.Regs.SR, SRNegative, value != 0)
		return true
	case "Z":
		setFlagBit(&c.Regs.SR, SRZero, value != 0)
		return true
	case "V":
		setFlagBit(&c.Regs.SR, SROverflow, value != 0)
		return true
	case "C":
		setFlagBit(&c.Regs.SR, SRCarry, value != 0)
		return true
	}
	return false
}

func setFlagBit(sr *uint16, mask uint16, set bool) {
	if set {
		*sr |= mask
	} else {
		*sr &^= mask
	}
}

// Disassemble returns a minimal textual rendering of the instruction
// word at addr: the address and its raw hex value, tagged "(illegal)"
// when no handler is bound in the opcode table, or "<fault>" when the
// fetch faults. No mnemonic is produced. A full mnemonic
// disassembler belongs to the external debugger UI (spec.md §1 scopes
// "the interactive debugger UI" out; only the "mechanisms" stay).
func (c *CPU) Disassemble(addr uint32) string {
	word, ok := c.Bus.Read16WithFault(addr)
	if !ok {
		return fmt.Sprintf("%08X: <fault>", addr)
	}
	if c.opcodeTable[word] == nil {
		return fmt.Sprintf("%08X: %04X (illegal)", addr, word)
	}
	return fmt.Sprintf("%08X: %04X", addr, word)
}
