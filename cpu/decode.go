package cpu

// buildOpcodeTable installs the 68000 instruction set as a flat
// [0x10000]opFunc table populated by pattern/mask registration,
// following the teacher's top-nibble group dispatch (cpu_m68k.go's
// decodeAndExecute switch on ir>>12) but keyed as one table built once
// at init, matching go-chip-m68k's decode.go approach of opcode
// pattern/mask registration rather than a giant runtime switch.
//
// A later registration overwrites an earlier one wherever their
// patterns overlap, so narrower encodings that share a broader
// family's opcode space are registered after that family. The table
// is the same for the 68000 and 68030 models. Opcodes no registration
// covers keep the table's nil zero value, which step treats as an
// illegal instruction.
func (c *CPU) buildOpcodeTable() {
	reg := func(pattern, mask uint16, fn opFunc) {
		for ir := 0; ir < 0x10000; ir++ {
			if uint16(ir)&mask == pattern {
				c.opcodeTable[ir] = fn
			}
		}
	}

	reg(0x4E71, 0xFFFF, opNOP)
	reg(0x4E75, 0xFFFF, opRTS)
	reg(0x4E73, 0xFFFF, opRTE)
	reg(0x4E77, 0xFFFF, opRTR)
	reg(0x4E76, 0xFFFF, opTRAPV)
	reg(0x4E72, 0xFFFF, opSTOP) // STOP #imm: immediate word fetched by the handler
	reg(0x4E40, 0xFFF0, opTRAP)

	// MOVEQ #<data>,Dn : 0111 ddd0 dddddddd
	reg(0x7000, 0xF100, opMOVEQ)

	// Bcc/BRA/BSR: 0110 cccc dddddddd (cccc=0000 is BRA, 0001 is BSR)
	reg(0x6000, 0xF000, opBcc)

	// MOVE/MOVEA, the full addressing-mode matrix: 00 ss DDD ddd SSS sss
	reg(0x1000, 0xF000, opMOVE) // byte
	reg(0x3000, 0xF000, opMOVE) // word
	reg(0x2000, 0xF000, opMOVE) // long

	// ADD/SUB/CMP(+CMPM)/AND(+MULU/MULS)/OR(+DIVU/DIVS)/EOR family
	// opcodes, register- and memory-operand forms, plus their address-
	// register (ADDA/SUBA/CMPA) variants (spec.md §4.3's instruction
	// set).
	reg(0xD000, 0xF000, opADDFamily)
	reg(0x9000, 0xF000, opSUBFamily)
	reg(0xB000, 0xF000, opCMPEORFamily)
	reg(0xC000, 0xF000, opANDMulFamily)
	reg(0x8000, 0xF000, opORDivFamily)

	// Immediate ALU ops: ORI/ANDI/SUBI/ADDI/EORI/CMPI #imm,<ea>.
	reg(0x0000, 0xFF00, opORIorToCCRSR)
	reg(0x0200, 0xFF00, opANDIorToCCRSR)
	reg(0x0400, 0xFF00, opSUBI)
	reg(0x0600, 0xFF00, opADDI)
	reg(0x0A00, 0xFF00, opEORIorToCCRSR)
	reg(0x0C00, 0xFF00, opCMPI)

	// ADDQ/SUBQ #<data>,<ea>: 0101 qqq0/1 ss mmm rrr.
	reg(0x5000, 0xF100, opADDQ)
	reg(0x5100, 0xF100, opSUBQ)

	// Scc <ea> / DBcc Dn,<disp> share the same top nibble; mode==1 (An
	// direct, invalid for Scc's data-alterable requirement) selects
	// DBcc, exactly as real 68000 silicon reuses the encoding.
	reg(0x50C0, 0xF0C0, opSccOrDBcc)

	// Shift/rotate, register form: 1110 ccc d ss i tt rrr.
	reg(0xE000, 0xF000, opShiftRotate)

	// BTST/BCHG/BCLR/BSET, dynamic (bit number in a data register) and
	// static (bit number as an immediate extension word) forms.
	reg(0x0100, 0xF1C0, opBTSTDynamic)
	reg(0x0140, 0xF1C0, opBCHGDynamic)
	reg(0x0180, 0xF1C0, opBCLRDynamic)
	reg(0x01C0, 0xF1C0, opBSETDynamic)
	reg(0x0800, 0xFFC0, opBTSTStatic)
	reg(0x0840, 0xFFC0, opBCHGStatic)
	reg(0x0880, 0xFFC0, opBCLRStatic)
	reg(0x08C0, 0xFFC0, opBSETStatic)

	// CLR/NEG/NEGX/NOT/TST: 0100 oooo ss mmm rrr.
	reg(0x4200, 0xFF00, opCLR)
	reg(0x4400, 0xFF00, opNEG)
	reg(0x4000, 0xFF00, opNEGX)
	reg(0x4600, 0xFF00, opNOT)
	reg(0x4A00, 0xFF00, opTST)
	reg(0x4AFC, 0xFFFF, opIllegal) // inside TST's pattern, so registered after it

	// CHK Dn,<ea> (word-sized bounds check, spec.md §9's undefined-
	// flags open question resolved in DESIGN.md).
	reg(0x4180, 0xF1C0, opCHK)

	// MOVE to/from SR, MOVE to CCR.
	reg(0x40C0, 0xFFC0, opMOVEfromSR)
	reg(0x44C0, 0xFFC0, opMOVEtoCCR)
	reg(0x46C0, 0xFFC0, opMOVEtoSR)

	// LEA/PEA/JMP/JSR: full control-addressing-mode EA, superseding
	// the address-register-indirect-only forms.
	reg(0x41C0, 0xF1C0, opLEA)
	reg(0x4840, 0xFFC0, opPEA)
	reg(0x4EC0, 0xFFC0, opJMP)
	reg(0x4E80, 0xFFC0, opJSR)

	// MOVEM register-list <-> memory. Registered before EXT/SWAP
	// below: those reuse MOVEM's own "mode 000" (data-register-direct,
	// invalid addressing for MOVEM) encoding slot, the same trick the
	// 68000 plays with Scc/DBcc and PEA/SWAP, so the narrower EXT/SWAP
	// registrations must overwrite the broader MOVEM entries rather
	// than the reverse.
	reg(0x4880, 0xFF80, opMOVEMOut)
	reg(0x4C80, 0xFF80, opMOVEMIn)

	// LINK/UNLK/EXG/EXT/SWAP.
	reg(0x4E50, 0xFFF8, opLINK)
	reg(0x4E58, 0xFFF8, opUNLK)
	reg(0xC140, 0xF1F8, opEXGData)
	reg(0xC148, 0xF1F8, opEXGAddr)
	reg(0xC188, 0xF1F8, opEXGDataAddr)
	reg(0x4840, 0xFFF8, opSWAP)
	reg(0x4880, 0xFFF8, opEXTWord)
	reg(0x48C0, 0xFFF8, opEXTLong)
}

func opNOP(c *CPU, ir uint16) (uint32, *trapRequest) { return 4, nil }

func opRTS(c *CPU, ir uint16) (uint32, *trapRequest) {
	c.Regs.PC = c.pop32()
	return 16, nil
}

func opRTE(c *CPU, ir uint16) (uint32, *trapRequest) {
	if !c.Regs.Supervisor() {
		return 4, &trapRequest{vector: VectorPrivilegeViol}
	}
	if c.Is030 {
		c.pop16() // discard format/vector word
	}
	sr := c.pop16()
	pc := c.pop32()
	c.Regs.SR = sr
	c.Regs.PC = pc
	c.Bus.SetSupervisor(c.Regs.Supervisor())
	return 20, nil
}

// opRTR restores CCR (not the full SR, so privilege and IPL mask are
// left alone) and PC from the stack; the non-privileged sibling of
// RTE used by user-mode subroutines that saved CCR themselves.
func opRTR(c *CPU, ir uint16) (uint32, *trapRequest) {
	ccr := c.pop16()
	pc := c.pop32()
	c.Regs.SR = (c.Regs.SR &^ SRCCRMask) | (ccr & SRCCRMask)
	c.Regs.PC = pc
	return 20, nil
}

// opTRAPV raises a TRAPV exception iff the overflow flag is set,
// otherwise falls through like a NOP.
func opTRAPV(c *CPU, ir uint16) (uint32, *trapRequest) {
	if c.Regs.SR&SROverflow != 0 {
		return 4, &trapRequest{vector: VectorTrapV}
	}
	return 4, nil
}

func opSTOP(c *CPU, ir uint16) (uint32, *trapRequest) {
	if !c.Regs.Supervisor() {
		return 4, &trapRequest{vector: VectorPrivilegeViol}
	}
	sr, _ := c.Bus.Read16WithFault(c.Regs.PC)
	c.Regs.PC += 2
	c.Regs.SR = sr
	c.halted = true
	return 4, nil
}

func opIllegal(c *CPU, ir uint16) (uint32, *trapRequest) {
	return 4, &trapRequest{vector: VectorIllegalInstr}
}

func opTRAP(c *CPU, ir uint16) (uint32, *trapRequest) {
	n := uint32(ir & 0xF)
	return 34, &trapRequest{vector: VectorTrapBase + n}
}

func opMOVEQ(c *CPU, ir uint16) (uint32, *trapRequest) {
	reg := (ir >> 9) & 0x7
	data := int32(int8(ir & 0xFF))
	c.Regs.D[reg] = uint32(data)
	c.setLogicalFlags(uint32(data), 4)
	return 4, nil
}

func opBcc(c *CPU, ir uint16) (uint32, *trapRequest) {
	cond := (ir >> 8) & 0xF
	disp := int32(int8(ir & 0xFF))
	base := c.Regs.PC
	var ext uint32
	if disp == 0 {
		w, _ := c.Bus.Read16WithFault(c.Regs.PC)
		c.Regs.PC += 2
		ext = 2
		disp = int32(int16(w))
	}
	target := base - ext + uint32(disp)

	if cond == 1 { // BSR
		c.push32(c.Regs.PC)
		c.Regs.PC = target
		return 18, nil
	}
	if cond == 0 || c.testCondition(uint8(cond)) { // BRA or satisfied Bcc
		c.Regs.PC = target
		return 10, nil
	}
	return 8, nil
}

// testCondition evaluates the 68000's standard 16-way condition-code
// predicate table against the current SR (spec.md §4.3).
func (c *CPU) testCondition(cond uint8) bool {
	sr := c.Regs.SR
	n := sr&SRNegative != 0
	z := sr&SRZero != 0
	v := sr&SROverflow != 0
	cc := sr&SRCarry != 0
	switch cond {
	case 0x0: // T
		return true
	case 0x1: // F
		return false
	case 0x2: // HI
		return !cc && !z
	case 0x3: // LS
		return cc || z
	case 0x4: // CC
		return !cc
	case 0x5: // CS
		return cc
	case 0x6: // NE
		return !z
	case 0x7: // EQ
		return z
	case 0x8: // VC
		return !v
	case 0x9: // VS
		return v
	case 0xA: // PL
		return !n
	case 0xB: // MI
		return n
	case 0xC: // GE
		return n == v
	case 0xD: // LT
		return n != v
	case 0xE: // GT
		return !z && n == v
	case 0xF: // LE
		return z || n != v
	default:
		return false
	}
}

// maskToSize truncates v to an 8/16/32-bit quantity.
func maskToSize(v uint32, size uint8) uint32 {
	switch size {
	case 1:
		return v & 0xFF
	case 2:
		return v & 0xFFFF
	default:
		return v
	}
}

// setSized replaces the low size bytes of dst with v, leaving dst's
// upper bytes untouched — the 68000's rule that byte/word operations
// on a data register never disturb its upper bits.
func setSized(dst, v uint32, size uint8) uint32 {
	switch size {
	case 1:
		return dst&^0xFF | v&0xFF
	case 2:
		return dst&^0xFFFF | v&0xFFFF
	default:
		return v
	}
}

// stdSize maps the 2-bit size field used throughout the 0000/0100/0101
// opcode groups (00=byte,01=word,10=long) to a byte count.
func stdSize(bits uint16) uint8 {
	switch bits & 0x3 {
	case 0:
		return 1
	case 1:
		return 2
	default:
		return 4
	}
}

func addWithFlags(a, b uint32, size uint8) (result uint32, carry, overflow bool) {
	a, b = maskToSize(a, size), maskToSize(b, size)
	sum := a + b
	result = maskToSize(sum, size)
	bits := widthBits(size)
	limit := uint64(1) << uint(bits)
	carry = uint64(a)+uint64(b) >= limit
	signBit := uint32(1) << uint(bits-1)
	overflow = (a&signBit) == (b&signBit) && (result&signBit) != (a&signBit)
	return
}

func subWithFlags(a, b uint32, size uint8) (result uint32, carry, overflow bool) {
	a, b = maskToSize(a, size), maskToSize(b, size)
	diff := a - b
	result = maskToSize(diff, size)
	carry = a < b
	bits := widthBits(size)
	signBit := uint32(1) << uint(bits-1)
	overflow = (a&signBit) != (b&signBit) && (result&signBit) != (a&signBit)
	return
}

// setArithFlags applies the standard N/Z/V/C (and, for ADD/SUB, X)
// flag update after an arithmetic op; CMP-family callers pass
// affectsX=false since compares never touch X (spec.md §4.3's flag
// tables).
func (c *CPU) setArithFlags(result uint32, carry, overflow, affectsX bool, size uint8) {
	c.Regs.clearArithmeticFlags()
	c.Regs.setZeroNegative(result, size)
	if carry {
		c.Regs.SR |= SRCarry
	}
	if affectsX {
		if carry {
			c.Regs.SR |= SRExtend
		} else {
			c.Regs.SR &^= SRExtend
		}
	}
	if overflow {
		c.Regs.SR |= SROverflow
	}
}

// setLogicalFlags applies the flag update AND/OR/EOR/NOT/MOVE/MOVEQ
// share: N/Z from the result, V and C always cleared, X unaffected.
func (c *CPU) setLogicalFlags(result uint32, size uint8) {
	c.Regs.clearArithmeticFlags()
	c.Regs.setZeroNegative(result, size)
}
