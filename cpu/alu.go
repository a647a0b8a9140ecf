package cpu

// ADD/SUB/CMP/AND/OR/EOR and their address-register/multiply/divide
// cousins. All six share one opcode shape — Dn, opmode, <ea> — so each
// family handler below switches on the 3-bit opmode field the same
// way real 68000 silicon does: opmode 000-010 select byte/word/long
// with <ea> as the source and Dn as the destination; 100-110 reverse
// that (Dn is the source, <ea> the destination, <ea> must not be a
// register); 011/111 select the word/long address-register forms
// (ADDA/SUBA/CMPA) or, for the AND/OR top nibbles, MULU/MULS/DIVU/DIVS
// — the 68000's own reuse of the "opmode 011/111 with a data-register
// destination" slot those two families never otherwise need (spec.md
// §4.3's instruction set).

func opADDFamily(c *CPU, ir uint16) (uint32, *trapRequest) {
	dn := (ir >> 9) & 0x7
	opmode := (ir >> 6) & 0x7
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7

	switch opmode {
	case 0, 1, 2:
		size := stdSize(opmode)
		e := c.decodeEA(eaMode, eaReg, size)
		src := c.readEA(e, size)
		dst := maskToSize(c.Regs.D[dn], size)
		result, carry, overflow := addWithFlags(dst, src, size)
		c.Regs.D[dn] = setSized(c.Regs.D[dn], result, size)
		c.setArithFlags(result, carry, overflow, true, size)
		return 4 + eaExtraCycles(eaMode, eaReg, size), nil
	case 3:
		e := c.decodeEA(eaMode, eaReg, 2)
		src := signExtend16(uint16(c.readEA(e, 2)))
		c.Regs.SetA(dn, c.Regs.GetA(dn)+src)
		return 8 + eaExtraCycles(eaMode, eaReg, 2), nil
	case 4, 5, 6:
		size := stdSize(opmode - 4)
		e := c.decodeEA(eaMode, eaReg, size)
		if !e.isMemory() {
			return 4, &trapRequest{vector: VectorIllegalInstr}
		}
		src := maskToSize(c.Regs.D[dn], size)
		dst := c.readEA(e, size)
		result, carry, overflow := addWithFlags(dst, src, size)
		c.writeEA(e, size, result)
		c.setArithFlags(result, carry, overflow, true, size)
		return 8 + eaExtraCycles(eaMode, eaReg, size), nil
	default: // 7: ADDA.L
		e := c.decodeEA(eaMode, eaReg, 4)
		src := c.readEA(e, 4)
		c.Regs.SetA(dn, c.Regs.GetA(dn)+src)
		return 8 + eaExtraCycles(eaMode, eaReg, 4), nil
	}
}

func opSUBFamily(c *CPU, ir uint16) (uint32, *trapRequest) {
	dn := (ir >> 9) & 0x7
	opmode := (ir >> 6) & 0x7
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7

	switch opmode {
	case 0, 1, 2:
		size := stdSize(opmode)
		e := c.decodeEA(eaMode, eaReg, size)
		src := c.readEA(e, size)
		dst := maskToSize(c.Regs.D[dn], size)
		result, carry, overflow := subWithFlags(dst, src, size)
		c.Regs.D[dn] = setSized(c.Regs.D[dn], result, size)
		c.setArithFlags(result, carry, overflow, true, size)
		return 4 + eaExtraCycles(eaMode, eaReg, size), nil
	case 3:
		e := c.decodeEA(eaMode, eaReg, 2)
		src := signExtend16(uint16(c.readEA(e, 2)))
		c.Regs.SetA(dn, c.Regs.GetA(dn)-src)
		return 8 + eaExtraCycles(eaMode, eaReg, 2), nil
	case 4, 5, 6:
		size := stdSize(opmode - 4)
		e := c.decodeEA(eaMode, eaReg, size)
		if !e.isMemory() {
			return 4, &trapRequest{vector: VectorIllegalInstr}
		}
		src := maskToSize(c.Regs.D[dn], size)
		dst := c.readEA(e, size)
		result, carry, overflow := subWithFlags(dst, src, size)
		c.writeEA(e, size, result)
		c.setArithFlags(result, carry, overflow, true, size)
		return 8 + eaExtraCycles(eaMode, eaReg, size), nil
	default: // 7: SUBA.L
		e := c.decodeEA(eaMode, eaReg, 4)
		src := c.readEA(e, 4)
		c.Regs.SetA(dn, c.Regs.GetA(dn)-src)
		return 8 + eaExtraCycles(eaMode, eaReg, 4), nil
	}
}

// opCMPEORFamily covers CMP/CMPA (opmodes 0-3, plus CMPA.L at opmode
// 7 despite its set bit 8) and EOR/CMPM (opmodes 4-6, bit 8 set).
// CMPM is distinguished from EOR by its ea field decoding to
// address-register-direct (mode 1) — not a legal EOR destination
// (EOR needs a data-alterable <ea>, never a plain register) — which
// the real CPU reuses the same way Scc/DBcc and PEA/SWAP share their
// opcode space.
func opCMPEORFamily(c *CPU, ir uint16) (uint32, *trapRequest) {
	reg := (ir >> 9) & 0x7
	opmode := (ir >> 6) & 0x7
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	isEOR := ir&0x0100 != 0 && opmode != 7

	if !isEOR {
		switch opmode {
		case 0, 1, 2:
			size := stdSize(opmode)
			e := c.decodeEA(eaMode, eaReg, size)
			src := c.readEA(e, size)
			dst := maskToSize(c.Regs.D[reg], size)
			result, carry, overflow := subWithFlags(dst, src, size)
			c.setArithFlags(result, carry, overflow, false, size)
			return 4 + eaExtraCycles(eaMode, eaReg, size), nil
		case 3:
			e := c.decodeEA(eaMode, eaReg, 2)
			src := signExtend16(uint16(c.readEA(e, 2)))
			result, carry, overflow := subWithFlags(c.Regs.GetA(reg), src, 4)
			c.setArithFlags(result, carry, overflow, false, 4)
			return 6 + eaExtraCycles(eaMode, eaReg, 2), nil
		case 7:
			e := c.decodeEA(eaMode, eaReg, 4)
			src := c.readEA(e, 4)
			result, carry, overflow := subWithFlags(c.Regs.GetA(reg), src, 4)
			c.setArithFlags(result, carry, overflow, false, 4)
			return 6 + eaExtraCycles(eaMode, eaReg, 4), nil
		default:
			return 4, &trapRequest{vector: VectorIllegalInstr}
		}
	}

	if eaMode == eaModeAddrReg { // CMPM (Ay)+,(Ax)+
		size := stdSize(opmode)
		ax := reg
		ay := eaReg
		addrY := c.Regs.GetA(ay)
		valY := c.readMem(addrY, size)
		c.Regs.SetA(ay, addrY+autoIncrementStep(ay, size))
		addrX := c.Regs.GetA(ax)
		valX := c.readMem(addrX, size)
		c.Regs.SetA(ax, addrX+autoIncrementStep(ax, size))
		result, carry, overflow := subWithFlags(valX, valY, size)
		c.setArithFlags(result, carry, overflow, false, size)
		return 12, nil
	}

	size := stdSize(opmode)
	e := c.decodeEA(eaMode, eaReg, size)
	if !e.isMemory() {
		return 4, &trapRequest{vector: VectorIllegalInstr}
	}
	src := maskToSize(c.Regs.D[reg], size)
	dst := c.readEA(e, size)
	result := dst ^ src
	c.writeEA(e, size, result)
	c.setLogicalFlags(result, size)
	return 8 + eaExtraCycles(eaMode, eaReg, size), nil
}

// opANDMulFamily covers AND (opmode 000-010/100-110) and, in the
// opmode 011/111 slots AND itself never uses, MULU.W/MULS.W.
func opANDMulFamily(c *CPU, ir uint16) (uint32, *trapRequest) {
	reg := (ir >> 9) & 0x7
	opmode := (ir >> 6) & 0x7
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7

	switch opmode {
	case 0, 1, 2:
		size := stdSize(opmode)
		e := c.decodeEA(eaMode, eaReg, size)
		result := maskToSize(c.Regs.D[reg], size) & c.readEA(e, size)
		c.Regs.D[reg] = setSized(c.Regs.D[reg], result, size)
		c.setLogicalFlags(result, size)
		return 4 + eaExtraCycles(eaMode, eaReg, size), nil
	case 4, 5, 6:
		size := stdSize(opmode - 4)
		e := c.decodeEA(eaMode, eaReg, size)
		if !e.isMemory() {
			return 4, &trapRequest{vector: VectorIllegalInstr}
		}
		result := maskToSize(c.Regs.D[reg], size) & c.readEA(e, size)
		c.writeEA(e, size, result)
		c.setLogicalFlags(result, size)
		return 8 + eaExtraCycles(eaMode, eaReg, size), nil
	case 3: // MULU.W Dn,<ea>
		e := c.decodeEA(eaMode, eaReg, 2)
		src := uint32(uint16(c.readEA(e, 2)))
		dst := uint32(uint16(c.Regs.D[reg]))
		result := src * dst
		c.Regs.D[reg] = result
		c.setLogicalFlags(result, 4)
		return 70 + eaExtraCycles(eaMode, eaReg, 2), nil
	default: // 7: MULS.W Dn,<ea>
		e := c.decodeEA(eaMode, eaReg, 2)
		src := int32(int16(c.readEA(e, 2)))
		dst := int32(int16(c.Regs.D[reg]))
		result := uint32(src * dst)
		c.Regs.D[reg] = result
		c.setLogicalFlags(result, 4)
		return 70 + eaExtraCycles(eaMode, eaReg, 2), nil
	}
}

// opORDivFamily mirrors opANDMulFamily for OR/DIVU/DIVS.
func opORDivFamily(c *CPU, ir uint16) (uint32, *trapRequest) {
	reg := (ir >> 9) & 0x7
	opmode := (ir >> 6) & 0x7
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7

	switch opmode {
	case 0, 1, 2:
		size := stdSize(opmode)
		e := c.decodeEA(eaMode, eaReg, size)
		result := maskToSize(c.Regs.D[reg], size) | c.readEA(e, size)
		c.Regs.D[reg] = setSized(c.Regs.D[reg], result, size)
		c.setLogicalFlags(result, size)
		return 4 + eaExtraCycles(eaMode, eaReg, size), nil
	case 4, 5, 6:
		size := stdSize(opmode - 4)
		e := c.decodeEA(eaMode, eaReg, size)
		if !e.isMemory() {
			return 4, &trapRequest{vector: VectorIllegalInstr}
		}
		result := maskToSize(c.Regs.D[reg], size) | c.readEA(e, size)
		c.writeEA(e, size, result)
		c.setLogicalFlags(result, size)
		return 8 + eaExtraCycles(eaMode, eaReg, size), nil
	case 3: // DIVU.W <ea>,Dn: 32/16 -> 16-bit quotient (low word) + remainder (high word)
		e := c.decodeEA(eaMode, eaReg, 2)
		divisor := uint32(uint16(c.readEA(e, 2)))
		if divisor == 0 {
			return 4, &trapRequest{vector: VectorZeroDivide}
		}
		dividend := c.Regs.D[reg]
		quot := dividend / divisor
		rem := dividend % divisor
		if quot > 0xFFFF {
			c.Regs.SR |= SROverflow
			return 140, nil
		}
		c.Regs.D[reg] = (rem << 16) | (quot & 0xFFFF)
		c.setLogicalFlags(quot, 2)
		return 140, nil
	default: // 7: DIVS.W <ea>,Dn
		e := c.decodeEA(eaMode, eaReg, 2)
		divisor := int32(int16(c.readEA(e, 2)))
		if divisor == 0 {
			return 4, &trapRequest{vector: VectorZeroDivide}
		}
		dividend := int32(c.Regs.D[reg])
		quot := dividend / divisor
		rem := dividend % divisor
		if quot > 0x7FFF || quot < -0x8000 {
			c.Regs.SR |= SROverflow
			return 158, nil
		}
		c.Regs.D[reg] = (uint32(rem) << 16) | (uint32(quot) & 0xFFFF)
		c.setLogicalFlags(uint32(quot), 2)
		return 158, nil
	}
}

// immALUOp dispatches the shared decode shape of ORI/ANDI/SUBI/ADDI/
// EORI/CMPI: #imm,<ea>, size in bits 7-6, <ea> in bits 5-0. ORI/ANDI/
// EORI additionally special-case <ea> == immediate-to-CCR/SR, which
// their own wrapper functions below detect before falling through
// here.
func (c *CPU) immALUOp(ir uint16, apply func(dst, src uint32, size uint8) (uint32, bool, bool, bool)) (uint32, *trapRequest) {
	size := stdSize((ir >> 6) & 0x3)
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	imm := c.fetchImmediate(size)
	e := c.decodeEA(eaMode, eaReg, size)
	dst := c.readEA(e, size)
	result, carry, overflow, affectsX := apply(dst, imm, size)
	if e.mode != eaModeExtended || e.reg != eaExtImmediate {
		c.writeEA(e, size, result)
	}
	c.setArithFlags(result, carry, overflow, affectsX, size)
	return 8 + eaExtraCycles(eaMode, eaReg, size), nil
}

func opADDI(c *CPU, ir uint16) (uint32, *trapRequest) {
	return c.immALUOp(ir, func(dst, src uint32, size uint8) (uint32, bool, bool, bool) {
		r, carry, overflow := addWithFlags(dst, src, size)
		return r, carry, overflow, true
	})
}

func opSUBI(c *CPU, ir uint16) (uint32, *trapRequest) {
	return c.immALUOp(ir, func(dst, src uint32, size uint8) (uint32, bool, bool, bool) {
		r, carry, overflow := subWithFlags(dst, src, size)
		return r, carry, overflow, true
	})
}

func opCMPI(c *CPU, ir uint16) (uint32, *trapRequest) {
	size := stdSize((ir >> 6) & 0x3)
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	imm := c.fetchImmediate(size)
	e := c.decodeEA(eaMode, eaReg, size)
	dst := c.readEA(e, size)
	result, carry, overflow := subWithFlags(dst, imm, size)
	c.setArithFlags(result, carry, overflow, false, size)
	return 8 + eaExtraCycles(eaMode, eaReg, size), nil
}

// opORIorToCCRSR, opANDIorToCCRSR and opEORIorToCCRSR handle both the
// general #imm,<ea> logical-immediate form and the CCR/SR special
// cases (<ea> decodes to the immediate addressing mode itself: size
// byte selects "to CCR", size word selects "to SR" — SR requires
// supervisor mode).
func opORIorToCCRSR(c *CPU, ir uint16) (uint32, *trapRequest) {
	if special, res, trap := c.ccrSRImmediate(ir, func(a, b uint16) uint16 { return a | b }); special {
		return res, trap
	}
	return c.immALUOp(ir, func(dst, src uint32, size uint8) (uint32, bool, bool, bool) {
		return dst | src, false, false, false
	})
}

func opANDIorToCCRSR(c *CPU, ir uint16) (uint32, *trapRequest) {
	if special, res, trap := c.ccrSRImmediate(ir, func(a, b uint16) uint16 { return a & b }); special {
		return res, trap
	}
	return c.immALUOp(ir, func(dst, src uint32, size uint8) (uint32, bool, bool, bool) {
		return dst & src, false, false, false
	})
}

func opEORIorToCCRSR(c *CPU, ir uint16) (uint32, *trapRequest) {
	if special, res, trap := c.ccrSRImmediate(ir, func(a, b uint16) uint16 { return a ^ b }); special {
		return res, trap
	}
	return c.immALUOp(ir, func(dst, src uint32, size uint8) (uint32, bool, bool, bool) {
		return dst ^ src, false, false, false
	})
}

// ccrSRImmediate detects the ea==#imm special case shared by ORI/
// ANDI/EORI and applies combine to CCR (byte size) or SR (word size,
// privileged); ok reports whether this call consumed the instruction.
func (c *CPU) ccrSRImmediate(ir uint16, combine func(a, b uint16) uint16) (ok bool, cycles uint32, trap *trapRequest) {
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	if eaMode != eaModeExtended || eaReg != eaExtImmediate {
		return false, 0, nil
	}
	sizeBits := (ir >> 6) & 0x3
	switch sizeBits {
	case 0: // byte: to CCR
		imm := uint16(c.fetchImmediate(1))
		c.Regs.SR = (c.Regs.SR &^ SRCCRMask) | (combine(c.Regs.SR, imm) & SRCCRMask)
		return true, 20, nil
	case 1: // word: to SR, privileged
		if !c.Regs.Supervisor() {
			return true, 4, &trapRequest{vector: VectorPrivilegeViol}
		}
		imm := uint16(c.fetchImmediate(2))
		c.Regs.SR = combine(c.Regs.SR, imm)
		c.Bus.SetSupervisor(c.Regs.Supervisor())
		return true, 20, nil
	}
	return false, 0, nil
}

func opADDQ(c *CPU, ir uint16) (uint32, *trapRequest) {
	data := (ir >> 9) & 0x7
	if data == 0 {
		data = 8
	}
	size := stdSize((ir >> 6) & 0x3)
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	e := c.decodeEA(eaMode, eaReg, size)
	if e.mode == eaModeAddrReg {
		c.Regs.SetA(eaReg, c.Regs.GetA(eaReg)+uint32(data))
		return 8, nil
	}
	dst := c.readEA(e, size)
	result, carry, overflow := addWithFlags(dst, uint32(data), size)
	c.writeEA(e, size, result)
	c.setArithFlags(result, carry, overflow, true, size)
	return 4 + eaExtraCycles(eaMode, eaReg, size), nil
}

func opSUBQ(c *CPU, ir uint16) (uint32, *trapRequest) {
	data := (ir >> 9) & 0x7
	if data == 0 {
		data = 8
	}
	size := stdSize((ir >> 6) & 0x3)
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	e := c.decodeEA(eaMode, eaReg, size)
	if e.mode == eaModeAddrReg {
		c.Regs.SetA(eaReg, c.Regs.GetA(eaReg)-uint32(data))
		return 8, nil
	}
	dst := c.readEA(e, size)
	result, carry, overflow := subWithFlags(dst, uint32(data), size)
	c.writeEA(e, size, result)
	c.setArithFlags(result, carry, overflow, true, size)
	return 4 + eaExtraCycles(eaMode, eaReg, size), nil
}
