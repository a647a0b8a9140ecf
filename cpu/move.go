package cpu

// MOVE/MOVEA and the single-operand data-movement instructions built
// on top of the EA model: LEA/PEA, LINK/UNLK, EXG/SWAP/EXT, MOVEM,
// MOVE to/from SR/CCR, and the single-operand arithmetic CLR/NEG/
// NEGX/NOT/TST/CHK group. Grounded the same way as alu.go: the
// teacher's cpu_m68k.go switch on the top nibble, reshaped into one
// opcode-table entry per instruction family instead of a single large
// switch.

func moveSize(ir uint16) uint8 {
	switch ir & 0xF000 {
	case 0x1000:
		return 1
	case 0x3000:
		return 2
	default:
		return 4
	}
}

func opMOVE(c *CPU, ir uint16) (uint32, *trapRequest) {
	size := moveSize(ir)
	destReg := (ir >> 9) & 0x7
	destMode := (ir >> 6) & 0x7
	srcMode := (ir >> 3) & 0x7
	srcReg := ir & 0x7

	srcEA := c.decodeEA(srcMode, srcReg, size)
	v := c.readEA(srcEA, size)

	if destMode == eaModeAddrReg {
		full := v
		if size == 2 {
			full = signExtend16(uint16(v))
		}
		c.Regs.SetA(destReg, full)
		return 4 + eaExtraCycles(srcMode, srcReg, size), nil
	}

	destEA := c.decodeEA(destMode, destReg, size)
	c.writeEA(destEA, size, v)
	c.setLogicalFlags(v, size)
	return 4 + eaExtraCycles(srcMode, srcReg, size) + eaExtraCycles(destMode, destReg, size), nil
}

func opLEA(c *CPU, ir uint16) (uint32, *trapRequest) {
	an := (ir >> 9) & 0x7
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	e := c.decodeEA(eaMode, eaReg, 4)
	c.Regs.SetA(an, e.eaAddress())
	return 4 + eaExtraCycles(eaMode, eaReg, 4), nil
}

func opPEA(c *CPU, ir uint16) (uint32, *trapRequest) {
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	e := c.decodeEA(eaMode, eaReg, 4)
	c.push32(e.eaAddress())
	return 12 + eaExtraCycles(eaMode, eaReg, 4), nil
}

func opJMP(c *CPU, ir uint16) (uint32, *trapRequest) {
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	e := c.decodeEA(eaMode, eaReg, 4)
	c.Regs.PC = e.eaAddress()
	return 8, nil
}

func opJSR(c *CPU, ir uint16) (uint32, *trapRequest) {
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	e := c.decodeEA(eaMode, eaReg, 4)
	c.push32(c.Regs.PC)
	c.Regs.PC = e.eaAddress()
	return 16, nil
}

func opLINK(c *CPU, ir uint16) (uint32, *trapRequest) {
	an := ir & 0x7
	disp := signExtend16(c.fetchExtWord())
	c.push32(c.Regs.GetA(an))
	c.Regs.SetA(an, c.Regs.A7())
	c.Regs.SetA7(c.Regs.A7() + disp)
	return 16, nil
}

func opUNLK(c *CPU, ir uint16) (uint32, *trapRequest) {
	an := ir & 0x7
	c.Regs.SetA7(c.Regs.GetA(an))
	c.Regs.SetA(an, c.pop32())
	return 12, nil
}

func opEXGData(c *CPU, ir uint16) (uint32, *trapRequest) {
	rx := (ir >> 9) & 0x7
	ry := ir & 0x7
	c.Regs.D[rx], c.Regs.D[ry] = c.Regs.D[ry], c.Regs.D[rx]
	return 6, nil
}

func opEXGAddr(c *CPU, ir uint16) (uint32, *trapRequest) {
	rx := (ir >> 9) & 0x7
	ry := ir & 0x7
	a, b := c.Regs.GetA(rx), c.Regs.GetA(ry)
	c.Regs.SetA(rx, b)
	c.Regs.SetA(ry, a)
	return 6, nil
}

func opEXGDataAddr(c *CPU, ir uint16) (uint32, *trapRequest) {
	rx := (ir >> 9) & 0x7
	ry := ir & 0x7
	a := c.Regs.D[rx]
	b := c.Regs.GetA(ry)
	c.Regs.D[rx] = b
	c.Regs.SetA(ry, a)
	return 6, nil
}

func opSWAP(c *CPU, ir uint16) (uint32, *trapRequest) {
	reg := ir & 0x7
	v := c.Regs.D[reg]
	v = (v << 16) | (v >> 16)
	c.Regs.D[reg] = v
	c.setLogicalFlags(v, 4)
	return 4, nil
}

func opEXTWord(c *CPU, ir uint16) (uint32, *trapRequest) {
	reg := ir & 0x7
	v := uint32(uint16(int16(int8(c.Regs.D[reg]))))
	c.Regs.D[reg] = setSized(c.Regs.D[reg], v, 2)
	c.setLogicalFlags(v, 2)
	return 4, nil
}

func opEXTLong(c *CPU, ir uint16) (uint32, *trapRequest) {
	reg := ir & 0x7
	v := signExtend16(uint16(c.Regs.D[reg]))
	c.Regs.D[reg] = v
	c.setLogicalFlags(v, 4)
	return 4, nil
}

// opMOVEMOut and opMOVEMIn implement register-list transfers; the
// register-list word's bit order is reversed for predecrement mode
// (spec.md's prefetch note: the EA side effects still happen exactly
// once per register, lowest address last for -(An) so the final An
// value matches what a real 68000 leaves behind).
func opMOVEMOut(c *CPU, ir uint16) (uint32, *trapRequest) {
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	if eaMode == eaModeDataReg || eaMode == eaModeAddrReg {
		return 4, &trapRequest{vector: VectorIllegalInstr}
	}
	size := uint8(2)
	if ir&0x0040 != 0 {
		size = 4
	}
	list := c.fetchExtWord()

	if eaMode == eaModePreDec {
		addr := c.Regs.GetA(eaReg)
		for i := 0; i < 16; i++ {
			if list&(1<<uint(i)) == 0 {
				continue
			}
			regNum := 15 - i
			var v uint32
			if regNum < 8 {
				v = c.Regs.D[regNum]
			} else {
				v = c.Regs.GetA(uint16(regNum - 8))
			}
			addr -= uint32(size)
			c.writeMem(addr, size, v)
		}
		c.Regs.SetA(eaReg, addr)
		return 8 + uint32(popcount16(list))*uint32(size)/2*4, nil
	}

	e := c.decodeEA(eaMode, eaReg, size)
	addr := e.eaAddress()
	for i := 0; i < 16; i++ {
		if list&(1<<uint(i)) == 0 {
			continue
		}
		var v uint32
		if i < 8 {
			v = c.Regs.D[i]
		} else {
			v = c.Regs.GetA(uint16(i - 8))
		}
		c.writeMem(addr, size, v)
		addr += uint32(size)
	}
	return 8 + uint32(popcount16(list))*4, nil
}

func opMOVEMIn(c *CPU, ir uint16) (uint32, *trapRequest) {
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	if eaMode == eaModeDataReg || eaMode == eaModeAddrReg {
		return 4, &trapRequest{vector: VectorIllegalInstr}
	}
	size := uint8(2)
	if ir&0x0040 != 0 {
		size = 4
	}
	list := c.fetchExtWord()

	var addr uint32
	if eaMode == eaModePostInc {
		addr = c.Regs.GetA(eaReg)
	} else {
		e := c.decodeEA(eaMode, eaReg, size)
		addr = e.eaAddress()
	}

	for i := 0; i < 16; i++ {
		if list&(1<<uint(i)) == 0 {
			continue
		}
		v := c.readMem(addr, size)
		if size == 2 {
			v = signExtend16(uint16(v))
		}
		if i < 8 {
			c.Regs.D[i] = v
		} else {
			c.Regs.SetA(uint16(i-8), v)
		}
		addr += uint32(size)
	}
	if eaMode == eaModePostInc {
		c.Regs.SetA(eaReg, addr)
	}
	return 12 + uint32(popcount16(list))*4, nil
}

func popcount16(v uint16) int {
	n := 0
	for v != 0 {
		n += int(v & 1)
		v >>= 1
	}
	return n
}

func opMOVEfromSR(c *CPU, ir uint16) (uint32, *trapRequest) {
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	e := c.decodeEA(eaMode, eaReg, 2)
	c.writeEA(e, 2, uint32(c.Regs.SR))
	return 6 + eaExtraCycles(eaMode, eaReg, 2), nil
}

func opMOVEtoCCR(c *CPU, ir uint16) (uint32, *trapRequest) {
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	e := c.decodeEA(eaMode, eaReg, 2)
	v := c.readEA(e, 2)
	c.Regs.SR = (c.Regs.SR &^ SRCCRMask) | (uint16(v) & SRCCRMask)
	return 12 + eaExtraCycles(eaMode, eaReg, 2), nil
}

func opMOVEtoSR(c *CPU, ir uint16) (uint32, *trapRequest) {
	if !c.Regs.Supervisor() {
		return 4, &trapRequest{vector: VectorPrivilegeViol}
	}
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	e := c.decodeEA(eaMode, eaReg, 2)
	v := c.readEA(e, 2)
	c.Regs.SR = uint16(v)
	c.Bus.SetSupervisor(c.Regs.Supervisor())
	return 12 + eaExtraCycles(eaMode, eaReg, 2), nil
}

func opCLR(c *CPU, ir uint16) (uint32, *trapRequest) {
	size := stdSize((ir >> 6) & 0x3)
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	e := c.decodeEA(eaMode, eaReg, size)
	c.writeEA(e, size, 0)
	c.setLogicalFlags(0, size)
	return 4 + eaExtraCycles(eaMode, eaReg, size), nil
}

func opNEG(c *CPU, ir uint16) (uint32, *trapRequest) {
	size := stdSize((ir >> 6) & 0x3)
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	e := c.decodeEA(eaMode, eaReg, size)
	v := c.readEA(e, size)
	result, carry, overflow := subWithFlags(0, v, size)
	c.writeEA(e, size, result)
	c.setArithFlags(result, carry, overflow, true, size)
	return 4 + eaExtraCycles(eaMode, eaReg, size), nil
}

func opNEGX(c *CPU, ir uint16) (uint32, *trapRequest) {
	size := stdSize((ir >> 6) & 0x3)
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	e := c.decodeEA(eaMode, eaReg, size)
	v := c.readEA(e, size)
	x := uint32(0)
	if c.Regs.SR&SRExtend != 0 {
		x = 1
	}
	result, carry, overflow := subWithFlags(0, v+x, size)
	c.writeEA(e, size, result)
	c.setArithFlags(result, carry, overflow, true, size)
	if result != 0 {
		c.Regs.SR &^= SRZero
	}
	return 4 + eaExtraCycles(eaMode, eaReg, size), nil
}

func opNOT(c *CPU, ir uint16) (uint32, *trapRequest) {
	size := stdSize((ir >> 6) & 0x3)
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	e := c.decodeEA(eaMode, eaReg, size)
	v := c.readEA(e, size)
	result := maskToSize(^v, size)
	c.writeEA(e, size, result)
	c.setLogicalFlags(result, size)
	return 4 + eaExtraCycles(eaMode, eaReg, size), nil
}

func opTST(c *CPU, ir uint16) (uint32, *trapRequest) {
	size := stdSize((ir >> 6) & 0x3)
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	e := c.decodeEA(eaMode, eaReg, size)
	v := c.readEA(e, size)
	c.setLogicalFlags(v, size)
	return 4 + eaExtraCycles(eaMode, eaReg, size), nil
}

// opCHK traps if Dn, interpreted as a signed word, is negative or
// exceeds the bound operand. Flags other than the trap outcome are
// left unspecified, matching real 68000 behaviour (documented as an
// open question resolution in DESIGN.md).
func opCHK(c *CPU, ir uint16) (uint32, *trapRequest) {
	dn := (ir >> 9) & 0x7
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	e := c.decodeEA(eaMode, eaReg, 2)
	bound := int16(c.readEA(e, 2))
	val := int16(c.Regs.D[dn])
	if val < 0 {
		c.Regs.SR |= SRNegative
		return 40, &trapRequest{vector: VectorCHK}
	}
	if val > bound {
		c.Regs.SR &^= SRNegative
		return 40, &trapRequest{vector: VectorCHK}
	}
	return 10 + eaExtraCycles(eaMode, eaReg, 2), nil
}
