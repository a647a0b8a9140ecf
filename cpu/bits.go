package cpu

// Single-bit test/change instructions, the register-form shift/rotate
// group, and Scc/DBcc. Grounded the same way as alu.go/move.go: the
// teacher's opcode-group dispatch, generalised through the EA model
// in ea.go instead of special-casing register vs. memory destinations
// inline per instruction.

// bitOp reads a bit's current value into Z, then applies change to
// produce the stored result (BTST's change is the identity).
func (c *CPU) bitOp(eaMode, eaReg, bitReg uint16, bitNumImm uint16, dynamic bool, change func(v uint32, mask uint32) uint32) (uint32, *trapRequest) {
	size := uint8(4)
	if eaMode != eaModeDataReg {
		size = 1
	}
	var bitNum uint32
	if dynamic {
		bitNum = c.Regs.D[bitReg]
	} else {
		bitNum = uint32(bitNumImm)
	}
	bitNum %= uint32(widthBits(size))
	mask := uint32(1) << bitNum

	e := c.decodeEA(eaMode, eaReg, size)
	v := c.readEA(e, size)
	if v&mask != 0 {
		c.Regs.SR &^= SRZero
	} else {
		c.Regs.SR |= SRZero
	}
	result := change(v, mask)
	if result != v {
		c.writeEA(e, size, result)
	}
	cycles := uint32(4)
	if e.isMemory() {
		cycles = 8
	}
	return cycles + eaExtraCycles(eaMode, eaReg, size), nil
}

func opBTSTDynamic(c *CPU, ir uint16) (uint32, *trapRequest) {
	bitReg := (ir >> 9) & 0x7
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	return c.bitOp(eaMode, eaReg, bitReg, 0, true, func(v, mask uint32) uint32 { return v })
}

func opBCHGDynamic(c *CPU, ir uint16) (uint32, *trapRequest) {
	bitReg := (ir >> 9) & 0x7
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	return c.bitOp(eaMode, eaReg, bitReg, 0, true, func(v, mask uint32) uint32 { return v ^ mask })
}

func opBCLRDynamic(c *CPU, ir uint16) (uint32, *trapRequest) {
	bitReg := (ir >> 9) & 0x7
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	return c.bitOp(eaMode, eaReg, bitReg, 0, true, func(v, mask uint32) uint32 { return v &^ mask })
}

func opBSETDynamic(c *CPU, ir uint16) (uint32, *trapRequest) {
	bitReg := (ir >> 9) & 0x7
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	return c.bitOp(eaMode, eaReg, bitReg, 0, true, func(v, mask uint32) uint32 { return v | mask })
}

func opBTSTStatic(c *CPU, ir uint16) (uint32, *trapRequest) {
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	bitNum := c.fetchExtWord() & 0xFF
	return c.bitOp(eaMode, eaReg, 0, bitNum, false, func(v, mask uint32) uint32 { return v })
}

func opBCHGStatic(c *CPU, ir uint16) (uint32, *trapRequest) {
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	bitNum := c.fetchExtWord() & 0xFF
	return c.bitOp(eaMode, eaReg, 0, bitNum, false, func(v, mask uint32) uint32 { return v ^ mask })
}

func opBCLRStatic(c *CPU, ir uint16) (uint32, *trapRequest) {
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	bitNum := c.fetchExtWord() & 0xFF
	return c.bitOp(eaMode, eaReg, 0, bitNum, false, func(v, mask uint32) uint32 { return v &^ mask })
}

func opBSETStatic(c *CPU, ir uint16) (uint32, *trapRequest) {
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7
	bitNum := c.fetchExtWord() & 0xFF
	return c.bitOp(eaMode, eaReg, 0, bitNum, false, func(v, mask uint32) uint32 { return v | mask })
}

// opShiftRotate implements the register-destination shift/rotate
// group: ASL/ASR, LSL/LSR, ROXL/ROXR, ROL/ROR, both the immediate
// count (1-8) and register count (mod 64) forms. The memory-operand,
// single-bit-shift form (size field == 11) isn't part of this engine
// yet and falls through to illegal instruction.
func opShiftRotate(c *CPU, ir uint16) (uint32, *trapRequest) {
	sizeBits := (ir >> 6) & 0x3
	if sizeBits == 3 {
		return 4, &trapRequest{vector: VectorIllegalInstr}
	}
	size := stdSize(sizeBits)
	reg := ir & 0x7
	kind := (ir >> 3) & 0x3 // 00=ASx 01=LSx 10=ROXx 11=ROx
	dir := (ir >> 8) & 0x1  // 0=right 1=left
	countField := (ir >> 9) & 0x7
	useReg := ir&0x0020 != 0

	var count uint32
	if useReg {
		count = c.Regs.D[countField] % 64
	} else {
		count = uint32(countField)
		if count == 0 {
			count = 8
		}
	}

	v := maskToSize(c.Regs.D[reg], size)
	bits := uint32(widthBits(size))
	var result uint32
	var lastOut, overflow bool

	x := c.Regs.SR&SRExtend != 0

	for i := uint32(0); i < count; i++ {
		switch kind {
		case 0: // arithmetic
			signBit := uint32(1) << (bits - 1)
			if dir == 1 {
				prevSign := v&signBit != 0
				lastOut = v&signBit != 0
				v = maskToSize(v<<1, size)
				if v&signBit != 0 != prevSign {
					overflow = true
				}
			} else {
				signVal := v & signBit
				lastOut = v&1 != 0
				v = (v >> 1) | signVal
			}
		case 1: // logical
			if dir == 1 {
				lastOut = v&(uint32(1)<<(bits-1)) != 0
				v = maskToSize(v<<1, size)
			} else {
				lastOut = v&1 != 0
				v >>= 1
			}
		case 2: // rotate through extend
			if dir == 1 {
				newX := v&(uint32(1)<<(bits-1)) != 0
				v = maskToSize((v<<1)|boolBit(x), size)
				x = newX
				lastOut = newX
			} else {
				newX := v&1 != 0
				v = (v >> 1) | (boolBit(x) << (bits - 1))
				x = newX
				lastOut = newX
			}
		default: // rotate
			if dir == 1 {
				carryOut := v&(uint32(1)<<(bits-1)) != 0
				v = maskToSize((v<<1)|boolBit(carryOut), size)
				lastOut = carryOut
			} else {
				carryOut := v&1 != 0
				v = (v >> 1) | (boolBit(carryOut) << (bits - 1))
				lastOut = carryOut
			}
		}
	}
	result = v

	c.Regs.D[reg] = setSized(c.Regs.D[reg], result, size)
	c.Regs.clearArithmeticFlags()
	c.Regs.setZeroNegative(result, size)
	if count > 0 {
		if lastOut {
			c.Regs.SR |= SRCarry
		}
		if kind != 3 { // plain rotate (ROL/ROR) leaves X untouched
			if lastOut {
				c.Regs.SR |= SRExtend
			} else {
				c.Regs.SR &^= SRExtend
			}
		}
	}
	if kind == 2 {
		if x {
			c.Regs.SR |= SRExtend
		} else {
			c.Regs.SR &^= SRExtend
		}
	}
	if kind == 0 && overflow {
		c.Regs.SR |= SROverflow
	}
	return 6 + 2*count, nil
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// opSccOrDBcc: Scc sets <ea> to all-ones/all-zeros by condition; DBcc
// decrements Dn and branches while the condition is false and the
// counter hasn't reached -1. They share a top nibble, distinguished
// by <ea> decoding to address-register-direct (mode 1), which is not
// a legal Scc destination.
func opSccOrDBcc(c *CPU, ir uint16) (uint32, *trapRequest) {
	cond := (ir >> 8) & 0xF
	eaMode := (ir >> 3) & 0x7
	eaReg := ir & 0x7

	if eaMode == eaModeAddrReg {
		disp := signExtend16(c.fetchExtWord())
		base := c.Regs.PC
		if c.testCondition(uint8(cond)) {
			return 12, nil
		}
		dn := eaReg
		v := int16(c.Regs.D[dn]) - 1
		c.Regs.D[dn] = setSized(c.Regs.D[dn], uint32(uint16(v)), 2)
		if v != -1 {
			c.Regs.PC = base - 2 + disp
			return 10, nil
		}
		return 14, nil
	}

	e := c.decodeEA(eaMode, eaReg, 1)
	var v uint32
	if c.testCondition(uint8(cond)) {
		v = 0xFF
	}
	c.writeEA(e, 1, v)
	return 4 + eaExtraCycles(eaMode, eaReg, 1), nil
}
