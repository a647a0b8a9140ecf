package cpu

import "encoding/binary"

// checkpointSize is the fixed encoded length of a CPU component blob:
// 8 D regs, 7 A regs, USP, SSP, PC (all uint32), SR (uint16 padded to
// uint32), VBR, and the 64-bit cycle and instruction counters.
const checkpointSize = 4*8 + 4*7 + 4 + 4 + 4 + 4 + 4 + 8 + 8

// Marshal serializes the register file and the cycle and instruction
// counters for the
// checkpoint engine's "cpu" component (SPEC_FULL.md §4.7). Decode
// dispatch state, the debugger, and the bus are not part of the
// checkpoint: the dispatch table is rebuilt by New, and breakpoints/
// watchpoints are a debugging session concern the spec does not ask
// checkpoints to preserve.
func (c *CPU) Marshal() []byte {
	buf := make([]byte, checkpointSize)
	off := 0
	for _, d := range c.Regs.D {
		binary.BigEndian.PutUint32(buf[off:], d)
		off += 4
	}
	for _, a := range c.Regs.A {
		binary.BigEndian.PutUint32(buf[off:], a)
		off += 4
	}
	binary.BigEndian.PutUint32(buf[off:], c.Regs.USP)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], c.Regs.SSP)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], c.Regs.PC)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], uint32(c.Regs.SR))
	off += 4
	binary.BigEndian.PutUint32(buf[off:], c.VBR)
	off += 4
	binary.BigEndian.PutUint64(buf[off:], c.cycles)
	off += 8
	binary.BigEndian.PutUint64(buf[off:], c.instructions)
	return buf
}

// Unmarshal restores a register file, VBR and the cycle and
// instruction counters previously produced by Marshal, re-applying the restored privilege mode to the
// bus (since SR.S selects the bus's active SoA quartet).
func (c *CPU) Unmarshal(data []byte) error {
	if len(data) != checkpointSize {
		return errShortCheckpoint
	}
	off := 0
	for i := range c.Regs.D {
		c.Regs.D[i] = binary.BigEndian.Uint32(data[off:])
		off += 4
	}
	for i := range c.Regs.A {
		c.Regs.A[i] = binary.BigEndian.Uint32(data[off:])
		off += 4
	}
	c.Regs.USP = binary.BigEndian.Uint32(data[off:])
	off += 4
	c.Regs.SSP = binary.BigEndian.Uint32(data[off:])
	off += 4
	c.Regs.PC = binary.BigEndian.Uint32(data[off:])
	off += 4
	c.Regs.SR = uint16(binary.BigEndian.Uint32(data[off:]))
	off += 4
	c.VBR = binary.BigEndian.Uint32(data[off:])
	off += 4
	c.cycles = binary.BigEndian.Uint64(data[off:])
	off += 8
	c.instructions = binary.BigEndian.Uint64(data[off:])

	c.Bus.SetSupervisor(c.Regs.Supervisor())
	return nil
}

type checkpointError string

func (e checkpointError) Error() string { return string(e) }

const errShortCheckpoint checkpointError = "cpu: checkpoint blob has wrong length"
