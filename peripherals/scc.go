package peripherals

import "github.com/gomac68k/core/device"

// SCC models a Zilog 8530 dual-channel serial controller, used on the
// Macintosh for AppleTalk (LocalTalk) framing on channel A and mouse
// quadrature decoding on channel B (spec.md §4.6). Registers are
// accessed through an indirect address/data pair per the real 8530
// programming model: a write to the control port selects a register
// (RR/WR pointer), and the next access to that port reads/writes the
// selected register; the data port always reads/writes the transmit/
// receive data register directly.
//
// Only the register plumbing and per-channel IRQ aggregation are
// modeled; actual AppleTalk framing and mouse decode logic are a host
// collaborator's concern per spec.md §1 ("peripherals ... are
// external collaborators" beyond what the core's contract requires) —
// this device exposes FIFOs a collaborator can drive.
type SCC struct {
	channels [2]sccChannel

	irq    device.IRQCallback
	source device.IRQSource
}

type sccChannel struct {
	wRegPointer uint8
	wRegs       [16]uint8
	rRegs       [16]uint8

	rxFIFO []uint8
	txByte uint8
	txFull bool
}

// NewSCC creates an SCC wired to irq/source for its combined IRQ line
// (the 8530 ORs both channels' interrupt sources onto one pin in the
// Macintosh's wiring).
func NewSCC(irq device.IRQCallback, source device.IRQSource) *SCC {
	return &SCC{irq: irq, source: source}
}

// channelAt maps a byte offset to one of the two channels and whether
// it targets the control or data port, matching the classic Mac SCC
// address decode: bit 1 selects A/B, bit 0 selects control/data.
func (s *SCC) channelAt(offset uint32) (ch int, control bool) {
	ch = 0
	if offset&2 != 0 {
		ch = 1
	}
	control = offset&1 == 0
	return
}

// PushRX appends a received byte to channel ch's receive FIFO and
// raises RR0's receive-available bit, asserting IRQ if that channel's
// WR1 enables receive interrupts.
func (s *SCC) PushRX(ch int, b uint8) {
	c := &s.channels[ch]
	c.rxFIFO = append(c.rxFIFO, b)
	c.rRegs[0] |= 0x01
	s.updateIRQ()
}

func (s *SCC) updateIRQ() {
	active := false
	for i := range s.channels {
		c := &s.channels[i]
		if c.rRegs[0]&0x01 != 0 && c.wRegs[1]&0x18 != 0 {
			active = true
		}
	}
	if s.irq != nil {
		s.irq(s.source, active)
	}
}

// ReadU8 implements device.Device.
func (s *SCC) ReadU8(offset uint32) uint8 {
	ch, control := s.channelAt(offset)
	c := &s.channels[ch]
	if control {
		reg := c.wRegPointer
		c.wRegPointer = 0 // reading RR0 implicitly resets the pointer, per the 8530
		return c.rRegs[reg]
	}
	if len(c.rxFIFO) == 0 {
		return 0
	}
	b := c.rxFIFO[0]
	c.rxFIFO = c.rxFIFO[1:]
	if len(c.rxFIFO) == 0 {
		c.rRegs[0] &^= 0x01
		s.updateIRQ()
	}
	return b
}

// WriteU8 implements device.Device.
func (s *SCC) WriteU8(offset uint32, value uint8) {
	ch, control := s.channelAt(offset)
	c := &s.channels[ch]
	if control {
		if c.wRegPointer == 0 {
			c.wRegPointer = value & 0x0F
			return
		}
		c.wRegs[c.wRegPointer] = value
		c.wRegPointer = 0
		s.updateIRQ()
		return
	}
	c.txByte = value
	c.txFull = true
}

// TakeTX returns and clears channel ch's pending transmit byte, for a
// host collaborator driving the wire protocol; ok is false if nothing
// is pending.
func (s *SCC) TakeTX(ch int) (b uint8, ok bool) {
	c := &s.channels[ch]
	if !c.txFull {
		return 0, false
	}
	c.txFull = false
	return c.txByte, true
}

func (s *SCC) ReadU16(offset uint32) uint16 {
	return uint16(s.ReadU8(offset))<<8 | uint16(s.ReadU8(offset+1))
}
func (s *SCC) ReadU32(offset uint32) uint32 {
	return uint32(s.ReadU16(offset))<<16 | uint32(s.ReadU16(offset+2))
}
func (s *SCC) WriteU16(offset uint32, value uint16) {
	s.WriteU8(offset, uint8(value>>8))
	s.WriteU8(offset+1, uint8(value))
}
func (s *SCC) WriteU32(offset uint32, value uint32) {
	s.WriteU16(offset, uint16(value>>16))
	s.WriteU16(offset+2, uint16(value))
}
