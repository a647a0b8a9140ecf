package peripherals

import "github.com/gomac68k/core/device"

// ADB models the SE/30's Apple Desktop Bus host controller: a
// keyboard/mouse polling protocol carried over the VIA's shift
// register in serial mode, reduced here to a command/response queue a
// host collaborator (an emulated keyboard/mouse, out of this core's
// scope per spec.md §1) pushes events into (spec.md §4.6 "ADB/ASC/SWIM
// — SE/30 equivalents").
type ADB struct {
	srq      bool // service request pending
	devices  map[uint8][]byte
	lastPoll uint8

	irq    device.IRQCallback
	source device.IRQSource
}

// NewADB creates an empty ADB controller.
func NewADB(irq device.IRQCallback, source device.IRQSource) *ADB {
	return &ADB{devices: make(map[uint8][]byte), irq: irq, source: source}
}

// QueueEvent appends raw register data pending for addr (an ADB
// device address 0-15), asserting SRQ so the VIA's shift-register
// interrupt fires and the ROM polls the bus.
func (a *ADB) QueueEvent(addr uint8, data []byte) {
	a.devices[addr] = append(a.devices[addr], data...)
	a.srq = true
	if a.irq != nil {
		a.irq(a.source, true)
	}
}

// Talk services an ADB Talk command for addr/register, returning the
// queued bytes (and clearing SRQ if this drains the last pending
// device).
func (a *ADB) Talk(addr uint8, register uint8) []byte {
	data := a.devices[addr]
	delete(a.devices, addr)
	if len(a.devices) == 0 {
		a.srq = false
		if a.irq != nil {
			a.irq(a.source, false)
		}
	}
	return data
}

// SRQPending reports whether any device has data queued.
func (a *ADB) SRQPending() bool { return a.srq }
