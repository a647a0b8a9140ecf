package peripherals

import "github.com/gomac68k/core/event"

// RTC models the Macintosh real-time clock: a 32-bit seconds counter
// ticking once a second off a recurring scheduler event, each tick
// also driving the VIA1 CA2 1Hz line through onTick (spec.md §4.6),
// and a 20-byte serial PRAM accessed through the VIA shift
// register protocol. The serial protocol itself (the command byte
// framing used by the ROM's _Time/_SetTime traps) is reconstructed
// here as a simple command/response register pair rather than a
// bit-accurate shift-register replay, since no example in the pack
// emulates this chip and spec.md only names its two responsibilities
// (tick source, PRAM store).
type RTC struct {
	seconds uint32
	pram    [20]byte

	sched    *event.Scheduler
	tickType event.TypeID
	onTick   func() // called each second, wired to VIA1.SetCA2 by the machine profile
}

// NewRTC creates an RTC with its seconds counter starting at
// startSeconds (the machine profile seeds this from host wall time or
// a checkpoint) and a recurring one-second scheduler event.
func NewRTC(sched *event.Scheduler, startSeconds uint32, onTick func()) *RTC {
	r := &RTC{seconds: startSeconds, sched: sched, onTick: onTick}
	r.tickType = sched.NewEventType("rtc.tick")
	sched.BindCallback(r.tickType, r.fireTick)
	return r
}

// Start arms the recurring 1Hz event. cyclesPerSecond is the CPU's
// clock rate, since the scheduler's deadlines are expressed in
// cycles, not wall time.
func (r *RTC) Start(cyclesPerSecond uint32) {
	r.sched.ScheduleRecurring(cyclesPerSecond, r.tickType, 0, 0)
}

func (r *RTC) fireTick(s *event.Scheduler, source int, data uint32) {
	r.seconds++
	if r.onTick != nil {
		r.onTick()
	}
}

// Seconds returns the current clock value.
func (r *RTC) Seconds() uint32 { return r.seconds }

// SetSeconds overwrites the clock (the ROM's _SetTime trap, or a
// checkpoint restore).
func (r *RTC) SetSeconds(v uint32) { r.seconds = v }

// PRAM returns the 20-byte parameter RAM for direct read/modify by the
// command/response register interface below, and for checkpointing.
func (r *RTC) PRAM() []byte { return r.pram[:] }

// ReadByte and WriteByte implement the one-byte-at-a-time PRAM access
// the real chip's serial protocol provides, addressed 0-19.
func (r *RTC) ReadByte(index uint8) uint8 {
	if int(index) >= len(r.pram) {
		return 0
	}
	return r.pram[index]
}

func (r *RTC) WriteByte(index, value uint8) {
	if int(index) >= len(r.pram) {
		return
	}
	r.pram[index] = value
}
