package peripherals

import "github.com/gomac68k/core/device"

// ASC models the SE/30's Apple Sound Chip: four independent wavetable
// DMA channels plus a FIFO mode, mixed to a single output stream
// (spec.md §4.6). As with Sound (the Plus's simpler PWM engine), the
// mixing/output backend is out of scope (spec.md §1); this device
// owns the register bank and channel state the core is responsible
// for checkpointing and stepping.
type ASC struct {
	mode     uint8 // 0 = off, 1 = FIFO (sampled), 2 = wavetable
	volume   uint8
	channels [4]ascChannel
	fifo     [2][]byte // two half-buffers for FIFO mode
	irq      device.IRQCallback
	source   device.IRQSource
}

type ascChannel struct {
	wavetable [256]byte
	phase     uint8
	increment uint8
	enabled   bool
}

// NewASC creates a disabled ASC.
func NewASC(irq device.IRQCallback, source device.IRQSource) *ASC {
	return &ASC{irq: irq, source: source}
}

// SetMode selects FIFO vs. wavetable operation (register-driven by the
// Sound Manager at boot).
func (a *ASC) SetMode(mode uint8) { a.mode = mode }

// SetVolume sets the main output attenuation.
func (a *ASC) SetVolume(v uint8) { a.volume = v }

// LoadWavetable installs a 256-byte wavetable for channel ch (0-3).
func (a *ASC) LoadWavetable(ch int, table []byte) {
	if ch < 0 || ch >= len(a.channels) {
		return
	}
	copy(a.channels[ch].wavetable[:], table)
}

// SetChannelIncrement sets channel ch's phase accumulator step, and
// SetChannelEnabled starts/stops it.
func (a *ASC) SetChannelIncrement(ch int, inc uint8) {
	if ch >= 0 && ch < len(a.channels) {
		a.channels[ch].increment = inc
	}
}
func (a *ASC) SetChannelEnabled(ch int, on bool) {
	if ch >= 0 && ch < len(a.channels) {
		a.channels[ch].enabled = on
	}
}

// PushFIFO appends a buffer's worth of sampled audio to half-buffer
// half (0 or 1) and raises the IRQ on every push; the half-buffer's
// fill level is not tracked.
func (a *ASC) PushFIFO(half int, data []byte) {
	if half < 0 || half > 1 {
		return
	}
	a.fifo[half] = append(a.fifo[half], data...)
	if a.irq != nil {
		a.irq(a.source, true)
	}
}

// Mix renders one tick's worth of output samples for the enabled
// wavetable channels (FIFO mode output is whatever was pushed via
// PushFIFO, consumed directly by a host audio backend).
func (a *ASC) Mix(samples int) []byte {
	out := make([]byte, samples)
	if a.mode != 2 {
		return out
	}
	for i := 0; i < samples; i++ {
		var sum int
		for ch := range a.channels {
			c := &a.channels[ch]
			if !c.enabled {
				continue
			}
			sum += int(c.wavetable[c.phase])
			c.phase += c.increment
		}
		v := sum / len(a.channels)
		out[i] = uint8(v) >> (7 - a.volume&0x7)
	}
	return out
}
