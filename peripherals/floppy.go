package peripherals

import (
	"github.com/gomac68k/core/device"
	"github.com/gomac68k/core/storage"
)

// Floppy models the IWM (Integrated Woz Machine, Plus) or SWIM
// (Sander Woz Integrated Machine, SE/30) variable-speed floppy
// controller: GCR sector framing over a disk image, driven by a
// handful of status/control lines the VIA's port A exposes (spec.md
// §4.6 "IWM/SWIM variable-speed drive model, GCR sector framing" and
// §4.6 "floppy SEL driven by VIA PA5 and read by the IWM/SWIM").
//
// GCR encode/decode and the exact variable-speed zone table are a
// file-format/codec concern spec.md §1 declares external to the core;
// this device exposes the line-level state machine (motor, step,
// track position, SEL/HEAD select, write-protect) the core owns, and
// an Image pluggable by the machine profile for the actual sector
// bytes.
type Floppy struct {
	image *storage.Image

	motorOn    bool
	track      int
	maxTrack   int
	side       int // head select, driven by SEL when Q6/Q7 (IWM) or equivalent
	sel        bool
	writeReq   bool
	stepInward bool

	swim bool // true selects the SE/30's double-speed SWIM timing

	irq    device.IRQCallback
	source device.IRQSource
}

// NewFloppy creates a Floppy drive. swim selects SE/30 SWIM timing
// (which runs at up to 2x IWM's data rate); maxTrack is the drive's
// physical travel limit (79 for an 800K/1.4M 3.5" mechanism).
func NewFloppy(swim bool, maxTrack int, irq device.IRQCallback, source device.IRQSource) *Floppy {
	return &Floppy{swim: swim, maxTrack: maxTrack, irq: irq, source: source}
}

// Insert attaches img as the currently loaded disk; Eject detaches it.
func (f *Floppy) Insert(img *storage.Image) { f.image = img; f.track = 0 }
func (f *Floppy) Eject()                    { f.image = nil }
func (f *Floppy) Inserted() bool            { return f.image != nil }

// SetMotor turns the spindle motor on or off (driven by the VIA's
// motor-on control line).
func (f *Floppy) SetMotor(on bool) { f.motorOn = on }

// SetSelSignal receives the SEL line's current level from the VIA
// (PA5 on the Plus), used to multiplex which of two step/track-zero
// signals is addressed, matching the real IWM's PH0-PH3 phase
// multiplexing as reduced to a single logical SEL bit here (spec.md
// §5's worked example names this exact wiring).
func (f *Floppy) SetSelSignal(level bool) { f.sel = level }

// Step moves the head one track in the current direction (SetStepDirection).
func (f *Floppy) Step() {
	if f.stepInward {
		if f.track < f.maxTrack {
			f.track++
		}
		return
	}
	if f.track > 0 {
		f.track--
	}
}

// SetStepDirection selects inward (toward higher track numbers) or
// outward stepping for the next Step call.
func (f *Floppy) SetStepDirection(inward bool) { f.stepInward = inward }

// Track reports the current head position.
func (f *Floppy) Track() int { return f.track }

// AtTrackZero reports whether the head is at the outermost track,
// which the drive reports back on a status line the VIA polls.
func (f *Floppy) AtTrackZero() bool { return f.track == 0 }

// WriteProtected reports whether the inserted image rejects writes.
func (f *Floppy) WriteProtected() bool { return f.image == nil || !f.image.Writable }

// ReadSector reads the given track/side/sector into out via the
// attached image's block storage, treating each (track, side, sector)
// tuple as one LBA in a fixed interleave the machine profile's geometry
// table computes; ok is false with no image attached.
func (f *Floppy) ReadSector(lba uint64, out []byte) bool {
	if f.image == nil {
		return false
	}
	copy(out, f.image.Storage.ReadBlock(lba))
	return true
}

// WriteSector writes data to lba if the image is writable.
func (f *Floppy) WriteSector(lba uint64, data []byte) bool {
	if f.image == nil || !f.image.Writable {
		return false
	}
	return f.image.Storage.WriteBlock(lba, data) == nil
}

// IWM is the memory-mapped controller front-ending up to two Floppy
// drives: an 8-register bank (Q6/Q7 addressed like the real IWM's
// even/odd decode, reduced to a flat register index here since no
// pack example emulates this chip's precise strobe sequencing) plus
// a drive-select bit choosing which attached Floppy the rest of the
// registers address.
type IWM struct {
	drives   [2]*Floppy
	selected int
	mode     uint8
	status   uint8
}

// NewIWM creates a controller front-ending drive 0 and 1.
func NewIWM(drive0, drive1 *Floppy) *IWM {
	return &IWM{drives: [2]*Floppy{drive0, drive1}}
}

func (w *IWM) current() *Floppy { return w.drives[w.selected] }

// ReadU8 implements device.Device. Register 0 reports drive status
// (track zero, write protect); register 1 is the mode register;
// writes to register 2 select the active drive.
func (w *IWM) ReadU8(offset uint32) uint8 {
	switch offset & 0xF {
	case 0:
		d := w.current()
		if d == nil {
			return 0
		}
		var v uint8
		if d.AtTrackZero() {
			v |= 0x01
		}
		if d.WriteProtected() {
			v |= 0x02
		}
		if d.Inserted() {
			v |= 0x04
		}
		return v
	case 1:
		return w.mode
	}
	return 0
}

// WriteU8 implements device.Device.
func (w *IWM) WriteU8(offset uint32, value uint8) {
	switch offset & 0xF {
	case 1:
		w.mode = value
	case 2:
		if value&1 != 0 {
			w.selected = 1
		} else {
			w.selected = 0
		}
	case 3:
		if d := w.current(); d != nil {
			d.SetMotor(value != 0)
		}
	case 4:
		if d := w.current(); d != nil {
			d.SetStepDirection(value&1 != 0)
		}
	case 5:
		if d := w.current(); d != nil {
			d.Step()
		}
	}
}

func (w *IWM) ReadU16(offset uint32) uint16 {
	return uint16(w.ReadU8(offset))<<8 | uint16(w.ReadU8(offset+1))
}
func (w *IWM) ReadU32(offset uint32) uint32 {
	return uint32(w.ReadU16(offset))<<16 | uint32(w.ReadU16(offset+2))
}
func (w *IWM) WriteU16(offset uint32, value uint16) {
	w.WriteU8(offset, uint8(value>>8))
	w.WriteU8(offset+1, uint8(value))
}
func (w *IWM) WriteU32(offset uint32, value uint32) {
	w.WriteU16(offset, uint16(value>>16))
	w.WriteU16(offset+2, uint16(value))
}
