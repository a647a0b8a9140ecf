package peripherals

import "encoding/binary"

// Each device below exposes Marshal/Unmarshal matching the convention
// established by the memory/cpu/event/mmu packages' checkpoint code:
// a fixed-layout byte blob handed whole to the checkpoint package,
// which prefixes it with a length and writes it in the fixed
// component order spec.md §4.7 defines.

// Marshal serializes a VIA's full register/timer state.
func (v *VIA) Marshal() []byte {
	buf := make([]byte, 19)
	off := 0
	binary.BigEndian.PutUint16(buf[off:], v.t1Counter)
	off += 2
	binary.BigEndian.PutUint16(buf[off:], v.t1Latch)
	off += 2
	binary.BigEndian.PutUint16(buf[off:], v.t2Counter)
	off += 2
	binary.BigEndian.PutUint16(buf[off:], v.t2Latch)
	off += 2
	buf[off] = v.ora
	off++
	buf[off] = v.orb
	off++
	buf[off] = v.ddra
	off++
	buf[off] = v.ddrb
	off++
	buf[off] = v.sr
	off++
	buf[off] = v.acr
	off++
	buf[off] = v.pcr
	off++
	buf[off] = v.ifr
	off++
	buf[off] = v.ier
	off++
	buf[off] = v.extA
	off++
	buf[off] = v.extB
	off++
	return buf[:off]
}

// Unmarshal restores a VIA's state previously produced by Marshal.
// Timers are not re-armed here; the machine profile re-arms them
// after restore if t1Running/t2Running (not itself persisted, since a
// checkpoint restore re-derives pending timer events from the
// scheduler component's own restored queue).
func (v *VIA) Unmarshal(data []byte) error {
	if len(data) != 19 {
		return errShortBlob
	}
	off := 0
	v.t1Counter = binary.BigEndian.Uint16(data[off:])
	off += 2
	v.t1Latch = binary.BigEndian.Uint16(data[off:])
	off += 2
	v.t2Counter = binary.BigEndian.Uint16(data[off:])
	off += 2
	v.t2Latch = binary.BigEndian.Uint16(data[off:])
	off += 2
	v.ora = data[off]
	off++
	v.orb = data[off]
	off++
	v.ddra = data[off]
	off++
	v.ddrb = data[off]
	off++
	v.sr = data[off]
	off++
	v.acr = data[off]
	off++
	v.pcr = data[off]
	off++
	v.ifr = data[off]
	off++
	v.ier = data[off]
	off++
	v.extA = data[off]
	off++
	v.extB = data[off]
	return nil
}

// Marshal serializes the RTC's seconds counter and PRAM.
func (r *RTC) Marshal() []byte {
	buf := make([]byte, 4+len(r.pram))
	binary.BigEndian.PutUint32(buf[0:4], r.seconds)
	copy(buf[4:], r.pram[:])
	return buf
}

// Unmarshal restores an RTC previously produced by Marshal.
func (r *RTC) Unmarshal(data []byte) error {
	if len(data) != 4+len(r.pram) {
		return errShortBlob
	}
	r.seconds = binary.BigEndian.Uint32(data[0:4])
	copy(r.pram[:], data[4:])
	return nil
}

// Marshal serializes an SCC's per-channel register banks and pending
// RX FIFOs.
func (s *SCC) Marshal() []byte {
	var buf []byte
	for i := range s.channels {
		c := &s.channels[i]
		buf = append(buf, c.wRegPointer)
		buf = append(buf, c.wRegs[:]...)
		buf = append(buf, c.rRegs[:]...)
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(c.rxFIFO)))
		buf = append(buf, n[:]...)
		buf = append(buf, c.rxFIFO...)
	}
	return buf
}

// Unmarshal restores an SCC previously produced by Marshal.
func (s *SCC) Unmarshal(data []byte) error {
	off := 0
	for i := range s.channels {
		c := &s.channels[i]
		if off+1+16+16+4 > len(data) {
			return errShortBlob
		}
		c.wRegPointer = data[off]
		off++
		copy(c.wRegs[:], data[off:off+16])
		off += 16
		copy(c.rRegs[:], data[off:off+16])
		off += 16
		n := binary.BigEndian.Uint32(data[off:])
		off += 4
		if off+int(n) > len(data) {
			return errShortBlob
		}
		c.rxFIFO = append([]byte(nil), data[off:off+int(n)]...)
		off += int(n)
	}
	return nil
}

// Marshal serializes a Floppy drive's head position and motor state
// (the inserted image itself is checkpointed separately as part of
// the machine's image list, spec.md §4.7).
func (f *Floppy) Marshal() []byte {
	buf := make([]byte, 4+1+1)
	binary.BigEndian.PutUint32(buf[0:4], uint32(f.track))
	if f.motorOn {
		buf[4] = 1
	}
	if f.stepInward {
		buf[5] = 1
	}
	return buf
}

// Unmarshal restores a Floppy drive previously produced by Marshal.
func (f *Floppy) Unmarshal(data []byte) error {
	if len(data) != 6 {
		return errShortBlob
	}
	f.track = int(binary.BigEndian.Uint32(data[0:4]))
	f.motorOn = data[4] != 0
	f.stepInward = data[5] != 0
	return nil
}

// Marshal serializes an IWM controller's drive-select and mode state.
func (w *IWM) Marshal() []byte {
	buf := make([]byte, 2)
	buf[0] = uint8(w.selected)
	buf[1] = w.mode
	return buf
}

// Unmarshal restores an IWM controller previously produced by
// Marshal.
func (w *IWM) Unmarshal(data []byte) error {
	if len(data) != 2 {
		return errShortBlob
	}
	w.selected = int(data[0])
	w.mode = data[1]
	return nil
}

// Marshal serializes the Sound engine's buffer-select/volume state.
func (s *Sound) Marshal() []byte {
	buf := make([]byte, 4+4+1+1+1+4)
	binary.BigEndian.PutUint32(buf[0:4], s.bufferA)
	binary.BigEndian.PutUint32(buf[4:8], s.bufferB)
	if s.useBufferA {
		buf[8] = 1
	}
	buf[9] = s.volume
	if s.on {
		buf[10] = 1
	}
	binary.BigEndian.PutUint32(buf[11:15], s.phase)
	return buf
}

// Unmarshal restores a Sound engine previously produced by Marshal.
func (s *Sound) Unmarshal(data []byte) error {
	if len(data) != 15 {
		return errShortBlob
	}
	s.bufferA = binary.BigEndian.Uint32(data[0:4])
	s.bufferB = binary.BigEndian.Uint32(data[4:8])
	s.useBufferA = data[8] != 0
	s.volume = data[9]
	s.on = data[10] != 0
	s.phase = binary.BigEndian.Uint32(data[11:15])
	return nil
}

// Marshal serializes ADB pending-event state.
func (a *ADB) Marshal() []byte {
	var buf []byte
	if a.srq {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(a.devices)))
	buf = append(buf, n[:]...)
	for addr, data := range a.devices {
		buf = append(buf, addr)
		var dn [4]byte
		binary.BigEndian.PutUint32(dn[:], uint32(len(data)))
		buf = append(buf, dn[:]...)
		buf = append(buf, data...)
	}
	return buf
}

// Unmarshal restores ADB state previously produced by Marshal.
func (a *ADB) Unmarshal(data []byte) error {
	if len(data) < 5 {
		return errShortBlob
	}
	a.srq = data[0] != 0
	count := binary.BigEndian.Uint32(data[1:5])
	off := 5
	a.devices = make(map[uint8][]byte)
	for i := uint32(0); i < count; i++ {
		if off+1+4 > len(data) {
			return errShortBlob
		}
		addr := data[off]
		off++
		n := binary.BigEndian.Uint32(data[off:])
		off += 4
		if off+int(n) > len(data) {
			return errShortBlob
		}
		a.devices[addr] = append([]byte(nil), data[off:off+int(n)]...)
		off += int(n)
	}
	return nil
}

// Marshal serializes ASC channel/mode state (wavetables included,
// since they are software-loaded and not recoverable from anywhere
// else after a restore).
func (a *ASC) Marshal() []byte {
	buf := []byte{a.mode, a.volume}
	for i := range a.channels {
		c := &a.channels[i]
		buf = append(buf, c.wavetable[:]...)
		buf = append(buf, c.phase, c.increment)
		if c.enabled {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	return buf
}

// Unmarshal restores ASC state previously produced by Marshal.
func (a *ASC) Unmarshal(data []byte) error {
	off := 2
	if len(data) < off {
		return errShortBlob
	}
	a.mode = data[0]
	a.volume = data[1]
	for i := range a.channels {
		c := &a.channels[i]
		if off+256+3 > len(data) {
			return errShortBlob
		}
		copy(c.wavetable[:], data[off:off+256])
		off += 256
		c.phase = data[off]
		c.increment = data[off+1]
		c.enabled = data[off+2] != 0
		off += 3
	}
	return nil
}

// Marshal serializes an SCSI controller's bus-phase state machine and
// any pending pseudo-DMA buffer.
func (s *SCSI) Marshal() []byte {
	buf := make([]byte, 4+4+1+1+1+1+4+len(s.dmaBuf))
	binary.BigEndian.PutUint32(buf[0:4], uint32(s.phase))
	off := 4
	buf[off] = s.data
	off++
	buf[off] = s.icr
	off++
	buf[off] = s.mode
	off++
	buf[off] = s.tcr
	off++
	buf[off] = s.csr
	off++
	binary.BigEndian.PutUint32(buf[off:], uint32(len(s.dmaBuf)))
	off += 4
	copy(buf[off:], s.dmaBuf)
	return buf
}

// Unmarshal restores an SCSI controller previously produced by
// Marshal.
func (s *SCSI) Unmarshal(data []byte) error {
	if len(data) < 14 {
		return errShortBlob
	}
	s.phase = Phase(binary.BigEndian.Uint32(data[0:4]))
	off := 4
	s.data = data[off]
	off++
	s.icr = data[off]
	off++
	s.mode = data[off]
	off++
	s.tcr = data[off]
	off++
	s.csr = data[off]
	off++
	n := binary.BigEndian.Uint32(data[off:])
	off += 4
	if off+int(n) > len(data) {
		return errShortBlob
	}
	s.dmaBuf = append([]uint8(nil), data[off:off+int(n)]...)
	return nil
}

type blobError string

func (e blobError) Error() string { return string(e) }

const errShortBlob blobError = "peripherals: checkpoint blob has wrong length"
