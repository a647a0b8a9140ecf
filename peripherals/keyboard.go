package peripherals

// Keyboard tracks a 128-key down/up bitmap. On the Plus it is polled
// over the VIA shift register (the ROM issues an "inquiry" command and
// reads back a key-transition code); on the SE/30 it is an ADB device
// address. This type owns only the key state; the serial/ADB framing
// is a collaborator's concern (spec.md §1).
type Keyboard struct {
	down    [128 / 8]byte
	pending []uint8 // queued key-transition codes, FIFO order
}

// SetKey marks key (0-127, the classic Mac key-transition code space)
// down or up, queuing its transition code for the polling protocol.
func (k *Keyboard) SetKey(key uint8, down bool) {
	idx, bit := key/8, key%8
	was := k.down[idx]&(1<<bit) != 0
	if down {
		k.down[idx] |= 1 << bit
	} else {
		k.down[idx] &^= 1 << bit
	}
	if was != down {
		code := key << 1
		if !down {
			code |= 1
		}
		k.pending = append(k.pending, code)
	}
}

// IsDown reports whether key is currently held.
func (k *Keyboard) IsDown(key uint8) bool {
	return k.down[key/8]&(1<<(key%8)) != 0
}

// NextTransition pops the oldest queued key-transition code for the
// polling protocol to report; ok is false if none are pending.
func (k *Keyboard) NextTransition() (code uint8, ok bool) {
	if len(k.pending) == 0 {
		return 0, false
	}
	code = k.pending[0]
	k.pending = k.pending[1:]
	return code, true
}

// Marshal serializes the down-state bitmap and pending transition
// queue.
func (k *Keyboard) Marshal() []byte {
	buf := make([]byte, len(k.down)+1+len(k.pending))
	copy(buf, k.down[:])
	buf[len(k.down)] = uint8(len(k.pending))
	copy(buf[len(k.down)+1:], k.pending)
	return buf
}

// Unmarshal restores state previously produced by Marshal.
func (k *Keyboard) Unmarshal(data []byte) error {
	if len(data) < len(k.down)+1 {
		return errShortBlob
	}
	copy(k.down[:], data[:len(k.down)])
	n := int(data[len(k.down)])
	rest := data[len(k.down)+1:]
	if len(rest) < n {
		return errShortBlob
	}
	k.pending = append([]uint8(nil), rest[:n]...)
	return nil
}
