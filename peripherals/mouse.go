package peripherals

import "encoding/binary"

// Mouse tracks the host pointer's quadrature deltas and button state.
// On the Plus it is read over SCC channel B's DCD/CTS lines decoding
// quadrature pulses; on the SE/30 it arrives as ADB Talk register 0
// data. This type owns only the counters both paths report against,
// keeping the actual host input source a collaborator's concern
// (spec.md §1).
type Mouse struct {
	dx, dy int16
	button bool
}

// Move accumulates a relative motion delta (clamped to int16 range by
// truncation, matching the real hardware's quadrature counter width).
func (m *Mouse) Move(dx, dy int16) {
	m.dx += dx
	m.dy += dy
}

// SetButton updates the button state.
func (m *Mouse) SetButton(down bool) { m.button = down }

// TakeDelta returns and clears the accumulated motion since the last
// call, for a collaborator translating it into SCC quadrature pulses
// or an ADB register 0 report.
func (m *Mouse) TakeDelta() (dx, dy int16) {
	dx, dy = m.dx, m.dy
	m.dx, m.dy = 0, 0
	return
}

// Button reports the current button state.
func (m *Mouse) Button() bool { return m.button }

// Marshal serializes pending motion and button state.
func (m *Mouse) Marshal() []byte {
	buf := make([]byte, 5)
	binary.BigEndian.PutUint16(buf[0:2], uint16(m.dx))
	binary.BigEndian.PutUint16(buf[2:4], uint16(m.dy))
	if m.button {
		buf[4] = 1
	}
	return buf
}

// Unmarshal restores state previously produced by Marshal.
func (m *Mouse) Unmarshal(data []byte) error {
	if len(data) != 5 {
		return errShortBlob
	}
	m.dx = int16(binary.BigEndian.Uint16(data[0:2]))
	m.dy = int16(binary.BigEndian.Uint16(data[2:4]))
	m.button = data[4] != 0
	return nil
}
