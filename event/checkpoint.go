package event

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// pendingRecord is the on-disk shape of one queued event: deadline,
// type, source, data, period and enabled flag. Callbacks are never
// serialized; the machine profile re-binds them via BindCallback
// after Restore, in the same order types were registered originally
// (SPEC_FULL.md §4.7 "component blobs are opaque to the checkpoint
// engine itself").
type pendingRecord struct {
	id       ID
	deadline uint64
	typ      TypeID
	source   int32
	data     uint32
	period   uint32
	disabled bool
}

const recordSize = 8 + 8 + 4 + 4 + 4 + 4 + 1 // id, deadline, typ, source, data, period, disabled

// Marshal serializes the current cycle clock and every pending event,
// in firing order (deadline, then scheduling order), so that Unmarshal
// re-inserting them in stream order keeps same-deadline events in
// their original relative order.
func (s *Scheduler) Marshal() []byte {
	buf := make([]byte, 8+4+len(s.heap)*recordSize)
	binary.BigEndian.PutUint64(buf[0:8], s.cycle)
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(s.heap)))
	entries := append(entryHeap(nil), s.heap...)
	sort.Slice(entries, entries.Less)
	off := 12
	for _, e := range entries {
		binary.BigEndian.PutUint64(buf[off:], uint64(e.id))
		binary.BigEndian.PutUint64(buf[off+8:], e.deadline)
		binary.BigEndian.PutUint32(buf[off+16:], uint32(e.typ))
		binary.BigEndian.PutUint32(buf[off+20:], uint32(e.source))
		binary.BigEndian.PutUint32(buf[off+24:], e.data)
		binary.BigEndian.PutUint32(buf[off+28:], e.period)
		if e.disabled {
			buf[off+32] = 1
		}
		off += recordSize
	}
	return buf
}

// Unmarshal replaces the scheduler's state with the stream produced by
// Marshal. Callbacks must be re-bound with BindCallback afterward;
// until then, due events silently do nothing when RunTo fires them.
func (s *Scheduler) Unmarshal(data []byte) error {
	if len(data) < 12 {
		return fmt.Errorf("event: truncated checkpoint stream")
	}
	cycle := binary.BigEndian.Uint64(data[0:8])
	count := binary.BigEndian.Uint32(data[8:12])
	want := 12 + int(count)*recordSize
	if len(data) != want {
		return fmt.Errorf("event: checkpoint stream length %d, want %d for %d events", len(data), want, count)
	}

	s.cycle = cycle
	s.heap = nil
	s.byID = make(map[ID]*entry)
	s.seq = 0
	s.nextID = 0

	off := 12
	for i := uint32(0); i < count; i++ {
		id := ID(binary.BigEndian.Uint64(data[off:]))
		deadline := binary.BigEndian.Uint64(data[off+8:])
		typ := TypeID(binary.BigEndian.Uint32(data[off+16:]))
		source := int32(binary.BigEndian.Uint32(data[off+20:]))
		evData := binary.BigEndian.Uint32(data[off+24:])
		period := binary.BigEndian.Uint32(data[off+28:])
		disabled := data[off+32] != 0
		off += recordSize

		s.scheduleWithID(id, deadline, typ, int(source), evData, period, disabled)
		if uint64(id) > uint64(s.nextID) {
			s.nextID = id
		}
	}
	return nil
}
