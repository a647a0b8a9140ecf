// Package event implements the deterministic cooperative scheduler of
// SPEC_FULL.md §4.4: a monotonic cycle clock plus a priority queue of
// future callbacks, ties broken by registration order, driving the
// quantum loop that bounds each CPU sprint by the next pending
// deadline.
//
// Grounded in rcornwell-S370's emu/event package for the overall
// shape (an event carries a deadline, a source, and opaque data; the
// CPU owns one recurring event representing "run until next
// deadline"), reimplemented on Go's container/heap instead of S370's
// delta-time doubly linked list, since a binary heap is the idiomatic
// Go priority queue for this and needs no periodic delta-rebasing.
package event

import "container/heap"

// TypeID identifies a registered event type. Types are registered
// once during machine setup (new_event_type in SPEC_FULL.md §4.4) so
// that a checkpointed event stream can be restored by type ID and
// rebound to a live callback, rather than attempting to serialize a
// Go function value.
type TypeID int

// Callback is invoked when a scheduled event's deadline is reached.
// data is the opaque payload supplied at scheduling time.
type Callback func(s *Scheduler, source int, data uint32)

// ID identifies one scheduled (pending) event, for Remove/Enable/
// Disable/Status/SetFrequency.
type ID uint64

// entry is one heap element. Disabled entries stay in the heap (so
// IDs remain stable) but are skipped by RunTo.
type entry struct {
	id       ID
	deadline uint64
	seq      uint64
	typ      TypeID
	source   int
	data     uint32
	period   uint32 // 0 = one-shot; >0 = reschedule deadline+period after firing
	disabled bool
	index    int
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler is the single-threaded cooperative event queue owned by a
// Machine. It is not safe for concurrent use; SPEC_FULL.md's
// concurrency model confines all mutation to the machine's run loop
// goroutine.
type Scheduler struct {
	cycle     uint64
	seq       uint64
	nextID    ID
	heap      entryHeap
	byID      map[ID]*entry
	callbacks map[TypeID]Callback
	typeNames []string
}

// New creates an empty Scheduler with its cycle clock at zero.
func New() *Scheduler {
	return &Scheduler{
		byID:      make(map[ID]*entry),
		callbacks: make(map[TypeID]Callback),
	}
}

// Cycle returns the current cycle clock.
func (s *Scheduler) Cycle() uint64 { return s.cycle }

// NewEventType registers a named event type and returns its ID,
// matching SPEC_FULL.md §4.4's new_event_type. Names are kept only for
// diagnostics; the ID is what checkpoints and Schedule calls use.
func (s *Scheduler) NewEventType(name string) TypeID {
	id := TypeID(len(s.typeNames))
	s.typeNames = append(s.typeNames, name)
	return id
}

// BindCallback associates a live callback with a previously registered
// type. Must be called again after restoring a checkpoint, since
// callbacks are never serialized.
func (s *Scheduler) BindCallback(t TypeID, cb Callback) {
	s.callbacks[t] = cb
}

// Schedule queues a one-shot event of type t firing at absolute cycle
// deadline, returning its ID.
func (s *Scheduler) Schedule(deadline uint64, t TypeID, source int, data uint32) ID {
	return s.schedule(deadline, t, source, data, 0)
}

// ScheduleAfter queues a one-shot event firing delta cycles from now.
func (s *Scheduler) ScheduleAfter(delta uint32, t TypeID, source int, data uint32) ID {
	return s.schedule(s.cycle+uint64(delta), t, source, data, 0)
}

// ScheduleRecurring queues an event that reschedules itself period
// cycles after each firing, matching SPEC_FULL.md §4.4's set_frequency
// / VBL-style recurring sources (VIA timers, the video VBL interrupt).
// period must be nonzero.
func (s *Scheduler) ScheduleRecurring(period uint32, t TypeID, source int, data uint32) ID {
	return s.schedule(s.cycle+uint64(period), t, source, data, period)
}

func (s *Scheduler) schedule(deadline uint64, t TypeID, source int, data uint32, period uint32) ID {
	s.nextID++
	return s.scheduleWithID(s.nextID, deadline, t, source, data, period, false)
}

// scheduleWithID (re-)inserts an entry under a caller-chosen ID, used
// by RunTo to carry a recurring event's identity across its repeated
// firings so callers holding its ID can still SetFrequency/Enable/
// Disable/Status it indefinitely.
func (s *Scheduler) scheduleWithID(id ID, deadline uint64, t TypeID, source int, data uint32, period uint32, disabled bool) ID {
	s.seq++
	e := &entry{
		id:       id,
		deadline: deadline,
		seq:      s.seq,
		typ:      t,
		source:   source,
		data:     data,
		period:   period,
		disabled: disabled,
	}
	heap.Push(&s.heap, e)
	s.byID[e.id] = e
	return e.id
}

// Remove cancels a pending event by ID, returning false if it was not
// found (already fired or never scheduled).
func (s *Scheduler) Remove(id ID) bool {
	e, ok := s.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&s.heap, e.index)
	delete(s.byID, id)
	return true
}

// RemoveByData cancels every pending event of type t whose data equals
// match, returning the count removed. Matches SPEC_FULL.md's
// remove_event_by_data, used to cancel e.g. a pending floppy-step
// completion when the drive is reset mid-seek.
func (s *Scheduler) RemoveByData(t TypeID, match uint32) int {
	var victims []ID
	for id, e := range s.byID {
		if e.typ == t && e.data == match {
			victims = append(victims, id)
		}
	}
	for _, id := range victims {
		s.Remove(id)
	}
	return len(victims)
}

// SetFrequency changes a recurring event's period; the event's next
// firing keeps its already-scheduled deadline. Returns false if id is
// not a recurring event.
func (s *Scheduler) SetFrequency(id ID, period uint32) bool {
	e, ok := s.byID[id]
	if !ok || e.period == 0 {
		return false
	}
	e.period = period
	return true
}

// Enable and Disable pause or resume an event without losing its
// place in the queue or its ID, matching SPEC_FULL.md's start/stop
// operations on a scheduled source.
func (s *Scheduler) Enable(id ID) bool  { return s.setDisabled(id, false) }
func (s *Scheduler) Disable(id ID) bool { return s.setDisabled(id, true) }

func (s *Scheduler) setDisabled(id ID, disabled bool) bool {
	e, ok := s.byID[id]
	if !ok {
		return false
	}
	e.disabled = disabled
	return true
}

// Status reports whether id is still pending, its next deadline, and
// whether it is currently enabled.
func (s *Scheduler) Status(id ID) (deadline uint64, enabled bool, ok bool) {
	e, found := s.byID[id]
	if !found {
		return 0, false, false
	}
	return e.deadline, !e.disabled, true
}

// NextDeadline returns the earliest pending, enabled event's deadline.
// ok is false if the queue is empty or every pending event is
// disabled, in which case the quantum loop should run the CPU for a
// machine-chosen default slice (SPEC_FULL.md §4.4).
//
// The heap slice is only ordered at its root (container/heap keeps
// the min at index 0, not the whole slice sorted), so when that root
// is disabled this scans the rest for the true minimum among enabled
// entries rather than returning the first one found in heap order.
func (s *Scheduler) NextDeadline() (uint64, bool) {
	found := false
	var best uint64
	for _, e := range s.heap {
		if e.disabled {
			continue
		}
		if !found || e.deadline < best {
			best = e.deadline
			found = true
		}
	}
	return best, found
}

// Advance moves the cycle clock forward by delta without firing
// anything; callers invoke RunTo afterward to drain due events. Kept
// separate so a CPU sprint can report its actual cycle consumption
// before the scheduler decides what fires.
func (s *Scheduler) Advance(delta uint32) {
	s.cycle += uint64(delta)
}

// RunTo fires every enabled event whose deadline is <= the current
// cycle clock, in deadline order (ties broken by scheduling order),
// rescheduling recurring events as it goes. It returns the number of
// enabled events fired, counting those whose type has no bound
// callback.
func (s *Scheduler) RunTo() int {
	fired := 0
	for s.heap.Len() > 0 {
		top := s.heap[0]
		if top.deadline > s.cycle {
			break
		}
		heap.Pop(&s.heap)
		delete(s.byID, top.id)

		if !top.disabled {
			if cb, ok := s.callbacks[top.typ]; ok {
				cb(s, top.source, top.data)
			}
			fired++
		}
		if top.period > 0 {
			s.scheduleWithID(top.id, top.deadline+uint64(top.period), top.typ, top.source, top.data, top.period, top.disabled)
		}
	}
	return fired
}
