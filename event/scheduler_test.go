package event

import "testing"

func TestDeadlineOrdering(t *testing.T) {
	s := New()
	typ := s.NewEventType("test")
	var fired []uint32
	s.BindCallback(typ, func(s *Scheduler, source int, data uint32) {
		fired = append(fired, data)
	})

	s.Schedule(30, typ, 0, 3)
	s.Schedule(10, typ, 0, 1)
	s.Schedule(20, typ, 0, 2)

	s.Advance(30)
	s.RunTo()

	want := []uint32{1, 2, 3}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("fired = %v, want %v", fired, want)
		}
	}
}

func TestTieBreakByInsertionOrder(t *testing.T) {
	s := New()
	typ := s.NewEventType("test")
	var fired []uint32
	s.BindCallback(typ, func(s *Scheduler, source int, data uint32) {
		fired = append(fired, data)
	})

	s.Schedule(10, typ, 0, 1)
	s.Schedule(10, typ, 0, 2)
	s.Schedule(10, typ, 0, 3)

	s.Advance(10)
	s.RunTo()

	if len(fired) != 3 || fired[0] != 1 || fired[1] != 2 || fired[2] != 3 {
		t.Fatalf("tie-break order = %v, want [1 2 3]", fired)
	}
}

func TestRemoveCancelsEvent(t *testing.T) {
	s := New()
	typ := s.NewEventType("test")
	fired := false
	s.BindCallback(typ, func(s *Scheduler, source int, data uint32) { fired = true })

	id := s.Schedule(10, typ, 0, 0)
	if !s.Remove(id) {
		t.Fatal("Remove must report success for a pending event")
	}
	s.Advance(10)
	s.RunTo()
	if fired {
		t.Fatal("a removed event must not fire")
	}
}

func TestRemoveByData(t *testing.T) {
	s := New()
	typ := s.NewEventType("test")
	s.Schedule(10, typ, 0, 42)
	s.Schedule(20, typ, 0, 42)
	s.Schedule(30, typ, 0, 99)

	if n := s.RemoveByData(typ, 42); n != 2 {
		t.Fatalf("RemoveByData removed %d, want 2", n)
	}
	s.Advance(100)
	fired := 0
	s.BindCallback(typ, func(s *Scheduler, source int, data uint32) { fired++ })
	s.RunTo()
	if fired != 1 {
		t.Fatalf("fired = %d, want 1 (only the non-matching event)", fired)
	}
}

func TestRecurringEventReschedulesItself(t *testing.T) {
	s := New()
	typ := s.NewEventType("vbl")
	count := 0
	s.BindCallback(typ, func(s *Scheduler, source int, data uint32) { count++ })

	s.ScheduleRecurring(100, typ, 0, 0)
	for i := 0; i < 5; i++ {
		s.Advance(100)
		s.RunTo()
	}
	if count != 5 {
		t.Fatalf("recurring event fired %d times, want 5", count)
	}
}

func TestDisableSuppressesFiringWithoutLosingRecurrence(t *testing.T) {
	s := New()
	typ := s.NewEventType("vbl")
	count := 0
	s.BindCallback(typ, func(s *Scheduler, source int, data uint32) { count++ })

	id := s.ScheduleRecurring(100, typ, 0, 0)
	s.Advance(100)
	s.RunTo() // fires once

	s.Disable(id)
	s.Advance(100)
	s.RunTo() // suppressed, but must still reschedule

	s.Enable(id)
	s.Advance(100)
	s.RunTo() // fires again

	if count != 2 {
		t.Fatalf("count = %d, want 2 (fire, suppressed, fire)", count)
	}
	if _, _, ok := s.Status(id); !ok {
		t.Fatal("recurring event must still be pending after a disable/enable cycle")
	}
}

func TestSetFrequencyChangesPeriod(t *testing.T) {
	s := New()
	typ := s.NewEventType("timer")
	count := 0
	s.BindCallback(typ, func(s *Scheduler, source int, data uint32) { count++ })

	id := s.ScheduleRecurring(1000, typ, 0, 0)
	if !s.SetFrequency(id, 10) {
		t.Fatal("SetFrequency must succeed on a recurring event")
	}
	s.Advance(1000)
	s.RunTo() // first firing still uses the original period's deadline
	s.Advance(10)
	s.RunTo() // now it should fire on the new, shorter period

	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestNextDeadlineSkipsDisabled(t *testing.T) {
	s := New()
	typ := s.NewEventType("t")
	id1 := s.Schedule(10, typ, 0, 0)
	s.Schedule(20, typ, 0, 0)
	s.Disable(id1)

	d, ok := s.NextDeadline()
	if !ok || d != 20 {
		t.Fatalf("NextDeadline = (%d, %v), want (20, true)", d, ok)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	s := New()
	typ := s.NewEventType("t")
	s.BindCallback(typ, func(s *Scheduler, source int, data uint32) {})
	s.Advance(500)
	s.Schedule(600, typ, 1, 7)
	s.ScheduleRecurring(50, typ, 2, 8)

	blob := s.Marshal()

	s2 := New()
	if err := s2.Unmarshal(blob); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if s2.Cycle() != s.Cycle() {
		t.Fatalf("restored cycle = %d, want %d", s2.Cycle(), s.Cycle())
	}
	if len(s2.heap) != len(s.heap) {
		t.Fatalf("restored event count = %d, want %d", len(s2.heap), len(s.heap))
	}
	d, ok := s2.NextDeadline()
	if !ok || d != 550 {
		t.Fatalf("restored NextDeadline = (%d, %v), want (550, true)", d, ok)
	}
}
