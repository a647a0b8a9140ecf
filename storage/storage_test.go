package storage

import (
	"bytes"
	"testing"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(Config{Dir: t.TempDir(), ConsolidationsPerTick: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func block(fill byte) []byte {
	b := make([]byte, BlockSize)
	for i := range b {
		b[i] = fill
	}
	return b
}

func TestWriteThenReadReturnsWrittenData(t *testing.T) {
	s := newTestStorage(t)
	if err := s.WriteBlock(5, block(0x42)); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	got := s.ReadBlock(5)
	if !bytes.Equal(got, block(0x42)) {
		t.Fatal("read after write must return the written data")
	}
}

func TestReadUnwrittenBlockIsZero(t *testing.T) {
	s := newTestStorage(t)
	got := s.ReadBlock(99)
	if !bytes.Equal(got, make([]byte, BlockSize)) {
		t.Fatal("an unwritten LBA must read as zero")
	}
}

func TestReadAfterWriteSurvivesConsolidation(t *testing.T) {
	s := newTestStorage(t)
	for i := 0; i < 6; i++ {
		if err := s.WriteBlock(uint64(i), block(byte(i))); err != nil {
			t.Fatalf("WriteBlock(%d): %v", i, err)
		}
	}
	if err := s.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if err := s.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	for i := 0; i < 6; i++ {
		got := s.ReadBlock(uint64(i))
		if !bytes.Equal(got, block(byte(i))) {
			t.Fatalf("lba %d after consolidation = %v, want filled with %d", i, got[:4], i)
		}
	}
}

func TestRollbackRevertsWritesSinceMark(t *testing.T) {
	s := newTestStorage(t)
	if err := s.WriteBlock(0, block(1)); err != nil {
		t.Fatal(err)
	}
	if err := s.CheckpointMark(); err != nil {
		t.Fatalf("CheckpointMark: %v", err)
	}
	if err := s.WriteBlock(0, block(2)); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyRollback(); err != nil {
		t.Fatalf("ApplyRollback: %v", err)
	}
	got := s.ReadBlock(0)
	if !bytes.Equal(got, block(1)) {
		t.Fatal("ApplyRollback must restore the pre-mark value")
	}
}

func TestRollbackOnlyCapturesPreImageOnce(t *testing.T) {
	s := newTestStorage(t)
	if err := s.WriteBlock(0, block(1)); err != nil {
		t.Fatal(err)
	}
	if err := s.CheckpointMark(); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteBlock(0, block(2)); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteBlock(0, block(3)); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyRollback(); err != nil {
		t.Fatal(err)
	}
	got := s.ReadBlock(0)
	if !bytes.Equal(got, block(1)) {
		t.Fatal("rollback must restore the value as of the mark, not an intermediate write")
	}
}

func TestSaveStateLoadStateRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	for i := 0; i < 4; i++ {
		if err := s.WriteBlock(uint64(i), block(byte(10+i))); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := s.SaveState(func(p []byte) error { _, err := buf.Write(p); return err }); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	s2 := newTestStorage(t)
	reader := bytes.NewReader(buf.Bytes())
	if err := s2.LoadState(reader.Read); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	for i := 0; i < 4; i++ {
		got := s2.ReadBlock(uint64(i))
		if !bytes.Equal(got, block(byte(10+i))) {
			t.Fatalf("restored lba %d mismatch", i)
		}
	}
}
