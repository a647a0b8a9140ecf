package storage

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// WriteFunc and ReadFunc let the checkpoint engine stream bytes
// through this package without storage depending on the checkpoint
// package's container format (SPEC_FULL.md §4.8's `save_state(cp,
// write_cb)` / `load_state(cp, read_cb)`).
type WriteFunc func(p []byte) error
type ReadFunc func(p []byte) (int, error)

// SaveState writes every live LBA and its current (post-consolidation
// view) data through write, for the checkpoint engine's consolidated
// image-list component (SPEC_FULL.md §4.7). Order is by ascending
// LBA so LoadState's output is deterministic regardless of map
// iteration order.
func (s *Storage) SaveState(write WriteFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lbas := s.liveLBAsLocked()
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(lbas)))
	if err := write(countBuf[:]); err != nil {
		return err
	}
	for _, lba := range lbas {
		var lbaBuf [8]byte
		binary.BigEndian.PutUint64(lbaBuf[:], lba)
		if err := write(lbaBuf[:]); err != nil {
			return err
		}
		if err := write(s.readBlockLocked(lba)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) liveLBAsLocked() []uint64 {
	seen := make(map[uint64]bool)
	for _, v := range s.versions {
		for lba := range v.blocks {
			seen[lba] = true
		}
	}
	out := make([]uint64, 0, len(seen))
	for lba := range seen {
		out = append(out, lba)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LoadState replaces the storage's contents with the stream produced
// by SaveState, collapsing history to a single version (load always
// produces a consolidated store, matching "the entire machine is
// first destroyed, then re-created" in SPEC_FULL.md §4.7).
func (s *Storage) LoadState(read ReadFunc) error {
	var countBuf [4]byte
	if err := readFull(read, countBuf[:]); err != nil {
		return err
	}
	count := binary.BigEndian.Uint32(countBuf[:])

	blocks := make(map[uint64][]byte, count)
	for i := uint32(0); i < count; i++ {
		var lbaBuf [8]byte
		if err := readFull(read, lbaBuf[:]); err != nil {
			return err
		}
		lba := binary.BigEndian.Uint64(lbaBuf[:])
		block := make([]byte, BlockSize)
		if err := readFull(read, block); err != nil {
			return err
		}
		blocks[lba] = block
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Old version files on disk are superseded by the single
	// consolidated version written below; leaving them behind is
	// harmless since reads only ever consult s.versions in memory.
	s.versions = nil
	if len(blocks) > 0 {
		seq := s.nextSeq
		s.nextSeq++
		v := &version{seq: seq, blocks: blocks}
		if err := writeVersionFile(s.datPath(seq), v); err != nil {
			return err
		}
		s.versions = append(s.versions, v)
	}
	return nil
}

func readFull(read ReadFunc, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := read(buf[total:])
		total += n
		if err != nil {
			return fmt.Errorf("storage: load_state: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("storage: load_state: short read")
		}
	}
	return nil
}
