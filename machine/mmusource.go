package machine

import (
	"encoding/binary"

	"github.com/gomac68k/core/memory"
)

// memoryDescriptorSource adapts a memory.Map's flat RAM buffer to
// mmu.DescriptorSource: PMMU descriptor tables live in plain RAM,
// physically addressed, so the walk can read/write them directly
// against the buffer rather than through the page-table fast path
// (which may not even have a translation installed yet for the table
// page itself).
type memoryDescriptorSource struct {
	mem *memory.Map
}

func (s *memoryDescriptorSource) ReadDescriptor(addr uint32, long bool) (uint64, bool) {
	buf := s.mem.Buffer()
	n := uint32(4)
	if long {
		n = 8
	}
	if addr+n > uint32(len(buf)) {
		return 0, false
	}
	if long {
		return binary.BigEndian.Uint64(buf[addr:]), true
	}
	return uint64(binary.BigEndian.Uint32(buf[addr:])), true
}

func (s *memoryDescriptorSource) WriteDescriptorFlags(addr uint32, long bool, used, modified bool) bool {
	buf := s.mem.Buffer()
	n := uint32(4)
	if long {
		n = 8
	}
	if addr+n > uint32(len(buf)) {
		return false
	}
	// The U (used) and M (modified) bits are bits 3 and 4 of a
	// short-format page descriptor's first longword, above the two
	// descriptor-type bits and the write-protect bit; long-format
	// descriptors carry the same bits in their first longword too
	// (the second longword holds only the limit/page-size fields this
	// core does not model).
	word := binary.BigEndian.Uint32(buf[addr:])
	word &^= 0x18
	if used {
		word |= 0x08
	}
	if modified {
		word |= 0x10
	}
	binary.BigEndian.PutUint32(buf[addr:], word)
	return true
}
