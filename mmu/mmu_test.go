package mmu

import (
	"testing"

	"github.com/gomac68k/core/memory"
)

// fakeTable is a DescriptorSource backed by a plain map keyed by
// physical address, letting tests build a table tree without a real
// machine.
type fakeTable struct {
	entries map[uint32]uint64
	used    map[uint32]bool
}

func newFakeTable() *fakeTable {
	return &fakeTable{entries: map[uint32]uint64{}, used: map[uint32]bool{}}
}

func (f *fakeTable) ReadDescriptor(addr uint32, long bool) (uint64, bool) {
	v, ok := f.entries[addr]
	return v, ok
}

func (f *fakeTable) WriteDescriptorFlags(addr uint32, long bool, used, modified bool) bool {
	f.used[addr] = used
	return true
}

func newTestMap() *memory.Map {
	m := memory.New(memory.Address32, 2*1024*1024, 0)
	m.PopulatePages(0, 0)
	return m
}

func TestTransparentTranslationBypassesWalk(t *testing.T) {
	mem := newTestMap()
	src := newFakeTable() // empty: any real walk would fail
	m := New(mem, src)
	m.TC.Enabled = true
	m.TT0 = TransparentWindow{Enabled: true, Base: 0, Mask: 0x00FFFFFF, Read: true, Write: true}

	if !m.HandleFault(0x1000, false, true) {
		t.Fatal("address inside TT0 window must resolve without a table walk")
	}
}

func TestHandleFaultSingleLevelWalk(t *testing.T) {
	mem := newTestMap()
	src := newFakeTable()
	m := New(mem, src)
	m.TC = TableControl{Enabled: true, InitialShift: 0, PageSizeShift: 12, TableAWidth: 20}
	m.CRP = RootPointer{TableAddr: 0x100000}

	// Single-level table: index is the full 20-bit page number; page 1
	// (logical addr 0x1000) maps to physical page 0 (addr 0x0000),
	// which is already identity-mapped RAM in newTestMap.
	entryAddr := m.CRP.TableAddr + 1*4
	src.entries[entryAddr] = uint64(0x000) | 0x1 // DT=1 (page descriptor), page addr 0

	if !m.HandleFault(0x1000, false, true) {
		t.Fatal("walk over a valid page descriptor must succeed")
	}
	if !mem.IsFastPathMapped(0x1000) {
		t.Fatal("successful HandleFault must install a fast-path translation")
	}
}

func TestHandleFaultInvalidDescriptor(t *testing.T) {
	mem := newTestMap()
	src := newFakeTable()
	m := New(mem, src)
	m.TC = TableControl{Enabled: true, PageSizeShift: 12, TableAWidth: 20}
	m.CRP = RootPointer{TableAddr: 0x100000}
	// No entry installed: ReadDescriptor returns ok=false.

	if m.HandleFault(0x1000, false, true) {
		t.Fatal("walk over a missing descriptor must fail")
	}
}

func TestHandleFaultWriteProtected(t *testing.T) {
	mem := newTestMap()
	src := newFakeTable()
	m := New(mem, src)
	m.TC = TableControl{Enabled: true, PageSizeShift: 12, TableAWidth: 20}
	m.CRP = RootPointer{TableAddr: 0x100000}
	entryAddr := m.CRP.TableAddr + 2*4
	src.entries[entryAddr] = uint64(0x1) | (1 << 2) // write-protected page descriptor

	if m.HandleFault(0x2000, true, true) {
		t.Fatal("a write to a write-protected page must fault")
	}
	if !m.HandleFault(0x2000, false, true) {
		t.Fatal("a read of a write-protected page must still succeed")
	}
}

func TestTestAddressDoesNotInstallTranslation(t *testing.T) {
	mem := newTestMap()
	src := newFakeTable()
	m := New(mem, src)
	m.TC = TableControl{Enabled: true, PageSizeShift: 12, TableAWidth: 20}
	m.CRP = RootPointer{TableAddr: 0x100000}
	entryAddr := m.CRP.TableAddr + 3*4
	src.entries[entryAddr] = 0x1
	mem.UnmapRange(0x3000, memory.PageSize) // logical page 3 starts with no fast-path entry

	st := m.TestAddress(0x3000, false, true)
	if st.Invalid || st.Bus {
		t.Fatalf("valid descriptor must not report invalid/bus: %+v", st)
	}
	if mem.IsFastPathMapped(0x3000) {
		t.Fatal("TestAddress must never install a fast-path translation")
	}
}

func TestInvalidateTLBClearsInstalledTranslation(t *testing.T) {
	mem := newTestMap()
	src := newFakeTable()
	m := New(mem, src)
	m.TC = TableControl{Enabled: true, PageSizeShift: 12, TableAWidth: 20}
	m.CRP = RootPointer{TableAddr: 0x100000}
	entryAddr := m.CRP.TableAddr + 4*4
	src.entries[entryAddr] = 0x1
	if !m.HandleFault(0x4000, false, true) {
		t.Fatal("setup walk must succeed")
	}

	m.InvalidateTLB()
	if mem.IsFastPathMapped(0x4000) {
		t.Fatal("InvalidateTLB must clear installed translations")
	}
}
