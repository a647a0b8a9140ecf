// Package mmu implements the 68030 PMMU described in spec.md §4.2: a
// transparent-translation fast path (TT0/TT1) ahead of a table-walking
// logical-to-physical translator whose successful walks are
// materialised directly into the memory package's SoA page-table
// arrays rather than cached in a separate TLB structure.
//
// Grounded in the teacher's page/table-walk style from
// iansmith-mazarin's src/mazboot/golang/main/mmu.go (ARM64 MMU: a
// root-table-pointer-driven multi-level walk that installs entries
// into a page table owned by the caller) and in the CPU engine's own
// fault-reporting convention (cpu_m68k.go faultingBus).
//
// Open question resolved here (spec.md §9): the real 68030 packs IS
// /TIA/TIB/TIC/TID and page size into a single 32-bit TC register with
// a specific bit layout; this package models the same *information*
// (an ordered list of table-index widths summing with the page-size
// shift to 32) as a Go struct (TableControl) rather than replicating
// the exact bit positions, since no external consumer of this core
// inspects TC's raw bit pattern — only the translation behavior it
// controls is observable.
package mmu

import "github.com/gomac68k/core/memory"

// TableControl mirrors the TC register's logical content: whether
// translation is enabled, the page size, and the index-step widths
// used to walk from CRP down to a page descriptor. Any width may be
// zero, meaning that table level is skipped; the non-zero widths plus
// PageSizeShift must sum to 32 (spec.md §4.2).
type TableControl struct {
	Enabled       bool
	InitialShift  uint8 // IS
	PageSizeShift uint8 // log2(page size); 12 for 4KiB pages
	TableAWidth   uint8 // TIA
	TableBWidth   uint8 // TIB
	TableCWidth   uint8 // TIC
	TableDWidth   uint8 // TID
}

func (tc TableControl) widths() []uint8 {
	var w []uint8
	for _, v := range []uint8{tc.TableAWidth, tc.TableBWidth, tc.TableCWidth, tc.TableDWidth} {
		if v > 0 {
			w = append(w, v)
		}
	}
	return w
}

// RootPointer is CRP: the physical address of the first-level
// descriptor table plus its limit and descriptor format.
type RootPointer struct {
	TableAddr uint32
	Long      bool // long-format (8-byte) descriptors if true, else short (4-byte)
}

// TransparentWindow is one of TT0/TT1: addresses whose top bits match
// Base (after masking by Mask) pass through untranslated.
type TransparentWindow struct {
	Enabled    bool
	Base       uint32
	Mask       uint32
	Write      bool // true: window applies to writes
	Read       bool // true: window applies to reads
	Supervisor bool // true: window requires supervisor mode
}

func (w TransparentWindow) matches(addr uint32, isWrite, isSupervisor bool) bool {
	if !w.Enabled {
		return false
	}
	if w.Supervisor && !isSupervisor {
		return false
	}
	if isWrite && !w.Write {
		return false
	}
	if !isWrite && !w.Read {
		return false
	}
	return addr&^w.Mask == w.Base&^w.Mask
}

// Status is MMUSR: the bits populated by TestAddress without mutating
// any descriptor (spec.md §4.2).
type Status struct {
	Bus        bool // B: bus error during walk
	Invalid    bool // I: invalid descriptor
	WriteProt  bool // W: write-protected
	SuperOnly  bool // S: supervisor-only violation
	ViaTT      bool // T: resolved via transparent translation
	Modified   bool // M: modified bit set
	Used       bool // U: used bit set
}

// descriptor is the walk's internal view of either a table or a page
// descriptor, format-agnostic.
type descriptor struct {
	valid     bool
	isTable   bool
	addr      uint32
	writeProt bool
	superOnly bool
	used      bool
	modified  bool
}

// DescriptorSource is implemented by the host machine to fetch/update
// raw descriptors at a physical address; it is the seam the MMU walks
// through, kept separate from memory.Map so tests can supply a plain
// in-memory table without constructing a full machine.
type DescriptorSource interface {
	ReadDescriptor(addr uint32, long bool) (raw uint64, ok bool)
	WriteDescriptorFlags(addr uint32, long bool, used, modified bool) bool
}

// MMU is the 68030 PMMU state: TC, CRP, TT0/TT1, MMUSR, wired to the
// memory map it installs fast-path translations into.
type MMU struct {
	TC  TableControl
	CRP RootPointer
	TT0 TransparentWindow
	TT1 TransparentWindow

	mem    *memory.Map
	source DescriptorSource
}

// New creates an MMU bound to mem (for installing fast-path
// translations) and source (for walking the descriptor tree, which
// normally also lives in mem but is modeled separately for
// testability).
func New(mem *memory.Map, source DescriptorSource) *MMU {
	return &MMU{mem: mem, source: source}
}

// InvalidateTLB zeros every fast-path SoA entry, matching
// memory.Map.InvalidateTLB (spec.md §4.2, §8).
func (m *MMU) InvalidateTLB() {
	m.mem.InvalidateTLB()
}

// CheckTT reports whether logicalAddr falls inside an enabled
// transparent-translation window for the given access, per spec.md
// §4.2: "a match passes the address through untranslated".
func (m *MMU) CheckTT(logicalAddr uint32, isWrite, isSupervisor bool) bool {
	return m.TT0.matches(logicalAddr, isWrite, isSupervisor) || m.TT1.matches(logicalAddr, isWrite, isSupervisor)
}

// HandleFault walks the table tree rooted at CRP for logicalAddr and,
// on success, materialises the resulting page translation into the
// memory map's SoA arrays restricted to the attributes the walk
// accumulated (spec.md §4.2). It returns false if the walk hit an
// invalid descriptor or a bus error, in which case the caller (the
// CPU) must raise a bus error.
func (m *MMU) HandleFault(logicalAddr uint32, isWrite, isSupervisor bool) bool {
	if !m.TC.Enabled {
		return false
	}
	if m.CheckTT(logicalAddr, isWrite, isSupervisor) {
		return true
	}

	page, ok := m.walk(logicalAddr, true)
	if !ok {
		return false
	}
	if page.superOnly && !isSupervisor {
		return false
	}
	if page.writeProt && isWrite {
		return false
	}

	pageNum := logicalAddr >> m.TC.PageSizeShift
	supR := true
	supW := !page.writeProt
	usrR := !page.superOnly
	usrW := !page.superOnly && !page.writeProt
	m.installTranslation(pageNum, page.addr, supR, supW, usrR, usrW)
	return true
}

// TestAddress performs the same walk as HandleFault but never installs
// a translation or mutates descriptor used/modified bits, populating
// MMUSR instead (spec.md §4.2).
func (m *MMU) TestAddress(logicalAddr uint32, isWrite, isSupervisor bool) Status {
	var st Status
	if m.CheckTT(logicalAddr, isWrite, isSupervisor) {
		st.ViaTT = true
		return st
	}
	page, ok := m.walk(logicalAddr, false)
	if !ok {
		st.Bus = true
		st.Invalid = true
		return st
	}
	st.WriteProt = page.writeProt
	st.SuperOnly = page.superOnly && !isSupervisor
	st.Used = page.used
	st.Modified = page.modified
	return st
}

// installTranslation installs a fast-path entry for logical page
// pageNum backed by physAddr's existing identity-mapped host bytes,
// honoring the access attributes the walk computed. physAddr must
// already be fast-path mapped (typically identity-mapped RAM/ROM);
// pure-MMIO physical targets are left to device dispatch instead.
func (m *MMU) installTranslation(pageNum uint32, physAddr uint32, supR, supW, usrR, usrW bool) {
	m.mem.InstallTranslation(pageNum, physAddr, supR, supW, usrR, usrW)
}

// walk descends the table tree rooted at CRP using TC's index widths,
// optionally updating used/modified bits along the way (mutate=true
// for HandleFault, false for TestAddress).
func (m *MMU) walk(logicalAddr uint32, mutate bool) (descriptor, bool) {
	widths := m.TC.widths()
	if len(widths) == 0 {
		// Degenerate single-level table: treat CRP as pointing directly
		// at a page descriptor array indexed by the whole remaining
		// logical address above the page-size shift.
		return m.fetchPageDescriptor(m.CRP.TableAddr, 0, mutate)
	}

	shift := uint(32 - m.TC.InitialShift)
	tableAddr := m.CRP.TableAddr
	remaining := logicalAddr << m.TC.InitialShift

	for level, w := range widths {
		shift -= uint(w)
		index := (remaining >> shift) & ((1 << w) - 1)
		// re-derive remaining relative to 32-bit width for the next
		// level's shift computation.
		remaining = logicalAddr << (m.TC.InitialShift + sumWidths(widths[:level+1]))

		if level == len(widths)-1 {
			return m.fetchPageDescriptor(tableAddr, index, mutate)
		}
		d, ok := m.fetchTableDescriptor(tableAddr, index)
		if !ok || !d.valid {
			return descriptor{}, false
		}
		tableAddr = d.addr
	}
	return descriptor{}, false
}

func sumWidths(ws []uint8) uint8 {
	var s uint8
	for _, w := range ws {
		s += w
	}
	return s
}

func (m *MMU) fetchTableDescriptor(tableAddr uint32, index uint32) (descriptor, bool) {
	entrySize := uint32(4)
	if m.CRP.Long {
		entrySize = 8
	}
	raw, ok := m.source.ReadDescriptor(tableAddr+index*entrySize, m.CRP.Long)
	if !ok {
		return descriptor{}, false
	}
	dt := raw & 0x3
	if dt == 0 {
		return descriptor{}, false // invalid descriptor -> bus error, MMUSR.I=1
	}
	return descriptor{valid: true, isTable: true, addr: uint32(raw &^ 0xF)}, true
}

func (m *MMU) fetchPageDescriptor(tableAddr uint32, index uint32, mutate bool) (descriptor, bool) {
	entrySize := uint32(4)
	if m.CRP.Long {
		entrySize = 8
	}
	addr := tableAddr + index*entrySize
	raw, ok := m.source.ReadDescriptor(addr, m.CRP.Long)
	if !ok {
		return descriptor{}, false
	}
	dt := raw & 0x3
	if dt == 0 {
		return descriptor{}, false
	}
	d := descriptor{
		valid:     true,
		addr:      uint32(raw &^ 0xFFF),
		writeProt: raw&(1<<2) != 0,
		superOnly: raw&(1<<7) != 0,
		used:      raw&(1<<3) != 0,
		modified:  raw&(1<<4) != 0,
	}
	if mutate && !d.used {
		m.source.WriteDescriptorFlags(addr, m.CRP.Long, true, d.modified)
		d.used = true
	}
	return d, true
}
