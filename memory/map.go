// Package memory implements the physical address space described in
// spec.md §4.1: a flat RAM+ROM buffer, a software page table of four
// parallel SoA arrays (supervisor/user × read/write) giving a
// single-lookup fast path for most accesses, and MMIO device dispatch
// for everything else.
//
// Grounded in the teacher's SystemBus/MachineBus (memory_bus.go,
// machine_bus.go): a flat byte buffer plus a page-indexed mapping
// table for MMIO regions. The teacher keys its mapping by a
// map[uint32][]IORegion; this package instead gives every physical
// page a fixed-size array slot, matching spec.md's SoA page-table
// requirement and letting MMU TLB materialisation (mmu package)
// install/evict single entries in O(1).
package memory

import "github.com/gomac68k/core/device"

// PageSize is the fixed page size for the whole core (spec.md §6).
const PageSize = 4096

const pageShift = 12

// noPage is the sentinel stored in a page-table slot meaning "no
// fast-path access; fall back to device dispatch or treat as
// unmapped". It stands in for the "host pointer == 0" encoding in
// spec.md §3: rather than carry raw unsafe.Pointer values, pages are
// addressed by byte offset into the flat buffer, with ^uint32(0)
// (impossible as a real offset, since the buffer is at most 4GiB-1)
// meaning "absent". This keeps the fast path to a single slice index
// without reaching for unsafe.
const noPage = ^uint32(0)

// AddressBits selects the width of the emulated physical address bus.
type AddressBits int

const (
	Address24 AddressBits = 24 // 68000-based machines (Plus)
	Address32 AddressBits = 32 // 68030-based machines (SE/30)
)

// Map is the physical memory map: flat RAM+ROM buffer, per-page SoA
// dispatch arrays, and registered MMIO devices. Created once per
// machine, discarded on teardown (spec.md §3).
type Map struct {
	addressBits AddressBits
	addressMask uint32
	pageCount   uint32

	buf     []byte
	ramSize uint32
	romSize uint32

	// SoA page table: four parallel arrays of byte offsets into buf,
	// indexed by physical page number. noPage means "not fast-path
	// mapped" for that quartet.
	supRead, supWrite, usrRead, usrWrite []uint32

	// active mirrors one of the two quartets above according to the
	// CPU's current mode; switching mode is an O(1) slice-header
	// reassignment, not a data copy (spec.md §3 "two active pointers
	// mirror either the supervisor or user quartet").
	activeRead, activeWrite []uint32

	devices []device.Device // len == pageCount; nil == no device

	// busErrorOnUnmapped makes accesses to unmapped, device-less pages
	// report a fault instead of silently reading zero / discarding the
	// write (spec.md §4.1 "unless the machine profile installs a
	// bus-error device").
	busErrorOnUnmapped bool

	supervisor bool
}

// New creates a Map sized for the given address width and RAM/ROM
// sizes. ROM occupies the upper portion of the flat buffer.
func New(bits AddressBits, ramSize, romSize uint32) *Map {
	addrSpace := uint64(1) << uint(bits)
	pageCount := uint32(addrSpace >> pageShift)

	m := &Map{
		addressBits: bits,
		addressMask: uint32(addrSpace - 1),
		pageCount:   pageCount,
		buf:         make([]byte, ramSize+romSize),
		ramSize:     ramSize,
		romSize:     romSize,
		supRead:     make([]uint32, pageCount),
		supWrite:    make([]uint32, pageCount),
		usrRead:     make([]uint32, pageCount),
		usrWrite:    make([]uint32, pageCount),
		devices:     make([]device.Device, pageCount),
	}
	for i := range m.supRead {
		m.supRead[i] = noPage
		m.supWrite[i] = noPage
		m.usrRead[i] = noPage
		m.usrWrite[i] = noPage
	}
	m.SetSupervisor(true)
	return m
}

// SetSupervisor switches the active read/write quartet to match the
// CPU's current privilege mode. Called by the CPU whenever SR.S
// changes.
func (m *Map) SetSupervisor(supervisor bool) {
	m.supervisor = supervisor
	if supervisor {
		m.activeRead = m.supRead
		m.activeWrite = m.supWrite
	} else {
		m.activeRead = m.usrRead
		m.activeWrite = m.usrWrite
	}
}

// SetBusErrorOnUnmapped installs (or removes) the policy that access
// to an unmapped, device-less page raises a bus error rather than
// reading as zero / discarding silently (spec.md §4.1).
func (m *Map) SetBusErrorOnUnmapped(enabled bool) {
	m.busErrorOnUnmapped = enabled
}

// AddressBits reports the configured physical address width.
func (m *Map) AddressBits() AddressBits { return m.addressBits }

// RAMSize and ROMSize report the flat buffer's two regions.
func (m *Map) RAMSize() uint32 { return m.ramSize }
func (m *Map) ROMSize() uint32 { return m.romSize }

func (m *Map) pageOf(addr uint32) uint32 {
	return (addr & m.addressMask) >> pageShift
}

// AddDevice registers dev to handle every access in [base, base+length).
// Registering a device clears the fast-path host-pointer arrays for
// the covered pages in all four quartets, forcing dispatch through the
// device (spec.md §4.1: "a page is RAM iff supervisor_read[p] != 0 and
// device[p] is absent").
func (m *Map) AddDevice(base, length uint32, dev device.Device) {
	firstPage := m.pageOf(base)
	lastPage := m.pageOf(base + length - 1)
	for p := firstPage; p <= lastPage && p < m.pageCount; p++ {
		m.devices[p] = dev
		m.supRead[p] = noPage
		m.supWrite[p] = noPage
		m.usrRead[p] = noPage
		m.usrWrite[p] = noPage
	}
}

// mapRange installs offset-based fast-path entries for [base,
// base+length) across the four named quartets (nil entries in
// quartets left unmapped), pointing at buf[bufOffset:].
// bufOffset advances with each page so successive pages see
// successive buffer bytes; pass a fixed bufOffset for every page to
// create a mirrored (repeating) mapping.
func (m *Map) mapRange(base, length uint32, quartets [4]*[]uint32, bufOffset uint32, mirror bool) {
	firstPage := m.pageOf(base)
	lastPage := m.pageOf(base + length - 1)
	off := bufOffset
	for p := firstPage; p <= lastPage && p < m.pageCount; p++ {
		for _, q := range quartets {
			if q != nil {
				(*q)[p] = off
			}
		}
		if !mirror {
			off += PageSize
		}
	}
}

// PopulatePages installs identity mappings for RAM (all four
// quartets) and ROM, which occupies [romStart, romEnd) of the address
// space and maps only the two read quartets (spec.md §4.1). RAM is
// assumed to start at address 0 and span RAMSize() bytes; callers
// needing RAM mirroring should follow up with MirrorRAM.
func (m *Map) PopulatePages(romStart, romEnd uint32) {
	if m.ramSize > 0 {
		m.mapRange(0, m.ramSize, [4]*[]uint32{&m.supRead, &m.supWrite, &m.usrRead, &m.usrWrite}, 0, false)
	}
	if m.romSize > 0 {
		m.mapRange(romStart, romEnd-romStart, [4]*[]uint32{&m.supRead, &m.usrRead}, m.ramSize, false)
	}
}

// MirrorRAM installs a repeating view of the first ramWindow bytes of
// RAM across [base, base+span), all four quartets, matching the
// "RAM mirroring is expressed by multiple page entries sharing the
// same host base pointer" invariant of spec.md §3. ramWindow must be
// a multiple of PageSize.
func (m *Map) MirrorRAM(base, span, ramWindow uint32) {
	pages := ramWindow / PageSize
	firstPage := m.pageOf(base)
	lastPage := m.pageOf(base + span - 1)
	for p := firstPage; p <= lastPage && p < m.pageCount; p++ {
		src := (p - firstPage) % pages
		off := src * PageSize
		m.supRead[p] = off
		m.supWrite[p] = off
		m.usrRead[p] = off
		m.usrWrite[p] = off
	}
}

// SetOverlay implements the compact Macintosh's boot-time ROM
// overlay (spec.md §4.9: "ROM mirrored at address 0 until a VIA bit
// clears it"): enabled maps romWindow-sized, read-only repeating
// views of the ROM across [0, span); disabling restores identity RAM
// mappings across the same range, matching PopulatePages' normal
// RAM layout. Call after PopulatePages has established the cold
// (overlay-enabled) or running (overlay-disabled) layout for the
// non-overlay region.
func (m *Map) SetOverlay(enabled bool, span, romWindow uint32) {
	if enabled {
		pages := romWindow / PageSize
		lastPage := m.pageOf(span - 1)
		for p := uint32(0); p <= lastPage && p < m.pageCount; p++ {
			src := p % pages
			off := m.ramSize + src*PageSize
			m.supRead[p] = off
			m.usrRead[p] = off
			m.supWrite[p] = noPage
			m.usrWrite[p] = noPage
		}
		return
	}
	m.mapRange(0, span, [4]*[]uint32{&m.supRead, &m.supWrite, &m.usrRead, &m.usrWrite}, 0, false)
}

// UnmapRange clears fast-path entries and any device for
// [base, base+length) in every quartet, leaving the range
// unmapped. Used for the 24-bit machines' interleaved unmapped ROM
// window (spec.md §4.1).
func (m *Map) UnmapRange(base, length uint32) {
	firstPage := m.pageOf(base)
	lastPage := m.pageOf(base + length - 1)
	for p := firstPage; p <= lastPage && p < m.pageCount; p++ {
		m.supRead[p] = noPage
		m.supWrite[p] = noPage
		m.usrRead[p] = noPage
		m.usrWrite[p] = noPage
		m.devices[p] = nil
	}
}

// NativePointer returns the host byte slice backing addr's page at
// its current page offset, or nil if addr is not fast-path mapped for
// the active mode. Used by peripherals that need direct buffer access
// (e.g. sound DMA reading the framebuffer window, spec.md §4.6).
func (m *Map) NativePointer(addr uint32) []byte {
	p := m.pageOf(addr)
	if p >= m.pageCount {
		return nil
	}
	off := m.activeRead[p]
	if off == noPage {
		return nil
	}
	pageBase := off
	inPage := addr & (PageSize - 1)
	return m.buf[pageBase+inPage:]
}

// installPageArrays is used by InstallTranslation to materialise a
// translated page directly into the SoA fast path (spec.md §4.2:
// "the page's physical host pointer is installed into only those of
// the four SoA arrays permitted by the final attributes").
func (m *Map) installPageArrays(page uint32, bufOffset uint32, supR, supW, usrR, usrW bool) {
	if page >= m.pageCount {
		return
	}
	if supR {
		m.supRead[page] = bufOffset
	} else {
		m.supRead[page] = noPage
	}
	if supW {
		m.supWrite[page] = bufOffset
	} else {
		m.supWrite[page] = noPage
	}
	if usrR {
		m.usrRead[page] = bufOffset
	} else {
		m.usrRead[page] = noPage
	}
	if usrW {
		m.usrWrite[page] = bufOffset
	} else {
		m.usrWrite[page] = noPage
	}
}

// FastPathOffset returns the flat-buffer offset backing physAddr's
// page, if that page is already fast-path mapped for reads in either
// quartet (checking supervisor first, matching the 68030's convention
// that the supervisor mapping is a superset of the user mapping for
// RAM/ROM). ok is false if the page has no host-backed mapping at all
// (e.g. it is pure MMIO), which the mmu package treats as a table-walk
// target it cannot materialise a fast path for.
func (m *Map) FastPathOffset(physAddr uint32) (offset uint32, ok bool) {
	p := m.pageOf(physAddr)
	if p >= m.pageCount {
		return 0, false
	}
	if off := m.supRead[p]; off != noPage {
		return off - (physAddr & (PageSize - 1)), true
	}
	if off := m.usrRead[p]; off != noPage {
		return off - (physAddr & (PageSize - 1)), true
	}
	return 0, false
}

// InstallTranslation materialises a PMMU table-walk result for page
// number logicalPage into the SoA fast path, sourcing the backing
// bytes from physAddr's existing identity-mapped page (spec.md §4.2).
// It returns false if physAddr has no host-backed page to translate
// from, in which case the caller must fall back to device dispatch.
func (m *Map) InstallTranslation(logicalPage, physAddr uint32, supR, supW, usrR, usrW bool) bool {
	base, ok := m.FastPathOffset(physAddr &^ (PageSize - 1))
	if !ok {
		return false
	}
	m.installPageArrays(logicalPage, base, supR, supW, usrR, usrW)
	return true
}

func (m *Map) invalidatePage(page uint32) {
	if page >= m.pageCount {
		return
	}
	m.supRead[page] = noPage
	m.supWrite[page] = noPage
	m.usrRead[page] = noPage
	m.usrWrite[page] = noPage
}

// InvalidateTLB zeros all four SoA arrays wholesale (spec.md §4.2,
// §8 "After invalidate_tlb, for all pages p: all four SoA arrays at p
// are zero"). Devices remain registered; only fast-path RAM/ROM/MMU
// translations are cleared.
func (m *Map) InvalidateTLB() {
	for p := range m.supRead {
		if m.devices[p] != nil {
			continue
		}
		m.supRead[p] = noPage
		m.supWrite[p] = noPage
		m.usrRead[p] = noPage
		m.usrWrite[p] = noPage
	}
}

// PageCount returns the number of physical pages in the address space.
func (m *Map) PageCount() uint32 { return m.pageCount }

// Buffer exposes the flat RAM+ROM buffer directly, for checkpointing
// and for peripherals that DMA against RAM by raw offset (sound,
// video).
func (m *Map) Buffer() []byte { return m.buf }

// IsFastPathMapped reports whether addr currently hits the SoA fast
// path for reads in the active mode (used by tests asserting the
// quantified invariants of spec.md §8).
func (m *Map) IsFastPathMapped(addr uint32) bool {
	p := m.pageOf(addr)
	return p < m.pageCount && m.activeRead[p] != noPage
}

// PageWritable reports whether the page containing addr has a
// fast-path write pointer installed for the active mode.
func (m *Map) PageWritable(addr uint32) bool {
	p := m.pageOf(addr)
	return p < m.pageCount && m.activeWrite[p] != noPage
}
