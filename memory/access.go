package memory

// Fault-reporting accessors. Naming follows the teacher's
// faultingBus interface (cpu_m68k.go: Read8WithFault/Write8WithFault)
// so the CPU package's bus adapter reads exactly like the teacher's.
// A false "ok" means the access hit an unmapped, device-less page
// with SetBusErrorOnUnmapped(true) installed; the CPU turns that into
// a bus-error exception (spec.md §4.3, §7).

func (m *Map) Read8WithFault(addr uint32) (uint8, bool) {
	p := m.pageOf(addr)
	if p >= m.pageCount {
		return 0, !m.busErrorOnUnmapped
	}
	if off := m.activeRead[p]; off != noPage {
		return m.buf[off+(addr&(PageSize-1))], true
	}
	if dev := m.devices[p]; dev != nil {
		return dev.ReadU8(addr), true
	}
	return 0, !m.busErrorOnUnmapped
}

func (m *Map) Write8WithFault(addr uint32, value uint8) bool {
	p := m.pageOf(addr)
	if p >= m.pageCount {
		return !m.busErrorOnUnmapped
	}
	if off := m.activeWrite[p]; off != noPage {
		m.buf[off+(addr&(PageSize-1))] = value
		return true
	}
	if dev := m.devices[p]; dev != nil {
		dev.WriteU8(addr, value)
		return true
	}
	return !m.busErrorOnUnmapped
}

// Read16WithFault performs a big-endian 16-bit read, splitting into
// two byte accesses when the access straddles a page boundary or the
// page has neither a fast-path mapping nor a device; a device page
// within bounds gets one ReadU16 call (spec.md §4.1).
func (m *Map) Read16WithFault(addr uint32) (uint16, bool) {
	p := m.pageOf(addr)
	inPage := addr & (PageSize - 1)
	if p < m.pageCount && inPage <= PageSize-2 {
		if off := m.activeRead[p]; off != noPage {
			base := off + inPage
			return uint16(m.buf[base])<<8 | uint16(m.buf[base+1]), true
		}
		if dev := m.devices[p]; dev != nil {
			return dev.ReadU16(addr), true
		}
	}
	hi, ok1 := m.Read8WithFault(addr)
	lo, ok2 := m.Read8WithFault(addr + 1)
	return uint16(hi)<<8 | uint16(lo), ok1 && ok2
}

func (m *Map) Write16WithFault(addr uint32, value uint16) bool {
	p := m.pageOf(addr)
	inPage := addr & (PageSize - 1)
	if p < m.pageCount && inPage <= PageSize-2 {
		if off := m.activeWrite[p]; off != noPage {
			base := off + inPage
			m.buf[base] = byte(value >> 8)
			m.buf[base+1] = byte(value)
			return true
		}
		if dev := m.devices[p]; dev != nil {
			dev.WriteU16(addr, value)
			return true
		}
	}
	ok1 := m.Write8WithFault(addr, byte(value>>8))
	ok2 := m.Write8WithFault(addr+1, byte(value))
	return ok1 && ok2
}

// Read32WithFault performs a big-endian 32-bit read with the same
// straddling/device fallback as Read16WithFault.
func (m *Map) Read32WithFault(addr uint32) (uint32, bool) {
	p := m.pageOf(addr)
	inPage := addr & (PageSize - 1)
	if p < m.pageCount && inPage <= PageSize-4 {
		if off := m.activeRead[p]; off != noPage {
			base := off + inPage
			return uint32(m.buf[base])<<24 | uint32(m.buf[base+1])<<16 |
				uint32(m.buf[base+2])<<8 | uint32(m.buf[base+3]), true
		}
		if dev := m.devices[p]; dev != nil {
			return dev.ReadU32(addr), true
		}
	}
	hi, ok1 := m.Read16WithFault(addr)
	lo, ok2 := m.Read16WithFault(addr + 2)
	return uint32(hi)<<16 | uint32(lo), ok1 && ok2
}

func (m *Map) Write32WithFault(addr uint32, value uint32) bool {
	p := m.pageOf(addr)
	inPage := addr & (PageSize - 1)
	if p < m.pageCount && inPage <= PageSize-4 {
		if off := m.activeWrite[p]; off != noPage {
			base := off + inPage
			m.buf[base] = byte(value >> 24)
			m.buf[base+1] = byte(value >> 16)
			m.buf[base+2] = byte(value >> 8)
			m.buf[base+3] = byte(value)
			return true
		}
		if dev := m.devices[p]; dev != nil {
			dev.WriteU32(addr, value)
			return true
		}
	}
	ok1 := m.Write16WithFault(addr, uint16(value>>16))
	ok2 := m.Write16WithFault(addr+2, uint16(value))
	return ok1 && ok2
}

// ReadU8/ReadU16/ReadU32/WriteU8/WriteU16/WriteU32 are the plain
// spec.md §4.1 accessors for callers that don't care about bus-error
// reporting (peripherals poking at RAM, tests).
func (m *Map) ReadU8(addr uint32) uint8 {
	v, _ := m.Read8WithFault(addr)
	return v
}

func (m *Map) ReadU16(addr uint32) uint16 {
	v, _ := m.Read16WithFault(addr)
	return v
}

func (m *Map) ReadU32(addr uint32) uint32 {
	v, _ := m.Read32WithFault(addr)
	return v
}

func (m *Map) WriteU8(addr uint32, value uint8) {
	m.Write8WithFault(addr, value)
}

func (m *Map) WriteU16(addr uint32, value uint16) {
	m.Write16WithFault(addr, value)
}

func (m *Map) WriteU32(addr uint32, value uint32) {
	m.Write32WithFault(addr, value)
}
