package memory

import "testing"

func TestPopulatePagesRAMAndROM(t *testing.T) {
	m := New(Address24, 4*1024*1024, 64*1024)
	romStart := uint32(0x400000)
	romEnd := romStart + 64*1024
	m.PopulatePages(romStart, romEnd)

	if !m.IsFastPathMapped(0x1000) {
		t.Fatal("RAM page should be fast-path mapped")
	}
	if !m.PageWritable(0x1000) {
		t.Fatal("RAM page should be writable")
	}

	if !m.IsFastPathMapped(romStart) {
		t.Fatal("ROM page should be fast-path mapped for reads")
	}
	if m.PageWritable(romStart) {
		t.Fatal("ROM page must not be fast-path writable")
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	m := New(Address24, 1024*1024, 64*1024)
	m.PopulatePages(0xF00000, 0xF10000)

	m.WriteU8(0x1000, 0x42)
	if got := m.ReadU8(0x1000); got != 0x42 {
		t.Fatalf("ReadU8 = %#x, want 0x42", got)
	}

	m.WriteU16(0x2000, 0x1234)
	if got := m.ReadU16(0x2000); got != 0x1234 {
		t.Fatalf("ReadU16 = %#x, want 0x1234", got)
	}

	m.WriteU32(0x3000, 0xDEADBEEF)
	if got := m.ReadU32(0x3000); got != 0xDEADBEEF {
		t.Fatalf("ReadU32 = %#x, want 0xDEADBEEF", got)
	}
}

func TestPageBoundaryStraddle(t *testing.T) {
	m := New(Address24, 1024*1024, 0)
	m.PopulatePages(0, 0)

	addr := uint32(PageSize - 2)
	m.WriteU32(addr, 0x11223344)
	if got := m.ReadU32(addr); got != 0x11223344 {
		t.Fatalf("straddling ReadU32 = %#x, want 0x11223344", got)
	}
}

func TestInvalidateTLBZeroesAllQuartets(t *testing.T) {
	m := New(Address24, 1024*1024, 64*1024)
	m.PopulatePages(0xF00000, 0xF10000)

	m.InvalidateTLB()

	for _, arr := range [][]uint32{m.supRead, m.supWrite, m.usrRead, m.usrWrite} {
		for _, v := range arr {
			if v != noPage {
				t.Fatal("InvalidateTLB must zero every page entry")
			}
		}
	}
}

func TestUnmappedReadWithoutBusErrorPolicy(t *testing.T) {
	m := New(Address24, 1024*1024, 0)
	// Nothing populated: every page is unmapped.
	if got := m.ReadU8(0x500000); got != 0 {
		t.Fatalf("unmapped read = %#x, want 0", got)
	}
	_, ok := m.Read8WithFault(0x500000)
	if !ok {
		t.Fatal("unmapped read without bus-error policy must report ok")
	}
}

func TestUnmappedReadWithBusErrorPolicy(t *testing.T) {
	m := New(Address24, 1024*1024, 0)
	m.SetBusErrorOnUnmapped(true)
	_, ok := m.Read8WithFault(0x500000)
	if ok {
		t.Fatal("unmapped read with bus-error policy must report fault")
	}
}

func TestMirrorRAMSharesBasePointer(t *testing.T) {
	m := New(Address24, 128*1024, 0)
	m.PopulatePages(0, 0)
	m.MirrorRAM(0x100000, 1024*1024, 128*1024)

	m.WriteU8(0x1000, 0x99)
	if got := m.ReadU8(0x100000 + 0x1000); got != 0x99 {
		t.Fatalf("mirrored read = %#x, want 0x99 (mirroring must share host bytes)", got)
	}
}

func TestSetSupervisorSwitchesActiveQuartet(t *testing.T) {
	m := New(Address24, 1024*1024, 0)
	m.PopulatePages(0, 0)
	// Make the page supervisor-only by hand.
	p := m.pageOf(0x1000)
	m.usrRead[p] = noPage
	m.usrWrite[p] = noPage

	m.SetSupervisor(false)
	if m.IsFastPathMapped(0x1000) {
		t.Fatal("page should not be user-mapped")
	}
	m.SetSupervisor(true)
	if !m.IsFastPathMapped(0x1000) {
		t.Fatal("page should be supervisor-mapped")
	}
}
