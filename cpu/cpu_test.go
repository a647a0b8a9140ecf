package cpu

import "testing"

// fakeBus is a flat, unmapped-is-zero memory for CPU unit tests; it
// does not model the SoA fast path the memory package provides, only
// the Bus contract.
type fakeBus struct {
	mem        [1 << 20]byte
	supervisor bool
}

func (b *fakeBus) Read8WithFault(addr uint32) (uint8, bool) {
	return b.mem[addr&0xFFFFF], true
}
func (b *fakeBus) Write8WithFault(addr uint32, v uint8) bool {
	b.mem[addr&0xFFFFF] = v
	return true
}
func (b *fakeBus) Read16WithFault(addr uint32) (uint16, bool) {
	a := addr & 0xFFFFF
	return uint16(b.mem[a])<<8 | uint16(b.mem[a+1]), true
}
func (b *fakeBus) Write16WithFault(addr uint32, v uint16) bool {
	a := addr & 0xFFFFF
	b.mem[a] = byte(v >> 8)
	b.mem[a+1] = byte(v)
	return true
}
func (b *fakeBus) Read32WithFault(addr uint32) (uint32, bool) {
	hi, _ := b.Read16WithFault(addr)
	lo, _ := b.Read16WithFault(addr + 2)
	return uint32(hi)<<16 | uint32(lo), true
}
func (b *fakeBus) Write32WithFault(addr uint32, v uint32) bool {
	b.Write16WithFault(addr, uint16(v>>16))
	b.Write16WithFault(addr+2, uint16(v))
	return true
}
func (b *fakeBus) SetSupervisor(s bool) { b.supervisor = s }

func (b *fakeBus) putWord(addr uint32, v uint16) { b.Write16WithFault(addr, v) }

func newTestCPU() (*CPU, *fakeBus) {
	bus := &fakeBus{}
	bus.Write32WithFault(0, 0x00FF0000) // reset SSP
	bus.Write32WithFault(4, 0x00001000) // reset PC
	c := New(bus, false)
	return c, bus
}

func TestResetLoadsSSPAndPC(t *testing.T) {
	c, _ := newTestCPU()
	if c.Regs.SSP != 0x00FF0000 {
		t.Fatalf("SSP = %#x, want 0x00FF0000", c.Regs.SSP)
	}
	if c.Regs.PC != 0x00001000 {
		t.Fatalf("PC = %#x, want 0x00001000", c.Regs.PC)
	}
	if !c.Regs.Supervisor() {
		t.Fatal("reset must start in supervisor mode")
	}
}

func TestMOVEQSetsRegisterAndFlags(t *testing.T) {
	c, bus := newTestCPU()
	bus.putWord(0x1000, 0x7000) // MOVEQ #0,D0
	bus.putWord(0x1002, 0x4E71)

	residual, res := c.RunSprint(100)
	if res != BudgetExhausted {
		t.Fatalf("result = %v, want BudgetExhausted", res)
	}
	_ = residual
	if c.Regs.D[0] != 0 {
		t.Fatalf("D0 = %#x, want 0", c.Regs.D[0])
	}
	if c.Regs.SR&SRZero == 0 {
		t.Fatal("MOVEQ #0 must set the zero flag")
	}
}

func TestMOVEQNegativeSetsNegativeFlag(t *testing.T) {
	c, bus := newTestCPU()
	bus.putWord(0x1000, 0x70FF) // MOVEQ #-1,D0

	c.RunSprint(4)
	if c.Regs.D[0] != 0xFFFFFFFF {
		t.Fatalf("D0 = %#x, want 0xFFFFFFFF", c.Regs.D[0])
	}
	if c.Regs.SR&SRNegative == 0 {
		t.Fatal("MOVEQ #-1 must set the negative flag")
	}
}

func TestBRABranchesUnconditionally(t *testing.T) {
	c, bus := newTestCPU()
	bus.putWord(0x1000, 0x6002) // BRA +2 (skip next word)
	bus.putWord(0x1004, 0x7005) // MOVEQ #5,D0 (landing spot)

	c.RunSprint(100)
	if c.Regs.D[0] != 5 {
		t.Fatalf("D0 = %d, want 5 (branch must land past the skipped word)", c.Regs.D[0])
	}
}

func TestBSRAndRTSRoundTrip(t *testing.T) {
	c, bus := newTestCPU()
	bus.putWord(0x1000, 0x6102) // BSR +2
	bus.putWord(0x1002, 0x7009) // MOVEQ #9,D0 (never executed directly)
	bus.putWord(0x1004, 0x700A) // MOVEQ #10,D0, overwritten below
	bus.putWord(0x1006, 0x4E75) // RTS

	// subroutine at 0x1004 sets D0 then returns
	bus.putWord(0x1004, 0x7007) // MOVEQ #7,D0

	c.RunSprint(38) // BSR (18) + MOVEQ (4) + RTS (16)
	if c.Regs.D[0] != 7 {
		t.Fatalf("D0 = %d, want 7 (subroutine must have executed)", c.Regs.D[0])
	}
	if c.Regs.PC != 0x1002 {
		t.Fatalf("PC = %#x, want 0x1002 (RTS must return past the call site)", c.Regs.PC)
	}
}

func TestADDRegUpdatesFlags(t *testing.T) {
	c, bus := newTestCPU()
	c.Regs.D[0] = 1
	c.Regs.D[1] = 0xFFFFFFFF // -1
	bus.putWord(0x1000, 0xD081) // ADD.L D1,D0

	c.RunSprint(4)
	if c.Regs.D[0] != 0 {
		t.Fatalf("D0 = %#x, want 0 (1 + -1)", c.Regs.D[0])
	}
	if c.Regs.SR&SRZero == 0 || c.Regs.SR&SRCarry == 0 {
		t.Fatalf("SR = %#x, want Z and C set", c.Regs.SR)
	}
}

func TestTRAPVectorsThroughVBR(t *testing.T) {
	c, bus := newTestCPU()
	c.VBR = 0x2000
	bus.Write32WithFault(0x2000+VectorTrapBase*4, 0x00005000) // TRAP #0 handler
	bus.putWord(0x1000, 0x4E40) // TRAP #0

	c.RunSprint(34) // TRAP exception processing only
	if c.Regs.PC != 0x00005000 {
		t.Fatalf("PC = %#x, want 0x5000 (TRAP must vector through VBR)", c.Regs.PC)
	}
}

func TestBreakpointStopsExecution(t *testing.T) {
	c, bus := newTestCPU()
	bus.putWord(0x1000, 0x4E71) // NOP
	bus.putWord(0x1002, 0x4E71) // NOP

	dbg := c.Debugger()
	dbg.AddBreakpoint(0x1002, nil)

	_, res := c.RunSprint(100)
	if res != HitBreakpoint {
		t.Fatalf("result = %v, want HitBreakpoint", res)
	}
	if c.Regs.PC != 0x1002 {
		t.Fatalf("PC = %#x, want 0x1002 at the breakpoint", c.Regs.PC)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	c, _ := newTestCPU()
	c.Regs.D[3] = 0xCAFEBABE
	c.Regs.PC = 0x00002000
	c.RunSprint(0) // no-op, just to exercise a zero budget

	blob := c.Marshal()

	c2, bus2 := newTestCPU()
	_ = bus2
	if err := c2.Unmarshal(blob); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if c2.Regs.D[3] != 0xCAFEBABE {
		t.Fatalf("restored D3 = %#x, want 0xCAFEBABE", c2.Regs.D[3])
	}
	if c2.Regs.PC != 0x00002000 {
		t.Fatalf("restored PC = %#x, want 0x2000", c2.Regs.PC)
	}
}
