package machine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gomac68k/core/cpu"
)

// This file implements the shell command surface spec.md §6 lists as
// "stable contracts consumed by the core": the command parser and
// text formatting themselves are the out-of-scope shell, but every
// operation it invokes is a plain method on Machine here, grounded in
// the teacher's command-handler functions (cli.go's per-command Go
// funcs taking already-parsed arguments rather than a raw string).

const defaultSlice = 4096 // cycles per scheduler quantum absent an earlier event deadline

// Run advances the scheduler by at most maxCycles (0 means "until
// stopped"), matching spec.md §4.4's quantum loop: each iteration
// bounds the CPU sprint by the earliest pending event deadline, runs
// it, advances the cycle clock by what was spent, then drains due
// events in deadline order.
func (m *Machine) Run(maxCycles uint64) cpu.SprintResult {
	m.status = StatusRunning
	var executed uint64
	for maxCycles == 0 || executed < maxCycles {
		budget := uint32(defaultSlice)
		if deadline, ok := m.Sched.NextDeadline(); ok {
			if remaining := deadline - m.Sched.Cycle(); remaining < uint64(budget) {
				budget = uint32(remaining)
			}
		}
		if maxCycles != 0 {
			if left := maxCycles - executed; uint64(budget) > left {
				budget = uint32(left)
			}
		}
		if budget == 0 {
			budget = 1
		}

		before := m.CPU.Cycles()
		_, result := m.CPU.RunSprint(budget)
		spent := uint32(m.CPU.Cycles() - before) // includes any overshoot of the last instruction
		m.Sched.Advance(spent)
		executed += uint64(spent)
		m.Sched.RunTo()

		switch result {
		case cpu.Stopped:
			m.status = StatusStopped
			return result
		case cpu.HitBreakpoint, cpu.BusError, cpu.AddressError:
			m.status = StatusStopped
			return result
		case cpu.Completed:
			if m.CPU.Halted() {
				m.status = StatusIdle
				return result
			}
		}
	}
	return cpu.BudgetExhausted
}

// Stop requests the running sprint exit at the next instruction
// boundary (spec.md §6 "stop").
func (m *Machine) Stop() {
	m.CPU.Debugger().RequestStop()
	m.status = StatusStopped
}

// Step single-steps n instructions (default 1 if n <= 0), returning
// the sprint result of the last one, matching spec.md §6 "s [N]".
func (m *Machine) Step(n int) cpu.SprintResult {
	if n <= 0 {
		n = 1
	}
	start := m.CPU.Instructions()
	var result cpu.SprintResult
	for m.CPU.Instructions() < start+uint64(n) {
		result = m.Run(1) // a one-cycle budget retires exactly one instruction
		if result != cpu.BudgetExhausted && result != cpu.Completed {
			break
		}
	}
	return result
}

// Get resolves a shell `get` target: a register name, or an
// "address.size" memory reference (size one of b/w/l). Matches
// spec.md §6's "returns the value as the exit code (zero-extended)".
func (m *Machine) Get(target string) (value uint32, err error) {
	if reg, ok := m.CPU.GetRegister(target); ok {
		return reg, nil
	}
	addr, size, err := parseMemRef(target)
	if err != nil {
		return 0, err
	}
	switch size {
	case 'b':
		return uint32(m.Mem.ReadU8(addr)), nil
	case 'w':
		return uint32(m.Mem.ReadU16(addr)), nil
	default:
		return m.Mem.ReadU32(addr), nil
	}
}

// Set resolves a shell `set` target the same way Get does, writing
// value. Matches spec.md §6's "set ... returns 0".
func (m *Machine) Set(target string, value uint32) error {
	if m.CPU.SetRegister(target, value) {
		return nil
	}
	addr, size, err := parseMemRef(target)
	if err != nil {
		return err
	}
	switch size {
	case 'b':
		m.Mem.WriteU8(addr, uint8(value))
	case 'w':
		m.Mem.WriteU16(addr, uint16(value))
	default:
		m.Mem.WriteU32(addr, value)
	}
	return nil
}

func parseMemRef(target string) (addr uint32, size byte, err error) {
	dot := strings.LastIndexByte(target, '.')
	if dot < 0 || dot != len(target)-2 {
		return 0, 0, fmt.Errorf("machine: %q is not a register or address.size reference", target)
	}
	size = target[dot+1]
	if size != 'b' && size != 'w' && size != 'l' {
		return 0, 0, fmt.Errorf("machine: unknown size suffix %q", target[dot+1:])
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(target[:dot], "0x"), 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("machine: bad address %q: %w", target[:dot], err)
	}
	return uint32(n), size, nil
}

// AddBreakpoint installs a PC breakpoint (spec.md §6 "br <addr>").
func (m *Machine) AddBreakpoint(addr uint32) uint32 {
	return m.CPU.Debugger().AddBreakpoint(addr, nil)
}

// AddLogpoint installs a non-stopping logpoint (spec.md §6 "logpoint
// <addr> [message] [category=<name>] [level=<n>]").
func (m *Machine) AddLogpoint(addr uint32, message, category string, level int) {
	m.CPU.Debugger().Log = m.Log
	m.CPU.Debugger().AddLogpoint(cpu.Logpoint{Address: addr, Message: message, Category: category, Level: level})
}

// SetLogThreshold implements spec.md §6 "log <category> <level>".
func (m *Machine) SetLogThreshold(category string, level int) {
	m.Log.SetThreshold(category, level)
}

// save-state/load-state/checkpoint clear (spec.md §6) are implemented
// by the top-level checkpoint package (Save/Load/Probe/Clear) rather
// than as Machine methods here: that package needs machine.Machine/
// Config/ModelID to reconstruct a machine from a loaded stream, and Go
// does not allow that import cycle back into this package. Snapshot
// and Restore above are the seam it calls through.
