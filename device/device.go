// Package device defines the uniform MMIO contract peripherals present
// to the memory map (spec.md §4.6). Unlike the teacher's opaque
// void*-context callback tables, each device variant is a concrete Go
// type implementing this interface directly — no context pointer or
// type erasure is needed at the call site, per the re-architecture
// note in spec.md §9.
package device

// Device is implemented by every MMIO peripheral attached to a memory
// map page range. The memory map calls exactly one of these six
// methods per access; the size is determined at the access site.
// Devices that natively operate on bytes must synthesize 16/32-bit
// accesses themselves as 2 or 4 big-endian byte operations.
//
// Implementations must be safely idempotent for reads with no side
// effect, and must guard against re-entrant calls from callbacks they
// trigger (the scheduler, the interrupt aggregator, or another
// device) — the memory map does not serialize access on a device's
// behalf.
type Device interface {
	ReadU8(offset uint32) uint8
	ReadU16(offset uint32) uint16
	ReadU32(offset uint32) uint32
	WriteU8(offset uint32, value uint8)
	WriteU16(offset uint32, value uint16)
	WriteU32(offset uint32, value uint32)
}

// IRQSource identifies a per-machine interrupt source bit, aggregated
// by a machine profile's UpdateIPL into a 3-bit IPL (spec.md §4.5).
type IRQSource int

// IRQCallback is installed into a device at construction time so it
// can assert or deassert its interrupt source without knowing which
// machine profile it is plugged into. Mirrors the teacher's
// callback-table mediation pattern (spec.md §9: "Inter-device calls
// are mediated by the Machine") instead of direct cyclic ownership
// between devices.
type IRQCallback func(source IRQSource, active bool)
