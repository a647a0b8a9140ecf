// Package machine assembles a concrete emulated Macintosh out of the
// core + peripherals (spec.md §4.9): it owns the memory map, CPU,
// scheduler, interrupt aggregation, image list, debugger and device
// instances for exactly one running machine, and exposes the static
// descriptor + lifecycle callbacks ("machine profile") that wire
// cold-boot or checkpoint-restore state into all of the above.
//
// Grounded in the teacher's constructor-driven component wiring
// (NewSystemBus, NewM68KCPU(bus), coprocessor_manager.go's per-core
// setup) generalised from "one engine, one chip" to "one engine,
// every peripheral a real Macintosh model carries" (SPEC_FULL.md's
// domain-stack expansion).
package machine

// Config is the ambient configuration passed into a profile's Init,
// mirroring the teacher's constructor-driven configuration rather
// than a global config singleton (SPEC_FULL.md "Configuration").
type Config struct {
	// RAMSize overrides the profile's default RAM size if nonzero and
	// no larger than the profile's RAMSizeMax.
	RAMSize uint32

	// ROM is the raw ROM image bytes, already read by the host; the
	// core never touches a filesystem path on its own account (file
	// I/O for ROM/disk images is a host-shell concern per spec.md §1).
	ROM []byte

	// SpeedMode records the requested wall-clock pacing (SPEC_FULL.md
	// §4.4). It is stored only: nothing in the core reads it, and the
	// scheduler runs unpaced whatever its value.
	SpeedMode SpeedMode

	// CheckpointDir is where SaveState/LoadState/Probe/Clear operate,
	// and where Storage directories for attached images default to.
	CheckpointDir string
}

// SpeedMode names a mapping of emulated cycles to host wall time
// (spec.md §4.4); see Config.SpeedMode.
type SpeedMode int

const (
	SpeedRealtime SpeedMode = iota
	SpeedHardware
	SpeedMax
)
