package machine

import "fmt"

// ModelID identifies a supported machine profile.
type ModelID int

const (
	ModelPlus ModelID = iota
	ModelSE30
)

// Profile is the static descriptor + lifecycle callbacks spec.md §4.9
// defines: a machine is created by looking up a profile by ID and
// invoking its Init, which is "the single place that wires every
// component".
type Profile struct {
	ModelID   ModelID
	ModelName string

	CPUModel   CPUModel
	CPUClockHz uint32

	MMUPresent bool
	FPUPresent bool

	AddressBits    int
	RAMSizeDefault uint32
	RAMSizeMax     uint32
	ROMSize        uint32

	VIACount       int
	HasADB         bool
	HasNuBus       bool
	NuBusSlotCount int

	// Init wires every component (memory map, CPU, scheduler, devices)
	// for a fresh Machine, or restores them from a non-nil checkpoint
	// set of component blobs (spec.md §4.7, §4.9).
	Init func(m *Machine, cfg Config, restore *Checkpoint) error

	// Teardown releases resources in reverse-init order (spec.md §9
	// "Recursive destruction order").
	Teardown func(m *Machine)

	// UpdateIPL folds an interrupt source's active/inactive transition
	// into the machine's aggregate IPL and pushes it to the CPU
	// (spec.md §4.5).
	UpdateIPL func(m *Machine, source int, active bool)

	// TriggerVBL is called by the (out-of-core) video tick once per
	// frame; it pulses the VBL input and advances sound DMA (spec.md
	// §4.9). It does not touch the attached images: their Storage.Tick
	// consolidation runs only when called directly.
	TriggerVBL func(m *Machine)

	// RedriveOutputs re-asserts every device's externally observable
	// output lines after a checkpoint restore (spec.md §4.7).
	RedriveOutputs func(m *Machine)
}

// CPUModel selects the 68000-family variant a profile's CPU runs.
type CPUModel int

const (
	CPU68000 CPUModel = iota
	CPU68030
)

var registry = map[ModelID]*Profile{}

// RegisterProfile installs p into the profile registry under
// p.ModelID, called once at package init by each profile's own file
// (plus.go, se30.go) rather than requiring callers to know the full
// set of supported models up front.
func RegisterProfile(p *Profile) {
	registry[p.ModelID] = p
}

// LookupProfile returns the registered profile for id.
func LookupProfile(id ModelID) (*Profile, error) {
	p, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("machine: no profile registered for model %d", id)
	}
	return p, nil
}
