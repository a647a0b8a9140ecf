package machine

import (
	"fmt"

	"github.com/gomac68k/core/cpu"
	"github.com/gomac68k/core/device"
	"github.com/gomac68k/core/event"
	"github.com/gomac68k/core/logging"
	"github.com/gomac68k/core/memory"
	"github.com/gomac68k/core/mmu"
	"github.com/gomac68k/core/storage"
)

// Component is implemented by every checkpointed part of a machine:
// the memory map, CPU, scheduler, interrupt state and every
// peripheral. A Component's Marshal/Unmarshal pair is what the
// checkpoint engine calls for that part's length-prefixed blob
// (spec.md §4.7).
type Component interface {
	Marshal() []byte
	Unmarshal([]byte) error
}

// namedComponent pairs a Component with the name its checkpoint blob
// is saved/restored under, in the fixed order spec.md §4.7 prescribes
// per profile.
type namedComponent struct {
	name string
	comp Component
}

// Machine owns every part of one running emulated Macintosh:
// exclusively the memory map, CPU, scheduler, interrupt state, image
// list, debugger and device instances (spec.md §3 "Ownership").
// Devices hold only non-owning references to these, obtained at
// construction time by the profile's Init.
type Machine struct {
	Profile *Profile
	Config  Config

	Mem   *memory.Map
	CPU   *cpu.CPU
	Sched *event.Scheduler
	MMU   *mmu.MMU // nil unless Profile.MMUPresent

	Images []*storage.Image

	// VideoBase is the physical address of the top-left byte of the
	// full 512x342 1-bit framebuffer (spec.md §6 "screenshot"). Neither
	// profile's Init sets it, so it stays 0 unless the host assigns it
	// (the classic Macintosh places it near the top of RAM, per Inside
	// Macintosh).
	VideoBase uint32

	// pendingImageDescriptors holds the image list decoded from a
	// checkpoint's "image_list" component until the profile's Init
	// re-opens each path into a live *storage.Image (Unmarshal itself
	// cannot do host I/O safely mid-restore-pass, per spec.md §4.7's
	// "partial state is discarded by destroying the machine" — I/O
	// failures here must surface through Init's own error return).
	pendingImageDescriptors []storage.ImageDescriptor

	Log *logging.Logger

	activeSources map[int]bool
	ipl           uint8

	components []namedComponent

	// devices holds every peripheral by name for the profile's own
	// wiring code and for RedriveOutputs to reach; machine itself
	// never interprets these beyond storing the reference.
	Devices map[string]any

	status Status
}

// Status mirrors the shell's exit-code contract for the `status`
// command (spec.md §6: 0=stopped, 1=running, 2=idle).
type Status int

const (
	StatusStopped Status = 0
	StatusRunning Status = 1
	StatusIdle    Status = 2
)

// New creates a machine for the given model, wiring it cold (restore
// == nil) or from a checkpoint's decoded component set.
func New(id ModelID, cfg Config, restore *Checkpoint) (*Machine, error) {
	profile, err := LookupProfile(id)
	if err != nil {
		return nil, err
	}
	m := &Machine{
		Profile:       profile,
		Config:        cfg,
		Log:           logging.Default,
		activeSources: make(map[int]bool),
		Devices:       make(map[string]any),
		status:        StatusStopped,
	}
	if err := profile.Init(m, cfg, restore); err != nil {
		return nil, fmt.Errorf("machine: init %s: %w", profile.ModelName, err)
	}
	if restore != nil {
		if profile.RedriveOutputs != nil {
			profile.RedriveOutputs(m)
		}
	}
	return m, nil
}

// Teardown releases the machine's resources via the profile's
// Teardown callback (spec.md §9 "explicit reverse-init sequence").
// After Teardown the Machine must not be used again.
func (m *Machine) Teardown() {
	if m.Profile.Teardown != nil {
		m.Profile.Teardown(m)
	}
}

// RegisterComponent appends a named, checkpoint-ordered component.
// Profiles call this during Init, in the exact order spec.md §4.7
// lists for that model, immediately after constructing each device.
func (m *Machine) RegisterComponent(name string, comp Component) {
	m.components = append(m.components, namedComponent{name: name, comp: comp})
}

// AssertIRQ is the device.IRQCallback every peripheral is constructed
// with; it forwards to the profile's UpdateIPL, which is the only
// place the active-source bitmask and aggregate IPL are computed
// (spec.md §4.5, §9 "Inter-device calls are mediated by the Machine").
func (m *Machine) AssertIRQ(source device.IRQSource, active bool) {
	if m.Profile.UpdateIPL != nil {
		m.Profile.UpdateIPL(m, int(source), active)
	}
}

// SetSourceActive updates the machine's active-interrupt-source
// bitmask, for a profile's UpdateIPL implementation to call before
// recomputing the aggregate IPL.
func (m *Machine) SetSourceActive(source int, active bool) {
	if active {
		m.activeSources[source] = true
	} else {
		delete(m.activeSources, source)
	}
}

// SourceActive reports whether source is currently asserting its
// interrupt line.
func (m *Machine) SourceActive(source int) bool { return m.activeSources[source] }

// SetIPL pushes a newly computed aggregate IPL to the CPU and requests
// a reschedule, matching spec.md §4.5 step (iii).
func (m *Machine) SetIPL(level uint8) {
	m.ipl = level
	m.CPU.SetPendingIPL(level)
	m.CPU.Reschedule()
}

// ReopenImages re-opens every image descriptor decoded from a
// restored "image_list" component into a live *storage.Image,
// appending to m.Images. Called by a profile's Init after Restore
// succeeds; a path that fails to open aborts the restore (spec.md
// §4.7 "partial state is discarded by destroying the machine").
func (m *Machine) ReopenImages(overlayDir string) error {
	for _, d := range m.pendingImageDescriptors {
		img, err := storage.OpenImage(d.Path, d.Writable, overlayDir)
		if err != nil {
			return err
		}
		m.Images = append(m.Images, img)
	}
	m.pendingImageDescriptors = nil
	return nil
}

// IPL returns the last computed aggregate interrupt priority level.
func (m *Machine) IPL() uint8 { return m.ipl }

// Status reports the scheduler-derived run state (spec.md §4.4).
func (m *Machine) Status() Status { return m.status }
