package machine

import (
	"fmt"

	"github.com/gomac68k/core/cpu"
	"github.com/gomac68k/core/device"
	"github.com/gomac68k/core/event"
	"github.com/gomac68k/core/memory"
	"github.com/gomac68k/core/peripherals"
)

// Macintosh Plus interrupt sources and their priority, matching
// spec.md §4.5's worked example verbatim: "for the Plus: VIA->1,
// SCC->2, combined by highest-numbered active".
const (
	plusIRQVIA device.IRQSource = iota
	plusIRQSCC
)

// Macintosh Plus physical address map. The real hardware's exact
// decode is considerably more redundant (many mirrored windows); this
// profile installs one canonical window per device, which is
// sufficient for every contract spec.md defines (the CPU/MMU/memory
// map invariants in §8 do not depend on mirror redundancy, only on a
// page being either RAM, ROM, or one named device).
const (
	plusRAMSizeDefault = 1 << 20 // 1 MiB, the original Plus's stock configuration
	plusRAMSizeMax     = 4 << 20 // 4 MiB, the Plus's documented maximum
	plusROMSize        = 128 * 1024
	plusROMBase        = 0x400000
	plusOverlaySpan    = 0x400000 // [0, 0x400000) is overlaid by ROM at boot
	plusClockHz        = 7833600

	plusVIABase  = 0xEF0000
	plusVIASpan  = 0x2000
	plusSCCBase  = 0x9F0000
	plusSCCSpan  = 0x2000
	plusIWMBase  = 0xDF0000
	plusIWMSpan  = 0x2000
	plusSCSIBase = 0x580000
	plusSCSISpan = 0x2000
)

func init() {
	RegisterProfile(&Profile{
		ModelID:        ModelPlus,
		ModelName:      "Macintosh Plus",
		CPUModel:       CPU68000,
		CPUClockHz:     plusClockHz,
		MMUPresent:     false,
		FPUPresent:     false,
		AddressBits:    24,
		RAMSizeDefault: plusRAMSizeDefault,
		RAMSizeMax:     plusRAMSizeMax,
		ROMSize:        plusROMSize,
		VIACount:       1,
		HasADB:         false,
		HasNuBus:       false,
		Init:           initPlus,
		Teardown:       teardownPlus,
		UpdateIPL:      updateIPLPlus,
		TriggerVBL:     triggerVBLPlus,
		RedriveOutputs: redriveOutputsPlus,
	})
}

func initPlus(m *Machine, cfg Config, restore *Checkpoint) error {
	ramSize := cfg.RAMSize
	if ramSize == 0 {
		ramSize = plusRAMSizeDefault
	}
	if ramSize > plusRAMSizeMax {
		return fmt.Errorf("machine: Plus RAM size %d exceeds max %d", ramSize, plusRAMSizeMax)
	}
	if len(cfg.ROM) != 0 && uint32(len(cfg.ROM)) != plusROMSize {
		return fmt.Errorf("machine: Plus ROM must be %d bytes, got %d", plusROMSize, len(cfg.ROM))
	}

	mem := memory.New(memory.Address24, ramSize, plusROMSize)
	copy(mem.Buffer()[ramSize:], cfg.ROM)
	mem.PopulatePages(plusROMBase, plusROMBase+plusROMSize)
	mem.SetOverlay(true, plusOverlaySpan, plusROMSize)
	m.Mem = mem

	sched := event.New()
	m.Sched = sched

	c := cpu.New(mem, false)
	m.CPU = c

	via := peripherals.NewVIA("VIA1", sched, m.AssertIRQ, plusIRQVIA)
	scc := peripherals.NewSCC(m.AssertIRQ, plusIRQSCC)
	scsi := peripherals.NewSCSI(false, nil, 0)
	drive0 := peripherals.NewFloppy(false, 79, nil, 0)
	drive1 := peripherals.NewFloppy(false, 79, nil, 0)
	iwm := peripherals.NewIWM(drive0, drive1)
	sound := peripherals.NewSound(mem.Buffer())
	mouse := &peripherals.Mouse{}
	keyboard := &peripherals.Keyboard{}
	rtc := peripherals.NewRTC(sched, 0, func() {
		via.SetCA2(true)
		via.SetCA2(false)
	})
	rtc.Start(plusClockHz)

	via.SetPortAWriteHook(func(v uint8) {
		sound.SetVolume(v & 0x07)
		sound.SelectBuffer(v&0x08 == 0)
		if v&0x10 != 0 {
			mem.SetOverlay(false, plusOverlaySpan, plusROMSize)
		} else {
			mem.SetOverlay(true, plusOverlaySpan, plusROMSize)
		}
		drive0.SetSelSignal(v&0x20 != 0)
	})

	mem.AddDevice(plusVIABase, plusVIASpan, via)
	mem.AddDevice(plusSCCBase, plusSCCSpan, scc)
	mem.AddDevice(plusIWMBase, plusIWMSpan, iwm)
	mem.AddDevice(plusSCSIBase, plusSCSISpan, scsi)

	m.Devices["via1"] = via
	m.Devices["scc"] = scc
	m.Devices["scsi"] = scsi
	m.Devices["iwm"] = iwm
	m.Devices["drive0"] = drive0
	m.Devices["drive1"] = drive1
	m.Devices["sound"] = sound
	m.Devices["mouse"] = mouse
	m.Devices["keyboard"] = keyboard
	m.Devices["rtc"] = rtc

	m.RegisterComponent("memory_map", &memoryComponent{mem: mem})
	m.RegisterComponent("cpu", c)
	m.RegisterComponent("scheduler", sched)
	m.registerIRQState()
	m.RegisterComponent("rtc", rtc)
	m.RegisterComponent("scc", scc)
	m.RegisterComponent("sound", sound)
	m.RegisterComponent("via", via)
	m.RegisterComponent("mouse", mouse)
	m.RegisterComponent("image_list", &imageListComponent{m: m})
	m.RegisterComponent("scsi", scsi)
	m.RegisterComponent("keyboard", keyboard)
	m.RegisterComponent("floppy", &floppySetComponent{
		controller: iwm,
		drives:     []Component{drive0, drive1},
	})

	if restore != nil {
		if err := m.Restore(restore); err != nil {
			return err
		}
		c.Reset() // re-applies SR.S to the bus; register values themselves were just restored
		if err := m.Restore(restore); err != nil { // Reset clobbered PC/SR/SSP; restore again to win
			return err
		}
		if err := m.ReopenImages(cfg.CheckpointDir); err != nil {
			return err
		}
	}
	return nil
}

func teardownPlus(m *Machine) {
	m.Devices = nil
}

// updateIPLPlus implements spec.md §4.5's worked example exactly:
// VIA asserts level 1, SCC asserts level 2, and the aggregate IPL is
// the highest-numbered currently active source.
func updateIPLPlus(m *Machine, source int, active bool) {
	m.SetSourceActive(source, active)
	level := uint8(0)
	if m.SourceActive(int(plusIRQSCC)) {
		level = 2
	} else if m.SourceActive(int(plusIRQVIA)) {
		level = 1
	}
	m.SetIPL(level)
}

func triggerVBLPlus(m *Machine) {
	if via, ok := m.Devices["via1"].(*peripherals.VIA); ok {
		via.SetCA1(true)
		via.SetCA1(false)
	}
	if sound, ok := m.Devices["sound"].(*peripherals.Sound); ok {
		sound.AdvancePhase()
	}
}

func redriveOutputsPlus(m *Machine) {
	if via, ok := m.Devices["via1"].(*peripherals.VIA); ok {
		via.RedriveOutputs()
	}
}
