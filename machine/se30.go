package machine

import (
	"fmt"

	"github.com/gomac68k/core/cpu"
	"github.com/gomac68k/core/device"
	"github.com/gomac68k/core/event"
	"github.com/gomac68k/core/memory"
	"github.com/gomac68k/core/mmu"
	"github.com/gomac68k/core/peripherals"
)

// Macintosh SE/30 interrupt sources, matching spec.md §4.5's "SE/30
// adds VIA2->2, SCC->4, NMI->7 with strict priority" verbatim.
const (
	se30IRQVIA1 device.IRQSource = iota
	se30IRQVIA2
	se30IRQSCC
	se30IRQNMI
)

const (
	se30RAMSizeDefault = 4 << 20   // 4 MiB, the SE/30's common configuration
	se30RAMSizeMax     = 128 << 20 // 128 MiB, the practical 32-bit-clean ceiling
	se30ROMSize        = 256 * 1024
	se30ROMLogicalBase = 0x40800000
	se30OverlaySpan    = 0x01000000
	se30ClockHz        = 15667200

	// SE/30 peripherals sit behind a single MMIO window with $20000
	// mirroring (spec.md §4.9); each device gets its own sub-window
	// within it rather than literally replicating the mirror, since no
	// external consumer of this core inspects the raw mirrored
	// addresses — only per-device register behavior is observable.
	se30VIA1Base = 0x50F00000
	se30VIA2Base = 0x50F02000
	se30SCCBase  = 0x50F04000
	se30IWMBase  = 0x50F06000
	se30SCSIBase = 0x50F08000
	se30ASCBase  = 0x50F14000
	se30ADBBase  = 0x50F16000
	se30DeviceSpan = 0x2000
)

func init() {
	RegisterProfile(&Profile{
		ModelID:        ModelSE30,
		ModelName:      "Macintosh SE/30",
		CPUModel:       CPU68030,
		CPUClockHz:     se30ClockHz,
		MMUPresent:     true,
		FPUPresent:     false,
		AddressBits:    32,
		RAMSizeDefault: se30RAMSizeDefault,
		RAMSizeMax:     se30RAMSizeMax,
		ROMSize:        se30ROMSize,
		VIACount:       2,
		HasADB:         true,
		HasNuBus:       true,
		NuBusSlotCount: 2,
		Init:           initSE30,
		Teardown:       teardownSE30,
		UpdateIPL:      updateIPLSE30,
		TriggerVBL:     triggerVBLSE30,
		RedriveOutputs: redriveOutputsSE30,
	})
}

func initSE30(m *Machine, cfg Config, restore *Checkpoint) error {
	ramSize := cfg.RAMSize
	if ramSize == 0 {
		ramSize = se30RAMSizeDefault
	}
	if ramSize > se30RAMSizeMax {
		return fmt.Errorf("machine: SE/30 RAM size %d exceeds max %d", ramSize, se30RAMSizeMax)
	}
	if len(cfg.ROM) != 0 && uint32(len(cfg.ROM)) != se30ROMSize {
		return fmt.Errorf("machine: SE/30 ROM must be %d bytes, got %d", se30ROMSize, len(cfg.ROM))
	}

	mem := memory.New(memory.Address32, ramSize, se30ROMSize)
	copy(mem.Buffer()[ramSize:], cfg.ROM)
	mem.PopulatePages(se30ROMLogicalBase, se30ROMLogicalBase+se30ROMSize)
	// ROM mirrored at address 0 until a VIA bit clears it (spec.md §4.9).
	mem.SetOverlay(true, se30OverlaySpan, se30ROMSize)
	m.Mem = mem

	sched := event.New()
	m.Sched = sched

	c := cpu.New(mem, true)
	m.CPU = c

	pm := mmu.New(mem, &memoryDescriptorSource{mem: mem})
	m.MMU = pm

	via1 := peripherals.NewVIA("VIA1", sched, m.AssertIRQ, se30IRQVIA1)
	via2 := peripherals.NewVIA("VIA2", sched, m.AssertIRQ, se30IRQVIA2)
	scc := peripherals.NewSCC(m.AssertIRQ, se30IRQSCC)
	scsi := peripherals.NewSCSI(true, m.AssertIRQ, se30IRQVIA2)
	drive0 := peripherals.NewFloppy(true, 79, nil, 0)
	drive1 := peripherals.NewFloppy(true, 79, nil, 0)
	iwm := peripherals.NewIWM(drive0, drive1)
	sound := peripherals.NewSound(mem.Buffer())
	asc := peripherals.NewASC(m.AssertIRQ, se30IRQVIA2)
	adb := peripherals.NewADB(m.AssertIRQ, se30IRQVIA1)
	mouse := &peripherals.Mouse{}
	keyboard := &peripherals.Keyboard{}
	rtc := peripherals.NewRTC(sched, 0, func() {
		via1.SetCA2(true)
		via1.SetCA2(false)
	})
	rtc.Start(se30ClockHz)

	via1.SetPortAWriteHook(func(v uint8) {
		sound.SetVolume(v & 0x07)
		sound.SelectBuffer(v&0x08 == 0)
		if v&0x10 != 0 {
			mem.SetOverlay(false, se30OverlaySpan, se30ROMSize)
		} else {
			mem.SetOverlay(true, se30OverlaySpan, se30ROMSize)
		}
		drive0.SetSelSignal(v&0x20 != 0)
	})

	mem.AddDevice(se30VIA1Base, se30DeviceSpan, via1)
	mem.AddDevice(se30VIA2Base, se30DeviceSpan, via2)
	mem.AddDevice(se30SCCBase, se30DeviceSpan, scc)
	mem.AddDevice(se30IWMBase, se30DeviceSpan, iwm)
	mem.AddDevice(se30SCSIBase, se30DeviceSpan, scsi)
	mem.AddDevice(se30ASCBase, se30DeviceSpan, asc)
	mem.AddDevice(se30ADBBase, se30DeviceSpan, adb)

	m.Devices["via1"] = via1
	m.Devices["via2"] = via2
	m.Devices["scc"] = scc
	m.Devices["scsi"] = scsi
	m.Devices["iwm"] = iwm
	m.Devices["drive0"] = drive0
	m.Devices["drive1"] = drive1
	m.Devices["sound"] = sound
	m.Devices["asc"] = asc
	m.Devices["adb"] = adb
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
	m.RegisterComponent("via", &viaPairComponent{via1: via1, via2: via2})
	m.RegisterComponent("mouse", mouse)
	m.RegisterComponent("image_list", &imageListComponent{m: m})
	m.RegisterComponent("scsi", scsi)
	m.RegisterComponent("keyboard", keyboard)
	m.RegisterComponent("floppy", &floppySetComponent{
		controller: iwm,
		drives:     []Component{drive0, drive1},
	})
	m.RegisterComponent("adb", adb)
	m.RegisterComponent("asc", asc)

	if restore != nil {
		if err := m.Restore(restore); err != nil {
			return err
		}
		c.Reset()
		if err := m.Restore(restore); err != nil {
			return err
		}
		if err := m.ReopenImages(cfg.CheckpointDir); err != nil {
			return err
		}
	}
	return nil
}

func teardownSE30(m *Machine) {
	m.Devices = nil
}

// updateIPLSE30 implements spec.md §4.5's SE/30 table: VIA1->1,
// VIA2->2, SCC->4, NMI->7, strict priority (highest active wins).
func updateIPLSE30(m *Machine, source int, active bool) {
	m.SetSourceActive(source, active)
	level := uint8(0)
	switch {
	case m.SourceActive(int(se30IRQNMI)):
		level = 7
	case m.SourceActive(int(se30IRQSCC)):
		level = 4
	case m.SourceActive(int(se30IRQVIA2)):
		level = 2
	case m.SourceActive(int(se30IRQVIA1)):
		level = 1
	}
	m.SetIPL(level)
}

func triggerVBLSE30(m *Machine) {
	if via1, ok := m.Devices["via1"].(*peripherals.VIA); ok {
		via1.SetCA1(true)
		via1.SetCA1(false)
	}
	if sound, ok := m.Devices["sound"].(*peripherals.Sound); ok {
		sound.AdvancePhase()
	}
}

func redriveOutputsSE30(m *Machine) {
	if via1, ok := m.Devices["via1"].(*peripherals.VIA); ok {
		via1.RedriveOutputs()
	}
	if via2, ok := m.Devices["via2"].(*peripherals.VIA); ok {
		via2.RedriveOutputs()
	}
}
