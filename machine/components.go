package machine

import (
	"github.com/gomac68k/core/memory"
	"github.com/gomac68k/core/storage"
)

func marshalImageList(images []*storage.Image) []byte {
	return storage.MarshalImageList(images)
}

func unmarshalImageList(data []byte) ([]storage.ImageDescriptor, error) {
	return storage.UnmarshalImageList(data)
}

// floppySetComponent bundles a machine's IWM/SWIM controller and its
// attached drives into the single "floppy" checkpoint component
// spec.md §4.7 lists, since the controller and its drives are never
// checkpointed independently.
type floppySetComponent struct {
	controller Component
	drives     []Component
}

func (c *floppySetComponent) Marshal() []byte {
	var out []byte
	out = append(out, lengthPrefixed(c.controller.Marshal())...)
	for _, d := range c.drives {
		out = append(out, lengthPrefixed(d.Marshal())...)
	}
	return out
}

func (c *floppySetComponent) Unmarshal(data []byte) error {
	rest := data
	blob, rest, err := takeLengthPrefixed(rest)
	if err != nil {
		return err
	}
	if err := c.controller.Unmarshal(blob); err != nil {
		return err
	}
	for _, d := range c.drives {
		blob, rest, err = takeLengthPrefixed(rest)
		if err != nil {
			return err
		}
		if err := d.Unmarshal(blob); err != nil {
			return err
		}
	}
	return nil
}

func lengthPrefixed(b []byte) []byte {
	out := make([]byte, 4+len(b))
	out[0] = byte(len(b) >> 24)
	out[1] = byte(len(b) >> 16)
	out[2] = byte(len(b) >> 8)
	out[3] = byte(len(b))
	copy(out[4:], b)
	return out
}

func takeLengthPrefixed(data []byte) (blob []byte, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, checkpointComponentError("floppy (truncated length prefix)")
	}
	n := int(data[0])<<24 | int(data[1])<<16 | int(data[2])<<8 | int(data[3])
	if len(data) < 4+n {
		return nil, nil, checkpointComponentError("floppy (truncated blob)")
	}
	return data[4 : 4+n], data[4+n:], nil
}

// viaPairComponent bundles both of the SE/30's VIA instances into the
// single "via" checkpoint component spec.md §4.7 names (the Plus has
// only one VIA and registers it directly).
type viaPairComponent struct {
	via1, via2 Component
}

func (c *viaPairComponent) Marshal() []byte {
	var out []byte
	out = append(out, lengthPrefixed(c.via1.Marshal())...)
	out = append(out, lengthPrefixed(c.via2.Marshal())...)
	return out
}

func (c *viaPairComponent) Unmarshal(data []byte) error {
	blob, rest, err := takeLengthPrefixed(data)
	if err != nil {
		return err
	}
	if err := c.via1.Unmarshal(blob); err != nil {
		return err
	}
	blob, _, err = takeLengthPrefixed(rest)
	if err != nil {
		return err
	}
	return c.via2.Unmarshal(blob)
}

// memoryComponent adapts memory.Map's RAMBytes/RestoreRAM pair to the
// Component interface; cpu.CPU and event.Scheduler already expose
// Marshal/Unmarshal directly and register as components unadapted.
type memoryComponent struct {
	mem *memory.Map
}

func (c *memoryComponent) Marshal() []byte { return c.mem.RAMBytes() }

func (c *memoryComponent) Unmarshal(data []byte) error { return c.mem.RestoreRAM(data) }

// imageListComponent checkpoints the machine's attached disk/floppy
// images as the blob format spec.md §6 defines (spec.md §4.7's
// "image_list" component, checkpointed ahead of the devices that
// reference them).
type imageListComponent struct {
	m *Machine
}

func (c *imageListComponent) Marshal() []byte {
	return marshalImageList(c.m.Images)
}

func (c *imageListComponent) Unmarshal(data []byte) error {
	descs, err := unmarshalImageList(data)
	if err != nil {
		return err
	}
	c.m.pendingImageDescriptors = descs
	return nil
}
