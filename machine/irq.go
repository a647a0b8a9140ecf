package machine

import "encoding/binary"

// irqStateComponent checkpoints the aggregate IPL and the
// active-interrupt-source bitmask (spec.md §3 "Interrupt State",
// §4.7's "irq_state" checkpoint component). Sources are small integers
// (VIA=0, SCC=1, ... per profile); a 32-bit bitmask comfortably covers
// every machine's source set.
type irqStateComponent struct {
	m *Machine
}

func (c *irqStateComponent) Marshal() []byte {
	var mask uint32
	for src := range c.m.activeSources {
		mask |= 1 << uint(src)
	}
	buf := make([]byte, 5)
	binary.BigEndian.PutUint32(buf[0:4], mask)
	buf[4] = c.m.ipl
	return buf
}

func (c *irqStateComponent) Unmarshal(data []byte) error {
	if len(data) != 5 {
		return checkpointComponentError("irq_state")
	}
	mask := binary.BigEndian.Uint32(data[0:4])
	c.m.activeSources = make(map[int]bool)
	for src := 0; src < 32; src++ {
		if mask&(1<<uint(src)) != 0 {
			c.m.activeSources[src] = true
		}
	}
	c.m.ipl = data[4]
	c.m.CPU.SetPendingIPL(c.m.ipl)
	return nil
}

type checkpointComponentError string

func (e checkpointComponentError) Error() string { return "machine: checkpoint component " + string(e) + " has wrong length" }

// registerIRQState is called once by each profile's Init to add the
// "irq_state" component at the position spec.md §4.7 lists it.
func (m *Machine) registerIRQState() {
	m.RegisterComponent("irq_state", &irqStateComponent{m: m})
}
