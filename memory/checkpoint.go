package memory

import "fmt"

// RAMBytes returns the live RAM region of the flat buffer, for the
// checkpoint engine's "memory_map" component (spec.md §4.7). The page
// table itself is not serialized: it is rebuilt by the machine
// profile's memory_layout_init when the machine is re-created
// (spec.md §4.7 "Load order mirrors save order... for each
// machine-supplied init routine").
func (m *Map) RAMBytes() []byte { return m.buf[:m.ramSize] }

// RestoreRAM copies data into the RAM region. The slice length must
// match RAMSize(); a mismatch indicates a corrupt or foreign
// checkpoint stream.
func (m *Map) RestoreRAM(data []byte) error {
	if uint32(len(data)) != m.ramSize {
		return fmt.Errorf("memory: restore RAM size mismatch: got %d want %d", len(data), m.ramSize)
	}
	copy(m.buf[:m.ramSize], data)
	return nil
}
