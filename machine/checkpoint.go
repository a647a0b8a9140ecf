package machine

// Checkpoint is the decoded, in-memory form of a checkpoint stream's
// component blobs, keyed by the component name each profile registers
// under (spec.md §4.7). The top-level checkpoint package owns the
// on-disk container format (magic, version, RLE); this type is the
// seam between that format and a profile's Init/restore logic, so
// neither package needs to import the other's file-format or
// device-wiring concerns.
type Checkpoint struct {
	Version    uint8
	Components map[string][]byte
}

// Component returns the named blob, or ok=false if the stream didn't
// carry one (e.g. an older checkpoint saved before a component was
// added).
func (c *Checkpoint) Component(name string) (data []byte, ok bool) {
	if c == nil {
		return nil, false
	}
	data, ok = c.Components[name]
	return
}

// Snapshot walks the machine's registered components in checkpoint
// order and marshals each into a Checkpoint, for the checkpoint
// package to serialize to its container format.
func (m *Machine) Snapshot(version uint8) *Checkpoint {
	cp := &Checkpoint{Version: version, Components: make(map[string][]byte, len(m.components))}
	for _, nc := range m.components {
		cp.Components[nc.name] = nc.comp.Marshal()
	}
	return cp
}

// ComponentOrder returns the component names in the fixed order this
// machine's profile registered them, for the checkpoint package to
// write blobs in the order spec.md §4.7 requires.
func (m *Machine) ComponentOrder() []string {
	names := make([]string, len(m.components))
	for i, nc := range m.components {
		names[i] = nc.name
	}
	return names
}

// Restore applies every component blob present in cp to its matching
// registered component, in registration order. A component with no
// blob in cp (only possible when restoring an older, shorter
// checkpoint) is left at its cold-boot default. The first error
// aborts the pass and is returned, matching spec.md §4.7's sticky
// checkpoint_set_error behavior one layer up (the checkpoint package
// destroys the half-restored machine on any error).
func (m *Machine) Restore(cp *Checkpoint) error {
	for _, nc := range m.components {
		data, ok := cp.Component(nc.name)
		if !ok {
			continue
		}
		if err := nc.comp.Unmarshal(data); err != nil {
			return err
		}
	}
	return nil
}
