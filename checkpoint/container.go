// Package checkpoint implements the on-disk container format spec.md
// §4.7/§6 define: an 8-byte header ("GSCHKPT" + a version digit)
// followed by every machine component's length-prefixed blob, in the
// exact order the machine profile registered them.
//
// Grounded in the teacher's save/load state machinery (debug_cpu_m68k.go
// checkpoint helpers and machine_bus.go's component enumeration) and in
// storage's advisory-lock convention (lock_unix.go), generalised from
// "one emulated chip's register file" to "every registered machine
// component, ordered and versioned" (SPEC_FULL.md's expansion).
//
// Open question resolved here (spec.md §9 flags none directly, but the
// spec text is internally inconsistent): §4.7 prose says "Version 3
// adds RLE compression" while §6 and the worked example in §8 test 5
// both tie RLE to version '2' (a file beginning with the version byte
// '2' is expected to compress a mostly-zero 4 MiB RAM image under 100
// KiB). This package follows §6/§8: version '2' is the RLE-compressed
// format, version '3' is the uncompressed format: Save writes the same
// component stream without RLE.
package checkpoint

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/gomac68k/core/machine"
)

const (
	magic         = "GSCHKPT"
	versionRLE    = '2'
	versionPlain  = '3'
	headerSize    = 8
	fileExtension = ".ckpt"
)

type formatError string

func (e formatError) Error() string { return "checkpoint: " + string(e) }

const (
	errBadMagic   formatError = "bad magic"
	errBadVersion formatError = "unsupported version"
	errTruncated  formatError = "truncated or malformed component stream"
	errMalformed  formatError = "malformed RLE stream"
)

// Save snapshots m at the given version ('2' for RLE-compressed RAM,
// '3' for the uncompressed format) and writes it to path.
func Save(m *machine.Machine, path string, version uint8) error {
	lock, err := acquireFileLock(path)
	if err != nil {
		return err
	}
	defer lock.release()

	if version != versionRLE && version != versionPlain {
		return errBadVersion
	}

	cp := m.Snapshot(version)
	order := m.ComponentOrder()

	out := make([]byte, 0, 1<<16)
	out = append(out, magic...)
	out = append(out, version)

	for _, name := range order {
		blob, _ := cp.Component(name)
		if version == versionRLE && name == "memory_map" {
			blob = rleEncode(blob)
		}
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(blob)))
		out = append(out, lenBuf[:]...)
		out = append(out, blob...)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load destroys current (tearing it down) and reconstructs a machine
// of the same model and configuration from the checkpoint at path,
// matching spec.md §4.7's "the entire machine is first destroyed, then
// re-created" discipline.
func Load(current *machine.Machine, path string) (*machine.Machine, error) {
	lock, err := acquireFileLock(path)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	version, body, err := parseContainer(data)
	if err != nil {
		return nil, err
	}

	id := current.Profile.ModelID
	cfg := current.Config
	current.Teardown()

	order, ramSize, err := discoverShape(id, cfg)
	if err != nil {
		return nil, err
	}

	components, err := decodeComponents(body, order, version, ramSize)
	if err != nil {
		return nil, err
	}

	return machine.New(id, cfg, &machine.Checkpoint{Version: version, Components: components})
}

// Probe reports whether path begins with a recognized magic/version
// and is internally consistent: every component's length prefix fits
// within the remaining file, and the stream is exactly consumed.
func Probe(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	_, body, err := parseContainer(data)
	if err != nil {
		return false
	}
	off := 0
	for off < len(body) {
		if off+4 > len(body) {
			return false
		}
		n := binary.BigEndian.Uint32(body[off:])
		off += 4
		if off+int(n) > len(body) {
			return false
		}
		off += int(n)
	}
	return off == len(body)
}

// Clear deletes every checkpoint file in dir (spec.md §6 "checkpoint
// clear"), used when the user declines to resume a prior session.
func Clear(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+fileExtension))
	if err != nil {
		return err
	}
	for _, f := range matches {
		if err := os.Remove(f); err != nil {
			return err
		}
	}
	return nil
}

func parseContainer(data []byte) (version uint8, body []byte, err error) {
	if len(data) < headerSize {
		return 0, nil, errTruncated
	}
	if string(data[:7]) != magic {
		return 0, nil, errBadMagic
	}
	v := data[7]
	if v != versionRLE && v != versionPlain {
		return 0, nil, errBadVersion
	}
	return v, data[headerSize:], nil
}

func decodeComponents(body []byte, order []string, version uint8, ramSize uint32) (map[string][]byte, error) {
	components := make(map[string][]byte, len(order))
	off := 0
	for _, name := range order {
		if off+4 > len(body) {
			return nil, errTruncated
		}
		n := binary.BigEndian.Uint32(body[off:])
		off += 4
		if off+int(n) > len(body) {
			return nil, errTruncated
		}
		blob := body[off : off+int(n)]
		off += int(n)
		if version == versionRLE && name == "memory_map" {
			decoded, err := rleDecode(blob, int(ramSize))
			if err != nil {
				return nil, err
			}
			blob = decoded
		}
		components[name] = append([]byte(nil), blob...)
	}
	return components, nil
}

// discoverShape constructs a throwaway cold machine to learn its
// component registration order and RAM size, which the profile's Init
// fixes independently of whether a checkpoint is supplied. The
// throwaway machine is torn down before returning.
func discoverShape(id machine.ModelID, cfg machine.Config) (order []string, ramSize uint32, err error) {
	cold, err := machine.New(id, cfg, nil)
	if err != nil {
		return nil, 0, err
	}
	order = cold.ComponentOrder()
	ramSize = cold.Mem.RAMSize()
	cold.Teardown()
	return order, ramSize, nil
}
