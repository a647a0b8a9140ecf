package storage

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Each .dat file is a small self-contained container: a count of
// (lba, block) pairs followed by the pairs themselves, big-endian
// throughout to match this module's other on-disk formats.

func writeVersionFile(path string, v *version) error {
	buf := make([]byte, 0, 4+len(v.blocks)*(8+BlockSize))
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(v.blocks)))
	buf = append(buf, countBuf[:]...)
	for lba, data := range v.blocks {
		var lbaBuf [8]byte
		binary.BigEndian.PutUint64(lbaBuf[:], lba)
		buf = append(buf, lbaBuf[:]...)
		buf = append(buf, data...)
	}
	return os.WriteFile(path, buf, 0o644)
}

func readVersionFile(path string) (*version, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("storage: %s: truncated version file", path)
	}
	count := binary.BigEndian.Uint32(data[0:4])
	off := 4
	v := &version{blocks: make(map[uint64][]byte, count)}
	for i := uint32(0); i < count; i++ {
		if off+8+BlockSize > len(data) {
			return nil, fmt.Errorf("storage: %s: truncated block record", path)
		}
		lba := binary.BigEndian.Uint64(data[off:])
		off += 8
		block := make([]byte, BlockSize)
		copy(block, data[off:off+BlockSize])
		off += BlockSize
		v.blocks[lba] = block
	}
	return v, nil
}
