package checkpoint

import "encoding/binary"

// rleEncode compresses data as a sequence of (run_length:4, byte:1)
// pairs, matching spec.md §4.7's "RLE compression over the RAM blob
// (long runs of zero in emulated RAM compress a 4 MiB image to a few
// KB for early-boot snapshots)". Runs are capped at 2^32-1, which
// never binds in practice for page-granular RAM content.
func rleEncode(data []byte) []byte {
	out := make([]byte, 0, len(data)/8+8)
	i := 0
	for i < len(data) {
		b := data[i]
		j := i + 1
		for j < len(data) && data[j] == b {
			j++
		}
		run := uint32(j - i)
		var hdr [5]byte
		binary.BigEndian.PutUint32(hdr[:4], run)
		hdr[4] = b
		out = append(out, hdr[:]...)
		i = j
	}
	return out
}

// rleDecode reverses rleEncode, reconstructing exactly size bytes.
func rleDecode(data []byte, size int) ([]byte, error) {
	out := make([]byte, 0, size)
	off := 0
	for off < len(data) {
		if off+5 > len(data) {
			return nil, errMalformed
		}
		run := binary.BigEndian.Uint32(data[off : off+4])
		b := data[off+4]
		off += 5
		for k := uint32(0); k < run; k++ {
			out = append(out, b)
		}
	}
	if len(out) != size {
		return nil, errMalformed
	}
	return out, nil
}
