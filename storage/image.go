package storage

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Image is a disk image handle referenced by peripherals (floppy
// slot, SCSI target): a path, a writable flag, and the Storage backing
// it (spec.md §3). A machine's image list is checkpointed ahead of
// device state as (count, [path, writable, raw_size])×count.
type Image struct {
	Path     string
	Writable bool
	Storage  *Storage
	RawSize  int64
}

// OpenImage opens path as a raw disk image, backing it with a Storage
// directory at overlayDir (the checkpoint/overlay location for this
// image's versioned blocks). writable false rejects WriteBlock calls
// at the caller's discretion; this type does not itself enforce it,
// since read-only enforcement belongs to the peripheral addressing
// the image (matching spec.md's "writable" being informational
// metadata carried through the checkpoint, not a storage-layer lock).
func OpenImage(path string, writable bool, overlayDir string) (*Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("storage: open image %s: %w", path, err)
	}
	st, err := New(Config{Dir: overlayDir})
	if err != nil {
		return nil, err
	}
	return &Image{Path: path, Writable: writable, Storage: st, RawSize: info.Size()}, nil
}

// MarshalImageList encodes a machine's attached images as the blob
// format spec.md §6 defines: [count:4] ([path_len:4][path][writable:1]
// [raw_size:8])×count. The storage contents themselves are not
// included here; the checkpoint package appends them separately for a
// consolidated checkpoint.
func MarshalImageList(images []*Image) []byte {
	size := 4
	for _, im := range images {
		size += 4 + len(im.Path) + 1 + 8
	}
	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(images)))
	off := 4
	for _, im := range images {
		binary.BigEndian.PutUint32(buf[off:], uint32(len(im.Path)))
		off += 4
		off += copy(buf[off:], im.Path)
		if im.Writable {
			buf[off] = 1
		}
		off++
		binary.BigEndian.PutUint64(buf[off:], uint64(im.RawSize))
		off += 8
	}
	return buf
}

// UnmarshalImageList decodes the blob MarshalImageList produces back
// into lightweight descriptors; the caller (the checkpoint package,
// via the machine profile) is responsible for re-opening each image
// at its path, since a descriptor alone carries no live Storage.
type ImageDescriptor struct {
	Path     string
	Writable bool
	RawSize  int64
}

func UnmarshalImageList(data []byte) ([]ImageDescriptor, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("storage: image list: truncated")
	}
	count := binary.BigEndian.Uint32(data[0:4])
	off := 4
	out := make([]ImageDescriptor, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+4 > len(data) {
			return nil, fmt.Errorf("storage: image list: truncated path length")
		}
		pathLen := int(binary.BigEndian.Uint32(data[off:]))
		off += 4
		if off+pathLen+1+8 > len(data) {
			return nil, fmt.Errorf("storage: image list: truncated entry")
		}
		path := string(data[off : off+pathLen])
		off += pathLen
		writable := data[off] != 0
		off++
		rawSize := int64(binary.BigEndian.Uint64(data[off:]))
		off += 8
		out = append(out, ImageDescriptor{Path: path, Writable: writable, RawSize: rawSize})
	}
	return out, nil
}
