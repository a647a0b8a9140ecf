//go:build unix

package storage

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// dirLock holds an advisory exclusive lock on a sentinel file inside
// the storage directory, so two machine processes never share one
// storage directory unnoticed (SPEC_FULL.md doesn't require this, but
// the teacher's save-state paths assume a single owning process and
// an unlocked directory under two `storage_write` callers would
// silently interleave version files).
type dirLock struct {
	f *os.File
}

func acquireDirLock(dir string) (*dirLock, error) {
	f, err := os.OpenFile(filepath.Join(dir, ".lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, err
	}
	return &dirLock{f: f}, nil
}

func (l *dirLock) release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
