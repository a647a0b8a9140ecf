//go:build unix

package checkpoint

import (
	"os"

	"golang.org/x/sys/unix"
)

// fileLock holds an advisory exclusive lock alongside the checkpoint
// path, so a save is never observed half-written by a concurrent
// probe or load (spec.md §4.7's sticky checkpoint_set_error discipline
// extended to the file itself, grounded in storage's dirLock).
type fileLock struct {
	f *os.File
}

func acquireFileLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, err
	}
	return &fileLock{f: f}, nil
}

func (l *fileLock) release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
