package sync

import (
	"fmt"
	"os"
	"path/filepath"
)

// lockFilename guards concurrent writes into the canonical store.
const lockFilename = ".sower.lock"

// Lock is an exclusive advisory lock on a directory, held as a lock file
// created with O_EXCL. A stale lock after a crash must be removed by hand;
// the error message names the file.
type Lock struct {
	path string
}

// AcquireLock takes the lock for dir, failing fast if another run holds it.
func AcquireLock(dir string) (*Lock, error) {
	p := filepath.Join(dir, lockFilename)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("another sync run is in progress (lock file %s exists; remove it if no run is active)", p)
		}
		return nil, fmt.Errorf("cannot acquire lock: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return &Lock{path: p}, nil
}

// Release removes the lock file.
func (l *Lock) Release() error {
	return os.Remove(l.path)
}
