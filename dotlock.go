// Dot-lock coordination for the master file list.
//
// A dot-lock (a lock file named ".local.db.lock" next to local.db) guards
// the read-modify-write cycle of the per-(class, authority-area) master
// file list, per spec.md §5: a writer holds it for the whole cycle,
// readers take it briefly. Adapted from the teacher's fileLock (lock.go),
// which wrapped flock(2)/LockFileEx around a single shared handle; here
// the lock file is opened fresh per acquisition since callers are
// independent goroutines/processes operating on the same directory rather
// than one DB's long-lived handle.
package rwhois

import (
	"os"
	"path/filepath"
)

// dotLock is a directory-scoped, OS-level advisory lock.
type dotLock struct {
	path string
	f    *os.File
}

func newDotLock(dir string) *dotLock {
	return &dotLock{path: filepath.Join(dir, ".local.db.lock")}
}

// Lock acquires the lock, blocking until available. mode selects shared
// (read) or exclusive (write) semantics.
func (d *dotLock) Lock(mode LockMode) error {
	f, err := os.OpenFile(d.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return newErr(KindConcurrency, "open dot-lock", err)
	}
	if err := flockFile(f, mode); err != nil {
		f.Close()
		return newErr(KindConcurrency, "acquire dot-lock", ErrLockBusy)
	}
	d.f = f
	return nil
}

// Unlock releases the lock and closes the backing handle.
func (d *dotLock) Unlock() error {
	if d.f == nil {
		return nil
	}
	funlockFile(d.f)
	err := d.f.Close()
	d.f = nil
	return err
}

// LockMode selects shared or exclusive locking, mirroring the teacher's
// LockMode in lock.go.
type LockMode int

const (
	LockShared LockMode = iota
	LockExclusive
)
