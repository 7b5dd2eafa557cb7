//go:build unix || linux || darwin

// flock(2) implementation for Unix platforms, mirroring the teacher's
// lock_unix.go.
package rwhois

import (
	"os"
	"syscall"
)

func flockFile(f *os.File, mode LockMode) error {
	op := syscall.LOCK_SH
	if mode == LockExclusive {
		op = syscall.LOCK_EX
	}
	return syscall.Flock(int(f.Fd()), op)
}

func funlockFile(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
