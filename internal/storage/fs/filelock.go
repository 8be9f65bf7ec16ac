package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

var ErrLockTimeout = errors.New("lock timeout")

// FileLock is an advisory flock held by one process, used to keep two
// indexers off the same database.
type FileLock struct {
	path string
	file *os.File
}

func AcquireFileLock(path string) (*FileLock, error) {
	return AcquireFileLockWithTimeout(path, 0)
}

// AcquireFileLockWithTimeout blocks until the lock is free, or fails with
// ErrLockTimeout once timeout has passed. A zero timeout waits forever.
func AcquireFileLockWithTimeout(path string, timeout time.Duration) (*FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX); err != nil {
			_ = file.Close()
			return nil, err
		}
		return newFileLock(path, file), nil
	}

	deadline := time.Now().Add(timeout)
	wait := 10 * time.Millisecond
	for {
		err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) && !errors.Is(err, syscall.EAGAIN) {
			_ = file.Close()
			return nil, err
		}
		if time.Now().After(deadline) {
			_ = file.Close()
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}
		time.Sleep(wait)
		if wait < 200*time.Millisecond {
			wait *= 2
		}
	}
	return newFileLock(path, file), nil
}

func newFileLock(path string, file *os.File) *FileLock {
	_ = file.Truncate(0)
	_, _ = file.WriteAt([]byte(fmt.Sprintf("%d\n", os.Getpid())), 0)
	return &FileLock{path: path, file: file}
}

func (l *FileLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = l.file.Close()
		return err
	}
	err := l.file.Close()
	l.file = nil
	return err
}
