package fs

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.lock")
	first, err := AcquireFileLock(path)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if _, err := AcquireFileLockWithTimeout(path, 50*time.Millisecond); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	second, err := AcquireFileLockWithTimeout(path, time.Second)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	_ = second.Release()
}
