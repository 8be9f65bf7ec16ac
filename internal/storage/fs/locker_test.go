package fs

import (
	"sync"
	"testing"
)

func TestLockerSerializesPath(t *testing.T) {
	l := NewLocker()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("notes/a.md")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("expected 50 increments, got %d", counter)
	}
	if n := l.held(); n != 0 {
		t.Fatalf("expected no retained locks, got %d", n)
	}
}
