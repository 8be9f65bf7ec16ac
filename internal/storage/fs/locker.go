package fs

import "sync"

// Locker serializes writers per note path. Entries are dropped once no
// caller holds or waits for them.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*pathLock)}
}

func (l *Locker) Lock(path string) func() {
	l.mu.Lock()
	pl, ok := l.locks[path]
	if !ok {
		pl = &pathLock{}
		l.locks[path] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.locks, path)
		}
		l.mu.Unlock()
	}
}

func (l *Locker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
