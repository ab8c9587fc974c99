package service

import "sync"

// storyLocks serializes turn-append, twist-injection and first-analysis per
// story, so turn-number assignment and twist-trigger counting observe a
// consistent view of the turn log. Stories are independent: each gets its
// own mutex.
type storyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newStoryLocks() *storyLocks {
	return &storyLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for storyID and returns the unlock func.
func (l *storyLocks) acquire(storyID string) func() {
	l.mu.Lock()
	m, ok := l.locks[storyID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[storyID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
