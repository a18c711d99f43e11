package usecase

import "sync"

// SubscriptionLocker serializes writers per subscription id. The engine and
// the webhook reconciler both mutate the same rows; routing every write
// through the lock for that id keeps the two paths from clobbering each
// other mid read-modify-write.
type SubscriptionLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSubscriptionLocker() *SubscriptionLocker {
	return &SubscriptionLocker{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the given subscription id and returns its
// release func.
func (l *SubscriptionLocker) Lock(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
