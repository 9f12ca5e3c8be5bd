package service

import (
	"sync"

	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

// nameLocks hands out one mutex per application name. Names are compared
// case-insensitively, matching directory lookups.
type nameLocks struct {
	mu    sync.Mutex
	locks map[string]*nameLock
}

type nameLock struct {
	mu   sync.Mutex
	refs int
}

func newNameLocks() *nameLocks {
	return &nameLocks{locks: make(map[string]*nameLock)}
}

// lock blocks until name is free and returns the matching unlock.
func (l *nameLocks) lock(name string) func() {
	key := types.FoldKey(name)

	l.mu.Lock()
	nl, ok := l.locks[key]
	if !ok {
		nl = &nameLock{}
		l.locks[key] = nl
	}
	nl.refs++
	l.mu.Unlock()

	nl.mu.Lock()
	return func() {
		nl.mu.Unlock()

		l.mu.Lock()
		nl.refs--
		if nl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// held returns the number of names with a holder or waiter.
func (l *nameLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
