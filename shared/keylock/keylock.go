// Package keylock provides mutual exclusion scoped to a string key.
//
// Callers holding different keys never block each other. Entries are reference counted and
// dropped once the last holder unlocks, so the map only grows with concurrent distinct keys.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

type Locker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Locker {
	return &Locker{entries: map[string]*entry{}}
}

// Lock blocks until key is free and returns the function that releases it.
func (l *Locker) Lock(key string) (unlock func()) {
	l.mu.Lock()

	ent, ok := l.entries[key]
	if !ok {
		ent = &entry{}
		l.entries[key] = ent
	}

	ent.refs++
	l.mu.Unlock()

	ent.mu.Lock()

	var once sync.Once

	return func() {
		once.Do(func() {
			ent.mu.Unlock()

			l.mu.Lock()
			defer l.mu.Unlock()

			ent.refs--
			if ent.refs == 0 {
				delete(l.entries, key)
			}
		})
	}
}

// Len reports how many keys are currently held or awaited.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}
