package services

import (
	"context"
	"sync"
)

// EventLocks is a keyed mutex that serializes work on the same event inside this process while
// letting different events proceed in parallel. The database row lock taken in the same critical
// section covers other processes.
type EventLocks struct {
	mu    sync.Mutex
	locks map[string]*eventLock
}

type eventLock struct {
	sem  chan struct{}
	refs int
}

func NewEventLocks() *EventLocks {
	return &EventLocks{locks: make(map[string]*eventLock)}
}

// Lock blocks until the lock for id is held or ctx is done. The returned func releases it.
func (l *EventLocks) Lock(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	el, ok := l.locks[id]
	if !ok {
		el = &eventLock{sem: make(chan struct{}, 1)}
		l.locks[id] = el
	}
	el.refs++
	l.mu.Unlock()

	select {
	case el.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-el.sem
				l.release(id, el)
			})
		}, nil
	case <-ctx.Done():
		l.release(id, el)
		return nil, ctx.Err()
	}
}

func (l *EventLocks) release(id string, el *eventLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	el.refs--
	if el.refs == 0 {
		delete(l.locks, id)
	}
}

// size reports the number of tracked keys.
func (l *EventLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
