/*
memory.go - In-process locks

One slot per key, created on first use and kept for the life of the
process. Suitable for a single node; the ttl is ignored because an
in-process holder cannot outlive the process.
*/
package locking

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Locker.
type Memory struct {
	slots sync.Map // key -> chan struct{} with capacity 1
}

// NewMemory creates an in-process Locker.
func NewMemory() *Memory {
	return &Memory{}
}

// Acquire blocks until the key's slot is free or ctx is done.
func (m *Memory) Acquire(ctx context.Context, key string, _ time.Duration) (Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, _ := m.slots.LoadOrStore(key, make(chan struct{}, 1))
	slot := v.(chan struct{})
	select {
	case slot <- struct{}{}:
		return &memoryLock{key: key, slot: slot}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type memoryLock struct {
	key      string
	slot     chan struct{}
	released bool
}

func (l *memoryLock) Key() string { return l.key }

func (l *memoryLock) Release(context.Context) error {
	if l.released {
		return ErrNotHeld
	}
	l.released = true
	<-l.slot
	return nil
}
