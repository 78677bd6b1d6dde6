// Package lock serializes work per key.  Booking admission takes the
// room's key so that check-then-insert for one room never interleaves.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// ErrNotAcquired is returned when the context ends before the key could
// be taken.
var ErrNotAcquired = errors.New("lock not acquired")

// ErrUnavailable is returned when the lock backend itself cannot be
// reached.  Nothing is known about who holds the key.
var ErrUnavailable = errors.New("lock backend unavailable")

// Locker hands out exclusive ownership of a key.  The returned release
// function is idempotent.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// RoomKey is the lock key of a room.
func RoomKey(roomID uint64) string { return "room:" + strconv.FormatUint(roomID, 10) }

// KeyedMutex is an in-process Locker.  Entries are dropped once no
// goroutine holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyEntry
}

type keyEntry struct {
	sem  chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyEntry)}
}

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyEntry{sem: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.sem
				k.drop(key, e)
			})
		}, nil
	case <-ctx.Done():
		k.drop(key, e)
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
	}
}

func (k *KeyedMutex) drop(key string, e *keyEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// size reports the number of live entries.
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
