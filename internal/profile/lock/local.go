package lock

import (
	"context"
	"sync"
)

// numShards bounds the lock table; unrelated keys may share a shard.
const numShards = 128

// Local is an in-process Locker built from sharded binary semaphores, so a
// waiter can give up when its context ends.
type Local struct {
	shards [numShards]chan struct{}
}

func NewLocal() *Local {
	l := &Local{}
	for i := range l.shards {
		l.shards[i] = make(chan struct{}, 1)
	}
	return l
}

func (l *Local) Acquire(ctx context.Context, key string) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, heldError(err)
	}
	shard := l.shards[hashString(key)%numShards]
	select {
	case shard <- struct{}{}:
	case <-ctx.Done():
		return nil, heldError(ctx.Err())
	}
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-shard })
		return nil
	}, nil
}

// hashString is FNV-1a.
func hashString(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
