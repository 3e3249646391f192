package service

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// numRecordShards spreads per-record write locks across a fixed set of
// mutexes keyed by a hash of the record ID, so writers to different records
// rarely contend while writers to the same record are serialized.
const numRecordShards = 128

// defaultTxTimeout bounds a write when the caller's context has no deadline.
const defaultTxTimeout = 5 * time.Second

type recordLocks struct {
	shards [numRecordShards]sync.Mutex
}

// withRecordLock runs fn holding the shard lock for id. The context is checked
// before and after acquiring the lock; fn receives a context with a deadline.
func (l *recordLocks) withRecordLock(ctx context.Context, id int64, timeout time.Duration, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write aborted: %w", err)
	}

	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if id > 0 {
		shard := &l.shards[shardFor(id)]
		shard.Lock()
		defer shard.Unlock()
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write aborted: %w", err)
	}
	return fn(ctx)
}

// shardFor hashes the id with FNV-1a.
func shardFor(id int64) int {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	h := uint32(fnvOffset)
	for _, b := range buf {
		h ^= uint32(b)
		h *= fnvPrime
	}
	return int(h % numRecordShards)
}
