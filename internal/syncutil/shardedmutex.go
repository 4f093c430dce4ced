// Package syncutil holds small concurrency helpers shared across domains.
package syncutil

import (
	"hash/fnv"
	"sync"
)

const shardCount = 256

// ShardedMutex is a fixed pool of mutexes keyed by string, used to
// serialize work per link ID without one lock object per link. Memory
// stays bounded no matter how many keys are seen; two keys that hash to
// the same shard occasionally contend, which is harmless here.
type ShardedMutex struct {
	shards [shardCount]sync.Mutex
}

// Lock acquires the shard for key and returns the matching unlock.
func (s *ShardedMutex) Lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	mu := &s.shards[h.Sum32()%shardCount]
	mu.Lock()
	return mu.Unlock
}
