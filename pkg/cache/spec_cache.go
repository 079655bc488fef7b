// Package cache provides a sharded TTL cache for symbol trading rules.
// Instrument metadata (tick size, qty step, minimum qty) changes rarely,
// so each signal should not cost an extra exchange round trip.
package cache

import (
	"hash/fnv"
	"sync"
	"time"

	"trade-executor/pkg/exchanges/common"
)

const numShards = 16

// SpecCache is a sharded cache of symbol specs with per-entry expiry.
type SpecCache struct {
	ttl    time.Duration
	shards [numShards]*specShard
}

type specShard struct {
	mu    sync.RWMutex
	items map[string]specEntry
}

type specEntry struct {
	spec      common.SymbolSpec
	updatedAt time.Time
}

// NewSpecCache creates a cache whose entries expire after ttl. A ttl of 0
// never expires entries.
func NewSpecCache(ttl time.Duration) *SpecCache {
	c := &SpecCache{ttl: ttl}
	for i := 0; i < numShards; i++ {
		c.shards[i] = &specShard{items: make(map[string]specEntry)}
	}
	return c
}

func (c *SpecCache) getShard(symbol string) *specShard {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return c.shards[h.Sum32()%numShards]
}

// Set stores a spec for a symbol.
func (c *SpecCache) Set(symbol string, spec common.SymbolSpec) {
	shard := c.getShard(symbol)
	shard.mu.Lock()
	shard.items[symbol] = specEntry{spec: spec, updatedAt: time.Now()}
	shard.mu.Unlock()
}

// Get retrieves an unexpired spec for a symbol.
func (c *SpecCache) Get(symbol string) (common.SymbolSpec, bool) {
	shard := c.getShard(symbol)
	shard.mu.RLock()
	entry, ok := shard.items[symbol]
	shard.mu.RUnlock()
	if !ok {
		return common.SymbolSpec{}, false
	}
	if c.ttl > 0 && time.Since(entry.updatedAt) > c.ttl {
		return common.SymbolSpec{}, false
	}
	return entry.spec, true
}

// Invalidate drops a symbol's entry.
func (c *SpecCache) Invalidate(symbol string) {
	shard := c.getShard(symbol)
	shard.mu.Lock()
	delete(shard.items, symbol)
	shard.mu.Unlock()
}

// Len reports the number of entries, expired ones included.
func (c *SpecCache) Len() int {
	n := 0
	for _, shard := range c.shards {
		shard.mu.RLock()
		n += len(shard.items)
		shard.mu.RUnlock()
	}
	return n
}
