package network

import "sync"

// pathCache memoizes shortest-path results. sop_insert's O(|schedule|^2)
// pair trials each re-query the oracle for the same handful of node pairs,
// so a small memo avoids repeating Dijkstra runs within a single insertion
// attempt and across attempts in the same batch.
type pathCache struct {
	mu    sync.Mutex
	cap   int
	order []uint64
	data  map[uint64]cacheEntry
}

type cacheEntry struct {
	path []int
	dist int
}

func newPathCache(capacity int) *pathCache {
	return &pathCache{
		cap:  capacity,
		data: make(map[uint64]cacheEntry, capacity),
	}
}

func cacheKey(u, v int) uint64 {
	return uint64(uint32(u))<<32 | uint64(uint32(v))
}

func (c *pathCache) get(u, v int) ([]int, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[cacheKey(u, v)]
	if !ok {
		return nil, 0, false
	}
	return append([]int(nil), e.path...), e.dist, true
}

func (c *pathCache) put(u, v int, path []int, dist int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(u, v)
	if _, exists := c.data[key]; !exists {
		if len(c.order) >= c.cap {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.data, oldest)
		}
		c.order = append(c.order, key)
	}
	c.data[key] = cacheEntry{path: append([]int(nil), path...), dist: dist}
}
