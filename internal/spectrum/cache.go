package spectrum

import "sync"

// tableCache memoizes tabulated spectra per parameter key. Entries are pure
// functions of their key and never change after insertion. A non-zero bound
// evicts the oldest key first; the fit touches at most a handful of distinct
// vectors per iteration, so FIFO is enough.
type tableCache struct {
	mu     sync.Mutex
	tables map[paramKey][]float64
	order  []paramKey
	bound  int
	hits   int
	misses int
}

func newTableCache(bound int) *tableCache {
	return &tableCache{
		tables: make(map[paramKey][]float64),
		bound:  bound,
	}
}

// get returns the cached table for k, if present.
func (c *tableCache) get(k paramKey) ([]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[k]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return t, ok
}

// put inserts a table for k unless one is already present, and returns the
// table that ended up cached. The insert-once discipline keeps concurrent
// tabulations of the same key from replacing each other's results.
func (c *tableCache) put(k paramKey, table []float64) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.tables[k]; ok {
		return existing
	}
	if c.bound > 0 && len(c.order) >= c.bound {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.tables, oldest)
	}
	c.tables[k] = table
	c.order = append(c.order, k)
	return table
}

// stats returns the hit and miss counts.
func (c *tableCache) stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// len returns the number of cached tables.
func (c *tableCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tables)
}
