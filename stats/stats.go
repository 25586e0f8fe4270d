// Package stats is the module-level counter facade external statistics
// collectors read (§6: `statistic("sil-combine")`). It is intentionally
// tiny: a name-keyed atomic counter set, safe for the single-writer-per-
// function concurrency model of §5.
package stats

import (
	"sync"
	"sync/atomic"
)

type Counters struct {
	mu     sync.Mutex
	counts map[string]*int64
}

func New() *Counters {
	return &Counters{counts: map[string]*int64{}}
}

func (c *Counters) counter(name string) *int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.counts[name]
	if !ok {
		var v int64
		p = &v
		c.counts[name] = p
	}

	return p
}

func (c *Counters) Inc(name string) { atomic.AddInt64(c.counter(name), 1) }

func (c *Counters) Get(name string) int64 { return atomic.LoadInt64(c.counter(name)) }

func (c *Counters) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = atomic.LoadInt64(v)
	}

	return out
}
