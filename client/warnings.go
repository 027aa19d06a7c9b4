package client

import "sync"

// WarningCollector accumulates the ordered warning chain for exactly one
// execution. The engine resends the full warning list on every poll, so Add
// appends only the unseen tail. A fresh collector replaces the previous one
// at the start of each Execute; warnings are never merged across executions.
type WarningCollector struct {
	mu    sync.Mutex
	seen  int
	chain []Warning
}

// NewWarningCollector returns an empty collector.
func NewWarningCollector() *WarningCollector {
	return &WarningCollector{}
}

// Add records the warnings the engine has reported so far. The argument is
// the engine's full current list; entries already seen are skipped.
func (c *WarningCollector) Add(all []Warning) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := c.seen; i < len(all); i++ {
		c.chain = append(c.chain, all[i])
	}
	if len(all) > c.seen {
		c.seen = len(all)
	}
}

// Warnings returns an immutable snapshot of the accumulated chain, in the
// order the engine reported them. It returns nil when the chain is empty.
func (c *WarningCollector) Warnings() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.chain) == 0 {
		return nil
	}
	out := make([]Warning, len(c.chain))
	copy(out, c.chain)
	return out
}

// Clear empties the chain. Warnings the engine reports after the clear are
// still accumulated; warnings reported before it are not re-admitted.
func (c *WarningCollector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chain = nil
}
