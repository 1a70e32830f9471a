package testutil

import "sync"

// FailureCollector is a module.FailureSink recording signals synchronously.
// Spawned tasks run inline so tests never race against a background
// goroutine.
type FailureCollector struct {
	mu      sync.Mutex
	signals map[string][]string
}

// NewFailureCollector creates an empty collector.
func NewFailureCollector() *FailureCollector {
	return &FailureCollector{signals: make(map[string][]string)}
}

// SignalFailure records one failure message for a module.
func (c *FailureCollector) SignalFailure(moduleName, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals[moduleName] = append(c.signals[moduleName], message)
}

// Spawn runs task inline.
func (c *FailureCollector) Spawn(task func()) { task() }

// Signals returns a copy of the recorded failures.
func (c *FailureCollector) Signals() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]string, len(c.signals))
	for name, messages := range c.signals {
		out[name] = append([]string(nil), messages...)
	}
	return out
}
