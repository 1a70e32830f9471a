package harness

import "sync"

// failureLog accumulates failure messages per module.
//
// Concurrency discipline: many producers append while a group runs; the
// single consumer reads only after every producer has joined. The mutex
// protects the append itself; the join makes the read safe.
type failureLog struct {
	mu      sync.Mutex
	records map[string][]string
}

func newFailureLog() *failureLog {
	return &failureLog{records: make(map[string][]string)}
}

// append records one failure message for a module, preserving insertion
// order within the module. Safe for concurrent callers.
func (f *failureLog) append(moduleName, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[moduleName] = append(f.records[moduleName], message)
}

// snapshot returns a deep copy of the accumulated records, so filtering can
// mutate its own copy freely.
func (f *failureLog) snapshot() map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]string, len(f.records))
	for name, messages := range f.records {
		out[name] = append([]string(nil), messages...)
	}
	return out
}
