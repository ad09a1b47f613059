package audit

import (
	"context"
	"sync"
)

// MemoryWriter keeps entries in process.
type MemoryWriter struct {
	mu      sync.Mutex
	entries []Entry
}

func (w *MemoryWriter) Write(_ context.Context, entry Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, entry)
	return nil
}

// Entries returns a copy of everything written so far.
func (w *MemoryWriter) Entries() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Entry(nil), w.entries...)
}
