package record

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRecorder keeps records in process memory. Used by tests and as a
// fallback when no durable backend is configured.
type MemoryRecorder struct {
	mu      sync.Mutex
	matches []Match
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(_ context.Context, m Match) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.matches = append(r.matches, m)
	return fmt.Sprintf("memory/%d", len(r.matches)-1), nil
}

func (r *MemoryRecorder) Recent(_ context.Context, limit int) ([]Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Match
	for i := len(r.matches) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.matches[i])
	}
	return out, nil
}
