// Package cache stores computed reports keyed by dataset checksum, so
// re-analyzing an unchanged file is free. Backends: in-process memory
// and Redis for shared deployments.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/daftar/daftar/pkg/analysis"
)

// Cache stores reports by dataset checksum.
type Cache interface {
	Get(ctx context.Context, checksum string) (*analysis.Report, bool, error)
	Put(ctx context.Context, checksum string, rep *analysis.Report) error
	Close() error
}

// Nop is a cache that stores nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) (*analysis.Report, bool, error) { return nil, false, nil }
func (Nop) Put(context.Context, string, *analysis.Report) error         { return nil }
func (Nop) Close() error                                                { return nil }

// Memory is an in-process cache with TTL eviction on read.
type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	rep     *analysis.Report
	savedAt time.Time
}

// NewMemory creates a memory cache. ttl <= 0 disables expiry.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, checksum string) (*analysis.Report, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[checksum]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if m.ttl > 0 && time.Since(e.savedAt) > m.ttl {
		m.mu.Lock()
		delete(m.entries, checksum)
		m.mu.Unlock()
		return nil, false, nil
	}
	return e.rep, true, nil
}

// Put implements Cache.
func (m *Memory) Put(_ context.Context, checksum string, rep *analysis.Report) error {
	m.mu.Lock()
	m.entries[checksum] = memoryEntry{rep: rep, savedAt: time.Now()}
	m.mu.Unlock()
	return nil
}

// Close implements Cache.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}
