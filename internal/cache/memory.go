package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryProvider is a process-local Provider used when Redis is disabled.
type MemoryProvider struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (p *MemoryProvider) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if e, ok := p.entries[key]; ok && (e.expiresAt.IsZero() || now.Before(e.expiresAt)) {
		return false, nil
	}

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	p.entries[key] = e
	p.sweep(now)
	return true, nil
}

func (p *MemoryProvider) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.entries, key)
	p.mu.Unlock()
	return nil
}

// sweep drops expired entries once the map grows past a small bound.
func (p *MemoryProvider) sweep(now time.Time) {
	if len(p.entries) < 1024 {
		return
	}
	for k, e := range p.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(p.entries, k)
		}
	}
}

func (p *MemoryProvider) Ping(context.Context) error { return nil }

func (p *MemoryProvider) Close() error { return nil }
