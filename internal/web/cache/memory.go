package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Cache. Expired entries are dropped on read and
// by a background sweep.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	config  Config
	stop    context.CancelFunc
}

type entry struct {
	value   []byte
	expires time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// NewMemory creates an in-memory cache and starts its sweeper.
func NewMemory(config Config) *Memory {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Memory{
		entries: make(map[string]entry),
		config:  config,
		stop:    cancel,
	}
	go m.sweep(ctx, time.Minute)
	return m
}

// Get implements Cache.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	e, ok := m.entries[m.config.Prefix+key]
	m.mu.RUnlock()

	if !ok || e.expired(time.Now()) {
		return nil, ErrMiss
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set implements Cache.
func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl == 0 {
		ttl = m.config.TTL
	}

	e := entry{value: make([]byte, len(value))}
	copy(e.value, value)
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[m.config.Prefix+key] = e
	m.mu.Unlock()
	return nil
}

// Delete implements Cache.
func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.entries, m.config.Prefix+key)
	m.mu.Unlock()
	return nil
}

// Clear implements Cache.
func (m *Memory) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, m.config.Prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the sweeper.
func (m *Memory) Close() error {
	m.stop()
	return nil
}

func (m *Memory) sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.purge(now)
		}
	}
}

func (m *Memory) purge(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
		}
	}
}
