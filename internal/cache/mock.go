package cache

import (
	"context"
	"sync"
	"time"
)

// MockCache is an in-memory Cache for tests. TTLs are recorded but never
// expire.
type MockCache struct {
	mu   sync.Mutex
	Data map[string]string
	TTLs map[string]time.Duration
}

var _ Cache = (*MockCache)(nil)

func NewMockCache() *MockCache {
	return &MockCache{
		Data: make(map[string]string),
		TTLs: make(map[string]time.Duration),
	}
}

func (m *MockCache) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
	m.TTLs[key] = ttl
	return nil
}
