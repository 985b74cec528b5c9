package mockservice

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Store lookups that match nothing.
var ErrNotFound = errors.New("mockservice: not found")

// StoredResource is an uploaded resource.
type StoredResource struct {
	URL         string
	ContentType string
	Data        []byte
	UpdatedAt   time.Time
}

// BaselineKey identifies the expected rendering of one check.
type BaselineKey struct {
	AppName  string
	TestName string
	Tag      string
}

// Store persists resources and baselines. Implementations must be safe for
// concurrent use.
type Store interface {
	PutResource(ctx context.Context, res *StoredResource) error
	GetResource(ctx context.Context, url string) (*StoredResource, error)
	GetBaseline(ctx context.Context, key BaselineKey) (string, error)
	SaveBaseline(ctx context.Context, key BaselineKey, text string) error
	Close() error
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	resources map[string]*StoredResource
	baselines map[BaselineKey]string
}

// Ensure MemoryStore implements Store at compile-time.
var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		resources: make(map[string]*StoredResource),
		baselines: make(map[BaselineKey]string),
	}
}

func (m *MemoryStore) PutResource(_ context.Context, res *StoredResource) error {
	cp := *res
	cp.Data = append([]byte(nil), res.Data...)
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[res.URL] = &cp
	return nil
}

func (m *MemoryStore) GetResource(_ context.Context, url string) (*StoredResource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.resources[url]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (m *MemoryStore) GetBaseline(_ context.Context, key BaselineKey) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.baselines[key]
	if !ok {
		return "", ErrNotFound
	}
	return text, nil
}

func (m *MemoryStore) SaveBaseline(_ context.Context, key BaselineKey, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baselines[key] = text
	return nil
}

func (m *MemoryStore) Close() error { return nil }
