package tokens

import (
	"context"
	"errors"
	"sync"
)

// ErrDuplicateToken is returned by Store.Create when the token string is taken.
var ErrDuplicateToken = errors.New("token string already exists")

// Store persists token records. Get and Take return nil for an unknown token.
// Take must delete and return atomically: of several concurrent callers for
// the same token at most one gets the record.
type Store interface {
	Exists(ctx context.Context, token string) (bool, error)
	Create(ctx context.Context, rec *CallbackToken) error
	Get(ctx context.Context, token string) (*CallbackToken, error)
	Take(ctx context.Context, token string) (*CallbackToken, error)
	Delete(ctx context.Context, token string) error
}

// MemoryStore keeps tokens in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	nextID uint64
	items  map[string]CallbackToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]CallbackToken)}
}

func (m *MemoryStore) Exists(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[token]
	return ok, nil
}

func (m *MemoryStore) Create(_ context.Context, rec *CallbackToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[rec.Token]; ok {
		return ErrDuplicateToken
	}
	m.nextID++
	rec.ID = m.nextID
	m.items[rec.Token] = *rec
	return nil
}

func (m *MemoryStore) Get(_ context.Context, token string) (*CallbackToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[token]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStore) Take(_ context.Context, token string) (*CallbackToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[token]
	if !ok {
		return nil, nil
	}
	delete(m.items, token)
	return &rec, nil
}

func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, token)
	return nil
}

// Len is the number of stored tokens, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
