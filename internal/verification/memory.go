package verification

import (
	"context"
	"sync"

	"luminix/internal/domain"
)

// MemoryStore keeps codes in process memory. Codes issued by one instance
// cannot be verified on another; use PostgresStore when running several.
type MemoryStore struct {
	opts options

	mu      sync.Mutex
	records map[string]record
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		opts:    buildOptions(opts),
		records: make(map[string]record),
	}
}

func (s *MemoryStore) Issue(_ context.Context, email string, names Names) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}
	rec := record{code: code, names: names, expiresAt: s.opts.now().Add(s.opts.ttl)}
	s.mu.Lock()
	s.records[domain.NormalizeEmail(email)] = rec
	s.mu.Unlock()
	return code, nil
}

func (s *MemoryStore) Consume(_ context.Context, email, code string) (Names, error) {
	key := domain.NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.records[key]
	names, remove, err := check(rec, found, code, s.opts.now())
	if remove {
		delete(s.records, key)
	}
	return names, err
}

func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	now := s.opts.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, rec := range s.records {
		if now.After(rec.expiresAt) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored records, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
