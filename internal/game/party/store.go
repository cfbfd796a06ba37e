package party

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store is the party/inventory data source. The combat core reads a snapshot
// when combat starts and proposes an Update when a victory is recorded.
type Store interface {
	Load(ctx context.Context) (Party, error)
	Commit(ctx context.Context, u Update) error
}

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	party Party
}

// NewMemoryStore creates a MemoryStore seeded with a copy of p.
func NewMemoryStore(p Party) *MemoryStore {
	return &MemoryStore{party: p.Clone()}
}

// Load returns a copy of the stored party.
func (s *MemoryStore) Load(_ context.Context) (Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.party.Clone(), nil
}

// Commit applies u to the stored party.
func (s *MemoryStore) Commit(_ context.Context, u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.party = s.party.Apply(u)
	return nil
}

// LoadFile reads and validates a party from a YAML file.
//
// Postcondition: Returns a valid Party or an error naming path.
func LoadFile(path string) (Party, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Party{}, fmt.Errorf("reading party file %q: %w", path, err)
	}
	var p Party
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Party{}, fmt.Errorf("parsing party file %q: %w", path, err)
	}
	if p.Inventory == nil {
		p.Inventory = make(map[string]int)
	}
	if err := p.Validate(); err != nil {
		return Party{}, fmt.Errorf("loading %q: %w", path, err)
	}
	return p, nil
}
