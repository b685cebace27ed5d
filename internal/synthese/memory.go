package synthese

import (
	"context"
	"strings"
	"sync"
)

// MemStore is an in-memory Store used by tests and dry runs.
type MemStore struct {
	mu sync.Mutex

	Occurrences []*Occurrence

	sources    map[string]int64
	frameworks map[string]int64
	datasets   map[string]int64
	nextID     int64

	// Taxref maps lowercase lb_nom -> cd_nom.
	Taxref map[string]int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		sources:    make(map[string]int64),
		frameworks: make(map[string]int64),
		datasets:   make(map[string]int64),
		Taxref:     make(map[string]int64),
		nextID:     1,
	}
}

func (m *MemStore) InsertOccurrence(ctx context.Context, occ *Occurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Occurrences = append(m.Occurrences, occ)
	return nil
}

func (m *MemStore) FindSourceID(ctx context.Context, name string) (*int64, error) {
	return m.find(m.sources, name)
}

func (m *MemStore) CreateSource(ctx context.Context, name, desc string) (int64, error) {
	return m.create(m.sources, name)
}

func (m *MemStore) FindFrameworkID(ctx context.Context, name string) (*int64, error) {
	return m.find(m.frameworks, name)
}

func (m *MemStore) CreateFramework(ctx context.Context, name, desc string) (int64, error) {
	return m.create(m.frameworks, name)
}

func (m *MemStore) FindDatasetID(ctx context.Context, name string) (*int64, error) {
	return m.find(m.datasets, name)
}

func (m *MemStore) CreateDataset(ctx context.Context, name, desc string, frameworkID int64) (int64, error) {
	return m.create(m.datasets, name)
}

func (m *MemStore) FindCdNom(ctx context.Context, name string) (*int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cd, ok := m.Taxref[strings.ToLower(name)]; ok {
		v := cd
		return &v, nil
	}
	return nil, nil
}

func (m *MemStore) CdNomExists(ctx context.Context, cdNom int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cd := range m.Taxref {
		if cd == cdNom {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) find(table map[string]int64, name string) (*int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := table[name]; ok {
		v := id
		return &v, nil
	}
	return nil, nil
}

func (m *MemStore) create(table map[string]int64, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := table[name]; ok {
		return id, nil
	}
	id := m.nextID
	m.nextID++
	table[name] = id
	return id, nil
}
