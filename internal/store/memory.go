package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"cart-service/internal/models"
)

// MemoryStore is an in-process product store keyed by product id
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]models.Product
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]models.Product)}
}

// UpsertProduct stores a copy of p, replacing any product with the same id
func (s *MemoryStore) UpsertProduct(_ context.Context, p *models.Product) error {
	cp := *p
	cp.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[p.ID] = cp
	return nil
}

// GetProductByID retrieves a product by ID
func (s *MemoryStore) GetProductByID(_ context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.m[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

// GetProducts retrieves all products ordered by name
func (s *MemoryStore) GetProducts(_ context.Context) ([]models.Product, error) {
	s.mu.RLock()
	out := make([]models.Product, 0, len(s.m))
	for _, p := range s.m {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetProductsByIDs retrieves the products that exist among ids
func (s *MemoryStore) GetProductsByIDs(_ context.Context, ids []string) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.m[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Len returns the number of stored products
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
