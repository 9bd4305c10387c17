package store

import (
	"strings"
	"sync"

	"starbroker/pkg/domain"
)

// MemoryStore keeps the catalog in-process. Used by tests and as a
// drop-in Store when no database is reachable.
type MemoryStore struct {
	mu     sync.RWMutex
	stars  map[int64]domain.Star
	orders []int64
	nextID int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stars:  make(map[int64]domain.Star),
		nextID: 1,
	}
}

// ListStars returns stars in insertion order. A non-positive limit returns all.
func (m *MemoryStore) ListStars(limit int) ([]domain.Star, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Star, 0, len(m.orders))
	for _, id := range m.orders {
		if limit > 0 && len(res) >= limit {
			break
		}
		if s, ok := m.stars[id]; ok {
			res = append(res, s)
		}
	}
	return res, nil
}

// GetStar retrieves a star by ID.
func (m *MemoryStore) GetStar(id int64) (domain.Star, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stars[id]
	return s, ok, nil
}

// SearchStars matches query as a case-insensitive substring of name,
// constellation, or description, mirroring the ILIKE semantics of GormStore.
func (m *MemoryStore) SearchStars(query string, limit int) ([]domain.Star, error) {
	if limit <= 0 {
		return []domain.Star{}, nil
	}
	needle := strings.ToLower(query)
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Star, 0, limit)
	for _, id := range m.orders {
		s, ok := m.stars[id]
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(s.Name), needle) ||
			strings.Contains(strings.ToLower(s.Constellation), needle) ||
			strings.Contains(strings.ToLower(s.Description), needle) {
			res = append(res, s)
			if len(res) >= limit {
				break
			}
		}
	}
	return res, nil
}

// CountStars returns the number of catalog rows.
func (m *MemoryStore) CountStars() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders), nil
}

// ReplaceStars swaps the whole catalog.
func (m *MemoryStore) ReplaceStars(stars []domain.Star) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stars = make(map[int64]domain.Star, len(stars))
	m.orders = m.orders[:0]
	for _, s := range stars {
		if s.ID == 0 {
			s.ID = m.nextID
		}
		if s.ID >= m.nextID {
			m.nextID = s.ID + 1
		}
		if _, exists := m.stars[s.ID]; !exists {
			m.orders = append(m.orders, s.ID)
		}
		m.stars[s.ID] = s
	}
	return nil
}
