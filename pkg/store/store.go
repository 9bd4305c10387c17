package store

import "starbroker/pkg/domain"

// Store defines persistence operations for the star catalog.
// The catalog is read-mostly: rows change only when reseeded.
type Store interface {
	ListStars(limit int) ([]domain.Star, error)
	GetStar(id int64) (domain.Star, bool, error)
	SearchStars(query string, limit int) ([]domain.Star, error)
	CountStars() (int, error)
	ReplaceStars(stars []domain.Star) error
}
