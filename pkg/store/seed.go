package store

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"starbroker/pkg/domain"
)

//go:embed seed_stars.yaml
var seedStarsYAML []byte

type seedStar struct {
	ID                 int64   `yaml:"id"`
	Name               string  `yaml:"name"`
	PhotoURL           string  `yaml:"photoUrl"`
	Description        string  `yaml:"description"`
	DistanceLightYears float64 `yaml:"distanceLightYears"`
	Constellation      string  `yaml:"constellation"`
	Magnitude          float64 `yaml:"magnitude"`
}

// SeedStars returns the embedded star catalog.
func SeedStars() ([]domain.Star, error) {
	var entries []seedStar
	if err := yaml.Unmarshal(seedStarsYAML, &entries); err != nil {
		return nil, fmt.Errorf("parse seed catalog: %w", err)
	}
	now := time.Now().UTC()
	stars := make([]domain.Star, 0, len(entries))
	for _, e := range entries {
		stars = append(stars, domain.Star{
			ID:                 e.ID,
			Name:               e.Name,
			PhotoURL:           e.PhotoURL,
			Description:        e.Description,
			DistanceLightYears: e.DistanceLightYears,
			Constellation:      e.Constellation,
			Magnitude:          e.Magnitude,
			CreatedAt:          now,
		})
	}
	return stars, nil
}

// EnsureSeeded loads the embedded catalog into an empty store.
// Returns the number of rows written (zero when the store already has data).
func EnsureSeeded(s Store) (int, error) {
	count, err := s.CountStars()
	if err != nil {
		return 0, fmt.Errorf("count stars: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	stars, err := SeedStars()
	if err != nil {
		return 0, err
	}
	if err := s.ReplaceStars(stars); err != nil {
		return 0, fmt.Errorf("seed stars: %w", err)
	}
	return len(stars), nil
}
