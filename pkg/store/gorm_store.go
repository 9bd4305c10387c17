package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"starbroker/pkg/domain"
)

const migrateLockID int64 = 52415241

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&StarModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// ListStars returns stars ordered by id. A non-positive limit returns all rows.
func (s *GormStore) ListStars(limit int) ([]domain.Star, error) {
	var models []StarModel
	tx := s.db.Order("id ASC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Star, 0, len(models))
	for _, m := range models {
		res = append(res, starFromModel(m))
	}
	return res, nil
}

// GetStar retrieves a star by ID.
func (s *GormStore) GetStar(id int64) (domain.Star, bool, error) {
	var model StarModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Star{}, false, nil
		}
		return domain.Star{}, false, err
	}
	return starFromModel(model), true, nil
}

// SearchStars matches query as a case-insensitive substring of name,
// constellation, or description. Wildcard characters in the query are
// treated literally.
func (s *GormStore) SearchStars(query string, limit int) ([]domain.Star, error) {
	if limit <= 0 {
		return []domain.Star{}, nil
	}
	pattern := "%" + escapeLike(query) + "%"
	var models []StarModel
	if err := s.db.
		Where("name ILIKE ? OR constellation ILIKE ? OR description ILIKE ?", pattern, pattern, pattern).
		Order("id ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Star, 0, len(models))
	for _, m := range models {
		res = append(res, starFromModel(m))
	}
	return res, nil
}

// CountStars returns the number of catalog rows.
func (s *GormStore) CountStars() (int, error) {
	var count int64
	if err := s.db.Model(&StarModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// ReplaceStars swaps the whole catalog in one transaction.
func (s *GormStore) ReplaceStars(stars []domain.Star) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&StarModel{}).Error; err != nil {
			return err
		}
		if len(stars) == 0 {
			return nil
		}
		models := make([]StarModel, 0, len(stars))
		for _, star := range stars {
			models = append(models, starToModel(star))
		}
		return tx.CreateInBatches(&models, 100).Error
	})
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func starToModel(s domain.Star) StarModel {
	return StarModel{
		ID:                 s.ID,
		Name:               s.Name,
		PhotoURL:           s.PhotoURL,
		Description:        s.Description,
		DistanceLightYears: s.DistanceLightYears,
		Constellation:      s.Constellation,
		Magnitude:          s.Magnitude,
		CreatedAt:          s.CreatedAt,
	}
}

func starFromModel(m StarModel) domain.Star {
	return domain.Star{
		ID:                 m.ID,
		Name:               m.Name,
		PhotoURL:           m.PhotoURL,
		Description:        m.Description,
		DistanceLightYears: m.DistanceLightYears,
		Constellation:      m.Constellation,
		Magnitude:          m.Magnitude,
		CreatedAt:          m.CreatedAt,
	}
}
