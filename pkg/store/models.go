package store

import "time"

// GORM models used for persistence.
type StarModel struct {
	ID                 int64  `gorm:"primaryKey;autoIncrement"`
	Name               string `gorm:"not null;index"`
	PhotoURL           string `gorm:"not null"`
	Description        string `gorm:"type:text;not null"`
	DistanceLightYears float64
	Constellation      string `gorm:"not null;index"`
	Magnitude          float64
	CreatedAt          time.Time `gorm:"not null"`
}
