package models

import "time"

// Verification is the durable record of a granted verification (one per
// user). The in-memory guard cache is rebuilt from these rows at startup.
type Verification struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint   `gorm:"uniqueIndex;not null"`
	User      User   `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Tag       string `gorm:"size:64;not null"`
	Level     int    `gorm:"not null"`
}
