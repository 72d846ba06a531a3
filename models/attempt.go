package models

import "time"

// Attempt is the audit row for one verification attempt. UserID is nil for
// attempts made by offline tools against files rather than accounts.
type Attempt struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ActorID    string `gorm:"size:255;not null;index"`
	UserID     *uint  `gorm:"index"`
	Source     string `gorm:"size:32;not null"` // IMAGE_OCR or THIRD_PARTY_TEXT
	Passed     bool   `gorm:"index"`
	Reason     string `gorm:"size:16;not null"`
	Tag        string `gorm:"size:64"`
	Level      *int
	Confidence float64
	Snippet    string `gorm:"size:255"` // shortened recognized text for review
}
