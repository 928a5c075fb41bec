package domain

import "time"

// RevokedToken records a bearer token invalidated before its natural expiry.
// Only the sha256 of the raw token is stored.
type RevokedToken struct {
	ID        string    `gorm:"primaryKey;size:36"`
	TokenHash string    `gorm:"type:char(64);uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
