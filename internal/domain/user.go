// Package domain holds the persisted records shared by every layer.
package domain

import "time"

// User is an account that can be a member of rooms. RefreshTokenHash is the
// sha256 of the current refresh token and "" when the user is signed out.
type User struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	Username         string    `gorm:"type:varchar(191);uniqueIndex:idx_username;not null" json:"username"`
	Password         string    `gorm:"type:text;not null" json:"-"` // bcrypt hash
	Email            string    `gorm:"type:varchar(191);index" json:"email,omitempty"`
	RefreshTokenHash string    `gorm:"type:varchar(64)" json:"-"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}
