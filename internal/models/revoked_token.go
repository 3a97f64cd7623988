package models

import "time"

// RevokedToken blocks a refresh token after logout until it would have
// expired anyway.
type RevokedToken struct {
	JTI       string    `gorm:"primarykey;type:varchar(64)" json:"jti"`
	UserID    uint64    `gorm:"not null;index" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	RevokedAt time.Time `gorm:"not null" json:"revoked_at"`
}
