package domain

import "time"

type RevokedToken struct {
	JTI       string    `gorm:"primaryKey;size:64" json:"jti"`
	UserID    string    `gorm:"size:36;not null;index" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	RevokedAt time.Time `gorm:"not null" json:"revoked_at"`
}
