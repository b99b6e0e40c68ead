package domain

import (
	"strings"
	"time"
)

type User struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	Email             string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FirstName         string     `gorm:"size:255;not null" json:"first_name"`
	LastName          string     `gorm:"size:255;not null" json:"last_name"`
	PasswordHash      string     `gorm:"size:1024;not null" json:"-"`
	IsVerified        bool       `gorm:"not null;default:false" json:"is_verified"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	PasswordChangedAt *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
