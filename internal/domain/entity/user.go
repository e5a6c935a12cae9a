package entity

import (
	"strings"
	"time"
)

// User is an identity-agnostic account. It is created on the first successful
// OAuth login from any provider and never deleted by the auth core.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Name         string    `gorm:"size:100;not null;default:''" json:"name"`
	ProfileImage string    `gorm:"size:255;not null;default:''" json:"profile_image"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName defines the GORM table name.
func (User) TableName() string {
	return "users"
}

// ApplyProfile refreshes the mutable display fields from a fresh provider
// profile. Empty provider values never clobber existing data. Returns true
// if anything changed.
func (u *User) ApplyProfile(name, image string) bool {
	changed := false
	if name = strings.TrimSpace(name); name != "" && name != u.Name {
		u.Name = name
		changed = true
	}
	if image = strings.TrimSpace(image); image != "" && image != u.ProfileImage {
		u.ProfileImage = image
		changed = true
	}
	return changed
}
