package entity

import "time"

// RefreshToken is the persisted rotation state of a signed refresh token,
// keyed by the token's jti claim. The token string itself is never stored.
//
// Lifecycle: Issued -> Valid -> {Rotated | Expired | Revoked}. All three
// terminal states are rejected by refresh.
type RefreshToken struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	JTI        string     `gorm:"column:jti;size:36;not null;uniqueIndex" json:"jti"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	Family     string     `gorm:"size:36;not null;index" json:"family"`
	IssuedAt   time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt  time.Time  `gorm:"not null;index" json:"expires_at"`
	RotatedAt  *time.Time `json:"rotated_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy string     `gorm:"size:36;not null;default:''" json:"replaced_by,omitempty"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// IsActive reports whether the token is still in the Valid state.
func (rt *RefreshToken) IsActive() bool {
	return rt.RotatedAt == nil && rt.RevokedAt == nil && rt.ExpiresAt.After(time.Now())
}
