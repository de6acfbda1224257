package Models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Session is one signed-in browser. Its ID is the JWT "jti" claim.
type Session struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	UserID    uint       `json:"user_id" gorm:"index;not null"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at"`
}

func (s Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

func CreateSession(db *gorm.DB, session *Session) error {
	if err := db.Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func GetSession(db *gorm.DB, id string) (*Session, error) {
	var session Session
	if err := db.Where("id = ?", id).First(&session).Error; err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

// RevokeSession marks the session as signed out. Revoking twice is harmless.
func RevokeSession(db *gorm.DB, id string, now time.Time) error {
	err := db.Model(&Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", now).Error
	if err != nil {
		return fmt.Errorf("failed to revoke session %s: %w", id, err)
	}
	return nil
}
