package Models

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FCMToken is a device registered for push notifications.
type FCMToken struct {
	gorm.Model
	UserID uint   `json:"user_id" gorm:"index;not null"`
	Value  string `json:"value" gorm:"uniqueIndex;not null"`
}

type UpdateTokenRequest struct {
	Value string `json:"value" validate:"required"`
}

// SaveToken registers a device token for a user. A token that moved to another
// account is reassigned.
func SaveToken(db *gorm.DB, userID uint, value string) (*FCMToken, error) {
	token := FCMToken{UserID: userID, Value: value}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "value"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "updated_at"}),
	}).Create(&token).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save device token: %w", err)
	}
	return &token, nil
}

func GetTokens(db *gorm.DB, userID uint) ([]string, error) {
	var values []string
	if err := db.Model(&FCMToken{}).Where("user_id = ?", userID).Pluck("value", &values).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch device tokens of user %d: %w", userID, err)
	}
	return values, nil
}

func DeleteToken(db *gorm.DB, value string) error {
	if err := db.Unscoped().Where("value = ?", value).Delete(&FCMToken{}).Error; err != nil {
		return fmt.Errorf("failed to delete device token: %w", err)
	}
	return nil
}
