package Models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type OnboardingReview struct {
	gorm.Model
	EmployeeID    uint      `json:"employee_id" gorm:"uniqueIndex;not null"`
	Employee      *Employee `json:"employee,omitempty" gorm:"foreignKey:EmployeeID"`
	OverallRating int       `json:"overall_rating"`
	Feedback      string    `json:"feedback"`
	Suggestions   string    `json:"suggestions"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

func (r *OnboardingReview) RealtimeKey() (uint, uint) {
	return r.ID, r.EmployeeID
}

// SubmitOnboardingReview stores the review and closes the employee's
// onboarding in the same transaction.
func SubmitOnboardingReview(db *gorm.DB, review *OnboardingReview) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&OnboardingReview{}).Where("employee_id = ?", review.EmployeeID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check existing review: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%w: review for employee %d", ErrAlreadyExists, review.EmployeeID)
		}

		if err := tx.Create(review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: review for employee %d", ErrAlreadyExists, review.EmployeeID)
			}
			return fmt.Errorf("failed to submit review: %w", err)
		}

		employee := Employee{Model: gorm.Model{ID: review.EmployeeID}}
		if err := tx.Model(&employee).Update("onboarding_completed", true).Error; err != nil {
			return fmt.Errorf("failed to close onboarding of employee %d: %w", review.EmployeeID, err)
		}
		return nil
	})
}

// GetAllReviews returns reviews, newest first, with the employee joined.
func GetAllReviews(db *gorm.DB) ([]OnboardingReview, error) {
	var reviews []OnboardingReview
	err := db.Preload("Employee").
		Order("submitted_at DESC").Order("id DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reviews: %w", err)
	}
	return reviews, nil
}
