package Models

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Permission levels checked by middleware.Verify.
const (
	PermissionEmployee = 1
	PermissionAdmin    = 2
)

type User struct {
	gorm.Model
	Email      string `json:"email" gorm:"uniqueIndex;not null"`
	Name       string `json:"name"`
	Password   []byte `json:"-"`
	Permission int    `json:"permission"`
}

func (u User) IsAdmin() bool {
	return u.Permission >= PermissionAdmin
}

// SetPassword stores the bcrypt hash of password.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.Password = hash
	return nil
}

func (u User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(u.Password, []byte(password)) == nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser registers a new account. Emails are unique case-insensitively.
func CreateUser(db *gorm.DB, email, name, password string, permission int) (*User, error) {
	user := User{
		Email:      NormalizeEmail(email),
		Name:       name,
		Permission: permission,
	}

	var count int64
	if err := db.Model(&User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: user %s", ErrAlreadyExists, user.Email)
	}

	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: user %s", ErrAlreadyExists, user.Email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

func GetUserByEmail(db *gorm.DB, email string) (*User, error) {
	var user User
	if err := db.Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func GetUser(db *gorm.DB, id uint) (*User, error) {
	var user User
	if err := db.First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetAdmins returns every user holding admin permission.
func GetAdmins(db *gorm.DB) ([]User, error) {
	var admins []User
	if err := db.Where("permission >= ?", PermissionAdmin).Find(&admins).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch admins: %w", err)
	}
	return admins, nil
}
