package model

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is a staff account allowed into the back office.
type User struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"username" validate:"required"`
	Hash         string     `gorm:"column:hash;type:varchar(255);not null" json:"-"`
	Active       bool       `gorm:"column:activo;default:true" json:"activo"`
	LastAccess   *time.Time `gorm:"column:ultimo_acceso" json:"ultimo_acceso,omitempty"`
	TokenVersion string     `gorm:"type:varchar(64);default:''" json:"-"` // rotated on login, revokes older bearer tokens
}

func (User) TableName() string { return "usuarios" }

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Hash = string(hashed)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) == nil
}
