package repository

import (
	"time"

	"pilotopos/internal/model"
	"pilotopos/pkg/database"

	"gorm.io/gorm"
)

type UserRepository interface {
	FindByUsername(tx *gorm.DB, username string) (*model.User, error)
	FindByID(tx *gorm.DB, id uint) (*model.User, error)
	Create(tx *gorm.DB, user *model.User) error
	Update(tx *gorm.DB, user *model.User) error
	UpdateTokenVersion(tx *gorm.DB, userID uint, version string) error
	TouchLastAccess(tx *gorm.DB, userID uint, at time.Time) error
}

type userRepo struct{}

func NewUserRepo() UserRepository {
	return &userRepo{}
}

func (r *userRepo) FindByUsername(tx *gorm.DB, username string) (*model.User, error) {
	var user model.User
	if err := tx.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) FindByID(tx *gorm.DB, id uint) (*model.User, error) {
	var user model.User
	if err := tx.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Create(tx *gorm.DB, user *model.User) error {
	return database.Classify(tx.Create(user).Error, "insert user")
}

// Update writes every column, including a false activo.
func (r *userRepo) Update(tx *gorm.DB, user *model.User) error {
	return database.Classify(tx.Save(user).Error, "update user")
}

func (r *userRepo) UpdateTokenVersion(tx *gorm.DB, userID uint, version string) error {
	return tx.Model(&model.User{}).Where("id = ?", userID).Update("token_version", version).Error
}

func (r *userRepo) TouchLastAccess(tx *gorm.DB, userID uint, at time.Time) error {
	return tx.Model(&model.User{}).Where("id = ?", userID).Update("ultimo_acceso", at).Error
}
