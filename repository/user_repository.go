package repository

import (
	"time"

	"github.com/duckieducksrgood/winchpoint/entity"

	"gorm.io/gorm"
)

// UserRepository only talks to the users table.
type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) FindByEmail(email string) (*entity.User, error) {
	var user entity.User
	if err := r.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByLogin matches either username or email.
func (r *UserRepository) FindByLogin(identifier string) (*entity.User, error) {
	var user entity.User
	if err := r.DB.Where("username = ? OR email = ?", identifier, identifier).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// The unique indexes still cover soft-deleted users, so the counts do too.

func (r *UserRepository) CountByEmail(email string) (int64, error) {
	var count int64
	err := r.DB.Unscoped().Model(&entity.User{}).Where("email = ?", email).Count(&count).Error
	return count, err
}

func (r *UserRepository) CountByUsername(username string) (int64, error) {
	var count int64
	err := r.DB.Unscoped().Model(&entity.User{}).Where("username = ?", username).Count(&count).Error
	return count, err
}

func (r *UserRepository) EmailTakenByOther(email string, userID uint) (bool, error) {
	var count int64
	err := r.DB.Unscoped().Model(&entity.User{}).
		Where("email = ? AND id <> ?", email, userID).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) Create(user *entity.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) Update(userID uint, updates map[string]any) error {
	return r.DB.Model(&entity.User{}).Where("id = ?", userID).Updates(updates).Error
}

func (r *UserRepository) FindByID(id uint) (*entity.User, error) {
	var user entity.User
	if err := r.DB.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) List() ([]entity.User, error) {
	var out []entity.User
	return out, r.DB.Order("id").Find(&out).Error
}

func (r *UserRepository) Delete(id uint) (int64, error) {
	res := r.DB.Delete(&entity.User{}, id)
	return res.RowsAffected, res.Error
}

func (r *UserRepository) SetResetCode(userID uint, code string, expiresAt time.Time) error {
	return r.DB.Model(&entity.User{}).Where("id = ?", userID).
		Updates(map[string]any{"reset_code": code, "reset_code_expires_at": expiresAt, "reset_attempts": 0}).Error
}

// TakeResetAttempt spends one guess against the current code. False means
// the code is gone or its guesses are used up.
func (r *UserRepository) TakeResetAttempt(userID uint, limit int) (bool, error) {
	res := r.DB.Model(&entity.User{}).
		Where("id = ? AND reset_code <> '' AND reset_attempts < ?", userID, limit).
		Update("reset_attempts", gorm.Expr("reset_attempts + 1"))
	return res.RowsAffected == 1, res.Error
}

func (r *UserRepository) ClearResetCode(userID uint) error {
	return r.DB.Model(&entity.User{}).Where("id = ?", userID).
		Updates(map[string]any{"reset_code": "", "reset_code_expires_at": nil}).Error
}

// ResetPassword swaps the hash and clears the code in one statement.
func (r *UserRepository) ResetPassword(userID uint, hash string) error {
	return r.DB.Model(&entity.User{}).Where("id = ?", userID).
		Updates(map[string]any{"password": hash, "reset_code": "", "reset_code_expires_at": nil, "reset_attempts": 0}).Error
}
