package auth

import (
	"errors"

	"gorm.io/gorm"
)

type Repository interface {
	Create(user *User) error
	GetByID(id uint) (User, error)
	GetByUsername(username string) (User, error)
	UsernameOrEmailTaken(username, email string) (bool, error)
	Save(user *User) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(user *User) error {
	return r.db.Create(user).Error
}

func (r *repository) Save(user *User) error {
	return r.db.Save(user).Error
}

func (r *repository) GetByID(id uint) (User, error) {
	var u User
	err := r.db.First(&u, id).Error
	return u, err
}

func (r *repository) GetByUsername(username string) (User, error) {
	var u User
	err := r.db.Where("username = ? OR email = ?", username, username).First(&u).Error
	return u, err
}

func (r *repository) UsernameOrEmailTaken(username, email string) (bool, error) {
	var count int64
	err := r.db.Model(&User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

// SeedSystemAdmin creates the bootstrap system administrator when no
// superuser exists yet. Credentials come from the environment of the
// deployment; the default password must be rotated on first login.
func SeedSystemAdmin(db *gorm.DB, username, email, passwordHash string) error {
	var existing User
	err := db.Where("is_superuser = ?", true).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	admin := User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     "System Administrator",
		Role:         "system_admin",
		IsSuperuser:  true,
	}
	return db.Create(&admin).Error
}
