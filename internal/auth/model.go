package auth

import (
	"time"
)

// User is the identity record every other component trusts. Role is one
// of student, club_admin, system_admin; IsSuperuser bypasses role gates.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;size:255;not null" json:"-"`
	FullName     string     `gorm:"size:150" json:"full_name"`
	Role         string     `gorm:"size:20;not null;default:student;index" json:"role"`
	IsSuperuser  bool       `gorm:"default:false" json:"is_superuser"`
	StudentID    *string    `gorm:"size:20;uniqueIndex" json:"student_id,omitempty"`
	Faculty      string     `gorm:"size:100" json:"faculty,omitempty"`
	Phone        string     `gorm:"size:15" json:"phone,omitempty"`
	Avatar       string     `gorm:"size:500" json:"avatar,omitempty"` // opaque blob-store reference
	Bio          string     `gorm:"type:text" json:"bio,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

type RegisterInput struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FullName  string `json:"full_name"`
	StudentID string `json:"student_id"`
	Faculty   string `json:"faculty"`
	Phone     string `json:"phone"`
}

// UpdateProfileInput covers the fields a user may edit on their own
// account. Role and superuser status are never settable here.
type UpdateProfileInput struct {
	FullName  *string `json:"full_name"`
	StudentID *string `json:"student_id"`
	Faculty   *string `json:"faculty"`
	Phone     *string `json:"phone"`
	Password  *string `json:"password" binding:"omitempty,min=8"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshInput struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
