package club

import (
	"time"

	"github.com/tuannn09/event-connect-backend/internal/auth"
)

// Club statuses
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// Club owns events and carries the admin set that gates them. President
// is nullable: removing the account leaves the club headless, not gone.
type Club struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"size:200;uniqueIndex;not null" json:"name"`
	Slug         string `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	Description  string `gorm:"type:text" json:"description"`
	Faculty      string `gorm:"size:100" json:"faculty"`
	ContactEmail string `gorm:"size:100" json:"contact_email"`
	ContactPhone string `gorm:"size:15" json:"contact_phone,omitempty"`
	Logo         string `gorm:"size:500" json:"logo,omitempty"` // opaque blob-store reference
	Status       string `gorm:"size:20;not null;default:active" json:"status"`

	PresidentID *uint      `gorm:"index" json:"president_id,omitempty"`
	President   *auth.User `gorm:"foreignKey:PresidentID" json:"president,omitempty"`
	Admins      []auth.User `gorm:"many2many:club_admins" json:"admins,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Club) TableName() string {
	return "clubs"
}

// Membership roles
const (
	RoleMember    = "member"
	RoleAdmin     = "admin"
	RolePresident = "president"
)

type ClubMembership struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_club_member" json:"user_id"`
	ClubID   uint      `gorm:"not null;uniqueIndex:idx_club_member" json:"club_id"`
	Role     string    `gorm:"size:20;not null;default:member" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	User auth.User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ClubMembership) TableName() string {
	return "club_memberships"
}

type CreateClubRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description" binding:"required"`
	Faculty      string `json:"faculty" binding:"required"`
	ContactEmail string `json:"contact_email" binding:"required,email"`
	ContactPhone string `json:"contact_phone"`
	PresidentID  *uint  `json:"president_id"`
}

type UpdateClubRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Faculty      string `json:"faculty"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Status       string `json:"status"`
	PresidentID  *uint  `json:"president_id"`
}
