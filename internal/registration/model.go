package registration

import (
	"time"

	"github.com/tuannn09/event-connect-backend/internal/auth"
	"github.com/tuannn09/event-connect-backend/internal/event"
)

// Registration statuses.
const (
	StatusRegistered = "registered"
	StatusAttended   = "attended"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"
)

// EventRegistration is a user's claim on an event seat. The
// (event, user) unique index is the storage-level defense against
// concurrent double registration.
type EventRegistration struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	EventID uint `gorm:"not null;uniqueIndex:idx_event_user_reg" json:"event_id"`
	UserID  uint `gorm:"not null;uniqueIndex:idx_event_user_reg" json:"user_id"`

	Event event.Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
	User  auth.User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Status string `gorm:"size:20;not null;default:registered;index" json:"status"`
	Note   string `gorm:"type:text" json:"note,omitempty"`

	// QRCode is nil only before issuance. Unique so a scanned token
	// resolves to exactly one registration.
	QRCode *string `gorm:"size:100;uniqueIndex" json:"qr_code,omitempty"`

	CheckedIn   bool       `gorm:"default:false" json:"checked_in"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`

	RegisteredAt time.Time `gorm:"autoCreateTime" json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (EventRegistration) TableName() string {
	return "event_registrations"
}

type RegisterRequest struct {
	Note string `json:"note"`
}

type CheckInTokenRequest struct {
	QRCode string `json:"qr_code" binding:"required"`
}
