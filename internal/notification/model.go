package notification

import (
	"time"
)

// Notification is a per-user in-app notification row.
type Notification struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  uint   `gorm:"not null;index:idx_user_read" json:"user_id"`
	Type    string `gorm:"size:50;not null" json:"type"`
	Title   string `gorm:"size:200;not null" json:"title"`
	Message string `gorm:"type:text;not null" json:"message"`

	EventID *uint `gorm:"index" json:"event_id,omitempty"`
	ClubID  *uint `gorm:"index" json:"club_id,omitempty"`

	IsRead    bool       `gorm:"default:false;index:idx_user_read" json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// Notification types emitted by the core workflows.
const (
	TypeEventApproved         = "event_approved"
	TypeEventRejected         = "event_rejected"
	TypeEventCancelled        = "event_cancelled"
	TypeEventUpdated          = "event_updated"
	TypeRegistrationConfirmed = "registration_confirmed"
	TypeClubAnnouncement      = "club_announcement"
	TypeSystem                = "system"
)

// Message is the envelope published to the notifications topic and
// consumed back into Notification rows.
type Message struct {
	UserID  uint   `json:"user_id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	EventID *uint  `json:"event_id,omitempty"`
	ClubID  *uint  `json:"club_id,omitempty"`
}

// DeviceToken stores FCM push tokens per user device.
type DeviceToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_user_token,unique" json:"user_id"`
	Token     string    `gorm:"size:255;not null;index:idx_user_token,unique" json:"token"`
	Platform  string    `gorm:"size:20" json:"platform"` // android, ios, web
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DeviceToken) TableName() string {
	return "device_tokens"
}
