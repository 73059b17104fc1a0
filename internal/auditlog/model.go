package auditlog

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog is the append-only audit trail of privileged actions.
type ActivityLog struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      *uint          `gorm:"index" json:"user_id"` // nullable, actor may be deleted
	Action      string         `gorm:"size:50;not null;index" json:"action"`
	Description string         `gorm:"type:text" json:"description"`
	Metadata    datatypes.JSON `gorm:"type:jsonb" json:"metadata"`
	IPAddress   string         `gorm:"size:45" json:"ip_address"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

// Action names recorded by the core workflows.
const (
	ActionEventCreated  = "event_created"
	ActionEventUpdated  = "event_updated"
	ActionEventDeleted  = "event_deleted"
	ActionEventApproved = "event_approved"
	ActionEventRejected = "event_rejected"
	ActionClubCreated   = "club_created"
	ActionClubUpdated   = "club_updated"
	ActionClubDeleted   = "club_deleted"
)

// EventMeta is the metadata schema for event_* actions. The version
// field keeps the trail machine-checkable when the schema evolves.
type EventMeta struct {
	Version         int    `json:"version"`
	EventID         uint   `json:"event_id"`
	EventTitle      string `json:"event_title"`
	ClubID          *uint  `json:"club_id,omitempty"`
	ClubName        string `json:"club_name,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// ClubMeta is the metadata schema for club_* actions.
type ClubMeta struct {
	Version  int    `json:"version"`
	ClubID   uint   `json:"club_id"`
	ClubName string `json:"club_name"`
}

const MetaVersion = 1

// Filter narrows activity-log listings.
type Filter struct {
	UserID *uint
	Action string
	Page   int
	Limit  int
}

type Paginated struct {
	Data       []ActivityLog `json:"data"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"total_pages"`
}
