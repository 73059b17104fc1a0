package approval

import (
	"time"

	"github.com/tuannn09/event-connect-backend/internal/auth"
)

// Approval statuses. An approval is terminal once reviewed.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// EventApproval is the moderation record for an event that requires
// review. One per event, created alongside the event.
type EventApproval struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	EventID uint `gorm:"not null;uniqueIndex" json:"event_id"`

	Status  string `gorm:"size:20;not null;default:pending;index" json:"status"`
	Comment string `gorm:"type:text" json:"comment"`

	ReviewerID *uint      `gorm:"index" json:"reviewer_id,omitempty"`
	Reviewer   *auth.User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`

	SubmittedAt time.Time  `gorm:"not null" json:"submitted_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

func (EventApproval) TableName() string {
	return "event_approvals"
}

// View joins in the event fields reviewers need to triage without a
// second round trip.
type View struct {
	EventApproval
	EventTitle string    `json:"event_title"`
	EventSlug  string    `json:"event_slug"`
	ClubID     uint      `json:"club_id"`
	ClubName   string    `json:"club_name"`
	StartAt    time.Time `json:"start_at"`
}

type ReviewRequest struct {
	Comment string `json:"comment"`
}

type RejectRequest struct {
	Comment string `json:"comment" binding:"required"`
}
