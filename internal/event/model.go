package event

import (
	"time"

	"github.com/tuannn09/event-connect-backend/internal/auth"
	"github.com/tuannn09/event-connect-backend/internal/club"
)

// ===========================
// EVENT LIFECYCLE STATES
// ===========================
//
// draft -> pending -> {approved, rejected}
// approved -> {ongoing, completed, cancelled}
//
// pending/approved/rejected are terminal for direct edits by
// non-privileged callers; ongoing/completed are driven by the status
// sweep comparing wall clock against start_at/end_at.
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

type Event struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Slug        string `gorm:"size:220;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"size:50;index" json:"category"`

	ClubID uint      `gorm:"not null;index" json:"club_id"`
	Club   club.Club `gorm:"foreignKey:ClubID" json:"club,omitempty"`

	// Nullable so deleting the creator's account keeps the event.
	CreatedByID *uint      `gorm:"index" json:"created_by_id,omitempty"`
	CreatedBy   *auth.User `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`

	Location string    `gorm:"size:200" json:"location"`
	StartAt  time.Time `gorm:"not null;index" json:"start_at"`
	EndAt    time.Time `gorm:"not null" json:"end_at"`

	RegistrationStart *time.Time `json:"registration_start,omitempty"`
	RegistrationEnd   *time.Time `json:"registration_end,omitempty"`

	// Capacity nil means unbounded. RegistrationCount is maintained
	// transactionally by the registration subsystem and never exceeds
	// Capacity when it is set.
	Capacity          *int `json:"capacity,omitempty"`
	RegistrationCount int  `gorm:"not null;default:0" json:"registration_count"`

	Status           string `gorm:"size:20;not null;default:pending;index" json:"status"`
	IsFeatured       bool   `gorm:"default:false;index" json:"is_featured"`
	RequiresApproval bool   `gorm:"default:true" json:"requires_approval"`

	Poster string `gorm:"size:500" json:"poster,omitempty"` // opaque blob-store reference

	ViewCount     int64   `gorm:"not null;default:0" json:"view_count"`
	AverageRating float64 `gorm:"not null;default:0" json:"average_rating"`
	RatingCount   int64   `gorm:"not null;default:0" json:"rating_count"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

func (Event) TableName() string {
	return "events"
}

// IsFull reports whether the event has a capacity and it is reached.
func (e *Event) IsFull() bool {
	return e.Capacity != nil && e.RegistrationCount >= *e.Capacity
}

// IsRegistrationOpenAt reports whether t falls inside the registration
// window. A missing bound is unbounded on that side.
func (e *Event) IsRegistrationOpenAt(t time.Time) bool {
	if e.RegistrationStart != nil && t.Before(*e.RegistrationStart) {
		return false
	}
	if e.RegistrationEnd != nil && t.After(*e.RegistrationEnd) {
		return false
	}
	return true
}

// Feedback is a per-user rating on an event the user attended. The
// (event, user) unique index is the last defense against concurrent
// double submission.
type Feedback struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	EventID uint `gorm:"not null;uniqueIndex:idx_event_user_feedback" json:"event_id"`
	UserID  uint `gorm:"not null;uniqueIndex:idx_event_user_feedback" json:"user_id"`

	// The registration this feedback was derived from, if still present.
	RegistrationID *uint `json:"registration_id,omitempty"`

	Rating      int    `gorm:"not null" json:"rating"` // 1..5
	Comment     string `gorm:"type:text" json:"comment"`
	IsApproved  bool   `gorm:"default:true" json:"is_approved"`
	IsAnonymous bool   `gorm:"default:false" json:"is_anonymous"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Feedback) TableName() string {
	return "feedbacks"
}

// ===========================
// REQUEST / RESPONSE TYPES
// ===========================

type CreateEventRequest struct {
	Title             string     `json:"title" binding:"required"`
	Description       string     `json:"description" binding:"required"`
	Category          string     `json:"category"`
	Location          string     `json:"location" binding:"required"`
	StartAt           time.Time  `json:"start_at" binding:"required"`
	EndAt             time.Time  `json:"end_at" binding:"required"`
	RegistrationStart *time.Time `json:"registration_start"`
	RegistrationEnd   *time.Time `json:"registration_end"`
	Capacity          *int       `json:"capacity"`
	RequiresApproval  *bool      `json:"requires_approval"`
}

type UpdateEventRequest struct {
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Category          string     `json:"category"`
	Location          string     `json:"location"`
	StartAt           *time.Time `json:"start_at"`
	EndAt             *time.Time `json:"end_at"`
	RegistrationStart *time.Time `json:"registration_start"`
	RegistrationEnd   *time.Time `json:"registration_end"`
	Capacity          *int       `json:"capacity"`
	Status            string     `json:"status"` // only "cancelled" is accepted here
}

type FeedbackRequest struct {
	Rating      int    `json:"rating" binding:"required,min=1,max=5"`
	Comment     string `json:"comment"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// ListFilter narrows event listings.
// SearchResult carries an event hit plus copies of the matched fields
// with the query wrapped in <mark> tags for the frontend.
type SearchResult struct {
	Event       Event  `json:"event"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ListFilter struct {
	Status   string
	Category string
	ClubID   uint
	Featured *bool
	Search   string
	Upcoming bool
	Page     int
	Limit    int
}

// RatingBucket is one row of the rating distribution, zero-filled for
// ratings nobody picked.
type RatingBucket struct {
	Rating int   `json:"rating"`
	Count  int64 `json:"count"`
}
