package approval

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	GetByID(ctx context.Context, id uint) (*EventApproval, error)
	GetByEventID(ctx context.Context, eventID uint) (*EventApproval, error)
	List(ctx context.Context, status string, limit, offset int) ([]View, int64, error)

	// Review settles a pending approval and mirrors the decision onto
	// the event row in one transaction. Returns false without mutating
	// anything when the approval was already reviewed.
	Review(ctx context.Context, id uint, status, comment string, reviewerID uint, reviewedAt time.Time) (bool, error)

	EventInfo(ctx context.Context, eventID uint) (*EventInfo, error)
}

// EventInfo is the event slice needed to notify and audit a decision.
// Read raw so this package stays independent of the event package.
type EventInfo struct {
	Title       string
	ClubID      uint
	ClubName    string
	CreatedByID *uint
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uint) (*EventApproval, error) {
	var a EventApproval
	err := r.db.WithContext(ctx).Preload("Reviewer").First(&a, id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) GetByEventID(ctx context.Context, eventID uint) (*EventApproval, error) {
	var a EventApproval
	err := r.db.WithContext(ctx).Preload("Reviewer").
		Where("event_id = ?", eventID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns approvals newest-submitted-first. The pending queue uses
// the same order: reviewers see the most recent submissions on top.
func (r *repository) List(ctx context.Context, status string, limit, offset int) ([]View, int64, error) {
	var total int64
	countQuery := r.db.WithContext(ctx).Model(&EventApproval{})
	if status != "" {
		countQuery = countQuery.Where("event_approvals.status = ?", status)
	}
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var views []View
	query := r.db.WithContext(ctx).Model(&EventApproval{}).
		Select("event_approvals.*, events.title AS event_title, events.slug AS event_slug, events.club_id AS club_id, clubs.name AS club_name, events.start_at AS start_at").
		Joins("JOIN events ON events.id = event_approvals.event_id").
		Joins("JOIN clubs ON clubs.id = events.club_id")
	if status != "" {
		query = query.Where("event_approvals.status = ?", status)
	}

	err := query.Order("event_approvals.submitted_at DESC").
		Limit(limit).Offset(offset).
		Scan(&views).Error
	return views, total, err
}

func (r *repository) Review(ctx context.Context, id uint, status, comment string, reviewerID uint, reviewedAt time.Time) (bool, error) {
	settled := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional update is the concurrency guard: of two racing
		// reviewers only one flips the row out of pending.
		res := tx.Model(&EventApproval{}).
			Where("id = ? AND status = ?", id, StatusPending).
			Updates(map[string]interface{}{
				"status":      status,
				"comment":     comment,
				"reviewer_id": reviewerID,
				"reviewed_at": reviewedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		var row struct{ EventID uint }
		if err := tx.Model(&EventApproval{}).Select("event_id").
			Where("id = ?", id).Take(&row).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"status": status}
		if status == StatusApproved {
			updates["approved_at"] = reviewedAt
		}
		if err := tx.Table("events").Where("id = ?", row.EventID).
			Updates(updates).Error; err != nil {
			return err
		}

		settled = true
		return nil
	})
	return settled, err
}

func (r *repository) EventInfo(ctx context.Context, eventID uint) (*EventInfo, error) {
	var info EventInfo
	err := r.db.WithContext(ctx).Table("events").
		Select("events.title, events.club_id, clubs.name AS club_name, events.created_by_id").
		Joins("JOIN clubs ON clubs.id = events.club_id").
		Where("events.id = ?", eventID).
		Take(&info).Error
	if err != nil {
		return nil, err
	}
	return &info, nil
}
