package event

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/tuannn09/event-connect-backend/internal/approval"
)

type Repository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id uint) (*Event, error)
	GetBySlug(ctx context.Context, slug string) (*Event, error)
	IncrementViewCount(ctx context.Context, id uint) error
	List(ctx context.Context, f ListFilter) ([]Event, int64, error)
	Featured(ctx context.Context, limit int) ([]Event, error)
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id uint) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	SetFeatured(ctx context.Context, id uint, featured bool) error

	SubmitFeedback(ctx context.Context, fb *Feedback) error
	ListFeedback(ctx context.Context, eventID uint, limit, offset int) ([]Feedback, int64, error)
	RatingDistribution(ctx context.Context, eventID uint) ([]RatingBucket, error)
	AttendedRegistration(ctx context.Context, eventID, userID uint) (*RegistrationRef, error)
	RegistrantIDs(ctx context.Context, eventID uint) ([]uint, error)

	SweepStatuses(ctx context.Context, now time.Time) (int64, error)
}

// RegistrationRef is the slice of a registration row the feedback
// precondition needs. Read raw to keep the registration subsystem a
// separate package.
type RegistrationRef struct {
	ID        uint
	Status    string
	CheckedIn bool
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create inserts the event and, when it starts out pending, its
// approval record in the same transaction.
func (r *repository) Create(ctx context.Context, e *Event) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(e).Error; err != nil {
			return err
		}
		if e.Status == StatusPending {
			a := &approval.EventApproval{
				EventID:     e.ID,
				Status:      approval.StatusPending,
				SubmittedAt: time.Now(),
			}
			return tx.Create(a).Error
		}
		return nil
	})
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Event, error) {
	var e Event
	err := r.db.WithContext(ctx).
		Preload("Club").
		Preload("CreatedBy").
		First(&e, id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (*Event, error) {
	var e Event
	err := r.db.WithContext(ctx).
		Preload("Club").
		Preload("CreatedBy").
		Where("slug = ?", slug).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// IncrementViewCount bumps the counter server-side. Every fetch counts,
// repeat viewers included.
func (r *repository) IncrementViewCount(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&Event{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Event, int64, error) {
	var events []Event
	var total int64

	query := r.db.WithContext(ctx).Model(&Event{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.ClubID != 0 {
		query = query.Where("club_id = ?", f.ClubID)
	}
	if f.Featured != nil {
		query = query.Where("is_featured = ?", *f.Featured)
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		query = query.Where("LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", pattern, pattern)
	}
	if f.Upcoming {
		query = query.Where("start_at > ?", time.Now())
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Club").
		Order("start_at ASC").
		Limit(f.Limit).Offset((f.Page - 1) * f.Limit).
		Find(&events).Error
	return events, total, err
}

// Featured returns upcoming approved events flagged for the landing
// page.
func (r *repository) Featured(ctx context.Context, limit int) ([]Event, error) {
	var events []Event
	err := r.db.WithContext(ctx).
		Preload("Club").
		Where("is_featured = ? AND status = ? AND start_at > ?", true, StatusApproved, time.Now()).
		Order("start_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *repository) Update(ctx context.Context, e *Event) error {
	return r.db.WithContext(ctx).Save(e).Error
}

// Delete cascades to everything the event owns.
func (r *repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []string{
			"DELETE FROM feedbacks WHERE event_id = ?",
			"DELETE FROM event_registrations WHERE event_id = ?",
			"DELETE FROM event_approvals WHERE event_id = ?",
		}
		for _, stmt := range steps {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&Event{}, id).Error
	})
}

func (r *repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Event{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *repository) SetFeatured(ctx context.Context, id uint, featured bool) error {
	res := r.db.WithContext(ctx).Model(&Event{}).
		Where("id = ?", id).
		UpdateColumn("is_featured", featured)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SubmitFeedback inserts the feedback and recomputes the event's rating
// aggregates in one transaction, so average_rating and rating_count
// always reflect the stored rows.
func (r *repository) SubmitFeedback(ctx context.Context, fb *Feedback) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(fb).Error; err != nil {
			return err
		}

		var agg struct {
			Avg   float64
			Count int64
		}
		err := tx.Model(&Feedback{}).
			Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
			Where("event_id = ? AND is_approved = ?", fb.EventID, true).
			Scan(&agg).Error
		if err != nil {
			return err
		}

		rounded := math.Round(agg.Avg*100) / 100
		return tx.Model(&Event{}).
			Where("id = ?", fb.EventID).
			UpdateColumns(map[string]interface{}{
				"average_rating": rounded,
				"rating_count":   agg.Count,
			}).Error
	})
}

func (r *repository) ListFeedback(ctx context.Context, eventID uint, limit, offset int) ([]Feedback, int64, error) {
	var items []Feedback
	var total int64

	query := r.db.WithContext(ctx).Model(&Feedback{}).
		Where("event_id = ? AND is_approved = ?", eventID, true)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&items).Error
	return items, total, err
}

// RatingDistribution returns counts per rating 1..5, zero-filled.
func (r *repository) RatingDistribution(ctx context.Context, eventID uint) ([]RatingBucket, error) {
	var rows []RatingBucket
	err := r.db.WithContext(ctx).Model(&Feedback{}).
		Select("rating, COUNT(*) AS count").
		Where("event_id = ? AND is_approved = ?", eventID, true).
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	buckets := make([]RatingBucket, 5)
	for i := range buckets {
		buckets[i] = RatingBucket{Rating: i + 1}
	}
	for _, row := range rows {
		if row.Rating >= 1 && row.Rating <= 5 {
			buckets[row.Rating-1].Count = row.Count
		}
	}
	return buckets, nil
}

func (r *repository) AttendedRegistration(ctx context.Context, eventID, userID uint) (*RegistrationRef, error) {
	var ref RegistrationRef
	err := r.db.WithContext(ctx).Table("event_registrations").
		Select("id, status, checked_in").
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Take(&ref).Error
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *repository) RegistrantIDs(ctx context.Context, eventID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Table("event_registrations").
		Where("event_id = ? AND status = ?", eventID, "registered").
		Pluck("user_id", &ids).Error
	return ids, err
}

// SweepStatuses advances approved events to ongoing and ongoing/overdue
// events to completed based on the clock. Driven externally, typically
// from a cron hitting the admin endpoint.
func (r *repository) SweepStatuses(ctx context.Context, now time.Time) (int64, error) {
	var moved int64

	res := r.db.WithContext(ctx).Model(&Event{}).
		Where("status = ? AND start_at <= ? AND end_at > ?", StatusApproved, now, now).
		UpdateColumn("status", StatusOngoing)
	if res.Error != nil {
		return moved, res.Error
	}
	moved += res.RowsAffected

	res = r.db.WithContext(ctx).Model(&Event{}).
		Where("status IN ? AND end_at <= ?", []string{StatusApproved, StatusOngoing}, now).
		UpdateColumn("status", StatusCompleted)
	if res.Error != nil {
		return moved, res.Error
	}
	moved += res.RowsAffected

	return moved, nil
}
