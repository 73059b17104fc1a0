package registration

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tuannn09/event-connect-backend/internal/event"
)

// ErrEventFull marks a registration attempt that lost the capacity
// race: the conditional counter update matched no row.
var ErrEventFull = errors.New("event is at capacity")

type Repository interface {
	GetEvent(ctx context.Context, eventID uint) (*event.Event, error)

	// Register claims a seat: the counter increment and the row insert
	// commit together or not at all. The increment only matches while
	// registration_count < capacity, which serializes racing claims on
	// the event row.
	Register(ctx context.Context, reg *EventRegistration) error

	// Unregister deletes the row and decrements the counter, floored
	// at zero, in one transaction.
	Unregister(ctx context.Context, eventID, userID uint) (bool, error)

	GetByID(ctx context.Context, id uint) (*EventRegistration, error)
	GetByEventAndUser(ctx context.Context, eventID, userID uint) (*EventRegistration, error)
	GetByQRCode(ctx context.Context, token string) (*EventRegistration, error)
	ListByUser(ctx context.Context, userID uint) ([]EventRegistration, error)
	ListByEvent(ctx context.Context, eventID uint, status string) ([]EventRegistration, error)

	CheckIn(ctx context.Context, id uint, at time.Time) error
	MarkNoShows(ctx context.Context, eventID uint) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetEvent(ctx context.Context, eventID uint) (*event.Event, error) {
	var e event.Event
	if err := r.db.WithContext(ctx).First(&e, eventID).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) Register(ctx context.Context, reg *EventRegistration) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&event.Event{}).
			Where("id = ? AND (capacity IS NULL OR registration_count < capacity)", reg.EventID).
			UpdateColumn("registration_count", gorm.Expr("registration_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrEventFull
		}

		// A duplicate (event, user) insert fails on the unique index
		// and rolls the increment back with it.
		return tx.Create(reg).Error
	})
}

func (r *repository) Unregister(ctx context.Context, eventID, userID uint) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("event_id = ? AND user_id = ?", eventID, userID).
			Delete(&EventRegistration{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		removed = true
		return tx.Model(&event.Event{}).
			Where("id = ?", eventID).
			UpdateColumn("registration_count",
				gorm.Expr("CASE WHEN registration_count > 0 THEN registration_count - 1 ELSE 0 END")).Error
	})
	return removed, err
}

func (r *repository) GetByID(ctx context.Context, id uint) (*EventRegistration, error) {
	var reg EventRegistration
	err := r.db.WithContext(ctx).Preload("Event").First(&reg, id).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *repository) GetByEventAndUser(ctx context.Context, eventID, userID uint) (*EventRegistration, error) {
	var reg EventRegistration
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *repository) GetByQRCode(ctx context.Context, token string) (*EventRegistration, error) {
	var reg EventRegistration
	err := r.db.WithContext(ctx).
		Where("qr_code = ?", token).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]EventRegistration, error) {
	var regs []EventRegistration
	err := r.db.WithContext(ctx).
		Preload("Event").
		Preload("Event.Club").
		Where("user_id = ?", userID).
		Order("registered_at DESC").
		Find(&regs).Error
	return regs, err
}

func (r *repository) ListByEvent(ctx context.Context, eventID uint, status string) ([]EventRegistration, error) {
	var regs []EventRegistration
	query := r.db.WithContext(ctx).Preload("User").Where("event_id = ?", eventID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("registered_at ASC").Find(&regs).Error
	return regs, err
}

// CheckIn stamps attendance. The WHERE clause makes repeats no-ops at
// the storage layer too.
func (r *repository) CheckIn(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&EventRegistration{}).
		Where("id = ? AND checked_in = ?", id, false).
		Updates(map[string]interface{}{
			"checked_in":    true,
			"checked_in_at": at,
			"status":        StatusAttended,
		}).Error
}

// MarkNoShows flips registrations that never checked in once the event
// is over.
func (r *repository) MarkNoShows(ctx context.Context, eventID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&EventRegistration{}).
		Where("event_id = ? AND status = ? AND checked_in = ?", eventID, StatusRegistered, false).
		UpdateColumn("status", StatusNoShow)
	return res.RowsAffected, res.Error
}
