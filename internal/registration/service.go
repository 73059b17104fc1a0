package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tuannn09/event-connect-backend/internal/apperr"
	"github.com/tuannn09/event-connect-backend/internal/club"
	"github.com/tuannn09/event-connect-backend/internal/event"
	"github.com/tuannn09/event-connect-backend/internal/notification"
	"github.com/tuannn09/event-connect-backend/middleware"
)

// ===========================
// SERVICE INTERFACE
// ===========================

type Service interface {
	Register(ctx context.Context, ac middleware.AccessContext, eventID uint, note string) (*EventRegistration, error)
	Unregister(ctx context.Context, ac middleware.AccessContext, eventID uint) error
	MyRegistrations(ctx context.Context, ac middleware.AccessContext) ([]EventRegistration, error)
	Get(ctx context.Context, ac middleware.AccessContext, id uint) (*EventRegistration, error)

	Participants(ctx context.Context, ac middleware.AccessContext, eventID uint, status string) ([]EventRegistration, error)
	CheckIn(ctx context.Context, ac middleware.AccessContext, registrationID uint) (*EventRegistration, error)
	CheckInByToken(ctx context.Context, ac middleware.AccessContext, token string) (*EventRegistration, error)
	MarkNoShows(ctx context.Context, ac middleware.AccessContext, eventID uint) (int64, error)
}

type service struct {
	repo     Repository
	clubSvc  club.Service
	notifSvc notification.Service
}

func NewService(repo Repository, clubSvc club.Service, notifSvc notification.Service) Service {
	return &service{repo: repo, clubSvc: clubSvc, notifSvc: notifSvc}
}

// ===========================
// REGISTRATION
// ===========================

func (s *service) Register(ctx context.Context, ac middleware.AccessContext, eventID uint, note string) (*EventRegistration, error) {
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("event not found")
		}
		return nil, err
	}

	if e.Status != event.StatusApproved && e.Status != event.StatusOngoing {
		return nil, apperr.Precondition("event is not open for registration").
			With("event_status", e.Status)
	}

	if _, err := s.repo.GetByEventAndUser(ctx, eventID, ac.UserID); err == nil {
		return nil, apperr.Conflict("already registered for this event")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	if !e.IsRegistrationOpenAt(now) {
		regErr := apperr.Precondition("registration window is closed")
		if e.RegistrationStart != nil {
			regErr.With("registration_start", e.RegistrationStart)
		}
		if e.RegistrationEnd != nil {
			regErr.With("registration_end", e.RegistrationEnd)
		}
		return nil, regErr
	}

	// Advisory pre-check: the transactional counter update in the
	// repository is the authoritative guard.
	if e.IsFull() {
		return nil, fullError(e)
	}

	token := qrToken(eventID, ac.UserID)
	reg := &EventRegistration{
		EventID: eventID,
		UserID:  ac.UserID,
		Status:  StatusRegistered,
		Note:    note,
		QRCode:  &token,
	}

	if err := s.repo.Register(ctx, reg); err != nil {
		if errors.Is(err, ErrEventFull) {
			return nil, fullError(e)
		}
		return nil, apperr.Conflict("already registered for this event")
	}

	clubID := e.ClubID
	s.notifSvc.Notify(ctx, notification.Message{
		UserID:  ac.UserID,
		Type:    notification.TypeRegistrationConfirmed,
		Title:   "Registration confirmed",
		Message: fmt.Sprintf("You are registered for %s", e.Title),
		EventID: &eventID,
		ClubID:  &clubID,
	})

	return reg, nil
}

func (s *service) Unregister(ctx context.Context, ac middleware.AccessContext, eventID uint) error {
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("event not found")
		}
		return err
	}

	removed, err := s.repo.Unregister(ctx, eventID, ac.UserID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("no registration for this event")
	}
	return nil
}

func (s *service) MyRegistrations(ctx context.Context, ac middleware.AccessContext) ([]EventRegistration, error) {
	return s.repo.ListByUser(ctx, ac.UserID)
}

func (s *service) Get(ctx context.Context, ac middleware.AccessContext, id uint) (*EventRegistration, error) {
	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("registration not found")
		}
		return nil, err
	}

	if reg.UserID != ac.UserID {
		if err := s.requireManager(ctx, ac, &reg.Event); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// ===========================
// ATTENDANCE
// ===========================

func (s *service) Participants(ctx context.Context, ac middleware.AccessContext, eventID uint, status string) ([]EventRegistration, error) {
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("event not found")
		}
		return nil, err
	}

	if err := s.requireManager(ctx, ac, e); err != nil {
		return nil, err
	}
	return s.repo.ListByEvent(ctx, eventID, status)
}

// CheckIn is idempotent: checking in an already checked-in attendee
// returns the registration unchanged rather than an error, so a
// double-scanned QR code never blocks the door.
func (s *service) CheckIn(ctx context.Context, ac middleware.AccessContext, registrationID uint) (*EventRegistration, error) {
	reg, err := s.repo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("registration not found")
		}
		return nil, err
	}

	return s.checkIn(ctx, ac, reg)
}

func (s *service) CheckInByToken(ctx context.Context, ac middleware.AccessContext, token string) (*EventRegistration, error) {
	reg, err := s.repo.GetByQRCode(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("unknown QR code")
		}
		return nil, err
	}

	return s.checkIn(ctx, ac, reg)
}

func (s *service) checkIn(ctx context.Context, ac middleware.AccessContext, reg *EventRegistration) (*EventRegistration, error) {
	e, err := s.repo.GetEvent(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManager(ctx, ac, e); err != nil {
		return nil, err
	}

	if reg.Status == StatusCancelled {
		return nil, apperr.Precondition("registration was cancelled").
			With("registration_status", reg.Status)
	}
	if reg.CheckedIn {
		return reg, nil
	}

	now := time.Now()
	if err := s.repo.CheckIn(ctx, reg.ID, now); err != nil {
		return nil, err
	}

	reg.CheckedIn = true
	reg.CheckedInAt = &now
	reg.Status = StatusAttended
	return reg, nil
}

func (s *service) MarkNoShows(ctx context.Context, ac middleware.AccessContext, eventID uint) (int64, error) {
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.NotFound("event not found")
		}
		return 0, err
	}
	if err := s.requireManager(ctx, ac, e); err != nil {
		return 0, err
	}
	if e.Status != event.StatusCompleted {
		return 0, apperr.Precondition("no-shows can only be marked after the event ends").
			With("event_status", e.Status)
	}

	return s.repo.MarkNoShows(ctx, eventID)
}

// ===========================
// HELPERS
// ===========================

func (s *service) requireManager(ctx context.Context, ac middleware.AccessContext, e *event.Event) error {
	if ac.IsSuperuser {
		return nil
	}
	if e.CreatedByID != nil && *e.CreatedByID == ac.UserID {
		return nil
	}
	ok, err := s.clubSvc.IsClubAdmin(ctx, ac.UserID, e.ClubID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("you do not manage this event")
	}
	return nil
}

func fullError(e *event.Event) error {
	err := apperr.Precondition("event is full").
		With("is_full", true).
		With("current_registrations", e.RegistrationCount)
	if e.Capacity != nil {
		err.With("capacity", *e.Capacity)
	}
	return err
}

// qrToken issues the opaque check-in credential. The random suffix
// keeps tokens unguessable even though the prefix embeds the ids.
func qrToken(eventID, userID uint) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("EVT-%d-USR-%d-%s", eventID, userID, suffix)
}
