package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tuannn09/event-connect-backend/internal/apperr"
	"github.com/tuannn09/event-connect-backend/internal/auditlog"
	"github.com/tuannn09/event-connect-backend/internal/notification"
	"github.com/tuannn09/event-connect-backend/middleware"
)

type Service interface {
	List(ctx context.Context, ac middleware.AccessContext, status string, page, limit int) ([]View, int64, error)
	Pending(ctx context.Context, ac middleware.AccessContext, page, limit int) ([]View, int64, error)
	Get(ctx context.Context, ac middleware.AccessContext, id uint) (*EventApproval, error)
	Approve(ctx context.Context, ac middleware.AccessContext, id uint, comment, ip string) (*EventApproval, error)
	Reject(ctx context.Context, ac middleware.AccessContext, id uint, comment, ip string) (*EventApproval, error)
}

type service struct {
	repo     Repository
	auditSvc auditlog.Service
	notifSvc notification.Service
}

func NewService(repo Repository, auditSvc auditlog.Service, notifSvc notification.Service) Service {
	return &service{repo: repo, auditSvc: auditSvc, notifSvc: notifSvc}
}

func (s *service) List(ctx context.Context, ac middleware.AccessContext, status string, page, limit int) ([]View, int64, error) {
	if !ac.CanReviewEvents() {
		return nil, 0, apperr.Forbidden("only system administrators can review events")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	return s.repo.List(ctx, status, limit, (page-1)*limit)
}

func (s *service) Pending(ctx context.Context, ac middleware.AccessContext, page, limit int) ([]View, int64, error) {
	return s.List(ctx, ac, StatusPending, page, limit)
}

func (s *service) Get(ctx context.Context, ac middleware.AccessContext, id uint) (*EventApproval, error) {
	if !ac.CanReviewEvents() {
		return nil, apperr.Forbidden("only system administrators can review events")
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("approval not found")
		}
		return nil, err
	}
	return a, nil
}

func (s *service) Approve(ctx context.Context, ac middleware.AccessContext, id uint, comment, ip string) (*EventApproval, error) {
	return s.review(ctx, ac, id, StatusApproved, comment, ip)
}

func (s *service) Reject(ctx context.Context, ac middleware.AccessContext, id uint, comment, ip string) (*EventApproval, error) {
	if comment == "" {
		return nil, apperr.Validation("a rejection comment is required")
	}
	return s.review(ctx, ac, id, StatusRejected, comment, ip)
}

func (s *service) review(ctx context.Context, ac middleware.AccessContext, id uint, decision, comment, ip string) (*EventApproval, error) {
	if !ac.CanReviewEvents() {
		return nil, apperr.Forbidden("only system administrators can review events")
	}

	settled, err := s.repo.Review(ctx, id, decision, comment, ac.UserID, time.Now())
	if err != nil {
		return nil, err
	}
	if !settled {
		// Either the approval does not exist or it was already
		// reviewed. Re-read to report which.
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("approval not found")
			}
			return nil, err
		}
		return nil, apperr.Conflict("approval already reviewed").
			With("approval_status", current.Status)
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	info, err := s.repo.EventInfo(ctx, a.EventID)
	if err != nil {
		return a, nil
	}

	s.notifyCreator(ctx, a, info, decision, comment)
	s.audit(ctx, ac, a, info, decision, comment, ip)

	return a, nil
}

func (s *service) notifyCreator(ctx context.Context, a *EventApproval, info *EventInfo, decision, comment string) {
	if info.CreatedByID == nil {
		return
	}

	msg := notification.Message{
		UserID:  *info.CreatedByID,
		EventID: &a.EventID,
		ClubID:  &info.ClubID,
	}
	if decision == StatusApproved {
		msg.Type = notification.TypeEventApproved
		msg.Title = "Event approved"
		msg.Message = fmt.Sprintf("Your event %q has been approved", info.Title)
	} else {
		msg.Type = notification.TypeEventRejected
		msg.Title = "Event rejected"
		msg.Message = fmt.Sprintf("Your event %q was rejected: %s", info.Title, comment)
	}
	s.notifSvc.Notify(ctx, msg)
}

func (s *service) audit(ctx context.Context, ac middleware.AccessContext, a *EventApproval, info *EventInfo, decision, comment, ip string) {
	action := auditlog.ActionEventApproved
	desc := fmt.Sprintf("Event %q approved", info.Title)
	meta := auditlog.EventMeta{
		Version:    auditlog.MetaVersion,
		EventID:    a.EventID,
		EventTitle: info.Title,
		ClubID:     &info.ClubID,
		ClubName:   info.ClubName,
	}
	if decision == StatusRejected {
		action = auditlog.ActionEventRejected
		desc = fmt.Sprintf("Event %q rejected", info.Title)
		meta.RejectionReason = comment
	}
	s.auditSvc.LogActivity(ctx, &ac.UserID, action, desc, meta, ip)
}
