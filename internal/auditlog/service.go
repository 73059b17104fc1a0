package auditlog

import (
	"context"
	"encoding/json"
	"log"
	"math"
)

type Service interface {
	// LogActivity appends an entry to the audit trail. It is
	// fire-and-forget: a write failure is logged and never propagated
	// to the operation that triggered it.
	LogActivity(ctx context.Context, userID *uint, action, description string, meta interface{}, ip string)
	GetActivityLogs(ctx context.Context, filter Filter) (*Paginated, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) LogActivity(ctx context.Context, userID *uint, action, description string, meta interface{}, ip string) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		metaJSON = []byte("{}")
	}

	entry := &ActivityLog{
		UserID:      userID,
		Action:      action,
		Description: description,
		Metadata:    metaJSON,
		IPAddress:   ip,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		log.Printf("activity log write failed (action=%s): %v", action, err)
	}
}

func (s *service) GetActivityLogs(ctx context.Context, filter Filter) (*Paginated, error) {
	logs, total, err := s.repo.GetByFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	return &Paginated{
		Data:       logs,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}
