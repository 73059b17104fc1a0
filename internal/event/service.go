package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tuannn09/event-connect-backend/internal/apperr"
	"github.com/tuannn09/event-connect-backend/internal/auditlog"
	"github.com/tuannn09/event-connect-backend/internal/club"
	"github.com/tuannn09/event-connect-backend/internal/notification"
	"github.com/tuannn09/event-connect-backend/middleware"
	"github.com/tuannn09/event-connect-backend/utils"
)

const (
	featuredCacheKey = "events:featured"
	featuredCacheTTL = 60 * time.Second
	featuredLimit    = 10
	searchLimit      = 20
)

// ===========================
// SERVICE INTERFACE
// ===========================

type Service interface {
	CreateEvent(ctx context.Context, ac middleware.AccessContext, clubID uint, req CreateEventRequest, ip string) (*Event, error)
	GetEvent(ctx context.Context, id uint) (*Event, error)
	GetEventBySlug(ctx context.Context, slug string) (*Event, error)
	ListEvents(ctx context.Context, f ListFilter) ([]Event, int64, error)
	SearchEvents(ctx context.Context, query string) ([]SearchResult, error)
	FeaturedEvents(ctx context.Context) ([]Event, error)
	UpdateEvent(ctx context.Context, ac middleware.AccessContext, id uint, req UpdateEventRequest, ip string) (*Event, error)
	DeleteEvent(ctx context.Context, ac middleware.AccessContext, id uint, ip string) error
	SetFeatured(ctx context.Context, ac middleware.AccessContext, id uint, featured bool) error
	SavePosterRef(ctx context.Context, ac middleware.AccessContext, id uint, ref string) (*Event, error)

	SubmitFeedback(ctx context.Context, ac middleware.AccessContext, eventID uint, req FeedbackRequest) (*Feedback, error)
	ListFeedback(ctx context.Context, eventID uint, page, limit int) ([]Feedback, int64, error)
	RatingDistribution(ctx context.Context, eventID uint) ([]RatingBucket, error)

	SweepStatuses(ctx context.Context, ac middleware.AccessContext) (int64, error)

	// CanManageEvent mirrors the club-admin predicate for other
	// subsystems (participant listings, roster exports).
	CanManageEvent(ctx context.Context, userID uint, e *Event) (bool, error)
}

type service struct {
	repo     Repository
	clubSvc  club.Service
	auditSvc auditlog.Service
	notifSvc notification.Service
}

func NewService(repo Repository, clubSvc club.Service, auditSvc auditlog.Service, notifSvc notification.Service) Service {
	return &service{repo: repo, clubSvc: clubSvc, auditSvc: auditSvc, notifSvc: notifSvc}
}

// ===========================
// LIFECYCLE
// ===========================

func (s *service) CreateEvent(ctx context.Context, ac middleware.AccessContext, clubID uint, req CreateEventRequest, ip string) (*Event, error) {
	ok, err := s.clubSvc.IsClubAdmin(ctx, ac.UserID, clubID)
	if err != nil {
		return nil, err
	}
	if !ok && !ac.IsSuperuser {
		return nil, apperr.Forbidden("you do not manage this club")
	}

	if err := validateWindows(req.StartAt, req.EndAt, req.RegistrationStart, req.RegistrationEnd); err != nil {
		return nil, err
	}
	if req.Capacity != nil && *req.Capacity <= 0 {
		return nil, apperr.Validation("capacity must be positive")
	}

	slug, err := s.uniqueSlug(ctx, req.Title)
	if err != nil {
		return nil, err
	}

	requiresApproval := true
	if req.RequiresApproval != nil {
		requiresApproval = *req.RequiresApproval
	}
	status := StatusApproved
	if requiresApproval {
		status = StatusPending
	}

	userID := ac.UserID
	e := &Event{
		Title:             req.Title,
		Slug:              slug,
		Description:       req.Description,
		Category:          req.Category,
		ClubID:            clubID,
		CreatedByID:       &userID,
		Location:          req.Location,
		StartAt:           req.StartAt,
		EndAt:             req.EndAt,
		RegistrationStart: req.RegistrationStart,
		RegistrationEnd:   req.RegistrationEnd,
		Capacity:          req.Capacity,
		Status:            status,
		RequiresApproval:  requiresApproval,
	}
	if status == StatusApproved {
		now := time.Now()
		e.ApprovedAt = &now
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	s.auditSvc.LogActivity(ctx, &userID, auditlog.ActionEventCreated,
		fmt.Sprintf("Event %q created", e.Title), s.eventMeta(e), ip)

	return e, nil
}

// GetEvent fetches one event and bumps its view counter. Every fetch
// counts, including repeats by the same viewer. That matches the
// traffic-analytics intent, so no per-viewer dedup here.
func (s *service) GetEvent(ctx context.Context, id uint) (*Event, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("event not found")
		}
		return nil, err
	}

	if err := s.repo.IncrementViewCount(ctx, id); err != nil {
		log.Printf("view count bump failed (event=%d): %v", id, err)
	} else {
		e.ViewCount++
	}
	return e, nil
}

func (s *service) GetEventBySlug(ctx context.Context, slug string) (*Event, error) {
	e, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("event not found")
		}
		return nil, err
	}

	if err := s.repo.IncrementViewCount(ctx, e.ID); err != nil {
		log.Printf("view count bump failed (event=%d): %v", e.ID, err)
	} else {
		e.ViewCount++
	}
	return e, nil
}

func (s *service) ListEvents(ctx context.Context, f ListFilter) ([]Event, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	return s.repo.List(ctx, f)
}

// SearchEvents looks up approved events by title or description and
// marks up the matched substring for display.
func (s *service) SearchEvents(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("search query is required")
	}

	events, _, err := s.repo.List(ctx, ListFilter{
		Status: StatusApproved,
		Search: query,
		Page:   1,
		Limit:  searchLimit,
	})
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(events))
	for _, e := range events {
		results = append(results, SearchResult{
			Event:       e,
			Title:       highlight(e.Title, query),
			Description: highlight(e.Description, query),
		})
	}
	return results, nil
}

// highlight wraps every case-insensitive occurrence of query in
// <mark> tags, keeping the original casing of the text.
func highlight(text, query string) string {
	lower := strings.ToLower(text)
	needle := strings.ToLower(query)

	var b strings.Builder
	for {
		i := strings.Index(lower, needle)
		if i < 0 {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:i])
		b.WriteString("<mark>")
		b.WriteString(text[i : i+len(needle)])
		b.WriteString("</mark>")
		text = text[i+len(needle):]
		lower = lower[i+len(needle):]
	}
}

// FeaturedEvents serves the landing-page strip from Redis when
// available. The TTL is short enough that decisions propagate without
// cross-package invalidation.
func (s *service) FeaturedEvents(ctx context.Context) ([]Event, error) {
	if utils.RedisClient != nil {
		cached, err := utils.RedisClient.Get(ctx, featuredCacheKey).Result()
		if err == nil {
			var events []Event
			if json.Unmarshal([]byte(cached), &events) == nil {
				return events, nil
			}
		}
	}

	events, err := s.repo.Featured(ctx, featuredLimit)
	if err != nil {
		return nil, err
	}

	if utils.RedisClient != nil {
		if payload, err := json.Marshal(events); err == nil {
			if err := utils.RedisClient.Set(ctx, featuredCacheKey, payload, featuredCacheTTL).Err(); err != nil {
				log.Printf("featured cache write failed: %v", err)
			}
		}
	}
	return events, nil
}

func (s *service) UpdateEvent(ctx context.Context, ac middleware.AccessContext, id uint, req UpdateEventRequest, ip string) (*Event, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("event not found")
		}
		return nil, err
	}

	if err := s.requireManager(ctx, ac, e); err != nil {
		return nil, err
	}

	if req.Title != "" && req.Title != e.Title {
		slug, err := s.uniqueSlug(ctx, req.Title)
		if err != nil {
			return nil, err
		}
		e.Title = req.Title
		e.Slug = slug
	}
	if req.Description != "" {
		e.Description = req.Description
	}
	if req.Category != "" {
		e.Category = req.Category
	}
	if req.Location != "" {
		e.Location = req.Location
	}
	if req.StartAt != nil {
		e.StartAt = *req.StartAt
	}
	if req.EndAt != nil {
		e.EndAt = *req.EndAt
	}
	if req.RegistrationStart != nil {
		e.RegistrationStart = req.RegistrationStart
	}
	if req.RegistrationEnd != nil {
		e.RegistrationEnd = req.RegistrationEnd
	}
	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			return nil, apperr.Validation("capacity must be positive")
		}
		if *req.Capacity < e.RegistrationCount {
			return nil, apperr.Precondition("capacity cannot drop below current registrations").
				With("current_registrations", e.RegistrationCount)
		}
		e.Capacity = req.Capacity
	}

	if err := validateWindows(e.StartAt, e.EndAt, e.RegistrationStart, e.RegistrationEnd); err != nil {
		return nil, err
	}

	cancelled := false
	if req.Status != "" && req.Status != e.Status {
		// Status edits are owned by the approval workflow and the
		// sweep. The only direct transition a club admin gets is
		// cancelling an approved or ongoing event.
		if req.Status != StatusCancelled {
			return nil, apperr.Forbidden("event status cannot be set directly")
		}
		if e.Status != StatusApproved && e.Status != StatusOngoing {
			return nil, apperr.Precondition("only approved or ongoing events can be cancelled").
				With("event_status", e.Status)
		}
		e.Status = StatusCancelled
		cancelled = true
	}

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}

	if cancelled {
		s.notifyRegistrants(ctx, e, notification.TypeEventCancelled,
			"Event cancelled", fmt.Sprintf("%s has been cancelled", e.Title))
	}

	s.auditSvc.LogActivity(ctx, &ac.UserID, auditlog.ActionEventUpdated,
		fmt.Sprintf("Event %q updated", e.Title), s.eventMeta(e), ip)

	return e, nil
}

func (s *service) DeleteEvent(ctx context.Context, ac middleware.AccessContext, id uint, ip string) error {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("event not found")
		}
		return err
	}

	if err := s.requireManager(ctx, ac, e); err != nil {
		return err
	}

	// Registrants lose their seat, tell them before the rows go.
	s.notifyRegistrants(ctx, e, notification.TypeEventCancelled,
		"Event cancelled", fmt.Sprintf("%s has been cancelled", e.Title))

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.LogActivity(ctx, &ac.UserID, auditlog.ActionEventDeleted,
		fmt.Sprintf("Event %q deleted", e.Title), s.eventMeta(e), ip)

	return nil
}

func (s *service) SetFeatured(ctx context.Context, ac middleware.AccessContext, id uint, featured bool) error {
	if !ac.CanReviewEvents() {
		return apperr.Forbidden("only system administrators can feature events")
	}

	if err := s.repo.SetFeatured(ctx, id, featured); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("event not found")
		}
		return err
	}

	if utils.RedisClient != nil {
		if err := utils.RedisClient.Del(ctx, featuredCacheKey).Err(); err != nil {
			log.Printf("featured cache invalidation failed: %v", err)
		}
	}
	return nil
}

func (s *service) SavePosterRef(ctx context.Context, ac middleware.AccessContext, id uint, ref string) (*Event, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("event not found")
		}
		return nil, err
	}

	if err := s.requireManager(ctx, ac, e); err != nil {
		return nil, err
	}

	e.Poster = ref
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ===========================
// FEEDBACK
// ===========================

func (s *service) SubmitFeedback(ctx context.Context, ac middleware.AccessContext, eventID uint, req FeedbackRequest) (*Feedback, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}

	if _, err := s.repo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("event not found")
		}
		return nil, err
	}

	reg, err := s.repo.AttendedRegistration(ctx, eventID, ac.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Precondition("feedback requires attendance").
				With("registered", false)
		}
		return nil, err
	}
	if reg.Status != "attended" && !reg.CheckedIn {
		return nil, apperr.Precondition("feedback requires attendance").
			With("registered", true).
			With("registration_status", reg.Status)
	}

	regID := reg.ID
	fb := &Feedback{
		EventID:        eventID,
		UserID:         ac.UserID,
		RegistrationID: &regID,
		Rating:         req.Rating,
		Comment:        req.Comment,
		IsApproved:     true,
		IsAnonymous:    req.IsAnonymous,
	}

	if err := s.repo.SubmitFeedback(ctx, fb); err != nil {
		return nil, apperr.Conflict("feedback already submitted for this event")
	}
	return fb, nil
}

func (s *service) ListFeedback(ctx context.Context, eventID uint, page, limit int) ([]Feedback, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	return s.repo.ListFeedback(ctx, eventID, limit, (page-1)*limit)
}

func (s *service) RatingDistribution(ctx context.Context, eventID uint) ([]RatingBucket, error) {
	if _, err := s.repo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("event not found")
		}
		return nil, err
	}
	return s.repo.RatingDistribution(ctx, eventID)
}

// ===========================
// STATUS SWEEP
// ===========================

func (s *service) SweepStatuses(ctx context.Context, ac middleware.AccessContext) (int64, error) {
	if !ac.CanReviewEvents() {
		return 0, apperr.Forbidden("only system administrators can run the status sweep")
	}
	return s.repo.SweepStatuses(ctx, time.Now())
}

// ===========================
// HELPERS
// ===========================

func (s *service) CanManageEvent(ctx context.Context, userID uint, e *Event) (bool, error) {
	if e.CreatedByID != nil && *e.CreatedByID == userID {
		return true, nil
	}
	return s.clubSvc.IsClubAdmin(ctx, userID, e.ClubID)
}

func (s *service) requireManager(ctx context.Context, ac middleware.AccessContext, e *Event) error {
	if ac.IsSuperuser {
		return nil
	}
	ok, err := s.CanManageEvent(ctx, ac.UserID, e)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("you do not manage this event")
	}
	return nil
}

func (s *service) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := utils.Slugify(title)
	if base == "" {
		return "", apperr.Validation("title must contain letters or digits")
	}

	slug := base
	for i := 1; ; i++ {
		taken, err := s.repo.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func (s *service) eventMeta(e *Event) auditlog.EventMeta {
	clubID := e.ClubID
	return auditlog.EventMeta{
		Version:    auditlog.MetaVersion,
		EventID:    e.ID,
		EventTitle: e.Title,
		ClubID:     &clubID,
		ClubName:   e.Club.Name,
	}
}

func (s *service) notifyRegistrants(ctx context.Context, e *Event, msgType, title, body string) {
	ids, err := s.repo.RegistrantIDs(ctx, e.ID)
	if err != nil {
		log.Printf("registrant lookup failed (event=%d): %v", e.ID, err)
		return
	}
	eventID := e.ID
	clubID := e.ClubID
	for _, userID := range ids {
		s.notifSvc.Notify(ctx, notification.Message{
			UserID:  userID,
			Type:    msgType,
			Title:   title,
			Message: body,
			EventID: &eventID,
			ClubID:  &clubID,
		})
	}
}

func validateWindows(startAt, endAt time.Time, regStart, regEnd *time.Time) error {
	if !endAt.After(startAt) {
		return apperr.Validation("end time must be after start time")
	}
	if regStart != nil && regEnd != nil && !regEnd.After(*regStart) {
		return apperr.Validation("registration end must be after registration start")
	}
	return nil
}
