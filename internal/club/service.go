package club

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/tuannn09/event-connect-backend/internal/apperr"
	"github.com/tuannn09/event-connect-backend/internal/auditlog"
	"github.com/tuannn09/event-connect-backend/internal/notification"
	"github.com/tuannn09/event-connect-backend/middleware"
	"github.com/tuannn09/event-connect-backend/utils"
)

// ===========================
// SERVICE INTERFACE
// ===========================

type Service interface {
	CreateClub(ctx context.Context, ac middleware.AccessContext, req CreateClubRequest, ip string) (*Club, error)
	GetClub(ctx context.Context, id uint) (*ClubDetail, error)
	ListClubs(ctx context.Context, status, faculty string, page, limit int) ([]Club, int64, error)
	UpdateClub(ctx context.Context, ac middleware.AccessContext, id uint, req UpdateClubRequest, ip string) (*Club, error)
	DeleteClub(ctx context.Context, ac middleware.AccessContext, id uint, ip string) error

	JoinClub(ctx context.Context, ac middleware.AccessContext, clubID uint) (*ClubMembership, error)
	LeaveClub(ctx context.Context, ac middleware.AccessContext, clubID uint) error
	Members(ctx context.Context, clubID uint, role string) ([]ClubMembership, error)
	PromoteAdmin(ctx context.Context, ac middleware.AccessContext, clubID, userID uint) error

	// IsClubAdmin reports whether userID is the president or an admin
	// of clubID. Event workflows call this before any mutation.
	IsClubAdmin(ctx context.Context, userID, clubID uint) (bool, error)
	AdminUserIDs(ctx context.Context, clubID uint) ([]uint, error)
}

// ClubDetail augments the club row with its event count.
type ClubDetail struct {
	Club
	EventCount int64 `json:"event_count"`
}

type service struct {
	repo     Repository
	auditSvc auditlog.Service
	notifSvc notification.Service
}

func NewService(repo Repository, auditSvc auditlog.Service, notifSvc notification.Service) Service {
	return &service{repo: repo, auditSvc: auditSvc, notifSvc: notifSvc}
}

// ===========================
// CLUB REGISTRY
// ===========================

func (s *service) CreateClub(ctx context.Context, ac middleware.AccessContext, req CreateClubRequest, ip string) (*Club, error) {
	if !ac.CanManageClubRegistry() {
		return nil, apperr.Forbidden("only system administrators can register clubs")
	}

	slug, err := s.uniqueSlug(ctx, req.Name)
	if err != nil {
		return nil, err
	}

	c := &Club{
		Name:         req.Name,
		Slug:         slug,
		Description:  req.Description,
		Faculty:      req.Faculty,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Status:       StatusActive,
		PresidentID:  req.PresidentID,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, apperr.Conflict("club with this name already exists")
	}

	// The president is implicitly an admin and a member.
	if req.PresidentID != nil {
		if err := s.repo.AddAdmin(ctx, c.ID, *req.PresidentID); err != nil {
			log.Printf("president admin link failed (club=%d): %v", c.ID, err)
		}
		m := &ClubMembership{UserID: *req.PresidentID, ClubID: c.ID, Role: RolePresident, JoinedAt: time.Now()}
		if err := s.repo.Join(ctx, m); err != nil {
			log.Printf("president membership failed (club=%d): %v", c.ID, err)
		}
	}

	s.auditSvc.LogActivity(ctx, &ac.UserID, auditlog.ActionClubCreated,
		fmt.Sprintf("Club %q registered", c.Name),
		auditlog.ClubMeta{Version: auditlog.MetaVersion, ClubID: c.ID, ClubName: c.Name}, ip)

	return c, nil
}

func (s *service) GetClub(ctx context.Context, id uint) (*ClubDetail, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("club not found")
		}
		return nil, err
	}

	count, err := s.repo.CountEvents(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ClubDetail{Club: *c, EventCount: count}, nil
}

func (s *service) ListClubs(ctx context.Context, status, faculty string, page, limit int) ([]Club, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	return s.repo.List(ctx, status, faculty, limit, (page-1)*limit)
}

func (s *service) UpdateClub(ctx context.Context, ac middleware.AccessContext, id uint, req UpdateClubRequest, ip string) (*Club, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("club not found")
		}
		return nil, err
	}

	if !ac.CanManageClubRegistry() {
		ok, err := s.repo.IsClubAdmin(ctx, ac.UserID, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Forbidden("you do not manage this club")
		}
		// Suspension and reinstatement stay with the registry.
		if req.Status != "" && req.Status != c.Status {
			return nil, apperr.Forbidden("club status is managed by system administrators")
		}
	}

	if req.Name != "" && req.Name != c.Name {
		slug, err := s.uniqueSlug(ctx, req.Name)
		if err != nil {
			return nil, err
		}
		c.Name = req.Name
		c.Slug = slug
	}
	if req.Description != "" {
		c.Description = req.Description
	}
	if req.Faculty != "" {
		c.Faculty = req.Faculty
	}
	if req.ContactEmail != "" {
		c.ContactEmail = req.ContactEmail
	}
	if req.ContactPhone != "" {
		c.ContactPhone = req.ContactPhone
	}
	if req.Status != "" {
		if req.Status != StatusActive && req.Status != StatusInactive && req.Status != StatusSuspended {
			return nil, apperr.Validation("invalid club status")
		}
		c.Status = req.Status
	}
	if req.PresidentID != nil {
		c.PresidentID = req.PresidentID
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.auditSvc.LogActivity(ctx, &ac.UserID, auditlog.ActionClubUpdated,
		fmt.Sprintf("Club %q updated", c.Name),
		auditlog.ClubMeta{Version: auditlog.MetaVersion, ClubID: c.ID, ClubName: c.Name}, ip)

	return c, nil
}

func (s *service) DeleteClub(ctx context.Context, ac middleware.AccessContext, id uint, ip string) error {
	if !ac.CanManageClubRegistry() {
		return apperr.Forbidden("only system administrators can remove clubs")
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("club not found")
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.LogActivity(ctx, &ac.UserID, auditlog.ActionClubDeleted,
		fmt.Sprintf("Club %q removed", c.Name),
		auditlog.ClubMeta{Version: auditlog.MetaVersion, ClubID: c.ID, ClubName: c.Name}, ip)

	return nil
}

// uniqueSlug derives a slug from the name and appends a numeric suffix
// until it is free.
func (s *service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := utils.Slugify(name)
	if base == "" {
		return "", apperr.Validation("club name must contain letters or digits")
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

// ===========================
// MEMBERSHIP
// ===========================

func (s *service) JoinClub(ctx context.Context, ac middleware.AccessContext, clubID uint) (*ClubMembership, error) {
	c, err := s.repo.GetByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("club not found")
		}
		return nil, err
	}
	if c.Status != StatusActive {
		return nil, apperr.Precondition("club is not accepting members").With("club_status", c.Status)
	}

	m := &ClubMembership{UserID: ac.UserID, ClubID: clubID, Role: RoleMember, JoinedAt: time.Now()}
	if err := s.repo.Join(ctx, m); err != nil {
		return nil, apperr.Conflict("already a member of this club")
	}
	return m, nil
}

func (s *service) LeaveClub(ctx context.Context, ac middleware.AccessContext, clubID uint) error {
	c, err := s.repo.GetByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("club not found")
		}
		return err
	}
	if c.PresidentID != nil && *c.PresidentID == ac.UserID {
		return apperr.Precondition("the president must hand over the club before leaving")
	}

	affected, err := s.repo.Leave(ctx, clubID, ac.UserID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFound("not a member of this club")
	}
	return nil
}

func (s *service) Members(ctx context.Context, clubID uint, role string) ([]ClubMembership, error) {
	if _, err := s.repo.GetByID(ctx, clubID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("club not found")
		}
		return nil, err
	}
	return s.repo.ListMembers(ctx, clubID, role)
}

func (s *service) PromoteAdmin(ctx context.Context, ac middleware.AccessContext, clubID, userID uint) error {
	c, err := s.repo.GetByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("club not found")
		}
		return err
	}

	isPresident := c.PresidentID != nil && *c.PresidentID == ac.UserID
	if !isPresident && !ac.CanManageClubRegistry() {
		return apperr.Forbidden("only the president can promote admins")
	}

	already, err := s.repo.IsClubAdmin(ctx, userID, clubID)
	if err != nil {
		return err
	}
	if already {
		return apperr.Conflict("user already manages this club")
	}

	if err := s.repo.AddAdmin(ctx, clubID, userID); err != nil {
		return err
	}

	s.notifSvc.Notify(ctx, notification.Message{
		UserID:  userID,
		Type:    notification.TypeClubAnnouncement,
		Title:   "Club admin access granted",
		Message: fmt.Sprintf("You are now an admin of %s", c.Name),
		ClubID:  &clubID,
	})
	return nil
}

func (s *service) IsClubAdmin(ctx context.Context, userID, clubID uint) (bool, error) {
	return s.repo.IsClubAdmin(ctx, userID, clubID)
}

func (s *service) AdminUserIDs(ctx context.Context, clubID uint) ([]uint, error) {
	return s.repo.AdminUserIDs(ctx, clubID)
}
