package club

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, c *Club) error
	GetByID(ctx context.Context, id uint) (*Club, error)
	List(ctx context.Context, status, faculty string, limit, offset int) ([]Club, int64, error)
	Update(ctx context.Context, c *Club) error
	Delete(ctx context.Context, id uint) error
	SlugExists(ctx context.Context, slug string) (bool, error)

	IsClubAdmin(ctx context.Context, userID, clubID uint) (bool, error)
	AdminUserIDs(ctx context.Context, clubID uint) ([]uint, error)
	AddAdmin(ctx context.Context, clubID, userID uint) error
	CountEvents(ctx context.Context, clubID uint) (int64, error)

	Join(ctx context.Context, m *ClubMembership) error
	Leave(ctx context.Context, clubID, userID uint) (int64, error)
	ListMembers(ctx context.Context, clubID uint, role string) ([]ClubMembership, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, c *Club) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Club, error) {
	var c Club
	err := r.db.WithContext(ctx).
		Preload("President").
		Preload("Admins").
		First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, status, faculty string, limit, offset int) ([]Club, int64, error) {
	var clubs []Club
	var total int64

	query := r.db.WithContext(ctx).Model(&Club{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if faculty != "" {
		query = query.Where("faculty = ?", faculty)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("name ASC").Limit(limit).Offset(offset).Find(&clubs).Error
	return clubs, total, err
}

func (r *repository) Update(ctx context.Context, c *Club) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// Delete removes the club and everything it owns: its events and their
// registrations, feedback and approvals, plus memberships and the admin
// set. The cascade is explicit so deletion semantics stay visible.
func (r *repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []string{
			"DELETE FROM feedbacks WHERE event_id IN (SELECT id FROM events WHERE club_id = ?)",
			"DELETE FROM event_registrations WHERE event_id IN (SELECT id FROM events WHERE club_id = ?)",
			"DELETE FROM event_approvals WHERE event_id IN (SELECT id FROM events WHERE club_id = ?)",
			"DELETE FROM events WHERE club_id = ?",
			"DELETE FROM club_memberships WHERE club_id = ?",
			"DELETE FROM club_admins WHERE club_id = ?",
		}
		for _, stmt := range steps {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&Club{}, id).Error
	})
}

func (r *repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Club{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// IsClubAdmin is the single source of truth for "may act for this
// club": the president or anyone in the admin set.
func (r *repository) IsClubAdmin(ctx context.Context, userID, clubID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Club{}).
		Where("id = ? AND president_id = ?", clubID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	err = r.db.WithContext(ctx).Table("club_admins").
		Where("club_id = ? AND user_id = ?", clubID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) AdminUserIDs(ctx context.Context, clubID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Table("club_admins").
		Where("club_id = ?", clubID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *repository) AddAdmin(ctx context.Context, clubID, userID uint) error {
	return r.db.WithContext(ctx).Exec(
		"INSERT INTO club_admins (club_id, user_id) VALUES (?, ?)", clubID, userID,
	).Error
}

func (r *repository) CountEvents(ctx context.Context, clubID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("events").Where("club_id = ?", clubID).Count(&count).Error
	return count, err
}

func (r *repository) Join(ctx context.Context, m *ClubMembership) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *repository) Leave(ctx context.Context, clubID, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("club_id = ? AND user_id = ?", clubID, userID).
		Delete(&ClubMembership{})
	return res.RowsAffected, res.Error
}

func (r *repository) ListMembers(ctx context.Context, clubID uint, role string) ([]ClubMembership, error) {
	var members []ClubMembership
	query := r.db.WithContext(ctx).Preload("User").Where("club_id = ?", clubID)
	if role != "" {
		query = query.Where("role = ?", role)
	}
	err := query.Order("joined_at ASC").Find(&members).Error
	return members, err
}
