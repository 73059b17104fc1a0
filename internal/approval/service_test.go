package approval_test

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tuannn09/event-connect-backend/internal/apperr"
	"github.com/tuannn09/event-connect-backend/internal/approval"
	"github.com/tuannn09/event-connect-backend/internal/auditlog"
	"github.com/tuannn09/event-connect-backend/internal/auth"
	"github.com/tuannn09/event-connect-backend/internal/club"
	"github.com/tuannn09/event-connect-backend/internal/event"
	"github.com/tuannn09/event-connect-backend/internal/notification"
	"github.com/tuannn09/event-connect-backend/middleware"
)

type fixture struct {
	db         *gorm.DB
	svc        approval.Service
	reviewer   *auth.User
	creator    *auth.User
	pendingEvt *event.Event
	approvalID uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&auth.User{},
		&club.Club{},
		&club.ClubMembership{},
		&event.Event{},
		&event.Feedback{},
		&approval.EventApproval{},
		&notification.Notification{},
		&notification.DeviceToken{},
		&auditlog.ActivityLog{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	auditSvc := auditlog.NewService(auditlog.NewRepository(db))
	notifSvc := notification.NewService(notification.NewRepository(db), nil, nil)
	svc := approval.NewService(approval.NewRepository(db), auditSvc, notifSvc)

	reviewer := &auth.User{Username: "root", Email: "root@campus.edu", PasswordHash: "x", Role: middleware.RoleSystemAdmin}
	creator := &auth.User{Username: "prez", Email: "prez@campus.edu", PasswordHash: "x", Role: middleware.RoleClubAdmin}
	for _, u := range []*auth.User{reviewer, creator} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	c := &club.Club{Name: "Tech Society", Slug: "tech-society", Status: club.StatusActive, PresidentID: &creator.ID}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create club: %v", err)
	}

	start := time.Now().Add(48 * time.Hour)
	e := &event.Event{
		Title: "Hack Night", Slug: "hack-night",
		ClubID: c.ID, CreatedByID: &creator.ID,
		StartAt: start, EndAt: start.Add(3 * time.Hour),
		Status: event.StatusPending, RequiresApproval: true,
	}
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}

	a := &approval.EventApproval{EventID: e.ID, Status: approval.StatusPending, SubmittedAt: time.Now()}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("create approval: %v", err)
	}

	return &fixture{db: db, svc: svc, reviewer: reviewer, creator: creator, pendingEvt: e, approvalID: a.ID}
}

func (f *fixture) reviewerCtx() middleware.AccessContext {
	return middleware.AccessContext{UserID: f.reviewer.ID, Role: middleware.RoleSystemAdmin}
}

func TestApproveMirrorsOntoEvent(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Approve(context.Background(), f.reviewerCtx(), f.approvalID, "looks good", "127.0.0.1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if a.Status != approval.StatusApproved {
		t.Errorf("approval status = %q, want approved", a.Status)
	}
	if a.ReviewerID == nil || *a.ReviewerID != f.reviewer.ID {
		t.Errorf("reviewer not stamped: %v", a.ReviewerID)
	}
	if a.ReviewedAt == nil {
		t.Error("reviewed_at not stamped")
	}

	var e event.Event
	if err := f.db.First(&e, f.pendingEvt.ID).Error; err != nil {
		t.Fatalf("reload event: %v", err)
	}
	if e.Status != event.StatusApproved {
		t.Errorf("event status = %q, want approved", e.Status)
	}
	if e.ApprovedAt == nil {
		t.Error("event approved_at not set")
	}

	// The creator hears about it.
	var count int64
	f.db.Model(&notification.Notification{}).
		Where("user_id = ? AND type = ?", f.creator.ID, notification.TypeEventApproved).
		Count(&count)
	if count != 1 {
		t.Errorf("creator notifications = %d, want 1", count)
	}

	// And the decision is on the audit trail.
	var logged int64
	f.db.Model(&auditlog.ActivityLog{}).
		Where("action = ?", auditlog.ActionEventApproved).
		Count(&logged)
	if logged != 1 {
		t.Errorf("audit entries = %d, want 1", logged)
	}
}

func TestRejectRecordsReason(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Reject(context.Background(), f.reviewerCtx(), f.approvalID, "", ""); apperr.Status(err) != 400 {
		t.Fatalf("reject without comment: want validation error, got %v", err)
	}

	a, err := f.svc.Reject(context.Background(), f.reviewerCtx(), f.approvalID, "date clashes with exams", "")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if a.Status != approval.StatusRejected {
		t.Errorf("approval status = %q, want rejected", a.Status)
	}

	var e event.Event
	f.db.First(&e, f.pendingEvt.ID)
	if e.Status != event.StatusRejected {
		t.Errorf("event status = %q, want rejected", e.Status)
	}
	if e.ApprovedAt != nil {
		t.Error("rejected event must not carry approved_at")
	}

	var count int64
	f.db.Model(&notification.Notification{}).
		Where("user_id = ? AND type = ?", f.creator.ID, notification.TypeEventRejected).
		Count(&count)
	if count != 1 {
		t.Errorf("rejection notifications = %d, want 1", count)
	}
}

func TestReviewTwiceConflicts(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Approve(context.Background(), f.reviewerCtx(), f.approvalID, "", ""); err != nil {
		t.Fatalf("first approve: %v", err)
	}

	_, err := f.svc.Reject(context.Background(), f.reviewerCtx(), f.approvalID, "changed my mind", "")
	if apperr.Status(err) != 409 {
		t.Fatalf("second review: want conflict, got %v", err)
	}
	if apperr.Payload(err)["approval_status"] != approval.StatusApproved {
		t.Errorf("conflict payload missing prior status: %v", apperr.Payload(err))
	}

	// Nothing moved.
	var e event.Event
	f.db.First(&e, f.pendingEvt.ID)
	if e.Status != event.StatusApproved {
		t.Errorf("event status = %q, want approved", e.Status)
	}
}

func TestReviewRequiresSystemAdmin(t *testing.T) {
	f := newFixture(t)
	creatorCtx := middleware.AccessContext{UserID: f.creator.ID, Role: middleware.RoleClubAdmin}

	if _, err := f.svc.Approve(context.Background(), creatorCtx, f.approvalID, "", ""); apperr.Status(err) != 403 {
		t.Errorf("club admin approve: want forbidden, got %v", err)
	}
	if _, _, err := f.svc.Pending(context.Background(), creatorCtx, 1, 20); apperr.Status(err) != 403 {
		t.Errorf("club admin pending queue: want forbidden, got %v", err)
	}
}

func TestPendingQueueNewestFirst(t *testing.T) {
	f := newFixture(t)

	// An older submission behind the fixture's fresh one.
	older := &event.Event{
		Title: "Old Request", Slug: "old-request",
		ClubID: f.pendingEvt.ClubID, CreatedByID: &f.creator.ID,
		StartAt: time.Now().Add(24 * time.Hour), EndAt: time.Now().Add(26 * time.Hour),
		Status: event.StatusPending, RequiresApproval: true,
	}
	if err := f.db.Create(older).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}
	a := &approval.EventApproval{EventID: older.ID, Status: approval.StatusPending, SubmittedAt: time.Now().Add(-time.Hour)}
	if err := f.db.Create(a).Error; err != nil {
		t.Fatalf("create approval: %v", err)
	}

	views, total, err := f.svc.Pending(context.Background(), f.reviewerCtx(), 1, 20)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if total != 2 || len(views) != 2 {
		t.Fatalf("pending queue size = %d/%d, want 2", len(views), total)
	}
	if views[0].EventID != f.pendingEvt.ID {
		t.Errorf("queue not newest-first: got event %d on top", views[0].EventID)
	}
	if views[0].EventTitle != "Hack Night" || views[0].ClubName != "Tech Society" {
		t.Errorf("joined fields missing: %+v", views[0])
	}
}
