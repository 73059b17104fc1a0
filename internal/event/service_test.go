package event_test

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
	"github.com/tuannn09/event-connect-backend/internal/registration"
	"github.com/tuannn09/event-connect-backend/middleware"
)

type fixture struct {
	db        *gorm.DB
	clubSvc   club.Service
	eventSvc  event.Service
	president *auth.User
	club      *club.Club
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
		&registration.EventRegistration{},
		&approval.EventApproval{},
		&notification.Notification{},
		&notification.DeviceToken{},
		&auditlog.ActivityLog{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	auditSvc := auditlog.NewService(auditlog.NewRepository(db))
	notifSvc := notification.NewService(notification.NewRepository(db), nil, nil)
	clubSvc := club.NewService(club.NewRepository(db), auditSvc, notifSvc)
	eventSvc := event.NewService(event.NewRepository(db), clubSvc, auditSvc, notifSvc)

	president := &auth.User{Username: "prez", Email: "prez@campus.edu", PasswordHash: "x", Role: middleware.RoleClubAdmin}
	if err := db.Create(president).Error; err != nil {
		t.Fatalf("create president: %v", err)
	}

	c := &club.Club{Name: "Tech Society", Slug: "tech-society", Status: club.StatusActive, PresidentID: &president.ID}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create club: %v", err)
	}

	return &fixture{db: db, clubSvc: clubSvc, eventSvc: eventSvc, president: president, club: c}
}

func (f *fixture) presidentCtx() middleware.AccessContext {
	return middleware.AccessContext{UserID: f.president.ID, Role: middleware.RoleClubAdmin}
}

func (f *fixture) createRequest(title string) event.CreateEventRequest {
	start := time.Now().Add(48 * time.Hour)
	end := start.Add(3 * time.Hour)
	return event.CreateEventRequest{
		Title:       title,
		Description: "an event",
		Location:    "Main Hall",
		StartAt:     start,
		EndAt:       end,
	}
}

func (f *fixture) mustCreate(t *testing.T, title string, requiresApproval bool) *event.Event {
	t.Helper()
	req := f.createRequest(title)
	req.RequiresApproval = &requiresApproval
	e, err := f.eventSvc.CreateEvent(context.Background(), f.presidentCtx(), f.club.ID, req, "")
	if err != nil {
		t.Fatalf("create event %q: %v", title, err)
	}
	return e
}

func TestCreateEventAuthorization(t *testing.T) {
	f := newFixture(t)
	stranger := &auth.User{Username: "tourist", Email: "t@campus.edu", PasswordHash: "x", Role: middleware.RoleStudent}
	if err := f.db.Create(stranger).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	_, err := f.eventSvc.CreateEvent(context.Background(),
		middleware.AccessContext{UserID: stranger.ID, Role: middleware.RoleStudent},
		f.club.ID, f.createRequest("Secret Gig"), "")
	if apperr.Status(err) != 403 {
		t.Fatalf("want forbidden, got %v", err)
	}
}

func TestCreateEventApprovalFlow(t *testing.T) {
	f := newFixture(t)
	e := f.mustCreate(t, "Hack Night", true)

	if e.Status != event.StatusPending {
		t.Errorf("status = %q, want pending", e.Status)
	}

	var a approval.EventApproval
	if err := f.db.Where("event_id = ?", e.ID).First(&a).Error; err != nil {
		t.Fatalf("approval row missing: %v", err)
	}
	if a.Status != approval.StatusPending {
		t.Errorf("approval status = %q, want pending", a.Status)
	}
}

func TestCreateEventAutoApproved(t *testing.T) {
	f := newFixture(t)
	e := f.mustCreate(t, "Open Mic", false)

	if e.Status != event.StatusApproved {
		t.Errorf("status = %q, want approved", e.Status)
	}
	if e.ApprovedAt == nil {
		t.Error("approved_at not set")
	}

	var count int64
	f.db.Model(&approval.EventApproval{}).Where("event_id = ?", e.ID).Count(&count)
	if count != 0 {
		t.Errorf("auto-approved event should have no approval row, got %d", count)
	}
}

func TestSlugSuffix(t *testing.T) {
	f := newFixture(t)
	first := f.mustCreate(t, "Demo Day", false)
	second := f.mustCreate(t, "Demo Day", false)

	if first.Slug != "demo-day" {
		t.Errorf("first slug = %q, want demo-day", first.Slug)
	}
	if second.Slug != "demo-day-1" {
		t.Errorf("second slug = %q, want demo-day-1", second.Slug)
	}

	got, err := f.eventSvc.GetEventBySlug(context.Background(), "demo-day-1")
	if err != nil || got.ID != second.ID {
		t.Errorf("lookup by suffixed slug failed: %v", err)
	}
}

func TestCreateEventValidation(t *testing.T) {
	f := newFixture(t)

	req := f.createRequest("Backwards")
	req.EndAt = req.StartAt.Add(-time.Hour)
	if _, err := f.eventSvc.CreateEvent(context.Background(), f.presidentCtx(), f.club.ID, req, ""); apperr.Status(err) != 400 {
		t.Errorf("end before start: want validation error, got %v", err)
	}

	req = f.createRequest("Window")
	regStart := req.StartAt.Add(-time.Hour)
	regEnd := regStart.Add(-time.Hour)
	req.RegistrationStart = &regStart
	req.RegistrationEnd = &regEnd
	if _, err := f.eventSvc.CreateEvent(context.Background(), f.presidentCtx(), f.club.ID, req, ""); apperr.Status(err) != 400 {
		t.Errorf("inverted registration window: want validation error, got %v", err)
	}

	req = f.createRequest("Zero Cap")
	zero := 0
	req.Capacity = &zero
	if _, err := f.eventSvc.CreateEvent(context.Background(), f.presidentCtx(), f.club.ID, req, ""); apperr.Status(err) != 400 {
		t.Errorf("zero capacity: want validation error, got %v", err)
	}
}

func TestViewCountIncrementsPerFetch(t *testing.T) {
	f := newFixture(t)
	e := f.mustCreate(t, "Popular Talk", false)

	for i := 0; i < 3; i++ {
		if _, err := f.eventSvc.GetEvent(context.Background(), e.ID); err != nil {
			t.Fatalf("get event: %v", err)
		}
	}

	var stored event.Event
	if err := f.db.First(&stored, e.ID).Error; err != nil {
		t.Fatalf("reload event: %v", err)
	}
	if stored.ViewCount != 3 {
		t.Errorf("view_count = %d, want 3", stored.ViewCount)
	}
}

func attend(t *testing.T, f *fixture, e *event.Event, username string) *auth.User {
	t.Helper()
	u := &auth.User{Username: username, Email: username + "@campus.edu", PasswordHash: "x", Role: middleware.RoleStudent}
	if err := f.db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	now := time.Now()
	token := "EVT-TEST-" + username
	reg := &registration.EventRegistration{
		EventID: e.ID, UserID: u.ID,
		Status: registration.StatusAttended, QRCode: &token,
		CheckedIn: true, CheckedInAt: &now,
	}
	if err := f.db.Create(reg).Error; err != nil {
		t.Fatalf("create registration: %v", err)
	}
	return u
}

func TestFeedbackRequiresAttendance(t *testing.T) {
	f := newFixture(t)
	e := f.mustCreate(t, "Workshop", false)

	outsider := &auth.User{Username: "outsider", Email: "o@campus.edu", PasswordHash: "x", Role: middleware.RoleStudent}
	if err := f.db.Create(outsider).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	_, err := f.eventSvc.SubmitFeedback(context.Background(),
		middleware.AccessContext{UserID: outsider.ID, Role: middleware.RoleStudent},
		e.ID, event.FeedbackRequest{Rating: 4})
	if apperr.Status(err) != 400 {
		t.Fatalf("feedback without attendance: want precondition, got %v", err)
	}

	// Registered but never checked in is still not attendance.
	token := "EVT-TEST-noshow"
	reg := &registration.EventRegistration{EventID: e.ID, UserID: outsider.ID, Status: registration.StatusRegistered, QRCode: &token}
	if err := f.db.Create(reg).Error; err != nil {
		t.Fatalf("create registration: %v", err)
	}
	_, err = f.eventSvc.SubmitFeedback(context.Background(),
		middleware.AccessContext{UserID: outsider.ID, Role: middleware.RoleStudent},
		e.ID, event.FeedbackRequest{Rating: 4})
	if apperr.Status(err) != 400 {
		t.Fatalf("feedback before check-in: want precondition, got %v", err)
	}
}

func TestFeedbackAggregates(t *testing.T) {
	f := newFixture(t)
	e := f.mustCreate(t, "Conference", false)

	alice := attend(t, f, e, "alice")
	bob := attend(t, f, e, "bob")

	if _, err := f.eventSvc.SubmitFeedback(context.Background(),
		middleware.AccessContext{UserID: alice.ID}, e.ID,
		event.FeedbackRequest{Rating: 5, Comment: "great"}); err != nil {
		t.Fatalf("alice feedback: %v", err)
	}
	if _, err := f.eventSvc.SubmitFeedback(context.Background(),
		middleware.AccessContext{UserID: bob.ID}, e.ID,
		event.FeedbackRequest{Rating: 4}); err != nil {
		t.Fatalf("bob feedback: %v", err)
	}

	var stored event.Event
	if err := f.db.First(&stored, e.ID).Error; err != nil {
		t.Fatalf("reload event: %v", err)
	}
	if stored.AverageRating != 4.5 {
		t.Errorf("average_rating = %v, want 4.5", stored.AverageRating)
	}
	if stored.RatingCount != 2 {
		t.Errorf("rating_count = %d, want 2", stored.RatingCount)
	}

	// Second submission from the same user is rejected.
	_, err := f.eventSvc.SubmitFeedback(context.Background(),
		middleware.AccessContext{UserID: alice.ID}, e.ID,
		event.FeedbackRequest{Rating: 1})
	if apperr.Status(err) != 409 {
		t.Errorf("duplicate feedback: want conflict, got %v", err)
	}
}

func TestRatingDistributionZeroFilled(t *testing.T) {
	f := newFixture(t)
	e := f.mustCreate(t, "Seminar", false)

	alice := attend(t, f, e, "alice")
	bob := attend(t, f, e, "bob")
	carol := attend(t, f, e, "carol")
	for _, sub := range []struct {
		user   *auth.User
		rating int
	}{{alice, 5}, {bob, 5}, {carol, 2}} {
		if _, err := f.eventSvc.SubmitFeedback(context.Background(),
			middleware.AccessContext{UserID: sub.user.ID}, e.ID,
			event.FeedbackRequest{Rating: sub.rating}); err != nil {
			t.Fatalf("feedback: %v", err)
		}
	}

	buckets, err := f.eventSvc.RatingDistribution(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("distribution: %v", err)
	}
	if len(buckets) != 5 {
		t.Fatalf("bucket count = %d, want 5", len(buckets))
	}
	want := []int64{0, 1, 0, 0, 2}
	for i, b := range buckets {
		if b.Rating != i+1 {
			t.Errorf("bucket %d rating = %d", i, b.Rating)
		}
		if b.Count != want[i] {
			t.Errorf("bucket %d count = %d, want %d", i+1, b.Count, want[i])
		}
	}
}

func TestSearchHighlightsMatches(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(t, "Robotics Workshop", false)
	f.mustCreate(t, "Chess Night", false)

	results, err := f.eventSvc.SearchEvents(context.Background(), "robot")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Title != "<mark>Robot</mark>ics Workshop" {
		t.Errorf("highlighted title = %q", results[0].Title)
	}

	if _, err := f.eventSvc.SearchEvents(context.Background(), "  "); apperr.Status(err) != 400 {
		t.Errorf("blank query: want validation error, got %v", err)
	}
}

func TestStatusSweep(t *testing.T) {
	f := newFixture(t)
	started := f.mustCreate(t, "Running Now", false)
	ended := f.mustCreate(t, "Already Over", false)

	now := time.Now()
	f.db.Model(&event.Event{}).Where("id = ?", started.ID).
		Updates(map[string]interface{}{"start_at": now.Add(-time.Hour), "end_at": now.Add(time.Hour)})
	f.db.Model(&event.Event{}).Where("id = ?", ended.ID).
		Updates(map[string]interface{}{"start_at": now.Add(-3 * time.Hour), "end_at": now.Add(-time.Hour)})

	moved, err := f.eventSvc.SweepStatuses(context.Background(),
		middleware.AccessContext{UserID: 1, Role: middleware.RoleSystemAdmin})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if moved != 2 {
		t.Errorf("transitioned = %d, want 2", moved)
	}

	var a, b event.Event
	f.db.First(&a, started.ID)
	f.db.First(&b, ended.ID)
	if a.Status != event.StatusOngoing {
		t.Errorf("started event status = %q, want ongoing", a.Status)
	}
	if b.Status != event.StatusCompleted {
		t.Errorf("ended event status = %q, want completed", b.Status)
	}
}

func TestUpdateEventCancellation(t *testing.T) {
	f := newFixture(t)
	e := f.mustCreate(t, "Doomed Event", false)

	// Arbitrary status writes are refused.
	_, err := f.eventSvc.UpdateEvent(context.Background(), f.presidentCtx(), e.ID,
		event.UpdateEventRequest{Status: event.StatusCompleted}, "")
	if apperr.Status(err) != 403 {
		t.Fatalf("direct status edit: want forbidden, got %v", err)
	}

	updated, err := f.eventSvc.UpdateEvent(context.Background(), f.presidentCtx(), e.ID,
		event.UpdateEventRequest{Status: event.StatusCancelled}, "")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if updated.Status != event.StatusCancelled {
		t.Errorf("status = %q, want cancelled", updated.Status)
	}
}
