package registration_test

import (
	"context"
	"fmt"
	"regexp"
	"sync"
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
	regSvc    registration.Service
	president *auth.User
	club      *club.Club
	event     *event.Event
}

func newFixture(t *testing.T, capacity *int) *fixture {
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

	notifSvc := notification.NewService(notification.NewRepository(db), nil, nil)
	auditSvc := auditlog.NewService(auditlog.NewRepository(db))
	clubSvc := club.NewService(club.NewRepository(db), auditSvc, notifSvc)
	regSvc := registration.NewService(registration.NewRepository(db), clubSvc, notifSvc)

	president := &auth.User{Username: "prez", Email: "prez@campus.edu", PasswordHash: "x", Role: middleware.RoleClubAdmin}
	if err := db.Create(president).Error; err != nil {
		t.Fatalf("create president: %v", err)
	}
	c := &club.Club{Name: "Tech Society", Slug: "tech-society", Status: club.StatusActive, PresidentID: &president.ID}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create club: %v", err)
	}

	start := time.Now().Add(48 * time.Hour)
	e := &event.Event{
		Title: "Launch Party", Slug: "launch-party",
		ClubID: c.ID, CreatedByID: &president.ID,
		StartAt: start, EndAt: start.Add(2 * time.Hour),
		Capacity: capacity, Status: event.StatusApproved,
	}
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}

	return &fixture{db: db, regSvc: regSvc, president: president, club: c, event: e}
}

func (f *fixture) makeUser(t *testing.T, username string) middleware.AccessContext {
	t.Helper()
	u := &auth.User{Username: username, Email: username + "@campus.edu", PasswordHash: "x", Role: middleware.RoleStudent}
	if err := f.db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return middleware.AccessContext{UserID: u.ID, Role: middleware.RoleStudent}
}

func (f *fixture) presidentCtx() middleware.AccessContext {
	return middleware.AccessContext{UserID: f.president.ID, Role: middleware.RoleClubAdmin}
}

func (f *fixture) registrationCount(t *testing.T) int {
	t.Helper()
	var stored event.Event
	if err := f.db.First(&stored, f.event.ID).Error; err != nil {
		t.Fatalf("reload event: %v", err)
	}
	return stored.RegistrationCount
}

var qrPattern = regexp.MustCompile(`^EVT-\d+-USR-\d+-[0-9A-F]{8}$`)

func TestRegisterIssuesQRToken(t *testing.T) {
	f := newFixture(t, nil)
	user := f.makeUser(t, "alice")

	reg, err := f.regSvc.Register(context.Background(), user, f.event.ID, "front row please")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if reg.QRCode == nil || !qrPattern.MatchString(*reg.QRCode) {
		t.Errorf("qr code %v does not match expected shape", reg.QRCode)
	}
	if reg.Status != registration.StatusRegistered {
		t.Errorf("status = %q, want registered", reg.Status)
	}
	if got := f.registrationCount(t); got != 1 {
		t.Errorf("registration_count = %d, want 1", got)
	}

	// The confirmation lands in the user's notifications.
	var count int64
	f.db.Model(&notification.Notification{}).
		Where("user_id = ? AND type = ?", user.UserID, notification.TypeRegistrationConfirmed).
		Count(&count)
	if count != 1 {
		t.Errorf("confirmation notifications = %d, want 1", count)
	}
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	f := newFixture(t, nil)
	user := f.makeUser(t, "alice")

	if _, err := f.regSvc.Register(context.Background(), user, f.event.ID, ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.regSvc.Register(context.Background(), user, f.event.ID, ""); apperr.Status(err) != 409 {
		t.Errorf("duplicate register: want conflict, got %v", err)
	}
	if got := f.registrationCount(t); got != 1 {
		t.Errorf("registration_count = %d, want 1", got)
	}
}

func TestConcurrentRegistrationNeverOverbooks(t *testing.T) {
	capacity := 5
	f := newFixture(t, &capacity)

	workers := 20
	ctxs := make([]middleware.AccessContext, workers)
	for i := range ctxs {
		ctxs[i] = f.makeUser(t, fmt.Sprintf("user%d", i))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	fullFailures := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(ac middleware.AccessContext) {
			defer wg.Done()
			_, err := f.regSvc.Register(context.Background(), ac, f.event.ID, "")

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if apperr.Status(err) == 400 {
				fullFailures++
			}
		}(ctxs[i])
	}
	wg.Wait()

	if successes != capacity {
		t.Errorf("successes = %d, want %d", successes, capacity)
	}
	if successes+fullFailures != workers {
		t.Errorf("unexpected failure kinds: successes=%d full=%d", successes, fullFailures)
	}
	if got := f.registrationCount(t); got != capacity {
		t.Errorf("registration_count = %d, want %d", got, capacity)
	}

	var rows int64
	f.db.Model(&registration.EventRegistration{}).
		Where("event_id = ? AND status = ?", f.event.ID, registration.StatusRegistered).
		Count(&rows)
	if rows != int64(capacity) {
		t.Errorf("registered rows = %d, want %d", rows, capacity)
	}
}

func TestFullEventReportsLimits(t *testing.T) {
	capacity := 1
	f := newFixture(t, &capacity)

	if _, err := f.regSvc.Register(context.Background(), f.makeUser(t, "alice"), f.event.ID, ""); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := f.regSvc.Register(context.Background(), f.makeUser(t, "bob"), f.event.ID, "")
	if apperr.Status(err) != 400 {
		t.Fatalf("want precondition, got %v", err)
	}
	payload := apperr.Payload(err)
	if payload["is_full"] != true {
		t.Errorf("payload missing is_full: %v", payload)
	}
	if payload["capacity"] != 1 {
		t.Errorf("payload missing capacity: %v", payload)
	}
}

func TestRegistrationWindowEnforced(t *testing.T) {
	f := newFixture(t, nil)
	closed := time.Now().Add(-time.Hour)
	f.db.Model(&event.Event{}).Where("id = ?", f.event.ID).
		UpdateColumn("registration_end", closed)

	_, err := f.regSvc.Register(context.Background(), f.makeUser(t, "late"), f.event.ID, "")
	if apperr.Status(err) != 400 {
		t.Fatalf("want precondition, got %v", err)
	}
	if _, ok := apperr.Payload(err)["registration_end"]; !ok {
		t.Errorf("payload missing registration_end: %v", apperr.Payload(err))
	}
}

func TestRegisterOnUnapprovedEvent(t *testing.T) {
	f := newFixture(t, nil)
	f.db.Model(&event.Event{}).Where("id = ?", f.event.ID).
		UpdateColumn("status", event.StatusPending)

	_, err := f.regSvc.Register(context.Background(), f.makeUser(t, "eager"), f.event.ID, "")
	if apperr.Status(err) != 400 {
		t.Errorf("want precondition, got %v", err)
	}
}

func TestUnregisterDecrementsOnce(t *testing.T) {
	f := newFixture(t, nil)
	user := f.makeUser(t, "alice")

	if _, err := f.regSvc.Register(context.Background(), user, f.event.ID, ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := f.regSvc.Unregister(context.Background(), user, f.event.ID); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if got := f.registrationCount(t); got != 0 {
		t.Errorf("registration_count = %d, want 0", got)
	}

	// A second unregister finds nothing and the counter stays at 0.
	if err := f.regSvc.Unregister(context.Background(), user, f.event.ID); apperr.Status(err) != 404 {
		t.Errorf("second unregister: want not found, got %v", err)
	}
	if got := f.registrationCount(t); got != 0 {
		t.Errorf("registration_count after second unregister = %d, want 0", got)
	}
}

func TestCheckInIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	user := f.makeUser(t, "alice")

	reg, err := f.regSvc.Register(context.Background(), user, f.event.ID, "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	first, err := f.regSvc.CheckIn(context.Background(), f.presidentCtx(), reg.ID)
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if !first.CheckedIn || first.Status != registration.StatusAttended {
		t.Errorf("after check-in: checked_in=%v status=%q", first.CheckedIn, first.Status)
	}
	stamp := first.CheckedInAt

	second, err := f.regSvc.CheckIn(context.Background(), f.presidentCtx(), reg.ID)
	if err != nil {
		t.Fatalf("repeat check-in: %v", err)
	}
	if !second.CheckedIn {
		t.Error("repeat check-in cleared the flag")
	}
	if stamp != nil && second.CheckedInAt != nil && !second.CheckedInAt.Equal(*stamp) {
		t.Error("repeat check-in moved the timestamp")
	}
}

func TestCheckInByTokenRequiresManager(t *testing.T) {
	f := newFixture(t, nil)
	user := f.makeUser(t, "alice")

	reg, err := f.regSvc.Register(context.Background(), user, f.event.ID, "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Attendees cannot scan themselves in.
	if _, err := f.regSvc.CheckInByToken(context.Background(), user, *reg.QRCode); apperr.Status(err) != 403 {
		t.Errorf("self check-in: want forbidden, got %v", err)
	}

	checked, err := f.regSvc.CheckInByToken(context.Background(), f.presidentCtx(), *reg.QRCode)
	if err != nil {
		t.Fatalf("manager check-in: %v", err)
	}
	if !checked.CheckedIn {
		t.Error("check-in by token did not stick")
	}

	if _, err := f.regSvc.CheckInByToken(context.Background(), f.presidentCtx(), "EVT-0-USR-0-DEADBEEF"); apperr.Status(err) != 404 {
		t.Errorf("unknown token: want not found, got %v", err)
	}
}

func TestParticipantsRestricted(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.makeUser(t, "alice")
	bob := f.makeUser(t, "bob")

	if _, err := f.regSvc.Register(context.Background(), alice, f.event.ID, ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := f.regSvc.Participants(context.Background(), bob, f.event.ID, ""); apperr.Status(err) != 403 {
		t.Errorf("stranger listing: want forbidden, got %v", err)
	}

	regs, err := f.regSvc.Participants(context.Background(), f.presidentCtx(), f.event.ID, "")
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(regs) != 1 || regs[0].UserID != alice.UserID {
		t.Errorf("unexpected participants: %+v", regs)
	}
}
