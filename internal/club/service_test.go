package club_test

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tuannn09/event-connect-backend/internal/apperr"
	"github.com/tuannn09/event-connect-backend/internal/auditlog"
	"github.com/tuannn09/event-connect-backend/internal/auth"
	"github.com/tuannn09/event-connect-backend/internal/club"
	"github.com/tuannn09/event-connect-backend/internal/notification"
	"github.com/tuannn09/event-connect-backend/middleware"
)

func newTestDB(t *testing.T) *gorm.DB {
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
		&notification.Notification{},
		&notification.DeviceToken{},
		&auditlog.ActivityLog{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	// The club cascade and event count touch event tables.
	for _, ddl := range []string{
		"CREATE TABLE events (id INTEGER PRIMARY KEY, club_id INTEGER, created_by_id INTEGER)",
		"CREATE TABLE feedbacks (id INTEGER PRIMARY KEY, event_id INTEGER)",
		"CREATE TABLE event_registrations (id INTEGER PRIMARY KEY, event_id INTEGER)",
		"CREATE TABLE event_approvals (id INTEGER PRIMARY KEY, event_id INTEGER)",
	} {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create stub table: %v", err)
		}
	}
	return db
}

func newClubService(t *testing.T, db *gorm.DB) club.Service {
	t.Helper()
	auditSvc := auditlog.NewService(auditlog.NewRepository(db))
	notifSvc := notification.NewService(notification.NewRepository(db), nil, nil)
	return club.NewService(club.NewRepository(db), auditSvc, notifSvc)
}

func makeUser(t *testing.T, db *gorm.DB, username, role string) *auth.User {
	t.Helper()
	u := &auth.User{
		Username:     username,
		Email:        username + "@campus.edu",
		PasswordHash: "x",
		Role:         role,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func adminCtx(id uint) middleware.AccessContext {
	return middleware.AccessContext{UserID: id, Role: middleware.RoleSystemAdmin}
}

func studentCtx(id uint) middleware.AccessContext {
	return middleware.AccessContext{UserID: id, Role: middleware.RoleStudent}
}

func TestCreateClubRequiresRegistryManager(t *testing.T) {
	db := newTestDB(t)
	svc := newClubService(t, db)
	student := makeUser(t, db, "student1", middleware.RoleStudent)

	_, err := svc.CreateClub(context.Background(), studentCtx(student.ID), club.CreateClubRequest{
		Name: "Chess Club", Description: "chess", Faculty: "Science", ContactEmail: "chess@campus.edu",
	}, "127.0.0.1")
	if apperr.Status(err) != 403 {
		t.Fatalf("want forbidden, got %v", err)
	}
}

func TestCreateClubSlugAndPresident(t *testing.T) {
	db := newTestDB(t)
	svc := newClubService(t, db)
	sysadmin := makeUser(t, db, "root", middleware.RoleSystemAdmin)
	president := makeUser(t, db, "prez", middleware.RoleClubAdmin)

	created, err := svc.CreateClub(context.Background(), adminCtx(sysadmin.ID), club.CreateClubRequest{
		Name: "Chess Club", Description: "chess", Faculty: "Science",
		ContactEmail: "chess@campus.edu", PresidentID: &president.ID,
	}, "127.0.0.1")
	if err != nil {
		t.Fatalf("create club: %v", err)
	}
	if created.Slug != "chess-club" {
		t.Errorf("slug = %q, want chess-club", created.Slug)
	}

	ok, err := svc.IsClubAdmin(context.Background(), president.ID, created.ID)
	if err != nil || !ok {
		t.Errorf("president should be club admin, got ok=%v err=%v", ok, err)
	}

	members, err := svc.Members(context.Background(), created.ID, club.RolePresident)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 1 || members[0].UserID != president.ID {
		t.Errorf("president membership missing: %+v", members)
	}
}

func TestIsClubAdminPredicate(t *testing.T) {
	db := newTestDB(t)
	svc := newClubService(t, db)
	sysadmin := makeUser(t, db, "root", middleware.RoleSystemAdmin)
	president := makeUser(t, db, "prez", middleware.RoleClubAdmin)
	helper := makeUser(t, db, "helper", middleware.RoleClubAdmin)
	stranger := makeUser(t, db, "stranger", middleware.RoleStudent)

	created, err := svc.CreateClub(context.Background(), adminCtx(sysadmin.ID), club.CreateClubRequest{
		Name: "Robotics", Description: "robots", Faculty: "Engineering",
		ContactEmail: "robotics@campus.edu", PresidentID: &president.ID,
	}, "")
	if err != nil {
		t.Fatalf("create club: %v", err)
	}

	if err := svc.PromoteAdmin(context.Background(), middleware.AccessContext{UserID: president.ID, Role: middleware.RoleClubAdmin}, created.ID, helper.ID); err != nil {
		t.Fatalf("promote admin: %v", err)
	}

	cases := []struct {
		name   string
		userID uint
		want   bool
	}{
		{"president", president.ID, true},
		{"admin set member", helper.ID, true},
		{"stranger", stranger.ID, false},
	}
	for _, tc := range cases {
		got, err := svc.IsClubAdmin(context.Background(), tc.userID, created.ID)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: IsClubAdmin = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestJoinAndLeave(t *testing.T) {
	db := newTestDB(t)
	svc := newClubService(t, db)
	sysadmin := makeUser(t, db, "root", middleware.RoleSystemAdmin)
	president := makeUser(t, db, "prez", middleware.RoleClubAdmin)
	member := makeUser(t, db, "member1", middleware.RoleStudent)

	created, err := svc.CreateClub(context.Background(), adminCtx(sysadmin.ID), club.CreateClubRequest{
		Name: "Film Society", Description: "films", Faculty: "Arts",
		ContactEmail: "film@campus.edu", PresidentID: &president.ID,
	}, "")
	if err != nil {
		t.Fatalf("create club: %v", err)
	}

	if _, err := svc.JoinClub(context.Background(), studentCtx(member.ID), created.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := svc.JoinClub(context.Background(), studentCtx(member.ID), created.ID); apperr.Status(err) != 409 {
		t.Errorf("duplicate join: want conflict, got %v", err)
	}

	// The president cannot walk away from a club they still lead.
	if err := svc.LeaveClub(context.Background(), studentCtx(president.ID), created.ID); apperr.Status(err) != 400 {
		t.Errorf("president leave: want precondition, got %v", err)
	}

	if err := svc.LeaveClub(context.Background(), studentCtx(member.ID), created.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if err := svc.LeaveClub(context.Background(), studentCtx(member.ID), created.ID); apperr.Status(err) != 404 {
		t.Errorf("second leave: want not found, got %v", err)
	}
}
