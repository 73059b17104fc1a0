package main

import (
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tuannn09/event-connect-backend/config"
	"github.com/tuannn09/event-connect-backend/database"
	_ "github.com/tuannn09/event-connect-backend/docs"
	"github.com/tuannn09/event-connect-backend/internal/approval"
	"github.com/tuannn09/event-connect-backend/internal/auditlog"
	"github.com/tuannn09/event-connect-backend/internal/auth"
	"github.com/tuannn09/event-connect-backend/internal/club"
	"github.com/tuannn09/event-connect-backend/internal/event"
	"github.com/tuannn09/event-connect-backend/internal/notification"
	"github.com/tuannn09/event-connect-backend/internal/registration"
	"github.com/tuannn09/event-connect-backend/routes"
	"github.com/tuannn09/event-connect-backend/utils"
	"golang.org/x/crypto/bcrypt"
)

// @title Event Connect API
// @version 1.0
// @description University event management backend: clubs, events, registrations, approvals.
// @BasePath /api/v1
func main() {
	cfg := config.Load()

	db := database.Connect(cfg)

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
		log.Fatalf("migration failed: %v", err)
	}

	seedAdmin(cfg)

	if err := utils.InitRedis(cfg); err != nil {
		log.Printf("Redis unavailable, continuing without it: %v", err)
	}
	utils.InitKafka(cfg)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("upload dir: %v", err)
	}

	svc := routes.Build(db, cfg)

	if reader := utils.NewKafkaReader(cfg); reader != nil {
		notification.StartKafkaConsumer(reader, svc.NotifRepo, svc.Push)
	}

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	routes.Setup(r, svc, cfg)

	log.Printf("listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

// seedAdmin bootstraps the first system administrator from environment
// variables so a fresh deployment has a reviewer.
func seedAdmin(cfg *config.Config) {
	username := os.Getenv("ADMIN_USERNAME")
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || email == "" || password == "" {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("admin seed: %v", err)
		return
	}
	if err := auth.SeedSystemAdmin(database.DB, username, email, string(hash)); err != nil {
		log.Printf("admin seed: %v", err)
	}
}
