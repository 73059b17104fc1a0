package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/tuannn09/event-connect-backend/config"
	"github.com/tuannn09/event-connect-backend/internal/approval"
	"github.com/tuannn09/event-connect-backend/internal/auditlog"
	"github.com/tuannn09/event-connect-backend/internal/auth"
	"github.com/tuannn09/event-connect-backend/internal/club"
	"github.com/tuannn09/event-connect-backend/internal/event"
	"github.com/tuannn09/event-connect-backend/internal/notification"
	registrationpkg "github.com/tuannn09/event-connect-backend/internal/registration"
	"github.com/tuannn09/event-connect-backend/middleware"
	"github.com/tuannn09/event-connect-backend/utils"
)

// Services bundles the wired service layer so main can hand pieces to
// background consumers.
type Services struct {
	Auth         auth.Service
	Audit        auditlog.Service
	Notification notification.Service
	NotifRepo    notification.Repository
	Push         *notification.FCMChannel
	Club         club.Service
	Event        event.Service
	Registration registrationpkg.Service
	Approval     approval.Service
}

// Build wires repositories and services against the database handle.
func Build(db *gorm.DB, cfg *config.Config) *Services {
	push := notification.NewFCMChannel(cfg)
	notifRepo := notification.NewRepository(db)
	notifSvc := notification.NewService(notifRepo, utils.KafkaWriter(), push)

	auditSvc := auditlog.NewService(auditlog.NewRepository(db))
	authSvc := auth.NewService(auth.NewRepository(db), cfg)

	clubSvc := club.NewService(club.NewRepository(db), auditSvc, notifSvc)
	eventSvc := event.NewService(event.NewRepository(db), clubSvc, auditSvc, notifSvc)
	regSvc := registrationpkg.NewService(registrationpkg.NewRepository(db), clubSvc, notifSvc)
	approvalSvc := approval.NewService(approval.NewRepository(db), auditSvc, notifSvc)

	return &Services{
		Auth:         authSvc,
		Audit:        auditSvc,
		Notification: notifSvc,
		NotifRepo:    notifRepo,
		Push:         push,
		Club:         clubSvc,
		Event:        eventSvc,
		Registration: regSvc,
		Approval:     approvalSvc,
	}
}

// Setup registers every route on the engine.
func Setup(r *gin.Engine, svc *Services, cfg *config.Config) {
	authHandler := auth.NewHandler(svc.Auth)
	clubHandler := club.NewHandler(svc.Club)
	eventHandler := event.NewHandler(svc.Event, cfg.UploadDir, cfg.BaseURL)
	regHandler := registrationpkg.NewHandler(svc.Registration)
	approvalHandler := approval.NewHandler(svc.Approval)
	notifHandler := notification.NewHandler(svc.Notification)
	auditHandler := auditlog.NewHandler(svc.Audit)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.Static("/uploads", cfg.UploadDir)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimiter(utils.RedisClient))
	api.Use(middleware.AuditMiddleware())

	// Public surface
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	api.GET("/clubs", clubHandler.List)
	api.GET("/clubs/:id", clubHandler.Get)
	api.GET("/clubs/:id/members", clubHandler.Members)

	api.GET("/events", eventHandler.List)
	api.GET("/events/featured", eventHandler.Featured)
	api.GET("/events/search", eventHandler.Search)
	api.GET("/events/slug/:slug", eventHandler.GetBySlug)
	api.GET("/events/:id", eventHandler.Get)
	api.GET("/events/:id/feedback", eventHandler.ListFeedback)
	api.GET("/events/:id/ratings", eventHandler.RatingDistribution)

	// Authenticated surface
	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(cfg, svc.Auth))
	{
		authed.GET("/auth/me", authHandler.Me)
		authed.PUT("/auth/me", authHandler.UpdateMe)

		authed.POST("/clubs", clubHandler.Create)
		authed.PUT("/clubs/:id", clubHandler.Update)
		authed.DELETE("/clubs/:id", clubHandler.Delete)
		authed.POST("/clubs/:id/join", clubHandler.Join)
		authed.POST("/clubs/:id/leave", clubHandler.Leave)
		authed.POST("/clubs/:id/admins", clubHandler.PromoteAdmin)
		authed.POST("/clubs/:id/events", eventHandler.Create)

		authed.PUT("/events/:id", eventHandler.Update)
		authed.DELETE("/events/:id", eventHandler.Delete)
		authed.POST("/events/:id/poster", eventHandler.UploadPoster)
		authed.POST("/events/:id/feedback", eventHandler.SubmitFeedback)
		authed.POST("/events/:id/register", regHandler.Register)
		authed.POST("/events/:id/unregister", regHandler.Unregister)
		authed.GET("/events/:id/participants", regHandler.Participants)
		authed.GET("/events/:id/participants/export", regHandler.ExportParticipants)
		authed.POST("/events/:id/no-shows", regHandler.MarkNoShows)

		authed.GET("/registrations/my-events", regHandler.MyEvents)
		authed.POST("/registrations/check-in", regHandler.CheckInByToken)
		authed.GET("/registrations/:id", regHandler.Get)
		authed.POST("/registrations/:id/check-in", regHandler.CheckIn)

		authed.GET("/notifications", notifHandler.List)
		authed.GET("/notifications/unread-count", notifHandler.UnreadCount)
		authed.POST("/notifications/read-all", notifHandler.MarkAllRead)
		authed.POST("/notifications/:id/read", notifHandler.MarkRead)
		authed.POST("/notifications/device-tokens", notifHandler.RegisterDeviceToken)
		authed.DELETE("/notifications/device-tokens", notifHandler.RemoveDeviceToken)
	}

	// Moderation surface
	admin := authed.Group("")
	admin.Use(middleware.RBACMiddleware(middleware.RoleSystemAdmin))
	{
		admin.GET("/approvals", approvalHandler.List)
		admin.GET("/approvals/pending", approvalHandler.Pending)
		admin.GET("/approvals/:id", approvalHandler.Get)
		admin.POST("/approvals/:id/approve", approvalHandler.Approve)
		admin.POST("/approvals/:id/reject", approvalHandler.Reject)

		admin.POST("/events/:id/feature", eventHandler.Feature)
		admin.POST("/events/sweep", eventHandler.Sweep)

		admin.GET("/activity-logs", auditHandler.GetActivityLogs)
	}
}
