package event

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tuannn09/event-connect-backend/internal/apperr"
	"github.com/tuannn09/event-connect-backend/middleware"
)

type Handler struct {
	Service   Service
	UploadDir string
	BaseURL   string
}

func NewHandler(s Service, uploadDir, baseURL string) *Handler {
	return &Handler{Service: s, UploadDir: uploadDir, BaseURL: baseURL}
}

func eventID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return 0, false
	}
	return uint(id), true
}

// Create - POST /clubs/:id/events
func (h *Handler) Create(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	clubID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid club id"})
		return
	}

	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	created, err := h.Service.CreateEvent(c.Request.Context(), ac, uint(clubID), req, middleware.GetIPFromContext(c))
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Get - GET /events/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	e, err := h.Service.GetEvent(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, e)
}

// GetBySlug - GET /events/slug/:slug
func (h *Handler) GetBySlug(c *gin.Context) {
	e, err := h.Service.GetEventBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, e)
}

// List - GET /events?status=approved&category=tech&club_id=3&featured=true&q=demo&upcoming=true
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	clubID, _ := strconv.ParseUint(c.Query("club_id"), 10, 32)

	f := ListFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		ClubID:   uint(clubID),
		Search:   c.Query("q"),
		Upcoming: c.Query("upcoming") == "true",
		Page:     page,
		Limit:    limit,
	}
	if raw := c.Query("featured"); raw != "" {
		featured := raw == "true"
		f.Featured = &featured
	}

	events, total, err := h.Service.ListEvents(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": total, "page": page, "results": events})
}

// Search - GET /events/search
func (h *Handler) Search(c *gin.Context) {
	results, err := h.Service.SearchEvents(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(results), "results": results})
}

// Featured - GET /events/featured
func (h *Handler) Featured(c *gin.Context) {
	events, err := h.Service.FeaturedEvents(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch featured events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(events), "results": events})
}

// Update - PUT /events/:id
func (h *Handler) Update(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}
	id, ok := eventID(c)
	if !ok {
		return
	}

	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	updated, err := h.Service.UpdateEvent(c.Request.Context(), ac, id, req, middleware.GetIPFromContext(c))
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Delete - DELETE /events/:id
func (h *Handler) Delete(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}
	id, ok := eventID(c)
	if !ok {
		return
	}

	if err := h.Service.DeleteEvent(c.Request.Context(), ac, id, middleware.GetIPFromContext(c)); err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "event deleted"})
}

type featureRequest struct {
	Featured *bool `json:"featured" binding:"required"`
}

// Feature - POST /events/:id/feature
func (h *Handler) Feature(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}
	id, ok := eventID(c)
	if !ok {
		return
	}

	var req featureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	if err := h.Service.SetFeatured(c.Request.Context(), ac, id, *req.Featured); err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "featured flag updated"})
}

// UploadPoster - POST /events/:id/poster (multipart form, field "poster")
func (h *Handler) UploadPoster(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}
	id, ok := eventID(c)
	if !ok {
		return
	}

	file, err := c.FormFile("poster")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "poster file is required"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image format"})
		return
	}

	filename := fmt.Sprintf("event-%d-%s%s", id, uuid.NewString(), ext)
	dst := filepath.Join(h.UploadDir, filename)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store poster"})
		return
	}

	ref := h.BaseURL + "/uploads/" + filename
	updated, err := h.Service.SavePosterRef(c.Request.Context(), ac, id, ref)
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"poster": updated.Poster})
}

// SubmitFeedback - POST /events/:id/feedback
func (h *Handler) SubmitFeedback(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}
	id, ok := eventID(c)
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	fb, err := h.Service.SubmitFeedback(c.Request.Context(), ac, id, req)
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusCreated, fb)
}

// ListFeedback - GET /events/:id/feedback
func (h *Handler) ListFeedback(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, total, err := h.Service.ListFeedback(c.Request.Context(), id, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": total, "page": page, "results": items})
}

// RatingDistribution - GET /events/:id/ratings
func (h *Handler) RatingDistribution(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	buckets, err := h.Service.RatingDistribution(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"distribution": buckets})
}

// Sweep - POST /events/sweep
func (h *Handler) Sweep(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	moved, err := h.Service.SweepStatuses(c.Request.Context(), ac)
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"transitioned": moved})
}
