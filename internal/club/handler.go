package club

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tuannn09/event-connect-backend/internal/apperr"
	"github.com/tuannn09/event-connect-backend/middleware"
)

type Handler struct {
	Service Service
}

func NewHandler(s Service) *Handler {
	return &Handler{Service: s}
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// Create - POST /clubs
func (h *Handler) Create(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	var req CreateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	created, err := h.Service.CreateClub(c.Request.Context(), ac, req, middleware.GetIPFromContext(c))
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Get - GET /clubs/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	detail, err := h.Service.GetClub(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, detail)
}

// List - GET /clubs?status=active&faculty=Engineering&page=1&limit=20
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	clubs, total, err := h.Service.ListClubs(c.Request.Context(), c.Query("status"), c.Query("faculty"), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch clubs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": total, "page": page, "results": clubs})
}

// Update - PUT /clubs/:id
func (h *Handler) Update(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	updated, err := h.Service.UpdateClub(c.Request.Context(), ac, id, req, middleware.GetIPFromContext(c))
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Delete - DELETE /clubs/:id
func (h *Handler) Delete(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Service.DeleteClub(c.Request.Context(), ac, id, middleware.GetIPFromContext(c)); err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "club deleted"})
}

// Join - POST /clubs/:id/join
func (h *Handler) Join(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	m, err := h.Service.JoinClub(c.Request.Context(), ac, id)
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusCreated, m)
}

// Leave - POST /clubs/:id/leave
func (h *Handler) Leave(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Service.LeaveClub(c.Request.Context(), ac, id); err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "left club"})
}

// Members - GET /clubs/:id/members?role=admin
func (h *Handler) Members(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	members, err := h.Service.Members(c.Request.Context(), id, c.Query("role"))
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(members), "results": members})
}

type promoteRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// PromoteAdmin - POST /clubs/:id/admins
func (h *Handler) PromoteAdmin(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req promoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	if err := h.Service.PromoteAdmin(c.Request.Context(), ac, id, req.UserID); err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "admin added"})
}
