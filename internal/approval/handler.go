package approval

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

// List - GET /approvals?status=pending&page=1&limit=20
func (h *Handler) List(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	views, total, err := h.Service.List(c.Request.Context(), ac, c.Query("status"), page, limit)
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": total, "page": page, "results": views})
}

// Pending - GET /approvals/pending
func (h *Handler) Pending(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	views, total, err := h.Service.Pending(c.Request.Context(), ac, page, limit)
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": total, "page": page, "results": views})
}

// Get - GET /approvals/:id
func (h *Handler) Get(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid approval id"})
		return
	}

	a, err := h.Service.Get(c.Request.Context(), ac, uint(id))
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, a)
}

// Approve - POST /approvals/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid approval id"})
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	a, err := h.Service.Approve(c.Request.Context(), ac, uint(id), req.Comment, middleware.GetIPFromContext(c))
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, a)
}

// Reject - POST /approvals/:id/reject
func (h *Handler) Reject(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid approval id"})
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a rejection comment is required"})
		return
	}

	a, err := h.Service.Reject(c.Request.Context(), ac, uint(id), req.Comment, middleware.GetIPFromContext(c))
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, a)
}
