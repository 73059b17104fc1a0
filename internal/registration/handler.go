package registration

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tuannn09/event-connect-backend/internal/apperr"
	"github.com/tuannn09/event-connect-backend/internal/reports"
	"github.com/tuannn09/event-connect-backend/middleware"
)

type Handler struct {
	Service Service
}

func NewHandler(s Service) *Handler {
	return &Handler{Service: s}
}

// Register - POST /events/:id/register
func (h *Handler) Register(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	eventID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	reg, err := h.Service.Register(c.Request.Context(), ac, uint(eventID), req.Note)
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusCreated, reg)
}

// Unregister - POST /events/:id/unregister
func (h *Handler) Unregister(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	eventID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	if err := h.Service.Unregister(c.Request.Context(), ac, uint(eventID)); err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "registration cancelled"})
}

// MyEvents - GET /registrations/my-events
func (h *Handler) MyEvents(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	regs, err := h.Service.MyRegistrations(c.Request.Context(), ac)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch registrations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(regs), "results": regs})
}

// Get - GET /registrations/:id
func (h *Handler) Get(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration id"})
		return
	}

	reg, err := h.Service.Get(c.Request.Context(), ac, uint(id))
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, reg)
}

// Participants - GET /events/:id/participants?status=attended
func (h *Handler) Participants(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	eventID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	regs, err := h.Service.Participants(c.Request.Context(), ac, uint(eventID), c.Query("status"))
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(regs), "results": regs})
}

// ExportParticipants - GET /events/:id/participants/export?format=xlsx
func (h *Handler) ExportParticipants(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	eventID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	regs, err := h.Service.Participants(c.Request.Context(), ac, uint(eventID), c.Query("status"))
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	title := fmt.Sprintf("Event %d participants", eventID)
	rows := make([]reports.ParticipantRow, 0, len(regs))
	for _, reg := range regs {
		row := reports.ParticipantRow{
			Name:         reg.User.FullName,
			Username:     reg.User.Username,
			Email:        reg.User.Email,
			Status:       reg.Status,
			CheckedIn:    reg.CheckedIn,
			RegisteredAt: reg.RegisteredAt,
		}
		if reg.User.StudentID != nil {
			row.StudentID = *reg.User.StudentID
		}
		rows = append(rows, row)
	}

	format := c.DefaultQuery("format", "xlsx")
	switch format {
	case "xlsx":
		data, err := reports.ParticipantsXLSX(title, rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=participants-%d.xlsx", eventID))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	case "pdf":
		data, err := reports.ParticipantsPDF(title, rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=participants-%d.pdf", eventID))
		c.Data(http.StatusOK, "application/pdf", data)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be xlsx or pdf"})
	}
}

// CheckIn - POST /registrations/:id/check-in
func (h *Handler) CheckIn(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration id"})
		return
	}

	reg, err := h.Service.CheckIn(c.Request.Context(), ac, uint(id))
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, reg)
}

// CheckInByToken - POST /registrations/check-in
func (h *Handler) CheckInByToken(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	var req CheckInTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "qr_code is required"})
		return
	}

	reg, err := h.Service.CheckInByToken(c.Request.Context(), ac, req.QRCode)
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, reg)
}

// MarkNoShows - POST /events/:id/no-shows
func (h *Handler) MarkNoShows(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return
	}

	eventID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	marked, err := h.Service.MarkNoShows(c.Request.Context(), ac, uint(eventID))
	if err != nil {
		c.JSON(apperr.Status(err), apperr.Payload(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked": marked})
}
