package handlers

import (
	"net/http"
	"time"

	chatRepo "parkwise/database/repository/chat"
	"parkwise/services/booking"
	"parkwise/services/intelligence"
	"parkwise/services/spots"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler exposes the administrator operations: reviewing pending
// approval requests, deciding them, and inspecting spot occupancy.
type AdminHandler struct {
	Store  chatRepo.Persistence
	Info   intelligence.Service
	Logger *zap.Logger
}

func NewAdminHandler(store chatRepo.Persistence, info intelligence.Service, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{Store: store, Info: info, Logger: logger}
}

// ListPendingHandler returns approval requests still awaiting a decision.
func (h *AdminHandler) ListPendingHandler(c *gin.Context) {
	pending, err := h.Store.ListPendingApprovals(c.Request.Context())
	if err != nil {
		h.Logger.Error("failed to list pending approvals", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list pending requests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": pending})
}

// DecisionHandler records an approve/decline decision. Decisions are
// write-once: repeating one returns the original with 200.
func (h *AdminHandler) DecisionHandler(c *gin.Context) {
	var input struct {
		RequestID string `json:"request_id" binding:"required"`
		Approved  *bool  `json:"approved" binding:"required"`
		Notes     string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	decision, err := h.Store.SetApprovalDecision(c.Request.Context(), input.RequestID, *input.Approved, input.Notes)
	if err != nil {
		h.Logger.Error("failed to record decision", zap.String("requestId", input.RequestID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record decision"})
		return
	}
	if decision == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown request id"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"requestId": input.RequestID, "decision": decision})
}

// GetDecisionHandler returns one approval request with its decision, if any.
func (h *AdminHandler) GetDecisionHandler(c *gin.Context) {
	requestID := c.Param("requestID")

	approval, err := h.Store.GetApproval(c.Request.Context(), requestID)
	if err != nil {
		h.Logger.Error("failed to load approval", zap.String("requestId", requestID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load request"})
		return
	}
	if approval == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown request id"})
		return
	}

	c.JSON(http.StatusOK, approval)
}

// BoardHandler renders spot occupancy for a window, defaulting to the next
// two hours. from/to use the "YYYY-MM-DD HH:MM" layout.
func (h *AdminHandler) BoardHandler(c *gin.Context) {
	window := spots.DefaultBoardWindow(time.Now())

	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse(booking.PeriodLayout, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' timestamp"})
			return
		}
		window.Start = parsed
		window.End = parsed.Add(2 * time.Hour)
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse(booking.PeriodLayout, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' timestamp"})
			return
		}
		window.End = parsed
	}
	if !window.End.After(window.Start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'to' must be after 'from'"})
		return
	}

	ctx := c.Request.Context()
	status, err := h.Info.Status(ctx)
	if err != nil {
		h.Logger.Error("failed to load parking status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load parking status"})
		return
	}

	records, err := h.Store.ListReservations(ctx)
	if err != nil {
		h.Logger.Error("failed to list reservations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reservations"})
		return
	}

	occupied := spots.FromRecords(records, booking.ParseReservationPeriod)
	board := spots.BuildBoard(window, occupied, status.TotalSpots)

	c.JSON(http.StatusOK, gin.H{
		"from":  window.Start.Format(booking.PeriodLayout),
		"to":    window.End.Format(booking.PeriodLayout),
		"board": board,
	})
}
