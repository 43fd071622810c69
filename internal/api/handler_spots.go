package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parking-escrow-backend/internal/mw"
)

func spotID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("spot_id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid spot id"})
		return 0, false
	}
	return id, true
}

type checkInRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required,gt=0"`
}

// CheckIn handles POST /api/spots/{spot_id}/checkin.
func (h *Handler) CheckIn(c *gin.Context) {
	id, ok := spotID(c)
	if !ok {
		return
	}
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	spot, err := h.engine.CheckIn(c.Request.Context(), mw.Identity(c), id, req.AmountCents)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, spot)
}

// ReportOccupied handles POST /api/spots/{spot_id}/occupied.
func (h *Handler) ReportOccupied(c *gin.Context) {
	id, ok := spotID(c)
	if !ok {
		return
	}
	spot, err := h.engine.ReportOccupied(c.Request.Context(), mw.Identity(c), id)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, spot)
}

// ReportFree handles POST /api/spots/{spot_id}/free.
func (h *Handler) ReportFree(c *gin.Context) {
	id, ok := spotID(c)
	if !ok {
		return
	}
	settlement, err := h.engine.ReportFree(c.Request.Context(), mw.Identity(c), id)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

// CancelCheckIn handles POST /api/spots/{spot_id}/cancel.
func (h *Handler) CancelCheckIn(c *gin.Context) {
	id, ok := spotID(c)
	if !ok {
		return
	}
	settlement, err := h.engine.CancelCheckIn(c.Request.Context(), mw.Identity(c), id)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

// GetSpot handles GET /api/spots/{spot_id}.
func (h *Handler) GetSpot(c *gin.Context) {
	id, ok := spotID(c)
	if !ok {
		return
	}
	spot, err := h.engine.Spot(c.Request.Context(), id)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, spot)
}

// ListSpots handles GET /api/spots.
func (h *Handler) ListSpots(c *gin.Context) {
	spots, err := h.engine.Spots(c.Request.Context())
	if err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, spots)
}

// GetHistory handles GET /api/spots/{spot_id}/history.
func (h *Handler) GetHistory(c *gin.Context) {
	id, ok := spotID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	recs, err := h.engine.History(c.Request.Context(), id, limit)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}
