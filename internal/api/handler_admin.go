package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-escrow-backend/internal/mw"
)

// ForceReset handles POST /api/admin/spots/{spot_id}/force-reset.
func (h *Handler) ForceReset(c *gin.Context) {
	id, ok := spotID(c)
	if !ok {
		return
	}
	settlement, err := h.engine.ForceReset(c.Request.Context(), mw.Identity(c), id)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

// ForceEnd handles POST /api/admin/spots/{spot_id}/force-end.
func (h *Handler) ForceEnd(c *gin.Context) {
	id, ok := spotID(c)
	if !ok {
		return
	}
	settlement, err := h.engine.ForceEnd(c.Request.Context(), mw.Identity(c), id)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

type withdrawRequest struct {
	Destination string `json:"destination" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
}

// Withdraw handles POST /api/admin/withdraw.
func (h *Handler) Withdraw(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.Withdraw(c.Request.Context(), mw.Identity(c), req.Destination, req.AmountCents); err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"destination": req.Destination, "amount_cents": req.AmountCents})
}

type updateConfigRequest struct {
	Oracle                *string `json:"oracle"`
	Admin                 *string `json:"admin"`
	RatePerMinuteCents    *int64  `json:"rate_per_minute_cents"`
	MinDepositCents       *int64  `json:"min_deposit_cents"`
	CheckInTimeoutSeconds *int64  `json:"checkin_timeout_seconds"`
}

// UpdateConfig handles PUT /api/admin/config. Each present field is
// applied through its engine setter; the first rejection aborts the
// request with nothing further applied.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	caller := mw.Identity(c)
	if req.Oracle != nil {
		if err := h.engine.SetOracle(ctx, caller, *req.Oracle); err != nil {
			abortWithEngineError(c, err)
			return
		}
	}
	if req.RatePerMinuteCents != nil {
		if err := h.engine.SetRatePerMinute(ctx, caller, *req.RatePerMinuteCents); err != nil {
			abortWithEngineError(c, err)
			return
		}
	}
	if req.MinDepositCents != nil {
		if err := h.engine.SetMinDeposit(ctx, caller, *req.MinDepositCents); err != nil {
			abortWithEngineError(c, err)
			return
		}
	}
	if req.CheckInTimeoutSeconds != nil {
		if err := h.engine.SetCheckInTimeout(ctx, caller, *req.CheckInTimeoutSeconds); err != nil {
			abortWithEngineError(c, err)
			return
		}
	}
	// Admin reassignment last: afterwards the caller is no longer the
	// administrator.
	if req.Admin != nil {
		if err := h.engine.SetAdmin(ctx, caller, *req.Admin); err != nil {
			abortWithEngineError(c, err)
			return
		}
	}

	h.GetState(c)
}

// Pause handles POST /api/admin/pause.
func (h *Handler) Pause(c *gin.Context) {
	if err := h.engine.Pause(c.Request.Context(), mw.Identity(c)); err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Resume handles POST /api/admin/resume.
func (h *Handler) Resume(c *gin.Context) {
	if err := h.engine.Resume(c.Request.Context(), mw.Identity(c)); err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetState handles GET /api/admin/state.
func (h *Handler) GetState(c *gin.Context) {
	st, err := h.engine.State(c.Request.Context())
	if err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"admin":                   st.Admin,
		"oracle":                  st.Oracle,
		"rate_per_minute_cents":   st.RatePerMinute,
		"min_deposit_cents":       st.MinDeposit,
		"checkin_timeout_seconds": st.CheckInTimeout,
		"paused":                  st.Paused,
		"locked_deposits_cents":   st.LockedDeposits,
		"withdrawable_cents":      st.AccruedFees,
	})
}
