package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"parking-escrow-backend/internal/engine"
	"parking-escrow-backend/internal/payments"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	engine  *engine.Engine
	db      *gorm.DB
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(eng *engine.Engine, db *gorm.DB, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		engine:  eng,
		db:      db,
		webpush: webpushOptions,
	}
}

// statusFor maps engine errors onto HTTP statuses: authorization 403,
// validation 400, state and timing preconditions 409, transfer failures
// 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotAdmin),
		errors.Is(err, engine.ErrNotOracle):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrEmptyIdentity),
		errors.Is(err, engine.ErrDepositTooLow),
		errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrTimeoutTooShort),
		errors.Is(err, engine.ErrEndBeforeStart):
		return http.StatusBadRequest
	case errors.Is(err, payments.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, engine.ErrSpotNotFree),
		errors.Is(err, engine.ErrSpotFree),
		errors.Is(err, engine.ErrNotCheckedIn),
		errors.Is(err, engine.ErrNotOccupied),
		errors.Is(err, engine.ErrPaused),
		errors.Is(err, engine.ErrCheckInExpired),
		errors.Is(err, engine.ErrTimeoutNotReached),
		errors.Is(err, engine.ErrExceedsWithdrawable),
		errors.Is(err, engine.ErrReentrancy):
		return http.StatusConflict
	case errors.Is(err, engine.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithEngineError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}
