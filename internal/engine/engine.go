package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"parking-escrow-backend/internal/metrics"
	"parking-escrow-backend/internal/model"
	"parking-escrow-backend/internal/payments"
)

// MinCheckInTimeout is the floor for the configurable check-in window.
const MinCheckInTimeout int64 = 60 // seconds

// Params seeds the engine state on first startup.
type Params struct {
	Admin          string
	Oracle         string
	RatePerMinute  int64 // cents per billed minute
	MinDeposit     int64 // cents
	CheckInTimeout int64 // seconds
}

// Settlement is the result of a session-ending operation.
type Settlement struct {
	SpotID        int64                `json:"spot_id"`
	Holder        string               `json:"holder"`
	Outcome       model.SessionOutcome `json:"outcome"`
	EndAt         int64                `json:"end_at"`
	BilledMinutes int64                `json:"billed_minutes"`
	Fee           int64                `json:"fee_cents"`
	Refund        int64                `json:"refund_cents"`
}

// Engine owns the per-spot lifecycle state machine, the settlement and
// billing logic, and the fund custody ledger. All mutation runs inside a
// database transaction serialized by the engine mutex, so two operations
// never interleave and a failed transfer discards every state change of
// the operation that attempted it.
type Engine struct {
	db      *gorm.DB
	gateway payments.Gateway
	log     zerolog.Logger
	metrics *metrics.Set
	guard   transferGuard
	mu      sync.Mutex
	now     func() time.Time
	freed   func(spotID int64)
}

// New creates an engine. Call Init before serving traffic.
func New(db *gorm.DB, gw payments.Gateway, logger zerolog.Logger, m *metrics.Set) *Engine {
	return &Engine{
		db:      db,
		gateway: gw,
		log:     logger,
		metrics: m,
		now:     time.Now,
	}
}

// SetNowFunc replaces the engine clock. For testing.
func (e *Engine) SetNowFunc(now func() time.Time) {
	e.now = now
}

// OnSpotFreed registers a hook invoked after every committed operation
// that returns a spot to free.
func (e *Engine) OnSpotFreed(fn func(spotID int64)) {
	e.freed = fn
}

// Init seeds the singleton engine state row if it does not exist yet.
// An existing row wins over the supplied parameters so that runtime
// reconfiguration survives restarts.
func (e *Engine) Init(ctx context.Context, p Params) error {
	if p.Admin == "" || p.Oracle == "" {
		return ErrEmptyIdentity
	}
	if p.RatePerMinute <= 0 || p.MinDeposit <= 0 {
		return ErrInvalidAmount
	}
	if p.CheckInTimeout < MinCheckInTimeout {
		return ErrTimeoutTooShort
	}

	st := model.EngineState{
		ID:             model.EngineStateID,
		Admin:          p.Admin,
		Oracle:         p.Oracle,
		RatePerMinute:  p.RatePerMinute,
		MinDeposit:     p.MinDeposit,
		CheckInTimeout: p.CheckInTimeout,
	}
	if err := e.db.WithContext(ctx).FirstOrCreate(&st, model.EngineState{ID: model.EngineStateID}).Error; err != nil {
		return fmt.Errorf("seed engine state: %w", err)
	}
	e.log.Info().
		Str("admin", st.Admin).
		Str("oracle", st.Oracle).
		Int64("rate_per_minute_cents", st.RatePerMinute).
		Int64("min_deposit_cents", st.MinDeposit).
		Int64("checkin_timeout_seconds", st.CheckInTimeout).
		Msg("engine state ready")
	return nil
}

// lock serializes engine operations. Calls arriving while a guarded
// transfer is in flight are rejected instead of queued: these are either
// re-entrant callbacks from recipient logic or callers who must retry.
func (e *Engine) lock() error {
	if e.guard.inProgress() {
		return ErrReentrancy
	}
	e.mu.Lock()
	return nil
}

func loadState(tx *gorm.DB) (*model.EngineState, error) {
	var st model.EngineState
	if err := tx.First(&st, model.EngineStateID).Error; err != nil {
		return nil, fmt.Errorf("load engine state: %w", err)
	}
	return &st, nil
}

// loadSpot fetches a spot row, reporting whether it exists yet. Spots are
// created lazily on first check-in; an absent row is a free spot.
func loadSpot(tx *gorm.DB, id int64) (*model.Spot, bool, error) {
	var sp model.Spot
	err := tx.First(&sp, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.Spot{ID: id, State: model.SpotFree}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load spot %d: %w", id, err)
	}
	return &sp, true, nil
}

func saveSpot(tx *gorm.DB, sp *model.Spot, exists bool) error {
	if !exists {
		if err := tx.Create(sp).Error; err != nil {
			return fmt.Errorf("create spot %d: %w", sp.ID, err)
		}
		return nil
	}
	if err := tx.Save(sp).Error; err != nil {
		return fmt.Errorf("save spot %d: %w", sp.ID, err)
	}
	return nil
}

// CheckIn reserves a free spot for holder by escrowing amount cents.
// The deposit transfer runs last so that a failed debit rolls back the
// reservation entirely.
func (e *Engine) CheckIn(ctx context.Context, holder string, spotID int64, amount int64) (*model.Spot, error) {
	if holder == "" {
		return nil, ErrEmptyIdentity
	}
	if err := e.lock(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	var out model.Spot
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := loadState(tx)
		if err != nil {
			return err
		}
		if st.Paused {
			return ErrPaused
		}
		if amount < st.MinDeposit {
			return fmt.Errorf("%w: got %d, minimum %d", ErrDepositTooLow, amount, st.MinDeposit)
		}
		sp, exists, err := loadSpot(tx, spotID)
		if err != nil {
			return err
		}
		if sp.State != model.SpotFree {
			return ErrSpotNotFree
		}

		sp.State = model.SpotCheckedIn
		sp.Holder = holder
		sp.Deposit = amount
		sp.CheckInAt = e.now().Unix()
		st.LockedDeposits += amount

		if err := saveSpot(tx, sp, exists); err != nil {
			return err
		}
		if err := tx.Save(st).Error; err != nil {
			return fmt.Errorf("save engine state: %w", err)
		}
		if err := e.guard.do(func() error {
			return e.gateway.Debit(ctx, holder, amount)
		}); err != nil {
			return fmt.Errorf("escrow deposit from %s: %w", holder, err)
		}
		out = *sp
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Int64("spot", spotID).
		Str("holder", holder).
		Int64("deposit_cents", amount).
		Msg("checked in")
	e.metrics.CheckIns.Inc()
	e.metrics.LockedDeposits.Add(float64(amount))
	return &out, nil
}

// ReportOccupied records the billing start time for a checked-in spot.
// Only the oracle may call it, and only while the check-in window is
// still open; an expired check-in has to be cancelled instead.
func (e *Engine) ReportOccupied(ctx context.Context, caller string, spotID int64) (*model.Spot, error) {
	if err := e.lock(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	var out model.Spot
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := loadState(tx)
		if err != nil {
			return err
		}
		if caller != st.Oracle {
			return ErrNotOracle
		}
		if st.Paused {
			return ErrPaused
		}
		sp, exists, err := loadSpot(tx, spotID)
		if err != nil {
			return err
		}
		if !exists || sp.State != model.SpotCheckedIn {
			return ErrNotCheckedIn
		}
		now := e.now().Unix()
		if now > sp.CheckInAt+st.CheckInTimeout {
			return ErrCheckInExpired
		}

		sp.State = model.SpotOccupied
		sp.StartAt = now
		if err := saveSpot(tx, sp, true); err != nil {
			return err
		}
		out = *sp
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Int64("spot", spotID).
		Str("holder", out.Holder).
		Int64("start_at", out.StartAt).
		Msg("occupancy started")
	return &out, nil
}

// ReportFree settles an occupied spot at the current time. Only the
// oracle may call it.
func (e *Engine) ReportFree(ctx context.Context, caller string, spotID int64) (*Settlement, error) {
	if err := e.lock(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	var out *Settlement
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := loadState(tx)
		if err != nil {
			return err
		}
		if caller != st.Oracle {
			return ErrNotOracle
		}
		if st.Paused {
			return ErrPaused
		}
		sp, exists, err := loadSpot(tx, spotID)
		if err != nil {
			return err
		}
		if !exists || sp.State != model.SpotOccupied {
			return ErrNotOccupied
		}
		out, err = e.settle(ctx, tx, st, sp, model.OutcomeSettled)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.finishSession(out)
	return out, nil
}

// settle runs the billing algorithm for an occupied spot: compute the
// billed minutes and the fee capped at the deposit, move the deposit out
// of custody, clear the spot, write the history record, then refund the
// remainder. State mutation strictly precedes the transfer; the caller's
// transaction discards everything if the transfer fails.
func (e *Engine) settle(ctx context.Context, tx *gorm.DB, st *model.EngineState, sp *model.Spot, outcome model.SessionOutcome) (*Settlement, error) {
	endAt := e.now().Unix()
	mins, err := billedMinutes(sp.StartAt, endAt)
	if err != nil {
		return nil, err
	}
	fee, refund := splitDeposit(sp.Deposit, st.RatePerMinute, mins)

	rec := model.SessionRecord{
		SpotID:        sp.ID,
		Holder:        sp.Holder,
		Outcome:       outcome,
		PriorState:    sp.State,
		CheckInAt:     sp.CheckInAt,
		StartAt:       sp.StartAt,
		EndAt:         endAt,
		BilledMinutes: mins,
		Fee:           fee,
		Refund:        refund,
	}
	st.LockedDeposits -= sp.Deposit
	st.AccruedFees += fee
	holder := sp.Holder
	sp.ClearSession()

	if err := saveSpot(tx, sp, true); err != nil {
		return nil, err
	}
	if err := tx.Save(st).Error; err != nil {
		return nil, fmt.Errorf("save engine state: %w", err)
	}
	if err := tx.Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("record session for spot %d: %w", sp.ID, err)
	}
	if refund > 0 {
		if err := e.guard.do(func() error {
			return e.gateway.Credit(ctx, holder, refund)
		}); err != nil {
			if errors.Is(err, ErrReentrancy) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: refund to %s: %w", ErrTransferFailed, holder, err)
		}
	}

	return &Settlement{
		SpotID:        sp.ID,
		Holder:        holder,
		Outcome:       outcome,
		EndAt:         endAt,
		BilledMinutes: mins,
		Fee:           fee,
		Refund:        refund,
	}, nil
}

// refundAll releases the full deposit back to the holder with no billing
// and clears the spot. Shared by cancellation and the administrative
// reset path.
func (e *Engine) refundAll(ctx context.Context, tx *gorm.DB, st *model.EngineState, sp *model.Spot, outcome model.SessionOutcome) (*Settlement, error) {
	endAt := e.now().Unix()
	rec := model.SessionRecord{
		SpotID:     sp.ID,
		Holder:     sp.Holder,
		Outcome:    outcome,
		PriorState: sp.State,
		CheckInAt:  sp.CheckInAt,
		StartAt:    sp.StartAt,
		EndAt:      endAt,
		Refund:     sp.Deposit,
	}
	st.LockedDeposits -= sp.Deposit
	holder := sp.Holder
	refund := sp.Deposit
	sp.ClearSession()

	if err := saveSpot(tx, sp, true); err != nil {
		return nil, err
	}
	if err := tx.Save(st).Error; err != nil {
		return nil, fmt.Errorf("save engine state: %w", err)
	}
	if err := tx.Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("record session for spot %d: %w", sp.ID, err)
	}
	if err := e.guard.do(func() error {
		return e.gateway.Credit(ctx, holder, refund)
	}); err != nil {
		if errors.Is(err, ErrReentrancy) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: refund to %s: %w", ErrTransferFailed, holder, err)
	}

	return &Settlement{
		SpotID:  sp.ID,
		Holder:  holder,
		Outcome: outcome,
		EndAt:   endAt,
		Refund:  refund,
	}, nil
}

// CancelCheckIn releases an expired check-in: full refund to the holder,
// no billing. Any caller may expire a checked-in spot once the timeout
// has elapsed, so a vanished holder cannot squat a spot forever.
func (e *Engine) CancelCheckIn(ctx context.Context, caller string, spotID int64) (*Settlement, error) {
	if caller == "" {
		return nil, ErrEmptyIdentity
	}
	if err := e.lock(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	var out *Settlement
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := loadState(tx)
		if err != nil {
			return err
		}
		if st.Paused {
			return ErrPaused
		}
		sp, exists, err := loadSpot(tx, spotID)
		if err != nil {
			return err
		}
		if !exists || sp.State != model.SpotCheckedIn {
			return ErrNotCheckedIn
		}
		if e.now().Unix() < sp.CheckInAt+st.CheckInTimeout {
			return ErrTimeoutNotReached
		}
		out, err = e.refundAll(ctx, tx, st, sp, model.OutcomeCancelled)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Int64("spot", spotID).
		Str("holder", out.Holder).
		Str("cancelled_by", caller).
		Int64("refund_cents", out.Refund).
		Msg("check-in cancelled")
	e.metrics.Cancellations.Inc()
	e.metrics.LockedDeposits.Sub(float64(out.Refund))
	e.emitFreed(spotID)
	return out, nil
}

// ForceReset is the administrative override: unconditional full refund
// and clear from any non-free state, with no billing. It works while the
// engine is paused.
func (e *Engine) ForceReset(ctx context.Context, caller string, spotID int64) (*Settlement, error) {
	if err := e.lock(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	var out *Settlement
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := loadState(tx)
		if err != nil {
			return err
		}
		if caller != st.Admin {
			return ErrNotAdmin
		}
		sp, exists, err := loadSpot(tx, spotID)
		if err != nil {
			return err
		}
		if !exists || sp.State == model.SpotFree {
			return ErrSpotFree
		}
		out, err = e.refundAll(ctx, tx, st, sp, model.OutcomeForceReset)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.log.Warn().
		Int64("spot", spotID).
		Str("holder", out.Holder).
		Int64("refund_cents", out.Refund).
		Msg("spot force-reset")
	e.metrics.Overrides.Inc()
	e.metrics.LockedDeposits.Sub(float64(out.Refund))
	e.emitFreed(spotID)
	return out, nil
}

// ForceEnd is the billed administrative override: it settles an occupied
// spot exactly as ReportFree would. It works while the engine is paused.
func (e *Engine) ForceEnd(ctx context.Context, caller string, spotID int64) (*Settlement, error) {
	if err := e.lock(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	var out *Settlement
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := loadState(tx)
		if err != nil {
			return err
		}
		if caller != st.Admin {
			return ErrNotAdmin
		}
		sp, exists, err := loadSpot(tx, spotID)
		if err != nil {
			return err
		}
		if !exists || sp.State != model.SpotOccupied {
			return ErrNotOccupied
		}
		out, err = e.settle(ctx, tx, st, sp, model.OutcomeForceEnd)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.log.Warn().
		Int64("spot", spotID).
		Str("holder", out.Holder).
		Int64("fee_cents", out.Fee).
		Int64("refund_cents", out.Refund).
		Msg("session force-ended")
	e.metrics.Overrides.Inc()
	e.finishSession(out)
	return out, nil
}

// Withdraw transfers accrued fees out of custody. The amount can never
// touch deposits still locked against active sessions.
func (e *Engine) Withdraw(ctx context.Context, caller, destination string, amount int64) error {
	if destination == "" {
		return ErrEmptyIdentity
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := loadState(tx)
		if err != nil {
			return err
		}
		if caller != st.Admin {
			return ErrNotAdmin
		}
		if amount > st.AccruedFees {
			return fmt.Errorf("%w: got %d, withdrawable %d", ErrExceedsWithdrawable, amount, st.AccruedFees)
		}
		st.AccruedFees -= amount
		if err := tx.Save(st).Error; err != nil {
			return fmt.Errorf("save engine state: %w", err)
		}
		if err := e.guard.do(func() error {
			return e.gateway.Credit(ctx, destination, amount)
		}); err != nil {
			if errors.Is(err, ErrReentrancy) {
				return err
			}
			return fmt.Errorf("%w: withdrawal to %s: %w", ErrTransferFailed, destination, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.log.Info().
		Str("destination", destination).
		Int64("amount_cents", amount).
		Msg("fees withdrawn")
	return nil
}

// finishSession handles post-commit bookkeeping shared by the billed
// settlement paths.
func (e *Engine) finishSession(s *Settlement) {
	e.log.Info().
		Int64("spot", s.SpotID).
		Str("holder", s.Holder).
		Str("outcome", string(s.Outcome)).
		Int64("end_at", s.EndAt).
		Int64("billed_minutes", s.BilledMinutes).
		Int64("fee_cents", s.Fee).
		Int64("refund_cents", s.Refund).
		Msg("session settled")
	e.metrics.Settlements.Inc()
	e.metrics.FeesAccrued.Add(float64(s.Fee))
	e.metrics.LockedDeposits.Sub(float64(s.Fee + s.Refund))
	e.emitFreed(s.SpotID)
}

func (e *Engine) emitFreed(spotID int64) {
	if e.freed != nil {
		e.freed(spotID)
	}
}
