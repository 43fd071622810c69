package engine

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"parking-escrow-backend/internal/model"
)

// updateState runs an admin-gated mutation of the singleton state row.
func (e *Engine) updateState(ctx context.Context, caller string, mutate func(st *model.EngineState) error) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := loadState(tx)
		if err != nil {
			return err
		}
		if caller != st.Admin {
			return ErrNotAdmin
		}
		if err := mutate(st); err != nil {
			return err
		}
		if err := tx.Save(st).Error; err != nil {
			return fmt.Errorf("save engine state: %w", err)
		}
		return nil
	})
}

// SetOracle reassigns the oracle identity. The oracle can never be the
// empty identity.
func (e *Engine) SetOracle(ctx context.Context, caller, identity string) error {
	if identity == "" {
		return ErrEmptyIdentity
	}
	return e.updateState(ctx, caller, func(st *model.EngineState) error {
		old := st.Oracle
		st.Oracle = identity
		e.log.Info().Str("field", "oracle").Str("old", old).Str("new", identity).Msg("configuration changed")
		return nil
	})
}

// SetAdmin hands the administrator role to a new identity.
func (e *Engine) SetAdmin(ctx context.Context, caller, identity string) error {
	if identity == "" {
		return ErrEmptyIdentity
	}
	return e.updateState(ctx, caller, func(st *model.EngineState) error {
		old := st.Admin
		st.Admin = identity
		e.log.Info().Str("field", "admin").Str("old", old).Str("new", identity).Msg("configuration changed")
		return nil
	})
}

// SetRatePerMinute changes the tariff. Sessions already occupied are
// billed at the rate in force when they settle.
func (e *Engine) SetRatePerMinute(ctx context.Context, caller string, cents int64) error {
	if cents <= 0 {
		return ErrInvalidAmount
	}
	return e.updateState(ctx, caller, func(st *model.EngineState) error {
		old := st.RatePerMinute
		st.RatePerMinute = cents
		e.log.Info().Str("field", "rate_per_minute").Int64("old", old).Int64("new", cents).Msg("configuration changed")
		return nil
	})
}

// SetMinDeposit changes the minimum deposit for new check-ins.
func (e *Engine) SetMinDeposit(ctx context.Context, caller string, cents int64) error {
	if cents <= 0 {
		return ErrInvalidAmount
	}
	return e.updateState(ctx, caller, func(st *model.EngineState) error {
		old := st.MinDeposit
		st.MinDeposit = cents
		e.log.Info().Str("field", "min_deposit").Int64("old", old).Int64("new", cents).Msg("configuration changed")
		return nil
	})
}

// SetCheckInTimeout changes the check-in window, rejecting values below
// the sane floor.
func (e *Engine) SetCheckInTimeout(ctx context.Context, caller string, seconds int64) error {
	if seconds < MinCheckInTimeout {
		return ErrTimeoutTooShort
	}
	return e.updateState(ctx, caller, func(st *model.EngineState) error {
		old := st.CheckInTimeout
		st.CheckInTimeout = seconds
		e.log.Info().Str("field", "checkin_timeout").Int64("old", old).Int64("new", seconds).Msg("configuration changed")
		return nil
	})
}

// Pause blocks check-ins, occupancy reports and cancellations. The
// administrative override paths stay available so stuck sessions can be
// resolved while paused.
func (e *Engine) Pause(ctx context.Context, caller string) error {
	return e.updateState(ctx, caller, func(st *model.EngineState) error {
		st.Paused = true
		e.log.Warn().Msg("engine paused")
		return nil
	})
}

// Resume lifts a pause.
func (e *Engine) Resume(ctx context.Context, caller string) error {
	return e.updateState(ctx, caller, func(st *model.EngineState) error {
		st.Paused = false
		e.log.Info().Msg("engine resumed")
		return nil
	})
}
