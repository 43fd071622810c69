package engine

import (
	"context"
	"fmt"

	"parking-escrow-backend/internal/model"
)

// Spot returns a spot's full record. Spots that were never checked in
// report the zero free record.
func (e *Engine) Spot(ctx context.Context, spotID int64) (*model.Spot, error) {
	sp, _, err := loadSpot(e.db.WithContext(ctx), spotID)
	return sp, err
}

// Spots lists every spot the engine has seen.
func (e *Engine) Spots(ctx context.Context) ([]model.Spot, error) {
	var spots []model.Spot
	if err := e.db.WithContext(ctx).Order("id").Find(&spots).Error; err != nil {
		return nil, fmt.Errorf("list spots: %w", err)
	}
	return spots, nil
}

// State returns the engine state including the custody counters.
func (e *Engine) State(ctx context.Context) (*model.EngineState, error) {
	return loadState(e.db.WithContext(ctx))
}

// Withdrawable reports the fees the administrator may withdraw. Deposits
// locked against active sessions are never part of it.
func (e *Engine) Withdrawable(ctx context.Context) (int64, error) {
	st, err := loadState(e.db.WithContext(ctx))
	if err != nil {
		return 0, err
	}
	return st.AccruedFees, nil
}

// History returns the most recent ended sessions of a spot.
func (e *Engine) History(ctx context.Context, spotID int64, limit int) ([]model.SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []model.SessionRecord
	if err := e.db.WithContext(ctx).
		Where("spot_id = ?", spotID).
		Order("id DESC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load history for spot %d: %w", spotID, err)
	}
	return recs, nil
}
