package model

import "time"

// SessionOutcome names the path on which a session ended.
type SessionOutcome string

const (
	OutcomeSettled    SessionOutcome = "settled"     // oracle reported the spot free
	OutcomeCancelled  SessionOutcome = "cancelled"   // check-in expired and was cancelled
	OutcomeForceReset SessionOutcome = "force_reset" // admin override, full refund, no billing
	OutcomeForceEnd   SessionOutcome = "force_end"   // admin override, billed settlement
)

// SessionRecord is the append-only history of ended sessions (hot state
// lives in Spot). One record is written by every path that returns a spot
// to free.
type SessionRecord struct {
	ID            int64          `gorm:"autoIncrement;primaryKey" json:"id"`
	SpotID        int64          `gorm:"index;not null" json:"spot_id"`
	Holder        string         `gorm:"size:128;not null" json:"holder"`
	Outcome       SessionOutcome `gorm:"size:16;not null" json:"outcome"`
	PriorState    SpotState      `gorm:"size:16;not null" json:"prior_state"`
	CheckInAt     int64          `gorm:"not null" json:"check_in_at"`
	StartAt       int64          `gorm:"not null" json:"start_at"` // 0 if never occupied
	EndAt         int64          `gorm:"not null" json:"end_at"`
	BilledMinutes int64          `gorm:"not null" json:"billed_minutes"`
	Fee           int64          `gorm:"not null" json:"fee_cents"`
	Refund        int64          `gorm:"not null" json:"refund_cents"`
	CreatedAt     time.Time      `json:"created_at"`
}
