package model

import "time"

// EngineState is the singleton aggregate holding the role registry, the
// tariff parameters and the fund custody ledger. Exactly one row exists
// (id 1), seeded from the configuration on first startup.
//
// LockedDeposits is the sum of Deposit over all non-free spots.
// AccruedFees is the explicit withdrawable-fees counter: incremented only
// by settlement, decremented only by an authorized withdrawal.
type EngineState struct {
	ID             int64  `gorm:"primaryKey"`
	Admin          string `gorm:"size:128;not null"`
	Oracle         string `gorm:"size:128;not null"`
	RatePerMinute  int64  `gorm:"not null"` // cents per billed minute
	MinDeposit     int64  `gorm:"not null"` // cents
	CheckInTimeout int64  `gorm:"not null"` // seconds
	Paused         bool   `gorm:"not null;default:false"`
	LockedDeposits int64  `gorm:"not null;default:0"` // cents
	AccruedFees    int64  `gorm:"not null;default:0"` // cents
	UpdatedAt      time.Time
}

// EngineStateID is the fixed primary key of the singleton row.
const EngineStateID int64 = 1
