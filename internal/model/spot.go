package model

import "time"

// SpotState is the lifecycle state of a parking spot.
type SpotState string

const (
	SpotFree      SpotState = "free"
	SpotCheckedIn SpotState = "checked_in"
	SpotOccupied  SpotState = "occupied"
)

// Spot represents one reservable parking spot and its current session.
// A row is created lazily on first check-in and is reset to its zero
// session values whenever a session ends; the row itself persists.
//
// Invariant: State == SpotFree iff Holder == "" iff Deposit == 0 iff
// CheckInAt == 0 iff StartAt == 0.
type Spot struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	State     SpotState `gorm:"size:16;not null;default:'free'" json:"state"`
	Holder    string    `gorm:"size:128;not null;default:''" json:"holder"`
	Deposit   int64     `gorm:"not null;default:0" json:"deposit_cents"`
	CheckInAt int64     `gorm:"not null;default:0" json:"check_in_at"` // unix seconds, 0 when free
	StartAt   int64     `gorm:"not null;default:0" json:"start_at"`    // unix seconds, 0 unless occupied
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// ClearSession resets the spot to its free state, keeping the row.
func (s *Spot) ClearSession() {
	s.State = SpotFree
	s.Holder = ""
	s.Deposit = 0
	s.CheckInAt = 0
	s.StartAt = 0
}
