package models

import "time"

// WeightRecord is one synchronized snapshot of every configured scale,
// taken on a 10-minute wall-clock boundary.
type WeightRecord struct {
	ID      int       `json:"id"`
	TakenAt time.Time `json:"taken_at"` // truncated to the minute
	// Weights holds one slot per configured scale, in configured order,
	// kilograms. A nil slot means that scale has never produced a reading.
	Weights []*float64 `json:"weights"`
}
