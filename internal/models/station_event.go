package models

import "time"

// Event types recorded by the station.
const (
	EventScaleError = "SCALE_ERROR" // scale returned no reading for a tick
	EventFallback   = "FALLBACK"    // validated read fell back to a remembered value
	EventSinkError  = "SINK_ERROR"  // persistence or upload failure
	EventReboot     = "REBOOT"      // fleet recovery triggered
)

// StationEvent is a single log entry.
type StationEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // SCALE_ERROR | FALLBACK | SINK_ERROR | REBOOT
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
