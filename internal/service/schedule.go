package service

import "time"

// slotInterval is the fleet-wide reading cadence. Slots sit on :00, :10,
// :20, … of every hour, so deployments and restarts stay aligned regardless
// of process start time.
const slotInterval = 10 * time.Minute

// nextSlot returns the smallest wall-clock time strictly greater than now,
// truncated to whole minutes, that is a multiple of 10 minutes within the
// hour. A poll landing exactly on a boundary schedules the next one.
func nextSlot(now time.Time) time.Time {
	n := now.Add(slotInterval).Truncate(time.Minute)
	return n.Add(-time.Duration(now.Minute()%10) * time.Minute)
}
