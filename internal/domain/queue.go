package domain

import "time"

// ResolutionQueueEntry schedules venue resolution polling for one active
// event. NextCheckAt implements exponential backoff and doubles as the
// dedup gate between overlapping sweeps: a claimed entry has its NextCheckAt
// pushed into the future, so a second sweep will not pick it up.
type ResolutionQueueEntry struct {
	EventID     string     `json:"event_id"`
	Priority    int        `json:"priority"`
	CheckCount  int        `json:"check_count"`
	LastCheckAt *time.Time `json:"last_check_at,omitempty"`
	NextCheckAt time.Time  `json:"next_check_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

const (
	// BackoffBase is the polling interval after the first check.
	BackoffBase = 60 * time.Minute
	// BackoffCap bounds the exponential backoff.
	BackoffCap = 24 * time.Hour
)

// NextBackoff returns the delay before the next resolution check given how
// many checks have already happened: min(60 * 2^(checkCount-1) minutes, 24h).
func NextBackoff(checkCount int) time.Duration {
	if checkCount < 1 {
		checkCount = 1
	}
	d := BackoffBase
	for i := 1; i < checkCount; i++ {
		d *= 2
		if d >= BackoffCap {
			return BackoffCap
		}
	}
	if d > BackoffCap {
		return BackoffCap
	}
	return d
}
