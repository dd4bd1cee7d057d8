package domain

import "time"

const (
	RateLimit  = 20
	RateWindow = 10 * time.Second
)

// CheckRateLimit applies a sliding window per participant. On success the
// attempt at now is recorded in the returned room.
func (r Room) CheckRateLimit(id ParticipantID, now time.Time) (Room, error) {
	windowStart := now.Add(-RateWindow)

	attempts := r.rateLog[id]
	fresh := make([]time.Time, 0, len(attempts)+1)
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= RateLimit {
		return r, ErrRateLimited
	}

	next := r.clone()
	next.rateLog[id] = append(fresh, now)
	return next, nil
}

// RecentActions returns how many attempts of id are still inside the window at now.
func (r Room) RecentActions(id ParticipantID, now time.Time) int {
	windowStart := now.Add(-RateWindow)
	n := 0
	for _, t := range r.rateLog[id] {
		if t.After(windowStart) {
			n++
		}
	}
	return n
}
