package services

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// RotationScheduler throttles summary recomputation per user.
// A stamp lives in the cache for one interval; the janitor drops it after
// that. Checks are lazy and compare against the caller's clock.
type RotationScheduler struct {
	interval time.Duration
	stamps   *cache.Cache
}

// NewRotationScheduler creates a scheduler with the given minimum interval
func NewRotationScheduler(interval time.Duration) *RotationScheduler {
	return &RotationScheduler{
		interval: interval,
		stamps:   cache.New(interval, 2*interval),
	}
}

// Interval returns the configured rotation interval
func (r *RotationScheduler) Interval() time.Duration {
	return r.interval
}

// Due reports whether more than one interval has passed since the last rotation
func (r *RotationScheduler) Due(userID string, now time.Time) bool {
	last, found := r.LastRotation(userID)
	if !found {
		return true
	}
	return now.Sub(last) > r.interval
}

// MarkRotated stamps the rotation time for a user
func (r *RotationScheduler) MarkRotated(userID string, at time.Time) {
	r.stamps.Set(userID, at, cache.DefaultExpiration)
}

// LastRotation returns the last rotation time if it is still within the interval
func (r *RotationScheduler) LastRotation(userID string) (time.Time, bool) {
	value, found := r.stamps.Get(userID)
	if !found {
		return time.Time{}, false
	}
	at, ok := value.(time.Time)
	return at, ok
}

// Forget drops a user's stamp (used when the user's record is swept)
func (r *RotationScheduler) Forget(userID string) {
	r.stamps.Delete(userID)
}
