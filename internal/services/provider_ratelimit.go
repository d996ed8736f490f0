package services

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// ProviderRateLimiter throttles calls to calendar/task providers with a
// global limiter and one limiter per user
type ProviderRateLimiter struct {
	globalLimiter   *rate.Limiter
	perUserLimiters *sync.Map // map[string]*rate.Limiter
	perUserRate     rate.Limit
}

// NewProviderRateLimiter creates a limiter. Each user gets half the global rate.
func NewProviderRateLimiter(globalRate float64) *ProviderRateLimiter {
	burst := int(globalRate * 2)
	if burst < 1 {
		burst = 1
	}
	return &ProviderRateLimiter{
		globalLimiter:   rate.NewLimiter(rate.Limit(globalRate), burst),
		perUserLimiters: &sync.Map{},
		perUserRate:     rate.Limit(globalRate / 2),
	}
}

// Wait blocks until both the global and the user's limiter allow a call
func (rl *ProviderRateLimiter) Wait(ctx context.Context, userID string) error {
	if rl == nil {
		return nil
	}
	if err := rl.globalLimiter.Wait(ctx); err != nil {
		return err
	}
	return rl.userLimiter(userID).Wait(ctx)
}

func (rl *ProviderRateLimiter) userLimiter(userID string) *rate.Limiter {
	if limiter, ok := rl.perUserLimiters.Load(userID); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := rl.perUserLimiters.LoadOrStore(userID, rate.NewLimiter(rl.perUserRate, 2))
	return limiter.(*rate.Limiter)
}
