package llm

import (
	"time"

	"golang.org/x/time/rate"
)

// newRateLimiter returns a token bucket allowing requestsPerMinute calls with
// a burst of the same size. Zero or negative means 60 per minute.
func newRateLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute)
}
