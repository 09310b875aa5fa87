package webhook

import (
	"sync"

	"golang.org/x/time/rate"
)

// senderLimiter throttles inbound messages per sender address so one noisy
// sender cannot starve the dispatcher.
type senderLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newSenderLimiter(perSecond float64, burst int) *senderLimiter {
	return &senderLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow reports whether a message from sender may be processed now.
func (s *senderLimiter) Allow(sender string) bool {
	s.mu.Lock()
	l, ok := s.limiters[sender]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.limiters[sender] = l
	}
	s.mu.Unlock()

	return l.Allow()
}
