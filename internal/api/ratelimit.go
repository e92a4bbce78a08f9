package api

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sweepThreshold is the visitor count above which idle entries are evicted.
const sweepThreshold = 10000

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client IP. A bucket holds `requests`
// tokens and refills fully over `window`.
type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	window   time.Duration
	now      func() time.Time
}

// newIPLimiter returns nil when requests or window is not positive.
func newIPLimiter(requests int, window time.Duration) *ipLimiter {
	if requests <= 0 || window <= 0 {
		return nil
	}
	return &ipLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
		window:   window,
		now:      time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[ip]
	if !ok {
		if len(l.visitors) >= sweepThreshold {
			l.sweepLocked(now)
		}
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// retryAfterSeconds is the time one token takes to refill, rounded up.
func (l *ipLimiter) retryAfterSeconds() int {
	secs := int(math.Ceil(float64(l.window) / float64(l.burst) / float64(time.Second)))
	if secs < 1 {
		return 1
	}
	return secs
}

// sweepLocked drops visitors idle for a full window; their buckets are full again.
func (l *ipLimiter) sweepLocked(now time.Time) {
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) >= l.window {
			delete(l.visitors, ip)
		}
	}
}
