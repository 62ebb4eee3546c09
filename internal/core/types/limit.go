package types

import (
	"context"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

const DefaultRateBurst = 1 * humanize.MiByte

type RateLimiter struct {
	*rate.Limiter
}

// UnlimitedRateLimiter never blocks.
func UnlimitedRateLimiter() *RateLimiter {
	return &RateLimiter{rate.NewLimiter(rate.Inf, 0)}
}

// NewRateLimiter limits throughput to rateLimit bytes per second. A zero
// rate yields an unlimited limiter.
func NewRateLimiter(rateLimit Bytes) *RateLimiter {
	rateInt := uint64(rateLimit)
	if rateInt == 0 {
		return UnlimitedRateLimiter()
	}

	// Burst is at most a tenth of the rate so throttling stays smooth
	burstSize := int(DefaultRateBurst)
	if burstSize > int(rateInt/10) {
		burstSize = int(rateInt / 10)
	}
	if burstSize < 1 {
		burstSize = 1
	}

	return &RateLimiter{rate.NewLimiter(rate.Limit(rateInt), burstSize)}
}

// WaitBytes blocks until n bytes may pass. Requests larger than the burst are
// split so WaitN never rejects them.
func (l *RateLimiter) WaitBytes(ctx context.Context, n int) error {
	if l == nil || l.Limit() == rate.Inf {
		return ctx.Err()
	}
	burst := l.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := l.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
