// internal/walker/poll.go
package walker

import (
	"context"
	"math/rand"
	"time"
)

// Poll is a bounded retry policy for wait-for-state loops. A loop stops
// after MaxRounds attempts or once MaxDuration has elapsed, whichever comes
// first. Each wait lasts Interval plus a random share of Jitter.
type Poll struct {
	Interval    time.Duration `yaml:"interval" json:"interval"`
	Jitter      time.Duration `yaml:"jitter" json:"jitter"`
	MaxRounds   int           `yaml:"max_rounds" json:"max_rounds"`
	MaxDuration time.Duration `yaml:"max_duration" json:"max_duration"`
}

// DefaultPoll waits up to a minute, checking about every 0.5 to 1 seconds
func DefaultPoll() Poll {
	return Poll{
		Interval:    500 * time.Millisecond,
		Jitter:      500 * time.Millisecond,
		MaxRounds:   120,
		MaxDuration: time.Minute,
	}
}

func (p Poll) isZero() bool {
	return p == Poll{}
}

// Until calls cond until it reports done, returns an error or the policy is
// exhausted. Exhaustion is not an error: Until returns false so callers can
// treat the page as unusable.
func (p Poll) Until(ctx context.Context, cond func(ctx context.Context) (bool, error)) (bool, error) {
	if p.MaxRounds <= 0 && p.MaxDuration <= 0 {
		p.MaxRounds = DefaultPoll().MaxRounds
	}
	start := time.Now()

	for round := 0; p.MaxRounds <= 0 || round < p.MaxRounds; round++ {
		done, err := cond(ctx)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
		if p.MaxDuration > 0 && time.Since(start) >= p.MaxDuration {
			break
		}
		if err := Sleep(ctx, p.wait()); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (p Poll) wait() time.Duration {
	d := p.Interval
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return d
}

// Sleep pauses for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
