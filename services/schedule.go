package services

import (
	"context"
	"time"

	"github.com/adhocore/gronx"
)

// Schedule decides when the next scan cycle starts.
type Schedule interface {
	Next(after time.Time) (time.Time, error)
}

// IntervalSchedule starts a cycle a fixed interval after the previous one ended.
type IntervalSchedule struct {
	Interval time.Duration
}

func (s IntervalSchedule) Next(after time.Time) (time.Time, error) {
	return after.Add(s.Interval), nil
}

// CronSchedule starts a cycle at the next tick of a cron expression.
type CronSchedule struct {
	Expr string
}

func (s CronSchedule) Next(after time.Time) (time.Time, error) {
	return gronx.NextTickAfter(s.Expr, after, false)
}

// NewSchedule returns a CronSchedule when expr is a valid cron expression and
// an IntervalSchedule otherwise.
func NewSchedule(expr string, interval time.Duration) Schedule {
	if expr != "" && gronx.IsValid(expr) {
		return CronSchedule{Expr: expr}
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return IntervalSchedule{Interval: interval}
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
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
