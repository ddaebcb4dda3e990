// File: internal/scheduler/jitter.go
package scheduler

import (
	"context"
	"time"
)

// sleepJitter pauses for a random duration inside the range. Returns
// early with the context error on shutdown.
func (s *Scheduler) sleepJitter(ctx context.Context, r jitterRange) error {
	if r.max <= 0 {
		return ctx.Err()
	}
	d := r.min
	if r.max > r.min {
		d += time.Duration(s.randFloat() * float64(r.max-r.min))
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

// pickPublishSlot chooses a random workday slot within the coming week:
// Monday through Friday, on the hour between 09:00 and 17:00 local time.
func (s *Scheduler) pickPublishSlot(now time.Time) time.Time {
	for attempt := 0; attempt < 14; attempt++ {
		day := now.AddDate(0, 0, 1+s.randIntn(7))
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		hour := 9 + s.randIntn(9)
		return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, now.Location())
	}

	// Probability of landing here is dust, but stay deterministic: take
	// the next Monday at 09:00.
	day := now.AddDate(0, 0, 1)
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, now.Location())
}
