package scheduler

import (
	"fmt"
	"time"
)

// Schedule decides when a job first fires and how often it repeats.
type Schedule interface {
	// Next returns the delay from now until the first run.
	Next(now time.Time) time.Duration
	// Period is the delay between subsequent runs.
	Period() time.Duration
	String() string
}

type every struct {
	d time.Duration
}

// Every fires after d and then every d.
func Every(d time.Duration) (Schedule, error) {
	if d <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", d)
	}
	return every{d: d}, nil
}

func (e every) Next(time.Time) time.Duration { return e.d }
func (e every) Period() time.Duration        { return e.d }
func (e every) String() string               { return "every " + e.d.String() }

type dailyAt struct {
	hour, minute int
	loc          *time.Location
}

// DailyAt fires at the next hh:mm wall-clock time in loc and then every 24h.
func DailyAt(clock string, loc *time.Location) (Schedule, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return nil, fmt.Errorf("invalid clock time %q: %w", clock, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return dailyAt{hour: t.Hour(), minute: t.Minute(), loc: loc}, nil
}

func (d dailyAt) Next(now time.Time) time.Duration {
	local := now.In(d.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func (d dailyAt) Period() time.Duration { return 24 * time.Hour }

func (d dailyAt) String() string {
	return fmt.Sprintf("daily at %02d:%02d %s", d.hour, d.minute, d.loc)
}
