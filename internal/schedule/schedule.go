// Package schedule compiles a campaign's declarative schedule descriptor
// into a rule the scheduler can ask "is this campaign due at tick T".
package schedule

import (
	"fmt"
	"strconv"
	"time"

	"github.com/molevo/broadcast-backend/internal/model"
)

// Granularity of a scheduler tick.
type Granularity string

const (
	Minute Granularity = "minute"
	Hour   Granularity = "hour"
	Day    Granularity = "day"
)

// Tick is one evaluation point of the scheduler loop.
type Tick struct {
	At          time.Time
	Granularity Granularity
}

func (t Tick) DayOfMonth() int { return t.At.Day() }
func (t Tick) Month() int      { return int(t.At.Month()) }
func (t Tick) Year() int       { return t.At.Year() }

// TriggerRule decides whether a campaign fires at a given tick. lastRunAt is
// the campaign's last successful execution, nil if it never ran.
type TriggerRule interface {
	Due(tick Tick, lastRunAt *time.Time) bool
}

// Compile turns a schedule descriptor into a trigger rule. A missing or
// malformed descriptor compiles to a rule that never fires; the error tells
// the caller why, so the campaign can be skipped and logged instead of
// crashing the tick.
func Compile(sd *model.ScheduleDate) (TriggerRule, error) {
	if sd == nil {
		return neverRule{}, fmt.Errorf("schedule descriptor is missing")
	}

	switch sd.Type {
	case "minute":
		return everyRule{Minute}, nil
	case "hour":
		return everyRule{Hour}, nil
	case "day":
		return everyRule{Day}, nil
	case "month":
		if sd.Day < 1 || sd.Day > 31 {
			return neverRule{}, fmt.Errorf("month schedule has invalid day %d", sd.Day)
		}
		return monthlyRule{day: sd.Day}, nil
	case "year":
		if sd.Day < 1 || sd.Day > 31 {
			return neverRule{}, fmt.Errorf("year schedule has invalid day %d", sd.Day)
		}
		if sd.Month < 1 || sd.Month > 12 {
			return neverRule{}, fmt.Errorf("year schedule has invalid month %d", sd.Month)
		}
		return yearlyRule{day: sd.Day, month: sd.Month}, nil
	}

	// Numeric type means "every month on that day of month", evaluated on
	// the daily tick.
	if day, err := strconv.Atoi(sd.Type); err == nil {
		if day < 1 || day > 31 {
			return neverRule{}, fmt.Errorf("day-of-month schedule out of range: %d", day)
		}
		return dayOfMonthRule{day: day}, nil
	}

	return neverRule{}, fmt.Errorf("unknown schedule type %q", sd.Type)
}

type neverRule struct{}

func (neverRule) Due(Tick, *time.Time) bool { return false }

// everyRule fires on every tick of its granularity.
type everyRule struct {
	granularity Granularity
}

func (r everyRule) Due(tick Tick, _ *time.Time) bool {
	return tick.Granularity == r.granularity
}

// dayOfMonthRule fires on the daily tick when the day of month matches.
type dayOfMonthRule struct {
	day int
}

func (r dayOfMonthRule) Due(tick Tick, _ *time.Time) bool {
	return tick.Granularity == Day && tick.DayOfMonth() == r.day
}

// monthlyRule fires at most once per calendar month. The guard compares
// lastRunAt's month, not a wall-clock lock.
type monthlyRule struct {
	day int
}

func (r monthlyRule) Due(tick Tick, lastRunAt *time.Time) bool {
	if tick.Granularity != Day || tick.DayOfMonth() != r.day {
		return false
	}
	if lastRunAt == nil {
		return true
	}
	return int(lastRunAt.Month()) != tick.Month() || lastRunAt.Year() != tick.Year()
}

// yearlyRule fires at most once per calendar year, on a fixed month and day.
type yearlyRule struct {
	day   int
	month int
}

func (r yearlyRule) Due(tick Tick, lastRunAt *time.Time) bool {
	if tick.Granularity != Day || tick.DayOfMonth() != r.day || tick.Month() != r.month {
		return false
	}
	if lastRunAt == nil {
		return true
	}
	return lastRunAt.Year() != tick.Year()
}

// PeriodStart returns the start of the recurrence period containing now for
// the given descriptor. The dispatcher uses it to keep duplicate fires within
// one period idempotent per recipient. Manual campaigns have no period; the
// zero time is returned so the whole history counts.
func PeriodStart(sd *model.ScheduleDate, now time.Time) time.Time {
	if sd == nil {
		return time.Time{}
	}

	switch sd.Type {
	case "minute":
		return now.Truncate(time.Minute)
	case "hour":
		return now.Truncate(time.Hour)
	case "day":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case "month":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case "year":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	}

	if _, err := strconv.Atoi(sd.Type); err == nil {
		// day-of-month recurs monthly
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
	return time.Time{}
}
