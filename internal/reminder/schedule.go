// Package reminder schedules and sends the recurring prayer reminders of campaign subscribers.
package reminder

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Frequency string

const (
	Daily  Frequency = "daily"
	Weekly Frequency = "weekly"
)

var ErrInvalidSchedule = errors.New("invalid reminder schedule")

// Schedule is a subscriber's reminder preference.
type Schedule struct {
	Frequency      Frequency
	DaysOfWeek     []int // 0 = Sunday
	TimePreference string
	Timezone       string
}

// NextReminder returns the first instant at or after now, in UTC, that matches s
// in the subscriber's timezone. An unknown timezone falls back to UTC; weekly
// schedules without days behave as daily.
func NextReminder(s Schedule, now time.Time) (time.Time, error) {
	hour, minute, err := parseClock(s.TimePreference)
	if err != nil {
		return time.Time{}, err
	}

	dow := "*"
	var days []int
	if s.Frequency == Weekly && len(s.DaysOfWeek) > 0 {
		if dow, err = weekdays(s.DaysOfWeek); err != nil {
			return time.Time{}, err
		}
		days = s.DaysOfWeek
	} else if s.Frequency != Daily && s.Frequency != Weekly {
		return time.Time{}, fmt.Errorf("%w: frequency %q", ErrInvalidSchedule, s.Frequency)
	}

	loc := Location(s.Timezone)
	expr := fmt.Sprintf("CRON_TZ=%s %d %d * * %s", loc, minute, hour, dow)
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	// Next is strictly after its argument; step back a nanosecond to include now.
	next := sched.Next(now.Add(-time.Nanosecond))
	if gap, ok := gapOccurrence(loc, hour, minute, days, now, next); ok {
		next = gap
	}
	return next.UTC(), nil
}

// gapOccurrence finds a matching day before next whose wall time falls in a
// spring-forward gap. cron never fires on such a day, so the reminder goes out
// just after the jump instead (02:30 becomes 03:30 when clocks skip 02:00-03:00).
func gapOccurrence(loc *time.Location, hour, minute int, days []int, now, next time.Time) (time.Time, bool) {
	local := now.In(loc)
	for i := 0; i < 8; i++ {
		day := time.Date(local.Year(), local.Month(), local.Day()+i, 0, 0, 0, 0, loc)
		c := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
		if !next.IsZero() && !c.Before(next) {
			break
		}
		if c.Hour() == hour && c.Minute() == minute {
			continue
		}
		// Read the wall time with the offset in force before the jump, which
		// lands it the same distance past the gap.
		_, before := day.Zone()
		c = time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC).
			Add(-time.Duration(before) * time.Second).In(loc)
		if c.Before(now) || !onDay(days, c.Weekday()) {
			continue
		}
		return c, true
	}
	return time.Time{}, false
}

func onDay(days []int, wd time.Weekday) bool {
	if len(days) == 0 {
		return true
	}
	for _, d := range days {
		if d == int(wd) {
			return true
		}
	}
	return false
}

// Location loads an IANA zone, falling back to UTC.
func Location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseClock(v string) (int, int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: time %q", ErrInvalidSchedule, v)
	}
	if len(h) < 1 || len(h) > 2 || len(m) != 2 || !digits(h) || !digits(m) {
		return 0, 0, fmt.Errorf("%w: time %q", ErrInvalidSchedule, v)
	}
	hour, err1 := strconv.Atoi(h)
	minute, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: time %q", ErrInvalidSchedule, v)
	}
	return hour, minute, nil
}

func digits(v string) bool {
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func weekdays(days []int) (string, error) {
	seen := map[int]bool{}
	var uniq []int
	for _, d := range days {
		if d < 0 || d > 6 {
			return "", fmt.Errorf("%w: weekday %d", ErrInvalidSchedule, d)
		}
		if !seen[d] {
			seen[d] = true
			uniq = append(uniq, d)
		}
	}
	sort.Ints(uniq)

	parts := make([]string, len(uniq))
	for i, d := range uniq {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ","), nil
}
