package engagement

import (
	"fmt"
	"strings"
	"time"

	"github.com/pawbank/allowance/internal/domain"
)

// ─── Period Boundaries ──────────────────────────────────────────────────────

// Calendar turns instants into comparable period keys: the local calendar
// day for daily quests, the local calendar week for weekly quests.
type Calendar struct {
	Location  *time.Location
	WeekStart time.Weekday
}

// DefaultCalendar uses the process time zone and Sunday-first weeks.
func DefaultCalendar() Calendar {
	return Calendar{Location: time.Local, WeekStart: time.Sunday}
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// DayKey returns the local calendar date of t, e.g. "2026-03-10".
func (c Calendar) DayKey(t time.Time) string {
	return t.In(c.location()).Format(time.DateOnly)
}

// WeekKey returns the local date on which t's week starts. Using the start
// date instead of a week number keeps weeks that span New Year intact.
func (c Calendar) WeekKey(t time.Time) string {
	loc := c.location()
	lt := t.In(loc)
	offset := (int(lt.Weekday()) - int(c.WeekStart) + 7) % 7
	start := time.Date(lt.Year(), lt.Month(), lt.Day()-offset, 0, 0, 0, 0, loc)
	return start.Format(time.DateOnly)
}

// PeriodKey returns the key of the period containing t for the frequency.
func (c Calendar) PeriodKey(f domain.Frequency, t time.Time) string {
	if f == domain.Weekly {
		return c.WeekKey(t)
	}
	return c.DayKey(t)
}

// Elapsed reports whether now lies in a different period than completedAt.
func (c Calendar) Elapsed(f domain.Frequency, completedAt, now time.Time) bool {
	return c.PeriodKey(f, completedAt) != c.PeriodKey(f, now)
}

// ParseWeekday parses a weekday name ("sunday", "Mon", ...).
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid weekday %q", s)
}
