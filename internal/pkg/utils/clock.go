package utils

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dayLength = 24 * time.Hour

// Clock is a wall-clock time of day, stored as the offset from midnight.
type Clock time.Duration

// NewClock builds a Clock from hour, minute and second.
func NewClock(hour, minute, second int) Clock {
	return Clock(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

// ClockOf keeps the HH:MM:SS part of t, dropping date and zone.
func ClockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute(), t.Second())
}

// ParseClock parses "HH:MM" or "HH:MM:SS".
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if len(s) == 5 {
		s += ":00"
	}
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return ClockOf(t), nil
}

// MustParseClock is ParseClock for constants.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Hour() int   { return int(time.Duration(c) / time.Hour) }
func (c Clock) Minute() int { return int(time.Duration(c)%time.Hour) / int(time.Minute) }
func (c Clock) Second() int { return int(time.Duration(c)%time.Minute) / int(time.Second) }

func (c Clock) Before(other Clock) bool { return c < other }
func (c Clock) After(other Clock) bool  { return c > other }

// Within reports whether c lies in the closed window [from, to].
func (c Clock) Within(from, to Clock) bool {
	return c >= from && c <= to
}

// On anchors the clock on the calendar day of date.
func (c Clock) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location()).Add(time.Duration(c))
}

// Ptr returns a pointer to a copy of c.
func (c Clock) Ptr() *Clock {
	return &c
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second())
}

// TimeDiff returns the absolute duration between two times of day.
func TimeDiff(a, b Clock) time.Duration {
	if a > b {
		return time.Duration(a - b)
	}
	return time.Duration(b - a)
}

// MarshalText encodes the clock as "HH:MM:SS".
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return c.UnmarshalText([]byte(s))
}

// Value sends "HH:MM:SS" so Postgres TIME columns accept it.
func (c Clock) Value() (driver.Value, error) {
	return c.String(), nil
}

// Scan accepts time.Time or "HH:MM[:SS]" strings.
func (c *Clock) Scan(v any) error {
	switch x := v.(type) {
	case time.Time:
		*c = ClockOf(x)
		return nil
	case []byte:
		return c.UnmarshalText(x)
	case string:
		return c.UnmarshalText([]byte(x))
	case nil:
		*c = 0
		return nil
	default:
		return fmt.Errorf("clock: unsupported Scan type %T", v)
	}
}

// FormatDuration renders d as "HH:MM". Hours are not wrapped at 24 and
// negative or zero durations render as "00:00".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "00:00"
	}
	totalMinutes := int64(d / time.Minute)
	return fmt.Sprintf("%02d:%02d", totalMinutes/60, totalMinutes%60)
}

// ParseDuration accepts either "HH:MM" or a Go duration string ("45m").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		c, err := ParseClock(s)
		if err != nil {
			return 0, err
		}
		return time.Duration(c), nil
	}
	return time.ParseDuration(s)
}

// ==============================
// Dates
// ==============================

const DateLayout = "2006-01-02"

// DateOf returns the calendar day of t as midnight UTC. Date keys are
// always built with DateOf so map lookups and comparisons agree.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate builds a midnight UTC date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// DaysBetween returns every calendar day in [from, to].
func DaysBetween(from, to time.Time) []time.Time {
	from, to = DateOf(from), DateOf(to)
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// InclusiveDays counts the days of [from, to].
func InclusiveDays(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from))/dayLength) + 1
}

// StartOfMonth and EndOfMonth bound a calendar month.
func StartOfMonth(year int, month time.Month) time.Time {
	return NewDate(year, month, 1)
}

func EndOfMonth(year int, month time.Month) time.Time {
	return NewDate(year, month+1, 1).AddDate(0, 0, -1)
}

// MondayIndex numbers weekdays Monday=0 .. Sunday=6, the convention used by
// punch-clock exports and by the API.
func MondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// WeekdayFromMondayIndex is the inverse of MondayIndex.
func WeekdayFromMondayIndex(i int) (time.Weekday, error) {
	if i < 0 || i > 6 {
		return 0, fmt.Errorf("weekday index %d out of range 0-6", i)
	}
	return time.Weekday((i + 1) % 7), nil
}
