package utils

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		input string
		want  Clock
		ok    bool
	}{
		{"08:30", NewClock(8, 30, 0), true},
		{"17:00:15", NewClock(17, 0, 15), true},
		{" 21:00 ", NewClock(21, 0, 0), true},
		{"25:00", 0, false},
		{"abc", 0, false},
	}
	for _, c := range cases {
		got, err := ParseClock(c.input)
		if c.ok && err != nil {
			t.Errorf("ParseClock(%q) returned error: %v", c.input, err)
			continue
		}
		if !c.ok {
			if err == nil {
				t.Errorf("ParseClock(%q) = %v, want error", c.input, got)
			}
			continue
		}
		if got != c.want {
			t.Errorf("ParseClock(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestTimeDiffIsDirectionAgnostic(t *testing.T) {
	a := NewClock(8, 30, 0)
	b := NewClock(9, 15, 0)
	if got := TimeDiff(a, b); got != 45*time.Minute {
		t.Errorf("TimeDiff(a, b) = %v, want 45m", got)
	}
	if got := TimeDiff(b, a); got != 45*time.Minute {
		t.Errorf("TimeDiff(b, a) = %v, want 45m", got)
	}
	if got := TimeDiff(a, a); got != 0 {
		t.Errorf("TimeDiff(a, a) = %v, want 0", got)
	}
}

func TestClockWithinIsInclusive(t *testing.T) {
	from, to := NewClock(11, 0, 0), NewClock(16, 0, 0)
	for _, c := range []Clock{from, to, NewClock(12, 0, 0)} {
		if !c.Within(from, to) {
			t.Errorf("%v should be within [%v, %v]", c, from, to)
		}
	}
	if NewClock(10, 59, 59).Within(from, to) {
		t.Errorf("10:59:59 should be outside the window")
	}
}

func TestClockOfDropsDate(t *testing.T) {
	ts := time.Date(2024, 3, 20, 14, 5, 9, 500, time.FixedZone("X", 3600))
	if got := ClockOf(ts); got != NewClock(14, 5, 9) {
		t.Errorf("ClockOf = %v, want 14:05:09", got)
	}
	if got := ClockOf(ts).String(); got != "14:05:09" {
		t.Errorf("String = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Minute, "00:00"},
		{75 * time.Minute, "01:15"},
		{8*time.Hour + 30*time.Minute, "08:30"},
		{30 * time.Hour, "30:00"},
		{59 * time.Second, "00:00"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.d); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	if d, err := ParseDuration("01:15"); err != nil || d != 75*time.Minute {
		t.Errorf("ParseDuration(01:15) = %v, %v", d, err)
	}
	if d, err := ParseDuration("45m"); err != nil || d != 45*time.Minute {
		t.Errorf("ParseDuration(45m) = %v, %v", d, err)
	}
	if _, err := ParseDuration("soon"); err == nil {
		t.Errorf("ParseDuration(soon) should fail")
	}
}

func TestMondayIndexRoundTrip(t *testing.T) {
	if MondayIndex(time.Monday) != 0 || MondayIndex(time.Sunday) != 6 || MondayIndex(time.Friday) != 4 {
		t.Fatalf("unexpected Monday-based numbering")
	}
	for i := 0; i <= 6; i++ {
		wd, err := WeekdayFromMondayIndex(i)
		if err != nil {
			t.Fatalf("WeekdayFromMondayIndex(%d) returned error: %v", i, err)
		}
		if MondayIndex(wd) != i {
			t.Errorf("round trip of %d gave %d", i, MondayIndex(wd))
		}
	}
	if _, err := WeekdayFromMondayIndex(7); err == nil {
		t.Errorf("index 7 should be rejected")
	}
}

func TestDaysBetweenAndMonthBounds(t *testing.T) {
	days := DaysBetween(NewDate(2024, 2, 27), NewDate(2024, 3, 2))
	if len(days) != 5 {
		t.Fatalf("expected 5 days, got %d", len(days))
	}
	if !EndOfMonth(2024, time.February).Equal(NewDate(2024, 2, 29)) {
		t.Errorf("leap-year February should end on the 29th")
	}
	if InclusiveDays(NewDate(2024, 3, 1), NewDate(2024, 3, 5)) != 5 {
		t.Errorf("InclusiveDays should count both ends")
	}
}
