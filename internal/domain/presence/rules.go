package presence

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
)

// Rules holds every constant the rule engine reads. A single Rules value is
// shared, read-only, by all evaluations of a report run.
type Rules struct {
	// Calendar
	WorkingDays     []time.Weekday
	DefaultRestDays []time.Weekday

	// Schedule
	StandardStart    utils.Clock
	StandardEnd      utils.Clock
	NightThreshold   utils.Clock
	StandardDuration time.Duration
	StandardPause    time.Duration

	// Breaks
	PauseWindowStart    utils.Clock
	PauseWindowEnd      utils.Clock
	MissingBreakPenalty time.Duration
	OutOfWindowPenalty  time.Duration
	PauseTolerance      time.Duration
	ReducedPause        time.Duration

	// Lateness
	LateThreshold      time.Duration
	LargeLateThreshold time.Duration
	LatePenalty        time.Duration

	// Gap filling
	DefaultEntry utils.Clock
	DefaultExit  utils.Clock
}

// DefaultRules returns the organization's standard policy: Saturday to
// Thursday, 08:30-17:00 with a 45 minute break.
func DefaultRules() Rules {
	return Rules{
		WorkingDays: []time.Weekday{
			time.Saturday, time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		},
		DefaultRestDays: []time.Weekday{time.Friday, time.Saturday},

		StandardStart:    utils.NewClock(8, 30, 0),
		StandardEnd:      utils.NewClock(17, 0, 0),
		NightThreshold:   utils.NewClock(21, 0, 0),
		StandardDuration: 8*time.Hour + 30*time.Minute,
		StandardPause:    45 * time.Minute,

		PauseWindowStart:    utils.NewClock(11, 0, 0),
		PauseWindowEnd:      utils.NewClock(16, 0, 0),
		MissingBreakPenalty: 75 * time.Minute,
		OutOfWindowPenalty:  10 * time.Minute,
		PauseTolerance:      50 * time.Minute,
		ReducedPause:        15 * time.Minute,

		LateThreshold:      5 * time.Minute,
		LargeLateThreshold: 3 * time.Hour,
		LatePenalty:        15 * time.Minute,

		DefaultEntry: utils.NewClock(9, 30, 0),
		DefaultExit:  utils.NewClock(16, 0, 0),
	}
}

// IsWorkingDay reports whether wd belongs to the organization's calendar.
func (r Rules) IsWorkingDay(wd time.Weekday) bool {
	for _, d := range r.WorkingDays {
		if d == wd {
			return true
		}
	}
	return false
}

// Validate checks the relations the evaluator relies on.
func (r Rules) Validate() error {
	switch {
	case len(r.WorkingDays) == 0:
		return fmt.Errorf("%w: at least one working day is required", ErrInvalidRules)
	case !r.StandardStart.Before(r.StandardEnd):
		return fmt.Errorf("%w: standard start must be before standard end", ErrInvalidRules)
	case !r.PauseWindowStart.Before(r.PauseWindowEnd):
		return fmt.Errorf("%w: pause window start must be before its end", ErrInvalidRules)
	case r.StandardDuration <= 0:
		return fmt.Errorf("%w: standard duration must be positive", ErrInvalidRules)
	case r.StandardPause < 0 || r.ReducedPause < 0 || r.MissingBreakPenalty < 0 || r.OutOfWindowPenalty < 0:
		return fmt.Errorf("%w: pause durations must not be negative", ErrInvalidRules)
	case r.PauseTolerance < r.StandardPause:
		return fmt.Errorf("%w: pause tolerance must be at least the standard pause", ErrInvalidRules)
	case r.LateThreshold < 0 || r.LargeLateThreshold < r.LateThreshold:
		return fmt.Errorf("%w: late thresholds must be ordered and non-negative", ErrInvalidRules)
	}
	return nil
}
