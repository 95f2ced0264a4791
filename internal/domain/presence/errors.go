package presence

import (
	"errors"
	"fmt"
)

// Presence domain errors
var (
	// Input errors
	ErrMalformedInput   = errors.New("malformed input")
	ErrUnknownLeaveType = errors.New("unknown leave type")
	ErrInvalidPeriod    = errors.New("invalid period: end before start")

	// Evaluation errors
	ErrInvalidRecord = errors.New("workday record is missing employee or date")

	// Configuration errors
	ErrInvalidRules      = errors.New("invalid rule configuration")
	ErrEmployeeRequired  = errors.New("employee name is required")
	ErrConfigNotFound    = errors.New("employee configuration not found")
	ErrHolidayExists     = errors.New("holiday already registered for this date")
	ErrLeavePeriodExists = errors.New("leave period already registered")
)

// MalformedInputError pinpoints the record that made a batch unusable.
type MalformedInputError struct {
	Source string // "event", "holiday", "leave_period", file name...
	Row    int    // 1-based, 0 when unknown
	Field  string
	Value  string
	Err    error
}

func (e *MalformedInputError) Error() string {
	loc := e.Source
	if e.Row > 0 {
		loc = fmt.Sprintf("%s row %d", e.Source, e.Row)
	}
	msg := fmt.Sprintf("malformed input: %s: invalid %s %q", loc, e.Field, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedInputError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedInput}
	}
	return []error{ErrMalformedInput, e.Err}
}
