package presence

import (
	"context"
	"time"
)

// PresenceService manages the stored calendars and employee settings a report
// run is configured from.
type PresenceService interface {
	// Employee configuration
	UpdateEmployeeConfig(ctx context.Context, req UpdateEmployeeConfigRequest) (EmployeeConfigResponse, error)
	GetEmployeeConfig(ctx context.Context, employee string) (EmployeeConfigResponse, error)
	// Holidays
	CreateHoliday(ctx context.Context, req CreateHolidayRequest) (HolidayResponse, error)
	ListHolidays(ctx context.Context, from, to *time.Time) ([]HolidayResponse, error)
	// Leave
	CreateLeavePeriod(ctx context.Context, req CreateLeavePeriodRequest) (LeavePeriodResponse, error)
	ListLeavePeriods(ctx context.Context, filter LeavePeriodFilter) ([]LeavePeriodResponse, error)
	// Run inputs
	LoadRunInputs(ctx context.Context, period *Period) (StoredInputs, error)
}

// StoredInputs is everything persisted that feeds a report run.
type StoredInputs struct {
	Configs      []EmployeeConfig
	Holidays     []Holiday
	LeavePeriods []LeavePeriod
}
