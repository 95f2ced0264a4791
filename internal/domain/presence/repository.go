package presence

import (
	"context"
	"time"
)

// EmployeeConfigRepository - interface for employee_configs table
type EmployeeConfigRepository interface {
	Upsert(ctx context.Context, cfg EmployeeConfig) (EmployeeConfig, error)
	GetByEmployee(ctx context.Context, employee string) (EmployeeConfig, error)
	List(ctx context.Context) ([]EmployeeConfig, error)
}

// HolidayRepository - interface for holidays table
type HolidayRepository interface {
	Create(ctx context.Context, holiday Holiday) (Holiday, error)
	List(ctx context.Context, from, to *time.Time) ([]Holiday, error)
}

// LeavePeriodRepository - interface for leave_periods table
type LeavePeriodRepository interface {
	Create(ctx context.Context, period LeavePeriod) (LeavePeriod, error)
	List(ctx context.Context, filter LeavePeriodFilter) ([]LeavePeriod, error)
}
