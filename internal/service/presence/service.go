package presence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/jackc/pgx/v5/pgconn"
)

type presenceServiceImpl struct {
	configRepo  presence.EmployeeConfigRepository
	holidayRepo presence.HolidayRepository
	leaveRepo   presence.LeavePeriodRepository
}

func NewPresenceService(
	configRepo presence.EmployeeConfigRepository,
	holidayRepo presence.HolidayRepository,
	leaveRepo presence.LeavePeriodRepository,
) presence.PresenceService {
	return &presenceServiceImpl{
		configRepo:  configRepo,
		holidayRepo: holidayRepo,
		leaveRepo:   leaveRepo,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ==================== EMPLOYEE CONFIGURATION ====================

func (s *presenceServiceImpl) UpdateEmployeeConfig(ctx context.Context, req presence.UpdateEmployeeConfigRequest) (presence.EmployeeConfigResponse, error) {
	if err := req.Validate(); err != nil {
		return presence.EmployeeConfigResponse{}, err
	}

	saved, err := s.configRepo.Upsert(ctx, req.ToConfig())
	if err != nil {
		return presence.EmployeeConfigResponse{}, fmt.Errorf("failed to save employee configuration: %w", err)
	}
	return presence.NewEmployeeConfigResponse(saved), nil
}

func (s *presenceServiceImpl) GetEmployeeConfig(ctx context.Context, employee string) (presence.EmployeeConfigResponse, error) {
	employee = strings.TrimSpace(employee)
	if employee == "" {
		return presence.EmployeeConfigResponse{}, presence.ErrEmployeeRequired
	}

	cfg, err := s.configRepo.GetByEmployee(ctx, employee)
	if err != nil {
		return presence.EmployeeConfigResponse{}, err
	}
	return presence.NewEmployeeConfigResponse(cfg), nil
}

// ==================== HOLIDAYS ====================

func (s *presenceServiceImpl) CreateHoliday(ctx context.Context, req presence.CreateHolidayRequest) (presence.HolidayResponse, error) {
	if err := req.Validate(); err != nil {
		return presence.HolidayResponse{}, err
	}
	holidays, err := (&presence.AnalyzeParams{Holidays: []string{req.Date}}).ParseHolidays()
	if err != nil {
		return presence.HolidayResponse{}, err
	}
	h := holidays[0]
	h.Name = strings.TrimSpace(req.Name)

	created, err := s.holidayRepo.Create(ctx, h)
	if err != nil {
		if isUniqueViolation(err) {
			return presence.HolidayResponse{}, presence.ErrHolidayExists
		}
		return presence.HolidayResponse{}, fmt.Errorf("failed to create holiday: %w", err)
	}
	return presence.NewHolidayResponse(created), nil
}

func (s *presenceServiceImpl) ListHolidays(ctx context.Context, from, to *time.Time) ([]presence.HolidayResponse, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, presence.ErrInvalidPeriod
	}

	holidays, err := s.holidayRepo.List(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}

	resp := make([]presence.HolidayResponse, 0, len(holidays))
	for _, h := range holidays {
		resp = append(resp, presence.NewHolidayResponse(h))
	}
	return resp, nil
}

// ==================== LEAVE PERIODS ====================

func (s *presenceServiceImpl) CreateLeavePeriod(ctx context.Context, req presence.CreateLeavePeriodRequest) (presence.LeavePeriodResponse, error) {
	if err := req.Validate(); err != nil {
		return presence.LeavePeriodResponse{}, err
	}
	lp, err := req.ToLeavePeriod()
	if err != nil {
		return presence.LeavePeriodResponse{}, err
	}

	created, err := s.leaveRepo.Create(ctx, lp)
	if err != nil {
		if isUniqueViolation(err) {
			return presence.LeavePeriodResponse{}, presence.ErrLeavePeriodExists
		}
		return presence.LeavePeriodResponse{}, fmt.Errorf("failed to create leave period: %w", err)
	}
	return presence.NewLeavePeriodResponse(created), nil
}

func (s *presenceServiceImpl) ListLeavePeriods(ctx context.Context, filter presence.LeavePeriodFilter) ([]presence.LeavePeriodResponse, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, presence.ErrInvalidPeriod
	}
	filter.Employee = strings.TrimSpace(filter.Employee)

	periods, err := s.leaveRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave periods: %w", err)
	}

	resp := make([]presence.LeavePeriodResponse, 0, len(periods))
	for _, lp := range periods {
		resp = append(resp, presence.NewLeavePeriodResponse(lp))
	}
	return resp, nil
}

// ==================== RUN INPUTS ====================

// LoadRunInputs reads every stored input of a run. With a nil period all
// holidays and leave periods are returned.
func (s *presenceServiceImpl) LoadRunInputs(ctx context.Context, period *presence.Period) (presence.StoredInputs, error) {
	var from, to *time.Time
	if period != nil {
		from, to = &period.Start, &period.End
	}

	configs, err := s.configRepo.List(ctx)
	if err != nil {
		return presence.StoredInputs{}, fmt.Errorf("failed to load employee configurations: %w", err)
	}
	holidays, err := s.holidayRepo.List(ctx, from, to)
	if err != nil {
		return presence.StoredInputs{}, fmt.Errorf("failed to load holidays: %w", err)
	}
	leaves, err := s.leaveRepo.List(ctx, presence.LeavePeriodFilter{From: from, To: to})
	if err != nil {
		return presence.StoredInputs{}, fmt.Errorf("failed to load leave periods: %w", err)
	}

	return presence.StoredInputs{Configs: configs, Holidays: holidays, LeavePeriods: leaves}, nil
}
