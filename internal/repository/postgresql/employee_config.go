package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
	"github.com/jackc/pgx/v5"
)

type employeeConfigRepositoryImpl struct {
	db database.Conn
}

func NewEmployeeConfigRepository(db database.Conn) presence.EmployeeConfigRepository {
	return &employeeConfigRepositoryImpl{db: db}
}

const employeeConfigColumns = `employee, rest_days, contract_end, updated_at`

func scanEmployeeConfig(row pgx.Row) (presence.EmployeeConfig, error) {
	var (
		cfg         presence.EmployeeConfig
		restDays    []int32
		contractEnd *time.Time
	)
	if err := row.Scan(&cfg.Employee, &restDays, &contractEnd, &cfg.UpdatedAt); err != nil {
		return presence.EmployeeConfig{}, err
	}

	cfg.RestDays = make([]time.Weekday, 0, len(restDays))
	for _, idx := range restDays {
		wd, err := utils.WeekdayFromMondayIndex(int(idx))
		if err != nil {
			return presence.EmployeeConfig{}, fmt.Errorf("employee %s: %w", cfg.Employee, err)
		}
		cfg.RestDays = append(cfg.RestDays, wd)
	}
	cfg.ContractEnd = contractEnd
	return cfg, nil
}

// Upsert implements presence.EmployeeConfigRepository.
func (r *employeeConfigRepositoryImpl) Upsert(ctx context.Context, cfg presence.EmployeeConfig) (presence.EmployeeConfig, error) {
	q := GetQuerier(ctx, r.db)

	restDays := make([]int32, 0, len(cfg.RestDays))
	for _, idx := range cfg.RestDayIndexes() {
		restDays = append(restDays, int32(idx))
	}

	query := `
		INSERT INTO employee_configs (employee, rest_days, contract_end, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (lower(employee)) DO UPDATE
		SET employee = EXCLUDED.employee,
			rest_days = EXCLUDED.rest_days,
			contract_end = EXCLUDED.contract_end,
			updated_at = NOW()
		RETURNING ` + employeeConfigColumns

	saved, err := scanEmployeeConfig(q.QueryRow(ctx, query, cfg.Employee, restDays, cfg.ContractEnd))
	if err != nil {
		return presence.EmployeeConfig{}, fmt.Errorf("upsert employee config: %w", err)
	}
	return saved, nil
}

// GetByEmployee implements presence.EmployeeConfigRepository.
func (r *employeeConfigRepositoryImpl) GetByEmployee(ctx context.Context, employee string) (presence.EmployeeConfig, error) {
	q := GetQuerier(ctx, r.db)
	query := `
		SELECT ` + employeeConfigColumns + `
		FROM employee_configs
		WHERE lower(employee) = lower($1)
	`
	cfg, err := scanEmployeeConfig(q.QueryRow(ctx, query, employee))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return presence.EmployeeConfig{}, presence.ErrConfigNotFound
		}
		return presence.EmployeeConfig{}, err
	}
	return cfg, nil
}

// List implements presence.EmployeeConfigRepository.
func (r *employeeConfigRepositoryImpl) List(ctx context.Context) ([]presence.EmployeeConfig, error) {
	q := GetQuerier(ctx, r.db)
	query := `
		SELECT ` + employeeConfigColumns + `
		FROM employee_configs
		ORDER BY employee
	`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []presence.EmployeeConfig
	for rows.Next() {
		cfg, err := scanEmployeeConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}
