package postgresql

import (
	"context"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/google/uuid"
)

type leavePeriodRepositoryImpl struct {
	db database.Conn
}

func NewLeavePeriodRepository(db database.Conn) presence.LeavePeriodRepository {
	return &leavePeriodRepositoryImpl{db: db}
}

// Create implements presence.LeavePeriodRepository.
func (r *leavePeriodRepositoryImpl) Create(ctx context.Context, lp presence.LeavePeriod) (presence.LeavePeriod, error) {
	q := GetQuerier(ctx, r.db)

	id, err := uuid.NewV7()
	if err != nil {
		return presence.LeavePeriod{}, fmt.Errorf("generate leave period id: %w", err)
	}
	lp.ID = id.String()

	query := `
		INSERT INTO leave_periods (id, employee, start_date, end_date, type, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	if _, err := q.Exec(ctx, query, lp.ID, lp.Employee, lp.Start, lp.End, string(lp.Type)); err != nil {
		return presence.LeavePeriod{}, err
	}
	return lp, nil
}

// List implements presence.LeavePeriodRepository. A period matches the date
// bounds when it overlaps them.
func (r *leavePeriodRepositoryImpl) List(ctx context.Context, filter presence.LeavePeriodFilter) ([]presence.LeavePeriod, error) {
	q := GetQuerier(ctx, r.db)

	var (
		conditions []string
		args       []interface{}
	)
	if filter.Employee != "" {
		args = append(args, filter.Employee)
		conditions = append(conditions, fmt.Sprintf("lower(employee) = lower($%d)", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("end_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d", len(args)))
	}

	query := `SELECT id, employee, start_date, end_date, type FROM leave_periods`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY employee, start_date"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []presence.LeavePeriod
	for rows.Next() {
		var (
			lp      presence.LeavePeriod
			rawType string
		)
		if err := rows.Scan(&lp.ID, &lp.Employee, &lp.Start, &lp.End, &rawType); err != nil {
			return nil, err
		}
		lt, err := presence.ParseLeaveType(rawType)
		if err != nil {
			return nil, fmt.Errorf("leave period %s: %w", lp.ID, err)
		}
		lp.Type = lt
		periods = append(periods, lp)
	}
	return periods, rows.Err()
}
