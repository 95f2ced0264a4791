package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type modificationRepositoryImpl struct {
	db database.Conn
}

func NewModificationRepository(db database.Conn) report.ModificationRepository {
	return &modificationRepositoryImpl{db: db}
}

const modificationColumns = `id, report_id, employee, date, field, old_value, new_value, reason, created_at`

// CreateBatch implements report.ModificationRepository. All rows are sent in
// one batch; callers wanting atomicity wrap the call in WithTransaction.
func (r *modificationRepositoryImpl) CreateBatch(ctx context.Context, mods []report.Modification) ([]report.Modification, error) {
	if len(mods) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO report_modifications (id, report_id, employee, date, field, old_value, new_value, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`
	out := make([]report.Modification, len(mods))
	for i, m := range mods {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate modification id: %w", err)
		}
		m.ID = id.String()
		err = q.QueryRow(ctx, query, m.ID, m.ReportID, m.Employee, m.Date, string(m.Field), m.OldValue, m.NewValue, m.Reason).
			Scan(&m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert modification %d: %w", i+1, err)
		}
		out[i] = m
	}
	return out, nil
}

// ListByEmployee implements report.ModificationRepository.
func (r *modificationRepositoryImpl) ListByEmployee(ctx context.Context, employee string) ([]report.Modification, error) {
	q := GetQuerier(ctx, r.db)
	query := `
		SELECT ` + modificationColumns + `
		FROM report_modifications
		WHERE lower(employee) = lower($1)
		ORDER BY created_at, id
	`
	return r.list(ctx, q, query, employee)
}

// ListByReport implements report.ModificationRepository.
func (r *modificationRepositoryImpl) ListByReport(ctx context.Context, reportID string) ([]report.Modification, error) {
	q := GetQuerier(ctx, r.db)
	query := `
		SELECT ` + modificationColumns + `
		FROM report_modifications
		WHERE report_id = $1
		ORDER BY created_at, id
	`
	return r.list(ctx, q, query, reportID)
}

func (r *modificationRepositoryImpl) list(ctx context.Context, q database.Querier, query string, arg string) ([]report.Modification, error) {
	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mods []report.Modification
	for rows.Next() {
		m, err := scanModification(rows)
		if err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}

func scanModification(row pgx.Row) (report.Modification, error) {
	var (
		m     report.Modification
		field string
	)
	if err := row.Scan(&m.ID, &m.ReportID, &m.Employee, &m.Date, &field, &m.OldValue, &m.NewValue,
		&m.Reason, &m.CreatedAt); err != nil {
		return report.Modification{}, err
	}
	m.Field = report.Field(field)
	return m, nil
}
