package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type reportRepositoryImpl struct {
	db database.Conn
}

func NewReportRepository(db database.Conn) report.ReportRepository {
	return &reportRepositoryImpl{db: db}
}

const reportColumns = `id, parent_id, source_file, period_start, period_end, payload, file_path, created_at`

func scanReport(row pgx.Row) (report.Report, error) {
	var (
		r       report.Report
		payload []byte
	)
	if err := row.Scan(&r.ID, &r.ParentID, &r.SourceFile, &r.Period.Start, &r.Period.End,
		&payload, &r.FilePath, &r.CreatedAt); err != nil {
		return report.Report{}, err
	}
	if err := json.Unmarshal(payload, &r.Payload); err != nil {
		return report.Report{}, fmt.Errorf("decode report %s payload: %w", r.ID, err)
	}
	return r, nil
}

// Create implements report.ReportRepository.
func (rr *reportRepositoryImpl) Create(ctx context.Context, r report.Report) (report.Report, error) {
	q := GetQuerier(ctx, rr.db)

	id, err := uuid.NewV7()
	if err != nil {
		return report.Report{}, fmt.Errorf("generate report id: %w", err)
	}
	r.ID = id.String()

	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return report.Report{}, fmt.Errorf("encode report payload: %w", err)
	}

	query := `
		INSERT INTO reports (id, parent_id, source_file, period_start, period_end, payload, file_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`
	err = q.QueryRow(ctx, query, r.ID, r.ParentID, r.SourceFile, r.Period.Start, r.Period.End, payload, r.FilePath).
		Scan(&r.CreatedAt)
	if err != nil {
		return report.Report{}, fmt.Errorf("insert report: %w", err)
	}
	return r, nil
}

// GetByID implements report.ReportRepository.
func (rr *reportRepositoryImpl) GetByID(ctx context.Context, id string) (report.Report, error) {
	q := GetQuerier(ctx, rr.db)
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	r, err := scanReport(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return report.Report{}, report.ErrReportNotFound
		}
		return report.Report{}, err
	}
	return r, nil
}

// UpdateFilePath implements report.ReportRepository.
func (rr *reportRepositoryImpl) UpdateFilePath(ctx context.Context, id, path string) error {
	q := GetQuerier(ctx, rr.db)
	query := `UPDATE reports SET file_path = $2 WHERE id = $1`

	commandTag, err := q.Exec(ctx, query, id, path)
	if err != nil {
		return err
	}
	if commandTag.RowsAffected() == 0 {
		return report.ErrReportNotFound
	}
	return nil
}

// DeleteOlderThan implements report.ReportRepository. Modifications go with
// their report through the foreign key cascade.
func (rr *reportRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]report.Report, error) {
	q := GetQuerier(ctx, rr.db)
	query := `
		DELETE FROM reports
		WHERE created_at < $1
		RETURNING id, file_path, created_at
	`
	rows, err := q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deleted []report.Report
	for rows.Next() {
		var r report.Report
		if err := rows.Scan(&r.ID, &r.FilePath, &r.CreatedAt); err != nil {
			return nil, err
		}
		deleted = append(deleted, r)
	}
	return deleted, rows.Err()
}
