package report

import (
	"context"
	"time"
)

// ReportRepository - interface for reports table
type ReportRepository interface {
	Create(ctx context.Context, r Report) (Report, error)
	GetByID(ctx context.Context, id string) (Report, error)
	UpdateFilePath(ctx context.Context, id, path string) error
	// DeleteOlderThan removes reports created before cutoff and returns them so
	// their files can be removed too.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]Report, error)
}

// ModificationRepository - interface for report_modifications table
type ModificationRepository interface {
	CreateBatch(ctx context.Context, mods []Modification) ([]Modification, error)
	ListByEmployee(ctx context.Context, employee string) ([]Modification, error)
	ListByReport(ctx context.Context, reportID string) ([]Modification, error)
}
