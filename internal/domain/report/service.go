package report

import (
	"context"
	"io"
	"time"
)

// ReportService runs analyses over uploaded punch files and manages the
// stored reports.
type ReportService interface {
	// Analysis
	Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResponse, error)
	ListEmployees(ctx context.Context, file UploadedFile) (EmployeesResponse, error)
	DetectRestDays(ctx context.Context, file UploadedFile) (RestDaysResponse, error)

	// Stored reports
	GetReport(ctx context.Context, id string) (ReportResponse, error)
	DownloadReport(ctx context.Context, id string) (io.ReadCloser, string, error)
	PurgeReports(ctx context.Context, olderThan time.Duration) (int, error)

	// Corrections
	ApplyModifications(ctx context.Context, req ModificationRequest) (ModificationResponse, error)
	ListModifications(ctx context.Context, employee string) ([]ModificationHistoryEntry, error)
}
