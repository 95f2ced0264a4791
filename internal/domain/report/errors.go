package report

import "errors"

var (
	ErrReportNotFound         = errors.New("report not found")
	ErrReportFileMissing      = errors.New("report workbook is no longer available")
	ErrInvalidModification    = errors.New("invalid modification")
	ErrRowNotFound            = errors.New("no ledger row for this employee and date")
	ErrUnsupportedFile        = errors.New("unsupported file type: only xls, xlsx and csv are accepted")
	ErrFileTooLarge           = errors.New("uploaded file is too large")
	ErrNoEvents               = errors.New("no punch events found in file")
	ErrReportGenerationFailed = errors.New("failed to generate report")
)
