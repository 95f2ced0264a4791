package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Malformed input carries the offending row and value
	var malformed *presence.MalformedInputError
	if errors.As(err, &malformed) {
		BadRequest(w, malformed.Error(), map[string]string{
			"source": malformed.Source,
			"field":  malformed.Field,
			"value":  malformed.Value,
		})
		return
	}

	switch {
	// Input errors
	case errors.Is(err, presence.ErrMalformedInput):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, report.ErrUnsupportedFile):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, presence.ErrInvalidPeriod):
		BadRequest(w, "End date must not be before start date", nil)
	case errors.Is(err, presence.ErrEmployeeRequired):
		BadRequest(w, "Employee is required", nil)
	case errors.Is(err, report.ErrInvalidModification):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, report.ErrFileTooLarge):
		PayloadTooLarge(w, "Uploaded file is too large")
	case errors.Is(err, report.ErrNoEvents):
		Unprocessable(w, "No punch events found in file")

	// Not found
	case errors.Is(err, report.ErrReportNotFound):
		NotFound(w, "Report not found")
	case errors.Is(err, report.ErrReportFileMissing):
		NotFound(w, "Report workbook is no longer available")
	case errors.Is(err, report.ErrRowNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, presence.ErrConfigNotFound):
		NotFound(w, "Employee configuration not found")

	// Conflicts
	case errors.Is(err, presence.ErrHolidayExists):
		Conflict(w, "Holiday already registered for this date")
	case errors.Is(err, presence.ErrLeavePeriodExists):
		Conflict(w, "Leave period already registered")

	// Default
	default:
		slog.Error("unhandled error", slog.String("error", err.Error()))
		InternalServerError(w, "An unexpected error occurred")
	}
}
