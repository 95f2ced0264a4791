package report

import (
	"fmt"
	"strings"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

// UploadedFile is a punch export received from a client.
type UploadedFile struct {
	Filename string
	Content  []byte
}

// ========================================
// ANALYSIS
// ========================================

type AnalyzeRequest struct {
	File   UploadedFile
	Params presence.AnalyzeParams
}

func (r *AnalyzeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.File.Filename) {
		errs.Add("file", "file is required")
	} else if len(r.File.Content) == 0 {
		errs.Add("file", "file is empty")
	}
	if err := r.Params.Validate(); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			errs = append(errs, verrs...)
		}
	}

	return errs.OrNil()
}

type AnalyzeResponse struct {
	ReportID    string                  `json:"report_id"`
	DownloadURL string                  `json:"download_url"`
	Report      presence.ReportResponse `json:"report"`
}

type ReportResponse struct {
	ID          string                  `json:"id"`
	ParentID    *string                 `json:"parent_id,omitempty"`
	SourceFile  string                  `json:"source_file"`
	CreatedAt   string                  `json:"created_at"`
	DownloadURL string                  `json:"download_url"`
	Report      presence.ReportResponse `json:"report"`
}

type EmployeesResponse struct {
	Employees []string `json:"employees"`
}

type RestDaysResponse struct {
	Suggestions []presence.RestDaySuggestion `json:"suggestions"`
}

// ========================================
// MODIFICATIONS
// ========================================

type ModificationInput struct {
	Field    string  `json:"field"`
	OldValue string  `json:"old_value"`
	NewValue string  `json:"new_value"`
	Date     string  `json:"date"`
	Reason   *string `json:"reason"`
}

type ModificationRequest struct {
	ReportID      string              `json:"-"`
	Employee      string              `json:"employee"`
	Modifications []ModificationInput `json:"modifications"`
}

func (r *ModificationRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.ReportID) {
		errs.Add("report_id", "report_id must be a valid UUID")
	}
	if validator.IsEmpty(r.Employee) {
		errs.Add("employee", "employee is required")
	}
	if len(r.Modifications) == 0 {
		errs.Add("modifications", "at least one modification is required")
	}

	for i, m := range r.Modifications {
		prefix := fmt.Sprintf("modifications[%d]", i)
		if !Field(m.Field).Valid() {
			names := make([]string, 0, len(fields))
			for _, f := range fields {
				names = append(names, string(f))
			}
			errs.Add(prefix+".field", "field must be one of "+strings.Join(names, ", "))
		}
		if _, ok := validator.IsValidDate(m.Date); !ok {
			errs.Add(prefix+".date", "date must be in YYYY-MM-DD format")
		}
		if d, err := utils.ParseDuration(m.NewValue); err != nil {
			errs.Add(prefix+".new_value", "new_value must be a duration like 01:15")
		} else if d < 0 {
			errs.Add(prefix+".new_value", "new_value must not be negative")
		}
		if m.Reason != nil && len(*m.Reason) > 500 {
			errs.Add(prefix+".reason", "reason must be at most 500 characters")
		}
	}

	return errs.OrNil()
}

type ModificationResponse struct {
	ReportID       string                           `json:"report_id"`
	ParentID       string                           `json:"parent_id"`
	DownloadURL    string                           `json:"download_url"`
	Modifications  []ModificationEntry              `json:"modifications"`
	EmployeeTotals presence.EmployeeSummaryResponse `json:"employee_totals"`
	Report         presence.ReportResponse          `json:"report"`
}

type ModificationEntry struct {
	ID        string  `json:"id"`
	ReportID  string  `json:"report_id"`
	Employee  string  `json:"employee"`
	Date      string  `json:"date"`
	Field     string  `json:"field"`
	OldValue  string  `json:"old_value"`
	NewValue  string  `json:"new_value"`
	Reason    *string `json:"reason"`
	CreatedAt string  `json:"created_at"`
}

// ModificationHistoryEntry groups the corrections saved in one request.
type ModificationHistoryEntry struct {
	ReportID      string              `json:"report_id"`
	Timestamp     string              `json:"timestamp"`
	Employee      string              `json:"employee"`
	Modifications []ModificationEntry `json:"modifications"`
}

func NewModificationEntry(m Modification) ModificationEntry {
	return ModificationEntry{
		ID:        m.ID,
		ReportID:  m.ReportID,
		Employee:  m.Employee,
		Date:      m.Date.Format(utils.DateLayout),
		Field:     string(m.Field),
		OldValue:  m.OldValue,
		NewValue:  m.NewValue,
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
