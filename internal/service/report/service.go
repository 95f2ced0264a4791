package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/punchfile"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/workbook"
	"github.com/cmlabs-hris/presence-backend-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/presence-backend-go/internal/service/file"
	presencesvc "github.com/cmlabs-hris/presence-backend-go/internal/service/presence"
)

type ReportServiceImpl struct {
	db          database.Conn
	reportRepo  report.ReportRepository
	modRepo     report.ModificationRepository
	presenceSvc presence.PresenceService
	fileService file.FileService
	builder     *presencesvc.Builder
	events      report.EventPublisher
	logger      *slog.Logger
	now         func() time.Time
}

func NewReportService(
	db database.Conn,
	reportRepo report.ReportRepository,
	modRepo report.ModificationRepository,
	presenceSvc presence.PresenceService,
	fileService file.FileService,
	builder *presencesvc.Builder,
	events report.EventPublisher,
	logger *slog.Logger,
) report.ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportServiceImpl{
		db:          db,
		reportRepo:  reportRepo,
		modRepo:     modRepo,
		presenceSvc: presenceSvc,
		fileService: fileService,
		builder:     builder,
		events:      events,
		logger:      logger,
		now:         time.Now,
	}
}

// DownloadPath is the API route serving the workbook of a report.
func DownloadPath(reportID string) string {
	return "/api/v1/reports/" + reportID + "/download"
}

// parse reads a punch file and maps parser errors onto domain errors.
func parse(f report.UploadedFile) (punchfile.Result, error) {
	res, err := punchfile.Parse(f.Filename, f.Content)
	if err != nil {
		switch {
		case errors.Is(err, punchfile.ErrUnsupportedFormat):
			return punchfile.Result{}, report.ErrUnsupportedFile
		case errors.Is(err, punchfile.ErrMissingColumns), errors.Is(err, punchfile.ErrEmptyFile):
			return punchfile.Result{}, fmt.Errorf("%w: %w", presence.ErrMalformedInput, err)
		}
		return punchfile.Result{}, err
	}
	if len(res.Events) == 0 {
		return punchfile.Result{}, report.ErrNoEvents
	}
	return res, nil
}

// ==================== ANALYSIS ====================

// Analyze evaluates an uploaded punch file, stores the report and renders its
// workbook. Stored configuration, holidays and leave are merged with the
// request parameters; the request wins on conflicts.
func (s *ReportServiceImpl) Analyze(ctx context.Context, req report.AnalyzeRequest) (report.AnalyzeResponse, error) {
	start := s.now()

	// Validate request
	if err := req.Validate(); err != nil {
		return report.AnalyzeResponse{}, err
	}
	period, hasPeriod, err := req.Params.RequestedPeriod()
	if err != nil {
		return report.AnalyzeResponse{}, err
	}
	var periodPtr *presence.Period
	if hasPeriod {
		periodPtr = &period
	}

	parsed, err := parse(req.File)
	if err != nil {
		return report.AnalyzeResponse{}, err
	}
	if parsed.Skipped > 0 {
		s.logger.Info("skipped rows with unknown status",
			slog.String("file", req.File.Filename), slog.Int("skipped", parsed.Skipped))
	}

	input, err := s.runInput(ctx, req.Params, periodPtr)
	if err != nil {
		return report.AnalyzeResponse{}, err
	}
	input.Events = parsed.Events

	rep, err := s.builder.Build(ctx, input, periodPtr)
	if err != nil {
		return report.AnalyzeResponse{}, err
	}

	saved, err := s.store(ctx, report.Report{
		SourceFile: req.File.Filename,
		Period:     rep.Period,
		Payload:    rep,
	}, nil, nil)
	if err != nil {
		return report.AnalyzeResponse{}, err
	}

	s.logger.Info("report generated",
		slog.String("report_id", saved.ID),
		slog.String("file", req.File.Filename),
		slog.String("period", rep.Period.String()),
		slog.Int("employees", rep.Totals.Employees),
		slog.Int("rows", rep.Totals.Rows),
		slog.Int("failures", len(rep.Failures)),
		slog.Duration("duration", s.now().Sub(start)),
	)
	s.publish(report.EventGenerated, report.GeneratedEvent{
		ReportID:    saved.ID,
		Period:      rep.Period.String(),
		Employees:   rep.Totals.Employees,
		DownloadURL: DownloadPath(saved.ID),
	})

	return report.AnalyzeResponse{
		ReportID:    saved.ID,
		DownloadURL: DownloadPath(saved.ID),
		Report:      presence.NewReportResponse(rep),
	}, nil
}

// runInput merges the stored inputs with the request parameters.
func (s *ReportServiceImpl) runInput(ctx context.Context, params presence.AnalyzeParams, period *presence.Period) (presencesvc.Input, error) {
	stored, err := s.presenceSvc.LoadRunInputs(ctx, period)
	if err != nil {
		return presencesvc.Input{}, err
	}

	b := presence.NewConfigBuilder(s.builder.Rules())
	for _, cfg := range stored.Configs {
		b.Merge(cfg)
	}
	if err := params.ApplyTo(b); err != nil {
		return presencesvc.Input{}, err
	}

	holidays, err := params.ParseHolidays()
	if err != nil {
		return presencesvc.Input{}, err
	}
	leaves, err := params.ParseLeavePeriods()
	if err != nil {
		return presencesvc.Input{}, err
	}

	return presencesvc.Input{
		Configs:      b.Build(),
		Holidays:     append(stored.Holidays, holidays...),
		LeavePeriods: append(stored.LeavePeriods, leaves...),
	}, nil
}

// store persists a report with its modifications and writes its workbook in
// one transaction. The workbook file is removed again if the transaction fails.
func (s *ReportServiceImpl) store(ctx context.Context, r report.Report, mods []report.Modification, history []workbook.Modification) (report.Report, error) {
	var filePath string

	err := postgresql.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		created, err := s.reportRepo.Create(ctx, r)
		if err != nil {
			return err
		}

		for i := range mods {
			mods[i].ReportID = created.ID
		}
		saved, err := s.modRepo.CreateBatch(ctx, mods)
		if err != nil {
			return err
		}
		copy(mods, saved)
		for _, m := range saved {
			history = append(history, toWorkbookModification(m))
		}

		data, err := workbook.Bytes(created.Payload, workbook.Options{GeneratedAt: created.CreatedAt, Modifications: history})
		if err != nil {
			return fmt.Errorf("%w: %v", report.ErrReportGenerationFailed, err)
		}
		filePath, err = s.fileService.SaveWorkbook(ctx, created.ID, created.CreatedAt, data)
		if err != nil {
			return err
		}
		if err := s.reportRepo.UpdateFilePath(ctx, created.ID, filePath); err != nil {
			return err
		}

		created.FilePath = filePath
		r = created
		return nil
	})
	if err != nil {
		if filePath != "" {
			if delErr := s.fileService.DeleteFile(ctx, filePath); delErr != nil {
				s.logger.Warn("failed to remove orphan workbook", slog.String("path", filePath), slog.String("error", delErr.Error()))
			}
		}
		return report.Report{}, fmt.Errorf("failed to store report: %w", err)
	}
	return r, nil
}

func toWorkbookModification(m report.Modification) workbook.Modification {
	wm := workbook.Modification{
		Employee:  m.Employee,
		Date:      m.Date,
		Field:     string(m.Field),
		OldValue:  m.OldValue,
		NewValue:  m.NewValue,
		CreatedAt: m.CreatedAt,
	}
	if m.Reason != nil {
		wm.Reason = *m.Reason
	}
	return wm
}

// ListEmployees returns the employees found in a punch file.
func (s *ReportServiceImpl) ListEmployees(ctx context.Context, f report.UploadedFile) (report.EmployeesResponse, error) {
	parsed, err := parse(f)
	if err != nil {
		return report.EmployeesResponse{}, err
	}
	return report.EmployeesResponse{Employees: parsed.Employees()}, nil
}

// DetectRestDays suggests rest days from the absence pattern of a punch file.
// Every weekday is considered so patterns on non-working days show up too.
func (s *ReportServiceImpl) DetectRestDays(ctx context.Context, f report.UploadedFile) (report.RestDaysResponse, error) {
	parsed, err := parse(f)
	if err != nil {
		return report.RestDaysResponse{}, err
	}

	rules := s.builder.Rules()
	detect := rules
	detect.WorkingDays = []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
	}
	records := presencesvc.ReduceEvents(parsed.Events, detect)

	return report.RestDaysResponse{Suggestions: presencesvc.DetectRestDays(records, rules)}, nil
}

// ==================== STORED REPORTS ====================

func (s *ReportServiceImpl) getReport(ctx context.Context, id string) (report.Report, error) {
	if !validator.IsValidUUID(id) {
		return report.Report{}, report.ErrReportNotFound
	}
	return s.reportRepo.GetByID(ctx, id)
}

func (s *ReportServiceImpl) GetReport(ctx context.Context, id string) (report.ReportResponse, error) {
	r, err := s.getReport(ctx, id)
	if err != nil {
		return report.ReportResponse{}, err
	}
	return report.ReportResponse{
		ID:          r.ID,
		ParentID:    r.ParentID,
		SourceFile:  r.SourceFile,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		DownloadURL: DownloadPath(r.ID),
		Report:      presence.NewReportResponse(r.Payload),
	}, nil
}

// DownloadReport opens the stored workbook. When the file is gone it is
// rendered again from the stored payload.
func (s *ReportServiceImpl) DownloadReport(ctx context.Context, id string) (io.ReadCloser, string, error) {
	r, err := s.getReport(ctx, id)
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("presence_report_%s_%s.xlsx",
		r.Period.Start.Format("20060102"), r.Period.End.Format("20060102"))
	if r.ParentID != nil {
		filename = fmt.Sprintf("presence_report_modified_%s.xlsx", r.CreatedAt.Format("20060102"))
	}

	rc, err := s.fileService.OpenWorkbook(ctx, r.FilePath)
	if err == nil {
		return rc, filename, nil
	}
	if !errors.Is(err, report.ErrReportFileMissing) {
		return nil, "", err
	}

	s.logger.Info("workbook missing, rendering from payload", slog.String("report_id", r.ID))
	mods, err := s.modRepo.ListByReport(ctx, r.ID)
	if err != nil {
		return nil, "", err
	}
	history := make([]workbook.Modification, 0, len(mods))
	for _, m := range mods {
		history = append(history, toWorkbookModification(m))
	}
	data, err := workbook.Bytes(r.Payload, workbook.Options{GeneratedAt: r.CreatedAt, Modifications: history})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", report.ErrReportGenerationFailed, err)
	}
	return io.NopCloser(bytes.NewReader(data)), filename, nil
}

// PurgeReports deletes reports older than olderThan along with their workbooks.
func (s *ReportServiceImpl) PurgeReports(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %s", olderThan)
	}
	cutoff := s.now().Add(-olderThan)

	deleted, err := s.reportRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reports: %w", err)
	}

	ids := make([]string, 0, len(deleted))
	for _, r := range deleted {
		ids = append(ids, r.ID)
		if r.FilePath == "" {
			continue
		}
		if err := s.fileService.DeleteFile(ctx, r.FilePath); err != nil {
			s.logger.Warn("failed to delete report workbook",
				slog.String("report_id", r.ID), slog.String("path", r.FilePath), slog.String("error", err.Error()))
		}
	}
	if len(ids) > 0 {
		s.publish(report.EventPurged, report.PurgedEvent{Deleted: len(ids), ReportIDs: ids})
	}
	return len(deleted), nil
}

func (s *ReportServiceImpl) publish(name string, data interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(report.EventsTopic, sse.Event{Name: name, Data: data})
}

// ==================== MODIFICATIONS ====================

// ApplyModifications corrects ledger cells of one employee on a copy of the
// report. The copy is re-aggregated and stored as a new report whose parent
// is the corrected one; the original stays untouched.
func (s *ReportServiceImpl) ApplyModifications(ctx context.Context, req report.ModificationRequest) (report.ModificationResponse, error) {
	if err := req.Validate(); err != nil {
		return report.ModificationResponse{}, err
	}

	parent, err := s.reportRepo.GetByID(ctx, req.ReportID)
	if err != nil {
		return report.ModificationResponse{}, err
	}

	payload := parent.Payload
	daily := make([]presence.DailyLedgerRow, len(payload.Daily))
	copy(daily, payload.Daily)

	employee := strings.TrimSpace(req.Employee)
	mods := make([]report.Modification, 0, len(req.Modifications))
	for i, in := range req.Modifications {
		date, _ := utils.ParseDate(in.Date)
		newValue, _ := utils.ParseDuration(in.NewValue)

		idx := findRow(daily, employee, date)
		if idx < 0 {
			return report.ModificationResponse{}, fmt.Errorf("modification %d: %w: %s on %s", i+1, report.ErrRowNotFound, employee, in.Date)
		}
		row := &daily[idx]
		employee = row.Employee
		if row.Status != presence.StatusNormal {
			return report.ModificationResponse{}, fmt.Errorf("modification %d: %w: %s on %s is %s",
				i+1, report.ErrInvalidModification, employee, in.Date, row.Status)
		}

		field := report.Field(in.Field)
		cell := field.Ref(row)
		old := *cell
		*cell = newValue

		mods = append(mods, report.Modification{
			Employee: row.Employee,
			Date:     row.Date,
			Field:    field,
			OldValue: utils.FormatDuration(old),
			NewValue: utils.FormatDuration(newValue),
			Reason:   in.Reason,
		})
	}

	holidays := make([]presence.Holiday, 0, len(payload.Holidays))
	for _, d := range payload.Holidays {
		holidays = append(holidays, presence.Holiday{Date: d})
	}
	leaves := make([]presence.LeavePeriod, 0, len(payload.LeaveRegister))
	for _, l := range payload.LeaveRegister {
		leaves = append(leaves, presence.LeavePeriod{Employee: l.Employee, Start: l.Start, End: l.End, Type: l.Type})
	}
	corrected := presencesvc.Aggregate(payload.Period, daily, holidays, leaves, s.builder.Rules())
	corrected.Failures = payload.Failures

	previous, err := s.modRepo.ListByReport(ctx, parent.ID)
	if err != nil {
		return report.ModificationResponse{}, err
	}
	history := make([]workbook.Modification, 0, len(previous)+len(mods))
	for _, m := range previous {
		history = append(history, toWorkbookModification(m))
	}

	saved, err := s.store(ctx, report.Report{
		ParentID:   &parent.ID,
		SourceFile: parent.SourceFile,
		Period:     corrected.Period,
		Payload:    corrected,
	}, mods, history)
	if err != nil {
		return report.ModificationResponse{}, err
	}

	s.logger.Info("report modified",
		slog.String("report_id", saved.ID),
		slog.String("parent_id", parent.ID),
		slog.String("employee", employee),
		slog.Int("modifications", len(mods)),
	)
	s.publish(report.EventModified, report.ModifiedEvent{
		ReportID:      saved.ID,
		ParentID:      parent.ID,
		Employee:      employee,
		Modifications: len(mods),
		DownloadURL:   DownloadPath(saved.ID),
	})

	resp := report.ModificationResponse{
		ReportID:      saved.ID,
		ParentID:      parent.ID,
		DownloadURL:   DownloadPath(saved.ID),
		Modifications: make([]report.ModificationEntry, 0, len(mods)),
		Report:        presence.NewReportResponse(corrected),
	}
	for _, m := range mods {
		resp.Modifications = append(resp.Modifications, report.NewModificationEntry(m))
	}
	for _, sum := range corrected.Summaries {
		if strings.EqualFold(sum.Employee, employee) {
			resp.EmployeeTotals = presence.NewEmployeeSummaryResponse(sum)
			break
		}
	}
	return resp, nil
}

func findRow(daily []presence.DailyLedgerRow, employee string, date time.Time) int {
	for i, row := range daily {
		if strings.EqualFold(row.Employee, employee) && row.Date.Equal(date) {
			return i
		}
	}
	return -1
}

// ListModifications returns the correction history of an employee grouped by
// the report each batch produced, oldest first.
func (s *ReportServiceImpl) ListModifications(ctx context.Context, employee string) ([]report.ModificationHistoryEntry, error) {
	employee = strings.TrimSpace(employee)
	if employee == "" {
		return nil, presence.ErrEmployeeRequired
	}

	mods, err := s.modRepo.ListByEmployee(ctx, employee)
	if err != nil {
		return nil, fmt.Errorf("failed to list modifications: %w", err)
	}

	entries := []report.ModificationHistoryEntry{}
	index := make(map[string]int)
	for _, m := range mods {
		i, ok := index[m.ReportID]
		if !ok {
			i = len(entries)
			index[m.ReportID] = i
			entries = append(entries, report.ModificationHistoryEntry{
				ReportID:  m.ReportID,
				Timestamp: m.CreatedAt.Format(time.RFC3339),
				Employee:  m.Employee,
			})
		}
		entries[i].Modifications = append(entries[i].Modifications, report.NewModificationEntry(m))
	}
	return entries, nil
}
