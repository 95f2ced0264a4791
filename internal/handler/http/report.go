package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/presence-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/workbook"
	"github.com/cmlabs-hris/presence-backend-go/internal/service/file"
	"github.com/go-chi/chi/v5"
)

type ReportHandler interface {
	// Analysis
	Analyze(w http.ResponseWriter, r *http.Request)
	ListEmployees(w http.ResponseWriter, r *http.Request)
	DetectRestDays(w http.ResponseWriter, r *http.Request)

	// Stored reports
	GetReport(w http.ResponseWriter, r *http.Request)
	DownloadReport(w http.ResponseWriter, r *http.Request)

	// Corrections
	ApplyModifications(w http.ResponseWriter, r *http.Request)
	ListModifications(w http.ResponseWriter, r *http.Request)
}

type reportHandlerImpl struct {
	reportService report.ReportService
	fileService   file.FileService
	maxUpload     int64
}

func NewReportHandler(reportService report.ReportService, fileService file.FileService, maxUpload int64) ReportHandler {
	if maxUpload <= 0 {
		maxUpload = file.DefaultPunchUpload.MaxSize
	}
	return &reportHandlerImpl{
		reportService: reportService,
		fileService:   fileService,
		maxUpload:     maxUpload,
	}
}

// readUpload reads the punch file sent in the "file" form field. It writes
// the error response itself and returns false when the upload is unusable.
func (h *reportHandlerImpl) readUpload(w http.ResponseWriter, r *http.Request) (report.UploadedFile, bool) {
	// Leave room for the other form fields
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.HandleError(w, report.ErrFileTooLarge)
			return report.UploadedFile{}, false
		}
		slog.Error("Failed to parse multipart form", "error", err)
		response.BadRequest(w, "Failed to parse form data", nil)
		return report.UploadedFile{}, false
	}

	f, fileHeader, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			response.BadRequest(w, "Punch file is required", nil)
			return report.UploadedFile{}, false
		}
		slog.Error("Failed to get file from form", "error", err)
		response.BadRequest(w, "Invalid file upload", nil)
		return report.UploadedFile{}, false
	}
	defer f.Close()

	content, err := h.fileService.ReadPunchFile(f, fileHeader.Filename)
	if err != nil {
		response.HandleError(w, err)
		return report.UploadedFile{}, false
	}
	return report.UploadedFile{Filename: fileHeader.Filename, Content: content}, true
}

// Analyze handles POST /analyses
func (h *reportHandlerImpl) Analyze(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	var params presence.AnalyzeParams
	if raw := strings.TrimSpace(r.FormValue("params")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			response.BadRequest(w, "Invalid params JSON", nil)
			return
		}
	}

	result, err := h.reportService.Analyze(r.Context(), report.AnalyzeRequest{File: upload, Params: params})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Report generated successfully", result)
}

// ListEmployees handles POST /employees
func (h *reportHandlerImpl) ListEmployees(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.reportService.ListEmployees(r.Context(), upload)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// DetectRestDays handles POST /rest-days/detect
func (h *reportHandlerImpl) DetectRestDays(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.reportService.DetectRestDays(r.Context(), upload)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetReport handles GET /reports/{id}
func (h *reportHandlerImpl) GetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.reportService.GetReport(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// DownloadReport handles GET /reports/{id}/download
func (h *reportHandlerImpl) DownloadReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rc, filename, err := h.reportService.DownloadReport(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", workbook.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("Failed to stream report workbook", "report_id", id, "error", err)
	}
}

// ApplyModifications handles POST /reports/{id}/modifications
func (h *reportHandlerImpl) ApplyModifications(w http.ResponseWriter, r *http.Request) {
	var req report.ModificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ReportID = chi.URLParam(r, "id")

	result, err := h.reportService.ApplyModifications(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Modifications applied successfully", result)
}

// ListModifications handles GET /modifications/{employee}
func (h *reportHandlerImpl) ListModifications(w http.ResponseWriter, r *http.Request) {
	employee := chi.URLParam(r, "employee")

	result, err := h.reportService.ListModifications(r.Context(), employee)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, response.ListMeta(len(result), nil, nil))
}
