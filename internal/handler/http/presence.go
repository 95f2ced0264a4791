package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type PresenceHandler interface {
	// Employee configuration
	UpdateEmployeeConfig(w http.ResponseWriter, r *http.Request)
	GetEmployeeConfig(w http.ResponseWriter, r *http.Request)

	// Holidays
	CreateHoliday(w http.ResponseWriter, r *http.Request)
	ListHolidays(w http.ResponseWriter, r *http.Request)

	// Leave
	CreateLeavePeriod(w http.ResponseWriter, r *http.Request)
	ListLeavePeriods(w http.ResponseWriter, r *http.Request)
}

type presenceHandlerImpl struct {
	presenceService presence.PresenceService
}

func NewPresenceHandler(presenceService presence.PresenceService) PresenceHandler {
	return &presenceHandlerImpl{
		presenceService: presenceService,
	}
}

// dateRange reads the optional from/to query parameters.
func dateRange(r *http.Request) (from, to *time.Time, errs validator.ValidationErrors) {
	q := r.URL.Query()
	if s := q.Get("from"); s != "" {
		if d, ok := validator.IsValidDate(s); ok {
			from = &d
		} else {
			errs.Add("from", "from must be in YYYY-MM-DD format")
		}
	}
	if s := q.Get("to"); s != "" {
		if d, ok := validator.IsValidDate(s); ok {
			to = &d
		} else {
			errs.Add("to", "to must be in YYYY-MM-DD format")
		}
	}
	return from, to, errs
}

// UpdateEmployeeConfig handles PUT /employees/{employee}/config
func (h *presenceHandlerImpl) UpdateEmployeeConfig(w http.ResponseWriter, r *http.Request) {
	var req presence.UpdateEmployeeConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.Employee = chi.URLParam(r, "employee")

	result, err := h.presenceService.UpdateEmployeeConfig(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Employee configuration saved", result)
}

// GetEmployeeConfig handles GET /employees/{employee}/config
func (h *presenceHandlerImpl) GetEmployeeConfig(w http.ResponseWriter, r *http.Request) {
	result, err := h.presenceService.GetEmployeeConfig(r.Context(), chi.URLParam(r, "employee"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// CreateHoliday handles POST /holidays
func (h *presenceHandlerImpl) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req presence.CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.presenceService.CreateHoliday(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Holiday created successfully", result)
}

// ListHolidays handles GET /holidays?from=&to=
func (h *presenceHandlerImpl) ListHolidays(w http.ResponseWriter, r *http.Request) {
	from, to, errs := dateRange(r)
	if len(errs) > 0 {
		response.HandleError(w, errs)
		return
	}

	result, err := h.presenceService.ListHolidays(r.Context(), from, to)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, response.ListMeta(len(result), from, to))
}

// CreateLeavePeriod handles POST /leave-periods
func (h *presenceHandlerImpl) CreateLeavePeriod(w http.ResponseWriter, r *http.Request) {
	var req presence.CreateLeavePeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.presenceService.CreateLeavePeriod(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Leave period created successfully", result)
}

// ListLeavePeriods handles GET /leave-periods?employee=&from=&to=
func (h *presenceHandlerImpl) ListLeavePeriods(w http.ResponseWriter, r *http.Request) {
	from, to, errs := dateRange(r)
	if len(errs) > 0 {
		response.HandleError(w, errs)
		return
	}

	filter := presence.LeavePeriodFilter{
		Employee: r.URL.Query().Get("employee"),
		From:     from,
		To:       to,
	}
	result, err := h.presenceService.ListLeavePeriods(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, response.ListMeta(len(result), from, to))
}
