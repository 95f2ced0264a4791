package presence

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// ANALYSIS PARAMETERS
// ========================================

// AnalyzeParams are the run parameters sent with a punch file.
// Weekdays are Monday=0 .. Sunday=6, dates are YYYY-MM-DD.
type AnalyzeParams struct {
	Holidays     []string           `json:"holidays"`
	RestDays     map[string][]int   `json:"rest_days"`
	LeavePeriods []LeavePeriodInput `json:"leave_periods"`
	ContractEnds map[string]string  `json:"contract_ends"`

	Month     int    `json:"month,omitempty"`
	Year      int    `json:"year,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type LeavePeriodInput struct {
	Employee  string `json:"employee"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Type      string `json:"type"`
}

func (p *AnalyzeParams) Validate() error {
	var errs validator.ValidationErrors

	if p.Month != 0 || p.Year != 0 {
		if p.Month < 1 || p.Month > 12 {
			errs.Add("month", "month must be between 1 and 12")
		}
		if p.Year < 2000 || p.Year > 2100 {
			errs.Add("year", "year must be between 2000 and 2100")
		}
		if p.StartDate != "" || p.EndDate != "" {
			errs.Add("start_date", "use either month/year or start_date/end_date, not both")
		}
	}

	if (p.StartDate == "") != (p.EndDate == "") {
		errs.Add("end_date", "start_date and end_date must be provided together")
	}

	for employee, days := range p.RestDays {
		if validator.IsEmpty(employee) {
			errs.Add("rest_days", "employee name is required")
		}
		for _, d := range days {
			if !validator.IsValidWeekdayIndex(d) {
				errs.Add("rest_days."+employee, fmt.Sprintf("weekday %d must be between 0 (Monday) and 6 (Sunday)", d))
			}
		}
	}

	for i, lp := range p.LeavePeriods {
		field := fmt.Sprintf("leave_periods[%d]", i)
		if validator.IsEmpty(lp.Employee) {
			errs.Add(field+".employee", "employee is required")
		}
		if _, err := ParseLeaveType(lp.Type); err != nil {
			errs.Add(field+".type", "type must be one of annual, sick, exceptional, unpaid, parental")
		}
	}

	return errs.OrNil()
}

// RequestedPeriod returns the period selected by month/year or explicit
// dates. ok is false when the whole observed range should be reported.
func (p *AnalyzeParams) RequestedPeriod() (period Period, ok bool, err error) {
	switch {
	case p.Month != 0 && p.Year != 0:
		return MonthPeriod(p.Year, time.Month(p.Month)), true, nil
	case p.StartDate != "" && p.EndDate != "":
		start, err := utils.ParseDate(p.StartDate)
		if err != nil {
			return Period{}, false, &MalformedInputError{Source: "period", Field: "start_date", Value: p.StartDate, Err: err}
		}
		end, err := utils.ParseDate(p.EndDate)
		if err != nil {
			return Period{}, false, &MalformedInputError{Source: "period", Field: "end_date", Value: p.EndDate, Err: err}
		}
		if end.Before(start) {
			return Period{}, false, ErrInvalidPeriod
		}
		return Period{Start: start, End: end}, true, nil
	}
	return Period{}, false, nil
}

// ParseHolidays converts the holiday dates, rejecting the batch on the first bad one.
func (p *AnalyzeParams) ParseHolidays() ([]Holiday, error) {
	holidays := make([]Holiday, 0, len(p.Holidays))
	for i, s := range p.Holidays {
		d, err := utils.ParseDate(s)
		if err != nil {
			return nil, &MalformedInputError{Source: "holiday", Row: i + 1, Field: "date", Value: s, Err: err}
		}
		holidays = append(holidays, Holiday{Date: d})
	}
	return holidays, nil
}

func (p *AnalyzeParams) ParseLeavePeriods() ([]LeavePeriod, error) {
	periods := make([]LeavePeriod, 0, len(p.LeavePeriods))
	for i, in := range p.LeavePeriods {
		lp, err := in.toLeavePeriod(i + 1)
		if err != nil {
			return nil, err
		}
		periods = append(periods, lp)
	}
	return periods, nil
}

func (in LeavePeriodInput) toLeavePeriod(row int) (LeavePeriod, error) {
	start, err := utils.ParseDate(in.StartDate)
	if err != nil {
		return LeavePeriod{}, &MalformedInputError{Source: "leave_period", Row: row, Field: "start_date", Value: in.StartDate, Err: err}
	}
	end, err := utils.ParseDate(in.EndDate)
	if err != nil {
		return LeavePeriod{}, &MalformedInputError{Source: "leave_period", Row: row, Field: "end_date", Value: in.EndDate, Err: err}
	}
	if end.Before(start) {
		return LeavePeriod{}, &MalformedInputError{Source: "leave_period", Row: row, Field: "end_date", Value: in.EndDate, Err: ErrInvalidPeriod}
	}
	lt, err := ParseLeaveType(in.Type)
	if err != nil {
		return LeavePeriod{}, &MalformedInputError{Source: "leave_period", Row: row, Field: "type", Value: in.Type, Err: err}
	}
	return LeavePeriod{Employee: strings.TrimSpace(in.Employee), Start: start, End: end, Type: lt}, nil
}

// ApplyTo pushes the rest days and contract ends of the request into b.
func (p *AnalyzeParams) ApplyTo(b *ConfigBuilder) error {
	for employee, days := range p.RestDays {
		weekdays := make([]time.Weekday, 0, len(days))
		for _, d := range days {
			wd, err := utils.WeekdayFromMondayIndex(d)
			if err != nil {
				return &MalformedInputError{Source: "rest_days", Field: employee, Value: fmt.Sprint(d), Err: err}
			}
			weekdays = append(weekdays, wd)
		}
		b.SetRestDays(employee, weekdays...)
	}
	for employee, s := range p.ContractEnds {
		end, err := utils.ParseDate(s)
		if err != nil {
			return &MalformedInputError{Source: "contract_ends", Field: employee, Value: s, Err: err}
		}
		b.SetContractEnd(employee, end)
	}
	return nil
}

// ========================================
// STORED CONFIGURATION
// ========================================

type UpdateEmployeeConfigRequest struct {
	Employee    string  `json:"-"`
	RestDays    []int   `json:"rest_days"`
	ContractEnd *string `json:"contract_end"`
}

func (r *UpdateEmployeeConfigRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Employee) {
		errs.Add("employee", "employee is required")
	}
	for _, d := range r.RestDays {
		if !validator.IsValidWeekdayIndex(d) {
			errs.Add("rest_days", fmt.Sprintf("weekday %d must be between 0 (Monday) and 6 (Sunday)", d))
		}
	}
	if r.ContractEnd != nil && *r.ContractEnd != "" {
		if _, ok := validator.IsValidDate(*r.ContractEnd); !ok {
			errs.Add("contract_end", "contract_end must be in YYYY-MM-DD format")
		}
	}

	return errs.OrNil()
}

// ToConfig assumes Validate succeeded.
func (r *UpdateEmployeeConfigRequest) ToConfig() EmployeeConfig {
	cfg := EmployeeConfig{Employee: strings.TrimSpace(r.Employee), RestDays: []time.Weekday{}}
	for _, d := range r.RestDays {
		wd, _ := utils.WeekdayFromMondayIndex(d)
		cfg.RestDays = append(cfg.RestDays, wd)
	}
	if r.ContractEnd != nil && *r.ContractEnd != "" {
		end, _ := utils.ParseDate(*r.ContractEnd)
		cfg.ContractEnd = &end
	}
	return cfg
}

type EmployeeConfigResponse struct {
	Employee    string  `json:"employee"`
	RestDays    []int   `json:"rest_days"`
	ContractEnd *string `json:"contract_end"`
}

func NewEmployeeConfigResponse(cfg EmployeeConfig) EmployeeConfigResponse {
	resp := EmployeeConfigResponse{Employee: cfg.Employee, RestDays: cfg.RestDayIndexes()}
	if cfg.ContractEnd != nil {
		s := cfg.ContractEnd.Format(utils.DateLayout)
		resp.ContractEnd = &s
	}
	return resp
}

type CreateHolidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

func (r *CreateHolidayRequest) Validate() error {
	var errs validator.ValidationErrors
	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs.Add("date", "date must be in YYYY-MM-DD format")
	}
	if len(r.Name) > 100 {
		errs.Add("name", "name must be at most 100 characters")
	}
	return errs.OrNil()
}

type HolidayResponse struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name"`
}

func NewHolidayResponse(h Holiday) HolidayResponse {
	return HolidayResponse{ID: h.ID, Date: h.Date.Format(utils.DateLayout), Name: h.Name}
}

type CreateLeavePeriodRequest struct {
	LeavePeriodInput
}

func (r *CreateLeavePeriodRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Employee) {
		errs.Add("employee", "employee is required")
	}
	start, okStart := validator.IsValidDate(r.StartDate)
	if !okStart {
		errs.Add("start_date", "start_date must be in YYYY-MM-DD format")
	}
	end, okEnd := validator.IsValidDate(r.EndDate)
	if !okEnd {
		errs.Add("end_date", "end_date must be in YYYY-MM-DD format")
	}
	if okStart && okEnd && end.Before(start) {
		errs.Add("end_date", "end_date must not be before start_date")
	}
	if _, err := ParseLeaveType(r.Type); err != nil {
		errs.Add("type", "type must be one of annual, sick, exceptional, unpaid, parental")
	}

	return errs.OrNil()
}

func (r *CreateLeavePeriodRequest) ToLeavePeriod() (LeavePeriod, error) {
	return r.toLeavePeriod(0)
}

type LeavePeriodFilter struct {
	Employee string
	From     *time.Time
	To       *time.Time
}

type LeavePeriodResponse struct {
	ID        string `json:"id"`
	Employee  string `json:"employee"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Type      string `json:"type"`
	TypeLabel string `json:"type_label"`
	Days      int    `json:"days"`
}

func NewLeavePeriodResponse(lp LeavePeriod) LeavePeriodResponse {
	return LeavePeriodResponse{
		ID:        lp.ID,
		Employee:  lp.Employee,
		StartDate: lp.Start.Format(utils.DateLayout),
		EndDate:   lp.End.Format(utils.DateLayout),
		Type:      string(lp.Type),
		TypeLabel: lp.Type.Label(),
		Days:      lp.Days(),
	}
}

// ========================================
// REPORT OUTPUT
// ========================================

type DailyRowResponse struct {
	Employee       string  `json:"employee"`
	Date           string  `json:"date"`
	Weekday        string  `json:"weekday"`
	CheckIn        *string `json:"check_in"`
	CheckOut       *string `json:"check_out"`
	Retard         string  `json:"retard"`
	DepartAnticipe string  `json:"depart_anticipe"`
	HeuresSup50    string  `json:"heures_sup_50"`
	HeuresSup100   string  `json:"heures_sup_100"`
	PauseEffective string  `json:"pause_effective"`
	TempsTravail   string  `json:"temps_travail"`
	Penalites      string  `json:"penalites"`
	Status         string  `json:"status"`
}

type EmployeeSummaryResponse struct {
	Employee        string          `json:"employee"`
	Retard          string          `json:"retard"`
	DepartAnticipe  string          `json:"depart_anticipe"`
	HeuresSup50     string          `json:"heures_sup_50"`
	HeuresSup100    string          `json:"heures_sup_100"`
	PauseEffective  string          `json:"pause_effective"`
	TempsTravail    string          `json:"temps_travail"`
	Penalites       string          `json:"penalites"`
	WeeklyPenalties string          `json:"weekly_penalties"`
	WorkedHours     decimal.Decimal `json:"worked_hours"`
	DaysWorked      int             `json:"days_worked"`
	NetAbsences     int             `json:"net_absences"`
}

type WeeklyPenaltyResponse struct {
	Employee  string `json:"employee"`
	Year      int    `json:"year"`
	Week      int    `json:"week"`
	LateCount int    `json:"late_count"`
	Penalty   string `json:"penalty"`
}

type NetAbsenceResponse struct {
	Employee string `json:"employee"`
	Date     string `json:"date"`
}

type NetAbsenceTotalResponse struct {
	Employee string `json:"employee"`
	Count    int    `json:"count"`
}

type LeaveRegisterResponse struct {
	Employee  string `json:"employee"`
	Type      string `json:"type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`
}

type TotalsResponse struct {
	Retard              string          `json:"retard"`
	HeuresSup50         string          `json:"heures_sup_50"`
	HeuresSup100        string          `json:"heures_sup_100"`
	TempsTravail        string          `json:"temps_travail"`
	AverageTempsTravail string          `json:"average_temps_travail"`
	TotalWorkedHours    decimal.Decimal `json:"total_worked_hours"`
	Employees           int             `json:"employees"`
	Rows                int             `json:"rows"`
}

type RowFailureResponse struct {
	Employee string `json:"employee"`
	Date     string `json:"date"`
	Reason   string `json:"reason"`
}

type ReportResponse struct {
	PeriodStart      string                    `json:"period_start"`
	PeriodEnd        string                    `json:"period_end"`
	Empty            bool                      `json:"empty"`
	Daily            []DailyRowResponse        `json:"daily"`
	Summaries        []EmployeeSummaryResponse `json:"summaries"`
	WeeklyPenalties  []WeeklyPenaltyResponse   `json:"weekly_penalties"`
	NetAbsences      []NetAbsenceResponse      `json:"net_absences"`
	NetAbsenceTotals []NetAbsenceTotalResponse `json:"net_absence_totals"`
	LeaveRegister    []LeaveRegisterResponse   `json:"leave_register"`
	Holidays         []string                  `json:"holidays"`
	Totals           TotalsResponse            `json:"totals"`
	Failures         []RowFailureResponse      `json:"failures,omitempty"`
}

// Hours converts d to decimal hours rounded to two places.
func Hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d / time.Minute)).Div(decimal.NewFromInt(60)).Round(2)
}

func clockString(c *utils.Clock) *string {
	if c == nil {
		return nil
	}
	s := utils.FormatDuration(time.Duration(*c))
	return &s
}

func NewDailyRowResponse(row DailyLedgerRow) DailyRowResponse {
	return DailyRowResponse{
		Employee:       row.Employee,
		Date:           row.Date.Format(utils.DateLayout),
		Weekday:        row.Date.Weekday().String(),
		CheckIn:        clockString(row.CheckIn),
		CheckOut:       clockString(row.CheckOut),
		Retard:         utils.FormatDuration(row.Retard),
		DepartAnticipe: utils.FormatDuration(row.DepartAnticipe),
		HeuresSup50:    utils.FormatDuration(row.HeuresSup50),
		HeuresSup100:   utils.FormatDuration(row.HeuresSup100),
		PauseEffective: utils.FormatDuration(row.PauseEffective),
		TempsTravail:   utils.FormatDuration(row.TempsTravail),
		Penalites:      utils.FormatDuration(row.Penalites),
		Status:         string(row.Status),
	}
}

func NewEmployeeSummaryResponse(s EmployeeSummary) EmployeeSummaryResponse {
	return EmployeeSummaryResponse{
		Employee:        s.Employee,
		Retard:          utils.FormatDuration(s.Retard),
		DepartAnticipe:  utils.FormatDuration(s.DepartAnticipe),
		HeuresSup50:     utils.FormatDuration(s.HeuresSup50),
		HeuresSup100:    utils.FormatDuration(s.HeuresSup100),
		PauseEffective:  utils.FormatDuration(s.PauseEffective),
		TempsTravail:    utils.FormatDuration(s.TempsTravail),
		Penalites:       utils.FormatDuration(s.Penalites),
		WeeklyPenalties: utils.FormatDuration(s.WeeklyPenalties),
		WorkedHours:     Hours(s.TempsTravail),
		DaysWorked:      s.DaysWorked,
		NetAbsences:     s.NetAbsences,
	}
}

func NewReportResponse(r PeriodReport) ReportResponse {
	resp := ReportResponse{
		Empty:            r.Empty,
		Daily:            make([]DailyRowResponse, 0, len(r.Daily)),
		Summaries:        make([]EmployeeSummaryResponse, 0, len(r.Summaries)),
		WeeklyPenalties:  make([]WeeklyPenaltyResponse, 0, len(r.WeeklyPenalties)),
		NetAbsences:      make([]NetAbsenceResponse, 0, len(r.NetAbsences)),
		NetAbsenceTotals: make([]NetAbsenceTotalResponse, 0, len(r.NetAbsenceTotals)),
		LeaveRegister:    make([]LeaveRegisterResponse, 0, len(r.LeaveRegister)),
		Holidays:         make([]string, 0, len(r.Holidays)),
	}
	if !r.Period.IsZero() {
		resp.PeriodStart = r.Period.Start.Format(utils.DateLayout)
		resp.PeriodEnd = r.Period.End.Format(utils.DateLayout)
	}

	for _, row := range r.Daily {
		resp.Daily = append(resp.Daily, NewDailyRowResponse(row))
	}
	for _, s := range r.Summaries {
		resp.Summaries = append(resp.Summaries, NewEmployeeSummaryResponse(s))
	}
	for _, w := range r.WeeklyPenalties {
		resp.WeeklyPenalties = append(resp.WeeklyPenalties, WeeklyPenaltyResponse{
			Employee:  w.Employee,
			Year:      w.ISOYear,
			Week:      w.ISOWeek,
			LateCount: w.LateCount,
			Penalty:   utils.FormatDuration(w.Penalty),
		})
	}
	for _, a := range r.NetAbsences {
		resp.NetAbsences = append(resp.NetAbsences, NetAbsenceResponse{Employee: a.Employee, Date: a.Date.Format(utils.DateLayout)})
	}
	for _, t := range r.NetAbsenceTotals {
		resp.NetAbsenceTotals = append(resp.NetAbsenceTotals, NetAbsenceTotalResponse{Employee: t.Employee, Count: t.Count})
	}
	for _, l := range r.LeaveRegister {
		resp.LeaveRegister = append(resp.LeaveRegister, LeaveRegisterResponse{
			Employee:  l.Employee,
			Type:      l.Type.Label(),
			StartDate: l.Start.Format(utils.DateLayout),
			EndDate:   l.End.Format(utils.DateLayout),
			Days:      l.Days,
		})
	}
	for _, h := range r.Holidays {
		resp.Holidays = append(resp.Holidays, h.Format(utils.DateLayout))
	}
	for _, f := range r.Failures {
		resp.Failures = append(resp.Failures, RowFailureResponse{Employee: f.Employee, Date: f.Date.Format(utils.DateLayout), Reason: f.Reason})
	}

	resp.Totals = TotalsResponse{
		Retard:              utils.FormatDuration(r.Totals.Retard),
		HeuresSup50:         utils.FormatDuration(r.Totals.HeuresSup50),
		HeuresSup100:        utils.FormatDuration(r.Totals.HeuresSup100),
		TempsTravail:        utils.FormatDuration(r.Totals.TempsTravail),
		AverageTempsTravail: utils.FormatDuration(r.Totals.AverageTempsTravail),
		TotalWorkedHours:    Hours(r.Totals.TempsTravail),
		Employees:           r.Totals.Employees,
		Rows:                r.Totals.Rows,
	}
	return resp
}

// ========================================
// REST DAY DETECTION
// ========================================

// RestDaySuggestion proposes rest days for one employee from absence patterns.
type RestDaySuggestion struct {
	Employee string         `json:"employee"`
	RestDays []int          `json:"rest_days"`
	Labels   []string       `json:"labels"`
	Absences map[string]int `json:"absences"`
}
