package presence

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
)

// Direction of a punch on the time clock.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// ParseDirection accepts the labels time clocks export ("C/In", "IN", "check-in", ...).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in", "c/in", "checkin", "check-in", "check in":
		return DirectionIn, nil
	case "out", "c/out", "checkout", "check-out", "check out":
		return DirectionOut, nil
	}
	return "", fmt.Errorf("unknown punch direction %q", s)
}

// RawEvent is a single punch read from the time clock.
type RawEvent struct {
	Employee  string
	Timestamp time.Time
	Direction Direction
}

// WorkdayRecord is the reduction of one employee's punches on one working day.
// CheckIn and CheckOut are nil when no punch of that direction exists.
type WorkdayRecord struct {
	Employee      string
	Date          time.Time
	CheckIn       *utils.Clock
	CheckOut      *utils.Clock
	PauseDuration time.Duration
}

// IsFullAbsence reports a day with neither check-in nor check-out.
func (r WorkdayRecord) IsFullAbsence() bool {
	return r.CheckIn == nil && r.CheckOut == nil
}

type DayStatus string

const (
	StatusNormal   DayStatus = "normal"
	StatusRestDay  DayStatus = "rest_day"
	StatusInactive DayStatus = "inactive"
)

// DailyLedgerRow is the evaluated balance of one employee-day.
type DailyLedgerRow struct {
	Employee       string
	Date           time.Time
	CheckIn        *utils.Clock
	CheckOut       *utils.Clock
	Retard         time.Duration
	DepartAnticipe time.Duration
	HeuresSup50    time.Duration
	HeuresSup100   time.Duration
	PauseEffective time.Duration
	TempsTravail   time.Duration
	Penalites      time.Duration
	Status         DayStatus
}

// Overtime is the sum of both overtime tiers.
func (r DailyLedgerRow) Overtime() time.Duration {
	return r.HeuresSup50 + r.HeuresSup100
}

type LeaveType string

const (
	LeaveAnnual      LeaveType = "annual"
	LeaveSick        LeaveType = "sick"
	LeaveExceptional LeaveType = "exceptional"
	LeaveUnpaid      LeaveType = "unpaid"
	LeaveParental    LeaveType = "parental"
)

var leaveTypeLabels = map[LeaveType]string{
	LeaveAnnual:      "Annual leave",
	LeaveSick:        "Sick leave",
	LeaveExceptional: "Exceptional leave",
	LeaveUnpaid:      "Unpaid leave",
	LeaveParental:    "Parental leave",
}

// LeaveTypes lists every leave type in display order.
func LeaveTypes() []LeaveType {
	return []LeaveType{LeaveAnnual, LeaveSick, LeaveExceptional, LeaveUnpaid, LeaveParental}
}

func ParseLeaveType(s string) (LeaveType, error) {
	lt := LeaveType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := leaveTypeLabels[lt]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLeaveType, s)
	}
	return lt, nil
}

func (t LeaveType) Label() string {
	if label, ok := leaveTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// LeavePeriod is an approved leave, both ends inclusive.
type LeavePeriod struct {
	ID       string
	Employee string
	Start    time.Time
	End      time.Time
	Type     LeaveType
}

// Contains reports start <= date <= end.
func (l LeavePeriod) Contains(date time.Time) bool {
	d := utils.DateOf(date)
	return !d.Before(utils.DateOf(l.Start)) && !d.After(utils.DateOf(l.End))
}

// Days counts the calendar days covered by the period.
func (l LeavePeriod) Days() int {
	return utils.InclusiveDays(l.Start, l.End)
}

// Holiday is an organization-wide non-working date.
type Holiday struct {
	ID   string
	Date time.Time
	Name string
}

// NetAbsenceRow is an unexplained absence after holidays and leave are excluded.
type NetAbsenceRow struct {
	Employee string
	Date     time.Time
}

type NetAbsenceTotal struct {
	Employee string
	Count    int
}

// WeeklyPenalty is the lateness penalty of one employee for one ISO week.
type WeeklyPenalty struct {
	Employee  string
	ISOYear   int
	ISOWeek   int
	LateCount int
	Penalty   time.Duration
}

// EmployeeSummary aggregates an employee's ledger over the report period.
type EmployeeSummary struct {
	Employee        string
	Retard          time.Duration
	DepartAnticipe  time.Duration
	HeuresSup50     time.Duration
	HeuresSup100    time.Duration
	PauseEffective  time.Duration
	TempsTravail    time.Duration
	Penalites       time.Duration
	WeeklyPenalties time.Duration
	DaysWorked      int
	NetAbsences     int
}

// LeaveRegisterRow lists a leave period with its length in days.
type LeaveRegisterRow struct {
	Employee string
	Type     LeaveType
	Start    time.Time
	End      time.Time
	Days     int
}

// ReportTotals are organization-wide figures over every ledger row.
type ReportTotals struct {
	Retard              time.Duration
	HeuresSup50         time.Duration
	HeuresSup100        time.Duration
	TempsTravail        time.Duration
	AverageTempsTravail time.Duration
	Employees           int
	Rows                int
}

// RowFailure records a ledger row that could not be evaluated.
type RowFailure struct {
	Employee string
	Date     time.Time
	Reason   string
}

// Period is a closed date range.
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthPeriod covers a whole calendar month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: utils.StartOfMonth(year, month), End: utils.EndOfMonth(year, month)}
}

func (p Period) Contains(date time.Time) bool {
	d := utils.DateOf(date)
	return !d.Before(utils.DateOf(p.Start)) && !d.After(utils.DateOf(p.End))
}

func (p Period) IsZero() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

func (p Period) String() string {
	return "[" + p.Start.Format(utils.DateLayout) + ", " + p.End.Format(utils.DateLayout) + "]"
}

// PeriodReport is everything one report run produces.
type PeriodReport struct {
	Period           Period
	Daily            []DailyLedgerRow
	Summaries        []EmployeeSummary
	WeeklyPenalties  []WeeklyPenalty
	NetAbsences      []NetAbsenceRow
	NetAbsenceTotals []NetAbsenceTotal
	LeaveRegister    []LeaveRegisterRow
	Holidays         []time.Time
	Totals           ReportTotals
	Failures         []RowFailure
	Empty            bool
}

// Employees returns the distinct employee names of the daily ledger, in ledger order.
func (r PeriodReport) Employees() []string {
	seen := make(map[string]bool)
	var names []string
	for _, row := range r.Daily {
		if !seen[row.Employee] {
			seen[row.Employee] = true
			names = append(names, row.Employee)
		}
	}
	return names
}
