// Package workbook renders a period report as an .xlsx workbook.
package workbook

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names
const (
	SheetDaily            = "Daily Report"
	SheetStatistics       = "Employee Statistics"
	SheetWeeklyPenalties  = "Weekly Penalties"
	SheetRawAbsences      = "Raw Absences"
	SheetNetAbsences      = "Net Absences"
	SheetNetAbsenceTotals = "Net Absence Totals"
	SheetLeaveRegister    = "Leave Register"
	SheetHolidays         = "Holidays"
	SheetTotals           = "Totals"
	SheetModifications    = "Modifications"
)

// Modification is a manual correction listed on its own sheet.
type Modification struct {
	Employee  string
	Date      time.Time
	Field     string
	OldValue  string
	NewValue  string
	Reason    string
	CreatedAt time.Time
}

type Options struct {
	GeneratedAt   time.Time
	Modifications []Modification
}

type table struct {
	name    string
	headers []string
	widths  []float64
	rows    [][]interface{}
}

// Build lays the report out sheet by sheet. The caller closes the file.
func Build(rep presence.PeriodReport, opts Options) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	tables := []table{dailyTable(rep), statisticsTable(rep), weeklyTable(rep), rawAbsenceTable(rep),
		netAbsenceTable(rep), netAbsenceTotalTable(rep)}
	if len(rep.LeaveRegister) > 0 {
		tables = append(tables, leaveTable(rep))
	}
	tables = append(tables, holidayTable(rep), totalsTable(rep, opts))
	if len(opts.Modifications) > 0 {
		tables = append(tables, modificationTable(opts.Modifications))
	}

	for i, t := range tables {
		if err := writeTable(f, t, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("write sheet %q: %w", t.name, err)
		}
		if i == 0 {
			idx, _ := f.GetSheetIndex(t.name)
			f.SetActiveSheet(idx)
		}
	}

	// Delete default sheet
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Write streams the workbook to w.
func Write(w io.Writer, rep presence.PeriodReport, opts Options) error {
	f, err := Build(rep, opts)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func Bytes(rep presence.PeriodReport, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, rep, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTable(f *excelize.File, t table, headerStyle int) error {
	if _, err := f.NewSheet(t.name); err != nil {
		return err
	}

	header := make([]interface{}, len(t.headers))
	for i, h := range t.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(t.name, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(t.headers), 1)
	if err := f.SetCellStyle(t.name, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, row := range t.rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(t.name, cell, &row); err != nil {
			return err
		}
	}

	for i, w := range t.widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(t.name, col, col, w); err != nil {
			return err
		}
	}

	return f.SetPanes(t.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func hhmm(d time.Duration) string {
	return utils.FormatDuration(d)
}

func date(t time.Time) string {
	return t.Format(utils.DateLayout)
}

func clock(c *utils.Clock) string {
	if c == nil {
		return ""
	}
	return hhmm(time.Duration(*c))
}

var durationWidths = []float64{24, 12, 12, 10, 10, 12, 12, 14, 14, 14, 14, 12, 12}

func dailyTable(rep presence.PeriodReport) table {
	t := table{
		name: SheetDaily,
		headers: []string{"Name", "Date", "Weekday", "Check In", "Check Out", "Retard", "Depart Anticipe",
			"Heures Sup 50", "Heures Sup 100", "Pause Effective", "Temps Travail", "Penalites", "Status"},
		widths: durationWidths,
	}
	for _, r := range rep.Daily {
		t.rows = append(t.rows, []interface{}{
			r.Employee, date(r.Date), r.Date.Weekday().String(), clock(r.CheckIn), clock(r.CheckOut),
			hhmm(r.Retard), hhmm(r.DepartAnticipe), hhmm(r.HeuresSup50), hhmm(r.HeuresSup100),
			hhmm(r.PauseEffective), hhmm(r.TempsTravail), hhmm(r.Penalites), string(r.Status),
		})
	}
	return t
}

func statisticsTable(rep presence.PeriodReport) table {
	t := table{
		name: SheetStatistics,
		headers: []string{"Name", "Retard", "Depart Anticipe", "Heures Sup 50", "Heures Sup 100",
			"Pause Effective", "Temps Travail", "Worked Hours", "Penalites", "Weekly Penalties",
			"Days Worked", "Net Absences"},
		widths: []float64{24, 12, 14, 14, 14, 14, 14, 12, 12, 16, 12, 12},
	}
	for _, s := range rep.Summaries {
		hours, _ := presence.Hours(s.TempsTravail).Float64()
		t.rows = append(t.rows, []interface{}{
			s.Employee, hhmm(s.Retard), hhmm(s.DepartAnticipe), hhmm(s.HeuresSup50), hhmm(s.HeuresSup100),
			hhmm(s.PauseEffective), hhmm(s.TempsTravail), hours, hhmm(s.Penalites), hhmm(s.WeeklyPenalties),
			s.DaysWorked, s.NetAbsences,
		})
	}
	return t
}

func weeklyTable(rep presence.PeriodReport) table {
	t := table{
		name:    SheetWeeklyPenalties,
		headers: []string{"Name", "Year", "Week", "Late Days", "Weekly Penalty"},
		widths:  []float64{24, 8, 8, 10, 16},
	}
	for _, w := range rep.WeeklyPenalties {
		t.rows = append(t.rows, []interface{}{w.Employee, w.ISOYear, w.ISOWeek, w.LateCount, hhmm(w.Penalty)})
	}
	return t
}

func rawAbsenceTable(rep presence.PeriodReport) table {
	t := table{name: SheetRawAbsences, headers: []string{"Name", "Date", "Status"}, widths: []float64{24, 12, 12}}
	for _, r := range rep.Daily {
		if r.TempsTravail == 0 {
			t.rows = append(t.rows, []interface{}{r.Employee, date(r.Date), string(r.Status)})
		}
	}
	return t
}

func netAbsenceTable(rep presence.PeriodReport) table {
	t := table{name: SheetNetAbsences, headers: []string{"Name", "Date"}, widths: []float64{24, 12}}
	for _, a := range rep.NetAbsences {
		t.rows = append(t.rows, []interface{}{a.Employee, date(a.Date)})
	}
	return t
}

func netAbsenceTotalTable(rep presence.PeriodReport) table {
	t := table{name: SheetNetAbsenceTotals, headers: []string{"Name", "Net Absences"}, widths: []float64{24, 14}}
	for _, a := range rep.NetAbsenceTotals {
		t.rows = append(t.rows, []interface{}{a.Employee, a.Count})
	}
	return t
}

func leaveTable(rep presence.PeriodReport) table {
	t := table{
		name:    SheetLeaveRegister,
		headers: []string{"Name", "Type", "Start Date", "End Date", "Days"},
		widths:  []float64{24, 20, 12, 12, 8},
	}
	for _, l := range rep.LeaveRegister {
		t.rows = append(t.rows, []interface{}{l.Employee, l.Type.Label(), date(l.Start), date(l.End), l.Days})
	}
	return t
}

func holidayTable(rep presence.PeriodReport) table {
	t := table{name: SheetHolidays, headers: []string{"Holiday"}, widths: []float64{14}}
	for _, h := range rep.Holidays {
		t.rows = append(t.rows, []interface{}{date(h)})
	}
	return t
}

func totalsTable(rep presence.PeriodReport, opts Options) table {
	tt := rep.Totals
	hours, _ := presence.Hours(tt.TempsTravail).Float64()
	t := table{
		name:    SheetTotals,
		headers: []string{"Metric", "Value"},
		widths:  []float64{28, 20},
		rows: [][]interface{}{
			{"Period Start", date(rep.Period.Start)},
			{"Period End", date(rep.Period.End)},
			{"Employees", tt.Employees},
			{"Ledger Rows", tt.Rows},
			{"Total Retard", hhmm(tt.Retard)},
			{"Total Heures Sup 50", hhmm(tt.HeuresSup50)},
			{"Total Heures Sup 100", hhmm(tt.HeuresSup100)},
			{"Total Temps Travail", hhmm(tt.TempsTravail)},
			{"Total Worked Hours", hours},
			{"Average Temps Travail", hhmm(tt.AverageTempsTravail)},
		},
	}
	if !opts.GeneratedAt.IsZero() {
		t.rows = append(t.rows, []interface{}{"Generated At", opts.GeneratedAt.Format("02 January 2006 15:04:05")})
	}
	return t
}

func modificationTable(mods []Modification) table {
	t := table{
		name:    SheetModifications,
		headers: []string{"Name", "Date", "Field", "Old Value", "New Value", "Reason", "Timestamp"},
		widths:  []float64{24, 12, 16, 10, 10, 40, 22},
	}
	for _, m := range mods {
		t.rows = append(t.rows, []interface{}{
			m.Employee, date(m.Date), m.Field, m.OldValue, m.NewValue, m.Reason, m.CreatedAt.Format(time.RFC3339),
		})
	}
	return t
}
