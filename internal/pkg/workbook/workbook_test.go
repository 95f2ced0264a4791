package workbook

import (
	"bytes"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReport() presence.PeriodReport {
	day := utils.NewDate(2024, 3, 4)
	return presence.PeriodReport{
		Period: presence.Period{Start: day, End: day},
		Daily: []presence.DailyLedgerRow{
			{
				Employee:       "Alice",
				Date:           day,
				CheckIn:        utils.NewClock(9, 0, 0).Ptr(),
				CheckOut:       utils.NewClock(17, 0, 0).Ptr(),
				Retard:         75 * time.Minute,
				PauseEffective: 45 * time.Minute,
				TempsTravail:   7*time.Hour + 15*time.Minute,
				Penalites:      15 * time.Minute,
				Status:         presence.StatusNormal,
			},
			{Employee: "Bob", Date: day, PauseEffective: 45 * time.Minute, Status: presence.StatusNormal},
		},
		Summaries: []presence.EmployeeSummary{
			{Employee: "Alice", Retard: 75 * time.Minute, TempsTravail: 7*time.Hour + 15*time.Minute, DaysWorked: 1},
			{Employee: "Bob", NetAbsences: 1},
		},
		NetAbsences:      []presence.NetAbsenceRow{{Employee: "Bob", Date: day}},
		NetAbsenceTotals: []presence.NetAbsenceTotal{{Employee: "Bob", Count: 1}},
		Totals:           presence.ReportTotals{Rows: 2, Employees: 2, TempsTravail: 7*time.Hour + 15*time.Minute},
	}
}

func TestBuild_Sheets(t *testing.T) {
	data, err := Bytes(sampleReport(), Options{GeneratedAt: time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Equal(t, []string{
		SheetDaily, SheetStatistics, SheetWeeklyPenalties, SheetRawAbsences,
		SheetNetAbsences, SheetNetAbsenceTotals, SheetHolidays, SheetTotals,
	}, sheets)

	rows, err := f.GetRows(SheetDaily)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Name", rows[0][0])
	assert.Equal(t, []string{"Alice", "2024-03-04", "Monday", "09:00", "17:00", "01:15"}, rows[1][:6])

	absences, err := f.GetRows(SheetRawAbsences)
	require.NoError(t, err)
	assert.Len(t, absences, 2)
	assert.Equal(t, "Bob", absences[1][0])
}

func TestBuild_OptionalSheets(t *testing.T) {
	rep := sampleReport()
	rep.LeaveRegister = []presence.LeaveRegisterRow{{
		Employee: "Bob", Type: presence.LeaveSick,
		Start: utils.NewDate(2024, 3, 4), End: utils.NewDate(2024, 3, 6), Days: 3,
	}}
	opts := Options{Modifications: []Modification{{
		Employee: "Alice", Date: utils.NewDate(2024, 3, 4), Field: "retard",
		OldValue: "01:15", NewValue: "00:00", Reason: "badge failure",
	}}}

	f, err := Build(rep, opts)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, SheetLeaveRegister)
	assert.Contains(t, sheets, SheetModifications)

	v, err := f.GetCellValue(SheetLeaveRegister, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Sick leave", v)
}
