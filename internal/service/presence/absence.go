package presence

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
)

// NetAbsences keeps the Normal rows with no worked time that fall neither on
// a holiday nor inside a leave period of the same employee. Overlapping leave
// periods behave as their union.
func NetAbsences(rows []presence.DailyLedgerRow, holidays []presence.Holiday, leaves []presence.LeavePeriod) ([]presence.NetAbsenceRow, []presence.NetAbsenceTotal) {
	holidaySet := make(map[time.Time]bool, len(holidays))
	for _, h := range holidays {
		holidaySet[utils.DateOf(h.Date)] = true
	}
	leavesByEmployee := make(map[string][]presence.LeavePeriod)
	for _, lp := range leaves {
		leavesByEmployee[lp.Employee] = append(leavesByEmployee[lp.Employee], lp)
	}

	var absences []presence.NetAbsenceRow
	counts := make(map[string]int)
	for _, row := range rows {
		if row.Status != presence.StatusNormal || row.TempsTravail != 0 {
			continue
		}
		date := utils.DateOf(row.Date)
		if holidaySet[date] || onLeave(leavesByEmployee[row.Employee], date) {
			continue
		}
		absences = append(absences, presence.NetAbsenceRow{Employee: row.Employee, Date: date})
		counts[row.Employee]++
	}

	sort.SliceStable(absences, func(i, j int) bool {
		if absences[i].Employee != absences[j].Employee {
			return absences[i].Employee < absences[j].Employee
		}
		return absences[i].Date.Before(absences[j].Date)
	})

	totals := make([]presence.NetAbsenceTotal, 0, len(counts))
	for employee, n := range counts {
		totals = append(totals, presence.NetAbsenceTotal{Employee: employee, Count: n})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Employee < totals[j].Employee })

	return absences, totals
}

func onLeave(periods []presence.LeavePeriod, date time.Time) bool {
	for _, lp := range periods {
		if lp.Contains(date) {
			return true
		}
	}
	return false
}
