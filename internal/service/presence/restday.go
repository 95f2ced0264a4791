package presence

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
)

// RestDayAbsenceThreshold is how many full absences on the same weekday make
// that weekday a likely rest day.
const RestDayAbsenceThreshold = 3

// DetectRestDays suggests rest days from the full-absence pattern of each
// employee. Employees without any pattern get the default rest days. The
// suggestions are meant to be reviewed and then stored as configuration.
func DetectRestDays(records []presence.WorkdayRecord, rules presence.Rules) []presence.RestDaySuggestion {
	absences := make(map[string]map[time.Weekday]int)
	var employees []string
	for _, rec := range records {
		counts, ok := absences[rec.Employee]
		if !ok {
			counts = make(map[time.Weekday]int)
			absences[rec.Employee] = counts
			employees = append(employees, rec.Employee)
		}
		if rec.IsFullAbsence() {
			counts[rec.Date.Weekday()]++
		}
	}
	sort.Strings(employees)

	out := make([]presence.RestDaySuggestion, 0, len(employees))
	for _, employee := range employees {
		counts := absences[employee]
		var days []time.Weekday
		for wd, n := range counts {
			if n >= RestDayAbsenceThreshold {
				days = append(days, wd)
			}
		}
		if len(days) == 0 {
			days = rules.DefaultRestDays
		}

		s := presence.RestDaySuggestion{Employee: employee, Absences: make(map[string]int, len(counts))}
		for _, wd := range days {
			s.RestDays = append(s.RestDays, utils.MondayIndex(wd))
		}
		sort.Ints(s.RestDays)
		for _, i := range s.RestDays {
			wd, _ := utils.WeekdayFromMondayIndex(i)
			s.Labels = append(s.Labels, wd.String())
		}
		for wd, n := range counts {
			if n > 0 {
				s.Absences[wd.String()] = n
			}
		}
		out = append(out, s)
	}
	return out
}
