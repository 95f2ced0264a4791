package presence

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
)

type weekKey struct {
	employee string
	year     int
	week     int
}

// WeeklyPenalties counts off-time arrivals per employee and ISO week over
// Normal rows. A day counts when the check-in is at least the late threshold
// away from the standard start, on either side. The first such day of a week
// is free, each further one costs the late penalty. Every week an employee has a Normal row in is reported, even
// when its penalty is zero.
func WeeklyPenalties(rows []presence.DailyLedgerRow, rules presence.Rules) []presence.WeeklyPenalty {
	counts := make(map[weekKey]int)
	var keys []weekKey

	for _, row := range rows {
		if row.Status != presence.StatusNormal {
			continue
		}
		year, week := row.Date.ISOWeek()
		key := weekKey{employee: row.Employee, year: year, week: week}
		if _, ok := counts[key]; !ok {
			counts[key] = 0
			keys = append(keys, key)
		}
		if row.CheckIn != nil && utils.TimeDiff(rules.StandardStart, *row.CheckIn) >= rules.LateThreshold {
			counts[key]++
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.employee != b.employee {
			return a.employee < b.employee
		}
		if a.year != b.year {
			return a.year < b.year
		}
		return a.week < b.week
	})

	out := make([]presence.WeeklyPenalty, 0, len(keys))
	for _, k := range keys {
		n := counts[k]
		var penalty time.Duration
		if n > 1 {
			penalty = rules.LatePenalty * time.Duration(n-1)
		}
		out = append(out, presence.WeeklyPenalty{
			Employee:  k.employee,
			ISOYear:   k.year,
			ISOWeek:   k.week,
			LateCount: n,
			Penalty:   penalty,
		})
	}
	return out
}
