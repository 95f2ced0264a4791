package presence

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
)

type dayKey struct {
	employee string
	date     time.Time
}

type dayPunches struct {
	ins  []time.Time
	outs []time.Time
}

// ReduceEvents groups punches by employee and working day and returns one
// WorkdayRecord per employee for every working day between the first and
// last observed date. Days without punches come back as full absences with
// the standard pause. The result is sorted by employee then date.
func ReduceEvents(events []presence.RawEvent, rules presence.Rules) []presence.WorkdayRecord {
	days := make(map[dayKey]*dayPunches)
	var employees []string
	seenEmployee := make(map[string]bool)
	var first, last time.Time

	for _, ev := range events {
		date := utils.DateOf(ev.Timestamp)
		if !rules.IsWorkingDay(date.Weekday()) {
			continue
		}
		if !seenEmployee[ev.Employee] {
			seenEmployee[ev.Employee] = true
			employees = append(employees, ev.Employee)
		}
		if first.IsZero() || date.Before(first) {
			first = date
		}
		if last.IsZero() || date.After(last) {
			last = date
		}

		key := dayKey{employee: ev.Employee, date: date}
		p, ok := days[key]
		if !ok {
			p = &dayPunches{}
			days[key] = p
		}
		switch ev.Direction {
		case presence.DirectionIn:
			p.ins = append(p.ins, ev.Timestamp)
		case presence.DirectionOut:
			p.outs = append(p.outs, ev.Timestamp)
		}
	}

	if len(employees) == 0 {
		return nil
	}
	sort.Strings(employees)

	var calendar []time.Time
	for _, d := range utils.DaysBetween(first, last) {
		if rules.IsWorkingDay(d.Weekday()) {
			calendar = append(calendar, d)
		}
	}

	records := make([]presence.WorkdayRecord, 0, len(employees)*len(calendar))
	for _, employee := range employees {
		for _, date := range calendar {
			p, ok := days[dayKey{employee: employee, date: date}]
			if !ok {
				records = append(records, presence.WorkdayRecord{
					Employee:      employee,
					Date:          date,
					PauseDuration: rules.StandardPause,
				})
				continue
			}
			records = append(records, reduceDay(employee, date, p, rules))
		}
	}
	return records
}

func reduceDay(employee string, date time.Time, p *dayPunches, rules presence.Rules) presence.WorkdayRecord {
	sortTimes(p.ins)
	sortTimes(p.outs)

	rec := presence.WorkdayRecord{
		Employee:      employee,
		Date:          date,
		PauseDuration: pauseDuration(p.ins, p.outs, rules),
	}
	if len(p.ins) > 0 {
		rec.CheckIn = utils.ClockOf(p.ins[0]).Ptr()
	}
	if len(p.outs) > 0 {
		rec.CheckOut = utils.ClockOf(p.outs[len(p.outs)-1]).Ptr()
	}
	return rec
}

// pauseDuration expects ins and outs sorted chronologically. The break runs
// from the first OUT to the second IN.
func pauseDuration(ins, outs []time.Time, rules presence.Rules) time.Duration {
	if len(ins) < 2 || len(outs) < 2 {
		return rules.MissingBreakPenalty
	}

	start, end := outs[0], ins[1]
	if !utils.ClockOf(start).Within(rules.PauseWindowStart, rules.PauseWindowEnd) ||
		!utils.ClockOf(end).Within(rules.PauseWindowStart, rules.PauseWindowEnd) {
		return rules.StandardPause + rules.OutOfWindowPenalty
	}

	if gap := end.Sub(start); gap > 0 {
		return gap
	}
	return rules.StandardPause
}

func sortTimes(ts []time.Time) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
}
