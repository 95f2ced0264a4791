package presence

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
	"golang.org/x/sync/errgroup"
)

// Input is the pre-loaded data of one report run.
type Input struct {
	Events       []presence.RawEvent
	Configs      presence.ConfigSet
	Holidays     []presence.Holiday
	LeavePeriods []presence.LeavePeriod
}

// Builder drives a report run from raw punches to period aggregates.
type Builder struct {
	rules   presence.Rules
	workers int
	logger  *slog.Logger
}

func NewBuilder(rules presence.Rules, workers int, logger *slog.Logger) *Builder {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{rules: rules, workers: workers, logger: logger}
}

func (b *Builder) Rules() presence.Rules {
	return b.rules
}

// Build evaluates the run over period, or over every observed date when
// period is nil. A period without any workday yields an empty report.
func (b *Builder) Build(ctx context.Context, in Input, period *presence.Period) (presence.PeriodReport, error) {
	if err := validateInput(in); err != nil {
		return presence.PeriodReport{}, err
	}

	records := ReduceEvents(in.Events, b.rules)
	for i := range records {
		records[i] = FillGaps(records[i], b.rules)
	}

	var p presence.Period
	if period != nil {
		if period.End.Before(period.Start) {
			return presence.PeriodReport{}, presence.ErrInvalidPeriod
		}
		p = *period
		records = filterRecords(records, p)
	} else if len(records) > 0 {
		p = observedPeriod(records)
	}

	if len(records) == 0 {
		b.logger.Info("no workday in requested period", slog.String("period", p.String()))
		return presence.PeriodReport{Period: p, Empty: true}, nil
	}

	configs := b.resolveConfigs(records, in.Configs)

	rows := make([]presence.DailyLedgerRow, len(records))
	failed := make([]error, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows[i], failed[i] = Evaluate(EvaluationInput{
				Record: records[i],
				Config: configs[records[i].Employee],
				Rules:  b.rules,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return presence.PeriodReport{}, fmt.Errorf("evaluate rows: %w", err)
	}

	daily := make([]presence.DailyLedgerRow, 0, len(rows))
	var failures []presence.RowFailure
	for i, err := range failed {
		if err != nil {
			failures = append(failures, presence.RowFailure{
				Employee: records[i].Employee,
				Date:     records[i].Date,
				Reason:   err.Error(),
			})
			continue
		}
		daily = append(daily, rows[i])
	}
	if len(failures) > 0 {
		b.logger.Warn("some rows could not be evaluated", slog.Int("failures", len(failures)))
	}

	report := Aggregate(p, daily, in.Holidays, in.LeavePeriods, b.rules)
	report.Failures = failures
	return report, nil
}

// resolveConfigs looks every employee up once so missing entries are logged a
// single time and workers only read a plain map.
func (b *Builder) resolveConfigs(records []presence.WorkdayRecord, set presence.ConfigSet) map[string]presence.EmployeeConfig {
	configs := make(map[string]presence.EmployeeConfig)
	for _, rec := range records {
		if _, ok := configs[rec.Employee]; ok {
			continue
		}
		cfg, found := set.For(rec.Employee)
		if !found {
			// a zero ConfigSet carries no defaults
			if len(cfg.RestDays) == 0 {
				cfg.RestDays = append([]time.Weekday(nil), b.rules.DefaultRestDays...)
			}
			b.logger.Debug("no configuration for employee, using defaults", slog.String("employee", rec.Employee))
		}
		configs[rec.Employee] = cfg
	}
	return configs
}

// Aggregate derives every period table from an evaluated daily ledger. It is
// also used to re-aggregate a ledger after manual corrections.
func Aggregate(period presence.Period, daily []presence.DailyLedgerRow, holidays []presence.Holiday, leaves []presence.LeavePeriod, rules presence.Rules) presence.PeriodReport {
	report := presence.PeriodReport{
		Period: period,
		Daily:  daily,
		Empty:  len(daily) == 0,
	}

	report.WeeklyPenalties = WeeklyPenalties(daily, rules)
	report.NetAbsences, report.NetAbsenceTotals = NetAbsences(daily, holidays, leaves)
	report.Summaries = summarize(daily, report.WeeklyPenalties, report.NetAbsenceTotals)
	report.LeaveRegister = leaveRegister(leaves, period)
	report.Holidays = holidayDates(holidays, period)
	report.Totals = totals(daily)
	return report
}

func summarize(daily []presence.DailyLedgerRow, weekly []presence.WeeklyPenalty, absences []presence.NetAbsenceTotal) []presence.EmployeeSummary {
	index := make(map[string]int)
	var summaries []presence.EmployeeSummary
	for _, row := range daily {
		i, ok := index[row.Employee]
		if !ok {
			i = len(summaries)
			index[row.Employee] = i
			summaries = append(summaries, presence.EmployeeSummary{Employee: row.Employee})
		}
		s := &summaries[i]
		s.Retard += row.Retard
		s.DepartAnticipe += row.DepartAnticipe
		s.HeuresSup50 += row.HeuresSup50
		s.HeuresSup100 += row.HeuresSup100
		s.PauseEffective += row.PauseEffective
		s.TempsTravail += row.TempsTravail
		s.Penalites += row.Penalites
		if row.TempsTravail > 0 {
			s.DaysWorked++
		}
	}
	for _, w := range weekly {
		if i, ok := index[w.Employee]; ok {
			summaries[i].WeeklyPenalties += w.Penalty
		}
	}
	for _, a := range absences {
		if i, ok := index[a.Employee]; ok {
			summaries[i].NetAbsences = a.Count
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool { return summaries[i].Employee < summaries[j].Employee })
	return summaries
}

func leaveRegister(leaves []presence.LeavePeriod, period presence.Period) []presence.LeaveRegisterRow {
	var out []presence.LeaveRegisterRow
	for _, lp := range leaves {
		if !period.IsZero() && (utils.DateOf(lp.End).Before(utils.DateOf(period.Start)) || utils.DateOf(lp.Start).After(utils.DateOf(period.End))) {
			continue
		}
		out = append(out, presence.LeaveRegisterRow{
			Employee: lp.Employee,
			Type:     lp.Type,
			Start:    utils.DateOf(lp.Start),
			End:      utils.DateOf(lp.End),
			Days:     lp.Days(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Employee != out[j].Employee {
			return out[i].Employee < out[j].Employee
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

func holidayDates(holidays []presence.Holiday, period presence.Period) []time.Time {
	seen := make(map[time.Time]bool)
	var out []time.Time
	for _, h := range holidays {
		d := utils.DateOf(h.Date)
		if seen[d] || (!period.IsZero() && !period.Contains(d)) {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func totals(daily []presence.DailyLedgerRow) presence.ReportTotals {
	var t presence.ReportTotals
	employees := make(map[string]bool)
	for _, row := range daily {
		t.Retard += row.Retard
		t.HeuresSup50 += row.HeuresSup50
		t.HeuresSup100 += row.HeuresSup100
		t.TempsTravail += row.TempsTravail
		employees[row.Employee] = true
	}
	t.Rows = len(daily)
	t.Employees = len(employees)
	if t.Rows > 0 {
		t.AverageTempsTravail = t.TempsTravail / time.Duration(t.Rows)
	}
	return t
}

func filterRecords(records []presence.WorkdayRecord, p presence.Period) []presence.WorkdayRecord {
	out := records[:0]
	for _, rec := range records {
		if p.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	return out
}

func observedPeriod(records []presence.WorkdayRecord) presence.Period {
	p := presence.Period{Start: records[0].Date, End: records[0].Date}
	for _, rec := range records[1:] {
		if rec.Date.Before(p.Start) {
			p.Start = rec.Date
		}
		if rec.Date.After(p.End) {
			p.End = rec.Date
		}
	}
	return p
}

// validateInput rejects the batch on the first malformed record.
func validateInput(in Input) error {
	for i, ev := range in.Events {
		switch {
		case ev.Employee == "":
			return &presence.MalformedInputError{Source: "event", Row: i + 1, Field: "employee", Value: ev.Employee, Err: presence.ErrEmployeeRequired}
		case ev.Timestamp.IsZero():
			return &presence.MalformedInputError{Source: "event", Row: i + 1, Field: "timestamp", Value: ""}
		case ev.Direction != presence.DirectionIn && ev.Direction != presence.DirectionOut:
			return &presence.MalformedInputError{Source: "event", Row: i + 1, Field: "direction", Value: string(ev.Direction)}
		}
	}
	for i, h := range in.Holidays {
		if h.Date.IsZero() {
			return &presence.MalformedInputError{Source: "holiday", Row: i + 1, Field: "date", Value: ""}
		}
	}
	for i, lp := range in.LeavePeriods {
		switch {
		case lp.Start.IsZero() || lp.End.IsZero():
			return &presence.MalformedInputError{Source: "leave_period", Row: i + 1, Field: "date", Value: ""}
		case lp.End.Before(lp.Start):
			return &presence.MalformedInputError{Source: "leave_period", Row: i + 1, Field: "end_date",
				Value: lp.End.Format(utils.DateLayout), Err: presence.ErrInvalidPeriod}
		}
	}
	return nil
}
