package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rules = presence.DefaultRules()

// 2024-03-04 is a Monday.
func at(day int, clock string) time.Time {
	return utils.MustParseClock(clock).On(utils.NewDate(2024, 3, day))
}

func in(employee string, day int, clock string) presence.RawEvent {
	return presence.RawEvent{Employee: employee, Timestamp: at(day, clock), Direction: presence.DirectionIn}
}

func out(employee string, day int, clock string) presence.RawEvent {
	return presence.RawEvent{Employee: employee, Timestamp: at(day, clock), Direction: presence.DirectionOut}
}

func clk(s string) *utils.Clock {
	return utils.MustParseClock(s).Ptr()
}

func record(day int, checkIn, checkOut string, pause time.Duration) presence.WorkdayRecord {
	rec := presence.WorkdayRecord{Employee: "Alice", Date: utils.NewDate(2024, 3, day), PauseDuration: pause}
	if checkIn != "" {
		rec.CheckIn = clk(checkIn)
	}
	if checkOut != "" {
		rec.CheckOut = clk(checkOut)
	}
	return rec
}

func defaults(employee string) presence.EmployeeConfig {
	cfg, _ := presence.NewConfigBuilder(rules).Build().For(employee)
	return cfg
}

// ==================== REDUCER ====================

func TestReduceEvents_PauseRules(t *testing.T) {
	tests := []struct {
		name   string
		events []presence.RawEvent
		want   time.Duration
	}{
		{
			name:   "single in and out is a missing break",
			events: []presence.RawEvent{in("A", 4, "08:30"), out("A", 4, "17:00")},
			want:   75 * time.Minute,
		},
		{
			name: "break inside window uses real gap",
			events: []presence.RawEvent{
				in("A", 4, "08:30"), out("A", 4, "12:00"), in("A", 4, "12:40"), out("A", 4, "17:30"),
			},
			want: 40 * time.Minute,
		},
		{
			name: "break starting before window",
			events: []presence.RawEvent{
				in("A", 4, "08:30"), out("A", 4, "10:30"), in("A", 4, "11:15"), out("A", 4, "17:30"),
			},
			want: 55 * time.Minute,
		},
		{
			name: "window bounds are inclusive",
			events: []presence.RawEvent{
				in("A", 4, "08:30"), out("A", 4, "11:00"), in("A", 4, "16:00"), out("A", 4, "18:00"),
			},
			want: 5 * time.Hour,
		},
		{
			name: "second in before first out falls back to standard pause",
			events: []presence.RawEvent{
				in("A", 4, "08:30"), in("A", 4, "12:00"), out("A", 4, "12:30"), out("A", 4, "17:30"),
			},
			want: 45 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := ReduceEvents(tt.events, rules)
			require.Len(t, recs, 1)
			assert.Equal(t, tt.want, recs[0].PauseDuration)
		})
	}
}

func TestReduceEvents_CheckInOutAndCalendar(t *testing.T) {
	events := []presence.RawEvent{
		out("Bob", 4, "17:10"),
		in("Bob", 4, "08:40"),
		in("Bob", 4, "08:35"),
		out("Bob", 4, "16:55"),
		in("Alice", 7, "08:20"),
		out("Alice", 8, "17:00"), // Friday, not a working day
	}

	recs := ReduceEvents(events, rules)

	// Monday 4 .. Thursday 7 for two employees
	require.Len(t, recs, 8)
	assert.Equal(t, "Alice", recs[0].Employee)
	assert.True(t, recs[0].IsFullAbsence())
	assert.Equal(t, 45*time.Minute, recs[0].PauseDuration)

	alice := recs[3]
	assert.Equal(t, utils.NewDate(2024, 3, 7), alice.Date)
	assert.Equal(t, "08:20:00", alice.CheckIn.String())
	assert.Nil(t, alice.CheckOut)

	bob := recs[4]
	assert.Equal(t, "Bob", bob.Employee)
	assert.Equal(t, "08:35:00", bob.CheckIn.String())
	assert.Equal(t, "17:10:00", bob.CheckOut.String())
}

func TestReduceEvents_Empty(t *testing.T) {
	assert.Empty(t, ReduceEvents(nil, rules))
	assert.Empty(t, ReduceEvents([]presence.RawEvent{in("A", 8, "08:30")}, rules), "friday only")
}

// ==================== GAP FILLER ====================

func TestFillGaps(t *testing.T) {
	full := FillGaps(record(4, "", "", 45*time.Minute), rules)
	assert.True(t, full.IsFullAbsence())

	noIn := FillGaps(record(4, "", "17:00", 45*time.Minute), rules)
	assert.Equal(t, "09:30:00", noIn.CheckIn.String())

	noOut := FillGaps(record(4, "08:30", "", 45*time.Minute), rules)
	assert.Equal(t, "16:00:00", noOut.CheckOut.String())

	both := FillGaps(record(4, "08:00", "18:00", 45*time.Minute), rules)
	assert.Equal(t, "08:00:00", both.CheckIn.String())
	assert.Equal(t, "18:00:00", both.CheckOut.String())
}

// ==================== EVALUATOR ====================

func evaluate(t *testing.T, rec presence.WorkdayRecord, cfg presence.EmployeeConfig) presence.DailyLedgerRow {
	t.Helper()
	row, err := Evaluate(EvaluationInput{Record: rec, Config: cfg, Rules: rules})
	require.NoError(t, err)
	return row
}

func TestEvaluate_LateArrival(t *testing.T) {
	row := evaluate(t, record(4, "09:00", "17:00", 45*time.Minute), defaults("Alice"))

	assert.Equal(t, presence.StatusNormal, row.Status)
	assert.Equal(t, 75*time.Minute, row.Retard)
	assert.Equal(t, 7*time.Hour+15*time.Minute, row.TempsTravail)
	assert.Equal(t, 15*time.Minute, row.Penalites)
	assert.Zero(t, row.HeuresSup50)
	assert.Zero(t, row.HeuresSup100)
	assert.Zero(t, row.DepartAnticipe)
	assert.Equal(t, 45*time.Minute, row.PauseEffective)
}

func TestEvaluate_FullDay(t *testing.T) {
	row := evaluate(t, record(4, "08:30", "17:45", 45*time.Minute), defaults("Alice"))

	assert.Zero(t, row.Retard)
	assert.Equal(t, rules.StandardDuration, row.TempsTravail)
	assert.Zero(t, row.HeuresSup50)
	assert.Zero(t, row.Penalites)
}

func TestEvaluate_StandardHoursLeaveBalanceShort(t *testing.T) {
	row := evaluate(t, record(4, "08:30", "17:00", 45*time.Minute), defaults("Alice"))

	assert.Equal(t, 45*time.Minute, row.Retard)
	assert.Equal(t, 7*time.Hour+45*time.Minute, row.TempsTravail)
	assert.Zero(t, row.Penalites)
}

func TestEvaluate_Overtime(t *testing.T) {
	day := evaluate(t, record(4, "08:00", "19:15", 45*time.Minute), defaults("Alice"))
	assert.Equal(t, 2*time.Hour, day.HeuresSup50)
	assert.Zero(t, day.HeuresSup100)
	assert.Zero(t, day.Retard)

	night := evaluate(t, record(4, "08:30", "21:00", 45*time.Minute), defaults("Alice"))
	assert.Zero(t, night.HeuresSup50)
	assert.Equal(t, 3*time.Hour+15*time.Minute, night.HeuresSup100)
}

func TestEvaluate_EffectivePause(t *testing.T) {
	tolerated := evaluate(t, record(4, "08:30", "17:45", 50*time.Minute), defaults("Alice"))
	assert.Equal(t, 45*time.Minute, tolerated.PauseEffective)

	overrun := evaluate(t, record(4, "08:30", "17:45", 75*time.Minute), defaults("Alice"))
	assert.Equal(t, 75*time.Minute, overrun.PauseEffective)

	veryLate := evaluate(t, record(4, "11:30", "17:45", 10*time.Minute), defaults("Alice"))
	assert.Equal(t, 15*time.Minute, veryLate.PauseEffective)

	veryLateLongBreak := evaluate(t, record(4, "11:30", "17:45", 40*time.Minute), defaults("Alice"))
	assert.Equal(t, 40*time.Minute, veryLateLongBreak.PauseEffective)
}

func TestEvaluate_EarlyDepartureAndPenaltyThreshold(t *testing.T) {
	row := evaluate(t, record(4, "08:34", "16:00", 45*time.Minute), defaults("Alice"))
	assert.Equal(t, time.Hour, row.DepartAnticipe)
	assert.Zero(t, row.Penalites, "4 minutes late is under the threshold")

	row = evaluate(t, record(4, "08:35", "17:00", 45*time.Minute), defaults("Alice"))
	assert.Equal(t, 15*time.Minute, row.Penalites)
}

func TestEvaluate_ShortPresenceClampsToZero(t *testing.T) {
	row := evaluate(t, record(4, "09:30", "10:00", 45*time.Minute), defaults("Alice"))
	assert.Zero(t, row.TempsTravail)
	assert.Equal(t, rules.StandardDuration, row.Retard)
}

func TestEvaluate_StatusRules(t *testing.T) {
	b := presence.NewConfigBuilder(rules)
	b.SetContractEnd("Alice", utils.NewDate(2024, 3, 14))
	cfg, ok := b.Build().For("Alice")
	require.True(t, ok)

	inactive := evaluate(t, record(20, "08:30", "17:00", 45*time.Minute), cfg)
	assert.Equal(t, presence.StatusInactive, inactive.Status)
	assertZeroMetrics(t, inactive)

	lastDay := evaluate(t, record(14, "08:30", "17:45", 45*time.Minute), cfg)
	assert.Equal(t, presence.StatusNormal, lastDay.Status)

	// 2024-03-09 is a Saturday, a default rest day
	rest := evaluate(t, record(9, "08:30", "17:00", 45*time.Minute), defaults("Alice"))
	assert.Equal(t, presence.StatusRestDay, rest.Status)
	assertZeroMetrics(t, rest)
}

func TestEvaluate_FullAbsence(t *testing.T) {
	row := evaluate(t, record(4, "", "", 45*time.Minute), defaults("Alice"))
	assert.Equal(t, presence.StatusNormal, row.Status)
	assert.Zero(t, row.TempsTravail)
	assert.Zero(t, row.Retard)
	assert.Equal(t, 45*time.Minute, row.PauseEffective)
}

func TestEvaluate_InvalidRecord(t *testing.T) {
	_, err := Evaluate(EvaluationInput{Record: presence.WorkdayRecord{Date: utils.NewDate(2024, 3, 4)}, Rules: rules})
	assert.ErrorIs(t, err, presence.ErrInvalidRecord)

	_, err = Evaluate(EvaluationInput{Record: record(4, "08:30", "", 0), Config: defaults("Alice"), Rules: rules})
	assert.ErrorIs(t, err, presence.ErrInvalidRecord)
}

func assertZeroMetrics(t *testing.T, row presence.DailyLedgerRow) {
	t.Helper()
	for _, d := range []time.Duration{row.Retard, row.DepartAnticipe, row.HeuresSup50, row.HeuresSup100,
		row.PauseEffective, row.TempsTravail, row.Penalites} {
		assert.Zero(t, d)
	}
}

// ==================== WEEKLY ====================

func ledgerRow(employee string, day int, checkIn string, status presence.DayStatus) presence.DailyLedgerRow {
	return presence.DailyLedgerRow{
		Employee: employee,
		Date:     utils.NewDate(2024, 3, day),
		CheckIn:  clk(checkIn),
		Status:   status,
	}
}

func TestWeeklyPenalties(t *testing.T) {
	rows := []presence.DailyLedgerRow{
		ledgerRow("Alice", 4, "08:40", presence.StatusNormal),
		ledgerRow("Alice", 5, "08:35", presence.StatusNormal),
		ledgerRow("Alice", 6, "09:10", presence.StatusNormal),
		ledgerRow("Alice", 7, "08:20", presence.StatusNormal), // 10m early still counts
		ledgerRow("Alice", 11, "08:50", presence.StatusNormal),
		ledgerRow("Alice", 12, "10:00", presence.StatusRestDay),
		ledgerRow("Bob", 4, "08:34", presence.StatusNormal),
		ledgerRow("Bob", 5, "08:26", presence.StatusNormal),
		ledgerRow("Carol", 4, "08:00", presence.StatusNormal),
		ledgerRow("Carol", 5, "08:10", presence.StatusNormal),
		ledgerRow("Carol", 6, "08:20", presence.StatusNormal),
	}

	got := WeeklyPenalties(rows, rules)
	require.Len(t, got, 4)

	assert.Equal(t, presence.WeeklyPenalty{Employee: "Alice", ISOYear: 2024, ISOWeek: 10, LateCount: 4, Penalty: 45 * time.Minute}, got[0])
	assert.Equal(t, presence.WeeklyPenalty{Employee: "Alice", ISOYear: 2024, ISOWeek: 11, LateCount: 1}, got[1])
	assert.Equal(t, presence.WeeklyPenalty{Employee: "Bob", ISOYear: 2024, ISOWeek: 10}, got[2], "within 5m either side")
	assert.Equal(t, presence.WeeklyPenalty{Employee: "Carol", ISOYear: 2024, ISOWeek: 10, LateCount: 3, Penalty: 30 * time.Minute}, got[3])
}

// ==================== ABSENCES ====================

func TestNetAbsences(t *testing.T) {
	absent := func(employee string, day int, status presence.DayStatus) presence.DailyLedgerRow {
		return presence.DailyLedgerRow{Employee: employee, Date: utils.NewDate(2024, 3, day), Status: status}
	}
	rows := []presence.DailyLedgerRow{
		absent("Alice", 4, presence.StatusNormal),    // holiday
		absent("Alice", 5, presence.StatusNormal),    // leave
		absent("Alice", 6, presence.StatusNormal),    // second overlapping leave
		absent("Alice", 7, presence.StatusNormal),    // net
		absent("Alice", 9, presence.StatusRestDay),   // rest day
		absent("Alice", 10, presence.StatusInactive), // inactive
		absent("Bob", 5, presence.StatusNormal),      // Alice's leave does not cover Bob
		{Employee: "Bob", Date: utils.NewDate(2024, 3, 6), Status: presence.StatusNormal, TempsTravail: time.Hour},
	}
	holidays := []presence.Holiday{{Date: utils.NewDate(2024, 3, 4)}}
	leaves := []presence.LeavePeriod{
		{Employee: "Alice", Start: utils.NewDate(2024, 3, 5), End: utils.NewDate(2024, 3, 5), Type: presence.LeaveAnnual},
		{Employee: "Alice", Start: utils.NewDate(2024, 3, 5), End: utils.NewDate(2024, 3, 6), Type: presence.LeaveSick},
	}

	absences, totals := NetAbsences(rows, holidays, leaves)

	assert.Equal(t, []presence.NetAbsenceRow{
		{Employee: "Alice", Date: utils.NewDate(2024, 3, 7)},
		{Employee: "Bob", Date: utils.NewDate(2024, 3, 5)},
	}, absences)
	assert.Equal(t, []presence.NetAbsenceTotal{{Employee: "Alice", Count: 1}, {Employee: "Bob", Count: 1}}, totals)
}

// ==================== REST DAYS ====================

func TestDetectRestDays(t *testing.T) {
	var recs []presence.WorkdayRecord
	// Four Sundays absent for Alice, one absent Monday
	for _, day := range []int{3, 10, 17, 24} {
		recs = append(recs, presence.WorkdayRecord{Employee: "Alice", Date: utils.NewDate(2024, 3, day)})
	}
	recs = append(recs, presence.WorkdayRecord{Employee: "Alice", Date: utils.NewDate(2024, 3, 4)})
	recs = append(recs, record(5, "08:30", "17:00", 0))
	recs = append(recs, presence.WorkdayRecord{Employee: "Bob", Date: utils.NewDate(2024, 3, 4), CheckIn: clk("08:30")})

	got := DetectRestDays(recs, rules)
	require.Len(t, got, 2)

	assert.Equal(t, "Alice", got[0].Employee)
	assert.Equal(t, []int{6}, got[0].RestDays)
	assert.Equal(t, []string{"Sunday"}, got[0].Labels)
	assert.Equal(t, 4, got[0].Absences["Sunday"])

	assert.Equal(t, "Bob", got[1].Employee)
	assert.Equal(t, []int{4, 5}, got[1].RestDays, "defaults to Friday and Saturday")
}

// ==================== BUILDER ====================

func monthOfEvents() []presence.RawEvent {
	return []presence.RawEvent{
		// Alice: Mon on time with a full day, Tue late, Wed late, Thu absent
		in("Alice", 4, "08:30"), out("Alice", 4, "12:00"), in("Alice", 4, "12:45"), out("Alice", 4, "17:45"),
		in("Alice", 5, "09:00"), out("Alice", 5, "17:00"),
		in("Alice", 6, "08:45"), out("Alice", 6, "17:00"),
		// Bob: Mon only, contract ends Mon
		in("Bob", 4, "08:30"), out("Bob", 4, "17:45"),
		in("Bob", 7, "08:30"),
	}
}

func TestBuilder_Build(t *testing.T) {
	b := presence.NewConfigBuilder(rules)
	b.SetContractEnd("Bob", utils.NewDate(2024, 3, 4))

	builder := NewBuilder(rules, 4, nil)
	rep, err := builder.Build(context.Background(), Input{
		Events:  monthOfEvents(),
		Configs: b.Build(),
		LeavePeriods: []presence.LeavePeriod{
			{Employee: "Bob", Start: utils.NewDate(2024, 3, 1), End: utils.NewDate(2024, 3, 5), Type: presence.LeaveUnpaid},
		},
	}, nil)
	require.NoError(t, err)

	assert.False(t, rep.Empty)
	assert.Equal(t, utils.NewDate(2024, 3, 4), rep.Period.Start)
	assert.Equal(t, utils.NewDate(2024, 3, 7), rep.Period.End)
	require.Len(t, rep.Daily, 8)
	assert.Empty(t, rep.Failures)

	require.Len(t, rep.Summaries, 2)
	alice := rep.Summaries[0]
	assert.Equal(t, "Alice", alice.Employee)
	assert.Equal(t, 3, alice.DaysWorked)
	assert.Equal(t, 1, alice.NetAbsences)
	assert.Equal(t, 30*time.Minute, alice.Penalites)
	assert.Equal(t, 15*time.Minute, alice.WeeklyPenalties)

	bob := rep.Summaries[1]
	assert.Equal(t, 1, bob.DaysWorked)
	assert.Zero(t, bob.NetAbsences, "days after the contract end are not absences")

	require.Len(t, rep.LeaveRegister, 1)
	assert.Equal(t, 5, rep.LeaveRegister[0].Days)

	assert.Equal(t, 8, rep.Totals.Rows)
	assert.Equal(t, 2, rep.Totals.Employees)
	assert.Equal(t, rep.Totals.TempsTravail/8, rep.Totals.AverageTempsTravail)

	for _, row := range rep.Daily {
		if row.Status != presence.StatusNormal {
			assertZeroMetrics(t, row)
			continue
		}
		assert.LessOrEqual(t, row.TempsTravail, rules.StandardDuration)
		assert.False(t, row.Retard > 0 && row.Overtime() > 0)
	}
}

func TestBuilder_WithoutConfigsUsesDefaultRestDays(t *testing.T) {
	// 2024-03-02 is a Saturday, 2024-03-04 a Monday
	events := []presence.RawEvent{
		in("Alice", 2, "08:30"), out("Alice", 2, "17:15"),
		in("Alice", 4, "08:30"), out("Alice", 4, "17:15"),
	}

	rep, err := NewBuilder(rules, 1, nil).Build(context.Background(), Input{Events: events}, nil)
	require.NoError(t, err)

	byDay := make(map[int]presence.DailyLedgerRow)
	for _, row := range rep.Daily {
		byDay[row.Date.Day()] = row
	}
	require.Contains(t, byDay, 2)
	assert.Equal(t, presence.StatusRestDay, byDay[2].Status)
	assertZeroMetrics(t, byDay[2])
	assert.Equal(t, presence.StatusNormal, byDay[4].Status)
	assert.Equal(t, 8*time.Hour, byDay[4].TempsTravail)
}

func TestBuilder_Deterministic(t *testing.T) {
	in := Input{Events: monthOfEvents(), Configs: presence.NewConfigBuilder(rules).Build()}

	first, err := NewBuilder(rules, 1, nil).Build(context.Background(), in, nil)
	require.NoError(t, err)
	second, err := NewBuilder(rules, 8, nil).Build(context.Background(), in, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuilder_PeriodFilterAndEmpty(t *testing.T) {
	builder := NewBuilder(rules, 2, nil)
	in := Input{Events: monthOfEvents(), Configs: presence.NewConfigBuilder(rules).Build()}

	oneDay := presence.Period{Start: utils.NewDate(2024, 3, 5), End: utils.NewDate(2024, 3, 5)}
	rep, err := builder.Build(context.Background(), in, &oneDay)
	require.NoError(t, err)
	assert.Len(t, rep.Daily, 2)

	april := presence.MonthPeriod(2024, time.April)
	rep, err = builder.Build(context.Background(), in, &april)
	require.NoError(t, err)
	assert.True(t, rep.Empty)
	assert.Empty(t, rep.Daily)

	backwards := presence.Period{Start: utils.NewDate(2024, 3, 5), End: utils.NewDate(2024, 3, 1)}
	_, err = builder.Build(context.Background(), in, &backwards)
	assert.ErrorIs(t, err, presence.ErrInvalidPeriod)
}

func TestBuilder_MalformedInput(t *testing.T) {
	builder := NewBuilder(rules, 2, nil)

	_, err := builder.Build(context.Background(), Input{
		Events: []presence.RawEvent{in("Alice", 4, "08:30"), {Employee: "Alice", Direction: presence.DirectionOut}},
	}, nil)
	require.Error(t, err)
	var mErr *presence.MalformedInputError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, 2, mErr.Row)
	assert.ErrorIs(t, err, presence.ErrMalformedInput)

	_, err = builder.Build(context.Background(), Input{
		Events: monthOfEvents(),
		LeavePeriods: []presence.LeavePeriod{
			{Employee: "Alice", Start: utils.NewDate(2024, 3, 6), End: utils.NewDate(2024, 3, 5)},
		},
	}, nil)
	assert.ErrorIs(t, err, presence.ErrMalformedInput)
}

func TestBuilder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(rules, 1, nil).Build(ctx, Input{Events: monthOfEvents()}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
