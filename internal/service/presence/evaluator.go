package presence

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
)

// EvaluationInput is everything needed to evaluate one employee-day.
type EvaluationInput struct {
	Record presence.WorkdayRecord
	Config presence.EmployeeConfig
	Rules  presence.Rules
}

// Evaluate turns one gap-filled WorkdayRecord into its ledger row.
func Evaluate(in EvaluationInput) (presence.DailyLedgerRow, error) {
	rec, rules := in.Record, in.Rules
	if rec.Employee == "" || rec.Date.IsZero() {
		return presence.DailyLedgerRow{}, presence.ErrInvalidRecord
	}
	if (rec.CheckIn == nil) != (rec.CheckOut == nil) {
		return presence.DailyLedgerRow{}, fmt.Errorf("%w: only one punch on %s, gaps must be filled first",
			presence.ErrInvalidRecord, rec.Date.Format(utils.DateLayout))
	}

	row := presence.DailyLedgerRow{
		Employee: rec.Employee,
		Date:     rec.Date,
		CheckIn:  rec.CheckIn,
		CheckOut: rec.CheckOut,
		Status:   presence.StatusNormal,
	}

	if !in.Config.IsActive(rec.Date) {
		row.Status = presence.StatusInactive
		return row, nil
	}
	if in.Config.IsRestDay(rec.Date) {
		row.Status = presence.StatusRestDay
		return row, nil
	}
	if rec.IsFullAbsence() {
		row.PauseEffective = rules.StandardPause
		return row, nil
	}

	checkIn, checkOut := *rec.CheckIn, *rec.CheckOut
	lateness := arrivalLateness(checkIn, rules)

	working := utils.TimeDiff(checkIn, checkOut) - rules.StandardPause
	if working < 0 {
		working = 0
	}
	if working >= rules.StandardDuration {
		row.TempsTravail = rules.StandardDuration
		excess := working - rules.StandardDuration
		if !checkOut.Before(rules.NightThreshold) {
			row.HeuresSup100 = excess
		} else {
			row.HeuresSup50 = excess
		}
	} else {
		row.Retard = rules.StandardDuration - working
		row.TempsTravail = working
	}

	row.PauseEffective = effectivePause(rec.PauseDuration, lateness, rules)

	if checkOut.Before(rules.StandardEnd) {
		row.DepartAnticipe = utils.TimeDiff(checkOut, rules.StandardEnd)
	}

	if lateness >= rules.LateThreshold {
		row.Penalites = rules.LatePenalty
	}

	return row, nil
}

// arrivalLateness is the time past the standard start, zero for on-time arrivals.
func arrivalLateness(checkIn utils.Clock, rules presence.Rules) time.Duration {
	if !checkIn.After(rules.StandardStart) {
		return 0
	}
	return utils.TimeDiff(rules.StandardStart, checkIn)
}

func effectivePause(pause, lateness time.Duration, rules presence.Rules) time.Duration {
	if lateness >= rules.LargeLateThreshold {
		if pause > rules.ReducedPause {
			return pause
		}
		return rules.ReducedPause
	}
	if pause <= rules.PauseTolerance {
		return rules.StandardPause
	}
	return pause
}
