package presence

import (
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
)

// FillGaps supplies the default entry or exit time when exactly one side of
// the day is missing. Full absences are returned unchanged.
func FillGaps(rec presence.WorkdayRecord, rules presence.Rules) presence.WorkdayRecord {
	switch {
	case rec.IsFullAbsence():
	case rec.CheckIn == nil:
		rec.CheckIn = rules.DefaultEntry.Ptr()
	case rec.CheckOut == nil:
		rec.CheckOut = rules.DefaultExit.Ptr()
	}
	return rec
}
