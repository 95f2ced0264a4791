package report

import (
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
)

// Report is a stored analysis run. Payload holds the evaluated period so a
// report can be served again or corrected without the source punches.
type Report struct {
	ID         string
	ParentID   *string
	SourceFile string
	Period     presence.Period
	Payload    presence.PeriodReport
	FilePath   string
	CreatedAt  time.Time
}

// Modification is one manual correction of a ledger cell.
type Modification struct {
	ID        string
	ReportID  string
	Employee  string
	Date      time.Time
	Field     Field
	OldValue  string
	NewValue  string
	Reason    *string
	CreatedAt time.Time
}

// Field names a correctable column of the daily ledger.
type Field string

const (
	FieldRetard         Field = "retard"
	FieldDepartAnticipe Field = "depart_anticipe"
	FieldHeuresSup50    Field = "heures_sup_50"
	FieldHeuresSup100   Field = "heures_sup_100"
	FieldPauseEffective Field = "pause_effective"
	FieldTempsTravail   Field = "temps_travail"
	FieldPenalites      Field = "penalites"
)

var fields = []Field{
	FieldRetard, FieldDepartAnticipe, FieldHeuresSup50, FieldHeuresSup100,
	FieldPauseEffective, FieldTempsTravail, FieldPenalites,
}

func Fields() []Field {
	return fields
}

func (f Field) Valid() bool {
	for _, known := range fields {
		if f == known {
			return true
		}
	}
	return false
}

// Ref returns the ledger cell the field designates.
func (f Field) Ref(row *presence.DailyLedgerRow) *time.Duration {
	switch f {
	case FieldRetard:
		return &row.Retard
	case FieldDepartAnticipe:
		return &row.DepartAnticipe
	case FieldHeuresSup50:
		return &row.HeuresSup50
	case FieldHeuresSup100:
		return &row.HeuresSup100
	case FieldPauseEffective:
		return &row.PauseEffective
	case FieldTempsTravail:
		return &row.TempsTravail
	case FieldPenalites:
		return &row.Penalites
	}
	return nil
}
