package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

// ==================== TRANSACTIONS ====================

func TestWithTransaction_Commit(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE reports").WithArgs("r-1", "reports/r-1.xlsx").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	repo := NewReportRepository(mock)
	err := WithTransaction(context.Background(), mock, func(ctx context.Context) error {
		return repo.UpdateFilePath(ctx, "r-1", "reports/r-1.xlsx")
	})
	assert.NoError(t, err)
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := WithTransaction(context.Background(), mock, func(ctx context.Context) error {
		// nested calls join the outer transaction
		return WithTransaction(ctx, mock, func(ctx context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)
}

// ==================== EMPLOYEE CONFIG ====================

func TestEmployeeConfigRepository_Upsert(t *testing.T) {
	mock := newMock(t)
	repo := NewEmployeeConfigRepository(mock)

	end := utils.NewDate(2024, 6, 30)
	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO employee_configs").
		WithArgs("Alice", []int32{4, 6}, &end).
		WillReturnRows(pgxmock.NewRows([]string{"employee", "rest_days", "contract_end", "updated_at"}).
			AddRow("Alice", []int32{4, 6}, &end, now))

	saved, err := repo.Upsert(context.Background(), presence.EmployeeConfig{
		Employee:    "Alice",
		RestDays:    []time.Weekday{time.Sunday, time.Friday},
		ContractEnd: &end,
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Friday, time.Sunday}, saved.RestDays)
	assert.Equal(t, end, *saved.ContractEnd)
	assert.Equal(t, now, saved.UpdatedAt)
}

func TestEmployeeConfigRepository_GetByEmployee(t *testing.T) {
	mock := newMock(t)
	repo := NewEmployeeConfigRepository(mock)

	mock.ExpectQuery("FROM employee_configs").WithArgs("bob").WillReturnError(pgx.ErrNoRows)
	_, err := repo.GetByEmployee(context.Background(), "bob")
	assert.ErrorIs(t, err, presence.ErrConfigNotFound)

	mock.ExpectQuery("FROM employee_configs").WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"employee", "rest_days", "contract_end", "updated_at"}).
			AddRow("Alice", []int32{9}, (*time.Time)(nil), time.Now()))
	_, err = repo.GetByEmployee(context.Background(), "alice")
	assert.Error(t, err, "weekday index out of range")
}

func TestEmployeeConfigRepository_List(t *testing.T) {
	mock := newMock(t)
	repo := NewEmployeeConfigRepository(mock)

	now := time.Now()
	mock.ExpectQuery("FROM employee_configs").
		WillReturnRows(pgxmock.NewRows([]string{"employee", "rest_days", "contract_end", "updated_at"}).
			AddRow("Alice", []int32{6}, (*time.Time)(nil), now).
			AddRow("Bob", []int32{}, (*time.Time)(nil), now))

	configs, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, []time.Weekday{time.Sunday}, configs[0].RestDays)
	assert.Empty(t, configs[1].RestDays)
	assert.Nil(t, configs[1].ContractEnd)
}

// ==================== HOLIDAYS ====================

func TestHolidayRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewHolidayRepository(mock)

	date := utils.NewDate(2024, 5, 1)
	mock.ExpectExec("INSERT INTO holidays").
		WithArgs(pgxmock.AnyArg(), date, "Labour Day").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	h, err := repo.Create(context.Background(), presence.Holiday{Date: date, Name: "Labour Day"})
	require.NoError(t, err)
	assert.Len(t, h.ID, 36)
}

func TestHolidayRepository_ListBounds(t *testing.T) {
	mock := newMock(t)
	repo := NewHolidayRepository(mock)

	from, to := utils.NewDate(2024, 1, 1), utils.NewDate(2024, 12, 31)
	mock.ExpectQuery(`WHERE date >= \$1 AND date <= \$2`).
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows([]string{"id", "date", "name"}).
			AddRow("h-1", utils.NewDate(2024, 5, 1), "Labour Day"))

	holidays, err := repo.List(context.Background(), &from, &to)
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.Equal(t, "Labour Day", holidays[0].Name)

	mock.ExpectQuery(`FROM holidays ORDER BY date`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "date", "name"}))
	holidays, err = repo.List(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, holidays)
}

// ==================== LEAVE PERIODS ====================

func TestLeavePeriodRepository(t *testing.T) {
	mock := newMock(t)
	repo := NewLeavePeriodRepository(mock)
	ctx := context.Background()

	start, end := utils.NewDate(2024, 3, 4), utils.NewDate(2024, 3, 8)
	mock.ExpectExec("INSERT INTO leave_periods").
		WithArgs(pgxmock.AnyArg(), "Alice", start, end, "sick").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := repo.Create(ctx, presence.LeavePeriod{Employee: "Alice", Start: start, End: end, Type: presence.LeaveSick})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	from := utils.NewDate(2024, 3, 1)
	mock.ExpectQuery(`WHERE lower\(employee\) = lower\(\$1\) AND end_date >= \$2`).
		WithArgs("Alice", from).
		WillReturnRows(pgxmock.NewRows([]string{"id", "employee", "start_date", "end_date", "type"}).
			AddRow(created.ID, "Alice", start, end, "sick"))

	periods, err := repo.List(ctx, presence.LeavePeriodFilter{Employee: "Alice", From: &from})
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, presence.LeaveSick, periods[0].Type)

	mock.ExpectQuery("FROM leave_periods").
		WillReturnRows(pgxmock.NewRows([]string{"id", "employee", "start_date", "end_date", "type"}).
			AddRow("x", "Alice", start, end, "sabbatical"))
	_, err = repo.List(ctx, presence.LeavePeriodFilter{})
	assert.ErrorIs(t, err, presence.ErrUnknownLeaveType)
}

// ==================== REPORTS ====================

func TestReportRepository_CreateAndGet(t *testing.T) {
	mock := newMock(t)
	repo := NewReportRepository(mock)
	ctx := context.Background()

	period := presence.MonthPeriod(2024, time.March)
	payload := presence.PeriodReport{
		Period: period,
		Daily: []presence.DailyLedgerRow{{
			Employee: "Alice", Date: utils.NewDate(2024, 3, 4),
			CheckIn: utils.NewClock(9, 0, 0).Ptr(), CheckOut: utils.NewClock(17, 0, 0).Ptr(),
			Retard: 75 * time.Minute, Status: presence.StatusNormal,
		}},
	}
	created := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO reports").
		WithArgs(pgxmock.AnyArg(), (*string)(nil), "march.xlsx", period.Start, period.End, pgxmock.AnyArg(), "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	r, err := repo.Create(ctx, report.Report{SourceFile: "march.xlsx", Period: period, Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, created, r.CreatedAt)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	mock.ExpectQuery("FROM reports WHERE id").WithArgs(r.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "parent_id", "source_file", "period_start", "period_end", "payload", "file_path", "created_at"}).
			AddRow(r.ID, (*string)(nil), "march.xlsx", period.Start, period.End, raw, "reports/x.xlsx", created))

	got, err := repo.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, payload, got.Payload)
	assert.Equal(t, "reports/x.xlsx", got.FilePath)

	mock.ExpectQuery("FROM reports WHERE id").WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, report.ErrReportNotFound)
}

func TestReportRepository_UpdateFilePathNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewReportRepository(mock)

	mock.ExpectExec("UPDATE reports").WithArgs("r-1", "p").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.UpdateFilePath(context.Background(), "r-1", "p"), report.ErrReportNotFound)
}

func TestReportRepository_DeleteOlderThan(t *testing.T) {
	mock := newMock(t)
	repo := NewReportRepository(mock)

	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("DELETE FROM reports").WithArgs(cutoff).
		WillReturnRows(pgxmock.NewRows([]string{"id", "file_path", "created_at"}).
			AddRow("r-1", "reports/r-1.xlsx", cutoff.AddDate(0, -1, 0)).
			AddRow("r-2", "", cutoff.AddDate(0, -2, 0)))

	deleted, err := repo.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, deleted, 2)
	assert.Equal(t, "reports/r-1.xlsx", deleted[0].FilePath)
}

// ==================== MODIFICATIONS ====================

func TestModificationRepository(t *testing.T) {
	mock := newMock(t)
	repo := NewModificationRepository(mock)
	ctx := context.Background()

	date := utils.NewDate(2024, 3, 4)
	reason := "badge failure"
	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO report_modifications").
		WithArgs(pgxmock.AnyArg(), "r-1", "Alice", date, "retard", "01:15", "00:00", &reason).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	mods, err := repo.CreateBatch(ctx, []report.Modification{{
		ReportID: "r-1", Employee: "Alice", Date: date, Field: report.FieldRetard,
		OldValue: "01:15", NewValue: "00:00", Reason: &reason,
	}})
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, now, mods[0].CreatedAt)

	empty, err := repo.CreateBatch(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	columns := []string{"id", "report_id", "employee", "date", "field", "old_value", "new_value", "reason", "created_at"}
	mock.ExpectQuery("WHERE lower\\(employee\\)").WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(mods[0].ID, "r-1", "Alice", date, "retard", "01:15", "00:00", &reason, now))

	history, err := repo.ListByEmployee(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, report.FieldRetard, history[0].Field)
	assert.Equal(t, reason, *history[0].Reason)

	mock.ExpectQuery("WHERE report_id").WithArgs("r-1").
		WillReturnRows(pgxmock.NewRows(columns))
	byReport, err := repo.ListByReport(ctx, "r-1")
	require.NoError(t, err)
	assert.Empty(t, byReport)
}
