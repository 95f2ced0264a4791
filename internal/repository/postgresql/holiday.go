package postgresql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/google/uuid"
)

type holidayRepositoryImpl struct {
	db database.Conn
}

func NewHolidayRepository(db database.Conn) presence.HolidayRepository {
	return &holidayRepositoryImpl{db: db}
}

// Create implements presence.HolidayRepository.
func (r *holidayRepositoryImpl) Create(ctx context.Context, h presence.Holiday) (presence.Holiday, error) {
	q := GetQuerier(ctx, r.db)

	id, err := uuid.NewV7()
	if err != nil {
		return presence.Holiday{}, fmt.Errorf("generate holiday id: %w", err)
	}
	h.ID = id.String()

	query := `
		INSERT INTO holidays (id, date, name, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	if _, err := q.Exec(ctx, query, h.ID, h.Date, h.Name); err != nil {
		return presence.Holiday{}, err
	}
	return h, nil
}

// List implements presence.HolidayRepository. Nil bounds are open.
func (r *holidayRepositoryImpl) List(ctx context.Context, from, to *time.Time) ([]presence.Holiday, error) {
	q := GetQuerier(ctx, r.db)

	var (
		conditions []string
		args       []interface{}
	)
	if from != nil {
		args = append(args, *from)
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}

	query := `SELECT id, date, name FROM holidays`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []presence.Holiday
	for rows.Next() {
		var h presence.Holiday
		if err := rows.Scan(&h.ID, &h.Date, &h.Name); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}
