package services

//go:generate mockgen -source=shift_store.go -destination=mocks/mock_shift_store.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taxi-shifts/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ShiftStore is everything the state machine needs from persistence.
// Mutations are guarded by the expected current state; a row that no longer
// matches yields models.ErrShiftConflict.
type ShiftStore interface {
	LoadOpen(ctx context.Context, driverID int64) (*models.Shift, error)
	ListOpen(ctx context.Context) ([]models.Shift, error)
	Create(ctx context.Context, driverID int64, start time.Time) (*models.Shift, error)
	MarkPaused(ctx context.Context, shiftID int64, pauseStart time.Time) error
	MarkResumed(ctx context.Context, shiftID int64, pauseSeconds int64) error
	MarkAwaitingCash(ctx context.Context, shiftID int64, end time.Time, pauseSeconds, workedSeconds int64, durationText string) error
	Finalize(ctx context.Context, shiftID int64, cash, hourlyRate int64, durationText string) error
	Demote(ctx context.Context, shiftID int64) error
	ListStaleAwaiting(ctx context.Context, createdBefore time.Time) ([]models.Shift, error)
	ForceComplete(ctx context.Context, shiftID int64, end time.Time, workedSeconds int64, durationText string) error
}

const shiftColumns = `id, driver_id, start_time, end_time, duration_text, duration_seconds,
	cash, hourly_rate, is_active, is_paused, pause_start_time, pause_duration_seconds,
	awaiting_cash_input, created_at`

const openShiftPredicate = `(is_active OR awaiting_cash_input)`

type PgShiftStore struct {
	pool *pgxpool.Pool
}

func NewPgShiftStore(pool *pgxpool.Pool) *PgShiftStore {
	return &PgShiftStore{pool: pool}
}

func scanShift(row pgx.Row) (*models.Shift, error) {
	var (
		s               models.Shift
		start           *time.Time
		durationText    *string
		durationSeconds *int64
	)
	err := row.Scan(
		&s.ID, &s.DriverID, &start, &s.EndTime, &durationText, &durationSeconds,
		&s.Cash, &s.HourlyRate, &s.IsActive, &s.IsPaused, &s.PauseStartTime, &s.PauseDurationSeconds,
		&s.AwaitingCashInput, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	// a NULL start_time is left zero so the machine can reject the row instead of failing the scan
	if start != nil {
		s.StartTime = *start
	}
	if durationText != nil {
		s.DurationText = *durationText
	}
	if durationSeconds != nil {
		s.DurationSeconds = *durationSeconds
	}
	return &s, nil
}

func collectShifts(rows pgx.Rows) ([]models.Shift, error) {
	defer rows.Close()
	var out []models.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func expectOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrShiftConflict
	}
	return nil
}

// LoadOpen returns the newest open shift for the driver, or nil if there is none.
func (s *PgShiftStore) LoadOpen(ctx context.Context, driverID int64) (*models.Shift, error) {
	shift, err := scanShift(s.pool.QueryRow(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE driver_id = $1 AND `+openShiftPredicate+`
		ORDER BY start_time DESC
		LIMIT 1`,
		driverID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load open shift: %w", err)
	}
	return shift, nil
}

func (s *PgShiftStore) ListOpen(ctx context.Context) ([]models.Shift, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE `+openShiftPredicate+`
		ORDER BY driver_id, start_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("list open shifts: %w", err)
	}
	return collectShifts(rows)
}

// Create closes any shift the driver still has open and inserts a new active one, atomically.
func (s *PgShiftStore) Create(ctx context.Context, driverID int64, start time.Time) (*models.Shift, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE shifts SET
			is_active = false,
			is_paused = false,
			pause_start_time = NULL,
			awaiting_cash_input = false,
			end_time = COALESCE(end_time, $2),
			duration_seconds = COALESCE(duration_seconds,
				GREATEST(0, EXTRACT(EPOCH FROM ($2 - start_time))::bigint - pause_duration_seconds)),
			cash = COALESCE(cash, 0),
			hourly_rate = COALESCE(hourly_rate, 0)
		WHERE driver_id = $1 AND `+openShiftPredicate,
		driverID, start,
	)
	if err != nil {
		return nil, fmt.Errorf("close leftover shifts: %w", err)
	}

	shift, err := scanShift(tx.QueryRow(ctx, `
		INSERT INTO shifts (driver_id, start_time, is_active, is_paused, pause_duration_seconds, awaiting_cash_input)
		VALUES ($1, $2, true, false, 0, false)
		RETURNING `+shiftColumns,
		driverID, start,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.ErrShiftConflict
		}
		return nil, fmt.Errorf("insert shift: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return shift, nil
}

func (s *PgShiftStore) MarkPaused(ctx context.Context, shiftID int64, pauseStart time.Time) error {
	return expectOne(s.pool.Exec(ctx, `
		UPDATE shifts SET is_paused = true, pause_start_time = $2
		WHERE id = $1 AND is_active AND NOT is_paused AND NOT awaiting_cash_input`,
		shiftID, pauseStart,
	))
}

func (s *PgShiftStore) MarkResumed(ctx context.Context, shiftID int64, pauseSeconds int64) error {
	return expectOne(s.pool.Exec(ctx, `
		UPDATE shifts SET is_paused = false, pause_start_time = NULL, pause_duration_seconds = $2
		WHERE id = $1 AND is_active AND is_paused AND pause_duration_seconds <= $2`,
		shiftID, pauseSeconds,
	))
}

func (s *PgShiftStore) MarkAwaitingCash(ctx context.Context, shiftID int64, end time.Time, pauseSeconds, workedSeconds int64, durationText string) error {
	return expectOne(s.pool.Exec(ctx, `
		UPDATE shifts SET
			is_active = false,
			is_paused = false,
			pause_start_time = NULL,
			pause_duration_seconds = $3,
			awaiting_cash_input = true,
			end_time = $2,
			duration_seconds = $4,
			duration_text = $5
		WHERE id = $1 AND is_active AND pause_duration_seconds <= $3`,
		shiftID, end, pauseSeconds, workedSeconds, durationText,
	))
}

func (s *PgShiftStore) Finalize(ctx context.Context, shiftID int64, cash, hourlyRate int64, durationText string) error {
	return expectOne(s.pool.Exec(ctx, `
		UPDATE shifts SET
			awaiting_cash_input = false,
			cash = $2,
			hourly_rate = $3,
			duration_text = $4
		WHERE id = $1 AND awaiting_cash_input`,
		shiftID, cash, hourlyRate, durationText,
	))
}

// Demote puts an awaiting-cash shift without a usable end time back to active.
func (s *PgShiftStore) Demote(ctx context.Context, shiftID int64) error {
	return expectOne(s.pool.Exec(ctx, `
		UPDATE shifts SET
			is_active = true,
			is_paused = false,
			pause_start_time = NULL,
			awaiting_cash_input = false,
			end_time = NULL,
			duration_seconds = NULL,
			duration_text = NULL
		WHERE id = $1 AND awaiting_cash_input`,
		shiftID,
	))
}

func (s *PgShiftStore) ListStaleAwaiting(ctx context.Context, createdBefore time.Time) ([]models.Shift, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE awaiting_cash_input AND created_at < $1
		ORDER BY created_at`,
		createdBefore,
	)
	if err != nil {
		return nil, fmt.Errorf("list stale shifts: %w", err)
	}
	return collectShifts(rows)
}

func (s *PgShiftStore) ForceComplete(ctx context.Context, shiftID int64, end time.Time, workedSeconds int64, durationText string) error {
	return expectOne(s.pool.Exec(ctx, `
		UPDATE shifts SET
			is_active = false,
			is_paused = false,
			pause_start_time = NULL,
			awaiting_cash_input = false,
			end_time = $2,
			duration_seconds = $3,
			duration_text = $4,
			cash = 0,
			hourly_rate = 0
		WHERE id = $1 AND awaiting_cash_input`,
		shiftID, end, workedSeconds, durationText,
	))
}
