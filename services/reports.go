package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taxi-shifts/metrics"
	"taxi-shifts/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInvalidEdit = errors.New("invalid shift edit")
	// ErrShiftOpen is returned when an admin tries to change a shift the driver is still working on.
	ErrShiftOpen = errors.New("shift is still open")
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	statsDays        = 7
	topDriversLimit  = 5
)

const completedPredicate = `(NOT is_active AND NOT awaiting_cash_input)`

// PgReportStore serves the admin panel and the driver summaries. It reads and
// edits rows directly and does not go through the state machine.
type PgReportStore struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

func NewPgReportStore(pool *pgxpool.Pool, loc *time.Location) *PgReportStore {
	if loc == nil {
		loc = time.UTC
	}
	return &PgReportStore{pool: pool, loc: loc}
}

func shiftWhere(f models.ShiftFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.DriverID != 0 {
		add("driver_id = ?", f.DriverID)
	}
	if f.From != nil {
		add("start_time >= ?", *f.From)
	}
	if f.To != nil {
		add("start_time < ?", *f.To)
	}
	if f.MinCash != nil {
		add("cash >= ?", *f.MinCash)
	}
	if f.MaxCash != nil {
		add("cash <= ?", *f.MaxCash)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ClampLimit returns the page size ListShifts actually uses for limit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}

// ListShifts returns one page of shifts, newest first, and the total number of matches.
func (s *PgReportStore) ListShifts(ctx context.Context, f models.ShiftFilter) ([]models.Shift, int, error) {
	where, args := shiftWhere(f)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM shifts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count shifts: %w", err)
	}

	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, ClampLimit(f.Limit), offset)
	rows, err := s.pool.Query(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts`+where+`
		ORDER BY start_time DESC, id DESC
		LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list shifts: %w", err)
	}
	shifts, err := collectShifts(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list shifts: %w", err)
	}
	return shifts, total, nil
}

func (s *PgReportStore) GetShift(ctx context.Context, id int64) (*models.Shift, error) {
	shift, err := scanShift(s.pool.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrShiftNotFound
		}
		return nil, fmt.Errorf("get shift: %w", err)
	}
	return shift, nil
}

func (s *PgReportStore) EditHistory(ctx context.Context, shiftID int64) ([]models.EditRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, shift_id, editor_id, edited_at, reason,
			old_start_time, new_start_time, old_end_time, new_end_time,
			old_cash, new_cash, old_hourly_rate, new_hourly_rate
		FROM shift_edits
		WHERE shift_id = $1
		ORDER BY edited_at DESC, id DESC`,
		shiftID,
	)
	if err != nil {
		return nil, fmt.Errorf("edit history: %w", err)
	}
	defer rows.Close()

	var out []models.EditRecord
	for rows.Next() {
		var e models.EditRecord
		if err := rows.Scan(
			&e.ID, &e.ShiftID, &e.EditorID, &e.EditedAt, &e.Reason,
			&e.OldStartTime, &e.NewStartTime, &e.OldEndTime, &e.NewEndTime,
			&e.OldCash, &e.NewCash, &e.OldHourlyRate, &e.NewHourlyRate,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func validateEditTimes(start, end time.Time, cash int64) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidEdit)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end must be after start", ErrInvalidEdit)
	}
	if cash < 0 {
		return fmt.Errorf("%w: cash must not be negative", ErrInvalidEdit)
	}
	if cash > MaxCash {
		return fmt.Errorf("%w: cash exceeds %d", ErrInvalidEdit, MaxCash)
	}
	return nil
}

// EditShift applies new start, end and cash to a completed shift and records
// an audit entry in the same transaction. Worked time keeps the stored pause seconds.
func (s *PgReportStore) EditShift(ctx context.Context, in models.ShiftEditInput) (*models.Shift, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidEdit)
	}
	if err := validateEditTimes(in.StartTime, in.EndTime, in.Cash); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	old, err := scanShift(tx.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1 FOR UPDATE`, in.ShiftID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrShiftNotFound
		}
		return nil, fmt.Errorf("lock shift: %w", err)
	}
	if old.Status().IsOpen() {
		return nil, ErrShiftOpen
	}

	worked := WorkedSeconds(in.StartTime, in.EndTime, old.PauseDurationSeconds)
	rate := HourlyRate(in.Cash, worked)
	text := FormatDuration(worked)

	_, err = tx.Exec(ctx, `
		INSERT INTO shift_edits (shift_id, editor_id, reason,
			old_start_time, new_start_time, old_end_time, new_end_time,
			old_cash, new_cash, old_hourly_rate, new_hourly_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		old.ID, in.EditorID, strings.TrimSpace(in.Reason),
		old.StartTime, in.StartTime, old.EndTime, in.EndTime,
		old.Cash, in.Cash, old.HourlyRate, rate,
	)
	if err != nil {
		return nil, fmt.Errorf("insert edit record: %w", err)
	}

	updated, err := scanShift(tx.QueryRow(ctx, `
		UPDATE shifts SET
			start_time = $2,
			end_time = $3,
			cash = $4,
			hourly_rate = $5,
			duration_seconds = $6,
			duration_text = $7
		WHERE id = $1
		RETURNING `+shiftColumns,
		old.ID, in.StartTime, in.EndTime, in.Cash, rate, worked, text,
	))
	if err != nil {
		return nil, fmt.Errorf("update shift: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	metrics.AdminEditsTotal.Inc()
	return updated, nil
}

// DeleteShift removes a completed shift together with its audit trail.
func (s *PgReportStore) DeleteShift(ctx context.Context, id int64) (*models.Shift, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	shift, err := scanShift(tx.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrShiftNotFound
		}
		return nil, fmt.Errorf("lock shift: %w", err)
	}
	if shift.Status().IsOpen() {
		return nil, ErrShiftOpen
	}
	if _, err := tx.Exec(ctx, `DELETE FROM shift_edits WHERE shift_id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete edit records: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM shifts WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete shift: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return shift, nil
}

// CreateManualShift inserts a completed shift entered by an admin, e.g. when a
// driver forgot to use the bot.
func (s *PgReportStore) CreateManualShift(ctx context.Context, in models.ManualShiftInput) (*models.Shift, error) {
	if in.DriverID == 0 {
		return nil, fmt.Errorf("%w: driver id is required", ErrInvalidEdit)
	}
	if err := validateEditTimes(in.StartTime, in.EndTime, in.Cash); err != nil {
		return nil, err
	}
	worked := WorkedSeconds(in.StartTime, in.EndTime, 0)
	rate := HourlyRate(in.Cash, worked)
	text := FormatDuration(worked)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	shift, err := scanShift(tx.QueryRow(ctx, `
		INSERT INTO shifts (driver_id, start_time, end_time, duration_text, duration_seconds,
			cash, hourly_rate, is_active, is_paused, pause_duration_seconds, awaiting_cash_input)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, false, 0, false)
		RETURNING `+shiftColumns,
		in.DriverID, in.StartTime, in.EndTime, text, worked, in.Cash, rate,
	))
	if err != nil {
		return nil, fmt.Errorf("insert manual shift: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO shift_edits (shift_id, editor_id, reason, new_start_time, new_end_time, new_cash, new_hourly_rate)
		VALUES ($1, $2, 'created manually', $3, $4, $5, $6)`,
		shift.ID, in.EditorID, in.StartTime, in.EndTime, in.Cash, rate,
	)
	if err != nil {
		return nil, fmt.Errorf("insert edit record: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	metrics.AdminEditsTotal.Inc()
	return shift, nil
}

// Stats summarizes completed shifts for the admin dashboard. Days are cut in the
// store's canonical zone.
func (s *PgReportStore) Stats(ctx context.Context, now time.Time) (*models.ShiftStats, error) {
	var st models.ShiftStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE `+completedPredicate+`),
			count(*) FILTER (WHERE is_active OR awaiting_cash_input),
			COALESCE(sum(cash) FILTER (WHERE `+completedPredicate+`), 0),
			COALESCE(avg(hourly_rate) FILTER (WHERE `+completedPredicate+` AND duration_seconds > 0), 0)::float8
		FROM shifts`,
	).Scan(&st.TotalShifts, &st.OpenShifts, &st.TotalCash, &st.AvgHourlyRate)
	if err != nil {
		return nil, fmt.Errorf("shift totals: %w", err)
	}

	from := StartOfDay(now, s.loc).AddDate(0, 0, -(statsDays - 1))
	rows, err := s.pool.Query(ctx, `
		SELECT (start_time AT TIME ZONE $1)::date AS day, count(*), COALESCE(sum(cash), 0)
		FROM shifts
		WHERE `+completedPredicate+` AND start_time >= $2
		GROUP BY day
		ORDER BY day`,
		s.loc.String(), from,
	)
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	byDay := make(map[string]models.DailyTotals)
	for rows.Next() {
		var d models.DailyTotals
		if err := rows.Scan(&d.Date, &d.Shifts, &d.Cash); err != nil {
			rows.Close()
			return nil, err
		}
		byDay[d.Date.Format(time.DateOnly)] = d
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// fill days without shifts so the chart has no gaps
	for i := 0; i < statsDays; i++ {
		day := from.AddDate(0, 0, i)
		d, ok := byDay[day.Format(time.DateOnly)]
		if !ok {
			d = models.DailyTotals{}
		}
		d.Date = day
		st.LastDays = append(st.LastDays, d)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT driver_id, count(*), COALESCE(sum(cash), 0) AS total
		FROM shifts
		WHERE `+completedPredicate+`
		GROUP BY driver_id
		ORDER BY total DESC, driver_id
		LIMIT $1`,
		topDriversLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("top drivers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d models.DriverTotals
		if err := rows.Scan(&d.DriverID, &d.Shifts, &d.Cash); err != nil {
			return nil, err
		}
		st.TopDrivers = append(st.TopDrivers, d)
	}
	return &st, rows.Err()
}

func (s *PgReportStore) periodTotals(ctx context.Context, driverID int64, from, to time.Time) (models.PeriodTotals, error) {
	var t models.PeriodTotals
	err := s.pool.QueryRow(ctx, `
		SELECT count(*), COALESCE(sum(cash), 0), COALESCE(sum(duration_seconds), 0)
		FROM shifts
		WHERE driver_id = $1 AND `+completedPredicate+` AND start_time >= $2 AND start_time < $3`,
		driverID, from, to,
	).Scan(&t.Shifts, &t.Cash, &t.WorkedSeconds)
	return t, err
}

// DriverSummary is what a driver sees for "today", "this week" and "this month".
type DriverSummary struct {
	Today     models.PeriodTotals
	Week      models.PeriodTotals
	Month     models.PeriodTotals
	WeekPlan  *models.Plan
	MonthPlan *models.Plan
}

func (s *PgReportStore) DriverSummary(ctx context.Context, driverID int64, now time.Time) (*DriverSummary, error) {
	var (
		sum DriverSummary
		err error
	)
	day := StartOfDay(now, s.loc)
	if sum.Today, err = s.periodTotals(ctx, driverID, day, day.AddDate(0, 0, 1)); err != nil {
		return nil, fmt.Errorf("today totals: %w", err)
	}
	week := StartOfISOWeek(now, s.loc)
	if sum.Week, err = s.periodTotals(ctx, driverID, week, week.AddDate(0, 0, 7)); err != nil {
		return nil, fmt.Errorf("week totals: %w", err)
	}
	month := StartOfMonth(now, s.loc)
	if sum.Month, err = s.periodTotals(ctx, driverID, month, month.AddDate(0, 1, 0)); err != nil {
		return nil, fmt.Errorf("month totals: %w", err)
	}

	plans := NewPgPlanStore(s.pool)
	local := now.In(s.loc)
	isoYear, isoWeek := local.ISOWeek()
	if sum.WeekPlan, err = plans.GetPlan(ctx, driverID, models.PlanPeriodWeek, isoYear, isoWeek); err != nil {
		return nil, err
	}
	if sum.MonthPlan, err = plans.GetPlan(ctx, driverID, models.PlanPeriodMonth, local.Year(), int(local.Month())); err != nil {
		return nil, err
	}
	return &sum, nil
}

// RecentShifts returns the driver's last n completed shifts, newest first.
func (s *PgReportStore) RecentShifts(ctx context.Context, driverID int64, n int) ([]models.Shift, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE driver_id = $1 AND `+completedPredicate+`
		ORDER BY start_time DESC
		LIMIT $2`,
		driverID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("recent shifts: %w", err)
	}
	return collectShifts(rows)
}

func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// StartOfISOWeek returns Monday 00:00 of t's week.
func StartOfISOWeek(t time.Time, loc *time.Location) time.Time {
	day := StartOfDay(t, loc)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}
