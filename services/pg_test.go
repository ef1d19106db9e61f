package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"taxi-shifts/db"
	"taxi-shifts/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testPool connects to DATABASE_URL inside a throwaway schema with all
// migrations applied. Skipped without a database or with -short.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	config, err := pgxpool.ParseConfig(databaseURL)
	require.NoError(t, err)
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	require.NoError(t, err)
	if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema)); err != nil {
		pool.Close()
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA %s CASCADE", schema))
		pool.Close()
	})
	require.NoError(t, db.Migrate(ctx, pool, os.DirFS(".."), "migrations", zap.NewNop()))
	return pool
}

func TestPgShiftStore_Lifecycle(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewPgShiftStore(pool)
	const driverID int64 = 42
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	open, err := store.LoadOpen(ctx, driverID)
	require.NoError(t, err)
	assert.Nil(t, open)

	shift, err := store.Create(ctx, driverID, t0)
	require.NoError(t, err)
	assert.NotZero(t, shift.ID)
	assert.Equal(t, models.ShiftStatusActive, shift.Status())

	require.NoError(t, store.MarkPaused(ctx, shift.ID, t0.Add(10*time.Minute)))
	assert.ErrorIs(t, store.MarkPaused(ctx, shift.ID, t0.Add(11*time.Minute)), models.ErrShiftConflict)

	loaded, err := store.LoadOpen(ctx, driverID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, models.ShiftStatusPaused, loaded.Status())
	require.NotNil(t, loaded.PauseStartTime)
	assert.True(t, loaded.PauseStartTime.Equal(t0.Add(10*time.Minute)))

	require.NoError(t, store.MarkResumed(ctx, shift.ID, 1800))
	require.NoError(t, store.MarkAwaitingCash(ctx, shift.ID, t0.Add(70*time.Minute), 1800, 2400, "40 мин"))
	require.NoError(t, store.Finalize(ctx, shift.ID, 1000, 1500, "40 мин"))
	assert.ErrorIs(t, store.Finalize(ctx, shift.ID, 1000, 1500, "40 мин"), models.ErrShiftConflict)

	open, err = store.LoadOpen(ctx, driverID)
	require.NoError(t, err)
	assert.Nil(t, open)

	reports := NewPgReportStore(pool, time.UTC)
	done, err := reports.GetShift(ctx, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusCompleted, done.Status())
	assert.Equal(t, int64(2400), done.DurationSeconds)
	require.NotNil(t, done.Cash)
	assert.Equal(t, int64(1000), *done.Cash)
}

func TestPgShiftStore_CreateClosesLeftovers(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewPgShiftStore(pool)
	const driverID int64 = 7
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	first, err := store.Create(ctx, driverID, t0)
	require.NoError(t, err)
	second, err := store.Create(ctx, driverID, t0.Add(2*time.Hour))
	require.NoError(t, err)

	open, err := store.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	old, err := NewPgReportStore(pool, time.UTC).GetShift(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusCompleted, old.Status())
	assert.Equal(t, int64(7200), old.DurationSeconds)
	require.NotNil(t, old.Cash)
	assert.Zero(t, *old.Cash)
}

func TestPgShiftStore_StaleAndDemote(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewPgShiftStore(pool)
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	shift, err := store.Create(ctx, 1, t0)
	require.NoError(t, err)
	require.NoError(t, store.MarkAwaitingCash(ctx, shift.ID, t0.Add(time.Hour), 0, 3600, "1 ч"))

	stale, err := store.ListStaleAwaiting(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	none, err := store.ListStaleAwaiting(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, store.Demote(ctx, shift.ID))
	loaded, err := store.LoadOpen(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, models.ShiftStatusActive, loaded.Status())
	assert.Nil(t, loaded.EndTime)

	assert.ErrorIs(t, store.ForceComplete(ctx, shift.ID, t0.Add(time.Hour), 3600, "1 ч"), models.ErrShiftConflict)
}

func TestPgReportStore_EditAndStats(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	reports := NewPgReportStore(pool, time.UTC)
	now := time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC)

	shift, err := reports.CreateManualShift(ctx, models.ManualShiftInput{
		DriverID:  5,
		StartTime: now.Add(-3 * time.Hour),
		EndTime:   now.Add(-90 * time.Minute),
		Cash:      3000,
		EditorID:  1,
	})
	require.NoError(t, err)
	require.NotNil(t, shift.HourlyRate)
	assert.Equal(t, int64(2000), *shift.HourlyRate)
	assert.Equal(t, "1 ч 30 мин", shift.DurationText)

	_, err = reports.EditShift(ctx, models.ShiftEditInput{ShiftID: shift.ID, EditorID: 1, StartTime: shift.StartTime, EndTime: *shift.EndTime, Cash: 1})
	assert.ErrorIs(t, err, ErrInvalidEdit)

	edited, err := reports.EditShift(ctx, models.ShiftEditInput{
		ShiftID:   shift.ID,
		EditorID:  1,
		Reason:    "typo in cash",
		StartTime: shift.StartTime,
		EndTime:   shift.StartTime.Add(2 * time.Hour),
		Cash:      4000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), *edited.HourlyRate)
	assert.Equal(t, "2 ч", edited.DurationText)

	history, err := reports.EditHistory(ctx, shift.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "typo in cash", history[0].Reason)
	require.NotNil(t, history[0].OldCash)
	assert.Equal(t, int64(3000), *history[0].OldCash)

	list, total, err := reports.ListShifts(ctx, models.ShiftFilter{DriverID: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)

	minCash := int64(5000)
	list, total, err = reports.ListShifts(ctx, models.ShiftFilter{MinCash: &minCash})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)

	stats, err := reports.Stats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalShifts)
	assert.Equal(t, int64(4000), stats.TotalCash)
	assert.Len(t, stats.LastDays, 7)
	require.Len(t, stats.TopDrivers, 1)
	assert.Equal(t, int64(5), stats.TopDrivers[0].DriverID)

	sum, err := reports.DriverSummary(ctx, 5, now)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Today.Shifts)
	assert.Equal(t, int64(4000), sum.Month.Cash)
	assert.Nil(t, sum.MonthPlan)

	deleted, err := reports.DeleteShift(ctx, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, shift.ID, deleted.ID)
	_, err = reports.GetShift(ctx, shift.ID)
	assert.ErrorIs(t, err, models.ErrShiftNotFound)
}

func TestPgReportStore_RefusesOpenShift(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	shift, err := NewPgShiftStore(pool).Create(ctx, 9, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	reports := NewPgReportStore(pool, time.UTC)
	_, err = reports.DeleteShift(ctx, shift.ID)
	assert.ErrorIs(t, err, ErrShiftOpen)
	_, err = reports.EditShift(ctx, models.ShiftEditInput{
		ShiftID: shift.ID, Reason: "x", StartTime: shift.StartTime, EndTime: time.Now(), Cash: 1,
	})
	assert.ErrorIs(t, err, ErrShiftOpen)
}

func TestPgPlanStore(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	plans := NewPgPlanStore(pool)

	got, err := plans.GetPlan(ctx, 3, models.PlanPeriodMonth, 2024, 3)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = plans.UpsertPlan(ctx, models.Plan{DriverID: 3, PeriodType: models.PlanPeriodMonth, Year: 2024, Period: 3, TargetCash: 100000})
	require.NoError(t, err)
	_, err = plans.UpsertPlan(ctx, models.Plan{DriverID: 3, PeriodType: models.PlanPeriodMonth, Year: 2024, Period: 3, TargetCash: 120000})
	require.NoError(t, err)

	got, err = plans.GetPlan(ctx, 3, models.PlanPeriodMonth, 2024, 3)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(120000), got.TargetCash)

	all, err := plans.ListPlans(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
