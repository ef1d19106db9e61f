package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taxi-shifts/models"
	"taxi-shifts/services/mocks"
	"taxi-shifts/services/shifttest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type capturePublisher struct {
	mu     sync.Mutex
	events []ShiftEvent
}

func (p *capturePublisher) Publish(_ context.Context, ev ShiftEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func newTestMachine(t *testing.T, store ShiftStore, clock *fakeClock) (*ShiftMachine, *capturePublisher) {
	t.Helper()
	pub := &capturePublisher{}
	m := NewShiftMachine(store, zap.NewNop(), WithClock(clock.Now), WithEvents(pub))
	return m, pub
}

func TestShiftMachine_PauseExcludedFromWorkedTime(t *testing.T) {
	ctx := context.Background()
	store := shifttest.NewMemStore()
	clock := newFakeClock(t0)
	m, pub := newTestMachine(t, store, clock)
	const driver int64 = 100

	tr, err := m.StartShift(ctx, driver)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusIdle, tr.From)
	assert.Equal(t, models.ShiftStatusActive, tr.To)
	shiftID := tr.Shift.ID

	clock.Advance(10 * time.Minute)
	tr, err = m.TogglePause(ctx, driver)
	require.NoError(t, err)
	assert.Equal(t, OpPause, tr.Operation)
	assert.Equal(t, models.ShiftStatusPaused, tr.To)

	clock.Advance(30 * time.Minute)
	tr, err = m.TogglePause(ctx, driver)
	require.NoError(t, err)
	assert.Equal(t, OpResume, tr.Operation)
	assert.Equal(t, 30*time.Minute, tr.PauseElapsed)
	assert.Equal(t, int64(1800), tr.Shift.PauseDurationSeconds)

	clock.Advance(30 * time.Minute)
	tr, err = m.EndShift(ctx, driver)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusAwaitingCash, tr.To)
	assert.Equal(t, int64(2400), tr.WorkedSeconds)
	assert.Equal(t, "40 мин", tr.Shift.DurationText)

	row, ok := store.Get(shiftID)
	require.True(t, ok)
	assert.True(t, row.AwaitingCashInput)
	assert.Nil(t, row.Cash)
	assert.Nil(t, row.HourlyRate)
	require.NotNil(t, row.EndTime)
	assert.True(t, row.EndTime.Equal(t0.Add(70*time.Minute)))

	tr, err = m.SubmitCash(ctx, driver, "1000")
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusCompleted, tr.To)
	require.NotNil(t, tr.Shift.HourlyRate)
	assert.Equal(t, int64(1500), *tr.Shift.HourlyRate)

	row, _ = store.Get(shiftID)
	assert.Equal(t, models.ShiftStatusCompleted, row.Status())
	assert.Equal(t, int64(1000), *row.Cash)
	assert.Equal(t, int64(1500), *row.HourlyRate)

	status, err := m.Status(ctx, driver)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusIdle, status)

	assert.Equal(t, []string{
		EventShiftStarted, EventShiftPaused, EventShiftResumed, EventShiftEnded, EventShiftCompleted,
	}, pub.Types())
}

func TestShiftMachine_HourlyRate(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(t0)
	m, _ := newTestMachine(t, shifttest.NewMemStore(), clock)

	_, err := m.StartShift(ctx, 1)
	require.NoError(t, err)
	clock.Advance(90 * time.Minute)
	tr, err := m.EndShift(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1 ч 30 мин", tr.Shift.DurationText)

	tr, err = m.SubmitCash(ctx, 1, "3000")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), *tr.Shift.HourlyRate)
	assert.Equal(t, int64(3000), *tr.Shift.Cash)
}

func TestShiftMachine_ZeroWorkedTime(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(t0)
	m, _ := newTestMachine(t, shifttest.NewMemStore(), clock)

	_, err := m.StartShift(ctx, 1)
	require.NoError(t, err)
	tr, err := m.EndShift(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, tr.WorkedSeconds)
	assert.Equal(t, "0 мин", tr.Shift.DurationText)

	tr, err = m.SubmitCash(ctx, 1, "500")
	require.NoError(t, err)
	assert.Zero(t, *tr.Shift.HourlyRate)
}

func TestShiftMachine_EndWhilePaused(t *testing.T) {
	ctx := context.Background()
	store := shifttest.NewMemStore()
	clock := newFakeClock(t0)
	m, _ := newTestMachine(t, store, clock)

	tr, err := m.StartShift(ctx, 1)
	require.NoError(t, err)
	clock.Advance(20 * time.Minute)
	_, err = m.TogglePause(ctx, 1)
	require.NoError(t, err)
	clock.Advance(15 * time.Minute)

	end, err := m.EndShift(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusPaused, end.From)
	// worked time stops at the pause start
	assert.Equal(t, int64(1200), end.WorkedSeconds)
	assert.Equal(t, 15*time.Minute, end.PauseElapsed)

	row, _ := store.Get(tr.Shift.ID)
	assert.Equal(t, int64(900), row.PauseDurationSeconds)
	assert.Nil(t, row.PauseStartTime)
	assert.False(t, row.IsPaused)
}

func TestShiftMachine_PausesCountedOnce(t *testing.T) {
	tests := []struct {
		name   string
		pauses [][2]time.Duration // offset from previous event: work, then pause
		tail   time.Duration
	}{
		{"no pauses", nil, 3 * time.Hour},
		{"one pause", [][2]time.Duration{{time.Hour, 15 * time.Minute}}, time.Hour},
		{"three pauses", [][2]time.Duration{
			{20 * time.Minute, 5 * time.Minute},
			{40 * time.Minute, 61 * time.Minute},
			{time.Minute, 2 * time.Second},
		}, 17 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			clock := newFakeClock(t0)
			m, _ := newTestMachine(t, shifttest.NewMemStore(), clock)

			_, err := m.StartShift(ctx, 1)
			require.NoError(t, err)
			var worked, paused time.Duration
			for _, p := range tt.pauses {
				clock.Advance(p[0])
				worked += p[0]
				_, err = m.TogglePause(ctx, 1)
				require.NoError(t, err)
				clock.Advance(p[1])
				paused += p[1]
				_, err = m.TogglePause(ctx, 1)
				require.NoError(t, err)
			}
			clock.Advance(tt.tail)
			worked += tt.tail

			tr, err := m.EndShift(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, int64(worked/time.Second), tr.WorkedSeconds)
			assert.Equal(t, int64(paused/time.Second), tr.Shift.PauseDurationSeconds)
		})
	}
}

func TestShiftMachine_AlreadyWorking(t *testing.T) {
	ctx := context.Background()
	store := shifttest.NewMemStore()
	clock := newFakeClock(t0)
	m, _ := newTestMachine(t, store, clock)

	_, err := m.StartShift(ctx, 1)
	require.NoError(t, err)
	_, err = m.StartShift(ctx, 1)
	assert.ErrorIs(t, err, ErrAlreadyWorking)

	_, err = m.TogglePause(ctx, 1)
	require.NoError(t, err)
	_, err = m.StartShift(ctx, 1)
	assert.ErrorIs(t, err, ErrAlreadyWorking)

	_, err = m.EndShift(ctx, 1)
	require.NoError(t, err)
	_, err = m.StartShift(ctx, 1)
	assert.ErrorIs(t, err, ErrAlreadyWorking)

	assert.Len(t, store.Rows(), 1)
	assert.Equal(t, 1, store.OpenCount(1))
}

func TestShiftMachine_NotWorkingMutatesNothing(t *testing.T) {
	ctx := context.Background()
	store := shifttest.NewMemStore()
	clock := newFakeClock(t0)
	m, pub := newTestMachine(t, store, clock)

	_, err := m.TogglePause(ctx, 1)
	assert.ErrorIs(t, err, ErrNotWorking)
	_, err = m.EndShift(ctx, 1)
	assert.ErrorIs(t, err, ErrNotWorking)
	assert.Empty(t, store.Rows())

	_, err = m.StartShift(ctx, 1)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = m.EndShift(ctx, 1)
	require.NoError(t, err)
	before := store.Rows()

	_, err = m.TogglePause(ctx, 1)
	assert.ErrorIs(t, err, ErrNotWorking)
	_, err = m.EndShift(ctx, 1)
	assert.ErrorIs(t, err, ErrNotWorking)
	assert.Equal(t, before, store.Rows())

	snap, err := m.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusAwaitingCash, snap.Status)
	assert.Len(t, pub.Types(), 2)
}

func TestShiftMachine_SubmitCash(t *testing.T) {
	ctx := context.Background()
	store := shifttest.NewMemStore()
	clock := newFakeClock(t0)
	m, _ := newTestMachine(t, store, clock)

	_, err := m.SubmitCash(ctx, 1, "100")
	assert.ErrorIs(t, err, ErrNoPendingShift)

	_, err = m.StartShift(ctx, 1)
	require.NoError(t, err)
	_, err = m.SubmitCash(ctx, 1, "100")
	assert.ErrorIs(t, err, ErrNoPendingShift)
	// the shift itself is untouched
	status, err := m.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusActive, status)

	clock.Advance(2 * time.Hour)
	_, err = m.EndShift(ctx, 1)
	require.NoError(t, err)

	for _, input := range []string{"", "abc", "-5", "12.5", "1e3"} {
		_, err = m.SubmitCash(ctx, 1, input)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", input)
	}
	status, err = m.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusAwaitingCash, status)

	tr, err := m.SubmitCash(ctx, 1, " 12 500 ₽")
	require.NoError(t, err)
	assert.Equal(t, int64(12500), *tr.Shift.Cash)
	assert.Equal(t, int64(6250), *tr.Shift.HourlyRate)
}

func TestShiftMachine_SubmitCashRejectsOversizedAmount(t *testing.T) {
	ctx := context.Background()
	store := shifttest.NewMemStore()
	clock := newFakeClock(t0)
	m, _ := newTestMachine(t, store, clock)

	_, err := m.StartShift(ctx, 1)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = m.EndShift(ctx, 1)
	require.NoError(t, err)

	_, err = m.SubmitCash(ctx, 1, "9000000000000000000")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	status, err := m.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusAwaitingCash, status)

	tr, err := m.SubmitCash(ctx, 1, "1000000000000")
	require.NoError(t, err)
	assert.Equal(t, MaxCash, *tr.Shift.Cash)
	assert.Equal(t, MaxCash*60, *tr.Shift.HourlyRate)
}

func TestShiftMachine_RestartMidPause(t *testing.T) {
	ctx := context.Background()
	store := shifttest.NewMemStore()
	clock := newFakeClock(t0)
	before, _ := newTestMachine(t, store, clock)

	_, err := before.StartShift(ctx, 1)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	_, err = before.TogglePause(ctx, 1)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	_, err = before.TogglePause(ctx, 1)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	_, err = before.TogglePause(ctx, 1)
	require.NoError(t, err)

	// process restarts 15 minutes into the second pause
	clock.Advance(15 * time.Minute)
	after, _ := newTestMachine(t, store, clock)

	snap, err := after.Reconcile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusPaused, snap.Status)
	assert.Equal(t, 15*time.Minute, snap.PausedFor)
	assert.Equal(t, int64(600+900), snap.TotalPauseSeconds)
	assert.Equal(t, int64(20*60), snap.WorkedSeconds)

	tr, err := after.TogglePause(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, OpResume, tr.Operation)
	assert.Equal(t, int64(1500), tr.Shift.PauseDurationSeconds)

	clock.Advance(40 * time.Minute)
	tr, err = after.EndShift(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(60*60), tr.WorkedSeconds)
}

func TestShiftMachine_RestartAwaitingCash(t *testing.T) {
	ctx := context.Background()
	store := shifttest.NewMemStore()
	clock := newFakeClock(t0)
	before, _ := newTestMachine(t, store, clock)

	_, err := before.StartShift(ctx, 1)
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)
	_, err = before.EndShift(ctx, 1)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	after, _ := newTestMachine(t, store, clock)
	tr, err := after.SubmitCash(ctx, 1, "4000")
	require.NoError(t, err)
	assert.Equal(t, int64(2*3600), tr.WorkedSeconds)
	assert.Equal(t, int64(2000), *tr.Shift.HourlyRate)
}

func TestShiftMachine_ReconcileIdempotent(t *testing.T) {
	ctx := context.Background()
	store := shifttest.NewMemStore()
	clock := newFakeClock(t0)
	m, _ := newTestMachine(t, store, clock)

	_, err := m.StartShift(ctx, 1)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = m.TogglePause(ctx, 1)
	require.NoError(t, err)
	rows := store.Rows()

	first, err := m.Reconcile(ctx, 1)
	require.NoError(t, err)
	second, err := m.Reconcile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, rows, store.Rows())

	idle, err := m.Reconcile(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusIdle, idle.Status)
	assert.Nil(t, idle.Shift)
}

func TestShiftMachine_ReconcileFaultFallsBackToIdle(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(t0)
	pauseBeforeStart := t0.Add(-time.Hour)

	tests := []struct {
		name string
		row  models.Shift
	}{
		{"missing start time", models.Shift{DriverID: 1, IsActive: true}},
		{"paused without pause start", models.Shift{DriverID: 1, StartTime: t0, IsActive: true, IsPaused: true}},
		{"pause start while running", models.Shift{DriverID: 1, StartTime: t0, IsActive: true, PauseStartTime: &pauseBeforeStart}},
		{"pause before start", models.Shift{DriverID: 1, StartTime: t0, IsActive: true, IsPaused: true, PauseStartTime: &pauseBeforeStart}},
		{"negative pause total", models.Shift{DriverID: 1, StartTime: t0, IsActive: true, PauseDurationSeconds: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := shifttest.NewMemStore()
			store.Put(tt.row)
			store.Put(models.Shift{DriverID: 2, StartTime: t0, IsActive: true})
			m, _ := newTestMachine(t, store, clock)

			snap, err := m.Reconcile(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, models.ShiftStatusIdle, snap.Status)

			other, err := m.Snapshot(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, models.ShiftStatusActive, other.Status)
		})
	}
}

func TestShiftMachine_ReconcileDemotesAwaitingWithoutEnd(t *testing.T) {
	ctx := context.Background()
	store := shifttest.NewMemStore()
	clock := newFakeClock(t0.Add(3 * time.Hour))
	id := store.Put(models.Shift{DriverID: 1, StartTime: t0, AwaitingCashInput: true, DurationText: "?"})
	m, _ := newTestMachine(t, store, clock)

	snap, err := m.Reconcile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusActive, snap.Status)

	row, _ := store.Get(id)
	assert.Equal(t, models.ShiftStatusActive, row.Status())
	assert.Empty(t, row.DurationText)

	// the driver ends it again and gets a normal pending shift
	tr, err := m.EndShift(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3*3600), tr.WorkedSeconds)
}

func TestShiftMachine_StoreFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	store := shifttest.NewMemStore()
	clock := newFakeClock(t0)
	m, pub := newTestMachine(t, store, clock)

	_, err := m.StartShift(ctx, 1)
	require.NoError(t, err)

	store.SetError("MarkPaused", errors.New("connection reset"))
	_, err = m.TogglePause(ctx, 1)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.False(t, IsBusinessError(err))

	snap, err := m.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusActive, snap.Status)
	assert.Nil(t, snap.Shift.PauseStartTime)

	store.SetError("MarkPaused", nil)
	tr, err := m.TogglePause(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusPaused, tr.To)
	assert.Equal(t, []string{EventShiftStarted, EventShiftPaused}, pub.Types())
}

func TestShiftMachine_StoreFailureOnCreate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockShiftStore(ctrl)
	clock := newFakeClock(t0)
	m, pub := newTestMachine(t, store, clock)

	store.EXPECT().LoadOpen(gomock.Any(), int64(5)).Return(nil, nil).Times(1)
	store.EXPECT().Create(gomock.Any(), int64(5), t0).Return(nil, errors.New("timeout"))

	_, err := m.StartShift(context.Background(), 5)
	require.ErrorIs(t, err, ErrStoreUnavailable)

	snap, err := m.Snapshot(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusIdle, snap.Status)
	assert.Empty(t, pub.Types())
}

func TestShiftMachine_LoadFailureIsStoreUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockShiftStore(ctrl)
	m, _ := newTestMachine(t, store, newFakeClock(t0))

	gomock.InOrder(
		store.EXPECT().LoadOpen(gomock.Any(), int64(5)).Return(nil, errors.New("no route to host")),
		store.EXPECT().LoadOpen(gomock.Any(), int64(5)).Return(nil, nil),
		store.EXPECT().Create(gomock.Any(), int64(5), t0).Return(&models.Shift{ID: 9, DriverID: 5, StartTime: t0, IsActive: true}, nil),
	)

	_, err := m.StartShift(context.Background(), 5)
	require.ErrorIs(t, err, ErrStoreUnavailable)

	tr, err := m.StartShift(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(9), tr.Shift.ID)
}

func TestShiftMachine_ConflictForcesReload(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockShiftStore(ctrl)
	clock := newFakeClock(t0.Add(time.Hour))
	m, _ := newTestMachine(t, store, clock)

	active := &models.Shift{ID: 3, DriverID: 5, StartTime: t0, IsActive: true}
	awaitingEnd := t0.Add(30 * time.Minute)
	awaiting := &models.Shift{ID: 3, DriverID: 5, StartTime: t0, EndTime: &awaitingEnd, AwaitingCashInput: true, DurationSeconds: 1800}

	gomock.InOrder(
		store.EXPECT().LoadOpen(gomock.Any(), int64(5)).Return(active, nil),
		store.EXPECT().MarkPaused(gomock.Any(), int64(3), t0.Add(time.Hour)).Return(models.ErrShiftConflict),
		store.EXPECT().LoadOpen(gomock.Any(), int64(5)).Return(awaiting, nil),
	)

	_, err := m.TogglePause(context.Background(), 5)
	require.ErrorIs(t, err, ErrStoreUnavailable)

	// the retry sees what the store really holds
	_, err = m.TogglePause(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotWorking)
}

func TestShiftMachine_ConcurrentStartsOneDriver(t *testing.T) {
	ctx := context.Background()
	store := shifttest.NewMemStore()
	m, _ := newTestMachine(t, store, newFakeClock(t0))

	const workers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.StartShift(ctx, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrAlreadyWorking):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, rejected)
	assert.Equal(t, 1, store.OpenCount(1))
}

func TestShiftMachine_ConcurrentTogglesStayConsistent(t *testing.T) {
	ctx := context.Background()
	store := shifttest.NewMemStore()
	clock := newFakeClock(t0)
	m, _ := newTestMachine(t, store, clock)

	drivers := []int64{1, 2, 3, 4}
	for _, d := range drivers {
		_, err := m.StartShift(ctx, d)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for _, d := range drivers {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(driver int64) {
				defer wg.Done()
				_, _ = m.TogglePause(ctx, driver)
			}(d)
		}
	}
	wg.Wait()

	for _, d := range drivers {
		snap, err := m.Snapshot(ctx, d)
		require.NoError(t, err)
		// an even number of toggles brings every driver back to active
		assert.Equal(t, models.ShiftStatusActive, snap.Status, "driver %d", d)
		assert.Equal(t, 1, store.OpenCount(d))
	}
}

func TestShiftMachine_WarmAndForget(t *testing.T) {
	ctx := context.Background()
	store := shifttest.NewMemStore()
	pauseStart := t0.Add(time.Hour)
	store.Put(models.Shift{DriverID: 1, StartTime: t0, IsActive: true})
	store.Put(models.Shift{DriverID: 2, StartTime: t0, IsActive: true, IsPaused: true, PauseStartTime: &pauseStart})
	store.Put(models.Shift{DriverID: 3, StartTime: t0, IsActive: false})
	m, _ := newTestMachine(t, store, newFakeClock(t0.Add(2*time.Hour)))

	n, err := m.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	loaded := map[int64]models.ShiftStatus{}
	m.eachDriver(func(driverID int64, st *driverState) {
		st.mu.Lock()
		defer st.mu.Unlock()
		if st.loaded {
			loaded[driverID] = st.status()
		}
	})
	assert.Equal(t, map[int64]models.ShiftStatus{
		1: models.ShiftStatusActive,
		2: models.ShiftStatusPaused,
	}, loaded)

	// an admin closes driver 1's shift behind the machine's back
	rows := store.Rows()
	closed := rows[0]
	closed.IsActive = false
	store.Put(closed)

	m.Forget(1)
	snap, err := m.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusIdle, snap.Status)
}
