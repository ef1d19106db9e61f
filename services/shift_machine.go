package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taxi-shifts/metrics"
	"taxi-shifts/models"

	"go.uber.org/zap"
)

type Operation string

const (
	OpStart     Operation = "start"
	OpPause     Operation = "pause"
	OpResume    Operation = "resume"
	OpEnd       Operation = "end"
	OpSubmit    Operation = "submit_cash"
	OpReconcile Operation = "reconcile"
	OpAbandon   Operation = "abandon"
)

// Transition is the result of a committed state change.
type Transition struct {
	Operation Operation
	DriverID  int64
	From      models.ShiftStatus
	To        models.ShiftStatus
	// Shift is a copy of the row after the change.
	Shift         models.Shift
	WorkedSeconds int64
	// PauseElapsed is the length of the pause that a resume (or an end while paused) closed.
	PauseElapsed time.Duration
	At           time.Time
}

// Snapshot is a read-only view of a driver's current state.
type Snapshot struct {
	DriverID          int64
	Status            models.ShiftStatus
	Shift             *models.Shift
	WorkedSeconds     int64
	TotalPauseSeconds int64
	PausedFor         time.Duration
}

type driverState struct {
	mu     sync.Mutex
	loaded bool
	shift  *models.Shift // nil while idle
	// last pause reminder milestone sent for the current pause
	remindedAt time.Duration
}

func (st *driverState) status() models.ShiftStatus {
	if st.shift == nil {
		return models.ShiftStatusIdle
	}
	return st.shift.Status()
}

// ShiftMachine owns per-driver shift state. Transitions for one driver are
// serialized by that driver's mutex; different drivers never contend.
// Every transition is written to the store before memory is updated.
type ShiftMachine struct {
	store   ShiftStore
	events  EventPublisher
	log     *zap.Logger
	now     func() time.Time
	drivers sync.Map // int64 -> *driverState
}

type MachineOption func(*ShiftMachine)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) MachineOption {
	return func(m *ShiftMachine) { m.now = now }
}

func WithEvents(p EventPublisher) MachineOption {
	return func(m *ShiftMachine) { m.events = p }
}

func NewShiftMachine(store ShiftStore, log *zap.Logger, opts ...MachineOption) *ShiftMachine {
	m := &ShiftMachine{
		store: store,
		log:   log,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.events == nil {
		m.events = NewLogPublisher(log)
	}
	return m
}

func (m *ShiftMachine) state(driverID int64) *driverState {
	if v, ok := m.drivers.Load(driverID); ok {
		return v.(*driverState)
	}
	v, loaded := m.drivers.LoadOrStore(driverID, &driverState{})
	if !loaded {
		metrics.TrackedDrivers.Inc()
	}
	return v.(*driverState)
}

func (m *ShiftMachine) clock() time.Time {
	return m.now().Truncate(time.Second)
}

// transition runs fn under the driver's lock, then records the outcome and
// publishes the event after the lock is released.
func (m *ShiftMachine) transition(ctx context.Context, driverID int64, op Operation, fn func(st *driverState, now time.Time) (*Transition, error)) (*Transition, error) {
	st := m.state(driverID)
	st.mu.Lock()
	tr, err := func() (*Transition, error) {
		if err := m.ensureLoaded(ctx, driverID, st); err != nil {
			return nil, err
		}
		return fn(st, m.clock())
	}()
	st.mu.Unlock()

	if err != nil {
		m.recordFailure(driverID, op, err)
		return nil, err
	}
	metrics.ShiftTransitionsTotal.WithLabelValues(string(tr.Operation), "ok").Inc()
	m.publish(ctx, tr)
	return tr, nil
}

func (m *ShiftMachine) recordFailure(driverID int64, op Operation, err error) {
	if IsBusinessError(err) {
		metrics.ShiftTransitionsTotal.WithLabelValues(string(op), "rejected").Inc()
		return
	}
	metrics.ShiftTransitionsTotal.WithLabelValues(string(op), "error").Inc()
	metrics.StoreErrorsTotal.WithLabelValues(string(op)).Inc()
	m.log.Error("shift store failure",
		zap.Int64("driver_id", driverID),
		zap.String("operation", string(op)),
		zap.Error(err),
	)
}

// storeFailure wraps err and, when the row changed underneath us, drops the
// cached state so the next access reconciles from the store.
func (m *ShiftMachine) storeFailure(st *driverState, op Operation, err error) error {
	if isConflict(err) {
		st.loaded = false
		st.shift = nil
	}
	return storeError(op, err)
}

// StartShift opens a new active shift for the driver.
func (m *ShiftMachine) StartShift(ctx context.Context, driverID int64) (*Transition, error) {
	return m.transition(ctx, driverID, OpStart, func(st *driverState, now time.Time) (*Transition, error) {
		if st.status().IsOpen() {
			return nil, ErrAlreadyWorking
		}
		created, err := m.store.Create(ctx, driverID, now)
		if err != nil {
			return nil, m.storeFailure(st, OpStart, err)
		}
		st.shift = created
		st.remindedAt = 0
		return &Transition{
			Operation: OpStart,
			DriverID:  driverID,
			From:      models.ShiftStatusIdle,
			To:        models.ShiftStatusActive,
			Shift:     *created,
			At:        now,
		}, nil
	})
}

// TogglePause pauses an active shift or resumes a paused one.
func (m *ShiftMachine) TogglePause(ctx context.Context, driverID int64) (*Transition, error) {
	return m.transition(ctx, driverID, OpPause, func(st *driverState, now time.Time) (*Transition, error) {
		switch st.status() {
		case models.ShiftStatusActive:
			if err := m.store.MarkPaused(ctx, st.shift.ID, now); err != nil {
				return nil, m.storeFailure(st, OpPause, err)
			}
			next := *st.shift
			next.IsPaused = true
			pauseStart := now
			next.PauseStartTime = &pauseStart
			st.shift = &next
			st.remindedAt = 0
			return &Transition{
				Operation:     OpPause,
				DriverID:      driverID,
				From:          models.ShiftStatusActive,
				To:            models.ShiftStatusPaused,
				Shift:         next,
				WorkedSeconds: WorkedSeconds(next.StartTime, now, next.PauseDurationSeconds),
				At:            now,
			}, nil

		case models.ShiftStatusPaused:
			elapsed := now.Sub(*st.shift.PauseStartTime)
			total := st.shift.PauseDurationSeconds + seconds(elapsed)
			if err := m.store.MarkResumed(ctx, st.shift.ID, total); err != nil {
				return nil, m.storeFailure(st, OpResume, err)
			}
			next := *st.shift
			next.IsPaused = false
			next.PauseStartTime = nil
			next.PauseDurationSeconds = total
			st.shift = &next
			st.remindedAt = 0
			return &Transition{
				Operation:     OpResume,
				DriverID:      driverID,
				From:          models.ShiftStatusPaused,
				To:            models.ShiftStatusActive,
				Shift:         next,
				WorkedSeconds: WorkedSeconds(next.StartTime, now, total),
				PauseElapsed:  elapsed,
				At:            now,
			}, nil
		}
		return nil, ErrNotWorking
	})
}

// EndShift fixes the end time and worked duration and waits for the cash amount.
// A pause still running at this point is accrued, so time after the pause start
// does not count as worked.
func (m *ShiftMachine) EndShift(ctx context.Context, driverID int64) (*Transition, error) {
	return m.transition(ctx, driverID, OpEnd, func(st *driverState, now time.Time) (*Transition, error) {
		from := st.status()
		if from != models.ShiftStatusActive && from != models.ShiftStatusPaused {
			return nil, ErrNotWorking
		}
		pause := st.shift.PauseDurationSeconds
		var elapsed time.Duration
		if from == models.ShiftStatusPaused {
			elapsed = now.Sub(*st.shift.PauseStartTime)
			pause += seconds(elapsed)
		}
		worked := WorkedSeconds(st.shift.StartTime, now, pause)
		text := FormatDuration(worked)
		if err := m.store.MarkAwaitingCash(ctx, st.shift.ID, now, pause, worked, text); err != nil {
			return nil, m.storeFailure(st, OpEnd, err)
		}
		next := *st.shift
		end := now
		next.IsActive = false
		next.IsPaused = false
		next.PauseStartTime = nil
		next.PauseDurationSeconds = pause
		next.AwaitingCashInput = true
		next.EndTime = &end
		next.DurationSeconds = worked
		next.DurationText = text
		st.shift = &next
		st.remindedAt = 0
		return &Transition{
			Operation:     OpEnd,
			DriverID:      driverID,
			From:          from,
			To:            models.ShiftStatusAwaitingCash,
			Shift:         next,
			WorkedSeconds: worked,
			PauseElapsed:  elapsed,
			At:            now,
		}, nil
	})
}

// SubmitCash finalizes the driver's pending shift with the given amount.
func (m *ShiftMachine) SubmitCash(ctx context.Context, driverID int64, input string) (*Transition, error) {
	return m.transition(ctx, driverID, OpSubmit, func(st *driverState, now time.Time) (*Transition, error) {
		if st.status() != models.ShiftStatusAwaitingCash {
			// nothing to finalize; re-read the store on the next access in case memory is stale
			st.loaded = false
			st.shift = nil
			return nil, ErrNoPendingShift
		}
		amount, err := ParseCash(input)
		if err != nil {
			return nil, err
		}
		worked := st.shift.DurationSeconds
		rate := HourlyRate(amount, worked)
		text := FormatDuration(worked)
		if err := m.store.Finalize(ctx, st.shift.ID, amount, rate, text); err != nil {
			return nil, m.storeFailure(st, OpSubmit, err)
		}
		done := *st.shift
		done.AwaitingCashInput = false
		done.Cash = &amount
		done.HourlyRate = &rate
		done.DurationText = text
		st.shift = nil
		st.remindedAt = 0
		return &Transition{
			Operation:     OpSubmit,
			DriverID:      driverID,
			From:          models.ShiftStatusAwaitingCash,
			To:            models.ShiftStatusCompleted,
			Shift:         done,
			WorkedSeconds: worked,
			At:            now,
		}, nil
	})
}

// Reconcile reloads the driver's open shift from the store and replaces the
// in-memory state with it. Calling it again with an unchanged store leaves the
// state as it was.
func (m *ShiftMachine) Reconcile(ctx context.Context, driverID int64) (*Snapshot, error) {
	st := m.state(driverID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := m.reconcileLocked(ctx, driverID, st); err != nil {
		m.recordFailure(driverID, OpReconcile, err)
		return nil, err
	}
	snap := snapshotOf(driverID, st.shift, m.clock())
	return &snap, nil
}

func (m *ShiftMachine) ensureLoaded(ctx context.Context, driverID int64, st *driverState) error {
	if st.loaded {
		return nil
	}
	return m.reconcileLocked(ctx, driverID, st)
}

func (m *ShiftMachine) reconcileLocked(ctx context.Context, driverID int64, st *driverState) error {
	row, err := m.store.LoadOpen(ctx, driverID)
	if err != nil {
		return storeError(OpReconcile, err)
	}
	return m.restoreLocked(ctx, driverID, st, row)
}

// restoreLocked installs row as the driver's state. Rows that fail validation
// leave the driver idle; other drivers are unaffected.
func (m *ShiftMachine) restoreLocked(ctx context.Context, driverID int64, st *driverState, row *models.Shift) error {
	if row == nil {
		st.shift = nil
		st.loaded = true
		st.remindedAt = 0
		return nil
	}
	if err := validateRestored(row); err != nil {
		metrics.ReconcileFaultsTotal.Inc()
		m.log.Warn("restored shift rejected, driver left idle",
			zap.Int64("driver_id", driverID),
			zap.Int64("shift_id", row.ID),
			zap.Error(err),
		)
		st.shift = nil
		st.loaded = true
		st.remindedAt = 0
		return nil
	}

	restored := *row
	if restored.AwaitingCashInput && restored.EndTime == nil {
		// no end time means no way to price the shift: back to active, driver ends it again
		if err := m.store.Demote(ctx, restored.ID); err != nil {
			return storeError(OpReconcile, err)
		}
		m.log.Warn("awaiting-cash shift without end time demoted to active",
			zap.Int64("driver_id", driverID),
			zap.Int64("shift_id", restored.ID),
		)
		restored.AwaitingCashInput = false
		restored.IsActive = true
		restored.IsPaused = false
		restored.PauseStartTime = nil
		restored.DurationSeconds = 0
		restored.DurationText = ""
	}

	if st.shift == nil || st.shift.ID != restored.ID || !samePauseStart(st.shift.PauseStartTime, restored.PauseStartTime) {
		st.remindedAt = 0
	}
	st.shift = &restored
	st.loaded = true
	return nil
}

func samePauseStart(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func validateRestored(s *models.Shift) error {
	switch {
	case s.StartTime.IsZero():
		return errors.New("missing start_time")
	case s.IsPaused && s.PauseStartTime == nil:
		return errors.New("paused without pause_start_time")
	case !s.IsPaused && s.PauseStartTime != nil:
		return errors.New("pause_start_time set on a running shift")
	case s.PauseStartTime != nil && s.PauseStartTime.Before(s.StartTime):
		return errors.New("pause_start_time before start_time")
	case s.PauseDurationSeconds < 0:
		return fmt.Errorf("negative pause_duration_seconds %d", s.PauseDurationSeconds)
	case s.EndTime != nil && s.AwaitingCashInput && s.EndTime.Before(s.StartTime):
		return errors.New("end_time before start_time")
	}
	return nil
}

// Warm restores every open shift from the store, e.g. right after a restart,
// so background tasks see drivers who have not written since.
func (m *ShiftMachine) Warm(ctx context.Context) (int, error) {
	rows, err := m.store.ListOpen(ctx)
	if err != nil {
		return 0, storeError(OpReconcile, err)
	}
	seen := make(map[int64]bool, len(rows))
	for i := range rows {
		row := rows[i]
		// rows are newest first per driver
		if seen[row.DriverID] {
			continue
		}
		seen[row.DriverID] = true
		st := m.state(row.DriverID)
		st.mu.Lock()
		if err := m.restoreLocked(ctx, row.DriverID, st, &row); err != nil {
			m.log.Error("warm restore failed", zap.Int64("driver_id", row.DriverID), zap.Error(err))
		}
		st.mu.Unlock()
	}
	m.log.Info("shift state restored", zap.Int("drivers", len(seen)))
	return len(seen), nil
}

// Forget drops the cached state of a driver; the next access reconciles.
func (m *ShiftMachine) Forget(driverID int64) {
	v, ok := m.drivers.Load(driverID)
	if !ok {
		return
	}
	st := v.(*driverState)
	st.mu.Lock()
	st.loaded = false
	st.shift = nil
	st.remindedAt = 0
	st.mu.Unlock()
}

// Snapshot returns the driver's current state, reconciling on first use.
func (m *ShiftMachine) Snapshot(ctx context.Context, driverID int64) (*Snapshot, error) {
	st := m.state(driverID)
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := m.ensureLoaded(ctx, driverID, st); err != nil {
		m.recordFailure(driverID, OpReconcile, err)
		return nil, err
	}
	snap := snapshotOf(driverID, st.shift, m.clock())
	return &snap, nil
}

func (m *ShiftMachine) Status(ctx context.Context, driverID int64) (models.ShiftStatus, error) {
	snap, err := m.Snapshot(ctx, driverID)
	if err != nil {
		return "", err
	}
	return snap.Status, nil
}

func snapshotOf(driverID int64, shift *models.Shift, now time.Time) Snapshot {
	snap := Snapshot{DriverID: driverID, Status: models.ShiftStatusIdle}
	if shift == nil {
		return snap
	}
	cp := *shift
	snap.Shift = &cp
	snap.Status = cp.Status()
	snap.TotalPauseSeconds = cp.PauseDurationSeconds
	switch snap.Status {
	case models.ShiftStatusPaused:
		snap.PausedFor = now.Sub(*cp.PauseStartTime)
		if snap.PausedFor < 0 {
			snap.PausedFor = 0
		}
		snap.TotalPauseSeconds += seconds(snap.PausedFor)
		snap.WorkedSeconds = WorkedSeconds(cp.StartTime, now, snap.TotalPauseSeconds)
	case models.ShiftStatusActive:
		snap.WorkedSeconds = WorkedSeconds(cp.StartTime, now, cp.PauseDurationSeconds)
	case models.ShiftStatusAwaitingCash:
		snap.WorkedSeconds = cp.DurationSeconds
	}
	return snap
}

// eachDriver visits every driver the machine has seen. fn is responsible for locking.
func (m *ShiftMachine) eachDriver(fn func(driverID int64, st *driverState)) {
	m.drivers.Range(func(k, v any) bool {
		fn(k.(int64), v.(*driverState))
		return true
	})
}

func (m *ShiftMachine) publish(ctx context.Context, tr *Transition) {
	ev := NewShiftEvent(tr)
	if err := m.events.Publish(ctx, ev); err != nil {
		m.log.Warn("publish shift event",
			zap.String("type", ev.Type),
			zap.Int64("driver_id", tr.DriverID),
			zap.Error(err),
		)
	}
}
