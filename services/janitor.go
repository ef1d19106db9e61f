package services

import (
	"context"
	"time"

	"taxi-shifts/metrics"
	"taxi-shifts/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Abandoned shifts are closed with this fixed duration and zero cash.
const abandonedShiftDuration = time.Hour

// Notifier delivers background notices to drivers. Delivery failures are logged
// by the caller and never undo a committed change.
type Notifier interface {
	PauseReminder(ctx context.Context, driverID int64, pausedFor time.Duration) error
	ShiftAbandoned(ctx context.Context, shift models.Shift) error
}

// Janitor force-completes shifts that have waited for a cash amount longer
// than the stale window.
type Janitor struct {
	machine    *ShiftMachine
	notifier   Notifier
	staleAfter time.Duration
	log        *zap.Logger
}

func NewJanitor(machine *ShiftMachine, notifier Notifier, staleAfter time.Duration, log *zap.Logger) *Janitor {
	return &Janitor{
		machine:    machine,
		notifier:   notifier,
		staleAfter: staleAfter,
		log:        log,
	}
}

// Sweep returns the number of shifts it closed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	m := j.machine
	sweepID := uuid.NewString()
	now := m.clock()

	rows, err := m.store.ListStaleAwaiting(ctx, now.Add(-j.staleAfter))
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues(string(OpAbandon)).Inc()
		return 0, storeError(OpAbandon, err)
	}

	closed := 0
	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		tr, err := j.abandon(ctx, row, now)
		if err != nil {
			j.log.Error("force-complete stale shift",
				zap.String("sweep_id", sweepID),
				zap.Int64("driver_id", row.DriverID),
				zap.Int64("shift_id", row.ID),
				zap.Error(err),
			)
			continue
		}
		if tr == nil {
			continue
		}
		closed++
		metrics.ShiftsAbandonedTotal.Inc()
		metrics.ShiftTransitionsTotal.WithLabelValues(string(OpAbandon), "ok").Inc()
		m.publish(ctx, tr)
		if j.notifier != nil {
			if err := j.notifier.ShiftAbandoned(ctx, tr.Shift); err != nil {
				j.log.Warn("notify abandoned shift", zap.Int64("driver_id", row.DriverID), zap.Error(err))
			}
		}
	}

	if closed > 0 {
		j.log.Info("stale shifts force-completed",
			zap.String("sweep_id", sweepID),
			zap.Int("closed", closed),
			zap.Int("found", len(rows)),
		)
	}
	return closed, nil
}

// abandon closes one row under the driver's lock. A nil transition means the
// driver finalized the shift in the meantime.
func (j *Janitor) abandon(ctx context.Context, row models.Shift, now time.Time) (*Transition, error) {
	m := j.machine
	st := m.state(row.DriverID)
	st.mu.Lock()
	defer st.mu.Unlock()

	end := row.StartTime.Add(abandonedShiftDuration)
	worked := seconds(abandonedShiftDuration)
	text := FormatDuration(worked)
	if err := m.store.ForceComplete(ctx, row.ID, end, worked, text); err != nil {
		if isConflict(err) {
			return nil, nil
		}
		return nil, err
	}

	if st.shift != nil && st.shift.ID == row.ID {
		st.shift = nil
		st.remindedAt = 0
	}

	zero := int64(0)
	done := row
	done.IsActive = false
	done.IsPaused = false
	done.PauseStartTime = nil
	done.AwaitingCashInput = false
	done.EndTime = &end
	done.DurationSeconds = worked
	done.DurationText = text
	done.Cash = &zero
	done.HourlyRate = &zero
	return &Transition{
		Operation:     OpAbandon,
		DriverID:      row.DriverID,
		From:          models.ShiftStatusAwaitingCash,
		To:            models.ShiftStatusCompleted,
		Shift:         done,
		WorkedSeconds: worked,
		At:            now,
	}, nil
}
