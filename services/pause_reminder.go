package services

import (
	"context"
	"time"

	"taxi-shifts/metrics"
	"taxi-shifts/models"

	"go.uber.org/zap"
)

// PauseReminder nudges drivers who have been paused for a long time: once at
// first, then again every repeat interval. The last milestone is remembered per
// driver and reset whenever the pause ends.
type PauseReminder struct {
	machine  *ShiftMachine
	notifier Notifier
	first    time.Duration
	repeat   time.Duration
	log      *zap.Logger
}

func NewPauseReminder(machine *ShiftMachine, notifier Notifier, first, repeat time.Duration, log *zap.Logger) *PauseReminder {
	return &PauseReminder{
		machine:  machine,
		notifier: notifier,
		first:    first,
		repeat:   repeat,
		log:      log,
	}
}

// Milestone returns the latest reminder point reached after pausedFor, or 0 if
// the first reminder is not due yet.
func (r *PauseReminder) Milestone(pausedFor time.Duration) time.Duration {
	if pausedFor < r.first {
		return 0
	}
	if r.repeat <= 0 {
		return r.first
	}
	steps := (pausedFor - r.first) / r.repeat
	return r.first + steps*r.repeat
}

type reminderDue struct {
	driverID   int64
	st         *driverState
	shiftID    int64
	pauseStart time.Time
	pausedFor  time.Duration
	milestone  time.Duration
}

// Check sends the reminders that are due and returns how many were sent.
// A milestone is recorded only once its reminder was delivered, so a failed
// send is retried on the next check.
func (r *PauseReminder) Check(ctx context.Context) (int, error) {
	if r.notifier == nil {
		return 0, nil
	}
	m := r.machine
	now := m.clock()

	var due []reminderDue
	m.eachDriver(func(driverID int64, st *driverState) {
		st.mu.Lock()
		defer st.mu.Unlock()
		if !st.loaded || st.status() != models.ShiftStatusPaused {
			return
		}
		pausedFor := now.Sub(*st.shift.PauseStartTime)
		milestone := r.Milestone(pausedFor)
		if milestone == 0 || milestone <= st.remindedAt {
			return
		}
		due = append(due, reminderDue{
			driverID:   driverID,
			st:         st,
			shiftID:    st.shift.ID,
			pauseStart: *st.shift.PauseStartTime,
			pausedFor:  pausedFor,
			milestone:  milestone,
		})
	})

	sent := 0
	for _, d := range due {
		if err := r.notifier.PauseReminder(ctx, d.driverID, d.pausedFor); err != nil {
			r.log.Warn("send pause reminder", zap.Int64("driver_id", d.driverID), zap.Error(err))
			continue
		}
		sent++
		metrics.PauseRemindersTotal.Inc()
		r.markReminded(d)
	}
	return sent, nil
}

// markReminded records the milestone unless the pause it belongs to has ended meanwhile.
func (r *PauseReminder) markReminded(d reminderDue) {
	d.st.mu.Lock()
	defer d.st.mu.Unlock()
	shift := d.st.shift
	if shift == nil || shift.ID != d.shiftID || shift.PauseStartTime == nil || !shift.PauseStartTime.Equal(d.pauseStart) {
		return
	}
	if d.milestone > d.st.remindedAt {
		d.st.remindedAt = d.milestone
	}
}
