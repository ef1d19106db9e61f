package models

import (
	"testing"
	"time"
)

func TestShiftStatus(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		shift Shift
		want  ShiftStatus
	}{
		{"active", Shift{IsActive: true}, ShiftStatusActive},
		{"paused", Shift{IsActive: true, IsPaused: true, PauseStartTime: &now}, ShiftStatusPaused},
		{"awaiting cash", Shift{AwaitingCashInput: true}, ShiftStatusAwaitingCash},
		{"completed", Shift{}, ShiftStatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.shift.Status(); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShiftStatusIsOpen(t *testing.T) {
	open := []ShiftStatus{ShiftStatusActive, ShiftStatusPaused, ShiftStatusAwaitingCash}
	for _, s := range open {
		if !s.IsOpen() {
			t.Errorf("%q should be open", s)
		}
	}
	for _, s := range []ShiftStatus{ShiftStatusIdle, ShiftStatusCompleted} {
		if s.IsOpen() {
			t.Errorf("%q should not be open", s)
		}
	}
}
