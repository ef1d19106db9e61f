package models

import (
	"errors"
	"time"
)

var (
	ErrShiftNotFound = errors.New("shift not found")
	// ErrShiftConflict means the row no longer matches the state the caller expected.
	ErrShiftConflict = errors.New("shift state conflict")
)

type ShiftStatus string

const (
	ShiftStatusIdle         ShiftStatus = "idle"
	ShiftStatusActive       ShiftStatus = "active"
	ShiftStatusPaused       ShiftStatus = "paused"
	ShiftStatusAwaitingCash ShiftStatus = "awaiting_cash"
	ShiftStatusCompleted    ShiftStatus = "completed"
)

// IsOpen reports whether the status counts toward the one-open-shift-per-driver rule.
func (s ShiftStatus) IsOpen() bool {
	return s == ShiftStatusActive || s == ShiftStatusPaused || s == ShiftStatusAwaitingCash
}

// Shift is a row of the shifts table.
type Shift struct {
	ID                   int64
	DriverID             int64
	StartTime            time.Time
	EndTime              *time.Time
	DurationText         string
	DurationSeconds      int64
	Cash                 *int64
	HourlyRate           *int64
	IsActive             bool
	IsPaused             bool
	PauseStartTime       *time.Time
	PauseDurationSeconds int64
	AwaitingCashInput    bool
	CreatedAt            time.Time
}

// Status derives the lifecycle status from the stored flags.
func (s *Shift) Status() ShiftStatus {
	switch {
	case s.AwaitingCashInput:
		return ShiftStatusAwaitingCash
	case s.IsActive && s.IsPaused:
		return ShiftStatusPaused
	case s.IsActive:
		return ShiftStatusActive
	default:
		return ShiftStatusCompleted
	}
}

// ShiftFilter narrows admin listings. Zero values mean "no filter".
type ShiftFilter struct {
	DriverID int64
	From     *time.Time // inclusive, compared with start_time
	To       *time.Time // exclusive
	MinCash  *int64
	MaxCash  *int64
	Limit    int
	Offset   int
}

// EditRecord is an immutable audit entry for an admin change to a shift.
type EditRecord struct {
	ID            int64      `json:"id"`
	ShiftID       int64      `json:"shift_id"`
	EditorID      int64      `json:"editor_id"`
	EditedAt      time.Time  `json:"edited_at"`
	Reason        string     `json:"reason"`
	OldStartTime  *time.Time `json:"old_start_time"`
	NewStartTime  *time.Time `json:"new_start_time"`
	OldEndTime    *time.Time `json:"old_end_time"`
	NewEndTime    *time.Time `json:"new_end_time"`
	OldCash       *int64     `json:"old_cash"`
	NewCash       *int64     `json:"new_cash"`
	OldHourlyRate *int64     `json:"old_hourly_rate"`
	NewHourlyRate *int64     `json:"new_hourly_rate"`
}

type ShiftEditInput struct {
	ShiftID   int64
	EditorID  int64
	Reason    string
	StartTime time.Time
	EndTime   time.Time
	Cash      int64
}

type ManualShiftInput struct {
	DriverID  int64
	StartTime time.Time
	EndTime   time.Time
	Cash      int64
	EditorID  int64
}

type PlanPeriod string

const (
	PlanPeriodMonth PlanPeriod = "month"
	PlanPeriodWeek  PlanPeriod = "week"
)

// Plan is a cash target for one driver in one calendar period.
// Period is the month (1-12) or the ISO week number.
type Plan struct {
	DriverID   int64      `json:"driver_id"`
	PeriodType PlanPeriod `json:"period_type"`
	Year       int        `json:"year"`
	Period     int        `json:"period"`
	TargetCash int64      `json:"target_cash"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// PeriodTotals aggregates completed shifts over a time range.
type PeriodTotals struct {
	Shifts        int
	Cash          int64
	WorkedSeconds int64
}

type DailyTotals struct {
	Date   time.Time `json:"date"`
	Shifts int       `json:"shifts"`
	Cash   int64     `json:"cash"`
}

type DriverTotals struct {
	DriverID int64 `json:"driver_id"`
	Shifts   int   `json:"shifts"`
	Cash     int64 `json:"cash"`
}

type ShiftStats struct {
	TotalShifts   int            `json:"total_shifts"`
	OpenShifts    int            `json:"open_shifts"`
	TotalCash     int64          `json:"total_cash"`
	AvgHourlyRate float64        `json:"avg_hourly_rate"`
	LastDays      []DailyTotals  `json:"last_days"`
	TopDrivers    []DriverTotals `json:"top_drivers"`
}
