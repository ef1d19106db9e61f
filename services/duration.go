package services

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
	"time"
)

// FormatDuration renders worked seconds as "H ч M мин", dropping a zero unit.
// Zero seconds renders as "0 мин".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%d ч %d мин", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%d ч", hours)
	default:
		return fmt.Sprintf("%d мин", minutes)
	}
}

// WorkedSeconds is (end - start) minus pauses, never negative.
func WorkedSeconds(start, end time.Time, pauseSeconds int64) int64 {
	worked := int64(end.Sub(start)/time.Second) - pauseSeconds
	if worked < 0 {
		return 0
	}
	return worked
}

// MaxCash is the largest amount accepted as a shift's cash.
const MaxCash int64 = 1_000_000_000_000

// HourlyRate is floor(cash / hours). Zero worked time yields 0; a rate that
// does not fit in int64 saturates at math.MaxInt64.
func HourlyRate(cash, workedSeconds int64) int64 {
	if workedSeconds <= 0 || cash <= 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(cash), 3600)
	if hi >= uint64(workedSeconds) {
		return math.MaxInt64
	}
	rate, _ := bits.Div64(hi, lo, uint64(workedSeconds))
	if rate > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(rate)
}

// ParseCash accepts a non-negative integer up to MaxCash, tolerating digit-group spaces ("12 500")
// and a trailing currency mark.
func ParseCash(input string) (int64, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimSuffix(s, "₽")
	s = strings.TrimSuffix(strings.TrimSpace(s), "руб")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '\u202f' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	amount, err := strconv.ParseInt(s, 10, 64)
	if err != nil || amount < 0 || amount > MaxCash {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

func seconds(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
