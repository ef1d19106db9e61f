// Package shifttest provides an in-memory shift store with the same state
// guards as the PostgreSQL one, for tests of code built on the state machine.
package shifttest

import (
	"context"
	"sort"
	"sync"
	"time"

	"taxi-shifts/models"
)

type MemStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Shift
	errs   map[string]error
	now    func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		rows: make(map[int64]*models.Shift),
		errs: make(map[string]error),
		now:  time.Now,
	}
}

// SetError makes every later call of method fail with err. A nil err clears it.
func (s *MemStore) SetError(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errs, method)
		return
	}
	s.errs[method] = err
}

// SetNow controls created_at of rows inserted by Create.
func (s *MemStore) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Put stores a copy of row as is, bypassing every guard. A zero ID is assigned.
func (s *MemStore) Put(row models.Shift) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row.ID == 0 {
		s.nextID++
		row.ID = s.nextID
	} else if row.ID > s.nextID {
		s.nextID = row.ID
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = row.StartTime
	}
	cp := row
	s.rows[row.ID] = &cp
	return row.ID
}

func (s *MemStore) Get(id int64) (models.Shift, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return models.Shift{}, false
	}
	return *row, true
}

// Rows returns copies of all rows ordered by id.
func (s *MemStore) Rows() []models.Shift {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Shift, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OpenCount returns the number of open rows the driver has.
func (s *MemStore) OpenCount(driverID int64) int {
	n := 0
	for _, r := range s.Rows() {
		if r.DriverID == driverID && r.Status().IsOpen() {
			n++
		}
	}
	return n
}

func (s *MemStore) fail(method string) error {
	return s.errs[method]
}

func isOpen(r *models.Shift) bool {
	return r.IsActive || r.AwaitingCashInput
}

func (s *MemStore) LoadOpen(_ context.Context, driverID int64) (*models.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("LoadOpen"); err != nil {
		return nil, err
	}
	var best *models.Shift
	for _, r := range s.rows {
		if r.DriverID != driverID || !isOpen(r) {
			continue
		}
		if best == nil || r.StartTime.After(best.StartTime) {
			best = r
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (s *MemStore) ListOpen(_ context.Context) ([]models.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListOpen"); err != nil {
		return nil, err
	}
	var out []models.Shift
	for _, r := range s.rows {
		if isOpen(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DriverID != out[j].DriverID {
			return out[i].DriverID < out[j].DriverID
		}
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out, nil
}

func (s *MemStore) Create(_ context.Context, driverID int64, start time.Time) (*models.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Create"); err != nil {
		return nil, err
	}
	zero := int64(0)
	for _, r := range s.rows {
		if r.DriverID != driverID || !isOpen(r) {
			continue
		}
		if r.EndTime == nil {
			end := start
			r.EndTime = &end
			worked := int64(start.Sub(r.StartTime)/time.Second) - r.PauseDurationSeconds
			if worked < 0 {
				worked = 0
			}
			r.DurationSeconds = worked
		}
		if r.Cash == nil {
			r.Cash = &zero
		}
		if r.HourlyRate == nil {
			r.HourlyRate = &zero
		}
		r.IsActive = false
		r.IsPaused = false
		r.PauseStartTime = nil
		r.AwaitingCashInput = false
	}
	s.nextID++
	row := &models.Shift{
		ID:        s.nextID,
		DriverID:  driverID,
		StartTime: start,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	s.rows[row.ID] = row
	cp := *row
	return &cp, nil
}

func (s *MemStore) update(method string, id int64, guard func(r *models.Shift) bool, apply func(r *models.Shift)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(method); err != nil {
		return err
	}
	r, ok := s.rows[id]
	if !ok || !guard(r) {
		return models.ErrShiftConflict
	}
	apply(r)
	return nil
}

func (s *MemStore) MarkPaused(_ context.Context, id int64, pauseStart time.Time) error {
	return s.update("MarkPaused", id,
		func(r *models.Shift) bool { return r.IsActive && !r.IsPaused && !r.AwaitingCashInput },
		func(r *models.Shift) {
			ps := pauseStart
			r.IsPaused = true
			r.PauseStartTime = &ps
		})
}

func (s *MemStore) MarkResumed(_ context.Context, id int64, pauseSeconds int64) error {
	return s.update("MarkResumed", id,
		func(r *models.Shift) bool {
			return r.IsActive && r.IsPaused && r.PauseDurationSeconds <= pauseSeconds
		},
		func(r *models.Shift) {
			r.IsPaused = false
			r.PauseStartTime = nil
			r.PauseDurationSeconds = pauseSeconds
		})
}

func (s *MemStore) MarkAwaitingCash(_ context.Context, id int64, end time.Time, pauseSeconds, workedSeconds int64, durationText string) error {
	return s.update("MarkAwaitingCash", id,
		func(r *models.Shift) bool { return r.IsActive && r.PauseDurationSeconds <= pauseSeconds },
		func(r *models.Shift) {
			e := end
			r.IsActive = false
			r.IsPaused = false
			r.PauseStartTime = nil
			r.PauseDurationSeconds = pauseSeconds
			r.AwaitingCashInput = true
			r.EndTime = &e
			r.DurationSeconds = workedSeconds
			r.DurationText = durationText
		})
}

func (s *MemStore) Finalize(_ context.Context, id int64, cash, hourlyRate int64, durationText string) error {
	return s.update("Finalize", id,
		func(r *models.Shift) bool { return r.AwaitingCashInput },
		func(r *models.Shift) {
			c, h := cash, hourlyRate
			r.AwaitingCashInput = false
			r.Cash = &c
			r.HourlyRate = &h
			r.DurationText = durationText
		})
}

func (s *MemStore) Demote(_ context.Context, id int64) error {
	return s.update("Demote", id,
		func(r *models.Shift) bool { return r.AwaitingCashInput },
		func(r *models.Shift) {
			r.IsActive = true
			r.IsPaused = false
			r.PauseStartTime = nil
			r.AwaitingCashInput = false
			r.EndTime = nil
			r.DurationSeconds = 0
			r.DurationText = ""
		})
}

func (s *MemStore) ListStaleAwaiting(_ context.Context, createdBefore time.Time) ([]models.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListStaleAwaiting"); err != nil {
		return nil, err
	}
	var out []models.Shift
	for _, r := range s.rows {
		if r.AwaitingCashInput && r.CreatedAt.Before(createdBefore) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) ForceComplete(_ context.Context, id int64, end time.Time, workedSeconds int64, durationText string) error {
	return s.update("ForceComplete", id,
		func(r *models.Shift) bool { return r.AwaitingCashInput },
		func(r *models.Shift) {
			e := end
			zero := int64(0)
			z2 := int64(0)
			r.IsActive = false
			r.IsPaused = false
			r.PauseStartTime = nil
			r.AwaitingCashInput = false
			r.EndTime = &e
			r.DurationSeconds = workedSeconds
			r.DurationText = durationText
			r.Cash = &zero
			r.HourlyRate = &z2
		})
}
