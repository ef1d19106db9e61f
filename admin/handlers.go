package admin

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"taxi-shifts/models"
	"taxi-shifts/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// adminEditorID is recorded as the editor of panel changes. The panel has a
// single shared password, so there is no per-user identity to record.
const adminEditorID int64 = 0

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type shiftResponse struct {
	ID                   int64              `json:"id"`
	DriverID             int64              `json:"driver_id"`
	Status               models.ShiftStatus `json:"status"`
	StartTime            time.Time          `json:"start_time"`
	EndTime              *time.Time         `json:"end_time"`
	DurationText         string             `json:"duration_text"`
	DurationSeconds      int64              `json:"duration_seconds"`
	PauseDurationSeconds int64              `json:"pause_duration_seconds"`
	Cash                 *int64             `json:"cash"`
	HourlyRate           *int64             `json:"hourly_rate"`
	CreatedAt            time.Time          `json:"created_at"`
}

type shiftListResponse struct {
	Items  []shiftResponse `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// shiftRequest is used both for edits and manually created shifts. Times are
// RFC3339 or "2006-01-02T15:04" in the panel's zone.
type shiftRequest struct {
	DriverID  int64  `json:"driver_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Cash      *int64 `json:"cash"`
	Reason    string `json:"reason"`
}

type planRequest struct {
	PeriodType models.PlanPeriod `json:"period_type"`
	Year       int               `json:"year"`
	Period     int               `json:"period"`
	TargetCash int64             `json:"target_cash"`
}

func toShiftResponse(s models.Shift) shiftResponse {
	return shiftResponse{
		ID:                   s.ID,
		DriverID:             s.DriverID,
		Status:               s.Status(),
		StartTime:            s.StartTime,
		EndTime:              s.EndTime,
		DurationText:         s.DurationText,
		DurationSeconds:      s.DurationSeconds,
		PauseDurationSeconds: s.PauseDurationSeconds,
		Cash:                 s.Cash,
		HourlyRate:           s.HourlyRate,
		CreatedAt:            s.CreatedAt,
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func clientSubject(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()
	subject := clientSubject(r)

	if a.Throttle != nil {
		wait, err := a.Throttle.WaitSeconds(ctx, subject)
		if err != nil {
			a.Log.Warn("login throttle lookup", zap.String("subject", subject), zap.Error(err))
		}
		if wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(wait))
			writeError(w, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "Try again in "+strconv.Itoa(wait)+" seconds")
			return
		}
	}

	if !a.Auth.CheckPassword(req.Password) {
		if a.Throttle != nil {
			if err := a.Throttle.RecordFailed(ctx, subject); err != nil {
				a.Log.Warn("record failed login", zap.String("subject", subject), zap.Error(err))
			}
		}
		a.Log.Warn("admin login rejected", zap.String("subject", subject))
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
		return
	}
	if a.Throttle != nil {
		if err := a.Throttle.RecordSuccess(ctx, subject); err != nil {
			a.Log.Warn("reset login throttle", zap.String("subject", subject), zap.Error(err))
		}
	}

	token, err := a.Auth.GenerateToken(adminEditorID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func (a *API) parseDay(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, a.location())
}

func (a *API) parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04", s, a.location())
}

// parseFilter reads driver_id, from, to (dates, both inclusive), min_cash,
// max_cash, limit and offset from the query string.
func (a *API) parseFilter(r *http.Request) (models.ShiftFilter, error) {
	q := r.URL.Query()
	var f models.ShiftFilter
	intParam := func(key string) (int64, bool, error) {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			return 0, false, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false, errors.New("invalid " + key)
		}
		return n, true, nil
	}

	if n, ok, err := intParam("driver_id"); err != nil {
		return f, err
	} else if ok {
		f.DriverID = n
	}
	if v := q.Get("from"); v != "" {
		t, err := a.parseDay(v)
		if err != nil {
			return f, errors.New("invalid from")
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := a.parseDay(v)
		if err != nil {
			return f, errors.New("invalid to")
		}
		t = t.AddDate(0, 0, 1)
		f.To = &t
	}
	if n, ok, err := intParam("min_cash"); err != nil {
		return f, err
	} else if ok {
		f.MinCash = &n
	}
	if n, ok, err := intParam("max_cash"); err != nil {
		return f, err
	} else if ok {
		f.MaxCash = &n
	}
	if n, ok, err := intParam("limit"); err != nil {
		return f, err
	} else if ok {
		f.Limit = int(n)
	}
	if n, ok, err := intParam("offset"); err != nil {
		return f, err
	} else if ok {
		f.Offset = int(n)
	}
	return f, nil
}

func (a *API) handleListShifts(w http.ResponseWriter, r *http.Request) {
	f, err := a.parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FILTER", err.Error())
		return
	}
	shifts, total, err := a.Reports.ListShifts(r.Context(), f)
	if err != nil {
		a.internalError(w, "list shifts", err)
		return
	}
	items := make([]shiftResponse, 0, len(shifts))
	for _, s := range shifts {
		items = append(items, toShiftResponse(s))
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	writeJSON(w, http.StatusOK, shiftListResponse{
		Items:  items,
		Total:  total,
		Limit:  services.ClampLimit(f.Limit),
		Offset: offset,
	})
}

func (a *API) handleGetShift(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid shift id")
		return
	}
	shift, err := a.Reports.GetShift(r.Context(), id)
	if err != nil {
		a.shiftError(w, "get shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftResponse(*shift))
}

func (a *API) readShiftRequest(w http.ResponseWriter, r *http.Request) (shiftRequest, time.Time, time.Time, bool) {
	var req shiftRequest
	if !decodeJSON(w, r, &req) {
		return req, time.Time{}, time.Time{}, false
	}
	start, err := a.parseTime(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_START_TIME", "Invalid start_time")
		return req, time.Time{}, time.Time{}, false
	}
	end, err := a.parseTime(req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_END_TIME", "Invalid end_time")
		return req, time.Time{}, time.Time{}, false
	}
	if req.Cash == nil {
		writeError(w, http.StatusBadRequest, "INVALID_CASH", "cash is required")
		return req, time.Time{}, time.Time{}, false
	}
	return req, start, end, true
}

func (a *API) handleEditShift(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid shift id")
		return
	}
	req, start, end, ok := a.readShiftRequest(w, r)
	if !ok {
		return
	}
	shift, err := a.Reports.EditShift(r.Context(), models.ShiftEditInput{
		ShiftID:   id,
		EditorID:  EditorIDFromContext(r.Context()),
		Reason:    req.Reason,
		StartTime: start,
		EndTime:   end,
		Cash:      *req.Cash,
	})
	if err != nil {
		a.shiftError(w, "edit shift", err)
		return
	}
	a.Machine.Forget(shift.DriverID)
	a.Log.Info("shift edited",
		zap.Int64("shift_id", shift.ID),
		zap.Int64("editor_id", EditorIDFromContext(r.Context())),
		zap.String("reason", req.Reason),
	)
	writeJSON(w, http.StatusOK, toShiftResponse(*shift))
}

func (a *API) handleCreateShift(w http.ResponseWriter, r *http.Request) {
	req, start, end, ok := a.readShiftRequest(w, r)
	if !ok {
		return
	}
	shift, err := a.Reports.CreateManualShift(r.Context(), models.ManualShiftInput{
		DriverID:  req.DriverID,
		StartTime: start,
		EndTime:   end,
		Cash:      *req.Cash,
		EditorID:  EditorIDFromContext(r.Context()),
	})
	if err != nil {
		a.shiftError(w, "create shift", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftResponse(*shift))
}

func (a *API) handleDeleteShift(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid shift id")
		return
	}
	shift, err := a.Reports.DeleteShift(r.Context(), id)
	if err != nil {
		a.shiftError(w, "delete shift", err)
		return
	}
	a.Machine.Forget(shift.DriverID)
	a.Log.Info("shift deleted", zap.Int64("shift_id", id), zap.Int64("editor_id", EditorIDFromContext(r.Context())))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleEditHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid shift id")
		return
	}
	edits, err := a.Reports.EditHistory(r.Context(), id)
	if err != nil {
		a.internalError(w, "edit history", err)
		return
	}
	if edits == nil {
		edits = []models.EditRecord{}
	}
	writeJSON(w, http.StatusOK, edits)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Reports.Stats(r.Context(), a.now())
	if err != nil {
		a.internalError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleListPlans(w http.ResponseWriter, r *http.Request) {
	driverID, ok := pathID(r, "driverID")
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid driver id")
		return
	}
	plans, err := a.Plans.ListPlans(r.Context(), driverID)
	if err != nil {
		a.internalError(w, "list plans", err)
		return
	}
	if plans == nil {
		plans = []models.Plan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

func (a *API) handleUpsertPlan(w http.ResponseWriter, r *http.Request) {
	driverID, ok := pathID(r, "driverID")
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid driver id")
		return
	}
	var req planRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	plan, err := a.Plans.UpsertPlan(r.Context(), models.Plan{
		DriverID:   driverID,
		PeriodType: req.PeriodType,
		Year:       req.Year,
		Period:     req.Period,
		TargetCash: req.TargetCash,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidPlan) {
			writeError(w, http.StatusBadRequest, "INVALID_PLAN", err.Error())
			return
		}
		a.internalError(w, "upsert plan", err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (a *API) shiftError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, models.ErrShiftNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Shift not found")
	case errors.Is(err, services.ErrShiftOpen):
		writeError(w, http.StatusConflict, "SHIFT_OPEN", "Shift is still open")
	case errors.Is(err, services.ErrInvalidEdit):
		writeError(w, http.StatusBadRequest, "INVALID_EDIT", err.Error())
	default:
		a.internalError(w, op, err)
	}
}

func (a *API) internalError(w http.ResponseWriter, op string, err error) {
	a.Log.Error("admin request failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
}
