package admin

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"taxi-shifts/models"

	"go.uber.org/zap"
)

const exportPageSize = 500

var exportHeader = []string{
	"id", "driver_id", "status", "start_time", "end_time", "duration_text", "duration_seconds",
	"pause_duration_seconds", "cash", "hourly_rate",
}

// handleExportCSV streams every shift matching the list filters, ignoring limit and offset.
func (a *API) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := a.parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FILTER", err.Error())
		return
	}
	f.Limit = exportPageSize
	f.Offset = 0

	// first page before any header so a failing query still gets a JSON error
	shifts, total, err := a.Reports.ListShifts(r.Context(), f)
	if err != nil {
		a.internalError(w, "export shifts", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="shifts-`+a.now().In(a.location()).Format("20060102")+`.csv"`)
	w.WriteHeader(http.StatusOK)
	// BOM so spreadsheet apps detect UTF-8 in the Cyrillic duration texts
	_, _ = w.Write([]byte("\xef\xbb\xbf"))

	cw := csv.NewWriter(w)
	_ = cw.Write(exportHeader)
	for {
		for _, s := range shifts {
			_ = cw.Write(a.csvRow(s))
		}
		f.Offset += len(shifts)
		if len(shifts) == 0 || f.Offset >= total {
			break
		}
		shifts, _, err = a.Reports.ListShifts(r.Context(), f)
		if err != nil {
			a.Log.Error("export shifts: page failed", zap.Int("offset", f.Offset), zap.Error(err))
			break
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		a.Log.Warn("export shifts: write", zap.Error(err))
	}
}

func (a *API) csvRow(s models.Shift) []string {
	loc := a.location()
	formatTime := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.In(loc).Format("2006-01-02 15:04:05")
	}
	formatInt := func(v *int64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatInt(*v, 10)
	}
	start := s.StartTime
	return []string{
		strconv.FormatInt(s.ID, 10),
		strconv.FormatInt(s.DriverID, 10),
		string(s.Status()),
		formatTime(&start),
		formatTime(s.EndTime),
		s.DurationText,
		strconv.FormatInt(s.DurationSeconds, 10),
		strconv.FormatInt(s.PauseDurationSeconds, 10),
		formatInt(s.Cash),
		formatInt(s.HourlyRate),
	}
}
