package admin

import (
	"context"
	"net/http"
	"time"

	"taxi-shifts/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type reportStore interface {
	ListShifts(ctx context.Context, f models.ShiftFilter) ([]models.Shift, int, error)
	GetShift(ctx context.Context, id int64) (*models.Shift, error)
	EditHistory(ctx context.Context, shiftID int64) ([]models.EditRecord, error)
	EditShift(ctx context.Context, in models.ShiftEditInput) (*models.Shift, error)
	DeleteShift(ctx context.Context, id int64) (*models.Shift, error)
	CreateManualShift(ctx context.Context, in models.ManualShiftInput) (*models.Shift, error)
	Stats(ctx context.Context, now time.Time) (*models.ShiftStats, error)
}

type planStore interface {
	UpsertPlan(ctx context.Context, p models.Plan) (*models.Plan, error)
	ListPlans(ctx context.Context, driverID int64) ([]models.Plan, error)
}

type loginThrottle interface {
	WaitSeconds(ctx context.Context, subject string) (int, error)
	RecordFailed(ctx context.Context, subject string) error
	RecordSuccess(ctx context.Context, subject string) error
}

// stateCache is the part of the shift machine that must hear about admin
// changes, so a driver's cached state is reloaded from the edited rows.
type stateCache interface {
	Forget(driverID int64)
}

type API struct {
	Reports  reportStore
	Plans    planStore
	Machine  stateCache
	Auth     *Auth
	Throttle loginThrottle
	Loc      *time.Location
	Log      *zap.Logger
	Now      func() time.Time
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *API) location() *time.Location {
	if a.Loc != nil {
		return a.Loc
	}
	return time.UTC
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(a.loggingMiddleware)

	r.Get("/health", a.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", a.handleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.authMiddleware)
		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", a.handleListShifts)
			r.Post("/", a.handleCreateShift)
			r.Get("/{id}", a.handleGetShift)
			r.Put("/{id}", a.handleEditShift)
			r.Delete("/{id}", a.handleDeleteShift)
			r.Get("/{id}/edits", a.handleEditHistory)
		})
		r.Get("/stats", a.handleStats)
		r.Get("/export.csv", a.handleExportCSV)
		r.Get("/plans/{driverID}", a.handleListPlans)
		r.Put("/plans/{driverID}", a.handleUpsertPlan)
	})

	return r
}
