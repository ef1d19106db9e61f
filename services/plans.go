package services

import (
	"context"
	"errors"
	"fmt"

	"taxi-shifts/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrInvalidPlan = errors.New("invalid plan")

type PgPlanStore struct {
	pool *pgxpool.Pool
}

func NewPgPlanStore(pool *pgxpool.Pool) *PgPlanStore {
	return &PgPlanStore{pool: pool}
}

// ValidatePlan checks the period bounds: months 1-12, ISO weeks 1-53.
func ValidatePlan(p models.Plan) error {
	switch p.PeriodType {
	case models.PlanPeriodMonth:
		if p.Period < 1 || p.Period > 12 {
			return fmt.Errorf("%w: month %d", ErrInvalidPlan, p.Period)
		}
	case models.PlanPeriodWeek:
		if p.Period < 1 || p.Period > 53 {
			return fmt.Errorf("%w: week %d", ErrInvalidPlan, p.Period)
		}
	default:
		return fmt.Errorf("%w: period type %q", ErrInvalidPlan, p.PeriodType)
	}
	if p.Year < 2000 || p.Year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidPlan, p.Year)
	}
	if p.TargetCash < 0 {
		return fmt.Errorf("%w: negative target", ErrInvalidPlan)
	}
	if p.DriverID == 0 {
		return fmt.Errorf("%w: driver id is required", ErrInvalidPlan)
	}
	return nil
}

// UpsertPlan creates or replaces the target for the plan's driver and period.
func (s *PgPlanStore) UpsertPlan(ctx context.Context, p models.Plan) (*models.Plan, error) {
	if err := ValidatePlan(p); err != nil {
		return nil, err
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO plans (driver_id, period_type, year, period, target_cash, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (driver_id, period_type, year, period) DO UPDATE SET
			target_cash = EXCLUDED.target_cash,
			updated_at = now()
		RETURNING updated_at`,
		p.DriverID, string(p.PeriodType), p.Year, p.Period, p.TargetCash,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert plan: %w", err)
	}
	return &p, nil
}

// GetPlan returns nil if no target was set for the period.
func (s *PgPlanStore) GetPlan(ctx context.Context, driverID int64, periodType models.PlanPeriod, year, period int) (*models.Plan, error) {
	p := models.Plan{DriverID: driverID, PeriodType: periodType, Year: year, Period: period}
	err := s.pool.QueryRow(ctx, `
		SELECT target_cash, updated_at
		FROM plans
		WHERE driver_id = $1 AND period_type = $2 AND year = $3 AND period = $4`,
		driverID, string(periodType), year, period,
	).Scan(&p.TargetCash, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return &p, nil
}

func (s *PgPlanStore) ListPlans(ctx context.Context, driverID int64) ([]models.Plan, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT driver_id, period_type, year, period, target_cash, updated_at
		FROM plans
		WHERE driver_id = $1
		ORDER BY year DESC, period_type, period DESC`,
		driverID,
	)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []models.Plan
	for rows.Next() {
		var (
			p          models.Plan
			periodType string
		)
		if err := rows.Scan(&p.DriverID, &periodType, &p.Year, &p.Period, &p.TargetCash, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.PeriodType = models.PlanPeriod(periodType)
		out = append(out, p)
	}
	return out, rows.Err()
}
