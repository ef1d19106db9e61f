package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ThrottleCooldownCapSeconds = 30

// LoginThrottle slows down password guessing on the admin panel. A subject is
// usually the client IP.
type LoginThrottle struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewLoginThrottle(pool *pgxpool.Pool) *LoginThrottle {
	return &LoginThrottle{pool: pool, now: time.Now}
}

// WaitSeconds returns how many seconds the subject must wait before trying again (0 if no cooldown).
func (t *LoginThrottle) WaitSeconds(ctx context.Context, subject string) (int, error) {
	var cooldownUntil *time.Time
	err := t.pool.QueryRow(ctx, `
		SELECT cooldown_until FROM login_throttle WHERE subject = $1`,
		subject,
	).Scan(&cooldownUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil // no row = no throttle
		}
		return 0, err
	}
	if cooldownUntil == nil {
		return 0, nil
	}
	return waitUntil(t.now(), *cooldownUntil), nil
}

func waitUntil(now, until time.Time) int {
	if !now.Before(until) {
		return 0
	}
	return int(until.Sub(now).Seconds()) + 1 // round up
}

// RecordFailed increments fail_count and sets cooldown_until = now() + min(30, 2^fail_count) seconds.
func (t *LoginThrottle) RecordFailed(ctx context.Context, subject string) error {
	_, err := t.pool.Exec(ctx, `
		INSERT INTO login_throttle (subject, fail_count, last_failed_at, cooldown_until, updated_at)
		VALUES ($1, 1, now(), now() + (LEAST($2, POWER(2, 1)::int) || ' seconds')::interval, now())
		ON CONFLICT (subject) DO UPDATE SET
			fail_count = login_throttle.fail_count + 1,
			last_failed_at = now(),
			cooldown_until = now() + (LEAST($2, POWER(2, LEAST(login_throttle.fail_count + 1, 16))::int) || ' seconds')::interval,
			updated_at = now()`,
		subject, ThrottleCooldownCapSeconds,
	)
	return err
}

// RecordSuccess resets fail_count and cooldown_until for the subject.
func (t *LoginThrottle) RecordSuccess(ctx context.Context, subject string) error {
	_, err := t.pool.Exec(ctx, `
		INSERT INTO login_throttle (subject, fail_count, last_failed_at, cooldown_until, updated_at)
		VALUES ($1, 0, NULL, NULL, now())
		ON CONFLICT (subject) DO UPDATE SET
			fail_count = 0,
			last_failed_at = NULL,
			cooldown_until = NULL,
			updated_at = now()`,
		subject,
	)
	return err
}

// CooldownSecondsForFailCount returns min(30, 2^failCount).
func CooldownSecondsForFailCount(failCount int) int {
	s := int(math.Pow(2, float64(failCount)))
	if s > ThrottleCooldownCapSeconds || s <= 0 {
		return ThrottleCooldownCapSeconds
	}
	return s
}
