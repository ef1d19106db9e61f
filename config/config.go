package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DB       DBConfig
	Telegram TelegramConfig
	Admin    AdminConfig
	Shifts   ShiftConfig
	Kafka    KafkaConfig
	LogLevel string
}

type DBConfig struct {
	URL      string // DATABASE_URL wins over the discrete fields when set
	Host     string
	Port     int
	User     string
	Password string
	Database string
	MaxConns int32
}

// DSN returns a pgx connection string.
func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}

type TelegramConfig struct {
	Token string
}

type AdminConfig struct {
	Port      string
	Password  string
	JWTSecret string
	TokenTTL  time.Duration
}

type ShiftConfig struct {
	Location        *time.Location // canonical zone for timestamps and day boundaries
	StaleAfter      time.Duration
	SweepInterval   time.Duration
	PauseCheck      time.Duration
	FirstReminder   time.Duration
	RepeatReminder  time.Duration
	StoreRetryDelay time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []string
	dur := func(key string, def time.Duration) time.Duration {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, key)
			return def
		}
		return d
	}
	num := func(key string, def int) int {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, key)
			return def
		}
		return n
	}

	tzName := getEnv("TIMEZONE", "Europe/Moscow")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		errs = append(errs, "TIMEZONE")
		loc = time.UTC
	}

	cfg := &Config{
		DB: DBConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     num("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "taxi"),
			MaxConns: int32(num("DB_MAX_CONNS", 10)),
		},
		Telegram: TelegramConfig{
			Token: getEnv("TOKEN", ""),
		},
		Admin: AdminConfig{
			Port:      getEnv("ADMIN_PORT", "8080"),
			Password:  getEnv("ADMIN_PASSWORD", ""),
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  dur("ADMIN_TOKEN_TTL", 12*time.Hour),
		},
		Shifts: ShiftConfig{
			Location:        loc,
			StaleAfter:      dur("SHIFT_STALE_AFTER", 24*time.Hour),
			SweepInterval:   dur("SHIFT_SWEEP_INTERVAL", 10*time.Minute),
			PauseCheck:      dur("PAUSE_CHECK_INTERVAL", time.Minute),
			FirstReminder:   dur("PAUSE_FIRST_REMINDER", time.Hour),
			RepeatReminder:  dur("PAUSE_REPEAT_REMINDER", 30*time.Minute),
			StoreRetryDelay: dur("SHIFT_STORE_RETRY_DELAY", 2*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "shift_events"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid values for %s", strings.Join(errs, ", "))
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
