package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taxi-shifts/admin"
	"taxi-shifts/bot"
	"taxi-shifts/config"
	"taxi-shifts/db"
	"taxi-shifts/logger"
	"taxi-shifts/services"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Init(ctx, cfg.DB); err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	defer db.Close()

	// Check for migrate subcommand
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := applyMigrations(ctx, log); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
		return
	}

	if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
		if err := applyMigrations(ctx, log); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("shutdown", zap.Error(err))
	}
	log.Info("stopped")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	var events services.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		events = services.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info("publishing shift events to kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	} else {
		events = services.NewLogPublisher(log.Named("events"))
	}
	defer func() {
		if err := events.Close(); err != nil {
			log.Warn("close event publisher", zap.Error(err))
		}
	}()

	shifts := services.NewPgShiftStore(db.Pool)
	reports := services.NewPgReportStore(db.Pool, cfg.Shifts.Location)
	plans := services.NewPgPlanStore(db.Pool)
	machine := services.NewShiftMachine(shifts, log.Named("machine"), services.WithEvents(events))

	if _, err := machine.Warm(ctx); err != nil {
		// drivers are reconciled lazily on their next message
		log.Warn("warm shift state", zap.Error(err))
	}

	driverBot, err := bot.NewDriverBot(cfg, machine, reports, log.Named("bot"))
	if err != nil {
		return fmt.Errorf("driver bot: %w", err)
	}

	janitor := services.NewJanitor(machine, driverBot, cfg.Shifts.StaleAfter, log.Named("janitor"))
	reminder := services.NewPauseReminder(machine, driverBot, cfg.Shifts.FirstReminder, cfg.Shifts.RepeatReminder, log.Named("reminder"))
	scheduler := services.NewScheduler(log)
	scheduler.Register("abandoned_shift_sweep", cfg.Shifts.SweepInterval, func(ctx context.Context) error {
		_, err := janitor.Sweep(ctx)
		return err
	})
	scheduler.Register("pause_reminder", cfg.Shifts.PauseCheck, func(ctx context.Context) error {
		_, err := reminder.Check(ctx)
		return err
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("driver bot started")
		return driverBot.Start(ctx)
	})
	g.Go(func() error {
		return scheduler.Run(ctx)
	})

	if cfg.Admin.Password != "" {
		auth, err := admin.NewAuth(cfg.Admin.Password, cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
		if err != nil {
			return fmt.Errorf("admin auth: %w", err)
		}
		api := &admin.API{
			Reports:  reports,
			Plans:    plans,
			Machine:  machine,
			Auth:     auth,
			Throttle: services.NewLoginThrottle(db.Pool),
			Loc:      cfg.Shifts.Location,
			Log:      log.Named("admin"),
		}
		srv := &http.Server{
			Addr:              ":" + cfg.Admin.Port,
			Handler:           api.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			log.Info("admin panel listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	} else {
		log.Warn("ADMIN_PASSWORD not set, admin panel disabled")
	}

	return g.Wait()
}
