package app

import (
	"context"
	"fmt"
	"time"

	"lockbot/internal/bot"
	"lockbot/internal/config"
	"lockbot/internal/reminder"
	"lockbot/internal/storage"
	"lockbot/internal/transport"
	"lockbot/internal/transport/telegram"
	"lockbot/pkg/logx"
)

// App wires config, logging, storage, the Telegram adapter, the command
// router, and the reminder scheduler. All dependencies are explicit; there
// are no package-level singletons.
type App struct {
	mgr     *config.Manager
	logSvc  *logx.Service
	log     logx.Logger
	store   storage.Store
	adapter *telegram.Adapter
	router  *bot.Router
	rem     *reminder.Service
	updates chan transport.Update
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	mgr.SetLogger(log)

	busy, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	pollTimeout, _ := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	adapter, err := telegram.New(telegram.Config{
		Token:          cfg.Telegram.Token,
		PollTimeout:    pollTimeout,
		SendRatePerSec: cfg.Telegram.SendRatePerSec,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Alerts.Timezone)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("alerts.timezone: %w", err)
	}
	clock := reminder.SystemClock{Loc: loc}

	dailyAt, err := reminder.ParseTimeOfDay(cfg.Alerts.DailyAt)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("alerts.daily_at: %w", err)
	}
	defaultAt, err := reminder.ParseTimeOfDay(cfg.Alerts.DefaultEventTime)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("alerts.default_event_time: %w", err)
	}

	rem := reminder.New(reminder.Config{
		Timezone:  cfg.Alerts.Timezone,
		DailyAt:   dailyAt,
		DefaultAt: defaultAt,
	}, store, adapter, clock, log.With(logx.String("comp", "reminder")))

	router := bot.NewRouter(bot.Config{
		AllowedChatIDs:   cfg.Telegram.AllowedChatIDs,
		DefaultEventTime: defaultAt,
	}, store, adapter, clock, log.With(logx.String("comp", "bot")))

	return &App{
		mgr:     mgr,
		logSvc:  logSvc,
		log:     log,
		store:   store,
		adapter: adapter,
		router:  router,
		rem:     rem,
		updates: make(chan transport.Update, 128),
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	if err := a.adapter.Start(ctx, a.updates); err != nil {
		return err
	}
	go a.router.Run(ctx, a.updates)
	if err := a.rem.Start(ctx); err != nil {
		return err
	}

	// Live-reload logging settings; everything else requires a restart.
	go func() {
		err := a.mgr.Watch(ctx, func(cfg *config.Config) {
			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
		})
		if err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	a.log.Info("lockbot started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	a.rem.Stop(ctx)
	_ = a.adapter.Stop(ctx)
	err := a.store.Close()
	a.log.Info("lockbot stopped")
	_ = a.logSvc.Close()
	return err
}
