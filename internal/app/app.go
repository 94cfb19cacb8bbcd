// Package app wires configuration, storage, transport, the dispatcher and
// the command router into one runnable unit.
package app

import (
	"context"
	"time"

	"imgbot/internal/bot"
	"imgbot/internal/config"
	"imgbot/internal/imageindex"
	rtsup "imgbot/internal/runtime/supervisor"
	"imgbot/internal/schedule"
	"imgbot/internal/storage"
	kit "imgbot/internal/transport"
	"imgbot/internal/transport/telegram"
	logx "imgbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	logs *logx.Service
	log  logx.Logger

	store   *storage.DB
	adapter *telegram.Adapter
	sched   *schedule.Service
	disp    *schedule.Dispatcher
	router  *bot.Bot

	updates chan kit.Update
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	appLog := log.With(logx.String("comp", "app"))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		RatePerSec:  cfg.Telegram.RatePerSec,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	busyTimeout, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	pollInterval, err := config.ParseDurationOrDefault("scheduler.poll_interval", cfg.Scheduler.PollInterval, 0)
	if err != nil {
		return nil, err
	}
	schedSvc := schedule.NewService(store, schedule.ServiceConfig{
		MaxMinutes: cfg.Scheduler.MaxScheduleMinutes,
		ListLimit:  cfg.Scheduler.ListLimit,
	})

	dedupWindow, err := config.ParseDurationOrDefault("images.dedup_window", cfg.Images.DedupWindow, 0)
	if err != nil {
		return nil, err
	}
	indexer := imageindex.New(store, newExtractor(cfg.Images, log), imageindex.Config{
		DedupWindow: dedupWindow,
	}, log.With(logx.String("comp", "imageindex")))

	registry := schedule.NewRegistry()
	bot.RegisterImageSearch(registry, store)

	disp := schedule.NewDispatcher(store, bot.NewResolver(adapter), registry, schedule.DispatcherConfig{
		PollInterval: pollInterval,
		BatchSize:    cfg.Scheduler.BatchSize,
	}, log.With(logx.String("comp", "dispatcher")))

	router := bot.New(adapter, schedSvc, indexer, store, bot.Config{
		ImagesDir: imagesDir(cfg.Images),
	}, log.With(logx.String("comp", "bot")))

	return &App{
		cfgm:    cfgm,
		logs:    logs,
		log:     appLog,
		store:   store,
		adapter: adapter,
		sched:   schedSvc,
		disp:    disp,
		router:  router,
		updates: make(chan kit.Update, 256),
	}, nil
}

func imagesDir(cfg config.ImagesConfig) string {
	if cfg.Folder != "" {
		return cfg.Folder
	}
	return "data/images"
}

func newExtractor(cfg config.ImagesConfig, log logx.Logger) imageindex.TextExtractor {
	if cfg.OCRBinary == "none" {
		return imageindex.NopExtractor
	}
	return &imageindex.TesseractExtractor{
		Binary: cfg.OCRBinary,
		Log:    log.With(logx.String("comp", "ocr")),
	}
}

// Done is closed when the app supervisor context is canceled.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	a.sup.Go("bot.router", func(c context.Context) error {
		return a.router.Run(c, a.updates)
	})

	a.sup.Go0("schedule.dispatcher", func(c context.Context) {
		a.disp.Run(c)
	})

	a.sup.Go0("config.watch", func(c context.Context) {
		_ = a.cfgm.Watch(c)
	})

	// Hot-reload fan-out. Only logging is applied live; storage, telegram
	// and scheduler knobs take effect on restart.
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.logs.Apply(logx.Config{
					Level:   newCfg.Logging.Level,
					Console: newCfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: newCfg.Logging.File.Enabled,
						Path:    newCfg.Logging.File.Path,
					},
				})
				a.log.Info("config reloaded", logx.String("level", newCfg.Logging.Level))
			}
		}
	})

	a.log.Info("started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	a.log.Info("stopping")

	if a.sup != nil {
		a.sup.Cancel()
	}
	_ = a.adapter.Stop(ctx)

	if a.sup != nil {
		wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := a.sup.Wait(wctx); err != nil {
			a.log.Warn("shutdown incomplete", logx.Err(err))
		}
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("store close failed", logx.Err(err))
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
