// Package app wires configuration, storage, the Telegram adapter, the
// broadcast engine and the update router into one runnable unit.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"hookbot/internal/config"
	"hookbot/internal/ops"
	"hookbot/internal/router"
	"hookbot/internal/services/broadcast"
	"hookbot/internal/services/sweep"
	"hookbot/internal/storage"
	"hookbot/internal/transport"
	telegram "hookbot/internal/transport/telegram"
	logx "hookbot/pkg/logx"
)

type App struct {
	cfgPath string
	cfgm    *config.Manager

	log   logx.Logger
	store storage.Store

	adapter *telegram.Adapter
	engine  *broadcast.Service
	router  *router.Router
	sweeper *sweep.Service
	opsSrv  *ops.Server

	updates chan transport.Update

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewApp(cfgPath string) (*App, error) {
	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "config"))

	cfgm := config.NewManager(cfgPath, bootLog)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	log, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	if err != nil {
		return nil, err
	}
	appLog := log.With(logx.String("comp", "app"))

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	appLog.Info("storage ready", logx.String("driver", sc.Driver), logx.String("path", sc.Path))

	tc, err := mapTelegramConfig(cfg)
	if err != nil {
		return nil, err
	}
	adapter, err := telegram.New(tc, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	bc, err := mapBroadcastConfig(cfg)
	if err != nil {
		return nil, err
	}
	engine := broadcast.New(bc, store, store, telegram.Deliverer{A: adapter},
		log.With(logx.String("comp", "broadcast")))

	var logFile string
	if cfg.Logging.File.Enabled {
		logFile = cfg.Logging.File.Path
	}
	rt := router.New(router.Config{
		AdminIDs:          cfg.Telegram.AdminIDs,
		Channel:           cfg.Telegram.Channel,
		SupportContacts:   cfg.Telegram.SupportContacts,
		DefaultWebhookURL: cfg.Telegram.DefaultWebhookURL,
		BotToken:          cfg.Telegram.Token,
		LogFile:           logFile,
	}, adapter, adapter.API(), store, engine, log.With(logx.String("comp", "router")))

	sweeper := sweep.New(sweep.Config{
		Enabled:  cfg.Sweep.Enabled,
		Spec:     cfg.Sweep.Spec,
		Timezone: cfg.Sweep.Timezone,
	}, engine, log.With(logx.String("comp", "sweep")))

	opsSrv := ops.New(ops.Config{
		Enabled: cfg.Ops.Enabled,
		Addr:    cfg.Ops.Addr,
	}, store, log.With(logx.String("comp", "ops")))

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     appLog,
		store:   store,
		adapter: adapter,
		engine:  engine,
		router:  rt,
		sweeper: sweeper,
		opsSrv:  opsSrv,
		updates: make(chan transport.Update, 256),
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		cancel()
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.router.Run(runCtx, a.updates)
	}()

	if err := a.sweeper.Start(runCtx); err != nil {
		a.log.Warn("sweep scheduler not started", logx.Err(err))
	}
	if err := a.opsSrv.Start(); err != nil {
		a.log.Warn("ops server not started", logx.Err(err))
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(runCtx); err != nil && runCtx.Err() == nil {
			a.log.Warn("config watcher exited", logx.Err(err))
		}
	}()

	sub := a.cfgm.Subscribe(4)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(runCtx, sub)
	}()

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("sd_notify ready sent")
	}

	a.log.Info("started")
	return nil
}

// reloadLoop applies the hot-reloadable parts of a new config: broadcast
// pacing, sweep schedule, ops toggle. Transport, storage and logging changes
// need a restart and are only logged.
func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts, keeping only the latest.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						cfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			bc, err := mapBroadcastConfig(cfg)
			if err != nil {
				a.log.Warn("invalid broadcast config on reload; keeping previous", logx.Err(err))
			} else {
				a.engine.Apply(bc)
			}

			if err := a.sweeper.Apply(ctx, sweep.Config{
				Enabled:  cfg.Sweep.Enabled,
				Spec:     cfg.Sweep.Spec,
				Timezone: cfg.Sweep.Timezone,
			}); err != nil {
				a.log.Warn("invalid sweep config on reload; keeping previous", logx.Err(err))
			}

			a.log.Info("config reload applied")
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	a.log.Info("stopping")

	if a.cancel != nil {
		a.cancel()
	}

	a.sweeper.Stop()

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.opsSrv.Stop(stopCtx); err != nil {
		a.log.Warn("ops server stop", logx.Err(err))
	}
	if err := a.adapter.Stop(stopCtx); err != nil {
		a.log.Warn("adapter stop", logx.Err(err))
	}

	a.wg.Wait()

	if err := a.store.Close(); err != nil {
		a.log.Warn("storage close", logx.Err(err))
	}

	a.log.Info("stopped")
	a.log.Close()
	return nil
}
