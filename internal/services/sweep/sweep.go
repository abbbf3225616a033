// Package sweep runs the broadcast engine's pending-job drain on a schedule.
//
// Inbound updates already sweep before being handled; the cron trigger covers
// idle periods, when no user traffic would otherwise move jobs forward.
package sweep

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"hookbot/internal/services/broadcast"
	logx "hookbot/pkg/logx"
)

type Config struct {
	Enabled  bool
	Spec     string // cron spec or "@every 1m" descriptor
	Timezone string // IANA TZ; empty means local
}

const defaultSpec = "@every 1m"

type Service struct {
	mu  sync.Mutex
	cfg Config

	engine *broadcast.Service
	log    logx.Logger

	parser cron.Parser
	c      *cron.Cron
}

func New(cfg Config, engine *broadcast.Service, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		engine: engine,
		log:    log,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.c != nil {
		return nil
	}
	return s.startLocked(ctx)
}

func (s *Service) startLocked(ctx context.Context) error {
	spec := strings.TrimSpace(s.cfg.Spec)
	if spec == "" {
		spec = defaultSpec
	}

	loc := time.Local
	if tz := strings.TrimSpace(s.cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return err
		}
		loc = l
	}

	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	_, err := c.AddFunc(spec, func() {
		sctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		summaries, err := s.engine.SweepPending(sctx)
		if err != nil {
			s.log.Warn("scheduled sweep finished with errors", logx.Err(err))
		}
		if len(summaries) > 0 {
			s.log.Info("scheduled sweep", logx.Int("jobs", len(summaries)))
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	s.c = c
	s.log.Info("sweep scheduler started", logx.String("spec", spec), logx.String("tz", loc.String()))
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Service) stopLocked() {
	if s.c == nil {
		return
	}
	stopCtx := s.c.Stop()
	// Wait briefly for a running sweep, then let it finish in the background.
	select {
	case <-stopCtx.Done():
	case <-time.After(2 * time.Second):
	}
	s.c = nil
	s.log.Info("sweep scheduler stopped")
}

// Apply restarts the cron entry when the schedule changed.
func (s *Service) Apply(ctx context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg == s.cfg {
		return nil
	}
	s.cfg = cfg
	s.stopLocked()
	if !cfg.Enabled {
		return nil
	}
	return s.startLocked(ctx)
}
