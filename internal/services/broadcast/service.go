package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hookbot/internal/storage"
	"hookbot/internal/transport"
	logx "hookbot/pkg/logx"
)

func New(cfg Config, store JobStore, dir Directory, deliver transport.Deliverer, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg,
		store:   store,
		dir:     dir,
		deliver: deliver,
		log:     log,
	}
}

// newID builds a job id that sorts by creation time (nanosecond prefix) and
// stays unique under concurrent enqueues (uuid fragment).
func newID(now time.Time) string {
	return fmt.Sprintf("job_%d_%s", now.UnixNano(), uuid.NewString()[:8])
}

// Enqueue creates and persists a new pending job. When targets is nil the
// recipient directory is snapshotted at this instant; recipients added later
// do not join the job.
func (s *Service) Enqueue(ctx context.Context, kind storage.JobKind, payload storage.JobPayload, targets []int64) (string, error) {
	if targets == nil {
		ids, err := s.dir.ListRecipients(ctx)
		if err != nil {
			return "", storageErr("list", "", err)
		}
		targets = ids
	}

	now := time.Now()
	job := storage.JobRecord{
		ID:        newID(now),
		Kind:      kind,
		Payload:   payload,
		Targets:   targets,
		Status:    storage.JobPending,
		CreatedAt: now,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return "", storageErr("create", job.ID, err)
	}
	s.log.Debug("broadcast job enqueued",
		logx.String("job", job.ID),
		logx.String("kind", string(kind)),
		logx.Int("targets", len(targets)))
	return job.ID, nil
}

// SweepPending runs one batch for every stored job. Each job is independent;
// a failing job does not stop the sweep, and its error is joined into the
// returned error alongside the summaries that did complete.
func (s *Service) SweepPending(ctx context.Context) ([]Summary, error) {
	ids, err := s.store.ListJobIDs(ctx)
	if err != nil {
		return nil, storageErr("list", "", err)
	}

	summaries := make([]Summary, 0, len(ids))
	var errs []error
	for _, id := range ids {
		sum, err := s.ProcessBatch(ctx, id, 0)
		if err != nil {
			// A job finished by a concurrent trigger is not a sweep failure.
			if errors.Is(err, ErrJobNotFound) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		summaries = append(summaries, sum)
	}
	return summaries, errors.Join(errs...)
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *Service) config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.cfg
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	return cfg
}
