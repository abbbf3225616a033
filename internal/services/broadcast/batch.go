package broadcast

import (
	"context"
	"errors"

	"hookbot/internal/storage"
	"hookbot/internal/transport"
	logx "hookbot/pkg/logx"
)

// ProcessBatch attempts delivery to the next batchSize targets of the job,
// starting at its cursor, and persists the advanced state in one write.
// batchSize <= 0 means the configured default.
//
// The cursor advances once per target regardless of outcome - a failed
// delivery is never retried within the job. If a storage operation fails the
// on-disk document is left exactly as it was before the call and the error is
// returned; re-running the same batch is then safe (the discarded attempt's
// counters were never persisted).
func (s *Service) ProcessBatch(ctx context.Context, jobID string, batchSize int) (Summary, error) {
	cfg := s.config()
	if batchSize <= 0 {
		batchSize = cfg.BatchSize
	}

	s.jobLocks.lock(jobID)
	defer s.jobLocks.unlock(jobID)

	job, err := s.store.ReadJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Summary{}, ErrJobNotFound
		}
		return Summary{}, storageErr("read", jobID, err)
	}

	// A document written by an older run or edited by hand can carry a cursor
	// past the end of its target list; clamp it so the slice stays in bounds.
	if job.Cursor > len(job.Targets) {
		s.log.Warn("job cursor beyond target list, clamping",
			logx.String("job", job.ID),
			logx.Int("cursor", job.Cursor),
			logx.Int("targets", len(job.Targets)))
		job.Cursor = len(job.Targets)
	}

	end := job.Cursor + batchSize
	if end > len(job.Targets) {
		end = len(job.Targets)
	}

	for _, target := range job.Targets[job.Cursor:end] {
		res := s.sendOne(ctx, cfg, job, target)
		if res.OK {
			job.SuccessCount++
		} else {
			job.FailureCount++
			s.log.Warn("broadcast delivery failed",
				logx.String("job", job.ID),
				logx.Int64("recipient", target),
				logx.String("description", res.Description))
		}
		job.Cursor++
	}

	if job.Cursor >= len(job.Targets) {
		job.Status = storage.JobDone
	}

	summary := Summary{
		JobID:     job.ID,
		Status:    string(job.Status),
		Processed: job.Cursor,
		Success:   job.SuccessCount,
		Failed:    job.FailureCount,
		Remaining: len(job.Targets) - job.Cursor,
	}
	if summary.Remaining < 0 {
		summary.Remaining = 0
	}

	if job.Status == storage.JobDone {
		s.log.Info("broadcast job finished",
			logx.String("job", job.ID),
			logx.String("kind", string(job.Kind)),
			logx.Int("success", job.SuccessCount),
			logx.Int("failed", job.FailureCount),
			logx.Int("total", len(job.Targets)))
		if err := s.store.DeleteJob(ctx, job.ID); err != nil {
			return Summary{}, storageErr("delete", job.ID, err)
		}
		return summary, nil
	}

	if err := s.store.WriteJob(ctx, job); err != nil {
		return Summary{}, storageErr("write", job.ID, err)
	}
	return summary, nil
}

// sendOne performs a single bounded delivery attempt. Remote failures come
// back as results, never as errors; a cancelled context is reported the same
// way so the batch accounting stays uniform.
func (s *Service) sendOne(ctx context.Context, cfg Config, job storage.JobRecord, target int64) transport.DeliveryResult {
	sctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	defer cancel()

	switch job.Kind {
	case storage.JobText:
		return s.deliver.SendText(sctx, target, job.Payload.Text)
	case storage.JobForward:
		return s.deliver.Forward(sctx, target, job.Payload.FromChatID, job.Payload.MessageID)
	default:
		return transport.DeliveryResult{OK: false, Description: "unknown job kind: " + string(job.Kind)}
	}
}
