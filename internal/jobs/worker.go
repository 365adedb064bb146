package jobs

import (
	"context"
	"encoding/json"
	"time"

	"bulletbot/internal/deliver"
	"bulletbot/internal/logging"
)

// Queue is the job store the worker drains. *Repo implements it.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*Job, error)
	MarkDone(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, id uint64, errMsg string) error
	RetryLater(ctx context.Context, id uint64, attempts int, runAt time.Time, errMsg string) error
	EnsureDigest(ctx context.Context, runAt time.Time) error
}

// DigestSender is satisfied by *digest.Compiler.
type DigestSender interface {
	Send(ctx context.Context, sink deliver.Sink) (int64, error)
}

type Worker struct {
	ID    string
	Queue Queue
	Log   logging.Logger

	Digest DigestSender
	Sink   deliver.Sink

	// At is the daily digest time as an offset from midnight in Loc.
	At  time.Duration
	Loc *time.Location

	Interval time.Duration
	Now      func() time.Time
}

// Schedule makes sure the next daily digest is queued.
func (w *Worker) Schedule(ctx context.Context) error {
	next := NextRun(w.now(), w.At, w.Loc)
	if err := w.Queue.EnsureDigest(ctx, next); err != nil {
		return err
	}
	w.Log.Info(ctx, "digest scheduled", "run_at", next)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = 800 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick claims and handles at most one job. It reports whether a job ran.
func (w *Worker) tick(ctx context.Context) bool {
	job, err := w.Queue.Claim(ctx, w.ID)
	if err != nil {
		w.Log.Error(ctx, "worker claim error", "worker", w.ID, "err", err)
		return false
	}
	if job == nil {
		return false
	}
	w.handle(ctx, job)
	return true
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	log := w.Log.With("job_id", job.ID, "type", job.Type, "attempt", job.Attempts+1)
	switch job.Type {
	case TypeDigestDispatch:
		w.handleDigest(ctx, log, job)
	default:
		log.Warn(ctx, "unknown job type")
		w.fail(ctx, log, job, "unknown job type")
	}
}

func (w *Worker) handleDigest(ctx context.Context, log logging.Logger, job *Job) {
	var p digestPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		log.Error(ctx, "bad digest payload", "err", err)
		w.fail(ctx, log, job, "bad payload")
		w.scheduleNext(ctx, log)
		return
	}

	n, err := w.Digest.Send(ctx, w.Sink)
	if err != nil {
		log.Error(ctx, "digest send failed", "scheduled_for", p.ScheduledFor, "err", err)
		w.retry(ctx, log, job, err.Error())
		return
	}

	log.Info(ctx, "digest dispatched", "scheduled_for", p.ScheduledFor, "marked", n)
	if err := w.Queue.MarkDone(ctx, job.ID); err != nil {
		log.Error(ctx, "mark job done", "err", err)
	}
	w.scheduleNext(ctx, log)
}

func (w *Worker) scheduleNext(ctx context.Context, log logging.Logger) {
	if err := w.Schedule(ctx); err != nil {
		log.Error(ctx, "schedule next digest", "err", err)
	}
}

func (w *Worker) retry(ctx context.Context, log logging.Logger, job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		log.Error(ctx, "digest job failed permanently", "attempts", attempts)
		w.fail(ctx, log, job, errMsg)
		w.scheduleNext(ctx, log)
		return
	}

	next := w.now().Add(backoff(attempts))
	if err := w.Queue.RetryLater(ctx, job.ID, attempts, next, errMsg); err != nil {
		log.Error(ctx, "requeue job", "run_at", next, "err", err)
	}
}

func (w *Worker) fail(ctx context.Context, log logging.Logger, job *Job, errMsg string) {
	if err := w.Queue.MarkFailed(ctx, job.ID, errMsg); err != nil {
		log.Error(ctx, "mark job failed", "err", err)
	}
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}
