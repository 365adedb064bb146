package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repo is the Postgres job queue.
type Repo struct {
	DB *gorm.DB
}

// EnsureDigest enqueues a digest run at runAt unless one is already
// pending. The uq_jobs_pending_type index makes this safe across processes.
func (r *Repo) EnsureDigest(ctx context.Context, runAt time.Time) error {
	payload, err := json.Marshal(digestPayload{ScheduledFor: runAt})
	if err != nil {
		return err
	}
	j := Job{
		Type:    TypeDigestDispatch,
		Payload: payload,
		RunAt:   runAt,
		Status:  StatusPending,
	}
	err = r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "type"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "status = 'PENDING'"}}},
			DoNothing:   true,
		}).
		Create(&j).Error
	if err != nil {
		return fmt.Errorf("enqueue digest at %s: %w", runAt.Format(time.RFC3339), err)
	}
	return nil
}

// Claim one due job atomically using SKIP LOCKED.
// Works on Postgres.
func (r *Repo) Claim(ctx context.Context, workerID string) (*Job, error) {
	var job Job
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requeueStale(tx); err != nil {
			return err
		}

		// FOR UPDATE SKIP LOCKED ensures no double-claim
		q := tx.Raw(`
with cte as (
  select id
  from jobs
  where status='PENDING' and run_at <= now()
  order by run_at asc
  for update skip locked
  limit 1
)
update jobs
set status='RUNNING', locked_by=?, locked_at=now(), updated_at=now()
where id in (select id from cte)
returning *;
`, workerID)

		return q.Scan(&job).Error
	})
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

// requeueStale puts jobs whose worker died mid-run back in the queue. Only
// one pending job per type may exist, so at most one stale job per type is
// requeued, and only when nothing of that type is pending. The remaining
// stale jobs are superseded by the pending one and fail.
func requeueStale(tx *gorm.DB) error {
	if err := tx.Exec(`
update jobs
set status='PENDING', locked_by=null, locked_at=null, updated_at=now()
where id in (
  select distinct on (type) id
  from jobs s
  where s.status='RUNNING' and s.locked_at is not null and s.locked_at < now() - interval '5 minutes'
    and not exists (select 1 from jobs p where p.type = s.type and p.status='PENDING')
  order by type, run_at desc
)
`).Error; err != nil {
		return err
	}
	return tx.Exec(`
update jobs
set status='FAILED', locked_by=null, locked_at=null, last_error=?, updated_at=now()
where status='RUNNING' and locked_at is not null and locked_at < now() - interval '5 minutes'
`, "worker lost; "+errSuperseded).Error
}

const errSuperseded = "superseded by pending job"

func (r *Repo) MarkDone(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Exec(`update jobs set status='DONE', updated_at=now() where id=?`, id).Error
}

func (r *Repo) MarkFailed(ctx context.Context, id uint64, errMsg string) error {
	return r.DB.WithContext(ctx).Exec(`update jobs set status='FAILED', last_error=?, updated_at=now() where id=?`, errMsg, id).Error
}

// RetryLater requeues a job for another attempt at runAt. If another job
// of the same type is already pending, that one will do the work and this
// one fails instead.
func (r *Repo) RetryLater(ctx context.Context, id uint64, attempts int, runAt time.Time, errMsg string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
update jobs
set status='PENDING',
    attempts=?,
    run_at=?,
    locked_by=null,
    locked_at=null,
    last_error=?,
    updated_at=now()
where id=?
  and not exists (select 1 from jobs p where p.type = jobs.type and p.status='PENDING' and p.id <> jobs.id)`,
			attempts, runAt, errMsg, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		return tx.Exec(`update jobs set status='FAILED', attempts=?, last_error=?, locked_by=null, locked_at=null, updated_at=now() where id=?`,
			attempts, errMsg+"; "+errSuperseded, id).Error
	})
}
