package jobs

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"bulletbot/internal/deliver"
	"bulletbot/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	jobs     []*Job
	claimErr error
	failErr  error
	retryErr error

	done    []uint64
	failed  map[uint64]string
	retried []retryCall
	ensured []time.Time
}

type retryCall struct {
	id       uint64
	attempts int
	runAt    time.Time
}

func (q *fakeQueue) Claim(context.Context, string) (*Job, error) {
	if q.claimErr != nil {
		return nil, q.claimErr
	}
	if len(q.jobs) == 0 {
		return nil, nil
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, nil
}

func (q *fakeQueue) MarkDone(_ context.Context, id uint64) error {
	q.done = append(q.done, id)
	return nil
}

func (q *fakeQueue) MarkFailed(_ context.Context, id uint64, msg string) error {
	if q.failed == nil {
		q.failed = map[uint64]string{}
	}
	q.failed[id] = msg
	return q.failErr
}

func (q *fakeQueue) RetryLater(_ context.Context, id uint64, attempts int, runAt time.Time, _ string) error {
	q.retried = append(q.retried, retryCall{id, attempts, runAt})
	return q.retryErr
}

func (q *fakeQueue) EnsureDigest(_ context.Context, runAt time.Time) error {
	q.ensured = append(q.ensured, runAt)
	return nil
}

type fakeSender struct {
	calls int
	sink  deliver.Sink
	err   error
	sent  chan struct{}
}

func (s *fakeSender) Send(_ context.Context, sink deliver.Sink) (int64, error) {
	s.calls++
	s.sink = sink
	if s.sent != nil {
		s.sent <- struct{}{}
	}
	return 3, s.err
}

var workerNow = time.Date(2024, 3, 1, 18, 0, 5, 0, time.UTC)

func newWorker(q *fakeQueue, s *fakeSender) *Worker {
	return &Worker{
		ID:     "worker-test",
		Queue:  q,
		Log:    logging.Nop(),
		Digest: s,
		Sink:   deliver.LogSink{Log: logging.Nop()},
		At:     18 * time.Hour,
		Loc:    time.UTC,
		Now:    func() time.Time { return workerNow },
	}
}

func digestJob(id uint64, attempts int) *Job {
	return &Job{
		ID:          id,
		Type:        TypeDigestDispatch,
		Payload:     []byte(`{"scheduled_for":"2024-03-01T18:00:00Z"}`),
		Attempts:    attempts,
		MaxAttempts: 8,
	}
}

func TestWorker_DigestSuccessMarksDoneAndSchedulesTomorrow(t *testing.T) {
	q := &fakeQueue{jobs: []*Job{digestJob(1, 0)}}
	s := &fakeSender{}
	w := newWorker(q, s)

	assert.True(t, w.tick(context.Background()))

	assert.Equal(t, 1, s.calls)
	assert.NotNil(t, s.sink)
	assert.Equal(t, []uint64{1}, q.done)
	require.Len(t, q.ensured, 1)
	assert.Equal(t, time.Date(2024, 3, 2, 18, 0, 0, 0, time.UTC), q.ensured[0])
}

func TestWorker_DigestFailureRetriesWithBackoff(t *testing.T) {
	q := &fakeQueue{jobs: []*Job{digestJob(2, 2)}}
	w := newWorker(q, &fakeSender{err: errors.New("bucket unavailable")})

	w.tick(context.Background())

	assert.Empty(t, q.done)
	assert.Empty(t, q.ensured)
	require.Len(t, q.retried, 1)
	assert.Equal(t, retryCall{2, 3, workerNow.Add(8 * time.Second)}, q.retried[0])
}

func TestWorker_DigestGivesUpAfterMaxAttempts(t *testing.T) {
	q := &fakeQueue{jobs: []*Job{digestJob(3, 7)}}
	w := newWorker(q, &fakeSender{err: errors.New("bucket unavailable")})

	w.tick(context.Background())

	assert.Equal(t, "bucket unavailable", q.failed[3])
	assert.Empty(t, q.retried)
	assert.Len(t, q.ensured, 1, "next day is still scheduled")
}

func TestWorker_BadPayloadFails(t *testing.T) {
	j := digestJob(4, 0)
	j.Payload = []byte(`not json`)
	q := &fakeQueue{jobs: []*Job{j}}
	s := &fakeSender{}
	w := newWorker(q, s)

	w.tick(context.Background())

	assert.Zero(t, s.calls)
	assert.Equal(t, "bad payload", q.failed[4])
}

func TestWorker_UnknownTypeFails(t *testing.T) {
	q := &fakeQueue{jobs: []*Job{{ID: 5, Type: "REMINDER_DISPATCH"}}}
	w := newWorker(q, &fakeSender{})

	w.tick(context.Background())
	assert.Equal(t, "unknown job type", q.failed[5])
}

func TestWorker_IdleAndClaimError(t *testing.T) {
	q := &fakeQueue{}
	w := newWorker(q, &fakeSender{})
	assert.False(t, w.tick(context.Background()))

	q.claimErr = errors.New("connection reset")
	assert.False(t, w.tick(context.Background()))
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	q := &fakeQueue{jobs: []*Job{digestJob(6, 0)}}
	s := &fakeSender{sent: make(chan struct{}, 1)}
	w := newWorker(q, s)
	w.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-s.sent:
	case <-time.After(time.Second):
		t.Fatal("digest job never ran")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_Schedule(t *testing.T) {
	q := &fakeQueue{}
	w := newWorker(q, &fakeSender{})
	w.Now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, w.Schedule(context.Background()))
	assert.Equal(t, []time.Time{time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)}, q.ensured)
}

func TestWorker_QueueWriteErrorsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	q := &fakeQueue{
		jobs:     []*Job{{ID: 7, Type: "REMINDER_DISPATCH"}, digestJob(8, 0)},
		failErr:  errors.New("conn closed"),
		retryErr: errors.New("unique violation"),
	}
	w := newWorker(q, &fakeSender{err: errors.New("bucket unavailable")})
	w.Log = logging.New(&buf, "text", "debug")

	w.tick(context.Background())
	w.tick(context.Background())

	out := buf.String()
	assert.Contains(t, out, "mark job failed")
	assert.Contains(t, out, "conn closed")
	assert.Contains(t, out, "requeue job")
	assert.Contains(t, out, "unique violation")
	require.Len(t, q.retried, 1)
}
