package jobstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/atelierhq/easel/internal/adapters/studioapi"
	"github.com/atelierhq/easel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	event studioapi.Event
	err   error
}

type fakeStream struct {
	steps     chan step
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		steps: make(chan step),
		done:  make(chan struct{}),
	}
}

func (s *fakeStream) Next() (studioapi.Event, error) {
	select {
	case st := <-s.steps:
		return st.event, st.err
	case <-s.done:
		return studioapi.Event{}, io.EOF
	}
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}

func (s *fakeStream) emit(job domain.Job) {
	s.steps <- step{event: studioapi.Event{Job: job}}
}

func (s *fakeStream) emitConnected() {
	s.steps <- step{event: studioapi.Event{Connected: true}}
}

func (s *fakeStream) fail(err error) {
	s.steps <- step{err: err}
}

type fakeAPI struct {
	mu        sync.Mutex
	seed      []domain.Job
	seedCalls int

	streams chan *fakeStream

	cancelResult domain.Job
	cancelErr    error
	cancelled    []string

	dismissErr error
	dismissed  []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		streams: make(chan *fakeStream, 8),
	}
}

func (f *fakeAPI) setSeed(jobs []domain.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seed = jobs
}

func (f *fakeAPI) ListJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seedCalls++
	jobs := make([]domain.Job, len(f.seed))
	copy(jobs, f.seed)
	return jobs, nil
}

func (f *fakeAPI) GetJob(ctx context.Context, jobID string) (domain.Job, error) {
	return domain.Job{}, domain.ErrJobNotFound
}

func (f *fakeAPI) CancelJob(ctx context.Context, jobID string) (domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, jobID)
	return f.cancelResult, f.cancelErr
}

func (f *fakeAPI) DismissJob(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismissed = append(f.dismissed, jobID)
	return f.dismissErr
}

func (f *fakeAPI) OpenStream(ctx context.Context) (studioapi.Stream, error) {
	select {
	case stream := <-f.streams:
		return stream, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func job(id string, status domain.JobStatus, progress float64) domain.Job {
	return domain.Job{
		JobID:     id,
		Status:    status,
		Progress:  progress,
		CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func jobIDs(jobs []domain.Job) []string {
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.JobID
	}
	return ids
}

func TestUpsert(t *testing.T) {
	t.Parallel()

	t.Run("new jobs are prepended", func(t *testing.T) {
		t.Parallel()

		r := New(newFakeAPI())
		r.upsert(job("a", domain.JobStatusQueued, 0))
		r.upsert(job("b", domain.JobStatusQueued, 0))
		r.upsert(job("c", domain.JobStatusQueued, 0))

		assert.Equal(t, []string{"c", "b", "a"}, jobIDs(r.Snapshot()))
	})

	t.Run("applying the same record twice changes nothing", func(t *testing.T) {
		t.Parallel()

		r := New(newFakeAPI())
		record := job("a", domain.JobStatusRunning, 0.5)

		r.upsert(record)
		first := r.Snapshot()

		r.upsert(record)
		second := r.Snapshot()

		assert.Equal(t, first, second)
		assert.Len(t, second, 1)
	})

	t.Run("updates keep their position", func(t *testing.T) {
		t.Parallel()

		r := New(newFakeAPI())
		r.upsert(job("a", domain.JobStatusQueued, 0))
		r.upsert(job("b", domain.JobStatusQueued, 0))
		r.upsert(job("c", domain.JobStatusQueued, 0))

		// "a" sits at position 2; updating it must not move it
		r.upsert(job("a", domain.JobStatusRunning, 0.7))

		snapshot := r.Snapshot()
		assert.Equal(t, []string{"c", "b", "a"}, jobIDs(snapshot))
		assert.Equal(t, domain.JobStatusRunning, snapshot[2].Status)

		// A genuinely new job lands at position 0
		r.upsert(job("d", domain.JobStatusQueued, 0))
		assert.Equal(t, []string{"d", "c", "b", "a"}, jobIDs(r.Snapshot()))
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("stream updates converge to one entry per job", func(t *testing.T) {
		t.Parallel()
		synctest.Test(t, func(t *testing.T) {
			api := newFakeAPI()
			r := New(api)

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()
			go r.Run(ctx)

			stream := newFakeStream()
			api.streams <- stream

			stream.emitConnected()
			stream.emit(job("abc123", domain.JobStatusRunning, 0.4))

			completed := job("abc123", domain.JobStatusCompleted, 1.0)
			completed.Result = json.RawMessage(`{"image_url":"https://cdn.example/1.png"}`)
			stream.emit(completed)

			synctest.Wait()

			snapshot := r.Snapshot()
			require.Len(t, snapshot, 1)
			assert.Equal(t, "abc123", snapshot[0].JobID)
			assert.Equal(t, domain.JobStatusCompleted, snapshot[0].Status)
			assert.InDelta(t, 1.0, snapshot[0].Progress, 1e-9)

			cancel()
			synctest.Wait()
		})
	})

	t.Run("connected acknowledgement triggers the seed fetch and is not merged", func(t *testing.T) {
		t.Parallel()
		synctest.Test(t, func(t *testing.T) {
			api := newFakeAPI()
			// Backend lists newest first
			api.setSeed([]domain.Job{
				job("newer", domain.JobStatusRunning, 0.2),
				job("older", domain.JobStatusCompleted, 1.0),
			})
			r := New(api)

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()
			go r.Run(ctx)

			stream := newFakeStream()
			api.streams <- stream
			stream.emitConnected()

			synctest.Wait()

			assert.Equal(t, []string{"newer", "older"}, jobIDs(r.Snapshot()))

			api.mu.Lock()
			seedCalls := api.seedCalls
			api.mu.Unlock()
			assert.Equal(t, 1, seedCalls)

			cancel()
			synctest.Wait()
		})
	})

	t.Run("malformed payloads are dropped without breaking the subscription", func(t *testing.T) {
		t.Parallel()
		synctest.Test(t, func(t *testing.T) {
			api := newFakeAPI()
			r := New(api)

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()
			go r.Run(ctx)

			stream := newFakeStream()
			api.streams <- stream

			stream.emitConnected()
			stream.fail(fmt.Errorf("%w: bad json", studioapi.ErrMalformedPayload))
			stream.emit(job("a", domain.JobStatusQueued, 0))

			synctest.Wait()

			assert.Equal(t, []string{"a"}, jobIDs(r.Snapshot()))

			cancel()
			synctest.Wait()
		})
	})

	t.Run("reconnects after a stream failure and converges on the seed", func(t *testing.T) {
		t.Parallel()
		synctest.Test(t, func(t *testing.T) {
			api := newFakeAPI()
			r := New(api, WithReconnectBackoff(5*time.Second))

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()
			go r.Run(ctx)

			first := newFakeStream()
			api.streams <- first
			first.emitConnected()
			first.emit(job("abc123", domain.JobStatusRunning, 0.4))
			first.fail(assert.AnError)

			synctest.Wait()

			// Message 2 was lost; the reconnect's seed fetch carries the
			// full final state
			api.setSeed([]domain.Job{job("abc123", domain.JobStatusCompleted, 1.0)})

			second := newFakeStream()
			api.streams <- second

			// Nothing reconnects before the fixed backoff elapses
			time.Sleep(4 * time.Second)
			synctest.Wait()
			snapshot := r.Snapshot()
			require.Len(t, snapshot, 1)
			assert.Equal(t, domain.JobStatusRunning, snapshot[0].Status)

			time.Sleep(time.Second)
			second.emitConnected()
			synctest.Wait()

			snapshot = r.Snapshot()
			require.Len(t, snapshot, 1)
			assert.Equal(t, domain.JobStatusCompleted, snapshot[0].Status)

			cancel()
			synctest.Wait()
		})
	})

	t.Run("teardown closes the connection and stops reconnecting", func(t *testing.T) {
		t.Parallel()
		synctest.Test(t, func(t *testing.T) {
			api := newFakeAPI()
			r := New(api)

			ctx, cancel := context.WithCancel(t.Context())
			go r.Run(ctx)

			stream := newFakeStream()
			api.streams <- stream
			stream.emitConnected()
			synctest.Wait()

			cancel()
			synctest.Wait()

			select {
			case <-stream.done:
			default:
				t.Fatal("stream was not closed on teardown")
			}
		})
	})
}

func TestCancel(t *testing.T) {
	t.Parallel()

	t.Run("a successful cancel response is merged immediately", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		api.cancelResult = job("a", domain.JobStatusCancelled, 0.4)

		r := New(api)
		r.upsert(job("b", domain.JobStatusQueued, 0))
		r.upsert(job("a", domain.JobStatusRunning, 0.4))

		cancelled, err := r.Cancel(context.Background(), "a")
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCancelled, cancelled.Status)

		snapshot := r.Snapshot()
		require.Len(t, snapshot, 2)
		assert.Equal(t, domain.JobStatusCancelled, snapshot[0].Status)
	})

	t.Run("a backend error is returned to the caller and nothing is merged", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		api.cancelErr = assert.AnError

		r := New(api)
		r.upsert(job("a", domain.JobStatusCompleted, 1.0))

		_, err := r.Cancel(context.Background(), "a")
		require.ErrorIs(t, err, assert.AnError)

		snapshot := r.Snapshot()
		require.Len(t, snapshot, 1)
		assert.Equal(t, domain.JobStatusCompleted, snapshot[0].Status)
	})
}

func TestDismiss(t *testing.T) {
	t.Parallel()

	t.Run("removes locally and deletes remotely", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		r := New(api)
		r.upsert(job("a", domain.JobStatusCompleted, 1.0))
		r.upsert(job("b", domain.JobStatusRunning, 0.5))

		r.Dismiss(context.Background(), "a")

		assert.Equal(t, []string{"b"}, jobIDs(r.Snapshot()))
		assert.Equal(t, []string{"a"}, api.dismissed)
	})

	t.Run("a failed remote delete does not restore the entry", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		api.dismissErr = assert.AnError

		r := New(api)
		r.upsert(job("a", domain.JobStatusCompleted, 1.0))

		r.Dismiss(context.Background(), "a")

		assert.Empty(t, r.Snapshot())
	})
}
