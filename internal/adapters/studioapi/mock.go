package studioapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/atelierhq/easel/internal/domain"
)

// mockedStudioAPI serves fabricated jobs for development without a backend.
type mockedStudioAPI struct {
	mu   sync.Mutex
	jobs []domain.Job
}

func NewMockedStudioAPI() StudioAPI {
	now := time.Now()
	started := now.Add(-30 * time.Second)
	completed := now.Add(-5 * time.Second)

	return &mockedStudioAPI{
		jobs: []domain.Job{
			{
				JobID:     "mock-job-running",
				Status:    domain.JobStatusRunning,
				Progress:  0.4,
				CreatedAt: now.Add(-time.Minute),
				StartedAt: &started,
			},
			{
				JobID:       "mock-job-completed",
				Status:      domain.JobStatusCompleted,
				Progress:    1.0,
				Result:      json.RawMessage(`{"image_url":"https://example.invalid/mock.png"}`),
				CreatedAt:   now.Add(-2 * time.Minute),
				StartedAt:   &started,
				CompletedAt: &completed,
			},
		},
	}
}

func (api *mockedStudioAPI) ListJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	api.mu.Lock()
	defer api.mu.Unlock()

	jobs := make([]domain.Job, 0, len(api.jobs))
	for i, job := range api.jobs {
		if limit > 0 && i >= limit {
			break
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (api *mockedStudioAPI) GetJob(ctx context.Context, jobID string) (domain.Job, error) {
	api.mu.Lock()
	defer api.mu.Unlock()

	for _, job := range api.jobs {
		if job.JobID == jobID {
			return job, nil
		}
	}
	return domain.Job{}, fmt.Errorf("could not get job: %w", domain.ErrJobNotFound)
}

func (api *mockedStudioAPI) CancelJob(ctx context.Context, jobID string) (domain.Job, error) {
	api.mu.Lock()
	defer api.mu.Unlock()

	for i, job := range api.jobs {
		if job.JobID != jobID {
			continue
		}
		if !job.Status.IsTerminal() {
			now := time.Now()
			job.Status = domain.JobStatusCancelled
			job.CompletedAt = &now
			api.jobs[i] = job
		}
		return api.jobs[i], nil
	}
	return domain.Job{}, fmt.Errorf("could not cancel job: %w", domain.ErrJobNotFound)
}

func (api *mockedStudioAPI) DismissJob(ctx context.Context, jobID string) error {
	api.mu.Lock()
	defer api.mu.Unlock()

	for i, job := range api.jobs {
		if job.JobID == jobID {
			api.jobs = append(api.jobs[:i], api.jobs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (api *mockedStudioAPI) OpenStream(ctx context.Context) (Stream, error) {
	return &mockStream{ctx: ctx, done: make(chan struct{})}, nil
}

type mockStream struct {
	ctx       context.Context
	done      chan struct{}
	closeOnce sync.Once
	acked     bool
}

func (s *mockStream) Next() (Event, error) {
	if !s.acked {
		s.acked = true
		return Event{Connected: true}, nil
	}

	// No live updates in the mock; block until teardown
	select {
	case <-s.ctx.Done():
		return Event{}, s.ctx.Err()
	case <-s.done:
		return Event{}, io.EOF
	}
}

func (s *mockStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}
