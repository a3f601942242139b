// Package jobstream keeps a local, ordered view of the backend's job list
// consistent with the live update stream and the authoritative list fetch.
package jobstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atelierhq/easel/internal/adapters/studioapi"
	"github.com/atelierhq/easel/internal/domain"
	"github.com/atelierhq/easel/internal/logging"
	"github.com/atelierhq/easel/internal/reporting"
)

const DefaultReconnectBackoff = 5 * time.Second
const DefaultSeedLimit = 100

type Option func(*Reconciler)

// WithReconnectBackoff sets the fixed delay between reconnect attempts.
func WithReconnectBackoff(backoff time.Duration) Option {
	return func(r *Reconciler) {
		r.backoff = backoff
	}
}

// WithSeedLimit sets the page size of the authoritative seed fetch.
func WithSeedLimit(limit int) Option {
	return func(r *Reconciler) {
		r.seedLimit = limit
	}
}

// Reconciler maintains an ordered job list merged by job id: an update to a
// known job replaces it in place, a newly discovered job is prepended. The
// list is therefore newest-first by discovery, not by timestamp; consumers
// needing chronological order sort on a timestamp field themselves.
type Reconciler struct {
	api       studioapi.StudioAPI
	backoff   time.Duration
	seedLimit int

	mu   sync.Mutex
	jobs []domain.Job

	updates chan struct{}
}

func New(api studioapi.StudioAPI, options ...Option) *Reconciler {
	r := &Reconciler{
		api:       api,
		backoff:   DefaultReconnectBackoff,
		seedLimit: DefaultSeedLimit,
		updates:   make(chan struct{}, 1),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Run opens the live stream and keeps the local list reconciled until ctx is
// cancelled. Stream failures are retried forever with a fixed backoff; a
// broken connection costs at most one backoff of staleness since every
// reconnect re-seeds from the authoritative list.
func (r *Reconciler) Run(ctx context.Context) {
	logger := logging.FromContext(ctx)

	for {
		r.runConnection(ctx)

		if ctx.Err() != nil {
			logger.Info("job stream subscription closed")
			return
		}

		logger.Info("job stream disconnected, reconnecting", "backoff", r.backoff.String())
		select {
		case <-time.After(r.backoff):
		case <-ctx.Done():
			logger.Info("job stream subscription closed")
			return
		}
	}
}

func (r *Reconciler) runConnection(ctx context.Context) {
	logger := logging.FromContext(ctx)

	stream, err := r.api.OpenStream(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("failed to open job stream", "error", err.Error())
		}
		return
	}
	defer stream.Close()

	// Unblock Next when the subscription is torn down
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		stream.Close()
	}()

	seeded := false

	for {
		event, err := stream.Next()
		if err != nil {
			if errors.Is(err, studioapi.ErrMalformedPayload) {
				// Dropped, not surfaced; the subscription stays up
				logger.Warn("dropping malformed job stream payload", "error", err.Error())
				reporting.Report(ctx, err)
				continue
			}
			if ctx.Err() == nil {
				logger.Warn("job stream read failed", "error", err.Error())
			}
			return
		}

		if event.Connected {
			// The acknowledgement is never merged; it triggers the
			// authoritative seed fetch
			r.seed(ctx)
			seeded = true
			continue
		}

		if !seeded {
			// Defensive seed in case the backend skipped the acknowledgement
			r.seed(ctx)
			seeded = true
		}

		r.upsert(event.Job)
		r.notify()
	}
}

// seed merges the authoritative list through the same upsert path as stream
// records, so the fetch and in-flight stream messages converge in any order.
func (r *Reconciler) seed(ctx context.Context) {
	jobs, err := r.api.ListJobs(ctx, r.seedLimit)
	if err != nil {
		if ctx.Err() == nil {
			logging.FromContext(ctx).Warn("job list seed fetch failed", "error", err.Error())
			reporting.Report(ctx, fmt.Errorf("job list seed fetch failed: %w", err))
		}
		return
	}

	// The backend lists newest first; apply oldest first so prepending
	// leaves the newest job at the front
	for i := len(jobs) - 1; i >= 0; i-- {
		r.upsert(jobs[i])
	}
	r.notify()
}

func (r *Reconciler) upsert(job domain.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.jobs {
		if existing.JobID == job.JobID {
			// Update in place; the entry keeps its position
			r.jobs[i] = job
			return
		}
	}

	r.jobs = append([]domain.Job{job}, r.jobs...)
}

func (r *Reconciler) notify() {
	select {
	case r.updates <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the current list.
func (r *Reconciler) Snapshot() []domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]domain.Job, len(r.jobs))
	copy(snapshot, r.jobs)
	return snapshot
}

// Updates signals that the list changed. Signals are coalesced; consumers
// read Snapshot after each one.
func (r *Reconciler) Updates() <-chan struct{} {
	return r.updates
}

// Cancel asks the backend to cancel the job. A successful response is itself
// merged into the list so the caller sees the new status without waiting for
// the stream to reflect it. The backend's error, if any, is returned for the
// caller to display.
func (r *Reconciler) Cancel(ctx context.Context, jobID string) (domain.Job, error) {
	job, err := r.api.CancelJob(ctx, jobID)
	if err != nil {
		return domain.Job{}, fmt.Errorf("could not cancel job: %w", err)
	}

	r.upsert(job)
	r.notify()
	return job, nil
}

// Dismiss removes the job from the local list and issues a best-effort
// remote delete. A failed delete is logged and reported but never rolls back
// the local removal.
func (r *Reconciler) Dismiss(ctx context.Context, jobID string) {
	r.mu.Lock()
	kept := r.jobs[:0]
	removed := false
	for _, job := range r.jobs {
		if job.JobID == jobID {
			removed = true
			continue
		}
		kept = append(kept, job)
	}
	r.jobs = kept
	r.mu.Unlock()

	if removed {
		r.notify()
	}

	if err := r.api.DismissJob(ctx, jobID); err != nil {
		logging.FromContext(ctx).Warn("failed to dismiss job remotely", "jobId", jobID, "error", err.Error())
		reporting.Report(ctx, fmt.Errorf("failed to dismiss job remotely: %w", err), map[string]string{
			"jobId": jobID,
		})
	}
}
