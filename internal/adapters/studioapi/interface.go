// Package studioapi talks to the studio backend's jobs API over REST and a
// long-lived event stream.
package studioapi

import (
	"context"
	"net/http"

	"github.com/atelierhq/easel/internal/domain"
)

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type StudioAPI interface {
	// ListJobs returns the authoritative job list, newest first.
	ListJobs(ctx context.Context, limit int) ([]domain.Job, error)
	GetJob(ctx context.Context, jobID string) (domain.Job, error)
	// CancelJob requests cancellation and returns the updated job record.
	CancelJob(ctx context.Context, jobID string) (domain.Job, error)
	DismissJob(ctx context.Context, jobID string) error
	// OpenStream opens the live job update stream. The stream stays open
	// until Close, a read error, or ctx cancellation.
	OpenStream(ctx context.Context) (Stream, error)
}

// Event is one message from the live stream: either the backend's
// connection acknowledgement or a full job record.
type Event struct {
	Connected bool
	Job       domain.Job
}

type Stream interface {
	// Next blocks for the next event. Malformed payloads are reported as
	// ErrMalformedPayload; the stream remains readable afterwards.
	Next() (Event, error)
	Close() error
}
