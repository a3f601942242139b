// Package jobarchive persists finished jobs so generation results outlive
// the backend's job retention window.
package jobarchive

import (
	"context"

	"github.com/atelierhq/easel/internal/domain"
)

type JobArchive interface {
	// StoreJob upserts a finished job. Archiving the same job twice keeps
	// the newest record.
	StoreJob(ctx context.Context, job domain.Job) error
	// HasJob reports whether the job is already archived.
	HasJob(ctx context.Context, jobID string) (bool, error)
	// ListRecent returns the most recently archived jobs, newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.Job, error)
}
