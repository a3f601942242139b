package app

import (
	"context"
	"fmt"

	"github.com/atelierhq/easel/internal/adapters/jobarchive"
	"github.com/atelierhq/easel/internal/domain"
	"github.com/atelierhq/easel/internal/logging"
	"github.com/atelierhq/easel/internal/reporting"
)

type ArchiveFinishedJobs func(ctx context.Context, jobs []domain.Job) (int, error)

// BuildArchiveFinishedJobs stores jobs that have reached a terminal
// status. Jobs already present in the archive are skipped.
func BuildArchiveFinishedJobs(archive jobarchive.JobArchive) ArchiveFinishedJobs {
	return func(ctx context.Context, jobs []domain.Job) (int, error) {
		stored := 0
		for _, job := range jobs {
			if !job.Status.IsTerminal() {
				continue
			}

			exists, err := archive.HasJob(ctx, job.JobID)
			if err != nil {
				// NOTE: JobArchive implementations handle their own error reporting
				return stored, fmt.Errorf("could not check archive for job: %w", err)
			}
			if exists {
				continue
			}

			if err := archive.StoreJob(ctx, job); err != nil {
				return stored, fmt.Errorf("could not archive job: %w", err)
			}
			stored++
		}

		if stored > 0 {
			logging.FromContext(ctx).InfoContext(ctx, "Archived finished jobs", "count", stored)
		}

		return stored, nil
	}
}

// ReportArchiveFailure is a small helper for fire-and-forget archive
// sweeps where the caller has nowhere to return the error to.
func ReportArchiveFailure(ctx context.Context, err error) {
	logging.FromContext(ctx).WarnContext(ctx, "Archive sweep failed", "error", err.Error())
	reporting.Report(ctx, err)
}
