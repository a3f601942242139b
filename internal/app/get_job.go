package app

import (
	"context"
	"fmt"

	"github.com/atelierhq/easel/internal/adapters/cache"
	"github.com/atelierhq/easel/internal/adapters/studioapi"
	"github.com/atelierhq/easel/internal/domain"
	"github.com/atelierhq/easel/internal/reporting"
)

type GetJob func(ctx context.Context, jobID string) (domain.Job, error)

func BuildGetJobWithCache(
	jobCache cache.Cache[domain.Job],
	api studioapi.StudioAPI,
) GetJob {
	return func(ctx context.Context, jobID string) (domain.Job, error) {
		if jobID == "" {
			err := fmt.Errorf("empty job id")
			reporting.Report(ctx, err)
			return domain.Job{}, err
		}

		job, _, err := cache.GetOrCreate(ctx, jobCache, jobID, func() (domain.Job, error) {
			// NOTE: StudioAPI handles its own error reporting
			return api.GetJob(ctx, jobID)
		})
		if err != nil {
			return domain.Job{}, fmt.Errorf("failed to cache.GetOrCreate job: %w", err)
		}

		return job, nil
	}
}
