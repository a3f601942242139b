package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atelierhq/easel/internal/domain"
	"github.com/atelierhq/easel/internal/logging"
	"github.com/atelierhq/easel/internal/lru"
)

type GetJobResult func(ctx context.Context, jobID string) (json.RawMessage, error)

// BuildGetJobResult memoizes results of completed jobs. Results are
// immutable once the job completes, so entries never need invalidation,
// only eviction when the cache fills up.
func BuildGetJobResult(
	results *lru.Cache[json.RawMessage],
	getJob GetJob,
) GetJobResult {
	return func(ctx context.Context, jobID string) (json.RawMessage, error) {
		if result, ok := results.Get(jobID); ok {
			logging.FromContext(ctx).InfoContext(ctx, "Getting job result", "cache", "hit")
			return result, nil
		}

		logging.FromContext(ctx).InfoContext(ctx, "Getting job result", "cache", "miss")

		job, err := getJob(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("could not get job: %w", err)
		}

		if job.Status != domain.JobStatusCompleted {
			return nil, fmt.Errorf("job %s is %s: %w", job.JobID, job.Status, domain.ErrJobNotFinished)
		}

		results.Set(jobID, job.Result)

		return job.Result, nil
	}
}
