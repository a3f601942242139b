package ports

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/atelierhq/easel/internal/app"
	"github.com/atelierhq/easel/internal/domain"
	"github.com/atelierhq/easel/internal/logging"
	"github.com/atelierhq/easel/internal/reporting"
	"github.com/atelierhq/easel/internal/server"
)

type jobView struct {
	JobID       string          `json:"job_id"`
	Status      string          `json:"status"`
	Progress    float64         `json:"progress"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       *string         `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

type jobListResponse struct {
	Success bool      `json:"success"`
	Jobs    []jobView `json:"jobs"`
}

type jobResponse struct {
	Success bool    `json:"success"`
	Job     jobView `json:"job"`
}

func jobToView(job domain.Job) jobView {
	return jobView{
		JobID:       job.JobID,
		Status:      string(job.Status),
		Progress:    job.Progress,
		Result:      job.Result,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
}

func writeJSONResponse(w http.ResponseWriter, r *http.Request, payload any) {
	ctx := r.Context()

	data, err := json.Marshal(payload)
	if err != nil {
		reporting.Report(ctx, fmt.Errorf("failed to marshal response: %w", err))
		server.WriteErrorResponse(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// MakeListJobsHandler serves the reconciled job list, newest first.
func MakeListJobsHandler(
	snapshot func() []domain.Job,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		buildMetricsMiddleware(),
	)

	return middleware(func(w http.ResponseWriter, r *http.Request) {
		jobs := snapshot()

		views := make([]jobView, 0, len(jobs))
		for _, job := range jobs {
			views = append(views, jobToView(job))
		}

		writeJSONResponse(w, r, jobListResponse{Success: true, Jobs: views})
	})
}

func MakeGetJobHandler(
	getJob app.GetJob,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		buildMetricsMiddleware(),
	)

	return middleware(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		jobID := r.PathValue("job_id")

		ctx = logging.AddMetaToContext(ctx, slog.String("jobId", jobID))
		ctx = reporting.AddExtrasToContext(ctx, map[string]string{
			"jobId": jobID,
		})
		r = r.WithContext(ctx)

		job, err := getJob(ctx, jobID)
		if err != nil {
			// NOTE: GetJob implementations handle their own error reporting
			statusCode := server.WriteErrorResponse(ctx, w, err)
			logging.FromContext(ctx).InfoContext(ctx, "Returning response", "statusCode", statusCode)
			return
		}

		writeJSONResponse(w, r, jobResponse{Success: true, Job: jobToView(job)})
	})
}

// MakeGetJobResultHandler serves the raw result payload of a completed
// job. Unfinished jobs yield a conflict error.
func MakeGetJobResultHandler(
	getJobResult app.GetJobResult,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		buildMetricsMiddleware(),
	)

	return middleware(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		jobID := r.PathValue("job_id")

		ctx = logging.AddMetaToContext(ctx, slog.String("jobId", jobID))
		ctx = reporting.AddExtrasToContext(ctx, map[string]string{
			"jobId": jobID,
		})
		r = r.WithContext(ctx)

		result, err := getJobResult(ctx, jobID)
		if err != nil {
			statusCode := server.WriteErrorResponse(ctx, w, err)
			logging.FromContext(ctx).InfoContext(ctx, "Returning response", "statusCode", statusCode)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(result)
	})
}

func MakeHealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":true}`))
	}
}
