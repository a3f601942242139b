package studioapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/atelierhq/easel/internal/config"
	"github.com/atelierhq/easel/internal/constants"
	"github.com/atelierhq/easel/internal/domain"
	e "github.com/atelierhq/easel/internal/errors"
	"github.com/atelierhq/easel/internal/logging"
	"github.com/atelierhq/easel/internal/ratelimiting"
	"github.com/atelierhq/easel/internal/reporting"
)

type studioAPIImpl struct {
	httpClient HttpClient
	baseURL    string
	apiKey     string
	limiter    ratelimiting.OutboundLimiter
}

func NewStudioAPI(httpClient HttpClient, baseURL, apiKey string, limiter ratelimiting.OutboundLimiter) StudioAPI {
	return &studioAPIImpl{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		limiter:    limiter,
	}
}

func NewStudioAPIOrMock(conf config.Config, httpClient HttpClient, limiter ratelimiting.OutboundLimiter) (StudioAPI, error) {
	if conf.APIKey() != "" {
		return NewStudioAPI(httpClient, conf.APIURL(), conf.APIKey(), limiter), nil
	}
	if conf.IsDevelopment() {
		return NewMockedStudioAPI(), nil
	}
	return nil, fmt.Errorf("Missing studio API key in non-development environment")
}

func (api *studioAPIImpl) newRequest(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, api.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", constants.USER_AGENT)
	req.Header.Set("API-Key", api.apiKey)

	return req, nil
}

// do issues a rate-limited request/response call and reads the whole body.
func (api *studioAPIImpl) do(ctx context.Context, method, path string) ([]byte, int, error) {
	logger := logging.FromContext(ctx)

	if err := api.limiter.Wait(ctx); err != nil {
		return nil, -1, fmt.Errorf("failed to wait for ratelimiter: %w", err)
	}

	req, err := api.newRequest(ctx, method, path)
	if err != nil {
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return nil, -1, err
	}

	start := time.Now()
	resp, err := api.httpClient.Do(req)
	if err != nil {
		err := fmt.Errorf("failed to send request: %w", err)
		logger.Error(err.Error())
		return nil, -1, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		err := fmt.Errorf("failed to read response body: %w", err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return nil, -1, err
	}

	logger.Info("studio api request completed", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start).String())

	return data, resp.StatusCode, nil
}

func errorForStatusCode(statusCode int) error {
	switch {
	case statusCode == http.StatusNotFound:
		return domain.ErrJobNotFound
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d from studio api", e.RatelimitExceededError, statusCode)
	case statusCode >= 500:
		return fmt.Errorf("%w: status %d from studio api", e.APIServerError, statusCode)
	case statusCode >= 400:
		return fmt.Errorf("%w: status %d from studio api", e.APIClientError, statusCode)
	}
	return nil
}

func (api *studioAPIImpl) ListJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	data, statusCode, err := api.do(ctx, http.MethodGet, fmt.Sprintf("/jobs?limit=%d", limit))
	if err != nil {
		return nil, fmt.Errorf("could not list jobs: %w", err)
	}
	if err := errorForStatusCode(statusCode); err != nil {
		return nil, fmt.Errorf("could not list jobs: %w", err)
	}

	var responses []jobResponse
	if err := json.Unmarshal(data, &responses); err != nil {
		err := fmt.Errorf("failed to parse job list: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}

	jobs := make([]domain.Job, 0, len(responses))
	for _, response := range responses {
		job, err := response.toDomain()
		if err != nil {
			err := fmt.Errorf("invalid job record in list: %w", err)
			reporting.Report(ctx, err)
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

func (api *studioAPIImpl) getJobRecord(ctx context.Context, method, path string) (domain.Job, error) {
	data, statusCode, err := api.do(ctx, method, path)
	if err != nil {
		return domain.Job{}, err
	}
	if err := errorForStatusCode(statusCode); err != nil {
		return domain.Job{}, err
	}

	var response jobResponse
	if err := json.Unmarshal(data, &response); err != nil {
		err := fmt.Errorf("failed to parse job record: %w", err)
		reporting.Report(ctx, err)
		return domain.Job{}, err
	}

	job, err := response.toDomain()
	if err != nil {
		err := fmt.Errorf("invalid job record: %w", err)
		reporting.Report(ctx, err)
		return domain.Job{}, err
	}

	return job, nil
}

func (api *studioAPIImpl) GetJob(ctx context.Context, jobID string) (domain.Job, error) {
	job, err := api.getJobRecord(ctx, http.MethodGet, "/jobs/"+jobID)
	if err != nil {
		return domain.Job{}, fmt.Errorf("could not get job: %w", err)
	}
	return job, nil
}

func (api *studioAPIImpl) CancelJob(ctx context.Context, jobID string) (domain.Job, error) {
	job, err := api.getJobRecord(ctx, http.MethodPost, "/jobs/"+jobID+"/cancel")
	if err != nil {
		return domain.Job{}, fmt.Errorf("could not cancel job: %w", err)
	}
	return job, nil
}

func (api *studioAPIImpl) DismissJob(ctx context.Context, jobID string) error {
	_, statusCode, err := api.do(ctx, http.MethodDelete, "/jobs/"+jobID)
	if err != nil {
		return fmt.Errorf("could not dismiss job: %w", err)
	}
	if err := errorForStatusCode(statusCode); err != nil {
		return fmt.Errorf("could not dismiss job: %w", err)
	}
	return nil
}

func (api *studioAPIImpl) OpenStream(ctx context.Context) (Stream, error) {
	logger := logging.FromContext(ctx)

	// The long-lived stream is not subject to the request ratelimiter
	req, err := api.newRequest(ctx, http.MethodGet, "/jobs/stream")
	if err != nil {
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := api.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open job stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if err := errorForStatusCode(resp.StatusCode); err != nil {
			return nil, fmt.Errorf("failed to open job stream: %w", err)
		}
		return nil, fmt.Errorf("failed to open job stream: unexpected status %d", resp.StatusCode)
	}

	return newLineStream(resp.Body), nil
}
