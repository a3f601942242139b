package studioapi_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/atelierhq/easel/internal/adapters/studioapi"
	"github.com/atelierhq/easel/internal/domain"
	e "github.com/atelierhq/easel/internal/errors"
	"github.com/atelierhq/easel/internal/ratelimiting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiKey = "key"
const baseURL = "https://api.atelier.example"

var expectedHeaders = http.Header{
	// NOTE: go's http.Header automatically camelcases the keys
	"User-Agent": {"easel/0.1.0 (+https://github.com/atelierhq/easel)"},
	"Api-Key":    {apiKey},
}

type mockedHttpClient struct {
	t              *testing.T
	expectedMethod string
	expectedURL    string
	statusCode     int
	body           string
	requestErr     error
}

func (m *mockedHttpClient) Do(req *http.Request) (*http.Response, error) {
	m.t.Helper()
	require.Equal(m.t, m.expectedMethod, req.Method)
	require.Equal(m.t, m.expectedURL, req.URL.String())
	for key, values := range expectedHeaders {
		require.Equal(m.t, values, req.Header[key])
	}

	if m.requestErr != nil {
		return nil, m.requestErr
	}

	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func newAPI(t *testing.T, method, url string, statusCode int, body string, err error) studioapi.StudioAPI {
	t.Helper()
	httpClient := &mockedHttpClient{
		t:              t,
		expectedMethod: method,
		expectedURL:    url,
		statusCode:     statusCode,
		body:           body,
		requestErr:     err,
	}
	return studioapi.NewStudioAPI(httpClient, baseURL, apiKey, ratelimiting.NewUnlimited())
}

func TestListJobs(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t, http.MethodGet, baseURL+"/jobs?limit=100", 200, `[
			{"job_id":"abc123","status":"running","progress":0.4,"created_at":"2026-08-30T12:00:00Z","error":null},
			{"job_id":"def456","status":"completed","progress":1.0,"result":{"image_url":"https://cdn.example/1.png"},"created_at":"2026-08-30T11:00:00Z","error":null}
		]`, nil)

		jobs, err := api.ListJobs(context.Background(), 100)
		require.NoError(t, err)
		require.Len(t, jobs, 2)

		assert.Equal(t, "abc123", jobs[0].JobID)
		assert.Equal(t, domain.JobStatusRunning, jobs[0].Status)
		assert.InDelta(t, 0.4, jobs[0].Progress, 1e-9)

		assert.Equal(t, "def456", jobs[1].JobID)
		assert.Equal(t, domain.JobStatusCompleted, jobs[1].Status)
		assert.JSONEq(t, `{"image_url":"https://cdn.example/1.png"}`, string(jobs[1].Result))
	})

	t.Run("empty list", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t, http.MethodGet, baseURL+"/jobs?limit=10", 200, `[]`, nil)

		jobs, err := api.ListJobs(context.Background(), 10)
		require.NoError(t, err)
		require.Empty(t, jobs)
	})

	t.Run("request error", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t, http.MethodGet, baseURL+"/jobs?limit=10", 0, "", assert.AnError)

		_, err := api.ListJobs(context.Background(), 10)
		require.ErrorIs(t, err, assert.AnError)
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t, http.MethodGet, baseURL+"/jobs?limit=10", 502, `bad gateway`, nil)

		_, err := api.ListJobs(context.Background(), 10)
		require.ErrorIs(t, err, e.APIServerError)
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t, http.MethodGet, baseURL+"/jobs?limit=10", 200, `{not json`, nil)

		_, err := api.ListJobs(context.Background(), 10)
		require.Error(t, err)
	})

	t.Run("record missing job_id", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t, http.MethodGet, baseURL+"/jobs?limit=10", 200, `[{"status":"running"}]`, nil)

		_, err := api.ListJobs(context.Background(), 10)
		require.Error(t, err)
	})
}

func TestGetJob(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t, http.MethodGet, baseURL+"/jobs/abc123", 200,
			`{"job_id":"abc123","status":"queued","progress":0,"created_at":"2026-08-30T12:00:00Z","error":null}`, nil)

		job, err := api.GetJob(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, "abc123", job.JobID)
		assert.Equal(t, domain.JobStatusQueued, job.Status)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t, http.MethodGet, baseURL+"/jobs/missing", 404, `{"detail":"not found"}`, nil)

		_, err := api.GetJob(context.Background(), "missing")
		require.ErrorIs(t, err, domain.ErrJobNotFound)
	})
}

func TestCancelJob(t *testing.T) {
	t.Parallel()

	t.Run("success returns the updated record", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t, http.MethodPost, baseURL+"/jobs/abc123/cancel", 200,
			`{"job_id":"abc123","status":"cancelled","progress":0.4,"created_at":"2026-08-30T12:00:00Z","error":null}`, nil)

		job, err := api.CancelJob(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCancelled, job.Status)
	})

	t.Run("cancelling a finished job surfaces the backend error", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t, http.MethodPost, baseURL+"/jobs/abc123/cancel", 409, `{"detail":"already completed"}`, nil)

		_, err := api.CancelJob(context.Background(), "abc123")
		require.ErrorIs(t, err, e.APIClientError)
	})
}

func TestDismissJob(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t, http.MethodDelete, baseURL+"/jobs/abc123", 204, ``, nil)

		require.NoError(t, api.DismissJob(context.Background(), "abc123"))
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t, http.MethodDelete, baseURL+"/jobs/abc123", 500, ``, nil)

		require.ErrorIs(t, api.DismissJob(context.Background(), "abc123"), e.APIServerError)
	})
}
