package reporting

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atelierhq/easel/internal/config"
	"github.com/stretchr/testify/require"
)

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		"job <id> not found",
		sanitizeError("job 01234567-89ab-cdef-0123-456789abcdef not found"),
	)
	require.Equal(t,
		"dial tcp <host>: connection refused",
		sanitizeError("dial tcp [::1]:8080: connection refused"),
	)
}

func TestNewSentryMiddlewareOrMock(t *testing.T) {
	t.Run("development without DSN gets a no-op middleware", func(t *testing.T) {
		t.Setenv("EASEL_ENVIRONMENT", "development")
		conf, err := config.ConfigFromEnv()
		require.NoError(t, err)

		middleware, flush, err := NewSentryMiddlewareOrMock(conf)
		require.NoError(t, err)
		defer flush()

		called := false
		handler := middleware(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/jobs", nil))
		require.True(t, called)
	})
}
