package errors

import "errors"

var (
	APIServerError         = errors.New("Studio API server error")
	APIClientError         = errors.New("Studio API client error")
	RatelimitExceededError = errors.New("Ratelimit exceeded")
	StreamClosedError      = errors.New("Job stream closed")
)
