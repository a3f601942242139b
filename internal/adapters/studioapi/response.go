package studioapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/atelierhq/easel/internal/domain"
)

// jobResponse is the backend's wire shape for a job record.
type jobResponse struct {
	JobID       string          `json:"job_id"`
	Status      string          `json:"status"`
	Progress    float64         `json:"progress"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       *string         `json:"error"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at"`
}

func (r jobResponse) toDomain() (domain.Job, error) {
	if r.JobID == "" {
		return domain.Job{}, fmt.Errorf("job record missing job_id")
	}

	return domain.Job{
		JobID:       r.JobID,
		Status:      domain.JobStatus(r.Status),
		Progress:    r.Progress,
		Result:      r.Result,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}, nil
}

// streamEnvelope frames one stream payload: either an acknowledgement
// ({"type":"connected"}) or a full job record.
type streamEnvelope struct {
	Type string `json:"type"`
	jobResponse
}

func parseStreamPayload(payload []byte) (Event, error) {
	var envelope streamEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return Event{}, fmt.Errorf("%w: %s", ErrMalformedPayload, err.Error())
	}

	if envelope.Type == "connected" {
		return Event{Connected: true}, nil
	}

	job, err := envelope.toDomain()
	if err != nil {
		return Event{}, fmt.Errorf("%w: %s", ErrMalformedPayload, err.Error())
	}

	return Event{Job: job}, nil
}
