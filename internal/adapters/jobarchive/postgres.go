package jobarchive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atelierhq/easel/internal/domain"
	"github.com/atelierhq/easel/internal/reporting"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Postgres struct {
	db     *sqlx.DB
	schema string

	nowFunc func() time.Time

	tracer trace.Tracer
}

func NewPostgres(db *sqlx.DB, schema string, nowFunc func() time.Time) *Postgres {
	tracer := otel.Tracer("easel/jobarchive/postgres")

	return &Postgres{
		db:      db,
		schema:  schema,
		nowFunc: nowFunc,

		tracer: tracer,
	}
}

type dbArchivedJob struct {
	JobID       string         `db:"job_id"`
	Status      string         `db:"status"`
	Progress    float64        `db:"progress"`
	Result      []byte         `db:"result"`
	Error       sql.NullString `db:"error"`
	CreatedAt   time.Time      `db:"created_at"`
	StartedAt   sql.NullTime   `db:"started_at"`
	CompletedAt sql.NullTime   `db:"completed_at"`
	ArchivedAt  time.Time      `db:"archived_at"`
}

func (entry dbArchivedJob) toDomain() domain.Job {
	job := domain.Job{
		JobID:     entry.JobID,
		Status:    domain.JobStatus(entry.Status),
		Progress:  entry.Progress,
		CreatedAt: entry.CreatedAt,
	}
	if len(entry.Result) > 0 {
		job.Result = json.RawMessage(entry.Result)
	}
	if entry.Error.Valid {
		errStr := entry.Error.String
		job.Error = &errStr
	}
	if entry.StartedAt.Valid {
		startedAt := entry.StartedAt.Time
		job.StartedAt = &startedAt
	}
	if entry.CompletedAt.Valid {
		completedAt := entry.CompletedAt.Time
		job.CompletedAt = &completedAt
	}
	return job
}

func (p *Postgres) setSearchPath(ctx context.Context, txx *sqlx.Tx) error {
	_, err := txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		err := fmt.Errorf("failed to set search path: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"schema": p.schema,
		})
		return err
	}
	return nil
}

func (p *Postgres) StoreJob(ctx context.Context, job domain.Job) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.StoreJob")
	defer span.End()

	if job.JobID == "" {
		err := errors.New("job id is empty")
		reporting.Report(ctx, err)
		return err
	}

	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err)
		return err
	}
	defer txx.Rollback()

	if err := p.setSearchPath(ctx, txx); err != nil {
		return err
	}

	var errValue sql.NullString
	if job.Error != nil {
		errValue = sql.NullString{String: *job.Error, Valid: true}
	}
	var startedAt, completedAt sql.NullTime
	if job.StartedAt != nil {
		startedAt = sql.NullTime{Time: *job.StartedAt, Valid: true}
	}
	if job.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *job.CompletedAt, Valid: true}
	}

	_, err = txx.ExecContext(
		ctx,
		`INSERT INTO archived_jobs
		(job_id, status, progress, result, error, created_at, started_at, completed_at, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (job_id)
		DO UPDATE SET
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			result = EXCLUDED.result,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at,
			archived_at = EXCLUDED.archived_at`,
		job.JobID,
		string(job.Status),
		job.Progress,
		[]byte(job.Result),
		errValue,
		job.CreatedAt,
		startedAt,
		completedAt,
		p.nowFunc(),
	)
	if err != nil {
		err := fmt.Errorf("failed to store archived job: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"jobId": job.JobID,
		})
		return err
	}

	if err := txx.Commit(); err != nil {
		err := fmt.Errorf("failed to commit transaction: %w", err)
		reporting.Report(ctx, err)
		return err
	}

	return nil
}

func (p *Postgres) HasJob(ctx context.Context, jobID string) (bool, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.HasJob")
	defer span.End()

	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err)
		return false, err
	}
	defer txx.Rollback()

	if err := p.setSearchPath(ctx, txx); err != nil {
		return false, err
	}

	var count int
	err = txx.QueryRowxContext(ctx, "SELECT COUNT(*) FROM archived_jobs WHERE job_id = $1", jobID).Scan(&count)
	if err != nil {
		err := fmt.Errorf("failed to check archived job: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"jobId": jobID,
		})
		return false, err
	}

	return count > 0, nil
}

func (p *Postgres) ListRecent(ctx context.Context, limit int) ([]domain.Job, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.ListRecent")
	defer span.End()

	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}
	defer txx.Rollback()

	if err := p.setSearchPath(ctx, txx); err != nil {
		return nil, err
	}

	entries := []dbArchivedJob{}
	err = txx.SelectContext(
		ctx,
		&entries,
		"SELECT job_id, status, progress, result, error, created_at, started_at, completed_at, archived_at FROM archived_jobs ORDER BY archived_at DESC LIMIT $1",
		limit,
	)
	if err != nil {
		err := fmt.Errorf("failed to list archived jobs: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}

	jobs := make([]domain.Job, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, entry.toDomain())
	}

	return jobs, nil
}
