package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/certifyme/attest-api/internal/models"
)

// BatchJobRepository persists asynchronous batch verification jobs.
type BatchJobRepository struct {
	db *sqlx.DB
}

// NewBatchJobRepository constructs the repository.
func NewBatchJobRepository(db *sqlx.DB) *BatchJobRepository {
	return &BatchJobRepository{db: db}
}

// Create inserts a new job row with generated defaults.
func (r *BatchJobRepository) Create(ctx context.Context, job *models.BatchJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.BatchJobStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO batch_jobs (id, type, status, input, output, error_message, created_at, started_at, completed_at)
VALUES (:id, :type, :status, :input, :output, :error_message, :created_at, :started_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create batch job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *BatchJobRepository) GetByID(ctx context.Context, id string) (*models.BatchJob, error) {
	const query = `SELECT id, type, status, input, output, error_message, created_at, started_at, completed_at
FROM batch_jobs WHERE id = $1`
	var job models.BatchJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get batch job: %w", err)
	}
	return &job, nil
}

// UpdateBatchJobParams defines the mutable fields of a job row.
type UpdateBatchJobParams struct {
	Status       *models.BatchJobStatus
	Output       models.BatchMintResults
	ErrorMessage *string
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Update persists the provided changes for a job row.
func (r *BatchJobRepository) Update(ctx context.Context, id string, params UpdateBatchJobParams) error {
	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	argPos := 1

	if params.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}
	if params.Output != nil {
		set = append(set, fmt.Sprintf("output = $%d", argPos))
		args = append(args, params.Output)
		argPos++
	}
	if params.ErrorMessage != nil {
		set = append(set, fmt.Sprintf("error_message = $%d", argPos))
		args = append(args, *params.ErrorMessage)
		argPos++
	}
	if params.StartedAt != nil {
		set = append(set, fmt.Sprintf("started_at = $%d", argPos))
		args = append(args, *params.StartedAt)
		argPos++
	}
	if params.CompletedAt != nil {
		set = append(set, fmt.Sprintf("completed_at = $%d", argPos))
		args = append(args, *params.CompletedAt)
		argPos++
	}

	if len(set) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE batch_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update batch job: %w", err)
	}
	return nil
}

// ListByStatus fetches jobs in the given state, oldest first (used for cold
// start recovery of queued and interrupted jobs).
func (r *BatchJobRepository) ListByStatus(ctx context.Context, status models.BatchJobStatus, limit int) ([]models.BatchJob, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, type, status, input, output, error_message, created_at, started_at, completed_at
FROM batch_jobs WHERE status = $1 ORDER BY created_at ASC LIMIT $2`
	var jobs []models.BatchJob
	if err := r.db.SelectContext(ctx, &jobs, query, status, limit); err != nil {
		return nil, fmt.Errorf("list %s batch jobs: %w", status, err)
	}
	return jobs, nil
}
