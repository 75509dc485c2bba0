package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/certifyme/attest-api/internal/models"
	"github.com/certifyme/attest-api/internal/repository"
	"github.com/certifyme/attest-api/pkg/config"
	appErrors "github.com/certifyme/attest-api/pkg/errors"
	"github.com/certifyme/attest-api/pkg/jobs"
)

const batchJobType = "batch_mint"

// BatchJobStore persists batch jobs.
type BatchJobStore interface {
	Create(ctx context.Context, job *models.BatchJob) error
	GetByID(ctx context.Context, id string) (*models.BatchJob, error)
	Update(ctx context.Context, id string, params repository.UpdateBatchJobParams) error
	ListByStatus(ctx context.Context, status models.BatchJobStatus, limit int) ([]models.BatchJob, error)
}

// Submitter runs the verification pipeline for one claim.
type Submitter interface {
	Submit(ctx context.Context, params SubmitParams) (*models.Submission, error)
}

// BatchService runs campus batch verification jobs on a background worker
// pool. Each identity in a job goes through the full submission pipeline
// independently; a member failure is recorded in the output and never fails
// the job as a whole.
type BatchService struct {
	store     BatchJobStore
	submitter Submitter
	queue     *jobs.Queue
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewBatchService wires the worker queue.
func NewBatchService(store BatchJobStore, submitter Submitter, cfg config.BatchConfig, metrics *MetricsService, logger *zap.Logger) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &BatchService{
		store:     store,
		submitter: submitter,
		metrics:   metrics,
		logger:    logger,
	}
	svc.queue = jobs.NewQueue(batchJobType, svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
		OnExhausted: func(ctx context.Context, job jobs.Job, err error) {
			svc.markFailed(ctx, job.ID, err)
		},
	})
	return svc
}

// Start launches the workers and recovers jobs left behind by a previous
// process: queued rows are re-enqueued, rows stuck in processing are marked
// failed. Rerunning an interrupted job could resubmit members that already
// went through the pipeline.
func (s *BatchService) Start(ctx context.Context) {
	s.queue.Start(ctx)

	queued, err := s.store.ListByStatus(ctx, models.BatchJobStatusQueued, 50)
	if err != nil {
		s.logger.Warn("recover queued batch jobs", zap.Error(err))
	}
	for _, job := range queued {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: batchJobType}); err != nil {
			s.logger.Warn("re-enqueue batch job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	interrupted, err := s.store.ListByStatus(ctx, models.BatchJobStatusProcessing, 50)
	if err != nil {
		s.logger.Warn("recover interrupted batch jobs", zap.Error(err))
		return
	}
	for _, job := range interrupted {
		s.markFailed(ctx, job.ID, errors.New("processing interrupted by restart"))
	}
}

// Stop drains the worker pool.
func (s *BatchService) Stop() {
	s.queue.Stop()
}

// Enqueue persists a new batch job and schedules it for processing.
func (s *BatchService) Enqueue(ctx context.Context, input models.BatchMintInput) (*models.BatchJob, error) {
	if len(input.Wallets) == 0 || input.Skill == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "wallets and skill are required")
	}
	if input.SkillLevel == "" {
		input.SkillLevel = "Campus Verified"
	}

	job := &models.BatchJob{
		Type:   models.BatchJobTypeBatchMint,
		Status: models.BatchJobStatusQueued,
		Input:  input,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("persist batch job: %w", err)
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: batchJobType}); err != nil {
		return nil, fmt.Errorf("enqueue batch job: %w", err)
	}
	return job, nil
}

// GetJob returns a job by identifier.
func (s *BatchService) GetJob(ctx context.Context, id string) (*models.BatchJob, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch job not found")
		}
		return nil, err
	}
	return job, nil
}

// handle processes one queued job end to end. Returning an error hands the
// job back to the queue's retry loop, so only store-level failures do that;
// per-identity pipeline failures are folded into the output.
func (s *BatchService) handle(ctx context.Context, job jobs.Job) error {
	row, err := s.store.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load batch job %s: %w", job.ID, err)
	}
	if row.Status == models.BatchJobStatusProcessing && job.Attempt > 0 {
		// A retried delivery of a processing row means the previous attempt
		// ran the members but could not persist its results. Rerunning would
		// resubmit every member, so record the terminal failure instead.
		s.markFailed(ctx, row.ID, errors.New("batch results could not be persisted"))
		return nil
	}
	if row.Status != models.BatchJobStatusQueued {
		return nil
	}

	processing := models.BatchJobStatusProcessing
	started := time.Now().UTC()
	if err := s.store.Update(ctx, row.ID, repository.UpdateBatchJobParams{
		Status:    &processing,
		StartedAt: &started,
	}); err != nil {
		return fmt.Errorf("mark batch job processing: %w", err)
	}

	results := s.runMembers(ctx, row)

	completed := models.BatchJobStatusCompleted
	finished := time.Now().UTC()
	if err := s.store.Update(ctx, row.ID, repository.UpdateBatchJobParams{
		Status:      &completed,
		Output:      results,
		CompletedAt: &finished,
	}); err != nil {
		err = fmt.Errorf("complete batch job: %w", err)
		s.markFailed(ctx, row.ID, err)
		return err
	}

	s.metrics.RecordBatchJob(string(completed))
	s.logger.Info("batch job completed",
		zap.String("job_id", row.ID),
		zap.Int("members", len(results)))
	return nil
}

// markFailed moves a job to its terminal failed state with the cause in
// error_message. Best effort: a store failure here leaves the row for the
// interrupted-job sweep on the next start.
func (s *BatchService) markFailed(ctx context.Context, jobID string, cause error) {
	failed := models.BatchJobStatusFailed
	msg := cause.Error()
	now := time.Now().UTC()
	if err := s.store.Update(ctx, jobID, repository.UpdateBatchJobParams{
		Status:       &failed,
		ErrorMessage: &msg,
		CompletedAt:  &now,
	}); err != nil {
		s.logger.Error("mark batch job failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	s.metrics.RecordBatchJob(string(failed))
	s.logger.Warn("batch job failed", zap.String("job_id", jobID), zap.String("reason", msg))
}

func (s *BatchService) runMembers(ctx context.Context, job *models.BatchJob) models.BatchMintResults {
	results := make(models.BatchMintResults, 0, len(job.Input.Wallets))
	for _, wallet := range job.Input.Wallets {
		wallet := wallet
		sub, err := s.submitter.Submit(ctx, SubmitParams{
			StudentName:   syntheticStudentName(wallet),
			WalletAddress: &wallet,
			RepoURL:       campusRepoURL(job.ID, wallet),
			Skill:         job.Input.Skill,
			Issuer:        job.Input.Issuer,
		})
		if err != nil {
			s.logger.Warn("batch member failed",
				zap.String("job_id", job.ID), zap.String("wallet", wallet), zap.Error(err))
			results = append(results, models.BatchMintResult{Wallet: wallet, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, models.BatchMintResult{Wallet: wallet, Success: true, CertID: sub.CertID})
	}
	return results
}

func syntheticStudentName(wallet string) string {
	short := wallet
	if len(short) > 8 {
		short = short[:8] + "..."
	}
	return fmt.Sprintf("Campus Student (%s)", short)
}

// campusRepoURL derives a stable per-member source reference. There is no
// repository to fetch, so the plagiarism stage records these as unchecked.
func campusRepoURL(jobID, wallet string) string {
	return fmt.Sprintf("https://campus.certifyme.dev/%s/%s", jobID, wallet)
}
