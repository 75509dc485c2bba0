package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/certifyme/attest-api/internal/models"
	"github.com/certifyme/attest-api/internal/repository"
	"github.com/certifyme/attest-api/pkg/config"
	appErrors "github.com/certifyme/attest-api/pkg/errors"
	"github.com/certifyme/attest-api/pkg/jobs"
)

type batchJobStoreStub struct {
	mu             sync.Mutex
	jobs           map[string]*models.BatchJob
	seq            int
	failStatusOnce map[models.BatchJobStatus]bool
}

func newBatchJobStoreStub() *batchJobStoreStub {
	return &batchJobStoreStub{jobs: make(map[string]*models.BatchJob)}
}

func (s *batchJobStoreStub) Create(ctx context.Context, job *models.BatchJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == "" {
		s.seq++
		job.ID = fmt.Sprintf("job-%d", s.seq)
	}
	clone := *job
	s.jobs[job.ID] = &clone
	return nil
}

func (s *batchJobStoreStub) GetByID(ctx context.Context, id string) (*models.BatchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (s *batchJobStoreStub) Update(ctx context.Context, id string, params repository.UpdateBatchJobParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil && s.failStatusOnce[*params.Status] {
		s.failStatusOnce[*params.Status] = false
		return errors.New("connection reset")
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Output != nil {
		job.Output = params.Output
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.StartedAt != nil {
		job.StartedAt = params.StartedAt
	}
	if params.CompletedAt != nil {
		job.CompletedAt = params.CompletedAt
	}
	return nil
}

func (s *batchJobStoreStub) ListByStatus(ctx context.Context, status models.BatchJobStatus, limit int) ([]models.BatchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BatchJob
	for _, job := range s.jobs {
		if job.Status == status {
			out = append(out, *job)
		}
	}
	return out, nil
}

type submitterStub struct {
	mu      sync.Mutex
	failFor map[string]error
	calls   []SubmitParams
}

func (s *submitterStub) Submit(ctx context.Context, params SubmitParams) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, params)
	if params.WalletAddress != nil {
		if err, ok := s.failFor[*params.WalletAddress]; ok {
			return nil, err
		}
	}
	return &models.Submission{CertID: "cert-" + *params.WalletAddress, Status: models.StatusVerified}, nil
}

func TestBatchJobIsolatesMemberFailures(t *testing.T) {
	store := newBatchJobStoreStub()
	submitter := &submitterStub{failFor: map[string]error{"wallet-3": errors.New("scorer down")}}
	svc := NewBatchService(store, submitter, config.BatchConfig{}, nil, zap.NewNop())

	job := &models.BatchJob{
		Type:   models.BatchJobTypeBatchMint,
		Status: models.BatchJobStatusQueued,
		Input: models.BatchMintInput{
			Wallets: []string{"wallet-1", "wallet-2", "wallet-3", "wallet-4", "wallet-5"},
			Skill:   "Go",
		},
	}
	require.NoError(t, store.Create(context.Background(), job))

	require.NoError(t, svc.handle(context.Background(), jobs.Job{ID: job.ID, Type: batchJobType}))

	done, err := store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchJobStatusCompleted, done.Status, "member failures must not fail the job")
	assert.Nil(t, done.ErrorMessage)
	require.NotNil(t, done.StartedAt)
	require.NotNil(t, done.CompletedAt)

	require.Len(t, done.Output, 5)
	successes := 0
	for _, result := range done.Output {
		if result.Success {
			successes++
			assert.NotEmpty(t, result.CertID)
		} else {
			assert.Equal(t, "wallet-3", result.Wallet)
			assert.Contains(t, result.Error, "scorer down")
		}
	}
	assert.Equal(t, 4, successes)
}

func TestBatchHandleSkipsNonQueuedJobs(t *testing.T) {
	store := newBatchJobStoreStub()
	submitter := &submitterStub{}
	svc := NewBatchService(store, submitter, config.BatchConfig{}, nil, zap.NewNop())

	job := &models.BatchJob{
		Status: models.BatchJobStatusCompleted,
		Input:  models.BatchMintInput{Wallets: []string{"wallet-1"}, Skill: "Go"},
	}
	require.NoError(t, store.Create(context.Background(), job))

	require.NoError(t, svc.handle(context.Background(), jobs.Job{ID: job.ID, Type: batchJobType}))
	assert.Empty(t, submitter.calls, "already processed jobs must not run again")
}

func TestBatchJobMarkedFailedWhenResultsCannotBePersisted(t *testing.T) {
	store := newBatchJobStoreStub()
	store.failStatusOnce = map[models.BatchJobStatus]bool{models.BatchJobStatusCompleted: true}
	submitter := &submitterStub{}
	svc := NewBatchService(store, submitter, config.BatchConfig{}, nil, zap.NewNop())

	job := &models.BatchJob{
		Status: models.BatchJobStatusQueued,
		Input:  models.BatchMintInput{Wallets: []string{"wallet-1", "wallet-2"}, Skill: "Go"},
	}
	require.NoError(t, store.Create(context.Background(), job))

	err := svc.handle(context.Background(), jobs.Job{ID: job.ID, Type: batchJobType})
	require.Error(t, err)

	failed, err := store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchJobStatusFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Contains(t, *failed.ErrorMessage, "complete batch job")
	require.NotNil(t, failed.CompletedAt)

	// A retried delivery must not rerun the members.
	require.NoError(t, svc.handle(context.Background(), jobs.Job{ID: job.ID, Type: batchJobType, Attempt: 1}))
	assert.Len(t, submitter.calls, 2)

	final, err := store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchJobStatusFailed, final.Status)
}

func TestBatchRetriedProcessingJobMarksFailed(t *testing.T) {
	store := newBatchJobStoreStub()
	submitter := &submitterStub{}
	svc := NewBatchService(store, submitter, config.BatchConfig{}, nil, zap.NewNop())

	job := &models.BatchJob{
		Status: models.BatchJobStatusProcessing,
		Input:  models.BatchMintInput{Wallets: []string{"wallet-1"}, Skill: "Go"},
	}
	require.NoError(t, store.Create(context.Background(), job))

	require.NoError(t, svc.handle(context.Background(), jobs.Job{ID: job.ID, Type: batchJobType, Attempt: 1}))
	assert.Empty(t, submitter.calls)

	failed, err := store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchJobStatusFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Contains(t, *failed.ErrorMessage, "could not be persisted")
}

func TestBatchStartFailsInterruptedJobs(t *testing.T) {
	store := newBatchJobStoreStub()
	svc := NewBatchService(store, &submitterStub{}, config.BatchConfig{Workers: 1}, nil, zap.NewNop())

	job := &models.BatchJob{
		Status: models.BatchJobStatusProcessing,
		Input:  models.BatchMintInput{Wallets: []string{"wallet-1"}, Skill: "Go"},
	}
	require.NoError(t, store.Create(context.Background(), job))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	failed, err := store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchJobStatusFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Contains(t, *failed.ErrorMessage, "interrupted by restart")
}

func TestBatchEnqueueValidation(t *testing.T) {
	svc := NewBatchService(newBatchJobStoreStub(), &submitterStub{}, config.BatchConfig{}, nil, zap.NewNop())

	_, err := svc.Enqueue(context.Background(), models.BatchMintInput{Skill: "Go"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Enqueue(context.Background(), models.BatchMintInput{Wallets: []string{"w"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBatchStartRecoversQueuedJobs(t *testing.T) {
	store := newBatchJobStoreStub()
	submitter := &submitterStub{}
	svc := NewBatchService(store, submitter, config.BatchConfig{Workers: 1}, nil, zap.NewNop())

	job := &models.BatchJob{
		Status: models.BatchJobStatusQueued,
		Input:  models.BatchMintInput{Wallets: []string{"wallet-1"}, Skill: "Go", SkillLevel: "Campus Verified"},
	}
	require.NoError(t, store.Create(context.Background(), job))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	assert.Eventually(t, func() bool {
		loaded, err := store.GetByID(context.Background(), job.ID)
		return err == nil && loaded.Status == models.BatchJobStatusCompleted
	}, 2*time.Second, 20*time.Millisecond)
}

func TestBatchGetJobNotFound(t *testing.T) {
	svc := NewBatchService(newBatchJobStoreStub(), &submitterStub{}, config.BatchConfig{}, nil, zap.NewNop())
	_, err := svc.GetJob(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSyntheticStudentName(t *testing.T) {
	assert.Equal(t, "Campus Student (ABCDEFGH...)", syntheticStudentName("ABCDEFGHIJKL"))
	assert.Equal(t, "Campus Student (short)", syntheticStudentName("short"))
}
