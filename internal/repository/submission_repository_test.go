package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certifyme/attest-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestSubmissionRepositoryCreateGeneratesDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectExec("INSERT INTO submissions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	sub := &models.Submission{
		StudentName: "Ada",
		RepoURL:     "https://github.com/ada/repo",
		Skill:       "Go",
		Issuer:      "Test Oracle",
	}
	require.NoError(t, repo.Create(context.Background(), sub))

	assert.NotEmpty(t, sub.ID)
	assert.NotEmpty(t, sub.CertID)
	assert.NotEqual(t, sub.ID, sub.CertID)
	assert.Equal(t, models.StatusReceived, sub.Status)
	assert.False(t, sub.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryCreateKeepsCallerIdentifier(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectExec("INSERT INTO submissions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	sub := &models.Submission{
		CertID:      "caller-supplied",
		StudentName: "Ada",
		RepoURL:     "https://github.com/ada/repo",
		Skill:       "Go",
	}
	require.NoError(t, repo.Create(context.Background(), sub))
	assert.Equal(t, "caller-supplied", sub.CertID)
}

func TestSubmissionRepositoryGetByCertID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	rows := sqlmock.NewRows([]string{"id", "cert_id", "student_name", "repo_url", "skill", "issuer", "status", "created_at", "updated_at"}).
		AddRow("id-1", "cert-1", "Ada", "https://github.com/ada/repo", "Go", "Test Oracle", "VERIFIED", time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM submissions WHERE cert_id").
		WithArgs("cert-1").
		WillReturnRows(rows)

	sub, err := repo.GetByCertID(context.Background(), "cert-1")
	require.NoError(t, err)
	assert.Equal(t, "cert-1", sub.CertID)
	assert.Equal(t, models.StatusVerified, sub.Status)
}

func TestSubmissionRepositoryGetByAssetID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	assetID := int64(777)
	rows := sqlmock.NewRows([]string{"cert_id", "asset_id", "status"}).
		AddRow("cert-1", assetID, "MINTED")
	mock.ExpectQuery("SELECT (.+) FROM submissions WHERE asset_id").
		WithArgs(assetID).
		WillReturnRows(rows)

	sub, err := repo.GetByAssetID(context.Background(), assetID)
	require.NoError(t, err)
	require.NotNil(t, sub.AssetID)
	assert.Equal(t, assetID, *sub.AssetID)
}

func TestSubmissionRepositoryUpdateBuildsPartialSet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	status := models.StatusVerified
	score := 80
	mock.ExpectExec(`UPDATE submissions SET status = \$1, ai_score = \$2, updated_at = \$3 WHERE cert_id = \$4`).
		WithArgs(status, score, sqlmock.AnyArg(), "cert-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "cert-1", UpdateSubmissionParams{
		Status:  &status,
		AIScore: &score,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpdateNoFieldsIsNoop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	require.NoError(t, repo.Update(context.Background(), "cert-1", UpdateSubmissionParams{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryStatusCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("VERIFIED", 4).
		AddRow("REJECTED", 2)
	mock.ExpectQuery("SELECT status, COUNT").WillReturnRows(rows)

	counts, err := repo.StatusCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts[models.StatusVerified])
	assert.Equal(t, 2, counts[models.StatusRejected])
}

func TestSubmissionRepositoryTopSkills(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	rows := sqlmock.NewRows([]string{"skill", "count"}).
		AddRow("Go", 10).
		AddRow("Rust", 3)
	mock.ExpectQuery("SELECT skill, COUNT").
		WithArgs(5).
		WillReturnRows(rows)

	skills, err := repo.TopSkills(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, skills, 2)
	assert.Equal(t, "Go", skills[0].Skill)
	assert.Equal(t, 10, skills[0].Count)
}
