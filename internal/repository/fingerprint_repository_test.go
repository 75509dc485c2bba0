package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certifyme/attest-api/internal/models"
)

func TestFingerprintRepositoryAppend(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewFingerprintRepository(db)
	mock.ExpectExec("INSERT INTO fingerprints").
		WillReturnResult(sqlmock.NewResult(1, 1))

	fp := &models.Fingerprint{
		RepoURL:       "https://github.com/ada/repo",
		ContentHash:   "abc123",
		ShingleHashes: models.ShingleHashes{"h1", "h2"},
		FileCount:     2,
		TotalLines:    40,
	}
	require.NoError(t, repo.Append(context.Background(), fp))
	assert.NotEmpty(t, fp.ID)
	assert.False(t, fp.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFingerprintRepositoryListRecent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewFingerprintRepository(db)
	rows := sqlmock.NewRows([]string{"id", "repo_url", "content_hash", "shingle_hashes", "file_count", "total_lines", "created_at"}).
		AddRow("fp-1", "https://github.com/ada/repo", "abc123", []byte(`["h1","h2"]`), 2, 40, time.Now())
	mock.ExpectQuery("SELECT (.+) FROM fingerprints ORDER BY created_at DESC").
		WithArgs(100).
		WillReturnRows(rows)

	entries, err := repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc123", entries[0].ContentHash)
	assert.Equal(t, models.ShingleHashes{"h1", "h2"}, entries[0].ShingleHashes)
}
