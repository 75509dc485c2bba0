package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/certifyme/attest-api/internal/models"
)

// FingerprintRepository persists the plagiarism corpus. The corpus is
// append-only: rows are never updated or deleted once written.
type FingerprintRepository struct {
	db *sqlx.DB
}

// NewFingerprintRepository constructs the repository.
func NewFingerprintRepository(db *sqlx.DB) *FingerprintRepository {
	return &FingerprintRepository{db: db}
}

// Append inserts a new corpus entry with generated defaults.
func (r *FingerprintRepository) Append(ctx context.Context, fp *models.Fingerprint) error {
	if fp.ID == "" {
		fp.ID = uuid.NewString()
	}
	if fp.CreatedAt.IsZero() {
		fp.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO fingerprints (id, repo_url, content_hash, shingle_hashes, file_count, total_lines, created_at)
VALUES (:id, :repo_url, :content_hash, :shingle_hashes, :file_count, :total_lines, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fp); err != nil {
		return fmt.Errorf("append fingerprint: %w", err)
	}
	return nil
}

// ListRecent returns the newest corpus entries, bounding the comparison scan.
func (r *FingerprintRepository) ListRecent(ctx context.Context, limit int) ([]models.Fingerprint, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT id, repo_url, content_hash, shingle_hashes, file_count, total_lines, created_at
FROM fingerprints ORDER BY created_at DESC LIMIT $1`
	var entries []models.Fingerprint
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("list recent fingerprints: %w", err)
	}
	return entries, nil
}
