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

const submissionColumns = `id, cert_id, student_name, wallet_address, repo_url, skill, description, issuer,
ai_score, skill_level, analysis, evidence_summary, recommendation,
plagiarism_score, plagiarism_matches, plagiarism_checked_at,
oracle_signature, oracle_payload, oracle_public_key, oracle_timestamp,
evidence_hash, anchor_hash, anchor_url, asset_id, txn_id,
status, rejection_reason, revoked_at, revoked_by, revocation_reason, created_at, updated_at, verified_at`

// SubmissionRepository persists evidence submissions. It is the only writer
// of submission rows; every pipeline stage funnels its fields through Update.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a new submission row with generated defaults.
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CertID == "" {
		sub.CertID = uuid.NewString()
	}
	if sub.Status == "" {
		sub.Status = models.StatusReceived
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	const query = `INSERT INTO submissions (` + submissionColumns + `)
VALUES (:id, :cert_id, :student_name, :wallet_address, :repo_url, :skill, :description, :issuer,
:ai_score, :skill_level, :analysis, :evidence_summary, :recommendation,
:plagiarism_score, :plagiarism_matches, :plagiarism_checked_at,
:oracle_signature, :oracle_payload, :oracle_public_key, :oracle_timestamp,
:evidence_hash, :anchor_hash, :anchor_url, :asset_id, :txn_id,
:status, :rejection_reason, :revoked_at, :revoked_by, :revocation_reason, :created_at, :updated_at, :verified_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// GetByCertID returns a submission by its public certificate identifier.
func (r *SubmissionRepository) GetByCertID(ctx context.Context, certID string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE cert_id = $1`
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, certID); err != nil {
		return nil, fmt.Errorf("get submission by cert id: %w", err)
	}
	return &sub, nil
}

// GetByAssetID returns a submission by its associated ledger asset.
func (r *SubmissionRepository) GetByAssetID(ctx context.Context, assetID int64) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE asset_id = $1`
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, assetID); err != nil {
		return nil, fmt.Errorf("get submission by asset id: %w", err)
	}
	return &sub, nil
}

// List returns submissions newest first with an optional status filter.
func (r *SubmissionRepository) List(ctx context.Context, status models.SubmissionStatus, limit int) ([]models.Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	var subs []models.Submission
	if status != "" {
		query := `SELECT ` + submissionColumns + ` FROM submissions WHERE status = $1 ORDER BY created_at DESC LIMIT $2`
		if err := r.db.SelectContext(ctx, &subs, query, status, limit); err != nil {
			return nil, fmt.Errorf("list submissions: %w", err)
		}
		return subs, nil
	}
	query := `SELECT ` + submissionColumns + ` FROM submissions ORDER BY created_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &subs, query, limit); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// UpdateSubmissionParams defines the mutable fields. Each pipeline stage sets
// only the pointers it owns so concurrent stages never clobber one another.
type UpdateSubmissionParams struct {
	Status          *models.SubmissionStatus
	AIScore         *int
	SkillLevel      *string
	Analysis        *models.ScoreRationale
	EvidenceSummary *string
	Recommendation  *string

	PlagiarismScore     *float64
	PlagiarismMatches   models.PlagiarismMatches
	PlagiarismCheckedAt *time.Time

	OracleSignature *string
	OraclePayload   *string
	OraclePublicKey *string
	OracleTimestamp *int64

	EvidenceHash *string
	AnchorHash   *string
	AnchorURL    *string

	AssetID *int64
	TxnID   *string

	RejectionReason  *string
	RevokedAt        *time.Time
	RevokedBy        *string
	RevocationReason *string
	VerifiedAt       *time.Time
}

// Update persists the provided changes for a submission row keyed by cert_id.
func (r *SubmissionRepository) Update(ctx context.Context, certID string, params UpdateSubmissionParams) error {
	set := make([]string, 0, 16)
	args := make([]interface{}, 0, 18)
	argPos := 1

	add := func(column string, value interface{}) {
		set = append(set, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.AIScore != nil {
		add("ai_score", *params.AIScore)
	}
	if params.SkillLevel != nil {
		add("skill_level", *params.SkillLevel)
	}
	if params.Analysis != nil {
		add("analysis", *params.Analysis)
	}
	if params.EvidenceSummary != nil {
		add("evidence_summary", *params.EvidenceSummary)
	}
	if params.Recommendation != nil {
		add("recommendation", *params.Recommendation)
	}
	if params.PlagiarismScore != nil {
		add("plagiarism_score", *params.PlagiarismScore)
	}
	if params.PlagiarismMatches != nil {
		add("plagiarism_matches", params.PlagiarismMatches)
	}
	if params.PlagiarismCheckedAt != nil {
		add("plagiarism_checked_at", *params.PlagiarismCheckedAt)
	}
	if params.OracleSignature != nil {
		add("oracle_signature", *params.OracleSignature)
	}
	if params.OraclePayload != nil {
		add("oracle_payload", *params.OraclePayload)
	}
	if params.OraclePublicKey != nil {
		add("oracle_public_key", *params.OraclePublicKey)
	}
	if params.OracleTimestamp != nil {
		add("oracle_timestamp", *params.OracleTimestamp)
	}
	if params.EvidenceHash != nil {
		add("evidence_hash", *params.EvidenceHash)
	}
	if params.AnchorHash != nil {
		add("anchor_hash", *params.AnchorHash)
	}
	if params.AnchorURL != nil {
		add("anchor_url", *params.AnchorURL)
	}
	if params.AssetID != nil {
		add("asset_id", *params.AssetID)
	}
	if params.TxnID != nil {
		add("txn_id", *params.TxnID)
	}
	if params.RejectionReason != nil {
		add("rejection_reason", *params.RejectionReason)
	}
	if params.RevokedAt != nil {
		add("revoked_at", *params.RevokedAt)
	}
	if params.RevokedBy != nil {
		add("revoked_by", *params.RevokedBy)
	}
	if params.RevocationReason != nil {
		add("revocation_reason", *params.RevocationReason)
	}
	if params.VerifiedAt != nil {
		add("verified_at", *params.VerifiedAt)
	}

	if len(set) == 0 {
		return nil
	}
	add("updated_at", time.Now().UTC())

	query := fmt.Sprintf("UPDATE submissions SET %s WHERE cert_id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, certID)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	return nil
}

// StatusCounts aggregates submission totals by status.
func (r *SubmissionRepository) StatusCounts(ctx context.Context) (map[models.SubmissionStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM submissions GROUP BY status`
	rows := []struct {
		Status models.SubmissionStatus `db:"status"`
		Count  int                     `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("submission status counts: %w", err)
	}
	counts := make(map[models.SubmissionStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// AverageScore returns the mean score across verified certificates.
func (r *SubmissionRepository) AverageScore(ctx context.Context) (float64, error) {
	const query = `SELECT COALESCE(AVG(ai_score), 0) FROM submissions
WHERE status IN ('VERIFIED', 'MINTED') AND ai_score IS NOT NULL`
	var avg float64
	if err := r.db.GetContext(ctx, &avg, query); err != nil {
		return 0, fmt.Errorf("submission average score: %w", err)
	}
	return avg, nil
}

// TopSkills returns the most frequently certified skills.
func (r *SubmissionRepository) TopSkills(ctx context.Context, limit int) ([]models.SkillCount, error) {
	if limit <= 0 {
		limit = 5
	}
	const query = `SELECT skill, COUNT(*) AS count FROM submissions
WHERE status IN ('VERIFIED', 'MINTED') GROUP BY skill ORDER BY count DESC LIMIT $1`
	var rows []models.SkillCount
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("submission top skills: %w", err)
	}
	return rows, nil
}
