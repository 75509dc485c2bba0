package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/certifyme/attest-api/internal/client"
	"github.com/certifyme/attest-api/internal/models"
	"github.com/certifyme/attest-api/internal/repository"
	"github.com/certifyme/attest-api/pkg/config"
	appErrors "github.com/certifyme/attest-api/pkg/errors"
)

var repoURLPattern = regexp.MustCompile(`^https?://[\w.-]+/[\w.-]+/[\w.-]+/?`)

// SubmissionStore persists submissions.
type SubmissionStore interface {
	Create(ctx context.Context, sub *models.Submission) error
	GetByCertID(ctx context.Context, certID string) (*models.Submission, error)
	GetByAssetID(ctx context.Context, assetID int64) (*models.Submission, error)
	List(ctx context.Context, status models.SubmissionStatus, limit int) ([]models.Submission, error)
	Update(ctx context.Context, certID string, params repository.UpdateSubmissionParams) error
}

// ScoreClient is the external scoring oracle boundary.
type ScoreClient interface {
	Score(ctx context.Context, repoURL, claimedSkill string) (*client.ScoreResult, error)
}

// PlagiarismChecker runs the corpus comparison.
type PlagiarismChecker interface {
	Check(ctx context.Context, repoURL string) (*PlagiarismResult, error)
	SuspicionThreshold() float64
}

// AttestationOracle signs and verifies attestations.
type AttestationOracle interface {
	Attest(identity, claim string, score int, timestamp int64, requestID string) *Attestation
	Verify(payload, signature, keyRef string) bool
	EvidenceHash(repoURL, skill string, score int, analysis *models.ScoreRationale, timestamp int64) string
	EvidenceDocument(repoURL, skill string, score int, analysis *models.ScoreRationale, timestamp int64) (json.RawMessage, error)
}

// AnchorClient pins evidence to content-addressed storage.
type AnchorClient interface {
	Configured() bool
	Pin(ctx context.Context, name string, document json.RawMessage) (string, error)
	GatewayURL(hash string) string
}

// LedgerClient reads on-chain asset state.
type LedgerClient interface {
	Configured() bool
	LookupAsset(ctx context.Context, assetID string) (*client.AssetInfo, error)
}

// VerifyCache caches public verification responses.
type VerifyCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SubmitParams carries a verification claim.
type SubmitParams struct {
	StudentName   string `validate:"required"`
	WalletAddress *string
	RepoURL       string `validate:"required"`
	Skill         string `validate:"required"`
	Description   *string
	Issuer        string
}

// VerificationResult is the public verification response for an asset.
type VerificationResult struct {
	Verified          bool               `json:"verified"`
	Certificate       *models.Submission `json:"certificate"`
	OnChainProof      *client.AssetInfo  `json:"on_chain_proof,omitempty"`
	OracleVerified    bool               `json:"oracle_verified"`
	PlagiarismSummary *PlagiarismSummary `json:"plagiarism_summary,omitempty"`
}

// PlagiarismSummary is the public view of a stored plagiarism check.
type PlagiarismSummary struct {
	Checked    bool                     `json:"checked"`
	Score      float64                  `json:"score,omitempty"`
	Suspicious bool                     `json:"suspicious"`
	Matches    models.PlagiarismMatches `json:"matches,omitempty"`
}

// stageOutcome makes the best-effort policy an explicit branch: the pipeline
// inspects it and folds into "recorded" vs "left absent".
type stageOutcome struct {
	ok     bool
	reason string
}

func stageOK() stageOutcome             { return stageOutcome{ok: true} }
func stageErr(err error) stageOutcome   { return stageOutcome{reason: err.Error()} }
func stageSkip(why string) stageOutcome { return stageOutcome{reason: why} }

// VerificationService orchestrates the submission pipeline and the public
// read surface.
type VerificationService struct {
	store      SubmissionStore
	scorer     ScoreClient
	plagiarism PlagiarismChecker
	oracle     AttestationOracle
	anchor     AnchorClient
	ledger     LedgerClient
	cache      VerifyCache
	metrics    *MetricsService
	validate   *validator.Validate
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewVerificationService wires the pipeline collaborators.
func NewVerificationService(
	store SubmissionStore,
	scorer ScoreClient,
	plagiarism PlagiarismChecker,
	oracle AttestationOracle,
	anchor AnchorClient,
	ledger LedgerClient,
	cache VerifyCache,
	metrics *MetricsService,
	cfg config.VerifyConfig,
	logger *zap.Logger,
) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &VerificationService{
		store:      store,
		scorer:     scorer,
		plagiarism: plagiarism,
		oracle:     oracle,
		anchor:     anchor,
		ledger:     ledger,
		cache:      cache,
		metrics:    metrics,
		validate:   validator.New(),
		cacheTTL:   ttl,
		logger:     logger,
	}
}

// Submit runs the full verification pipeline for one claim. Scoring is the
// only fatal stage after creation: on scorer failure the submission stays in
// RECEIVED so the caller can retry. Plagiarism, attestation and anchoring are
// best-effort and never change the scoring verdict.
func (s *VerificationService) Submit(ctx context.Context, params SubmitParams) (*models.Submission, error) {
	if err := s.validate.Struct(&params); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student_name, skill and repo_url are required")
	}
	if !repoURLPattern.MatchString(params.RepoURL) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "repo_url does not look like a repository URL")
	}

	sub := &models.Submission{
		StudentName:   params.StudentName,
		WalletAddress: params.WalletAddress,
		RepoURL:       params.RepoURL,
		Skill:         params.Skill,
		Description:   params.Description,
		Issuer:        params.Issuer,
		Status:        models.StatusReceived,
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store submission")
	}

	log := s.logger.With(zap.String("cert_id", sub.CertID), zap.String("repo_url", sub.RepoURL))

	result, err := s.scorer.Score(ctx, sub.RepoURL, sub.Skill)
	if err != nil {
		s.metrics.RecordPipelineStage("score", "failed")
		log.Error("scoring failed, submission left in RECEIVED", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "scoring unavailable")
	}
	s.metrics.RecordPipelineStage("score", "ok")

	status := models.StatusRejected
	var verifiedAt *time.Time
	var rejection *string
	if result.Verified {
		status = models.StatusVerified
		now := time.Now().UTC()
		verifiedAt = &now
	} else {
		reason := fmt.Sprintf("score %d below verification threshold", result.Score)
		rejection = &reason
	}

	scoreUpdate := repository.UpdateSubmissionParams{
		Status:          &status,
		AIScore:         &result.Score,
		SkillLevel:      &result.SkillLevel,
		Analysis:        &result.Analysis,
		EvidenceSummary: &result.EvidenceSummary,
		Recommendation:  &result.Recommendation,
		RejectionReason: rejection,
		VerifiedAt:      verifiedAt,
	}
	if err := s.store.Update(ctx, sub.CertID, scoreUpdate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist score")
	}
	s.metrics.RecordSubmission(string(status))

	if outcome := s.runPlagiarismStage(ctx, sub.CertID, sub.RepoURL); !outcome.ok {
		log.Warn("plagiarism stage left absent", zap.String("reason", outcome.reason))
	}

	timestamp := time.Now().Unix()
	if outcome := s.runAttestStage(ctx, sub, result.Score, timestamp); !outcome.ok {
		log.Warn("attestation stage left absent", zap.String("reason", outcome.reason))
	}

	if outcome := s.runAnchorStage(ctx, sub, result, timestamp); !outcome.ok {
		log.Warn("anchor stage left absent", zap.String("reason", outcome.reason))
	}

	final, err := s.store.GetByCertID(ctx, sub.CertID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "reload submission")
	}
	return final, nil
}

func (s *VerificationService) runPlagiarismStage(ctx context.Context, certID, repoURL string) stageOutcome {
	result, err := s.plagiarism.Check(ctx, repoURL)
	if err != nil {
		s.metrics.RecordPipelineStage("plagiarism", "failed")
		return stageErr(err)
	}
	if !result.Checked {
		s.metrics.RecordPipelineStage("plagiarism", "skipped")
		return stageSkip("source unreadable, recorded as unchecked")
	}

	now := time.Now().UTC()
	update := repository.UpdateSubmissionParams{
		PlagiarismScore:     &result.Score,
		PlagiarismMatches:   result.Matches,
		PlagiarismCheckedAt: &now,
	}
	if err := s.store.Update(ctx, certID, update); err != nil {
		s.metrics.RecordPipelineStage("plagiarism", "failed")
		return stageErr(err)
	}
	s.metrics.RecordPipelineStage("plagiarism", "ok")
	return stageOK()
}

func (s *VerificationService) runAttestStage(ctx context.Context, sub *models.Submission, score int, timestamp int64) stageOutcome {
	identity := ""
	if sub.WalletAddress != nil {
		identity = *sub.WalletAddress
	}
	att := s.oracle.Attest(identity, sub.Skill, score, timestamp, sub.CertID)
	if att == nil {
		s.metrics.RecordPipelineStage("attest", "failed")
		return stageSkip("oracle produced no attestation")
	}

	update := repository.UpdateSubmissionParams{
		OracleSignature: &att.Signature,
		OraclePayload:   &att.Payload,
		OraclePublicKey: &att.KeyRef,
		OracleTimestamp: &att.Timestamp,
	}
	if err := s.store.Update(ctx, sub.CertID, update); err != nil {
		s.metrics.RecordPipelineStage("attest", "failed")
		return stageErr(err)
	}
	s.metrics.RecordPipelineStage("attest", "ok")
	return stageOK()
}

// runAnchorStage always persists the locally derived evidence hash so every
// submission carries a verifiable digest even when pinning is unavailable.
func (s *VerificationService) runAnchorStage(ctx context.Context, sub *models.Submission, result *client.ScoreResult, timestamp int64) stageOutcome {
	hash := s.oracle.EvidenceHash(sub.RepoURL, sub.Skill, result.Score, &result.Analysis, timestamp)
	update := repository.UpdateSubmissionParams{EvidenceHash: &hash}

	outcome := stageOK()
	if s.anchor != nil && s.anchor.Configured() {
		doc, err := s.oracle.EvidenceDocument(sub.RepoURL, sub.Skill, result.Score, &result.Analysis, timestamp)
		if err == nil {
			var anchorHash string
			anchorHash, err = s.anchor.Pin(ctx, "evidence-"+sub.CertID, doc)
			if err == nil {
				anchorURL := s.anchor.GatewayURL(anchorHash)
				update.AnchorHash = &anchorHash
				update.AnchorURL = &anchorURL
			}
		}
		if err != nil {
			s.metrics.RecordPipelineStage("anchor", "failed")
			outcome = stageErr(err)
		} else {
			s.metrics.RecordPipelineStage("anchor", "ok")
		}
	} else {
		s.metrics.RecordPipelineStage("anchor", "skipped")
	}

	if err := s.store.Update(ctx, sub.CertID, update); err != nil {
		return stageErr(err)
	}
	return outcome
}

// Get returns a submission by certificate identifier.
func (s *VerificationService) Get(ctx context.Context, certID string) (*models.Submission, error) {
	sub, err := s.store.GetByCertID(ctx, certID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, err
	}
	return sub, nil
}

// List returns submissions newest first with an optional status filter.
func (s *VerificationService) List(ctx context.Context, status models.SubmissionStatus, limit int) ([]models.Submission, error) {
	return s.store.List(ctx, status, limit)
}

// RecordPlagiarism merges an externally produced plagiarism result onto an
// existing submission. Only plagiarism-owned fields are written.
func (s *VerificationService) RecordPlagiarism(ctx context.Context, certID string, score float64, matches models.PlagiarismMatches) (*models.Submission, error) {
	if _, err := s.Get(ctx, certID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	update := repository.UpdateSubmissionParams{
		PlagiarismScore:     &score,
		PlagiarismMatches:   matches,
		PlagiarismCheckedAt: &now,
	}
	if err := s.store.Update(ctx, certID, update); err != nil {
		return nil, err
	}
	return s.Get(ctx, certID)
}

// RecordAttestation merges attestation fields onto an existing submission.
func (s *VerificationService) RecordAttestation(ctx context.Context, certID string, att *Attestation) (*models.Submission, error) {
	if _, err := s.Get(ctx, certID); err != nil {
		return nil, err
	}
	update := repository.UpdateSubmissionParams{
		OracleSignature: &att.Signature,
		OraclePayload:   &att.Payload,
		OraclePublicKey: &att.KeyRef,
		OracleTimestamp: &att.Timestamp,
	}
	if err := s.store.Update(ctx, certID, update); err != nil {
		return nil, err
	}
	return s.Get(ctx, certID)
}

// RecordAnchor merges anchor fields onto an existing submission.
func (s *VerificationService) RecordAnchor(ctx context.Context, certID, anchorHash, anchorURL string) (*models.Submission, error) {
	if _, err := s.Get(ctx, certID); err != nil {
		return nil, err
	}
	update := repository.UpdateSubmissionParams{
		AnchorHash: &anchorHash,
		AnchorURL:  &anchorURL,
	}
	if err := s.store.Update(ctx, certID, update); err != nil {
		return nil, err
	}
	return s.Get(ctx, certID)
}

// RecordMint associates a ledger asset with a verified certificate and marks
// it MINTED. Only VERIFIED certificates can be minted.
func (s *VerificationService) RecordMint(ctx context.Context, certID string, assetID int64, txnID string) (*models.Submission, error) {
	sub, err := s.Get(ctx, certID)
	if err != nil {
		return nil, err
	}
	if sub.Status == models.StatusRevoked {
		return nil, appErrors.ErrRevoked
	}
	if sub.Status != models.StatusVerified {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("certificate in status %s cannot be minted", sub.Status))
	}

	status := models.StatusMinted
	update := repository.UpdateSubmissionParams{
		Status:  &status,
		AssetID: &assetID,
		TxnID:   &txnID,
	}
	if err := s.store.Update(ctx, certID, update); err != nil {
		return nil, err
	}
	s.invalidateVerifyCache(ctx, assetID)
	return s.Get(ctx, certID)
}

// Revoke permanently withdraws a certificate. Revoking twice is a conflict:
// silently overwriting the original reason would destroy the audit trail.
func (s *VerificationService) Revoke(ctx context.Context, certID, reason, actor string) (*models.Submission, error) {
	sub, err := s.Get(ctx, certID)
	if err != nil {
		return nil, err
	}
	if sub.Status == models.StatusRevoked {
		return nil, appErrors.ErrRevoked
	}

	status := models.StatusRevoked
	now := time.Now().UTC()
	update := repository.UpdateSubmissionParams{
		Status:           &status,
		RevokedAt:        &now,
		RevokedBy:        &actor,
		RevocationReason: &reason,
	}
	if err := s.store.Update(ctx, certID, update); err != nil {
		return nil, err
	}
	if sub.AssetID != nil {
		s.invalidateVerifyCache(ctx, *sub.AssetID)
	}
	return s.Get(ctx, certID)
}

// VerifyByAssetID is the public verification surface: it loads the
// certificate bound to the asset, re-verifies the stored attestation and
// attaches on-chain proof when an indexer is configured. Responses are cached.
func (s *VerificationService) VerifyByAssetID(ctx context.Context, assetID int64) (*VerificationResult, error) {
	key := verifyCacheKey(assetID)
	if s.cache != nil {
		var cached VerificationResult
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return &cached, nil
		}
		s.metrics.RecordCacheLookup(false)
	}

	sub, err := s.store.GetByAssetID(ctx, assetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no certificate for asset")
		}
		return nil, err
	}

	result := s.buildVerification(ctx, sub)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
			s.logger.Warn("cache verification result", zap.Error(err))
		}
	}
	return result, nil
}

// VerifyByCertID runs the same re-verification keyed by certificate
// identifier. Not cached: certificate lookups already hit the primary store.
func (s *VerificationService) VerifyByCertID(ctx context.Context, certID string) (*VerificationResult, error) {
	sub, err := s.Get(ctx, certID)
	if err != nil {
		return nil, err
	}
	return s.buildVerification(ctx, sub), nil
}

func (s *VerificationService) buildVerification(ctx context.Context, sub *models.Submission) *VerificationResult {
	oracleVerified := false
	if sub.OraclePayload != nil && sub.OracleSignature != nil && sub.OraclePublicKey != nil {
		oracleVerified = s.oracle.Verify(*sub.OraclePayload, *sub.OracleSignature, *sub.OraclePublicKey)
	}

	var proof *client.AssetInfo
	if sub.AssetID != nil && s.ledger != nil && s.ledger.Configured() {
		info, err := s.ledger.LookupAsset(ctx, strconv.FormatInt(*sub.AssetID, 10))
		if err != nil {
			s.logger.Warn("ledger lookup failed", zap.Int64("asset_id", *sub.AssetID), zap.Error(err))
		} else {
			proof = info
		}
	}

	var plagiarism *PlagiarismSummary
	if sub.PlagiarismCheckedAt != nil {
		threshold := defaultSuspicionThreshold
		if s.plagiarism != nil {
			threshold = s.plagiarism.SuspicionThreshold()
		}
		summary := &PlagiarismSummary{Checked: true, Matches: sub.PlagiarismMatches}
		if sub.PlagiarismScore != nil {
			summary.Score = *sub.PlagiarismScore
			summary.Suspicious = *sub.PlagiarismScore > threshold
		}
		plagiarism = summary
	}

	return &VerificationResult{
		Verified:          sub.Verified(),
		Certificate:       sub,
		OnChainProof:      proof,
		OracleVerified:    oracleVerified,
		PlagiarismSummary: plagiarism,
	}
}

func (s *VerificationService) invalidateVerifyCache(ctx context.Context, assetID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, verifyCacheKey(assetID)); err != nil {
		s.logger.Warn("invalidate verification cache", zap.Int64("asset_id", assetID), zap.Error(err))
	}
}

func verifyCacheKey(assetID int64) string {
	return "verify:asset:" + strconv.FormatInt(assetID, 10)
}
