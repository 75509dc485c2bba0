package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SubmissionStatus captures the verification lifecycle of a submission.
//
// RECEIVED is the initial state; SCORED is transient while the pipeline runs;
// VERIFIED/REJECTED reflect the scoring verdict; MINTED marks an associated
// ledger asset (reachable only from VERIFIED); REVOKED is terminal.
type SubmissionStatus string

const (
	StatusReceived SubmissionStatus = "RECEIVED"
	StatusScored   SubmissionStatus = "SCORED"
	StatusVerified SubmissionStatus = "VERIFIED"
	StatusRejected SubmissionStatus = "REJECTED"
	StatusMinted   SubmissionStatus = "MINTED"
	StatusRevoked  SubmissionStatus = "REVOKED"
)

// Terminal reports whether no further status transition is permitted.
func (s SubmissionStatus) Terminal() bool {
	return s == StatusRevoked
}

// CountsAsVerified reports whether a certificate should be presented as
// verified on the public surface.
func (s SubmissionStatus) CountsAsVerified() bool {
	return s == StatusVerified || s == StatusMinted
}

// ScoreRationale holds the per-dimension breakdown returned by the scorer.
type ScoreRationale struct {
	CodeQuality   int      `json:"code_quality"`
	Complexity    int      `json:"complexity"`
	BestPractices int      `json:"best_practices"`
	Originality   int      `json:"originality"`
	Strengths     []string `json:"strengths,omitempty"`
	Weaknesses    []string `json:"weaknesses,omitempty"`
}

// Value marshals the rationale to JSON for persistence.
func (r ScoreRationale) Value() (driver.Value, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal score rationale: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON payload into the rationale struct.
func (r *ScoreRationale) Scan(value interface{}) error {
	if value == nil {
		*r = ScoreRationale{}
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("scan score rationale: %w", err)
	}
	if len(data) == 0 {
		*r = ScoreRationale{}
		return nil
	}
	if err := json.Unmarshal(data, r); err != nil {
		return fmt.Errorf("unmarshal score rationale: %w", err)
	}
	return nil
}

// PlagiarismMatch records one corpus entry that overlapped the submission.
type PlagiarismMatch struct {
	Reference  string  `json:"reference"`
	Similarity float64 `json:"similarity"`
	MatchType  string  `json:"match_type"`
}

// PlagiarismMatches is the persisted list of matches.
type PlagiarismMatches []PlagiarismMatch

// Value marshals matches to JSON for persistence.
func (m PlagiarismMatches) Value() (driver.Value, error) {
	if m == nil {
		m = PlagiarismMatches{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal plagiarism matches: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON payload into the match list.
func (m *PlagiarismMatches) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("scan plagiarism matches: %w", err)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("unmarshal plagiarism matches: %w", err)
	}
	return nil
}

// Submission is one evidence-verification attempt. CertID is the public
// certificate identifier: generated once, never reused, never changed.
type Submission struct {
	ID     string `db:"id" json:"-"`
	CertID string `db:"cert_id" json:"id"`

	StudentName   string  `db:"student_name" json:"student_name"`
	WalletAddress *string `db:"wallet_address" json:"wallet_address,omitempty"`
	RepoURL       string  `db:"repo_url" json:"repo_url"`
	Skill         string  `db:"skill" json:"skill"`
	Description   *string `db:"description" json:"description,omitempty"`
	Issuer        string  `db:"issuer" json:"issuer"`

	AIScore         *int            `db:"ai_score" json:"ai_score,omitempty"`
	SkillLevel      *string         `db:"skill_level" json:"skill_level,omitempty"`
	Analysis        *ScoreRationale `db:"analysis" json:"analysis,omitempty"`
	EvidenceSummary *string         `db:"evidence_summary" json:"evidence_summary,omitempty"`
	Recommendation  *string         `db:"recommendation" json:"recommendation,omitempty"`

	PlagiarismScore     *float64          `db:"plagiarism_score" json:"plagiarism_score,omitempty"`
	PlagiarismMatches   PlagiarismMatches `db:"plagiarism_matches" json:"plagiarism_matches,omitempty"`
	PlagiarismCheckedAt *time.Time        `db:"plagiarism_checked_at" json:"plagiarism_checked_at,omitempty"`

	OracleSignature *string `db:"oracle_signature" json:"oracle_signature,omitempty"`
	OraclePayload   *string `db:"oracle_payload" json:"oracle_payload,omitempty"`
	OraclePublicKey *string `db:"oracle_public_key" json:"oracle_public_key,omitempty"`
	OracleTimestamp *int64  `db:"oracle_timestamp" json:"oracle_timestamp,omitempty"`

	EvidenceHash *string `db:"evidence_hash" json:"evidence_hash,omitempty"`
	AnchorHash   *string `db:"anchor_hash" json:"anchor_hash,omitempty"`
	AnchorURL    *string `db:"anchor_url" json:"anchor_url,omitempty"`

	AssetID *int64  `db:"asset_id" json:"blockchain_asset_id,omitempty"`
	TxnID   *string `db:"txn_id" json:"blockchain_tx_id,omitempty"`

	Status           SubmissionStatus `db:"status" json:"status"`
	RejectionReason  *string          `db:"rejection_reason" json:"rejection_reason,omitempty"`
	RevokedAt        *time.Time       `db:"revoked_at" json:"revoked_at,omitempty"`
	RevokedBy        *string          `db:"revoked_by" json:"revoked_by,omitempty"`
	RevocationReason *string          `db:"revocation_reason" json:"revocation_reason,omitempty"`

	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	VerifiedAt *time.Time `db:"verified_at" json:"verified_at,omitempty"`
}

// Verified reports the public verification verdict for this submission.
func (s *Submission) Verified() bool {
	return s.Status.CountsAsVerified()
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", value)
	}
}
