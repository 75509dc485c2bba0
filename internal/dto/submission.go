package dto

import "github.com/certifyme/attest-api/internal/models"

// SubmitEvidenceRequest is the payload starting a verification pipeline run.
type SubmitEvidenceRequest struct {
	StudentName   string  `json:"student_name" binding:"required"`
	WalletAddress *string `json:"wallet_address"`
	RepoURL       string  `json:"repo_url" binding:"required,url"`
	Skill         string  `json:"skill" binding:"required"`
	Description   *string `json:"description"`
	Issuer        string  `json:"issuer"`
}

// RecordMintRequest associates a minted ledger asset with a certificate.
type RecordMintRequest struct {
	AssetID int64  `json:"asset_id" binding:"required"`
	TxnID   string `json:"txn_id" binding:"required"`
}

// RecordAnchorRequest merges externally produced anchor fields.
type RecordAnchorRequest struct {
	AnchorHash string `json:"anchor_hash" binding:"required"`
	AnchorURL  string `json:"anchor_url"`
}

// RecordPlagiarismRequest merges an externally produced plagiarism result.
type RecordPlagiarismRequest struct {
	Score   float64                  `json:"score" binding:"gte=0,lte=100"`
	Matches models.PlagiarismMatches `json:"matches"`
}

// RecordAttestationRequest merges externally produced attestation fields.
type RecordAttestationRequest struct {
	Payload   string `json:"payload" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	KeyRef    string `json:"key_ref" binding:"required"`
	Timestamp int64  `json:"timestamp" binding:"required"`
}

// RevokeRequest permanently withdraws a certificate.
type RevokeRequest struct {
	Reason string `json:"reason" binding:"required"`
}
