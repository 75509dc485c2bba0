package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// BatchJobType enumerates supported asynchronous job categories.
type BatchJobType string

const (
	BatchJobTypeBatchMint BatchJobType = "batch_mint"
)

// BatchJobStatus captures background job lifecycle states. Transitions are
// forward-only: queued -> processing -> completed | failed.
type BatchJobStatus string

const (
	BatchJobStatusQueued     BatchJobStatus = "queued"
	BatchJobStatusProcessing BatchJobStatus = "processing"
	BatchJobStatusCompleted  BatchJobStatus = "completed"
	BatchJobStatusFailed     BatchJobStatus = "failed"
)

// BatchMintInput is the persisted input for a batch_mint job.
type BatchMintInput struct {
	Wallets    []string `json:"wallets"`
	Skill      string   `json:"skill"`
	SkillLevel string   `json:"skill_level,omitempty"`
	Issuer     string   `json:"issuer,omitempty"`
}

// Value marshals the input to JSON for persistence.
func (i BatchMintInput) Value() (driver.Value, error) {
	data, err := json.Marshal(i)
	if err != nil {
		return nil, fmt.Errorf("marshal batch mint input: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON payload into the input struct.
func (i *BatchMintInput) Scan(value interface{}) error {
	if value == nil {
		*i = BatchMintInput{}
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("scan batch mint input: %w", err)
	}
	if len(data) == 0 {
		*i = BatchMintInput{}
		return nil
	}
	if err := json.Unmarshal(data, i); err != nil {
		return fmt.Errorf("unmarshal batch mint input: %w", err)
	}
	return nil
}

// BatchMintResult is one per-identity outcome within a batch job.
type BatchMintResult struct {
	Wallet  string `json:"wallet"`
	Success bool   `json:"success"`
	CertID  string `json:"cert_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BatchMintResults is the persisted per-identity result list.
type BatchMintResults []BatchMintResult

// Value marshals the results to JSON for persistence.
func (r BatchMintResults) Value() (driver.Value, error) {
	if r == nil {
		r = BatchMintResults{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal batch mint results: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON payload into the result list.
func (r *BatchMintResults) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("scan batch mint results: %w", err)
	}
	if len(data) == 0 {
		*r = nil
		return nil
	}
	if err := json.Unmarshal(data, r); err != nil {
		return fmt.Errorf("unmarshal batch mint results: %w", err)
	}
	return nil
}

// BatchJob is one asynchronous multi-identity verification run. Output is
// present iff the job completed; ErrorMessage iff it failed.
type BatchJob struct {
	ID           string           `db:"id" json:"id"`
	Type         BatchJobType     `db:"type" json:"job_type"`
	Status       BatchJobStatus   `db:"status" json:"status"`
	Input        BatchMintInput   `db:"input" json:"input_data"`
	Output       BatchMintResults `db:"output" json:"output_data,omitempty"`
	ErrorMessage *string          `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	StartedAt    *time.Time       `db:"started_at" json:"started_at,omitempty"`
	CompletedAt  *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
}
