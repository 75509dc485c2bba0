package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ShingleHashes is the bounded, ordered set of shingle hashes persisted per
// fingerprint entry.
type ShingleHashes []string

// Value marshals the hash list to JSON for persistence.
func (h ShingleHashes) Value() (driver.Value, error) {
	if h == nil {
		h = ShingleHashes{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal shingle hashes: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON payload into the hash list.
func (h *ShingleHashes) Scan(value interface{}) error {
	if value == nil {
		*h = nil
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("scan shingle hashes: %w", err)
	}
	if len(data) == 0 {
		*h = nil
		return nil
	}
	if err := json.Unmarshal(data, h); err != nil {
		return fmt.Errorf("unmarshal shingle hashes: %w", err)
	}
	return nil
}

// Fingerprint is one append-only plagiarism-corpus entry. Entries are never
// mutated or deleted; multiple entries may share a RepoURL across
// resubmissions.
type Fingerprint struct {
	ID            string        `db:"id" json:"id"`
	RepoURL       string        `db:"repo_url" json:"repo_url"`
	ContentHash   string        `db:"content_hash" json:"content_hash"`
	ShingleHashes ShingleHashes `db:"shingle_hashes" json:"shingle_hashes,omitempty"`
	FileCount     int           `db:"file_count" json:"file_count"`
	TotalLines    int           `db:"total_lines" json:"total_lines"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}
