package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/certifyme/attest-api/internal/client"
	"github.com/certifyme/attest-api/internal/models"
	"github.com/certifyme/attest-api/pkg/config"
)

const (
	matchTypeExact   = "exact_match"
	matchTypeHigh    = "high_similarity"
	matchTypePartial = "partial_match"

	maxReportedMatches = 5

	defaultSuspicionThreshold = 30.0
)

// PlagiarismResult summarizes one corpus comparison.
type PlagiarismResult struct {
	Checked    bool                     `json:"checked"`
	Score      float64                  `json:"score"`
	Suspicious bool                     `json:"suspicious"`
	Matches    models.PlagiarismMatches `json:"matches,omitempty"`
	FileCount  int                      `json:"file_count"`
	TotalLines int                      `json:"total_lines"`
}

// ContentFetcher samples source files for fingerprinting.
type ContentFetcher interface {
	FetchFiles(ctx context.Context, repoURL string) ([]client.SourceFile, error)
}

// FingerprintStore persists and reads the append-only corpus.
type FingerprintStore interface {
	Append(ctx context.Context, fp *models.Fingerprint) error
	ListRecent(ctx context.Context, limit int) ([]models.Fingerprint, error)
}

// PlagiarismService fingerprints submitted repositories and scores overlap
// against the recent corpus. The scan is bounded to the newest entries, so
// similarity against older submissions goes undetected; this keeps the check
// cheap and is accepted as a heuristic limitation.
type PlagiarismService struct {
	fetcher ContentFetcher
	store   FingerprintStore
	cfg     config.PlagiarismConfig
	logger  *zap.Logger
}

// NewPlagiarismService constructs the service.
func NewPlagiarismService(fetcher ContentFetcher, store FingerprintStore, cfg config.PlagiarismConfig, logger *zap.Logger) *PlagiarismService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NGramSize <= 0 {
		cfg.NGramSize = 4
	}
	if cfg.MaxStoredHashes <= 0 {
		cfg.MaxStoredHashes = 500
	}
	if cfg.CorpusScanLimit <= 0 {
		cfg.CorpusScanLimit = 100
	}
	if cfg.MinorThreshold <= 0 {
		cfg.MinorThreshold = 15.0
	}
	if cfg.HighThreshold <= 0 {
		cfg.HighThreshold = 50.0
	}
	if cfg.SuspicionThreshold <= 0 {
		cfg.SuspicionThreshold = defaultSuspicionThreshold
	}
	return &PlagiarismService{fetcher: fetcher, store: store, cfg: cfg, logger: logger}
}

// SuspicionThreshold exposes the configured suspicion cutoff so other
// surfaces classify stored scores the same way the check did.
func (s *PlagiarismService) SuspicionThreshold() float64 {
	return s.cfg.SuspicionThreshold
}

// Check fingerprints the repository, compares it against the recent corpus,
// and appends the new fingerprint. An unreadable repository yields a clean
// unchecked result rather than an error: the check is advisory and must not
// block certificate issuance.
func (s *PlagiarismService) Check(ctx context.Context, repoURL string) (*PlagiarismResult, error) {
	files, err := s.fetcher.FetchFiles(ctx, repoURL)
	if err != nil {
		s.logger.Warn("plagiarism fetch failed, recording unchecked result",
			zap.String("repo_url", repoURL), zap.Error(err))
		return &PlagiarismResult{Checked: false}, nil
	}

	fp := s.fingerprint(repoURL, files)

	// Snapshot the corpus before appending so the new entry never matches
	// itself.
	corpus, err := s.store.ListRecent(ctx, s.cfg.CorpusScanLimit)
	if err != nil {
		return nil, err
	}

	result := s.compare(fp, corpus)
	result.FileCount = fp.FileCount
	result.TotalLines = fp.TotalLines

	if err := s.store.Append(ctx, fp); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *PlagiarismService) fingerprint(repoURL string, files []client.SourceFile) *models.Fingerprint {
	var combined strings.Builder
	totalLines := 0
	tokens := make([]string, 0, 1024)

	for _, file := range files {
		combined.WriteString(file.Content)
		for _, line := range strings.Split(file.Content, "\n") {
			totalLines++
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") {
				continue
			}
			tokens = append(tokens, strings.Fields(trimmed)...)
		}
	}

	contentDigest := sha256.Sum256([]byte(combined.String()))

	n := s.cfg.NGramSize
	seen := make(map[string]struct{})
	hashes := make(models.ShingleHashes, 0, s.cfg.MaxStoredHashes)
	for i := 0; i+n <= len(tokens) && len(hashes) < s.cfg.MaxStoredHashes; i++ {
		shingle := strings.Join(tokens[i:i+n], " ")
		digest := blake2b.Sum256([]byte(shingle))
		h := hex.EncodeToString(digest[:8])
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		hashes = append(hashes, h)
	}

	return &models.Fingerprint{
		RepoURL:       repoURL,
		ContentHash:   hex.EncodeToString(contentDigest[:]),
		ShingleHashes: hashes,
		FileCount:     len(files),
		TotalLines:    totalLines,
	}
}

func (s *PlagiarismService) compare(fp *models.Fingerprint, corpus []models.Fingerprint) *PlagiarismResult {
	current := make(map[string]struct{}, len(fp.ShingleHashes))
	for _, h := range fp.ShingleHashes {
		current[h] = struct{}{}
	}

	matches := make(models.PlagiarismMatches, 0, maxReportedMatches)
	maxSimilarity := 0.0

	for _, entry := range corpus {
		// Resubmissions of the same repository are not plagiarism.
		if entry.RepoURL == fp.RepoURL {
			continue
		}

		var similarity float64
		var matchType string

		if entry.ContentHash == fp.ContentHash {
			similarity = 100
			matchType = matchTypeExact
		} else {
			if len(current) == 0 {
				continue
			}
			overlap := 0
			for _, h := range entry.ShingleHashes {
				if _, ok := current[h]; ok {
					overlap++
				}
			}
			similarity = round2(float64(overlap) / float64(len(current)) * 100)
			// Overlap at or under the minor threshold is noise. It is neither
			// reported as a match nor counted toward the score.
			if similarity <= s.cfg.MinorThreshold {
				continue
			}
			matchType = matchTypePartial
			if similarity > s.cfg.HighThreshold {
				matchType = matchTypeHigh
			}
		}

		if similarity > maxSimilarity {
			maxSimilarity = similarity
		}
		matches = append(matches, models.PlagiarismMatch{
			Reference:  entry.RepoURL,
			Similarity: similarity,
			MatchType:  matchType,
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > maxReportedMatches {
		matches = matches[:maxReportedMatches]
	}

	return &PlagiarismResult{
		Checked:    true,
		Score:      round2(maxSimilarity),
		Suspicious: maxSimilarity > s.cfg.SuspicionThreshold,
		Matches:    matches,
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
