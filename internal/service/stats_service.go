package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/certifyme/attest-api/internal/models"
)

// StatsStore exposes the aggregate queries backing platform statistics.
type StatsStore interface {
	StatusCounts(ctx context.Context) (map[models.SubmissionStatus]int, error)
	AverageScore(ctx context.Context) (float64, error)
	TopSkills(ctx context.Context, limit int) ([]models.SkillCount, error)
}

// StatsService assembles platform-wide certificate statistics.
type StatsService struct {
	store  StatsStore
	logger *zap.Logger
}

// NewStatsService constructs the service.
func NewStatsService(store StatsStore, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{store: store, logger: logger}
}

// PlatformStats aggregates totals, average score and top skills.
func (s *StatsService) PlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	counts, err := s.store.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}

	avg, err := s.store.AverageScore(ctx)
	if err != nil {
		return nil, err
	}

	skills, err := s.store.TopSkills(ctx, 5)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, count := range counts {
		total += count
	}

	return &models.PlatformStats{
		TotalCertificates: total,
		TotalVerified:     counts[models.StatusVerified] + counts[models.StatusMinted],
		TotalMinted:       counts[models.StatusMinted],
		TotalRejected:     counts[models.StatusRejected],
		TotalRevoked:      counts[models.StatusRevoked],
		AverageScore:      avg,
		TopSkills:         skills,
		GeneratedAt:       time.Now().UTC(),
	}, nil
}
