package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/certifyme/attest-api/internal/client"
	"github.com/certifyme/attest-api/internal/models"
	"github.com/certifyme/attest-api/internal/service"
	appErrors "github.com/certifyme/attest-api/pkg/errors"
)

type mockVerificationService struct {
	byAssetFn func(ctx context.Context, assetID int64) (*service.VerificationResult, error)
	byCertFn  func(ctx context.Context, certID string) (*service.VerificationResult, error)
}

func (m *mockVerificationService) VerifyByAssetID(ctx context.Context, assetID int64) (*service.VerificationResult, error) {
	return m.byAssetFn(ctx, assetID)
}

func (m *mockVerificationService) VerifyByCertID(ctx context.Context, certID string) (*service.VerificationResult, error) {
	return m.byCertFn(ctx, certID)
}

type mockCodeScorer struct {
	scoreFn func(ctx context.Context, repoURL, claimedSkill string) (*client.ScoreResult, error)
}

func (m *mockCodeScorer) Score(ctx context.Context, repoURL, claimedSkill string) (*client.ScoreResult, error) {
	return m.scoreFn(ctx, repoURL, claimedSkill)
}

type mockStatsService struct {
	statsFn func(ctx context.Context) (*models.PlatformStats, error)
}

func (m *mockStatsService) PlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	return m.statsFn(ctx)
}

func TestVerifyAssetRejectsNonNumericID(t *testing.T) {
	h := NewVerificationHandler(&mockVerificationService{}, &mockCodeScorer{}, &mockStatsService{})

	c, w := newCertificateTestContext(t, http.MethodGet, "/verification/asset/not-a-number", nil)
	c.Params = gin.Params{{Key: "assetId", Value: "not-a-number"}}
	h.VerifyAsset(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "asset identifier must be numeric")
}

func TestVerifyAssetSuccess(t *testing.T) {
	svc := &mockVerificationService{
		byAssetFn: func(ctx context.Context, assetID int64) (*service.VerificationResult, error) {
			assert.Equal(t, int64(777), assetID)
			return &service.VerificationResult{Verified: true, OracleVerified: true}, nil
		},
	}
	h := NewVerificationHandler(svc, &mockCodeScorer{}, &mockStatsService{})

	c, w := newCertificateTestContext(t, http.MethodGet, "/verification/asset/777", nil)
	c.Params = gin.Params{{Key: "assetId", Value: "777"}}
	h.VerifyAsset(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"verified":true`)
}

func TestVerifyCertificateNotFound(t *testing.T) {
	svc := &mockVerificationService{
		byCertFn: func(ctx context.Context, certID string) (*service.VerificationResult, error) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		},
	}
	h := NewVerificationHandler(svc, &mockCodeScorer{}, &mockStatsService{})

	c, w := newCertificateTestContext(t, http.MethodGet, "/verification/certificate/missing", nil)
	c.Params = gin.Params{{Key: "certId", Value: "missing"}}
	h.VerifyCertificate(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyCodeMapsScorerFailureToUpstream(t *testing.T) {
	scorer := &mockCodeScorer{
		scoreFn: func(ctx context.Context, repoURL, claimedSkill string) (*client.ScoreResult, error) {
			return nil, errors.New("connection refused")
		},
	}
	h := NewVerificationHandler(&mockVerificationService{}, scorer, &mockStatsService{})

	c, w := newCertificateTestContext(t, http.MethodPost, "/verification/verify-code", map[string]string{
		"repo_url": "https://github.com/ada/repo",
		"skill":    "Go",
	})
	h.VerifyCode(c)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrUpstream.Code)
}

func TestVerifyCodeSuccess(t *testing.T) {
	scorer := &mockCodeScorer{
		scoreFn: func(ctx context.Context, repoURL, claimedSkill string) (*client.ScoreResult, error) {
			return &client.ScoreResult{Verified: true, Score: 82, SkillLevel: "Advanced"}, nil
		},
	}
	h := NewVerificationHandler(&mockVerificationService{}, scorer, &mockStatsService{})

	c, w := newCertificateTestContext(t, http.MethodPost, "/verification/verify-code", map[string]string{
		"repo_url": "https://github.com/ada/repo",
		"skill":    "Go",
	})
	h.VerifyCode(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ai_score":82`)
}

func TestStats(t *testing.T) {
	stats := &mockStatsService{
		statsFn: func(ctx context.Context) (*models.PlatformStats, error) {
			return &models.PlatformStats{TotalCertificates: 10, TotalVerified: 7}, nil
		},
	}
	h := NewVerificationHandler(&mockVerificationService{}, &mockCodeScorer{}, stats)

	c, w := newCertificateTestContext(t, http.MethodGet, "/stats", nil)
	h.Stats(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_certificates":10`)
}
