package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/certifyme/attest-api/internal/client"
	"github.com/certifyme/attest-api/internal/dto"
	"github.com/certifyme/attest-api/internal/models"
	"github.com/certifyme/attest-api/internal/service"
	appErrors "github.com/certifyme/attest-api/pkg/errors"
	"github.com/certifyme/attest-api/pkg/response"
)

type verificationService interface {
	VerifyByAssetID(ctx context.Context, assetID int64) (*service.VerificationResult, error)
	VerifyByCertID(ctx context.Context, certID string) (*service.VerificationResult, error)
}

type codeScorer interface {
	Score(ctx context.Context, repoURL, claimedSkill string) (*client.ScoreResult, error)
}

type statsService interface {
	PlatformStats(ctx context.Context) (*models.PlatformStats, error)
}

// VerificationHandler exposes the public verification surface.
type VerificationHandler struct {
	service verificationService
	scorer  codeScorer
	stats   statsService
}

// NewVerificationHandler builds a new handler.
func NewVerificationHandler(svc verificationService, scorer codeScorer, stats statsService) *VerificationHandler {
	return &VerificationHandler{service: svc, scorer: scorer, stats: stats}
}

// VerifyAsset godoc
// @Summary Verify a certificate by ledger asset identifier
// @Tags Verification
// @Produce json
// @Param assetId path int true "Ledger asset ID"
// @Success 200 {object} response.Envelope
// @Router /verification/asset/{assetId} [get]
func (h *VerificationHandler) VerifyAsset(c *gin.Context) {
	assetID, err := strconv.ParseInt(c.Param("assetId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "asset identifier must be numeric"))
		return
	}
	result, err := h.service.VerifyByAssetID(c.Request.Context(), assetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// VerifyCertificate godoc
// @Summary Verify a certificate by its identifier
// @Tags Verification
// @Produce json
// @Param certId path string true "Certificate ID"
// @Success 200 {object} response.Envelope
// @Router /verification/certificate/{certId} [get]
func (h *VerificationHandler) VerifyCertificate(c *gin.Context) {
	result, err := h.service.VerifyByCertID(c.Request.Context(), c.Param("certId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// VerifyCode godoc
// @Summary Run a direct code analysis without creating a submission
// @Tags Verification
// @Accept json
// @Produce json
// @Param payload body dto.VerifyCodeRequest true "Analysis payload"
// @Success 200 {object} response.Envelope
// @Router /verification/verify-code [post]
func (h *VerificationHandler) VerifyCode(c *gin.Context) {
	var req dto.VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid analysis payload"))
		return
	}
	result, err := h.scorer.Score(c.Request.Context(), req.RepoURL, req.Skill)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "scoring unavailable"))
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Stats godoc
// @Summary Platform certificate statistics
// @Tags Verification
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *VerificationHandler) Stats(c *gin.Context) {
	stats, err := h.stats.PlatformStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
