package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/certifyme/attest-api/internal/dto"
	"github.com/certifyme/attest-api/internal/models"
	appErrors "github.com/certifyme/attest-api/pkg/errors"
	"github.com/certifyme/attest-api/pkg/response"
)

type batchService interface {
	Enqueue(ctx context.Context, input models.BatchMintInput) (*models.BatchJob, error)
	GetJob(ctx context.Context, id string) (*models.BatchJob, error)
}

// CampusHandler exposes institutional batch verification endpoints.
type CampusHandler struct {
	service batchService
}

// NewCampusHandler builds a new handler.
func NewCampusHandler(svc batchService) *CampusHandler {
	return &CampusHandler{service: svc}
}

// BatchMint godoc
// @Summary Start a batch certificate verification job
// @Tags Campus
// @Accept json
// @Produce json
// @Param payload body dto.BatchMintRequest true "Batch payload"
// @Success 202 {object} response.Envelope
// @Router /campus/batch-mint [post]
func (h *CampusHandler) BatchMint(c *gin.Context) {
	var req dto.BatchMintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}

	issuer := "Campus"
	if claims := claimsFromContext(c); claims != nil {
		issuer = fmt.Sprintf("Institution %s", claims.UserID)
	}

	job, err := h.service.Enqueue(c.Request.Context(), models.BatchMintInput{
		Wallets:    req.StudentWallets,
		Skill:      req.Skill,
		SkillLevel: req.SkillLevel,
		Issuer:     issuer,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, dto.BatchMintResponse{
		JobID:  job.ID,
		Status: string(job.Status),
		Message: fmt.Sprintf("Batch verification started for %d students. Poll /campus/jobs/%s for status.",
			len(req.StudentWallets), job.ID),
	}, nil)
}

// GetJob godoc
// @Summary Check batch job status
// @Tags Campus
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /campus/jobs/{id} [get]
func (h *CampusHandler) GetJob(c *gin.Context) {
	job, err := h.service.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}
