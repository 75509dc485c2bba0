package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/certifyme/attest-api/internal/dto"
	"github.com/certifyme/attest-api/internal/models"
	"github.com/certifyme/attest-api/internal/service"
	appErrors "github.com/certifyme/attest-api/pkg/errors"
	"github.com/certifyme/attest-api/pkg/export"
	"github.com/certifyme/attest-api/pkg/response"
)

type certificateService interface {
	Submit(ctx context.Context, params service.SubmitParams) (*models.Submission, error)
	Get(ctx context.Context, certID string) (*models.Submission, error)
	List(ctx context.Context, status models.SubmissionStatus, limit int) ([]models.Submission, error)
	RecordMint(ctx context.Context, certID string, assetID int64, txnID string) (*models.Submission, error)
	RecordAnchor(ctx context.Context, certID, anchorHash, anchorURL string) (*models.Submission, error)
	RecordPlagiarism(ctx context.Context, certID string, score float64, matches models.PlagiarismMatches) (*models.Submission, error)
	RecordAttestation(ctx context.Context, certID string, att *service.Attestation) (*models.Submission, error)
	Revoke(ctx context.Context, certID, reason, actor string) (*models.Submission, error)
}

type certificatePDFRenderer interface {
	Render(doc export.CertificateDocument) ([]byte, error)
}

type certificateCSVRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// CertificateHandler exposes the certificate lifecycle endpoints.
type CertificateHandler struct {
	service certificateService
	pdf     certificatePDFRenderer
	csv     certificateCSVRenderer
}

// NewCertificateHandler builds a new handler.
func NewCertificateHandler(svc certificateService, pdf certificatePDFRenderer, csv certificateCSVRenderer) *CertificateHandler {
	return &CertificateHandler{service: svc, pdf: pdf, csv: csv}
}

// SubmitEvidence godoc
// @Summary Submit evidence for verification
// @Tags Certificates
// @Accept json
// @Produce json
// @Param payload body dto.SubmitEvidenceRequest true "Evidence payload"
// @Success 201 {object} response.Envelope
// @Router /certificates/submit-evidence [post]
func (h *CertificateHandler) SubmitEvidence(c *gin.Context) {
	var req dto.SubmitEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid evidence payload"))
		return
	}
	if req.Issuer == "" {
		req.Issuer = "CertifyMe AI Oracle"
	}

	sub, err := h.service.Submit(c.Request.Context(), service.SubmitParams{
		StudentName:   req.StudentName,
		WalletAddress: req.WalletAddress,
		RepoURL:       req.RepoURL,
		Skill:         req.Skill,
		Description:   req.Description,
		Issuer:        req.Issuer,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

// Get godoc
// @Summary Get certificate by identifier
// @Tags Certificates
// @Produce json
// @Param certId path string true "Certificate ID"
// @Success 200 {object} response.Envelope
// @Router /certificates/{certId} [get]
func (h *CertificateHandler) Get(c *gin.Context) {
	sub, err := h.service.Get(c.Request.Context(), c.Param("certId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// List godoc
// @Summary List certificates
// @Tags Certificates
// @Produce json
// @Param status query string false "Status filter"
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /certificates [get]
func (h *CertificateHandler) List(c *gin.Context) {
	status := models.SubmissionStatus(c.Query("status"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	subs, err := h.service.List(c.Request.Context(), status, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	if c.Query("format") == "csv" {
		h.renderCSV(c, subs)
		return
	}
	response.JSON(c, http.StatusOK, subs, nil)
}

func (h *CertificateHandler) renderCSV(c *gin.Context, subs []models.Submission) {
	data := export.Dataset{
		Headers: []string{"id", "student_name", "skill", "skill_level", "score", "status", "created_at"},
	}
	for _, sub := range subs {
		row := map[string]string{
			"id":           sub.CertID,
			"student_name": sub.StudentName,
			"skill":        sub.Skill,
			"status":       string(sub.Status),
			"created_at":   sub.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if sub.SkillLevel != nil {
			row["skill_level"] = *sub.SkillLevel
		}
		if sub.AIScore != nil {
			row["score"] = strconv.Itoa(*sub.AIScore)
		}
		data.Rows = append(data.Rows, row)
	}

	payload, err := h.csv.Render(data)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="certificates.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

// ExportPDF godoc
// @Summary Download a printable certificate
// @Tags Certificates
// @Produce application/pdf
// @Param certId path string true "Certificate ID"
// @Success 200 {file} binary
// @Router /certificates/{certId}/pdf [get]
func (h *CertificateHandler) ExportPDF(c *gin.Context) {
	sub, err := h.service.Get(c.Request.Context(), c.Param("certId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !sub.Verified() {
		response.Error(c, appErrors.Clone(appErrors.ErrConflict, "only verified certificates can be exported"))
		return
	}

	doc := export.CertificateDocument{
		CertID:      sub.CertID,
		StudentName: sub.StudentName,
		Skill:       sub.Skill,
		Issuer:      sub.Issuer,
		Status:      string(sub.Status),
		IssuedAt:    sub.CreatedAt,
	}
	if sub.SkillLevel != nil {
		doc.SkillLevel = *sub.SkillLevel
	}
	if sub.AIScore != nil {
		doc.Score = *sub.AIScore
	}
	if sub.EvidenceHash != nil {
		doc.EvidenceHash = *sub.EvidenceHash
	}
	if sub.AssetID != nil {
		doc.AssetID = strconv.FormatInt(*sub.AssetID, 10)
	}

	payload, err := h.pdf.Render(doc)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="certificate-%s.pdf"`, sub.CertID))
	c.Data(http.StatusOK, "application/pdf", payload)
}

// RecordMint godoc
// @Summary Record a minted ledger asset
// @Tags Certificates
// @Accept json
// @Produce json
// @Param certId path string true "Certificate ID"
// @Param payload body dto.RecordMintRequest true "Mint payload"
// @Success 200 {object} response.Envelope
// @Router /certificates/{certId}/mint [post]
func (h *CertificateHandler) RecordMint(c *gin.Context) {
	var req dto.RecordMintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mint payload"))
		return
	}
	sub, err := h.service.RecordMint(c.Request.Context(), c.Param("certId"), req.AssetID, req.TxnID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// RecordAnchor godoc
// @Summary Record anchor fields produced out of band
// @Tags Certificates
// @Accept json
// @Produce json
// @Param certId path string true "Certificate ID"
// @Param payload body dto.RecordAnchorRequest true "Anchor payload"
// @Success 200 {object} response.Envelope
// @Router /certificates/{certId}/anchor [post]
func (h *CertificateHandler) RecordAnchor(c *gin.Context) {
	var req dto.RecordAnchorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid anchor payload"))
		return
	}
	sub, err := h.service.RecordAnchor(c.Request.Context(), c.Param("certId"), req.AnchorHash, req.AnchorURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// RecordPlagiarism godoc
// @Summary Record a plagiarism result produced out of band
// @Tags Certificates
// @Accept json
// @Produce json
// @Param certId path string true "Certificate ID"
// @Param payload body dto.RecordPlagiarismRequest true "Plagiarism payload"
// @Success 200 {object} response.Envelope
// @Router /certificates/{certId}/plagiarism [post]
func (h *CertificateHandler) RecordPlagiarism(c *gin.Context) {
	var req dto.RecordPlagiarismRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid plagiarism payload"))
		return
	}
	sub, err := h.service.RecordPlagiarism(c.Request.Context(), c.Param("certId"), req.Score, req.Matches)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// RecordAttestation godoc
// @Summary Record attestation fields produced out of band
// @Tags Certificates
// @Accept json
// @Produce json
// @Param certId path string true "Certificate ID"
// @Param payload body dto.RecordAttestationRequest true "Attestation payload"
// @Success 200 {object} response.Envelope
// @Router /certificates/{certId}/attestation [post]
func (h *CertificateHandler) RecordAttestation(c *gin.Context) {
	var req dto.RecordAttestationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attestation payload"))
		return
	}
	att := &service.Attestation{
		Payload:   req.Payload,
		Signature: req.Signature,
		KeyRef:    req.KeyRef,
		Timestamp: req.Timestamp,
	}
	sub, err := h.service.RecordAttestation(c.Request.Context(), c.Param("certId"), att)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// Revoke godoc
// @Summary Revoke a certificate
// @Tags Certificates
// @Accept json
// @Produce json
// @Param certId path string true "Certificate ID"
// @Param payload body dto.RevokeRequest true "Revocation payload"
// @Success 200 {object} response.Envelope
// @Router /certificates/{certId}/revoke [post]
func (h *CertificateHandler) Revoke(c *gin.Context) {
	var req dto.RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid revocation payload"))
		return
	}

	actor := "admin"
	if claims := claimsFromContext(c); claims != nil {
		actor = claims.UserID
	}

	sub, err := h.service.Revoke(c.Request.Context(), c.Param("certId"), req.Reason, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}
