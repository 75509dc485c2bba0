package service

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/certifyme/attest-api/internal/models"
	"github.com/certifyme/attest-api/pkg/config"
)

const (
	payloadVersion = "CertifyMe-v2"

	// demoKeyRef marks attestations produced without real key material.
	demoKeyRef = "demo-oracle-public-key"
	// fallbackKeyRef marks attestations where asymmetric signing failed at
	// call time and the symmetric path took over.
	fallbackKeyRef = "hmac-fallback"

	algEd25519 = "ed25519"
	algHMAC    = "hmac-sha256"
)

// Attestation is a signed statement binding an identity to a scored claim.
type Attestation struct {
	Payload     string `json:"payload"`
	PayloadHash string `json:"payload_hash"`
	Signature   string `json:"signature"`
	KeyRef      string `json:"key_ref"`
	Algorithm   string `json:"algorithm"`
	Timestamp   int64  `json:"timestamp"`
}

// Signer produces a signature over a canonical payload.
type Signer interface {
	Sign(payload []byte) (signature []byte, err error)
}

type ed25519Signer struct {
	key ed25519.PrivateKey
}

func (s *ed25519Signer) Sign(payload []byte) ([]byte, error) {
	if l := len(s.key); l != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid ed25519 key length %d", l)
	}
	return ed25519.Sign(s.key, payload), nil
}

type hmacSigner struct {
	secret []byte
}

func (s *hmacSigner) Sign(payload []byte) ([]byte, error) {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return mac.Sum(nil), nil
}

// OracleService signs and verifies skill attestations. With an Ed25519 key
// configured it signs asymmetrically and publishes the public key reference;
// without one it degrades to HMAC-SHA256 and tags the attestation so
// verifiers can tell the difference.
type OracleService struct {
	signer    Signer
	fallback  *hmacSigner
	publicKey ed25519.PublicKey
	keyRef    string
	algorithm string
	logger    *zap.Logger
}

// NewOracleService builds the oracle from configured key material. The
// private key is hex encoded, either a 32 byte seed or the full 64 byte key.
func NewOracleService(cfg config.OracleConfig, logger *zap.Logger) *OracleService {
	if logger == nil {
		logger = zap.NewNop()
	}

	secret := cfg.HMACSecret
	if secret == "" {
		secret = "certifyme-demo-attestation-secret"
	}
	fallback := &hmacSigner{secret: []byte(secret)}

	svc := &OracleService{
		signer:    fallback,
		fallback:  fallback,
		keyRef:    demoKeyRef,
		algorithm: algHMAC,
		logger:    logger,
	}

	if cfg.PrivateKey == "" {
		logger.Warn("oracle private key not configured, attestations use symmetric fallback")
		return svc
	}

	raw, err := hex.DecodeString(strings.TrimSpace(cfg.PrivateKey))
	if err != nil {
		logger.Error("oracle private key is not valid hex, attestations use symmetric fallback", zap.Error(err))
		return svc
	}

	var key ed25519.PrivateKey
	switch len(raw) {
	case ed25519.SeedSize:
		key = ed25519.NewKeyFromSeed(raw)
	case ed25519.PrivateKeySize:
		key = ed25519.PrivateKey(raw)
	default:
		logger.Error("oracle private key has unexpected length, attestations use symmetric fallback",
			zap.Int("length", len(raw)))
		return svc
	}

	svc.signer = &ed25519Signer{key: key}
	svc.publicKey = key.Public().(ed25519.PublicKey)
	svc.keyRef = hex.EncodeToString(svc.publicKey)
	svc.algorithm = algEd25519
	return svc
}

// KeyRef returns the public key reference published with attestations.
func (s *OracleService) KeyRef() string {
	return s.keyRef
}

// BuildPayload produces the canonical pipe-delimited attestation payload.
// Missing identity and request identifiers get fixed placeholders so the
// field count is constant.
func BuildPayload(identity, claim string, score int, timestamp int64, requestID string) string {
	if identity == "" {
		identity = "anonymous"
	}
	if requestID == "" {
		requestID = "0"
	}
	return strings.Join([]string{
		payloadVersion,
		identity,
		claim,
		strconv.Itoa(score),
		strconv.FormatInt(timestamp, 10),
		requestID,
	}, "|")
}

// Attest signs the canonical payload for the given claim. If the configured
// signer fails at call time the symmetric fallback signs instead and the key
// reference records the degradation.
func (s *OracleService) Attest(identity, claim string, score int, timestamp int64, requestID string) *Attestation {
	payload := BuildPayload(identity, claim, score, timestamp, requestID)
	digest := sha256.Sum256([]byte(payload))

	keyRef := s.keyRef
	algorithm := s.algorithm
	signature, err := s.signer.Sign([]byte(payload))
	if err != nil {
		s.logger.Error("attestation signing failed, using symmetric fallback", zap.Error(err))
		signature, _ = s.fallback.Sign([]byte(payload))
		keyRef = fallbackKeyRef
		algorithm = algHMAC
	}

	return &Attestation{
		Payload:     payload,
		PayloadHash: hex.EncodeToString(digest[:]),
		Signature:   base64.StdEncoding.EncodeToString(signature),
		KeyRef:      keyRef,
		Algorithm:   algorithm,
		Timestamp:   timestamp,
	}
}

// Verify checks a signature over a payload against the given key reference.
// It reports false on any malformed input and never returns an error.
func (s *OracleService) Verify(payload, signature, keyRef string) bool {
	if payload == "" || signature == "" {
		return false
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	switch keyRef {
	case demoKeyRef, fallbackKeyRef:
		expected, _ := s.fallback.Sign([]byte(payload))
		return hmac.Equal(sig, expected)
	default:
		pub, err := hex.DecodeString(keyRef)
		if err != nil || len(pub) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(pub), []byte(payload), sig)
	}
}

// evidenceDocument fixes the serialization order of evidence fields. The
// hash depends on this order staying stable.
type evidenceDocument struct {
	RepoURL   string                 `json:"repo_url"`
	Skill     string                 `json:"skill"`
	Score     int                    `json:"score"`
	Analysis  *models.ScoreRationale `json:"analysis"`
	Timestamp int64                  `json:"timestamp"`
}

// EvidenceHash computes the deterministic hash of the evidence record that
// gets anchored alongside the certificate.
func (s *OracleService) EvidenceHash(repoURL, skill string, score int, analysis *models.ScoreRationale, timestamp int64) string {
	doc := evidenceDocument{
		RepoURL:   repoURL,
		Skill:     skill,
		Score:     score,
		Analysis:  analysis,
		Timestamp: timestamp,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		s.logger.Error("marshal evidence document", zap.Error(err))
		return ""
	}
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}

// EvidenceDocument returns the serialized evidence record, suitable for
// anchoring. The bytes hash to the value returned by EvidenceHash.
func (s *OracleService) EvidenceDocument(repoURL, skill string, score int, analysis *models.ScoreRationale, timestamp int64) (json.RawMessage, error) {
	doc := evidenceDocument{
		RepoURL:   repoURL,
		Skill:     skill,
		Score:     score,
		Analysis:  analysis,
		Timestamp: timestamp,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal evidence document: %w", err)
	}
	return data, nil
}
