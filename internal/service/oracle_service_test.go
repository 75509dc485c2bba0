package service

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/certifyme/attest-api/internal/models"
	"github.com/certifyme/attest-api/pkg/config"
)

func newEd25519Oracle(t *testing.T) *OracleService {
	t.Helper()
	seed := strings.Repeat("ab", 32)
	return NewOracleService(config.OracleConfig{PrivateKey: seed}, zap.NewNop())
}

func TestBuildPayload(t *testing.T) {
	payload := BuildPayload("wallet-1", "Go", 87, 1700000000, "cert-1")
	assert.Equal(t, "CertifyMe-v2|wallet-1|Go|87|1700000000|cert-1", payload)
}

func TestBuildPayloadDefaults(t *testing.T) {
	payload := BuildPayload("", "Go", 50, 1700000000, "")
	assert.Equal(t, "CertifyMe-v2|anonymous|Go|50|1700000000|0", payload)
}

func TestAttestVerifyRoundTrip(t *testing.T) {
	oracle := newEd25519Oracle(t)

	att := oracle.Attest("wallet-1", "Go", 87, 1700000000, "cert-1")
	require.NotNil(t, att)
	assert.Equal(t, algEd25519, att.Algorithm)
	assert.Equal(t, oracle.KeyRef(), att.KeyRef)

	digest := sha256.Sum256([]byte(att.Payload))
	assert.Equal(t, hex.EncodeToString(digest[:]), att.PayloadHash)

	assert.True(t, oracle.Verify(att.Payload, att.Signature, att.KeyRef))
}

func TestVerifyRejectsMutations(t *testing.T) {
	oracle := newEd25519Oracle(t)
	att := oracle.Attest("wallet-1", "Go", 87, 1700000000, "cert-1")

	raw, err := base64.StdEncoding.DecodeString(att.Signature)
	require.NoError(t, err)
	for i := range raw {
		mutated := make([]byte, len(raw))
		copy(mutated, raw)
		mutated[i] ^= 0x01
		assert.False(t, oracle.Verify(att.Payload, base64.StdEncoding.EncodeToString(mutated), att.KeyRef),
			"mutated signature byte %d must not verify", i)
	}

	tampered := strings.Replace(att.Payload, "87", "99", 1)
	assert.False(t, oracle.Verify(tampered, att.Signature, att.KeyRef))
}

func TestAttestSymmetricFallbackMode(t *testing.T) {
	oracle := NewOracleService(config.OracleConfig{}, zap.NewNop())

	att := oracle.Attest("", "Go", 50, 1700000000, "")
	assert.Equal(t, demoKeyRef, att.KeyRef)
	assert.Equal(t, algHMAC, att.Algorithm)
	assert.True(t, oracle.Verify(att.Payload, att.Signature, att.KeyRef))
	assert.False(t, oracle.Verify(att.Payload+"x", att.Signature, att.KeyRef))
}

func TestAttestInvalidKeyFallsBackToSymmetric(t *testing.T) {
	for _, key := range []string{"not-hex", "abcd"} {
		oracle := NewOracleService(config.OracleConfig{PrivateKey: key}, zap.NewNop())
		att := oracle.Attest("wallet-1", "Go", 60, 1700000000, "cert-1")
		assert.Equal(t, demoKeyRef, att.KeyRef)
		assert.True(t, oracle.Verify(att.Payload, att.Signature, att.KeyRef))
	}
}

type failingSigner struct{}

func (failingSigner) Sign([]byte) ([]byte, error) { return nil, errors.New("hsm offline") }

func TestAttestCallTimeFailureUsesHMACFallback(t *testing.T) {
	fallback := &hmacSigner{secret: []byte("secret")}
	oracle := &OracleService{
		signer:    failingSigner{},
		fallback:  fallback,
		keyRef:    "deadbeef",
		algorithm: algEd25519,
		logger:    zap.NewNop(),
	}

	att := oracle.Attest("wallet-1", "Go", 70, 1700000000, "cert-1")
	assert.Equal(t, fallbackKeyRef, att.KeyRef)
	assert.Equal(t, algHMAC, att.Algorithm)
	assert.True(t, oracle.Verify(att.Payload, att.Signature, att.KeyRef))
}

func TestVerifyNeverErrorsOnGarbage(t *testing.T) {
	oracle := newEd25519Oracle(t)

	assert.False(t, oracle.Verify("", "", ""))
	assert.False(t, oracle.Verify("payload", "%%%not-base64%%%", oracle.KeyRef()))
	assert.False(t, oracle.Verify("payload", base64.StdEncoding.EncodeToString([]byte("sig")), "zz-not-hex"))
	assert.False(t, oracle.Verify("payload", base64.StdEncoding.EncodeToString([]byte("sig")), "abcd"))
}

func TestEvidenceHashDeterministic(t *testing.T) {
	oracle := newEd25519Oracle(t)
	analysis := &models.ScoreRationale{CodeQuality: 80, Complexity: 70, BestPractices: 75, Originality: 60}

	first := oracle.EvidenceHash("https://github.com/a/b", "Go", 80, analysis, 1700000000)
	second := oracle.EvidenceHash("https://github.com/a/b", "Go", 80, analysis, 1700000000)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)

	changed := oracle.EvidenceHash("https://github.com/a/b", "Go", 81, analysis, 1700000000)
	assert.NotEqual(t, first, changed)

	doc, err := oracle.EvidenceDocument("https://github.com/a/b", "Go", 80, analysis, 1700000000)
	require.NoError(t, err)
	digest := sha256.Sum256(doc)
	assert.Equal(t, hex.EncodeToString(digest[:]), first)
}
