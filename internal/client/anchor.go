package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/certifyme/attest-api/pkg/config"
)

// Anchor pins evidence documents to a content-addressed store so that a
// certificate's evidence can be retrieved and re-hashed by third parties.
type Anchor struct {
	apiURL  string
	gateway string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewAnchor constructs the pinning client.
func NewAnchor(cfg config.AnchorConfig, logger *zap.Logger) *Anchor {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Anchor{
		apiURL:  cfg.APIURL,
		gateway: cfg.Gateway,
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Configured reports whether pinning credentials are present.
func (a *Anchor) Configured() bool {
	return a.token != "" && a.apiURL != ""
}

type pinRequest struct {
	Content  json.RawMessage `json:"pinataContent"`
	Metadata pinMetadata     `json:"pinataMetadata"`
}

type pinMetadata struct {
	Name string `json:"name"`
}

type pinResponse struct {
	Hash string `json:"IpfsHash"`
}

// Pin uploads the JSON document and returns its content hash.
func (a *Anchor) Pin(ctx context.Context, name string, document json.RawMessage) (string, error) {
	if !a.Configured() {
		return "", fmt.Errorf("anchor service not configured")
	}

	body, err := json.Marshal(pinRequest{Content: document, Metadata: pinMetadata{Name: name}})
	if err != nil {
		return "", fmt.Errorf("marshal pin request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL+"/pinning/pinJSONToIPFS", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build pin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pin request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("anchor returned status %d: %s", resp.StatusCode, string(payload))
	}

	var result pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode pin response: %w", err)
	}
	if result.Hash == "" {
		return "", fmt.Errorf("anchor returned empty hash")
	}
	return result.Hash, nil
}

// GatewayURL builds the public retrieval URL for a pinned hash.
func (a *Anchor) GatewayURL(hash string) string {
	if hash == "" {
		return ""
	}
	return a.gateway + "/" + hash
}
