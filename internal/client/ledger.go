package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/certifyme/attest-api/pkg/config"
)

// AssetInfo is the subset of indexer asset data used during public
// verification.
type AssetInfo struct {
	AssetID  string `json:"asset_id"`
	Name     string `json:"name"`
	UnitName string `json:"unit_name"`
	URL      string `json:"url"`
	Creator  string `json:"creator"`
	Deleted  bool   `json:"deleted"`
}

// Ledger reads on-chain asset state from a read-only indexer. The service
// never writes to the chain: minting happens client side and is only
// recorded here after the fact.
type Ledger struct {
	indexerURL string
	client     *http.Client
	logger     *zap.Logger
}

// NewLedger constructs the indexer client.
func NewLedger(cfg config.LedgerConfig, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Ledger{
		indexerURL: cfg.IndexerURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Configured reports whether an indexer endpoint is set.
func (l *Ledger) Configured() bool {
	return l.indexerURL != ""
}

type indexerAssetResponse struct {
	Asset struct {
		Index   int64 `json:"index"`
		Deleted bool  `json:"deleted"`
		Params  struct {
			Name     string `json:"name"`
			UnitName string `json:"unit-name"`
			URL      string `json:"url"`
			Creator  string `json:"creator"`
		} `json:"params"`
	} `json:"asset"`
}

// LookupAsset fetches asset parameters by identifier.
func (l *Ledger) LookupAsset(ctx context.Context, assetID string) (*AssetInfo, error) {
	if !l.Configured() {
		return nil, fmt.Errorf("ledger indexer not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.indexerURL+"/v2/assets/"+assetID, nil)
	if err != nil {
		return nil, fmt.Errorf("build asset request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asset request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("indexer returned status %d: %s", resp.StatusCode, string(payload))
	}

	var result indexerAssetResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode asset response: %w", err)
	}

	return &AssetInfo{
		AssetID:  assetID,
		Name:     result.Asset.Params.Name,
		UnitName: result.Asset.Params.UnitName,
		URL:      result.Asset.Params.URL,
		Creator:  result.Asset.Params.Creator,
		Deleted:  result.Asset.Deleted,
	}, nil
}
