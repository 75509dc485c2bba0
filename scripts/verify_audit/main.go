// Command verify_audit replays issued certificates against the public
// verification surface and cross-checks minted assets on the ledger
// indexer. It flags drift: minted certificates whose asset no longer
// resolves, and revoked certificates that still verify.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type target struct {
	CertID  string `json:"cert_id"`
	AssetID int64  `json:"asset_id,omitempty"`
	Revoked bool   `json:"revoked,omitempty"`
}

type config struct {
	Targets []target `json:"targets"`
}

type verdict struct {
	Data struct {
		Verified    bool `json:"verified"`
		Certificate struct {
			Status  string `json:"status"`
			AssetID *int64 `json:"asset_id"`
		} `json:"certificate"`
		OnChainProof *struct {
			Deleted bool `json:"deleted"`
		} `json:"on_chain_proof"`
	} `json:"data"`
}

type finding struct {
	Target   target
	Status   int
	Verified bool
	Problem  string
	Duration time.Duration
	Err      error
}

func main() {
	var (
		apiBase     string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&apiBase, "api-base", "http://localhost:8080/api/v1", "verification API base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "verify_audit", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		findings []finding
		drifted  int
	)

	for _, t := range targets {
		f := auditTarget(client, apiBase, t)
		if f.Err != nil || f.Problem != "" {
			drifted++
		}
		findings = append(findings, f)
	}

	printReport(findings)

	fmt.Printf("Audited: %d, Drifted: %d\n", len(findings), drifted)
	if drifted > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func auditTarget(client *http.Client, apiBase string, tgt target) finding {
	f := finding{Target: tgt}

	path := "/verification/certificate/" + tgt.CertID
	if tgt.AssetID > 0 {
		path = fmt.Sprintf("/verification/asset/%d", tgt.AssetID)
	}
	url := strings.TrimRight(apiBase, "/") + path

	start := time.Now()
	resp, err := client.Get(url)
	f.Duration = time.Since(start)
	if err != nil {
		f.Err = fmt.Errorf("verification request failed: %w", err)
		return f
	}
	defer resp.Body.Close()
	f.Status = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		f.Problem = fmt.Sprintf("verification returned status %d", resp.StatusCode)
		return f
	}

	var v verdict
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		f.Err = fmt.Errorf("decode verification response: %w", err)
		return f
	}
	f.Verified = v.Data.Verified

	switch {
	case tgt.Revoked && v.Data.Verified:
		f.Problem = "revoked certificate still verifies"
	case tgt.Revoked:
		// expected
	case !v.Data.Verified:
		f.Problem = fmt.Sprintf("certificate no longer verifies (status %s)", v.Data.Certificate.Status)
	case tgt.AssetID > 0 && v.Data.OnChainProof == nil:
		f.Problem = "minted certificate has no on-chain proof"
	case tgt.AssetID > 0 && v.Data.OnChainProof.Deleted:
		f.Problem = "ledger asset was deleted"
	}
	return f
}

func printReport(results []finding) {
	fmt.Println("Verification Audit Report")
	fmt.Println("=========================")
	for _, res := range results {
		status := "OK"
		if res.Err != nil {
			status = "ERROR"
		} else if res.Problem != "" {
			status = "DRIFT"
		}
		label := res.Target.CertID
		if res.Target.AssetID > 0 {
			label = fmt.Sprintf("%s (asset %d)", label, res.Target.AssetID)
		}
		fmt.Printf("[%s] %s\n", status, label)
		fmt.Printf("  HTTP %d (%s) verified=%t\n", res.Status, res.Duration, res.Verified)
		if res.Err != nil {
			fmt.Printf("  Error: %v\n", res.Err)
		} else if res.Problem != "" {
			fmt.Printf("  Problem: %s\n", res.Problem)
		}
	}
}
