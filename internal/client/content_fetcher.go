package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/certifyme/attest-api/pkg/config"
)

// SourceFile is one fetched repository file, truncated to the configured
// byte bound.
type SourceFile struct {
	Path    string
	Content string
}

// ContentFetcher samples source files from a public GitHub repository for
// fingerprinting. It is deliberately bounded: a fixed number of files, each
// truncated, so fingerprinting stays cheap regardless of repository size.
type ContentFetcher struct {
	apiBase  string
	rawBase  string
	maxFiles int
	maxBytes int
	client   *http.Client
	logger   *zap.Logger
}

var codeExtensions = []string{".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".cpp", ".c", ".go", ".rs"}

// NewContentFetcher constructs the fetcher.
func NewContentFetcher(cfg config.PlagiarismConfig, logger *zap.Logger) *ContentFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxFiles := cfg.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 8
	}
	maxBytes := cfg.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = 3000
	}
	return &ContentFetcher{
		apiBase:  "https://api.github.com",
		rawBase:  "https://raw.githubusercontent.com",
		maxFiles: maxFiles,
		maxBytes: maxBytes,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// SetBaseURLs overrides the upstream endpoints. Used in tests.
func (f *ContentFetcher) SetBaseURLs(apiBase, rawBase string) {
	f.apiBase = strings.TrimRight(apiBase, "/")
	f.rawBase = strings.TrimRight(rawBase, "/")
}

// FetchFiles downloads a bounded sample of code files from the repository,
// trying the main branch first and falling back to master.
func (f *ContentFetcher) FetchFiles(ctx context.Context, repoURL string) ([]SourceFile, error) {
	owner, repo, err := parseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, branch := range []string{"main", "master"} {
		files, err := f.fetchBranch(ctx, owner, repo, branch)
		if err != nil {
			lastErr = err
			continue
		}
		return files, nil
	}
	return nil, fmt.Errorf("fetch repository %s/%s: %w", owner, repo, lastErr)
}

func (f *ContentFetcher) fetchBranch(ctx context.Context, owner, repo, branch string) ([]SourceFile, error) {
	treeURL := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", f.apiBase, owner, repo, branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, treeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build tree request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tree request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tree request for branch %s: status %d", branch, resp.StatusCode)
	}

	var tree struct {
		Tree []struct {
			Path string `json:"path"`
			Type string `json:"type"`
		} `json:"tree"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode tree response: %w", err)
	}

	paths := make([]string, 0, f.maxFiles)
	for _, entry := range tree.Tree {
		if entry.Type != "blob" || !isCodeFile(entry.Path) {
			continue
		}
		paths = append(paths, entry.Path)
		if len(paths) == f.maxFiles {
			break
		}
	}

	files := make([]SourceFile, 0, len(paths))
	for _, path := range paths {
		content, err := f.fetchRaw(ctx, owner, repo, branch, path)
		if err != nil {
			f.logger.Debug("skipping unreadable file",
				zap.String("repo", owner+"/"+repo), zap.String("path", path), zap.Error(err))
			continue
		}
		files = append(files, SourceFile{Path: path, Content: content})
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no readable code files on branch %s", branch)
	}
	return files, nil
}

func (f *ContentFetcher) fetchRaw(ctx context.Context, owner, repo, branch, path string) (string, error) {
	rawURL := fmt.Sprintf("%s/%s/%s/%s/%s", f.rawBase, owner, repo, branch, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("raw fetch status %d", resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, int64(f.maxBytes)))
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func isCodeFile(path string) bool {
	if strings.Contains(path, "node_modules/") || strings.Contains(path, "dist/") ||
		strings.Contains(path, ".min.") {
		return false
	}
	for _, ext := range codeExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func parseRepoURL(repoURL string) (owner, repo string, err error) {
	trimmed := strings.TrimSuffix(strings.TrimRight(repoURL, "/"), ".git")
	idx := strings.Index(trimmed, "github.com/")
	if idx < 0 {
		return "", "", fmt.Errorf("unsupported repository url: %s", repoURL)
	}
	parts := strings.Split(trimmed[idx+len("github.com/"):], "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("unsupported repository url: %s", repoURL)
	}
	return parts[0], parts[1], nil
}
