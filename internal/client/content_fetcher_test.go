package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certifyme/attest-api/pkg/config"
)

func newFetcherTestServer(t *testing.T, branch string, tree string, raw map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/repos/"):
			if !strings.Contains(r.URL.Path, "/git/trees/"+branch) {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, tree)
		default:
			path := strings.TrimPrefix(r.URL.Path, "/ada/repo/"+branch+"/")
			content, ok := raw[path]
			if !ok {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, content)
		}
	}))
}

func TestContentFetcherFetchesMainBranch(t *testing.T) {
	tree := `{"tree":[
		{"path":"main.go","type":"blob"},
		{"path":"README.md","type":"blob"},
		{"path":"src","type":"tree"},
		{"path":"node_modules/lib/index.js","type":"blob"},
		{"path":"dist/bundle.js","type":"blob"},
		{"path":"app.min.js","type":"blob"},
		{"path":"src/handler.py","type":"blob"}
	]}`
	srv := newFetcherTestServer(t, "main", tree, map[string]string{
		"main.go":        "package main",
		"src/handler.py": "def handle(): pass",
	})
	defer srv.Close()

	fetcher := NewContentFetcher(config.PlagiarismConfig{}, nil)
	fetcher.SetBaseURLs(srv.URL, srv.URL)

	files, err := fetcher.FetchFiles(context.Background(), "https://github.com/ada/repo")
	require.NoError(t, err)
	require.Len(t, files, 2, "markdown, trees, vendored and minified paths must be filtered out")
	assert.Equal(t, "main.go", files[0].Path)
	assert.Equal(t, "package main", files[0].Content)
	assert.Equal(t, "src/handler.py", files[1].Path)
}

func TestContentFetcherFallsBackToMaster(t *testing.T) {
	tree := `{"tree":[{"path":"legacy.js","type":"blob"}]}`
	srv := newFetcherTestServer(t, "master", tree, map[string]string{
		"legacy.js": "console.log('hi')",
	})
	defer srv.Close()

	fetcher := NewContentFetcher(config.PlagiarismConfig{}, nil)
	fetcher.SetBaseURLs(srv.URL, srv.URL)

	files, err := fetcher.FetchFiles(context.Background(), "https://github.com/ada/repo")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "legacy.js", files[0].Path)
}

func TestContentFetcherRespectsBounds(t *testing.T) {
	var entries []string
	raw := map[string]string{}
	for i := 0; i < 12; i++ {
		path := fmt.Sprintf("file%d.go", i)
		entries = append(entries, fmt.Sprintf(`{"path":%q,"type":"blob"}`, path))
		raw[path] = strings.Repeat("x", 50)
	}
	tree := `{"tree":[` + strings.Join(entries, ",") + `]}`
	srv := newFetcherTestServer(t, "main", tree, raw)
	defer srv.Close()

	fetcher := NewContentFetcher(config.PlagiarismConfig{MaxFiles: 3, MaxFileBytes: 10}, nil)
	fetcher.SetBaseURLs(srv.URL, srv.URL)

	files, err := fetcher.FetchFiles(context.Background(), "https://github.com/ada/repo")
	require.NoError(t, err)
	require.Len(t, files, 3)
	for _, file := range files {
		assert.Len(t, file.Content, 10, "content past the byte bound must be truncated")
	}
}

func TestContentFetcherFailsWhenNoBranchResolves(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	fetcher := NewContentFetcher(config.PlagiarismConfig{}, nil)
	fetcher.SetBaseURLs(srv.URL, srv.URL)

	_, err := fetcher.FetchFiles(context.Background(), "https://github.com/ada/repo")
	require.Error(t, err)
}

func TestParseRepoURL(t *testing.T) {
	cases := []struct {
		url   string
		owner string
		repo  string
		ok    bool
	}{
		{"https://github.com/ada/repo", "ada", "repo", true},
		{"https://github.com/ada/repo/", "ada", "repo", true},
		{"https://github.com/ada/repo.git", "ada", "repo", true},
		{"http://github.com/ada/repo/tree/main", "ada", "repo", true},
		{"https://gitlab.com/ada/repo", "", "", false},
		{"https://github.com/ada", "", "", false},
	}
	for _, tc := range cases {
		owner, repo, err := parseRepoURL(tc.url)
		if tc.ok {
			require.NoError(t, err, tc.url)
			assert.Equal(t, tc.owner, owner)
			assert.Equal(t, tc.repo, repo)
		} else {
			assert.Error(t, err, tc.url)
		}
	}
}

func TestIsCodeFile(t *testing.T) {
	assert.True(t, isCodeFile("main.go"))
	assert.True(t, isCodeFile("src/app.tsx"))
	assert.False(t, isCodeFile("README.md"))
	assert.False(t, isCodeFile("node_modules/pkg/index.js"))
	assert.False(t, isCodeFile("dist/app.js"))
	assert.False(t, isCodeFile("vendor.min.js"))
}
