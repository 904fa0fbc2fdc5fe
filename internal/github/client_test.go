package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/review-action/internal/core"
)

func newTestClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gh := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	gh.BaseURL = base
	return NewGitHubClient(gh, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListFiles_ReadsOnlyTheFirstPage(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/repos/acme/widgets/pulls/7/files", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		next := fmt.Sprintf("<http://%s/repos/acme/widgets/pulls/7/files?page=2&per_page=100>; rel=\"next\"", r.Host)
		w.Header().Set("Link", next)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "[")
		for i := range 100 {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"filename":"f%d.go","status":"modified","patch":"@@ -1 +1 @@\n-a\n+b"}`, i)
		}
		fmt.Fprint(w, "]")
	}))

	files, err := client.ListFiles(context.Background(), "acme", "widgets", 7)
	require.NoError(t, err)
	assert.Len(t, files, 100)
	assert.Equal(t, int32(1), requests.Load(), "later pages are not fetched")
	assert.Equal(t, "f0.go", files[0].Filename)
	assert.Equal(t, core.StatusModified, files[0].Status)
	assert.True(t, files[0].HasPatch())
}

func TestGetFileContent_NotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	}))

	_, err := client.GetFileContent(context.Background(), "acme", "widgets", ".github/review-action.yml", "abc")
	assert.ErrorIs(t, err, core.ErrFileNotFound)
}
