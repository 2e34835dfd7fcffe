package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cueloop/internal/infra/fetch"
)

func newTestChain(t *testing.T) *Chain {
	t.Helper()
	fetcher, err := fetch.New(fetch.Config{CacheDir: t.TempDir()})
	require.NoError(t, err)
	return NewChain(NewFileResolver(), NewDownloadResolver(fetcher))
}

func TestChainResolvesLocalFile(t *testing.T) {
	c := newTestChain(t)

	local := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(local, []byte("media"), 0o644))

	source, err := c.Resolve(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, local, source)
}

func TestChainRejectsMissingLocalFile(t *testing.T) {
	c := newTestChain(t)

	_, err := c.Resolve(context.Background(), "/nonexistent/clip.mp4")
	assert.Error(t, err)
}

func TestChainRejectsDirectory(t *testing.T) {
	c := newTestChain(t)

	_, err := c.Resolve(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestChainDownloadsRemoteReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote media payload"))
	}))
	defer srv.Close()

	c := newTestChain(t)

	source, err := c.Resolve(context.Background(), srv.URL+"/video.mp4")
	require.NoError(t, err)

	data, err := os.ReadFile(source)
	require.NoError(t, err)
	assert.Equal(t, "remote media payload", string(data))
}

func TestChainPropagatesFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestChain(t)

	_, err := c.Resolve(context.Background(), srv.URL+"/gone.mp4")
	assert.Error(t, err)
}

func TestChainUnresolvableReference(t *testing.T) {
	// A chain with only the download resolver cannot claim local paths.
	fetcher, err := fetch.New(fetch.Config{CacheDir: t.TempDir()})
	require.NoError(t, err)
	c := NewChain(NewDownloadResolver(fetcher))

	_, err = c.Resolve(context.Background(), "local.mp4")
	assert.ErrorIs(t, err, ErrUnresolvable)
}
