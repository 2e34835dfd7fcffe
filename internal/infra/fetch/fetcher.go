// Package fetch downloads remote resources to local storage.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Config represents fetcher configuration.
type Config struct {
	CacheDir   string        // Directory for downloaded files ("" = os.MkdirTemp)
	Timeout    time.Duration // Per-download timeout (0 = no timeout)
	MaxBytes   int64         // Download size cap (0 = unlimited)
	RatePerMin int           // Downloads allowed per minute (0 = unlimited)
}

// Fetcher downloads remote resources into a local cache directory.
type Fetcher struct {
	cacheDir   string
	maxBytes   int64
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a fetcher. The cache directory is created if missing.
func New(cfg Config) (*Fetcher, error) {
	dir := cfg.CacheDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "cueloop-cache-")
		if err != nil {
			return nil, errors.Wrap(err, "failed to create cache dir")
		}
		dir = tmp
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create cache dir")
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RatePerMin)/60.0), cfg.RatePerMin)
	}

	return &Fetcher{
		cacheDir:   dir,
		maxBytes:   cfg.MaxBytes,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
	}, nil
}

// CacheDir returns the cache directory path.
func (f *Fetcher) CacheDir() string {
	return f.cacheDir
}

// Fetch downloads the resource at rawURL and returns the local path.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "rate limit wait interrupted")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", errors.Wrapf(err, "invalid url %q", rawURL)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "failed to fetch %q", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("failed to fetch %q: status %d", rawURL, resp.StatusCode)
	}

	dest, err := f.destPath(rawURL)
	if err != nil {
		return "", err
	}

	out, err := os.CreateTemp(f.cacheDir, ".partial-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create download file")
	}
	defer os.Remove(out.Name())

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}

	n, err := io.Copy(out, body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to download %q", rawURL)
	}
	if f.maxBytes > 0 && n > f.maxBytes {
		return "", errors.Newf("download %q exceeds size cap of %d bytes", rawURL, f.maxBytes)
	}

	if err := os.Rename(out.Name(), dest); err != nil {
		return "", errors.Wrap(err, "failed to move download into cache")
	}

	zlog.Info().Msgf("fetch: downloaded: url=%s path=%s bytes=%d elapsed=%v", rawURL, dest, n, time.Since(start))
	return dest, nil
}

// destPath derives a cache file name from the URL. A short random prefix
// keeps distinct URLs with the same trailing segment from clobbering
// each other.
func (f *Fetcher) destPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid url %q", rawURL)
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		base = "download"
	}

	tmp, err := os.CreateTemp(f.cacheDir, "*-"+base)
	if err != nil {
		return "", errors.Wrap(err, "failed to reserve cache file")
	}
	name := tmp.Name()
	tmp.Close()
	return filepath.Clean(name), nil
}
