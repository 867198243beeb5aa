// ABOUTME: ArtworkResolver: downloads album art referenced by a stream's metadata and caches it by a hash of its URL
// ABOUTME: Implements supervisor.ArtworkResolver; a cache hit never re-downloads the same URL
package artwork

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Downloader fetches and disk-caches artwork images, keyed by a hash of
// their source URL so the same track's art is never downloaded twice.
type Downloader struct {
	cacheDir string
	client   *http.Client
}

// NewDownloader creates a downloader backed by a cache directory under the
// OS temp dir.
func NewDownloader() (*Downloader, error) {
	cacheDir := filepath.Join(os.TempDir(), "sendspin-player-artwork")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("artwork: create cache directory: %w", err)
	}

	return &Downloader{
		cacheDir: cacheDir,
		client:   &http.Client{},
	}, nil
}

// Resolve fetches url and returns a local path. An empty url is not an
// error: it returns an empty path to mean "no artwork".
func (d *Downloader) Resolve(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", nil
	}

	hash := sha256.Sum256([]byte(url))
	filename := fmt.Sprintf("%x%s", hash[:8], extensionOf(url))
	cachePath := filepath.Join(d.cacheDir, filename)

	if _, err := os.Stat(cachePath); err == nil {
		log.Printf("artwork: cache hit for %s", url)
		return cachePath, nil
	}

	log.Printf("artwork: downloading %s", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("artwork: build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("artwork: download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("artwork: download failed: HTTP %d", resp.StatusCode)
	}

	f, err := os.Create(cachePath)
	if err != nil {
		return "", fmt.Errorf("artwork: create cache file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(cachePath)
		return "", fmt.Errorf("artwork: save: %w", err)
	}

	log.Printf("artwork: saved %s", cachePath)
	return cachePath, nil
}

// Cleanup removes the entire artwork cache.
func (d *Downloader) Cleanup() error {
	return os.RemoveAll(d.cacheDir)
}

func extensionOf(url string) string {
	url = strings.Split(url, "?")[0]
	ext := filepath.Ext(url)
	if ext == "" {
		ext = ".jpg"
	}
	return ext
}
