package attachment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	downloadTimeout = 30 * time.Second
	maxProofSize    = 20 << 20 // 20 MiB
)

// Downloader fetches proof attachments referenced by URL into the local
// attachments directory so they can be validated and archived.
type Downloader struct {
	dir    string
	client *http.Client
	logger *zap.Logger
}

// NewDownloader creates a downloader writing into dir.
func NewDownloader(dir string, logger *zap.Logger) *Downloader {
	return &Downloader{
		dir:    dir,
		client: &http.Client{Timeout: downloadTimeout},
		logger: logger,
	}
}

// Fetch downloads the URL and returns the local file path.
func (d *Downloader) Fetch(ctx context.Context, url string) (string, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create attachments dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid proof URL: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download proof: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("proof download returned status %d", resp.StatusCode)
	}

	name := path.Base(req.URL.Path)
	if name == "" || name == "/" || name == "." {
		name = "proof"
	}
	dest := filepath.Join(d.dir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), name))

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create proof file: %w", err)
	}
	defer out.Close()

	// Read one byte past the cap so an oversized document is rejected
	// instead of silently truncated.
	n, err := io.Copy(out, io.LimitReader(resp.Body, maxProofSize+1))
	if err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to write proof file: %w", err)
	}
	if n > maxProofSize {
		os.Remove(dest)
		return "", fmt.Errorf("proof exceeds the %d MiB limit", maxProofSize>>20)
	}

	d.logger.Debug("Proof downloaded", zap.String("url", url), zap.String("path", dest))
	return dest, nil
}
