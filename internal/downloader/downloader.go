// Package downloader fetches video assets over HTTP into request-scoped
// temporary files for the composition pipeline.
package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iconidentify/tweetframe/internal/domain"
)

// MediaFetcher downloads one media asset into destDir and returns its path.
type MediaFetcher interface {
	FetchToFile(ctx context.Context, url, destDir string) (string, error)
}

// HTTPFetcher implements MediaFetcher over plain HTTP requests.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	retry     RetryConfig
	logger    *slog.Logger
}

// NewHTTPFetcher creates a media fetcher. The timeout bounds one whole
// download; header waits are bounded separately.
func NewHTTPFetcher(timeout time.Duration, userAgent string, logger *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
		userAgent: userAgent,
		retry:     DefaultRetryConfig(),
		logger:    logger,
	}
}

// FetchToFile downloads url into destDir, retrying transient failures with
// backoff. Non-success responses and empty bodies fail with
// domain.ErrMediaDownloadFailed; the caller is expected to fall back to a
// still-image result.
func (f *HTTPFetcher) FetchToFile(ctx context.Context, url, destDir string) (string, error) {
	return Retry(ctx, f.retry, func() (string, error) {
		return f.fetchOnce(ctx, url, destDir)
	})
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url, destDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "video/mp4,video/*;q=0.9,*/*;q=0.8")
	req.Header.Set("Referer", "https://x.com/")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMediaDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: unexpected status code %d", domain.ErrMediaDownloadFailed, resp.StatusCode)
	}

	path := filepath.Join(destDir, "media"+guessExtension(url, resp.Header.Get("Content-Type")))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMediaDownloadFailed, err)
	}
	if written == 0 {
		return "", fmt.Errorf("%w: download returned empty data", domain.ErrMediaDownloadFailed)
	}

	f.logger.Debug("media downloaded", "url", url, "bytes", written)
	return path, nil
}

// guessExtension picks a file extension from the content type, falling back
// to URL sniffing, defaulting to .mp4.
func guessExtension(url, contentType string) string {
	switch ct := strings.ToLower(contentType); {
	case strings.Contains(ct, "video/mp4"):
		return ".mp4"
	case strings.Contains(ct, "image/gif"):
		return ".gif"
	case strings.Contains(ct, "video/webm"):
		return ".webm"
	case strings.Contains(ct, "video/quicktime"):
		return ".mov"
	}
	switch source := strings.ToLower(url); {
	case strings.Contains(source, ".gif"):
		return ".gif"
	case strings.Contains(source, ".webm"):
		return ".webm"
	case strings.Contains(source, ".mov"):
		return ".mov"
	}
	return ".mp4"
}
