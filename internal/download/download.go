// Package download retrieves stored objects over plain HTTP.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrDownloadFailed is returned for any non-success response.
var ErrDownloadFailed = errors.New("download failed")

type Config struct {
	Timeout time.Duration
}

type Object struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

type Downloader struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Downloader {
	return &Downloader{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("component", "download"),
	}
}

// Fetch issues a single GET. The caller owns the returned body.
func (d *Downloader) Fetch(ctx context.Context, url string) (*Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected status %d", ErrDownloadFailed, resp.StatusCode)
	}

	return &Object{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}

// SaveAs downloads url into dir under suggestedName and returns the written
// path. Bytes go to a temporary file first; it is removed on any failure.
func (d *Downloader) SaveAs(ctx context.Context, url, dir, suggestedName string) (string, error) {
	obj, err := d.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	defer obj.Body.Close()

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, obj.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	target := filepath.Join(dir, SafeFileName(suggestedName))
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("save file: %w", err)
	}

	d.logger.Debug("saved download", "url", url, "path", target)
	return target, nil
}

// SafeFileName reduces name to a single path element usable on disk.
func SafeFileName(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "download"
	}
	return name
}
