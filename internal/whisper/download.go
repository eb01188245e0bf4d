package whisper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// progressWriter wraps an io.Writer to track download progress
type progressWriter struct {
	total      int64
	downloaded int64
	lastLog    time.Time
	model      string
	log        zerolog.Logger
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.downloaded += int64(n)

	// Log progress every 2 seconds or when complete
	now := time.Now()
	if now.Sub(pw.lastLog) >= 2*time.Second || pw.downloaded >= pw.total {
		pw.lastLog = now
		percent := float64(pw.downloaded) / float64(pw.total) * 100
		mbDownloaded := float64(pw.downloaded) / 1024 / 1024
		mbTotal := float64(pw.total) / 1024 / 1024

		pw.log.Info().
			Str("model", pw.model).
			Float64("percent", percent).
			Float64("downloaded_mb", mbDownloaded).
			Float64("total_mb", mbTotal).
			Msg("Downloading model")
	}

	return n, nil
}

type downloader struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func newDownloader(log zerolog.Logger) *downloader {
	return &downloader{
		baseURL: modelBaseURL,
		client:  http.DefaultClient,
		log:     log,
	}
}

// download fetches a model's weights into destPath, via a temp file so an
// interrupted download never looks cached.
func (d *downloader) download(ctx context.Context, model string, destPath string) error {
	file, err := ModelFile(model)
	if err != nil {
		return err
	}
	url := d.baseURL + file

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	// Download to temp file first
	tmpPath := destPath + ".tmp"
	defer os.Remove(tmpPath)

	d.log.Info().Str("model", model).Str("url", url).Msg("Starting model download")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download model: HTTP %d", resp.StatusCode)
	}

	// Get content length for progress tracking
	totalSize := resp.ContentLength
	if totalSize <= 0 {
		d.log.Warn().Str("model", model).Msg("Content-Length not provided, progress tracking unavailable")
	}

	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer out.Close()

	// Use progress writer if we know the size
	var writer io.Writer = out
	if totalSize > 0 {
		pw := &progressWriter{
			total:   totalSize,
			model:   model,
			lastLog: time.Now(),
			log:     d.log,
		}
		writer = io.MultiWriter(out, pw)
	}

	written, err := io.Copy(writer, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if totalSize > 0 && written != totalSize {
		return fmt.Errorf("truncated model download: got %d of %d bytes", written, totalSize)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("failed to sync model file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close model file: %w", err)
	}

	// Move to final location
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to move model file: %w", err)
	}

	d.log.Info().
		Str("model", model).
		Str("path", destPath).
		Float64("size_mb", float64(written)/1024/1024).
		Msg("Model downloaded successfully")

	return nil
}

// TODO: Add SHA256 verification against the published model checksums
