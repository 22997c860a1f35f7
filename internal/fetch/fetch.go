package fetch

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"

	pipeerrors "bnvision/internal/errors"
	"bnvision/internal/files"
	"bnvision/internal/verify"
	"bnvision/pkg/contracts/domain"
)

// Options configures a Fetcher.
type Options struct {
	// Dest is the destination root the raw tree is built under.
	Dest string
	// Interval applies to interval-bearing data types.
	Interval string
	// BaseURL overrides the source's archive base URL (tests).
	BaseURL string
	// Client overrides the HTTP client (tests).
	Client *http.Client
	// Limiter bounds the request rate against the vendor; nil means no limit.
	Limiter *rate.Limiter
}

// Fetcher turns one job into a locally available raw file: download archive
// and checksum, verify, extract, canonical rename. Jobs never share a
// destination subtree, so fetchers are safe to run concurrently.
type Fetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	dest     string
	interval string
	baseURL  string
	logger   *slog.Logger
	files    *files.Manager
}

// NewFetcher creates a fetcher for the given source.
func NewFetcher(source domain.Source, opts Options, logger *slog.Logger) *Fetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = source.BaseURL()
	}
	return &Fetcher{
		client:   client,
		limiter:  opts.Limiter,
		dest:     opts.Dest,
		interval: opts.Interval,
		baseURL:  baseURL,
		logger:   logger,
		files:    files.NewManager(logger),
	}
}

// Fetch downloads, verifies and extracts the archive for one job, returning
// the canonical raw file path. On checksum mismatch the archive and checksum
// files are left in place for inspection; on success both are deleted.
func (f *Fetcher) Fetch(ctx context.Context, job domain.Job) (string, error) {
	dir := job.Dir(f.dest)
	if err := f.files.EnsureDirectory(dir); err != nil {
		return "", pipeerrors.Wrap(pipeerrors.CodeFileSystem, "fetch", job.String(), err)
	}

	archiveURL, checksumURL := f.archiveURL(job)
	zipPath := filepath.Join(dir, job.Symbol+".zip")
	checksumPath := zipPath + ".CHECKSUM"

	if err := f.downloadFile(ctx, archiveURL, zipPath); err != nil {
		return "", pipeerrors.Wrap(pipeerrors.CodeNetworkFailure, "fetch", job.String(), err)
	}
	if err := f.downloadFile(ctx, checksumURL, checksumPath); err != nil {
		return "", pipeerrors.Wrap(pipeerrors.CodeNetworkFailure, "fetch", job.String(), err)
	}

	if err := verify.Checksum(zipPath, checksumPath); err != nil {
		// Archive and checksum stay on disk for inspection.
		return "", fmt.Errorf("job %s: %w", job, err)
	}

	canonicalPath, err := f.extract(zipPath, dir, job)
	if err != nil {
		return "", pipeerrors.Wrap(pipeerrors.CodeArchiveCorrupt, "fetch", job.String(), err)
	}

	// Rename succeeded; the zip and checksum are no longer needed.
	for _, path := range []string{checksumPath, zipPath} {
		if err := f.files.DeleteFile(path); err != nil {
			f.logger.WarnContext(ctx, "Failed to remove download artifact",
				slog.String("path", path),
				slog.Any("error", err))
		}
	}

	f.logger.InfoContext(ctx, "Fetched archive",
		slog.String("job", job.String()),
		slog.String("canonical_path", canonicalPath))

	return canonicalPath, nil
}

// archiveURL derives the archive and checksum URLs for a job. Interval-bearing
// data types carry an /{interval}/ path segment and interval-qualified file
// names.
func (f *Fetcher) archiveURL(job domain.Job) (string, string) {
	var base, name string
	if job.DataType.HasInterval() {
		base = fmt.Sprintf("%s/%s/%s/%s", f.baseURL, job.DataType, job.Symbol, f.interval)
		name = fmt.Sprintf("%s-%s-%s.zip", job.Symbol, f.interval, job.DateString())
	} else {
		base = fmt.Sprintf("%s/%s/%s", f.baseURL, job.DataType, job.Symbol)
		name = fmt.Sprintf("%s-%s-%s.zip", job.Symbol, job.DataType, job.DateString())
	}
	archiveURL := base + "/" + name
	return archiveURL, archiveURL + ".CHECKSUM"
}

// downloadFile streams a URL to destPath.
func (f *Fetcher) downloadFile(ctx context.Context, url, destPath string) error {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return fmt.Errorf("failed to write %s: %w", destPath, err)
	}

	return file.Sync()
}

// extract unpacks the archive's single entry into dir and renames it to the
// canonical name. For interval-bearing types the canonical name keeps the
// first two hyphen-delimited tokens of the extracted entry's own name — the
// entry name, not the job symbol, is authoritative for composite identifiers.
func (f *Fetcher) extract(zipPath, dir string, job domain.Job) (string, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer reader.Close()

	if len(reader.File) == 0 {
		return "", fmt.Errorf("archive %s is empty", zipPath)
	}

	entry := reader.File[0]
	entryName := filepath.Base(entry.Name)
	extractedPath := filepath.Join(dir, entryName)

	if err := extractEntry(entry, extractedPath); err != nil {
		return "", err
	}

	canonicalName := canonicalFileName(zipPath, entryName, job.DataType)
	canonicalPath := filepath.Join(dir, canonicalName)

	if extractedPath != canonicalPath {
		if err := f.files.MoveFile(extractedPath, canonicalPath); err != nil {
			return "", fmt.Errorf("failed to rename %s to %s: %w", extractedPath, canonicalPath, err)
		}
	}

	return canonicalPath, nil
}

func extractEntry(entry *zip.File, destPath string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to extract entry: %w", err)
	}

	return dst.Sync()
}

// canonicalFileName decides the raw file name: "{symbol}-{interval}.csv" from
// the extracted entry name for interval-bearing types, the archive stem plus
// ".csv" otherwise.
func canonicalFileName(zipPath, entryName string, dataType domain.DataType) string {
	if dataType.HasInterval() {
		tokens := strings.Split(strings.TrimSuffix(entryName, filepath.Ext(entryName)), "-")
		if len(tokens) >= 2 {
			return tokens[0] + "-" + tokens[1] + ".csv"
		}
		return entryName
	}
	stem := strings.TrimSuffix(filepath.Base(zipPath), ".zip")
	return stem + ".csv"
}
