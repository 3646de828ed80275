// scraper/csv_downloader.go
package scraper

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gewnthar/samsync/config"
)

var (
	// ErrFetchFailed is returned once every source has exhausted its attempts.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrUnexpectedStatusCode indicates an HTTP response with unexpected status.
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrIncompleteDownload   = errors.New("incomplete download")
	ErrChecksumMismatch     = errors.New("checksum mismatch")
)

type statusError struct {
	Code int
}

func (e *statusError) Error() string { return fmt.Sprintf("%v: %d", ErrUnexpectedStatusCode, e.Code) }
func (e *statusError) Unwrap() error { return ErrUnexpectedStatusCode }

// Source is one download strategy for an export.
type Source struct {
	Name string
	URL  string
}

// FetchRequest names one export file and the ordered strategies to get it.
type FetchRequest struct {
	Key      string // e.g. "FY2023" or "CURRENT"
	DestPath string
	Sources  []Source
	Reuse    bool // accept a complete file already at DestPath
}

// FetchedFile describes a verified export on disk.
type FetchedFile struct {
	Path       string
	Size       int64
	SHA256     string
	SourceName string
	URL        string
	ETag       string
	Resumed    bool
	Reused     bool

	LastModified *time.Time // from the server, when it sent one
}

// Fetcher retrieves export files.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchedFile, error)
	Stat(ctx context.Context, sources []Source) (*RemoteExport, error)
}

// partMeta is stored next to a partial download so a later process can resume it.
type partMeta struct {
	URL          string `json:"url"`
	ETag         string `json:"etag,omitempty"`
	ExpectedSize int64  `json:"expected_size"`
}

// Downloader fetches exports over HTTP with retries, source fallback and resumable partial files.
type Downloader struct {
	client    *http.Client
	retry     config.RetryPolicy
	limiter   *rate.Limiter
	userAgent string
	logger    *slog.Logger
}

// NewDownloader builds a Downloader from the fetch section of the config.
func NewDownloader(cfg config.FetchConfig, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Downloader{
		// No client timeout, every attempt runs under its own context deadline.
		client:    &http.Client{},
		retry:     cfg.Retry,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: cfg.UserAgent,
		logger:    logger.With("component", "fetcher"),
	}
}

// Fetch tries each source in order and returns the first verified download.
func (d *Downloader) Fetch(ctx context.Context, req FetchRequest) (*FetchedFile, error) {
	if req.Reuse {
		if info, err := os.Stat(req.DestPath); err == nil && info.Size() > 0 {
			sum, err := fileSHA256(req.DestPath)
			if err != nil {
				return nil, err
			}
			d.logger.Info("reusing export on disk", "key", req.Key, "path", req.DestPath)
			return &FetchedFile{Path: req.DestPath, Size: info.Size(), SHA256: sum, Reused: true}, nil
		}
	}

	dir := filepath.Dir(req.DestPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	var failures []string
	for _, src := range req.Sources {
		res, err := d.fetchSource(ctx, req, src)
		if err == nil {
			res.SourceName = src.Name
			d.logger.Info("export downloaded",
				"key", req.Key, "source", src.Name, "bytes", res.Size, "resumed", res.Resumed, "sha256", res.SHA256)
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		d.logger.Warn("source exhausted", "key", req.Key, "source", src.Name, "error", err)
		failures = append(failures, fmt.Sprintf("%s: %v", src.Name, err))
	}
	return nil, fmt.Errorf("%w: %s: %s", ErrFetchFailed, req.Key, strings.Join(failures, "; "))
}

func (d *Downloader) fetchSource(ctx context.Context, req FetchRequest, src Source) (*FetchedFile, error) {
	maxAttempts := d.retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := sleepContext(ctx, d.retry.Delay(attempt)); err != nil {
			return nil, err
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		res, err := d.attempt(ctx, req, src)
		if err == nil {
			return res, nil
		}
		lastErr = fmt.Errorf("attempt %d/%d: %w", attempt, maxAttempts, err)
		if ctx.Err() != nil || !isRetryable(err) {
			break
		}
		d.logger.Debug("attempt failed", "key", req.Key, "source", src.Name, "attempt", attempt, "error", err)
	}
	return nil, lastErr
}

func (d *Downloader) attempt(ctx context.Context, req FetchRequest, src Source) (*FetchedFile, error) {
	if d.retry.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.retry.AttemptTimeout)
		defer cancel()
	}

	part := req.DestPath + ".part"
	metaPath := part + ".json"

	var offset int64
	meta := readPartMeta(metaPath)
	if meta.URL == src.URL {
		if info, err := os.Stat(part); err == nil {
			offset = info.Size()
		}
	} else {
		removePartial(part)
		meta = partMeta{URL: src.URL}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", d.userAgent)
	httpReq.Header.Set("Accept", "text/csv,application/octet-stream,*/*")
	if offset > 0 {
		httpReq.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
		if meta.ETag != "" && !strings.HasPrefix(meta.ETag, "W/") {
			httpReq.Header.Set("If-Range", meta.ETag)
		}
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make GET request to %s: %w", src.URL, err)
	}
	defer resp.Body.Close()

	var (
		out     *os.File
		total   int64 = -1
		resumed bool
	)
	switch resp.StatusCode {
	case http.StatusPartialContent:
		start, size, ok := parseContentRange(resp.Header.Get("Content-Range"))
		if !ok || start != offset {
			removePartial(part)
			return nil, fmt.Errorf("%w: server answered range %q for offset %d", ErrIncompleteDownload, resp.Header.Get("Content-Range"), offset)
		}
		total = size
		resumed = true
		out, err = os.OpenFile(part, os.O_WRONLY|os.O_APPEND, 0644)
	case http.StatusOK:
		offset = 0
		if resp.ContentLength >= 0 {
			total = resp.ContentLength
		}
		out, err = os.Create(part)
	case http.StatusRequestedRangeNotSatisfiable:
		if meta.ExpectedSize > 0 && meta.ExpectedSize == offset {
			return d.finalize(req, src, part, metaPath, "", meta.ETag, true)
		}
		removePartial(part)
		return nil, &statusError{Code: resp.StatusCode}
	default:
		return nil, &statusError{Code: resp.StatusCode}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open partial file %s: %w", part, err)
	}

	meta.ETag = resp.Header.Get("ETag")
	meta.ExpectedSize = total
	if err := writePartMeta(metaPath, meta); err != nil {
		out.Close()
		return nil, err
	}

	n, copyErr := io.Copy(out, resp.Body)
	if err := out.Close(); err != nil && copyErr == nil {
		copyErr = err
	}
	if copyErr != nil {
		// The partial file stays for the next attempt.
		return nil, fmt.Errorf("failed to copy downloaded content after %d bytes: %w", offset+n, copyErr)
	}
	if total >= 0 && offset+n != total {
		return nil, fmt.Errorf("%w: got %d of %d bytes", ErrIncompleteDownload, offset+n, total)
	}

	res, err := d.finalize(req, src, part, metaPath, resp.Header.Get("Content-MD5"), meta.ETag, resumed)
	if err != nil {
		return nil, err
	}
	if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		res.LastModified = &lm
	}
	return res, nil
}

// finalize verifies the partial file and moves it to its final path.
func (d *Downloader) finalize(req FetchRequest, src Source, part, metaPath, contentMD5, etag string, resumed bool) (*FetchedFile, error) {
	if contentMD5 != "" {
		want, err := base64.StdEncoding.DecodeString(contentMD5)
		if err == nil {
			got, err := fileMD5(part)
			if err != nil {
				return nil, err
			}
			if string(got) != string(want) {
				removePartial(part)
				return nil, ErrChecksumMismatch
			}
		}
	}

	if err := os.Rename(part, req.DestPath); err != nil {
		return nil, fmt.Errorf("failed to move %s into place: %w", part, err)
	}
	os.Remove(metaPath)

	info, err := os.Stat(req.DestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", req.DestPath, err)
	}
	sum, err := fileSHA256(req.DestPath)
	if err != nil {
		return nil, err
	}
	return &FetchedFile{
		Path:    req.DestPath,
		Size:    info.Size(),
		SHA256:  sum,
		URL:     src.URL,
		ETag:    etag,
		Resumed: resumed,
	}, nil
}

// isRetryable reports whether another attempt against the same source can help.
func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return isRetryableStatus(se.Code)
	}
	// Network errors, attempt timeouts, short bodies and checksum mismatches.
	return true
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusRequestedRangeNotSatisfiable:
		return true
	}
	return statusCode >= 500
}

// parseContentRange reads "bytes 100-199/200". An unknown total ("*") yields -1.
func parseContentRange(v string) (start, total int64, ok bool) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "bytes ")
	rangePart, totalPart, found := strings.Cut(v, "/")
	if !found {
		return 0, 0, false
	}
	startPart, _, found := strings.Cut(rangePart, "-")
	if !found {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(startPart, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if totalPart == "*" {
		return start, -1, true
	}
	total, err = strconv.ParseInt(totalPart, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return start, total, true
}

func readPartMeta(path string) partMeta {
	var m partMeta
	data, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return partMeta{}
	}
	return m
}

func writePartMeta(path string, m partMeta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode partial download state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write partial download state: %w", err)
	}
	return nil
}

func removePartial(part string) {
	os.Remove(part)
	os.Remove(part + ".json")
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func fileMD5(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return h.Sum(nil), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
