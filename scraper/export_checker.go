// scraper/export_checker.go
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gewnthar/samsync/models"
)

// RemoteExport is what the server says about an export without transferring it.
type RemoteExport struct {
	SourceName   string
	URL          string
	ETag         string
	Size         int64 // -1 when the server does not say
	LastModified *time.Time
}

// Unchanged reports whether the remote export is the one recorded in prev.
// Only a strong ETag match counts. Without one, size plus Last-Modified must both match.
func (p *RemoteExport) Unchanged(prev *models.ExportVersion) bool {
	if prev == nil || prev.SHA256 == "" {
		return false
	}
	if p.ETag != "" && !strings.HasPrefix(p.ETag, "W/") {
		return p.ETag == prev.ETag
	}
	if p.Size < 0 || p.LastModified == nil || prev.RemoteModified == nil {
		return false
	}
	return p.Size == prev.SizeBytes && p.LastModified.Equal(*prev.RemoteModified)
}

// Stat sends HEAD to each source in order and returns the first answer.
// It does not retry; a failed HEAD just means the caller downloads.
func (d *Downloader) Stat(ctx context.Context, sources []Source) (*RemoteExport, error) {
	var failures []string
	for _, src := range sources {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		remote, err := d.head(ctx, src)
		if err == nil {
			return remote, nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", src.Name, err))
	}
	return nil, fmt.Errorf("failed to stat export: %s", strings.Join(failures, "; "))
}

func (d *Downloader) head(ctx context.Context, src Source) (*RemoteExport, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, src.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	res, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to HEAD %s: %w", src.URL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &statusError{Code: res.StatusCode}
	}

	remote := &RemoteExport{
		SourceName: src.Name,
		URL:        src.URL,
		ETag:       res.Header.Get("ETag"),
		Size:       res.ContentLength,
	}
	if lm := res.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			remote.LastModified = &t
		}
	}
	d.logger.Debug("export stat", "source", src.Name, "etag", remote.ETag, "size", remote.Size)
	return remote, nil
}
