// services/sync_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gewnthar/samsync/config"
	"github.com/gewnthar/samsync/database"
	"github.com/gewnthar/samsync/geo"
	"github.com/gewnthar/samsync/logging"
	"github.com/gewnthar/samsync/models"
	"github.com/gewnthar/samsync/scraper"
)

var (
	// ErrRunInProgress is returned when a run is requested while another one holds the store.
	ErrRunInProgress = errors.New("a sync run is already in progress")
	ErrInvalidYears  = errors.New("start year must not be after end year")
	ErrInvalidRegion = errors.New("unknown region")
)

// currentKey names the rolling export that carries the current and next fiscal year.
const currentKey = "CURRENT"

// SyncStore is the part of the record store a sync run needs.
type SyncStore interface {
	ExistingLookup
	ChunkCommitter
	GetCheckpoint(ctx context.Context, scopeID string) (models.SyncCheckpoint, bool, error)
	SetCheckpoint(ctx context.Context, cp models.SyncCheckpoint) error
	ResetAll(ctx context.Context) error
	LogExportVersion(ctx context.Context, v models.ExportVersion) error
	GetExportVersion(ctx context.Context, sourceKey string) (*models.ExportVersion, error)
}

// FailureKind says which stage ended a scope.
type FailureKind string

const (
	FailureFetch    FailureKind = "fetch"
	FailureSchema   FailureKind = "schema"
	FailureIngest   FailureKind = "ingest"
	FailureStore    FailureKind = "store"
	FailureCommit   FailureKind = "commit"
	FailureCanceled FailureKind = "canceled"
)

// ScopeResult is the outcome of one scope within a run.
type ScopeResult struct {
	ScopeID         string       `json:"scope_id"`
	Phase           models.Phase `json:"phase"`
	Counts          MergeResult  `json:"counts"`
	Chunks          int          `json:"chunks"`
	Resumed         bool         `json:"resumed"`
	AlreadyComplete bool         `json:"already_complete"`
	ExportKey       string       `json:"export_key"`
	Err             error        `json:"-"`
	Error           string       `json:"error,omitempty"`
	FailureKind     FailureKind  `json:"failure_kind,omitempty"`
}

// RunReport lists every scope of a run.
type RunReport struct {
	RunID      string           `json:"run_id"`
	Mode       models.ScopeKind `json:"mode"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Scopes     []ScopeResult    `json:"scopes"`
}

// Failed reports whether any scope ended in FAILED.
func (r *RunReport) Failed() bool {
	for _, s := range r.Scopes {
		if s.Phase == models.PhaseFailed {
			return true
		}
	}
	return false
}

// Totals sums the counts of every scope.
func (r *RunReport) Totals() MergeResult {
	var total MergeResult
	for _, s := range r.Scopes {
		total.Add(s.Counts)
	}
	return total
}

// BootstrapRequest selects the fiscal years and portfolio of a full load.
// Zero years mean the last bootstrap_years fiscal years up to the current one.
type BootstrapRequest struct {
	StartYear int
	EndYear   int
	Region    string
	Clear     bool
}

// IncrementalRequest selects the portfolio and lookback of an update run.
// LookbackDays <= 0 uses the configured default.
type IncrementalRequest struct {
	Region       string
	LookbackDays int
}

// SyncService runs bootstrap and incremental syncs. One run at a time.
type SyncService struct {
	cfg     *config.Config
	store   SyncStore
	fetcher scraper.Fetcher
	merger  *Merger
	logger  *slog.Logger
	now     func() time.Time

	running sync.Mutex
}

// NewSyncService wires the pipeline together.
func NewSyncService(cfg *config.Config, store SyncStore, fetcher scraper.Fetcher, resolver *geo.Resolver, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		cfg:     cfg,
		store:   store,
		fetcher: fetcher,
		merger:  NewMerger(resolver, logger),
		logger:  logger,
		now:     time.Now,
	}
}

// FiscalYear returns the U.S. federal fiscal year of t. It starts on October 1.
func FiscalYear(t time.Time) int {
	if t.Month() >= time.October {
		return t.Year() + 1
	}
	return t.Year()
}

// normalizeRegion maps "" and "GLOBAL" to GlobalRegion and checks the rest against the portfolio list.
func normalizeRegion(region string) (string, error) {
	if region == "" || region == models.GlobalRegion {
		return models.GlobalRegion, nil
	}
	canonical, ok := geo.NormalizeRegion(region)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRegion, region)
	}
	return canonical, nil
}

// exportJob is one distinct export file a run needs.
type exportJob struct {
	key     string
	request scraper.FetchRequest
	remote  *scraper.RemoteExport

	file *scraper.FetchedFile
	err  error
}

func (s *SyncService) sources(key string, fiscalYear int) []scraper.Source {
	var out []scraper.Source
	for _, src := range s.cfg.Fetch.Sources {
		url := src.CurrentURL
		if key != currentKey {
			url = src.ArchiveFor(fiscalYear)
		}
		if url == "" {
			continue
		}
		out = append(out, scraper.Source{Name: src.Name, URL: url})
	}
	return out
}

// exportKeyFor maps a fiscal year to the file carrying it. The rolling export covers the current and next year.
func (s *SyncService) exportKeyFor(fiscalYear int) string {
	if fiscalYear >= FiscalYear(s.now()) {
		return currentKey
	}
	return fmt.Sprintf("FY%d", fiscalYear)
}

// RunBootstrap loads whole fiscal-year exports. A failing scope does not stop the others.
func (s *SyncService) RunBootstrap(ctx context.Context, req BootstrapRequest) (*RunReport, error) {
	if req.EndYear == 0 {
		req.EndYear = FiscalYear(s.now())
	}
	if req.StartYear == 0 {
		req.StartYear = req.EndYear - (s.cfg.Sync.BootstrapYears - 1)
	}
	if req.StartYear > req.EndYear {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidYears, req.StartYear, req.EndYear)
	}
	region, err := normalizeRegion(req.Region)
	if err != nil {
		return nil, err
	}

	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	report := s.newReport(models.ScopeBootstrap)
	ctx = logging.WithRun(logging.NewContext(ctx, s.logger), report.RunID)
	logger := logging.WithFields(ctx, "component", "orchestrator")
	logger.Info("bootstrap started", "start_year", req.StartYear, "end_year", req.EndYear, "region", region, "clear", req.Clear)

	if req.Clear {
		if err := s.store.ResetAll(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	// One scope per distinct export file; the current export serves more than one fiscal year.
	var scopes []models.Scope
	jobs := map[string]*exportJob{}
	var order []string
	for year := req.StartYear; year <= req.EndYear; year++ {
		key := s.exportKeyFor(year)
		if _, ok := jobs[key]; ok {
			continue
		}
		reuse := key != currentKey && s.cfg.Fetch.ReuseArchives
		jobs[key] = &exportJob{key: key, request: scraper.FetchRequest{
			Key:      key,
			DestPath: s.cfg.ExportPath(key),
			Sources:  s.sources(key, year),
			Reuse:    reuse,
		}}
		order = append(order, key)
		scopes = append(scopes, models.Scope{Kind: models.ScopeBootstrap, Region: region, FiscalYear: year})
	}

	s.prefetch(ctx, jobs, order)

	for i, scope := range scopes {
		job := jobs[order[i]]
		result := s.runScope(ctx, report.RunID, scope, job)
		report.Scopes = append(report.Scopes, result)
		if result.FailureKind == FailureCanceled {
			break
		}
	}

	s.finish(logger, report)
	return report, nil
}

// RunIncremental merges recent changes from the current export. The window starts lookback days before
// the last full merge of the scope, or lookback days before now when the scope never completed.
// The window is therefore never shorter than lookback days before now, and is longer when updates were missed.
func (s *SyncService) RunIncremental(ctx context.Context, req IncrementalRequest) (*RunReport, error) {
	region, err := normalizeRegion(req.Region)
	if err != nil {
		return nil, err
	}
	lookback := req.LookbackDays
	if lookback <= 0 {
		lookback = s.cfg.Sync.DefaultLookbackDays
	}

	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	report := s.newReport(models.ScopeIncremental)
	ctx = logging.WithRun(logging.NewContext(ctx, s.logger), report.RunID)
	logger := logging.WithFields(ctx, "component", "orchestrator")

	scope := models.Scope{Kind: models.ScopeIncremental, Region: region}
	cp, _, err := s.store.GetCheckpoint(ctx, scope.ID())
	if err != nil {
		return nil, err
	}
	scope.Since = IncrementalWindow(cp, s.now(), lookback)
	logger.Info("incremental update started", "region", region, "lookback_days", lookback, "since", scope.Since.Format(time.RFC3339))

	job := &exportJob{key: currentKey, request: scraper.FetchRequest{
		Key:      currentKey,
		DestPath: s.cfg.ExportPath(currentKey),
		Sources:  s.sources(currentKey, 0),
	}}
	s.checkUnchanged(ctx, job)
	s.prefetch(ctx, map[string]*exportJob{currentKey: job}, []string{currentKey})

	report.Scopes = append(report.Scopes, s.runScope(ctx, report.RunID, scope, job))
	s.finish(logger, report)
	return report, nil
}

// IncrementalWindow returns the earliest last_modified an incremental run keeps. It counts back from the
// scope's last full merge, not from now.
func IncrementalWindow(cp models.SyncCheckpoint, now time.Time, lookbackDays int) time.Time {
	base := now
	if cp.LastFullMergeAt != nil {
		base = *cp.LastFullMergeAt
	}
	return base.AddDate(0, 0, -lookbackDays).UTC().Truncate(time.Second)
}

// checkUnchanged marks the current export for reuse when the server still serves the file we hold.
func (s *SyncService) checkUnchanged(ctx context.Context, job *exportJob) {
	prev, err := s.store.GetExportVersion(ctx, job.key)
	if err != nil {
		return
	}
	if _, err := os.Stat(job.request.DestPath); err != nil {
		return
	}
	remote, err := s.fetcher.Stat(ctx, job.request.Sources)
	if err != nil {
		logging.FromContext(ctx).Debug("export HEAD failed, downloading", "key", job.key, "error", err)
		return
	}
	job.remote = remote
	if remote.Unchanged(prev) {
		logging.FromContext(ctx).Info("export unchanged since last download", "key", job.key, "sha256", prev.SHA256)
		job.request.Reuse = true
	}
}

// prefetch downloads every export, at most fetch.concurrency at a time. Failures stay on the job so
// that only the scopes reading that file fail.
func (s *SyncService) prefetch(ctx context.Context, jobs map[string]*exportJob, order []string) {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.Fetch.Concurrency, 1))

	for _, key := range order {
		job := jobs[key]
		g.Go(func() error {
			job.file, job.err = s.fetcher.Fetch(gCtx, job.request)
			if job.err == nil && !job.file.Reused {
				s.logExport(gCtx, job)
			}
			return nil
		})
	}
	g.Wait()
}

func (s *SyncService) logExport(ctx context.Context, job *exportJob) {
	f := job.file
	v := models.ExportVersion{
		SourceKey:      job.key,
		SourceName:     f.SourceName,
		SourceURL:      f.URL,
		LocalFile:      f.Path,
		SizeBytes:      f.Size,
		SHA256:         f.SHA256,
		ETag:           f.ETag,
		RemoteModified: f.LastModified,
		Resumed:        f.Resumed,
		DownloadedAt:   s.now().UTC(),
	}
	if v.RemoteModified == nil && job.remote != nil {
		v.RemoteModified = job.remote.LastModified
	}
	if err := s.store.LogExportVersion(ctx, v); err != nil {
		logging.FromContext(ctx).Warn("failed to record export version", "key", job.key, "error", err)
	}
}

// runScope drives one scope through FETCHING, INGESTING and MERGING, committing chunk by chunk.
func (s *SyncService) runScope(ctx context.Context, runID string, scope models.Scope, job *exportJob) ScopeResult {
	result := ScopeResult{ScopeID: scope.ID(), Phase: models.PhasePending, ExportKey: job.key}
	logger := logging.WithFields(ctx, "component", "orchestrator", "scope_id", scope.ID())

	cp, _, err := s.store.GetCheckpoint(ctx, scope.ID())
	if err != nil {
		return s.fail(ctx, logger, result, cp, FailureStore, err)
	}
	cp.ScopeID = scope.ID()
	cp.LastRunID = runID

	result.Phase = models.PhaseFetching
	if job.err != nil {
		kind := FailureFetch
		if ctx.Err() != nil {
			kind = FailureCanceled
		}
		return s.fail(ctx, logger, result, cp, kind, job.err)
	}
	fingerprint := job.file.SHA256

	// A bootstrap scope that already merged this exact file has nothing left to do.
	if scope.Kind == models.ScopeBootstrap && cp.CompletedFor(fingerprint) {
		logger.Info("scope already complete for this export, skipping", "sha256", fingerprint)
		result.Phase = models.PhaseComplete
		result.AlreadyComplete = true
		return result
	}

	opts := scraper.IngestOptions{
		ChunkSize:      s.cfg.Ingest.ChunkSize,
		Encodings:      s.cfg.Ingest.Encodings,
		MaxRecordBytes: s.cfg.Ingest.MaxRecordBytes,
	}
	if cp.Status != models.PhaseComplete && cp.ResumableFor(fingerprint) {
		opts.StartOffset = cp.ByteOffset
		opts.StartRow = cp.RowOffset
		result.Resumed = true
		logger.Info("resuming scope", "row_offset", cp.RowOffset, "chunks_committed", cp.ChunksCommitted)
	} else {
		if cp.SourceFingerprint != "" && cp.SourceFingerprint != fingerprint && cp.ByteOffset > 0 {
			logger.Info("export changed since last run, restarting scope", "old_sha256", cp.SourceFingerprint, "sha256", fingerprint)
		}
		cp = cp.Restart(fingerprint)
	}

	result.Phase = models.PhaseIngesting
	reader, err := scraper.OpenChunkReader(job.file.Path, opts)
	if err != nil {
		kind := FailureIngest
		if errors.Is(err, scraper.ErrSchemaMismatch) {
			kind = FailureSchema
		}
		return s.fail(ctx, logger, result, cp, kind, err)
	}
	defer reader.Close()
	if !reader.HasColumn("LastModifiedDate") {
		logger.Debug("export has no LastModifiedDate column, using PostedDate")
	}

	cp.Status = models.PhaseIngesting
	if err := s.store.SetCheckpoint(ctx, cp); err != nil {
		return s.fail(ctx, logger, result, cp, FailureStore, err)
	}

	for {
		result.Phase = models.PhaseIngesting
		chunk, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			kind := FailureIngest
			if ctx.Err() != nil {
				kind = FailureCanceled
			}
			return s.fail(ctx, logger, result, cp, kind, err)
		}

		result.Phase = models.PhaseMerging
		staged, err := s.merger.Merge(ctx, chunk, scope, s.store)
		if err != nil {
			return s.fail(ctx, logger, result, cp, FailureStore, err)
		}

		next := cp
		next.Status = models.PhaseCommitted
		next.RowOffset = chunk.EndRow
		next.ByteOffset = chunk.EndOffset
		next.ChunksCommitted++
		next.Inserted += staged.Result.Inserted
		next.Updated += staged.Result.Updated
		next.LastError = ""
		if err := s.store.CommitChunk(ctx, database.ChunkWrite{Inserts: staged.Inserts, Updates: staged.Updates, Checkpoint: next}); err != nil {
			return s.fail(ctx, logger, result, cp, FailureCommit, err)
		}

		cp = next
		result.Phase = models.PhaseCommitted
		result.Chunks++
		result.Counts.Add(staged.Result)
	}

	merged := s.now().UTC()
	cp.Status = models.PhaseComplete
	cp.LastFullMergeAt = &merged
	if err := s.store.SetCheckpoint(ctx, cp); err != nil {
		return s.fail(ctx, logger, result, cp, FailureStore, err)
	}
	result.Phase = models.PhaseComplete

	logger.Info("scope complete",
		"chunks", result.Chunks,
		"inserted", result.Counts.Inserted,
		"updated", result.Counts.Updated,
		"unchanged", result.Counts.Unchanged,
		"skipped", result.Counts.Skipped,
		"unresolved", result.Counts.Unresolved)
	return result
}

// fail marks the scope FAILED. cp still holds the last committed offsets, so a retry resumes from there.
func (s *SyncService) fail(ctx context.Context, logger *slog.Logger, result ScopeResult, cp models.SyncCheckpoint, kind FailureKind, err error) ScopeResult {
	logger.Error("scope failed", "phase", result.Phase, "failure", kind, "error", err)
	result.Phase = models.PhaseFailed
	result.FailureKind = kind
	result.Err = err
	result.Error = err.Error()

	if cp.ScopeID == "" {
		return result
	}
	cp.Status = models.PhaseFailed
	cp.LastError = err.Error()
	// The run context may be the reason we failed; the failure itself must still be recorded.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if saveErr := s.store.SetCheckpoint(saveCtx, cp); saveErr != nil {
		logger.Error("failed to record scope failure", "error", saveErr)
	}
	return result
}

func (s *SyncService) newReport(mode models.ScopeKind) *RunReport {
	return &RunReport{RunID: uuid.NewString(), Mode: mode, StartedAt: s.now().UTC()}
}

func (s *SyncService) finish(logger *slog.Logger, report *RunReport) {
	report.FinishedAt = s.now().UTC()
	totals := report.Totals()
	logger.Info("sync run finished",
		"mode", report.Mode,
		"scopes", len(report.Scopes),
		"failed", report.Failed(),
		"inserted", totals.Inserted,
		"updated", totals.Updated,
		"unresolved", totals.Unresolved,
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
}
