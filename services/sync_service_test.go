package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gewnthar/samsync/config"
	"github.com/gewnthar/samsync/database"
	"github.com/gewnthar/samsync/geo"
	"github.com/gewnthar/samsync/models"
	"github.com/gewnthar/samsync/scraper"
)

const exportHeader = "NoticeId,Title,PostedDate,LastModifiedDate,PopCountry,Description\n"

// fakeFetcher serves export contents from memory, writing them to the requested path.
type fakeFetcher struct {
	exports map[string]string // key -> CSV content
	failing map[string]error
	remote  func(ctx context.Context, sources []scraper.Source) (*scraper.RemoteExport, error)

	mu       sync.Mutex
	requests []scraper.FetchRequest
}

func (f *fakeFetcher) Fetch(_ context.Context, req scraper.FetchRequest) (*scraper.FetchedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if err := f.failing[req.Key]; err != nil {
		return nil, err
	}
	content, ok := f.exports[req.Key]
	if !ok {
		return nil, scraper.ErrFetchFailed
	}
	if err := os.MkdirAll(filepath.Dir(req.DestPath), 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(req.DestPath, []byte(content), 0644); err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(content))
	return &scraper.FetchedFile{
		Path:       req.DestPath,
		Size:       int64(len(content)),
		SHA256:     hex.EncodeToString(sum[:]),
		SourceName: "primary",
		URL:        "https://example.test/" + req.Key,
		Reused:     req.Reuse,
	}, nil
}

func (f *fakeFetcher) Stat(ctx context.Context, sources []scraper.Source) (*scraper.RemoteExport, error) {
	if f.remote == nil {
		return nil, errors.New("stat not supported")
	}
	return f.remote(ctx, sources)
}

// failingStore wraps the real store and fails the nth chunk commit.
type failingStore struct {
	*database.Store
	failOnCommit int
	commits      int
}

func (s *failingStore) CommitChunk(ctx context.Context, w database.ChunkWrite) error {
	s.commits++
	if s.commits == s.failOnCommit {
		return database.ErrCommitFailed
	}
	return s.Store.CommitChunk(ctx, w)
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) // fiscal year 2024

func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: "sqlite3", Path: filepath.Join(t.TempDir(), "samsync.db")}
	store, err := database.Open(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store
}

func newTestService(t *testing.T, store SyncStore, fetcher scraper.Fetcher) *SyncService {
	t.Helper()
	cfg := config.Default()
	cfg.Fetch.DataDir = t.TempDir()
	cfg.Fetch.Sources = []config.SourceConfig{{Name: "primary", CurrentURL: "https://example.test/current.csv", ArchiveURL: "https://example.test/FY{year}.csv"}}
	cfg.Ingest.ChunkSize = 2
	cfg.Sync.BootstrapYears = 2

	svc := NewSyncService(cfg, store, fetcher, geo.NewResolver(discardLogger()), discardLogger())
	svc.now = func() time.Time { return testNow }
	return svc
}

func export(rows ...string) string {
	return exportHeader + strings.Join(rows, "\n") + "\n"
}

func countRows(t *testing.T, store *database.Store, q models.ScopeQuery) int64 {
	t.Helper()
	n, err := store.CountByScope(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func scopeByID(t *testing.T, report *RunReport, id string) ScopeResult {
	t.Helper()
	for _, s := range report.Scopes {
		if s.ScopeID == id {
			return s
		}
	}
	t.Fatalf("scope %s missing from report %+v", id, report.Scopes)
	return ScopeResult{}
}

func TestFiscalYear(t *testing.T) {
	tests := []struct {
		t    time.Time
		want int
	}{
		{time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC), 2024},
		{time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 2024},
	}
	for _, tt := range tests {
		if got := FiscalYear(tt.t); got != tt.want {
			t.Errorf("FiscalYear(%s) = %d, want %d", tt.t.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestRunBootstrap_LoadsEveryYear(t *testing.T) {
	store := newTestStore(t)
	fetcher := &fakeFetcher{exports: map[string]string{
		"FY2023":  export("A1,Old,2023-03-01,,Kenya,x", "A2,Old,2023-03-02,,France,x", "A3,Old,2023-03-03,,Peru,x"),
		"CURRENT": export("B1,New,2024-03-01,,Japan,<p>hi</p>", "B2,New,2024-03-02,,Atlantis,x"),
	}}
	svc := newTestService(t, store, fetcher)

	report, err := svc.RunBootstrap(context.Background(), BootstrapRequest{})
	if err != nil {
		t.Fatalf("RunBootstrap failed: %v", err)
	}
	if report.Failed() {
		t.Fatalf("unexpected failure: %+v", report.Scopes)
	}
	if len(report.Scopes) != 2 {
		t.Fatalf("expected 2 scopes (FY2023, FY2024), got %d", len(report.Scopes))
	}

	old := scopeByID(t, report, "GLOBAL_FY2023")
	if old.Phase != models.PhaseComplete || old.Counts.Inserted != 3 || old.Chunks != 2 || old.ExportKey != "FY2023" {
		t.Errorf("FY2023 = %+v", old)
	}
	cur := scopeByID(t, report, "GLOBAL_FY2024")
	if cur.ExportKey != "CURRENT" || cur.Counts.Inserted != 2 || cur.Counts.Unresolved != 1 {
		t.Errorf("FY2024 = %+v", cur)
	}
	if n := countRows(t, store, models.ScopeQuery{}); n != 5 {
		t.Errorf("expected 5 stored rows, got %d", n)
	}
	if n := countRows(t, store, models.ScopeQuery{Region: models.Unclassified}); n != 1 {
		t.Errorf("unresolved row should be stored as UNCLASSIFIED, got %d", n)
	}

	cp, found, err := store.GetCheckpoint(context.Background(), "GLOBAL_FY2023")
	if err != nil || !found {
		t.Fatalf("checkpoint missing: %v", err)
	}
	if cp.Status != models.PhaseComplete || cp.RowOffset != 3 || cp.LastFullMergeAt == nil || cp.LastRunID != report.RunID {
		t.Errorf("checkpoint = %+v", cp)
	}
	if v, err := store.GetExportVersion(context.Background(), "FY2023"); err != nil || v.SHA256 == "" {
		t.Errorf("export version not recorded: %+v, %v", v, err)
	}
}

func TestRunBootstrap_Idempotent(t *testing.T) {
	store := newTestStore(t)
	rows := []string{"N1,One,2024-01-01,,Kenya,x", "N2,Two,2024-01-02,,Ghana,x", "N3,Three,2024-01-03,,Chile,x"}
	fetcher := &fakeFetcher{exports: map[string]string{"CURRENT": export(rows...)}}
	svc := newTestService(t, store, fetcher)
	req := BootstrapRequest{StartYear: 2024, EndYear: 2024}

	if _, err := svc.RunBootstrap(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	// Same rows, different bytes: the scope is re-merged, not skipped.
	fetcher.exports["CURRENT"] = export(rows...) + "\n"
	report, err := svc.RunBootstrap(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	got := scopeByID(t, report, "GLOBAL_FY2024")
	if got.AlreadyComplete {
		t.Fatal("changed export must not be skipped")
	}
	if got.Counts.Inserted != 0 || got.Counts.Updated != 0 || got.Counts.Unchanged != 3 {
		t.Errorf("second run counts = %+v", got.Counts)
	}

	// Identical file: the completed scope is skipped outright.
	report, err = svc.RunBootstrap(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if got := scopeByID(t, report, "GLOBAL_FY2024"); !got.AlreadyComplete || got.Phase != models.PhaseComplete {
		t.Errorf("third run = %+v", got)
	}
	if n := countRows(t, store, models.ScopeQuery{}); n != 3 {
		t.Errorf("expected 3 rows, got %d", n)
	}
}

func TestRunIncremental_NewerVersionWins(t *testing.T) {
	store := newTestStore(t)
	fetcher := &fakeFetcher{exports: map[string]string{
		"CURRENT": export("N1,First,2024-01-01,2024-01-01,Kenya,x"),
	}}
	svc := newTestService(t, store, fetcher)

	if _, err := svc.RunBootstrap(context.Background(), BootstrapRequest{StartYear: 2024, EndYear: 2024}); err != nil {
		t.Fatal(err)
	}

	fetcher.exports["CURRENT"] = export("N1,Amended,2024-01-01,2024-02-01,Kenya,x")
	report, err := svc.RunIncremental(context.Background(), IncrementalRequest{LookbackDays: 365})
	if err != nil {
		t.Fatal(err)
	}
	if got := scopeByID(t, report, "GLOBAL_INCREMENTAL"); got.Counts.Updated != 1 {
		t.Errorf("incremental = %+v", got)
	}

	opps, err := store.QueryByScope(context.Background(), models.ScopeQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(opps) != 1 || opps[0].NoticeID != "N1" || !opps[0].LastModified.Equal(utc("2024-02-01")) || opps[0].Title != "Amended" {
		t.Errorf("store = %+v", opps)
	}
}

func TestRunBootstrap_ResumesAfterCommitFailure(t *testing.T) {
	store := newTestStore(t)
	content := export(
		"N1,a,2024-01-01,,Kenya,x", "N2,b,2024-01-01,,Kenya,x",
		"N3,c,2024-01-01,,Kenya,x", "N4,d,2024-01-01,,Kenya,x",
		"N5,e,2024-01-01,,Kenya,x", "N6,f,2024-01-01,,Kenya,x",
	)
	fetcher := &fakeFetcher{exports: map[string]string{"CURRENT": content}}
	req := BootstrapRequest{StartYear: 2024, EndYear: 2024}

	broken := &failingStore{Store: store, failOnCommit: 2}
	report, err := newTestService(t, broken, fetcher).RunBootstrap(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Failed() {
		t.Fatal("expected the run to report a failed scope")
	}
	failed := scopeByID(t, report, "GLOBAL_FY2024")
	if failed.FailureKind != FailureCommit || !errors.Is(failed.Err, database.ErrCommitFailed) || failed.Chunks != 1 {
		t.Errorf("failed scope = %+v", failed)
	}
	cp, _, _ := store.GetCheckpoint(context.Background(), "GLOBAL_FY2024")
	if cp.Status != models.PhaseFailed || cp.RowOffset != 2 || cp.ChunksCommitted != 1 || cp.LastError == "" {
		t.Errorf("checkpoint after failure = %+v", cp)
	}
	if n := countRows(t, store, models.ScopeQuery{}); n != 2 {
		t.Errorf("only the first chunk should be stored, got %d rows", n)
	}

	report, err = newTestService(t, store, fetcher).RunBootstrap(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	resumed := scopeByID(t, report, "GLOBAL_FY2024")
	if !resumed.Resumed || resumed.Phase != models.PhaseComplete {
		t.Fatalf("resumed scope = %+v", resumed)
	}
	if resumed.Counts.Inserted != 4 || resumed.Counts.Unchanged != 0 || resumed.Chunks != 2 {
		t.Errorf("resume should only process chunks 2 and 3: %+v", resumed.Counts)
	}
	if n := countRows(t, store, models.ScopeQuery{}); n != 6 {
		t.Errorf("expected 6 rows after resume, got %d", n)
	}
}

func TestRunBootstrap_ScopeFailureIsIsolated(t *testing.T) {
	store := newTestStore(t)
	fetcher := &fakeFetcher{
		exports: map[string]string{"CURRENT": export("N1,a,2024-01-01,,Kenya,x")},
		failing: map[string]error{"FY2023": scraper.ErrFetchFailed},
	}
	report, err := newTestService(t, store, fetcher).RunBootstrap(context.Background(), BootstrapRequest{StartYear: 2023, EndYear: 2024})
	if err != nil {
		t.Fatal(err)
	}
	if !report.Failed() {
		t.Error("Failed() should be true")
	}
	if got := scopeByID(t, report, "GLOBAL_FY2023"); got.Phase != models.PhaseFailed || got.FailureKind != FailureFetch {
		t.Errorf("FY2023 = %+v", got)
	}
	if got := scopeByID(t, report, "GLOBAL_FY2024"); got.Phase != models.PhaseComplete || got.Counts.Inserted != 1 {
		t.Errorf("FY2024 = %+v", got)
	}
}

func TestRunBootstrap_SchemaMismatchFailsScope(t *testing.T) {
	store := newTestStore(t)
	fetcher := &fakeFetcher{exports: map[string]string{"CURRENT": "Id,Title\n1,x\n"}}
	report, err := newTestService(t, store, fetcher).RunBootstrap(context.Background(), BootstrapRequest{StartYear: 2024, EndYear: 2024})
	if err != nil {
		t.Fatal(err)
	}
	got := scopeByID(t, report, "GLOBAL_FY2024")
	if got.FailureKind != FailureSchema || !errors.Is(got.Err, scraper.ErrSchemaMismatch) {
		t.Errorf("scope = %+v", got)
	}
}

func TestRunBootstrap_RegionScope(t *testing.T) {
	store := newTestStore(t)
	fetcher := &fakeFetcher{exports: map[string]string{
		"CURRENT": export("A1,a,2024-01-01,,Kenya,x", "E1,b,2024-01-01,,Germany,x", "U1,c,2024-01-01,,,x", "A2,d,2024-01-01,,Senegal,x"),
	}}
	report, err := newTestService(t, store, fetcher).RunBootstrap(context.Background(), BootstrapRequest{StartYear: 2024, EndYear: 2024, Region: "africa"})
	if err != nil {
		t.Fatal(err)
	}
	got := scopeByID(t, report, "AFRICA_FY2024")
	if got.Counts.Inserted != 2 || got.Counts.Filtered != 2 {
		t.Errorf("AFRICA scope counts = %+v", got.Counts)
	}
	if n := countRows(t, store, models.ScopeQuery{Region: geo.Africa}); n != 2 {
		t.Errorf("expected 2 African rows, got %d", n)
	}

	if _, err := newTestService(t, store, fetcher).RunBootstrap(context.Background(), BootstrapRequest{Region: "ATLANTIS"}); !errors.Is(err, ErrInvalidRegion) {
		t.Errorf("expected ErrInvalidRegion, got %v", err)
	}
	if _, err := newTestService(t, store, fetcher).RunBootstrap(context.Background(), BootstrapRequest{StartYear: 2025, EndYear: 2024}); !errors.Is(err, ErrInvalidYears) {
		t.Errorf("expected ErrInvalidYears, got %v", err)
	}
}

func TestRunBootstrap_Clear(t *testing.T) {
	store := newTestStore(t)
	if err := store.UpsertBatch(context.Background(), []models.Opportunity{{
		NoticeID: "STALE", PostedDate: utc("2020-01-01"), LastModified: utc("2020-01-01"),
		ResolvedCountryCode: "KEN", Region: geo.Africa, SubRegion: "Eastern Africa",
	}}); err != nil {
		t.Fatal(err)
	}
	fetcher := &fakeFetcher{exports: map[string]string{"CURRENT": export("N1,a,2024-01-01,,Kenya,x")}}
	if _, err := newTestService(t, store, fetcher).RunBootstrap(context.Background(), BootstrapRequest{StartYear: 2024, EndYear: 2024, Clear: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetOpportunity(context.Background(), "STALE"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("clear should remove existing rows, got %v", err)
	}
	if n := countRows(t, store, models.ScopeQuery{}); n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}
}

func TestIncrementalWindow(t *testing.T) {
	merged := time.Date(2024, 4, 20, 6, 0, 0, 0, time.UTC)
	stale := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		cp   models.SyncCheckpoint
		days int
		want time.Time
	}{
		{"from last full merge", models.SyncCheckpoint{LastFullMergeAt: &merged}, 5, time.Date(2024, 4, 15, 6, 0, 0, 0, time.UTC)},
		{"missed updates widen the window", models.SyncCheckpoint{LastFullMergeAt: &stale}, 14, time.Date(2024, 2, 16, 6, 0, 0, 0, time.UTC)},
		{"no checkpoint uses now", models.SyncCheckpoint{}, 14, time.Date(2024, 4, 17, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IncrementalWindow(tt.cp, testNow, tt.days); !got.Equal(tt.want) {
				t.Errorf("IncrementalWindow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunIncremental_KeepsOnlyWindow(t *testing.T) {
	store := newTestStore(t)
	merged := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)
	if err := store.SetCheckpoint(context.Background(), models.SyncCheckpoint{
		ScopeID: "GLOBAL_INCREMENTAL", Status: models.PhaseComplete, LastFullMergeAt: &merged,
	}); err != nil {
		t.Fatal(err)
	}
	fetcher := &fakeFetcher{exports: map[string]string{"CURRENT": export(
		"OLD,a,2024-04-01,2024-04-10,Kenya,x",
		"NEW,b,2024-04-01,2024-04-16,Kenya,x",
	)}}
	svc := newTestService(t, store, fetcher)

	report, err := svc.RunIncremental(context.Background(), IncrementalRequest{LookbackDays: 5})
	if err != nil {
		t.Fatal(err)
	}
	got := scopeByID(t, report, "GLOBAL_INCREMENTAL")
	if got.Counts.Inserted != 1 || got.Counts.Filtered != 1 {
		t.Errorf("counts = %+v", got.Counts)
	}
	if _, err := store.GetOpportunity(context.Background(), "OLD"); !errors.Is(err, database.ErrNotFound) {
		t.Error("row outside the lookback window must not be stored")
	}

	cp, _, _ := store.GetCheckpoint(context.Background(), "GLOBAL_INCREMENTAL")
	if cp.LastFullMergeAt == nil || !cp.LastFullMergeAt.Equal(testNow) {
		t.Errorf("LastFullMergeAt = %v, want %v", cp.LastFullMergeAt, testNow)
	}
}

func TestRunIncremental_ReusesUnchangedExport(t *testing.T) {
	store := newTestStore(t)
	content := export("N1,a,2024-04-01,2024-04-30,Kenya,x")
	fetcher := &fakeFetcher{exports: map[string]string{"CURRENT": content}}
	svc := newTestService(t, store, fetcher)

	if _, err := svc.RunIncremental(context.Background(), IncrementalRequest{}); err != nil {
		t.Fatal(err)
	}
	prev, err := store.GetExportVersion(context.Background(), "CURRENT")
	if err != nil {
		t.Fatal(err)
	}

	fetcher.remote = func(context.Context, []scraper.Source) (*scraper.RemoteExport, error) {
		return &scraper.RemoteExport{SourceName: "primary", ETag: `"same"`, Size: prev.SizeBytes}, nil
	}
	prev.ETag = `"same"`
	if err := store.LogExportVersion(context.Background(), *prev); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.RunIncremental(context.Background(), IncrementalRequest{}); err != nil {
		t.Fatal(err)
	}
	last := fetcher.requests[len(fetcher.requests)-1]
	if !last.Reuse {
		t.Error("unchanged export should be reused instead of downloaded")
	}
}

func TestRun_RejectsConcurrentRuns(t *testing.T) {
	svc := newTestService(t, newTestStore(t), &fakeFetcher{})
	svc.running.Lock()
	defer svc.running.Unlock()

	if _, err := svc.RunIncremental(context.Background(), IncrementalRequest{}); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("expected ErrRunInProgress, got %v", err)
	}
}
