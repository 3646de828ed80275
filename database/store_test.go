package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gewnthar/samsync/config"
	"github.com/gewnthar/samsync/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: "sqlite3", Path: filepath.Join(t.TempDir(), "test.db")}
	s, err := Open(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return s
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func opp(id, modified, region, sub string) models.Opportunity {
	return models.Opportunity{
		NoticeID:            id,
		PostedDate:          date("2024-01-01"),
		LastModified:        date(modified),
		RawCountry:          "Kenya",
		ResolvedCountryCode: "KEN",
		Region:              region,
		SubRegion:           sub,
		Title:               "Notice " + id,
		SourceScope:         "GLOBAL_FY2024",
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestSchemaStatements_MySQLDeclaresIndexesInline(t *testing.T) {
	s := &Store{dialect: MySQL}
	stmts := s.schemaStatements()
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements for mysql, got %d", len(stmts))
	}
	for _, want := range []string{"KEY idx_opportunities_region (region)", "KEY idx_opportunities_region_posted (region, posted_date)", "DATETIME(6)", "ENGINE=InnoDB"} {
		if !strings.Contains(stmts[0], want) {
			t.Errorf("opportunities DDL missing %q", want)
		}
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: Postgres}
	if got := pg.rebind("SELECT a FROM t WHERE b = ? AND c IN (?, ?)"); got != "SELECT a FROM t WHERE b = $1 AND c IN ($2, $3)" {
		t.Errorf("postgres rebind = %q", got)
	}
	lite := &Store{dialect: SQLite}
	if got := lite.rebind("b = ?"); got != "b = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}

func TestUpsertBatch_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	award := date("2024-03-15")
	o := opp("N1", "2024-01-01", "AFRICA", "Eastern Africa")
	o.Active = true
	o.AwardDate = &award
	o.AwardAmount = decimal.NewNullDecimal(decimal.RequireFromString("125000.50"))
	o.Description = "<p>Roof repair</p>"
	o.DescriptionText = "Roof repair"

	if err := s.UpsertBatch(ctx, []models.Opportunity{o}); err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}
	got, err := s.GetOpportunity(ctx, "N1")
	if err != nil {
		t.Fatalf("GetOpportunity failed: %v", err)
	}
	if got.Region != "AFRICA" || got.SubRegion != "Eastern Africa" || !got.Active || got.DescriptionText != "Roof repair" {
		t.Errorf("unexpected row %+v", got)
	}
	if !got.LastModified.Equal(o.LastModified) {
		t.Errorf("LastModified = %v, want %v", got.LastModified, o.LastModified)
	}
	if got.AwardDate == nil || !got.AwardDate.Equal(award) {
		t.Errorf("AwardDate = %v", got.AwardDate)
	}
	if !got.AwardAmount.Valid || !got.AwardAmount.Decimal.Equal(decimal.RequireFromString("125000.50")) {
		t.Errorf("AwardAmount = %v", got.AwardAmount)
	}

	if _, err := s.GetOpportunity(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertBatch_OlderVersionNeverWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertBatch(ctx, []models.Opportunity{opp("N1", "2024-02-01", "AFRICA", "Eastern Africa")}); err != nil {
		t.Fatal(err)
	}
	stale := opp("N1", "2024-01-01", "EUROPE", "Western Europe")
	if err := s.UpsertBatch(ctx, []models.Opportunity{stale}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetOpportunity(ctx, "N1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Region != "AFRICA" || !got.LastModified.Equal(date("2024-02-01")) {
		t.Errorf("stale version overwrote newer row: %+v", got)
	}
}

func TestLookupExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var batch []models.Opportunity
	for i := 0; i < 3; i++ {
		batch = append(batch, opp(fmt.Sprintf("N%d", i+1), fmt.Sprintf("2024-01-0%d", i+1), "AFRICA", "Eastern Africa"))
	}
	if err := s.UpsertBatch(ctx, batch); err != nil {
		t.Fatal(err)
	}

	ids := []string{"N1", "N3", "N9"}
	for i := 0; i < lookupBatchSize; i++ {
		ids = append(ids, fmt.Sprintf("X%d", i))
	}
	got, err := s.LookupExisting(ctx, ids)
	if err != nil {
		t.Fatalf("LookupExisting failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 hits, got %d: %v", len(got), got)
	}
	if v := got["N3"]; !v.LastModified.Equal(date("2024-01-03")) || v.Region != "AFRICA" || v.ResolvedCountryCode != "KEN" {
		t.Errorf("N3 = %+v", v)
	}
}

func TestCommitChunk_WritesRowsAndCheckpointTogether(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cp := models.SyncCheckpoint{ScopeID: "GLOBAL_FY2024", Status: models.PhaseCommitted, SourceFingerprint: "abc", RowOffset: 2, ByteOffset: 120, ChunksCommitted: 1, Inserted: 2}
	err := s.CommitChunk(ctx, ChunkWrite{
		Inserts:    []models.Opportunity{opp("N1", "2024-01-01", "AFRICA", "Eastern Africa"), opp("N2", "2024-01-02", "AFRICA", "Eastern Africa")},
		Checkpoint: cp,
	})
	if err != nil {
		t.Fatalf("CommitChunk failed: %v", err)
	}

	got, found, err := s.GetCheckpoint(ctx, "GLOBAL_FY2024")
	if err != nil || !found {
		t.Fatalf("GetCheckpoint: found=%v err=%v", found, err)
	}
	if got.RowOffset != 2 || got.ByteOffset != 120 || got.Status != models.PhaseCommitted || got.SourceFingerprint != "abc" {
		t.Errorf("checkpoint = %+v", got)
	}
	if n, _ := s.CountByScope(ctx, models.ScopeQuery{}); n != 2 {
		t.Errorf("expected 2 rows, got %d", n)
	}
}

func TestCommitChunk_RollsBackOnFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A checkpoint without a scope id fails after the rows were staged in the transaction.
	err := s.CommitChunk(ctx, ChunkWrite{
		Inserts:    []models.Opportunity{opp("N1", "2024-01-01", "AFRICA", "Eastern Africa")},
		Checkpoint: models.SyncCheckpoint{},
	})
	if !errors.Is(err, ErrCommitFailed) {
		t.Fatalf("expected ErrCommitFailed, got %v", err)
	}
	if n, _ := s.CountByScope(ctx, models.ScopeQuery{}); n != 0 {
		t.Errorf("rolled back chunk left %d rows behind", n)
	}
}

func TestQueryByScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	eu := opp("E1", "2024-03-01", "EUROPE", "Western Europe")
	eu.ResolvedCountryCode = "FRA"
	batch := []models.Opportunity{
		opp("A1", "2024-01-01", "AFRICA", "Eastern Africa"),
		opp("A2", "2024-02-01", "AFRICA", "Eastern Africa"),
		opp("A3", "2024-02-15", "AFRICA", "Western Africa"),
		eu,
	}
	if err := s.UpsertBatch(ctx, batch); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		q    models.ScopeQuery
		want []string
	}{
		{"all newest first", models.ScopeQuery{}, []string{"E1", "A3", "A2", "A1"}},
		{"region", models.ScopeQuery{Region: "AFRICA"}, []string{"A3", "A2", "A1"}},
		{"sub-region", models.ScopeQuery{Region: "AFRICA", SubRegion: "Eastern Africa"}, []string{"A2", "A1"}},
		{"country", models.ScopeQuery{CountryCode: "FRA"}, []string{"E1"}},
		{"modified since", models.ScopeQuery{ModifiedSince: date("2024-02-01")}, []string{"E1", "A3", "A2"}},
		{"paged", models.ScopeQuery{Region: "AFRICA", Limit: 1, Offset: 1}, []string{"A2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opps, err := s.QueryByScope(ctx, tt.q)
			if err != nil {
				t.Fatalf("QueryByScope failed: %v", err)
			}
			var ids []string
			for _, o := range opps {
				ids = append(ids, o.NoticeID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestRegionStatsAndResetAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch := []models.Opportunity{
		opp("A1", "2024-01-01", "AFRICA", "Eastern Africa"),
		opp("A2", "2024-01-02", "AFRICA", "Eastern Africa"),
		opp("U1", "2024-01-03", models.Unclassified, models.Unclassified),
	}
	if err := s.UpsertBatch(ctx, batch); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCheckpoint(ctx, models.SyncCheckpoint{ScopeID: "GLOBAL_FY2024", Status: models.PhaseComplete}); err != nil {
		t.Fatal(err)
	}

	stats, err := s.RegionStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 || stats[0].Region != "AFRICA" || stats[0].Count != 2 || stats[1].Region != models.Unclassified {
		t.Errorf("stats = %+v", stats)
	}

	if err := s.ResetAll(ctx); err != nil {
		t.Fatalf("ResetAll failed: %v", err)
	}
	if n, _ := s.CountByScope(ctx, models.ScopeQuery{}); n != 0 {
		t.Errorf("expected empty store, got %d rows", n)
	}
	if cps, _ := s.ListCheckpoints(ctx); len(cps) != 0 {
		t.Errorf("expected no checkpoints, got %v", cps)
	}
}

func TestCheckpoints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cp, found, err := s.GetCheckpoint(ctx, "AFRICA_INCREMENTAL")
	if err != nil || found || cp.Status != models.PhasePending {
		t.Fatalf("missing checkpoint = %+v found=%v err=%v", cp, found, err)
	}

	merged := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	cp.Status = models.PhaseComplete
	cp.LastFullMergeAt = &merged
	cp.LastRunID = "run-1"
	if err := s.SetCheckpoint(ctx, cp); err != nil {
		t.Fatal(err)
	}
	cp.Status = models.PhaseFailed
	cp.LastError = "boom"
	if err := s.SetCheckpoint(ctx, cp); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCheckpoint(ctx, models.SyncCheckpoint{ScopeID: "AFRICA_FY2023", Status: models.PhaseCommitted}); err != nil {
		t.Fatal(err)
	}

	cps, err := s.ListCheckpoints(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cps) != 2 || cps[0].ScopeID != "AFRICA_FY2023" {
		t.Fatalf("checkpoints = %+v", cps)
	}
	got := cps[1]
	if got.Status != models.PhaseFailed || got.LastError != "boom" || got.LastFullMergeAt == nil || !got.LastFullMergeAt.Equal(merged) {
		t.Errorf("checkpoint = %+v", got)
	}
}

func TestExportVersions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetExportVersion(ctx, "CURRENT"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	modified := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	v := models.ExportVersion{SourceKey: "CURRENT", SourceName: "primary", SourceURL: "https://example/a.csv", SizeBytes: 10, SHA256: "aa", ETag: `"e1"`, RemoteModified: &modified}
	if err := s.LogExportVersion(ctx, v); err != nil {
		t.Fatal(err)
	}
	v.SourceName = "mirror"
	v.SHA256 = "bb"
	if err := s.LogExportVersion(ctx, v); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetExportVersion(ctx, "CURRENT")
	if err != nil {
		t.Fatal(err)
	}
	if got.SourceName != "mirror" || got.SHA256 != "bb" || got.ETag != `"e1"` || got.RemoteModified == nil {
		t.Errorf("export version = %+v", got)
	}
	if all, _ := s.ListExportVersions(ctx); len(all) != 1 {
		t.Errorf("expected one export version, got %d", len(all))
	}
}
