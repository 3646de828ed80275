// models/checkpoint.go
package models

import (
	"fmt"
	"time"
)

// Phase is the state of a scope within a sync run.
type Phase string

const (
	PhasePending   Phase = "PENDING"
	PhaseFetching  Phase = "FETCHING"
	PhaseIngesting Phase = "INGESTING"
	PhaseMerging   Phase = "MERGING"
	PhaseCommitted Phase = "COMMITTED" // at least one chunk committed, more may follow
	PhaseComplete  Phase = "COMPLETE"
	PhaseFailed    Phase = "FAILED"
)

// GlobalRegion names scopes that are not filtered by portfolio.
const GlobalRegion = "GLOBAL"

// ScopeKind distinguishes bootstrap scopes (one fiscal-year export) from incremental windows.
type ScopeKind string

const (
	ScopeBootstrap   ScopeKind = "bootstrap"
	ScopeIncremental ScopeKind = "incremental"
)

// Scope is a (region, year-range) unit of fetch/ingest/merge work.
type Scope struct {
	Kind       ScopeKind
	Region     string // portfolio name or GlobalRegion
	FiscalYear int    // bootstrap only

	// Lookback window, incremental only. Rows last modified before Since are skipped.
	Since time.Time
}

// ID is the checkpoint key of the scope, e.g. "AFRICA_FY2023" or "GLOBAL_INCREMENTAL".
func (s Scope) ID() string {
	region := s.Region
	if region == "" {
		region = GlobalRegion
	}
	if s.Kind == ScopeIncremental {
		return region + "_INCREMENTAL"
	}
	return fmt.Sprintf("%s_FY%d", region, s.FiscalYear)
}

// Filtered reports whether the scope only keeps rows of a single portfolio.
func (s Scope) Filtered() bool {
	return s.Region != "" && s.Region != GlobalRegion
}

// SyncCheckpoint is the durable marker of the last committed position within a scope.
// Offsets only mean something for the export whose sha256 is SourceFingerprint.
type SyncCheckpoint struct {
	ScopeID           string     `db:"scope_id" json:"scope_id"`
	Status            Phase      `db:"status" json:"status"`
	SourceFingerprint string     `db:"source_fingerprint" json:"source_fingerprint"`
	RowOffset         int64      `db:"row_offset" json:"row_offset"`
	ByteOffset        int64      `db:"byte_offset" json:"byte_offset"`
	ChunksCommitted   int        `db:"chunks_committed" json:"chunks_committed"`
	Inserted          int64      `db:"inserted" json:"inserted"`
	Updated           int64      `db:"updated" json:"updated"`
	LastRunID         string     `db:"last_run_id" json:"last_run_id"`
	LastFullMergeAt   *time.Time `db:"last_full_merge_at" json:"last_full_merge_at,omitempty"`
	LastError         string     `db:"last_error" json:"last_error,omitempty"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// ResumableFor reports whether the committed offsets can be reused for an export with the given fingerprint.
func (c SyncCheckpoint) ResumableFor(fingerprint string) bool {
	return c.SourceFingerprint != "" && c.SourceFingerprint == fingerprint && c.ByteOffset > 0
}

// CompletedFor reports whether the scope already fully merged the export with the given fingerprint.
func (c SyncCheckpoint) CompletedFor(fingerprint string) bool {
	return c.Status == PhaseComplete && c.SourceFingerprint == fingerprint
}

// Restart returns a copy positioned at the start of a new export, keeping history fields.
func (c SyncCheckpoint) Restart(fingerprint string) SyncCheckpoint {
	c.SourceFingerprint = fingerprint
	c.RowOffset = 0
	c.ByteOffset = 0
	c.ChunksCommitted = 0
	c.LastError = ""
	return c
}
