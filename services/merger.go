// services/merger.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gewnthar/samsync/database"
	"github.com/gewnthar/samsync/geo"
	"github.com/gewnthar/samsync/models"
	"github.com/gewnthar/samsync/scraper"
)

// ExistingLookup finds stored versions by notice id.
type ExistingLookup interface {
	LookupExisting(ctx context.Context, ids []string) (map[string]models.RecordVersion, error)
}

// ChunkCommitter applies one chunk's staged writes and checkpoint atomically.
type ChunkCommitter interface {
	CommitChunk(ctx context.Context, w database.ChunkWrite) error
}

// MergeResult counts what happened to the records of one chunk or scope.
// Skipped is every record that was neither written nor found unchanged; the fields after it break it down.
type MergeResult struct {
	Inserted  int64 `json:"inserted"`
	Updated   int64 `json:"updated"`
	Unchanged int64 `json:"unchanged"`
	Skipped   int64 `json:"skipped"`

	Malformed   int64 `json:"malformed"`
	Undecodable int64 `json:"undecodable"`
	Filtered    int64 `json:"filtered"`
	Duplicates  int64 `json:"duplicates"`

	// Unresolved rows are still stored, under the fallback classification.
	Unresolved int64 `json:"unresolved"`
}

// Add accumulates o into r.
func (r *MergeResult) Add(o MergeResult) {
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Unchanged += o.Unchanged
	r.Skipped += o.Skipped
	r.Malformed += o.Malformed
	r.Undecodable += o.Undecodable
	r.Filtered += o.Filtered
	r.Duplicates += o.Duplicates
	r.Unresolved += o.Unresolved
}

// StagedChunk holds the writes a chunk needs. Nothing is written until it is committed.
type StagedChunk struct {
	Inserts []models.Opportunity
	Updates []models.Opportunity
	Result  MergeResult
}

// Merger classifies raw rows and decides which of them change the store.
type Merger struct {
	resolver *geo.Resolver
	logger   *slog.Logger
}

// NewMerger creates a Merger that classifies with resolver.
func NewMerger(resolver *geo.Resolver, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{resolver: resolver, logger: logger.With("component", "merger")}
}

// dateLayouts covers the shapes SAM exports have used for PostedDate and friends.
// Fractional seconds are accepted by Go's parser even when the layout omits them.
var dateLayouts = []string{
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

// parseDate parses an export timestamp into UTC, truncated to the second so every dialect stores it exactly.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Second), true
		}
	}
	return time.Time{}, false
}

func parseAmount(s string) decimal.NullDecimal {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func parseActive(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}

// Normalize turns a raw row into a classified opportunity. ok is false when the row has no usable PostedDate.
func (m *Merger) Normalize(row models.RawRow, scopeID string) (opp models.Opportunity, res geo.Resolution, ok bool) {
	posted, ok := parseDate(row.PostedDate)
	if !ok || strings.TrimSpace(row.NoticeID) == "" {
		return opp, res, false
	}
	modified, ok := parseDate(row.LastModifiedDate)
	if !ok {
		modified = posted
	}

	res = m.resolver.Resolve(row.PopCountry)
	opp = models.Opportunity{
		NoticeID:            strings.TrimSpace(row.NoticeID),
		PostedDate:          posted,
		LastModified:        modified,
		RawCountry:          row.PopCountry,
		ResolvedCountryCode: res.CountryCode,
		Region:              res.Region,
		SubRegion:           res.SubRegion,
		Title:               strings.TrimSpace(row.Title),
		SolicitationNumber:  strings.TrimSpace(row.SolicitationNumber),
		Department:          strings.TrimSpace(row.Department),
		SubTier:             strings.TrimSpace(row.SubTier),
		Office:              strings.TrimSpace(row.Office),
		NoticeType:          strings.TrimSpace(row.NoticeType),
		BaseType:            strings.TrimSpace(row.BaseType),
		SetAside:            strings.TrimSpace(row.SetAside),
		ResponseDeadline:    strings.TrimSpace(row.ResponseDeadline),
		NaicsCode:           strings.TrimSpace(row.NaicsCode),
		ClassificationCode:  strings.TrimSpace(row.ClassificationCode),
		PopCity:             strings.TrimSpace(row.PopCity),
		PopState:            strings.TrimSpace(row.PopState),
		Active:              parseActive(row.Active),
		AwardNumber:         strings.TrimSpace(row.AwardNumber),
		AwardAmount:         parseAmount(row.AwardAmount),
		Awardee:             strings.TrimSpace(row.Awardee),
		ContactName:         strings.TrimSpace(row.ContactName),
		ContactEmail:        strings.TrimSpace(row.ContactEmail),
		Link:                strings.TrimSpace(row.Link),
		Description:         row.Description,
		DescriptionText:     scraper.HTMLToText(row.Description),
		SourceScope:         scopeID,
	}
	if awarded, ok := parseDate(row.AwardDate); ok {
		opp.AwardDate = &awarded
	}
	return opp, res, true
}

// Merge stages the writes for one chunk under scope. It reads the store through lookup but never writes.
func (m *Merger) Merge(ctx context.Context, chunk *scraper.Chunk, scope models.Scope, lookup ExistingLookup) (*StagedChunk, error) {
	staged := &StagedChunk{}
	res := &staged.Result
	res.Malformed = int64(chunk.Malformed)
	res.Undecodable = int64(chunk.Undecodable)

	// In-batch dedupe: greatest last_modified wins, ties keep the first occurrence.
	candidates := make(map[string]models.Opportunity, len(chunk.Rows))
	var order []string
	for _, row := range chunk.Rows {
		opp, resolution, ok := m.Normalize(row, scope.ID())
		if !ok {
			res.Malformed++
			continue
		}
		if !resolution.Resolved {
			res.Unresolved++
		}
		if scope.Filtered() && opp.Region != scope.Region {
			res.Filtered++
			continue
		}
		if !scope.Since.IsZero() && opp.LastModified.Before(scope.Since) {
			res.Filtered++
			continue
		}

		prev, seen := candidates[opp.NoticeID]
		if !seen {
			order = append(order, opp.NoticeID)
			candidates[opp.NoticeID] = opp
			continue
		}
		res.Duplicates++
		if opp.LastModified.After(prev.LastModified) {
			candidates[opp.NoticeID] = opp
		}
	}

	existing := map[string]models.RecordVersion{}
	if len(order) > 0 {
		var err error
		existing, err = lookup.LookupExisting(ctx, order)
		if err != nil {
			return nil, fmt.Errorf("failed to look up existing records: %w", err)
		}
	}

	for _, id := range order {
		opp := candidates[id]
		stored, found := existing[id]
		switch {
		case !found:
			staged.Inserts = append(staged.Inserts, opp)
			res.Inserted++
		case needsUpdate(opp.Version(), stored):
			staged.Updates = append(staged.Updates, opp)
			res.Updated++
		default:
			res.Unchanged++
		}
	}

	res.Skipped = res.Malformed + res.Undecodable + res.Filtered + res.Duplicates
	m.logger.Debug("chunk merged",
		"scope_id", scope.ID(),
		"chunk", chunk.Index,
		"encoding", chunk.Encoding,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"unchanged", res.Unchanged,
		"skipped", res.Skipped)
	return staged, nil
}

// needsUpdate reports whether incoming replaces stored: a strictly newer modification, or the same
// modification classified differently (the resolver tables changed since it was stored).
func needsUpdate(incoming, stored models.RecordVersion) bool {
	if incoming.LastModified.After(stored.LastModified) {
		return true
	}
	return incoming.LastModified.Equal(stored.LastModified) && !incoming.SameClassification(stored)
}
