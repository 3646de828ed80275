// database/opportunity_store.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gewnthar/samsync/models"
)

// ErrCommitFailed means a chunk transaction was rolled back. Nothing of the chunk, checkpoint included, was written.
var ErrCommitFailed = errors.New("store commit failed")

// ErrNotFound is returned by single-row lookups.
var ErrNotFound = errors.New("record not found")

// lookupBatchSize keeps IN lists under sqlite's bound-variable limit.
const lookupBatchSize = 500

var opportunityColumns = []string{
	"notice_id", "posted_date", "last_modified", "raw_country", "resolved_country_code", "region", "sub_region",
	"title", "solicitation_number", "department", "sub_tier", "office", "notice_type", "base_type", "set_aside",
	"response_deadline", "naics_code", "classification_code", "pop_city", "pop_state", "active",
	"award_number", "award_date", "award_amount", "awardee", "contact_name", "contact_email", "link",
	"description", "description_text", "source_scope", "created_at", "updated_at",
}

func opportunityArgs(o *models.Opportunity, now time.Time) []any {
	created := o.CreatedAt
	if created.IsZero() {
		created = now
	}
	return []any{
		o.NoticeID, o.PostedDate.UTC(), o.LastModified.UTC(), o.RawCountry, o.ResolvedCountryCode, o.Region, o.SubRegion,
		o.Title, o.SolicitationNumber, o.Department, o.SubTier, o.Office, o.NoticeType, o.BaseType, o.SetAside,
		o.ResponseDeadline, o.NaicsCode, o.ClassificationCode, o.PopCity, o.PopState, o.Active,
		o.AwardNumber, nullTime(o.AwardDate), o.AwardAmount, o.Awardee, o.ContactName, o.ContactEmail, o.Link,
		o.Description, o.DescriptionText, o.SourceScope, created.UTC(), now,
	}
}

func scanOpportunity(row interface{ Scan(...any) error }) (models.Opportunity, error) {
	var o models.Opportunity
	var awardDate sql.NullTime
	err := row.Scan(
		&o.NoticeID, &o.PostedDate, &o.LastModified, &o.RawCountry, &o.ResolvedCountryCode, &o.Region, &o.SubRegion,
		&o.Title, &o.SolicitationNumber, &o.Department, &o.SubTier, &o.Office, &o.NoticeType, &o.BaseType, &o.SetAside,
		&o.ResponseDeadline, &o.NaicsCode, &o.ClassificationCode, &o.PopCity, &o.PopState, &o.Active,
		&o.AwardNumber, &awardDate, &o.AwardAmount, &o.Awardee, &o.ContactName, &o.ContactEmail, &o.Link,
		&o.Description, &o.DescriptionText, &o.SourceScope, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.PostedDate = o.PostedDate.UTC()
	o.LastModified = o.LastModified.UTC()
	o.AwardDate = timePtr(awardDate)
	return o, nil
}

// upsertSQL writes one opportunity. An existing row is only overwritten by a version that is not older,
// so a late replay of an old export can never roll a record back.
func (s *Store) upsertSQL() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(opportunityColumns)), ", ")
	insert := fmt.Sprintf("INSERT INTO opportunities (%s) VALUES (%s)", strings.Join(opportunityColumns, ", "), placeholders)

	var sets []string
	if s.dialect == MySQL {
		// MySQL evaluates assignments left to right, so last_modified goes last and every IF sees the old value.
		for _, col := range opportunityColumns {
			if col == "notice_id" || col == "created_at" || col == "last_modified" {
				continue
			}
			sets = append(sets, fmt.Sprintf("%s = IF(VALUES(last_modified) >= last_modified, VALUES(%s), %s)", col, col, col))
		}
		sets = append(sets, "last_modified = GREATEST(last_modified, VALUES(last_modified))")
		return insert + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}

	for _, col := range opportunityColumns {
		if col == "notice_id" || col == "created_at" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
	}
	return s.rebind(insert + " ON CONFLICT (notice_id) DO UPDATE SET " + strings.Join(sets, ", ") +
		" WHERE excluded.last_modified >= opportunities.last_modified")
}

func (s *Store) upsertTx(ctx context.Context, tx *sql.Tx, opps []models.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, s.upsertSQL())
	if err != nil {
		return fmt.Errorf("failed to prepare opportunity upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range opps {
		if _, err := stmt.ExecContext(ctx, opportunityArgs(&opps[i], now)...); err != nil {
			return fmt.Errorf("failed to upsert opportunity %s: %w", opps[i].NoticeID, err)
		}
	}
	return nil
}

// LookupExisting returns the stored version of every id that exists. Missing ids are absent from the map.
func (s *Store) LookupExisting(ctx context.Context, ids []string) (map[string]models.RecordVersion, error) {
	existing := make(map[string]models.RecordVersion, len(ids))
	for start := 0; start < len(ids); start += lookupBatchSize {
		end := min(start+lookupBatchSize, len(ids))
		batch := ids[start:end]

		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		query := s.rebind(fmt.Sprintf(`
			SELECT notice_id, last_modified, resolved_country_code, region, sub_region
			FROM opportunities
			WHERE notice_id IN (%s)`, strings.TrimSuffix(strings.Repeat("?, ", len(batch)), ", ")))

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to look up existing opportunities: %w", err)
		}
		for rows.Next() {
			var v models.RecordVersion
			if err := rows.Scan(&v.NoticeID, &v.LastModified, &v.ResolvedCountryCode, &v.Region, &v.SubRegion); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan existing opportunity: %w", err)
			}
			v.LastModified = v.LastModified.UTC()
			existing[v.NoticeID] = v
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("error iterating existing opportunities: %w", err)
		}
	}
	return existing, nil
}

// ChunkWrite is everything one chunk changes: staged rows plus the checkpoint that follows them.
type ChunkWrite struct {
	Inserts    []models.Opportunity
	Updates    []models.Opportunity
	Checkpoint models.SyncCheckpoint
}

// CommitChunk applies a chunk's inserts, updates and advanced checkpoint in one transaction.
// On any error the transaction is rolled back and the error wraps ErrCommitFailed.
func (s *Store) CommitChunk(ctx context.Context, w ChunkWrite) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", ErrCommitFailed, err)
	}
	defer tx.Rollback()

	if err := s.upsertTx(ctx, tx, w.Inserts); err != nil {
		return fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	if err := s.upsertTx(ctx, tx, w.Updates); err != nil {
		return fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	if err := s.setCheckpointTx(ctx, tx, w.Checkpoint); err != nil {
		return fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", ErrCommitFailed, err)
	}

	s.logger.Debug("chunk committed",
		"scope_id", w.Checkpoint.ScopeID,
		"inserted", len(w.Inserts),
		"updated", len(w.Updates),
		"row_offset", w.Checkpoint.RowOffset)
	return nil
}

// UpsertBatch writes opportunities atomically without touching checkpoints.
func (s *Store) UpsertBatch(ctx context.Context, opps []models.Opportunity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", ErrCommitFailed, err)
	}
	defer tx.Rollback()

	if err := s.upsertTx(ctx, tx, opps); err != nil {
		return fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", ErrCommitFailed, err)
	}
	return nil
}

// GetOpportunity returns one opportunity by notice id.
func (s *Store) GetOpportunity(ctx context.Context, noticeID string) (*models.Opportunity, error) {
	query := s.rebind(fmt.Sprintf("SELECT %s FROM opportunities WHERE notice_id = ?", strings.Join(opportunityColumns, ", ")))
	o, err := scanOpportunity(s.db.QueryRowContext(ctx, query, noticeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get opportunity %s: %w", noticeID, err)
	}
	return &o, nil
}

func scopeWhere(q models.ScopeQuery) (string, []any) {
	var conds []string
	var args []any
	if q.Region != "" {
		conds = append(conds, "region = ?")
		args = append(args, q.Region)
	}
	if q.SubRegion != "" {
		conds = append(conds, "sub_region = ?")
		args = append(args, q.SubRegion)
	}
	if q.CountryCode != "" {
		conds = append(conds, "resolved_country_code = ?")
		args = append(args, q.CountryCode)
	}
	if !q.ModifiedSince.IsZero() {
		conds = append(conds, "last_modified >= ?")
		args = append(args, q.ModifiedSince.UTC())
	}
	if !q.PostedFrom.IsZero() {
		conds = append(conds, "posted_date >= ?")
		args = append(args, q.PostedFrom.UTC())
	}
	if !q.PostedTo.IsZero() {
		conds = append(conds, "posted_date < ?")
		args = append(args, q.PostedTo.UTC())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// QueryByScope returns opportunities matching q, newest modification first.
func (s *Store) QueryByScope(ctx context.Context, q models.ScopeQuery) ([]models.Opportunity, error) {
	where, args := scopeWhere(q)
	query := fmt.Sprintf("SELECT %s FROM opportunities%s ORDER BY last_modified DESC, notice_id",
		strings.Join(opportunityColumns, ", "), where)
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, max(q.Offset, 0))
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query opportunities: %w", err)
	}
	defer rows.Close()

	var opps []models.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan opportunity row: %w", err)
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating opportunity rows: %w", err)
	}
	return opps, nil
}

// CountByScope returns how many opportunities match q, ignoring Limit and Offset.
func (s *Store) CountByScope(ctx context.Context, q models.ScopeQuery) (int64, error) {
	where, args := scopeWhere(q)
	var n int64
	if err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM opportunities"+where), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count opportunities: %w", err)
	}
	return n, nil
}

// RegionStats counts opportunities per region and sub-region.
func (s *Store) RegionStats(ctx context.Context) ([]models.RegionCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT region, sub_region, COUNT(*)
		FROM opportunities
		GROUP BY region, sub_region
		ORDER BY region, sub_region`)
	if err != nil {
		return nil, fmt.Errorf("failed to query region stats: %w", err)
	}
	defer rows.Close()

	var stats []models.RegionCount
	for rows.Next() {
		var rc models.RegionCount
		if err := rows.Scan(&rc.Region, &rc.SubRegion, &rc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan region stats row: %w", err)
		}
		stats = append(stats, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating region stats: %w", err)
	}
	return stats, nil
}

// ResetAll deletes every opportunity and checkpoint. It is the only path that removes records.
func (s *Store) ResetAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"opportunities", "sync_checkpoints"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	s.logger.Warn("record store reset: all opportunities and checkpoints deleted")
	return nil
}
