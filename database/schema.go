// database/schema.go
package database

import (
	"context"
	"fmt"
	"strings"
)

// columnTypes holds the per-dialect spelling of the few types the schema needs.
type columnTypes struct {
	Key       string
	Text      string
	LongText  string
	Timestamp string
	Bool      string
}

var dialectTypes = map[Dialect]columnTypes{
	MySQL:    {Key: "VARCHAR(191)", Text: "VARCHAR(512)", LongText: "MEDIUMTEXT", Timestamp: "DATETIME(6)", Bool: "BOOLEAN"},
	Postgres: {Key: "TEXT", Text: "TEXT", LongText: "TEXT", Timestamp: "TIMESTAMPTZ", Bool: "BOOLEAN"},
	SQLite:   {Key: "TEXT", Text: "TEXT", LongText: "TEXT", Timestamp: "DATETIME", Bool: "BOOLEAN"},
}

const opportunitiesTable = `
CREATE TABLE IF NOT EXISTS opportunities (
    notice_id             {{Key}} PRIMARY KEY,
    posted_date           {{Timestamp}} NOT NULL,
    last_modified         {{Timestamp}} NOT NULL,
    raw_country           {{Text}} NOT NULL DEFAULT '',
    resolved_country_code {{Key}} NOT NULL,
    region                {{Key}} NOT NULL,
    sub_region            {{Key}} NOT NULL,
    title                 {{LongText}},
    solicitation_number   {{Text}},
    department            {{Text}},
    sub_tier              {{Text}},
    office                {{Text}},
    notice_type           {{Text}},
    base_type             {{Text}},
    set_aside             {{Text}},
    response_deadline     {{Text}},
    naics_code            {{Text}},
    classification_code   {{Text}},
    pop_city              {{Text}},
    pop_state             {{Text}},
    active                {{Bool}} NOT NULL DEFAULT FALSE,
    award_number          {{Text}},
    award_date            {{Timestamp}} NULL,
    award_amount          DECIMAL(20,2) NULL,
    awardee               {{Text}},
    contact_name          {{Text}},
    contact_email         {{Text}},
    link                  {{LongText}},
    description           {{LongText}},
    description_text      {{LongText}},
    source_scope          {{Key}} NOT NULL DEFAULT '',
    created_at            {{Timestamp}} NOT NULL,
    updated_at            {{Timestamp}} NOT NULL
)`

const checkpointsTable = `
CREATE TABLE IF NOT EXISTS sync_checkpoints (
    scope_id           {{Key}} PRIMARY KEY,
    status             {{Key}} NOT NULL,
    source_fingerprint {{Key}} NOT NULL DEFAULT '',
    row_offset         BIGINT NOT NULL DEFAULT 0,
    byte_offset        BIGINT NOT NULL DEFAULT 0,
    chunks_committed   INTEGER NOT NULL DEFAULT 0,
    inserted           BIGINT NOT NULL DEFAULT 0,
    updated            BIGINT NOT NULL DEFAULT 0,
    last_run_id        {{Key}} NOT NULL DEFAULT '',
    last_full_merge_at {{Timestamp}} NULL,
    last_error         {{LongText}},
    updated_at         {{Timestamp}} NOT NULL
)`

const exportVersionsTable = `
CREATE TABLE IF NOT EXISTS export_versions (
    source_key      {{Key}} PRIMARY KEY,
    source_name     {{Key}} NOT NULL,
    source_url      {{LongText}},
    local_file      {{LongText}},
    size_bytes      BIGINT NOT NULL DEFAULT 0,
    sha256          {{Key}} NOT NULL DEFAULT '',
    etag            {{Text}},
    remote_modified {{Timestamp}} NULL,
    resumed         {{Bool}} NOT NULL DEFAULT FALSE,
    downloaded_at   {{Timestamp}} NOT NULL,
    updated_at      {{Timestamp}} NOT NULL
)`

var opportunityIndexes = []struct{ name, columns string }{
	{"idx_opportunities_region", "region"},
	{"idx_opportunities_sub_region", "sub_region"},
	{"idx_opportunities_last_modified", "last_modified"},
	{"idx_opportunities_region_posted", "region, posted_date"},
	{"idx_opportunities_country", "resolved_country_code"},
}

func renderDDL(ddl string, types columnTypes) string {
	return strings.NewReplacer(
		"{{Key}}", types.Key,
		"{{Text}}", types.Text,
		"{{LongText}}", types.LongText,
		"{{Timestamp}}", types.Timestamp,
		"{{Bool}}", types.Bool,
	).Replace(ddl)
}

// schemaStatements returns the DDL for the store's dialect. MySQL declares its indexes inline because
// CREATE INDEX IF NOT EXISTS is MariaDB-only.
func (s *Store) schemaStatements() []string {
	types := dialectTypes[s.dialect]
	opps := renderDDL(opportunitiesTable, types)
	suffix := ""
	if s.dialect == MySQL {
		var keys []string
		for _, idx := range opportunityIndexes {
			keys = append(keys, fmt.Sprintf("    KEY %s (%s)", idx.name, idx.columns))
		}
		opps = strings.TrimSuffix(opps, "\n)") + ",\n" + strings.Join(keys, ",\n") + "\n)"
		suffix = " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
	}

	stmts := []string{
		opps + suffix,
		renderDDL(checkpointsTable, types) + suffix,
		renderDDL(exportVersionsTable, types) + suffix,
	}
	if s.dialect != MySQL {
		for _, idx := range opportunityIndexes {
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON opportunities (%s)", idx.name, idx.columns))
		}
	}
	return stmts
}

// Migrate creates the tables and indexes if they are missing. Safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.schemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	s.logger.Debug("schema up to date")
	return nil
}
