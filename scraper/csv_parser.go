// scraper/csv_parser.go
package scraper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/gewnthar/samsync/models"
)

// ErrSchemaMismatch means the export header does not carry the mandatory columns. The whole file is unusable.
var ErrSchemaMismatch = errors.New("export header does not match the expected schema")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DefaultMaxRecordBytes bounds one logical record. A quoted field that never closes would otherwise swallow the
// rest of the file.
const DefaultMaxRecordBytes = 8 << 20

// IngestOptions controls chunking and where reading starts.
type IngestOptions struct {
	ChunkSize      int
	Encodings      []string
	MaxRecordBytes int // records larger than this are dropped as malformed

	// Resume point: byte offset just past the last committed record and the number of records it covered.
	StartOffset int64
	StartRow    int64
}

// Chunk is a bounded slice of consecutive records, in file order.
type Chunk struct {
	Index       int
	Rows        []models.RawRow
	StartRow    int64 // records consumed before this chunk
	EndRow      int64 // records consumed including this chunk
	EndOffset   int64 // byte offset just past the chunk's last record
	Encoding    string
	Malformed   int
	Undecodable int
}

// Records is how many source records the chunk covered, kept or dropped.
func (c *Chunk) Records() int64 { return c.EndRow - c.StartRow }

// ChunkReader streams an export file chunk by chunk. Only one chunk is held in memory at a time.
type ChunkReader struct {
	file      *os.File
	br        *bufio.Reader
	header    []string
	encodings []textDecoder
	chunkSize int
	maxRecord int

	feed    *recordFeed
	decoder *csvutil.Decoder

	offset int64
	row    int64
	index  int
	done   bool
}

// recordFeed hands csvutil one record at a time.
type recordFeed struct {
	record []string
}

func (f *recordFeed) Read() ([]string, error) {
	if f.record == nil {
		return nil, io.EOF
	}
	rec := f.record
	f.record = nil
	return rec, nil
}

// OpenChunkReader opens path, validates its header and positions the reader at opts.StartOffset.
func OpenChunkReader(path string, opts IngestOptions) (*ChunkReader, error) {
	encodings, err := lookupEncodings(opts.Encodings)
	if err != nil {
		return nil, err
	}
	if opts.ChunkSize < 1 {
		opts.ChunkSize = 5000
	}
	if opts.MaxRecordBytes < 1 {
		opts.MaxRecordBytes = DefaultMaxRecordBytes
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export %s: %w", path, err)
	}

	cr := &ChunkReader{
		file:      f,
		br:        bufio.NewReaderSize(f, 1<<20),
		encodings: encodings,
		chunkSize: opts.ChunkSize,
		maxRecord: opts.MaxRecordBytes,
		feed:      &recordFeed{},
	}
	if err := cr.readHeader(); err != nil {
		f.Close()
		return nil, err
	}

	if opts.StartOffset > cr.offset {
		if _, err := f.Seek(opts.StartOffset, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to seek export to offset %d: %w", opts.StartOffset, err)
		}
		cr.br.Reset(f)
		cr.offset = opts.StartOffset
		cr.row = opts.StartRow
	}
	return cr, nil
}

func (cr *ChunkReader) readHeader() error {
	raw, oversized, err := cr.readRecord()
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read export header: %w", err)
	}
	if oversized {
		return fmt.Errorf("%w: header exceeds %d bytes", ErrSchemaMismatch, cr.maxRecord)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: empty file", ErrSchemaMismatch)
	}

	text, _, ok := cr.decode(raw)
	if !ok {
		return fmt.Errorf("%w: header is not decodable", ErrSchemaMismatch)
	}
	fields, err := parseRecord(text)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	present := make(map[string]bool, len(fields))
	for _, f := range fields {
		present[f] = true
	}
	var missing []string
	for _, col := range models.MandatoryColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns %s", ErrSchemaMismatch, strings.Join(missing, ", "))
	}

	dec, err := csvutil.NewDecoder(cr.feed, fields...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	cr.header = fields
	cr.decoder = dec
	return nil
}

// Header returns the trimmed column names of the export.
func (cr *ChunkReader) Header() []string { return cr.header }

// HasColumn reports whether the export carries the named column.
func (cr *ChunkReader) HasColumn(name string) bool {
	for _, h := range cr.header {
		if h == name {
			return true
		}
	}
	return false
}

// Next returns the next chunk, or io.EOF once the file is exhausted.
// Cancellation is only observed here, between chunks.
func (cr *ChunkReader) Next(ctx context.Context) (*Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cr.done {
		return nil, io.EOF
	}

	raws := make([][]byte, 0, cr.chunkSize)
	for len(raws) < cr.chunkSize {
		raw, oversized, err := cr.readRecord()
		switch {
		case oversized:
			raws = append(raws, nil) // counted malformed below
		case len(bytes.TrimSpace(raw)) > 0:
			raws = append(raws, raw)
		}
		if errors.Is(err, io.EOF) {
			cr.done = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read export at offset %d: %w", cr.offset, err)
		}
	}
	if len(raws) == 0 {
		return nil, io.EOF
	}

	chunk := &Chunk{
		Index:     cr.index,
		StartRow:  cr.row,
		EndRow:    cr.row + int64(len(raws)),
		EndOffset: cr.offset,
		Rows:      make([]models.RawRow, 0, len(raws)),
	}
	cr.index++

	texts := cr.decodeChunk(chunk, raws)
	for i, text := range texts {
		line := chunk.StartRow + int64(i) + 1
		if raws[i] == nil {
			chunk.Malformed++
			continue
		}
		if text == nil {
			chunk.Undecodable++
			continue
		}
		row, ok := cr.toRow(*text)
		if !ok {
			chunk.Malformed++
			continue
		}
		row.Line = int(line)
		chunk.Rows = append(chunk.Rows, row)
	}

	cr.row = chunk.EndRow
	return chunk, nil
}

// decodeChunk decodes the chunk with the first encoding that handles all of it. When none does, every record
// falls back individually and records no encoding can read come back nil.
func (cr *ChunkReader) decodeChunk(chunk *Chunk, raws [][]byte) []*string {
	texts := make([]*string, len(raws))
	joined := bytes.Join(raws, nil)
	for _, enc := range cr.encodings {
		if _, ok := enc.decode(joined); !ok {
			continue
		}
		chunk.Encoding = enc.name
		for i, raw := range raws {
			if raw == nil {
				continue
			}
			text, _ := enc.decode(raw)
			texts[i] = &text
		}
		return texts
	}

	chunk.Encoding = "mixed"
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		if text, _, ok := cr.decode(raw); ok {
			texts[i] = &text
		}
	}
	return texts
}

func (cr *ChunkReader) decode(raw []byte) (string, string, bool) {
	for _, enc := range cr.encodings {
		if text, ok := enc.decode(raw); ok {
			return text, enc.name, true
		}
	}
	return "", "", false
}

func (cr *ChunkReader) toRow(text string) (models.RawRow, bool) {
	var row models.RawRow
	fields, err := parseRecord(text)
	if err != nil || len(fields) != len(cr.header) {
		return row, false
	}
	cr.feed.record = fields
	if err := cr.decoder.Decode(&row); err != nil {
		cr.feed.record = nil
		return row, false
	}
	if strings.TrimSpace(row.NoticeID) == "" || strings.TrimSpace(row.PostedDate) == "" {
		return row, false
	}
	return row, true
}

// readRecord returns the raw bytes of one logical record. A newline inside a quoted field belongs to the record.
// Quote tracking works on bytes because every supported encoding is ASCII compatible.
// A record that grows past maxRecord is abandoned at the end of the current line and reported as oversized.
func (cr *ChunkReader) readRecord() (rec []byte, oversized bool, err error) {
	q := quoteScanner{fieldStart: true}
	for {
		line, err := cr.br.ReadBytes('\n')
		cr.offset += int64(len(line))
		q.scan(line)
		if !oversized {
			rec = append(rec, line...)
			if len(rec) > cr.maxRecord {
				oversized, rec = true, nil
			}
		}
		if err != nil {
			return rec, oversized, err
		}
		if oversized {
			return nil, true, nil
		}
		if !q.inQuotes {
			return rec, false, nil
		}
	}
}

// quoteScanner follows quoting across the lines of one record. A quote opens a quoted field only as the field's
// first byte; inside one, "" is an escaped quote and any other quote closes it. A quote in the middle of an
// unquoted field (12" pipe) is plain text.
type quoteScanner struct {
	inQuotes   bool
	fieldStart bool
}

func (q *quoteScanner) scan(line []byte) {
	for i := 0; i < len(line); i++ {
		b := line[i]
		if q.inQuotes {
			if b == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					i++
					continue
				}
				q.inQuotes = false
			}
			continue
		}
		switch b {
		case '"':
			q.inQuotes = q.fieldStart
			q.fieldStart = false
		case ',':
			q.fieldStart = true
		default:
			q.fieldStart = false
		}
	}
}

func parseRecord(text string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if err != nil {
		return nil, err
	}
	if _, err := r.Read(); !errors.Is(err, io.EOF) {
		return nil, errors.New("text holds more than one record")
	}
	return fields, nil
}

// Close releases the underlying file.
func (cr *ChunkReader) Close() error {
	return cr.file.Close()
}
