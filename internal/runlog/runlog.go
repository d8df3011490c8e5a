// Package runlog keeps the append-only CSV record of statement imports.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Entry is one row in the import log.
type Entry struct {
	Timestamp   time.Time
	FileID      string
	FileName    string
	TemplateID  string
	Rows        int
	Warnings    int
	Continuity  string
	NeedsReview bool
}

// Header is the CSV header for import-log.csv.
const Header = "timestamp,file_id,file_name,template_id,rows,warnings,continuity,needs_review"

const (
	numFields      = 8
	logDir         = "logs"
	logFile        = "logs/import-log.csv"
	colTimestamp   = 0
	colFileID      = 1
	colFileName    = 2
	colTemplateID  = 3
	colRows        = 4
	colWarnings    = 5
	colContinuity  = 6
	colNeedsReview = 7
)

// FromParsedFile summarizes one parse for the log.
func FromParsedFile(f model.ParsedFile) Entry {
	return Entry{
		Timestamp:   f.ParsedAt,
		FileID:      f.FileID,
		FileName:    f.FileName,
		TemplateID:  f.TemplateID,
		Rows:        len(f.Transactions),
		Warnings:    len(f.Warnings),
		Continuity:  f.Continuity.Status,
		NeedsReview: f.NeedsReview(),
	}
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colFileID] = e.FileID
	row[colFileName] = e.FileName
	row[colTemplateID] = e.TemplateID
	row[colRows] = strconv.Itoa(e.Rows)
	row[colWarnings] = strconv.Itoa(e.Warnings)
	row[colContinuity] = e.Continuity
	row[colNeedsReview] = strconv.FormatBool(e.NeedsReview)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	rows, err := strconv.Atoi(record[colRows])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing rows %q: %w", record[colRows], err)
	}
	warnings, err := strconv.Atoi(record[colWarnings])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing warnings %q: %w", record[colWarnings], err)
	}
	review, err := strconv.ParseBool(record[colNeedsReview])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing needs_review %q: %w", record[colNeedsReview], err)
	}

	return Entry{
		Timestamp:   ts,
		FileID:      record[colFileID],
		FileName:    record[colFileName],
		TemplateID:  record[colTemplateID],
		Rows:        rows,
		Warnings:    warnings,
		Continuity:  record[colContinuity],
		NeedsReview: review,
	}, nil
}

// Append writes entries to <repoRoot>/logs/import-log.csv, creating the file and header if needed.
func Append(repoRoot string, entries []Entry) error {
	dir := filepath.Join(repoRoot, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(repoRoot, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all entries from <repoRoot>/logs/import-log.csv.
// Returns an empty slice if the file does not exist.
func Read(repoRoot string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(repoRoot, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
