package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"polytec-extractor/internal/types"
)

// RangeWriter maintains one CSV per product range. Each file starts with
// the fixed core columns; free-form spec columns are added in discovery
// order and the column set only ever grows. When a new column shows up
// for an existing file, the file is rewritten once under the upgraded
// header so old and new rows share one schema — no row is ever lost to
// schema growth.
type RangeWriter struct {
	baseDir    string
	coreFields []string
	schemas    map[string][]string
	logger     types.Logger
}

var rangeKeyStrip = regexp.MustCompile(`[^a-z0-9_]+`)

// NewRangeWriter creates the output directory and an empty in-memory
// schema registry. Existing files are picked up lazily on first append.
func NewRangeWriter(baseDir string, coreFields []string, logger types.Logger) (*RangeWriter, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", baseDir, err)
	}
	return &RangeWriter{
		baseDir:    baseDir,
		coreFields: append([]string(nil), coreFields...),
		schemas:    make(map[string][]string),
		logger:     logger,
	}, nil
}

// rangeKey derives a filesystem-safe key from a range display name.
func rangeKey(name string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	key = rangeKeyStrip.ReplaceAllString(key, "")
	if key == "" {
		return "unknown_range"
	}
	return key
}

func (w *RangeWriter) csvPath(key string) string {
	return filepath.Join(w.baseDir, key+".csv")
}

// Append writes one record to its range's CSV, growing the schema first
// if the record carries spec columns the file has not seen yet.
func (w *RangeWriter) Append(rec types.Record) error {
	key := rangeKey(rec.Family)
	path := w.csvPath(key)

	// Spec keys colliding with core columns would produce duplicate
	// headers; core wins.
	safe := make([]types.KV, 0, len(rec.Specs))
	for _, kv := range rec.Specs {
		if _, collides := rec.Core[kv.Key]; collides {
			continue
		}
		safe = append(safe, kv)
	}

	header, err := w.ensureSchema(key, path, safe)
	if err != nil {
		return err
	}

	row := make(map[string]string, len(header))
	for _, f := range w.coreFields {
		row[f] = rec.Core[f]
	}
	for _, kv := range safe {
		row[kv.Key] = kv.Value
	}

	writeHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		writeHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if writeHeader {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := cw.Write(projectRow(header, row)); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// ensureSchema returns the current header for a range, extending it with
// any new spec keys and rewriting the on-disk file when the header
// changed underneath it.
func (w *RangeWriter) ensureSchema(key, path string, specs []types.KV) ([]string, error) {
	header, known := w.schemas[key]
	if !known {
		// Start from what is already on disk, otherwise the core columns.
		existing, err := w.loadHeader(path)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			header = existing
		} else {
			header = append([]string(nil), w.coreFields...)
		}
	}

	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[h] = true
	}
	grew := false
	for _, kv := range specs {
		if kv.Key != "" && !seen[kv.Key] {
			header = append(header, kv.Key)
			seen[kv.Key] = true
			grew = true
		}
	}
	w.schemas[key] = header

	if grew {
		if diskHeader, err := w.loadHeader(path); err != nil {
			return nil, err
		} else if len(diskHeader) > 0 && !equalHeader(diskHeader, header) {
			if err := w.rewrite(path, header); err != nil {
				return nil, err
			}
			w.logger.Debugf("Rewrote %s with %d columns", path, len(header))
		}
	}
	return header, nil
}

// loadHeader reads the first line of an existing CSV, nil when the file
// does not exist or is empty.
func (w *RangeWriter) loadHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, nil
	}
	return header, nil
}

// rewrite replays every existing row under the upgraded header, filling
// new columns with empty strings.
func (w *RangeWriter) rewrite(path string, header []string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for rewrite: %w", path, err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to read %s for rewrite: %w", path, err)
	}
	if len(records) == 0 {
		return nil
	}

	oldHeader := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(oldHeader))
		for i, col := range oldHeader {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", path, err)
	}
	defer out.Close()

	cw := csv.NewWriter(out)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(projectRow(header, row)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func projectRow(header []string, row map[string]string) []string {
	out := make([]string, len(header))
	for i, col := range header {
		out[i] = row[col]
	}
	return out
}

func equalHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
