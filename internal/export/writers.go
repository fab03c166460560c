// Package export renders normalized issue rows as CSV or
// newline-delimited JSON, either streamed to an io.Writer (the HTTP
// download surface) or written to files under the configured output
// directory (the export CLI).
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	stderrors "sellerqi-insights/internal/common/errors"
	"sellerqi-insights/internal/models"
)

var csvHeader = []string{"asin", "sku", "title", "issue", "message", "solution", "recommended_replenishment_qty"}

func csvRecord(row models.IssueRow) []string {
	sku := ""
	if row.SKU != nil {
		sku = *row.SKU
	}

	qty := ""
	if v, ok := row.Extra["recommendedReplenishmentQty"]; ok {
		if f, ok := v.(float64); ok {
			qty = FormatQuantity(f)
		}
	}

	return []string{
		row.Asin,
		sku,
		row.DisplayTitle(),
		row.IssueHeading,
		row.Message,
		row.Solution,
		qty,
	}
}

// WriteCSV streams rows as CSV with a header record.
func WriteCSV(w io.Writer, rows []models.IssueRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return stderrors.NewExportWriteFailedError(err)
	}
	for _, row := range rows {
		if err := cw.Write(csvRecord(row)); err != nil {
			return stderrors.NewExportWriteFailedError(err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return stderrors.NewExportWriteFailedError(err)
	}
	return nil
}

// WriteNDJSON streams rows as newline-delimited JSON objects.
func WriteNDJSON(w io.Writer, rows []models.IssueRow) error {
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return stderrors.NewExportWriteFailedError(err)
		}
	}
	return nil
}

// CSVWriter writes issue rows to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates the output file and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends rows to the CSV output.
func (cw *CSVWriter) Write(rows []models.IssueRow) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, row := range rows {
		if err := cw.writer.Write(csvRecord(row)); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// NDJSONWriter writes issue rows as newline-delimited JSON records.
type NDJSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewNDJSONWriter creates the output file.
func NewNDJSONWriter(filename string) (*NDJSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create ndjson file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &NDJSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends rows, one JSON object per line.
func (jw *NDJSONWriter) Write(rows []models.IssueRow) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, row := range rows {
		if err := jw.encoder.Encode(row); err != nil {
			return fmt.Errorf("encode ndjson record: %w", err)
		}
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush ndjson writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *NDJSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush ndjson writer: %w", err)
	}
	return jw.file.Close()
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
