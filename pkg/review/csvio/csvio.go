// Package csvio reads application export files into tables and writes the
// normalized review output. Real-world exports are messy: encodings vary,
// quoting is sloppy, and row widths drift, so reading is lenient and reports
// per-row warnings instead of failing.
package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/soxtools/adreview/pkg/review"
)

// Warning is a non-fatal issue found while reading one input row.
type Warning struct {
	Row     int
	Message string
}

// Read parses an export file into a Table. Short rows are padded and long
// rows truncated to the header width, each with a warning; unparseable rows
// are skipped with a warning. An input without a header row is an error.
func Read(r io.Reader) (review.Table, []Warning, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return review.Table{}, nil, fmt.Errorf("read input: %w", err)
	}
	decoded, _, err := DecodeToUTF8(data)
	if err != nil {
		return review.Table{}, nil, err
	}

	cr := csv.NewReader(bytes.NewReader(decoded))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	headers, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return review.Table{}, nil, errors.New("empty input: no header row")
		}
		return review.Table{}, nil, fmt.Errorf("read header row: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	table := review.Table{Headers: headers}
	var warnings []Warning
	rowNum := 1

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			warnings = append(warnings, Warning{Row: rowNum, Message: fmt.Sprintf("parse error: %v", err)})
			continue
		}

		if len(record) != len(headers) {
			if len(record) < len(headers) {
				warnings = append(warnings, Warning{
					Row:     rowNum,
					Message: fmt.Sprintf("row has %d columns, expected %d; padded", len(record), len(headers)),
				})
				padded := make([]string, len(headers))
				copy(padded, record)
				record = padded
			} else {
				warnings = append(warnings, Warning{
					Row:     rowNum,
					Message: fmt.Sprintf("row has %d columns, expected %d; truncated", len(record), len(headers)),
				})
				record = record[:len(headers)]
			}
		}

		row := make(review.Row, len(headers))
		for i, h := range headers {
			row[h] = record[i]
		}
		table.Rows = append(table.Rows, row)
	}

	return table, warnings, nil
}

// WriteRecords writes output records under the app's output schema: the eight
// standard columns followed by the app's passthrough columns.
func WriteRecords(w io.Writer, columns []string, records []review.OutputRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	values := make([]string, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			values[i] = rec.Value(col)
		}
		if err := cw.Write(values); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRoles writes extracted role assignments.
func WriteRoles(w io.Writer, roles []review.RoleAssignment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(review.RoleColumns()); err != nil {
		return err
	}
	for _, role := range roles {
		if err := cw.Write(role.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
