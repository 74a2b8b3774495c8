package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/models"
)

// Column order of rsvp.csv
const (
	colID = iota
	colName
	colRelationship
	colAttendance
	colMessage
	colSubmittedAt
	columnCount
)

var csvHeader = []string{"ID", "Name", "Relationship", "Attendance", "Message", "Submitted At"}

// headerAliases maps normalized header labels to columns. "position" is the
// label older files used for the relationship column.
var headerAliases = map[string]int{
	"id":           colID,
	"name":         colName,
	"relationship": colRelationship,
	"position":     colRelationship,
	"attendance":   colAttendance,
	"message":      colMessage,
	"submitted at": colSubmittedAt,
	"submittedat":  colSubmittedAt,
	"submitted_at": colSubmittedAt,
}

// escapeField quotes a field when it holds a separator, a quote, a line
// break or whitespace at either end. Embedded quotes are doubled.
func escapeField(s string) string {
	if s == "" {
		return s
	}
	if strings.ContainsAny(s, ",\"\r\n") || strings.TrimSpace(s) != s {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func encodeLine(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = escapeField(f)
	}
	return strings.Join(escaped, ",") + "\n"
}

func headerLine() string {
	return encodeLine(csvHeader)
}

func encodeRecord(rec *models.GuestRecord) string {
	fields := make([]string, columnCount)
	fields[colID] = rec.ID
	fields[colName] = rec.Name
	fields[colRelationship] = rec.Relationship
	fields[colAttendance] = string(rec.Attendance)
	fields[colMessage] = rec.Message
	fields[colSubmittedAt] = rec.SubmittedAt.UTC().Format(time.RFC3339Nano)
	return encodeLine(fields)
}

func encodeAll(records []models.GuestRecord) []byte {
	var buf bytes.Buffer
	buf.WriteString(headerLine())
	for i := range records {
		buf.WriteString(encodeRecord(&records[i]))
	}
	return buf.Bytes()
}

// skippedLine describes a line that decodeAll dropped
type skippedLine struct {
	Line   int
	Reason string
}

// decodeAll parses rsvp.csv content. Lines that fail to parse or miss a
// required field are skipped and reported; only a read failure aborts.
func decodeAll(data []byte) ([]models.GuestRecord, []skippedLine, error) {
	records := make([]models.GuestRecord, 0)
	var skipped []skippedLine

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	columns := defaultColumns()
	first := true

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped = append(skipped, skippedLine{Line: perr.StartLine, Reason: perr.Err.Error()})
				first = false
				continue
			}
			return nil, nil, err
		}

		if first {
			first = false
			if cols, ok := parseHeader(row); ok {
				columns = cols
				continue
			}
		}

		rec, reason := decodeRow(row, columns)
		if reason != "" {
			line, _ := r.FieldPos(0)
			skipped = append(skipped, skippedLine{Line: line, Reason: reason})
			continue
		}
		records = append(records, rec)
	}

	return records, skipped, nil
}

func defaultColumns() map[int]int {
	cols := make(map[int]int, columnCount)
	for i := 0; i < columnCount; i++ {
		cols[i] = i
	}
	return cols
}

// parseHeader maps each known column to its index in row. A row without an
// ID column is not a header.
func parseHeader(row []string) (map[int]int, bool) {
	cols := make(map[int]int, columnCount)
	for i, label := range row {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(label, "\ufeff")))
		if col, ok := headerAliases[key]; ok {
			if _, seen := cols[col]; !seen {
				cols[col] = i
			}
		}
	}
	if _, ok := cols[colID]; !ok {
		return nil, false
	}
	return cols, true
}

func decodeRow(row []string, columns map[int]int) (models.GuestRecord, string) {
	field := func(col int) string {
		idx, ok := columns[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	rec := models.GuestRecord{
		ID:           field(colID),
		Name:         field(colName),
		Relationship: field(colRelationship),
		Attendance:   models.Attendance(field(colAttendance)),
		Message:      field(colMessage),
	}

	if raw := field(colSubmittedAt); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return rec, fmt.Sprintf("bad submission time %q", raw)
		}
		rec.SubmittedAt = ts.UTC()
	}

	if missing := rec.MissingFields(true); len(missing) > 0 {
		return rec, "missing " + strings.Join(missing, ", ")
	}
	if !rec.Attendance.IsValid() {
		return rec, fmt.Sprintf("bad attendance %q", rec.Attendance)
	}
	return rec, ""
}
