// Package punchfile reads the punch exports of time clocks. Spreadsheets
// (.xlsx, .xls) and delimited text (.csv) are accepted as long as they carry
// a name, a timestamp and a check-in/check-out status column.
package punchfile

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported punch file format")
	ErrMissingColumns    = errors.New("punch file header must contain name, date/time and status columns")
	ErrEmptyFile         = errors.New("punch file contains no rows")
	ErrTooManyRows       = errors.New("punch file has more rows than allowed")
)

// MaxRows bounds how many rows a single file may hold. Larger files are
// rejected as a whole rather than truncated.
var MaxRows = 200000

// headerScanRows is how many leading rows may hold a title block before the header.
const headerScanRows = 20

func tooManyRows(source string) error {
	return &presence.MalformedInputError{
		Source: source,
		Row:    MaxRows + 1,
		Field:  "rows",
		Value:  strconv.Itoa(MaxRows),
		Err:    ErrTooManyRows,
	}
}

// Result is the content of one punch file.
type Result struct {
	Events []presence.RawEvent
	// Skipped counts rows whose status is neither a check-in nor a check-out.
	Skipped int
}

// Employees returns the distinct employee names, sorted.
func (r Result) Employees() []string {
	seen := make(map[string]bool)
	var names []string
	for _, ev := range r.Events {
		if !seen[ev.Employee] {
			seen[ev.Employee] = true
			names = append(names, ev.Employee)
		}
	}
	sort.Strings(names)
	return names
}

// Supported reports whether filename has an extension Parse understands.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xls", ".csv", ".txt":
		return true
	}
	return false
}

// Parse picks a reader from the file extension.
func Parse(filename string, data []byte) (Result, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(data)
	case ".xls":
		rows, err = readXLS(data)
	case ".csv", ".txt":
		return parseCSV(filename, data)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", filename, err)
	}
	if len(rows) > MaxRows {
		return Result{}, tooManyRows(filename)
	}
	return parseRows(filename, rows)
}

type columns struct {
	name, timestamp, status int
	date, clock             int
}

var (
	nameHeaders      = []string{"name", "employee", "employee name", "nom"}
	timestampHeaders = []string{"date/time", "datetime", "date time", "timestamp", "time stamp"}
	dateHeaders      = []string{"date"}
	clockHeaders     = []string{"time", "heure"}
	statusHeaders    = []string{"status", "state", "direction", "type", "in/out"}
)

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

func indexOf(headers []string, candidates []string) int {
	for _, c := range candidates {
		for i, h := range headers {
			if normalizeHeader(h) == c {
				return i
			}
		}
	}
	return -1
}

// findHeader scans the first rows for a header line. Device exports often
// start with a title block.
func findHeader(rows [][]string) (int, columns, bool) {
	limit := len(rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}
	for i := 0; i < limit; i++ {
		cols := columns{
			name:      indexOf(rows[i], nameHeaders),
			timestamp: indexOf(rows[i], timestampHeaders),
			status:    indexOf(rows[i], statusHeaders),
			date:      indexOf(rows[i], dateHeaders),
			clock:     indexOf(rows[i], clockHeaders),
		}
		if cols.name < 0 || cols.status < 0 {
			continue
		}
		if cols.timestamp >= 0 || (cols.date >= 0 && cols.clock >= 0) {
			return i, cols, true
		}
	}
	return 0, columns{}, false
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseRows(source string, rows [][]string) (Result, error) {
	if len(rows) == 0 {
		return Result{}, ErrEmptyFile
	}
	headerRow, cols, ok := findHeader(rows)
	if !ok {
		return Result{}, ErrMissingColumns
	}

	var res Result
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if blank(row) {
			continue
		}
		raw := cellValue(row, cols.timestamp)
		if cols.timestamp < 0 {
			raw = cellValue(row, cols.date) + " " + cellValue(row, cols.clock)
		}
		if err := res.add(source, i+1, cellValue(row, cols.name), raw, cellValue(row, cols.status)); err != nil {
			return Result{}, err
		}
	}
	if len(res.Events) == 0 && res.Skipped == 0 {
		return Result{}, ErrEmptyFile
	}
	return res, nil
}

// add appends the punch found on line. Rows with an unknown status are
// counted as skipped, a missing name or bad timestamp fails the file.
func (r *Result) add(source string, line int, name, rawTimestamp, status string) error {
	direction, err := presence.ParseDirection(status)
	if err != nil {
		r.Skipped++
		return nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return &presence.MalformedInputError{Source: source, Row: line, Field: "name", Value: "", Err: presence.ErrEmployeeRequired}
	}
	ts, err := ParseTimestamp(rawTimestamp)
	if err != nil {
		return &presence.MalformedInputError{Source: source, Row: line, Field: "date/time", Value: rawTimestamp, Err: err}
	}

	r.Events = append(r.Events, presence.RawEvent{Employee: name, Timestamp: ts, Direction: direction})
	return nil
}

var timestampLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02-01-2006 15:04:05",
	"02.01.2006 15:04:05",
}

// ParseTimestamp reads day-first timestamps as written by clock exports, ISO
// timestamps and spreadsheet date serials. Wall-clock values are kept as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 1 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t.Round(time.Second).UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no worksheet found")
	}
	return file.GetRows(sheetName)
}
