package punchfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

type csvPunch struct {
	Name     string `csv:"name"`
	DateTime string `csv:"date/time"`
	Date     string `csv:"date"`
	Clock    string `csv:"time"`
	Status   string `csv:"status"`
}

// recordReader hands gocsv the records from the header on, with the header
// renamed to the canonical column names so exports using aliases
// ("Employee", "Timestamp", "State") bind as well.
type recordReader struct {
	records [][]string
	next    int
}

func (r *recordReader) Read() ([]string, error) {
	if r.next >= len(r.records) {
		return nil, io.EOF
	}
	rec := r.records[r.next]
	r.next++
	return rec, nil
}

func (r *recordReader) ReadAll() ([][]string, error) {
	rest := r.records[r.next:]
	r.next = len(r.records)
	return rest, nil
}

func canonicalHeader(header []string, cols columns) []string {
	out := make([]string, len(header))
	for i := range header {
		// unbound columns keep distinct names
		out[i] = "_" + strconv.Itoa(i)
	}
	set := func(idx int, name string) {
		if idx >= 0 {
			out[idx] = name
		}
	}
	set(cols.name, "name")
	set(cols.status, "status")
	if cols.timestamp >= 0 {
		set(cols.timestamp, "date/time")
	} else {
		set(cols.date, "date")
		set(cols.clock, "time")
	}
	return out
}

// sniffDelimiter picks ';' or tab when the leading lines use them more than ','.
func sniffDelimiter(data []byte) rune {
	lines := bytes.SplitN(data, []byte{'\n'}, headerScanRows+1)
	if len(lines) > headerScanRows {
		lines = lines[:headerScanRows]
	}
	head := bytes.Join(lines, nil)

	best, count := ',', bytes.Count(head, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(head, []byte(string(d))); n > count {
			best, count = d, n
		}
	}
	return best
}

// readCSV returns the non-empty records of data with the line each starts on.
func readCSV(data []byte) ([][]string, []int, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return records, lines, nil
		}
		if err != nil {
			return nil, nil, err
		}
		if len(records) == 0 && len(rec) > 0 {
			rec[0] = trimBOM(rec[0])
		}
		line, _ := r.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}

func parseCSV(source string, data []byte) (Result, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Result{}, ErrEmptyFile
	}

	records, lines, err := readCSV(data)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", source, err)
	}
	if len(records) > MaxRows {
		return Result{}, tooManyRows(source)
	}
	headerRow, cols, ok := findHeader(records)
	if !ok {
		return Result{}, ErrMissingColumns
	}

	body := [][]string{canonicalHeader(records[headerRow], cols)}
	var bodyLines []int
	for i := headerRow + 1; i < len(records); i++ {
		if blank(records[i]) {
			continue
		}
		body = append(body, records[i])
		bodyLines = append(bodyLines, lines[i])
	}

	var punches []csvPunch
	if len(bodyLines) > 0 {
		if err := gocsv.UnmarshalCSV(&recordReader{records: body}, &punches); err != nil {
			return Result{}, fmt.Errorf("read %s: %w", source, err)
		}
	}

	var res Result
	for i, p := range punches {
		raw := p.DateTime
		if cols.timestamp < 0 {
			raw = p.Date + " " + p.Clock
		}
		if err := res.add(source, bodyLines[i], p.Name, raw, p.Status); err != nil {
			return Result{}, err
		}
	}
	if len(res.Events) == 0 && res.Skipped == 0 {
		return Result{}, ErrEmptyFile
	}
	return res, nil
}
