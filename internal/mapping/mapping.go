// Package mapping loads the table that links internal subject codes to the
// external schedule system and applies it to degree records.
package mapping

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	appLog "esiplanner/internal/log"
	"esiplanner/internal/model"
)

// row is one line of the subjects info TSV. Other columns are ignored.
type row struct {
	ID         string `csv:"id"`
	ScheduleID string `csv:"horarioID"`
}

// Table maps internal subject codes to external schedule codes. It is
// read-only once loaded.
type Table struct {
	codes map[string]string
}

// NewTable builds a table from explicit pairs, mainly for tests.
func NewTable(pairs map[string]string) *Table {
	t := &Table{codes: make(map[string]string, len(pairs))}
	for k, v := range pairs {
		t.codes[k] = v
	}
	return t
}

// LoadTSV reads a tab-separated file with header columns id and horarioID.
func LoadTSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: open: %w", err)
	}
	defer f.Close()

	t, err := ReadTSV(f)
	if err != nil {
		return nil, err
	}
	appLog.Info("mapping table loaded", "path", path, "entries", t.Len())
	return t, nil
}

// ReadTSV parses the table. Rows with an empty code on either side are
// dropped; numeric cells written as floats ("1234.0") are normalized.
func ReadTSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("mapping: parse tsv: %w", err)
	}
	if err := checkHeader(records); err != nil {
		return nil, err
	}

	var rows []*row
	if err := gocsv.UnmarshalCSV(&recordReader{records: records}, &rows); err != nil {
		return nil, fmt.Errorf("mapping: parse tsv: %w", err)
	}

	t := &Table{codes: make(map[string]string, len(rows))}
	dropped := 0
	for _, rw := range rows {
		id := normalizeCode(rw.ID)
		ext := normalizeCode(rw.ScheduleID)
		if id == "" || ext == "" {
			dropped++
			continue
		}
		t.codes[id] = ext
	}
	if dropped > 0 {
		appLog.Debug("mapping rows dropped", "count", dropped)
	}
	return t, nil
}

// requiredColumns must appear in the header row.
var requiredColumns = []string{"id", "horarioID"}

// checkHeader strips a leading byte order mark in place and reports missing
// columns.
func checkHeader(records [][]string) error {
	if len(records) == 0 {
		return fmt.Errorf("mapping: empty tsv, want header %s", strings.Join(requiredColumns, ", "))
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = true
	}
	for _, col := range requiredColumns {
		if !have[col] {
			return fmt.Errorf("mapping: missing column %q", col)
		}
	}
	return nil
}

// recordReader replays already-read records to gocsv.
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

// normalizeCode trims a cell and renders integral numbers without a
// fractional part. NaN-like markers count as empty.
func normalizeCode(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none":
		return ""
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
	}
	return s
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.codes)
}

// Lookup returns the external code for an internal subject code. A miss is
// not an error.
func (t *Table) Lookup(code string) (string, bool) {
	if t == nil {
		return "", false
	}
	ext, ok := t.codes[code]
	return ext, ok
}

// Enrich sets CodeICS on every subject of d that has a mapping and returns
// how many were set.
func (t *Table) Enrich(d *model.Degree) int {
	n := 0
	for i := range d.Subjects {
		if ext, ok := t.Lookup(d.Subjects[i].Code); ok {
			d.Subjects[i].CodeICS = ext
			n++
		}
	}
	return n
}

// Document renders the table as the mapping document, sorted by code.
func (t *Table) Document(name string, now time.Time) model.MappingDocument {
	doc := model.MappingDocument{
		Name:       name,
		LastUpdate: now.Format("2006-01-02"),
		Mapping:    make([]model.SubjectRef, 0, t.Len()),
	}
	if t == nil {
		return doc
	}
	for code, ext := range t.codes {
		doc.Mapping = append(doc.Mapping, model.SubjectRef{Code: code, CodeICS: ext})
	}
	sort.Slice(doc.Mapping, func(i, j int) bool { return doc.Mapping[i].Code < doc.Mapping[j].Code })
	return doc
}
