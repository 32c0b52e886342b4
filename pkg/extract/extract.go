package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// emailPattern finds email-shaped substrings inside a cell.
var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// Result is the outcome of scanning one CSV document.
type Result struct {
	// Emails are unique, lowercase and in first-seen order. Never nil.
	Emails []string `json:"emails"`
	// TotalRows is the number of non-empty rows scanned.
	TotalRows int `json:"totalRows"`
}

// Count returns len(Emails).
func (r Result) Count() int {
	return len(r.Emails)
}

// set is an insertion-ordered, case-insensitive string set.
type set struct {
	seen  map[string]struct{}
	order []string
}

func newSet() *set {
	return &set{seen: make(map[string]struct{}), order: []string{}}
}

func (s *set) scan(text string) {
	for _, m := range emailPattern.FindAllString(text, -1) {
		m = strings.ToLower(m)
		if _, ok := s.seen[m]; ok {
			continue
		}
		s.seen[m] = struct{}{}
		s.order = append(s.order, m)
	}
}

// String extracts addresses from CSV text.
func String(text string) Result {
	rows := parseRows(text)
	s := newSet()
	for _, row := range rows {
		for _, cell := range row {
			s.scan(cell)
		}
	}
	return Result{Emails: s.order, TotalRows: len(rows)}
}

// Reader extracts addresses from CSV read from r. Only I/O errors are
// returned; malformed CSV never is.
func Reader(r io.Reader) (Result, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return Result{Emails: []string{}}, fmt.Errorf("reading csv: %w", err)
	}
	return String(string(content)), nil
}

// parseRows drops blank rows. With lazy quotes and variable field counts the
// reader rejects no record, and reading from a string cannot fail, so Read
// only ever stops at io.EOF.
func parseRows(text string) [][]string {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if err != nil {
			return rows
		}
		if isBlank(record) {
			continue
		}
		rows = append(rows, record)
	}
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
