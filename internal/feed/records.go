package feed

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// BOM is the byte-order mark some spreadsheet exports prepend.
const BOM = "\uFEFF"

// previewLines is how many physical lines a HeaderNotFoundError keeps.
const previewLines = 10

var (
	// ErrEmptyTable means the text produced no rows at all.
	ErrEmptyTable = errors.New("empty table: the feed is empty or has an unexpected format")

	// ErrHeaderNotFound means no row carried all the anchor columns.
	ErrHeaderNotFound = errors.New("header not found")

	lineBreaks = regexp.MustCompile(`\r?\n|\r`)
)

// HeaderNotFoundError reports the anchors that were searched for and the
// first lines of the feed, for diagnosing a changed sheet layout.
type HeaderNotFoundError struct {
	Anchors []string
	Preview string
}

func (e *HeaderNotFoundError) Error() string {
	return fmt.Sprintf("header not found: no row contains %s", strings.Join(e.Anchors, ", "))
}

func (e *HeaderNotFoundError) Unwrap() error {
	return ErrHeaderNotFound
}

// Result is the outcome of BuildRecords.
type Result struct {
	Records        []catalog.Record
	Header         []string
	Delimiter      rune
	HeaderRow      int // index of the header in the parsed table
	RowsParsed     int // rows in the parsed table, header and preamble included
	RowsSkipped    int // blank rows after the header
	RecordsDropped int // rows without a primary identifier
}

// StripBOM removes one leading byte-order mark.
func StripBOM(text string) string {
	return strings.TrimPrefix(text, BOM)
}

// BuildRecords parses text and maps every row below the header to a record.
// It fails with ErrEmptyTable when nothing parses and with a
// *HeaderNotFoundError when no row contains all of schema's anchors.
func BuildRecords(text string, schema catalog.Schema) (Result, error) {
	text = StripBOM(text)

	delim := DetectDelimiter(Sample(text))
	table := Parse(text, delim)
	if len(table) == 0 {
		return Result{}, ErrEmptyTable
	}

	anchors := schema.Anchors()
	headerIdx := FindHeaderRow(table, anchors)
	if headerIdx < 0 {
		return Result{}, &HeaderNotFoundError{
			Anchors: anchors,
			Preview: preview(text, previewLines),
		}
	}

	header := cleanHeader(table[headerIdx])
	res := Result{
		Header:     header,
		Delimiter:  delim,
		HeaderRow:  headerIdx,
		RowsParsed: len(table),
	}

	for _, row := range table[headerIdx+1:] {
		if blankRow(row) {
			res.RowsSkipped++
			continue
		}
		rec := zipRow(header, row)
		if catalog.IsBlank(rec.Value(schema.ID)) {
			res.RecordsDropped++
			continue
		}
		res.Records = append(res.Records, rec)
	}

	return res, nil
}

// FindHeaderRow returns the index of the first row whose trimmed, lower-cased
// cells include every anchor, or -1.
func FindHeaderRow(table Table, anchors []string) int {
	for i, row := range table {
		seen := make(map[string]bool, len(row))
		for _, c := range row {
			seen[strings.ToLower(strings.TrimSpace(c))] = true
		}
		match := true
		for _, a := range anchors {
			if !seen[a] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// cleanHeader trims header cells and collapses embedded line breaks.
func cleanHeader(row []string) []string {
	out := make([]string, len(row))
	for i, h := range row {
		h = strings.TrimSpace(h)
		out[i] = strings.TrimSpace(lineBreaks.ReplaceAllString(h, " "))
	}
	return out
}

// zipRow pairs header names with cells by position. Header positions past
// the end of the row and empty header names are left out.
func zipRow(header, row []string) catalog.Record {
	rec := catalog.NewRecord(len(header))
	for i, name := range header {
		if name == "" || i >= len(row) {
			continue
		}
		rec.Set(name, row[i])
	}
	return rec
}

// preview returns the first n physical lines of text.
func preview(text string, n int) string {
	lines := lineBreaks.Split(text, n+1)
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
