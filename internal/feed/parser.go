// Package feed turns the raw text of a spreadsheet export into catalog records.
//
// The pipeline is:
//
//  1. [StripBOM] removes a leading byte-order mark.
//  2. [DetectDelimiter] picks "," or ";" from a bounded [Sample] of the text.
//  3. [Parse] splits the text into rows of cells, honoring quotes.
//  4. [BuildRecords] finds the header row anywhere in the table and zips the
//     remaining rows into [catalog.Record] values.
//
// The parser is permissive on purpose: spreadsheet exports routinely contain
// stray quotes and preamble rows, and a partial catalog is more useful than a
// rejected one. Only two conditions are fatal: an empty table and a missing
// header row.
package feed

import (
	"strings"
	"unicode/utf8"
)

// SampleSize is the number of characters inspected for delimiter detection.
const SampleSize = 1000

// Table is a parsed sheet: rows of raw cell strings.
type Table [][]string

// Sample returns at most SampleSize characters from the start of text.
func Sample(text string) string {
	if len(text) <= SampleSize {
		return text
	}
	n := 0
	for i := range text {
		if n == SampleSize {
			return text[:i]
		}
		n++
	}
	return text
}

// DetectDelimiter returns ';' when the sample holds strictly more semicolons
// than commas (and at least one), otherwise ','.
func DetectDelimiter(sample string) rune {
	commas := strings.Count(sample, ",")
	semicolons := strings.Count(sample, ";")
	if semicolons > commas && semicolons > 0 {
		return ';'
	}
	return ','
}

// Parse splits text into rows using delim as the cell separator.
//
// Quoting follows RFC 4180 with one relaxation: a quote anywhere outside a
// quoted section opens one, so `ab"c,d"e` yields the single cell `abc,de`.
// A doubled quote inside a quoted section is a literal quote. CR, LF and
// CRLF each end exactly one row. A trailing row is kept only if at least
// one of its cells is non-blank.
func Parse(text string, delim rune) Table {
	var table Table
	if text == "" {
		return table
	}

	var (
		row      []string
		cell     strings.Builder
		inQuotes bool
	)

	endCell := func() {
		row = append(row, cell.String())
		cell.Reset()
	}
	endRow := func() {
		endCell()
		table = append(table, row)
		row = nil
	}

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		next := i + size

		if inQuotes {
			switch {
			case r == '"' && next < len(text) && text[next] == '"':
				cell.WriteByte('"')
				next++
			case r == '"':
				inQuotes = false
			default:
				cell.WriteString(text[i:next])
			}
			i = next
			continue
		}

		switch r {
		case '"':
			inQuotes = true
		case delim:
			endCell()
		case '\r', '\n':
			endRow()
			if r == '\r' && next < len(text) && text[next] == '\n' {
				next++
			}
		default:
			cell.WriteString(text[i:next])
		}
		i = next
	}

	endCell()
	if !blankRow(row) {
		table = append(table, row)
	}
	return table
}

// blankRow reports whether every cell is empty or whitespace.
func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
