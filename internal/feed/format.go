package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Write encodes rows with delim, quoting cells that contain the delimiter,
// quotes or line breaks. Output parses back to the same cells with [Parse].
func Write(w io.Writer, rows [][]string, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// Format is Write into a string.
func Format(rows [][]string, delim rune) (string, error) {
	var b strings.Builder
	if err := Write(&b, rows, delim); err != nil {
		return "", err
	}
	return b.String(), nil
}
