package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/catalog/internal/facet"
)

const maxPageSize = 500

var errBadMode = errors.New("unknown filter mode")

// parseSelection reads the search term, the mode and the facets that apply
// in that mode. Facets of the other mode are ignored; "all" and empty values
// leave a facet unconstrained.
func parseSelection(q url.Values) (facet.Selection, error) {
	mode, ok := facet.ParseMode(q.Get("mode"))
	if !ok {
		return facet.Selection{}, fmt.Errorf("%w: %q", errBadMode, q.Get("mode"))
	}

	sel := facet.Selection{Mode: mode, Search: q.Get("q")}
	for _, f := range facet.Facets() {
		if mode.Owns(f) {
			sel = sel.With(f, q.Get(f.String()))
		}
	}
	return sel, nil
}

// selectionQuery is the inverse of parseSelection.
func selectionQuery(sel facet.Selection) url.Values {
	q := url.Values{}
	if sel.Search != "" {
		q.Set("q", sel.Search)
	}
	q.Set("mode", sel.Mode.String())
	for name, v := range sel.Values() {
		q.Set(name, v)
	}
	return q
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := strings.TrimSpace(r.URL.Query().Get(name))
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// paginate returns the 1-based page window of n items. page is clamped to
// the last page.
func paginate(n, page, limit int) (start, end, pages, clamped int) {
	if limit > maxPageSize {
		limit = maxPageSize
	}
	pages = (n + limit - 1) / limit
	if pages == 0 {
		pages = 1
	}
	if page > pages {
		page = pages
	}
	start = (page - 1) * limit
	end = start + limit
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return start, end, pages, page
}

// exportDelimiter maps the delimiter query parameter to a rune.
func exportDelimiter(name string) (rune, bool) {
	switch strings.ToLower(name) {
	case "", ",", "comma":
		return ',', true
	case ";", "semicolon":
		return ';', true
	case "\t", "tab":
		return '\t', true
	case "|", "pipe":
		return '|', true
	}
	return 0, false
}
