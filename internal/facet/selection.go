// Package facet filters a catalog record set by a user selection and derives,
// for every facet, the values that can still be selected.
package facet

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// All is the wire value for an unconstrained facet. Inside a Selection the
// unconstrained state is the empty string.
const All = "all"

// Facet identifies one filterable attribute.
type Facet int

const (
	Brand Facet = iota
	Finish
	Size
	PCD
	Width
	Offset
	WidthFront
	OffsetFront
	WidthRear
	OffsetRear

	numFacets
)

var facetNames = [numFacets]string{
	Brand:       "brand",
	Finish:      "finish",
	Size:        "size",
	PCD:         "pcd",
	Width:       "width",
	Offset:      "offset",
	WidthFront:  "width_front",
	OffsetFront: "offset_front",
	WidthRear:   "width_rear",
	OffsetRear:  "offset_rear",
}

var facetLabels = [numFacets]string{
	Brand:       "Brand",
	Finish:      "Finish",
	Size:        "Size",
	PCD:         "PCD",
	Width:       "Width",
	Offset:      "Offset",
	WidthFront:  "Front width",
	OffsetFront: "Front offset",
	WidthRear:   "Rear width",
	OffsetRear:  "Rear offset",
}

// independent facets narrow the base set in this order.
var independent = []Facet{Brand, Finish, Size, PCD}

// Facets returns every facet in evaluation order.
func Facets() []Facet {
	out := make([]Facet, numFacets)
	for i := range out {
		out[i] = Facet(i)
	}
	return out
}

// Independent returns the facets that apply in both modes.
func Independent() []Facet {
	return append([]Facet(nil), independent...)
}

func (f Facet) valid() bool { return f >= 0 && f < numFacets }

// String returns the query-parameter name of the facet.
func (f Facet) String() string {
	if !f.valid() {
		return fmt.Sprintf("facet(%d)", int(f))
	}
	return facetNames[f]
}

// Label is the human-readable name.
func (f Facet) Label() string {
	if !f.valid() {
		return f.String()
	}
	return facetLabels[f]
}

// Field returns the record field the facet reads. Front and rear facets read
// the same width and offset columns as the single-axis pair.
func (f Facet) Field(s catalog.Schema) string {
	switch f {
	case Brand:
		return s.Brand
	case Finish:
		return s.Finish
	case Size:
		return s.Size
	case PCD:
		return s.PCD
	case Width, WidthFront, WidthRear:
		return s.Width
	case Offset, OffsetFront, OffsetRear:
		return s.Offset
	}
	return ""
}

func (f Facet) MarshalText() ([]byte, error) {
	if !f.valid() {
		return nil, fmt.Errorf("invalid facet %d", int(f))
	}
	return []byte(facetNames[f]), nil
}

func (f *Facet) UnmarshalText(b []byte) error {
	p, ok := ParseFacet(string(b))
	if !ok {
		return fmt.Errorf("unknown facet %q", b)
	}
	*f = p
	return nil
}

// ParseFacet looks a facet up by its query-parameter name.
func ParseFacet(name string) (Facet, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range facetNames {
		if n == name {
			return Facet(i), true
		}
	}
	return 0, false
}

// Mode selects which width/offset facets are in play.
type Mode int

const (
	// ModeSingle applies one width/offset pair.
	ModeSingle Mode = iota
	// ModePaired applies a front pair and a rear pair.
	ModePaired
)

func (m Mode) String() string {
	if m == ModePaired {
		return "paired"
	}
	return "single"
}

// Facets returns the secondary facets that belong to the mode.
func (m Mode) Facets() []Facet {
	if m == ModePaired {
		return []Facet{WidthFront, OffsetFront, WidthRear, OffsetRear}
	}
	return []Facet{Width, Offset}
}

// Owns reports whether f is evaluated in mode m.
func (m Mode) Owns(f Facet) bool {
	switch f {
	case Width, Offset:
		return m == ModeSingle
	case WidthFront, OffsetFront, WidthRear, OffsetRear:
		return m == ModePaired
	}
	return f.valid()
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	p, ok := ParseMode(string(b))
	if !ok {
		return fmt.Errorf("unknown mode %q", b)
	}
	*m = p
	return nil
}

// ParseMode accepts "single" and "paired", and the older "standard" and
// "staggered" names.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "single", "standard":
		return ModeSingle, true
	case "paired", "staggered":
		return ModePaired, true
	}
	return ModeSingle, false
}

// Selection is the user's filter state. The zero value is unconstrained in
// single mode. Selection is comparable.
type Selection struct {
	Search string
	Mode   Mode
	values [numFacets]string
}

// Get returns the selected value of f, or "" when unconstrained.
func (s Selection) Get(f Facet) string {
	if !f.valid() {
		return ""
	}
	return s.values[f]
}

// Constrained reports whether f has a concrete value.
func (s Selection) Constrained(f Facet) bool {
	return s.Get(f) != ""
}

// With returns a copy with f set to value. All and "" clear the facet.
func (s Selection) With(f Facet, value string) Selection {
	if !f.valid() {
		return s
	}
	if value == All {
		value = ""
	}
	s.values[f] = value
	return s
}

// Without returns a copy with f unconstrained.
func (s Selection) Without(f Facet) Selection {
	return s.With(f, "")
}

// WithMode switches mode. Entering single mode clears the paired facets and
// entering paired mode clears the single pair. Staying in the same mode is a
// no-op.
func (s Selection) WithMode(m Mode) Selection {
	if s.Mode == m {
		return s
	}
	for _, f := range s.Mode.Facets() {
		s.values[f] = ""
	}
	s.Mode = m
	return s
}

// Active reports whether the search term or any facet that applies in mode
// is set.
func (s Selection) Active(mode Mode) bool {
	if s.Search != "" {
		return true
	}
	for _, f := range independent {
		if s.Constrained(f) {
			return true
		}
	}
	for _, f := range mode.Facets() {
		if s.Constrained(f) {
			return true
		}
	}
	return false
}

// Reset clears every facet and the search term, keeping the mode.
func (s Selection) Reset() Selection {
	return Selection{Mode: s.Mode}
}

// Values returns the constrained facets keyed by name, for logging and JSON.
func (s Selection) Values() map[string]string {
	out := make(map[string]string)
	for i, v := range s.values {
		if v != "" {
			out[facetNames[i]] = v
		}
	}
	return out
}

func (s Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Search string            `json:"search"`
		Mode   Mode              `json:"mode"`
		Facets map[string]string `json:"facets"`
	}{s.Search, s.Mode, s.Values()})
}
