package catalog

import "strings"

// Schema names the feed columns the service depends on.
// Every other column is carried through untouched as a specification detail.
type Schema struct {
	ID          string // Primary identifier, also a header anchor
	Brand       string // Header anchor and facet
	Price       string // Header anchor
	Description string
	AltCode     string // EAN-like alternate identifier

	Finish string
	Size   string
	PCD    string
	Width  string
	Offset string

	WarehouseStock string
	InTransitStock string

	Images []string // Checked in order for the thumbnail
}

// DefaultSchema returns the column names used by the wheel price sheet.
func DefaultSchema() Schema {
	return Schema{
		ID:             "PartNumber",
		Brand:          "Brand",
		Price:          "Pret client in lei/buc",
		Description:    "PartDescription",
		AltCode:        "EAN",
		Finish:         "Finish",
		Size:           "Size",
		PCD:            "PCD",
		Width:          "Width",
		Offset:         "Offset",
		WarehouseStock: "7001",
		InTransitStock: "On the water",
		Images:         []string{"Image URL", "Image URL 1", "Image URL 2", "Image URL 3", "Image URL 4"},
	}
}

// Anchors returns the lower-cased header names that identify the header row.
func (s Schema) Anchors() []string {
	return []string{
		strings.ToLower(s.ID),
		strings.ToLower(s.Brand),
		strings.ToLower(s.Price),
	}
}

// SearchFields returns the fields matched by the free-text search.
func (s Schema) SearchFields() []string {
	return []string{s.Description, s.ID, s.AltCode}
}

// displayed returns the set of fields shown outside the specification list.
func (s Schema) displayed() map[string]bool {
	m := map[string]bool{
		s.ID:             true,
		s.Description:    true,
		s.Brand:          true,
		s.Price:          true,
		s.WarehouseStock: true,
		s.InTransitStock: true,
		"":               true,
	}
	for _, k := range s.Images {
		m[k] = true
	}
	return m
}
