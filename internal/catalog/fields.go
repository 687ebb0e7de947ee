package catalog

// fields.go centralizes the coercion of raw feed cells into typed values.
//
// Spreadsheet exports are messy: prices carry currency text and locale
// separators, stock cells hold "12 buc." or "#N/A", and image columns are
// sometimes filled with placeholders. Each helper states its fallback so
// call sites never cast ad hoc:
//   - Price: 0 when nothing numeric can be read
//   - WarehouseStock / InTransitStock: 0 when no leading integer is present
//   - CleanValue: "" for blank cells and the "#N/A" marker
//   - Thumbnail: "" when no image column holds an http(s) URL

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NotAvailable is the spreadsheet marker for a missing lookup value.
const NotAvailable = "#N/A"

// Currency is appended to formatted prices.
const Currency = "RON"

var (
	// priceJunk matches everything that cannot be part of a price.
	priceJunk = regexp.MustCompile(`[^0-9.,-]`)

	// leadingDecimal matches the numeric prefix a lenient float parse would accept.
	leadingDecimal = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)`)

	// leadingInteger matches the integer prefix of a stock cell.
	leadingInteger = regexp.MustCompile(`^\s*([+-]?\d+)`)
)

// ParsePrice converts a locale-formatted price cell to a float.
// "." is a thousands separator and "," the decimal separator, so
// "1.234,50 lei" reads as 1234.5. Returns 0 on any failure.
func ParsePrice(raw string) float64 {
	if raw == "" {
		return 0
	}

	s := priceJunk.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)

	m := leadingDecimal.FindString(s)
	if m == "" {
		return 0
	}
	m = strings.TrimSuffix(m, ".")
	if strings.HasPrefix(m, ".") {
		m = "0" + m
	} else if strings.HasPrefix(m, "-.") {
		m = "-0" + m[1:]
	}

	// Numeric keeps the decimal exact until the one float conversion below.
	var n pgtype.Numeric
	if err := n.Scan(m); err != nil || !n.Valid {
		return 0
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return 0
	}
	return f.Float64
}

// ParseStock reads the leading integer of a stock cell. Returns 0 when absent.
func ParseStock(raw string) int {
	m := leadingInteger.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// FormatPrice renders a price with two decimals in the given locale, e.g. "1.234,50 RON".
func FormatPrice(v float64, tag language.Tag) string {
	p := message.NewPrinter(tag)
	return p.Sprint(number.Decimal(v, number.Scale(2))) + " " + Currency
}

// CleanValue blanks out the "#N/A" marker and leaves other values untouched.
func CleanValue(v string) string {
	if strings.EqualFold(strings.TrimSpace(v), NotAvailable) {
		return ""
	}
	return v
}

// IsBlank reports whether a cell is empty or whitespace.
func IsBlank(v string) bool {
	return strings.TrimSpace(v) == ""
}

// PriceOf returns the parsed price of a record.
func (s Schema) PriceOf(r Record) float64 {
	return ParsePrice(r.Value(s.Price))
}

// WarehouseStockOf returns the quantity in the warehouse column.
func (s Schema) WarehouseStockOf(r Record) int {
	return ParseStock(r.Value(s.WarehouseStock))
}

// InTransitStockOf returns the quantity in the in-transit column.
func (s Schema) InTransitStockOf(r Record) int {
	return ParseStock(r.Value(s.InTransitStock))
}

// InStock reports whether the warehouse holds at least one unit.
func (s Schema) InStock(r Record) bool {
	return s.WarehouseStockOf(r) > 0
}

// ImagesOf returns every image column value that is an http(s) URL, trimmed, in column order.
func (s Schema) ImagesOf(r Record) []string {
	var urls []string
	for _, key := range s.Images {
		u := strings.TrimSpace(r.Value(key))
		if strings.HasPrefix(u, "http") {
			urls = append(urls, u)
		}
	}
	return urls
}

// Thumbnail returns the first image URL, or "".
func (s Schema) Thumbnail(r Record) string {
	for _, key := range s.Images {
		u := strings.TrimSpace(r.Value(key))
		if strings.HasPrefix(u, "http") {
			return u
		}
	}
	return ""
}

// Details returns the fields not shown in the card header, skipping blanks
// and "#N/A", in header order.
func (s Schema) Details(r Record) []Field {
	shown := s.displayed()
	var out []Field
	for _, f := range r.Fields() {
		if shown[f.Name] || IsBlank(f.Value) || CleanValue(f.Value) == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Product is the typed view of a record used by the presentation layer.
type Product struct {
	ID             string   `json:"id"`
	Brand          string   `json:"brand"`
	Description    string   `json:"description"`
	Price          float64  `json:"price"`
	PriceLabel     string   `json:"priceLabel"`
	WarehouseStock int      `json:"warehouseStock"`
	InTransitStock int      `json:"inTransitStock"`
	InStock        bool     `json:"inStock"`
	Thumbnail      string   `json:"thumbnail,omitempty"`
	Images         []string `json:"images,omitempty"`
	Details        []Field  `json:"details,omitempty"`
}

// Product derives the typed view of r, formatting the price for tag.
func (s Schema) Product(r Record, tag language.Tag) Product {
	price := s.PriceOf(r)
	return Product{
		ID:             CleanValue(r.Value(s.ID)),
		Brand:          CleanValue(r.Value(s.Brand)),
		Description:    CleanValue(r.Value(s.Description)),
		Price:          price,
		PriceLabel:     FormatPrice(price, tag),
		WarehouseStock: s.WarehouseStockOf(r),
		InTransitStock: s.InTransitStockOf(r),
		InStock:        s.InStock(r),
		Thumbnail:      s.Thumbnail(r),
		Images:         s.ImagesOf(r),
		Details:        s.Details(r),
	}
}
