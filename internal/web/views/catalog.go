package views

import (
	"context"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/facet"
)

// CatalogData is everything the catalog page shows.
type CatalogData struct {
	Result   facet.Result
	Products []catalog.Product // current page of Result.Filtered
	Page     int
	Pages    int
	// Query encodes the reconciled selection, without paging.
	Query url.Values
}

// Catalog renders the filter form, the count line and the product grid or
// the empty state.
func Catalog(d CatalogData) templ.Component {
	return component(func(ctx context.Context, h *html) {
		sel := d.Result.Selection
		h.render(ctx, Filters(sel, d.Result.Options, d.Query))

		h.rawf(`<p class="count">Showing <strong>%d</strong> of <strong>%d</strong> products.</p>`,
			len(d.Result.Filtered), d.Result.Total())

		if len(d.Result.Filtered) == 0 {
			h.render(ctx, Empty(sel.Active(sel.Mode)))
			return
		}

		h.raw(`<div class="grid">`)
		for _, p := range d.Products {
			h.render(ctx, Card(p))
		}
		h.raw(`</div>`)
		h.render(ctx, pager(d))
	})
}

// Filters renders the search box, the mode switch and one select per facet
// that applies in the current mode.
func Filters(sel facet.Selection, opts facet.Options, query url.Values) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<form class="filters" method="get" action="/">`)
		h.rawf(`<input type="search" name="q" placeholder="Search by description, part number or EAN" value="%s">`,
			attr(sel.Search))
		h.rawf(`<input type="hidden" name="mode" value="%s">`, attr(sel.Mode.String()))

		h.raw(`<span class="modes">`)
		for _, m := range []facet.Mode{facet.ModeSingle, facet.ModePaired} {
			q := cloneQuery(query)
			q.Set("mode", m.String())
			class := ""
			if m == sel.Mode {
				class = ` class="active"`
			}
			h.rawf(`<a href="/?%s"%s>%s</a> `, attr(q.Encode()), class, modeLabel(m))
		}
		h.raw(`</span>`)

		facets := append(facet.Independent(), sel.Mode.Facets()...)
		for _, f := range facets {
			h.rawf(`<label class="sr-only" for="%[1]s-select">%[2]s</label><select id="%[1]s-select" name="%[1]s" onchange="this.form.submit()">`,
				f.String(), attr(f.Label()))
			h.rawf(`<option value="%s">%s</option>`, facet.All, attr(f.Label()))
			current := sel.Get(f)
			for _, v := range opts.Of(f) {
				selected := ""
				if v == current {
					selected = " selected"
				}
				h.rawf(`<option value="%s"%s>%s</option>`, attr(v), selected, attr(v))
			}
			h.raw(`</select>`)
		}

		h.raw(`<button type="submit">Search</button>`)
		reset := url.Values{"mode": {sel.Mode.String()}}
		h.rawf(`<a href="/?%s">Reset filters</a>`, attr(reset.Encode()))
		h.raw(`</form>`)
	})
}

func modeLabel(m facet.Mode) string {
	if m == facet.ModePaired {
		return "Front / Rear"
	}
	return "Standard"
}

// Card is one product tile linking to its detail page.
func Card(p catalog.Product) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.rawf(`<a class="card" href="%s">`, href("/product/"+url.PathEscape(p.ID)))
		if p.Thumbnail != "" {
			h.rawf(`<img src="%s" alt="%s" loading="lazy">`, href(p.Thumbnail), attr(p.Description))
		}
		if p.InStock {
			h.raw(`<span class="badge in">In stock</span>`)
		} else {
			h.raw(`<span class="badge out">Out of stock</span>`)
		}
		h.raw(`<h3>`)
		h.text(p.Description)
		h.raw(`</h3><p>`)
		h.text(p.Brand)
		h.raw(` &middot; `)
		h.text(p.ID)
		h.raw(`</p><p class="price">`)
		h.text(p.PriceLabel)
		h.raw(`</p>`)
		stock(h, p)
		h.raw(`</a>`)
	})
}

func stock(h *html, p catalog.Product) {
	h.rawf(`<p>Warehouse stock: <strong>%d pcs.</strong></p>`, p.WarehouseStock)
	if p.InTransitStock > 0 {
		h.rawf(`<p>In transit: <strong>%d pcs.</strong></p>`, p.InTransitStock)
	}
}

// Empty is shown when nothing passes the filters. active selects between
// the no-match and the empty-catalog message.
func Empty(active bool) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<div class="empty">`)
		if active {
			h.raw(`<h3>No products match the filters</h3><p>Try changing the search terms or resetting the filters.</p>`)
			h.raw(`<p><a href="/">Reset filters</a></p>`)
		} else {
			h.raw(`<h3>No products available</h3><p>There are currently no products in the catalog. Please check back later.</p>`)
		}
		h.raw(`</div>`)
	})
}

func pager(d CatalogData) templ.Component {
	return component(func(_ context.Context, h *html) {
		if d.Pages <= 1 {
			return
		}
		link := func(page int, label string) {
			q := cloneQuery(d.Query)
			q.Set("page", strconv.Itoa(page))
			h.rawf(`<a href="/?%s">%s</a>`, attr(q.Encode()), label)
		}
		h.raw(`<nav class="pager">`)
		if d.Page > 1 {
			link(d.Page-1, "&larr; Previous")
		}
		h.rawf(`<span>Page %d of %d</span>`, d.Page, d.Pages)
		if d.Page < d.Pages {
			link(d.Page+1, "Next &rarr;")
		}
		h.raw(`</nav>`)
	})
}

func cloneQuery(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}
