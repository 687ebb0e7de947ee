package views

import (
	"context"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// Product renders the detail page: gallery, price, stock and the
// specification list.
func Product(p catalog.Product) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<article class="card"><h2>`)
		h.text(p.Description)
		h.raw(`</h2><p>`)
		h.text(p.Brand)
		h.raw(` &middot; `)
		h.text(p.ID)
		h.raw(`</p>`)

		if len(p.Images) > 0 {
			h.rawf(`<div class="gallery"><img id="main-image" src="%s" alt="%s"></div>`,
				href(p.Images[0]), attr(p.Description))
			if len(p.Images) > 1 {
				h.raw(`<div class="thumbs">`)
				for _, img := range p.Images {
					h.rawf(`<img src="%s" alt="" onclick="document.getElementById('main-image').src=this.src">`, href(img))
				}
				h.raw(`</div>`)
			}
		}

		h.raw(`<p class="price">`)
		h.text(p.PriceLabel)
		h.raw(`</p>`)
		if p.InStock {
			h.raw(`<span class="badge in">In stock</span>`)
		} else {
			h.raw(`<span class="badge out">Out of stock</span>`)
		}
		stock(h, p)

		if len(p.Details) > 0 {
			h.raw(`<h4>Specifications</h4><dl class="specs">`)
			for _, f := range p.Details {
				h.raw(`<dt>`)
				h.text(f.Name)
				h.raw(`</dt><dd>`)
				h.text(f.Value)
				h.raw(`</dd>`)
			}
			h.raw(`</dl>`)
		}
		h.raw(`<p><a href="javascript:history.back()">Back</a> &middot; <a href="/">Catalog</a></p></article>`)
	})
}
