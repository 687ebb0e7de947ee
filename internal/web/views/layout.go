package views

import (
	"context"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/catalog/internal/core"
)

const styles = `
body{font-family:system-ui,sans-serif;margin:0;background:#f3f4f6;color:#1f2937}
.container{max-width:1200px;margin:0 auto;padding:1.5rem}
header h1{margin:0 0 .25rem;text-align:center}
header p{margin:0 0 1.5rem;text-align:center;color:#6b7280}
form.filters{display:flex;flex-wrap:wrap;gap:.5rem;background:#fff;padding:1rem;border-radius:.5rem;margin-bottom:1rem}
form.filters input[type=search]{flex:1 1 100%;padding:.5rem}
form.filters select{padding:.4rem}
.modes a{padding:.3rem .8rem;border:1px solid #2563eb;border-radius:.3rem;text-decoration:none;color:#2563eb}
.modes a.active{background:#2563eb;color:#fff}
.grid{display:grid;grid-template-columns:repeat(auto-fill,minmax(240px,1fr));gap:1rem}
.card{background:#fff;border-radius:.5rem;padding:1rem;text-decoration:none;color:inherit;display:block}
.card img{width:100%;height:180px;object-fit:contain}
.badge{font-size:.75rem;font-weight:700;padding:.15rem .5rem;border-radius:1rem}
.badge.in{background:#bbf7d0;color:#166534}.badge.out{background:#fecaca;color:#991b1b}
.price{font-size:1.25rem;font-weight:700;color:#2563eb}
.empty,.alert{background:#fff;border-radius:.5rem;padding:2rem;text-align:center}
.alert{background:#fee2e2;color:#991b1b}
.alert .code{font-size:.75rem;color:#6b7280}
.pager{display:flex;gap:.5rem;justify-content:center;margin-top:1rem}
dl.specs{display:grid;grid-template-columns:max-content 1fr;gap:.25rem 1rem}
.gallery img{max-width:100%;max-height:360px}
.thumbs img{width:64px;height:64px;object-fit:contain;margin:.25rem}
`

// statusScript reloads the page once a running fetch finishes.
const statusScript = `
(function(){
  if(!window.EventSource)return;
  var body=document.body,start=body.getAttribute("data-phase");
  var es=new EventSource("/api/status/stream");
  es.addEventListener("status",function(e){
    var s=JSON.parse(e.data),p=document.getElementById("progress");
    if(p&&s.phase==="loading"&&s.bytesTotal>0){p.textContent=Math.floor(s.bytesRead*100/s.bytesTotal)+"%";}
    if(start==="loading"||start==="idle"){if(s.phase==="ready"||s.phase==="failed"){es.close();location.reload();}}
  });
})();
`

// Layout wraps body in the page shell.
func Layout(title string, phase core.Phase, body templ.Component) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(`</title><style>` + styles + `</style></head>`)
		h.rawf(`<body data-phase="%s"><div class="container">`, attr(string(phase)))
		h.raw(`<header><h1><a href="/" style="color:inherit;text-decoration:none">B2B Product Catalog</a></h1><p>Stock wheels</p></header>`)
		h.render(ctx, body)
		h.raw(`</div><script>` + statusScript + `</script></body></html>`)
	})
}

// ErrorPanel shows a user-facing error with its suggested action.
func ErrorPanel(msg core.UserMessage) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<div class="alert" role="alert"><p><strong>An error occurred</strong></p><p>`)
		h.text(msg.Message)
		h.raw(`</p>`)
		if msg.Action != "" {
			h.raw(`<p>`)
			h.text(msg.Action)
			h.raw(`</p>`)
		}
		h.raw(`<p class="code">`)
		h.text(msg.Code)
		h.raw(`</p></div>`)
	})
}

// Loading shows fetch progress.
func Loading(snap core.Snapshot) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<div class="empty" aria-busy="true"><p>Loading catalog&hellip; <span id="progress">`)
		if p := snap.Percent(); p > 0 {
			h.rawf(`%d%%`, p)
		}
		h.raw(`</span></p></div>`)
	})
}

// NotFound is shown for an unknown part number.
func NotFound(partNumber string) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<div class="empty"><h3>Product not found</h3><p>No product has part number <strong>`)
		h.text(partNumber)
		h.raw(`</strong>.</p><p><a href="/">Back to the catalog</a></p></div>`)
	})
}
