package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/feed"
	"github.com/JonMunkholm/catalog/internal/metrics"
)

const wheelsCSV = "Price list,,,,,,,,,,,,\n" +
	"PartNumber,Brand,Pret client in lei/buc,PartDescription,EAN,Finish,Size,PCD,Width,Offset,7001,On the water,Image URL\n" +
	"W-1,OZ,\"1.234,50\",Racing 18 black,5945001,Black,18,5x112,8,35,4,0,https://img.test/w1.jpg\n" +
	"W-2,OZ,900,Racing 19 silver,5945002,Silver,19,5x112,8.5,40,0,2,\n" +
	"W-3,BBS,2000,CH-R <20>,5945003,Black,20,5x120,9,42,#N/A,0,\n"

// stubFetcher returns a fixed body or error and counts calls.
type stubFetcher struct {
	text  string
	err   error
	calls atomic.Int32
}

func (f *stubFetcher) Fetch(ctx context.Context, progress core.ProgressFunc) (string, error) {
	f.calls.Add(1)
	if progress != nil {
		progress(int64(len(f.text)), int64(len(f.text)))
	}
	return f.text, f.err
}

type testServer struct {
	*Server
	svc     *core.Service
	fetcher *stubFetcher
	metrics *metrics.Metrics
}

// newTestServer builds a server over a stub feed. load runs the startup
// fetch before returning.
func newTestServer(t *testing.T, fetcher *stubFetcher, load bool, mutate func(*config.Config)) *testServer {
	t.Helper()

	cfg, err := config.LoadFrom(func(string) (string, bool) { return "", false })
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if mutate != nil {
		mutate(cfg)
	}

	m := metrics.New()
	svc := core.NewService(fetcher, core.Config{Schema: catalog.DefaultSchema(), Observer: m})
	t.Cleanup(svc.Close)

	if load {
		svc.Refresh(core.ContextWithTrigger(context.Background(), core.TriggerStartup))
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &testServer{
		Server:  NewServer(ctx, svc, cfg, m),
		svc:     svc,
		fetcher: fetcher,
		metrics: m,
	}
}

func (ts *testServer) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	ts.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v", v, err)
	}
	return v
}

type productsJSON struct {
	Phase     string `json:"phase"`
	Selection struct {
		Search string            `json:"search"`
		Mode   string            `json:"mode"`
		Facets map[string]string `json:"facets"`
	} `json:"selection"`
	Active   bool                `json:"active"`
	Options  map[string][]string `json:"options"`
	Total    int                 `json:"total"`
	Matched  int                 `json:"matched"`
	Page     int                 `json:"page"`
	Pages    int                 `json:"pages"`
	Limit    int                 `json:"limit"`
	Products []catalog.Product   `json:"products"`
}

func TestCatalogPage(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{text: wheelsCSV}, true, nil)

	tests := []struct {
		name     string
		target   string
		contains []string
		excludes []string
	}{
		{
			name:   "all products",
			target: "/",
			contains: []string{
				"Showing <strong>3</strong> of <strong>3</strong> products.",
				"Racing 18 black",
				"CH-R &lt;20&gt;",
				`href="/product/W-1"`,
				`src="https://img.test/w1.jpg"`,
				"In stock",
				"In transit: <strong>2 pcs.</strong>",
			},
		},
		{
			name:     "brand filter",
			target:   "/?brand=OZ",
			contains: []string{"Showing <strong>2</strong> of <strong>3</strong>", `<option value="OZ" selected>`},
			excludes: []string{"CH-R"},
		},
		{
			name:     "no match",
			target:   "/?q=nothing-like-this",
			contains: []string{"No products match the filters"},
		},
		{
			name:     "paired mode selects",
			target:   "/?mode=paired",
			contains: []string{`name="width_front"`, `name="offset_rear"`, `class="active">Front / Rear`},
			excludes: []string{`name="width"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			body := rec.Body.String()
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Errorf("body missing %q", want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(body, unwanted) {
					t.Errorf("body should not contain %q", unwanted)
				}
			}
		})
	}
}

func TestCatalogPage_Headers(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{text: wheelsCSV}, true, nil)
	rec := ts.do(t, http.MethodGet, "/")

	if got := rec.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing CSP header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff")
	}

	ts = newTestServer(t, &stubFetcher{text: wheelsCSV}, true, func(c *config.Config) { c.Security.EnableCSP = false })
	rec = ts.do(t, http.MethodGet, "/")
	if rec.Header().Get("Content-Security-Policy") != "" {
		t.Error("CSP should be disabled")
	}
}

func TestCatalogPage_States(t *testing.T) {
	t.Run("loading", func(t *testing.T) {
		ts := newTestServer(t, &stubFetcher{text: wheelsCSV}, false, nil)
		rec := ts.do(t, http.MethodGet, "/")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Loading catalog") {
			t.Error("expected loading message")
		}
	})

	t.Run("failed fetch shows only the error", func(t *testing.T) {
		fetcher := &stubFetcher{err: &core.NetworkError{URL: "https://x.test", StatusCode: 404, Err: core.ErrBadStatus}}
		ts := newTestServer(t, fetcher, true, nil)

		rec := ts.do(t, http.MethodGet, "/")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "The catalog feed could not be loaded") || !strings.Contains(body, "NET001") {
			t.Errorf("error panel missing: %s", body)
		}
		if strings.Contains(body, "Showing") {
			t.Error("failed state should not render products")
		}
	})

	t.Run("empty catalog", func(t *testing.T) {
		header := "PartNumber,Brand,Pret client in lei/buc\n"
		ts := newTestServer(t, &stubFetcher{text: header}, true, nil)
		rec := ts.do(t, http.MethodGet, "/")
		if !strings.Contains(rec.Body.String(), "No products available") {
			t.Errorf("expected empty catalog message: %s", rec.Body.String())
		}
	})
}

func TestListProducts(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{text: wheelsCSV}, true, nil)

	t.Run("unconstrained", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/products")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		got := decode[productsJSON](t, rec)
		if got.Phase != "ready" || got.Total != 3 || got.Matched != 3 || len(got.Products) != 3 {
			t.Errorf("got phase=%s total=%d matched=%d products=%d", got.Phase, got.Total, got.Matched, len(got.Products))
		}
		if got.Active {
			t.Error("Active = true for empty selection")
		}
		if strings.Join(got.Options["brand"], ",") != "BBS,OZ" {
			t.Errorf("brand options = %v", got.Options["brand"])
		}
		if strings.Join(got.Options["size"], ",") != "18,19,20" {
			t.Errorf("size options = %v", got.Options["size"])
		}
		if got.Products[0].Price != 1234.5 {
			t.Errorf("price = %v", got.Products[0].Price)
		}
	})

	t.Run("stale finish is reset", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/products?brand=BBS&finish=Silver")
		got := decode[productsJSON](t, rec)
		if _, ok := got.Selection.Facets["finish"]; ok {
			t.Errorf("finish should be reset: %v", got.Selection.Facets)
		}
		if got.Selection.Facets["brand"] != "BBS" || got.Matched != 1 {
			t.Errorf("facets = %v matched = %d", got.Selection.Facets, got.Matched)
		}
	})

	t.Run("paired mode ignores single facets", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/products?mode=paired&width=9&width_front=8&width_rear=9")
		got := decode[productsJSON](t, rec)
		if got.Selection.Mode != "paired" {
			t.Errorf("mode = %s", got.Selection.Mode)
		}
		if _, ok := got.Selection.Facets["width"]; ok {
			t.Error("width should not apply in paired mode")
		}
		if got.Matched != 2 {
			t.Errorf("matched = %d, want 2 (front or rear)", got.Matched)
		}
	})

	t.Run("search by EAN", func(t *testing.T) {
		got := decode[productsJSON](t, ts.do(t, http.MethodGet, "/api/products?q=5945003"))
		if got.Matched != 1 || got.Products[0].ID != "W-3" || !got.Active {
			t.Errorf("matched = %d active = %v", got.Matched, got.Active)
		}
	})

	t.Run("paging", func(t *testing.T) {
		got := decode[productsJSON](t, ts.do(t, http.MethodGet, "/api/products?limit=2&page=2"))
		if got.Pages != 2 || got.Page != 2 || len(got.Products) != 1 || got.Products[0].ID != "W-3" {
			t.Errorf("pages=%d page=%d products=%d", got.Pages, got.Page, len(got.Products))
		}
	})

	t.Run("bad mode", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/products?mode=diagonal")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
		if got := decode[ErrorResponse](t, rec); got.Code != "HTTP400" {
			t.Errorf("code = %s", got.Code)
		}
	})
}

func TestListProducts_Failed(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{text: "just,some\ncells,here\n"}, true, nil)

	rec := ts.do(t, http.MethodGet, "/api/products")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "FEED002" {
		t.Errorf("code = %s, want FEED002", got.Code)
	}
}

func TestProductDetail(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{text: wheelsCSV}, true, nil)

	rec := ts.do(t, http.MethodGet, "/api/products/W-2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	p := decode[catalog.Product](t, rec)
	if p.Brand != "OZ" || p.InStock || p.InTransitStock != 2 {
		t.Errorf("product = %+v", p)
	}

	rec = ts.do(t, http.MethodGet, "/api/products/NOPE")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing product status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/product/W-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("page status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Racing 18 black", "Specifications", "<dt>Finish</dt><dd>Black</dd>"} {
		if !strings.Contains(body, want) {
			t.Errorf("detail page missing %q", want)
		}
	}
	if strings.Contains(body, "<dt>7001</dt>") {
		t.Error("stock column should not be listed as a specification")
	}

	rec = ts.do(t, http.MethodGet, "/product/NOPE")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Product not found") {
		t.Errorf("missing product page status = %d", rec.Code)
	}
}

func TestProductDetail_Failed(t *testing.T) {
	fetcher := &stubFetcher{err: &core.NetworkError{URL: "https://x.test", StatusCode: 404, Err: core.ErrBadStatus}}
	ts := newTestServer(t, fetcher, true, nil)

	rec := ts.do(t, http.MethodGet, "/api/products/W-1")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("api status = %d, want 503", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "NET001" {
		t.Errorf("api code = %q, want NET001", got.Code)
	}

	rec = ts.do(t, http.MethodGet, "/product/W-1")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("page status = %d, want 503", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "The catalog feed could not be loaded") || !strings.Contains(body, "NET001") {
		t.Errorf("page should show the fetch error: %q", body)
	}
	if strings.Contains(body, "Product not found") {
		t.Error("failed state should not report a missing product")
	}
}

func TestExport(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{text: wheelsCSV}, true, nil)

	rec := ts.do(t, http.MethodGet, "/api/export?brand=OZ&delimiter=semicolon")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Disposition"), `attachment; filename="catalog_`) {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}

	table := feed.Parse(rec.Body.String(), ';')
	if len(table) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(table))
	}
	if table[0][0] != "PartNumber" || table[1][2] != "1.234,50" {
		t.Errorf("export = %v", table)
	}

	rec = ts.do(t, http.MethodGet, "/api/export?delimiter=x")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad delimiter status = %d", rec.Code)
	}
}

func TestStatusAndHealth(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{text: wheelsCSV}, true, nil)

	var status struct {
		Phase       string `json:"phase"`
		Records     int    `json:"records"`
		Percent     int    `json:"percent"`
		RowsSkipped int    `json:"rowsSkipped"`
		Delimiter   string `json:"delimiter"`
	}
	rec := ts.do(t, http.MethodGet, "/api/status")
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Phase != "ready" || status.Records != 3 || status.Delimiter != "," {
		t.Errorf("status = %+v", status)
	}

	rec = ts.do(t, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/metrics")
	if !strings.Contains(rec.Body.String(), "catalog_feed_fetches_total") {
		t.Error("/metrics missing feed counter")
	}
}

func TestRefresh(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{text: wheelsCSV}, true, nil)

	rec := ts.do(t, http.MethodPost, "/api/refresh")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if n := ts.fetcher.calls.Load(); n != 2 {
		t.Errorf("fetches = %d, want 2", n)
	}

	ts.fetcher.err = &core.NetworkError{URL: "https://x.test", ContentType: "text/html", Err: core.ErrNotCSV}
	rec = ts.do(t, http.MethodPost, "/api/refresh")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("failed refresh status = %d", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "NET002" {
		t.Errorf("code = %s", got.Code)
	}
	if ts.svc.Snapshot().Count() != 0 {
		t.Error("failed refresh should clear the records")
	}

	rec = ts.do(t, http.MethodGet, "/api/refresh")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET refresh status = %d", rec.Code)
	}
}

func TestRefresh_RateLimited(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{text: wheelsCSV}, true, func(c *config.Config) {
		c.Rate.RefreshLimit = 1
	})

	if rec := ts.do(t, http.MethodPost, "/api/refresh"); rec.Code != http.StatusOK {
		t.Fatalf("first refresh status = %d", rec.Code)
	}
	rec := ts.do(t, http.MethodPost, "/api/refresh")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second refresh status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "RATE001" {
		t.Errorf("code = %s", got.Code)
	}
}

func TestStatusStream(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{text: wheelsCSV}, true, nil)
	srv := httptest.NewServer(ts.Router())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/status/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("Content-Type = %q", got)
	}

	scanner := bufio.NewScanner(resp.Body)
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		if v, ok := strings.CutPrefix(line, "event: "); ok {
			event = v
		}
		if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = v
			break
		}
	}
	if event != "status" {
		t.Errorf("event = %q", event)
	}
	if !strings.Contains(data, `"phase":"ready"`) || !strings.Contains(data, `"records":3`) {
		t.Errorf("data = %s", data)
	}
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{text: wheelsCSV}, true, nil)

	rec := ts.do(t, http.MethodGet, "/api/nothing")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		t.Errorf("api 404 = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = ts.do(t, http.MethodGet, "/nothing")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("page 404 = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
}
