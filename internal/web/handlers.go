package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/facet"
	"github.com/JonMunkholm/catalog/internal/feed"
	"github.com/JonMunkholm/catalog/internal/logging"
	"github.com/JonMunkholm/catalog/internal/web/views"
)

// keepAliveInterval spaces SSE comments that stop proxies from closing an
// idle status stream.
const keepAliveInterval = 30 * time.Second

// productsResponse is the JSON shape of GET /api/products.
type productsResponse struct {
	Phase     core.Phase        `json:"phase"`
	Selection facet.Selection   `json:"selection"`
	Active    bool              `json:"active"`
	Options   facet.Options     `json:"options"`
	Total     int               `json:"total"`
	Matched   int               `json:"matched"`
	Page      int               `json:"page"`
	Pages     int               `json:"pages"`
	Limit     int               `json:"limit"`
	Products  []catalog.Product `json:"products"`
}

// statusResponse is the JSON shape of the status endpoints.
type statusResponse struct {
	core.Snapshot
	Records int `json:"records"`
	Percent int `json:"percent"`
}

func newStatus(snap core.Snapshot) statusResponse {
	return statusResponse{Snapshot: snap, Records: snap.Count(), Percent: snap.Percent()}
}

// evaluate runs the selection through a fresh controller over records.
func (s *Server) evaluate(records []catalog.Record, sel facet.Selection) facet.Result {
	ctrl := facet.NewController(s.engine, records)
	start := time.Now()
	res := ctrl.Apply(sel)
	s.metrics.ObserveEvaluate(time.Since(start), len(res.Filtered))
	return res
}

// products converts a page of records to their display form.
func (s *Server) products(records []catalog.Record) []catalog.Product {
	schema := s.service.Schema()
	out := make([]catalog.Product, len(records))
	for i, rec := range records {
		out[i] = schema.Product(rec, s.locale)
	}
	return out
}

// failureMessage is the message shown for a failed fetch.
func failureMessage(snap core.Snapshot) core.UserMessage {
	if snap.Error != nil {
		return *snap.Error
	}
	return core.MapError(snap.Err())
}

// findRecord returns the first record with the given part number.
func (s *Server) findRecord(records []catalog.Record, partNumber string) (catalog.Record, bool) {
	key := s.service.Schema().ID
	for _, rec := range records {
		if rec.Value(key) == partNumber {
			return rec, true
		}
	}
	return catalog.Record{}, false
}

// handleCatalog renders the catalog page. A failed fetch shows only the
// error panel; a first load in progress shows the progress line.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	snap := s.service.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	var body = views.Loading(snap)
	status := http.StatusOK

	switch {
	case snap.Phase == core.PhaseFailed:
		body = views.ErrorPanel(failureMessage(snap))
		status = http.StatusServiceUnavailable
	case snap.Count() > 0 || snap.Done():
		res := s.evaluate(snap.Records, sel)
		start, end, pages, page := paginate(len(res.Filtered), parseIntParam(r, "page", 1), s.pageSize)
		body = views.Catalog(views.CatalogData{
			Result:   res,
			Products: s.products(res.Filtered[start:end]),
			Page:     page,
			Pages:    pages,
			Query:    selectionQuery(res.Selection),
		})
	}

	w.WriteHeader(status)
	if err := views.Layout("Product Catalog", snap.Phase, body).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Warn("render catalog", "error", err)
	}
}

// handleProductPage renders one product with its gallery and specifications.
func (s *Server) handleProductPage(w http.ResponseWriter, r *http.Request) {
	partNumber := chi.URLParam(r, "partNumber")
	snap := s.service.Snapshot()

	rec, ok := s.findRecord(snap.Records, partNumber)
	body := views.NotFound(partNumber)
	status := http.StatusNotFound
	title := "Product not found"
	switch {
	case snap.Phase == core.PhaseFailed:
		body = views.ErrorPanel(failureMessage(snap))
		status = http.StatusServiceUnavailable
		title = "Product Catalog"
	case ok:
		p := s.service.Schema().Product(rec, s.locale)
		body = views.Product(p)
		status = http.StatusOK
		title = p.Description
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := views.Layout(title, snap.Phase, body).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Warn("render product", "error", err)
	}
}

// handleListProducts returns the reconciled selection, the option lists,
// the counts and one page of matching products.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	snap := s.service.Snapshot()
	if snap.Phase == core.PhaseFailed {
		respondError(w, r, snap.Err(), http.StatusServiceUnavailable)
		return
	}

	limit := parseIntParam(r, "limit", s.pageSize)
	res := s.evaluate(snap.Records, sel)
	start, end, pages, page := paginate(len(res.Filtered), parseIntParam(r, "page", 1), limit)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	writeJSON(w, r, http.StatusOK, productsResponse{
		Phase:     snap.Phase,
		Selection: res.Selection,
		Active:    res.Selection.Active(res.Selection.Mode),
		Options:   res.Options,
		Total:     res.Total(),
		Matched:   len(res.Filtered),
		Page:      page,
		Pages:     pages,
		Limit:     limit,
		Products:  s.products(res.Filtered[start:end]),
	})
}

// handleGetProduct returns one product by part number.
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Snapshot()
	if snap.Phase == core.PhaseFailed {
		respondError(w, r, snap.Err(), http.StatusServiceUnavailable)
		return
	}

	rec, ok := s.findRecord(snap.Records, chi.URLParam(r, "partNumber"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, r, http.StatusOK, s.service.Schema().Product(rec, s.locale))
}

// handleExport writes the filtered records as CSV in header order.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	delim, ok := exportDelimiter(r.URL.Query().Get("delimiter"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "unsupported delimiter")
		return
	}

	snap := s.service.Snapshot()
	if snap.Phase == core.PhaseFailed {
		respondError(w, r, snap.Err(), http.StatusServiceUnavailable)
		return
	}

	res := s.evaluate(snap.Records, sel)

	rows := make([][]string, 0, len(res.Filtered)+1)
	rows = append(rows, snap.Header)
	for _, rec := range res.Filtered {
		row := make([]string, len(snap.Header))
		for i, col := range snap.Header {
			row[i] = rec.Value(col)
		}
		rows = append(rows, row)
	}

	// Set CSV download headers with timestamp
	filename := fmt.Sprintf("catalog_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := feed.Write(w, rows, delim); err != nil {
		logging.FromContext(r.Context()).Warn("export interrupted", "error", err)
	}
}

// handleStatus returns the current snapshot without records.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, newStatus(s.service.Snapshot()))
}

// handleStatusStream streams snapshot changes via Server-Sent Events.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming not supported")
		return
	}

	updates, unsubscribe := s.service.Subscribe()
	defer unsubscribe()

	// Set up SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				// Service closed
				return
			}
			data, err := json.Marshal(newStatus(snap))
			if err != nil {
				logging.FromContext(r.Context()).Warn("encode status", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
			flusher.Flush()

		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()

		case <-r.Context().Done():
			// Client disconnected
			return
		}
	}
}

// handleRefresh fetches the feed again, or joins the fetch in flight.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Refresh(refreshContext(r.Context(), r))
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		respondError(w, r, err, status)
		return
	}
	writeJSON(w, r, http.StatusOK, newStatus(snap))
}

// handleHealth reports liveness and the catalog phase.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Snapshot()
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "ok",
		"phase":   snap.Phase,
		"records": snap.Count(),
	})
}
