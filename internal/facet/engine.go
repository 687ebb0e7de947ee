package facet

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// Options holds, per facet, the distinct non-blank values that can still be
// selected, in locale order. It marshals to an object keyed by facet name.
type Options map[Facet][]string

// Of returns the option list for f.
func (o Options) Of(f Facet) []string {
	return o[f]
}

// Contains reports whether value is selectable for f.
func (o Options) Contains(f Facet, value string) bool {
	for _, v := range o[f] {
		if v == value {
			return true
		}
	}
	return false
}

// Result is one evaluation of a record set against a selection.
type Result struct {
	// Selection is the input after stale values were reset.
	Selection Selection
	// Base passes the search term and the independent facets.
	Base []catalog.Record
	// Filtered additionally passes the width/offset facets of the active mode.
	Filtered []catalog.Record
	Options  Options

	total int
}

// Total is the size of the record set that was evaluated.
func (r Result) Total() int { return r.total }

// Engine evaluates selections. Evaluate is a pure function of its inputs, so
// an Engine may be shared between goroutines.
type Engine struct {
	Schema catalog.Schema
	Locale language.Tag
}

// NewEngine returns an Engine for schema that sorts options for locale.
func NewEngine(schema catalog.Schema, locale language.Tag) *Engine {
	return &Engine{Schema: schema, Locale: locale}
}

// evaluation carries the per-call state that is not safe to share.
type evaluation struct {
	*Engine
	fold     cases.Caser
	collator *collate.Collator
}

// Evaluate filters records by sel and derives the option lists. Constrained
// facets of the active mode whose value is missing from their option list are
// reset, and evaluation repeats until no reset happens.
func (e *Engine) Evaluate(records []catalog.Record, sel Selection) Result {
	ev := evaluation{
		Engine:   e,
		fold:     cases.Fold(),
		collator: collate.New(e.Locale, collate.Numeric),
	}

	for {
		res := ev.run(records, sel)
		next := ev.reconcile(res)
		if next == sel {
			return res
		}
		sel = next
	}
}

func (ev evaluation) run(records []catalog.Record, sel Selection) Result {
	textHits := ev.filter(records, ev.searchMatcher(sel.Search))
	brandHits := ev.filter(textHits, ev.equals(Brand, sel))
	finishHits := ev.filter(brandHits, ev.equals(Finish, sel))
	sizeHits := ev.filter(finishHits, ev.equals(Size, sel))
	base := ev.filter(sizeHits, ev.equals(PCD, sel))

	opts := Options{
		Brand:      ev.distinct(textHits, Brand),
		Finish:     ev.distinct(brandHits, Finish),
		Size:       ev.distinct(finishHits, Size),
		PCD:        ev.distinct(sizeHits, PCD),
		Width:      ev.distinct(base, Width),
		WidthFront: ev.distinct(base, WidthFront),
		WidthRear:  ev.distinct(base, WidthRear),
	}
	opts[Offset] = ev.distinct(ev.filter(base, ev.equals(Width, sel)), Offset)
	opts[OffsetFront] = ev.distinct(ev.filter(base, ev.equals(WidthFront, sel)), OffsetFront)
	opts[OffsetRear] = ev.distinct(ev.filter(base, ev.equals(WidthRear, sel)), OffsetRear)

	return Result{
		Selection: sel,
		Base:      base,
		Filtered:  ev.secondary(base, sel),
		Options:   opts,
		total:     len(records),
	}
}

// secondary applies the width/offset facets of sel.Mode to base.
func (ev evaluation) secondary(base []catalog.Record, sel Selection) []catalog.Record {
	if sel.Mode == ModeSingle {
		return ev.filter(base, both(ev.equals(Width, sel), ev.equals(Offset, sel)))
	}

	frontActive := sel.Constrained(WidthFront) || sel.Constrained(OffsetFront)
	rearActive := sel.Constrained(WidthRear) || sel.Constrained(OffsetRear)
	if !frontActive && !rearActive {
		return base
	}

	matchFront := both(ev.equals(WidthFront, sel), ev.equals(OffsetFront, sel))
	matchRear := both(ev.equals(WidthRear, sel), ev.equals(OffsetRear, sel))

	return ev.filter(base, func(r catalog.Record) bool {
		front := matchFront == nil || matchFront(r)
		rear := matchRear == nil || matchRear(r)
		switch {
		case frontActive && !rearActive:
			return front
		case rearActive && !frontActive:
			return rear
		default:
			// A staggered fitment matches on either axle.
			return front || rear
		}
	})
}

// reconcile returns sel with every stale value of the active mode reset.
func (ev evaluation) reconcile(res Result) Selection {
	sel := res.Selection
	check := append(Independent(), sel.Mode.Facets()...)
	for _, f := range check {
		if sel.Constrained(f) && !res.Options.Contains(f, sel.Get(f)) {
			sel = sel.Without(f)
		}
	}
	return sel
}

func (ev evaluation) searchMatcher(term string) func(catalog.Record) bool {
	if term == "" {
		return nil
	}
	needle := ev.fold.String(term)
	fields := ev.Schema.SearchFields()
	return func(r catalog.Record) bool {
		for _, name := range fields {
			if strings.Contains(ev.fold.String(r.Value(name)), needle) {
				return true
			}
		}
		return false
	}
}

// equals matches records whose field for f equals the selected value. It is
// nil when f is unconstrained.
func (ev evaluation) equals(f Facet, sel Selection) func(catalog.Record) bool {
	if !sel.Constrained(f) {
		return nil
	}
	want := sel.Get(f)
	field := f.Field(ev.Schema)
	return func(r catalog.Record) bool {
		return r.Value(field) == want
	}
}

// both combines two optional matchers. It is nil when both are nil.
func both(a, b func(catalog.Record) bool) func(catalog.Record) bool {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(r catalog.Record) bool { return a(r) && b(r) }
}

// filter keeps the records that pass match. A nil match keeps all of them
// without copying.
func (ev evaluation) filter(records []catalog.Record, match func(catalog.Record) bool) []catalog.Record {
	if match == nil {
		return records
	}
	out := make([]catalog.Record, 0, len(records))
	for _, r := range records {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

// distinct collects the non-blank values of f in records and sorts them with
// numeric-aware collation, so "9" precedes "10".
func (ev evaluation) distinct(records []catalog.Record, f Facet) []string {
	field := f.Field(ev.Schema)
	seen := make(map[string]struct{})
	values := []string{}
	for _, r := range records {
		v := r.Value(field)
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	ev.collator.SortStrings(values)
	return values
}
