package facet

import "github.com/JonMunkholm/catalog/internal/catalog"

// Controller owns a record set and the selection applied to it. Every
// mutation re-evaluates and notifies subscribers with the new Result.
//
// A Controller is not safe for concurrent use.
type Controller struct {
	engine      *Engine
	records     []catalog.Record
	sel         Selection
	result      Result
	evaluated   bool
	subscribers []func(Result)
}

// NewController returns a Controller over records with an empty selection.
func NewController(engine *Engine, records []catalog.Record) *Controller {
	c := &Controller{engine: engine, records: records}
	c.recompute()
	return c
}

// Subscribe registers fn to receive every Result produced by a mutation.
func (c *Controller) Subscribe(fn func(Result)) {
	c.subscribers = append(c.subscribers, fn)
}

// Result returns the last evaluation.
func (c *Controller) Result() Result { return c.result }

// Selection returns the reconciled selection.
func (c *Controller) Selection() Selection { return c.sel }

// Records returns the full record set.
func (c *Controller) Records() []catalog.Record { return c.records }

// SetRecords replaces the record set. Stale selections are reset.
func (c *Controller) SetRecords(records []catalog.Record) Result {
	c.records = records
	c.evaluated = false
	return c.apply(c.sel)
}

// SetSearch changes the free-text term.
func (c *Controller) SetSearch(term string) Result {
	sel := c.sel
	sel.Search = term
	return c.apply(sel)
}

// Select constrains f to value. All clears it.
func (c *Controller) Select(f Facet, value string) Result {
	return c.apply(c.sel.With(f, value))
}

// Clear makes f unconstrained.
func (c *Controller) Clear(f Facet) Result {
	return c.apply(c.sel.Without(f))
}

// SetMode switches between single and paired width/offset filtering.
func (c *Controller) SetMode(m Mode) Result {
	return c.apply(c.sel.WithMode(m))
}

// Reset clears the search term and every facet. The mode is kept.
func (c *Controller) Reset() Result {
	return c.apply(c.sel.Reset())
}

// Apply replaces the whole selection.
func (c *Controller) Apply(sel Selection) Result {
	return c.apply(sel)
}

func (c *Controller) apply(sel Selection) Result {
	if c.evaluated && sel == c.sel {
		return c.result
	}
	c.sel = sel
	c.recompute()
	for _, fn := range c.subscribers {
		fn(c.result)
	}
	return c.result
}

func (c *Controller) recompute() {
	c.result = c.engine.Evaluate(c.records, c.sel)
	c.sel = c.result.Selection
	c.evaluated = true
}
