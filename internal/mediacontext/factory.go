package mediacontext

import "container/list"

// Factory maintains the ring of currently non-empty contexts and
// advances all of them once per media tick. Grounded on
// mpf_context_factory_t's APR_RING in mpf_context.c, expressed here with
// container/list (no domain-specific ring type appears anywhere in the
// example corpus, so the generic doubly-linked list from the standard
// library is the appropriate tool — see DESIGN.md).
type Factory struct {
	ring *list.List
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{ring: list.New()}
}

// link inserts ctx at the tail of the ring and returns its element.
func (f *Factory) link(ctx *Context) *list.Element {
	return f.ring.PushBack(ctx)
}

// unlink removes elem from the ring.
func (f *Factory) unlink(elem *list.Element) {
	f.ring.Remove(elem)
}

// Process walks the ring and calls Process() on each active context, in
// ring order. Invoked once per media tick by the Media Engine.
func (f *Factory) Process() {
	for e := f.ring.Front(); e != nil; e = e.Next() {
		e.Value.(*Context).Process()
	}
}

// Len reports the number of contexts currently linked into the ring.
func (f *Factory) Len() int { return f.ring.Len() }
