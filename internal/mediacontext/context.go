// Package mediacontext implements the per-session association matrix
// over media terminations and compiles it into a graph of stream
// processing objects, advanced once per media tick.
//
// Grounded on original_source/trunk/libs/mpf/src/mpf_context.c: a fixed
// capacity header/matrix arena plus a factory ring of non-empty contexts.
package mediacontext

import (
	"container/list"

	"firestige.xyz/otus/internal/termination"
)

type headerItem struct {
	termination *termination.Termination
	txCount     int
	rxCount     int
}

// Context is a fixed-capacity association matrix over media terminations.
type Context struct {
	capacity int
	count    int
	header   []headerItem
	matrix   [][]bool
	topology []streamProcessor

	factory  *Factory
	ringElem *list.Element // non-nil iff linked into factory's ring

	// Warnf receives a log line when topology compilation silently drops
	// an edge (sampling-rate mismatch). Defaults to a no-op.
	Warnf func(format string, args ...any)
}

// New creates an empty context of the given capacity, not yet linked
// into factory's ring (it joins on the first add_termination).
func New(factory *Factory, capacity int) *Context {
	matrix := make([][]bool, capacity)
	for i := range matrix {
		matrix[i] = make([]bool, capacity)
	}
	return &Context{
		capacity: capacity,
		header:   make([]headerItem, capacity),
		matrix:   matrix,
		factory:  factory,
		Warnf:    func(string, ...any) {},
	}
}

// Count returns the number of terminations currently held.
func (c *Context) Count() int { return c.count }

// Capacity returns the fixed slot capacity.
func (c *Context) Capacity() int { return c.capacity }

// InRing reports whether the context is currently linked into its
// factory's ring (invariant: true iff Count() > 0).
func (c *Context) InRing() bool { return c.ringElem != nil }

// AddTermination finds the first empty header slot, stores t, and sets
// t.Slot accordingly. On the 0->1 transition the context is inserted
// into the factory ring. Returns false if no free slot exists.
func (c *Context) AddTermination(t *termination.Termination) bool {
	for i := range c.header {
		if c.header[i].termination != nil {
			continue
		}
		if c.count == 0 {
			c.ringElem = c.factory.link(c)
		}
		c.header[i] = headerItem{termination: t}
		t.Slot = i
		c.count++
		return true
	}
	return false
}

// SubtractTermination clears every association bit in t's row and
// column, adjusts the other endpoints' counters, clears the header slot,
// and detaches t. On the 1->0 transition the context is unlinked from
// the factory ring. Returns false if t isn't attached at the slot it
// claims, or the slot doesn't hold t.
func (c *Context) SubtractTermination(t *termination.Termination) bool {
	i := t.Slot
	if i < 0 || i >= c.capacity || c.header[i].termination != t {
		return false
	}
	for j := 0; j < c.capacity; j++ {
		other := &c.header[j]
		if other.termination == nil {
			continue
		}
		if c.matrix[i][j] {
			c.matrix[i][j] = false
			c.header[i].txCount--
			other.rxCount--
		}
		if c.matrix[j][i] {
			c.matrix[j][i] = false
			other.txCount--
			c.header[i].rxCount--
		}
	}
	c.header[i] = headerItem{}
	t.Slot = termination.Unattached
	c.count--
	if c.count == 0 {
		c.factory.unlink(c.ringElem)
		c.ringElem = nil
	}
	return true
}

// AddAssociation sets the directed bit for each of the two directions
// independently, when not already set and the source/sink stream modes
// are compatible. Returns false if either termination isn't attached.
func (c *Context) AddAssociation(t1, t2 *termination.Termination) bool {
	i, j := t1.Slot, t2.Slot
	if i < 0 || i >= c.capacity || j < 0 || j >= c.capacity {
		return false
	}
	if c.header[i].termination != t1 || c.header[j].termination != t2 {
		return false
	}
	if !c.matrix[i][j] && streamCompatible(t1, t2) {
		c.matrix[i][j] = true
		c.header[i].txCount++
		c.header[j].rxCount++
	}
	if !c.matrix[j][i] && streamCompatible(t2, t1) {
		c.matrix[j][i] = true
		c.header[j].txCount++
		c.header[i].rxCount++
	}
	return true
}

// RemoveAssociation clears both directions' bits if set, decrementing
// counts. Returns false if either termination isn't attached.
func (c *Context) RemoveAssociation(t1, t2 *termination.Termination) bool {
	i, j := t1.Slot, t2.Slot
	if i < 0 || i >= c.capacity || j < 0 || j >= c.capacity {
		return false
	}
	if c.header[i].termination != t1 || c.header[j].termination != t2 {
		return false
	}
	if c.matrix[i][j] {
		c.matrix[i][j] = false
		c.header[i].txCount--
		c.header[j].rxCount--
	}
	if c.matrix[j][i] {
		c.matrix[j][i] = false
		c.header[j].txCount--
		c.header[i].rxCount--
	}
	return true
}

// ResetAssociations destroys the compiled topology, then clears every
// set bit and zeroes every tx/rx count. Iterates only j>=i per row since
// both directions are cleared on each visit (avoids double-counting).
// Idempotent.
func (c *Context) ResetAssociations() {
	c.DestroyTopology()
	seen := 0
	for i := 0; i < c.capacity && seen < c.count; i++ {
		if c.header[i].termination == nil {
			continue
		}
		seen++
		if c.header[i].txCount == 0 && c.header[i].rxCount == 0 {
			continue
		}
		for j := i; j < c.capacity; j++ {
			if c.header[j].termination == nil {
				continue
			}
			if c.matrix[i][j] {
				c.matrix[i][j] = false
				c.header[i].txCount--
				c.header[j].rxCount--
			}
			if c.matrix[j][i] {
				c.matrix[j][i] = false
				c.header[j].txCount--
				c.header[i].rxCount--
			}
		}
	}
}

// ApplyTopology destroys any existing compiled topology, then builds a
// fresh one: for every ordered pair (i,j) with matrix[i][j]==1, a
// connection object is constructed and appended in order.
func (c *Context) ApplyTopology() {
	c.DestroyTopology()
	for i := 0; i < c.capacity; i++ {
		if c.header[i].termination == nil {
			continue
		}
		for j := 0; j < c.capacity; j++ {
			if c.header[j].termination == nil {
				continue
			}
			if !c.matrix[i][j] {
				continue
			}
			if obj := newConnection(c.header[i].termination, c.header[j].termination, c.Warnf); obj != nil {
				c.topology = append(c.topology, obj)
			}
		}
	}
}

// DestroyTopology calls each compiled object's destructor hook in order
// and empties the list.
func (c *Context) DestroyTopology() {
	for _, obj := range c.topology {
		obj.destroy()
	}
	c.topology = c.topology[:0]
}

// Process advances each compiled object one step, in list order. Called
// once per media tick by the owning Factory.
func (c *Context) Process() {
	for _, obj := range c.topology {
		obj.process()
	}
}

func streamCompatible(src, sink *termination.Termination) bool {
	return src.CanReceive() && sink.CanSend()
}

// newConnection builds the stream processor for src -> sink, following
// the construction rules of spec.md §4.1, or returns nil if no object
// should be produced (mode mismatch, missing codec, or sampling-rate
// mismatch — resampling is a non-goal).
func newConnection(src, sink *termination.Termination, warnf func(string, ...any)) streamProcessor {
	if !streamCompatible(src, sink) {
		return nil
	}
	rx, tx := src.RxCodec, sink.TxCodec
	if rx == nil || tx == nil {
		return nil
	}
	if rx.Matches(*tx) {
		return newNullBridge(src, sink)
	}
	if rx.SamplingRate != tx.SamplingRate {
		// Resampling across differing sample rates is a non-goal; no
		// connection object is produced, media does not flow on this edge.
		if warnf != nil {
			warnf("sampling rate mismatch: rx=%d tx=%d, dropping edge", rx.SamplingRate, tx.SamplingRate)
		}
		return nil
	}
	var srcEnd streamEnd = terminationEnd{src}
	if src.HasDecodeVTable() {
		srcEnd = newDecoder(src)
	}
	var sinkEnd streamEnd = terminationEnd{sink}
	if sink.HasEncodeVTable() {
		sinkEnd = newEncoder(sink)
	}
	return newBridge(srcEnd, sinkEnd)
}
