// Package mediaengine is the server-side analogue of an MRCP media
// processing engine: it owns a set of media contexts and a single
// goroutine ("media thread") that applies batches of commands against
// them and ticks their compiled topologies forward.
//
// Grounded on internal/scheduler's job-owns-a-goroutine pattern
// (scheduler.go, job.go) for the one-goroutine-per-engine shape, and on
// internal/task/manager.go's registry-of-named-instances idiom for
// Contexts. The batching/async-completion protocol itself is new — it
// implements spec.md §4.2/§6 — but the control flow (single owning
// goroutine reading off a command channel and a ticker) copies the
// teacher's job runloop structure.
package mediaengine

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"firestige.xyz/otus/internal/mediacontext"
	"firestige.xyz/otus/internal/metrics"
	"firestige.xyz/otus/internal/mrcptypes"
	"firestige.xyz/otus/internal/termination"
)

// submission pairs a batch with the channel its completion events are
// delivered on.
type submission struct {
	batch     *Batch
	responses chan<- CompletionEvent
}

// Engine owns a Factory (the ring of active contexts) and runs the
// single goroutine that mutates every context belonging to it.
type Engine struct {
	name   string
	tick   time.Duration
	logger *logrus.Entry

	factory *mediacontext.Factory

	// Allocate produces the local endpoint for a new or modified RTP
	// termination (port reservation is outside this package's scope; no
	// allocator is provided in this repository and internal/daemon does
	// not set one). Defaults to an allocator that always fails,
	// so an engine built without one surfaces the mistake immediately
	// rather than silently handing out a zero endpoint.
	Allocate func() (mrcptypes.AudioEndpoint, error)

	submit chan submission

	mu       sync.RWMutex
	contexts map[string]*mediacontext.Context

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an engine that ticks its factory every tick and logs
// through logger (nil defaults to logrus.StandardLogger()).
func New(name string, tick time.Duration, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		name:    name,
		tick:    tick,
		logger:  logger.WithField("engine", name),
		factory: mediacontext.NewFactory(),
		Allocate: func() (mrcptypes.AudioEndpoint, error) {
			return mrcptypes.AudioEndpoint{}, errNoAllocator
		},
		submit:   make(chan submission, 64),
		contexts: make(map[string]*mediacontext.Context),
		done:     make(chan struct{}),
	}
}

// NewContext creates and registers a context of the given capacity under
// id (typically the owning session's ID), linked to this engine's
// factory.
func (e *Engine) NewContext(id string, capacity int) *mediacontext.Context {
	c := mediacontext.New(e.factory, capacity)
	entry := e.logger.WithField("context", id)
	c.Warnf = func(format string, args ...any) { entry.Warnf(format, args...) }
	e.mu.Lock()
	e.contexts[id] = c
	e.mu.Unlock()
	metrics.MediaEngineContexts.WithLabelValues(e.name).Inc()
	return c
}

// ReleaseContext drops the bookkeeping entry for id. The context itself
// must already be empty (its last termination subtracted), at which
// point the factory has already unlinked it from the ring.
func (e *Engine) ReleaseContext(id string) {
	e.mu.Lock()
	delete(e.contexts, id)
	e.mu.Unlock()
	metrics.MediaEngineContexts.WithLabelValues(e.name).Dec()
}

// Context looks up a previously created context by id.
func (e *Engine) Context(id string) (*mediacontext.Context, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.contexts[id]
	return c, ok
}

// Len reports the number of contexts currently linked into the ring.
func (e *Engine) Len() int { return e.factory.Len() }

// Run starts the media thread; it blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	defer close(e.done)

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	e.logger.WithField("tick", e.tick).Info("media thread started")
	for {
		select {
		case <-runCtx.Done():
			e.logger.Info("media thread stopping")
			return
		case s := <-e.submit:
			e.applyBatch(s)
		case <-ticker.C:
			e.factory.Process()
		}
	}
}

// Stop cancels the media thread and waits for it to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	<-e.done
}

// Send enqueues batch for processing on the media thread. Responses are
// delivered to responses, one per command, in the batch's order and
// strictly before any response from a batch submitted afterward —
// never blocks the caller on completion, only on channel capacity.
func (e *Engine) Send(batch *Batch, responses chan<- CompletionEvent) {
	e.submit <- submission{batch: batch, responses: responses}
}

func (e *Engine) applyBatch(s submission) {
	for _, cmd := range s.batch.commands {
		ev := e.applyCommand(s.batch.Context, cmd)
		outcome := "ok"
		if ev.Err != nil {
			outcome = "error"
		}
		metrics.MediaEngineCommandsTotal.WithLabelValues(cmd.kind.String(), outcome).Inc()
		if s.responses != nil {
			s.responses <- ev
		}
	}
}

func (e *Engine) applyCommand(c *mediacontext.Context, cmd command) CompletionEvent {
	ev := CompletionEvent{Kind: cmd.kind, Term: cmd.term, Context: c}
	switch cmd.kind {
	case AddTermination:
		applyDescriptor(cmd.term, cmd.descriptor)
		if !c.AddTermination(cmd.term) {
			ev.Err = errNoFreeSlot
			break
		}
		if cmd.term.Kind == termination.KindRTP {
			local, err := e.Allocate()
			if err != nil {
				ev.Err = err
				break
			}
			cmd.term.Endpoint = local
			ev.Local = &cmd.term.Endpoint
		}
	case ModifyTermination:
		applyDescriptor(cmd.term, cmd.descriptor)
		ev.Local = &cmd.term.Endpoint
	case SubtractTermination:
		if !c.SubtractTermination(cmd.term) {
			ev.Err = errNotAttached
		}
	case AddAssociation:
		if !c.AddAssociation(cmd.term, cmd.term2) {
			ev.Err = errNotAttached
		}
	case RemoveAssociation:
		if !c.RemoveAssociation(cmd.term, cmd.term2) {
			ev.Err = errNotAttached
		}
	case ResetAssociations:
		c.ResetAssociations()
	case ApplyTopology:
		c.ApplyTopology()
	case DestroyTopology:
		c.DestroyTopology()
	}
	return ev
}

func applyDescriptor(t *termination.Termination, desc *mrcptypes.RTPDescriptor) {
	if desc == nil {
		return
	}
	codec := desc.Codec
	t.RxCodec = &codec
	t.TxCodec = &codec
	t.Mode = desc.Mode
}
