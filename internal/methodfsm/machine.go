// Package methodfsm defines the seam between the session core and the
// per-resource MRCP method state machines (IDLE -> RECOGNIZING -> ... for
// a recognizer, IDLE -> SPEAKING -> ... for a synthesizer). Those
// resource-specific states are out of scope for the core (spec.md §1):
// "the core only routes messages into/out of them". This package is
// that routing seam plus a generic, resource-agnostic Machine the core
// can wire up and exercise in tests, standing in for a real plugin.
//
// Grounded on plugins/handler/skywalking/dialog/state.go's DialogState
// interface (Name/IsTerminated/HandleMessage/Enter/Exit), generalized
// from SIP dialog states to MRCP method states.
package methodfsm

// Request is one client request message dispatched into a Machine.
type Request struct {
	Method string
	Body   []byte
}

// Outbound is what a Machine hands back through Deliver: a RESPONSE
// (advances the session's signaling queue) or an EVENT (does not).
type Outbound struct {
	IsEvent bool
	Method  string
	Body    []byte
}

// Machine is the per-resource MRCP method state machine interface the
// session wires a channel's dispatch/deactivate callbacks to, per
// spec.md §4.3 "Resource / control-media offer" step 2.
type Machine interface {
	// Name reports the current state's name, for logging.
	Name() string
	// Dispatch hands req to the current state, delivering any
	// RESPONSE/EVENT produced through deliver. Any state transition is
	// internal to the machine; only an error is returned.
	Dispatch(req Request, deliver func(Outbound)) error
	// Deactivate begins quiescing the machine; it invokes done exactly
	// once, synchronously if already quiesced or asynchronously once it
	// reaches a terminated state.
	Deactivate(done func())
	// IsTerminated reports whether the machine has reached its terminal
	// state and will process no further requests.
	IsTerminated() bool
}

// State is the unit a Generic machine transitions between. Modeled
// directly on DialogState; a real resource plugin defines its own
// richer set (RECOGNIZING, SPEAKING, RECORDING, ...).
type State interface {
	Name() string
	IsTerminated() bool
	HandleMessage(req Request, deliver func(Outbound)) (State, error)
	Enter()
	Exit()
}

// Generic is a resource-agnostic Machine with three states: Idle,
// Active (a request is in flight), Terminated. Used where the session
// needs a working Machine but no resource-specific plugin is wired
// (e.g. in tests, or a resource with no interesting method semantics).
type Generic struct {
	current State
}

// NewGeneric starts a Generic machine in its Idle state.
func NewGeneric() *Generic {
	g := &Generic{current: &idleState{}}
	g.current.Enter()
	return g
}

func (g *Generic) Name() string { return g.current.Name() }

func (g *Generic) Dispatch(req Request, deliver func(Outbound)) error {
	next, err := g.current.HandleMessage(req, deliver)
	if next != nil && next != g.current {
		g.current.Exit()
		g.current = next
		g.current.Enter()
	}
	return err
}

func (g *Generic) Deactivate(done func()) {
	if g.current.IsTerminated() {
		done()
		return
	}
	g.current.Exit()
	g.current = &terminatedState{}
	g.current.Enter()
	done()
}

func (g *Generic) IsTerminated() bool { return g.current.IsTerminated() }

type idleState struct{}

func (s *idleState) Name() string      { return "IDLE" }
func (s *idleState) IsTerminated() bool { return false }
func (s *idleState) Enter()            {}
func (s *idleState) Exit()             {}

func (s *idleState) HandleMessage(req Request, deliver func(Outbound)) (State, error) {
	deliver(Outbound{Method: req.Method, Body: req.Body})
	return &activeState{}, nil
}

type activeState struct{}

func (s *activeState) Name() string      { return "ACTIVE" }
func (s *activeState) IsTerminated() bool { return false }
func (s *activeState) Enter()            {}
func (s *activeState) Exit()             {}

func (s *activeState) HandleMessage(req Request, deliver func(Outbound)) (State, error) {
	deliver(Outbound{Method: req.Method, Body: req.Body})
	return &idleState{}, nil
}

type terminatedState struct{}

func (s *terminatedState) Name() string      { return "TERMINATED" }
func (s *terminatedState) IsTerminated() bool { return true }
func (s *terminatedState) Enter()            {}
func (s *terminatedState) Exit()             {}

func (s *terminatedState) HandleMessage(req Request, deliver func(Outbound)) (State, error) {
	return s, errTerminated
}
