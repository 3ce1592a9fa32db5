package mediaengine

import (
	"firestige.xyz/otus/internal/mediacontext"
	"firestige.xyz/otus/internal/mrcptypes"
	"firestige.xyz/otus/internal/termination"
)

// CommandKind is the discriminant of a media-engine command message
// (spec.md §6 "Media engine message types").
type CommandKind int

const (
	AddTermination CommandKind = iota
	ModifyTermination
	SubtractTermination
	AddAssociation
	RemoveAssociation
	ResetAssociations
	ApplyTopology
	DestroyTopology
)

func (k CommandKind) String() string {
	switch k {
	case AddTermination:
		return "ADD_TERMINATION"
	case ModifyTermination:
		return "MODIFY_TERMINATION"
	case SubtractTermination:
		return "SUBTRACT_TERMINATION"
	case AddAssociation:
		return "ADD_ASSOCIATION"
	case RemoveAssociation:
		return "REMOVE_ASSOCIATION"
	case ResetAssociations:
		return "RESET_ASSOCIATIONS"
	case ApplyTopology:
		return "APPLY_TOPOLOGY"
	case DestroyTopology:
		return "DESTROY_TOPOLOGY"
	default:
		return "UNKNOWN"
	}
}

// command is one entry in a Batch, holding whichever arguments its Kind
// needs.
type command struct {
	kind       CommandKind
	term       *termination.Termination
	term2      *termination.Termination
	descriptor *mrcptypes.RTPDescriptor
}

// CompletionEvent is posted back to the owning session once a command
// has been applied, exactly one per command that was added to a batch
// (spec.md §4.2).
type CompletionEvent struct {
	Kind    CommandKind
	Term    *termination.Termination
	Local   *mrcptypes.AudioEndpoint // ADD/MODIFY_TERMINATION only, when supplied
	Err     error
	Context *mediacontext.Context
}

// Batch is constructed incrementally by the orchestrator and sent in one
// call; every command in it is applied, in order, on the engine's own
// goroutine.
type Batch struct {
	Context  *mediacontext.Context
	commands []command
}

// NewBatch starts an empty batch of commands against ctx.
func NewBatch(ctx *mediacontext.Context) *Batch {
	return &Batch{Context: ctx}
}

// Len reports how many commands have been added so far — the orchestrator
// bumps its sub-request counter by this amount when the batch is sent.
func (b *Batch) Len() int { return len(b.commands) }

func (b *Batch) AddTermination(term *termination.Termination, desc *mrcptypes.RTPDescriptor) *Batch {
	b.commands = append(b.commands, command{kind: AddTermination, term: term, descriptor: desc})
	return b
}

func (b *Batch) ModifyTermination(term *termination.Termination, desc *mrcptypes.RTPDescriptor) *Batch {
	b.commands = append(b.commands, command{kind: ModifyTermination, term: term, descriptor: desc})
	return b
}

func (b *Batch) SubtractTermination(term *termination.Termination) *Batch {
	b.commands = append(b.commands, command{kind: SubtractTermination, term: term})
	return b
}

func (b *Batch) AddAssociation(t1, t2 *termination.Termination) *Batch {
	b.commands = append(b.commands, command{kind: AddAssociation, term: t1, term2: t2})
	return b
}

func (b *Batch) RemoveAssociation(t1, t2 *termination.Termination) *Batch {
	b.commands = append(b.commands, command{kind: RemoveAssociation, term: t1, term2: t2})
	return b
}

func (b *Batch) ResetAssociations() *Batch {
	b.commands = append(b.commands, command{kind: ResetAssociations})
	return b
}

func (b *Batch) ApplyTopology() *Batch {
	b.commands = append(b.commands, command{kind: ApplyTopology})
	return b
}

func (b *Batch) DestroyTopology() *Batch {
	b.commands = append(b.commands, command{kind: DestroyTopology})
	return b
}
