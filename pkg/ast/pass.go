package ast

import "fmt"

// State and GotoState are the two node kinds the closure-iterator pass
// introduces. They are valid Statement nodes so that the rest of the tree —
// and the final lowering step that collapses them to labels and a computed
// goto — can treat them like any other statement.

// ExcKind distinguishes the two handler-target flavors encoded via the
// sign of the exception table entry: finally vs. except.
type ExcKind int

const (
	ExcNone ExcKind = iota
	ExcFinally
	ExcExcept
)

// State is one labeled basic block of the synthesized state machine.
//
// ExcHandlerState/ExcHandlerKind encode a tri-state "+k / -k / empty":
// ExcKind == ExcNone is "empty" (no handler in scope); ExcFinally means
// "on exception, jump to finally state k" and ExcExcept means "jump to
// except state k". The handler is stored as a pointer to the target State
// rather than a captured integer, for the same reason GotoState is: the
// state-splitting step runs before ids are renumbered to their final,
// contiguous form, so anything computed during splitting that needs a
// state's *final* id must stay a pointer until renumbering has happened
// (see pkg/closureiter/exctable.go, which resolves these after folding).
//
// ID holds a provisional sentinel (see NewState) until the empty-state
// folding step assigns final, contiguous 0-based indices. Because every
// GotoState refers to a State by pointer rather than by captured integer,
// mutating ID in place here is what makes folding silently redirect every
// existing jump.
type State struct {
	base
	ID             int
	Body           []Statement
	ExcHandlerState *State
	ExcHandlerKind  ExcKind
}

func (*State) statementNode()      {}
func (s *State) TokenLiteral() string { return "state" }
func (s *State) String() string       { return fmt.Sprintf("state %d {...}", s.ID) }

// sentinelBase is the provisional id new states receive before folding
// renumbers them (see Open Questions in DESIGN.md for the chosen bound).
const sentinelBase = 10000

// NewState allocates a new State with a provisional sentinel id,
// `ordinal + sentinelBase`, so that pre-fold ids of distinct states
// constructed in the same pass run never collide.
func NewState(ordinal int) *State {
	return &State{ID: ordinal + sentinelBase}
}

// GotoState is an unresolved jump to another state, or to the virtual exit
// state when Target is nil. The exit state is never itself stored in the
// state list and always resolves to id -1.
type GotoState struct {
	base
	Target *State
}

func (*GotoState) statementNode()      {}
func (g *GotoState) TokenLiteral() string { return "goto_state" }
func (g *GotoState) String() string       { return fmt.Sprintf("goto_state %d", g.TargetID()) }

// TargetID resolves the current id of the jump's target: -1 for the
// virtual exit state, otherwise the Target State's current ID (which may
// still be a sentinel if folding hasn't run yet).
func (g *GotoState) TargetID() int {
	if g.Target == nil {
		return -1
	}
	return g.Target.ID
}

// NewGotoState builds a goto to state t (nil for the exit state).
func NewGotoState(t *State) *GotoState {
	return &GotoState{Target: t}
}

// StateRef is an expression that evaluates to a state's id, resolved late.
// The end-of-finally protocol and partial-unroll break handling write a
// target state's id into a hidden variable (`unrollUntil`, `afterUnroll`)
// while state-splitting is still in progress — before final ids have been
// assigned. Baking an int literal at that point would go stale the moment
// folding removes an empty state out from under it, so these writes hold a
// StateRef instead; the final assignment-lowering walk (after folding) is
// what turns every remaining StateRef into a plain Literal.
//
// Or is the value used when Target is nil — the partial-unroll rule reads
// "unrollUntil := L.nearestFinally (or 0 if none)", so a StateRef built
// from a possibly-absent enclosing finally carries Or: 0 to reproduce that
// exact fallback.
type StateRef struct {
	base
	Target *State
	Or     int
}

func (*StateRef) expressionNode()        {}
func (r *StateRef) TokenLiteral() string { return "stateref" }
func (r *StateRef) String() string       { return fmt.Sprintf("stateref(%d)", r.Value()) }

// Value resolves the current id: Or when Target is nil, otherwise
// Target.ID (final only after component G has run).
func (r *StateRef) Value() int {
	if r.Target == nil {
		return r.Or
	}
	return r.Target.ID
}

// NewStateRef builds a StateRef falling back to or when target is nil.
func NewStateRef(target *State, or int) *StateRef {
	return &StateRef{Target: target, Or: or}
}

// EnvType is the minimal stand-in for the heap-allocated environment
// record a prior lambda-lifting pass produces. Fields are added in
// allocation order; the state field must land at index 0 whenever an
// EnvType exists, since the dispatch loop reads it every iteration.
type EnvType struct {
	Name   string
	Fields []*Identifier
	names  map[string]int
}

// NewEnvType creates an (initially empty) environment record type.
func NewEnvType(name string) *EnvType {
	return &EnvType{Name: name, names: map[string]int{}}
}

// AddUniqueField appends sym as a new field if no field of that name
// exists yet, returning the (possibly pre-existing) field identifier.
// Mirrors pkg/compiler/heap_alloc.go's GetOrAssignIndex, generalized from a
// flat heap index to a named struct field.
func (e *EnvType) AddUniqueField(sym *Identifier) *Identifier {
	if idx, ok := e.names[sym.Name]; ok {
		return e.Fields[idx]
	}
	e.names[sym.Name] = len(e.Fields)
	e.Fields = append(e.Fields, sym)
	return sym
}

// FieldIndex reports the 0-based slot of a field, if present.
func (e *EnvType) FieldIndex(name string) (int, bool) {
	idx, ok := e.names[name]
	return idx, ok
}

// FuncSymbol is the minimal stand-in for the routine being transformed.
// Everything about parameter lists, generics, and the rest of a real
// function symbol is out of scope; the pass only needs a name, whether it
// lambda-lifted already, and whether it has a non-unit return type — the
// result temporary is only created when the routine returns a value.
type FuncSymbol struct {
	Name          string
	HasReturnType bool
	Env           *EnvType // nil ⇔ lambda-lifting has not yet run
}
