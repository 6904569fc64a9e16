// Package closureiter implements the closure-iterator lowering pass: it
// rewrites the body of a generator-style routine into an equivalent flat
// state machine expressed as a single state loop over a numbered program
// counter.
//
// The driver sequences the pass's stages in a fixed order: expression
// lowering → return-in-try rewriting → state splitting (recursing into
// try/except handling as needed) → empty-state folding → assignment
// lowering → exception-table construction.
package closureiter

import (
	"closureiter/pkg/ast"
	"closureiter/pkg/compilerapi"
	"closureiter/pkg/diag"
	"closureiter/pkg/idgen"
)

// IntWidth selects the integer width backing the exception table. The
// element type is fixed at 16-bit signed by default; iterators exceeding
// 32767 states would otherwise silently overflow.
type IntWidth int

const (
	// Int16 preserves the source behavior exactly.
	Int16 IntWidth = iota
	// Int32 widens the table, trading a little memory for headroom past
	// 32767 states.
	Int32
)

// Config controls pass-wide policy knobs that have no single obviously
// correct default.
type Config struct {
	// ExceptionTableWidth — see IntWidth. Defaults to Int16; see
	// DESIGN.md for why this module keeps that choice rather than
	// silently widening it.
	ExceptionTableWidth IntWidth
	// OnInternalError, if set, is invoked before the pass returns its
	// error — the hook a real driver would use to route the failure to
	// its own diagnostic channel.
	OnInternalError func(diag.Error)
}

// breakTarget is one entry of the breakable-scopes table: a mapping from
// block-label identity to (outState, nearestFinally).
type breakTarget struct {
	outState       *ast.State
	nearestFinally *ast.State // nil if no enclosing finally at the point the label was registered
}

// Pass carries all state threaded through every stage for one
// transformClosureIterator call. It plays the role a Compiler struct
// (pkg/compiler/compiler.go) plays for bytecode compilation: a single
// struct accumulating mutable state across many small recursive methods
// split one-file-per-concern.
type Pass struct {
	graph compilerapi.ModuleGraph
	ids   *idgen.IdGenerator
	fn    *ast.FuncSymbol
	cfg   Config

	envIdent *ast.Identifier     // set iff lambda-lifting already ran
	slots    map[string]*slot    // hidden-variable/temp bookkeeping
	locals   []*ast.VarBinding   // collected locals, state first, when envIdent == nil

	states        []*ast.State // accumulated state records from splitting
	hasExceptions bool         // set whenever a Try is processed during splitting

	scopes     map[string]*breakTarget // breakable scopes, keyed by block label
	scopeOrder []string                // stack of currently-open block labels, for bare `break`

	err *diag.InternalError // first internal error encountered, if any
}

// NewPass constructs a Pass for one iterator body. fn.Env must already be
// non-nil when graph reports fn as lambda-lifted — the environment record
// is expected to pre-exist; this pass only adds fields to it.
func NewPass(graph compilerapi.ModuleGraph, ids *idgen.IdGenerator, fn *ast.FuncSymbol, cfg Config) *Pass {
	p := &Pass{
		graph:  graph,
		ids:    ids,
		fn:     fn,
		cfg:    cfg,
		slots:  map[string]*slot{},
		scopes: map[string]*breakTarget{},
	}
	if env, ok := graph.EnvParam(fn); ok {
		p.envIdent = env
	}
	// Force `state` to be the first hidden variable allocated, so it lands
	// at field/local index 0 regardless of what callers touch first.
	p.getOrCreate("state")
	return p
}

// internal records (once) and panics with an internal error, the uniform
// failure path for every invariant violation this pass can detect. Driver
// code recovers this panic at the Transform boundary and turns it back
// into a returned error: a fatal, unrecoverable abort of the current
// translation unit.
func (p *Pass) internal(stage, format string, args ...interface{}) {
	pos := diag.Position{}
	err := diag.NewInternal(pos, stage, format, args...)
	p.err = err
	if p.cfg.OnInternalError != nil {
		p.cfg.OnInternalError(err)
	}
	panic(err)
}

// internalAt is internal with an explicit source position, for a check
// that knows the offending node. Every current check in this package calls
// internal instead.
func (p *Pass) internalAt(pos diag.Position, stage, format string, args ...interface{}) {
	err := diag.NewInternal(pos, stage, format, args...)
	p.err = err
	if p.cfg.OnInternalError != nil {
		p.cfg.OnInternalError(err)
	}
	panic(err)
}

// Result is everything Transform produces: the state list (already folded
// and id-assigned), the exception table when needed, and the final
// rewritten body ready for a later lowering pass to turn State/GotoState
// into labels and a computed goto.
type Result struct {
	Body          ast.Statement
	States        []*ast.State
	HasExceptions bool
	ExceptionTable []int32 // widened to int32 for Go convenience; see exctable.go for the configured bit width actually honored
}

// Transform rewrites an iterator body into its flat state-machine form:
// transformClosureIterator(moduleGraph, idGen, iteratorSymbol, body) → new
// body. Transform runs expression lowering and return-in-try rewriting
// itself before handing off to the state splitter, covering the full
// pipeline end to end.
func Transform(graph compilerapi.ModuleGraph, ids *idgen.IdGenerator, fn *ast.FuncSymbol, body *ast.StmtList, cfg Config) (res *Result, err error) {
	p := NewPass(graph, ids, fn, cfg)
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*diag.InternalError); ok {
				err = ie
				return
			}
			panic(r)
		}
	}()

	// B: eliminate yield from expression context.
	lowered := p.lowerStmtList(body)

	// C (return half): rewrite `return` inside try as a finally-unroll.
	lowered = p.transformReturnsInTry(lowered, nil)

	// D: split into states. The exit state is the virtual -1 target (nil
	// outState).
	entry := ast.NewState(p.ids.Next())
	p.states = append(p.states, entry)
	p.splitInto(entry, lowered, nil, nil)

	// G: fold empty states (compacts indices onto p.states).
	p.foldEmptyStates()

	// F: lower GotoState/YieldStmt/Return markers into state assignments,
	// building the `block stateLoop: ...` dispatch scaffold.
	block := p.lowerAssignments()

	// E: build the exception table and wrap the block (not the outer
	// while) with the catch dispatcher, only when any Try was encountered
	// during splitting — the except handler must sit inside the while so
	// that updating `state` and falling out of it re-enters the dispatch.
	var loopBody ast.Statement = block
	var table []int32
	if p.hasExceptions {
		table = p.buildExceptionTable()
		loopBody = p.wrapWithCatch(block)
	}
	finalBody := &ast.While{Cond: ast.NewLiteral(true), Body: ast.NewStmtList(loopBody)}

	return &Result{
		Body:           finalBody,
		States:         p.states,
		HasExceptions:  p.hasExceptions,
		ExceptionTable: table,
	}, nil
}
