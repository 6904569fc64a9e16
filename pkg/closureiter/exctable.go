package closureiter

import "closureiter/pkg/ast"

// Exception-table builder and catch wrapper. Only runs when state
// splitting saw at least one Try.

// maxInt16 bounds the default table width: this pass uses a 16-bit signed
// table by default (Config.ExceptionTableWidth == Int16) and reports an
// internal error rather than silently truncating when a state id would
// overflow it; Int32 opts out of the check entirely. See DESIGN.md for why
// this module keeps the narrower default.
const maxInt16 = 1<<15 - 1

// buildExceptionTable builds T[state_id] -> handler_state_id, one entry per
// final (post-fold) state, in a signed +finally/-except/0-none encoding.
func (p *Pass) buildExceptionTable() []int32 {
	table := make([]int32, len(p.states))
	for _, s := range p.states {
		var entry int
		switch s.ExcHandlerKind {
		case ast.ExcFinally:
			entry = s.ExcHandlerState.ID
		case ast.ExcExcept:
			entry = -s.ExcHandlerState.ID
		default:
			entry = 0
		}
		if p.cfg.ExceptionTableWidth == Int16 && (entry > maxInt16 || entry < -maxInt16) {
			p.internal("exctable", "exception table entry %d for state %d overflows int16", entry, s.ID)
		}
		table[s.ID] = int32(entry)
	}
	return table
}

// excTableIdent names the compiler-materialized constant array; like
// `state`/`tmpResult`, it is referenced by a conventional identifier — the
// actual `const` emission is left to the later code-generation pass this
// core hands off to.
func (p *Pass) excTableIdent() ast.Expression {
	return ast.NewIdent(p.fn.Name + "$excTable")
}

// wrapWithCatch builds the runtime catch dispatcher: block is the
// `block stateLoop: ...` scaffold state-assignment lowering built; the
// try/except wraps it directly (not the outer while) so that falling out
// of the except handler re-enters the while and, via the now-updated
// `state`, the dispatch inside block.
func (p *Pass) wrapWithCatch(block *ast.Block) ast.Statement {
	tryBody := ast.NewStmtList(
		&ast.ExprStmt{X: p.closureIterSetupExcCall(p.curExcAccess())},
		block,
	)

	lookup := &ast.Bracket{Obj: p.excTableIdent(), Index: p.stateAccess()}
	handlerAssign := ast.NewAssign(p.stateAccess(), lookup)
	raiseIfUnhandled := &ast.If{
		Cond: &ast.BinaryExpr{Op: "==", Left: p.stateAccess(), Right: ast.NewLiteral(0)},
		Then: ast.NewStmtList(&ast.Raise{}),
	}
	unrollFinallyAssign := ast.NewAssign(p.unrollFinallyAccess(),
		&ast.BinaryExpr{Op: "<", Left: ast.NewLiteral(0), Right: p.stateAccess()})
	unrollUntilAssign := ast.NewAssign(p.unrollUntilAccess(), ast.NewLiteral(-1))
	negateIfExcept := &ast.If{
		Cond: &ast.BinaryExpr{Op: "<", Left: p.stateAccess(), Right: ast.NewLiteral(0)},
		Then: ast.NewStmtList(ast.NewAssign(p.stateAccess(), &ast.UnaryExpr{Op: "-", Operand: p.stateAccess()})),
	}
	curExcAssign := ast.NewAssign(p.curExcAccess(), p.getCurrentExceptionCall())

	exceptBody := ast.NewStmtList(
		handlerAssign,
		raiseIfUnhandled,
		unrollFinallyAssign,
		unrollUntilAssign,
		negateIfExcept,
		curExcAssign,
	)

	return &ast.Try{
		Body:   tryBody,
		Except: &ast.Except{Branches: []*ast.ExceptBranch{{Body: exceptBody}}},
	}
}
