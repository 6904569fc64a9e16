package closureiter

import "closureiter/pkg/ast"

// The state-splitter. This is the central recursive pass: it walks the
// (already yield-free-in-expression, already return-unrolled) body and
// produces the list of state records threaded through Pass.states,
// replacing every suspension and exit point with an explicit GotoState
// marker.
//
// stateLoopLabel names the block the assignment-lowering stage wraps the
// concatenated states in; break statements this component synthesizes for
// the dynamic afterUnroll dispatch target that label directly, bypassing
// the abstract GotoState marker since their target is only known at
// runtime.
const stateLoopLabel = "stateLoop"

// newState allocates a fresh State with the next sentinel id and tracks it
// in Pass.states so it participates in empty-state folding and body
// concatenation.
func (p *Pass) newState() *ast.State {
	s := ast.NewState(p.ids.Next())
	p.states = append(p.states, s)
	return s
}

// contState returns the state the remainder of a statement list (after a
// control-flow-bearing statement) should be spliced into: outState itself
// when nothing remains, otherwise a fresh state populated by recursing on
// the remainder — split off the suffix into a fresh state and recurse into
// it with the original outState.
func (p *Pass) contState(rest []ast.Statement, outState *ast.State, nearestFinally *ast.State) *ast.State {
	if len(rest) == 0 {
		return outState
	}
	s := p.newState()
	p.splitInto(s, &ast.StmtList{Stmts: rest}, outState, nearestFinally)
	return s
}

// splitInto fills s.Body by splitting sl against outState/nearestFinally.
func (p *Pass) splitInto(s *ast.State, sl *ast.StmtList, outState *ast.State, nearestFinally *ast.State) {
	var stmts []ast.Statement
	if sl != nil {
		stmts = sl.Stmts
	}
	s.Body = p.splitStmtSeq(stmts, outState, nearestFinally)
}

// splitStmtSeq handles the statement-list case: scan left-to-right for the
// first statement that hasControlFlow; everything
// before it is untouched prefix, everything after it becomes a fresh
// continuation state, and the statement itself is lowered via splitOneStmt.
// A list with no control-flow-bearing statement is left as-is, ended with
// goto_state outState.
func (p *Pass) splitStmtSeq(stmts []ast.Statement, outState *ast.State, nearestFinally *ast.State) []ast.Statement {
	for i, st := range stmts {
		if ast.StmtContainsControlFlow(st) {
			prefix := append([]ast.Statement{}, stmts[:i]...)
			cont := p.contState(stmts[i+1:], outState, nearestFinally)
			transformed := p.splitOneStmt(st, cont, nearestFinally)
			return append(prefix, transformed...)
		}
	}
	out := append([]ast.Statement{}, stmts...)
	return append(out, ast.NewGotoState(outState))
}

// splitOneStmt lowers one control-flow-bearing statement so that every
// path it can take eventually transfers to cont (or terminates the routine
// outright via return/raise).
func (p *Pass) splitOneStmt(st ast.Statement, cont *ast.State, nearestFinally *ast.State) []ast.Statement {
	switch n := st.(type) {
	case *ast.YieldStmt:
		return []ast.Statement{&ast.YieldStmt{Value: n.Value}, ast.NewGotoState(cont)}

	case *ast.Return, *ast.Raise:
		// Already terminal; any `return` reaching D still under a `try` would
		// have been rewritten by component C into an unroll sequence, so a
		// plain Return/Raise here is genuinely final.
		return []ast.Statement{n}

	case *ast.Break:
		return p.splitBreak(n, nearestFinally)

	case *ast.If:
		return []ast.Statement{p.splitIf(n, cont, nearestFinally)}

	case *ast.Case:
		return []ast.Statement{p.splitCase(n, cont, nearestFinally)}

	case *ast.While:
		return p.splitWhile(n, cont, nearestFinally)

	case *ast.Block:
		return p.splitBlock(n, cont, nearestFinally)

	case *ast.Try:
		return p.splitTry(n, cont, nearestFinally)

	case *ast.StmtList:
		return p.splitStmtSeq(n.Stmts, cont, nearestFinally)

	case *ast.GotoState:
		p.internal("statesplit", "GotoState marker reached component D from input — earlier passes must remove it")
		return nil

	default:
		p.internal("statesplit", "unsupported control-flow statement kind %T reached component D", st)
		return nil
	}
}

func (p *Pass) splitIf(n *ast.If, cont *ast.State, nearestFinally *ast.State) ast.Statement {
	then := p.splitStmtSeq(n.Then.Stmts, cont, nearestFinally)
	var els ast.Statement
	switch e := n.Else.(type) {
	case nil:
		els = ast.NewStmtList(ast.NewGotoState(cont))
	case *ast.If:
		els = p.splitIf(e, cont, nearestFinally)
	case *ast.StmtList:
		els = &ast.StmtList{Stmts: p.splitStmtSeq(e.Stmts, cont, nearestFinally)}
	default:
		els = &ast.StmtList{Stmts: p.splitStmtSeq([]ast.Statement{e}, cont, nearestFinally)}
	}
	return &ast.If{Cond: n.Cond, Then: &ast.StmtList{Stmts: then}, Else: els}
}

func (p *Pass) splitCase(n *ast.Case, cont *ast.State, nearestFinally *ast.State) ast.Statement {
	branches := make([]*ast.CaseBranch, len(n.Branches))
	for i, b := range n.Branches {
		branches[i] = &ast.CaseBranch{Tests: b.Tests, Body: &ast.StmtList{Stmts: p.splitStmtSeq(b.Body.Stmts, cont, nearestFinally)}}
	}
	var els *ast.StmtList
	if n.Else == nil {
		els = ast.NewStmtList(ast.NewGotoState(cont))
	} else {
		els = &ast.StmtList{Stmts: p.splitStmtSeq(n.Else.Stmts, cont, nearestFinally)}
	}
	return &ast.Case{Subject: n.Subject, Branches: branches, Else: els}
}

// splitWhile handles the While case: a fresh beginState holds
// the condition test; the body's own fall-through target is beginState
// (looping back to re-test), and falling out of the loop (condition false)
// transfers to cont.
func (p *Pass) splitWhile(n *ast.While, cont *ast.State, nearestFinally *ast.State) []ast.Statement {
	beginState := p.newState()
	bodyContent := p.splitStmtSeq(n.Body.Stmts, beginState, nearestFinally)
	beginState.Body = []ast.Statement{&ast.If{
		Cond: n.Cond,
		Then: &ast.StmtList{Stmts: bodyContent},
		Else: ast.NewStmtList(ast.NewGotoState(cont)),
	}}
	return []ast.Statement{ast.NewGotoState(beginState)}
}

// splitBlock registers the block's breakable scope for the duration of
// recursing into its body, then restores whatever scope (if any) the
// label previously named — Go map assignment/deletion stands in for a
// save/restore stack, since labels are assumed unique per routine in the
// common case and this still behaves correctly when they briefly shadow.
func (p *Pass) splitBlock(n *ast.Block, cont *ast.State, nearestFinally *ast.State) []ast.Statement {
	prev, hadPrev := p.scopes[n.Label]
	p.scopes[n.Label] = &breakTarget{outState: cont, nearestFinally: nearestFinally}
	p.scopeOrder = append(p.scopeOrder, n.Label)

	body := p.splitStmtSeq(n.Body.Stmts, cont, nearestFinally)

	p.scopeOrder = p.scopeOrder[:len(p.scopeOrder)-1]
	if hadPrev {
		p.scopes[n.Label] = prev
	} else {
		delete(p.scopes, n.Label)
	}
	return body
}

// splitBreak resolves a break against the registered breakable scopes,
// emitting either a direct jump or the partial-unroll protocol for a break
// to label L that crosses an intervening finally.
func (p *Pass) splitBreak(n *ast.Break, nearestFinally *ast.State) []ast.Statement {
	label := n.Label
	if label == "" {
		if len(p.scopeOrder) == 0 {
			p.internal("statesplit", "break with no enclosing block")
		}
		label = p.scopeOrder[len(p.scopeOrder)-1]
	}
	target, ok := p.scopes[label]
	if !ok {
		p.internal("statesplit", "break to undefined label %q", label)
	}

	if target.nearestFinally == nearestFinally {
		return []ast.Statement{ast.NewGotoState(target.outState)}
	}

	return []ast.Statement{
		ast.NewAssign(p.unrollFinallyAccess(), ast.NewLiteral(true)),
		ast.NewAssign(p.unrollUntilAccess(), ast.NewStateRef(target.nearestFinally, 0)),
		ast.NewAssign(p.afterUnrollAccess(), ast.NewStateRef(target.outState, -1)),
		ast.NewGotoState(nearestFinally),
	}
}

// splitTry handles the Try case. tryState/exceptState hold the body and
// except-dispatch regions; finallyState is reused from the try/return
// pre-processing stage's pre-allocation when a prior `return` already
// forced it into existence, otherwise allocated here.
func (p *Pass) splitTry(n *ast.Try, cont *ast.State, outerNearestFinally *ast.State) []ast.Statement {
	p.hasExceptions = true

	var finallyState *ast.State
	if n.Finally != nil {
		if n.FinallyState != nil {
			finallyState = n.FinallyState
			p.states = append(p.states, finallyState)
		} else {
			finallyState = p.newState()
		}
	}

	innerNearestFinally := outerNearestFinally
	bodyFallthrough := cont
	if finallyState != nil {
		innerNearestFinally = finallyState
		bodyFallthrough = finallyState
	}

	tryState := p.newState()

	var exceptState *ast.State
	if n.Except != nil {
		exceptState = p.newState()
		tryState.ExcHandlerState = exceptState
		tryState.ExcHandlerKind = ast.ExcExcept
		if finallyState != nil {
			exceptState.ExcHandlerState = finallyState
			exceptState.ExcHandlerKind = ast.ExcFinally
		}
	} else if finallyState != nil {
		tryState.ExcHandlerState = finallyState
		tryState.ExcHandlerKind = ast.ExcFinally
	}

	tryState.Body = p.splitStmtSeq(n.Body.Stmts, bodyFallthrough, innerNearestFinally)

	if exceptState != nil {
		p.addElseToExcept(n.Except, innerNearestFinally)
		exceptBody := []ast.Statement{p.nullifyCurExc()}
		exceptBody = append(exceptBody, p.buildExceptCascade(n.Except.Branches, n.Except.Else, bodyFallthrough, innerNearestFinally, 0))
		exceptState.Body = exceptBody
	}

	if finallyState != nil {
		p.buildFinallyState(finallyState, n.Finally, cont, outerNearestFinally)
	}

	return []ast.Statement{ast.NewGotoState(tryState)}
}

// buildExceptCascade turns the except branches (plus the else
// addElseToExcept guarantees is present) into a nested if/elif cascade
// testing the in-flight exception's type.
func (p *Pass) buildExceptCascade(branches []*ast.ExceptBranch, finalElse *ast.StmtList, cont *ast.State, nf *ast.State, i int) ast.Statement {
	if i >= len(branches) {
		return &ast.StmtList{Stmts: p.splitStmtSeq(finalElse.Stmts, cont, nf)}
	}
	b := branches[i]
	var thenPrefix []ast.Statement
	if b.Param != "" {
		thenPrefix = append(thenPrefix, ast.NewAssign(ast.NewIdent(b.Param), p.curExcAccess()))
	}
	thenBody := append(thenPrefix, p.splitStmtSeq(b.Body.Stmts, cont, nf)...)
	return &ast.If{
		Cond: p.excTypeTest(b.ExcTypes),
		Then: &ast.StmtList{Stmts: thenBody},
		Else: p.buildExceptCascade(branches, finalElse, cont, nf, i+1),
	}
}

// excTypeTest builds the "current exception is one of types" guard. An
// empty list (a bare `except:` with no named types) matches unconditionally.
func (p *Pass) excTypeTest(types []string) ast.Expression {
	if len(types) == 0 {
		return ast.NewLiteral(true)
	}
	test := p.oneExcTypeTest(types[0])
	for _, t := range types[1:] {
		test = &ast.LogicalOr{Left: test, Right: p.oneExcTypeTest(t)}
	}
	return test
}

func (p *Pass) oneExcTypeTest(typeName string) ast.Expression {
	return &ast.BinaryExpr{Op: "is", Left: p.getCurrentExceptionCall(), Right: ast.NewIdent(typeName)}
}

// buildFinallyState fills finallyState with the user's finally body
// followed by the end-of-finally sequence. The finally body's own
// nearestFinally is the OUTER one (a return inside a finally unrolls to
// the *next* enclosing finally, not back into this one), matching the
// try/return pre-processing stage's treatment of the same region.
func (p *Pass) buildFinallyState(finallyState *ast.State, userFinally *ast.StmtList, cont *ast.State, outerNearestFinally *ast.State) {
	endCheck := p.newState()
	finallyState.Body = p.splitStmtSeq(userFinally.Stmts, endCheck, outerNearestFinally)
	endCheck.Body = p.buildEndOfFinally(cont, outerNearestFinally)
}

// buildEndOfFinally builds the end-of-finally sequence: it decides,
// at runtime, whether this finally ran because of a pending partial unroll
// (resume at afterUnroll), a pending return (return tmpResult once curExc is
// nil), or a pending/uncaught exception (re-raise curExc after clearing the
// VM's notion of the current exception).
func (p *Pass) buildEndOfFinally(cont *ast.State, outerNearestFinally *ast.State) []ast.Statement {
	resumeBreak := ast.NewStmtList(
		ast.NewAssign(p.unrollFinallyAccess(), ast.NewLiteral(false)),
		ast.NewAssign(p.unrollUntilAccess(), ast.NewLiteral(-1)),
		p.dynamicGoto(p.afterUnrollAccess()),
	)

	var returnStmt ast.Statement
	if p.fn.HasReturnType {
		returnStmt = &ast.Return{Value: p.tmpResultAccess()}
	} else {
		returnStmt = &ast.Return{}
	}
	raiseStmt := ast.NewStmtList(
		&ast.ExprStmt{X: p.closureIterSetupExcCall(ast.NewLiteral(nil))},
		&ast.Raise{Value: p.curExcAccess()},
	)

	innerIf := &ast.If{
		Cond: &ast.BinaryExpr{Op: "==", Left: p.curExcAccess(), Right: ast.NewLiteral(nil)},
		Then: ast.NewStmtList(returnStmt),
		Else: raiseStmt,
	}

	outerUnrollCheck := &ast.If{
		Cond: &ast.BinaryExpr{Op: "==", Left: p.unrollUntilAccess(), Right: ast.NewStateRef(outerNearestFinally, 0)},
		Then: resumeBreak,
		Else: ast.NewStmtList(innerIf),
	}

	fallthroughToCont := ast.NewGotoState(cont)
	return []ast.Statement{
		&ast.If{
			Cond: p.unrollFinallyAccess(),
			Then: ast.NewStmtList(outerUnrollCheck),
			Else: ast.NewStmtList(fallthroughToCont),
		},
	}
}

// dynamicGoto implements the one genuinely runtime-determined jump the
// pass ever emits: "goto_state afterUnroll", where the target state id is
// only known by reading a hidden variable. Every other GotoState in this
// pass names a statically-known successor via pointer, so it is lowered
// through the usual state-assignment rewrite; this one is synthesized
// already in its final `state := <expr>; break stateLoop` form since there
// is no state pointer to resolve here.
func (p *Pass) dynamicGoto(value ast.Expression) ast.Statement {
	return &ast.StmtList{Stmts: []ast.Statement{
		p.assignState(value),
		&ast.Break{Label: stateLoopLabel},
	}}
}
