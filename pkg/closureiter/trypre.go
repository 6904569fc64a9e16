package closureiter

import "closureiter/pkg/ast"

// Try/return/break pre-processing.
//
// transformReturnsInTry rewrites every `return e` lexically within a try
// whose nearest enclosing finally is F into the finally-unroll protocol.
// It runs before state splitting, so F's State cannot yet have a final
// body — but it can already exist as a forward-referenced pointer.
// Try.FinallyState is allocated here, on first need, and handed to the
// splitter unchanged: when splitting later processes that same Try node it
// reuses this pointer as its finallyState rather than allocating a fresh
// one, so every goto_state this pass emits keeps pointing at the right
// block once splitting fills in its body.

// transformReturnsInTry recurses sl, rewriting `return` statements reached
// with a non-nil nearestFinally in scope. nearestFinally is nil at the
// routine's top level; entering a try with a Finally updates it to that
// try's (possibly freshly allocated) FinallyState for the Body and Except
// regions, while Finally's own body keeps seeing whatever enclosed the try.
func (p *Pass) transformReturnsInTry(sl *ast.StmtList, nearestFinally *ast.State) *ast.StmtList {
	if sl == nil {
		return nil
	}
	out := make([]ast.Statement, 0, len(sl.Stmts))
	for _, s := range sl.Stmts {
		out = append(out, p.transformReturnStmt(s, nearestFinally))
	}
	return &ast.StmtList{Stmts: out}
}

func (p *Pass) transformReturnStmt(s ast.Statement, nearestFinally *ast.State) ast.Statement {
	switch n := s.(type) {
	case nil:
		return nil

	case *ast.Return:
		if nearestFinally == nil {
			return n
		}
		return p.buildReturnUnroll(n, nearestFinally)

	case *ast.If:
		then := p.transformReturnsInTry(n.Then, nearestFinally)
		var els ast.Statement
		switch e := n.Else.(type) {
		case nil:
			els = nil
		case *ast.StmtList:
			els = p.transformReturnsInTry(e, nearestFinally)
		default:
			els = p.transformReturnStmt(e, nearestFinally)
		}
		return &ast.If{Cond: n.Cond, Then: then, Else: els}

	case *ast.Case:
		branches := make([]*ast.CaseBranch, len(n.Branches))
		for i, b := range n.Branches {
			branches[i] = &ast.CaseBranch{Tests: b.Tests, Body: p.transformReturnsInTry(b.Body, nearestFinally)}
		}
		var els *ast.StmtList
		if n.Else != nil {
			els = p.transformReturnsInTry(n.Else, nearestFinally)
		}
		return &ast.Case{Subject: n.Subject, Branches: branches, Else: els}

	case *ast.While:
		return &ast.While{Cond: n.Cond, Body: p.transformReturnsInTry(n.Body, nearestFinally)}

	case *ast.Block:
		return &ast.Block{Label: n.Label, Body: p.transformReturnsInTry(n.Body, nearestFinally)}

	case *ast.Try:
		return p.transformReturnsInTryNode(n, nearestFinally)

	case *ast.StmtList:
		return p.transformReturnsInTry(n, nearestFinally)

	default:
		return n
	}
}

// transformReturnsInTryNode handles one Try node: its own finally body keeps
// seeing the outer nearestFinally, while Body and every except branch see
// this try's own finally (once allocated) when it has one.
func (p *Pass) transformReturnsInTryNode(n *ast.Try, outerFinally *ast.State) *ast.Try {
	inner := outerFinally
	if n.Finally != nil {
		if n.FinallyState == nil {
			n.FinallyState = ast.NewState(p.ids.Next())
		}
		inner = n.FinallyState
	}

	body := p.transformReturnsInTry(n.Body, inner)

	var except *ast.Except
	if n.Except != nil {
		branches := make([]*ast.ExceptBranch, len(n.Except.Branches))
		for i, b := range n.Except.Branches {
			branches[i] = &ast.ExceptBranch{
				ExcTypes: b.ExcTypes,
				Param:    b.Param,
				Body:     p.transformReturnsInTry(b.Body, inner),
			}
		}
		var els *ast.StmtList
		if n.Except.Else != nil {
			els = p.transformReturnsInTry(n.Except.Else, inner)
		}
		except = &ast.Except{Branches: branches, Else: els}
	}

	var finally *ast.StmtList
	if n.Finally != nil {
		finally = p.transformReturnsInTry(n.Finally, outerFinally)
	}

	return &ast.Try{Body: body, Except: except, Finally: finally, FinallyState: n.FinallyState}
}

// buildReturnUnroll builds the finally-unroll sequence for one `return e`
// reached inside a try whose nearest finally is f.
func (p *Pass) buildReturnUnroll(ret *ast.Return, f *ast.State) ast.Statement {
	var out []ast.Statement
	out = append(out, ast.NewAssign(p.unrollFinallyAccess(), ast.NewLiteral(true)))
	out = append(out, ast.NewAssign(p.unrollUntilAccess(), ast.NewLiteral(-1)))
	if ret.Value != nil {
		out = append(out, ast.NewAssign(p.tmpResultAccess(), ret.Value))
	}
	out = append(out, p.nullifyCurExc())
	out = append(out, ast.NewGotoState(f))
	return &ast.StmtList{Stmts: out}
}

// addElseToExcept: when the synthesized except dispatch cascade has no
// trailing else (not every exception class is covered), append one that
// unrolls to nearestFinally. Called from splitTry in statesplit.go while
// building each try's except region, since only the
// state splitter knows nearestFinally at that point.
func (p *Pass) addElseToExcept(except *ast.Except, nearestFinally *ast.State) {
	if except == nil || except.Else != nil {
		return
	}
	except.Else = ast.NewStmtList(
		ast.NewAssign(p.unrollFinallyAccess(), ast.NewLiteral(true)),
		ast.NewAssign(p.unrollUntilAccess(), ast.NewLiteral(-1)),
		ast.NewAssign(p.curExcAccess(), p.getCurrentExceptionCall()),
		ast.NewGotoState(nearestFinally),
	)
}
