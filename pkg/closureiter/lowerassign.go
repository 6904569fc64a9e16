package closureiter

import "closureiter/pkg/ast"

// State-assignment lowering and loop wrapper.
//
// After state-splitting and empty-state folding, every GotoState target is
// a final, resolved state id; this pass turns the abstract markers into
// concrete assignments plus a loop-control transfer, resolves any
// remaining ast.StateRef into a plain literal, and builds the `block
// stateLoop: <dispatch>` scaffold. The caller (Transform) wraps the result
// in the outer `while true` — and, when applicable, the try/except built
// around the exception table — since the except handler must sit *inside*
// the while so that updating `state` and falling out of it re-enters the
// dispatch.
//
// The computed goto on the state index is realized as a Case switching on
// stateAccess(), one branch per final state id — the natural stand-in for
// a computed goto in a tree that has no label/goto node of its own.
func (p *Pass) lowerAssignments() *ast.Block {
	for _, s := range p.states {
		s.Body = p.lowerMarkers(s.Body)
	}

	branches := make([]*ast.CaseBranch, len(p.states))
	for i, s := range p.states {
		branches[i] = &ast.CaseBranch{
			Tests: []ast.Expression{ast.NewLiteral(s.ID)},
			Body:  &ast.StmtList{Stmts: s.Body},
		}
	}
	dispatch := &ast.Case{Subject: p.stateAccess(), Branches: branches}

	var stmts []ast.Statement
	if vs := p.localVarSection(); vs != nil {
		stmts = append(stmts, vs)
	}
	stmts = append(stmts, dispatch)

	return &ast.Block{Label: stateLoopLabel, Body: &ast.StmtList{Stmts: stmts}}
}

// lowerMarkers rewrites one flat statement sequence, consuming
// yield+GotoState pairs and standalone GotoState/Return markers, and
// recursing into nested If/Case bodies so nothing escapes unresolved.
func (p *Pass) lowerMarkers(stmts []ast.Statement) []ast.Statement {
	var out []ast.Statement
	for i := 0; i < len(stmts); i++ {
		switch n := stmts[i].(type) {
		case *ast.YieldStmt:
			gs, ok := nextGoto(stmts, i)
			if !ok {
				p.internal("lowerassign", "yield not immediately followed by goto_state")
			}
			out = append(out, p.assignState(gs.TargetID()), &ast.Return{Value: p.resolveExpr(n.Value)})
			i++

		case *ast.GotoState:
			out = append(out, p.assignState(n.TargetID()), &ast.Break{Label: stateLoopLabel})

		case *ast.Return:
			// Reaching bare return in the final state machine always means the
			// iterator is exhausted, whether this is a top-level `return e` or
			// the end-of-finally sequence's own return — both mark the same
			// terminal condition, so the state reset is applied uniformly to
			// either origin.
			out = append(out, p.assignState(-1), &ast.Return{Value: p.resolveExpr(n.Value)})

		case *ast.Raise:
			out = append(out, &ast.Raise{Value: p.resolveExpr(n.Value)})

		case *ast.Assign:
			out = append(out, &ast.Assign{Target: n.Target, Value: p.resolveExpr(n.Value)})

		case *ast.ExprStmt:
			out = append(out, &ast.ExprStmt{X: p.resolveExpr(n.X)})

		case *ast.If:
			out = append(out, &ast.If{
				Cond: p.resolveExpr(n.Cond),
				Then: p.lowerMarkersList(n.Then),
				Else: p.lowerMarkersStmt(n.Else),
			})

		case *ast.Case:
			branches := make([]*ast.CaseBranch, len(n.Branches))
			for j, b := range n.Branches {
				branches[j] = &ast.CaseBranch{Tests: b.Tests, Body: p.lowerMarkersList(b.Body)}
			}
			var els *ast.StmtList
			if n.Else != nil {
				els = p.lowerMarkersList(n.Else)
			}
			out = append(out, &ast.Case{Subject: n.Subject, Branches: branches, Else: els})

		case *ast.StmtList:
			out = append(out, p.lowerMarkers(n.Stmts)...)

		default:
			out = append(out, n)
		}
	}
	return out
}

func nextGoto(stmts []ast.Statement, i int) (*ast.GotoState, bool) {
	if i+1 >= len(stmts) {
		return nil, false
	}
	gs, ok := stmts[i+1].(*ast.GotoState)
	return gs, ok
}

func (p *Pass) lowerMarkersList(sl *ast.StmtList) *ast.StmtList {
	if sl == nil {
		return nil
	}
	return &ast.StmtList{Stmts: p.lowerMarkers(sl.Stmts)}
}

func (p *Pass) lowerMarkersStmt(s ast.Statement) ast.Statement {
	switch n := s.(type) {
	case nil:
		return nil
	case *ast.StmtList:
		return p.lowerMarkersList(n)
	case *ast.If:
		return &ast.If{Cond: p.resolveExpr(n.Cond), Then: p.lowerMarkersList(n.Then), Else: p.lowerMarkersStmt(n.Else)}
	default:
		stmts := p.lowerMarkers([]ast.Statement{s})
		return &ast.StmtList{Stmts: stmts}
	}
}

// resolveExpr replaces every remaining ast.StateRef with the plain Literal
// it now resolves to (final only once folding has run), recursing through
// every composite expression kind this AST defines.
func (p *Pass) resolveExpr(e ast.Expression) ast.Expression {
	switch n := e.(type) {
	case nil:
		return nil
	case *ast.StateRef:
		return ast.NewLiteral(n.Value())
	case *ast.Identifier, *ast.Literal:
		return e
	case *ast.Paren:
		return &ast.Paren{Inner: p.resolveExpr(n.Inner)}
	case *ast.Dot:
		return &ast.Dot{Obj: p.resolveExpr(n.Obj), Field: n.Field}
	case *ast.Bracket:
		return &ast.Bracket{Obj: p.resolveExpr(n.Obj), Index: p.resolveExpr(n.Index)}
	case *ast.Cast:
		return &ast.Cast{Inner: p.resolveExpr(n.Inner), Type: n.Type}
	case *ast.Deref:
		return &ast.Deref{Inner: p.resolveExpr(n.Inner)}
	case *ast.CheckedRange:
		return &ast.CheckedRange{Low: p.resolveExpr(n.Low), High: p.resolveExpr(n.High)}
	case *ast.BinaryExpr:
		return &ast.BinaryExpr{Op: n.Op, Left: p.resolveExpr(n.Left), Right: p.resolveExpr(n.Right)}
	case *ast.UnaryExpr:
		return &ast.UnaryExpr{Op: n.Op, Operand: p.resolveExpr(n.Operand)}
	case *ast.LogicalAnd:
		return &ast.LogicalAnd{Left: p.resolveExpr(n.Left), Right: p.resolveExpr(n.Right)}
	case *ast.LogicalOr:
		return &ast.LogicalOr{Left: p.resolveExpr(n.Left), Right: p.resolveExpr(n.Right)}
	case *ast.TupleExpr:
		return &ast.TupleExpr{Elements: p.resolveExprs(n.Elements)}
	case *ast.ArrayExpr:
		return &ast.ArrayExpr{Elements: p.resolveExprs(n.Elements)}
	case *ast.ObjectExpr:
		fields := make([]ast.ObjectField, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = ast.ObjectField{Key: f.Key, Value: p.resolveExpr(f.Value)}
		}
		return &ast.ObjectExpr{Fields: fields}
	case *ast.Call:
		return &ast.Call{Callee: p.resolveExpr(n.Callee), Args: p.resolveExprs(n.Args)}
	default:
		return e
	}
}

func (p *Pass) resolveExprs(es []ast.Expression) []ast.Expression {
	if es == nil {
		return nil
	}
	out := make([]ast.Expression, len(es))
	for i, e := range es {
		out[i] = p.resolveExpr(e)
	}
	return out
}
