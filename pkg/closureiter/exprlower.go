package closureiter

import "closureiter/pkg/ast"

// Statement-list-expression lowering.
//
// lowerStmtList rewrites every compound expression in body that
// transitively contains a yield into a statement sequence followed by a
// read of a temporary, establishing the invariant that no expression
// subtree contains a yield. Untouched subtrees (no yield anywhere inside)
// are returned unchanged — this pass only rewrites what needs splitting,
// via a bottom-up traversal.

// lowerStmtList lowers every statement in sl, flattening any hoisted
// statements directly into the result (rather than nesting them in an
// extra StmtList layer per original statement) so the state splitter sees
// a flat sequence to split.
func (p *Pass) lowerStmtList(sl *ast.StmtList) *ast.StmtList {
	if sl == nil {
		return nil
	}
	var out []ast.Statement
	for _, s := range sl.Stmts {
		out = append(out, p.lowerStmt(s)...)
	}
	return &ast.StmtList{Stmts: out}
}

// stmtsToStmt wraps a flat statement sequence back into a single
// Statement, for slots (like If.Else) that only hold one.
func stmtsToStmt(list []ast.Statement) ast.Statement {
	if len(list) == 0 {
		return nil
	}
	if len(list) == 1 {
		return list[0]
	}
	return &ast.StmtList{Stmts: list}
}

// lowerStmt lowers one statement, returning the (possibly longer)
// replacement sequence.
func (p *Pass) lowerStmt(s ast.Statement) []ast.Statement {
	switch n := s.(type) {
	case nil:
		return nil

	case *ast.ExprStmt:
		stmts, val := p.lowerExpr(n.X)
		return append(stmts, &ast.ExprStmt{X: val})

	case *ast.Assign:
		// Target and Value are lowered independently; any statements hoisted
		// out of Target run before those hoisted out of Value. No extra
		// temporaries are introduced for the side that needs no splitting.
		tgtStmts, tgtVal := p.lowerExpr(n.Target)
		valStmts, val := p.lowerExpr(n.Value)
		out := append(tgtStmts, valStmts...)
		return append(out, &ast.Assign{Target: tgtVal, Value: val})

	case *ast.StmtList:
		return p.lowerStmtList(n).Stmts

	case *ast.If:
		condStmts, condVal := p.lowerExpr(n.Cond)
		then := p.lowerStmtList(n.Then)
		var elseStmt ast.Statement
		switch e := n.Else.(type) {
		case nil:
			elseStmt = nil
		case *ast.StmtList:
			elseStmt = p.lowerStmtList(e)
		default:
			elseStmt = stmtsToStmt(p.lowerStmt(e))
		}
		out := append(condStmts, &ast.If{Cond: condVal, Then: then, Else: elseStmt})
		return out

	case *ast.Case:
		subjStmts, subjVal := p.lowerExpr(n.Subject)
		branches := make([]*ast.CaseBranch, len(n.Branches))
		for i, b := range n.Branches {
			branches[i] = &ast.CaseBranch{Tests: b.Tests, Body: p.lowerStmtList(b.Body)}
		}
		var elseList *ast.StmtList
		if n.Else != nil {
			elseList = p.lowerStmtList(n.Else)
		}
		out := append(subjStmts, &ast.Case{Subject: subjVal, Branches: branches, Else: elseList})
		return out

	case *ast.While:
		return p.lowerWhile(n)

	case *ast.Block:
		return []ast.Statement{&ast.Block{Label: n.Label, Body: p.lowerStmtList(n.Body)}}

	case *ast.Try:
		body := p.lowerStmtList(n.Body)
		var except *ast.Except
		if n.Except != nil {
			branches := make([]*ast.ExceptBranch, len(n.Except.Branches))
			for i, b := range n.Except.Branches {
				branches[i] = &ast.ExceptBranch{ExcTypes: b.ExcTypes, Param: b.Param, Body: p.lowerStmtList(b.Body)}
			}
			var elseList *ast.StmtList
			if n.Except.Else != nil {
				elseList = p.lowerStmtList(n.Except.Else)
			}
			except = &ast.Except{Branches: branches, Else: elseList}
		}
		var finally *ast.StmtList
		if n.Finally != nil {
			finally = p.lowerStmtList(n.Finally)
		}
		return []ast.Statement{&ast.Try{Body: body, Except: except, Finally: finally}}

	case *ast.Return:
		stmts, val := p.lowerExpr(n.Value)
		return append(stmts, &ast.Return{Value: val})

	case *ast.Raise:
		stmts, val := p.lowerExpr(n.Value)
		return append(stmts, &ast.Raise{Value: val})

	case *ast.YieldStmt:
		stmts, val := p.lowerExpr(n.Value)
		return append(stmts, &ast.YieldStmt{Value: val})

	case *ast.Break:
		return []ast.Statement{n}

	case *ast.VarSection:
		bindings := make([]*ast.VarBinding, len(n.Bindings))
		var out []ast.Statement
		for i, b := range n.Bindings {
			if b.Init == nil {
				bindings[i] = b
				continue
			}
			stmts, val := p.lowerExpr(b.Init)
			out = append(out, stmts...)
			bindings[i] = &ast.VarBinding{Name: b.Name, Init: val}
		}
		return append(out, &ast.VarSection{Bindings: bindings})

	default:
		p.internal("stmtlist", "unsupported statement kind %T reached expression lowering", s)
		return nil
	}
}

// lowerWhile handles the "while with yielding condition" rewrite: the
// loop is wrapped in a fresh labeled block and becomes
// while true: { cond-stmts; if not cond: break label; body }. A while
// whose condition needs no hoisting is left as an ordinary While (only its
// body is lowered) — user `break` in this language always names an
// enclosing Block (only Block registers breakable scopes), so the
// synthesized wrapping block's fresh label never collides with, or is
// reachable from, unrelated user code.
func (p *Pass) lowerWhile(n *ast.While) []ast.Statement {
	condStmts, condVal := p.lowerExpr(n.Cond)
	body := p.lowerStmtList(n.Body)
	if len(condStmts) == 0 {
		return []ast.Statement{&ast.While{Cond: condVal, Body: body}}
	}

	label := p.ids.NextName("whileCond")
	innerStmts := append([]ast.Statement{}, condStmts...)
	innerStmts = append(innerStmts, &ast.If{
		Cond: &ast.UnaryExpr{Op: "not", Operand: condVal},
		Then: ast.NewStmtList(&ast.Break{Label: label}),
	})
	innerStmts = append(innerStmts, body.Stmts...)

	inner := &ast.While{Cond: ast.NewLiteral(true), Body: &ast.StmtList{Stmts: innerStmts}}
	return []ast.Statement{&ast.Block{Label: label, Body: ast.NewStmtList(inner)}}
}

// lowerExpr is the bottom-up expression traversal: it returns the
// statements that must run before value is safe to read, and the
// (possibly rewritten) expression to read in the original's place. When an
// expression contains no yield anywhere inside, the statement list is nil
// and the expression is equivalent to the input: single-operand kinds return
// the original node, multi-operand kinds a fresh node around the same,
// unchanged operands — only subtrees that needsSplit are rewritten.
func (p *Pass) lowerExpr(e ast.Expression) ([]ast.Statement, ast.Expression) {
	switch n := e.(type) {
	case nil:
		return nil, nil

	case *ast.Identifier, *ast.Literal:
		return nil, e

	case *ast.Paren:
		stmts, val := p.lowerExpr(n.Inner)
		if len(stmts) == 0 {
			return nil, e
		}
		return stmts, val

	case *ast.Dot:
		stmts, obj := p.lowerOneOperand(n.Obj)
		if len(stmts) == 0 {
			return nil, e
		}
		return stmts, &ast.Dot{Obj: asIdentOrExpr(obj), Field: n.Field}

	case *ast.Bracket:
		return p.lowerMulti([]ast.Expression{n.Obj, n.Index}, func(vals []ast.Expression) ast.Expression {
			return &ast.Bracket{Obj: vals[0], Index: vals[1]}
		})

	case *ast.Cast:
		stmts, inner := p.lowerOneOperand(n.Inner)
		if len(stmts) == 0 {
			return nil, e
		}
		return stmts, &ast.Cast{Inner: inner, Type: n.Type}

	case *ast.Deref:
		stmts, inner := p.lowerOneOperand(n.Inner)
		if len(stmts) == 0 {
			return nil, e
		}
		return stmts, &ast.Deref{Inner: inner}

	case *ast.CheckedRange:
		return p.lowerMulti([]ast.Expression{n.Low, n.High}, func(vals []ast.Expression) ast.Expression {
			return &ast.CheckedRange{Low: vals[0], High: vals[1]}
		})

	case *ast.BinaryExpr:
		return p.lowerMulti([]ast.Expression{n.Left, n.Right}, func(vals []ast.Expression) ast.Expression {
			return &ast.BinaryExpr{Op: n.Op, Left: vals[0], Right: vals[1]}
		})

	case *ast.UnaryExpr:
		stmts, operand := p.lowerOneOperand(n.Operand)
		if len(stmts) == 0 {
			return nil, e
		}
		return stmts, &ast.UnaryExpr{Op: n.Op, Operand: operand}

	case *ast.TupleExpr:
		return p.lowerMulti(n.Elements, func(vals []ast.Expression) ast.Expression {
			return &ast.TupleExpr{Elements: vals}
		})

	case *ast.ArrayExpr:
		return p.lowerMulti(n.Elements, func(vals []ast.Expression) ast.Expression {
			return &ast.ArrayExpr{Elements: vals}
		})

	case *ast.ObjectExpr:
		vals := make([]ast.Expression, len(n.Fields))
		for i, f := range n.Fields {
			vals[i] = f.Value
		}
		return p.lowerMulti(vals, func(lowered []ast.Expression) ast.Expression {
			fields := make([]ast.ObjectField, len(n.Fields))
			for i, f := range n.Fields {
				fields[i] = ast.ObjectField{Key: f.Key, Value: lowered[i]}
			}
			return &ast.ObjectExpr{Fields: fields}
		})

	case *ast.Call:
		all := append([]ast.Expression{n.Callee}, n.Args...)
		return p.lowerMulti(all, func(vals []ast.Expression) ast.Expression {
			return &ast.Call{Callee: vals[0], Args: vals[1:]}
		})

	case *ast.LogicalAnd:
		return p.lowerLogical(n.Left, n.Right, false)
	case *ast.LogicalOr:
		return p.lowerLogical(n.Left, n.Right, true)

	case *ast.IfExpr:
		return p.lowerIfExpr(n)
	case *ast.CaseExpr:
		return p.lowerCaseExpr(n)
	case *ast.TryExpr:
		return p.lowerTryExpr(n)
	case *ast.StmtListExpr:
		return p.lowerStmtListExpr(n)

	default:
		p.internal("stmtlist", "unsupported expression kind %T reached expression lowering", e)
		return nil, nil
	}
}

func asIdentOrExpr(e ast.Expression) ast.Expression { return e }

// lowerOneOperand lowers a single operand; if it needed hoisting, the
// temp/value is returned directly (no further hoisting needed since
// there's only one operand, so evaluation order can't be disturbed).
func (p *Pass) lowerOneOperand(e ast.Expression) ([]ast.Statement, ast.Expression) {
	return p.lowerExpr(e)
}

// lowerMulti implements the call/container-hoisting rule: if ANY operand
// needs splitting, ALL operands are hoisted into temporaries, in
// left-to-right order, so side-effect ordering is preserved exactly as it
// would be hoisting only the yielding ones. For calls, all remaining
// call-kind siblings are also hoisted because side-effect ordering would
// otherwise change across the introduced temporaries — generalized here to
// every multi-operand construct, the natural reading of the same concern.
func (p *Pass) lowerMulti(operands []ast.Expression, rebuild func([]ast.Expression) ast.Expression) ([]ast.Statement, ast.Expression) {
	loweredStmts := make([][]ast.Statement, len(operands))
	loweredVals := make([]ast.Expression, len(operands))
	any := false
	for i, o := range operands {
		s, v := p.lowerExpr(o)
		loweredStmts[i] = s
		loweredVals[i] = v
		if len(s) > 0 {
			any = true
		}
	}
	if !any {
		return nil, rebuild(operands)
	}
	var out []ast.Statement
	finalVals := make([]ast.Expression, len(operands))
	for i := range operands {
		out = append(out, loweredStmts[i]...)
		tmp := p.newTempVar("tmp")
		out = append(out, ast.NewAssign(tmp, loweredVals[i]))
		finalVals[i] = tmp
	}
	return out, rebuild(finalVals)
}

// lowerLogical lowers `and`/`or` into an explicit if that preserves
// short-circuit evaluation. isOr selects `or` semantics (short-circuit on
// truthy left) vs `and` (short-circuit on falsy left).
func (p *Pass) lowerLogical(left, right ast.Expression, isOr bool) ([]ast.Statement, ast.Expression) {
	lstmts, lval := p.lowerExpr(left)
	if len(lstmts) == 0 && !ast.ContainsYield(right) {
		if isOr {
			return nil, &ast.LogicalOr{Left: left, Right: right}
		}
		return nil, &ast.LogicalAnd{Left: left, Right: right}
	}

	tmp := p.newTempVar("tmp")
	out := append([]ast.Statement{}, lstmts...)
	out = append(out, ast.NewAssign(tmp, lval))

	rstmts, rval := p.lowerExpr(right)
	thenBody := append(append([]ast.Statement{}, rstmts...), ast.NewAssign(tmp, rval))

	cond := ast.Expression(tmp)
	if isOr {
		cond = &ast.UnaryExpr{Op: "not", Operand: tmp}
	}
	out = append(out, &ast.If{Cond: cond, Then: &ast.StmtList{Stmts: thenBody}})
	return out, tmp
}

// lowerIfExpr implements the "if/case with value" rewrite: a fresh
// temporary is introduced and every branch's tail-expression assigns to
// it; an elif chain is naturally preserved because a nested IfExpr in
// Else recurses into this same function, producing a nested If statement
// evaluated only when the outer else is reached.
func (p *Pass) lowerIfExpr(n *ast.IfExpr) ([]ast.Statement, ast.Expression) {
	condStmts, condVal := p.lowerExpr(n.Cond)
	thenStmts, thenVal := p.lowerExpr(n.Then)
	elseStmts, elseVal := p.lowerExpr(n.Else)
	if len(condStmts) == 0 && len(thenStmts) == 0 && len(elseStmts) == 0 {
		return nil, n
	}

	tmp := p.newTempVar("tmp")
	thenBody := append(append([]ast.Statement{}, thenStmts...), ast.NewAssign(tmp, thenVal))
	elseBody := append(append([]ast.Statement{}, elseStmts...), ast.NewAssign(tmp, elseVal))
	ifStmt := &ast.If{
		Cond: condVal,
		Then: &ast.StmtList{Stmts: thenBody},
		Else: &ast.StmtList{Stmts: elseBody},
	}
	out := append(append([]ast.Statement{}, condStmts...), ifStmt)
	return out, tmp
}

func (p *Pass) lowerCaseExpr(n *ast.CaseExpr) ([]ast.Statement, ast.Expression) {
	subjStmts, subjVal := p.lowerExpr(n.Subject)
	any := len(subjStmts) > 0
	branches := make([]*ast.CaseBranch, len(n.Branches))
	rawBranchVals := make([]ast.Expression, len(n.Branches))
	rawBranchStmts := make([][]ast.Statement, len(n.Branches))
	for i, b := range n.Branches {
		vs, v := p.lowerExpr(b.Value)
		rawBranchVals[i] = v
		rawBranchStmts[i] = vs
		if len(vs) > 0 {
			any = true
		}
	}
	elseStmts, elseVal := p.lowerExpr(n.Else)
	if len(elseStmts) > 0 {
		any = true
	}
	if !any {
		return nil, n
	}

	tmp := p.newTempVar("tmp")
	for i, b := range n.Branches {
		body := append(append([]ast.Statement{}, rawBranchStmts[i]...), ast.NewAssign(tmp, rawBranchVals[i]))
		branches[i] = &ast.CaseBranch{Tests: b.Tests, Body: &ast.StmtList{Stmts: body}}
	}
	elseBody := append(append([]ast.Statement{}, elseStmts...), ast.NewAssign(tmp, elseVal))
	caseStmt := &ast.Case{Subject: subjVal, Branches: branches, Else: &ast.StmtList{Stmts: elseBody}}
	out := append(append([]ast.Statement{}, subjStmts...), caseStmt)
	return out, tmp
}

// lowerTryExpr implements the "try with value" case: the temporary-per-
// branch pattern identical to if.
func (p *Pass) lowerTryExpr(n *ast.TryExpr) ([]ast.Statement, ast.Expression) {
	bodyStmts, bodyVal := p.lowerExpr(n.Body)
	catchStmts, catchVal := p.lowerExpr(n.CatchBody)
	if len(bodyStmts) == 0 && len(catchStmts) == 0 {
		return nil, n
	}

	tmp := p.newTempVar("tmp")
	tryBody := &ast.StmtList{Stmts: append(append([]ast.Statement{}, bodyStmts...), ast.NewAssign(tmp, bodyVal))}
	catchBody := &ast.StmtList{Stmts: append(append([]ast.Statement{}, catchStmts...), ast.NewAssign(tmp, catchVal))}
	tryStmt := &ast.Try{
		Body: tryBody,
		Except: &ast.Except{
			Branches: []*ast.ExceptBranch{{Param: n.CatchParam, Body: catchBody}},
		},
	}
	return []ast.Statement{tryStmt}, tmp
}

// lowerStmtListExpr implements "block as expression" and is how a `yield`
// lexically written inside an expression context reaches this lowering:
// Stmts is lowered exactly like any other statement sequence, then the
// tail expression is lowered; its hoisted statements follow, and its value
// is returned directly as the result (no temporary is introduced here).
func (p *Pass) lowerStmtListExpr(n *ast.StmtListExpr) ([]ast.Statement, ast.Expression) {
	var out []ast.Statement
	for _, s := range n.Stmts {
		out = append(out, p.lowerStmt(s)...)
	}
	tailStmts, tailVal := p.lowerExpr(n.Tail)
	out = append(out, tailStmts...)
	return out, tailVal
}
