package ast

// ContainsYield reports whether an expression subtree transitively contains
// a yield. Since Yield is statement-only in this AST (see control.go), the
// only way a yield reaches expression context is through a StmtListExpr,
// IfExpr, CaseExpr, or TryExpr's embedded statement lists — the forms
// component B (statement-list-expression lowering) exists to eliminate.
func ContainsYield(e Expression) bool {
	switch n := e.(type) {
	case nil:
		return false
	case *StmtListExpr:
		for _, s := range n.Stmts {
			if StmtContainsYield(s) {
				return true
			}
		}
		return ContainsYield(n.Tail)
	case *IfExpr:
		return ContainsYield(n.Cond) || ContainsYield(n.Then) || ContainsYield(n.Else)
	case *CaseExpr:
		if ContainsYield(n.Subject) || ContainsYield(n.Else) {
			return true
		}
		for _, b := range n.Branches {
			for _, t := range b.Tests {
				if ContainsYield(t) {
					return true
				}
			}
			if ContainsYield(b.Value) {
				return true
			}
		}
		return false
	case *TryExpr:
		return ContainsYield(n.Body) || ContainsYield(n.CatchBody)
	case *Paren:
		return ContainsYield(n.Inner)
	case *TupleExpr:
		return anyYield(n.Elements)
	case *ArrayExpr:
		return anyYield(n.Elements)
	case *ObjectExpr:
		for _, f := range n.Fields {
			if ContainsYield(f.Value) {
				return true
			}
		}
		return false
	case *Dot:
		return ContainsYield(n.Obj)
	case *Bracket:
		return ContainsYield(n.Obj) || ContainsYield(n.Index)
	case *Cast:
		return ContainsYield(n.Inner)
	case *Deref:
		return ContainsYield(n.Inner)
	case *CheckedRange:
		return ContainsYield(n.Low) || ContainsYield(n.High)
	case *LogicalAnd:
		return ContainsYield(n.Left) || ContainsYield(n.Right)
	case *LogicalOr:
		return ContainsYield(n.Left) || ContainsYield(n.Right)
	case *BinaryExpr:
		return ContainsYield(n.Left) || ContainsYield(n.Right)
	case *UnaryExpr:
		return ContainsYield(n.Operand)
	case *Call:
		if ContainsYield(n.Callee) {
			return true
		}
		return anyYield(n.Args)
	case *Identifier, *Literal:
		return false
	default:
		return false
	}
}

func anyYield(exprs []Expression) bool {
	for _, e := range exprs {
		if ContainsYield(e) {
			return true
		}
	}
	return false
}

// StmtContainsYield reports whether a statement transitively contains a
// YieldStmt.
func StmtContainsYield(s Statement) bool {
	switch n := s.(type) {
	case nil:
		return false
	case *YieldStmt:
		return true
	case *ExprStmt:
		return ContainsYield(n.X)
	case *Assign:
		return ContainsYield(n.Target) || ContainsYield(n.Value)
	case *StmtList:
		if n == nil {
			return false
		}
		for _, st := range n.Stmts {
			if StmtContainsYield(st) {
				return true
			}
		}
		return false
	case *If:
		if ContainsYield(n.Cond) || StmtContainsYield(n.Then) {
			return true
		}
		return StmtContainsYield(n.Else)
	case *Case:
		if ContainsYield(n.Subject) {
			return true
		}
		for _, b := range n.Branches {
			for _, t := range b.Tests {
				if ContainsYield(t) {
					return true
				}
			}
			if StmtContainsYield(b.Body) {
				return true
			}
		}
		return StmtContainsYield(n.Else)
	case *While:
		return ContainsYield(n.Cond) || StmtContainsYield(n.Body)
	case *Block:
		return StmtContainsYield(n.Body)
	case *Try:
		if StmtContainsYield(n.Body) {
			return true
		}
		if n.Except != nil {
			for _, b := range n.Except.Branches {
				if StmtContainsYield(b.Body) {
					return true
				}
			}
			if StmtContainsYield(n.Except.Else) {
				return true
			}
		}
		return StmtContainsYield(n.Finally)
	case *Return:
		return ContainsYield(n.Value)
	case *Raise:
		return ContainsYield(n.Value)
	case *VarSection:
		for _, b := range n.Bindings {
			if ContainsYield(b.Init) {
				return true
			}
		}
		return false
	case *Break:
		return false
	default:
		return false
	}
}

// StmtContainsControlFlow reports whether a statement transitively contains
// a yield, break, return, or raise — the test the state splitter uses to
// decide whether a statement-list child forces a split: the first child
// that contains control flow (yield or break, transitively) ends the
// current state. Return/raise are included alongside yield/break because
// they too terminate the current state's fall-through; treating their
// presence the same way is a conservative, safe over-approximation — any
// resulting extra state is removed by the empty-state folding pass.
func StmtContainsControlFlow(s Statement) bool {
	switch n := s.(type) {
	case nil:
		return false
	case *YieldStmt, *Break, *Return, *Raise:
		return true
	case *ExprStmt:
		return false
	case *Assign:
		return false
	case *StmtList:
		if n == nil {
			return false
		}
		for _, st := range n.Stmts {
			if StmtContainsControlFlow(st) {
				return true
			}
		}
		return false
	case *If:
		if StmtContainsControlFlow(n.Then) {
			return true
		}
		return StmtContainsControlFlow(n.Else)
	case *Case:
		for _, b := range n.Branches {
			if StmtContainsControlFlow(b.Body) {
				return true
			}
		}
		return StmtContainsControlFlow(n.Else)
	case *While:
		return StmtContainsControlFlow(n.Body)
	case *Block:
		return StmtContainsControlFlow(n.Body)
	case *Try:
		if StmtContainsControlFlow(n.Body) {
			return true
		}
		if n.Except != nil {
			for _, b := range n.Except.Branches {
				if StmtContainsControlFlow(b.Body) {
					return true
				}
			}
			if StmtContainsControlFlow(n.Except.Else) {
				return true
			}
		}
		return StmtContainsControlFlow(n.Finally)
	case *VarSection:
		return false
	default:
		return false
	}
}
