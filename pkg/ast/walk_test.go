package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsYieldFindsYieldInsideStmtListExpr(t *testing.T) {
	e := &StmtListExpr{
		Stmts: []Statement{&YieldStmt{Value: NewLiteral(1)}},
		Tail:  NewLiteral(2),
	}
	assert.True(t, ContainsYield(e))
	assert.True(t, StmtContainsYield(&ExprStmt{X: e}))
}

func TestContainsYieldFalseWhenAbsent(t *testing.T) {
	e := &BinaryExpr{Op: "+", Left: NewIdent("a"), Right: NewLiteral(1)}
	assert.False(t, ContainsYield(e))
}

func TestContainsYieldDescendsThroughNestedContainers(t *testing.T) {
	inner := &StmtListExpr{Stmts: []Statement{&YieldStmt{Value: NewLiteral(1)}}, Tail: NewLiteral(1)}
	e := &ArrayExpr{Elements: []Expression{NewLiteral(0), inner}}
	assert.True(t, ContainsYield(e))
}

func TestStmtContainsYieldDescendsIntoTry(t *testing.T) {
	tryStmt := &Try{
		Body:    NewStmtList(&ExprStmt{X: NewLiteral(1)}),
		Finally: NewStmtList(&YieldStmt{Value: NewLiteral(2)}),
	}
	assert.True(t, StmtContainsYield(tryStmt))
}

func TestStmtContainsControlFlowStopsAtFirstHit(t *testing.T) {
	body := NewStmtList(
		&ExprStmt{X: NewLiteral(1)},
		&Break{},
		&ExprStmt{X: NewLiteral(2)},
	)
	assert.True(t, StmtContainsControlFlow(body))
}

func TestStmtContainsControlFlowFalseForPlainStatements(t *testing.T) {
	body := NewStmtList(
		&ExprStmt{X: NewLiteral(1)},
		NewAssign(NewIdent("a"), NewLiteral(2)),
	)
	assert.False(t, StmtContainsControlFlow(body))
}

func TestStmtContainsControlFlowTrueForReturnAndRaise(t *testing.T) {
	assert.True(t, StmtContainsControlFlow(&Return{Value: NewLiteral(1)}))
	assert.True(t, StmtContainsControlFlow(&Raise{Value: NewIdent("E")}))
	assert.True(t, StmtContainsControlFlow(&YieldStmt{Value: NewLiteral(1)}))
}

func TestStmtContainsControlFlowDescendsIntoWhileAndBlock(t *testing.T) {
	w := &While{Cond: NewLiteral(true), Body: NewStmtList(&Break{})}
	assert.True(t, StmtContainsControlFlow(w))

	b := &Block{Label: "L", Body: NewStmtList(&ExprStmt{X: NewLiteral(1)})}
	assert.False(t, StmtContainsControlFlow(b))
}
