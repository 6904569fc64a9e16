package closureiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closureiter/pkg/ast"
	"closureiter/pkg/idgen"
)

func newExprTestPass() *Pass {
	p := newTestPass()
	p.ids = idgen.New()
	return p
}

func TestLowerExprLeavesPlainExpressionsUntouched(t *testing.T) {
	p := newExprTestPass()
	e := &ast.BinaryExpr{Op: "+", Left: ast.NewIdent("a"), Right: ast.NewLiteral(1)}
	stmts, val := p.lowerExpr(e)
	assert.Nil(t, stmts)
	bin, ok := val.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
	assert.Same(t, e.Left, bin.Left)
	assert.Same(t, e.Right, bin.Right)
}

func TestLowerMultiHoistsAllOperandsWhenAnyNeedsSplit(t *testing.T) {
	p := newExprTestPass()
	yielding := &ast.StmtListExpr{Stmts: []ast.Statement{&ast.YieldStmt{Value: ast.NewLiteral(1)}}, Tail: ast.NewLiteral(9)}
	plain := ast.NewIdent("b")

	stmts, val := p.lowerExpr(&ast.BinaryExpr{Op: "+", Left: yielding, Right: plain})

	// both operands must be hoisted to temporaries, left-to-right, even
	// though `plain` itself needed no splitting.
	require.Len(t, stmts, 3, "yield + 2 temp assignments")
	bin, ok := val.(*ast.BinaryExpr)
	require.True(t, ok)
	_, leftIsIdent := bin.Left.(*ast.Identifier)
	_, rightIsIdent := bin.Right.(*ast.Identifier)
	assert.True(t, leftIsIdent)
	assert.True(t, rightIsIdent)
}

func TestLowerLogicalAndShortCircuitsWithoutHoistWhenPure(t *testing.T) {
	p := newExprTestPass()
	left := ast.NewIdent("a")
	right := ast.NewIdent("b")
	stmts, val := p.lowerExpr(&ast.LogicalAnd{Left: left, Right: right})
	assert.Nil(t, stmts, "no yield anywhere means no temp/if desugaring needed")
	_, ok := val.(*ast.LogicalAnd)
	assert.True(t, ok)
}

func TestLowerLogicalOrDesugarsWhenRightContainsYield(t *testing.T) {
	p := newExprTestPass()
	left := ast.NewIdent("a")
	right := &ast.StmtListExpr{Stmts: []ast.Statement{&ast.YieldStmt{Value: ast.NewLiteral(1)}}, Tail: ast.NewIdent("b")}

	stmts, val := p.lowerExpr(&ast.LogicalOr{Left: left, Right: right})
	require.NotEmpty(t, stmts, "a yielding right operand forces the if-based desugaring")
	_, isIdent := val.(*ast.Identifier)
	assert.True(t, isIdent, "lowerLogical rebinds to the shared temporary")
}

func TestLowerIfExprIntroducesTempOnlyWhenNeeded(t *testing.T) {
	p := newExprTestPass()
	pure := &ast.IfExpr{Cond: ast.NewIdent("c"), Then: ast.NewLiteral(1), Else: ast.NewLiteral(2)}
	stmts, val := p.lowerExpr(pure)
	assert.Nil(t, stmts)
	assert.Same(t, ast.Expression(pure), val)

	yielding := &ast.IfExpr{
		Cond: ast.NewIdent("c"),
		Then: &ast.StmtListExpr{Stmts: []ast.Statement{&ast.YieldStmt{Value: ast.NewLiteral(1)}}, Tail: ast.NewLiteral(1)},
		Else: ast.NewLiteral(2),
	}
	stmts, val = p.lowerExpr(yielding)
	require.NotEmpty(t, stmts)
	_, isIdent := val.(*ast.Identifier)
	assert.True(t, isIdent, "if-with-value lowers to a fresh temporary read")
}

func TestLowerWhileWrapsOnlyWhenConditionNeedsHoisting(t *testing.T) {
	p := newExprTestPass()

	plain := &ast.While{Cond: ast.NewIdent("c"), Body: ast.NewStmtList(&ast.ExprStmt{X: ast.NewLiteral(1)})}
	out := p.lowerWhile(plain)
	require.Len(t, out, 1)
	_, ok := out[0].(*ast.While)
	assert.True(t, ok, "a while with no yielding condition is left as an ordinary While")

	yielding := &ast.While{
		Cond: &ast.StmtListExpr{Stmts: []ast.Statement{&ast.YieldStmt{Value: ast.NewLiteral(1)}}, Tail: ast.NewIdent("c")},
		Body: ast.NewStmtList(&ast.ExprStmt{X: ast.NewLiteral(1)}),
	}
	out = p.lowerWhile(yielding)
	require.Len(t, out, 1)
	block, ok := out[0].(*ast.Block)
	require.True(t, ok, "a yielding condition is wrapped in a fresh labeled block")
	assert.NotEmpty(t, block.Label)
}
