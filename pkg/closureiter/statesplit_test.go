package closureiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closureiter/pkg/ast"
	"closureiter/pkg/compilerapi"
	"closureiter/pkg/idgen"
)

func newSplitTestPass() *Pass {
	p := newExprTestPass()
	p.envIdent = nil
	p.graph = compilerapi.NewFake()
	return p
}

func TestSplitBreakDirectJumpWhenNoFinallyCrossed(t *testing.T) {
	p := newSplitTestPass()
	out := p.newState()
	p.scopes["L"] = &breakTarget{outState: out, nearestFinally: nil}
	p.scopeOrder = []string{"L"}

	stmts := p.splitBreak(&ast.Break{Label: "L"}, nil)
	require.Len(t, stmts, 1)
	gs, ok := stmts[0].(*ast.GotoState)
	require.True(t, ok, "a break that crosses no finally boundary is a plain jump")
	assert.Same(t, out, gs.Target)
}

func TestSplitBreakUnlabeledResolvesInnermostScope(t *testing.T) {
	p := newSplitTestPass()
	outer := p.newState()
	inner := p.newState()
	p.scopes["outer"] = &breakTarget{outState: outer}
	p.scopes["inner"] = &breakTarget{outState: inner}
	p.scopeOrder = []string{"outer", "inner"}

	stmts := p.splitBreak(&ast.Break{}, nil)
	require.Len(t, stmts, 1)
	gs, ok := stmts[0].(*ast.GotoState)
	require.True(t, ok)
	assert.Same(t, inner, gs.Target, "a bare break resolves to the innermost open scope")
}

func TestSplitBreakAcrossFinallyEmitsPartialUnrollProtocol(t *testing.T) {
	p := newSplitTestPass()
	out := p.newState()
	finally := p.newState()
	// L was registered outside any finally (e.g. a Block wrapping a Try),
	// but the break site itself is nested inside that Try's finally scope —
	// the gap must be bridged by first running `finally` before `out` is
	// ever reached.
	p.scopes["L"] = &breakTarget{outState: out, nearestFinally: nil}
	p.scopeOrder = []string{"L"}

	stmts := p.splitBreak(&ast.Break{Label: "L"}, finally)
	require.Len(t, stmts, 4)

	assign1, ok := stmts[0].(*ast.Assign)
	require.True(t, ok)
	lit, ok := assign1.Value.(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, true, lit.Value)

	finalGoto, ok := stmts[3].(*ast.GotoState)
	require.True(t, ok)
	assert.Same(t, finally, finalGoto.Target, "control must reach the enclosing finally before it can reach `out`")
}

func TestSplitBreakWithNoEnclosingScopePanics(t *testing.T) {
	p := newSplitTestPass()
	assert.Panics(t, func() {
		p.splitBreak(&ast.Break{}, nil)
	})
}

func TestSplitStmtSeqAppendsGotoOutStateWhenNoControlFlow(t *testing.T) {
	p := newSplitTestPass()
	out := p.newState()
	stmts := []ast.Statement{&ast.ExprStmt{X: ast.NewLiteral(1)}}
	result := p.splitStmtSeq(stmts, out, nil)
	require.Len(t, result, 2)
	gs, ok := result[1].(*ast.GotoState)
	require.True(t, ok)
	assert.Same(t, out, gs.Target)
}

func TestSplitStmtSeqStopsAtFirstControlFlowStatement(t *testing.T) {
	p := newSplitTestPass()
	out := p.newState()
	stmts := []ast.Statement{
		&ast.ExprStmt{X: ast.NewLiteral(1)},
		&ast.YieldStmt{Value: ast.NewLiteral(2)},
		&ast.ExprStmt{X: ast.NewLiteral(3)},
	}
	result := p.splitStmtSeq(stmts, out, nil)

	// prefix (1 stmt) + [yield, goto cont] where cont holds the remainder
	require.Len(t, result, 3)
	_, isExpr := result[0].(*ast.ExprStmt)
	assert.True(t, isExpr)
	_, isYield := result[1].(*ast.YieldStmt)
	assert.True(t, isYield)
	contGoto, ok := result[2].(*ast.GotoState)
	require.True(t, ok)
	require.NotEmpty(t, contGoto.Target.Body, "the remainder after the yield must have been spliced into its own state")
}

func TestSplitTrySetsHasExceptions(t *testing.T) {
	p := newSplitTestPass()
	p.ids = idgen.New()
	out := p.newState()

	n := &ast.Try{
		Body: ast.NewStmtList(&ast.YieldStmt{Value: ast.NewLiteral(1)}),
		Except: &ast.Except{
			Branches: []*ast.ExceptBranch{{Body: ast.NewStmtList(&ast.YieldStmt{Value: ast.NewLiteral(2)})}},
		},
	}
	assert.False(t, p.hasExceptions)
	_ = p.splitTry(n, out, nil)
	assert.True(t, p.hasExceptions)
}
