package closureiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closureiter/pkg/ast"
)

func TestBuildExceptionTableEncodesFinallyAndExceptBySign(t *testing.T) {
	p := newTestPass()

	finallyTarget := ast.NewState(0)
	finallyTarget.ID = 5
	exceptTarget := ast.NewState(1)
	exceptTarget.ID = 7

	withFinally := ast.NewState(2)
	withFinally.ID = 0
	withFinally.ExcHandlerKind = ast.ExcFinally
	withFinally.ExcHandlerState = finallyTarget

	withExcept := ast.NewState(3)
	withExcept.ID = 1
	withExcept.ExcHandlerKind = ast.ExcExcept
	withExcept.ExcHandlerState = exceptTarget

	plain := ast.NewState(4)
	plain.ID = 2

	p.states = []*ast.State{withFinally, withExcept, plain}

	table := p.buildExceptionTable()
	require.Len(t, table, 3)
	assert.Equal(t, int32(5), table[0])
	assert.Equal(t, int32(-7), table[1])
	assert.Equal(t, int32(0), table[2])
}

func TestBuildExceptionTableOverflowInt16TriggersInternalError(t *testing.T) {
	p := newTestPass()

	far := ast.NewState(0)
	far.ID = maxInt16 + 1

	s := ast.NewState(1)
	s.ID = 0
	s.ExcHandlerKind = ast.ExcFinally
	s.ExcHandlerState = far

	p.states = []*ast.State{s}

	assert.Panics(t, func() {
		p.buildExceptionTable()
	})
}

func TestBuildExceptionTableInt32WidthSkipsOverflowCheck(t *testing.T) {
	p := newTestPass()
	p.cfg.ExceptionTableWidth = Int32

	far := ast.NewState(0)
	far.ID = maxInt16 + 1

	s := ast.NewState(1)
	s.ID = 0
	s.ExcHandlerKind = ast.ExcFinally
	s.ExcHandlerState = far

	p.states = []*ast.State{s}

	var table []int32
	assert.NotPanics(t, func() {
		table = p.buildExceptionTable()
	})
	require.Len(t, table, 1)
	assert.Equal(t, int32(maxInt16+1), table[0])
}

func TestExcTableIdentUsesFunctionNameConvention(t *testing.T) {
	p := newTestPass()
	p.fn = &ast.FuncSymbol{Name: "myIter"}
	ident := p.excTableIdent()
	assert.Equal(t, "myIter$excTable", ident.String())
}
