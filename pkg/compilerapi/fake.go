package compilerapi

import "closureiter/pkg/ast"

// Fake is a ModuleGraph test double, playing the role NewCompiler() plays
// standalone in pkg/compiler/compiler_test.go: it lets the pass run end to
// end in tests without a real host compiler behind it.
type Fake struct {
	envParams map[*ast.FuncSymbol]*ast.Identifier
}

// NewFake creates an empty Fake ModuleGraph.
func NewFake() *Fake {
	return &Fake{
		envParams: map[*ast.FuncSymbol]*ast.Identifier{},
	}
}

// LiftEnv registers fn as already lambda-lifted, with env as the
// identifier naming its environment parameter.
func (f *Fake) LiftEnv(fn *ast.FuncSymbol, env *ast.Identifier) {
	f.envParams[fn] = env
}

func (f *Fake) CallCodegenProc(name string, args ...ast.Expression) ast.Expression {
	return ast.NewCall(ast.NewIdent(name), args...)
}

func (f *Fake) EnvParam(fn *ast.FuncSymbol) (*ast.Identifier, bool) {
	env, ok := f.envParams[fn]
	return env, ok
}
