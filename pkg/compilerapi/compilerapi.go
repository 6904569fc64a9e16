// Package compilerapi defines the surface consumed from a host compiler as
// Go interfaces, so pkg/closureiter depends only on behavior rather than a
// concrete host compiler. The full type system, lambda-lifting, the
// parser/checker/codegen, the diagnostic framework, and the
// symbol/identifier caches stay external collaborators; this package is
// the seam.
//
// Modeled on pkg/compiler/heap_alloc.go's HeapAlloc (name → slot
// allocation) and the Compiler struct's services in pkg/compiler/compiler.go.
package compilerapi

import "closureiter/pkg/ast"

// ModuleGraph is the thin stand-in for the compiler's module graph: the
// registry of runtime-helper call sites and lambda-lifting state the pass
// needs from its host.
type ModuleGraph interface {
	// CallCodegenProc materializes a call to a named runtime helper —
	// getCurrentException or closureIterSetupExc.
	CallCodegenProc(name string, args ...ast.Expression) ast.Expression

	// EnvParam reports whether fn has already been lambda-lifted, and if
	// so returns the identifier naming its environment parameter; a
	// routine with no environment parameter has not been lifted yet.
	EnvParam(fn *ast.FuncSymbol) (*ast.Identifier, bool)
}
