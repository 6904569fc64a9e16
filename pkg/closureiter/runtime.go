package closureiter

import "closureiter/pkg/ast"

// Calls into the runtime helpers this pass treats as external
// collaborators: getCurrentException and closureIterSetupExc. Both are
// materialized through the host's ModuleGraph.CallCodegenProc.

func (p *Pass) getCurrentExceptionCall() ast.Expression {
	return p.graph.CallCodegenProc("getCurrentException")
}

func (p *Pass) closureIterSetupExcCall(exc ast.Expression) ast.Expression {
	return p.graph.CallCodegenProc("closureIterSetupExc", exc)
}
