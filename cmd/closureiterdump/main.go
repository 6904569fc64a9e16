// Command closureiterdump runs the closure-iterator lowering pass over one
// of a handful of canonical scenarios and prints the resulting state
// machine, for manual inspection during development of the pass itself.
package main

import (
	"flag"
	"fmt"
	"os"

	"closureiter/pkg/ast"
	"closureiter/pkg/closureiter"
	"closureiter/pkg/compilerapi"
	"closureiter/pkg/idgen"
)

func main() {
	scenario := flag.String("scenario", "counter", "scenario to run: "+scenarioNames())
	asYAML := flag.Bool("yaml", true, "print the state dump as YAML")
	flag.Parse()

	build, ok := scenarios[*scenario]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown scenario %q; available: %s\n", *scenario, scenarioNames())
		os.Exit(1)
	}

	fn, body := build()
	graph := compilerapi.NewFake()
	ids := idgen.New()

	res, err := closureiter.Transform(graph, ids, fn, body, closureiter.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "transform failed: %v\n", err)
		os.Exit(1)
	}

	if !*asYAML {
		fmt.Println(res.Body.String())
		return
	}
	out, err := closureiter.DumpStates(res)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dump failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(out)
}

func scenarioNames() string {
	names := make([]string, 0, len(scenarios))
	for k := range scenarios {
		names = append(names, k)
	}
	return fmt.Sprint(names)
}

// scenarios collects a handful of representative end-to-end iterator
// bodies, built directly as ast trees (there is no parser in scope for
// this pass).
var scenarios = map[string]func() (*ast.FuncSymbol, *ast.StmtList){
	"counter":        counterScenario,
	"try-except":     tryExceptScenario,
	"return-finally": returnFinallyScenario,
	"break-finally":  breakFinallyScenario,
	"yield-in-expr":  yieldInExprScenario,
}

// counterScenario: while a > 0: yield a; dec a
func counterScenario() (*ast.FuncSymbol, *ast.StmtList) {
	fn := &ast.FuncSymbol{Name: "counter"}
	a := ast.NewIdent("a")
	body := ast.NewStmtList(
		&ast.While{
			Cond: &ast.BinaryExpr{Op: ">", Left: a, Right: ast.NewLiteral(0)},
			Body: ast.NewStmtList(
				&ast.YieldStmt{Value: a},
				ast.NewAssign(a, &ast.BinaryExpr{Op: "-", Left: a, Right: ast.NewLiteral(1)}),
			),
		},
	)
	return fn, body
}

// tryExceptScenario: try: yield 1; raise E except: yield 2
func tryExceptScenario() (*ast.FuncSymbol, *ast.StmtList) {
	fn := &ast.FuncSymbol{Name: "tryExcept"}
	body := ast.NewStmtList(
		&ast.Try{
			Body: ast.NewStmtList(
				&ast.YieldStmt{Value: ast.NewLiteral(1)},
				&ast.Raise{Value: ast.NewIdent("E")},
			),
			Except: &ast.Except{
				Branches: []*ast.ExceptBranch{
					{Body: ast.NewStmtList(&ast.YieldStmt{Value: ast.NewLiteral(2)})},
				},
			},
		},
	)
	return fn, body
}

// returnFinallyScenario: try: return 7 finally: yield 0
func returnFinallyScenario() (*ast.FuncSymbol, *ast.StmtList) {
	fn := &ast.FuncSymbol{Name: "returnFinally", HasReturnType: true}
	body := ast.NewStmtList(
		&ast.Try{
			Body:    ast.NewStmtList(&ast.Return{Value: ast.NewLiteral(7)}),
			Finally: ast.NewStmtList(&ast.YieldStmt{Value: ast.NewLiteral(0)}),
		},
	)
	return fn, body
}

// yieldInExprScenario: if (yield 1; 2) == 2: yield 3
func yieldInExprScenario() (*ast.FuncSymbol, *ast.StmtList) {
	fn := &ast.FuncSymbol{Name: "yieldInExpr"}
	cond := &ast.BinaryExpr{
		Op: "==",
		Left: &ast.StmtListExpr{
			Stmts: []ast.Statement{&ast.YieldStmt{Value: ast.NewLiteral(1)}},
			Tail:  ast.NewLiteral(2),
		},
		Right: ast.NewLiteral(2),
	}
	body := ast.NewStmtList(
		&ast.If{
			Cond: cond,
			Then: ast.NewStmtList(&ast.YieldStmt{Value: ast.NewLiteral(3)}),
		},
	)
	return fn, body
}

// breakFinallyScenario: block B: try: yield 1; break B finally: yield 2
func breakFinallyScenario() (*ast.FuncSymbol, *ast.StmtList) {
	fn := &ast.FuncSymbol{Name: "breakFinally"}
	body := ast.NewStmtList(
		&ast.Block{
			Label: "B",
			Body: ast.NewStmtList(
				&ast.Try{
					Body: ast.NewStmtList(
						&ast.YieldStmt{Value: ast.NewLiteral(1)},
						&ast.Break{Label: "B"},
					),
					Finally: ast.NewStmtList(&ast.YieldStmt{Value: ast.NewLiteral(2)}),
				},
			),
		},
	)
	return fn, body
}
