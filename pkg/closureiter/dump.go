package closureiter

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"closureiter/pkg/ast"
)

// StateDump is a YAML-friendly snapshot of one state record, textual
// rather than structural — dumping the raw ast.Statement tree would walk
// into unexported fields and interface-typed slots yaml.v3 can't usefully
// round-trip, so each statement is rendered through its own String().
type StateDump struct {
	ID      int      `yaml:"id"`
	Body    []string `yaml:"body"`
	Handler string   `yaml:"handler,omitempty"`
}

// ResultDump is the debug-dump projection of a Result, consumed by
// cmd/closureiterdump.
type ResultDump struct {
	States         []StateDump `yaml:"states"`
	HasExceptions  bool        `yaml:"has_exceptions"`
	ExceptionTable []int32     `yaml:"exception_table,omitempty"`
}

// DumpStates renders res as YAML for inspection (SPEC_FULL.md's domain-stack
// wiring for gopkg.in/yaml.v3).
func DumpStates(res *Result) (string, error) {
	rd := ResultDump{HasExceptions: res.HasExceptions, ExceptionTable: res.ExceptionTable}
	for _, s := range res.States {
		sd := StateDump{ID: s.ID}
		for _, st := range s.Body {
			sd.Body = append(sd.Body, st.String())
		}
		if s.ExcHandlerKind != ast.ExcNone {
			sign := "+"
			if s.ExcHandlerKind == ast.ExcExcept {
				sign = "-"
			}
			sd.Handler = fmt.Sprintf("%s%d", sign, s.ExcHandlerState.ID)
		}
		rd.States = append(rd.States, sd)
	}

	out, err := yaml.Marshal(rd)
	if err != nil {
		return "", fmt.Errorf("closureiter: marshal dump: %w", err)
	}
	return string(out), nil
}
