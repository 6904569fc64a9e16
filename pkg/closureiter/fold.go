package closureiter

import "closureiter/pkg/ast"

// Empty-state folder.
//
// A state is empty iff it is neither the entry state (p.states[0]) nor the
// synthetic exit, and its body reduces, after skipping trivial
// StmtList wrappers, to a single GotoState. Folding reassigns ids in place
// on the State records; because every GotoState/StateRef/ExcHandlerState
// refers to a state by pointer rather than a captured integer, mutating ID
// silently redirects every existing jump.
func (p *Pass) foldEmptyStates() {
	forward := map[*ast.State]*ast.State{}
	for _, s := range p.states {
		if target, ok := singleGoto(s); ok && s != p.states[0] {
			forward[s] = target
		}
	}

	resolve := func(s *ast.State) *ast.State {
		seen := map[*ast.State]bool{}
		for {
			t, ok := forward[s]
			if !ok {
				return s
			}
			if seen[s] {
				p.internal("fold", "cyclic empty-state forwarding chain detected")
			}
			seen[s] = true
			s = t
		}
	}

	kept := make([]*ast.State, 0, len(p.states))
	for _, s := range p.states {
		if _, empty := forward[s]; empty {
			continue
		}
		kept = append(kept, s)
	}

	for i, s := range kept {
		s.ID = i
	}
	for s := range forward {
		final := resolve(s)
		if final == nil {
			s.ID = -1 // chases all the way to the virtual exit state
		} else {
			s.ID = final.ID
		}
	}

	p.states = kept
}

// singleGoto reports whether s's body, after unwrapping trivial StmtList
// nesting, is exactly one GotoState, and if so its target (nil target
// means the virtual exit state, which singleGoto still reports so a state
// whose only content is "goto exit" can be folded too).
func singleGoto(s *ast.State) (*ast.State, bool) {
	body := s.Body
	for {
		if len(body) != 1 {
			return nil, false
		}
		switch n := body[0].(type) {
		case *ast.GotoState:
			return n.Target, true
		case *ast.StmtList:
			body = n.Stmts
		default:
			return nil, false
		}
	}
}
