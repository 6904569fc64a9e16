package closureiter

import "closureiter/pkg/ast"

// slot records where one hidden variable or temporary lives: either as a
// field sunk into the lambda-lifted environment record, or as an ordinary
// local collected into the synthesized var section.
type slot struct {
	name  string
	ident *ast.Identifier // the field symbol (env mode) or the local symbol
	inEnv bool
}

// access returns the expression that reads/writes this slot.
func (s *slot) access(envIdent *ast.Identifier) ast.Expression {
	if s.inEnv {
		return &ast.Dot{Obj: envIdent, Field: s.ident.Name}
	}
	return s.ident
}

// getOrCreate implements the hidden-storage allocation policy: if the
// iterator has not yet been lambda-lifted (detected by absence of an
// environment parameter), hidden state is allocated as ordinary local
// variables collected into a synthesized variable section. Otherwise each
// hidden variable becomes a uniquely-named field on the environment
// record.
func (p *Pass) getOrCreate(name string) *slot {
	if s, ok := p.slots[name]; ok {
		return s
	}
	var s *slot
	if p.envIdent != nil {
		field := p.fn.Env.AddUniqueField(ast.NewIdent(name))
		s = &slot{name: name, ident: field, inEnv: true}
	} else {
		sym := ast.NewIdent(name)
		s = &slot{name: name, ident: sym, inEnv: false}
		p.locals = append(p.locals, &ast.VarBinding{Name: name})
	}
	p.slots[name] = s
	return s
}

// access is the shared accessor used by every named-hidden-variable method
// below.
func (p *Pass) access(name string) ast.Expression {
	return p.getOrCreate(name).access(p.envIdent)
}

// stateAccess reads the current program counter. `state` is special-cased:
// the Pass constructor forces its allocation first so it always becomes
// field/local 0, which the code generator depends on whenever an
// environment record exists.
func (p *Pass) stateAccess() ast.Expression { return p.access("state") }

// assignState builds `state := value`, accepting either a literal state id
// or an arbitrary expression.
func (p *Pass) assignState(value interface{}) *ast.Assign {
	var val ast.Expression
	switch v := value.(type) {
	case int:
		val = ast.NewLiteral(v)
	case ast.Expression:
		val = v
	default:
		panic("closureiter: assignState given an unsupported value type")
	}
	return ast.NewAssign(p.stateAccess(), val)
}

// tmpResultAccess is only valid when the iterator has a non-unit return
// type; every caller must already have checked hasReturnType before
// synthesizing a tmpResult access.
func (p *Pass) tmpResultAccess() ast.Expression {
	if !p.fn.HasReturnType {
		p.internal("env", "tmpResult accessed but iterator has no return type")
	}
	return p.access("tmpResult")
}

func (p *Pass) unrollFinallyAccess() ast.Expression { return p.access("unrollFinally") }
func (p *Pass) unrollUntilAccess() ast.Expression   { return p.access("unrollUntil") }
func (p *Pass) afterUnrollAccess() ast.Expression   { return p.access("afterUnroll") }
func (p *Pass) curExcAccess() ast.Expression        { return p.access("curExc") }

// nullifyCurExc builds `curExc := nil`.
func (p *Pass) nullifyCurExc() *ast.Assign {
	return ast.NewAssign(p.curExcAccess(), ast.NewLiteral(nil))
}

// newTempVar allocates a fresh temporary, named from prefix and an id-gen
// suffix, using exactly the same env-or-local policy as the named hidden
// variables. The type-parameterized variant of this allocator is out of
// scope here since this AST carries no type system.
func (p *Pass) newTempVar(prefix string) ast.Expression {
	name := p.ids.NextName(prefix)
	return p.access(name)
}

// localVarSection materializes the collected locals (state included) into
// a single VarSection, in allocation order, for component F to prepend to
// the state loop body. Returns nil if lambda-lifting already ran (all
// hidden state lives in the environment record instead).
func (p *Pass) localVarSection() *ast.VarSection {
	if p.envIdent != nil || len(p.locals) == 0 {
		return nil
	}
	return &ast.VarSection{Bindings: p.locals}
}
