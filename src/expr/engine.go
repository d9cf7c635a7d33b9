// Package expr implements the expression engine (component D): a typed
// expression tree driving operator dispatch through the type registry
// (component A), with constant folding, coercion insertion, and a strict
// move-only/linear ownership discipline — every operator consumes its
// inputs, and every failure path releases whatever it had already consumed.
package expr

import (
	"subtilisgo/src/cerr"
	"subtilisgo/src/frontend"
	"subtilisgo/src/ir"
	"subtilisgo/src/resolve"
	"subtilisgo/src/runtime"
	"subtilisgo/src/symtab"
	"subtilisgo/src/types"
)

// Engine parses and emits one expression at a time against a single
// section's instruction stream, against the given symbol table, type
// registry and runtime. It holds no syntax tree of its own: each call
// consumes tokens from Toks and leaves IR behind, matching the teacher's
// parse-and-emit-in-one-pass style.
type Engine struct {
	Reg  *types.Registry
	RT   *runtime.Runtime
	Sec  *ir.Section
	Sym  *symtab.Table
	Toks frontend.TokenSource
	Call *resolve.Resolver
}

// fail releases every owned value in owned (spec §4.D: "all failure paths
// must release owned expressions") and returns err unchanged, so call sites
// can write `return e.fail(pos, err, lhs, rhs)` instead of repeating the
// release call at every return statement.
func (e *Engine) fail(pos cerr.Pos, err error, owned ...types.Value) error {
	e.RT.ReleaseAll(e.Sec, owned...)
	return err
}

func (e *Engine) pos() cerr.Pos {
	return e.Toks.Peek().Pos
}

// Parse parses one full expression at the lowest precedence level (OR/EOR)
// and returns its value (spec §4.D's precedence table, level 7).
func (e *Engine) Parse() (types.Value, error) {
	return e.parseOr()
}

// IntExpression parses an expression and coerces it to int, the entry point
// statements like array dimensions and loop bounds use (spec's
// "int_var_expression").
func (e *Engine) IntExpression() (types.Value, error) {
	pos := e.pos()
	v, err := e.Parse()
	if err != nil {
		return types.Value{}, err
	}
	cv, err := e.Reg.Of(v.Typ.Kind).Coerce(e.Sec, v, types.TInt)
	if err != nil {
		return types.Value{}, e.fail(pos, err, v)
	}
	return cv, nil
}

// RealBracketedExpression parses "(" expr ")" and coerces it to real.
func (e *Engine) RealBracketedExpression() (types.Value, error) {
	return e.bracketed(types.TReal)
}

// IntegerBracketedExpression parses "(" expr ")" and coerces it to int.
func (e *Engine) IntegerBracketedExpression() (types.Value, error) {
	return e.bracketed(types.TInt)
}

func (e *Engine) bracketed(target types.Type) (types.Value, error) {
	pos := e.pos()
	if e.Toks.Peek().Kind != frontend.LParen {
		return types.Value{}, cerr.New(cerr.ExpectedToken, pos, "expected (")
	}
	e.Toks.Next()
	v, err := e.Parse()
	if err != nil {
		return types.Value{}, err
	}
	if e.Toks.Peek().Kind != frontend.RParen {
		return types.Value{}, e.fail(e.pos(), cerr.New(cerr.RightBktExpected, e.pos(), "expected )"), v)
	}
	e.Toks.Next()
	return e.CoerceType(v, target)
}

// CoerceType coerces v to target via its own Kind's Coerce capability,
// releasing v on failure.
func (e *Engine) CoerceType(v types.Value, target types.Type) (types.Value, error) {
	pos := e.pos()
	cv, err := e.Reg.Of(v.Typ.Kind).Coerce(e.Sec, v, target)
	if err != nil {
		return types.Value{}, e.fail(pos, err, v)
	}
	return cv, nil
}

func (e *Engine) parseOr() (types.Value, error) {
	lhs, err := e.parseAnd()
	if err != nil {
		return types.Value{}, err
	}
	for {
		var op types.BitwiseOp
		switch e.Toks.Peek().Kind {
		case frontend.KwOr:
			op = types.BitOr
		case frontend.KwEor:
			op = types.BitEor
		default:
			return lhs, nil
		}
		pos := e.pos()
		e.Toks.Next()
		rhs, err := e.parseAnd()
		if err != nil {
			return types.Value{}, e.fail(pos, err, lhs)
		}
		lhs, err = e.Reg.Bitwise(e.Sec, op, lhs, rhs, pos)
		if err != nil {
			return types.Value{}, e.fail(pos, err, lhs, rhs)
		}
	}
}

func (e *Engine) parseAnd() (types.Value, error) {
	lhs, err := e.parseCompare()
	if err != nil {
		return types.Value{}, err
	}
	for e.Toks.Peek().Kind == frontend.KwAnd {
		pos := e.pos()
		e.Toks.Next()
		rhs, err := e.parseCompare()
		if err != nil {
			return types.Value{}, e.fail(pos, err, lhs)
		}
		lhs, err = e.Reg.Bitwise(e.Sec, types.BitAnd, lhs, rhs, pos)
		if err != nil {
			return types.Value{}, e.fail(pos, err, lhs, rhs)
		}
	}
	return lhs, nil
}

var compareOps = map[frontend.Kind]types.CompareOp{
	frontend.Eq: types.CmpEQ, frontend.Ne: types.CmpNE, frontend.Gt: types.CmpGT,
	frontend.Lte: types.CmpLTE, frontend.Lt: types.CmpLT, frontend.Gte: types.CmpGTE,
}

var shiftOps = map[frontend.Kind]types.ShiftOp{
	frontend.Shl: types.Lsl, frontend.Shr: types.Lsr, frontend.Ashr: types.Asr,
}

func (e *Engine) parseCompare() (types.Value, error) {
	lhs, err := e.parseAdd()
	if err != nil {
		return types.Value{}, err
	}
	k := e.Toks.Peek().Kind
	if cop, ok := compareOps[k]; ok {
		pos := e.pos()
		e.Toks.Next()
		rhs, err := e.parseAdd()
		if err != nil {
			return types.Value{}, e.fail(pos, err, lhs)
		}
		return e.Reg.Compare(e.Sec, cop, lhs, rhs, pos)
	}
	if sop, ok := shiftOps[k]; ok {
		pos := e.pos()
		e.Toks.Next()
		rhs, err := e.parseAdd()
		if err != nil {
			return types.Value{}, e.fail(pos, err, lhs)
		}
		return e.Reg.Shift(e.Sec, sop, lhs, rhs, pos)
	}
	return lhs, nil
}

func (e *Engine) parseAdd() (types.Value, error) {
	lhs, err := e.parseMul()
	if err != nil {
		return types.Value{}, err
	}
	for {
		var op types.ArithOp
		switch e.Toks.Peek().Kind {
		case frontend.Plus:
			op = types.Add
		case frontend.Minus:
			op = types.Sub
		default:
			return lhs, nil
		}
		pos := e.pos()
		e.Toks.Next()
		rhs, err := e.parseMul()
		if err != nil {
			return types.Value{}, e.fail(pos, err, lhs)
		}
		lhs, err = e.Reg.Arith(e.Sec, op, lhs, rhs, pos)
		if err != nil {
			return types.Value{}, e.fail(pos, err, lhs, rhs)
		}
	}
}

func (e *Engine) parseMul() (types.Value, error) {
	lhs, err := e.parsePow()
	if err != nil {
		return types.Value{}, err
	}
	for {
		var op types.ArithOp
		switch e.Toks.Peek().Kind {
		case frontend.Star:
			op = types.Mul
		case frontend.Slash:
			op = types.Div
		case frontend.KwMod:
			op = types.Mod
		case frontend.KwDiv:
			op = types.IDiv
		default:
			return lhs, nil
		}
		pos := e.pos()
		e.Toks.Next()
		rhs, err := e.parsePow()
		if err != nil {
			return types.Value{}, e.fail(pos, err, lhs)
		}
		lhs, err = e.Reg.Arith(e.Sec, op, lhs, rhs, pos)
		if err != nil {
			return types.Value{}, e.fail(pos, err, lhs, rhs)
		}
	}
}

func (e *Engine) parsePow() (types.Value, error) {
	lhs, err := e.parseUnary()
	if err != nil {
		return types.Value{}, err
	}
	if e.Toks.Peek().Kind == frontend.Caret {
		pos := e.pos()
		e.Toks.Next()
		rhs, err := e.parsePow() // right-associative
		if err != nil {
			return types.Value{}, e.fail(pos, err, lhs)
		}
		return e.Reg.Pow(e.Sec, lhs, rhs, pos)
	}
	return lhs, nil
}

func (e *Engine) parseUnary() (types.Value, error) {
	switch e.Toks.Peek().Kind {
	case frontend.Minus:
		pos := e.pos()
		e.Toks.Next()
		v, err := e.parseUnary()
		if err != nil {
			return types.Value{}, err
		}
		r, err := e.Reg.Of(v.Typ.Kind).UnaryMinus(e.Sec, v)
		if err != nil {
			return types.Value{}, e.fail(pos, err, v)
		}
		return r, nil
	case frontend.KwNot:
		pos := e.pos()
		e.Toks.Next()
		v, err := e.parseUnary()
		if err != nil {
			return types.Value{}, err
		}
		r, err := e.Reg.Of(v.Typ.Kind).Not(e.Sec, v)
		if err != nil {
			return types.Value{}, e.fail(pos, err, v)
		}
		return r, nil
	default:
		return e.parsePrimary()
	}
}

func (e *Engine) parsePrimary() (types.Value, error) {
	t := e.Toks.Peek()
	switch t.Kind {
	case frontend.IntLit:
		e.Toks.Next()
		return types.IntValue(t.IntVal), nil
	case frontend.RealLit:
		e.Toks.Next()
		return types.RealValue(t.RealVal), nil
	case frontend.StringLit:
		e.Toks.Next()
		return types.StringValue(t.Text), nil
	case frontend.KwTrue:
		e.Toks.Next()
		return types.IntValue(-1), nil
	case frontend.KwFalse:
		e.Toks.Next()
		return types.IntValue(0), nil
	case frontend.LParen:
		e.Toks.Next()
		v, err := e.Parse()
		if err != nil {
			return types.Value{}, err
		}
		if e.Toks.Peek().Kind != frontend.RParen {
			return types.Value{}, e.fail(e.pos(), cerr.New(cerr.RightBktExpected, e.pos(), "expected )"), v)
		}
		e.Toks.Next()
		return v, nil
	case frontend.Identifier:
		return e.parseIdentifier()
	default:
		return types.Value{}, cerr.New(cerr.ExpExpected, t.Pos, "expected expression, found %s", t.Kind)
	}
}

func (e *Engine) parseIdentifier() (types.Value, error) {
	t := e.Toks.Next()
	if e.Toks.Peek().Kind == frontend.LParen {
		return e.parseCall(t)
	}
	sym := e.Sym.Lookup(t.Text)
	if sym == nil {
		return types.Value{}, cerr.New(cerr.UnknownVariable, t.Pos, "%q is not defined", t.Text)
	}
	if sym.Storage == symtab.StorageReg {
		return types.RegValue(sym.Type, sym.Reg), nil
	}
	ops := e.Reg.Of(sym.Type.Kind)
	return ops.LoadMem(e.Sec, sym.Type, sym.Reg, int32(sym.Offset))
}

// parseCall parses the "(" arg, ... ")" suffix of a call expression and
// records it with the resolver (spec §4.F): the callee's existence, arity
// and parameter types aren't checked here — only once every section has
// been parsed.
func (e *Engine) parseCall(name frontend.Token) (types.Value, error) {
	e.Toks.Next() // consume '('
	var args []resolve.ArgSlot
	var owned []types.Value
	if e.Toks.Peek().Kind != frontend.RParen {
		for {
			pos := e.pos()
			v, err := e.Parse()
			if err != nil {
				return types.Value{}, e.fail(pos, err, owned...)
			}
			mv, err := e.Reg.Of(v.Typ.Kind).ExpToVar(e.Sec, v.Typ, v)
			if err != nil {
				return types.Value{}, e.fail(pos, err, append(owned, v)...)
			}
			owned = append(owned, mv)
			args = append(args, resolve.ArgSlot{Reg: mv.Reg, ArgType: mv.Typ, NopOffset: -1})
			if e.Toks.Peek().Kind != frontend.Comma {
				break
			}
			e.Toks.Next()
		}
	}
	if e.Toks.Peek().Kind != frontend.RParen {
		return types.Value{}, e.fail(e.pos(), cerr.New(cerr.RightBktExpected, e.pos(), "expected ) in call to %q", name.Text), owned...)
	}
	e.Toks.Next()

	regs := make([]ir.Reg, len(args))
	for i, a := range args {
		regs[i] = a.Reg
	}
	offset := e.Sec.Offset()
	r := e.Sec.AddI32Call(regs)
	if e.Call != nil {
		e.Call.RecordCall(e.Sec, offset, name.Text, args, name.Pos)
	}
	return types.RegValue(types.TInt, r), nil
}
