package types

import (
	"subtilisgo/src/cerr"
	"subtilisgo/src/ir"
	"subtilisgo/src/stats"
)

// Registry maps each Kind to its Ops implementation (spec §4.A). It is the
// outer dispatcher the expression engine (component D) and runtime
// (component E) drive: it applies the operand ordering and mixed-type
// promotion rules spec §4.A specifies once, centrally, then hands off to
// the resulting common Kind's Ops for the actual IR emission.
type Registry struct {
	ops map[Kind]Ops

	// Stats, if set by the caller driving compilation, is bumped each time
	// a coercion actually emits IR. Left nil, the bump is a no-op.
	Stats *stats.Registry
}

// NewRegistry returns a Registry pre-populated with every built-in Kind's
// Ops implementation.
func NewRegistry() *Registry {
	r := &Registry{ops: make(map[Kind]Ops)}
	r.ops[ConstInt] = constIntOps{}
	r.ops[Int] = intOps{}
	r.ops[ConstReal] = constRealOps{}
	r.ops[Real] = realOps{}
	r.ops[Byte] = byteOps{}
	r.ops[ConstString] = constStringOps{}
	r.ops[String] = stringOps{}
	r.ops[Array] = arrayOps{}
	r.ops[Vector] = vectorOps{}
	r.ops[Record] = recordOps{}
	r.ops[FuncPtr] = funcPtrOps{}
	r.ops[Void] = voidOps{}
	return r
}

// Of returns the Ops implementation for Kind k.
func (r *Registry) Of(k Kind) Ops { return r.ops[k] }

// promote implements spec §4.A's mixed-type promotion table:
//
//	const-int   vs const-real -> const-real
//	const-int   vs int        -> int
//	const-int   vs real       -> real
//	const-real  vs int        -> real
//	byte participates by extension (handled by the caller per operator).
func promote(a, b Kind) (Kind, bool) {
	if a == Byte && b == Byte {
		// Byte always promotes to int for arithmetic (spec §4.A:
		// "sign-extension to int for arithmetic"), even byte-vs-byte.
		return Int, true
	}
	if a == b {
		return a, true
	}
	pairs := map[[2]Kind]Kind{
		{ConstInt, ConstReal}: ConstReal,
		{ConstReal, ConstInt}: ConstReal,
		{ConstInt, Int}:       Int,
		{Int, ConstInt}:       Int,
		{ConstInt, Real}:      Real,
		{Real, ConstInt}:      Real,
		{ConstReal, Int}:      Real,
		{Int, ConstReal}:      Real,
		{ConstReal, Real}:     Real,
		{Real, ConstReal}:     Real,
		{Byte, Int}:           Int,
		{Int, Byte}:           Int,
		{Byte, ConstInt}:      Int,
		{ConstInt, Byte}:      Int,
		{Byte, Real}:          Real,
		{Real, Byte}:          Real,
		{Byte, ConstReal}:     Real,
		{ConstReal, Byte}:     Real,
	}
	k, ok := pairs[[2]Kind{a, b}]
	return k, ok
}

// order places the sole const-tagged operand on the right and reports
// whether it swapped the pair (spec §4.A: "if exactly one operand is
// const-tagged it is placed on the right; non-commutative operators record
// whether ordering swapped them").
func order(a, b Value) (Value, Value, bool) {
	if a.IsConst() && !b.IsConst() {
		return b, a, true
	}
	return a, b, false
}

func (r *Registry) commonType(a, b Type) (Type, error) {
	k, ok := promote(a.Kind, b.Kind)
	if !ok {
		return Type{}, cerr.New(cerr.BadExpression, cerr.Pos{},
			"cannot combine %s and %s", a, b)
	}
	switch k {
	case Int:
		return TInt, nil
	case Real:
		return TReal, nil
	case ConstReal:
		return TConstReal, nil
	default:
		return a, nil
	}
}

// coerceBoth coerces a and b to the common Kind k via each value's own
// Coerce capability.
func (r *Registry) coerceBoth(sec *ir.Section, a, b Value, target Type) (Value, Value, error) {
	before := len(sec.Instrs)
	ca, err := r.Of(a.Typ.Kind).Coerce(sec, a, target)
	if err != nil {
		return Value{}, Value{}, err
	}
	cb, err := r.Of(b.Typ.Kind).Coerce(sec, b, target)
	if err != nil {
		return Value{}, Value{}, err
	}
	r.countCoercions(len(sec.Instrs) - before)
	return ca, cb, nil
}

// coerceCompareOperand coerces v to target for Compare's use: a byte operand
// landing on Int for an =/<> comparison zero-extends (Zerox) rather than
// sign-extending through the default Coerce path, matching
// original_source's prv_eq/prv_neq.
func (r *Registry) coerceCompareOperand(sec *ir.Section, v Value, target Type, zeroExtend bool) (Value, error) {
	before := len(sec.Instrs)
	var cv Value
	var err error
	if zeroExtend && v.Typ.Kind == Byte && (target.Kind == Int || target.Kind == ConstInt) {
		cv, err = r.Of(Byte).Zerox(sec, v)
	} else {
		cv, err = r.Of(v.Typ.Kind).Coerce(sec, v, target)
	}
	if err != nil {
		return Value{}, err
	}
	r.countCoercions(len(sec.Instrs) - before)
	return cv, nil
}

// countCoercions bumps Stats.CoercionsInserted once per call that actually
// emitted IR, n being the number of instructions the coercion just added
// (0 when the value's Kind already matched and Coerce/Zerox was a no-op).
func (r *Registry) countCoercions(n int) {
	if r.Stats != nil && n > 0 {
		r.Stats.CoercionsInserted.Inc()
	}
}

// foldArith attempts compile-time constant folding when both operands are
// const-tagged (spec §4.D: "when both operands are const-tagged the result
// is produced by compile-time folding"). ok is false if either operand is
// not const or the operator cannot be folded (e.g. division by a non-zero
// constant still folds; division by literal zero is a caller-level error,
// handled before folding is attempted). Const strings are not folded here:
// concatenation of two literals is constStringOps.ArithImpl's job.
func foldArith(op ArithOp, a, b Value) (Value, bool) {
	if !a.IsConst() || !b.IsConst() {
		return Value{}, false
	}
	if a.Typ.Kind == ConstString || b.Typ.Kind == ConstString {
		return Value{}, false
	}
	if a.Typ.Kind == ConstReal || b.Typ.Kind == ConstReal {
		x, y := toReal(a), toReal(b)
		switch op {
		case Add:
			return RealValue(x + y), true
		case Sub:
			return RealValue(x - y), true
		case Mul:
			return RealValue(x * y), true
		case Div:
			return RealValue(x / y), true
		default:
			return Value{}, false
		}
	}
	x, y := a.IntImm, b.IntImm
	switch op {
	case Add:
		return IntValue(x + y), true
	case Sub:
		return IntValue(x - y), true
	case Mul:
		return IntValue(x * y), true
	case Div:
		if y == 0 {
			return Value{}, false
		}
		return IntValue(x / y), true
	case Mod:
		if y == 0 {
			return Value{}, false
		}
		return IntValue(x % y), true
	case IDiv:
		if y == 0 {
			return Value{}, false
		}
		return IntValue(x / y), true
	}
	return Value{}, false
}

func toReal(v Value) float64 {
	if v.Typ.Kind == ConstReal {
		return v.RealImm
	}
	return float64(v.IntImm)
}

// Arith dispatches a binary arithmetic operator through the ordering,
// promotion and constant-folding rules of spec §4.A/§4.D, delegating the
// actual IR emission to the promoted common Kind's ArithImpl.
func (r *Registry) Arith(sec *ir.Section, op ArithOp, a, b Value, pos cerr.Pos) (Value, error) {
	if (op == Div || op == Mod || op == IDiv) && b.IsConst() {
		if (b.Typ.Kind == ConstInt && b.IntImm == 0) || (b.Typ.Kind == ConstReal && b.RealImm == 0) {
			return Value{}, cerr.New(cerr.DivideByZero, pos, "division by literal zero")
		}
	}
	// order() only swaps when exactly one operand is const-tagged, so when
	// both operands are const (the only case foldArith handles) lhs/rhs are
	// still in source order and swapped is always false.
	lhs, rhs, swapped := order(a, b)
	if v, ok := foldArith(op, lhs, rhs); ok {
		return v, nil
	}
	common, err := r.commonType(lhs.Typ, rhs.Typ)
	if err != nil {
		return Value{}, err
	}
	clhs, crhs, err := r.coerceBoth(sec, lhs, rhs, common)
	if err != nil {
		return Value{}, err
	}
	if swapped && op != Add && op != Mul {
		// Non-commutative: restore source order, moving the const operand
		// (now on the right) into a register so it can sit on the left.
		m, err := r.Of(common.Kind).ExpToVar(sec, common, crhs)
		if err != nil {
			return Value{}, err
		}
		clhs, crhs, swapped = m, clhs, false
	}
	return r.Of(common.Kind).ArithImpl(sec, op, clhs, crhs, swapped)
}

// Compare dispatches a binary comparison operator (spec §4.A), with byte
// operands zero-extended for =/<> and sign-extended for ordering
// comparisons before promotion, per spec §4.A and original_source's
// byte_type_if.c (prv_eq/prv_neq zero-extend via prv_zerox; ordering
// comparisons sign-extend via the regular coercion path).
func (r *Registry) Compare(sec *ir.Section, op CompareOp, a, b Value, pos cerr.Pos) (Value, error) {
	lhs, rhs, swapped := order(a, b)
	common, err := r.commonType(lhs.Typ, rhs.Typ)
	if err != nil {
		return Value{}, err
	}
	zeroExtend := op == CmpEQ || op == CmpNE
	clhs, err := r.coerceCompareOperand(sec, lhs, common, zeroExtend)
	if err != nil {
		return Value{}, err
	}
	crhs, err := r.coerceCompareOperand(sec, rhs, common, zeroExtend)
	if err != nil {
		return Value{}, err
	}
	if clhs.IsConst() && crhs.IsConst() && common.Kind != ConstString {
		if v, ok := foldCompare(op, clhs, crhs); ok {
			return v, nil
		}
	}
	return r.Of(common.Kind).CompareImpl(sec, op, clhs, crhs, swapped)
}

func foldCompare(op CompareOp, a, b Value) (Value, bool) {
	var cmp int
	if a.Typ.Kind == ConstReal {
		x, y := toReal(a), toReal(b)
		switch {
		case x < y:
			cmp = -1
		case x > y:
			cmp = 1
		}
	} else {
		x, y := a.IntImm, b.IntImm
		switch {
		case x < y:
			cmp = -1
		case x > y:
			cmp = 1
		}
	}
	var res bool
	switch op {
	case CmpEQ:
		res = cmp == 0
	case CmpNE:
		res = cmp != 0
	case CmpGT:
		res = cmp > 0
	case CmpLTE:
		res = cmp <= 0
	case CmpLT:
		res = cmp < 0
	case CmpGTE:
		res = cmp >= 0
	}
	if res {
		return IntValue(-1), true
	}
	return IntValue(0), true
}

// Pow folds a const-zero or const-one exponent per spec §4.A ("pow with a
// const-zero exponent folds to 1; with exponent 1 folds to the base"),
// otherwise promotes both operands to real and delegates.
func (r *Registry) Pow(sec *ir.Section, a, b Value, pos cerr.Pos) (Value, error) {
	if b.IsConst() {
		exp := toReal(b)
		if exp == 0 {
			return IntValue(1), nil
		}
		if exp == 1 {
			return a, nil
		}
	}
	ca, err := r.Of(a.Typ.Kind).Coerce(sec, a, TReal)
	if err != nil {
		return Value{}, err
	}
	cb, err := r.Of(b.Typ.Kind).Coerce(sec, b, TReal)
	if err != nil {
		return Value{}, err
	}
	return r.Of(Real).PowImpl(sec, ca, cb)
}

// Shift requires integer operands (spec §4.A: "Shifts require integer
// operands").
func (r *Registry) Shift(sec *ir.Section, op ShiftOp, a, b Value, pos cerr.Pos) (Value, error) {
	if !a.Typ.IsNumeric() || a.Typ.Kind == Real || a.Typ.Kind == ConstReal ||
		!b.Typ.IsNumeric() || b.Typ.Kind == Real || b.Typ.Kind == ConstReal {
		return Value{}, cerr.New(cerr.IntegerExpected, pos, "shift requires integer operands")
	}
	ca, err := r.Of(a.Typ.Kind).Coerce(sec, a, TInt)
	if err != nil {
		return Value{}, err
	}
	cb, err := r.Of(b.Typ.Kind).Coerce(sec, b, TInt)
	if err != nil {
		return Value{}, err
	}
	return r.Of(Int).ShiftImpl(sec, op, ca, cb)
}

// Bitwise requires integer operands and promotes like Arith.
func (r *Registry) Bitwise(sec *ir.Section, op BitwiseOp, a, b Value, pos cerr.Pos) (Value, error) {
	common, err := r.commonType(a.Typ, b.Typ)
	if err != nil {
		return Value{}, err
	}
	if common.Kind == Real || common.Kind == ConstReal {
		return Value{}, cerr.New(cerr.IntegerExpected, pos, "bitwise op requires integer operands")
	}
	ca, cb, err := r.coerceBoth(sec, a, b, common)
	if err != nil {
		return Value{}, err
	}
	return r.Of(common.Kind).BitwiseImpl(sec, op, ca, cb)
}
