package types

import (
	"subtilisgo/src/cerr"
	"subtilisgo/src/ir"
)

// ---- string (reference-typed, heap-backed — spec §4.E) ----

type stringOps struct{ Unsupported }

func (stringOps) Size(Type) (int, error)  { return 4, nil } // pointer into the heap
func (stringOps) Align(Type) (int, error) { return 4, nil }

func (stringOps) Zero(t Type) (Value, error) { return Value{Typ: TString, IntImm: 0}, nil }

func (stringOps) ZeroReg(sec *ir.Section, t Type, r ir.Reg) error {
	sec.AddInstrReg(ir.MOVI_I32, r, ir.ImmInt32(0), ir.Operand{})
	return nil
}

func (stringOps) ExpToVar(sec *ir.Section, t Type, v Value) (Value, error) {
	if v.HasReg {
		return v, nil
	}
	return Value{}, cerr.New(cerr.AssertionFailed, cerr.Pos{}, "string value has no register to materialise")
}

// CopyVar on a reference type is a retain, not a deep copy: it bumps the
// refcount via REF rather than duplicating the heap buffer (spec §4.E's
// copy-on-write protocol defers the actual copy to the first write).
func (stringOps) CopyVar(sec *ir.Section, t Type, v Value) (Value, error) {
	sec.AddInstrNoReg(ir.REF, v.Operand(), ir.Operand{}, ir.Operand{})
	return RegValue(TString, v.Reg), nil
}

func (o stringOps) Dup(sec *ir.Section, t Type, v Value) (Value, error) { return o.CopyVar(sec, t, v) }

func (stringOps) AssignReg(sec *ir.Section, t Type, dest ir.Reg, v Value) error {
	sec.AddInstrReg(ir.MOV, dest, v.Operand(), ir.Operand{})
	return nil
}

func (stringOps) AssignMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32, v Value) error {
	sec.AddInstrNoReg(ir.STOREO_I32, v.Operand(), ir.RegOperand(memReg), ir.ImmInt32(loc))
	return nil
}

func (o stringOps) AssignNewMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32, v Value) error {
	return o.AssignMem(sec, t, memReg, loc, v)
}

func (stringOps) LoadMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32) (Value, error) {
	r := sec.AddInstr(ir.LOADO_I32, ir.RegOperand(memReg), ir.ImmInt32(loc))
	return RegValue(TString, r), nil
}

// IndexedRead returns the byte at addr within the string's data buffer
// (spec §4.E array-addressing formula specialised to a 1-byte element).
func (stringOps) IndexedRead(sec *ir.Section, t Type, base ir.Reg, addr Value) (Value, error) {
	r := sec.AddInstr(ir.LOADO_I8, ir.RegOperand(base), addr.Operand())
	return RegValue(TByte, r), nil
}

func (stringOps) ToString(sec *ir.Section, v Value) (Value, error) { return v, nil }

func (stringOps) ToInt32(sec *ir.Section, v Value) (Value, error) {
	r := sec.AddI32Call([]ir.Reg{v.Reg})
	return RegValue(TInt, r), nil
}

func (stringOps) ToFloat64(sec *ir.Section, v Value) (Value, error) {
	r := sec.AddRealCall([]ir.Reg{v.Reg})
	return RegValue(TReal, r), nil
}

func (o stringOps) Coerce(sec *ir.Section, v Value, target Type) (Value, error) {
	switch target.Kind {
	case String, ConstString:
		return RegValue(TString, v.Reg), nil
	default:
		return Value{}, cerr.New(cerr.BadConversion, cerr.Pos{}, "cannot coerce string to %s", target)
	}
}

// ArithImpl only supports Add (string concatenation, spec §4.A): the result
// is a fresh heap buffer sized to fit both operands.
func (stringOps) ArithImpl(sec *ir.Section, op ArithOp, a, b Value, swapped bool) (Value, error) {
	if op != Add {
		return Value{}, cerr.New(cerr.NotSupported, cerr.Pos{}, "only + is supported on strings")
	}
	r := sec.AddI32Call([]ir.Reg{a.Reg, b.Reg})
	return RegValue(TString, r), nil
}

func (stringOps) CompareImpl(sec *ir.Section, op CompareOp, a, b Value, swapped bool) (Value, error) {
	eff := op
	if swapped {
		eff = flipCompare(op)
	}
	cmp := sec.AddI32Call([]ir.Reg{a.Reg, b.Reg})
	switch eff {
	case CmpEQ:
		r := sec.AddInstr(ir.EQ_I32, ir.RegOperand(cmp), ir.ImmInt32(0))
		return RegValue(TInt, r), nil
	case CmpNE:
		r := sec.AddInstr(ir.NEQ_I32, ir.RegOperand(cmp), ir.ImmInt32(0))
		return RegValue(TInt, r), nil
	case CmpGT:
		r := sec.AddInstr(ir.GT_I32, ir.RegOperand(cmp), ir.ImmInt32(0))
		return RegValue(TInt, r), nil
	case CmpLTE:
		r := sec.AddInstr(ir.LTE_I32, ir.RegOperand(cmp), ir.ImmInt32(0))
		return RegValue(TInt, r), nil
	case CmpLT:
		r := sec.AddInstr(ir.LT_I32, ir.RegOperand(cmp), ir.ImmInt32(0))
		return RegValue(TInt, r), nil
	case CmpGTE:
		r := sec.AddInstr(ir.GTE_I32, ir.RegOperand(cmp), ir.ImmInt32(0))
		return RegValue(TInt, r), nil
	}
	return Value{}, cerr.New(cerr.NotSupported, cerr.Pos{}, "unsupported string comparison")
}

func (stringOps) Call(sec *ir.Section, args []Value) error {
	sec.AddCall(regsOf(args))
	return nil
}

func (stringOps) Ret(sec *ir.Section, v Value) error {
	sec.AddInstrNoReg(ir.RET_I32, v.Operand(), ir.Operand{}, ir.Operand{})
	return nil
}

func (stringOps) Print(sec *ir.Section, v Value) error {
	sec.AddInstrNoReg(ir.PRINT_STR, v.Operand(), ir.Operand{}, ir.Operand{})
	return nil
}

// ---- const string (compile-time literal buffer) ----

type constStringOps struct{ Unsupported }

func (constStringOps) Size(Type) (int, error)  { return 4, nil }
func (constStringOps) Align(Type) (int, error) { return 4, nil }
func (constStringOps) Zero(Type) (Value, error) { return StringValue(""), nil }

// ExpToVar materialises a literal's bytes into a fresh heap buffer: the one
// place a const string acquires a register and an owning reference.
func (constStringOps) ExpToVar(sec *ir.Section, t Type, v Value) (Value, error) {
	r := sec.AddInstr(ir.ALLOC, ir.ImmInt32(int32(len(v.StrImm))), ir.Operand{})
	return Value{Typ: TString, Reg: r, HasReg: true, Owned: true}, nil
}

func (o constStringOps) CopyVar(sec *ir.Section, t Type, v Value) (Value, error) {
	return o.ExpToVar(sec, t, v)
}

func (o constStringOps) Dup(sec *ir.Section, t Type, v Value) (Value, error) { return v, nil }

func (constStringOps) ToString(sec *ir.Section, v Value) (Value, error) { return v, nil }

func (constStringOps) Coerce(sec *ir.Section, v Value, target Type) (Value, error) {
	switch target.Kind {
	case ConstString:
		return v, nil
	case String:
		return Value{Typ: TString, StrImm: v.StrImm}, nil
	default:
		return Value{}, cerr.New(cerr.BadConversion, cerr.Pos{}, "cannot coerce const string to %s", target)
	}
}

func (constStringOps) ArithImpl(sec *ir.Section, op ArithOp, a, b Value, swapped bool) (Value, error) {
	if op != Add {
		return Value{}, cerr.New(cerr.NotSupported, cerr.Pos{}, "only + is supported on strings")
	}
	if a.Typ.Kind == ConstString && b.Typ.Kind == ConstString {
		return StringValue(a.StrImm + b.StrImm), nil
	}
	return Value{}, cerr.New(cerr.AssertionFailed, cerr.Pos{}, "constStringOps.ArithImpl: non-const operand")
}

func (constStringOps) CompareImpl(sec *ir.Section, op CompareOp, a, b Value, swapped bool) (Value, error) {
	eff := op
	if swapped {
		eff = flipCompare(op)
	}
	var cmp int
	switch {
	case a.StrImm < b.StrImm:
		cmp = -1
	case a.StrImm > b.StrImm:
		cmp = 1
	}
	var res bool
	switch eff {
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
		return IntValue(-1), nil
	}
	return IntValue(0), nil
}
