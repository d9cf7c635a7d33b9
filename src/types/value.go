package types

import "subtilisgo/src/ir"

// Value is a tagged record carrying its Type and one of: an IR operand (for
// variables/results), an immediate integer or real (for const-tagged
// types), or a string buffer (for const strings) — spec §3's "Expression
// value".
//
// Value is move-only by convention: every Ops method that accepts a Value
// consumes it (the caller must not reuse it afterwards unless the method
// documents otherwise, e.g. Dup/CopyVar which exist precisely to produce a
// second usable copy). Owned tracks whether this Value still holds a live,
// not-yet-stored heap reference that must be released (via the runtime
// package's Release) if it is abandoned on an error path — the mechanical
// realisation of spec §4.D's "expression deletion is total and idempotent".
type Value struct {
	Typ     Type
	Reg     ir.Reg
	HasReg  bool
	IntImm  int32
	RealImm float64
	StrImm  string
	Owned   bool
}

// RegValue wraps a register-backed value of type t.
func RegValue(t Type, r ir.Reg) Value {
	return Value{Typ: t, Reg: r, HasReg: true}
}

// IntValue wraps a const-int immediate.
func IntValue(v int32) Value {
	return Value{Typ: TConstInt, IntImm: v}
}

// RealValue wraps a const-real immediate.
func RealValue(v float64) Value {
	return Value{Typ: TConstReal, RealImm: v}
}

// StringValue wraps a const-string literal buffer.
func StringValue(s string) Value {
	return Value{Typ: TConstString, StrImm: s}
}

// Operand converts v to an ir.Operand suitable for use as an instruction
// source: a register reference if HasReg, else the appropriate immediate.
func (v Value) Operand() ir.Operand {
	if v.HasReg {
		return ir.RegOperand(v.Reg)
	}
	switch v.Typ.Kind {
	case ConstReal:
		return ir.ImmReal64(v.RealImm)
	default:
		return ir.ImmInt32(v.IntImm)
	}
}

// IsConst reports whether v is a compile-time-known value.
func (v Value) IsConst() bool { return v.Typ.IsConst() }

// MarkConsumed clears Owned once ownership of a reference-typed value has
// been transferred (e.g. stored into a variable or passed as a call
// argument), so a later Release becomes a no-op.
func (v *Value) MarkConsumed() { v.Owned = false }
