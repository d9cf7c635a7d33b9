package types

import (
	"subtilisgo/src/cerr"
	"subtilisgo/src/ir"
)

// ArithOp enumerates the arithmetic operators dispatched through Ops.Arith.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Mod
	IDiv
)

// CompareOp enumerates the comparison operators dispatched through
// Ops.Compare. Results are integer 0 (false) or -1 (true), per spec §4.A.
type CompareOp int

const (
	CmpEQ CompareOp = iota
	CmpNE
	CmpGT
	CmpLTE
	CmpLT
	CmpGTE
)

// BitwiseOp enumerates AND/OR/EOR.
type BitwiseOp int

const (
	BitAnd BitwiseOp = iota
	BitOr
	BitEor
)

// ShiftOp enumerates the shift operators; Asr is arithmetic (sign-extending)
// right shift, per spec §4.A: "`>>>` is arithmetic right shift."
type ShiftOp int

const (
	Lsl ShiftOp = iota
	Lsr
	Asr
)

// Ops is the capability set a Kind's type descriptor offers (spec §4.A).
// Not every Kind implements every capability: unsupported methods return a
// cerr.NotSupported error via the embedded Unsupported base.
type Ops interface {
	Size(t Type) (int, error)
	Align(t Type) (int, error)
	DataSize(t Type, count int32) (int, error)

	Zero(t Type) (Value, error)
	ZeroReg(sec *ir.Section, t Type, r ir.Reg) error

	ExpToVar(sec *ir.Section, t Type, v Value) (Value, error)
	CopyVar(sec *ir.Section, t Type, v Value) (Value, error)
	Dup(sec *ir.Section, t Type, v Value) (Value, error)

	AssignReg(sec *ir.Section, t Type, dest ir.Reg, v Value) error
	AssignMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32, v Value) error
	AssignNewMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32, v Value) error

	IndexedRead(sec *ir.Section, t Type, base ir.Reg, addr Value) (Value, error)
	IndexedWrite(sec *ir.Section, t Type, base ir.Reg, addr Value, v Value) error
	IndexedAddress(sec *ir.Section, t Type, base ir.Reg, addr Value) (Value, error)
	Set(sec *ir.Section, t Type, base ir.Reg, count Value, v Value) error
	Append(sec *ir.Section, t Type, base ir.Reg, v Value) (Value, error)
	ZeroBuf(sec *ir.Section, t Type, base ir.Reg, size Value) error

	LoadMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32) (Value, error)

	ToInt32(sec *ir.Section, v Value) (Value, error)
	Zerox(sec *ir.Section, v Value) (Value, error)
	ToByte(sec *ir.Section, v Value) (Value, error)
	ToFloat64(sec *ir.Section, v Value) (Value, error)
	ToString(sec *ir.Section, v Value) (Value, error)
	ToHexString(sec *ir.Section, v Value) (Value, error)
	Coerce(sec *ir.Section, v Value, target Type) (Value, error)

	ArithImpl(sec *ir.Section, op ArithOp, a, b Value, swapped bool) (Value, error)
	BitwiseImpl(sec *ir.Section, op BitwiseOp, a, b Value) (Value, error)
	CompareImpl(sec *ir.Section, op CompareOp, a, b Value, swapped bool) (Value, error)
	PowImpl(sec *ir.Section, a, b Value) (Value, error)
	ShiftImpl(sec *ir.Section, op ShiftOp, a, b Value) (Value, error)
	Abs(sec *ir.Section, a Value) (Value, error)
	Sgn(sec *ir.Section, a Value) (Value, error)
	IsInf(sec *ir.Section, a Value) (Value, error)
	Not(sec *ir.Section, a Value) (Value, error)
	UnaryMinus(sec *ir.Section, a Value) (Value, error)

	Call(sec *ir.Section, args []Value) error
	CallPtr(sec *ir.Section, ptr Value, args []Value) (Value, error)
	Ret(sec *ir.Section, v Value) error

	Print(sec *ir.Section, v Value) error
}

// Unsupported implements every Ops method by failing with a cerr.NotSupported
// error.
// Concrete per-Kind Ops types embed Unsupported and override only the
// methods the spec lists as applicable to that Kind (spec §9: "Unsupported
// operations are naturally expressed as default trait methods returning
// NotSupported").
type Unsupported struct{ What string }

func (u Unsupported) fail(op string) error {
	return cerr.New(cerr.NotSupported, cerr.Pos{}, "%s not supported on %s", op, u.What)
}

func (u Unsupported) Size(Type) (int, error)       { return 0, u.fail("size") }
func (u Unsupported) Align(Type) (int, error)      { return 0, u.fail("align") }
func (u Unsupported) DataSize(Type, int32) (int, error) { return 0, u.fail("data_size") }
func (u Unsupported) Zero(Type) (Value, error)     { return Value{}, u.fail("zero") }
func (u Unsupported) ZeroReg(*ir.Section, Type, ir.Reg) error { return u.fail("zero_reg") }
func (u Unsupported) ExpToVar(*ir.Section, Type, Value) (Value, error) {
	return Value{}, u.fail("exp_to_var")
}
func (u Unsupported) CopyVar(*ir.Section, Type, Value) (Value, error) {
	return Value{}, u.fail("copy_var")
}
func (u Unsupported) Dup(*ir.Section, Type, Value) (Value, error) { return Value{}, u.fail("dup") }
func (u Unsupported) AssignReg(*ir.Section, Type, ir.Reg, Value) error {
	return u.fail("assign_reg")
}
func (u Unsupported) AssignMem(*ir.Section, Type, ir.Reg, int32, Value) error {
	return u.fail("assign_mem")
}
func (u Unsupported) AssignNewMem(*ir.Section, Type, ir.Reg, int32, Value) error {
	return u.fail("assign_new_mem")
}
func (u Unsupported) IndexedRead(*ir.Section, Type, ir.Reg, Value) (Value, error) {
	return Value{}, u.fail("indexed_read")
}
func (u Unsupported) IndexedWrite(*ir.Section, Type, ir.Reg, Value, Value) error {
	return u.fail("indexed_write")
}
func (u Unsupported) IndexedAddress(*ir.Section, Type, ir.Reg, Value) (Value, error) {
	return Value{}, u.fail("indexed_address")
}
func (u Unsupported) Set(*ir.Section, Type, ir.Reg, Value, Value) error { return u.fail("set") }
func (u Unsupported) Append(*ir.Section, Type, ir.Reg, Value) (Value, error) {
	return Value{}, u.fail("append")
}
func (u Unsupported) ZeroBuf(*ir.Section, Type, ir.Reg, Value) error { return u.fail("zero_buf") }
func (u Unsupported) LoadMem(*ir.Section, Type, ir.Reg, int32) (Value, error) {
	return Value{}, u.fail("load_mem")
}
func (u Unsupported) ToInt32(*ir.Section, Value) (Value, error) { return Value{}, u.fail("to_int32") }
func (u Unsupported) Zerox(*ir.Section, Value) (Value, error)   { return Value{}, u.fail("zerox") }
func (u Unsupported) ToByte(*ir.Section, Value) (Value, error)  { return Value{}, u.fail("to_byte") }
func (u Unsupported) ToFloat64(*ir.Section, Value) (Value, error) {
	return Value{}, u.fail("to_float64")
}
func (u Unsupported) ToString(*ir.Section, Value) (Value, error) {
	return Value{}, u.fail("to_string")
}
func (u Unsupported) ToHexString(*ir.Section, Value) (Value, error) {
	return Value{}, u.fail("to_hex_string")
}
func (u Unsupported) Coerce(*ir.Section, Value, Type) (Value, error) {
	return Value{}, u.fail("coerce")
}
func (u Unsupported) ArithImpl(*ir.Section, ArithOp, Value, Value, bool) (Value, error) {
	return Value{}, u.fail("arithmetic")
}
func (u Unsupported) BitwiseImpl(*ir.Section, BitwiseOp, Value, Value) (Value, error) {
	return Value{}, u.fail("bitwise")
}
func (u Unsupported) CompareImpl(*ir.Section, CompareOp, Value, Value, bool) (Value, error) {
	return Value{}, u.fail("comparison")
}
func (u Unsupported) PowImpl(*ir.Section, Value, Value) (Value, error) { return Value{}, u.fail("pow") }
func (u Unsupported) ShiftImpl(*ir.Section, ShiftOp, Value, Value) (Value, error) {
	return Value{}, u.fail("shift")
}
func (u Unsupported) Abs(*ir.Section, Value) (Value, error)        { return Value{}, u.fail("abs") }
func (u Unsupported) Sgn(*ir.Section, Value) (Value, error)        { return Value{}, u.fail("sgn") }
func (u Unsupported) IsInf(*ir.Section, Value) (Value, error)      { return Value{}, u.fail("is_inf") }
func (u Unsupported) Not(*ir.Section, Value) (Value, error)        { return Value{}, u.fail("not") }
func (u Unsupported) UnaryMinus(*ir.Section, Value) (Value, error) { return Value{}, u.fail("unary_minus") }
func (u Unsupported) Call(*ir.Section, []Value) error              { return u.fail("call") }
func (u Unsupported) CallPtr(*ir.Section, Value, []Value) (Value, error) {
	return Value{}, u.fail("call_ptr")
}
func (u Unsupported) Ret(*ir.Section, Value) error   { return u.fail("ret") }
func (u Unsupported) Print(*ir.Section, Value) error { return u.fail("print") }
