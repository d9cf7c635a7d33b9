package types

import (
	"fmt"

	"subtilisgo/src/cerr"
	"subtilisgo/src/ir"
)

// Values reaching the per-Kind Arith/Compare/Bitwise/Shift implementations
// are either register-backed (HasReg == true) or a const operand that
// Coerce turned into an Int or Real with HasReg == false, which Operand()
// renders as an immediate. Registry.Arith and Registry.Compare place such an
// operand on the right (Registry.order); Registry.Bitwise and Registry.Shift
// keep source order, so there it may be either operand.

// ---- int ----

type intOps struct{ Unsupported }

func (intOps) Size(Type) (int, error)  { return 4, nil }
func (intOps) Align(Type) (int, error) { return 4, nil }

func (intOps) Zero(t Type) (Value, error) { return Value{Typ: TInt, IntImm: 0}, nil }

func (o intOps) ZeroReg(sec *ir.Section, t Type, r ir.Reg) error {
	sec.AddInstrReg(ir.MOVI_I32, r, ir.ImmInt32(0), ir.Operand{})
	return nil
}

func (intOps) ExpToVar(sec *ir.Section, t Type, v Value) (Value, error) {
	if v.HasReg {
		return v, nil
	}
	r := sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(v.IntImm), ir.Operand{})
	return RegValue(TInt, r), nil
}

func (o intOps) CopyVar(sec *ir.Section, t Type, v Value) (Value, error) {
	mv, err := o.ExpToVar(sec, t, v)
	if err != nil {
		return Value{}, err
	}
	r := sec.AddInstr(ir.MOV, mv.Operand(), ir.Operand{})
	return RegValue(TInt, r), nil
}

func (o intOps) Dup(sec *ir.Section, t Type, v Value) (Value, error) { return o.CopyVar(sec, t, v) }

func (intOps) AssignReg(sec *ir.Section, t Type, dest ir.Reg, v Value) error {
	sec.AddInstrReg(ir.MOV, dest, v.Operand(), ir.Operand{})
	return nil
}

func (intOps) AssignMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32, v Value) error {
	sec.AddInstrNoReg(ir.STOREO_I32, v.Operand(), ir.RegOperand(memReg), ir.ImmInt32(loc))
	return nil
}

func (o intOps) AssignNewMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32, v Value) error {
	return o.AssignMem(sec, t, memReg, loc, v)
}

func (intOps) LoadMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32) (Value, error) {
	r := sec.AddInstr(ir.LOADO_I32, ir.RegOperand(memReg), ir.ImmInt32(loc))
	return RegValue(TInt, r), nil
}

func (intOps) ToInt32(sec *ir.Section, v Value) (Value, error) { return v, nil }

func (intOps) Zerox(sec *ir.Section, v Value) (Value, error) { return v, nil }

func (intOps) ToByte(sec *ir.Section, v Value) (Value, error) {
	return RegValue(TByte, v.Reg), nil
}

func (intOps) ToFloat64(sec *ir.Section, v Value) (Value, error) {
	r := sec.AddInstr(ir.MOV_I32_FP, v.Operand(), ir.Operand{})
	return RegValue(TReal, r), nil
}

func (intOps) ToString(sec *ir.Section, v Value) (Value, error) {
	a := []ir.Reg{regOf(v)}
	r := sec.AddI32Call(a)
	return RegValue(TString, r), nil
}

func (intOps) ToHexString(sec *ir.Section, v Value) (Value, error) {
	a := []ir.Reg{regOf(v)}
	r := sec.AddI32Call(a)
	return RegValue(TString, r), nil
}

func (o intOps) Coerce(sec *ir.Section, v Value, target Type) (Value, error) {
	switch target.Kind {
	case Int, ConstInt:
		return RegValue(TInt, v.Reg), nil
	case Real, ConstReal:
		return o.ToFloat64(sec, v)
	case Byte:
		return o.ToByte(sec, v)
	default:
		return Value{}, cerr.New(cerr.BadConversion, cerr.Pos{}, "cannot coerce int to %s", target)
	}
}

func regOf(v Value) ir.Reg { return v.Reg }

func (intOps) ArithImpl(sec *ir.Section, op ArithOp, a, b Value, swapped bool) (Value, error) {
	return arithEmit(sec, op, a, b, false)
}

func (intOps) CompareImpl(sec *ir.Section, op CompareOp, a, b Value, swapped bool) (Value, error) {
	return compareEmit(sec, op, a, b, false, swapped)
}

func (intOps) BitwiseImpl(sec *ir.Section, op BitwiseOp, a, b Value) (Value, error) {
	var opc ir.Opcode
	switch op {
	case BitAnd:
		opc = ir.AND_I32
	case BitOr:
		opc = ir.OR_I32
	case BitEor:
		opc = ir.EOR_I32
	}
	r := sec.AddInstr(opc, a.Operand(), b.Operand())
	return RegValue(TInt, r), nil
}

func (intOps) ShiftImpl(sec *ir.Section, op ShiftOp, a, b Value) (Value, error) {
	var opc ir.Opcode
	switch op {
	case Lsl:
		opc = ir.LSL_I32
	case Lsr:
		opc = ir.LSR_I32
	case Asr:
		opc = ir.ASR_I32
	}
	r := sec.AddInstr(opc, a.Operand(), b.Operand())
	return RegValue(TInt, r), nil
}

func (o intOps) PowImpl(sec *ir.Section, a, b Value) (Value, error) {
	return Value{}, cerr.New(cerr.NotSupported, cerr.Pos{}, "pow on int requires real promotion")
}

func (intOps) Abs(sec *ir.Section, a Value) (Value, error) {
	neg := sec.AddInstr(ir.MULI_I32, a.Operand(), ir.ImmInt32(-1))
	okLabel := sec.NewLabel()
	cmp := sec.AddInstr(ir.GTE_I32, a.Operand(), ir.ImmInt32(0))
	r := sec.AddInstr(ir.CMOV_I32, ir.RegOperand(cmp), ir.RegOperand(neg))
	_ = okLabel
	return RegValue(TInt, r), nil
}

func (intOps) Sgn(sec *ir.Section, a Value) (Value, error) {
	gt := sec.AddInstr(ir.GT_I32, a.Operand(), ir.ImmInt32(0))
	lt := sec.AddInstr(ir.LT_I32, a.Operand(), ir.ImmInt32(0))
	r := sec.AddInstr(ir.SUB_I32, ir.RegOperand(gt), ir.RegOperand(lt))
	return RegValue(TInt, r), nil
}

func (intOps) Not(sec *ir.Section, a Value) (Value, error) {
	r := sec.AddInstr(ir.NOT_I32, a.Operand(), ir.Operand{})
	return RegValue(TInt, r), nil
}

func (intOps) UnaryMinus(sec *ir.Section, a Value) (Value, error) {
	r := sec.AddInstr(ir.MULI_I32, a.Operand(), ir.ImmInt32(-1))
	return RegValue(TInt, r), nil
}

func (intOps) Call(sec *ir.Section, args []Value) error {
	sec.AddCall(regsOf(args))
	return nil
}

func (intOps) CallPtr(sec *ir.Section, ptr Value, args []Value) (Value, error) {
	i := sec.AddCallPtr(ir.CALL_PTR_I32, ptr.Reg, regsOf(args))
	return RegValue(TInt, i.Dest), nil
}

func (intOps) Ret(sec *ir.Section, v Value) error {
	sec.AddInstrNoReg(ir.RET_I32, v.Operand(), ir.Operand{}, ir.Operand{})
	return nil
}

func (intOps) Print(sec *ir.Section, v Value) error {
	a := []ir.Reg{regOf(v)}
	sec.AddI32Call(a)
	return nil
}

func regsOf(vs []Value) []ir.Reg {
	rs := make([]ir.Reg, len(vs))
	for i, v := range vs {
		rs[i] = v.Reg
	}
	return rs
}

// ---- const int ----

type constIntOps struct{ Unsupported }

func (constIntOps) Size(Type) (int, error)  { return 4, nil }
func (constIntOps) Align(Type) (int, error) { return 4, nil }
func (constIntOps) Zero(Type) (Value, error) { return IntValue(0), nil }

func (constIntOps) ExpToVar(sec *ir.Section, t Type, v Value) (Value, error) {
	r := sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(v.IntImm), ir.Operand{})
	return RegValue(TInt, r), nil
}

func (o constIntOps) CopyVar(sec *ir.Section, t Type, v Value) (Value, error) {
	return o.ExpToVar(sec, t, v)
}
func (o constIntOps) Dup(sec *ir.Section, t Type, v Value) (Value, error) { return v, nil }

func (constIntOps) ToInt32(sec *ir.Section, v Value) (Value, error) { return v, nil }

func (constIntOps) ToString(sec *ir.Section, v Value) (Value, error) {
	return StringValue(fmt.Sprintf("%d", v.IntImm)), nil
}

func (constIntOps) Coerce(sec *ir.Section, v Value, target Type) (Value, error) {
	switch target.Kind {
	case ConstInt:
		return v, nil
	case Int:
		return Value{Typ: TInt, IntImm: v.IntImm}, nil
	case ConstReal:
		return RealValue(float64(v.IntImm)), nil
	case Real:
		return Value{Typ: TReal, RealImm: float64(v.IntImm)}, nil
	case Byte:
		return Value{Typ: TByte, IntImm: v.IntImm & 0xFF}, nil
	default:
		return Value{}, cerr.New(cerr.BadConversion, cerr.Pos{}, "cannot coerce const int to %s", target)
	}
}

func (constIntOps) Not(sec *ir.Section, a Value) (Value, error) {
	if a.IntImm == 0 {
		return IntValue(-1), nil
	}
	return IntValue(0), nil
}

func (constIntOps) UnaryMinus(sec *ir.Section, a Value) (Value, error) {
	return IntValue(-a.IntImm), nil
}

func (constIntOps) Abs(sec *ir.Section, a Value) (Value, error) {
	if a.IntImm < 0 {
		return IntValue(-a.IntImm), nil
	}
	return a, nil
}

func (constIntOps) Sgn(sec *ir.Section, a Value) (Value, error) {
	switch {
	case a.IntImm > 0:
		return IntValue(1), nil
	case a.IntImm < 0:
		return IntValue(-1), nil
	default:
		return IntValue(0), nil
	}
}

// ---- real ----

type realOps struct{ Unsupported }

func (realOps) Size(Type) (int, error)  { return 8, nil }
func (realOps) Align(Type) (int, error) { return 8, nil }
func (realOps) Zero(Type) (Value, error) { return Value{Typ: TReal, RealImm: 0}, nil }

func (o realOps) ZeroReg(sec *ir.Section, t Type, r ir.Reg) error {
	sec.AddInstrReg(ir.MOVI_REAL, r, ir.ImmReal64(0), ir.Operand{})
	return nil
}

func (realOps) ExpToVar(sec *ir.Section, t Type, v Value) (Value, error) {
	if v.HasReg {
		return v, nil
	}
	r := sec.AddInstr(ir.MOVI_REAL, ir.ImmReal64(v.RealImm), ir.Operand{})
	return RegValue(TReal, r), nil
}

func (o realOps) CopyVar(sec *ir.Section, t Type, v Value) (Value, error) {
	mv, err := o.ExpToVar(sec, t, v)
	if err != nil {
		return Value{}, err
	}
	r := sec.AddInstr(ir.MOVFP, mv.Operand(), ir.Operand{})
	return RegValue(TReal, r), nil
}

func (o realOps) Dup(sec *ir.Section, t Type, v Value) (Value, error) { return o.CopyVar(sec, t, v) }

func (realOps) AssignReg(sec *ir.Section, t Type, dest ir.Reg, v Value) error {
	sec.AddInstrReg(ir.MOVFP, dest, v.Operand(), ir.Operand{})
	return nil
}

func (realOps) AssignMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32, v Value) error {
	sec.AddInstrNoReg(ir.STOREO_REAL, v.Operand(), ir.RegOperand(memReg), ir.ImmInt32(loc))
	return nil
}

func (o realOps) AssignNewMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32, v Value) error {
	return o.AssignMem(sec, t, memReg, loc, v)
}

func (realOps) LoadMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32) (Value, error) {
	r := sec.AddInstr(ir.LOADO_REAL, ir.RegOperand(memReg), ir.ImmInt32(loc))
	return RegValue(TReal, r), nil
}

func (realOps) ToFloat64(sec *ir.Section, v Value) (Value, error) { return v, nil }

func (realOps) ToInt32(sec *ir.Section, v Value) (Value, error) {
	r := sec.AddInstr(ir.MOV_FP_I32, v.Operand(), ir.Operand{})
	return RegValue(TInt, r), nil
}

func (realOps) ToString(sec *ir.Section, v Value) (Value, error) {
	r := sec.AddRealCall([]ir.Reg{v.Reg})
	return RegValue(TString, r), nil
}

func (o realOps) Coerce(sec *ir.Section, v Value, target Type) (Value, error) {
	switch target.Kind {
	case Real, ConstReal:
		return RegValue(TReal, v.Reg), nil
	case Int, ConstInt:
		return o.ToInt32(sec, v)
	default:
		return Value{}, cerr.New(cerr.BadConversion, cerr.Pos{}, "cannot coerce real to %s", target)
	}
}

func (realOps) ArithImpl(sec *ir.Section, op ArithOp, a, b Value, swapped bool) (Value, error) {
	if op == Mod || op == IDiv {
		return Value{}, cerr.New(cerr.IntegerExpected, cerr.Pos{},
			"integer division and modulo never accept real operands without explicit coercion")
	}
	return arithEmit(sec, op, a, b, true)
}

func (realOps) CompareImpl(sec *ir.Section, op CompareOp, a, b Value, swapped bool) (Value, error) {
	return compareEmit(sec, op, a, b, true, swapped)
}

func (realOps) PowImpl(sec *ir.Section, a, b Value) (Value, error) {
	r := sec.AddInstr(ir.POWR, a.Operand(), b.Operand())
	return RegValue(TReal, r), nil
}

func (realOps) Abs(sec *ir.Section, a Value) (Value, error) {
	r := sec.AddInstr(ir.ABSR, a.Operand(), ir.Operand{})
	return RegValue(TReal, r), nil
}

func (realOps) Sgn(sec *ir.Section, a Value) (Value, error) {
	gt := sec.AddInstr(ir.GT_REAL, a.Operand(), ir.ImmReal64(0))
	lt := sec.AddInstr(ir.LT_REAL, a.Operand(), ir.ImmReal64(0))
	r := sec.AddInstr(ir.SUB_I32, ir.RegOperand(gt), ir.RegOperand(lt))
	return RegValue(TInt, r), nil
}

func (realOps) IsInf(sec *ir.Section, a Value) (Value, error) {
	r := sec.AddInstr(ir.GT_REAL, a.Operand(), ir.ImmReal64(1.7976931348623157e+308))
	return RegValue(TInt, r), nil
}

func (realOps) UnaryMinus(sec *ir.Section, a Value) (Value, error) {
	r := sec.AddInstr(ir.MUL_REAL, a.Operand(), ir.ImmReal64(-1))
	return RegValue(TReal, r), nil
}

func (realOps) Call(sec *ir.Section, args []Value) error {
	sec.AddCall(regsOf(args))
	return nil
}

func (realOps) CallPtr(sec *ir.Section, ptr Value, args []Value) (Value, error) {
	i := sec.AddCallPtr(ir.CALL_PTR_REAL, ptr.Reg, regsOf(args))
	return RegValue(TReal, i.Dest), nil
}

func (realOps) Ret(sec *ir.Section, v Value) error {
	sec.AddInstrNoReg(ir.RET_REAL, v.Operand(), ir.Operand{}, ir.Operand{})
	return nil
}

func (realOps) Print(sec *ir.Section, v Value) error {
	sec.AddInstrNoReg(ir.PRINT_FP, v.Operand(), ir.Operand{}, ir.Operand{})
	return nil
}

// ---- const real ----

type constRealOps struct{ Unsupported }

func (constRealOps) Size(Type) (int, error)  { return 8, nil }
func (constRealOps) Align(Type) (int, error) { return 8, nil }
func (constRealOps) Zero(Type) (Value, error) { return RealValue(0), nil }

func (constRealOps) ExpToVar(sec *ir.Section, t Type, v Value) (Value, error) {
	r := sec.AddInstr(ir.MOVI_REAL, ir.ImmReal64(v.RealImm), ir.Operand{})
	return RegValue(TReal, r), nil
}

func (o constRealOps) CopyVar(sec *ir.Section, t Type, v Value) (Value, error) {
	return o.ExpToVar(sec, t, v)
}
func (o constRealOps) Dup(sec *ir.Section, t Type, v Value) (Value, error) { return v, nil }

func (constRealOps) ToFloat64(sec *ir.Section, v Value) (Value, error) { return v, nil }

func (constRealOps) ToString(sec *ir.Section, v Value) (Value, error) {
	return StringValue(fmt.Sprintf("%g", v.RealImm)), nil
}

func (constRealOps) Coerce(sec *ir.Section, v Value, target Type) (Value, error) {
	switch target.Kind {
	case ConstReal:
		return v, nil
	case Real:
		return Value{Typ: TReal, RealImm: v.RealImm}, nil
	case Int, ConstInt:
		return IntValue(int32(v.RealImm)), nil
	default:
		return Value{}, cerr.New(cerr.BadConversion, cerr.Pos{}, "cannot coerce const real to %s", target)
	}
}

func (constRealOps) UnaryMinus(sec *ir.Section, a Value) (Value, error) {
	return RealValue(-a.RealImm), nil
}

func (constRealOps) Abs(sec *ir.Section, a Value) (Value, error) {
	if a.RealImm < 0 {
		return RealValue(-a.RealImm), nil
	}
	return a, nil
}

// ---- byte ----

type byteOps struct{ Unsupported }

func (byteOps) Size(Type) (int, error)  { return 1, nil }
func (byteOps) Align(Type) (int, error) { return 1, nil }
func (byteOps) Zero(Type) (Value, error) { return Value{Typ: TByte, IntImm: 0}, nil }

func (o byteOps) ZeroReg(sec *ir.Section, t Type, r ir.Reg) error {
	sec.AddInstrReg(ir.MOVI_I32, r, ir.ImmInt32(0), ir.Operand{})
	return nil
}

func (byteOps) ExpToVar(sec *ir.Section, t Type, v Value) (Value, error) {
	if v.HasReg {
		return v, nil
	}
	r := sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(v.IntImm), ir.Operand{})
	return RegValue(TByte, r), nil
}

func (o byteOps) CopyVar(sec *ir.Section, t Type, v Value) (Value, error) {
	mv, err := o.ExpToVar(sec, t, v)
	if err != nil {
		return Value{}, err
	}
	r := sec.AddInstr(ir.MOV, mv.Operand(), ir.Operand{})
	return RegValue(TByte, r), nil
}

func (o byteOps) Dup(sec *ir.Section, t Type, v Value) (Value, error) { return o.CopyVar(sec, t, v) }

func (byteOps) AssignMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32, v Value) error {
	sec.AddInstrNoReg(ir.STOREO_I8, v.Operand(), ir.RegOperand(memReg), ir.ImmInt32(loc))
	return nil
}

func (o byteOps) AssignNewMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32, v Value) error {
	return o.AssignMem(sec, t, memReg, loc, v)
}

func (byteOps) LoadMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32) (Value, error) {
	r := sec.AddInstr(ir.LOADO_I8, ir.RegOperand(memReg), ir.ImmInt32(loc))
	return RegValue(TByte, r), nil
}

// ToInt32 sign-extends, per spec §4.A: "byte participates... by
// sign-extension to int for arithmetic".
func (byteOps) ToInt32(sec *ir.Section, v Value) (Value, error) {
	r := sec.AddInstr(ir.SIGNX_8_TO_32, v.Operand(), ir.Operand{})
	return RegValue(TInt, r), nil
}

// Zerox zero-extends, used for the `=`/`<>` promotion path (spec §4.A).
func (byteOps) Zerox(sec *ir.Section, v Value) (Value, error) {
	r := sec.AddInstr(ir.ZEROX_8_TO_32, v.Operand(), ir.Operand{})
	return RegValue(TInt, r), nil
}

func (byteOps) ToByte(sec *ir.Section, v Value) (Value, error) { return v, nil }

func (o byteOps) Coerce(sec *ir.Section, v Value, target Type) (Value, error) {
	switch target.Kind {
	case Byte:
		return v, nil
	case Int, ConstInt:
		return o.ToInt32(sec, v)
	case Real, ConstReal:
		iv, err := o.ToInt32(sec, v)
		if err != nil {
			return Value{}, err
		}
		return intOps{}.ToFloat64(sec, iv)
	default:
		return Value{}, cerr.New(cerr.BadConversion, cerr.Pos{}, "cannot coerce byte to %s", target)
	}
}

// arithEmit selects the immediate-RHS opcode variant when b is still an
// unmaterialised immediate (spec §4.D's emission rule), else the
// register-register variant.
func arithEmit(sec *ir.Section, op ArithOp, a, b Value, real bool) (Value, error) {
	if real {
		var opc ir.Opcode
		switch op {
		case Add:
			opc = ir.ADD_REAL
		case Sub:
			opc = ir.SUB_REAL
		case Mul:
			opc = ir.MUL_REAL
		case Div:
			opc = ir.DIV_REAL
		default:
			return Value{}, cerr.New(cerr.NotSupported, cerr.Pos{}, "unsupported real arithmetic op")
		}
		r := sec.AddInstr(opc, a.Operand(), b.Operand())
		return RegValue(TReal, r), nil
	}
	imm := !b.HasReg
	var opc ir.Opcode
	switch op {
	case Add:
		if imm {
			opc = ir.ADDI_I32
		} else {
			opc = ir.ADD_I32
		}
	case Sub:
		if imm {
			opc = ir.SUBI_I32
		} else {
			opc = ir.SUB_I32
		}
	case Mul:
		if imm {
			opc = ir.MULI_I32
		} else {
			opc = ir.MUL_I32
		}
	case Div:
		opc = ir.DIV_I32
	case Mod:
		opc = ir.MOD_I32
	case IDiv:
		opc = ir.DIV_I32
	default:
		return Value{}, cerr.New(cerr.NotSupported, cerr.Pos{}, "unsupported int arithmetic op")
	}
	r := sec.AddInstr(opc, a.Operand(), b.Operand())
	return RegValue(TInt, r), nil
}

func compareEmit(sec *ir.Section, op CompareOp, a, b Value, real bool, swapped bool) (Value, error) {
	eff := op
	if swapped {
		eff = flipCompare(op)
	}
	var opc ir.Opcode
	if real {
		switch eff {
		case CmpEQ:
			opc = ir.EQ_REAL
		case CmpNE:
			opc = ir.NEQ_REAL
		case CmpGT:
			opc = ir.GT_REAL
		case CmpLTE:
			opc = ir.LTE_REAL
		case CmpLT:
			opc = ir.LT_REAL
		case CmpGTE:
			opc = ir.GTE_REAL
		}
	} else {
		switch eff {
		case CmpEQ:
			opc = ir.EQ_I32
		case CmpNE:
			opc = ir.NEQ_I32
		case CmpGT:
			opc = ir.GT_I32
		case CmpLTE:
			opc = ir.LTE_I32
		case CmpLT:
			opc = ir.LT_I32
		case CmpGTE:
			opc = ir.GTE_I32
		}
	}
	r := sec.AddInstr(opc, a.Operand(), b.Operand())
	return RegValue(TInt, r), nil
}

// flipCompare mirrors a comparison operator when its operands were swapped
// to put the const-tagged one on the right (a < b becomes b > a, etc).
func flipCompare(op CompareOp) CompareOp {
	switch op {
	case CmpGT:
		return CmpLT
	case CmpLT:
		return CmpGT
	case CmpGTE:
		return CmpLTE
	case CmpLTE:
		return CmpGTE
	default:
		return op
	}
}
