package types

import (
	"subtilisgo/src/cerr"
	"subtilisgo/src/ir"
)

// elemAccess picks the load/store opcode pair matching an element type's
// runtime width (spec §4.E's addressing formula is opcode-width-agnostic;
// the width itself comes from the element Kind).
func elemAccess(elem Type) (load, store ir.Opcode) {
	switch elem.Kind {
	case Byte:
		return ir.LOADO_I8, ir.STOREO_I8
	case Real, ConstReal:
		return ir.LOADO_REAL, ir.STOREO_REAL
	default:
		return ir.LOADO_I32, ir.STOREO_I32
	}
}

func elemRegClass(elem Type) ir.RegClass {
	if elem.Kind == Real || elem.Kind == ConstReal {
		return ir.FloatReg
	}
	return ir.IntReg
}

// ---- array (fixed or partially-dynamic rank, spec §4.E) ----

type arrayOps struct{ Unsupported }

func (arrayOps) Size(Type) (int, error)  { return 4, nil } // heap reference
func (arrayOps) Align(Type) (int, error) { return 4, nil }

// DataSize returns the byte size of the element buffer for count total
// elements (spec §4.E: dynamic dims are multiplied in at alloc time since
// their extent is not known until then).
func (arrayOps) DataSize(t Type, count int32) (int, error) {
	sz, err := elemByteSize(*t.Elem)
	if err != nil {
		return 0, err
	}
	return sz * int(count), nil
}

// elemByteSize is the element-width table DataSize needs; it mirrors each
// scalar Ops' own Size() without going through the registry (collection
// types only ever nest scalars, strings, or other collections/records, all
// of which are a fixed, Kind-determined width).
func elemByteSize(elem Type) (int, error) {
	switch elem.Kind {
	case Byte:
		return 1, nil
	case Real, ConstReal:
		return 8, nil
	case Int, ConstInt, String, ConstString, Array, Vector, Record, FuncPtr:
		return 4, nil
	default:
		return 0, cerr.New(cerr.NotSupported, cerr.Pos{}, "data_size not supported on %s", elem)
	}
}

func (arrayOps) Zero(t Type) (Value, error) { return Value{Typ: t, IntImm: 0}, nil }

func (arrayOps) ZeroReg(sec *ir.Section, t Type, r ir.Reg) error {
	sec.AddInstrReg(ir.MOVI_I32, r, ir.ImmInt32(0), ir.Operand{})
	return nil
}

func (arrayOps) ExpToVar(sec *ir.Section, t Type, v Value) (Value, error) {
	if v.HasReg {
		return v, nil
	}
	return Value{}, cerr.New(cerr.AssertionFailed, cerr.Pos{}, "array value has no register")
}

// CopyVar retains rather than deep-copies: the runtime package's
// copy-on-write protocol performs the actual element-buffer duplication the
// first time the copy is written through.
func (arrayOps) CopyVar(sec *ir.Section, t Type, v Value) (Value, error) {
	sec.AddInstrNoReg(ir.REF, v.Operand(), ir.Operand{}, ir.Operand{})
	return RegValue(t, v.Reg), nil
}

func (o arrayOps) Dup(sec *ir.Section, t Type, v Value) (Value, error) { return o.CopyVar(sec, t, v) }

func (arrayOps) AssignReg(sec *ir.Section, t Type, dest ir.Reg, v Value) error {
	sec.AddInstrReg(ir.MOV, dest, v.Operand(), ir.Operand{})
	return nil
}

func (arrayOps) AssignMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32, v Value) error {
	sec.AddInstrNoReg(ir.STOREO_I32, v.Operand(), ir.RegOperand(memReg), ir.ImmInt32(loc))
	return nil
}

func (o arrayOps) AssignNewMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32, v Value) error {
	return o.AssignMem(sec, t, memReg, loc, v)
}

func (arrayOps) LoadMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32) (Value, error) {
	r := sec.AddInstr(ir.LOADO_I32, ir.RegOperand(memReg), ir.ImmInt32(loc))
	return RegValue(t, r), nil
}

// IndexedRead loads the element at the already-computed byte address addr
// within base's data buffer (bounds checking happens before this is called,
// in the runtime package's ArrayAddress, spec §4.E).
func (arrayOps) IndexedRead(sec *ir.Section, t Type, base ir.Reg, addr Value) (Value, error) {
	load, _ := elemAccess(*t.Elem)
	r := sec.AddInstr(load, ir.RegOperand(base), addr.Operand())
	return RegValue(*t.Elem, r), nil
}

func (arrayOps) IndexedWrite(sec *ir.Section, t Type, base ir.Reg, addr Value, v Value) error {
	_, store := elemAccess(*t.Elem)
	sec.AddInstrNoReg(store, v.Operand(), ir.RegOperand(base), addr.Operand())
	return nil
}

// IndexedAddress returns the raw byte address of the element (used when the
// element itself is reference-typed and the caller needs to deref in place,
// e.g. array-of-string assignment).
func (arrayOps) IndexedAddress(sec *ir.Section, t Type, base ir.Reg, addr Value) (Value, error) {
	r := sec.AddInstr(ir.ADD_I32, ir.RegOperand(base), addr.Operand())
	return RegValue(TInt, r), nil
}

// Set fills count elements starting at base with v (spec §4.E's array
// initialiser path).
func (arrayOps) Set(sec *ir.Section, t Type, base ir.Reg, count Value, v Value) error {
	_, store := elemAccess(*t.Elem)
	sz, err := elemByteSize(*t.Elem)
	if err != nil {
		return err
	}
	i := sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(0), ir.Operand{})
	loop, done := sec.NewLabel(), sec.NewLabel()
	if err := sec.AddLabel(loop); err != nil {
		return err
	}
	end := sec.AddInstr(ir.GTE_I32, ir.RegOperand(i), count.Operand())
	sec.AddInstrNoReg(ir.JMPC, ir.RegOperand(end), ir.LabelOperand(done), ir.Operand{})
	off := sec.AddInstr(ir.MULI_I32, ir.RegOperand(i), ir.ImmInt32(int32(sz)))
	sec.AddInstrNoReg(store, v.Operand(), ir.RegOperand(base), ir.RegOperand(off))
	sec.AddInstrReg(ir.ADDI_I32, i, ir.RegOperand(i), ir.ImmInt32(1))
	sec.AddInstrNoReg(ir.JMP, ir.LabelOperand(loop), ir.Operand{}, ir.Operand{})
	return sec.AddLabel(done)
}

func (arrayOps) ZeroBuf(sec *ir.Section, t Type, base ir.Reg, size Value) error {
	a := []ir.Reg{base, regOf(size)}
	sec.AddI32Call(a)
	return nil
}

func (arrayOps) Call(sec *ir.Section, args []Value) error {
	sec.AddCall(regsOf(args))
	return nil
}

func (arrayOps) Ret(sec *ir.Section, v Value) error {
	sec.AddInstrNoReg(ir.RET_I32, v.Operand(), ir.Operand{}, ir.Operand{})
	return nil
}

// ---- vector (always single-dim, always dynamic, spec §4.E) ----

type vectorOps struct{ arrayOps }

// Append emits a CALLI32 taking the vector reference and the element, with
// its callee left unresolved, and returns the call's result as the
// (possibly reallocated) vector reference. The runtime package's
// VectorAppend does not call this: it makes the grow-or-reuse decision and
// the orig_size bookkeeping itself and stores the element via IndexedWrite.
func (vectorOps) Append(sec *ir.Section, t Type, base ir.Reg, v Value) (Value, error) {
	args := []ir.Reg{base, regOf(v)}
	r := sec.AddI32Call(args)
	return RegValue(t, r), nil
}

// ---- func pointer ----

type funcPtrOps struct{ Unsupported }

func (funcPtrOps) Size(Type) (int, error)  { return 4, nil }
func (funcPtrOps) Align(Type) (int, error) { return 4, nil }
func (funcPtrOps) Zero(t Type) (Value, error) { return Value{Typ: t, IntImm: 0}, nil }

func (funcPtrOps) ZeroReg(sec *ir.Section, t Type, r ir.Reg) error {
	sec.AddInstrReg(ir.MOVI_I32, r, ir.ImmInt32(0), ir.Operand{})
	return nil
}

func (funcPtrOps) ExpToVar(sec *ir.Section, t Type, v Value) (Value, error) {
	if v.HasReg {
		return v, nil
	}
	return Value{}, cerr.New(cerr.AssertionFailed, cerr.Pos{}, "func pointer value has no register")
}

func (funcPtrOps) CopyVar(sec *ir.Section, t Type, v Value) (Value, error) {
	r := sec.AddInstr(ir.MOV, v.Operand(), ir.Operand{})
	return RegValue(t, r), nil
}

func (o funcPtrOps) Dup(sec *ir.Section, t Type, v Value) (Value, error) { return o.CopyVar(sec, t, v) }

func (funcPtrOps) AssignReg(sec *ir.Section, t Type, dest ir.Reg, v Value) error {
	sec.AddInstrReg(ir.MOV, dest, v.Operand(), ir.Operand{})
	return nil
}

func (funcPtrOps) AssignMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32, v Value) error {
	sec.AddInstrNoReg(ir.STOREO_I32, v.Operand(), ir.RegOperand(memReg), ir.ImmInt32(loc))
	return nil
}

func (o funcPtrOps) AssignNewMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32, v Value) error {
	return o.AssignMem(sec, t, memReg, loc, v)
}

func (funcPtrOps) LoadMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32) (Value, error) {
	r := sec.AddInstr(ir.LOADO_I32, ir.RegOperand(memReg), ir.ImmInt32(loc))
	return RegValue(t, r), nil
}

func (funcPtrOps) CallPtr(sec *ir.Section, ptr Value, args []Value) (Value, error) {
	retReal := ptr.Typ.Elem != nil && ptr.Typ.Elem.Kind == Real
	op := ir.CALL_PTR_I32
	if retReal {
		op = ir.CALL_PTR_REAL
	}
	i := sec.AddCallPtr(op, ptr.Reg, regsOf(args))
	if retReal {
		return RegValue(TReal, i.Dest), nil
	}
	return RegValue(TInt, i.Dest), nil
}

// ---- void ----

type voidOps struct{ Unsupported }

func (voidOps) Size(Type) (int, error)  { return 0, nil }
func (voidOps) Align(Type) (int, error) { return 1, nil }
func (voidOps) Zero(Type) (Value, error) { return Value{Typ: TVoid}, nil }

func (voidOps) Ret(sec *ir.Section, v Value) error {
	sec.AddInstrNoReg(ir.RET, ir.Operand{}, ir.Operand{}, ir.Operand{})
	return nil
}

func (voidOps) Call(sec *ir.Section, args []Value) error {
	sec.AddCall(regsOf(args))
	return nil
}
