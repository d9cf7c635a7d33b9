package types

import (
	"subtilisgo/src/cerr"
	"subtilisgo/src/ir"
)

// ---- record (heap-backed, field-wise layout, spec §3/§4.E) ----
//
// recordOps only covers the whole-value operations a record supports as a
// unit (move, retain, store/load its reference). Field-wise destructor
// behaviour — which fields need their own release on scope exit — is
// synthesised once per record type by the runtime package's
// SynthesizeDestructor (memoised in its DestructorCache), not here: Ops has
// no Registry to recurse through field types with. No field-wise copy of a
// record is synthesised anywhere.
type recordOps struct{ Unsupported }

func (recordOps) Size(Type) (int, error)  { return 4, nil } // heap reference
func (recordOps) Align(Type) (int, error) { return 4, nil }

// DataSize is the flat byte size of the record's field storage (the heap
// buffer the reference points at), computed from each field's own width.
func (recordOps) DataSize(t Type, _ int32) (int, error) {
	total := 0
	for _, f := range t.Fields {
		sz, err := elemByteSize(f.Type)
		if err != nil {
			return 0, err
		}
		if f.Offset+sz > total {
			total = f.Offset + sz
		}
	}
	return total, nil
}

func (recordOps) Zero(t Type) (Value, error) { return Value{Typ: t, IntImm: 0}, nil }

func (recordOps) ZeroReg(sec *ir.Section, t Type, r ir.Reg) error {
	sec.AddInstrReg(ir.MOVI_I32, r, ir.ImmInt32(0), ir.Operand{})
	return nil
}

func (recordOps) ExpToVar(sec *ir.Section, t Type, v Value) (Value, error) {
	if v.HasReg {
		return v, nil
	}
	return Value{}, cerr.New(cerr.AssertionFailed, cerr.Pos{}, "record value has no register")
}

// CopyVar retains (bumps the refcount) and returns the same reference; no
// field-wise copy is emitted, and nested reference fields are not retained
// separately.
func (recordOps) CopyVar(sec *ir.Section, t Type, v Value) (Value, error) {
	sec.AddInstrNoReg(ir.REF, v.Operand(), ir.Operand{}, ir.Operand{})
	return RegValue(t, v.Reg), nil
}

func (o recordOps) Dup(sec *ir.Section, t Type, v Value) (Value, error) { return o.CopyVar(sec, t, v) }

func (recordOps) AssignReg(sec *ir.Section, t Type, dest ir.Reg, v Value) error {
	sec.AddInstrReg(ir.MOV, dest, v.Operand(), ir.Operand{})
	return nil
}

func (recordOps) AssignMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32, v Value) error {
	sec.AddInstrNoReg(ir.STOREO_I32, v.Operand(), ir.RegOperand(memReg), ir.ImmInt32(loc))
	return nil
}

func (o recordOps) AssignNewMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32, v Value) error {
	return o.AssignMem(sec, t, memReg, loc, v)
}

func (recordOps) LoadMem(sec *ir.Section, t Type, memReg ir.Reg, loc int32) (Value, error) {
	r := sec.AddInstr(ir.LOADO_I32, ir.RegOperand(memReg), ir.ImmInt32(loc))
	return RegValue(t, r), nil
}

// FieldLoad reads field f of the record referenced by base (helper used
// directly by the expression engine's record-access nodes; it is not part
// of the Ops interface since field selection is a static-name lookup, not a
// Kind-dispatched capability).
func FieldLoad(sec *ir.Section, base ir.Reg, f Field) (Value, error) {
	load, _ := elemAccess(f.Type)
	r := sec.AddInstr(load, ir.RegOperand(base), ir.ImmInt32(int32(f.Offset)))
	return RegValue(f.Type, r), nil
}

// FieldStore writes v into field f of the record referenced by base.
func FieldStore(sec *ir.Section, base ir.Reg, f Field, v Value) {
	_, store := elemAccess(f.Type)
	sec.AddInstrNoReg(store, v.Operand(), ir.RegOperand(base), ir.ImmInt32(int32(f.Offset)))
}

func (recordOps) Call(sec *ir.Section, args []Value) error {
	sec.AddCall(regsOf(args))
	return nil
}

func (recordOps) Ret(sec *ir.Section, v Value) error {
	sec.AddInstrNoReg(ir.RET_I32, v.Operand(), ir.Operand{}, ir.Operand{})
	return nil
}
