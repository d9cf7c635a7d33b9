package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtilisgo/src/ir"
)

func TestConstStringExpToVarAllocatesHeapBuffer(t *testing.T) {
	sec := ir.NewSection("f", ir.Signature{}, 0, 0)
	v, err := constStringOps{}.ExpToVar(sec, TConstString, StringValue("hello"))
	require.NoError(t, err)
	assert.True(t, v.HasReg)
	assert.True(t, v.Owned)
	assert.Equal(t, ir.ALLOC, sec.Instrs[len(sec.Instrs)-1].Op)
}

func TestStringCopyVarRetainsRatherThanCopies(t *testing.T) {
	sec := ir.NewSection("f", ir.Signature{}, 0, 0)
	src := RegValue(TString, sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(0), ir.Operand{}))
	v, err := stringOps{}.CopyVar(sec, TString, src)
	require.NoError(t, err)
	assert.Equal(t, src.Reg, v.Reg, "a retain keeps the same heap reference")
	assert.Equal(t, ir.REF, sec.Instrs[len(sec.Instrs)-1].Op)
}

func TestArrayIndexedReadWriteAndAddress(t *testing.T) {
	sec := ir.NewSection("f", ir.Signature{}, 0, 0)
	arr, err := NewArray(TInt, 10)
	require.NoError(t, err)
	base := ir.Reg{Class: ir.IntReg}
	addr := RegValue(TInt, sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(4), ir.Operand{}))

	v, err := arrayOps{}.IndexedRead(sec, arr, base, addr)
	require.NoError(t, err)
	assert.Equal(t, Int, v.Typ.Kind)
	assert.Equal(t, ir.LOADO_I32, sec.Instrs[len(sec.Instrs)-1].Op)

	require.NoError(t, arrayOps{}.IndexedWrite(sec, arr, base, addr, IntValue(7)))
	assert.Equal(t, ir.STOREO_I32, sec.Instrs[len(sec.Instrs)-1].Op)

	addrV, err := arrayOps{}.IndexedAddress(sec, arr, base, addr)
	require.NoError(t, err)
	assert.Equal(t, Int, addrV.Typ.Kind)
	assert.Equal(t, ir.ADD_I32, sec.Instrs[len(sec.Instrs)-1].Op)
}

func TestArrayIndexedAccessUsesElementWidthOpcodes(t *testing.T) {
	sec := ir.NewSection("f", ir.Signature{}, 0, 0)
	arr, err := NewArray(TByte, 4)
	require.NoError(t, err)
	base := ir.Reg{Class: ir.IntReg}
	addr := RegValue(TInt, sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(0), ir.Operand{}))

	v, err := arrayOps{}.IndexedRead(sec, arr, base, addr)
	require.NoError(t, err)
	assert.Equal(t, Byte, v.Typ.Kind)
	assert.Equal(t, ir.LOADO_I8, sec.Instrs[len(sec.Instrs)-1].Op)
}

func TestRecordFieldLoadAndStore(t *testing.T) {
	sec := ir.NewSection("f", ir.Signature{}, 0, 0)
	f := Field{Name: "count", Type: TInt, Offset: 4}
	base := ir.Reg{Class: ir.IntReg}

	v, err := FieldLoad(sec, base, f)
	require.NoError(t, err)
	assert.Equal(t, Int, v.Typ.Kind)
	last := sec.Instrs[len(sec.Instrs)-1]
	assert.Equal(t, ir.LOADO_I32, last.Op)
	assert.EqualValues(t, 4, last.Op2.ImmInt)

	FieldStore(sec, base, f, IntValue(9))
	assert.Equal(t, ir.STOREO_I32, sec.Instrs[len(sec.Instrs)-1].Op)
}

func TestFuncPtrCallPtrDispatchesOnReturnType(t *testing.T) {
	sec := ir.NewSection("f", ir.Signature{}, 0, 0)
	ptr := RegValue(NewFuncPtr(TReal, nil), ir.Reg{Class: ir.IntReg})

	v, err := funcPtrOps{}.CallPtr(sec, ptr, nil)
	require.NoError(t, err)
	assert.Equal(t, Real, v.Typ.Kind)

	ptrInt := RegValue(NewFuncPtr(TInt, nil), ir.Reg{Class: ir.IntReg})
	v2, err := funcPtrOps{}.CallPtr(sec, ptrInt, nil)
	require.NoError(t, err)
	assert.Equal(t, Int, v2.Typ.Kind)
}

func TestVoidRetEmitsBareRet(t *testing.T) {
	sec := ir.NewSection("f", ir.Signature{}, 0, 0)
	require.NoError(t, voidOps{}.Ret(sec, Value{}))
	assert.Equal(t, ir.RET, sec.Instrs[len(sec.Instrs)-1].Op)
}

func TestVectorAppendIsACallToTheRuntimeHelper(t *testing.T) {
	sec := ir.NewSection("f", ir.Signature{}, 0, 0)
	vec := NewVector(TInt)
	base := sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(0), ir.Operand{})
	elem := IntValue(3)

	v, err := vectorOps{}.Append(sec, vec, base, elem)
	require.NoError(t, err)
	assert.Equal(t, Vector, v.Typ.Kind)
	assert.Equal(t, ir.CALLI32, sec.Instrs[len(sec.Instrs)-1].Op)
}
