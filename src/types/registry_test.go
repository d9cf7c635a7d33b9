package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtilisgo/src/cerr"
	"subtilisgo/src/ir"
)

func TestArithConstFolding(t *testing.T) {
	reg := NewRegistry()
	sec := ir.NewSection("main", ir.Signature{}, 0, 0)

	v, err := reg.Arith(sec, Add, IntValue(40), IntValue(2), cerr.Pos{})
	require.NoError(t, err)
	assert.Equal(t, ConstInt, v.Typ.Kind)
	assert.EqualValues(t, 42, v.IntImm)
	assert.Empty(t, sec.Instrs, "constant folding must not emit any IR")
}

func TestArithByteByBytePromotesToInt(t *testing.T) {
	reg := NewRegistry()
	sec := ir.NewSection("main", ir.Signature{}, 0, 0)
	a := RegValue(TByte, sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(1), ir.Operand{}))
	b := RegValue(TByte, sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(2), ir.Operand{}))

	v, err := reg.Arith(sec, Add, a, b, cerr.Pos{})
	require.NoError(t, err)
	assert.Equal(t, Int, v.Typ.Kind, "byte+byte must promote to int per spec §4.A")
}

func TestArithDivideByLiteralZero(t *testing.T) {
	reg := NewRegistry()
	sec := ir.NewSection("main", ir.Signature{}, 0, 0)

	_, err := reg.Arith(sec, Div, IntValue(1), IntValue(0), cerr.Pos{})
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.DivideByZero))
}

func TestCompareConstFolding(t *testing.T) {
	reg := NewRegistry()
	sec := ir.NewSection("main", ir.Signature{}, 0, 0)

	v, err := reg.Compare(sec, CmpLT, IntValue(1), IntValue(2), cerr.Pos{})
	require.NoError(t, err)
	assert.EqualValues(t, -1, v.IntImm, "true compares fold to -1")

	v, err = reg.Compare(sec, CmpGT, IntValue(1), IntValue(2), cerr.Pos{})
	require.NoError(t, err)
	assert.EqualValues(t, 0, v.IntImm, "false compares fold to 0")
}

func TestPowConstExponentFolding(t *testing.T) {
	reg := NewRegistry()
	sec := ir.NewSection("main", ir.Signature{}, 0, 0)

	zero, err := reg.Pow(sec, IntValue(5), IntValue(0), cerr.Pos{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, zero.IntImm)

	one, err := reg.Pow(sec, IntValue(5), IntValue(1), cerr.Pos{})
	require.NoError(t, err)
	assert.EqualValues(t, 5, one.IntImm)
}

func TestShiftRejectsRealOperands(t *testing.T) {
	reg := NewRegistry()
	sec := ir.NewSection("main", ir.Signature{}, 0, 0)

	_, err := reg.Shift(sec, Lsl, RealValue(1.5), IntValue(1), cerr.Pos{})
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.IntegerExpected))
}

func TestBitwiseRejectsRealOperands(t *testing.T) {
	reg := NewRegistry()
	sec := ir.NewSection("main", ir.Signature{}, 0, 0)

	_, err := reg.Bitwise(sec, BitAnd, RealValue(1.5), RealValue(2.5), cerr.Pos{})
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.IntegerExpected))
}

func TestByteEqualityZeroExtendsButOrderingSignExtends(t *testing.T) {
	reg := NewRegistry()

	sec := ir.NewSection("main", ir.Signature{}, 0, 0)
	b := RegValue(TByte, sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(0xFF), ir.Operand{}))
	n := RegValue(TInt, sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(255), ir.Operand{}))
	_, err := reg.Compare(sec, CmpEQ, b, n, cerr.Pos{})
	require.NoError(t, err)
	var sawZerox bool
	for _, instr := range sec.Instrs {
		if instr.Op == ir.ZEROX_8_TO_32 {
			sawZerox = true
		}
	}
	assert.True(t, sawZerox, "= on a byte operand must zero-extend, not sign-extend")

	sec2 := ir.NewSection("main", ir.Signature{}, 0, 0)
	b2 := RegValue(TByte, sec2.AddInstr(ir.MOVI_I32, ir.ImmInt32(0xFF), ir.Operand{}))
	n2 := RegValue(TInt, sec2.AddInstr(ir.MOVI_I32, ir.ImmInt32(255), ir.Operand{}))
	_, err = reg.Compare(sec2, CmpLT, b2, n2, cerr.Pos{})
	require.NoError(t, err)
	var sawSignx bool
	for _, instr := range sec2.Instrs {
		if instr.Op == ir.SIGNX_8_TO_32 {
			sawSignx = true
		}
	}
	assert.True(t, sawSignx, "ordering comparisons on a byte operand sign-extend")
}

func TestOrderPlacesConstOperandOnTheRight(t *testing.T) {
	reg := RegValue(TInt, ir.Reg{Idx: 0})
	con := IntValue(5)

	// const already on the right: no swap needed.
	lhs, rhs, swapped := order(reg, con)
	assert.False(t, swapped)
	assert.Equal(t, reg, lhs)
	assert.Equal(t, con, rhs)

	// const on the left: order swaps it to the right and reports so.
	lhs, rhs, swapped = order(con, reg)
	assert.True(t, swapped)
	assert.Equal(t, reg, lhs)
	assert.Equal(t, con, rhs)
}
