package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtilisgo/src/cerr"
	"subtilisgo/src/expr"
	"subtilisgo/src/frontend"
	"subtilisgo/src/ir"
	"subtilisgo/src/resolve"
	"subtilisgo/src/runtime"
	"subtilisgo/src/symtab"
	"subtilisgo/src/types"
)

func newEngine(toks []frontend.Token) (*expr.Engine, *ir.Section) {
	reg := types.NewRegistry()
	sec := ir.NewSection("main", ir.Signature{Return: types.TVoid, HasType: true}, 0, 0)
	eng := &expr.Engine{
		Reg:  reg,
		RT:   runtime.New(reg),
		Sec:  sec,
		Sym:  symtab.NewTable(),
		Toks: frontend.NewSliceTokens(toks),
	}
	return eng, sec
}

func tok(k frontend.Kind) frontend.Token { return frontend.Token{Kind: k} }
func intTok(v int32) frontend.Token      { return frontend.Token{Kind: frontend.IntLit, IntVal: v} }

func TestConstantExpressionFoldsWithoutEmittingIR(t *testing.T) {
	// 2 + 3 * 4
	eng, sec := newEngine([]frontend.Token{
		intTok(2), tok(frontend.Plus), intTok(3), tok(frontend.Star), intTok(4),
	})
	v, err := eng.Parse()
	require.NoError(t, err)
	assert.Equal(t, types.ConstInt, v.Typ.Kind)
	assert.EqualValues(t, 14, v.IntImm)
	assert.Empty(t, sec.Instrs)
}

func TestPowIsRightAssociative(t *testing.T) {
	// 2 ^ 3 ^ 0 == 2 ^ (3 ^ 0) == 2 ^ 1 == 2
	eng, _ := newEngine([]frontend.Token{
		intTok(2), tok(frontend.Caret), intTok(3), tok(frontend.Caret), intTok(0),
	})
	v, err := eng.Parse()
	require.NoError(t, err)
	assert.EqualValues(t, 2, v.IntImm)
}

func TestRegisterBackedArithmeticEmitsIR(t *testing.T) {
	eng, sec := newEngine([]frontend.Token{
		{Kind: frontend.Identifier, Text: "x"}, tok(frontend.Plus), intTok(1),
	})
	r := sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(41), ir.Operand{})
	_, err := eng.Sym.InsertReg("x", types.TInt, r, cerr.Pos{})
	require.NoError(t, err)

	v, err := eng.Parse()
	require.NoError(t, err)
	assert.True(t, v.HasReg)
	assert.NotEmpty(t, sec.Instrs)
}

func TestUnknownIdentifierFails(t *testing.T) {
	eng, _ := newEngine([]frontend.Token{{Kind: frontend.Identifier, Text: "nope"}})
	_, err := eng.Parse()
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.UnknownVariable))
}

func TestComparisonFoldsToCanonicalBooleans(t *testing.T) {
	eng, _ := newEngine([]frontend.Token{intTok(3), tok(frontend.Lt), intTok(5)})
	v, err := eng.Parse()
	require.NoError(t, err)
	assert.EqualValues(t, -1, v.IntImm)
}

func TestUnaryMinusAndNot(t *testing.T) {
	eng, sec := newEngine([]frontend.Token{tok(frontend.Minus), intTok(5)})
	_, err := eng.Parse()
	require.NoError(t, err)
	_ = sec

	eng2, _ := newEngine([]frontend.Token{tok(frontend.KwNot), intTok(0)})
	v, err := eng2.Parse()
	require.NoError(t, err)
	assert.EqualValues(t, -1, v.IntImm)
}

func TestBracketedExpressionRequiresClosingParen(t *testing.T) {
	eng, _ := newEngine([]frontend.Token{tok(frontend.LParen), intTok(1)})
	_, err := eng.IntegerBracketedExpression()
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.RightBktExpected))
}

func TestCallExpressionRecordsPendingCallAndEmitsCallI32(t *testing.T) {
	eng, sec := newEngine([]frontend.Token{
		{Kind: frontend.Identifier, Text: "double"}, tok(frontend.LParen), intTok(21), tok(frontend.RParen),
	})
	prog := ir.NewProgram()
	resolver := resolve.New(prog)
	eng.Call = resolver

	v, err := eng.Parse()
	require.NoError(t, err)
	assert.Equal(t, types.Int, v.Typ.Kind)

	var calls int
	for _, instr := range sec.Instrs {
		if instr.Op == ir.CALLI32 {
			calls++
		}
	}
	assert.Equal(t, 1, calls)

	callee := ir.NewSection("double", ir.Signature{Return: types.TInt, HasType: true,
		Params: []ir.Param{{Name: "n", Type: types.TInt}}}, 0, 0)
	_, err = prog.Add(callee)
	require.NoError(t, err)
	_, err = prog.Add(sec)
	require.NoError(t, err)
	require.NoError(t, resolver.Resolve())
}

func TestStringExpressionRemainsConstUntilMaterialised(t *testing.T) {
	eng, sec := newEngine([]frontend.Token{{Kind: frontend.StringLit, Text: "hi"}})
	v, err := eng.Parse()
	require.NoError(t, err)
	assert.Equal(t, types.ConstString, v.Typ.Kind)
	assert.Equal(t, "hi", v.StrImm)
	assert.Empty(t, sec.Instrs, "a const string literal materialises only via ExpToVar, not during parsing")
}
