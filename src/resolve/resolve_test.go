package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtilisgo/src/cerr"
	"subtilisgo/src/ir"
	"subtilisgo/src/resolve"
	"subtilisgo/src/types"
)

func newCallSite(caller *ir.Section, argRegs []ir.Reg) int {
	off := caller.Offset()
	caller.AddI32Call(argRegs)
	return off
}

func TestResolveBindsCalleeIndex(t *testing.T) {
	prog := ir.NewProgram()
	callee := ir.NewSection("double", ir.Signature{
		Return: types.TInt, HasType: true,
		Params: []ir.Param{{Name: "n", Type: types.TInt}},
	}, 0, 0)
	calleeIdx, err := prog.Add(callee)
	require.NoError(t, err)

	caller := ir.NewSection("main", ir.Signature{Return: types.TVoid, HasType: true}, 0, 0)
	arg := caller.AddInstr(ir.MOVI_I32, ir.ImmInt32(21), ir.Operand{})
	off := newCallSite(caller, []ir.Reg{arg})
	_, err = prog.Add(caller)
	require.NoError(t, err)

	r := resolve.New(prog)
	r.RecordCall(caller, off, "double", []resolve.ArgSlot{{Reg: arg, ArgType: types.TInt, NopOffset: -1}}, cerr.Pos{})

	require.NoError(t, r.Resolve())
	assert.Equal(t, calleeIdx, caller.Instrs[off].Callee)
}

func TestResolveUnknownProcedure(t *testing.T) {
	prog := ir.NewProgram()
	caller := ir.NewSection("main", ir.Signature{Return: types.TVoid, HasType: true}, 0, 0)
	off := newCallSite(caller, nil)
	_, err := prog.Add(caller)
	require.NoError(t, err)

	r := resolve.New(prog)
	r.RecordCall(caller, off, "missing", nil, cerr.Pos{})

	err = r.Resolve()
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.UnknownProcedure))
}

func TestResolveBadArgCount(t *testing.T) {
	prog := ir.NewProgram()
	callee := ir.NewSection("needs_two", ir.Signature{
		Return: types.TInt, HasType: true,
		Params: []ir.Param{{Name: "a", Type: types.TInt}, {Name: "b", Type: types.TInt}},
	}, 0, 0)
	_, err := prog.Add(callee)
	require.NoError(t, err)

	caller := ir.NewSection("main", ir.Signature{Return: types.TVoid, HasType: true}, 0, 0)
	arg := caller.AddInstr(ir.MOVI_I32, ir.ImmInt32(1), ir.Operand{})
	off := newCallSite(caller, []ir.Reg{arg})
	_, err = prog.Add(caller)
	require.NoError(t, err)

	r := resolve.New(prog)
	r.RecordCall(caller, off, "needs_two", []resolve.ArgSlot{{Reg: arg, ArgType: types.TInt, NopOffset: -1}}, cerr.Pos{})

	err = r.Resolve()
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.BadArgCount))
}

func TestResolveProcedureExpectedWhenCallerWantsAValue(t *testing.T) {
	prog := ir.NewProgram()
	callee := ir.NewSection("proc", ir.Signature{Return: types.TVoid, HasType: true}, 0, 0)
	_, err := prog.Add(callee)
	require.NoError(t, err)

	caller := ir.NewSection("main", ir.Signature{Return: types.TVoid, HasType: true}, 0, 0)
	off := newCallSite(caller, nil) // CALLI32 expects a value back
	_, err = prog.Add(caller)
	require.NoError(t, err)

	r := resolve.New(prog)
	r.RecordCall(caller, off, "proc", nil, cerr.Pos{})

	err = r.Resolve()
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.ProcedureExpected))
}

func TestResolveFunctionExpectedWhenCallerWantsVoid(t *testing.T) {
	prog := ir.NewProgram()
	callee := ir.NewSection("fn", ir.Signature{Return: types.TInt, HasType: true}, 0, 0)
	_, err := prog.Add(callee)
	require.NoError(t, err)

	caller := ir.NewSection("main", ir.Signature{Return: types.TVoid, HasType: true}, 0, 0)
	off := caller.Offset()
	caller.AddCall(nil) // CALL: a void-shaped use
	_, err = prog.Add(caller)
	require.NoError(t, err)

	r := resolve.New(prog)
	r.RecordCall(caller, off, "fn", nil, cerr.Pos{})

	err = r.Resolve()
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.FunctionExpected))
}

func TestResolveUntypedBuiltinSkipsArityAndTypeChecks(t *testing.T) {
	prog := ir.NewProgram()
	builtin := ir.NewSection("$op_add_str", ir.Signature{HasType: false}, 0, 0)
	_, err := prog.Add(builtin)
	require.NoError(t, err)

	caller := ir.NewSection("main", ir.Signature{Return: types.TVoid, HasType: true}, 0, 0)
	off := newCallSite(caller, nil)
	_, err = prog.Add(caller)
	require.NoError(t, err)

	r := resolve.New(prog)
	// Arg count deliberately mismatches; untyped builtins skip that check.
	r.RecordCall(caller, off, "$op_add_str", []resolve.ArgSlot{{NopOffset: -1}}, cerr.Pos{})

	require.NoError(t, r.Resolve())
}

func TestResolveRejectsArgumentTypeMismatchWithNoNop(t *testing.T) {
	prog := ir.NewProgram()
	callee := ir.NewSection("wants_real", ir.Signature{
		Return: types.TVoid, HasType: true,
		Params: []ir.Param{{Name: "x", Type: types.TReal}},
	}, 0, 0)
	_, err := prog.Add(callee)
	require.NoError(t, err)

	caller := ir.NewSection("main", ir.Signature{Return: types.TVoid, HasType: true}, 0, 0)
	argReg := caller.AddInstr(ir.MOVI_I32, ir.ImmInt32(1), ir.Operand{})
	off := caller.Offset()
	caller.AddCall([]ir.Reg{argReg})
	_, err = prog.Add(caller)
	require.NoError(t, err)

	r := resolve.New(prog)
	// This is the shape expr.Engine's parseCall actually produces: no nop was
	// left behind (NopOffset: -1), yet the argument's type still doesn't
	// match the callee's declared parameter type.
	r.RecordCall(caller, off, "wants_real",
		[]resolve.ArgSlot{{Reg: argReg, ArgType: types.TInt, NopOffset: -1}}, cerr.Pos{})

	err = r.Resolve()
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.BadArgType))
}

func TestResolvePromotesArgumentNopToCoercion(t *testing.T) {
	prog := ir.NewProgram()
	callee := ir.NewSection("wants_real", ir.Signature{
		Return: types.TVoid, HasType: true,
		Params: []ir.Param{{Name: "x", Type: types.TReal}},
	}, 0, 0)
	_, err := prog.Add(callee)
	require.NoError(t, err)

	caller := ir.NewSection("main", ir.Signature{Return: types.TVoid, HasType: true}, 0, 0)
	argReg := caller.AddInstr(ir.MOVI_I32, ir.ImmInt32(1), ir.Operand{})
	nopOff := caller.AddNop()
	off := caller.Offset()
	caller.AddCall([]ir.Reg{argReg})
	_, err = prog.Add(caller)
	require.NoError(t, err)

	r := resolve.New(prog)
	r.RecordCall(caller, off, "wants_real",
		[]resolve.ArgSlot{{Reg: argReg, ArgType: types.TInt, NopOffset: nopOff}}, cerr.Pos{})

	require.NoError(t, r.Resolve())
	assert.Equal(t, ir.MOV_I32_FP, caller.Instrs[nopOff].Op, "int argument to a real parameter promotes via MOV_I32_FP")
}
