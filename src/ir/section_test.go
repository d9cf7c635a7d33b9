package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtilisgo/src/ir"
)

func TestRegisterAllocationIsMonotonicPerClass(t *testing.T) {
	sec := ir.NewSection("f", ir.Signature{}, 0, 0)
	r1 := sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(1), ir.Operand{})
	r2 := sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(2), ir.Operand{})

	assert.Equal(t, 0, r1.Idx)
	assert.Equal(t, 1, r2.Idx)
	assert.Equal(t, ir.IntReg, r1.Class)
}

func TestParamRegsAllocateBeforeBodyRegisters(t *testing.T) {
	sec := ir.NewSection("f", ir.Signature{}, 0, 0)
	p := sec.NewParamReg(ir.IntReg)
	body := sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(1), ir.Operand{})

	assert.Equal(t, 0, p.Idx)
	assert.Equal(t, 1, body.Idx)
	assert.Equal(t, []ir.Reg{p}, sec.ParamRegs)
	require.NoError(t, ir.ValidateRegisterMonotonicity(sec))
}

func TestValidateRegisterMonotonicityCatchesUseBeforeAllocation(t *testing.T) {
	sec := ir.NewSection("f", ir.Signature{}, 0, 0)
	// A register from a class/index never allocated in this section.
	sec.AddInstrNoReg(ir.PRINT_FP, ir.RegOperand(ir.Reg{Idx: 5, Class: ir.IntReg}), ir.Operand{}, ir.Operand{})

	err := ir.ValidateRegisterMonotonicity(sec)
	require.Error(t, err)
}

func TestLabelsMustBeDefinedExactlyOnce(t *testing.T) {
	sec := ir.NewSection("f", ir.Signature{}, 0, 0)
	l := sec.NewLabel()
	require.NoError(t, sec.AddLabel(l))
	assert.True(t, sec.LabelDefined(l))

	err := sec.AddLabel(l)
	require.Error(t, err)
}

func TestValidateLabelsCatchesUndefinedBranchTarget(t *testing.T) {
	sec := ir.NewSection("f", ir.Signature{}, 0, 0)
	ghost := sec.NewLabel()
	sec.AddInstrNoReg(ir.JMP, ir.LabelOperand(ghost), ir.Operand{}, ir.Operand{})

	err := ir.ValidateLabels(sec)
	require.Error(t, err)
}

func TestValidateLabelsAcceptsDefinedBranchTarget(t *testing.T) {
	sec := ir.NewSection("f", ir.Signature{}, 0, 0)
	l := sec.NewLabel()
	sec.AddInstrNoReg(ir.JMP, ir.LabelOperand(l), ir.Operand{}, ir.Operand{})
	require.NoError(t, sec.AddLabel(l))

	require.NoError(t, ir.ValidateLabels(sec))
}

func TestPromoteNopRewritesInPlaceAndPreservesOffset(t *testing.T) {
	sec := ir.NewSection("f", ir.Signature{}, 0, 0)
	off := sec.AddNop()
	sec.AddInstr(ir.MOVI_I32, ir.ImmInt32(9), ir.Operand{}) // unrelated instruction after

	r, err := sec.PromoteNop(off, ir.MOV_I32_FP, ir.RegOperand(ir.Reg{Idx: 0, Class: ir.IntReg}))
	require.NoError(t, err)
	assert.Equal(t, ir.MOV_I32_FP, sec.Instrs[off].Op)
	assert.Equal(t, r, sec.Instrs[off].Dest)

	_, err = sec.PromoteNop(off, ir.MOV, ir.Operand{})
	require.Error(t, err, "re-promoting an already-promoted offset must fail")
}

func TestCleanupCounterSlotIsLazyAndIdempotent(t *testing.T) {
	sec := ir.NewSection("f", ir.Signature{}, 0, 0)
	assert.False(t, sec.HasCleanupReg)

	r1 := sec.CleanupCounterSlot()
	r2 := sec.CleanupCounterSlot()
	assert.Equal(t, r1, r2)
	assert.True(t, sec.HasCleanupReg)
	require.NoError(t, sec.FinalizeCleanupCounter(true))
	assert.Equal(t, ir.MOVI_I32, sec.Instrs[sec.CleanupNopOffset].Op)
}

func TestProgramLookupAndDuplicateName(t *testing.T) {
	prog := ir.NewProgram()
	sec := ir.NewSection("main", ir.Signature{}, 0, 0)
	idx, err := prog.Add(sec)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	found, foundIdx, ok := prog.Lookup("main")
	require.True(t, ok)
	assert.Same(t, sec, found)
	assert.Equal(t, idx, foundIdx)

	_, err = prog.Add(ir.NewSection("main", ir.Signature{}, 0, 0))
	require.Error(t, err)

	_, _, ok = prog.Lookup("nowhere")
	assert.False(t, ok)
}
