package ir

import "fmt"

// OperandKind discriminates what an Operand refers to.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandReg
	OperandLabel
	OperandImmInt
	OperandImmReal
)

// RegClass says whether a register lives in the integer or floating-point
// bank of a Section (spec §3: "discriminated as integer-class or
// floating-class").
type RegClass int

const (
	IntReg RegClass = iota
	FloatReg
)

// Reg is an unsigned index into a Section's per-class register space.
// Registers are SSA-like: allocated monotonically and never reused within a
// section (spec §3).
type Reg struct {
	Idx   int
	Class RegClass
}

// Label is a fresh label id allocated by Section.NewLabel.
type Label int

// Operand is either a register index, a label index, or an immediate
// (int32 or float64). Spec §3: "An IR operand is either a register index,
// a label index, or an immediate (int / real)."
type Operand struct {
	Kind    OperandKind
	Reg     Reg
	Label   Label
	ImmInt  int32
	ImmReal float64
}

// RegOperand wraps a register as an Operand.
func RegOperand(r Reg) Operand { return Operand{Kind: OperandReg, Reg: r} }

// LabelOperand wraps a label as an Operand.
func LabelOperand(l Label) Operand { return Operand{Kind: OperandLabel, Label: l} }

// ImmInt32 wraps an int32 immediate as an Operand.
func ImmInt32(v int32) Operand { return Operand{Kind: OperandImmInt, ImmInt: v} }

// ImmReal64 wraps a float64 immediate as an Operand.
func ImmReal64(v float64) Operand { return Operand{Kind: OperandImmReal, ImmReal: v} }

func (o Operand) String() string {
	switch o.Kind {
	case OperandReg:
		if o.Reg.Class == FloatReg {
			return fmt.Sprintf("f%d", o.Reg.Idx)
		}
		return fmt.Sprintf("r%d", o.Reg.Idx)
	case OperandLabel:
		return fmt.Sprintf("L%d", o.Label)
	case OperandImmInt:
		return fmt.Sprintf("#%d", o.ImmInt)
	case OperandImmReal:
		return fmt.Sprintf("#%g", o.ImmReal)
	default:
		return "-"
	}
}

// IsSet reports whether o carries a value, i.e. is not the zero (unused)
// operand.
func (o Operand) IsSet() bool { return o.Kind != OperandNone }
