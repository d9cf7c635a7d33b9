package ir

import (
	"fmt"

	"subtilisgo/src/cerr"
	"subtilisgo/src/stats"
)

// Param describes one parameter of a Section's type signature. Type holds a
// types.Type, but ir itself never interprets it — it is stored opaquely so
// the IR layer has no dependency on the type-dispatch layer built on top of
// it; callers that need it back (resolve, runtime, compiler) assert it to
// types.Type themselves.
type Param struct {
	Name string
	Type interface{}
}

// Signature is a Section's return type plus ordered parameter list. Return
// holds a types.Type opaquely, for the same reason as Param.Type.
type Signature struct {
	Return interface{}
	Params []Param
	// HasType is false for internal builtins used to implement operators,
	// which the call resolver patches without any type checking (spec
	// §4.F step 4).
	HasType bool
}

// Handler records one error handler appended after a Section's body. Call
// site offsets recorded while InHandler() is true are absolute indexes into
// the section's Instrs, like those in the body, and the resolver uses them
// without any adjustment by Base.
type Handler struct {
	Label Label
	Base  int
}

// Section is an IR-level function body: main or a user-defined procedure or
// function (spec §3's "IR section").
type Section struct {
	Name string
	Sig  Signature

	Instrs []Instruction

	ParamRegs []Reg
	RetReg    Reg
	HasRet    bool

	EndLabel    Label
	HasNofree   bool
	NofreeLabel Label

	// Cleanup-stack plumbing (spec §3's "Cleanup stack", §4.E, §9).
	CleanupReg       Reg
	HasCleanupReg    bool
	CleanupNopOffset int // -1 until CleanupCounterSlot is called

	Handlers []Handler
	inHandler bool

	// EflagOffset/ErrorOffset are the reserved global-frame slots read by
	// ON ERROR handlers (spec §6).
	EflagOffset int
	ErrorOffset int

	// FrameSize is the local-frame byte size reserved by the prologue,
	// set from symtab's max_allocated once the section is complete.
	FrameSize int

	// Stats, if set by the caller driving compilation, is bumped as this
	// section allocates registers and labels. Left nil, every bump is a
	// no-op, so most call sites (and every test) never need to set it.
	Stats *stats.Registry

	labelDefs map[Label]int
	nextReg   [2]int
	nextLabel int
}

// NewSection allocates an empty Section named name with signature sig.
func NewSection(name string, sig Signature, eflagOff, errOff int) *Section {
	return &Section{
		Name:             name,
		Sig:              sig,
		labelDefs:        make(map[Label]int),
		CleanupNopOffset: -1,
		EflagOffset:      eflagOff,
		ErrorOffset:      errOff,
	}
}

// NewLabel allocates a fresh label id for this section (spec §4.B).
func (s *Section) NewLabel() Label {
	l := Label(s.nextLabel)
	s.nextLabel++
	if s.Stats != nil {
		s.Stats.LabelsAllocated.Inc()
	}
	return l
}

// newReg allocates a fresh monotonic register in class c.
func (s *Section) newReg(c RegClass) Reg {
	idx := s.nextReg[c]
	s.nextReg[c]++
	if s.Stats != nil {
		s.Stats.RegistersAllocated.Inc()
	}
	return Reg{Idx: idx, Class: c}
}

// NewParamReg allocates the next monotonic register in class c and records
// it as one of this section's parameter registers, in declaration order
// (spec §4.B: parameters arrive register-resident, bound by the caller's
// calling convention before the body's own registers are allocated).
func (s *Section) NewParamReg(c RegClass) Reg {
	r := s.newReg(c)
	s.ParamRegs = append(s.ParamRegs, r)
	return r
}

// AddLabel records that the next instruction appended starts at label l.
// It is an error (spec §4.B invariant: "every label is defined exactly
// once") to define the same label twice.
func (s *Section) AddLabel(l Label) error {
	if _, ok := s.labelDefs[l]; ok {
		return cerr.New(cerr.AssertionFailed, cerr.Pos{}, "label %d redefined in section %s", l, s.Name)
	}
	s.labelDefs[l] = len(s.Instrs)
	return nil
}

// LabelDefined reports whether l has been placed with AddLabel.
func (s *Section) LabelDefined(l Label) bool {
	_, ok := s.labelDefs[l]
	return ok
}

// Offset returns the index of the next instruction to be appended; callers
// use this to remember a call site before emitting it.
func (s *Section) Offset() int { return len(s.Instrs) }

// InHandler reports whether emission is currently inside an error handler
// block (set by EnterHandler/LeaveHandler).
func (s *Section) InHandler() bool { return s.inHandler }

// EnterHandler marks subsequent emission as belonging to the error handler
// labelled l, appending a new Handler record whose Base is the current
// offset.
func (s *Section) EnterHandler(l Label) {
	s.Handlers = append(s.Handlers, Handler{Label: l, Base: len(s.Instrs)})
	s.inHandler = true
}

// LeaveHandler ends the current error handler emission context.
func (s *Section) LeaveHandler() { s.inHandler = false }

// regClassOf reports which bank the result of opcode op belongs in.
func regClassOf(op Opcode) RegClass {
	switch op {
	case ADD_REAL, SUB_REAL, MUL_REAL, DIV_REAL, POWR, ABSR, SIN, COS, TAN, LOG, LN, SQR, EXPR,
		MOV_I32_FP, MOVFP, MOVI_REAL:
		return FloatReg
	default:
		return IntReg
	}
}

// AddInstr appends an instruction whose result is a new register in the
// appropriate bank, returning that register (spec §4.B: "add_instr(opcode,
// op1, op2) -> reg").
func (s *Section) AddInstr(op Opcode, op1, op2 Operand) Reg {
	r := s.newReg(regClassOf(op))
	s.Instrs = append(s.Instrs, Instruction{Op: op, Dest: r, HasDest: true, Op1: op1, Op2: op2, Handler: s.inHandler})
	return r
}

// AddInstrReg appends an instruction with a caller-provided destination
// register, used by PromoteNop and by copy/move sequences that must target
// a specific, already-allocated register.
func (s *Section) AddInstrReg(op Opcode, dest Reg, op1, op2 Operand) {
	s.Instrs = append(s.Instrs, Instruction{Op: op, Dest: dest, HasDest: true, Op1: op1, Op2: op2, Handler: s.inHandler})
}

// AddInstrNoReg appends an instruction with no result, e.g. stores,
// branches and prints.
func (s *Section) AddInstrNoReg(op Opcode, op1, op2, op3 Operand) {
	s.Instrs = append(s.Instrs, Instruction{Op: op, Op1: op1, Op2: op2, Op3: op3, Handler: s.inHandler})
}

// AddNop appends a placeholder instruction and returns its offset so it can
// later be rewritten by PromoteNop (spec §4.B/§9: "Nops as late-binding
// points").
func (s *Section) AddNop() int {
	off := len(s.Instrs)
	s.Instrs = append(s.Instrs, Instruction{Op: NOP, Handler: s.inHandler})
	return off
}

// PromoteNop rewrites the NOP at offset in place into a unary instruction
// carrying opcode op applied to srcReg, allocates a destination register
// for it, and returns that register (spec §4.B). It is invalid to promote
// an offset that is not a live NOP.
func (s *Section) PromoteNop(offset int, op Opcode, src Operand) (Reg, error) {
	if offset < 0 || offset >= len(s.Instrs) {
		return Reg{}, cerr.New(cerr.AssertionFailed, cerr.Pos{}, "promote_nop: offset %d out of range", offset)
	}
	if s.Instrs[offset].Op != NOP {
		return Reg{}, cerr.New(cerr.AssertionFailed, cerr.Pos{}, "promote_nop: offset %d is not a NOP", offset)
	}
	r := s.newReg(regClassOf(op))
	handler := s.Instrs[offset].Handler
	s.Instrs[offset] = Instruction{Op: op, Dest: r, HasDest: true, Op1: src, Handler: handler}
	return r, nil
}

// CleanupCounterSlot lazily reserves the cleanup-stack depth counter
// register, emitting the reserving NOP the first time it's called for this
// section (spec §3/§9: "the counter's lazy initialisation explicit").
// Subsequent calls return the already-reserved register.
func (s *Section) CleanupCounterSlot() Reg {
	if s.HasCleanupReg {
		return s.CleanupReg
	}
	s.CleanupNopOffset = s.AddNop()
	s.CleanupReg = s.newReg(IntReg)
	s.HasCleanupReg = true
	return s.CleanupReg
}

// FinalizeCleanupCounter is called once, at section completion, to decide
// whether the lazily reserved counter NOP is rewritten in place to
// `MOVI_I32 CleanupReg, #0` (the counter was actually used) or left in place
// as a NOP (spec §3/§9).
func (s *Section) FinalizeCleanupCounter(used bool) error {
	if !s.HasCleanupReg || s.CleanupNopOffset < 0 {
		return nil
	}
	if used {
		handler := s.Instrs[s.CleanupNopOffset].Handler
		s.Instrs[s.CleanupNopOffset] = Instruction{Op: MOVI_I32, Dest: s.CleanupReg, HasDest: true, Op1: ImmInt32(0), Handler: handler}
		return nil
	}
	// Leave as NOP; nothing pushed this section's cleanup stack.
	return nil
}

// AddCall appends a CALL instruction (void return) targeting a section not
// yet known by index; Callee is a sentinel until the resolver patches it
// (spec §4.F). The argument nop offsets that feed this call are tracked by
// the caller (component F's PendingCall), not by the instruction itself.
func (s *Section) AddCall(args []Reg) {
	i := Instruction{Op: CALL, Args: args, Callee: -1, Handler: s.inHandler}
	s.Instrs = append(s.Instrs, i)
}

// AddI32Call appends a CALLI32 instruction and returns the register holding
// its integer result.
func (s *Section) AddI32Call(args []Reg) Reg {
	r := s.newReg(IntReg)
	s.Instrs = append(s.Instrs, Instruction{Op: CALLI32, Dest: r, HasDest: true, Args: args, Callee: -1, Handler: s.inHandler})
	return r
}

// AddRealCall appends a CALLREAL instruction and returns the register
// holding its floating-point result.
func (s *Section) AddRealCall(args []Reg) Reg {
	r := s.newReg(FloatReg)
	s.Instrs = append(s.Instrs, Instruction{Op: CALLREAL, Dest: r, HasDest: true, Args: args, Callee: -1, Handler: s.inHandler})
	return r
}

// AddCallPtr appends an indirect call through a function-pointer register.
func (s *Section) AddCallPtr(op Opcode, ptr Reg, args []Reg) *Instruction {
	i := Instruction{Op: op, Args: args, Op1: RegOperand(ptr), Callee: -1, Handler: s.inHandler}
	if op == CALL_PTR_I32 {
		i.Dest = s.newReg(IntReg)
		i.HasDest = true
	} else if op == CALL_PTR_REAL {
		i.Dest = s.newReg(FloatReg)
		i.HasDest = true
	}
	s.Instrs = append(s.Instrs, i)
	return &s.Instrs[len(s.Instrs)-1]
}

// AddSysCall appends a SYS instruction with the given argument registers
// (spec §6's runtime-services opcode group) and returns its result register.
// It records no service name; validating the call (SysCallUnknown/
// SysBadArgs/SysTooManyArgs) is the caller's responsibility.
func (s *Section) AddSysCall(args []Reg) Reg {
	r := s.newReg(IntReg)
	s.Instrs = append(s.Instrs, Instruction{Op: SYS, Dest: r, HasDest: true, Args: args, Handler: s.inHandler})
	return r
}

// String renders the section's instruction stream, one indexed line per
// instruction, for debugging.
func (s *Section) String() string {
	var out string
	for i, instr := range s.Instrs {
		out += fmt.Sprintf("%4d: %s\n", i, instr)
	}
	return out
}
