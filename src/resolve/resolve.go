// Package resolve implements the call & return resolver (component F):
// binding direct/indirect calls to IR sections after parsing, checking
// arity/types, and promoting argument nops to coercions.
package resolve

import (
	"subtilisgo/src/cerr"
	"subtilisgo/src/ir"
	"subtilisgo/src/types"
)

// ArgSlot describes one argument of a pending call: the register already
// holding its evaluated value, and (if the expression engine could not
// statically tell whether a coercion was needed) the offset of a NOP it left
// behind to be promoted into the right conversion once the callee's
// parameter type is known (spec §4.F: "promotes argument nops to
// coercions").
type ArgSlot struct {
	Reg       ir.Reg
	ArgType   types.Type
	NopOffset int // -1 if no nop was left; a type mismatch is then a BadArgType
}

// PendingCall records one call site recorded by the expression engine while
// a section's body is still being built, before every section's signature
// is necessarily known (spec §4.F: calls are bound to sections in a second
// pass after parsing).
type PendingCall struct {
	Sec      *ir.Section
	Offset   int
	Callee   string
	Args     []ArgSlot
	Pos      cerr.Pos
	Indirect bool // true if Callee is empty and resolution is via a func-ptr register instead
}

// Resolver accumulates PendingCalls during parsing and binds them to the
// finished ir.Program in one pass (spec §4.F).
type Resolver struct {
	prog    *ir.Program
	pending []PendingCall
}

// New returns a Resolver that will bind calls against prog.
func New(prog *ir.Program) *Resolver {
	return &Resolver{prog: prog}
}

// RecordCall registers a direct call site for later resolution. offset is
// the index of the CALL/CALLI32/CALLREAL instruction within sec (from
// sec.Offset() taken immediately before emitting it).
func (r *Resolver) RecordCall(sec *ir.Section, offset int, callee string, args []ArgSlot, pos cerr.Pos) {
	r.pending = append(r.pending, PendingCall{Sec: sec, Offset: offset, Callee: callee, Args: args, Pos: pos})
}

// Resolve binds every recorded call to its target section, per spec §4.F.
// For each call, in order:
//  1. the callee is looked up by name in the program (UnknownProcedure if
//     absent) and the call instruction's Callee is patched with its index;
//     call offsets are absolute, inside error handlers too, so no
//     handler-base adjustment is made
//  2. untyped builtins (HasType == false) stop there, without type checking
//  3. arity is checked against the target's parameter list
//  4. ProcedureExpected/FunctionExpected is reported when the call's return
//     shape (void vs typed) doesn't match the callee's signature
//  5. each argument whose type differs from its parameter has its nop
//     promoted to the coercion the parameter type requires, or is reported
//     as BadArgType when no nop was left
func (r *Resolver) Resolve() error {
	for _, pc := range r.pending {
		if err := r.resolveOne(pc); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolveOne(pc PendingCall) error {
	target, idx, ok := r.prog.Lookup(pc.Callee)
	if !ok {
		return cerr.New(cerr.UnknownProcedure, pc.Pos, "%q is not defined", pc.Callee)
	}

	instr := &pc.Sec.Instrs[pc.Offset]
	instr.Callee = idx

	if !target.Sig.HasType {
		// Internal builtin: patched without arity/type checking (spec §4.F
		// step 3).
		return nil
	}

	if len(pc.Args) != len(target.Sig.Params) {
		return cerr.New(cerr.BadArgCount, pc.Pos, "%q expects %d arguments, got %d",
			pc.Callee, len(target.Sig.Params), len(pc.Args))
	}

	wantVoid := target.Sig.Return.(types.Type).Kind == types.Void
	gotVoid := instr.Op == ir.CALL
	if wantVoid && !gotVoid {
		return cerr.New(cerr.ProcedureExpected, pc.Pos, "%q is a procedure, used as a function", pc.Callee)
	}
	if !wantVoid && gotVoid {
		return cerr.New(cerr.FunctionExpected, pc.Pos, "%q is a function, used as a procedure", pc.Callee)
	}

	for i, arg := range pc.Args {
		want := target.Sig.Params[i].Type.(types.Type)
		if arg.ArgType.Equal(want) {
			continue
		}
		if arg.NopOffset < 0 {
			return cerr.New(cerr.BadArgType, pc.Pos, "argument %d of %q: expected %s, got %s",
				i+1, pc.Callee, want, arg.ArgType)
		}
		if err := promoteArg(pc.Sec, arg, want); err != nil {
			return cerr.New(cerr.BadArgType, pc.Pos, "argument %d of %q: %v", i+1, pc.Callee, err)
		}
	}
	return nil
}

// promoteArg rewrites the NOP left at arg.NopOffset into the coercion
// instruction arg.ArgType -> want requires (spec §4.F: "promotes argument
// nops to coercions"), e.g. MOV_I32_FP for an int argument passed to a real
// parameter.
func promoteArg(sec *ir.Section, arg ArgSlot, want types.Type) error {
	var op ir.Opcode
	switch {
	case arg.ArgType.RegClass() == types.IntClass && want.RegClass() == types.FloatClass:
		op = ir.MOV_I32_FP
	case arg.ArgType.RegClass() == types.FloatClass && want.RegClass() == types.IntClass:
		op = ir.MOV_FP_I32
	default:
		op = ir.MOV
	}
	_, err := sec.PromoteNop(arg.NopOffset, op, ir.RegOperand(arg.Reg))
	return err
}
