// Package compiler wires components A-F into a single compilation entry
// point: CompileMainExpression drives an expression-level smoke test of the
// wiring given a frontend.TokenSource, and is the library surface
// cmd/subtilisfe and the test suite both drive.
package compiler

import (
	"subtilisgo/src/cerr"
	"subtilisgo/src/frontend"
	"subtilisgo/src/ir"
	"subtilisgo/src/resolve"
	"subtilisgo/src/runtime"
	"subtilisgo/src/stats"
	"subtilisgo/src/symtab"
	"subtilisgo/src/types"

	"subtilisgo/src/expr"
)

// Result bundles everything a compilation produced, for a caller (or the
// test suite) to inspect.
type Result struct {
	Program *ir.Program
	Stats   *stats.Registry
}

// CompileMainExpression builds a single "main" section consisting of one
// PRINT of the expression toks yields, resolves any calls it made, and
// returns the finished program. It exists to exercise every component
// (A-F) end to end without a concrete lexer/parser (out of scope per spec
// §1): real statement/program compilation is driven the same way, just with
// many more such sections.
func CompileMainExpression(toks frontend.TokenSource) (*Result, error) {
	st := stats.New()
	reg := types.NewRegistry()
	reg.Stats = st
	rt := runtime.New(reg)
	rt.Stats = st
	rt.Destructors.Stats = st
	prog := ir.NewProgram()
	resolver := resolve.New(prog)

	sig := ir.Signature{Return: types.TVoid, HasType: true}
	sec := ir.NewSection("main", sig, 0, 0)
	sec.Stats = st
	sym := symtab.NewTable()

	eng := &expr.Engine{Reg: reg, RT: rt, Sec: sec, Sym: sym, Toks: toks, Call: resolver}
	v, err := eng.Parse()
	if err != nil {
		return nil, err
	}

	mv, err := reg.Of(v.Typ.Kind).ExpToVar(sec, v.Typ, v)
	if err != nil {
		return nil, err
	}
	if err := reg.Of(mv.Typ.Kind).Print(sec, mv); err != nil {
		return nil, err
	}
	rt.Release(sec, v)

	if toks.Peek().Kind != frontend.EOF {
		return nil, cerr.New(cerr.CompoundNotTerminated, toks.Peek().Pos,
			"unexpected trailing token %s", toks.Peek().Kind)
	}

	if err := rt.FinalizeErrorTrap(sec); err != nil {
		return nil, err
	}
	sec.FrameSize = sym.MaxAllocated()
	if err := sec.FinalizeCleanupCounter(sec.HasCleanupReg); err != nil {
		return nil, err
	}
	st.InstructionsEmitted.Add(float64(len(sec.Instrs)))

	if _, err := prog.Add(sec); err != nil {
		return nil, err
	}
	if err := resolver.Resolve(); err != nil {
		return nil, err
	}
	st.SectionsCompiled.Inc()

	return &Result{Program: prog, Stats: st}, nil
}
