package ir

import "subtilisgo/src/cerr"

// Program is the ordered, name-keyed table of Sections the front-end
// produces (spec §3: "Sections are stored in a program-wide table keyed by
// name, with a dense index used at call sites").
type Program struct {
	sections []*Section
	byName   map[string]int
}

// NewProgram returns an empty Program.
func NewProgram() *Program {
	return &Program{byName: make(map[string]int)}
}

// Add inserts sec into the program, returning its dense index. Re-adding a
// name that already exists is an AlreadyDefined error, except the caller is
// expected to check Lookup first when redefinition might be a legitimate
// builtin re-request (spec §4.F step 4 / §7).
func (p *Program) Add(sec *Section) (int, error) {
	if _, ok := p.byName[sec.Name]; ok {
		return -1, cerr.New(cerr.AlreadyDefined, cerr.Pos{}, "section %q already defined", sec.Name)
	}
	idx := len(p.sections)
	p.sections = append(p.sections, sec)
	p.byName[sec.Name] = idx
	return idx, nil
}

// Lookup returns the section named name and its dense index, or ok=false.
func (p *Program) Lookup(name string) (*Section, int, bool) {
	idx, ok := p.byName[name]
	if !ok {
		return nil, -1, false
	}
	return p.sections[idx], idx, true
}

// At returns the section at dense index idx.
func (p *Program) At(idx int) *Section { return p.sections[idx] }

// Len returns the number of sections in the program.
func (p *Program) Len() int { return len(p.sections) }

// Sections returns the program's sections in insertion order.
func (p *Program) Sections() []*Section { return p.sections }

// ValidateLabels checks the testable properties from spec §8 that concern
// labels: every label referenced by a branch operand inside a Section is
// defined exactly once within that same section.
func ValidateLabels(sec *Section) error {
	for i, instr := range sec.Instrs {
		if !instr.Op.IsBranch() {
			continue
		}
		for _, op := range []Operand{instr.Op1, instr.Op2, instr.Op3} {
			if op.Kind != OperandLabel {
				continue
			}
			if !sec.LabelDefined(op.Label) {
				return cerr.New(cerr.AssertionFailed, cerr.Pos{},
					"section %s: instruction %d branches to undefined label %d", sec.Name, i, op.Label)
			}
		}
	}
	return nil
}

// ValidateRegisterMonotonicity checks that every register operand in sec
// refers to an index that had already been allocated (<= the highest
// destination register seen so far in its class) by the time it is used
// (spec §8: "Register monotonicity").
func ValidateRegisterMonotonicity(sec *Section) error {
	var maxSeen [2]int
	for _, r := range sec.ParamRegs {
		if r.Idx+1 > maxSeen[r.Class] {
			maxSeen[r.Class] = r.Idx + 1
		}
	}
	check := func(op Operand, idx int) error {
		if op.Kind != OperandReg {
			return nil
		}
		if op.Reg.Idx >= maxSeen[op.Reg.Class] {
			return cerr.New(cerr.AssertionFailed, cerr.Pos{},
				"section %s: instruction %d uses register %s before allocation", sec.Name, idx, op)
		}
		return nil
	}
	for i, instr := range sec.Instrs {
		if err := check(instr.Op1, i); err != nil {
			return err
		}
		if err := check(instr.Op2, i); err != nil {
			return err
		}
		if err := check(instr.Op3, i); err != nil {
			return err
		}
		if instr.HasDest {
			if instr.Dest.Idx+1 > maxSeen[instr.Dest.Class] {
				maxSeen[instr.Dest.Class] = instr.Dest.Idx + 1
			}
		}
	}
	return nil
}
