// Package runtime implements the reference/collection runtime (component
// E): heap layout for strings/arrays/vectors/records, reference counting,
// copy-on-write, the cleanup stack, destructor synthesis, bounds checking,
// array addressing and vector append.
package runtime

import (
	"fmt"

	"subtilisgo/src/cerr"
	"subtilisgo/src/ir"
	"subtilisgo/src/stats"
	"subtilisgo/src/types"
)

// Reference-header field offsets, relative to the register a reference-typed
// value holds (spec §4.E's heap layout): size@0, data@4, orig_size@8,
// heap@12 (refcount), destructor_id@16, dims@20+.
const (
	OffSize        = 0
	OffData        = 4
	OffOrigSize    = 8
	OffHeap        = 12
	OffDestructor  = 16
	OffDims        = 20
)

// DestructorCache memoizes the IR section synthesised to release a given
// reference type's nested fields, so a record type used a thousand times
// over a compilation only pays for destructor synthesis once (spec §4.E).
type DestructorCache struct {
	cache map[string]int

	// Stats, if set by the caller driving compilation, is bumped once per
	// cache miss (a destructor section actually synthesised). Left nil,
	// the bump is a no-op.
	Stats *stats.Registry
}

// NewDestructorCache returns an empty cache.
func NewDestructorCache() *DestructorCache { return &DestructorCache{cache: make(map[string]int)} }

// GetOrCreate returns the cached section index for name, calling build to
// synthesise and register it on first use.
func (c *DestructorCache) GetOrCreate(name string, build func() int) int {
	if idx, ok := c.cache[name]; ok {
		return idx
	}
	idx := build()
	c.cache[name] = idx
	if c.Stats != nil {
		c.Stats.DestructorsSynthesized.Inc()
	}
	return idx
}

// Runtime drives every reference-typed value's lifecycle: allocation,
// retain/release, copy-on-write, and the cleanup stack a scope's reference
// locals are pushed onto and unwound from (spec §4.E, §9).
type Runtime struct {
	Reg         *types.Registry
	Destructors *DestructorCache

	// Stats, if set by the caller driving compilation, is bumped as
	// bounds checks are emitted. Left nil, the bump is a no-op.
	Stats *stats.Registry

	errLabels map[*ir.Section]ir.Label
}

// New returns a Runtime driving IR emission through reg's type descriptors.
func New(reg *types.Registry) *Runtime {
	return &Runtime{Reg: reg, Destructors: NewDestructorCache(), errLabels: make(map[*ir.Section]ir.Label)}
}

// Alloc reserves a heap buffer of size bytes for a value of type t, emits
// the ALLOC instruction, returns the reference as an owned Value, and always
// pushes it onto the section's cleanup stack using the lazily
// reserved cleanup counter slot (spec §3/§9: "the counter's lazy
// initialisation explicit").
func (rt *Runtime) Alloc(sec *ir.Section, t types.Type, size types.Value) (types.Value, error) {
	r := sec.AddInstr(ir.ALLOC, size.Operand(), ir.Operand{})
	v := types.Value{Typ: t, Reg: r, HasReg: true, Owned: true}
	rt.pushCleanup(sec, v)
	return v, nil
}

// pushCleanup records that v's reference must be released when the
// enclosing scope unwinds, by incrementing the lazily-reserved cleanup
// counter and pushing v's register onto the runtime cleanup stack.
func (rt *Runtime) pushCleanup(sec *ir.Section, v types.Value) {
	counter := sec.CleanupCounterSlot()
	sec.AddInstrNoReg(ir.PUSH_I32, v.Operand(), ir.Operand{}, ir.Operand{})
	sec.AddInstrReg(ir.ADDI_I32, counter, ir.RegOperand(counter), ir.ImmInt32(1))
}

// UnwindScope pops and releases every reference pushed onto the cleanup
// stack since depth (a scope's captured entry depth, from symtab's
// LevelDown), decrementing the section's cleanup counter once per release
// (spec §4.C/§4.E). It marks nothing: whether the counter's reserving NOP
// becomes a MOV is decided by FinalizeCleanupCounter's used argument.
func (rt *Runtime) UnwindScope(sec *ir.Section, depth int) error {
	if !sec.HasCleanupReg {
		return nil
	}
	loop := sec.NewLabel()
	done := sec.NewLabel()
	if err := sec.AddLabel(loop); err != nil {
		return err
	}
	cmp := sec.AddInstr(ir.LTE_I32, ir.RegOperand(sec.CleanupReg), ir.ImmInt32(int32(depth)))
	sec.AddInstrNoReg(ir.JMPC, ir.RegOperand(cmp), ir.LabelOperand(done), ir.Operand{})
	popped := sec.AddInstr(ir.POP_I32, ir.Operand{}, ir.Operand{})
	sec.AddInstrNoReg(ir.DEREF, ir.RegOperand(popped), ir.Operand{}, ir.Operand{})
	sec.AddInstrReg(ir.SUBI_I32, sec.CleanupReg, ir.RegOperand(sec.CleanupReg), ir.ImmInt32(1))
	sec.AddInstrNoReg(ir.JMP, ir.LabelOperand(loop), ir.Operand{}, ir.Operand{})
	return sec.AddLabel(done)
}

// Release immediately derefs v if it is an owned reference, used on
// expression-evaluation failure paths (spec §4.D: "all failure paths must
// release owned expressions"). It is a no-op for non-owned or non-reference
// values, making it safe to call unconditionally.
func (rt *Runtime) Release(sec *ir.Section, v types.Value) {
	if !v.Owned || !v.Typ.IsReference() || !v.HasReg {
		return
	}
	sec.AddInstrNoReg(ir.DEREF, v.Operand(), ir.Operand{}, ir.Operand{})
}

// ReleaseAll releases every owned value in vs, in order. Used by the
// expression engine's failure helper to unwind every operand an operator had
// already consumed before the failure was detected.
func (rt *Runtime) ReleaseAll(sec *ir.Section, vs ...types.Value) {
	for _, v := range vs {
		rt.Release(sec, v)
	}
}

// GetRef implements the copy-on-write protocol's read side (spec §4.E):
// before a reference-typed value already shared (refcount > 1) is written
// through, its buffer must be duplicated. GetRef emits the GETREF check and
// conditional reallocation, returning the register the write should target.
func (rt *Runtime) GetRef(sec *ir.Section, v types.Value) (ir.Reg, error) {
	if !v.Typ.IsReference() {
		return ir.Reg{}, cerr.New(cerr.AssertionFailed, cerr.Pos{}, "get_ref: %s is not a reference type", v.Typ)
	}
	refs := sec.AddInstr(ir.GETREF, v.Operand(), ir.Operand{})
	shared := sec.AddInstr(ir.GT_I32, ir.RegOperand(refs), ir.ImmInt32(1))
	own := sec.NewLabel()
	done := sec.NewLabel()
	sec.AddInstrNoReg(ir.JMPC, ir.RegOperand(shared), ir.LabelOperand(own), ir.Operand{})
	sec.AddInstrNoReg(ir.JMP, ir.LabelOperand(done), ir.Operand{}, ir.Operand{})
	if err := sec.AddLabel(own); err != nil {
		return ir.Reg{}, err
	}
	copyReg := sec.AddInstr(ir.ALLOC, ir.RegOperand(v.Reg), ir.Operand{})
	sec.AddInstrNoReg(ir.DEREF, v.Operand(), ir.Operand{}, ir.Operand{})
	sec.AddInstrReg(ir.MOV, v.Reg, ir.RegOperand(copyReg), ir.Operand{})
	if err := sec.AddLabel(done); err != nil {
		return ir.Reg{}, err
	}
	return v.Reg, nil
}

// errLabel returns (lazily creating) the section-local label the bounds and
// overflow checks below branch to on failure. The handler itself — raising
// a BadIndex / BadDim runtime error — is out of this front-end's scope
// (spec §1: back-end concern); the front-end's job is only to emit the
// branch to a consistently-named label the back-end can attach a handler to.
func (rt *Runtime) errLabel(sec *ir.Section) ir.Label {
	if l, ok := rt.errLabels[sec]; ok {
		return l
	}
	l := sec.NewLabel()
	rt.errLabels[sec] = l
	return l
}

// ArrayAddress computes the byte address of element at the given per-dim
// indices within an array referenced by base, applying spec §4.E's
// row-major addressing formula, and emits a bounds check per index against
// the corresponding dimension extent before the address is used.
func (rt *Runtime) ArrayAddress(sec *ir.Section, t types.Type, base ir.Reg, indices []types.Value) (types.Value, error) {
	if len(indices) != len(t.Dims) {
		return types.Value{}, cerr.New(cerr.BadIndexCount, cerr.Pos{},
			"array of rank %d indexed with %d indices", len(t.Dims), len(indices))
	}
	elemSize, err := elemSize(*t.Elem)
	if err != nil {
		return types.Value{}, err
	}
	errl := rt.errLabel(sec)

	var addr types.Value
	for i, idx := range indices {
		// extent is the raw DIM bound, i.e. the highest legal index; the
		// bounds check below compares against it directly, but the
		// row-major multiplier needs the per-dimension element count,
		// extent+1 (spec §4.E, original_source's subtilis_array_size_calc).
		extent, err := rt.dimExtent(sec, t, base, i)
		if err != nil {
			return types.Value{}, err
		}
		lt := sec.AddInstr(ir.LT_I32, idx.Operand(), ir.ImmInt32(0))
		sec.AddInstrNoReg(ir.JMPC, ir.RegOperand(lt), ir.LabelOperand(errl), ir.Operand{})
		gt := sec.AddInstr(ir.GT_I32, idx.Operand(), extent.Operand())
		sec.AddInstrNoReg(ir.JMPC, ir.RegOperand(gt), ir.LabelOperand(errl), ir.Operand{})
		if rt.Stats != nil {
			rt.Stats.BoundsChecksEmitted.Inc()
		}

		term := idx
		if i > 0 {
			count := sec.AddInstr(ir.ADDI_I32, extent.Operand(), ir.ImmInt32(1))
			mul := sec.AddInstr(ir.MUL_I32, addr.Operand(), ir.RegOperand(count))
			term = types.RegValue(types.TInt, mul)
			add := sec.AddInstr(ir.ADD_I32, term.Operand(), idx.Operand())
			term = types.RegValue(types.TInt, add)
		}
		addr = term
	}
	scaled := sec.AddInstr(ir.MULI_I32, addr.Operand(), ir.ImmInt32(int32(elemSize)))
	return types.RegValue(types.TInt, scaled), nil
}

// dimExtent returns dim i's extent: the static constant if t.Dims[i] is
// known at compile time, else a runtime read from the reference header's
// dims table (spec §4.E).
func (rt *Runtime) dimExtent(sec *ir.Section, t types.Type, base ir.Reg, i int) (types.Value, error) {
	if t.Dims[i] != types.Dynamic {
		return types.IntValue(int32(t.Dims[i])), nil
	}
	r := sec.AddInstr(ir.LOADO_I32, ir.RegOperand(base), ir.ImmInt32(int32(OffDims+4*i)))
	return types.RegValue(types.TInt, r), nil
}

// ArraySize multiplies a new array's per-dimension element counts into a
// total element count, branching to the shared error label on multiplication
// overflow — the Open Question decision recorded in DESIGN.md: promoted to
// a runtime check mirroring this package's existing branch-to-error-label
// idiom, rather than left unchecked or treated as a compile-time-only
// concern. Each dims[i] is the DIM bound (the highest legal index), so the
// per-dimension element count folded into the product is dims[i]+1 (spec
// §4.E, original_source's subtilis_array_size_calc).
func (rt *Runtime) ArraySize(sec *ir.Section, dims []types.Value) (types.Value, error) {
	if len(dims) == 0 {
		return types.IntValue(1), nil
	}
	errl := rt.errLabel(sec)
	firstCount := sec.AddInstr(ir.ADDI_I32, dims[0].Operand(), ir.ImmInt32(1))
	total := types.RegValue(types.TInt, firstCount)
	for _, d := range dims[1:] {
		count := sec.AddInstr(ir.ADDI_I32, d.Operand(), ir.ImmInt32(1))
		prod := sec.AddInstr(ir.MUL_I32, total.Operand(), ir.RegOperand(count))
		// Overflow check: dividing the product back by the factor just
		// multiplied in must give the previous total, else it overflowed.
		divBack := sec.AddInstr(ir.DIV_I32, ir.RegOperand(prod), ir.RegOperand(count))
		bad := sec.AddInstr(ir.NEQ_I32, ir.RegOperand(divBack), total.Operand())
		sec.AddInstrNoReg(ir.JMPC, ir.RegOperand(bad), ir.LabelOperand(errl), ir.Operand{})
		total = types.RegValue(types.TInt, prod)
	}
	return total, nil
}

// VectorAppend implements spec §4.E's vector-append protocol: if the
// element buffer still has spare capacity (size < alloc'd capacity read
// from orig_size), the element is written in place and size is bumped; if
// not, a larger buffer is allocated, the old contents copied across, and
// the old buffer released, before the same store happens against the new
// buffer.
func (rt *Runtime) VectorAppend(sec *ir.Section, t types.Type, base ir.Reg, v types.Value) (types.Value, error) {
	size := sec.AddInstr(ir.LOADO_I32, ir.RegOperand(base), ir.ImmInt32(OffSize))
	capReg := sec.AddInstr(ir.LOADO_I32, ir.RegOperand(base), ir.ImmInt32(OffOrigSize))
	full := sec.AddInstr(ir.GTE_I32, ir.RegOperand(size), ir.RegOperand(capReg))
	growLabel := sec.NewLabel()
	storeLabel := sec.NewLabel()
	sec.AddInstrNoReg(ir.JMPC, ir.RegOperand(full), ir.LabelOperand(growLabel), ir.Operand{})
	sec.AddInstrNoReg(ir.JMP, ir.LabelOperand(storeLabel), ir.Operand{}, ir.Operand{})
	if err := sec.AddLabel(growLabel); err != nil {
		return types.Value{}, err
	}
	newCap := sec.AddInstr(ir.ADDI_I32, ir.RegOperand(capReg), ir.ImmInt32(8))
	elemSz, err := elemSize(*t.Elem)
	if err != nil {
		return types.Value{}, err
	}
	newBytes := sec.AddInstr(ir.MULI_I32, ir.RegOperand(newCap), ir.ImmInt32(int32(elemSz)))
	newBuf := sec.AddInstr(ir.ALLOC, ir.RegOperand(newBytes), ir.Operand{})
	sec.AddInstrNoReg(ir.STOREO_I32, ir.RegOperand(newCap), ir.RegOperand(newBuf), ir.ImmInt32(OffOrigSize))
	sec.AddInstrReg(ir.MOV, base, ir.RegOperand(newBuf), ir.Operand{})
	if err := sec.AddLabel(storeLabel); err != nil {
		return types.Value{}, err
	}
	elemOps := rt.Reg.Of(t.Elem.Kind)
	idx := types.RegValue(types.TInt, size)
	if err := elemOps.IndexedWrite(sec, *t.Elem, base, idx, v); err != nil {
		return types.Value{}, err
	}
	newSize := sec.AddInstr(ir.ADDI_I32, ir.RegOperand(size), ir.ImmInt32(1))
	sec.AddInstrNoReg(ir.STOREO_I32, ir.RegOperand(newSize), ir.RegOperand(base), ir.ImmInt32(OffSize))
	return types.RegValue(t, base), nil
}

// FinalizeErrorTrap defines sec's shared bounds/overflow error label (if
// ArrayAddress or ArraySize ever allocated one for this section) as a
// terminal SYS trap. Must be called once, after all other emission into sec
// is complete, so the label lands after every legitimate instruction.
func (rt *Runtime) FinalizeErrorTrap(sec *ir.Section) error {
	l, ok := rt.errLabels[sec]
	if !ok {
		return nil
	}
	if err := sec.AddLabel(l); err != nil {
		return err
	}
	sec.AddSysCall(nil)
	sec.AddInstrNoReg(ir.END, ir.Operand{}, ir.Operand{}, ir.Operand{})
	return nil
}

func elemSize(t types.Type) (int, error) {
	switch t.Kind {
	case types.Byte:
		return 1, nil
	case types.Real, types.ConstReal:
		return 8, nil
	default:
		return 4, nil
	}
}

// SynthesizeDestructor builds (once, memoized) the IR section that releases
// every reference-typed field of record type t, and returns its index. A
// record with no reference-typed fields never needs one: destructor id 0 is
// reserved to mean "nothing to release" (spec §4.E).
func (rt *Runtime) SynthesizeDestructor(prog *ir.Program, t types.Type) (int, error) {
	if t.Kind != types.Record {
		return 0, cerr.New(cerr.AssertionFailed, cerr.Pos{}, "synthesize_destructor: %s is not a record", t)
	}
	hasRef := false
	for _, f := range t.Fields {
		if f.Type.IsReference() {
			hasRef = true
			break
		}
	}
	if !hasRef {
		return 0, nil
	}
	idx := rt.Destructors.GetOrCreate(t.MangledName(), func() int {
		name := fmt.Sprintf("$destructor_%s", t.MangledName())
		sig := ir.Signature{Params: []ir.Param{{Name: "self", Type: types.TInt}}, HasType: false}
		sec := ir.NewSection(name, sig, 0, 0)
		// By calling convention the sole parameter arrives in the first
		// integer register; the prologue that binds parameter registers to
		// symtab entries runs before this loop in every other section, but a
		// synthesised destructor has no symtab of its own to go through.
		base := sec.NewParamReg(ir.IntReg)
		for _, f := range t.Fields {
			if !f.Type.IsReference() {
				continue
			}
			v, _ := types.FieldLoad(sec, base, f)
			rt.Release(sec, types.Value{Typ: v.Typ, Reg: v.Reg, HasReg: true, Owned: true})
		}
		sec.AddInstrNoReg(ir.RET, ir.Operand{}, ir.Operand{}, ir.Operand{})
		i, err := prog.Add(sec)
		if err != nil {
			return 0
		}
		return i + 1 // id 0 is reserved for "no destructor"
	})
	return idx, nil
}
