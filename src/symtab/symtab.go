// Package symtab implements the symbol table with scope levels (component
// C): name-to-slot bindings with storage kind, and a per-level insertion
// order used for scoped destruction of reference-typed locals.
package symtab

import (
	"subtilisgo/src/cerr"
	"subtilisgo/src/ir"
	"subtilisgo/src/types"
)

// Storage discriminates where a Symbol's value lives.
type Storage int

const (
	StorageReg Storage = iota
	StorageMem
)

// Symbol binds a name to a type and a storage location (spec §3).
type Symbol struct {
	Name    string
	Type    types.Type
	Storage Storage
	Reg     ir.Reg // valid iff Storage == StorageReg
	Offset  int    // byte offset in the owning frame, valid iff Storage == StorageMem
	Global  bool
}

type scope struct {
	symbols    []*Symbol
	byName     map[string]*Symbol
	cleanupAt  int // cleanup-stack depth captured at LevelUp time
}

// Table is a per-function symbol table with a stack of scope levels.
type Table struct {
	scopes      []*scope
	maxAlloc    int
	nextOffset  int
}

// NewTable returns a Table with a single (function-level) scope already
// pushed.
func NewTable() *Table {
	t := &Table{}
	t.LevelUp(0)
	return t
}

// LevelUp pushes a new scope level. cleanupDepth is the cleanup-stack depth
// at the moment this scope starts (spec §4.C: "emitting a runtime loop that
// walks the cleanup stack down to the level's starting depth").
func (t *Table) LevelUp(cleanupDepth int) {
	t.scopes = append(t.scopes, &scope{byName: make(map[string]*Symbol), cleanupAt: cleanupDepth})
}

// LevelDown pops the current scope, returning its symbols in reverse
// insertion order (the order reference-typed locals must be deref'd in) and
// the cleanup depth captured when the scope was entered.
func (t *Table) LevelDown() ([]*Symbol, int, error) {
	if len(t.scopes) == 0 {
		return nil, 0, cerr.New(cerr.AssertionFailed, cerr.Pos{}, "level_down: scope stack empty")
	}
	top := t.scopes[len(t.scopes)-1]
	t.scopes = t.scopes[:len(t.scopes)-1]
	rev := make([]*Symbol, len(top.symbols))
	for i, s := range top.symbols {
		rev[len(rev)-1-i] = s
	}
	return rev, top.cleanupAt, nil
}

// Depth returns the number of currently active scope levels.
func (t *Table) Depth() int { return len(t.scopes) }

// insert is the shared implementation of Insert/InsertReg/InsertTmp:
// duplicate names within the *current* level are rejected, but shadowing a
// name bound in an outer level is allowed (spec §4.C invariants).
func (t *Table) insert(sym *Symbol, pos cerr.Pos) (*Symbol, error) {
	if len(t.scopes) == 0 {
		return nil, cerr.New(cerr.AssertionFailed, pos, "insert: no active scope")
	}
	cur := t.scopes[len(t.scopes)-1]
	if _, ok := cur.byName[sym.Name]; ok {
		return nil, cerr.New(cerr.AlreadyDefined, pos, "%q already defined in this scope", sym.Name)
	}
	cur.byName[sym.Name] = sym
	cur.symbols = append(cur.symbols, sym)
	return sym, nil
}

// Insert allocates a new memory-backed Symbol for name/typ in the current
// scope, reserving data_size(typ) bytes of frame space (rounded up per
// alignment), and returns it.
func (t *Table) Insert(name string, typ types.Type, size, align int, pos cerr.Pos) (*Symbol, error) {
	off := alignUp(t.nextOffset, align)
	t.nextOffset = off + size
	if t.nextOffset > t.maxAlloc {
		t.maxAlloc = t.nextOffset
	}
	sym := &Symbol{Name: name, Type: typ, Storage: StorageMem, Offset: off}
	return t.insert(sym, pos)
}

// InsertReg binds name/typ to an existing register, used for parameters
// which already arrive register-resident (spec §4.C).
func (t *Table) InsertReg(name string, typ types.Type, reg ir.Reg, pos cerr.Pos) (*Symbol, error) {
	sym := &Symbol{Name: name, Type: typ, Storage: StorageReg, Reg: reg}
	return t.insert(sym, pos)
}

// InsertTmp allocates an anonymous memory-backed temporary of typ,
// returning its Symbol; anonymous temporaries are never looked up by name,
// only held directly by the caller.
func (t *Table) InsertTmp(typ types.Type, size, align int) *Symbol {
	off := alignUp(t.nextOffset, align)
	t.nextOffset = off + size
	if t.nextOffset > t.maxAlloc {
		t.maxAlloc = t.nextOffset
	}
	return &Symbol{Type: typ, Storage: StorageMem, Offset: off}
}

// Lookup searches scopes from innermost to outermost for name.
func (t *Table) Lookup(name string) *Symbol {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if s, ok := t.scopes[i].byName[name]; ok {
			return s
		}
	}
	return nil
}

// MaxAllocated returns the peak memory offset used, so the function
// prologue can reserve that much frame space (spec §4.C).
func (t *Table) MaxAllocated() int { return t.maxAlloc }

func alignUp(off, align int) int {
	if align <= 1 {
		return off
	}
	rem := off % align
	if rem == 0 {
		return off
	}
	return off + (align - rem)
}
