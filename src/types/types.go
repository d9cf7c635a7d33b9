// Package types implements the type descriptor registry (component A of the
// front-end): one Kind per value kind the language supports, a structurally
// comparable, deep-copyable Type descriptor, and a capability table (Ops)
// dispatched per Kind that every other component in the front-end drives IR
// emission through.
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the value kinds the front-end understands.
type Kind int

const (
	ConstInt Kind = iota
	Int
	ConstReal
	Real
	Byte
	ConstString
	String
	Array
	Vector
	Record
	FuncPtr
	Void
)

var kindNames = [...]string{
	"const int", "int", "const real", "real", "byte", "const string",
	"string", "array", "vector", "record", "function pointer", "void",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown kind"
	}
	return kindNames[k]
}

// MaxDims bounds the rank of an array type (spec §3: 1 <= rank <= MAX_DIMS).
const MaxDims = 8

// Dynamic marks an array dimension whose extent is not known at compile
// time; its extent is read from the reference header at runtime instead.
const Dynamic = -1

// Field describes one member of a record type. Offsets are monotonically
// increasing and respect the field's own alignment (spec §3 invariant).
type Field struct {
	Name   string
	Type   Type
	Offset int
}

// Type is a value-owned, deep-copied type descriptor. Equality is
// structural (spec §3): two Types describe the same type iff Equal reports
// true, regardless of identity.
type Type struct {
	Kind   Kind
	Elem   *Type  // element type of Array/Vector, or return type of FuncPtr
	Dims   []int  // per-dimension extents for Array; Dynamic for runtime-sized dims
	Fields []Field
	Params []Type // FuncPtr parameter types
	Name   string // record/function-pointer type name, for mangling
}

// RegClass says whether a Type's register-backed representation lives in
// the integer or floating-point register bank.
type RegClass int

const (
	IntClass RegClass = iota
	FloatClass
)

// TConstInt, TInt, TReal, TString, TVoid etc. are canonical descriptors for the scalar
// kinds; collection/record/func-ptr types are built with the constructors
// below since they carry payloads.
var (
	TConstInt    = Type{Kind: ConstInt}
	TInt         = Type{Kind: Int}
	TConstReal   = Type{Kind: ConstReal}
	TReal        = Type{Kind: Real}
	TByte        = Type{Kind: Byte}
	TConstString = Type{Kind: ConstString}
	TString      = Type{Kind: String}
	TVoid        = Type{Kind: Void}
)

// NewArray returns an array-of-elem type with the given per-dimension
// extents (use Dynamic for runtime-sized dimensions).
func NewArray(elem Type, dims ...int) (Type, error) {
	if len(dims) < 1 || len(dims) > MaxDims {
		return Type{}, fmt.Errorf("array rank %d out of range [1, %d]", len(dims), MaxDims)
	}
	e := elem.Clone()
	d := make([]int, len(dims))
	copy(d, dims)
	return Type{Kind: Array, Elem: &e, Dims: d}, nil
}

// NewVector returns a vector-of-elem type. Vectors always carry a single
// dynamic dimension (spec §4.E).
func NewVector(elem Type) Type {
	e := elem.Clone()
	return Type{Kind: Vector, Elem: &e, Dims: []int{Dynamic}}
}

// NewRecord returns a named record type with fields laid out by the caller
// (offsets must already satisfy the monotonic/aligned invariant).
func NewRecord(name string, fields []Field) Type {
	fs := make([]Field, len(fields))
	copy(fs, fields)
	return Type{Kind: Record, Name: name, Fields: fs}
}

// NewFuncPtr returns a function-pointer type with the given return type and
// parameter types.
func NewFuncPtr(ret Type, params []Type) Type {
	r := ret.Clone()
	ps := make([]Type, len(params))
	copy(ps, params)
	return Type{Kind: FuncPtr, Elem: &r, Params: ps}
}

// Clone deep-copies t so that storing it never aliases the caller's Elem,
// Fields or Params slices (spec §3: "types are value-owned and deep-copied
// when stored").
func (t Type) Clone() Type {
	c := t
	if t.Elem != nil {
		e := t.Elem.Clone()
		c.Elem = &e
	}
	if t.Dims != nil {
		c.Dims = append([]int(nil), t.Dims...)
	}
	if t.Fields != nil {
		c.Fields = make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			c.Fields[i] = Field{Name: f.Name, Type: f.Type.Clone(), Offset: f.Offset}
		}
	}
	if t.Params != nil {
		c.Params = make([]Type, len(t.Params))
		for i, p := range t.Params {
			c.Params[i] = p.Clone()
		}
	}
	return c
}

// Equal reports whether t and o describe the same type, structurally.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind || t.Name != o.Name {
		return false
	}
	switch t.Kind {
	case Array, Vector:
		if len(t.Dims) != len(o.Dims) {
			return false
		}
		for i := range t.Dims {
			if t.Dims[i] != o.Dims[i] {
				return false
			}
		}
		return elemEqual(t.Elem, o.Elem)
	case Record:
		if len(t.Fields) != len(o.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Name != o.Fields[i].Name || t.Fields[i].Offset != o.Fields[i].Offset ||
				!t.Fields[i].Type.Equal(o.Fields[i].Type) {
				return false
			}
		}
		return true
	case FuncPtr:
		if len(t.Params) != len(o.Params) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(o.Params[i]) {
				return false
			}
		}
		return elemEqual(t.Elem, o.Elem)
	default:
		return true
	}
}

func elemEqual(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// IsConst reports whether t is a literal-only const-tagged type. Spec §3:
// "const-tagged types are only produced by literal evaluation."
func (t Type) IsConst() bool {
	return t.Kind == ConstInt || t.Kind == ConstReal || t.Kind == ConstString
}

// IsReference reports whether values of t live behind a heap reference
// header (spec §3/§4.E): strings, arrays, vectors and records.
func (t Type) IsReference() bool {
	switch t.Kind {
	case String, Array, Vector, Record:
		return true
	default:
		return false
	}
}

// IsNumeric reports whether t participates in arithmetic/comparison.
func (t Type) IsNumeric() bool {
	switch t.Kind {
	case ConstInt, Int, ConstReal, Real, Byte:
		return true
	default:
		return false
	}
}

// RegClass reports which register bank a register-backed value of t lives
// in (spec §3: "discriminated as integer-class or floating-class").
func (t Type) RegClass() RegClass {
	if t.Kind == Real || t.Kind == ConstReal {
		return FloatClass
	}
	return IntClass
}

func (t Type) String() string {
	switch t.Kind {
	case Array:
		dims := make([]string, len(t.Dims))
		for i, d := range t.Dims {
			if d == Dynamic {
				dims[i] = "()"
			} else {
				dims[i] = fmt.Sprintf("(%d)", d)
			}
		}
		return fmt.Sprintf("%s%s", t.Elem.String(), strings.Join(dims, ""))
	case Vector:
		return fmt.Sprintf("%s[]", t.Elem.String())
	case Record:
		return fmt.Sprintf("record %s", t.Name)
	case FuncPtr:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("FN(%s) -> %s", strings.Join(parts, ", "), t.Elem.String())
	default:
		return t.Kind.String()
	}
}

// MangledName returns the identifier fragment used to name a synthesised
// per-type helper, e.g. the runtime package's "$destructor_<name>" sections
// (spec §4.E, §6).
func (t Type) MangledName() string {
	switch t.Kind {
	case Record:
		return t.Name
	case Array, Vector:
		return t.Elem.MangledName() + "_arr"
	default:
		return strings.ReplaceAll(t.Kind.String(), " ", "_")
	}
}
