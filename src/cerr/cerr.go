// Package cerr defines the error kinds the front-end can report and the
// positional context every fallible operation threads back to its caller.
package cerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind differentiates the error conditions the front-end recognises. Every
// fallible operation in types, ir, symtab, expr, runtime and resolve returns
// either nil or an *Error built from one of these kinds.
type Kind int

const (
	Oom Kind = iota
	ExpectedToken
	IdExpected
	KeywordExpected
	NumericExpected
	IntegerExpected
	StringExpected
	UnknownVariable
	AlreadyDefined
	UnknownProcedure
	UnknownFunction
	ProcedureExpected
	FunctionExpected
	BadArgCount
	BadArgType
	BadConversion
	BadZeroExtend
	BadExpression
	AssignmentOpExpected
	RightBktExpected
	ExpExpected
	BadDim
	BadIndex
	BadIndexCount
	TooManyDims
	ArrayTypeMismatch
	DimInProc
	NestedProcedure
	ReturnInMain
	ReturnInProc
	ProcInMain
	ProcInFn
	NotSupported
	UselessStatement
	DivideByZero
	ZeroStep
	CompoundNotTerminated
	SysCallUnknown
	SysBadArgs
	SysTooManyArgs
	AssertionFailed
)

var names = [...]string{
	"Oom", "ExpectedToken", "IdExpected", "KeywordExpected", "NumericExpected",
	"IntegerExpected", "StringExpected", "UnknownVariable", "AlreadyDefined",
	"UnknownProcedure", "UnknownFunction", "ProcedureExpected", "FunctionExpected",
	"BadArgCount", "BadArgType", "BadConversion", "BadZeroExtend", "BadExpression",
	"AssignmentOpExpected", "RightBktExpected", "ExpExpected", "BadDim", "BadIndex",
	"BadIndexCount", "TooManyDims", "ArrayTypeMismatch", "DimInProc",
	"NestedProcedure", "ReturnInMain", "ReturnInProc", "ProcInMain", "ProcInFn",
	"NotSupported", "UselessStatement", "DivideByZero", "ZeroStep",
	"CompoundNotTerminated", "SysCallUnknown", "SysBadArgs", "SysTooManyArgs",
	"AssertionFailed",
}

// String returns the kind's identifier, e.g. "BadArgType".
func (k Kind) String() string {
	if k < 0 || int(k) >= len(names) {
		return "UnknownKind"
	}
	return names[k]
}

// Pos locates an error in the source stream the external lexer reported it
// from: the stream name (usually a file path) and a one-based line number.
type Pos struct {
	Stream string
	Line   int
}

func (p Pos) String() string {
	if p.Stream == "" {
		return fmt.Sprintf("line %d", p.Line)
	}
	return fmt.Sprintf("%s:%d", p.Stream, p.Line)
}

// Error is the concrete error value returned across the front-end. It wraps
// a Kind, the position of its first observation, and a formatted detail
// message, and carries a pkg/errors stack trace from the point it was built.
type Error struct {
	Kind Kind
	Pos  Pos
	Msg  string
	err  error // wrapped cause, carries the stack trace
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
}

// Cause hands github.com/pkg/errors.Cause the wrapped err, which carries the
// stack trace captured at New and the same message as Error. Unwrap returns
// nil, so the standard errors package treats Error as the end of the chain.
func (e *Error) Cause() error { return e.err }

func (e *Error) Unwrap() error { return nil }

// New builds an *Error of the given kind at pos, formatting msg/args with
// fmt.Sprintf and attaching a stack trace via pkg/errors.
func New(kind Kind, pos Pos, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	e := &Error{Kind: kind, Pos: pos, Msg: msg}
	e.err = errors.WithStack(errors.New(e.Error()))
	return e
}

// Is reports whether err is a *Error of the given kind, e.g. for tests that
// check which kind of error a failure produced.
func Is(err error, kind Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}
