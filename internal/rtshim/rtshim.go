// Package rtshim implements the Runtime Shim (C4): thin typed emitters
// for calls into the externally linked C runtime library named in
// spec.md section 6's ABI table. Nothing here inspects or mutates AST;
// every function only reads operand temps/types already produced by
// the emitter and returns the temp holding the call's result.
//
// Grounded on vslc/src/ir/lir's FunctionCallInstruction, which
// wraps a callee symbol plus a typed argument list behind a single
// CreateXxx constructor per call site; this package keeps that
// one-function-per-operation shape but targets Builder.EmitCall
// directly instead of building a retained call node.
package rtshim

import (
	"fmt"

	"basilisk/internal/basic"
	"basilisk/internal/qbe"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Shim wraps a qbe.Builder with the runtime ABI's call surface.
type Shim struct {
	b *qbe.Builder
}

// ---------------------
// ----- Constants -----
// ---------------------

// IntMax is the sentinel MID$ length argument meaning "to end of
// string" (spec.md section 4.4).
const IntMax = 2147483647

// -------------------
// ----- Functions -----
// -------------------

// New wraps b in a Shim.
func New(b *qbe.Builder) *Shim {
	return &Shim{b: b}
}

func (s *Shim) call(ret qbe.Type, name string, args ...qbe.Arg) string {
	return s.b.EmitCall(ret, "$"+name, args)
}

// ----- Print/output -----

// PrintInt chooses among rt_print_i32/i64/u32/u64 by the BASIC integer
// type of value.
func (s *Shim) PrintInt(value string, t basic.BaseType) {
	var name string
	switch t {
	case basic.Byte, basic.Short, basic.Integer:
		name = "rt_print_i32"
	case basic.UByte, basic.UShort, basic.UInteger:
		name = "rt_print_u32"
	case basic.Long:
		name = "rt_print_i64"
	case basic.ULong:
		name = "rt_print_u64"
	default:
		name = "rt_print_i32"
	}
	argType := qbe.TWord
	if t == basic.Long || t == basic.ULong {
		argType = qbe.TLong
	}
	s.call(qbe.TVoid, name, qbe.Arg{Type: argType, Value: value})
}

func (s *Shim) PrintSingle(value string) {
	s.call(qbe.TVoid, "rt_print_float", qbe.Arg{Type: qbe.TSingle, Value: value})
}

func (s *Shim) PrintDouble(value string) {
	s.call(qbe.TVoid, "rt_print_double", qbe.Arg{Type: qbe.TDouble, Value: value})
}

func (s *Shim) PrintString(descriptor string) {
	s.call(qbe.TVoid, "rt_print_string", qbe.Arg{Type: qbe.TLong, Value: descriptor})
}

func (s *Shim) PrintNewline() {
	s.call(qbe.TVoid, "rt_print_newline")
}

func (s *Shim) PrintTab() {
	s.call(qbe.TVoid, "rt_print_tab")
}

// ----- String ops -----

func (s *Shim) Concat(lhs, rhs string) string {
	return s.call(qbe.TLong, "string_concat", qbe.Arg{Type: qbe.TLong, Value: lhs}, qbe.Arg{Type: qbe.TLong, Value: rhs})
}

func (s *Shim) Len(str string) string {
	return s.call(qbe.TWord, "string_len", qbe.Arg{Type: qbe.TLong, Value: str})
}

func (s *Shim) Chr(codePoint string) string {
	return s.call(qbe.TLong, "string_chr", qbe.Arg{Type: qbe.TWord, Value: codePoint})
}

func (s *Shim) Asc(str string) string {
	return s.call(qbe.TWord, "string_asc", qbe.Arg{Type: qbe.TLong, Value: str})
}

// Mid implements MID$(s, start[, length]); pass length = "" to mean
// "to end of string" (the core then supplies the IntMax sentinel).
func (s *Shim) Mid(str, start, length string) string {
	if length == "" {
		length = fmt.Sprintf("%d", IntMax)
	}
	return s.call(qbe.TLong, "string_mid",
		qbe.Arg{Type: qbe.TLong, Value: str},
		qbe.Arg{Type: qbe.TWord, Value: start},
		qbe.Arg{Type: qbe.TWord, Value: length})
}

func (s *Shim) Left(str, count string) string {
	return s.call(qbe.TLong, "string_left", qbe.Arg{Type: qbe.TLong, Value: str}, qbe.Arg{Type: qbe.TWord, Value: count})
}

func (s *Shim) Right(str, count string) string {
	return s.call(qbe.TLong, "string_right", qbe.Arg{Type: qbe.TLong, Value: str}, qbe.Arg{Type: qbe.TWord, Value: count})
}

func (s *Shim) Ucase(str string) string {
	return s.call(qbe.TLong, "string_ucase", qbe.Arg{Type: qbe.TLong, Value: str})
}

func (s *Shim) Lcase(str string) string {
	return s.call(qbe.TLong, "string_lcase", qbe.Arg{Type: qbe.TLong, Value: str})
}

// Compare returns a word temp in {-1, 0, 1}.
func (s *Shim) Compare(lhs, rhs string) string {
	return s.call(qbe.TWord, "string_compare", qbe.Arg{Type: qbe.TLong, Value: lhs}, qbe.Arg{Type: qbe.TLong, Value: rhs})
}

// Assign copies srcDescriptor's contents into *destAddr.
func (s *Shim) Assign(destAddr, srcDescriptor string) {
	s.call(qbe.TVoid, "string_assign", qbe.Arg{Type: qbe.TLong, Value: destAddr}, qbe.Arg{Type: qbe.TLong, Value: srcDescriptor})
}

// Literal wraps a string-pool label as a runtime descriptor.
func (s *Shim) Literal(poolLabel string) string {
	return s.call(qbe.TLong, "string_literal", qbe.Arg{Type: qbe.TLong, Value: poolLabel})
}

// ----- String lifecycle -----

func (s *Shim) Clone(str string) string {
	return s.call(qbe.TLong, "string_clone", qbe.Arg{Type: qbe.TLong, Value: str})
}

// Retain increments str's refcount and returns str itself.
func (s *Shim) Retain(str string) string {
	return s.call(qbe.TLong, "string_retain", qbe.Arg{Type: qbe.TLong, Value: str})
}

func (s *Shim) Release(str string) {
	s.call(qbe.TVoid, "string_release", qbe.Arg{Type: qbe.TLong, Value: str})
}

// ----- Arrays -----

// ArrayBoundsCheck emits a call to rt_array_bounds_check for index
// against [lowerBound, upperBound]; it computes no address itself. The
// core calls it for every array element access when Options.BoundsCheck
// is set (spec.md section 7).
func (s *Shim) ArrayBoundsCheck(index, lowerBound, upperBound string) {
	s.call(qbe.TVoid, "rt_array_bounds_check",
		qbe.Arg{Type: qbe.TWord, Value: index},
		qbe.Arg{Type: qbe.TWord, Value: lowerBound},
		qbe.Arg{Type: qbe.TWord, Value: upperBound})
}

func (s *Shim) ArrayAlloc(descriptorAddr, elementSize, totalElements string) {
	s.call(qbe.TVoid, "rt_array_alloc",
		qbe.Arg{Type: qbe.TLong, Value: descriptorAddr},
		qbe.Arg{Type: qbe.TWord, Value: elementSize},
		qbe.Arg{Type: qbe.TWord, Value: totalElements})
}

func (s *Shim) ArrayFree(descriptorAddr string) {
	s.call(qbe.TVoid, "rt_array_free", qbe.Arg{Type: qbe.TLong, Value: descriptorAddr})
}

// ----- Math -----

func (s *Shim) mathUnary(name string, t qbe.Type, value string) string {
	return s.call(t, name, qbe.Arg{Type: t, Value: value})
}

func (s *Shim) Abs(t qbe.Type, value string) string {
	name := "rt_abs_i"
	if t == qbe.TSingle || t == qbe.TDouble {
		name = "rt_abs_f"
	}
	return s.mathUnary(name, t, value)
}

func (s *Shim) Sqr(value string) string  { return s.mathUnary("rt_sqr", qbe.TDouble, value) }
func (s *Shim) Sin(value string) string  { return s.mathUnary("rt_sin", qbe.TDouble, value) }
func (s *Shim) Cos(value string) string  { return s.mathUnary("rt_cos", qbe.TDouble, value) }
func (s *Shim) Tan(value string) string  { return s.mathUnary("rt_tan", qbe.TDouble, value) }

func (s *Shim) Int(value string) string {
	return s.call(qbe.TWord, "rt_int", qbe.Arg{Type: qbe.TDouble, Value: value})
}

func (s *Shim) Rnd() string {
	return s.call(qbe.TDouble, "rt_rnd")
}

func (s *Shim) Timer() string {
	return s.call(qbe.TDouble, "rt_timer")
}

// ----- Input -----

func (s *Shim) InputInt() string    { return s.call(qbe.TWord, "rt_input_int") }
func (s *Shim) InputSingle() string { return s.call(qbe.TSingle, "rt_input_float") }
func (s *Shim) InputDouble() string { return s.call(qbe.TDouble, "rt_input_double") }
func (s *Shim) InputString() string { return s.call(qbe.TLong, "rt_input_string") }

// ----- Conversion -----

func (s *Shim) Str(value string, t qbe.Type) string {
	return s.call(qbe.TLong, "rt_str", qbe.Arg{Type: t, Value: value})
}

func (s *Shim) Val(str string) string {
	return s.call(qbe.TDouble, "rt_val", qbe.Arg{Type: qbe.TLong, Value: str})
}

// ----- Control -----

func (s *Shim) End() {
	s.call(qbe.TVoid, "rt_end")
}

func (s *Shim) RuntimeError(code string, messageDescriptor string) {
	s.call(qbe.TVoid, "rt_runtime_error",
		qbe.Arg{Type: qbe.TWord, Value: code},
		qbe.Arg{Type: qbe.TLong, Value: messageDescriptor})
}

// Memset zeroes n bytes starting at addr (used for UDT zero-init,
// spec.md section 4.6).
func (s *Shim) Memset(addr string, n int) {
	s.call(qbe.TLong, "memset",
		qbe.Arg{Type: qbe.TLong, Value: addr},
		qbe.Arg{Type: qbe.TWord, Value: "0"},
		qbe.Arg{Type: qbe.TLong, Value: fmt.Sprintf("%d", n)})
}
