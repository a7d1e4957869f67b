package qbe

import (
	"fmt"
	"strconv"
	"strings"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Builder is the append-only sink for QBE text (C1). It owns the
// per-function temporary counter, the process-lifetime label counter,
// and the string-constant pool. Every other component emits QBE text
// exclusively by calling Builder methods; Raw is the single documented
// escape hatch for constructs with no typed helper (spec.md section
// 4.1).
//
// Builder is not safe for concurrent use. spec.md section 5 makes this
// an explicit single-threaded contract: two independent Builders (and
// their owning codegen Contexts) may run in separate goroutines, but one
// Builder must never be shared across them.
type Builder struct {
	out strings.Builder

	tempSeq  int
	labelSeq int

	pool *StringPool

	funcOpen    bool
	lastWasTerm bool
	anyLabel    bool
}

// ---------------------
// ----- Constants -----
// ---------------------

// defaultGosubStackDepth is the fallback capacity for the GOSUB return
// stack when the driver does not override it (spec.md section 3).
const defaultGosubStackDepth = 16

// ---------------------
// ----- Functions -----
// ---------------------

// NewBuilder returns an empty Builder with a fresh string pool.
func NewBuilder() *Builder {
	return &Builder{pool: NewStringPool()}
}

// String returns the accumulated IL text.
func (b *Builder) String() string {
	return b.out.String()
}

// Pool exposes the Builder's string pool so the driver can invoke its
// bulk/late dump at the right points in the program layout (spec.md
// section 4.7 steps 5 and 11).
func (b *Builder) Pool() *StringPool {
	return b.pool
}

// Raw appends s verbatim. This is the single "raw emit" escape hatch
// named in spec.md section 4.1; it participates in none of the
// invalid-state diagnostics below, so callers must keep the protocol
// themselves.
func (b *Builder) Raw(s string) {
	b.out.WriteString(s)
}

// warn writes a `# WARNING: ...` comment into the output, per spec.md
// section 4.1's contract that the Builder never silently discards
// input in an invalid state.
func (b *Builder) warn(format string, args ...interface{}) {
	b.out.WriteString("\t# WARNING: ")
	b.out.WriteString(fmt.Sprintf(format, args...))
	b.out.WriteByte('\n')
}

// errComment writes a `# ERROR: ...` comment, for invalid-state calls
// more serious than a warning (spec.md section 4.1/section 7).
func (b *Builder) errComment(format string, args ...interface{}) {
	b.out.WriteString("\t# ERROR: ")
	b.out.WriteString(fmt.Sprintf(format, args...))
	b.out.WriteByte('\n')
}

// ------------------------------
// ----- Function framing -----
// ------------------------------

// OpenFunction writes the QBE function header and resets the
// per-function temporary counter (spec.md section 3 invariant 1: the
// counter resets at the start of every function so definition-before-
// use holds trivially within one function body).
func (b *Builder) OpenFunction(exported bool, name string, ret Type, params []Param) {
	if b.funcOpen {
		b.errComment("OpenFunction called while a function is already open (nested open of %s)", name)
	}
	b.tempSeq = 0
	b.funcOpen = true
	b.lastWasTerm = false
	b.anyLabel = false

	if exported {
		b.out.WriteString("export ")
	}
	b.out.WriteString("function ")
	if ret != TVoid {
		b.out.WriteString(string(ret))
		b.out.WriteByte(' ')
	}
	b.out.WriteString(name)
	b.out.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.out.WriteString(", ")
		}
		b.out.WriteString(string(p.Type))
		b.out.WriteByte(' ')
		b.out.WriteString(p.Name)
	}
	b.out.WriteString(") {\n")
}

// Param is one QBE function parameter (type + temp name).
type Param struct {
	Type Type
	Name string
}

// CloseFunction writes the function's closing brace and a blank line.
func (b *Builder) CloseFunction() {
	if !b.funcOpen {
		b.errComment("CloseFunction called with no function open")
	}
	b.out.WriteString("}\n\n")
	b.funcOpen = false
}

// ---------------------
// ----- Labels -----
// ---------------------

// EmitLabel writes a block label. name should not include the leading
// `@`; Builder adds it.
func (b *Builder) EmitLabel(name string) {
	b.out.WriteString("@")
	b.out.WriteString(name)
	b.out.WriteByte('\n')
	b.lastWasTerm = false
	b.anyLabel = true
}

// NewUniqueLabel mints a process-lifetime-unique label with the given
// prefix (spec.md section 4.3's synthesized-label convention; owned
// here because spec.md section 3 places the label counter in C1).
func (b *Builder) NewUniqueLabel(prefix string) string {
	b.labelSeq++
	return fmt.Sprintf("%s_%d", prefix, b.labelSeq)
}

// ---------------------------------
// ----- Temporary allocation -----
// ---------------------------------

// NewTemp returns a fresh temporary name, monotone within the current
// function and reset on every OpenFunction call.
func (b *Builder) NewTemp() string {
	name := fmt.Sprintf("%%t.%d", b.tempSeq)
	b.tempSeq++
	return name
}

// ------------------------------------
// ----- Three-address arithmetic -----
// ------------------------------------

// EmitBinary emits `dest =T op lhs, rhs` and returns dest. op is a bare
// QBE mnemonic (add, sub, mul, div, rem, and, or, xor, sar, shr, shl).
func (b *Builder) EmitBinary(typ Type, op, lhs, rhs string) string {
	dest := b.NewTemp()
	b.stmt(fmt.Sprintf("%s =%s %s %s, %s", dest, typ, op, lhs, rhs))
	return dest
}

// EmitUnaryNeg emits a negate instruction.
func (b *Builder) EmitUnaryNeg(typ Type, src string) string {
	dest := b.NewTemp()
	b.stmt(fmt.Sprintf("%s =%s neg %s", dest, typ, src))
	return dest
}

// ------------------------
// ----- Comparison -----
// ------------------------

// EmitCompare emits a comparison of operandType operands lhs/rhs using
// relation op, choosing the concrete mnemonic via CompareMnemonic
// (spec.md section 4.1/section 9). The comparison result is always a
// word (spec.md section 4.5 "Comparison: always produces a word").
func (b *Builder) EmitCompare(op RelOp, operandType Type, lhs, rhs string) (string, error) {
	mnem, err := CompareMnemonic(op, operandType)
	if err != nil {
		b.errComment("EmitCompare: %s", err)
		return "0", err
	}
	dest := b.NewTemp()
	b.stmt(fmt.Sprintf("%s =w %s %s, %s", dest, mnem, lhs, rhs))
	return dest, nil
}

// ---------------------
// ----- Memory -----
// ---------------------

// EmitLoad emits `dest =T loadT addr` and returns dest.
func (b *Builder) EmitLoad(typ Type, addr string) string {
	dest := b.NewTemp()
	b.stmt(fmt.Sprintf("%s =%s load%s %s", dest, typ, typ, addr))
	return dest
}

// EmitStore emits `storeT value, addr`.
func (b *Builder) EmitStore(typ Type, value, addr string) {
	b.stmt(fmt.Sprintf("store%s %s, %s", typ, value, addr))
}

// EmitAlloc emits a stack allocation of size bytes at the alignment
// chosen by AllocSize (4, 8, or 16) and returns the slot's temp name.
func (b *Builder) EmitAlloc(size int, want16 bool) string {
	dest := b.NewTemp()
	align := AllocSize(size, want16)
	b.stmt(fmt.Sprintf("%s =l alloc%d %d", dest, align, size))
	return dest
}

// ---------------------
// ----- Control -----
// ---------------------

// EmitJump emits an unconditional jump and marks the block terminated.
func (b *Builder) EmitJump(target string) {
	b.stmt(fmt.Sprintf("jmp @%s", target))
	b.lastWasTerm = true
}

// EmitJnz emits a conditional branch and marks the block terminated.
func (b *Builder) EmitJnz(cond, thenTarget, elseTarget string) {
	b.stmt(fmt.Sprintf("jnz %s, @%s, @%s", cond, thenTarget, elseTarget))
	b.lastWasTerm = true
}

// EmitRet emits a return with no value and marks the block terminated.
func (b *Builder) EmitRet() {
	b.stmt("ret")
	b.lastWasTerm = true
}

// EmitRetValue emits a return with a value and marks the block terminated.
func (b *Builder) EmitRetValue(value string) {
	b.stmt(fmt.Sprintf("ret %s", value))
	b.lastWasTerm = true
}

// LastWasTerminator reports whether the most recently emitted
// instruction in the current block was a jmp/jnz/ret (spec.md section 3
// invariant 2). The CFG emitter does not consult it; it emits each
// block's terminator once, after the block body.
func (b *Builder) LastWasTerminator() bool {
	return b.lastWasTerm
}

// ResetTerminatorTracking clears the terminator-tracking flag; called by
// C6 after EmitLabel so a fresh block starts untermianted.
func (b *Builder) ResetTerminatorTracking() {
	b.lastWasTerm = false
}

// ---------------------
// ----- Switch -----
// ---------------------

// EmitSwitch emits the comparison-chain lowering of a multi-way branch:
// selector == i -> caseLabels[i], falling through a chain of freshly
// synthesized intermediate labels, and finally to defaultLabel (spec.md
// section 4.1). caseLabels may contain empty strings for gaps (ON GOTO
// gaps route straight to defaultLabel, spec.md section 4.6).
func (b *Builder) EmitSwitch(selector string, caseLabels []string, defaultLabel string) {
	if len(caseLabels) == 0 {
		b.EmitJump(defaultLabel)
		return
	}
	for i, target := range caseLabels {
		last := i == len(caseLabels)-1
		effectiveTarget := target
		if effectiveTarget == "" {
			// Gap in the case list: this index falls straight through to
			// the default/continuation, same as an unmatched selector.
			effectiveTarget = defaultLabel
		}
		var fallthroughLabel string
		if last {
			fallthroughLabel = defaultLabel
		} else {
			fallthroughLabel = b.NewUniqueLabel("switch_next")
		}
		cmp := b.NewTemp()
		b.stmt(fmt.Sprintf("%s =w ceqw %s, %d", cmp, selector, i))
		b.stmt(fmt.Sprintf("jnz %s, @%s, @%s", cmp, effectiveTarget, fallthroughLabel))
		b.lastWasTerm = true
		if !last {
			b.EmitLabel(fallthroughLabel)
		}
	}
}

// ---------------------
// ----- Calls -----
// ---------------------

// Arg is one typed call argument.
type Arg struct {
	Type  Type
	Value string
}

// EmitCall emits `dest =T call $name(args)` if ret != TVoid, otherwise
// `call $name(args)`, and returns dest (empty string for void calls).
func (b *Builder) EmitCall(ret Type, name string, args []Arg) string {
	var argList strings.Builder
	for i, a := range args {
		if i > 0 {
			argList.WriteString(", ")
		}
		argList.WriteString(string(a.Type))
		argList.WriteByte(' ')
		argList.WriteString(a.Value)
	}
	if ret == TVoid {
		b.stmt(fmt.Sprintf("call %s(%s)", name, argList.String()))
		return ""
	}
	dest := b.NewTemp()
	b.stmt(fmt.Sprintf("%s =%s call %s(%s)", dest, ret, name, argList.String()))
	return dest
}

// -----------------------------
// ----- Type conversion -----
// -----------------------------

// EmitConvert lowers value from Type `from` to Type `to` by chaining
// the ConvertOp steps, returning the final temp. If from == to, value
// is returned unchanged (no-op conversion).
func (b *Builder) EmitConvert(from, to Type, value string) string {
	steps, err := ConvertOp(from, to)
	if err != nil {
		b.errComment("EmitConvert: %s", err)
		return value
	}
	cur := value
	curType := from
	for _, step := range steps {
		dest := b.NewTemp()
		if step.Operand2 != "" {
			b.stmt(fmt.Sprintf("%s =%s %s %s, %s", dest, step.ResultType, step.Mnemonic, cur, step.Operand2))
		} else {
			b.stmt(fmt.Sprintf("%s =%s %s %s", dest, step.ResultType, step.Mnemonic, cur))
		}
		cur = dest
		curType = step.ResultType
	}
	_ = curType
	return cur
}

// ------------------------
// ----- Data section -----
// ------------------------

// EmitDataString emits a single `data $label = { b "...", b 0 }` item,
// independent of the pooled-string path (used for one-off labeled data
// the driver controls directly, e.g. fixed runtime-state globals).
func (b *Builder) EmitDataString(label, value string) {
	b.out.WriteString(fmt.Sprintf("data %s = { b %s, b 0 }\n", label, escapeQBEString(value)))
}

// EmitDataZero emits a zero-initialized byte block of n bytes.
func (b *Builder) EmitDataZero(exported bool, label string, n int) {
	if exported {
		b.out.WriteString("export ")
	}
	b.out.WriteString(fmt.Sprintf("data %s = { z %d }\n", label, n))
}

// EmitDataWords emits a data item laid out as a sequence of typed
// scalar fields, e.g. `data $gosub_return_stack = { w 0, w 0, ... }`.
func (b *Builder) EmitDataWords(exported bool, label string, typ Type, values []string) {
	if exported {
		b.out.WriteString("export ")
	}
	b.out.WriteString(fmt.Sprintf("data %s = { ", label))
	for i, v := range values {
		if i > 0 {
			b.out.WriteString(", ")
		}
		b.out.WriteString(string(typ))
		b.out.WriteByte(' ')
		b.out.WriteString(v)
	}
	b.out.WriteString(" }\n")
}

// EmitDataFields emits a single data object whose contents are the
// given pre-rendered fields (each already in `type value` form, e.g.
// "w 0" or "l $str_3"), concatenated in order. Use this over repeated
// EmitDataWords/EmitDataZero calls when the layout mixes field types
// and callers depend on every field sharing one contiguous object
// (QBE gives no adjacency guarantee across separate `data` items).
func (b *Builder) EmitDataFields(exported bool, label string, fields []string) {
	if exported {
		b.out.WriteString("export ")
	}
	b.out.WriteString(fmt.Sprintf("data %s = { %s }\n", label, strings.Join(fields, ", ")))
}

// EmitComment writes a `# comment` line.
func (b *Builder) EmitComment(format string, args ...interface{}) {
	b.out.WriteString("# ")
	b.out.WriteString(fmt.Sprintf(format, args...))
	b.out.WriteByte('\n')
}

// EmitBlank writes a single blank line.
func (b *Builder) EmitBlank() {
	b.out.WriteByte('\n')
}

// ---------------------
// ----- Literals -----
// ---------------------

// ConstantInt returns the QBE word/long literal text for a compile-time
// integer constant, suitable as an operand without minting a temp.
func ConstantInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// ConstantFloat returns the QBE single/double literal text for a
// compile-time float constant.
func ConstantFloat(typ Type, v float64) string {
	switch typ {
	case TSingle:
		return "s_" + strconv.FormatFloat(v, 'g', -1, 32)
	default:
		return "d_" + strconv.FormatFloat(v, 'g', -1, 64)
	}
}

// ---------------------
// ----- internals -----
// ---------------------

// stmt writes an instruction line with the standard one-tab indent. It
// is the sole place that checks the "instruction before any label"
// invalid-state case named in spec.md section 4.1, downgrading to a
// WARNING comment rather than dropping the instruction.
func (b *Builder) stmt(s string) {
	if !b.anyLabel && b.funcOpen {
		b.warn("instruction emitted before any block label: %s", s)
	}
	b.out.WriteByte('\t')
	b.out.WriteString(s)
	b.out.WriteByte('\n')
}
