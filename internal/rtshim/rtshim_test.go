package rtshim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"basilisk/internal/basic"
	"basilisk/internal/qbe"
)

func newShim() (*qbe.Builder, *Shim) {
	b := qbe.NewBuilder()
	b.OpenFunction(true, "$main", qbe.TWord, nil)
	b.EmitLabel(qbe.BlockLabel(0))
	return b, New(b)
}

func TestPrintIntChoosesWidthAndSignedness(t *testing.T) {
	b, s := newShim()
	s.PrintInt("%t.0", basic.Integer)
	s.PrintInt("%t.1", basic.ULong)
	out := b.String()
	assert.Contains(t, out, "rt_print_i32")
	assert.Contains(t, out, "rt_print_u64")
}

func TestConcatAndLenEmitExpectedCalls(t *testing.T) {
	b, s := newShim()
	dest := s.Concat("%t.0", "%t.1")
	assert.Equal(t, "%t.2", dest)
	s.Len(dest)
	out := b.String()
	assert.Contains(t, out, "call $string_concat(l %t.0, l %t.1)")
	assert.Contains(t, out, "call $string_len(l %t.2)")
}

func TestMidWithoutLengthUsesIntMaxSentinel(t *testing.T) {
	b, s := newShim()
	s.Mid("%t.0", "%t.1", "")
	out := b.String()
	assert.Contains(t, out, "string_mid", "must call the MID$ runtime entry point")
	assert.Contains(t, out, "2147483647", "an absent length must lower to the IntMax sentinel")
}

func TestPrintNewlineAndTabAreVoidCalls(t *testing.T) {
	b, s := newShim()
	s.PrintNewline()
	s.PrintTab()
	out := b.String()
	assert.Contains(t, out, "call $rt_print_newline()")
	assert.Contains(t, out, "call $rt_print_tab()")
}
