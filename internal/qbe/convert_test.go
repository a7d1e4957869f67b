package qbe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertOpNoopWhenTypesMatch(t *testing.T) {
	steps, err := ConvertOp(TWord, TWord)
	require.NoError(t, err)
	assert.Nil(t, steps)
}

func TestConvertOpLongToWordNarrowsWithMaskThenCopy(t *testing.T) {
	steps, err := ConvertOp(TLong, TWord)
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, "and", steps[0].Mnemonic)
	assert.Equal(t, "4294967295", steps[0].Operand2)
	assert.Equal(t, TLong, steps[0].ResultType)

	assert.Equal(t, "copy", steps[1].Mnemonic)
	assert.Empty(t, steps[1].Operand2)
	assert.Equal(t, TWord, steps[1].ResultType)
}

func TestEmitConvertLongToWordProducesValidIL(t *testing.T) {
	b := NewBuilder()
	b.OpenFunction(true, "$main", TWord, nil)
	b.EmitLabel(BlockLabel(0))

	result := b.EmitConvert(TLong, TWord, "%t.cur")
	b.EmitRetValue("0")
	b.CloseFunction()

	out := b.String()
	assert.Equal(t, "%t.1", result)

	require.Contains(t, out, "%t.0 =l and %t.cur, 4294967295\n")
	require.Contains(t, out, "%t.1 =w copy %t.0\n")

	for _, line := range strings.Split(out, "\n") {
		assert.NotContains(t, line, "$0xffffffff", "narrowing mask must not use the global sigil")
	}
}
