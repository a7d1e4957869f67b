package qbe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderTempResetsPerFunction(t *testing.T) {
	b := NewBuilder()
	b.OpenFunction(true, "$main", TWord, nil)
	b.EmitLabel(BlockLabel(0))
	t1 := b.NewTemp()
	assert.Equal(t, "%t.0", t1)
	b.EmitRetValue("0")
	b.CloseFunction()

	b.OpenFunction(false, "$sub_foo", TVoid, nil)
	b.EmitLabel(BlockLabel(0))
	t2 := b.NewTemp()
	assert.Equal(t, "%t.0", t2, "temp counter must reset on every OpenFunction")
	b.EmitRet()
	b.CloseFunction()
}

func TestEveryBlockEndsInExactlyOneTerminator(t *testing.T) {
	b := NewBuilder()
	b.OpenFunction(true, "$main", TWord, nil)
	b.EmitLabel(BlockLabel(0))
	b.EmitJump(BlockLabel(1))
	b.EmitLabel(BlockLabel(1))
	b.EmitRetValue("0")
	b.CloseFunction()

	out := b.String()
	terminators := 0
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "jmp ") || strings.HasPrefix(line, "jnz ") || strings.HasPrefix(line, "ret") {
			terminators++
		}
	}
	assert.Equal(t, 2, terminators)
}

func TestCompareMnemonicQuirks(t *testing.T) {
	m, err := CompareMnemonic(RelEq, TWord)
	require.NoError(t, err)
	assert.Equal(t, "ceqw", m)

	m, err = CompareMnemonic(RelLt, TWord)
	require.NoError(t, err)
	assert.Equal(t, "csltw", m)

	m, err = CompareMnemonic(RelLt, TDouble)
	require.NoError(t, err)
	assert.Equal(t, "cltd", m, "float comparisons never carry the signed cs-prefix")
}

func TestStringPoolDeduplicatesAndIsInsertionOrdered(t *testing.T) {
	p := NewStringPool()
	l1 := p.Register("hello")
	l2 := p.Register("world")
	l3 := p.Register("hello")
	assert.Equal(t, l1, l3, "registering the same value twice must return the same label")
	assert.NotEqual(t, l1, l2)

	dump := p.EmitBulk()
	assert.True(t, strings.Index(dump, "hello") < strings.Index(dump, "world"))

	l4 := p.Register("late")
	late := p.EmitLate()
	assert.Contains(t, late, "late")
	assert.NotContains(t, late, "hello", "EmitLate must only dump the delta since EmitBulk")
	_ = l4
}

func TestEmitSwitchHandlesGaps(t *testing.T) {
	b := NewBuilder()
	b.OpenFunction(true, "$main", TWord, nil)
	b.EmitLabel(BlockLabel(0))
	b.EmitSwitch("%sel", []string{"block_1", "block_2", "", "block_4"}, "block_default")
	out := b.String()
	assert.Contains(t, out, "@block_default")
	b.EmitLabel("block_default")
	b.EmitRetValue("0")
	b.CloseFunction()
}
