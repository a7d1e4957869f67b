package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeExpressionLiterals(t *testing.T) {
	e, err := DecodeExpression([]byte(`{"kind": "NUMBER", "intValue": 42, "type": {"base": "INTEGER"}}`))
	require.NoError(t, err)
	num, ok := e.(*NumberLiteral)
	require.True(t, ok)
	assert.Equal(t, int64(42), num.IntValue)

	e, err = DecodeExpression([]byte(`{"kind": "STRING", "value": "hi"}`))
	require.NoError(t, err)
	str, ok := e.(*StringLiteral)
	require.True(t, ok)
	assert.Equal(t, "hi", str.Value)
}

func TestDecodeExpressionBinaryNestsOperands(t *testing.T) {
	raw := []byte(`{
		"kind": "BINARY", "op": "ADD",
		"left": {"kind": "VARIABLE", "name": "X"},
		"right": {"kind": "NUMBER", "intValue": 1}
	}`)
	e, err := DecodeExpression(raw)
	require.NoError(t, err)
	bin, ok := e.(*BinaryExpression)
	require.True(t, ok)
	assert.Equal(t, OpAdd, bin.Op)
	v, ok := bin.Left.(*VariableExpression)
	require.True(t, ok)
	assert.Equal(t, "X", v.Name)
}

func TestDecodeExpressionUnknownKindErrors(t *testing.T) {
	_, err := DecodeExpression([]byte(`{"kind": "NOPE"}`))
	assert.Error(t, err)
}

func TestDecodeStatementLet(t *testing.T) {
	raw := []byte(`{
		"kind": "LET", "line": 10,
		"lhs": {"kind": "VARIABLE", "name": "X"},
		"rhs": {"kind": "NUMBER", "intValue": 5}
	}`)
	s, err := DecodeStatement(raw)
	require.NoError(t, err)
	let, ok := s.(*LetStatement)
	require.True(t, ok)
	assert.Equal(t, 10, let.Line())
	lhs, ok := let.LHS.(*VariableExpression)
	require.True(t, ok)
	assert.Equal(t, "X", lhs.Name)
}

func TestDecodeStatementForWithOptionalStepAbsent(t *testing.T) {
	raw := []byte(`{
		"kind": "FOR",
		"variable": "I",
		"varType": {"base": "INTEGER"},
		"initial": {"kind": "NUMBER", "intValue": 0},
		"limit": {"kind": "NUMBER", "intValue": 10}
	}`)
	s, err := DecodeStatement(raw)
	require.NoError(t, err)
	f, ok := s.(*ForStatement)
	require.True(t, ok)
	assert.Equal(t, "I", f.Variable)
	assert.Nil(t, f.Step, "an absent step field must decode to a nil Expression, not a zero-valued node")
}

func TestDecodeStatementOnGotoCarriesTargets(t *testing.T) {
	raw := []byte(`{
		"kind": "ON_GOTO",
		"selector": {"kind": "VARIABLE", "name": "N"},
		"targets": ["L1", "L2", ""]
	}`)
	s, err := DecodeStatement(raw)
	require.NoError(t, err)
	on, ok := s.(*OnGotoStatement)
	require.True(t, ok)
	assert.Equal(t, []string{"L1", "L2", ""}, on.Targets, "a gap in ON GOTO's target list must be preserved as an empty string, not dropped")
}

func TestDecodeStatementUnknownKindErrors(t *testing.T) {
	_, err := DecodeStatement([]byte(`{"kind": "NOPE"}`))
	assert.Error(t, err)
}

func TestDecodeProgramDecodesStatementsInOrder(t *testing.T) {
	raw := []byte(`{"statements": [
		{"kind": "LET", "lhs": {"kind": "VARIABLE", "name": "X"}, "rhs": {"kind": "NUMBER", "intValue": 1}},
		{"kind": "END"}
	]}`)
	p, err := DecodeProgram(raw)
	require.NoError(t, err)
	require.Len(t, p.Statements, 2)
	assert.Equal(t, KindLet, p.Statements[0].Kind())
	assert.Equal(t, KindEnd, p.Statements[1].Kind())
}
