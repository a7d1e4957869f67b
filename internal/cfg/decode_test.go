package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basilisk/internal/ast"
)

func TestDecodeControlFlowGraphDecodesBlockStatements(t *testing.T) {
	raw := []byte(`{
		"blocks": [
			{"id": 0, "statements": [{"kind": "END", "line": 10}], "isLoopHeader": false, "successors": []}
		],
		"edges": [{"sourceBlock": 0, "targetBlock": 0, "type": "RETURN", "label": "loop"}],
		"entryBlock": 0,
		"parameters": ["N"],
		"gosubReturnBlocks": [0],
		"returnType": {"base": "VOID"}
	}`)

	g, err := DecodeControlFlowGraph(raw)
	require.NoError(t, err)
	require.Len(t, g.Blocks, 1)
	require.Len(t, g.Blocks[0].Statements, 1)
	_, ok := g.Blocks[0].Statements[0].(*ast.EndStatement)
	assert.True(t, ok)
	assert.True(t, g.GosubReturnBlocks[0])
	assert.Equal(t, []string{"N"}, g.Parameters)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, EdgeReturn, g.Edges[0].Kind)
}

func TestDecodeProgramCFGDecodesMainAndFunctions(t *testing.T) {
	raw := []byte(`{
		"mainCFG": {"blocks": [{"id": 0, "statements": [], "successors": []}], "entryBlock": 0},
		"functionCFGs": [
			{"name": "Foo", "cfg": {"blocks": [{"id": 0, "statements": [], "successors": []}], "entryBlock": 0}}
		]
	}`)

	p, err := DecodeProgramCFG(raw)
	require.NoError(t, err)
	require.NotNil(t, p.MainCFG)
	require.Len(t, p.FunctionCFGs, 1)
	assert.Equal(t, "Foo", p.FunctionCFGs[0].Name)
}

func TestDecodeControlFlowGraphRejectsInvalidJSON(t *testing.T) {
	_, err := DecodeControlFlowGraph([]byte(`{`))
	assert.Error(t, err)
}
