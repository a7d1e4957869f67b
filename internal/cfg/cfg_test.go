package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEdgeKindStringRoundTrip(t *testing.T) {
	for _, k := range []EdgeKind{EdgeFallthrough, EdgeJump, EdgeConditionalTrue, EdgeConditionalFalse, EdgeCall, EdgeReturn, EdgeException} {
		assert.Equal(t, k, ParseEdgeKind(k.String()))
	}
	assert.Equal(t, EdgeJump, ParseEdgeKind("NOT_A_REAL_KIND"))
}

func TestSuccessorsOfPreservesEdgeOrder(t *testing.T) {
	g := &ControlFlowGraph{
		Edges: []CFGEdge{
			{From: 0, To: 1, Kind: EdgeConditionalTrue, Label: "then"},
			{From: 0, To: 2, Kind: EdgeConditionalFalse, Label: "else"},
			{From: 1, To: 2, Kind: EdgeFallthrough},
		},
	}
	out := g.SuccessorsOf(0)
	if assert.Len(t, out, 2) {
		assert.Equal(t, "then", out[0].Label)
		assert.Equal(t, "else", out[1].Label)
	}
	assert.Empty(t, g.SuccessorsOf(2))
}

func TestBlockLookupBoundsChecks(t *testing.T) {
	g := &ControlFlowGraph{Blocks: []BasicBlock{{Id: 0}, {Id: 1}}}
	assert.NotNil(t, g.Block(0))
	assert.NotNil(t, g.Block(1))
	assert.Nil(t, g.Block(-1))
	assert.Nil(t, g.Block(2))
}
