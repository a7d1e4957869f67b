package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basilisk/internal/ast"
	"basilisk/internal/basic"
	"basilisk/internal/cfg"
	"basilisk/internal/data"
	"basilisk/internal/symtab"
)

func intType() basic.TypeDescriptor { return basic.TypeDescriptor{Base: basic.Integer} }

// TestGenerateProgramIntegerAssignAndPrint covers the simplest worked
// scenario: LET X = 5 followed by PRINT X, entirely within main, with
// no SUBs/FUNCTIONs and no DATA segment.
func TestGenerateProgramIntegerAssignAndPrint(t *testing.T) {
	letStmt := &ast.LetStatement{
		LHS: &ast.VariableExpression{Name: "X"},
		RHS: &ast.NumberLiteral{IntValue: 5},
	}
	printStmt := &ast.PrintStatement{
		Items: []ast.PrintItem{{Value: &ast.VariableExpression{Name: "X"}}},
	}
	letStmt.LHS.(*ast.VariableExpression).Typ = intType()
	letStmt.RHS.(*ast.NumberLiteral).Typ = intType()
	printStmt.Items[0].Value.(*ast.VariableExpression).Typ = intType()

	mainCFG := &cfg.ControlFlowGraph{
		Blocks: []cfg.BasicBlock{
			{Id: 0, Statements: []ast.Statement{letStmt, printStmt}},
		},
		EntryID:           0,
		GosubReturnBlocks: map[int]bool{},
	}
	program := &ast.Program{Statements: []ast.Statement{letStmt, printStmt}}
	programCFG := &cfg.ProgramCFG{MainCFG: mainCFG}

	il := GenerateProgram(program, programCFG, symtab.New(), &data.Result{}, DefaultOptions())

	assert.Contains(t, il, "export function w $main()")
	assert.Contains(t, il, "rt_print_i32")
	assert.Contains(t, il, "ret 0")
}

// TestGenerateProgramGosubReturnRoundTrip covers a GOSUB/RETURN round
// trip: main calls a subroutine block via a CALL edge and a matching
// RETURN edge pops the same stack, dispatching back to the recorded
// continuation block.
func TestGenerateProgramGosubReturnRoundTrip(t *testing.T) {
	endStmt := &ast.EndStatement{}
	mainCFG := &cfg.ControlFlowGraph{
		Blocks: []cfg.BasicBlock{
			{Id: 0, Successors: []int{2, 1}},
			{Id: 1, Statements: []ast.Statement{endStmt}},
			{Id: 2, Successors: []int{3}},
			{Id: 3},
		},
		Edges: []cfg.CFGEdge{
			{From: 0, To: 2, Kind: cfg.EdgeCall},
			{From: 0, To: 1, Kind: cfg.EdgeFallthrough},
			{From: 2, To: 3, Kind: cfg.EdgeFallthrough},
			{From: 3, To: 0, Kind: cfg.EdgeReturn},
		},
		EntryID:           0,
		GosubReturnBlocks: map[int]bool{1: true},
	}
	program := &ast.Program{}
	programCFG := &cfg.ProgramCFG{MainCFG: mainCFG}

	il := GenerateProgram(program, programCFG, symtab.New(), &data.Result{}, DefaultOptions())

	require.Contains(t, il, "$gosub_return_stack")
	assert.Contains(t, il, "@block_0")
	assert.Contains(t, il, "@block_2")
	assert.Contains(t, il, "@block_3")
	assert.Contains(t, il, "GOSUB stack overflow")
}

func TestGenerateProgramEmitsDataSegmentWhenPresent(t *testing.T) {
	mainCFG := &cfg.ControlFlowGraph{
		Blocks:            []cfg.BasicBlock{{Id: 0}},
		EntryID:           0,
		GosubReturnBlocks: map[int]bool{},
	}
	programCFG := &cfg.ProgramCFG{MainCFG: mainCFG}
	dataResult := &data.Result{
		Values: []data.Value{
			{Type: intType(), Num: 7},
			{Type: basic.TypeDescriptor{Base: basic.String}, Str: "hi"},
		},
		RestorePoints: []data.RestorePoint{{Label: "L1", Index: 1}},
	}

	il := GenerateProgram(&ast.Program{}, programCFG, symtab.New(), dataResult, DefaultOptions())
	assert.Contains(t, il, "data $")
	assert.Contains(t, il, "hi")

	// Both DATA entries must land in the single $__data_start object so
	// the `dataStartSymbol + idx*16` stride READ/RESTORE rely on is sound;
	// QBE gives no adjacency guarantee across separate data definitions,
	// so a second per-entry object would make entry 1 unreachable.
	idx := strings.Index(il, "data $__data_start = {")
	require.GreaterOrEqual(t, idx, 0, "expected a single $__data_start data object")
	end := strings.Index(il[idx:], "}")
	require.GreaterOrEqual(t, end, 0)
	object := il[idx : idx+end]
	assert.Contains(t, object, "w 0")
	assert.Contains(t, object, "w 2")
	assert.NotContains(t, il, "$__data_entry_1", "DATA entries must not be split across separate data objects")
}
